// Build-time tool that downloads the ONNX Runtime shared library and the
// HuggingFace tokenizers static library for the current platform. Both are
// required for ORT builds of the local embedding provider.
//
// Required env: ORT_VERSION        (e.g. "1.23.2")
// Optional env: ORT_LIB_DIR        (default "./lib")
//               TOKENIZERS_VERSION (default "1.24.0")
//
// Usage: ORT_VERSION=1.23.2 go run ./tools/download-ort
package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// platform describes the release artefacts for one GOOS/GOARCH pair.
type platform struct {
	ortArchive string // fmt template taking the ORT version
	ortLibrary string
	tokArchive string
}

var platforms = map[string]platform{
	"linux/amd64":  {"onnxruntime-linux-x64-%s.tgz", "libonnxruntime.so", "libtokenizers.linux-amd64.tar.gz"},
	"linux/arm64":  {"onnxruntime-linux-aarch64-%s.tgz", "libonnxruntime.so", "libtokenizers.linux-arm64.tar.gz"},
	"darwin/arm64": {"onnxruntime-osx-arm64-%s.tgz", "libonnxruntime.dylib", "libtokenizers.darwin-arm64.tar.gz"},
	"darwin/amd64": {"onnxruntime-osx-x86_64-%s.tgz", "libonnxruntime.dylib", "libtokenizers.darwin-x86_64.tar.gz"},
}

func main() {
	ortVersion := os.Getenv("ORT_VERSION")
	if ortVersion == "" {
		fmt.Fprintln(os.Stderr, "ORT_VERSION env var is required")
		os.Exit(1)
	}

	tokVersion := os.Getenv("TOKENIZERS_VERSION")
	if tokVersion == "" {
		tokVersion = "1.24.0"
	}

	destDir := os.Getenv("ORT_LIB_DIR")
	if destDir == "" {
		destDir = "./lib"
	}

	key := runtime.GOOS + "/" + runtime.GOARCH
	plat, ok := platforms[key]
	if !ok {
		fmt.Fprintf(os.Stderr, "no prebuilt libraries for %s\n", key)
		os.Exit(1)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create directory: %v\n", err)
		os.Exit(1)
	}

	ortURL := fmt.Sprintf(
		"https://github.com/microsoft/onnxruntime/releases/download/v%s/%s",
		ortVersion, fmt.Sprintf(plat.ortArchive, ortVersion),
	)
	if err := install(ortURL, destDir, plat.ortLibrary); err != nil {
		fmt.Fprintf(os.Stderr, "ORT download failed: %v\n", err)
		os.Exit(1)
	}

	tokURL := fmt.Sprintf(
		"https://github.com/daulet/tokenizers/releases/download/v%s/%s",
		tokVersion, plat.tokArchive,
	)
	if err := install(tokURL, destDir, "libtokenizers.a"); err != nil {
		fmt.Fprintf(os.Stderr, "tokenizers download failed: %v\n", err)
		os.Exit(1)
	}
}

// install fetches the archive at url and extracts filename into destDir,
// skipping when the file already exists. Transient failures are retried
// with exponential backoff.
func install(url, destDir, filename string) error {
	destPath := filepath.Join(destDir, filename)
	if _, err := os.Stat(destPath); err == nil {
		fmt.Printf("%s already exists, skipping\n", destPath)
		return nil
	}

	fmt.Printf("Downloading %s\n", url)

	var err error
	delay := 2 * time.Second
	for i := range 4 {
		if i > 0 {
			fmt.Fprintf(os.Stderr, "retry in %s: %v\n", delay, err)
			time.Sleep(delay)
			delay *= 2
		}
		if err = fetchAndExtract(url, destDir, filename); err == nil {
			fmt.Printf("Installed %s\n", destPath)
			return nil
		}
	}
	return err
}

func fetchAndExtract(url, destDir, filename string) error {
	resp, err := http.Get(url) //nolint:gosec
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	return extractTgz(resp.Body, destDir, filename)
}

func extractTgz(body io.Reader, destDir, filename string) error {
	gz, err := gzip.NewReader(body)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close() //nolint:errcheck

	// Strip extension to match versioned variants like libonnxruntime.1.23.2.dylib
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read: %w", err)
		}

		// Skip symlinks and directories, we want the real file
		if header.Typeflag != tar.TypeReg {
			continue
		}

		base := filepath.Base(header.Name)
		if base != filename && !strings.HasPrefix(base, nameWithoutExt+".") {
			continue
		}

		return writeFile(filepath.Join(destDir, filename), tr)
	}

	return fmt.Errorf("%s not found in archive", filename)
}

func writeFile(path string, src io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return out.Close()
}
