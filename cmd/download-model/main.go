// Standalone tool that downloads the all-MiniLM-L6-v2 model files needed
// for local embedding: the ONNX graph and the tokenizer configuration.
//
// Usage: download-model <dest>
package main

import (
	"fmt"
	"os"

	"github.com/knights-analytics/hugot"
)

const modelName = "sentence-transformers/all-MiniLM-L6-v2"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: download-model <dest>")
		os.Exit(1)
	}
	dest := os.Args[1]

	if err := os.MkdirAll(dest, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Downloading %s to %s...\n", modelName, dest)

	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	modelPath, err := hugot.DownloadModel(modelName, dest, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "download model: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model ready at %s\n", modelPath)
}
