package etl

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest lists the CSV source files for a bulk ingest. Paths are
// resolved relative to the manifest file's directory.
type Manifest struct {
	Products      string `yaml:"products"`
	Offers        string `yaml:"offers"`
	Companies     string `yaml:"companies"`
	Categories    string `yaml:"categories"`
	OfferProducts string `yaml:"offer_products"`
	Compendium    string `yaml:"compendium"`
}

// LoadManifest reads and validates a source manifest. Only the products
// source is mandatory; every other source is optional enrichment.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}

	if m.Products == "" {
		return Manifest{}, fmt.Errorf("manifest %s: products source is required", path)
	}

	base := filepath.Dir(path)
	m.Products = resolvePath(base, m.Products)
	m.Offers = resolvePath(base, m.Offers)
	m.Companies = resolvePath(base, m.Companies)
	m.Categories = resolvePath(base, m.Categories)
	m.OfferProducts = resolvePath(base, m.OfferProducts)
	m.Compendium = resolvePath(base, m.Compendium)

	return m, nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
