package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the reference data loaded into tire_brands and tire_diameters.
type Catalog struct {
	Brands    []string          `yaml:"brands"`
	Diameters []CatalogDiameter `yaml:"diameters"`
}

type CatalogDiameter struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file, or the embedded one when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes YAML and normalizes it: names and values are trimmed,
// blanks dropped, and a missing diameter label defaults to "R<value>".
func ParseCatalog(raw []byte) (Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	brands := cat.Brands[:0]
	for _, b := range cat.Brands {
		if b = strings.TrimSpace(b); b != "" {
			brands = append(brands, b)
		}
	}
	cat.Brands = brands

	diameters := cat.Diameters[:0]
	for _, d := range cat.Diameters {
		d.Value = strings.TrimSpace(d.Value)
		if d.Value == "" {
			continue
		}
		if d.Label = strings.TrimSpace(d.Label); d.Label == "" {
			d.Label = "R" + d.Value
		}
		diameters = append(diameters, d)
	}
	cat.Diameters = diameters
	return cat, nil
}
