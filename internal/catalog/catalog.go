// Package catalog serves regions and places from a YAML document.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/pkordes/trip-planner/internal/domain"
)

//go:embed default.yaml
var defaultYAML []byte

// document is the on-disk layout of a catalog file.
type document struct {
	Regions []domain.Region `yaml:"regions"`
	Places  []domain.Place  `yaml:"places"`
}

// File is an immutable in-memory catalog.
type File struct {
	regions []domain.Region
	places  []domain.Place
}

// Load reads and parses the catalog at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog.Load: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog.Load %s: %w", path, err)
	}
	return f, nil
}

// Default returns the catalog bundled with the binary.
func Default() *File {
	f, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: bundled default.yaml is invalid: %v", err))
	}
	return f
}

// Parse decodes a YAML catalog. Every place needs an external_id that is
// unique within the document.
func Parse(data []byte) (*File, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog.Parse: %w", err)
	}

	seen := make(map[string]bool, len(doc.Places))
	for i, p := range doc.Places {
		if p.ExternalID == "" {
			return nil, fmt.Errorf("catalog.Parse: place #%d: external_id is required", i+1)
		}
		if seen[p.ExternalID] {
			return nil, fmt.Errorf("catalog.Parse: duplicate external_id %q", p.ExternalID)
		}
		seen[p.ExternalID] = true
	}
	return &File{regions: doc.Regions, places: doc.Places}, nil
}

// Regions returns every region in the file.
func (f *File) Regions(_ context.Context) ([]domain.Region, error) {
	return slices.Clone(f.regions), nil
}

// ListPlaces returns the places whose region is one of regions, in file
// order. An empty regions list returns every place.
func (f *File) ListPlaces(_ context.Context, regions []string) ([]domain.Place, error) {
	if len(regions) == 0 {
		return slices.Clone(f.places), nil
	}
	out := make([]domain.Place, 0, len(f.places))
	for _, p := range f.places {
		if slices.Contains(regions, p.Region) {
			out = append(out, p)
		}
	}
	return out, nil
}
