package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultTraitType is the attribute key that carries the collection name.
const DefaultTraitType = "Collection"

// Descriptor is the JSON document served at a token URI.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Attribute is a single trait of a descriptor.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Generator writes one descriptor file per token id.
type Generator struct {
	Name        string
	Description string
	ImageURI    string
	TraitType   string
	// First is the first id written. The files cover First..First+Count-1.
	First uint64
	Count uint64
}

// Descriptor builds the descriptor for id.
func (g Generator) Descriptor(id uint64) Descriptor {
	trait := g.TraitType
	if trait == "" {
		trait = DefaultTraitType
	}
	return Descriptor{
		Name:        fmt.Sprintf("%s #%d", g.Name, id),
		Description: g.Description,
		Image:       g.ImageURI,
		Attributes:  []Attribute{{TraitType: trait, Value: g.Name}},
	}
}

// Write creates dir if needed and writes <id>.json for every id in range.
// It returns the number of files written.
func (g Generator) Write(dir string) (int, error) {
	if g.Name == "" {
		return 0, errors.New("metadata: collection name is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("metadata: create %s: %w", dir, err)
	}

	written := 0
	for i := uint64(0); i < g.Count; i++ {
		id := g.First + i
		data, err := json.MarshalIndent(g.Descriptor(id), "", "  ")
		if err != nil {
			return written, fmt.Errorf("metadata: encode %d: %w", id, err)
		}
		path := filepath.Join(dir, strconv.FormatUint(id, 10)+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("metadata: write %s: %w", path, err)
		}
		written++
	}
	return written, nil
}
