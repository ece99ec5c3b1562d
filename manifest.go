package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// manifestDocument is the wire shape of models.json.
type manifestDocument struct {
	Models []ModelSpec `json:"models"`
}

// Manifest is the desired-state specification: an ordered, read-only
// collection of model specs loaded once per invocation.
type Manifest struct {
	specs  []ModelSpec
	byID   map[string]int
	byName map[string]int
}

// LoadManifest reads and validates a models.json manifest from path.
// Errors wrap ErrConfig.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest %s: %v", ErrConfig, path, err)
	}
	return ParseManifest(data)
}

// ParseManifest parses and validates manifest JSON.
// The document must have a top-level "models" list; every entry requires
// id, name, url, output, and db_model_name, and both id and db_model_name
// must be unique across the manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc manifestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid manifest JSON: %v", ErrConfig, err)
	}
	if len(doc.Models) == 0 {
		return nil, fmt.Errorf("%w: manifest has no models", ErrConfig)
	}

	m := &Manifest{
		specs:  doc.Models,
		byID:   make(map[string]int, len(doc.Models)),
		byName: make(map[string]int, len(doc.Models)),
	}

	for i, spec := range m.specs {
		if err := validateSpec(i, spec); err != nil {
			return nil, err
		}
		if _, ok := m.byID[spec.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate model id %q", ErrConfig, spec.ID)
		}
		if _, ok := m.byName[spec.DBModelName]; ok {
			return nil, fmt.Errorf("%w: duplicate db_model_name %q", ErrConfig, spec.DBModelName)
		}
		m.byID[spec.ID] = i
		m.byName[spec.DBModelName] = i
	}

	return m, nil
}

// validateSpec checks the required fields of a single manifest entry.
func validateSpec(i int, spec ModelSpec) error {
	required := []struct {
		field, value string
	}{
		{"id", spec.ID},
		{"name", spec.Name},
		{"url", spec.URL},
		{"output", spec.Output},
		{"db_model_name", spec.DBModelName},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: model entry %d is missing %q", ErrConfig, i, r.field)
		}
	}
	return nil
}

// Specs returns the manifest entries in document order.
// The returned slice must not be mutated.
func (m *Manifest) Specs() []ModelSpec {
	return m.specs
}

// Len returns the number of manifest entries.
func (m *Manifest) Len() int {
	return len(m.specs)
}

// FindByID returns the spec with the given id.
func (m *Manifest) FindByID(id string) (ModelSpec, bool) {
	i, ok := m.byID[id]
	if !ok {
		return ModelSpec{}, false
	}
	return m.specs[i], true
}

// FindByRegistryName returns the spec registered under the given
// db_model_name.
func (m *Manifest) FindByRegistryName(name string) (ModelSpec, bool) {
	i, ok := m.byName[name]
	if !ok {
		return ModelSpec{}, false
	}
	return m.specs[i], true
}

// IDs returns all manifest ids in document order.
func (m *Manifest) IDs() []string {
	ids := make([]string, len(m.specs))
	for i, spec := range m.specs {
		ids[i] = spec.ID
	}
	return ids
}
