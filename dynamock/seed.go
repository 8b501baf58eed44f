package dynamock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nisimpson/dynafield"
	"gopkg.in/yaml.v3"
)

// Fixture describes one entity of a seed document. Dictionaries maps field
// names to their entries; a null value stores the field as unset.
//
// In JSON:
//
//	[
//	  {
//	    "kind": "brand_stats",
//	    "id": "B1",
//	    "attributes": {"brand_name": "Google"},
//	    "dictionaries": {"clients": {"US": 7810, "FR": 78}}
//	  }
//	]
//
// YAML documents use the same field names.
type Fixture struct {
	Kind         string         `json:"kind" yaml:"kind"`
	ID           string         `json:"id" yaml:"id"`
	SortKey      string         `json:"sort_key,omitempty" yaml:"sort_key,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Dictionaries map[string]any `json:"dictionaries,omitempty" yaml:"dictionaries,omitempty"`
}

// Entity converts the fixture into a TestEntity.
func (f Fixture) Entity() (*TestEntity, error) {
	if f.Kind == "" {
		return nil, errors.New("fixture missing required 'kind' field")
	}
	if f.ID == "" {
		return nil, errors.New("fixture missing required 'id' field")
	}

	opts := []EntityOption{WithKind(f.Kind), WithID(f.ID)}
	if f.SortKey != "" {
		opts = append(opts, WithSortKey(f.SortKey))
	}
	for name, value := range f.Attributes {
		opts = append(opts, WithAttribute(name, value))
	}
	for name, entries := range f.Dictionaries {
		if entries == nil {
			opts = append(opts, WithUnsetDictionary(name))
			continue
		}
		opts = append(opts, WithDictionary(name, entries))
	}

	entity := NewEntity(opts...).Build()
	if entity.err != nil {
		return nil, fmt.Errorf("fixture %s/%s: %w", f.Kind, f.ID, entity.err)
	}
	return entity, nil
}

// ParseJSONFixtures reads a JSON array of fixtures. Numbers decode as int64
// when integral and float64 otherwise.
func ParseJSONFixtures(r io.Reader) ([]Fixture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON document: %w", err)
	}

	var raw []struct {
		Kind         string          `json:"kind"`
		ID           string          `json:"id"`
		SortKey      string          `json:"sort_key"`
		Attributes   json.RawMessage `json:"attributes"`
		Dictionaries json.RawMessage `json:"dictionaries"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON document: %w", err)
	}

	fixtures := make([]Fixture, 0, len(raw))
	for i, r := range raw {
		f := Fixture{Kind: r.Kind, ID: r.ID, SortKey: r.SortKey}
		if f.Attributes, err = decodeObject(r.Attributes); err != nil {
			return nil, fmt.Errorf("fixture %d attributes: %w", i, err)
		}
		if f.Dictionaries, err = decodeObject(r.Dictionaries); err != nil {
			return nil, fmt.Errorf("fixture %d dictionaries: %w", i, err)
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

func decodeObject(data json.RawMessage) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	v, err := dynafield.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
	return m, nil
}

// ParseYAMLFixtures reads a YAML sequence of fixtures. Dictionary entries with
// keys that are not strings fail with [dynafield.ErrInvalidKey] when the
// fixture is converted.
func ParseYAMLFixtures(r io.Reader) ([]Fixture, error) {
	var fixtures []Fixture
	if err := yaml.NewDecoder(r).Decode(&fixtures); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML document: %w", err)
	}
	return fixtures, nil
}

// SeedFixtures converts fixtures into entities and writes them. It returns
// the number of entities written.
func (s *Seeder) SeedFixtures(ctx context.Context, fixtures []Fixture) (int, error) {
	entities := make([]dynafield.Marshaler, 0, len(fixtures))
	for i, f := range fixtures {
		entity, err := f.Entity()
		if err != nil {
			return 0, fmt.Errorf("failed to convert fixture at index %d: %w", i, err)
		}
		entities = append(entities, entity)
	}

	if err := s.SeedEntities(ctx, entities...); err != nil {
		return 0, err
	}
	return len(entities), nil
}

// SeedFromJSON seeds the fixtures of a JSON document.
func (s *Seeder) SeedFromJSON(ctx context.Context, r io.Reader) (int, error) {
	fixtures, err := ParseJSONFixtures(r)
	if err != nil {
		return 0, err
	}
	return s.SeedFixtures(ctx, fixtures)
}

// SeedFromYAML seeds the fixtures of a YAML document.
func (s *Seeder) SeedFromYAML(ctx context.Context, r io.Reader) (int, error) {
	fixtures, err := ParseYAMLFixtures(r)
	if err != nil {
		return 0, err
	}
	return s.SeedFixtures(ctx, fixtures)
}
