package modelcfg

import (
	"fmt"
	"math"
	"sort"

	"pixgeo/internal/core/units"
)

// Source is a read-only view over one detector model definition. Keys are the
// flat parameter names of the model file; repeated sections such as "support"
// are reached through Sections. Implementations must report a missing key
// through Has and reserve errors for values of the wrong type or shape
type Source interface {
	// Name is the model type name used in error messages
	Name() string
	Has(key string) bool
	Float(key string) (float64, error)
	// Floats returns a list value of any length; arity is checked by the caller
	Floats(key string) ([]float64, error)
	Text(key string) (string, error)
	// Sections returns the sub-sections of the given kind in declaration order
	Sections(kind string) []Source
}

// MapSource is an in-memory Source for programmatic models and tests.
// Values may be numbers, strings with units ("55um", "1mm 2mm") or slices
type MapSource struct {
	Model       string
	Values      map[string]any
	Subsections map[string][]MapSource
}

// NewMapSource returns a MapSource for model name with the given values
func NewMapSource(name string, values map[string]any) *MapSource {
	if values == nil {
		values = map[string]any{}
	}
	return &MapSource{Model: name, Values: values}
}

// Set stores a value and returns the receiver for chaining
func (m *MapSource) Set(key string, v any) *MapSource {
	if m.Values == nil {
		m.Values = map[string]any{}
	}
	m.Values[key] = v
	return m
}

// AddSection appends a named sub-section, e.g. a support layer
func (m *MapSource) AddSection(kind string, values map[string]any) *MapSource {
	if m.Subsections == nil {
		m.Subsections = map[string][]MapSource{}
	}
	m.Subsections[kind] = append(m.Subsections[kind], MapSource{Model: m.Model, Values: values})
	return m
}

// Name implements Source
func (m *MapSource) Name() string { return m.Model }

// Has implements Source
func (m *MapSource) Has(key string) bool {
	_, ok := m.Values[key]
	return ok
}

// Keys returns the sorted top-level keys
func (m *MapSource) Keys() []string {
	out := make([]string, 0, len(m.Values))
	for k := range m.Values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Float implements Source
func (m *MapSource) Float(key string) (float64, error) {
	v, ok := m.Values[key]
	if !ok {
		return 0, fmt.Errorf("key %q not set", key)
	}
	return toFloat(v)
}

// Floats implements Source. A scalar is returned as a one element list
func (m *MapSource) Floats(key string) ([]float64, error) {
	v, ok := m.Values[key]
	if !ok {
		return nil, fmt.Errorf("key %q not set", key)
	}
	return toFloats(v)
}

// Text implements Source
func (m *MapSource) Text(key string) (string, error) {
	v, ok := m.Values[key]
	if !ok {
		return "", fmt.Errorf("key %q not set", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected text, got %T", v)
	}
	return s, nil
}

// Sections implements Source
func (m *MapSource) Sections(kind string) []Source {
	secs := m.Subsections[kind]
	out := make([]Source, 0, len(secs))
	for i := range secs {
		s := secs[i]
		if s.Model == "" {
			s.Model = m.Model
		}
		out = append(out, &s)
	}
	return out
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case string:
		return units.Parse(x)
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

func toFloats(v any) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return append([]float64(nil), x...), nil
	case []int:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, nil
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, err := toFloat(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = f
		}
		return out, nil
	case string:
		return units.ParseList(x)
	}
	f, err := toFloat(v)
	if err != nil {
		return nil, fmt.Errorf("expected a list of numbers, got %T", v)
	}
	return []float64{f}, nil
}

// counts converts a list of floats into non-negative integral counts
func counts(vs []float64) ([]uint, error) {
	out := make([]uint, len(vs))
	for i, v := range vs {
		if v < 0 || v != math.Trunc(v) || v > math.MaxUint32 {
			return nil, fmt.Errorf("element %d (%v) is not a non-negative integer", i, v)
		}
		out[i] = uint(v)
	}
	return out, nil
}
