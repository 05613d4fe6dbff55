package modelfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/core/detector"
	"pixgeo/internal/core/geometry"
	"pixgeo/internal/core/model"
	"pixgeo/internal/core/units"
	perr "pixgeo/internal/platform/errors"
)

// Entry is one [[detector]] table of a setup file
type Entry struct {
	Name            string `toml:"name"`
	Type            string `toml:"type"`
	Position        any    `toml:"position"`
	Orientation     any    `toml:"orientation"`
	OrientationMode string `toml:"orientation_mode"`
}

// Setup is a parsed setup file
type Setup struct {
	Detectors []Entry `toml:"detector"`
}

// ParseSetup decodes a setup file body. Unknown keys are rejected
func ParseSetup(body string) (*Setup, error) {
	var s Setup
	md, err := toml.Decode(body, &s)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfiguration, "parse setup")
	}
	if extra := md.Undecoded(); len(extra) > 0 {
		return nil, perr.WithField(perr.Configf("setup: unknown key %q", extra[0].String()), extra[0].String())
	}
	if len(s.Detectors) == 0 {
		return nil, perr.Configf("setup: no [[detector]] defined")
	}
	return &s, nil
}

// ReadSetup reads and decodes a setup file
func ReadSetup(path string) (*Setup, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "setup file %s", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeConfiguration, "read setup file %s", path)
	}
	return ParseSetup(string(body))
}

// ModelTypes lists the distinct model types referenced, in first-use order
func (s *Setup) ModelTypes() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range s.Detectors {
		if !seen[e.Type] {
			seen[e.Type] = true
			out = append(out, e.Type)
		}
	}
	return out
}

// Instantiate builds every entry against models. Detectors of the same
// type share one *model.Model
func (s *Setup) Instantiate(models map[string]*model.Model) ([]*detector.Detector, error) {
	names := map[string]bool{}
	out := make([]*detector.Detector, 0, len(s.Detectors))
	for i, e := range s.Detectors {
		d, err := e.detector(models)
		if err != nil {
			return nil, perr.WithOp(err, fmt.Sprintf("detector #%d", i))
		}
		if names[d.Name()] {
			return nil, perr.WithOp(perr.Conflictf("detector %q defined twice", d.Name()), d.Name())
		}
		names[d.Name()] = true
		out = append(out, d)
	}
	return out, nil
}

func (e Entry) detector(models map[string]*model.Model) (*detector.Detector, error) {
	m, ok := models[e.Type]
	if !ok {
		return nil, perr.WithField(perr.NotFoundf("detector %q: model %q not loaded", e.Name, e.Type), "type")
	}
	pos, err := vector(e.Position)
	if err != nil {
		return nil, perr.WithField(perr.Configf("detector %q: position: %v", e.Name, err), "position")
	}
	angles, err := vector(e.Orientation)
	if err != nil {
		return nil, perr.WithField(perr.Configf("detector %q: orientation: %v", e.Name, err), "orientation")
	}
	mode, err := geometry.ParseOrientationMode(e.OrientationMode)
	if err != nil {
		return nil, perr.WithField(perr.InvalidValuef("detector %q: %v", e.Name, err), "orientation_mode")
	}
	return detector.New(e.Name, m, detector.Options{Position: pos, Angles: angles, Mode: mode})
}

// Load reads the setup and the models it references from modelDirs, then
// instantiates the detectors
func Load(ctx context.Context, setupPath string, modelDirs ...string) ([]*detector.Detector, error) {
	setup, err := ReadSetup(setupPath)
	if err != nil {
		return nil, err
	}
	files, err := FindModels(modelDirs...)
	if err != nil {
		return nil, err
	}
	want := map[string]bool{}
	for _, t := range setup.ModelTypes() {
		want[t] = true
	}
	var paths []string
	for _, f := range files {
		if want[ModelName(f)] {
			paths = append(paths, f)
		}
	}
	models, err := LoadModels(ctx, paths)
	if err != nil {
		return nil, err
	}
	return setup.Instantiate(models)
}

// vector reads a 3-vector from a unit string ("1mm 2mm 0") or a TOML array.
// A missing value is the zero vector
func vector(v any) (r3.Vec, error) {
	var xs []float64
	switch x := v.(type) {
	case nil:
		return r3.Vec{}, nil
	case string:
		vs, err := units.ParseList(x)
		if err != nil {
			return r3.Vec{}, err
		}
		xs = vs
	case []any:
		for i, e := range x {
			f, err := scalar(e)
			if err != nil {
				return r3.Vec{}, fmt.Errorf("element %d: %w", i, err)
			}
			xs = append(xs, f)
		}
	default:
		return r3.Vec{}, fmt.Errorf("expected a list of three values, got %T", v)
	}
	if len(xs) != 3 {
		return r3.Vec{}, fmt.Errorf("expected three values, got %d", len(xs))
	}
	return r3.Vec{X: xs[0], Y: xs[1], Z: xs[2]}, nil
}

func scalar(v any) (float64, error) {
	switch x := v.(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		return units.Parse(x)
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
