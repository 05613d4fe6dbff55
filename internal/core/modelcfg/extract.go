package modelcfg

import (
	"fmt"
	"math"

	perr "pixgeo/internal/platform/errors"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// SupportSection is the section kind holding support layers
const SupportSection = "support"

// Extract reads and validates a model definition. Missing mandatory keys and
// values of the wrong shape are configuration errors; well-formed values that
// break a geometric constraint are invalid-value errors. Nothing is clamped
func Extract(src Source) (GeometryConfig, error) {
	r := reader{src: src}
	cfg := GeometryConfig{Type: src.Name()}

	kindText := r.optText("type", "")
	if r.err == nil {
		k, err := ParseKind(kindText)
		if err != nil {
			return GeometryConfig{}, perr.Keyed(perr.ErrorCodeInvalidValue, src.Name(), "type", err.Error())
		}
		cfg.Kind = k
	}

	np := r.counts("number_of_pixels")
	cfg.PixelSize = r.vec2("pixel_size")
	cfg.SensorThickness = r.float("sensor_thickness")

	excess := r.optFloat("sensor_excess", 0)
	cfg.Excess = Excess{
		Top:    r.optFloat("sensor_excess_top", excess),
		Bottom: r.optFloat("sensor_excess_bottom", excess),
		Left:   r.optFloat("sensor_excess_left", excess),
		Right:  r.optFloat("sensor_excess_right", excess),
	}
	if r.err != nil {
		return GeometryConfig{}, r.err
	}
	cfg.NPixels = [2]uint{np[0], np[1]}

	cfg.ImplantSize = r.implantSize(cfg.PixelSize)
	cfg.ImplantOffset = r.optVec2("implant_offset", r2.Vec{})
	cfg.ImplantMaterial = r.optMaterial("implant_material", DefaultImplantMaterial)
	cfg.ChipThickness = r.optFloat("chip_thickness", 0)

	if cfg.Kind == KindHybrid {
		cfg.Hybrid = &HybridConfig{
			BumpHeight:         r.float("bump_height"),
			BumpSphereRadius:   r.optFloat("bump_sphere_radius", 0),
			BumpCylinderRadius: r.float("bump_cylinder_radius"),
			BumpOffset:         r.optVec2("bump_offset", r2.Vec{}),
		}
	}
	if r.err != nil {
		return GeometryConfig{}, r.err
	}

	for i, sec := range src.Sections(SupportSection) {
		sc, err := extractSupport(sec, i)
		if err != nil {
			return GeometryConfig{}, err
		}
		cfg.Supports = append(cfg.Supports, sc)
	}

	if err := Validate(cfg); err != nil {
		return GeometryConfig{}, err
	}
	return cfg, nil
}

// Validate checks the scalar bounds and then the implant containment rules of
// cfg. It is also used by callers that build a GeometryConfig by hand
func Validate(cfg GeometryConfig) error {
	for _, f := range []struct {
		key string
		vs  []float64
	}{
		{"pixel_size", []float64{cfg.PixelSize.X, cfg.PixelSize.Y}},
		{"sensor_thickness", []float64{cfg.SensorThickness}},
		{"sensor_excess", []float64{cfg.Excess.Top, cfg.Excess.Bottom, cfg.Excess.Left, cfg.Excess.Right}},
		{"implant_size", []float64{cfg.ImplantSize.X, cfg.ImplantSize.Y, cfg.ImplantSize.Z}},
		{"implant_offset", []float64{cfg.ImplantOffset.X, cfg.ImplantOffset.Y}},
		{"chip_thickness", []float64{cfg.ChipThickness}},
	} {
		for _, v := range f.vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return perr.Keyed(perr.ErrorCodeInvalidValue, cfg.Type, f.key, "value is not a finite number")
			}
		}
	}
	if err := validation().v.Struct(cfg); err != nil {
		if key, msg, ok := firstViolation(err); ok {
			return perr.Keyed(perr.ErrorCodeInvalidValue, cfg.Type, key, msg)
		}
		return perr.Wrapf(err, perr.ErrorCodeInvalidValue, "model %q: validation", cfg.Type)
	}

	px, py := cfg.PixelSize.X, cfg.PixelSize.Y
	is := cfg.ImplantSize
	if is.X < 0 || is.Y < 0 || is.Z < 0 {
		return perr.Keyed(perr.ErrorCodeInvalidValue, cfg.Type, "implant_size", "implant size cannot be negative")
	}
	if is.X > px || is.Y > py {
		return perr.Keyed(perr.ErrorCodeInvalidValue, cfg.Type, "implant_size", "implant size cannot be larger than pixel pitch")
	}
	if is.Z > cfg.SensorThickness {
		return perr.Keyed(perr.ErrorCodeInvalidValue, cfg.Type, "implant_size", "implant depth cannot be larger than sensor thickness")
	}
	off := cfg.ImplantOffset
	if math.Abs(off.X)+is.X/2 > px/2 || math.Abs(off.Y)+is.Y/2 > py/2 {
		return perr.Keyed(perr.ErrorCodeInvalidValue, cfg.Type, "implant_offset", "implant exceeds pixel cell, reduce implant size or offset")
	}
	return nil
}

func extractSupport(src Source, idx int) (SupportConfig, error) {
	r := reader{src: src, section: fmt.Sprintf("support #%d", idx+1)}
	sc := SupportConfig{
		Thickness: r.float("thickness"),
		Size:      r.vec2("size"),
	}
	locText := r.optText("location", "chip")
	if r.err != nil {
		return SupportConfig{}, r.err
	}
	loc, err := ParseLocation(locText)
	if err != nil {
		return SupportConfig{}, r.keyed(perr.ErrorCodeInvalidValue, "location", err.Error())
	}
	sc.Location = loc

	if loc == LocationAbsolute {
		sc.Offset = r.vec3("offset")
	} else {
		xy := r.optVec2("offset", r2.Vec{})
		sc.Offset = r3.Vec{X: xy.X, Y: xy.Y}
	}
	sc.Material = r.optMaterial("material", DefaultSupportMaterial)
	sc.HoleSize = r.optVec2("hole_size", r2.Vec{})
	sc.HoleOffset = r.optVec2("hole_offset", r2.Vec{})
	if r.err != nil {
		return SupportConfig{}, r.err
	}
	return sc, nil
}

// reader accumulates the first error so extraction reads top to bottom
type reader struct {
	src     Source
	section string
	err     error
}

func (r *reader) keyed(code perr.ErrorCode, key, reason string) error {
	if r.section != "" {
		reason = r.section + ": " + reason
	}
	return perr.Keyed(code, r.src.Name(), key, reason)
}

func (r *reader) fail(key, reason string) {
	if r.err == nil {
		r.err = r.keyed(perr.ErrorCodeConfiguration, key, reason)
	}
}

func (r *reader) missing(key string) bool {
	if r.src.Has(key) {
		return false
	}
	r.fail(key, "missing mandatory key")
	return true
}

// finite reports NaN and infinities as configuration errors on key
func (r *reader) finite(key string, vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			r.fail(key, fmt.Sprintf("value %v is not a finite number", v))
			return false
		}
	}
	return true
}

func (r *reader) float(key string) float64 {
	if r.err != nil || r.missing(key) {
		return 0
	}
	v, err := r.src.Float(key)
	if err != nil {
		r.fail(key, err.Error())
		return 0
	}
	if !r.finite(key, v) {
		return 0
	}
	return v
}

func (r *reader) optFloat(key string, def float64) float64 {
	if r.err != nil || !r.src.Has(key) {
		return def
	}
	v, err := r.src.Float(key)
	if err != nil {
		r.fail(key, err.Error())
		return def
	}
	if !r.finite(key, v) {
		return def
	}
	return v
}

// optMaterial folds a material name; an explicitly empty name is rejected
func (r *reader) optMaterial(key string, def Material) Material {
	if r.err != nil || !r.src.Has(key) {
		return def
	}
	v, err := r.src.Text(key)
	if err != nil {
		r.fail(key, err.Error())
		return def
	}
	m := NewMaterial(v)
	if m == "" {
		r.err = r.keyed(perr.ErrorCodeInvalidValue, key, "material name cannot be empty")
		return def
	}
	return m
}

func (r *reader) optText(key, def string) string {
	if r.err != nil || !r.src.Has(key) {
		return def
	}
	v, err := r.src.Text(key)
	if err != nil {
		r.fail(key, err.Error())
		return def
	}
	return v
}

// list reads key with exactly n elements
func (r *reader) list(key string, n int) []float64 {
	vs, err := r.src.Floats(key)
	if err != nil {
		r.fail(key, err.Error())
		return nil
	}
	if len(vs) != n {
		r.fail(key, fmt.Sprintf("expected %d values, got %d", n, len(vs)))
		return nil
	}
	if !r.finite(key, vs...) {
		return nil
	}
	return vs
}

func (r *reader) counts(key string) [2]uint {
	if r.err != nil || r.missing(key) {
		return [2]uint{}
	}
	vs := r.list(key, 2)
	if vs == nil {
		return [2]uint{}
	}
	cs, err := counts(vs)
	if err != nil {
		r.fail(key, err.Error())
		return [2]uint{}
	}
	return [2]uint{cs[0], cs[1]}
}

func (r *reader) vec2(key string) r2.Vec {
	if r.err != nil || r.missing(key) {
		return r2.Vec{}
	}
	return r.asVec2(key)
}

func (r *reader) optVec2(key string, def r2.Vec) r2.Vec {
	if r.err != nil || !r.src.Has(key) {
		return def
	}
	return r.asVec2(key)
}

func (r *reader) asVec2(key string) r2.Vec {
	vs := r.list(key, 2)
	if vs == nil {
		return r2.Vec{}
	}
	return r2.Vec{X: vs[0], Y: vs[1]}
}

func (r *reader) vec3(key string) r3.Vec {
	if r.err != nil || r.missing(key) {
		return r3.Vec{}
	}
	vs := r.list(key, 3)
	if vs == nil {
		return r3.Vec{}
	}
	return r3.Vec{X: vs[0], Y: vs[1], Z: vs[2]}
}

// implantSize is the two-stage parse: absent means the full pixel with no
// depth, three values are a 3-D implant, two a flat one. Any other arity or a
// non-numeric value is reported, never treated as absent
func (r *reader) implantSize(pitch r2.Vec) r3.Vec {
	const key = "implant_size"
	if r.err != nil {
		return r3.Vec{}
	}
	if !r.src.Has(key) {
		return r3.Vec{X: pitch.X, Y: pitch.Y}
	}
	vs, err := r.src.Floats(key)
	if err != nil {
		r.fail(key, err.Error())
		return r3.Vec{}
	}
	if !r.finite(key, vs...) {
		return r3.Vec{}
	}
	switch len(vs) {
	case 3:
		return r3.Vec{X: vs[0], Y: vs[1], Z: vs[2]}
	case 2:
		return r3.Vec{X: vs[0], Y: vs[1]}
	}
	r.fail(key, fmt.Sprintf("expected 2 or 3 values, got %d", len(vs)))
	return r3.Vec{}
}
