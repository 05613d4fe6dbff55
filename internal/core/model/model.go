// Package model is the immutable detector geometry model: a pixel grid on a
// sensor, an optional readout chip, a stack of support layers and, for hybrid
// models, a bump-bond layer. All derived geometry is computed on demand in the
// model's local frame, where pixel (0,0) is centred on the origin and +z points
// from the sensor towards the chip
package model

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/core/modelcfg"
)

// Kind is the model variant tag
type Kind = modelcfg.Kind

// Model variants
const (
	KindMonolithic = modelcfg.KindMonolithic
	KindHybrid     = modelcfg.KindHybrid
)

// SupportLayer is a declared support slab. Size.Z is the thickness; Offset.Z is
// only meaningful for absolute layers
type SupportLayer struct {
	Size       r3.Vec
	Material   modelcfg.Material
	Location   modelcfg.Location
	Offset     r3.Vec
	HoleSize   r2.Vec
	HoleOffset r2.Vec
}

// Model is a validated detector model. It is built once and only read afterwards,
// so a single *Model may be shared by every detector instance using it
type Model struct {
	typ             string
	kind            Kind
	npx, npy        uint
	pixelSize       r2.Vec
	sensorThickness float64
	excess          modelcfg.Excess
	implantSize     r3.Vec
	implantOffset   r2.Vec
	implantMaterial modelcfg.Material
	chipThickness   float64
	supports        []SupportLayer
	hybrid          *Hybrid
}

// New validates cfg and builds the model. No partially valid model is returned
func New(cfg modelcfg.GeometryConfig) (*Model, error) {
	if err := modelcfg.Validate(cfg); err != nil {
		return nil, err
	}

	m := &Model{
		typ:             cfg.Type,
		kind:            cfg.Kind,
		npx:             cfg.NPixels[0],
		npy:             cfg.NPixels[1],
		pixelSize:       cfg.PixelSize,
		sensorThickness: cfg.SensorThickness,
		excess:          cfg.Excess,
		implantSize:     cfg.ImplantSize,
		implantOffset:   cfg.ImplantOffset,
		implantMaterial: cfg.ImplantMaterial,
		chipThickness:   cfg.ChipThickness,
	}
	if m.implantMaterial == "" {
		m.implantMaterial = modelcfg.DefaultImplantMaterial
	}

	for _, s := range cfg.Supports {
		mat := s.Material
		if mat == "" {
			mat = modelcfg.DefaultSupportMaterial
		}
		m.supports = append(m.supports, SupportLayer{
			Size:       r3.Vec{X: s.Size.X, Y: s.Size.Y, Z: s.Thickness},
			Material:   mat,
			Location:   s.Location,
			Offset:     s.Offset,
			HoleSize:   s.HoleSize,
			HoleOffset: s.HoleOffset,
		})
	}

	if cfg.Kind == KindHybrid {
		if cfg.Hybrid == nil {
			return nil, errMissingHybrid(cfg.Type)
		}
		h := Hybrid(*cfg.Hybrid)
		m.hybrid = &h
	}
	return m, nil
}

// FromSource extracts and builds a model in one step
func FromSource(src modelcfg.Source) (*Model, error) {
	cfg, err := modelcfg.Extract(src)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Type is the model type name, e.g. "timepix"
func (m *Model) Type() string { return m.typ }

// Kind returns the variant tag
func (m *Model) Kind() Kind { return m.kind }

// NPixels returns the pixel counts along x and y
func (m *Model) NPixels() (uint, uint) { return m.npx, m.npy }

// PixelSize returns the pixel pitch
func (m *Model) PixelSize() r2.Vec { return m.pixelSize }

// SensorThickness returns the sensor thickness
func (m *Model) SensorThickness() float64 { return m.sensorThickness }

// SensorExcess returns the margins around the pixel grid
func (m *Model) SensorExcess() modelcfg.Excess { return m.excess }

// ImplantSize returns the implant footprint and depth
func (m *Model) ImplantSize() r3.Vec { return m.implantSize }

// ImplantOffset returns the implant offset from the pixel centre
func (m *Model) ImplantOffset() r2.Vec { return m.implantOffset }

// ImplantMaterial returns the material filling excised implants
func (m *Model) ImplantMaterial() modelcfg.Material { return m.implantMaterial }

// ChipThickness returns the chip thickness, 0 when there is no chip
func (m *Model) ChipThickness() float64 { return m.chipThickness }

// DeclaredSupports returns a copy of the support layers in declaration order
func (m *Model) DeclaredSupports() []SupportLayer {
	return append([]SupportLayer(nil), m.supports...)
}
