// Package modelcfg turns a raw detector model definition into a typed,
// validated GeometryConfig. Enumerations and material names are parsed once
// here so nothing downstream compares raw strings
package modelcfg

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind is the model variant
type Kind uint8

const (
	// KindMonolithic is a sensor with an optional readout chip directly on top
	KindMonolithic Kind = iota
	// KindHybrid adds a bump-bond layer between sensor and chip
	KindHybrid
)

// String returns the configuration spelling
func (k Kind) String() string {
	if k == KindHybrid {
		return "hybrid"
	}
	return "monolithic"
}

// ParseKind accepts monolithic (default), planar as an alias, and hybrid
func ParseKind(s string) (Kind, error) {
	switch fold(s) {
	case "", "monolithic", "planar":
		return KindMonolithic, nil
	case "hybrid":
		return KindHybrid, nil
	}
	return KindMonolithic, fmt.Errorf("model type should be 'monolithic' or 'hybrid', got %q", s)
}

// Location anchors a support layer
type Location uint8

const (
	// LocationChip stacks upwards from the chip top face
	LocationChip Location = iota
	// LocationSensor stacks downwards from the sensor bottom face
	LocationSensor
	// LocationAbsolute uses the user z offset and leaves both stacks alone
	LocationAbsolute
)

// String returns the configuration spelling
func (l Location) String() string {
	switch l {
	case LocationSensor:
		return "sensor"
	case LocationAbsolute:
		return "absolute"
	default:
		return "chip"
	}
}

// ParseLocation is case-insensitive; empty means chip
func ParseLocation(s string) (Location, error) {
	switch fold(s) {
	case "", "chip":
		return LocationChip, nil
	case "sensor":
		return LocationSensor, nil
	case "absolute":
		return LocationAbsolute, nil
	}
	return LocationChip, fmt.Errorf("location of the support should be 'chip', 'sensor' or 'absolute', got %q", s)
}

// Material is a case-folded material key, safe to compare and to use as a map key
type Material string

// NewMaterial folds name into a Material
func NewMaterial(name string) Material { return Material(fold(name)) }

// String implements fmt.Stringer
func (m Material) String() string { return string(m) }

// Default materials
const (
	DefaultImplantMaterial Material = "aluminum"
	DefaultSupportMaterial Material = "g10"
)

// fold trims and case-folds s. A Caser keeps state, so one is built per call
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Excess is the sensor margin around the pixel grid on each side
type Excess struct {
	Top    float64 `cfg:"sensor_excess_top" validate:"gte=0"`
	Bottom float64 `cfg:"sensor_excess_bottom" validate:"gte=0"`
	Left   float64 `cfg:"sensor_excess_left" validate:"gte=0"`
	Right  float64 `cfg:"sensor_excess_right" validate:"gte=0"`
}

// SupportConfig is one declared support layer
type SupportConfig struct {
	Size       r2.Vec   `cfg:"size"`
	Thickness  float64  `cfg:"thickness" validate:"gt=0"`
	Location   Location `cfg:"location"`
	Offset     r3.Vec   `cfg:"offset"`
	Material   Material `cfg:"material"`
	HoleSize   r2.Vec   `cfg:"hole_size"`
	HoleOffset r2.Vec   `cfg:"hole_offset"`
}

// HybridConfig carries the bump-bond parameters of a hybrid model
type HybridConfig struct {
	BumpHeight         float64 `cfg:"bump_height" validate:"gt=0"`
	BumpSphereRadius   float64 `cfg:"bump_sphere_radius" validate:"gte=0"`
	BumpCylinderRadius float64 `cfg:"bump_cylinder_radius" validate:"gt=0"`
	BumpOffset         r2.Vec  `cfg:"bump_offset"`
}

// GeometryConfig is the typed and validated form of a model definition
type GeometryConfig struct {
	Type            string          `cfg:"model"`
	Kind            Kind            `cfg:"type"`
	NPixels         [2]uint         `cfg:"number_of_pixels" validate:"dive,gt=0"`
	PixelSize       r2.Vec          `cfg:"pixel_size"`
	SensorThickness float64         `cfg:"sensor_thickness" validate:"gt=0"`
	Excess          Excess          `cfg:"sensor_excess"`
	ImplantSize     r3.Vec          `cfg:"implant_size"`
	ImplantOffset   r2.Vec          `cfg:"implant_offset"`
	ImplantMaterial Material        `cfg:"implant_material"`
	ChipThickness   float64         `cfg:"chip_thickness" validate:"gte=0"`
	Supports        []SupportConfig `cfg:"support" validate:"dive"`
	Hybrid          *HybridConfig   `cfg:"hybrid"`
}
