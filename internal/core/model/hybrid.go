package model

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	perr "pixgeo/internal/platform/errors"
)

// Hybrid holds the bump-bond parameters of a hybrid model
type Hybrid struct {
	BumpHeight         float64
	BumpSphereRadius   float64
	BumpCylinderRadius float64
	BumpOffset         r2.Vec
}

// Hybrid is the capability probe: ok is false for monolithic models
func (m *Model) Hybrid() (Hybrid, bool) {
	if m.kind != KindHybrid || m.hybrid == nil {
		return Hybrid{}, false
	}
	return *m.hybrid, true
}

// bumpGap is the space between sensor and chip taken by the bumps
func (m *Model) bumpGap() float64 {
	if h, ok := m.Hybrid(); ok {
		return h.BumpHeight
	}
	return 0
}

// BumpsCenter is the centre of the bump layer, between sensor top and chip bottom
func (m *Model) BumpsCenter() (r3.Vec, bool) {
	h, ok := m.Hybrid()
	if !ok {
		return r3.Vec{}, false
	}
	c := m.Center()
	return r3.Vec{
		X: c.X + h.BumpOffset.X,
		Y: c.Y + h.BumpOffset.Y,
		Z: c.Z + m.sensorThickness/2 + h.BumpHeight/2,
	}, true
}

// BumpsSize is the footprint of the bump layer: sensor xy by bump height
func (m *Model) BumpsSize() (r3.Vec, bool) {
	h, ok := m.Hybrid()
	if !ok {
		return r3.Vec{}, false
	}
	s := m.SensorSize()
	return r3.Vec{X: s.X, Y: s.Y, Z: h.BumpHeight}, true
}

func errMissingHybrid(typ string) error {
	return perr.Keyed(perr.ErrorCodeConfiguration, typ, "bump_height", "hybrid model without bump parameters")
}
