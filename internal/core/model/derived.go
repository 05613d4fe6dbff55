package model

import (
	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/core/geometry"
)

// GridSize is the pixel grid footprint by sensor thickness
func (m *Model) GridSize() r3.Vec {
	return r3.Vec{
		X: float64(m.npx) * m.pixelSize.X,
		Y: float64(m.npy) * m.pixelSize.Y,
		Z: m.sensorThickness,
	}
}

// Center is the nominal model centre: the middle of the pixel grid expressed in
// a frame where pixel (0,0) sits at the origin
func (m *Model) Center() r3.Vec {
	g := m.GridSize()
	return r3.Vec{
		X: g.X/2 - m.pixelSize.X/2,
		Y: g.Y/2 - m.pixelSize.Y/2,
	}
}

// SensorSize is the grid plus the excess on each side
func (m *Model) SensorSize() r3.Vec {
	g := m.GridSize()
	return r3.Vec{
		X: g.X + m.excess.Right + m.excess.Left,
		Y: g.Y + m.excess.Top + m.excess.Bottom,
		Z: m.sensorThickness,
	}
}

// SensorCenter shifts the grid centre by half the excess imbalance
func (m *Model) SensorCenter() r3.Vec {
	c := m.Center()
	return r3.Vec{
		X: c.X + (m.excess.Right-m.excess.Left)/2,
		Y: c.Y + (m.excess.Top-m.excess.Bottom)/2,
		Z: c.Z,
	}
}

// ChipSize is the sensor footprint by chip thickness
func (m *Model) ChipSize() r3.Vec {
	s := m.SensorSize()
	return r3.Vec{X: s.X, Y: s.Y, Z: m.chipThickness}
}

// ChipCenter sits above the sensor, lifted by the bump height for hybrid models
func (m *Model) ChipCenter() r3.Vec {
	sc := m.SensorCenter()
	return r3.Vec{
		X: sc.X,
		Y: sc.Y,
		Z: m.Center().Z + m.sensorThickness/2 + m.bumpGap() + m.chipThickness/2,
	}
}

// HasChip reports whether the chip is thick enough to be built
func (m *Model) HasChip() bool { return m.chipThickness > geometry.Epsilon }

// envelope accumulates every part of the model. A chip of zero thickness still
// contributes its footprint
func (m *Model) envelope() geometry.Envelope {
	var e geometry.Envelope
	e.AddBox(m.SensorCenter(), m.SensorSize())
	e.AddBox(m.ChipCenter(), m.ChipSize())
	for _, l := range m.SupportLayers() {
		e.AddBox(l.Center, l.Size)
	}
	if c, ok := m.BumpsCenter(); ok {
		s, _ := m.BumpsSize()
		e.AddBox(c, s)
	}
	return e
}

// Size is the wrapper box size. x and y are symmetric about Center so the
// wrapper stays centred on the pixel grid; z is the plain extent because sensor
// and chip sit on opposite faces
func (m *Model) Size() r3.Vec {
	return m.envelope().SizeAbout(m.Center())
}

// GeometricalCenter is the midpoint of the envelope of all parts
func (m *Model) GeometricalCenter() r3.Vec {
	return m.envelope().Midpoint()
}
