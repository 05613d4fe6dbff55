package model

import (
	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/core/geometry"
	"pixgeo/internal/core/modelcfg"
)

// ResolvedLayer is a support layer with its centre resolved by the stack
type ResolvedLayer struct {
	SupportLayer
	Index  int
	Center r3.Vec
}

// HoleCenter is the layer centre shifted by the hole offset
func (l ResolvedLayer) HoleCenter() r3.Vec {
	return r3.Vec{X: l.Center.X + l.HoleOffset.X, Y: l.Center.Y + l.HoleOffset.Y, Z: l.Center.Z}
}

// HasHole reports whether both hole dimensions are non-negligible
func (l ResolvedLayer) HasHole() bool {
	return l.HoleSize.X > geometry.Epsilon && l.HoleSize.Y > geometry.Epsilon
}

// HoleBox is the hole size with the layer thickness as its depth
func (l ResolvedLayer) HoleBox() r3.Vec {
	return r3.Vec{X: l.HoleSize.X, Y: l.HoleSize.Y, Z: l.Size.Z}
}

// SupportLayers resolves the stack. Sensor layers grow downwards from the
// sensor bottom face, chip layers upwards from the chip top face, absolute
// layers keep their own z and leave both cursors alone. The result is a fresh
// snapshot on every call; declared layers are never modified
func (m *Model) SupportLayers() []ResolvedLayer {
	sensorCursor := -m.sensorThickness / 2
	chipCursor := m.sensorThickness/2 + m.bumpGap() + m.chipThickness

	center := m.Center()
	out := make([]ResolvedLayer, 0, len(m.supports))
	for i, layer := range m.supports {
		t := layer.Size.Z
		z := layer.Offset.Z
		switch layer.Location {
		case modelcfg.LocationSensor:
			z = sensorCursor - t/2
			sensorCursor -= t
		case modelcfg.LocationChip:
			z = chipCursor + t/2
			chipCursor += t
		}
		out = append(out, ResolvedLayer{
			SupportLayer: layer,
			Index:        i,
			Center:       r3.Add(center, r3.Vec{X: layer.Offset.X, Y: layer.Offset.Y, Z: z}),
		})
	}
	return out
}
