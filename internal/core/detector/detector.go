// Package detector places a detector model in the world: a named instance with
// a global position (of the model centre) and an orientation
package detector

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/core/geometry"
	"pixgeo/internal/core/model"
	perr "pixgeo/internal/platform/errors"
)

// Detector is one placed instance of a model. Several detectors may share the
// same *model.Model
type Detector struct {
	name        string
	model       *model.Model
	position    r3.Vec
	angles      r3.Vec
	mode        geometry.OrientationMode
	orientation geometry.Rotation
}

// Options configures the placement of a detector
type Options struct {
	Position r3.Vec
	// Angles are per-axis rotations in radians, composed according to Mode
	Angles r3.Vec
	Mode   geometry.OrientationMode
}

// New builds a detector instance. The name must be non-blank and the model set
func New(name string, m *model.Model, opts Options) (*Detector, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, perr.InvalidArgf("detector name is required")
	}
	if m == nil {
		return nil, perr.WithOp(perr.InvalidArgf("detector %q has no model", name), name)
	}
	return &Detector{
		name:        name,
		model:       m,
		position:    opts.Position,
		angles:      opts.Angles,
		mode:        opts.Mode,
		orientation: geometry.FromAngles(opts.Angles, opts.Mode),
	}, nil
}

// Name returns the unique detector name
func (d *Detector) Name() string { return d.name }

// Model returns the shared model
func (d *Detector) Model() *model.Model { return d.model }

// Position is the global position of the model centre
func (d *Detector) Position() r3.Vec { return d.position }

// Angles returns the configured orientation angles and their composition mode
func (d *Detector) Angles() (r3.Vec, geometry.OrientationMode) { return d.angles, d.mode }

// Orientation is the rotation from local to global axes
func (d *Detector) Orientation() geometry.Rotation { return d.orientation }

// LocalToGlobal maps a point in the model frame to the world frame
func (d *Detector) LocalToGlobal(p r3.Vec) r3.Vec {
	return r3.Add(d.orientation.Apply(r3.Sub(p, d.model.Center())), d.position)
}

// GlobalToLocal is the inverse of LocalToGlobal
func (d *Detector) GlobalToLocal(p r3.Vec) r3.Vec {
	return r3.Add(d.orientation.Inverse().Apply(r3.Sub(p, d.position)), d.model.Center())
}

// WrapperPosition is where the wrapper centre lands in the world: the model
// centre is pinned to Position, so the wrapper is shifted by the rotated offset
// between nominal and geometrical centre
func (d *Detector) WrapperPosition() r3.Vec {
	shift := r3.Sub(d.model.Center(), d.model.GeometricalCenter())
	return r3.Sub(d.position, d.orientation.Apply(shift))
}
