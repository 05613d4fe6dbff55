// Package geometry holds the small amount of 3-D math the detector model and
// the constructor share: rotations, rigid transforms and axis-aligned envelopes.
// Vectors are gonum r2/r3 values; lengths are millimetres, angles radians
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the threshold below which a thickness or depth counts as absent
const Epsilon = 1e-9

// XY returns the xy components of v
func XY(v r3.Vec) r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }

// Lift returns (v.x, v.y, z)
func Lift(v r2.Vec, z float64) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: z} }

// Half returns v/2
func Half(v r3.Vec) r3.Vec { return r3.Scale(0.5, v) }

// ApproxEqual reports whether a and b agree componentwise within tol
func ApproxEqual(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

// OrientationMode selects how three angles compose into a rotation
type OrientationMode uint8

const (
	// OrientationXYZ rotates about X first, then Y, then Z (R = Rz·Ry·Rx)
	OrientationXYZ OrientationMode = iota
	// OrientationZYX rotates about Z first, then Y, then X (R = Rx·Ry·Rz)
	OrientationZYX
)

// String returns the configuration spelling of the mode
func (m OrientationMode) String() string {
	switch m {
	case OrientationZYX:
		return "zyx"
	default:
		return "xyz"
	}
}

// ParseOrientationMode accepts "xyz" (default when empty) or "zyx"
func ParseOrientationMode(s string) (OrientationMode, error) {
	switch s {
	case "", "xyz":
		return OrientationXYZ, nil
	case "zyx":
		return OrientationZYX, nil
	}
	return OrientationXYZ, fmt.Errorf("unknown orientation mode %q (want xyz or zyx)", s)
}

// Rotation is a 3x3 rotation matrix in row-major order. The zero value is
// not a rotation; use Identity
type Rotation struct {
	m [9]float64
}

// Identity returns the identity rotation
func Identity() Rotation {
	return Rotation{m: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// RotationX returns a rotation by a radians about the x axis
func RotationX(a float64) Rotation {
	s, c := math.Sincos(a)
	return Rotation{m: [9]float64{1, 0, 0, 0, c, -s, 0, s, c}}
}

// RotationY returns a rotation by a radians about the y axis
func RotationY(a float64) Rotation {
	s, c := math.Sincos(a)
	return Rotation{m: [9]float64{c, 0, s, 0, 1, 0, -s, 0, c}}
}

// RotationZ returns a rotation by a radians about the z axis
func RotationZ(a float64) Rotation {
	s, c := math.Sincos(a)
	return Rotation{m: [9]float64{c, -s, 0, s, c, 0, 0, 0, 1}}
}

// FromAngles composes a rotation from per-axis angles (radians) in the given mode
func FromAngles(angles r3.Vec, mode OrientationMode) Rotation {
	rx, ry, rz := RotationX(angles.X), RotationY(angles.Y), RotationZ(angles.Z)
	if mode == OrientationZYX {
		return rx.Mul(ry).Mul(rz)
	}
	return rz.Mul(ry).Mul(rx)
}

func (r Rotation) dense() *mat.Dense {
	data := r.m
	return mat.NewDense(3, 3, data[:])
}

func fromDense(d mat.Matrix) Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.m[3*i+j] = d.At(i, j)
		}
	}
	return out
}

// Mul returns r·o (o applied first)
func (r Rotation) Mul(o Rotation) Rotation {
	var d mat.Dense
	d.Mul(r.dense(), o.dense())
	return fromDense(&d)
}

// Inverse returns the inverse rotation (the transpose)
func (r Rotation) Inverse() Rotation {
	return fromDense(r.dense().T())
}

// Apply rotates v
func (r Rotation) Apply(v r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(r.dense(), mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Components returns the row-major matrix elements
func (r Rotation) Components() [9]float64 { return r.m }

// IsIdentity reports whether r is the identity within Epsilon
func (r Rotation) IsIdentity() bool {
	id := Identity()
	for i := range r.m {
		if math.Abs(r.m[i]-id.m[i]) > Epsilon {
			return false
		}
	}
	return true
}

// Transform is a rotation followed by a translation
type Transform struct {
	Rotation    Rotation
	Translation r3.Vec
}

// Translate returns a pure translation
func Translate(v r3.Vec) Transform {
	return Transform{Rotation: Identity(), Translation: v}
}

// Rigid returns a transform with rotation r and translation v
func Rigid(r Rotation, v r3.Vec) Transform {
	return Transform{Rotation: r, Translation: v}
}

// Apply maps a point through the transform
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.Rotation.Apply(p), t.Translation)
}

// Envelope is an axis-aligned bounding region accumulated from boxes
type Envelope struct {
	Min, Max r3.Vec
	set      bool
}

// AddBox extends the envelope with a box of full size at center
func (e *Envelope) AddBox(center, size r3.Vec) {
	h := Half(size)
	lo, hi := r3.Sub(center, h), r3.Add(center, h)
	if !e.set {
		e.Min, e.Max, e.set = lo, hi, true
		return
	}
	e.Min = r3.Vec{X: math.Min(e.Min.X, lo.X), Y: math.Min(e.Min.Y, lo.Y), Z: math.Min(e.Min.Z, lo.Z)}
	e.Max = r3.Vec{X: math.Max(e.Max.X, hi.X), Y: math.Max(e.Max.Y, hi.Y), Z: math.Max(e.Max.Z, hi.Z)}
}

// Empty reports whether no box was added
func (e Envelope) Empty() bool { return !e.set }

// Midpoint returns the centre of the envelope
func (e Envelope) Midpoint() r3.Vec { return Half(r3.Add(e.Min, e.Max)) }

// SizeAbout returns the extent of the envelope seen from pivot: x and y are
// doubled one-sided maxima so the box stays centred on pivot, z is the plain
// distance from the lowest to the highest face
func (e Envelope) SizeAbout(pivot r3.Vec) r3.Vec {
	return r3.Vec{
		X: 2 * math.Max(e.Max.X-pivot.X, pivot.X-e.Min.X),
		Y: 2 * math.Max(e.Max.Y-pivot.Y, pivot.Y-e.Min.Y),
		Z: (e.Max.Z - pivot.Z) + (pivot.Z - e.Min.Z),
	}
}
