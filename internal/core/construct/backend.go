package construct

import (
	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/core/geometry"
)

// SolidHandle addresses a solid in the constructor's Arena. The backend keys
// its own representation by handle and never owns the solid
type SolidHandle int

// Material is a backend material
type Material interface{ MaterialName() string }

// Volume is a backend logical volume: a solid filled with a material
type Volume interface{ VolumeName() string }

// Placement is a positioned instance of a volume inside a parent volume
type Placement interface{ PlacementName() string }

// Param is a registered grid parameterization
type Param interface{ ParamName() string }

// UnionNode is one member of a multi-union, positioned in the union frame
type UnionNode struct {
	Solid SolidHandle
	At    geometry.Transform
}

// Backend receives the solid/placement graph of each detector. Lookups report
// a missing material or world volume with an error coded perr.ErrorCodeNotFound
type Backend interface {
	CreateBox(h SolidHandle, name string, half r3.Vec) error
	CreateSphere(h SolidHandle, name string, radius float64) error
	CreateCylinder(h SolidHandle, name string, radius, halfZ float64) error
	// Union joins b, placed by at, onto a
	Union(h SolidHandle, name string, a, b SolidHandle, at geometry.Transform) error
	MultiUnion(h SolidHandle, name string, nodes []UnionNode) error
	// Subtract removes b, placed by at, from a
	Subtract(h SolidHandle, name string, a, b SolidHandle, at geometry.Transform) error

	LookupMaterial(name string) (Material, error)
	LookupWorldVolume() (Volume, error)

	CreateVolume(name string, solid SolidHandle, mat Material) (Volume, error)
	Place(name string, v Volume, at geometry.Transform, parent Volume) (Placement, error)
	RegisterParameterization(name string, grid GridSpec) (Param, error)
	// PlaceReplicas places grid.Count() copies of v inside parent following p
	PlaceReplicas(name string, v Volume, parent Volume, p Param) (Placement, error)
}
