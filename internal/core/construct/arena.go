package construct

import (
	"cmp"
	"slices"
)

// SolidKind is the shape of an arena solid
type SolidKind uint8

// Solid kinds
const (
	SolidBox SolidKind = iota
	SolidSphere
	SolidCylinder
	SolidUnion
	SolidMultiUnion
	SolidSubtraction
)

// String returns a short label used in logs, metrics and manifests
func (k SolidKind) String() string {
	switch k {
	case SolidSphere:
		return "sphere"
	case SolidCylinder:
		return "cylinder"
	case SolidUnion:
		return "union"
	case SolidMultiUnion:
		return "multi_union"
	case SolidSubtraction:
		return "subtraction"
	default:
		return "box"
	}
}

// Solid is the arena record of one created solid
type Solid struct {
	Handle   SolidHandle
	Owner    string
	Name     string
	Kind     SolidKind
	Operands []SolidHandle
}

// Arena owns every solid created by a constructor for the lifetime of the run.
// Handles increase monotonically and are never handed out twice, even after a
// rollback drops the solids that carried them
type Arena struct {
	solids []Solid
	next   SolidHandle
}

// NewArena returns an empty arena
func NewArena() *Arena { return &Arena{} }

func (a *Arena) alloc(owner, name string, kind SolidKind, operands ...SolidHandle) SolidHandle {
	h := a.next
	a.next++
	a.solids = append(a.solids, Solid{
		Handle:   h,
		Owner:    owner,
		Name:     name,
		Kind:     kind,
		Operands: operands,
	})
	return h
}

// Len is the number of live solids
func (a *Arena) Len() int { return len(a.solids) }

// Get returns the record for h
func (a *Arena) Get(h SolidHandle) (Solid, bool) {
	i, ok := slices.BinarySearchFunc(a.solids, h, func(s Solid, h SolidHandle) int {
		return cmp.Compare(s.Handle, h)
	})
	if !ok {
		return Solid{}, false
	}
	return a.solids[i], true
}

// Owned returns the solids created for one detector, in creation order
func (a *Arena) Owned(owner string) []Solid {
	var out []Solid
	for _, s := range a.solids {
		if s.Owner == owner {
			out = append(out, s)
		}
	}
	return out
}

func (a *Arena) mark() int { return len(a.solids) }

// truncate drops every solid allocated after mark. The handle counter is not
// rewound
func (a *Arena) truncate(mark int) {
	if mark < len(a.solids) {
		clear(a.solids[mark:])
		a.solids = a.solids[:mark]
	}
}
