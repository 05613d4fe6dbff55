package construct

import "gonum.org/v1/gonum/spatial/r3"

// GridSpec describes a 2-D replica grid: NX by NY cells of PitchX by PitchY,
// with the corner of cell (0,0) at (OffsetX, OffsetY) and all cells at OffsetZ
type GridSpec struct {
	NX      uint    `json:"nx"`
	NY      uint    `json:"ny"`
	PitchX  float64 `json:"pitch_x"`
	PitchY  float64 `json:"pitch_y"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	OffsetZ float64 `json:"offset_z"`
}

// Count is the number of cells
func (g GridSpec) Count() uint { return g.NX * g.NY }

// Cell maps a linear copy index to its column and row; columns run fastest
func (g GridSpec) Cell(i uint) (col, row uint) {
	if g.NX == 0 {
		return 0, 0
	}
	return i % g.NX, i / g.NX
}

// Position is the centre of cell i
func (g GridSpec) Position(i uint) r3.Vec {
	col, row := g.Cell(i)
	return r3.Vec{
		X: (float64(col)+0.5)*g.PitchX + g.OffsetX,
		Y: (float64(row)+0.5)*g.PitchY + g.OffsetY,
		Z: g.OffsetZ,
	}
}
