package memory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/core/construct"
	"pixgeo/internal/core/geometry"
	perr "pixgeo/internal/platform/errors"
)

func TestLookupMaterial(t *testing.T) {
	b := New(WithMaterial("Peek", 1.32, "solid"))

	m, err := b.LookupMaterial("Aluminium")
	require.NoError(t, err)
	assert.Equal(t, "aluminum", m.MaterialName())

	m, err = b.LookupMaterial("PEEK")
	require.NoError(t, err)
	assert.Equal(t, 1.32, m.(*Material).Density)

	_, err = b.LookupMaterial("unobtainium")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
	assert.Len(t, b.Materials(), len(builtinMaterials)+1)
}

func TestWorldVolume(t *testing.T) {
	w, err := New(WithWorldMaterial("Vacuum")).LookupWorldVolume()
	require.NoError(t, err)
	assert.Equal(t, WorldName, w.VolumeName())
	assert.Equal(t, "vacuum", w.(*Volume).Material)

	_, err = New(WithoutWorld()).LookupWorldVolume()
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}

func TestSolidValidation(t *testing.T) {
	b := New()
	require.NoError(t, b.CreateBox(0, "box", r3.Vec{X: 1, Y: 1, Z: 1}))

	assert.True(t, perr.IsCode(b.CreateBox(0, "again", r3.Vec{X: 1, Y: 1, Z: 1}), perr.ErrorCodeConflict))
	assert.True(t, perr.IsCode(b.CreateBox(1, "flat", r3.Vec{X: 1, Y: 1}), perr.ErrorCodeInvalidValue))
	assert.True(t, perr.IsCode(b.CreateSphere(1, "dot", 0), perr.ErrorCodeInvalidValue))
	assert.True(t, perr.IsCode(b.CreateCylinder(1, "tube", 1, 0), perr.ErrorCodeInvalidValue))
	assert.True(t, perr.IsCode(b.Union(1, "u", 0, 7, geometry.Translate(r3.Vec{})), perr.ErrorCodeNotFound))
	assert.True(t, perr.IsCode(b.MultiUnion(1, "mu", nil), perr.ErrorCodeInvalidValue))

	require.NoError(t, b.CreateSphere(1, "ball", 0.5))
	at := geometry.Rigid(geometry.RotationZ(1), r3.Vec{X: 2})
	require.NoError(t, b.Subtract(2, "cut", 0, 1, at))
	s, ok := b.Solid(2)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, s.Operands)
	require.NotNil(t, s.At.Rotation)
	assert.Equal(t, [3]float64{2, 0, 0}, s.At.Translation)
}

func TestVolumesAndPlacements(t *testing.T) {
	b := New()
	require.NoError(t, b.CreateBox(0, "box", r3.Vec{X: 1, Y: 1, Z: 1}))
	si, _ := b.LookupMaterial("silicon")
	world, _ := b.LookupWorldVolume()

	_, err := b.CreateVolume("v", 3, si)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
	v, err := b.CreateVolume("v", 0, si)
	require.NoError(t, err)
	_, err = b.CreateVolume("v", 0, si)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConflict))
	_, err = b.CreateVolume(WorldName, 0, si)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConflict))

	_, err = b.Place("p", v, geometry.Translate(r3.Vec{Z: 1}), world)
	require.NoError(t, err)
	_, err = b.Place("p", v, geometry.Translate(r3.Vec{}), world)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConflict))
	_, err = b.Place("q", v, geometry.Translate(r3.Vec{}), nil)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))

	_, err = b.RegisterParameterization("empty", construct.GridSpec{})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidValue))
	p, err := b.RegisterParameterization("grid", construct.GridSpec{NX: 3, NY: 2, PitchX: 1, PitchY: 1})
	require.NoError(t, err)
	r, err := b.PlaceReplicas("r", v, world, p)
	require.NoError(t, err)
	assert.Equal(t, uint(6), r.(*Placement).Replicas)
}

func TestCheckpointRestore(t *testing.T) {
	b := New()
	require.NoError(t, b.CreateBox(0, "keep", r3.Vec{X: 1, Y: 1, Z: 1}))
	cp := b.Checkpoint()

	si, _ := b.LookupMaterial("silicon")
	world, _ := b.LookupWorldVolume()
	require.NoError(t, b.CreateBox(1, "drop", r3.Vec{X: 1, Y: 1, Z: 1}))
	v, err := b.CreateVolume("drop_log", 1, si)
	require.NoError(t, err)
	_, err = b.Place("drop_phys", v, geometry.Translate(r3.Vec{}), world)
	require.NoError(t, err)

	b.Restore(cp)
	s, vols, pls := b.Counts()
	assert.Equal(t, []int{1, 0, 0}, []int{s, vols, pls})
	_, ok := b.Solid(1)
	assert.False(t, ok)

	// names and handles are free again
	require.NoError(t, b.CreateBox(1, "drop", r3.Vec{X: 1, Y: 1, Z: 1}))
	_, err = b.CreateVolume("drop_log", 1, si)
	assert.NoError(t, err)

	// unknown checkpoints are ignored
	b.Restore(42)
}

func TestManifestFor(t *testing.T) {
	b := New()
	si, _ := b.LookupMaterial("silicon")
	al, _ := b.LookupMaterial("aluminum")
	world, _ := b.LookupWorldVolume()

	require.NoError(t, b.CreateBox(0, "outer", r3.Vec{X: 2, Y: 2, Z: 2}))
	require.NoError(t, b.CreateBox(1, "inner", r3.Vec{X: 1, Y: 1, Z: 1}))
	require.NoError(t, b.CreateBox(2, "hole", r3.Vec{X: 0.1, Y: 0.1, Z: 1}))
	require.NoError(t, b.Subtract(3, "holed", 1, 2, geometry.Translate(r3.Vec{})))
	require.NoError(t, b.CreateBox(4, "other", r3.Vec{X: 1, Y: 1, Z: 1}))

	outer, _ := b.CreateVolume("outer_log", 0, si)
	inner, _ := b.CreateVolume("inner_log", 3, al)
	other, _ := b.CreateVolume("other_log", 4, si)
	_, _ = b.Place("outer_phys", outer, geometry.Translate(r3.Vec{}), world)
	_, _ = b.Place("inner_phys", inner, geometry.Translate(r3.Vec{Z: 1}), outer)
	_, _ = b.Place("other_phys", other, geometry.Translate(r3.Vec{X: 5}), world)
	p, _ := b.RegisterParameterization("cells", construct.GridSpec{NX: 2, NY: 2, PitchX: 1, PitchY: 1})
	_, _ = b.PlaceReplicas("cells_phys", inner, outer, p)

	man, err := b.ManifestFor("outer_phys")
	require.NoError(t, err)
	assert.Equal(t, "outer_phys", man.Root)
	assert.Equal(t, []string{"aluminum", "silicon"}, man.Materials)
	assert.Len(t, man.Volumes, 2)
	assert.Len(t, man.Placements, 3)
	require.Len(t, man.Params, 1)
	assert.Equal(t, "cells", man.Params[0].Name)

	handles := make([]int, 0, len(man.Solids))
	for _, s := range man.Solids {
		handles = append(handles, s.Handle)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, handles)

	raw, err := man.JSON(false)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "outer_phys", back["root"])

	_, err = b.ManifestFor("nope")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}
