package construct_test

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/backend/memory"
	"pixgeo/internal/core/construct"
	"pixgeo/internal/core/detector"
	"pixgeo/internal/core/geometry"
	"pixgeo/internal/core/model"
	"pixgeo/internal/core/modelcfg"
	perr "pixgeo/internal/platform/errors"
	"pixgeo/internal/platform/logger"
	"pixgeo/internal/platform/metrics"
)

const tol = 1e-12

func baseConfig() modelcfg.GeometryConfig {
	return modelcfg.GeometryConfig{
		Type:            "unit",
		NPixels:         [2]uint{2, 2},
		PixelSize:       r2.Vec{X: 1, Y: 1},
		SensorThickness: 0.5,
		ImplantSize:     r3.Vec{X: 1, Y: 1},
	}
}

func newDetector(t *testing.T, name string, cfg modelcfg.GeometryConfig, opts detector.Options) *detector.Detector {
	t.Helper()
	m, err := model.New(cfg)
	require.NoError(t, err)
	d, err := detector.New(name, m, opts)
	require.NoError(t, err)
	return d
}

func newConstructor(b construct.Backend, opts ...construct.Option) *construct.Constructor {
	return construct.New(b, append([]construct.Option{construct.WithLogger(logger.Nop())}, opts...)...)
}

func solidNamed(t *testing.T, c *construct.Constructor, b *memory.Backend, owner, name string) memory.Solid {
	t.Helper()
	for _, s := range c.Arena().Owned(owner) {
		if s.Name == name {
			rec, ok := b.Solid(s.Handle)
			require.True(t, ok, "solid %s not in backend", name)
			return rec
		}
	}
	t.Fatalf("solid %s not in arena", name)
	return memory.Solid{}
}

func placementNamed(t *testing.T, b *memory.Backend, name string) memory.Placement {
	t.Helper()
	for _, p := range b.Placements() {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("placement %s not recorded", name)
	return memory.Placement{}
}

func translation(t *testing.T, p memory.Placement) r3.Vec {
	t.Helper()
	require.NotNil(t, p.At)
	return r3.Vec{X: p.At.Translation[0], Y: p.At.Translation[1], Z: p.At.Translation[2]}
}

func assertVec(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.True(t, geometry.ApproxEqual(want, got, tol), "want %v got %v", want, got)
}

func TestBuildMonolithicEmitsNoBumps(t *testing.T) {
	b := memory.New()
	c := newConstructor(b)
	require.NoError(t, c.Build(newDetector(t, "dut", baseConfig(), detector.Options{})))

	for _, s := range c.Arena().Owned("dut") {
		assert.NotEqual(t, construct.SolidSphere, s.Kind, s.Name)
		assert.NotEqual(t, construct.SolidCylinder, s.Kind, s.Name)
	}
	roles := c.Registry().Roles("dut")
	assert.Contains(t, roles, construct.RoleWrapperPhys)
	assert.Contains(t, roles, construct.RoleSensorPhys)
	assert.Contains(t, roles, construct.RolePixelParam)
	assert.NotContains(t, roles, construct.RoleBumpsParamPhys)
	// no chip thickness, no excised implants
	assert.NotContains(t, roles, construct.RoleChipLog)
	assert.NotContains(t, roles, construct.RoleImplantsLog)
	assert.Equal(t, []string{"dut"}, c.Built())

	sensor, ok := construct.Lookup[*memory.Volume](c.Registry(), "dut", construct.RoleSensorLog)
	require.True(t, ok)
	rec, ok := b.Solid(construct.SolidHandle(sensor.Solid))
	require.True(t, ok)
	assert.Equal(t, memory.ShapeBox, rec.Shape)
	assert.Equal(t, "silicon", sensor.Material)
}

func TestBuildImplantUnion(t *testing.T) {
	cfg := baseConfig()
	cfg.ImplantSize = r3.Vec{X: 0.5, Y: 0.5, Z: 0.1}
	cfg.Excess.Right = 1

	b := memory.New()
	c := newConstructor(b)
	require.NoError(t, c.Build(newDetector(t, "dut", cfg, detector.Options{})))

	union := solidNamed(t, c, b, "dut", "implants_dut_union")
	require.Equal(t, memory.ShapeMultiUnion, union.Shape)
	require.Len(t, union.Nodes, 4)

	// pixel 0 sits on the local origin, the sensor centre is shifted +0.5 in x
	// by the right excess: the first node lands 1.0 to the left of it
	first := union.Nodes[0].At.Translation
	assert.InDelta(t, -1.0, first[0], tol)
	assert.InDelta(t, -0.5, first[1], tol)
	assert.InDelta(t, 0.2, first[2], tol)
	last := union.Nodes[3].At.Translation
	assert.InDelta(t, 0.0, last[0], tol)
	assert.InDelta(t, 0.5, last[1], tol)
	for _, n := range union.Nodes {
		assert.Equal(t, union.Nodes[0].Solid, n.Solid)
		assert.Nil(t, n.At.Rotation)
	}

	sensor, ok := construct.Lookup[*memory.Volume](c.Registry(), "dut", construct.RoleSensorLog)
	require.True(t, ok)
	rec, _ := b.Solid(construct.SolidHandle(sensor.Solid))
	assert.Equal(t, memory.ShapeSubtraction, rec.Shape)

	implants, ok := construct.Lookup[*memory.Volume](c.Registry(), "dut", construct.RoleImplantsLog)
	require.True(t, ok)
	assert.Equal(t, "aluminum", implants.Material)
	assert.Equal(t,
		translation(t, placementNamed(t, b, "sensor_dut_phys")),
		translation(t, placementNamed(t, b, "implants_dut_phys")))
}

func TestBuildWrapperAndPartPositions(t *testing.T) {
	cfg := baseConfig()
	cfg.ChipThickness = 0.25
	d := newDetector(t, "dut", cfg, detector.Options{
		Position: r3.Vec{X: 1, Y: 2, Z: 3},
		Angles:   r3.Vec{Z: math.Pi / 2},
		Mode:     geometry.OrientationXYZ,
	})

	b := memory.New()
	c := newConstructor(b)
	require.NoError(t, c.Build(d))

	wrapper := placementNamed(t, b, "wrapper_dut_phys")
	assert.Equal(t, memory.WorldName, wrapper.Parent)
	assertVec(t, r3.Vec{X: 1, Y: 2, Z: 3.125}, translation(t, wrapper))
	assertVec(t, d.WrapperPosition(), translation(t, wrapper))
	require.NotNil(t, wrapper.At.Rotation)
	assert.Equal(t, d.Orientation().Components(), *wrapper.At.Rotation)

	rot, ok := construct.Lookup[geometry.Rotation](c.Registry(), "dut", construct.RoleRotationMatrix)
	require.True(t, ok)
	assert.Equal(t, d.Orientation(), rot)

	// envelope z spans [-0.25, 0.5], so the geometric centre is at z 0.125
	assertVec(t, r3.Vec{Z: -0.125}, translation(t, placementNamed(t, b, "sensor_dut_phys")))
	assertVec(t, r3.Vec{Z: 0.25}, translation(t, placementNamed(t, b, "chip_dut_phys")))
	assert.Equal(t, "wrapper_dut_log", placementNamed(t, b, "chip_dut_phys").Parent)

	box := solidNamed(t, c, b, "dut", "wrapper_dut_box")
	size := d.Model().Size()
	assert.Equal(t, [3]float64{size.X / 2, size.Y / 2, size.Z / 2}, *box.Half)
}

func TestBuildSupportHole(t *testing.T) {
	cfg := baseConfig()
	cfg.Supports = []modelcfg.SupportConfig{{
		Size:       r2.Vec{X: 4, Y: 4},
		Thickness:  0.2,
		Location:   modelcfg.LocationSensor,
		HoleSize:   r2.Vec{X: 1, Y: 2},
		HoleOffset: r2.Vec{X: 0.5, Y: -0.5},
	}}
	d := newDetector(t, "dut", cfg, detector.Options{})

	b := memory.New()
	c := newConstructor(b)
	require.NoError(t, c.Build(d))

	hole := solidNamed(t, c, b, "dut", "support_dut_hole_0")
	assert.Equal(t, [3]float64{0.5, 1, 0.2}, *hole.Half)

	holed := solidNamed(t, c, b, "dut", "support_dut_holed_0")
	require.Equal(t, memory.ShapeSubtraction, holed.Shape)
	assert.Equal(t, [3]float64{0.5, -0.5, 0}, holed.At.Translation)

	vols, ok := construct.Lookup[[]construct.Volume](c.Registry(), "dut", construct.RoleSupportsLog)
	require.True(t, ok)
	require.Len(t, vols, 1)
	v := vols[0].(*memory.Volume)
	assert.Equal(t, holed.Handle, v.Solid)
	assert.Equal(t, "g10", v.Material)

	layer := d.Model().SupportLayers()[0]
	assertVec(t, r3.Sub(layer.Center, d.Model().GeometricalCenter()), translation(t, placementNamed(t, b, "support_dut_phys_0")))
}

func TestBuildHybridBumps(t *testing.T) {
	cfg := baseConfig()
	cfg.Kind = modelcfg.KindHybrid
	cfg.ChipThickness = 1
	cfg.Hybrid = &modelcfg.HybridConfig{BumpHeight: 0.125, BumpCylinderRadius: 0.1, BumpSphereRadius: 0.2, BumpOffset: r2.Vec{X: 0.25}}
	d := newDetector(t, "hyb", cfg, detector.Options{})

	b := memory.New()
	c := newConstructor(b)
	require.NoError(t, c.Build(d))

	replicas := placementNamed(t, b, "bumps_hyb_param_phys")
	assert.Equal(t, uint(4), replicas.Replicas)
	assert.Equal(t, "bumps_hyb_wrapper_log", replicas.Parent)

	param, ok := construct.Lookup[*memory.Param](c.Registry(), "hyb", construct.RoleBumpsParam)
	require.True(t, ok)
	assert.InDelta(t, -1.0, param.Grid.OffsetX, tol)
	assert.InDelta(t, -1.0, param.Grid.OffsetY, tol)

	cell, ok := construct.Lookup[*memory.Volume](c.Registry(), "hyb", construct.RoleBumpsCellLog)
	require.True(t, ok)
	assert.Equal(t, "solder", cell.Material)
	unit, _ := b.Solid(construct.SolidHandle(cell.Solid))
	assert.Equal(t, memory.ShapeUnion, unit.Shape)
	sphere, _ := b.Solid(construct.SolidHandle(unit.Operands[0]))
	assert.Equal(t, 0.2, sphere.Radius)
	tube, _ := b.Solid(construct.SolidHandle(unit.Operands[1]))
	assert.Equal(t, 0.0625, tube.HalfZ)

	center, _ := d.Model().BumpsCenter()
	wrapper := placementNamed(t, b, "bumps_hyb_wrapper_phys")
	assertVec(t, r3.Sub(center, d.Model().GeometricalCenter()), translation(t, wrapper))

	// every bump sits over its pixel shifted by the bump offset exactly once
	geo := d.Model().GeometricalCenter()
	for i := uint(0); i < param.Grid.Count(); i++ {
		col, row := param.Grid.Cell(i)
		pixel := r3.Vec{X: float64(col) + 0.25, Y: float64(row), Z: center.Z}
		got := r3.Add(translation(t, wrapper), param.Grid.Position(i))
		assertVec(t, r3.Sub(pixel, geo), got)
	}
	mat, ok := construct.Lookup[*memory.Volume](c.Registry(), "hyb", construct.RoleBumpsWrapperLog)
	require.True(t, ok)
	assert.Equal(t, "air", mat.Material)
}

func TestBuildHybridWithoutSphere(t *testing.T) {
	cfg := baseConfig()
	cfg.Kind = modelcfg.KindHybrid
	cfg.Hybrid = &modelcfg.HybridConfig{BumpHeight: 0.1, BumpCylinderRadius: 0.1}

	b := memory.New()
	c := newConstructor(b)
	require.NoError(t, c.Build(newDetector(t, "hyb", cfg, detector.Options{})))

	cell, ok := construct.Lookup[*memory.Volume](c.Registry(), "hyb", construct.RoleBumpsCellLog)
	require.True(t, ok)
	unit, _ := b.Solid(construct.SolidHandle(cell.Solid))
	assert.Equal(t, memory.ShapeCylinder, unit.Shape)
}

func TestBuildMissingMaterialRollsBack(t *testing.T) {
	b := memory.New()
	reg := prometheus.NewRegistry()
	m := metrics.NewWith(reg)
	c := newConstructor(b, construct.WithMetrics(m))

	require.NoError(t, c.Build(newDetector(t, "good", baseConfig(), detector.Options{})))
	solids, volumes, placements := b.Counts()
	arenaLen := c.Arena().Len()

	cfg := baseConfig()
	cfg.Supports = []modelcfg.SupportConfig{{Size: r2.Vec{X: 1, Y: 1}, Thickness: 0.1, Material: "unobtainium"}}
	err := c.Build(newDetector(t, "bad", cfg, detector.Options{}))
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConstruction))
	e, ok := perr.As(err)
	require.True(t, ok)
	assert.Equal(t, "bad", e.Op())
	assert.Equal(t, "material", e.Field())
	assert.Contains(t, err.Error(), "unobtainium")

	assert.Equal(t, arenaLen, c.Arena().Len())
	assert.Empty(t, c.Arena().Owned("bad"))
	assert.False(t, c.Registry().Has("bad"))
	assert.True(t, c.Registry().Has("good"))
	s2, v2, p2 := b.Counts()
	assert.Equal(t, []int{solids, volumes, placements}, []int{s2, v2, p2})
	assert.Equal(t, []string{"good"}, c.Built())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DetectorsBuilt.WithLabelValues("monolithic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DetectorsFailed.WithLabelValues("construction")))
}

// plainBackend hides the checkpoint support of the wrapped backend
type plainBackend struct{ construct.Backend }

func TestBuildAfterFailureWithoutCheckpoints(t *testing.T) {
	b := memory.New()
	c := newConstructor(plainBackend{b})

	cfg := baseConfig()
	cfg.Supports = []modelcfg.SupportConfig{{Size: r2.Vec{X: 1, Y: 1}, Thickness: 0.1, Material: "unobtainium"}}
	err := c.Build(newDetector(t, "bad", cfg, detector.Options{}))
	require.True(t, perr.IsCode(err, perr.ErrorCodeConstruction))
	assert.Zero(t, c.Arena().Len())
	leaked, _, _ := b.Counts()
	require.NotZero(t, leaked)

	require.NoError(t, c.Build(newDetector(t, "good", baseConfig(), detector.Options{})))
	for _, s := range c.Arena().Owned("good") {
		rec, ok := b.Solid(s.Handle)
		require.True(t, ok)
		assert.Equal(t, s.Name, rec.Name)
	}
	assert.Equal(t, []string{"good"}, c.Built())
}

func TestBuildMissingWorld(t *testing.T) {
	c := newConstructor(memory.New(memory.WithoutWorld()))
	err := c.Build(newDetector(t, "dut", baseConfig(), detector.Options{}))
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConstruction))
	assert.Contains(t, err.Error(), "world volume")
	assert.Zero(t, c.Arena().Len())
}

func TestBuildCustomMaterials(t *testing.T) {
	b := memory.New()
	c := newConstructor(b, construct.WithSensorMaterial("Germanium"), construct.WithWorldMaterial("vacuum"))
	require.NoError(t, c.Build(newDetector(t, "dut", baseConfig(), detector.Options{})))

	sensor, _ := construct.Lookup[*memory.Volume](c.Registry(), "dut", construct.RoleSensorLog)
	assert.Equal(t, "germanium", sensor.Material)
	wrapper, _ := construct.Lookup[*memory.Volume](c.Registry(), "dut", construct.RoleWrapperLog)
	assert.Equal(t, "vacuum", wrapper.Material)
}

func TestBuildDuplicateName(t *testing.T) {
	c := newConstructor(memory.New())
	d := newDetector(t, "dut", baseConfig(), detector.Options{})
	require.NoError(t, c.Build(d))
	err := c.Build(d)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConflict))

	assert.True(t, perr.IsCode(c.Build(nil), perr.ErrorCodeInvalidArgument))
}

func TestBuildAllStopsAtFirstFailure(t *testing.T) {
	bad := baseConfig()
	bad.Supports = []modelcfg.SupportConfig{{Size: r2.Vec{X: 1, Y: 1}, Thickness: 0.1, Material: "nope"}}

	c := newConstructor(memory.New())
	err := c.BuildAll([]*detector.Detector{
		newDetector(t, "a", baseConfig(), detector.Options{}),
		newDetector(t, "b", bad, detector.Options{}),
		newDetector(t, "c", baseConfig(), detector.Options{}),
	})
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, c.Built())
	assert.Equal(t, []string{"a"}, c.Registry().Detectors())
}

func TestSharedModelAcrossDetectors(t *testing.T) {
	m, err := model.New(baseConfig())
	require.NoError(t, err)
	d0, _ := detector.New("d0", m, detector.Options{})
	d1, _ := detector.New("d1", m, detector.Options{Position: r3.Vec{Z: 10}})

	b := memory.New()
	c := newConstructor(b)
	require.NoError(t, c.BuildAll([]*detector.Detector{d0, d1}))
	assert.Equal(t, len(c.Arena().Owned("d0")), len(c.Arena().Owned("d1")))
	assert.InDelta(t, 10.0, translation(t, placementNamed(t, b, "wrapper_d1_phys")).Z-translation(t, placementNamed(t, b, "wrapper_d0_phys")).Z, tol)
}
