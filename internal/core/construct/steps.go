package construct

import (
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/core/geometry"
)

func (s *session) buildWrapper() error {
	world, err := s.c.backend.LookupWorldVolume()
	if err != nil {
		return s.fail(err, "world volume unavailable")
	}
	air, err := s.material(s.c.cfg.worldMaterial)
	if err != nil {
		return err
	}

	size := s.m.Size()
	solid, err := s.box(s.partName("wrapper", "box"), size)
	if err != nil {
		return err
	}
	vol, err := s.volume(s.partName("wrapper", "log"), solid, air)
	if err != nil {
		return err
	}

	rot := s.d.Orientation()
	pos := s.d.WrapperPosition()
	phys, err := s.c.backend.Place(s.partName("wrapper", "phys"), vol, geometry.Rigid(rot, pos), world)
	if err != nil {
		return s.fail(err, "wrapper placement")
	}

	s.wrapper = vol
	s.record(RoleWrapperLog, vol)
	s.record(RoleWrapperPhys, phys)
	s.record(RoleRotationMatrix, rot)
	s.log.Debug().
		Floats64("size", vec(size)).
		Floats64("position", vec(pos)).
		Floats64("geometrical_center", vec(s.geo)).
		Msg("wrapper")
	return nil
}

func (s *session) buildSensor() error {
	silicon, err := s.material(s.c.cfg.sensorMaterial)
	if err != nil {
		return err
	}

	sensorSize := s.m.SensorSize()
	solid, err := s.box(s.partName("sensor", "box"), sensorSize)
	if err != nil {
		return err
	}

	sensorPos := s.local(s.m.SensorCenter())
	implants := s.m.ImplantSize()
	var union SolidHandle
	excised := implants.Z > geometry.Epsilon
	if excised {
		union, err = s.implantUnion()
		if err != nil {
			return err
		}
		name := s.partName("sensor", "excised")
		h := s.c.arena.alloc(s.name, name, SolidSubtraction, solid, union)
		if err := s.c.backend.Subtract(h, name, solid, union, geometry.Transform{Rotation: geometry.Identity()}); err != nil {
			return s.fail(err, "implant excision")
		}
		solid = h
	}

	vol, err := s.volume(s.partName("sensor", "log"), solid, silicon)
	if err != nil {
		return err
	}
	phys, err := s.place(s.partName("sensor", "phys"), vol, sensorPos, s.wrapper)
	if err != nil {
		return err
	}
	s.sensor = vol
	s.record(RoleSensorLog, vol)
	s.record(RoleSensorPhys, phys)
	s.log.Debug().Floats64("size", vec(sensorSize)).Floats64("position", vec(sensorPos)).Msg("sensor")

	if !excised {
		return nil
	}
	implantMat, err := s.material(s.m.ImplantMaterial().String())
	if err != nil {
		return err
	}
	ivol, err := s.volume(s.partName("implants", "log"), union, implantMat)
	if err != nil {
		return err
	}
	iphys, err := s.place(s.partName("implants", "phys"), ivol, sensorPos, s.wrapper)
	if err != nil {
		return err
	}
	s.record(RoleImplantsLog, ivol)
	s.record(RoleImplantsPhys, iphys)
	return nil
}

// implantUnion builds one implant box reused by a multi-union node per pixel,
// positioned in the sensor frame
func (s *session) implantUnion() (SolidHandle, error) {
	implant, err := s.box(s.partName("implant", "box"), s.m.ImplantSize())
	if err != nil {
		return 0, err
	}

	grid := s.m.GridSize()
	pitch := s.m.PixelSize()
	off := s.m.ImplantOffset()
	shift := r3.Sub(s.m.Center(), s.m.SensorCenter())
	nx, ny := s.m.NPixels()
	spec := GridSpec{
		NX:      nx,
		NY:      ny,
		PitchX:  pitch.X,
		PitchY:  pitch.Y,
		OffsetX: -grid.X/2 + off.X + shift.X,
		OffsetY: -grid.Y/2 + off.Y + shift.Y,
		OffsetZ: (s.m.SensorThickness() - s.m.ImplantSize().Z) / 2,
	}

	nodes := make([]UnionNode, 0, spec.Count())
	for i := range spec.Count() {
		nodes = append(nodes, UnionNode{Solid: implant, At: geometry.Translate(spec.Position(i))})
	}
	name := s.partName("implants", "union")
	h := s.c.arena.alloc(s.name, name, SolidMultiUnion, implant)
	if err := s.c.backend.MultiUnion(h, name, nodes); err != nil {
		return h, s.fail(err, "implant union")
	}
	s.log.Trace().Int("nodes", len(nodes)).Msg("implant union")
	return h, nil
}

// buildPixels registers the pixel template and its grid. The pixel is not
// placed; consumers use the parameterization to locate cells
func (s *session) buildPixels() error {
	silicon, err := s.material(s.c.cfg.sensorMaterial)
	if err != nil {
		return err
	}
	pitch := s.m.PixelSize()
	solid, err := s.box(s.partName("pixel", "box"), r3.Vec{X: pitch.X, Y: pitch.Y, Z: s.m.SensorThickness()})
	if err != nil {
		return err
	}
	vol, err := s.volume(s.partName("pixel", "log"), solid, silicon)
	if err != nil {
		return err
	}

	grid := s.m.GridSize()
	nx, ny := s.m.NPixels()
	param, err := s.c.backend.RegisterParameterization(s.partName("pixel", "param"), GridSpec{
		NX:      nx,
		NY:      ny,
		PitchX:  pitch.X,
		PitchY:  pitch.Y,
		OffsetX: -grid.X / 2,
		OffsetY: -grid.Y / 2,
	})
	if err != nil {
		return s.fail(err, "pixel parameterization")
	}
	s.record(RolePixelLog, vol)
	s.record(RolePixelParam, param)
	return nil
}

func (s *session) buildChip() error {
	if !s.m.HasChip() {
		s.log.Trace().Msg("no chip")
		return nil
	}
	mat, err := s.material(s.c.cfg.chipMaterial)
	if err != nil {
		return err
	}
	size := s.m.ChipSize()
	solid, err := s.box(s.partName("chip", "box"), size)
	if err != nil {
		return err
	}
	vol, err := s.volume(s.partName("chip", "log"), solid, mat)
	if err != nil {
		return err
	}
	pos := s.local(s.m.ChipCenter())
	phys, err := s.place(s.partName("chip", "phys"), vol, pos, s.wrapper)
	if err != nil {
		return err
	}
	s.record(RoleChipLog, vol)
	s.record(RoleChipPhys, phys)
	s.log.Debug().Floats64("size", vec(size)).Floats64("position", vec(pos)).Msg("chip")
	return nil
}

func (s *session) buildSupports() error {
	layers := s.m.SupportLayers()
	vols := make([]Volume, 0, len(layers))
	physs := make([]Placement, 0, len(layers))
	for _, l := range layers {
		idx := strconv.Itoa(l.Index)
		solid, err := s.box(s.partName("support", "box_"+idx), l.Size)
		if err != nil {
			return err
		}
		if l.HasHole() {
			hole := l.HoleBox()
			hole.Z *= 2
			hh, err := s.box(s.partName("support", "hole_"+idx), hole)
			if err != nil {
				return err
			}
			name := s.partName("support", "holed_"+idx)
			h := s.c.arena.alloc(s.name, name, SolidSubtraction, solid, hh)
			at := geometry.Translate(r3.Sub(l.HoleCenter(), l.Center))
			if err := s.c.backend.Subtract(h, name, solid, hh, at); err != nil {
				return s.fail(err, "support hole #"+idx)
			}
			solid = h
		}

		mat, err := s.material(l.Material.String())
		if err != nil {
			return err
		}
		vol, err := s.volume(s.partName("support", "log_"+idx), solid, mat)
		if err != nil {
			return err
		}
		pos := s.local(l.Center)
		phys, err := s.place(s.partName("support", "phys_"+idx), vol, pos, s.wrapper)
		if err != nil {
			return err
		}
		vols = append(vols, vol)
		physs = append(physs, phys)
		s.log.Debug().
			Int("index", l.Index).
			Str("location", l.Location.String()).
			Floats64("size", vec(l.Size)).
			Floats64("position", vec(pos)).
			Msg("support")
	}
	if len(layers) > 0 {
		s.record(RoleSupportsLog, vols)
		s.record(RoleSupportsPhys, physs)
	}
	return nil
}

func vec(v r3.Vec) []float64 { return []float64{v.X, v.Y, v.Z} }
