package construct

import "pixgeo/internal/core/geometry"

// buildBumps emits the bump layer of a hybrid model: a world-material wrapper
// between sensor and chip holding one sphere-and-cylinder bump per pixel
func (s *session) buildBumps() error {
	h, ok := s.m.Hybrid()
	if !ok {
		return nil
	}
	center, _ := s.m.BumpsCenter()
	size, _ := s.m.BumpsSize()

	air, err := s.material(s.c.cfg.worldMaterial)
	if err != nil {
		return err
	}
	solder, err := s.material(s.c.cfg.bumpMaterial)
	if err != nil {
		return err
	}

	wsolid, err := s.box(s.partName("bumps", "wrapper_box"), size)
	if err != nil {
		return err
	}
	wvol, err := s.volume(s.partName("bumps", "wrapper_log"), wsolid, air)
	if err != nil {
		return err
	}
	wpos := s.local(center)
	wphys, err := s.place(s.partName("bumps", "wrapper_phys"), wvol, wpos, s.wrapper)
	if err != nil {
		return err
	}

	unit, err := s.bumpSolid(h.BumpSphereRadius, h.BumpCylinderRadius, h.BumpHeight/2)
	if err != nil {
		return err
	}
	cell, err := s.volume(s.partName("bumps", "cell_log"), unit, solder)
	if err != nil {
		return err
	}

	// the wrapper already carries the bump offset, cells tile it from its corner
	grid := s.m.GridSize()
	pitch := s.m.PixelSize()
	nx, ny := s.m.NPixels()
	spec := GridSpec{
		NX:      nx,
		NY:      ny,
		PitchX:  pitch.X,
		PitchY:  pitch.Y,
		OffsetX: -grid.X / 2,
		OffsetY: -grid.Y / 2,
	}
	param, err := s.c.backend.RegisterParameterization(s.partName("bumps", "param"), spec)
	if err != nil {
		return s.fail(err, "bump parameterization")
	}
	replicas, err := s.c.backend.PlaceReplicas(s.partName("bumps", "param_phys"), cell, wvol, param)
	if err != nil {
		return s.fail(err, "bump replicas")
	}

	s.record(RoleBumpsWrapperLog, wvol)
	s.record(RoleBumpsWrapperPhys, wphys)
	s.record(RoleBumpsCellLog, cell)
	s.record(RoleBumpsParam, param)
	s.record(RoleBumpsParamPhys, replicas)
	s.log.Debug().
		Floats64("size", vec(size)).
		Floats64("position", vec(wpos)).
		Uint("bumps", spec.Count()).
		Msg("bumps")
	return nil
}

// bumpSolid is a sphere joined with a cylinder along z. A sphere radius below
// tolerance leaves the bare cylinder
func (s *session) bumpSolid(sphereR, cylR, halfZ float64) (SolidHandle, error) {
	cylName := s.partName("bump", "tube")
	cyl := s.c.arena.alloc(s.name, cylName, SolidCylinder)
	if err := s.c.backend.CreateCylinder(cyl, cylName, cylR, halfZ); err != nil {
		return cyl, s.fail(err, "bump cylinder")
	}
	if sphereR <= geometry.Epsilon {
		return cyl, nil
	}

	sphName := s.partName("bump", "sphere")
	sph := s.c.arena.alloc(s.name, sphName, SolidSphere)
	if err := s.c.backend.CreateSphere(sph, sphName, sphereR); err != nil {
		return sph, s.fail(err, "bump sphere")
	}
	name := s.partName("bump", "solid")
	u := s.c.arena.alloc(s.name, name, SolidUnion, sph, cyl)
	if err := s.c.backend.Union(u, name, sph, cyl, geometry.Transform{Rotation: geometry.Identity()}); err != nil {
		return u, s.fail(err, "bump union")
	}
	return u, nil
}
