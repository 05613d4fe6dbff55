// Package construct turns placed detectors into a solid/volume/placement graph
// on an abstract Backend. Solids live in an Arena owned by the Constructor and
// every emitted object is recorded in a Registry by detector and role
package construct

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/core/detector"
	"pixgeo/internal/core/geometry"
	"pixgeo/internal/core/model"
	perr "pixgeo/internal/platform/errors"
	"pixgeo/internal/platform/logger"
)

// Checkpointer is implemented by backends able to discard everything emitted
// after a checkpoint. The constructor uses it to roll back a failed detector
type Checkpointer interface {
	Checkpoint() int
	Restore(mark int)
}

// Constructor emits detectors to a backend. It is not safe for concurrent use;
// construction is sequential by nature since every detector lands in one world
type Constructor struct {
	backend Backend
	arena   *Arena
	reg     *Registry
	cfg     buildCfg
	order   []string
}

// New returns a constructor bound to backend
func New(backend Backend, opts ...Option) *Constructor {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Named("construct")
	}
	return &Constructor{
		backend: backend,
		arena:   NewArena(),
		reg:     NewRegistry(),
		cfg:     cfg,
	}
}

// Arena exposes the solids created so far
func (c *Constructor) Arena() *Arena { return c.arena }

// Registry exposes the recorded objects
func (c *Constructor) Registry() *Registry { return c.reg }

// Built lists successfully built detectors in build order
func (c *Constructor) Built() []string { return append([]string(nil), c.order...) }

// Build emits one detector. On failure nothing of the detector remains in the
// arena or registry, and the backend is restored when it supports checkpoints
func (c *Constructor) Build(d *detector.Detector) error {
	if d == nil {
		return perr.InvalidArgf("nil detector")
	}
	name := d.Name()
	if c.reg.Has(name) {
		return perr.WithOp(perr.Conflictf("detector %q already built", name), name)
	}

	start := time.Now()
	mark := c.arena.mark()
	cp, canRestore := c.backend.(Checkpointer)
	backendMark := 0
	if canRestore {
		backendMark = cp.Checkpoint()
	}

	s := &session{
		c:    c,
		d:    d,
		m:    d.Model(),
		name: name,
		log:  logger.ForDetector(c.cfg.log, name),
		geo:  d.Model().GeometricalCenter(),
	}
	if err := s.run(); err != nil {
		c.arena.truncate(mark)
		c.reg.Drop(name)
		if canRestore {
			cp.Restore(backendMark)
		}
		c.cfg.metrics.IncrementFailed(perr.CodeOf(err).String())
		s.log.Error().Err(err).Msg("detector construction failed, rolled back")
		return err
	}

	for _, sol := range c.arena.Owned(name) {
		c.cfg.metrics.AddSolid(sol.Kind.String())
	}
	c.cfg.metrics.IncrementBuilt(s.m.Kind().String())
	c.cfg.metrics.ObserveBuild(time.Since(start))
	c.order = append(c.order, name)
	s.log.Info().
		Str("model", s.m.Type()).
		Int("solids", c.arena.Len()-mark).
		Dur("took", time.Since(start)).
		Msg("detector built")
	return nil
}

// BuildAll builds in order and stops at the first failure
func (c *Constructor) BuildAll(ds []*detector.Detector) error {
	for _, d := range ds {
		if err := c.Build(d); err != nil {
			return err
		}
	}
	return nil
}

// session is the state of one detector build
type session struct {
	c    *Constructor
	d    *detector.Detector
	m    *model.Model
	name string
	log  *logger.Logger
	geo  r3.Vec

	wrapper Volume
	sensor  Volume
}

func (s *session) run() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"wrapper", s.buildWrapper},
		{"sensor", s.buildSensor},
		{"pixels", s.buildPixels},
		{"chip", s.buildChip},
		{"supports", s.buildSupports},
	}
	if _, ok := s.m.Hybrid(); ok {
		steps = append(steps, struct {
			name string
			fn   func() error
		}{"bumps", s.buildBumps})
	}
	for _, st := range steps {
		if err := st.fn(); err != nil {
			return err
		}
		s.log.Trace().Str("step", st.name).Msg("step done")
	}
	return nil
}

// fail wraps a backend failure into a construction error for this detector
func (s *session) fail(err error, what string) error {
	e := perr.Wrapf(err, perr.ErrorCodeConstruction, "detector %q: %s", s.name, what)
	return perr.WithOp(e, s.name)
}

// local is a position relative to the wrapper's geometric centre
func (s *session) local(p r3.Vec) r3.Vec { return r3.Sub(p, s.geo) }

func (s *session) partName(part, suffix string) string {
	return part + "_" + s.name + "_" + suffix
}

func (s *session) material(name string) (Material, error) {
	mat, err := s.c.backend.LookupMaterial(name)
	if err != nil {
		return nil, perr.WithField(s.fail(err, "material \""+name+"\" unavailable"), "material")
	}
	return mat, nil
}

func (s *session) box(name string, size r3.Vec) (SolidHandle, error) {
	h := s.c.arena.alloc(s.name, name, SolidBox)
	if err := s.c.backend.CreateBox(h, name, r3.Scale(0.5, size)); err != nil {
		return h, s.fail(err, "box "+name)
	}
	return h, nil
}

func (s *session) volume(name string, solid SolidHandle, mat Material) (Volume, error) {
	v, err := s.c.backend.CreateVolume(name, solid, mat)
	if err != nil {
		return nil, s.fail(err, "volume "+name)
	}
	return v, nil
}

func (s *session) place(name string, v Volume, at r3.Vec, parent Volume) (Placement, error) {
	p, err := s.c.backend.Place(name, v, geometry.Translate(at), parent)
	if err != nil {
		return nil, s.fail(err, "placement "+name)
	}
	return p, nil
}

func (s *session) record(role Role, v any) { s.c.reg.Set(s.name, role, v) }
