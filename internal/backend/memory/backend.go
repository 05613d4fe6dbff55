// Package memory is an in-process construct.Backend. It records the emitted
// solid/volume/placement graph so it can be inspected, serialised to a JSON
// manifest and persisted to the catalog
package memory

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"pixgeo/internal/core/construct"
	"pixgeo/internal/core/geometry"
	perr "pixgeo/internal/platform/errors"
)

// Shape labels of recorded solids
const (
	ShapeBox         = "box"
	ShapeSphere      = "sphere"
	ShapeCylinder    = "cylinder"
	ShapeUnion       = "union"
	ShapeMultiUnion  = "multi_union"
	ShapeSubtraction = "subtraction"
)

// WorldName names the world volume and its placement
const WorldName = "world"

// Solid is a recorded solid. Only the fields relevant to Shape are set
type Solid struct {
	Handle   int         `json:"handle"`
	Name     string      `json:"name"`
	Shape    string      `json:"shape"`
	Half     *[3]float64 `json:"half,omitempty"`
	Radius   float64     `json:"radius,omitempty"`
	HalfZ    float64     `json:"half_z,omitempty"`
	Operands []int       `json:"operands,omitempty"`
	At       *Transform  `json:"at,omitempty"`
	Nodes    []Node      `json:"nodes,omitempty"`
}

// Node is one member of a multi-union
type Node struct {
	Solid int       `json:"solid"`
	At    Transform `json:"at"`
}

// Transform is the serialisable form of geometry.Transform. Rotation is
// row-major and omitted when it is the identity
type Transform struct {
	Rotation    *[9]float64 `json:"rotation,omitempty"`
	Translation [3]float64  `json:"translation"`
}

func toTransform(t geometry.Transform) Transform {
	out := Transform{Translation: [3]float64{t.Translation.X, t.Translation.Y, t.Translation.Z}}
	if !t.Rotation.IsIdentity() {
		m := t.Rotation.Components()
		out.Rotation = &m
	}
	return out
}

// Volume is a solid filled with a material
type Volume struct {
	Name     string `json:"name"`
	Solid    int    `json:"solid"`
	Material string `json:"material"`
}

// VolumeName implements construct.Volume
func (v *Volume) VolumeName() string { return v.Name }

// Placement is a positioned volume. Replica placements carry the
// parameterization name and copy count instead of a transform
type Placement struct {
	Name     string     `json:"name"`
	Volume   string     `json:"volume"`
	Parent   string     `json:"parent,omitempty"`
	At       *Transform `json:"at,omitempty"`
	Param    string     `json:"param,omitempty"`
	Replicas uint       `json:"replicas,omitempty"`
}

// PlacementName implements construct.Placement
func (p *Placement) PlacementName() string { return p.Name }

// Param is a registered grid parameterization
type Param struct {
	Name string             `json:"name"`
	Grid construct.GridSpec `json:"grid"`
}

// ParamName implements construct.Param
func (p *Param) ParamName() string { return p.Name }

type mark struct{ solids, volumes, placements, params int }

// Backend records everything in memory. It is safe for concurrent readers
// while a single constructor writes
type Backend struct {
	mu sync.RWMutex

	materials map[string]*Material
	world     *Volume

	solids     []Solid
	byHandle   map[construct.SolidHandle]int
	volumes    []*Volume
	volByName  map[string]*Volume
	placements []*Placement
	placeNames map[string]struct{}
	params     []*Param
	marks      []mark
}

// Option configures the backend
type Option func(*Backend)

// WithMaterial adds or overrides a table material
func WithMaterial(name string, density float64, state string) Option {
	return func(b *Backend) {
		k := materialKey(name)
		b.materials[k] = &Material{Name: k, Density: density, State: state}
	}
}

// WithWorldMaterial sets the material filling the world volume
func WithWorldMaterial(name string) Option {
	return func(b *Backend) {
		if b.world != nil {
			b.world.Material = materialKey(name)
		}
	}
}

// WithoutWorld creates a backend with no world volume
func WithoutWorld() Option {
	return func(b *Backend) { b.world = nil }
}

// New returns a backend with the builtin material table and a world volume
func New(opts ...Option) *Backend {
	b := &Backend{
		materials:  make(map[string]*Material, len(builtinMaterials)),
		byHandle:   map[construct.SolidHandle]int{},
		volByName:  map[string]*Volume{},
		placeNames: map[string]struct{}{},
		world:      &Volume{Name: WorldName, Solid: -1, Material: "air"},
	}
	for _, m := range builtinMaterials {
		b.materials[m.Name] = &m
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Materials returns the material table keys
func (b *Backend) Materials() []*Material {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Material, 0, len(b.materials))
	for _, m := range b.materials {
		out = append(out, m)
	}
	return out
}

// Solids

func (b *Backend) addSolid(h construct.SolidHandle, s Solid, operands ...construct.SolidHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.byHandle[h]; dup {
		return perr.Conflictf("solid handle %d already defined", h)
	}
	for _, op := range operands {
		if _, ok := b.byHandle[op]; !ok {
			return perr.NotFoundf("solid %q: operand %d undefined", s.Name, op)
		}
	}
	s.Handle = int(h)
	b.byHandle[h] = len(b.solids)
	b.solids = append(b.solids, s)
	return nil
}

// CreateBox implements construct.Backend
func (b *Backend) CreateBox(h construct.SolidHandle, name string, half r3.Vec) error {
	if half.X <= 0 || half.Y <= 0 || half.Z <= 0 {
		return perr.InvalidValuef("box %q: non-positive half size %v", name, half)
	}
	return b.addSolid(h, Solid{Name: name, Shape: ShapeBox, Half: &[3]float64{half.X, half.Y, half.Z}})
}

// CreateSphere implements construct.Backend
func (b *Backend) CreateSphere(h construct.SolidHandle, name string, radius float64) error {
	if radius <= 0 {
		return perr.InvalidValuef("sphere %q: non-positive radius %g", name, radius)
	}
	return b.addSolid(h, Solid{Name: name, Shape: ShapeSphere, Radius: radius})
}

// CreateCylinder implements construct.Backend
func (b *Backend) CreateCylinder(h construct.SolidHandle, name string, radius, halfZ float64) error {
	if radius <= 0 || halfZ <= 0 {
		return perr.InvalidValuef("cylinder %q: non-positive radius %g or half length %g", name, radius, halfZ)
	}
	return b.addSolid(h, Solid{Name: name, Shape: ShapeCylinder, Radius: radius, HalfZ: halfZ})
}

// Union implements construct.Backend
func (b *Backend) Union(h construct.SolidHandle, name string, x, y construct.SolidHandle, at geometry.Transform) error {
	t := toTransform(at)
	return b.addSolid(h, Solid{Name: name, Shape: ShapeUnion, Operands: []int{int(x), int(y)}, At: &t}, x, y)
}

// MultiUnion implements construct.Backend
func (b *Backend) MultiUnion(h construct.SolidHandle, name string, nodes []construct.UnionNode) error {
	if len(nodes) == 0 {
		return perr.InvalidValuef("multi union %q: no nodes", name)
	}
	ops := make([]construct.SolidHandle, 0, len(nodes))
	recs := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		ops = append(ops, n.Solid)
		recs = append(recs, Node{Solid: int(n.Solid), At: toTransform(n.At)})
	}
	return b.addSolid(h, Solid{Name: name, Shape: ShapeMultiUnion, Nodes: recs}, ops...)
}

// Subtract implements construct.Backend
func (b *Backend) Subtract(h construct.SolidHandle, name string, x, y construct.SolidHandle, at geometry.Transform) error {
	t := toTransform(at)
	return b.addSolid(h, Solid{Name: name, Shape: ShapeSubtraction, Operands: []int{int(x), int(y)}, At: &t}, x, y)
}

// Lookups

// LookupMaterial implements construct.Backend
func (b *Backend) LookupMaterial(name string) (construct.Material, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.materials[materialKey(name)]
	if !ok {
		return nil, perr.WithField(perr.NotFoundf("material %q not in table", name), "material")
	}
	return m, nil
}

// LookupWorldVolume implements construct.Backend
func (b *Backend) LookupWorldVolume() (construct.Volume, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.world == nil {
		return nil, perr.NotFoundf("world volume not defined")
	}
	return b.world, nil
}

// Volumes and placements

// CreateVolume implements construct.Backend
func (b *Backend) CreateVolume(name string, solid construct.SolidHandle, mat construct.Material) (construct.Volume, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byHandle[solid]; !ok {
		return nil, perr.NotFoundf("volume %q: solid %d undefined", name, solid)
	}
	if _, dup := b.volByName[name]; dup || name == WorldName {
		return nil, perr.Conflictf("volume %q already defined", name)
	}
	v := &Volume{Name: name, Solid: int(solid), Material: mat.MaterialName()}
	b.volumes = append(b.volumes, v)
	b.volByName[name] = v
	return v, nil
}

func (b *Backend) addPlacement(p *Placement) error {
	if _, dup := b.placeNames[p.Name]; dup {
		return perr.Conflictf("placement %q already defined", p.Name)
	}
	b.placeNames[p.Name] = struct{}{}
	b.placements = append(b.placements, p)
	return nil
}

// Place implements construct.Backend
func (b *Backend) Place(name string, v construct.Volume, at geometry.Transform, parent construct.Volume) (construct.Placement, error) {
	if v == nil || parent == nil {
		return nil, perr.InvalidArgf("placement %q: volume and parent are required", name)
	}
	t := toTransform(at)
	p := &Placement{Name: name, Volume: v.VolumeName(), Parent: parent.VolumeName(), At: &t}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.addPlacement(p); err != nil {
		return nil, err
	}
	return p, nil
}

// RegisterParameterization implements construct.Backend
func (b *Backend) RegisterParameterization(name string, grid construct.GridSpec) (construct.Param, error) {
	if grid.Count() == 0 {
		return nil, perr.InvalidValuef("parameterization %q: empty grid", name)
	}
	p := &Param{Name: name, Grid: grid}
	b.mu.Lock()
	b.params = append(b.params, p)
	b.mu.Unlock()
	return p, nil
}

// PlaceReplicas implements construct.Backend
func (b *Backend) PlaceReplicas(name string, v construct.Volume, parent construct.Volume, p construct.Param) (construct.Placement, error) {
	param, ok := p.(*Param)
	if !ok || v == nil || parent == nil {
		return nil, perr.InvalidArgf("replicas %q: volume, parent and a memory parameterization are required", name)
	}
	pl := &Placement{
		Name:     name,
		Volume:   v.VolumeName(),
		Parent:   parent.VolumeName(),
		Param:    param.Name,
		Replicas: param.Grid.Count(),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.addPlacement(pl); err != nil {
		return nil, err
	}
	return pl, nil
}

// Checkpoint implements construct.Checkpointer
func (b *Backend) Checkpoint() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marks = append(b.marks, mark{len(b.solids), len(b.volumes), len(b.placements), len(b.params)})
	return len(b.marks) - 1
}

// Restore drops everything recorded after checkpoint i, and every later checkpoint
func (b *Backend) Restore(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.marks) {
		return
	}
	m := b.marks[i]
	for _, s := range b.solids[m.solids:] {
		delete(b.byHandle, construct.SolidHandle(s.Handle))
	}
	b.solids = b.solids[:m.solids]
	for _, v := range b.volumes[m.volumes:] {
		delete(b.volByName, v.Name)
	}
	b.volumes = b.volumes[:m.volumes]
	for _, p := range b.placements[m.placements:] {
		delete(b.placeNames, p.Name)
	}
	b.placements = b.placements[:m.placements]
	b.params = b.params[:m.params]
	b.marks = b.marks[:i]
}

// Counts returns the number of recorded solids, volumes and placements
func (b *Backend) Counts() (solids, volumes, placements int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.solids), len(b.volumes), len(b.placements)
}

// Solid returns the record of handle h
func (b *Backend) Solid(h construct.SolidHandle) (Solid, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i, ok := b.byHandle[h]
	if !ok {
		return Solid{}, false
	}
	return b.solids[i], true
}

// Placements returns the recorded placements in emission order
func (b *Backend) Placements() []Placement {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Placement, 0, len(b.placements))
	for _, p := range b.placements {
		out = append(out, *p)
	}
	return out
}

var (
	_ construct.Backend      = (*Backend)(nil)
	_ construct.Checkpointer = (*Backend)(nil)
)
