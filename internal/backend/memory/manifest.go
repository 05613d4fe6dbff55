package memory

import (
	"encoding/json"
	"sort"

	"pixgeo/internal/core/construct"
	perr "pixgeo/internal/platform/errors"
)

// Manifest is the serialisable subgraph below one root placement: every
// placement in the tree, the volumes they place, the solids those volumes are
// built from (operands included) and the parameterizations used by replicas
type Manifest struct {
	Root       string      `json:"root"`
	Materials  []string    `json:"materials"`
	Solids     []Solid     `json:"solids"`
	Volumes    []Volume    `json:"volumes"`
	Placements []Placement `json:"placements"`
	Params     []Param     `json:"parameterizations,omitempty"`
}

// ManifestFor collects the subgraph rooted at the placement named root
func (b *Backend) ManifestFor(root string) (*Manifest, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var top *Placement
	children := map[string][]*Placement{}
	for _, p := range b.placements {
		if p.Name == root {
			top = p
		}
		children[p.Parent] = append(children[p.Parent], p)
	}
	if top == nil {
		return nil, perr.NotFoundf("placement %q not recorded", root)
	}

	man := &Manifest{Root: root}
	seenVol := map[string]bool{}
	seenSolid := map[int]bool{}
	seenParam := map[string]bool{}
	mats := map[string]bool{}

	var addSolid func(h int)
	addSolid = func(h int) {
		if seenSolid[h] {
			return
		}
		i, ok := b.byHandle[construct.SolidHandle(h)]
		if !ok {
			return
		}
		seenSolid[h] = true
		s := b.solids[i]
		for _, op := range s.Operands {
			addSolid(op)
		}
		for _, n := range s.Nodes {
			addSolid(n.Solid)
		}
		man.Solids = append(man.Solids, s)
	}

	queue := []*Placement{top}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		man.Placements = append(man.Placements, *p)
		if p.Param != "" && !seenParam[p.Param] {
			seenParam[p.Param] = true
			for _, pr := range b.params {
				if pr.Name == p.Param {
					man.Params = append(man.Params, *pr)
				}
			}
		}
		if seenVol[p.Volume] {
			continue
		}
		seenVol[p.Volume] = true
		v, ok := b.volByName[p.Volume]
		if !ok {
			continue
		}
		man.Volumes = append(man.Volumes, *v)
		mats[v.Material] = true
		addSolid(v.Solid)
		queue = append(queue, children[v.Name]...)
	}

	for m := range mats {
		man.Materials = append(man.Materials, m)
	}
	sort.Strings(man.Materials)
	sort.Slice(man.Solids, func(i, j int) bool { return man.Solids[i].Handle < man.Solids[j].Handle })
	return man, nil
}

// JSON encodes the manifest, indented when pretty is set
func (m *Manifest) JSON(pretty bool) ([]byte, error) {
	var (
		out []byte
		err error
	)
	if pretty {
		out, err = json.MarshalIndent(m, "", "  ")
	} else {
		out, err = json.Marshal(m)
	}
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "encode manifest")
	}
	return out, nil
}
