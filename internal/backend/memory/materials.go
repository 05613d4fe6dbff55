package memory

import "pixgeo/internal/core/modelcfg"

// Material is a named bulk material. Density is in g/cm3
type Material struct {
	Name    string  `json:"name"`
	Density float64 `json:"density"`
	State   string  `json:"state"`
}

// MaterialName implements construct.Material
func (m *Material) MaterialName() string { return m.Name }

// builtinMaterials is the default material table
var builtinMaterials = []Material{
	{Name: "vacuum", Density: 1e-25, State: "gas"},
	{Name: "air", Density: 0.00120479, State: "gas"},
	{Name: "silicon", Density: 2.33, State: "solid"},
	{Name: "germanium", Density: 5.323, State: "solid"},
	{Name: "cadmium_telluride", Density: 5.85, State: "solid"},
	{Name: "gallium_arsenide", Density: 5.32, State: "solid"},
	{Name: "diamond", Density: 3.515, State: "solid"},
	{Name: "solder", Density: 8.4, State: "solid"},
	{Name: "aluminum", Density: 2.699, State: "solid"},
	{Name: "copper", Density: 8.96, State: "solid"},
	{Name: "lead", Density: 11.35, State: "solid"},
	{Name: "tungsten", Density: 19.3, State: "solid"},
	{Name: "g10", Density: 1.7, State: "solid"},
	{Name: "epoxy", Density: 1.3, State: "solid"},
	{Name: "kapton", Density: 1.42, State: "solid"},
	{Name: "plexiglass", Density: 1.19, State: "solid"},
	{Name: "carbonfiber", Density: 1.5, State: "solid"},
}

// materialAliases maps alternative spellings onto table entries
var materialAliases = map[string]string{
	"aluminium": "aluminum",
	"galactic":  "vacuum",
	"pmma":      "plexiglass",
	"fr4":       "g10",
	"cdte":      "cadmium_telluride",
	"gaas":      "gallium_arsenide",
}

// materialKey case-folds a material name and resolves aliases
func materialKey(name string) string {
	k := modelcfg.NewMaterial(name).String()
	if a, ok := materialAliases[k]; ok {
		return a
	}
	return k
}
