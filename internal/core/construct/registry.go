package construct

import (
	"sort"
	"sync"
)

// Role tags an object recorded for a detector
type Role string

// Registry roles
const (
	RoleWrapperLog       Role = "wrapper_log"
	RoleWrapperPhys      Role = "wrapper_phys"
	RoleRotationMatrix   Role = "rotation_matrix"
	RoleSensorLog        Role = "sensor_log"
	RoleSensorPhys       Role = "sensor_phys"
	RoleImplantsLog      Role = "implants_log"
	RoleImplantsPhys     Role = "implants_phys"
	RolePixelLog         Role = "pixel_log"
	RolePixelParam       Role = "pixel_param"
	RoleChipLog          Role = "chip_log"
	RoleChipPhys         Role = "chip_phys"
	RoleSupportsLog      Role = "supports_log"
	RoleSupportsPhys     Role = "supports_phys"
	RoleBumpsWrapperLog  Role = "bumps_wrapper_log"
	RoleBumpsWrapperPhys Role = "bumps_wrapper_phys"
	RoleBumpsCellLog     Role = "bumps_cell_log"
	RoleBumpsParam       Role = "bumps_param"
	RoleBumpsParamPhys   Role = "bumps_param_phys"
)

type regKey struct {
	detector string
	role     Role
}

// Registry records backend objects by detector and role so other subsystems
// can find e.g. the sensor volume of a detector. It does not own them
type Registry struct {
	mu   sync.RWMutex
	objs map[regKey]any
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry { return &Registry{objs: map[regKey]any{}} }

// Set records v for (detector, role), replacing any previous value
func (r *Registry) Set(detector string, role Role, v any) {
	r.mu.Lock()
	r.objs[regKey{detector, role}] = v
	r.mu.Unlock()
}

// Get returns the raw value for (detector, role)
func (r *Registry) Get(detector string, role Role) (any, bool) {
	r.mu.RLock()
	v, ok := r.objs[regKey{detector, role}]
	r.mu.RUnlock()
	return v, ok
}

// Lookup fetches and type asserts the value for (detector, role)
func Lookup[T any](r *Registry, detector string, role Role) (T, bool) {
	v, ok := r.Get(detector, role)
	if !ok {
		var zero T
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

// Has reports whether anything is recorded for detector
func (r *Registry) Has(detector string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k := range r.objs {
		if k.detector == detector {
			return true
		}
	}
	return false
}

// Roles lists the roles recorded for detector, sorted
func (r *Registry) Roles(detector string) []Role {
	r.mu.RLock()
	var out []Role
	for k := range r.objs {
		if k.detector == detector {
			out = append(out, k.role)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Detectors lists the detectors with at least one entry, sorted
func (r *Registry) Detectors() []string {
	r.mu.RLock()
	seen := map[string]struct{}{}
	for k := range r.objs {
		seen[k.detector] = struct{}{}
	}
	r.mu.RUnlock()
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Drop removes every entry of detector
func (r *Registry) Drop(detector string) {
	r.mu.Lock()
	for k := range r.objs {
		if k.detector == detector {
			delete(r.objs, k)
		}
	}
	r.mu.Unlock()
}
