// Package modkit provides the wiring contract for the inspection API modules
package modkit

import (
	phttp "pixgeo/internal/platform/net/http"
)

// Module is the common surface for modules that mount routes and expose ports
type Module interface {
	// MountRoutes mounts HTTP routes under the provided router seam
	MountRoutes(r phttp.Router)
	// Ports returns a module specific port set for cross wiring
	Ports() any
	// Name returns the module name
	Name() string
}

// Builder constructs a Module from shared deps and options
type Builder func(Deps, ...Option) Module
