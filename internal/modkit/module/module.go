// Package module holds helpers over the modkit module contract that must not
// import modkit itself
package module

import (
	phttp "pixgeo/internal/platform/net/http"
)

// Module mirrors modkit.Module to avoid import knots when a module also
// exports its own ports type
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
