// Package module wires the catalog into the inspection API using modkit
package module

import (
	"context"
	"net/http"

	"pixgeo/internal/modkit"
	"pixgeo/internal/modkit/httpkit"
	str "pixgeo/internal/platform/strings"
	"pixgeo/internal/services/catalog/domain"
	cataloghttp "pixgeo/internal/services/catalog/http"
	"pixgeo/internal/services/catalog/repo"
	"pixgeo/internal/services/catalog/service"
)

// Ports exposed by the catalog module
type Ports struct {
	Writer domain.WriterPort
	Query  domain.QueryPort
}

// Module implements the catalog module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler
	opts   Options

	register func(httpkit.Router)

	svc   *service.Service
	ports Ports
}

// New constructs the catalog module over deps.SQL
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("catalog"), modkit.WithPrefix("/runs")}, opts...)...)
	o := FromConfig(deps.Cfg)

	log := deps.Log.With().Str("component", "catalog").Logger()
	svc := service.New(deps.SQL, repo.NewSQL(), service.Config{
		HardLimit: o.HardLimit,
		Driver:    deps.Driver,
		Metrics:   deps.Metrics,
		Log:       &log,
	})

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		opts:   o,
		svc:    svc,
		ports:  Ports{Writer: svc, Query: svc},
	}
	external := b.Register
	m.register = func(r httpkit.Router) {
		cataloghttp.Register(r, m.svc)
		external(r)
	}
	return m
}

// Init runs the schema migration unless CATALOG_MIGRATE is off
func (m *Module) Init(ctx context.Context) error {
	if !m.opts.Migrate {
		return nil
	}
	return m.svc.Migrate(ctx)
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.Prefix(), m.mws, m.register)
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

var _ modkit.Module = (*Module)(nil)
