// Command pixgeo-inspect serves the read-only catalog API
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pixgeo/internal/core/version"
	"pixgeo/internal/modkit"
	"pixgeo/internal/modkit/httpkit"
	"pixgeo/internal/modkit/repokit"
	"pixgeo/internal/platform/config"
	perr "pixgeo/internal/platform/errors"
	"pixgeo/internal/platform/logger"
	"pixgeo/internal/platform/metrics"
	phttp "pixgeo/internal/platform/net/http"
	"pixgeo/internal/platform/store"

	catalogmod "pixgeo/internal/services/catalog/module"
)

func main() {
	conf := config.App()
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.ConfigFrom(conf), store.WithLogger(*logger.Named("store")))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st)

	deps := modkit.Deps{Log: *l, Cfg: conf, Metrics: metrics.New()}.FromStore(st)
	if deps.SQL == nil {
		l.Fatal().Msg("no catalog configured: set PIXGEO_CATALOG_PG_URL or PIXGEO_CATALOG_SQLITE_PATH")
	}

	catalog := catalogmod.New(deps)
	if err := catalog.Init(ctx); err != nil {
		l.Panic().Err(err).Msg("catalog init failed")
	}

	// reads PIXGEO_INSPECT_ADDR / PIXGEO_INSPECT_SHUTDOWN_GRACE
	srv := phttp.NewServer(conf)
	r := srv.Router()
	r.Use(httpkit.CommonStack(conf)...)

	r.Handle("/metrics", promhttp.Handler())
	phttp.MountProfiler(r, "/debug", conf.MayBool("INSPECT_PROFILER", false))
	httpkit.MountAPIV1(r, nil, func(api httpkit.Router) {
		httpkit.Get(api, "/version", func(*http.Request) (any, error) {
			return version.Info("pixgeo-inspect"), nil
		})
		httpkit.Get(api, "/ready", func(req *http.Request) (any, error) {
			if err := st.Guard(req.Context()); err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "catalog not ready")
			}
			return map[string]string{"driver": string(deps.Driver)}, nil
		})
		catalog.MountRoutes(api)
	})

	l.Info().
		Str("addr", srv.Addr()).
		Str("driver", string(deps.Driver)).
		Msg("inspection api ready")
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
