// Command pixgeo-build constructs the detectors of a setup file, writes one
// JSON manifest per detector and optionally records the run in the catalog
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"pixgeo/internal/backend/memory"
	"pixgeo/internal/core/construct"
	"pixgeo/internal/core/detector"
	"pixgeo/internal/core/version"
	"pixgeo/internal/modkit"
	"pixgeo/internal/modkit/module"
	"pixgeo/internal/modkit/repokit"
	"pixgeo/internal/platform/config"
	perr "pixgeo/internal/platform/errors"
	"pixgeo/internal/platform/logger"
	"pixgeo/internal/platform/metrics"
	"pixgeo/internal/platform/modelfile"
	"pixgeo/internal/platform/store"
	pstrings "pixgeo/internal/platform/strings"
	"pixgeo/internal/services/catalog/domain"
	catalogmod "pixgeo/internal/services/catalog/module"
	"pixgeo/internal/services/catalog/service"
)

type options struct {
	Setup   string
	Models  []string
	Out     string
	Persist bool
	RunID   string
	Pretty  bool
}

func main() {
	var (
		setup   = flag.String("setup", "", "detector setup file (toml)")
		models  = flag.String("models", "models", "comma separated model directories")
		out     = flag.String("out", "manifests", "directory for per detector manifests")
		persist = flag.Bool("persist", false, "record the run in the catalog (PIXGEO_CATALOG_*)")
		runID   = flag.String("run", "", "run id to record under (default: new uuid)")
		pretty  = flag.Bool("pretty", true, "indent manifest json")
	)
	flag.Parse()

	l := logger.Get()
	l.Info().Interface("build", version.Info("pixgeo-build")).Msg("starting")
	if *setup == "" {
		l.Fatal().Msg("-setup is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opt := options{
		Setup:   *setup,
		Models:  strings.Split(*models, ","),
		Out:     *out,
		Persist: *persist,
		RunID:   *runID,
		Pretty:  *pretty,
	}
	id, err := run(ctx, config.App(), opt, metrics.New())
	if err != nil {
		l.Fatal().Err(err).Str("code", perr.CodeOf(err).String()).Msg("build failed")
	}
	l.Info().Str("run_id", id).Msg("build finished")
}

// run constructs every detector of the setup and returns the run id
func run(ctx context.Context, conf config.Conf, opt options, m *metrics.Metrics) (string, error) {
	if opt.RunID == "" {
		opt.RunID = service.NewRunID()
	}
	ctx = logger.WithRun(ctx, opt.RunID)
	log := logger.C(ctx)

	dets, err := modelfile.Load(ctx, opt.Setup, opt.Models...)
	if err != nil {
		return "", err
	}

	world := conf.MayString("WORLD_MATERIAL", construct.DefaultWorldMaterial)
	backend := memory.New(memory.WithWorldMaterial(world))
	c := construct.New(backend,
		construct.WithWorldMaterial(world),
		construct.WithSensorMaterial(conf.MayString("SENSOR_MATERIAL", construct.DefaultSensorMaterial)),
		construct.WithChipMaterial(conf.MayString("CHIP_MATERIAL", construct.DefaultChipMaterial)),
		construct.WithBumpMaterial(conf.MayString("BUMP_MATERIAL", construct.DefaultBumpMaterial)),
		construct.WithLogger(log),
		construct.WithMetrics(m),
	)
	if err := c.BuildAll(dets); err != nil {
		return "", err
	}

	recs, err := writeManifests(backend, dets, opt.Out, opt.Pretty)
	if err != nil {
		return "", err
	}
	log.Info().Int("detectors", len(recs)).Str("out", opt.Out).Msg("manifests written")

	if opt.Persist {
		if err := persist(ctx, conf, opt.RunID, recs, m); err != nil {
			return "", err
		}
	}
	return opt.RunID, nil
}

// writeManifests writes <out>/<detector>.json for every built detector and
// returns the catalog records describing them
func writeManifests(b *memory.Backend, dets []*detector.Detector, out string, pretty bool) ([]domain.Record, error) {
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfiguration, "create %s", out)
	}
	recs := make([]domain.Record, 0, len(dets))
	for _, d := range dets {
		man, err := b.ManifestFor("wrapper_" + d.Name() + "_phys")
		if err != nil {
			return nil, perr.WithOp(err, d.Name())
		}
		body, err := man.JSON(pretty)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(out, pstrings.SafeName(d.Name())+".json")
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "write %s", path)
		}
		compact, err := man.JSON(false)
		if err != nil {
			return nil, err
		}
		recs = append(recs, domain.Record{
			Detector:   d.Name(),
			Model:      d.Model().Type(),
			Kind:       d.Model().Kind().String(),
			Solids:     len(man.Solids),
			Volumes:    len(man.Volumes),
			Placements: len(man.Placements),
			Manifest:   compact,
		})
	}
	return recs, nil
}

func persist(ctx context.Context, conf config.Conf, runID string, recs []domain.Record, m *metrics.Metrics) error {
	st, err := store.Open(ctx, store.ConfigFrom(conf), store.WithLogger(*logger.Named("store")))
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.C(ctx).Error().Err(err).Msg("failed to close store")
		}
	}()
	deps := modkit.Deps{Log: *logger.Get(), Cfg: conf, Metrics: m}.FromStore(st)
	if deps.SQL == nil {
		return perr.Newf(perr.ErrorCodeConfiguration, "persist: set PIXGEO_CATALOG_PG_URL or PIXGEO_CATALOG_SQLITE_PATH")
	}
	repokit.MustGuard(ctx, st)

	cat := catalogmod.New(deps)
	if err := cat.Init(ctx); err != nil {
		return err
	}
	return module.MustPortsOf[domain.WriterPort](cat).Record(ctx, runID, recs)
}
