// Package service provides the catalog workflows
package service

import (
	"context"
	"strings"
	"time"

	"pixgeo/internal/modkit/repokit"
	perr "pixgeo/internal/platform/errors"
	"pixgeo/internal/platform/logger"
	"pixgeo/internal/platform/metrics"
	"pixgeo/internal/platform/store"
	"pixgeo/internal/services/catalog/domain"
	"pixgeo/internal/services/catalog/repo"

	"github.com/google/uuid"
)

// Config for the catalog service
type Config struct {
	HardLimit int
	Driver    store.Driver
	Metrics   *metrics.Metrics
	Log       *logger.Logger
}

// writeAttempts bounds retries of a contended catalog transaction
const writeAttempts = 3

// Service implements domain.WriterPort and domain.QueryPort
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Storage]
	repo   repo.Storage
	cfg    Config
	now    func() time.Time
}

// New constructs the catalog service over a required TxRunner
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage], cfg Config) *Service {
	if db == nil {
		panic("catalog.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("catalog.Service requires a non nil Storage binder")
	}
	if cfg.HardLimit <= 0 {
		cfg.HardLimit = 100
	}
	if cfg.Log == nil {
		cfg.Log = logger.Named("catalog")
	}
	return &Service{db: db, binder: binder, repo: binder.Bind(db), cfg: cfg, now: time.Now}
}

// NewRunID returns a fresh run identifier
func NewRunID() string { return uuid.NewString() }

// Migrate creates the catalog schema if missing
func (s *Service) Migrate(ctx context.Context) error {
	return s.repo.Migrate(ctx)
}

// Record implements domain.WriterPort. All detectors of the call land in one
// transaction; a failure leaves the run as it was
func (s *Service) Record(ctx context.Context, runID string, xs []domain.Record) (err error) {
	defer func() { s.cfg.Metrics.IncrementCatalogWrite(string(s.cfg.Driver), err) }()

	if _, uerr := uuid.Parse(runID); uerr != nil {
		return perr.WithField(perr.InvalidArgf("run id %q is not a uuid", runID), "run_id")
	}
	if len(xs) == 0 {
		return nil
	}

	stamp := s.now().UTC()
	seen := make(map[string]bool, len(xs))
	rows := make([]domain.Record, 0, len(xs))
	for _, x := range xs {
		x.RunID = runID
		x.Detector = strings.TrimSpace(x.Detector)
		if x.Detector == "" {
			return perr.WithField(perr.InvalidArgf("detector name is required"), "detector")
		}
		if seen[x.Detector] {
			return perr.WithOp(perr.Conflictf("detector %q recorded twice", x.Detector), x.Detector)
		}
		seen[x.Detector] = true
		if x.CreatedAt.IsZero() {
			x.CreatedAt = stamp
		}
		rows = append(rows, x)
	}

	for attempt := 1; ; attempt++ {
		err = repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
			r := repokit.MustBind(s.binder, q)
			for _, x := range rows {
				if err := r.Upsert(ctx, x); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil || attempt == writeAttempts || !perr.Retryable(err) {
			break
		}
		s.cfg.Log.Warn().Err(err).Int("attempt", attempt).Msg("catalog write contended, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	if err != nil {
		return err
	}
	s.cfg.Log.Info().
		Str("run_id", runID).
		Int("detectors", len(rows)).
		Str("driver", string(s.cfg.Driver)).
		Msg("catalog run recorded")
	return nil
}

// ListRuns implements domain.QueryPort; limit is clamped to the hard limit
func (s *Service) ListRuns(ctx context.Context, in domain.ListRunsInput) ([]domain.RunSummary, int, error) {
	limit := in.Limit
	if limit <= 0 || limit > s.cfg.HardLimit {
		limit = s.cfg.HardLimit
	}
	total, err := s.repo.CountRuns(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.repo.ListRuns(ctx, limit, in.Offset)
	if err != nil {
		return nil, 0, err
	}
	if rows == nil {
		rows = []domain.RunSummary{}
	}
	return rows, total, nil
}

// ListDetectors implements domain.QueryPort. An unknown run is not found
func (s *Service) ListDetectors(ctx context.Context, in domain.RunInput) ([]domain.Record, error) {
	rows, err := s.repo.ListDetectors(ctx, in.RunID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, perr.WithField(perr.NotFoundf("run %q not recorded", in.RunID), "run")
	}
	return rows, nil
}

// GetDetector implements domain.QueryPort
func (s *Service) GetDetector(ctx context.Context, in domain.DetectorInput) (domain.Record, error) {
	return s.repo.GetDetector(ctx, in.RunID, in.Detector)
}

var (
	_ domain.WriterPort = (*Service)(nil)
	_ domain.QueryPort  = (*Service)(nil)
)
