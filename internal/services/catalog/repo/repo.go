// Package repo provides SQL access to the geometry catalog. Statements use
// postgres placeholders; the sqlite seam rebinds them
package repo

import (
	"context"
	"errors"
	"time"

	"pixgeo/internal/modkit/repokit"
	perr "pixgeo/internal/platform/errors"
	"pixgeo/internal/platform/store"
	"pixgeo/internal/services/catalog/domain"
)

// Schema creates the catalog table on either driver
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS detector_geometries (
		run_id     TEXT    NOT NULL,
		detector   TEXT    NOT NULL,
		model      TEXT    NOT NULL,
		kind       TEXT    NOT NULL,
		solids     INTEGER NOT NULL,
		volumes    INTEGER NOT NULL,
		placements INTEGER NOT NULL,
		manifest   TEXT    NOT NULL,
		created_at BIGINT  NOT NULL,
		PRIMARY KEY (run_id, detector)
	)`,
	`CREATE INDEX IF NOT EXISTS detector_geometries_created_idx ON detector_geometries (created_at)`,
}

// Storage is the persistence surface of the catalog
type Storage interface {
	Migrate(ctx context.Context) error
	Upsert(ctx context.Context, r domain.Record) error
	ListRuns(ctx context.Context, limit, offset int) ([]domain.RunSummary, error)
	CountRuns(ctx context.Context) (int, error)
	ListDetectors(ctx context.Context, runID string) ([]domain.Record, error)
	GetDetector(ctx context.Context, runID, detector string) (domain.Record, error)
}

type (
	sqlRepo struct{ q repokit.Queryer }
	binder  struct{}
)

// NewSQL returns the binder used by the service for both drivers
func NewSQL() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &sqlRepo{q: q} }

// Migrate implements Storage
func (s *sqlRepo) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return perr.FromDB(err, "catalog: migrate")
		}
	}
	return nil
}

// Upsert implements Storage. A rebuilt detector replaces its previous row
func (s *sqlRepo) Upsert(ctx context.Context, r domain.Record) error {
	err := store.ExecOne(ctx, s.q, `
		INSERT INTO detector_geometries
			(run_id, detector, model, kind, solids, volumes, placements, manifest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id, detector) DO UPDATE SET
			model      = excluded.model,
			kind       = excluded.kind,
			solids     = excluded.solids,
			volumes    = excluded.volumes,
			placements = excluded.placements,
			manifest   = excluded.manifest,
			created_at = excluded.created_at`,
		r.RunID, r.Detector, r.Model, r.Kind,
		r.Solids, r.Volumes, r.Placements,
		string(r.Manifest), r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return perr.WithOp(perr.FromDB(err, "catalog: upsert %s/%s", r.RunID, r.Detector), r.Detector)
	}
	return nil
}

// ListRuns implements Storage
func (s *sqlRepo) ListRuns(ctx context.Context, limit, offset int) ([]domain.RunSummary, error) {
	rows, err := store.Many(ctx, s.q, scanRun, `
		SELECT run_id, COUNT(*), MIN(created_at)
		FROM detector_geometries
		GROUP BY run_id
		ORDER BY MIN(created_at) DESC, run_id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, perr.FromDB(err, "catalog: list runs")
	}
	return rows, nil
}

// CountRuns implements Storage
func (s *sqlRepo) CountRuns(ctx context.Context) (int, error) {
	n, err := store.Scalar[int64](ctx, s.q, `SELECT COUNT(DISTINCT run_id) FROM detector_geometries`)
	if err != nil {
		return 0, perr.FromDB(err, "catalog: count runs")
	}
	return int(n), nil
}

// ListDetectors implements Storage; manifests are left out
func (s *sqlRepo) ListDetectors(ctx context.Context, runID string) ([]domain.Record, error) {
	rows, err := store.Many(ctx, s.q, scanSummary, `
		SELECT run_id, detector, model, kind, solids, volumes, placements, created_at
		FROM detector_geometries
		WHERE run_id = $1
		ORDER BY detector`, runID)
	if err != nil {
		return nil, perr.FromDB(err, "catalog: list detectors")
	}
	return rows, nil
}

// GetDetector implements Storage
func (s *sqlRepo) GetDetector(ctx context.Context, runID, detector string) (domain.Record, error) {
	r, err := store.One(ctx, s.q, scanRecord, `
		SELECT run_id, detector, model, kind, solids, volumes, placements, created_at, manifest
		FROM detector_geometries
		WHERE run_id = $1 AND detector = $2`, runID, detector)
	if errors.Is(err, perr.ErrNotFound) {
		return domain.Record{}, perr.WithField(perr.NotFoundf("detector %q not recorded in run %q", detector, runID), "name")
	}
	if err != nil {
		return domain.Record{}, perr.FromDB(err, "catalog: get detector")
	}
	return r, nil
}

func scanRun(row store.Row) (domain.RunSummary, error) {
	var (
		r       domain.RunSummary
		n, msec int64
	)
	if err := row.Scan(&r.RunID, &n, &msec); err != nil {
		return r, err
	}
	r.Detectors = int(n)
	r.CreatedAt = time.UnixMilli(msec).UTC()
	return r, nil
}

func scanSummary(row store.Row) (domain.Record, error) {
	var (
		r    domain.Record
		msec int64
	)
	if err := row.Scan(&r.RunID, &r.Detector, &r.Model, &r.Kind, &r.Solids, &r.Volumes, &r.Placements, &msec); err != nil {
		return r, err
	}
	r.CreatedAt = time.UnixMilli(msec).UTC()
	return r, nil
}

func scanRecord(row store.Row) (domain.Record, error) {
	var (
		r    domain.Record
		msec int64
		man  string
	)
	if err := row.Scan(&r.RunID, &r.Detector, &r.Model, &r.Kind, &r.Solids, &r.Volumes, &r.Placements, &msec, &man); err != nil {
		return r, err
	}
	r.CreatedAt = time.UnixMilli(msec).UTC()
	r.Manifest = []byte(man)
	return r, nil
}
