package repo_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	perr "pixgeo/internal/platform/errors"
	"pixgeo/internal/platform/store"
	"pixgeo/internal/services/catalog/domain"
	"pixgeo/internal/services/catalog/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(run, det string, at time.Time) domain.Record {
	return domain.Record{
		RunID:      run,
		Detector:   det,
		Model:      "timepix",
		Kind:       "monolithic",
		Solids:     5,
		Volumes:    4,
		Placements: 3,
		Manifest:   json.RawMessage(`{"root":"wrapper_` + det + `_phys"}`),
		CreatedAt:  at,
	}
}

// exerciseStorage runs the same checks against any driver
func exerciseStorage(t *testing.T, db store.TxRunner) {
	ctx := context.Background()
	s := repo.NewSQL().Bind(db)

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "migrate is idempotent")

	t0 := time.UnixMilli(1_700_000_000_000).UTC()
	t1 := t0.Add(time.Hour)

	require.NoError(t, s.Upsert(ctx, record("run-a", "dut", t0)))
	require.NoError(t, s.Upsert(ctx, record("run-a", "telescope0", t0)))
	require.NoError(t, s.Upsert(ctx, record("run-b", "dut", t1)))

	// rebuilding replaces the row
	again := record("run-a", "dut", t0)
	again.Solids = 9
	again.Manifest = json.RawMessage(`{"root":"v2"}`)
	require.NoError(t, s.Upsert(ctx, again))

	n, err := s.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	runs, err := s.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].RunID, "newest first")
	assert.Equal(t, 2, runs[1].Detectors)
	assert.True(t, runs[1].CreatedAt.Equal(t0))

	page, err := s.ListRuns(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "run-a", page[0].RunID)

	dets, err := s.ListDetectors(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, "dut", dets[0].Detector)
	assert.Equal(t, 9, dets[0].Solids)
	assert.Nil(t, dets[0].Manifest, "listings carry no manifest")

	got, err := s.GetDetector(ctx, "run-a", "dut")
	require.NoError(t, err)
	assert.JSONEq(t, `{"root":"v2"}`, string(got.Manifest))
	assert.Equal(t, "timepix", got.Model)
	assert.Equal(t, 4, got.Volumes)

	_, err = s.GetDetector(ctx, "run-a", "missing")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))

	none, err := s.ListDetectors(ctx, "run-z")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStorage_SQLite(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{SQLite: store.SQLiteConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "catalog.sqlite"),
	}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(ctx) })

	db, driver := st.SQL()
	require.Equal(t, store.DriverSQLite, driver)
	exerciseStorage(t, db)
}
