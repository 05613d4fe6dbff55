package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixgeo/internal/platform/config"
	perr "pixgeo/internal/platform/errors"
	"pixgeo/internal/platform/metrics"
	"pixgeo/internal/platform/store"
	"pixgeo/internal/services/catalog/domain"
	"pixgeo/internal/services/catalog/repo"
	"pixgeo/internal/services/catalog/service"
)

const hybridModel = `
type = "hybrid"
number_of_pixels = [4, 4]
pixel_size = [0.05, 0.05]
sensor_thickness = 0.2
chip_thickness = 0.1
bump_height = "20um"
bump_cylinder_radius = "7.5um"
bump_sphere_radius = "9um"
`

const twoDetectors = `
[[detector]]
name = "DUT 0"
type = "hybrid"

[[detector]]
name = "ref"
type = "hybrid"
position = "0 0 50mm"
`

func fixture(t *testing.T) options {
	t.Helper()
	dir := t.TempDir()
	models := filepath.Join(dir, "models")
	require.NoError(t, os.MkdirAll(models, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(models, "hybrid.toml"), []byte(hybridModel), 0o600))
	setup := filepath.Join(dir, "setup.toml")
	require.NoError(t, os.WriteFile(setup, []byte(twoDetectors), 0o600))
	return options{Setup: setup, Models: []string{models}, Out: filepath.Join(dir, "out")}
}

func TestRun_WritesManifests(t *testing.T) {
	opt := fixture(t)
	m := metrics.NewWith(prometheus.NewRegistry())

	id, err := run(context.Background(), config.New(), opt, m)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DetectorsBuilt.WithLabelValues("hybrid")))

	body, err := os.ReadFile(filepath.Join(opt.Out, "dut_0.json"))
	require.NoError(t, err)
	var man struct {
		Root       string            `json:"root"`
		Placements []json.RawMessage `json:"placements"`
	}
	require.NoError(t, json.Unmarshal(body, &man))
	assert.Equal(t, "wrapper_DUT 0_phys", man.Root)
	assert.NotEmpty(t, man.Placements)

	_, err = os.Stat(filepath.Join(opt.Out, "ref.json"))
	assert.NoError(t, err)
}

func TestRun_PersistsToSQLite(t *testing.T) {
	opt := fixture(t)
	opt.Persist = true
	opt.RunID = service.NewRunID()
	path := filepath.Join(t.TempDir(), "catalog.sqlite")
	t.Setenv("PIXGEO_CATALOG_SQLITE_PATH", path)

	id, err := run(context.Background(), config.App(), opt, nil)
	require.NoError(t, err)
	assert.Equal(t, opt.RunID, id)

	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{SQLite: store.SQLiteConfig{Enabled: true, Path: path}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(ctx) })
	db, _ := st.SQL()
	svc := service.New(db, repo.NewSQL(), service.Config{})

	dets, err := svc.ListDetectors(ctx, domain.RunInput{RunID: id})
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, "DUT 0", dets[0].Detector)
	assert.Equal(t, "hybrid", dets[0].Kind)
	assert.Positive(t, dets[0].Solids)
}

func TestRun_PersistWithoutCatalog(t *testing.T) {
	opt := fixture(t)
	opt.Persist = true
	_, err := run(context.Background(), config.New().Prefix("PIXGEO_TEST_UNSET_"), opt, nil)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConfiguration))
}

func TestRun_MissingSetup(t *testing.T) {
	opt := fixture(t)
	opt.Setup = filepath.Join(t.TempDir(), "absent.toml")
	_, err := run(context.Background(), config.New(), opt, nil)
	require.Error(t, err)
}
