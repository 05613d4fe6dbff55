// Package modelfile reads detector model definitions and detector setups from
// TOML files. Lengths may carry units ("55um", "1.5mm 2mm"); bare numbers are
// in mm and bare angles in rad
package modelfile

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/sync/errgroup"

	"pixgeo/internal/core/model"
	"pixgeo/internal/core/modelcfg"
	perr "pixgeo/internal/platform/errors"
)

// Ext is the model file extension
const Ext = ".toml"

// maxParallel bounds concurrent model file reads
const maxParallel = 8

// ModelName is the model type a file defines: its base name without extension
func ModelName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ParseModel decodes a TOML model definition into a Source named name.
// Repeated [[support]] tables become support sections
func ParseModel(name, body string) (*modelcfg.MapSource, error) {
	var raw map[string]any
	if _, err := toml.Decode(body, &raw); err != nil {
		return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeConfiguration, "model %q: parse", name), name)
	}

	src := modelcfg.NewMapSource(name, nil)
	for k, v := range raw {
		if k != modelcfg.SupportSection {
			src.Set(k, v)
			continue
		}
		tables, ok := v.([]map[string]any)
		if !ok {
			return nil, perr.Keyed(perr.ErrorCodeConfiguration, name, k, "expected an array of [[support]] tables")
		}
		for _, tbl := range tables {
			src.AddSection(modelcfg.SupportSection, tbl)
		}
	}
	return src, nil
}

// LoadModel reads, extracts and validates one model file
func LoadModel(path string) (*model.Model, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "model file %s", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeConfiguration, "read model file %s", path)
	}
	src, err := ParseModel(ModelName(path), string(body))
	if err != nil {
		return nil, err
	}
	return model.FromSource(src)
}

// LoadModels reads the given files concurrently. The result is keyed by model
// name; the first failure cancels the remaining reads
func LoadModels(ctx context.Context, paths []string) (map[string]*model.Model, error) {
	models := make([]*model.Model, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := LoadModel(p)
			if err != nil {
				return err
			}
			models[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*model.Model, len(models))
	for i, m := range models {
		if _, dup := out[m.Type()]; dup {
			return nil, perr.WithOp(perr.Conflictf("model %q defined twice (%s)", m.Type(), paths[i]), m.Type())
		}
		out[m.Type()] = m
	}
	return out, nil
}

// FindModels lists the model files of every directory, sorted, skipping
// directories that do not exist
func FindModels(dirs ...string) ([]string, error) {
	var out []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfiguration, "list model directory %s", dir)
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == Ext {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
