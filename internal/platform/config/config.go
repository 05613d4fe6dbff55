// Package config handles application configuration via environment variables
package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"pixgeo/internal/platform/logger"
)

// AppPrefix namespaces every runtime setting of the pixgeo commands
const AppPrefix = "PIXGEO_"

// Conf is a namespaced view over environment variables (e.g., "PIXGEO_", "PIXGEO_CATALOG_")
// Use New() for global access, App() for the command settings, or Prefix for module scopes
type Conf struct{ prefix string }

// New creates a root Conf (no prefix)
func New() Conf { return Conf{} }

// App returns the PIXGEO_ scoped view used by the commands
func App() Conf { return Conf{prefix: AppPrefix} }

// Prefix creates a child Conf with an additional prefix, e.g. cfg.Prefix("CATALOG_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

// raw is the trimmed value of key, empty when unset
func (c Conf) raw(key string) string { return strings.TrimSpace(os.Getenv(c.key(key))) }

// Keys lists the fully-qualified names of keys set under this prefix, sorted
func (c Conf) Keys() []string {
	var out []string
	for _, kv := range os.Environ() {
		k, _, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, c.prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// MustString panics if the given key is missing or empty
func (c Conf) MustString(key string) string {
	v := c.raw(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

// may parses key with parse; a missing value yields def, an unparsable one
// is logged and yields def
func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).Msg("invalid value; using default")
		return def
	}
	return v
}

// MayString returns the value or def if missing/empty
func (c Conf) MayString(key, def string) string {
	if v := c.raw(key); v != "" {
		return v
	}
	return def
}

// MayInt returns the value or def if missing/empty/invalid
func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

// MayBool returns the value or def if missing/empty/invalid
func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

// MayDuration returns the value or def if missing/empty/invalid
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayCSV returns the non-empty items of a comma-separated value; def if there are none
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(c.raw(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the allowed spelling matching the value ("SQLite" gives
// "sqlite"), def when unset, and panics on anything else
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
