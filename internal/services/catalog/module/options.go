package module

import "pixgeo/internal/platform/config"

// Options holds configuration settings for the catalog module
type Options struct {
	HardLimit int
	Migrate   bool
}

// FromConfig reads CATALOG_HARD_LIMIT and CATALOG_MIGRATE
func FromConfig(cfg config.Conf) Options {
	cf := cfg.Prefix("CATALOG_")
	return Options{
		HardLimit: cf.MayInt("HARD_LIMIT", 100),
		Migrate:   cf.MayBool("MIGRATE", true),
	}
}
