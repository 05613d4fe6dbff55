package modkit

import (
	"pixgeo/internal/modkit/repokit"
	"pixgeo/internal/platform/config"
	"pixgeo/internal/platform/logger"
	"pixgeo/internal/platform/metrics"
	"pixgeo/internal/platform/store"
)

// Deps holds core dependencies passed to modules
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	SQL     repokit.TxRunner
	Driver  store.Driver
	Metrics *metrics.Metrics
}

// FromStore fills the SQL seam from an opened store, Postgres first
func (d Deps) FromStore(s *store.Store) Deps {
	if s == nil {
		return d
	}
	d.SQL, d.Driver = s.SQL()
	return d
}
