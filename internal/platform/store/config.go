package store

import (
	"time"

	"pixgeo/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG     PGConfig
	SQLite SQLiteConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// Guard/boot knobs:
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// SQLiteConfig configures the embedded catalog database
type SQLiteConfig struct {
	Enabled       bool
	Path          string
	BusyTimeoutMs int
	LogSQL        bool
}

// ConfigFrom reads store settings from c (normally config.App()):
// CATALOG_PG_URL enables postgres, CATALOG_SQLITE_PATH enables sqlite.
// CATALOG_DRIVER (auto, pg, sqlite) restricts which of the two is opened
func ConfigFrom(c config.Conf) Config {
	pgURL := c.MayString("CATALOG_PG_URL", "")
	litePath := c.MayString("CATALOG_SQLITE_PATH", "")
	switch c.MayEnum("CATALOG_DRIVER", "auto", "auto", string(DriverPG), string(DriverSQLite)) {
	case string(DriverPG):
		litePath = ""
	case string(DriverSQLite):
		pgURL = ""
	}
	logSQL := c.MayBool("CATALOG_LOG_SQL", false)
	return Config{
		AppName: c.MayString("APP_NAME", "pixgeo"),
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(c.MayInt("CATALOG_PG_MAX_CONNS", 4)),
			LogSQL:         logSQL,
			SlowQueryMs:    c.MayInt("CATALOG_SLOW_QUERY_MS", 200),
			ConnectRetries: c.MayInt("CATALOG_PG_CONNECT_RETRIES", 20),
			PingTimeout:    c.MayDuration("CATALOG_PG_PING_TIMEOUT", 3*time.Second),
		},
		SQLite: SQLiteConfig{
			Enabled:       litePath != "",
			Path:          litePath,
			BusyTimeoutMs: c.MayInt("CATALOG_SQLITE_BUSY_TIMEOUT_MS", 5000),
			LogSQL:        logSQL,
		},
	}
}
