// Package sqlite opens the embedded SQLite catalog through database/sql
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver" // registers "sqlite3"
	_ "github.com/ncruces/go-sqlite3/embed"  // bundled sqlite build
)

// DriverName is the database/sql driver registered by ncruces/go-sqlite3
const DriverName = "sqlite3"

// Config configures the sqlite file
type Config struct {
	Path          string
	BusyTimeoutMs int
}

// DSN builds the connection string for cfg
func DSN(cfg Config) string {
	busy := cfg.BusyTimeoutMs
	if busy <= 0 {
		busy = 5000
	}
	return fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", cfg.Path, busy)
}

// Open creates the parent directory, opens the database and checks it is usable.
// SQLite serialises writers, so the pool holds a single connection
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: empty path")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open(DriverName, DSN(cfg))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}
	return db, nil
}
