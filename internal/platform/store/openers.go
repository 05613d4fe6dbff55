package store

import (
	"context"
	"fmt"
	"time"

	"pixgeo/internal/platform/store/pg"
	"pixgeo/internal/platform/store/sqlite"
)

func tracingFor(s *Store, logSQL bool, slowMs int) tracing {
	tr := tracing{slowUS: int64(slowMs) * 1000}
	if logSQL {
		tr.tracer = Tracer(s.Log)
	}
	return tr
}

// openPG opens pg and wraps it with our sql adapter once the pool answers a ping
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		AppName:  cfg.AppName,
	}, nil)
	if err != nil {
		return nil, err
	}

	maxAttempts := cfg.PG.ConnectRetries
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	pingTimeout := cfg.PG.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	const (
		backoffStart   = 150 * time.Millisecond
		backoffCeiling = 2 * time.Second
	)

	var lastErr error
	backoff := backoffStart
	for i := 0; i < maxAttempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = p.Pool.Ping(toCtx)
		cancel()

		if lastErr == nil {
			return newPGAdapter(p, tracingFor(s, cfg.PG.LogSQL, cfg.PG.SlowQueryMs)), nil
		}
		if ctx.Err() != nil {
			p.Close()
			return nil, ctx.Err()
		}
		s.Log.Warn().Err(lastErr).Int("attempt", i+1).Dur("backoff", backoff).Msg("postgres not ready")
		time.Sleep(backoff)
		backoff = min(backoff*2, backoffCeiling)
	}

	p.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", maxAttempts, lastErr)
}

// openSQLite opens the catalog file and wraps it with the sqlite adapter
func openSQLite(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLite.Path, BusyTimeoutMs: cfg.SQLite.BusyTimeoutMs})
	if err != nil {
		return nil, err
	}
	return newLiteAdapter(db, tracingFor(s, cfg.SQLite.LogSQL, 0)), nil
}
