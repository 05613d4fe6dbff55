package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

// liteAdapter wraps *sql.DB (ncruces sqlite driver) and implements TxRunner.
// Statements are written for postgres; $n placeholders are rebound to ?n
type liteAdapter struct {
	db *sql.DB
	tracing
}

func newLiteAdapter(db *sql.DB, tr tracing) *liteAdapter {
	tr.driver = DriverSQLite
	return &liteAdapter{db: db, tracing: tr}
}

// execer is the surface shared by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (a *liteAdapter) Ping(ctx context.Context) error {
	if a == nil || a.db == nil {
		return errors.New("sqlite: nil adapter")
	}
	return a.db.PingContext(ctx)
}

func (a *liteAdapter) Close() error { return a.db.Close() }

func (a *liteAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return liteQ{x: a.db, tracing: a.tracing}.Exec(ctx, sql, args...)
}

func (a *liteAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return liteQ{x: a.db, tracing: a.tracing}.Query(ctx, sql, args...)
}

func (a *liteAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return liteQ{x: a.db, tracing: a.tracing}.QueryRow(ctx, sql, args...)
}

func (a *liteAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(liteQ{x: tx, tracing: a.tracing}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// liteQ runs statements on a pool or a transaction
type liteQ struct {
	x execer
	tracing
}

func (q liteQ) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	res, err := q.x.ExecContext(ctx, Rebind(sql), args...)
	q.emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	return liteTag{verb: verb(sql), n: n}, nil
}

func (q liteQ) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := q.x.QueryContext(ctx, Rebind(sql), args...)
	q.emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return liteRows{r: rs}, nil
}

func (q liteQ) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := q.x.QueryRowContext(ctx, Rebind(sql), args...)
	return liteRow{r: r, after: func(scanErr error) { q.emit(ctx, sql, args, start, scanErr) }}
}

type liteRow struct {
	r     *sql.Row
	after func(error)
}

func (x liteRow) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	return err
}

type liteRows struct{ r *sql.Rows }

func (x liteRows) Next() bool            { return x.r.Next() }
func (x liteRows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x liteRows) Err() error            { return x.r.Err() }
func (x liteRows) Close()                { _ = x.r.Close() }
func (x liteRows) Columns() []string {
	cols, _ := x.r.Columns()
	return cols
}

// liteTag mimics a postgres command tag, e.g. "INSERT 1"
type liteTag struct {
	verb string
	n    int64
}

func (t liteTag) String() string      { return strings.TrimSpace(t.verb + " " + strconv.FormatInt(t.n, 10)) }
func (t liteTag) RowsAffected() int64 { return t.n }

func verb(sql string) string {
	f := strings.Fields(sql)
	if len(f) == 0 {
		return ""
	}
	return strings.ToUpper(f[0])
}

// Rebind rewrites postgres placeholders ($1) into sqlite numbered ones (?1),
// leaving quoted literals and identifiers untouched
func Rebind(sql string) string {
	if !strings.Contains(sql, "$") {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql))
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '$' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9':
			c = '?'
		}
		b.WriteByte(c)
	}
	return b.String()
}
