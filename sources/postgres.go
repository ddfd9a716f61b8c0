package sources

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sysuresh/datapipe"
)

// Querier is the subset of *pgxpool.Pool this source uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RowScanner decodes the current row into an item. It must not call
// rows.Next; the source drives the cursor.
type RowScanner[T any] func(rows pgx.Rows) (T, error)

// Postgres is a finite leaf source over a Postgres query. The query must
// be deterministic (a stable ORDER BY over an unchanging result set);
// the position is the number of rows consumed, and reload re-issues the
// query with an OFFSET clause rather than replaying rows.
//
// The query is opened lazily on the first Next after construction, reset,
// or reload, so building a pipeline touches the database only when pulled
// from. The pool is borrowed, not owned: Close releases the open rows but
// leaves the pool alone.
type Postgres[T any] struct {
	db    Querier
	query string
	args  []any
	scan  RowScanner[T]
	name  datapipe.Name

	rows     pgx.Rows
	consumed int64
	done     bool
}

// NewPostgres creates a leaf over query. The query text must not already
// contain an OFFSET clause; the source appends its own on resume.
func NewPostgres[T any](name datapipe.Name, db Querier, query string, scan RowScanner[T], args ...any) *Postgres[T] {
	return &Postgres[T]{name: name, db: db, query: query, scan: scan, args: args}
}

// Next implements the Source interface.
func (p *Postgres[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if p.done {
		return zero, false, nil
	}
	if p.rows == nil {
		if err := p.open(ctx); err != nil {
			return zero, false, err
		}
	}
	if !p.rows.Next() {
		err := p.rows.Err()
		p.rows.Close()
		p.rows = nil
		p.done = err == nil
		return zero, false, err
	}
	item, err := p.scan(p.rows)
	if err != nil {
		return zero, false, fmt.Errorf("source %q: scan row %d: %w", p.name, p.consumed, err)
	}
	p.consumed++
	return item, true, nil
}

func (p *Postgres[T]) open(ctx context.Context) error {
	q := p.query
	if p.consumed > 0 {
		q = fmt.Sprintf("%s OFFSET %d", q, p.consumed)
	}
	rows, err := p.db.Query(ctx, q, p.args...)
	if err != nil {
		return fmt.Errorf("source %q: %w", p.name, err)
	}
	p.rows = rows
	return nil
}

// Reset implements the Source interface.
func (p *Postgres[T]) Reset() error {
	p.closeRows()
	p.consumed = 0
	p.done = false
	return nil
}

// RecordPosition implements the Source interface.
func (p *Postgres[T]) RecordPosition(_ context.Context, t *datapipe.Tape, _ datapipe.Mode) error {
	t.Append(p.consumed)
	t.Append(p.done)
	return nil
}

// ReloadPosition implements the Source interface. The query is re-issued
// lazily with the recorded offset on the next pull.
func (p *Postgres[T]) ReloadPosition(_ context.Context, t *datapipe.Tape, _ datapipe.Mode) error {
	consumed, err := t.ReadInt()
	if err != nil {
		return fmt.Errorf("source %q: %w", p.name, err)
	}
	done, err := t.ReadBool()
	if err != nil {
		return fmt.Errorf("source %q: %w", p.name, err)
	}
	if consumed < 0 {
		return fmt.Errorf("source %q: %w: negative row count %d", p.name, datapipe.ErrPositionMismatch, consumed)
	}
	p.closeRows()
	p.consumed = consumed
	p.done = done
	return nil
}

// Infinite implements the Source interface.
func (*Postgres[T]) Infinite() bool {
	return false
}

// Name returns the name of this source.
func (p *Postgres[T]) Name() datapipe.Name {
	return p.name
}

// Close releases any open rows. The pool is borrowed and stays open.
func (p *Postgres[T]) Close() error {
	p.closeRows()
	return nil
}

func (p *Postgres[T]) closeRows() {
	if p.rows != nil {
		p.rows.Close()
		p.rows = nil
	}
}
