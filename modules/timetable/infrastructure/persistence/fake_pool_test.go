package persistence

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakePool records statements per transaction and keeps only committed ones.
type fakePool struct {
	mu        sync.Mutex
	width     int
	failWhen  func(sql string, args []any) error
	committed [][]any
	begins    int
	rollbacks int
	execs     int
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begins++
	return &fakeTx{pool: p}, nil
}

func (p *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("exec outside transaction")
}

func (p *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("query not supported")
}

func (p *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

type fakeTx struct {
	pgx.Tx
	pool    *fakePool
	pending [][]any
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.pool.mu.Lock()
	t.pool.execs++
	fail := t.pool.failWhen
	t.pool.mu.Unlock()
	if fail != nil {
		if err := fail(sql, args); err != nil {
			return pgconn.CommandTag{}, err
		}
	}
	t.pending = append(t.pending, args)
	return pgconn.NewCommandTag("INSERT 0 " + strconv.Itoa(len(args)/t.pool.width)), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	t.pool.committed = append(t.pool.committed, t.pending...)
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	t.pool.rollbacks++
	t.pending = nil
	return nil
}

func (p *fakePool) committedRows() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, args := range p.committed {
		n += len(args) / p.width
	}
	return n
}
