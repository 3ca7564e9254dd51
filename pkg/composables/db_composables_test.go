package composables

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type recordingTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *recordingTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *recordingTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type recordingPool struct {
	txs []*recordingTx
}

func (p *recordingPool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (p *recordingPool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (p *recordingPool) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (p *recordingPool) Begin(context.Context) (pgx.Tx, error) {
	tx := &recordingTx{}
	p.txs = append(p.txs, tx)
	return tx, nil
}

func TestInTx_CommitsAndRollsBack(t *testing.T) {
	t.Parallel()

	pool := &recordingPool{}
	ctx := WithPool(context.Background(), pool)

	require.NoError(t, InTx(ctx, func(txCtx context.Context) error {
		tx, err := UseTx(txCtx)
		require.NoError(t, err)
		require.Same(t, pool.txs[0], tx)
		return nil
	}))
	require.True(t, pool.txs[0].committed)

	boom := errors.New("boom")
	require.ErrorIs(t, InTx(ctx, func(context.Context) error { return boom }), boom)
	require.True(t, pool.txs[1].rolledBack)
	require.False(t, pool.txs[1].committed)
}

func TestInTx_AlwaysOpensNewTransaction(t *testing.T) {
	t.Parallel()

	pool := &recordingPool{}
	ctx := WithPool(context.Background(), pool)
	require.NoError(t, InTx(ctx, func(outer context.Context) error {
		return InTx(outer, func(context.Context) error { return nil })
	}))
	require.Len(t, pool.txs, 2)
}

func TestUseTx_FallsBackToPool(t *testing.T) {
	t.Parallel()

	_, err := UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)

	pool := &recordingPool{}
	tx, err := UseTx(WithPool(context.Background(), pool))
	require.NoError(t, err)
	require.Same(t, pool, tx)
}
