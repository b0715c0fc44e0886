package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx operations shared by the pool and a transaction.
// Repositories accept it so the same code runs standalone or inside an ambient
// transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txCtxKey struct{}

// WithTx returns a context carrying tx as the ambient transaction.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

// TxFrom returns the ambient transaction, if any.
func TxFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx)
	return tx, ok
}

// QuerierFrom resolves the ambient transaction from ctx, falling back to
// fallback (typically the pool) when no transaction is active.
func QuerierFrom(ctx context.Context, fallback Querier) Querier {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return fallback
}

// TxManager runs a function inside a database transaction carried on the
// context. Commit happens only when fn returns nil; any error rolls back and
// is returned to the caller unchanged.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type pgxTxManager struct {
	pool   *Pool
	logger *slog.Logger
}

func NewTxManager(pool *Pool, logger *slog.Logger) TxManager {
	return &pgxTxManager{pool: pool, logger: logger}
}

func (m *pgxTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}

	// Commit and rollback run on a non-cancellable context: once fn has
	// returned, the outcome depends only on its error, not on a caller
	// cancellation arriving afterwards.
	finishCtx := context.WithoutCancel(ctx)

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(finishCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			m.logger.Error("transaction rollback failed", "err", rbErr)
		}
		return err
	}
	return tx.Commit(finishCtx)
}
