// Package trm runs repository calls inside one pgx transaction carried by the context.
package trm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const actionRollbackFailed = "database_rollback_failed"

type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Manager opens pgx transactions and hands them to repositories through the context.
type Manager struct {
	begin func(ctx context.Context) (pgx.Tx, error)
	l     logger.Logger
}

func New(db *pgxpool.Pool, l logger.Logger) *Manager {
	return &Manager{begin: db.Begin, l: l}
}

type ctxKeyTx struct{}

// FromContext returns the transaction opened by Do, if any.
func FromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(ctxKeyTx{}).(pgx.Tx)
	return tx, ok
}

// Do runs fn in a transaction, committing when fn succeeds and rolling back otherwise.
// A nested call joins the outer transaction; only the outermost Do commits.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	ctx = context.WithValue(ctx, ctxKeyTx{}, tx)

	defer func() {
		if p := recover(); p != nil {
			if rbErr := m.rollback(ctx, tx); rbErr != nil && m.l != nil {
				m.l.Error(wrap.WithAction(ctx, actionRollbackFailed), "failed to rollback tx after panic", rbErr)
			}
			panic(p)
		}
	}()

	if err = fn(ctx); err != nil {
		if rbErr := m.rollback(ctx, tx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to rollback tx: %w", rbErr))
		}
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}

// rollback survives a cancelled request context.
func (m *Manager) rollback(ctx context.Context, tx pgx.Tx) error {
	return tx.Rollback(context.WithoutCancel(ctx))
}
