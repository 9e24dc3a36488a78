package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"feedlog/internal/feeds/service"
	"feedlog/internal/platform/postgres"
	dErrors "feedlog/pkg/domain-errors"
	"feedlog/pkg/platform/tx"
)

// feedPostgresTx runs a submission's seqno allocation and item write in one
// SERIALIZABLE transaction. The transaction travels in ctx so the feed store
// picks it up through tx.Or.
type feedPostgresTx struct {
	db      *sql.DB
	store   service.Store
	timeout time.Duration
}

func newFeedPostgresTx(db *sql.DB, store service.Store, timeout time.Duration) *feedPostgresTx {
	return &feedPostgresTx{db: db, store: store, timeout: timeout}
}

func (t *feedPostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context, store service.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = service.DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "could not start transaction in time")
		}
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx), t.store); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return postgres.MapError(err)
	}
	return nil
}
