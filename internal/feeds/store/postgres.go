package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"feedlog/internal/feeds/models"
	"feedlog/internal/platform/postgres"
	"feedlog/pkg/platform/sentinel"
	"feedlog/pkg/platform/tx"
)

// Postgres persists feeds in feed_seqnos and feed_items. When ctx carries a
// transaction (pkg/platform/tx) every statement runs inside it.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// LastSeqno locks the feed's seqno row for the rest of the transaction.
func (s *Postgres) LastSeqno(ctx context.Context, feed string) (uint64, error) {
	var seqno int64
	err := tx.Or(ctx, s.db).QueryRowContext(ctx,
		`SELECT seqno FROM feed_seqnos WHERE feed = $1 FOR UPDATE`, feed,
	).Scan(&seqno)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read seqno: %w", postgres.MapError(err))
	}
	return uint64(seqno), nil
}

func (s *Postgres) SetSeqno(ctx context.Context, feed string, seqno uint64) error {
	_, err := tx.Or(ctx, s.db).ExecContext(ctx, `
		INSERT INTO feed_seqnos (feed, seqno) VALUES ($1, $2)
		ON CONFLICT (feed) DO UPDATE SET seqno = EXCLUDED.seqno
	`, feed, int64(seqno))
	if err != nil {
		return fmt.Errorf("write seqno: %w", postgres.MapError(err))
	}
	return nil
}

func (s *Postgres) PutItem(ctx context.Context, item *models.StoredItem) error {
	_, err := tx.Or(ctx, s.db).ExecContext(ctx, `
		INSERT INTO feed_items (feed, seqno, issuer, subject, content_hash, envelope, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.Feed(), int64(item.Seqno), item.Issuer, item.Subject, item.ContentHash, item.Envelope, item.SubmittedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("write item: %w", postgres.MapError(err))
	}
	return nil
}

const itemColumns = `i.issuer, i.subject, i.seqno, i.content_hash, i.envelope, i.submitted_at`

func (s *Postgres) Latest(ctx context.Context, feed string) (*models.StoredItem, error) {
	row := tx.Or(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM feed_seqnos f
		JOIN feed_items i ON i.feed = f.feed AND i.seqno = f.seqno
		WHERE f.feed = $1
	`, feed)
	return scanItem(row)
}

func (s *Postgres) Item(ctx context.Context, feed string, seqno uint64) (*models.StoredItem, error) {
	row := tx.Or(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM feed_items i
		WHERE i.feed = $1 AND i.seqno = $2
	`, feed, int64(seqno))
	return scanItem(row)
}

func scanItem(row *sql.Row) (*models.StoredItem, error) {
	var (
		item  models.StoredItem
		seqno int64
	)
	err := row.Scan(&item.Issuer, &item.Subject, &seqno, &item.ContentHash, &item.Envelope, &item.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("read item: %w", postgres.MapError(err))
	}
	item.Seqno = uint64(seqno)
	return &item, nil
}
