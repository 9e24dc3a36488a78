package keyregistry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"feedlog/pkg/platform/sentinel"
)

// Postgres reads and (for governance tooling) replaces registry rows in signing_keys.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (r *Postgres) PublicKey(ctx context.Context, kid string) ([]byte, error) {
	var der []byte
	err := r.db.QueryRowContext(ctx, `SELECT key_der FROM signing_keys WHERE kid = $1`, kid).Scan(&der)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find signing key: %w", err)
	}
	if len(der) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return der, nil
}

func (r *Postgres) TrustedIssuer(ctx context.Context, kid string) (string, error) {
	var issuer string
	err := r.db.QueryRowContext(ctx, `SELECT issuer FROM signing_keys WHERE kid = $1`, kid).Scan(&issuer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find key issuer: %w", err)
	}
	return issuer, nil
}

// ReplaceIssuerKeys upserts keys and prunes the issuer's kids that are no
// longer published, in one transaction.
func (r *Postgres) ReplaceIssuerKeys(ctx context.Context, issuer string, keys []Key) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin key import tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	kids := make([]string, 0, len(keys))
	for _, k := range keys {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO signing_keys (kid, issuer, key_der, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (kid) DO UPDATE SET
				issuer = EXCLUDED.issuer,
				key_der = EXCLUDED.key_der,
				updated_at = EXCLUDED.updated_at
		`, k.KID, issuer, k.DER)
		if err != nil {
			return fmt.Errorf("upsert signing key %s: %w", k.KID, err)
		}
		kids = append(kids, k.KID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM signing_keys WHERE issuer = $1 AND NOT (kid = ANY($2))`,
		issuer, pq.Array(kids),
	); err != nil {
		return fmt.Errorf("prune signing keys: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit key import tx: %w", err)
	}
	return nil
}

// List returns all keys ordered by kid.
func (r *Postgres) List(ctx context.Context) ([]Key, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kid, issuer, key_der FROM signing_keys ORDER BY kid`)
	if err != nil {
		return nil, fmt.Errorf("list signing keys: %w", err)
	}
	defer rows.Close()

	var out []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.KID, &k.Issuer, &k.DER); err != nil {
			return nil, fmt.Errorf("scan signing key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
