package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"feedlog/internal/namespace/models"
	"feedlog/internal/platform/postgres"
	"feedlog/pkg/platform/sentinel"
)

// Postgres persists namespaces in the namespaces table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const (
	// xmax = 0 on the returned row identifies a fresh insert.
	upsertNamespace = `
		INSERT INTO namespaces (issuer, trust_policy, owner_hash, writer_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (issuer) DO UPDATE SET
			trust_policy = EXCLUDED.trust_policy,
			owner_hash = EXCLUDED.owner_hash,
			writer_hash = EXCLUDED.writer_hash,
			updated_at = EXCLUDED.updated_at,
			version = namespaces.version + 1
		RETURNING created_at, version, (xmax = 0) AS inserted
	`
	insertNamespace = `
		INSERT INTO namespaces (issuer, trust_policy, owner_hash, writer_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (issuer) DO NOTHING
		RETURNING created_at, version, true
	`
	updateNamespaceIfOwner = `
		UPDATE namespaces SET
			trust_policy = $2,
			owner_hash = $3,
			writer_hash = $4,
			updated_at = $5,
			version = version + 1
		WHERE issuer = $1 AND owner_hash = $6
		RETURNING created_at, version, false
	`
)

// Upsert writes ns under pre and fills in the stored CreatedAt and Version.
// A failed precondition (row already present for
// ExpectAbsent, owner hash changed for ExpectOwner) is sentinel.ErrConflict.
func (s *Postgres) Upsert(ctx context.Context, ns *models.Namespace, pre *models.Precondition) (bool, error) {
	policy := string(ns.TrustPolicy)
	owner, writer := ns.Permissions.OwnerHash, ns.Permissions.WriterHash

	var (
		query string
		args  []any
	)
	switch {
	case pre == nil:
		query = upsertNamespace
		args = []any{ns.Issuer, policy, owner, writer, ns.CreatedAt, ns.UpdatedAt}
	case pre.Absent:
		query = insertNamespace
		args = []any{ns.Issuer, policy, owner, writer, ns.CreatedAt, ns.UpdatedAt}
	default:
		query = updateNamespaceIfOwner
		args = []any{ns.Issuer, policy, owner, writer, ns.UpdatedAt, pre.OwnerHash}
	}

	var inserted bool
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&ns.CreatedAt, &ns.Version, &inserted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, sentinel.ErrConflict
		}
		return false, fmt.Errorf("upsert namespace: %w", postgres.MapError(err))
	}
	return inserted, nil
}

func (s *Postgres) FindByIssuer(ctx context.Context, issuer string) (*models.Namespace, error) {
	query := `
		SELECT issuer, trust_policy, owner_hash, writer_hash, created_at, updated_at, version
		FROM namespaces WHERE issuer = $1
	`
	var ns models.Namespace
	var policy string
	err := s.db.QueryRowContext(ctx, query, issuer).Scan(
		&ns.Issuer,
		&policy,
		&ns.Permissions.OwnerHash,
		&ns.Permissions.WriterHash,
		&ns.CreatedAt,
		&ns.UpdatedAt,
		&ns.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find namespace: %w", postgres.MapError(err))
	}
	ns.TrustPolicy = models.PolicyKind(policy)
	return &ns, nil
}
