// Package service implements the namespace registry: issuers claim a
// namespace once, pick the trust policy that authenticates their
// submissions, and may gate later updates and submissions behind
// owner/writer credentials.
package service

import (
	"context"
	"errors"
	"log/slog"

	"feedlog/internal/namespace/metrics"
	"feedlog/internal/namespace/models"
	"feedlog/internal/namespace/secrets"
	dErrors "feedlog/pkg/domain-errors"
	"feedlog/pkg/platform/sentinel"
	"feedlog/pkg/requestcontext"
)

type Store interface {
	Upsert(ctx context.Context, ns *models.Namespace, pre *models.Precondition) (bool, error)
	FindByIssuer(ctx context.Context, issuer string) (*models.Namespace, error)
}

// Credentials are the plaintext owner/writer tokens a registration sets.
// An empty field keeps the credential already stored.
type Credentials struct {
	OwnerToken  string
	WriterToken string
}

// RegisterRequest is the input of RegisterOrUpdate. PresentedOwnerToken is
// the credential that authorizes changing an existing, owner-gated record.
type RegisterRequest struct {
	Issuer              string
	TrustPolicy         string
	Credentials         Credentials
	PresentedOwnerToken string
}

type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterOrUpdate upserts the namespace for req.Issuer and reports whether
// the record was created.
func (s *Service) RegisterOrUpdate(ctx context.Context, req RegisterRequest) (bool, *models.Namespace, error) {
	policy, err := models.ParsePolicyKind(req.TrustPolicy)
	if err != nil {
		s.metrics.IncrementRegistration("rejected")
		return false, nil, err
	}
	if err := models.ValidateIssuer(req.Issuer); err != nil {
		s.metrics.IncrementRegistration("rejected")
		return false, nil, err
	}

	existing, err := s.store.FindByIssuer(ctx, req.Issuer)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load namespace")
	}

	// The write is conditioned on what was authorized here, so an owner
	// rotation that lands in between turns this request into a conflict.
	pre := models.ExpectAbsent()
	var perms models.Permissions
	if existing != nil {
		if err := s.authorizeOwner(existing, req.PresentedOwnerToken); err != nil {
			s.metrics.IncrementRegistration("forbidden")
			s.logger.WarnContext(ctx, "namespace update refused",
				"request_id", requestcontext.RequestID(ctx),
				"issuer", req.Issuer,
			)
			return false, nil, err
		}
		perms = existing.Permissions
		pre = models.ExpectOwner(existing.Permissions.OwnerHash)
	}
	if perms, err = applyCredentials(perms, req.Credentials); err != nil {
		return false, nil, err
	}

	ns, err := models.NewNamespace(req.Issuer, policy, perms, requestcontext.Now(ctx))
	if err != nil {
		return false, nil, err
	}
	created, err := s.store.Upsert(ctx, ns, pre)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return false, nil, dErrors.Wrap(err, dErrors.CodeConflict, "concurrent namespace update, retry")
		}
		return false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save namespace")
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	s.metrics.IncrementRegistration(outcome)
	s.logger.InfoContext(ctx, "namespace "+outcome,
		"request_id", requestcontext.RequestID(ctx),
		"issuer", ns.Issuer,
		"trust_policy", string(ns.TrustPolicy),
	)
	return created, ns, nil
}

// Get returns the namespace registered for issuer.
func (s *Service) Get(ctx context.Context, issuer string) (*models.Namespace, error) {
	ns, err := s.store.FindByIssuer(ctx, issuer)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementLookupMiss()
			return nil, dErrors.New(dErrors.CodeNotFound, "namespace not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load namespace")
	}
	return ns, nil
}

func (s *Service) authorizeOwner(existing *models.Namespace, presented string) error {
	if !existing.Permissions.HasOwner() {
		return nil
	}
	if err := secrets.Verify(presented, existing.Permissions.OwnerHash); err != nil {
		if errors.Is(err, secrets.ErrMismatch) {
			return dErrors.New(dErrors.CodeForbidden, "owner credential required to update this namespace")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify owner credential")
	}
	return nil
}

func applyCredentials(perms models.Permissions, creds Credentials) (models.Permissions, error) {
	if creds.OwnerToken != "" {
		hash, err := secrets.Hash(creds.OwnerToken)
		if err != nil {
			return perms, err
		}
		perms.OwnerHash = hash
	}
	if creds.WriterToken != "" {
		hash, err := secrets.Hash(creds.WriterToken)
		if err != nil {
			return perms, err
		}
		perms.WriterHash = hash
	}
	return perms, nil
}
