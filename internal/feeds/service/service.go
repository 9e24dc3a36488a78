// Package service runs the submission pipeline: parse the envelope, find the
// namespace, verify the signer against the namespace's trust policy,
// authorize, then allocate a seqno and persist the item in one transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"feedlog/internal/feeds/metrics"
	"feedlog/internal/feeds/models"
	nsmodels "feedlog/internal/namespace/models"
	"feedlog/internal/namespace/secrets"
	"feedlog/internal/verifier"
	dErrors "feedlog/pkg/domain-errors"
	"feedlog/pkg/platform/sentinel"
	"feedlog/pkg/requestcontext"
)

// Store holds seqno records and items. The write methods are only called
// inside FeedStoreTx.RunInTx.
type Store interface {
	LastSeqno(ctx context.Context, feed string) (uint64, error)
	SetSeqno(ctx context.Context, feed string, seqno uint64) error
	PutItem(ctx context.Context, item *models.StoredItem) error
	Latest(ctx context.Context, feed string) (*models.StoredItem, error)
	Item(ctx context.Context, feed string, seqno uint64) (*models.StoredItem, error)
}

// Namespaces resolves the namespace a submission claims.
type Namespaces interface {
	Get(ctx context.Context, issuer string) (*nsmodels.Namespace, error)
}

// Verifier authenticates an envelope under a stored policy tag.
type Verifier interface {
	Verify(ctx context.Context, policy nsmodels.PolicyKind, env *verifier.Envelope, claimedIssuer string) (*verifier.Identity, error)
}

// EventPublisher announces committed items.
type EventPublisher interface {
	PublishItem(ctx context.Context, item *models.StoredItem) error
}

// State is a submission's position in the pipeline.
type State int

const (
	StateReceived State = iota
	StateParsed
	StateIdentityVerified
	StateNamespaceAuthorized
	StateSeqnoAllocated
	StatePersisted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateParsed:
		return "parsed"
	case StateIdentityVerified:
		return "identity_verified"
	case StateNamespaceAuthorized:
		return "namespace_authorized"
	case StateSeqnoAllocated:
		return "seqno_allocated"
	case StatePersisted:
		return "persisted"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// SubmitRequest is one submission. Issuer and Subject are set by the
// path-scoped route and left empty by the self-describing one, which takes
// them from the iss and sub claims.
type SubmitRequest struct {
	Envelope    []byte
	Issuer      string
	Subject     string
	WriterToken string
}

type Service struct {
	store         Store
	tx            FeedStoreTx
	namespaces    Namespaces
	verifier      Verifier
	publisher     EventPublisher
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	storeEnvelope bool
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

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithStoreEnvelope keeps the raw envelope next to its hash.
func WithStoreEnvelope(enabled bool) Option {
	return func(s *Service) {
		s.storeEnvelope = enabled
	}
}

// WithTx replaces the default in-memory ShardedTx, e.g. with a Postgres transaction runner.
func WithTx(tx FeedStoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func New(store Store, namespaces Namespaces, v Verifier, opts ...Option) *Service {
	s := &Service{
		store:      store,
		namespaces: namespaces,
		verifier:   v,
		logger:     slog.Default(),
		tracer:     otel.Tracer("feedlog/feeds"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx(store, 0)
	}
	return s
}

// Submit runs the pipeline and returns the receipt of the committed item.
// Nothing is allocated or written unless every check before the transaction passes.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.Receipt, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "feeds.Submit")
	defer span.End()

	state := StateReceived
	receipt, err := s.submit(ctx, span, req, &state)
	s.metrics.ObserveSubmitLatency(time.Since(start))
	if err != nil {
		outcome := outcomeOf(err)
		s.metrics.IncrementSubmission(outcome)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		span.AddEvent(StateRejected.String(), trace.WithAttributes(
			attribute.String("feedlog.rejected_at", state.String()),
			attribute.String("feedlog.outcome", outcome),
		))

		logArgs := []any{
			"request_id", requestcontext.RequestID(ctx),
			"rejected_at", state.String(),
			"outcome", outcome,
			"error", err,
		}
		if outcome == "error" {
			s.logger.ErrorContext(ctx, "submission failed", logArgs...)
		} else {
			s.logger.InfoContext(ctx, "submission rejected", logArgs...)
		}
		return nil, err
	}

	s.metrics.IncrementSubmission("accepted")
	return receipt, nil
}

func (s *Service) submit(ctx context.Context, span trace.Span, req SubmitRequest, state *State) (*models.Receipt, error) {
	advance := func(next State) {
		*state = next
		span.AddEvent(next.String())
	}

	env, err := verifier.ParseEnvelope(req.Envelope)
	if err != nil {
		return nil, s.rejection(err)
	}
	advance(StateParsed)

	claimedIssuer := req.Issuer
	if claimedIssuer == "" {
		iss, ok := env.Claim("iss")
		if !ok {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "envelope has no iss claim and no issuer was given")
		}
		claimedIssuer = iss
	}
	span.SetAttributes(attribute.String("feedlog.issuer", claimedIssuer))

	ns, err := s.namespaces.Get(ctx, claimedIssuer)
	if err != nil {
		return nil, err
	}

	identity, err := s.verifier.Verify(ctx, ns.TrustPolicy, env, claimedIssuer)
	if err != nil {
		if _, ok := verifier.ReasonOf(err); ok {
			return nil, s.rejection(err)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify envelope")
	}
	advance(StateIdentityVerified)

	subject, err := s.authorize(ns, env, identity, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("feedlog.subject", subject))
	advance(StateNamespaceAuthorized)

	item := &models.StoredItem{
		Issuer:      ns.Issuer,
		Subject:     subject,
		ContentHash: models.ContentHash(env.Raw),
		SubmittedAt: requestcontext.Now(ctx),
	}
	if s.storeEnvelope {
		item.Envelope = env.Raw
	}

	feed := item.Feed()
	err = s.tx.RunInTx(ctx, feed, func(ctx context.Context, store Store) error {
		seqno, err := NextSeqno(ctx, store, feed)
		if err != nil {
			return err
		}
		item.Seqno = seqno
		advance(StateSeqnoAllocated)

		if err := store.PutItem(ctx, item); err != nil {
			return err
		}
		return store.SetSeqno(ctx, feed, seqno)
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	advance(StatePersisted)
	span.SetAttributes(attribute.Int64("feedlog.seqno", int64(item.Seqno)))

	s.logger.InfoContext(ctx, "item persisted",
		"request_id", requestcontext.RequestID(ctx),
		"issuer", item.Issuer,
		"subject", item.Subject,
		"seqno", item.Seqno,
	)
	s.publish(ctx, item)
	return models.NewReceipt(item), nil
}

// authorize binds the verified identity to the namespace and resolves the
// subject. Payload iss/sub, when present, must agree with the path.
func (s *Service) authorize(ns *nsmodels.Namespace, env *verifier.Envelope, id *verifier.Identity, req SubmitRequest) (string, error) {
	if id.Issuer != ns.Issuer {
		return "", dErrors.New(dErrors.CodeInvalidInput, "verified issuer does not own this namespace")
	}
	if iss, ok := env.Claim("iss"); ok && iss != ns.Issuer {
		return "", dErrors.New(dErrors.CodeInvalidInput, "iss claim does not match the namespace issuer")
	}

	subject := req.Subject
	if subject == "" {
		subject = id.Subject
	} else if sub, ok := env.Claim("sub"); ok && sub != subject {
		return "", dErrors.New(dErrors.CodeInvalidInput, "sub claim does not match the feed subject")
	}
	if err := models.ValidateSubject(subject); err != nil {
		return "", err
	}

	if ns.Permissions.HasWriter() {
		if err := secrets.Verify(req.WriterToken, ns.Permissions.WriterHash); err != nil {
			if errors.Is(err, secrets.ErrMismatch) {
				return "", dErrors.New(dErrors.CodeForbidden, "writer credential required to submit to this namespace")
			}
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify writer credential")
		}
	}
	return subject, nil
}

func (s *Service) rejection(err error) error {
	reason, _ := verifier.ReasonOf(err)
	s.metrics.IncrementRejection(string(reason))
	var rej *verifier.RejectionError
	if errors.As(err, &rej) {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, string(rej.Reason)+": "+rej.Message)
	}
	return dErrors.Wrap(err, dErrors.CodeInvalidInput, "envelope rejected")
}

func (s *Service) publish(ctx context.Context, item *models.StoredItem) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishItem(ctx, item); err != nil {
		s.metrics.IncrementPublishFailure()
		s.logger.WarnContext(ctx, "failed to publish item event",
			"request_id", requestcontext.RequestID(ctx),
			"feed", item.Feed(),
			"seqno", item.Seqno,
			"error", err,
		)
	}
}

// Latest returns the most recent item of the feed.
func (s *Service) Latest(ctx context.Context, issuer, subject string) (*models.StoredItem, error) {
	item, err := s.store.Latest(ctx, models.FeedName(issuer, subject))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "feed has no items")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read feed")
	}
	return item, nil
}

// Item returns the item stored under seqno.
func (s *Service) Item(ctx context.Context, issuer, subject string, seqno uint64) (*models.StoredItem, error) {
	item, err := s.store.Item(ctx, models.FeedName(issuer, subject), seqno)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read item")
	}
	return item, nil
}

func translateStoreError(err error) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, "concurrent submission to the same feed, retry")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist item")
	}
}

func outcomeOf(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidInput:
		return "invalid"
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeForbidden:
		return "forbidden"
	case dErrors.CodeConflict:
		return "conflict"
	default:
		return "error"
	}
}
