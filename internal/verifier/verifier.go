// Package verifier authenticates submission envelopes against a namespace's
// trust policy. Each policy tag maps to one Strategy; the tag stored on the
// namespace selects it.
package verifier

import (
	"context"
	"crypto/rsa"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"feedlog/internal/keyregistry"
	"feedlog/internal/namespace/models"
)

// Identity is the authenticated origin of an envelope.
type Identity struct {
	Issuer  string
	Subject string
}

// Strategy verifies an envelope against one kind of trust policy and proves
// that it was produced by claimedIssuer.
type Strategy interface {
	Verify(ctx context.Context, env *Envelope, claimedIssuer string) (*Identity, error)
}

// ClockTrust says whether the process clock may be used for exp/nbf/iat.
type ClockTrust string

const (
	// ClockTrustNone skips all time-based claim checks.
	ClockTrustNone   ClockTrust = "none"
	ClockTrustSystem ClockTrust = "system"
)

// ParseClockTrust maps a config value onto a ClockTrust. Empty means none.
func ParseClockTrust(s string) (ClockTrust, error) {
	switch ClockTrust(s) {
	case "", ClockTrustNone:
		return ClockTrustNone, nil
	case ClockTrustSystem:
		return ClockTrustSystem, nil
	default:
		return "", errors.New("clock trust must be none or system")
	}
}

// Verifier owns the strategies and the shared signature check.
type Verifier struct {
	keys       keyregistry.Reader
	clockTrust ClockTrust
	leeway     time.Duration
	now        func() time.Time
	logger     *slog.Logger
	parser     *jwt.Parser
	strategies map[models.PolicyKind]Strategy
}

type Option func(*Verifier)

// WithClockTrust enables or disables time-based claim validation.
func WithClockTrust(trust ClockTrust, leeway time.Duration) Option {
	return func(v *Verifier) {
		v.clockTrust = trust
		v.leeway = leeway
	}
}

// WithClock overrides the time source used when clock trust is system.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

func New(keys keyregistry.Reader, opts ...Option) *Verifier {
	v := &Verifier{
		keys:       keys,
		clockTrust: ClockTrustNone,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	}
	if v.clockTrust == ClockTrustSystem {
		parserOpts = append(parserOpts,
			jwt.WithLeeway(v.leeway),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(v.now),
		)
	} else {
		parserOpts = append(parserOpts, jwt.WithoutClaimsValidation())
	}
	v.parser = jwt.NewParser(parserOpts...)

	v.strategies = map[models.PolicyKind]Strategy{
		models.PolicyTLSCert: &TLSCert{v: v},
		models.PolicyJWKS:    &JWKS{v: v, keys: keys},
	}
	return v
}

// For returns the strategy for a stored policy tag.
func (v *Verifier) For(policy models.PolicyKind) (Strategy, error) {
	s, ok := v.strategies[policy]
	if !ok {
		return nil, reject(ReasonUnknownPolicy, "no verification strategy for policy "+string(policy), nil)
	}
	return s, nil
}

// Verify dispatches env to the strategy selected by policy.
func (v *Verifier) Verify(ctx context.Context, policy models.PolicyKind, env *Envelope, claimedIssuer string) (*Identity, error) {
	s, err := v.For(policy)
	if err != nil {
		return nil, err
	}
	id, err := s.Verify(ctx, env, claimedIssuer)
	if err != nil {
		if reason, ok := ReasonOf(err); ok {
			v.logger.DebugContext(ctx, "envelope rejected",
				"policy", string(policy),
				"issuer", claimedIssuer,
				"reason", string(reason),
			)
		}
		return nil, err
	}
	return id, nil
}

func (v *Verifier) checkSignature(env *Envelope, key *rsa.PublicKey) error {
	_, err := v.parser.ParseWithClaims(string(env.Raw), jwt.MapClaims{}, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return reject(ReasonClaimsInvalid, "envelope time claims are not valid", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return reject(ReasonInvalidFormat, "envelope could not be decoded", err)
	default:
		return reject(ReasonSignatureInvalid, "signature does not verify", err)
	}
}

func identity(env *Envelope, issuer string) *Identity {
	sub, _ := env.Claim("sub")
	return &Identity{Issuer: issuer, Subject: sub}
}
