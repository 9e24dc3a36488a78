package verifier

import (
	"context"
	"errors"
	"fmt"

	"feedlog/internal/keyregistry"
	"feedlog/pkg/platform/sentinel"
)

// JWKS resolves the header kid through the key registry and requires the
// registry's trusted issuer for that kid to be https://{claimed issuer}.
type JWKS struct {
	v    *Verifier
	keys keyregistry.Reader
}

func (s *JWKS) Verify(ctx context.Context, env *Envelope, claimedIssuer string) (*Identity, error) {
	kid, ok := env.headerString("kid")
	if !ok {
		return nil, reject(ReasonMissingCredential, "envelope header has no kid", nil)
	}

	keyBytes, err := s.keys.PublicKey(ctx, kid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, reject(ReasonKeyNotFound, "no key registered for kid "+kid, nil)
		}
		return nil, fmt.Errorf("look up signing key: %w", err)
	}
	key, err := parseRSAPublicKey(keyBytes)
	if err != nil {
		return nil, reject(ReasonKeyNotFound, "registered key for kid "+kid+" is unusable", err)
	}

	if err := s.v.checkSignature(env, key); err != nil {
		return nil, err
	}

	trusted, err := s.keys.TrustedIssuer(ctx, kid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, reject(ReasonKeyNotFound, "no trusted issuer registered for kid "+kid, nil)
		}
		return nil, fmt.Errorf("look up trusted issuer: %w", err)
	}
	if want := "https://" + claimedIssuer; trusted != want {
		return nil, reject(ReasonIdentityMismatch,
			"key "+kid+" is trusted for "+trusted+", not "+want, nil)
	}
	return identity(env, claimedIssuer), nil
}
