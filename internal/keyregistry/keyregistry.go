// Package keyregistry holds the externally governed signing-key registry:
// kid -> public key bytes and kid -> trusted issuer URL.
//
// The submission path only reads it through Reader. Writes come from the
// out-of-band governance process (feedctl keys import, or KEY_MANIFEST at boot).
package keyregistry

//go:generate mockgen -source=keyregistry.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"strings"

	dErrors "feedlog/pkg/domain-errors"
)

// Key is one registry entry. DER is either a DER certificate or a DER PKIX
// public key.
type Key struct {
	KID    string
	Issuer string
	DER    []byte
}

// Reader is the read-only view consumed by envelope verification. Both
// methods return sentinel.ErrNotFound for unknown kids.
type Reader interface {
	PublicKey(ctx context.Context, kid string) ([]byte, error)
	TrustedIssuer(ctx context.Context, kid string) (string, error)
}

// Writer replaces the full key set of one issuer.
type Writer interface {
	ReplaceIssuerKeys(ctx context.Context, issuer string, keys []Key) error
}

// IssuerKeys is the key set governance assigns to one trusted issuer URL.
type IssuerKeys struct {
	Issuer string
	Keys   []Key
}

// Validate checks that every key belongs to the set's issuer and has a kid and key bytes.
func (s IssuerKeys) Validate() error {
	if strings.TrimSpace(s.Issuer) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer is required")
	}
	seen := make(map[string]struct{}, len(s.Keys))
	for _, k := range s.Keys {
		if k.KID == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "key without kid for issuer "+s.Issuer)
		}
		if len(k.DER) == 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "key "+k.KID+" has no key material")
		}
		if k.Issuer != s.Issuer {
			return dErrors.New(dErrors.CodeInvalidInput, "key "+k.KID+" is bound to a different issuer")
		}
		if _, dup := seen[k.KID]; dup {
			return dErrors.New(dErrors.CodeInvalidInput, "duplicate kid "+k.KID)
		}
		seen[k.KID] = struct{}{}
	}
	return nil
}

// Import applies every issuer key set through w.
func Import(ctx context.Context, w Writer, sets []IssuerKeys) error {
	for _, set := range sets {
		if err := set.Validate(); err != nil {
			return err
		}
		if err := w.ReplaceIssuerKeys(ctx, set.Issuer, set.Keys); err != nil {
			return err
		}
	}
	return nil
}
