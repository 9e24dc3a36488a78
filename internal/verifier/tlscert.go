package verifier

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
)

// TLSCert trusts the leaf certificate carried in the x5c header and binds it
// to the issuer by exact subject CN match. The chain is not validated.
type TLSCert struct {
	v *Verifier
}

func (s *TLSCert) Verify(_ context.Context, env *Envelope, claimedIssuer string) (*Identity, error) {
	chain, ok := env.headerStrings("x5c")
	if !ok {
		return nil, reject(ReasonMissingCredential, "envelope header has no x5c certificate chain", nil)
	}

	der, err := base64.StdEncoding.DecodeString(chain[0])
	if err != nil {
		return nil, reject(ReasonInvalidFormat, "x5c leaf is not base64", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, reject(ReasonInvalidFormat, "x5c leaf is not a certificate", err)
	}
	key, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, reject(ReasonInvalidFormat, "x5c leaf does not carry an RSA key", nil)
	}

	if err := s.v.checkSignature(env, key); err != nil {
		return nil, err
	}

	if leaf.Subject.CommonName != claimedIssuer {
		return nil, reject(ReasonIdentityMismatch,
			"certificate subject "+leaf.Subject.CommonName+" does not match issuer "+claimedIssuer, nil)
	}
	return identity(env, claimedIssuer), nil
}
