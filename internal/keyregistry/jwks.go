package keyregistry

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	dErrors "feedlog/pkg/domain-errors"
)

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string   `json:"kty"`
	Kid string   `json:"kid"`
	X5c []string `json:"x5c"`
	N   string   `json:"n"`
	E   string   `json:"e"`
}

// ParseJWKS converts a JSON Web Key Set into registry keys bound to issuer.
// A key's x5c leaf certificate wins over its n/e members.
func ParseJWKS(data []byte, issuer string) ([]Key, error) {
	var set jwkSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid JWKS document")
	}

	keys := make([]Key, 0, len(set.Keys))
	for i, k := range set.Keys {
		if k.Kid == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("JWKS key %d has no kid", i))
		}
		der, err := k.der()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "JWKS key "+k.Kid+" is unusable")
		}
		keys = append(keys, Key{KID: k.Kid, Issuer: issuer, DER: der})
	}
	return keys, nil
}

func (k jwk) der() ([]byte, error) {
	if len(k.X5c) > 0 {
		der, err := base64.StdEncoding.DecodeString(k.X5c[0])
		if err != nil {
			return nil, fmt.Errorf("decode x5c: %w", err)
		}
		if _, err := x509.ParseCertificate(der); err != nil {
			return nil, fmt.Errorf("parse x5c certificate: %w", err)
		}
		return der, nil
	}

	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported kty %q", k.Kty)
	}
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil || len(n) == 0 {
		return nil, fmt.Errorf("decode modulus")
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil || len(e) == 0 || len(e) > 4 {
		return nil, fmt.Errorf("decode exponent")
	}
	pub := &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}
	return x509.MarshalPKIXPublicKey(pub)
}
