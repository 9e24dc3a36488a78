package verifier

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// parseRSAPublicKey accepts a DER certificate, a DER PKIX public key, or the
// PEM armoring of either.
func parseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}

	var pub any
	if cert, err := x509.ParseCertificate(data); err == nil {
		pub = cert.PublicKey
	} else if key, keyErr := x509.ParsePKIXPublicKey(data); keyErr == nil {
		pub = key
	} else {
		return nil, fmt.Errorf("neither certificate nor public key: %w", keyErr)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unsupported public key type %T", pub)
	}
	return rsaKey, nil
}
