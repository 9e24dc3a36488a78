package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// SigningIdentity is an RSA key with a self-signed certificate, standing in
// for an issuer's TLS identity in envelope tests.
type SigningIdentity struct {
	Key     *rsa.PrivateKey
	Cert    *x509.Certificate
	CertDER []byte
}

// NewSigningIdentity generates a 2048-bit key and a certificate whose subject
// CN is commonName.
func NewSigningIdentity(t *testing.T, commonName string) *SigningIdentity {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "generate rsa key")

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		DNSNames:     []string{commonName},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err, "create certificate")

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err, "parse certificate")

	return &SigningIdentity{Key: key, Cert: cert, CertDER: der}
}

// X5C returns the certificate chain header value (standard base64 DER).
func (s *SigningIdentity) X5C() []string {
	return []string{base64.StdEncoding.EncodeToString(s.CertDER)}
}

// PublicKeyDER returns the PKIX encoding of the public key.
func (s *SigningIdentity) PublicKeyDER(t *testing.T) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&s.Key.PublicKey)
	require.NoError(t, err, "marshal public key")
	return der
}

// SignEnvelope produces a compact RS256 JWS with extra header fields.
func SignEnvelope(t *testing.T, key *rsa.PrivateKey, header map[string]any, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	for k, v := range header {
		token.Header[k] = v
	}
	signed, err := token.SignedString(key)
	require.NoError(t, err, "sign envelope")
	return signed
}

// SignWithCert signs claims and embeds the identity's certificate as x5c.
func (s *SigningIdentity) SignWithCert(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	return SignEnvelope(t, s.Key, map[string]any{"x5c": s.X5C()}, claims)
}

// SignWithKID signs claims and references the key by kid.
func (s *SigningIdentity) SignWithKID(t *testing.T, kid string, claims jwt.MapClaims) string {
	t.Helper()
	return SignEnvelope(t, s.Key, map[string]any{"kid": kid}, claims)
}
