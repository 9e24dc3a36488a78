package verifier

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedlog/pkg/testutil"
)

func TestParseEnvelope(t *testing.T) {
	id := testutil.NewSigningIdentity(t, "example.com")
	signed := id.SignWithCert(t, jwt.MapClaims{"iss": "example.com", "sub": "item_a", "n": 1})

	env, err := ParseEnvelope([]byte(signed + "\n"))
	require.NoError(t, err)
	assert.Equal(t, signed, string(env.Raw))
	assert.Equal(t, "RS256", env.Header["alg"])

	iss, ok := env.Claim("iss")
	assert.True(t, ok)
	assert.Equal(t, "example.com", iss)

	_, ok = env.Claim("n")
	assert.False(t, ok, "non-string claims are absent")

	chain, ok := env.headerStrings("x5c")
	require.True(t, ok)
	assert.Equal(t, id.X5C(), chain)
}

func TestParseEnvelopeRejectsMalformed(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":           "",
		"not a jws":       "hello",
		"four segments":   "a.b.c.d",
		"bad base64":      "!!!.@@@.###",
		"header not json": "aGVsbG8.e30.c2ln",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(raw))
			reason, ok := ReasonOf(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, ReasonInvalidFormat, reason)
		})
	}
}
