package verifier

import (
	"bytes"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Envelope is a decoded, not yet verified, compact JWS.
type Envelope struct {
	Header map[string]any
	Claims jwt.MapClaims
	Raw    []byte
}

// ParseEnvelope decodes the header and payload of a compact JWS without
// checking the signature.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, reject(ReasonInvalidFormat, "envelope is empty", nil)
	}
	if strings.Count(string(raw), ".") != 2 {
		return nil, reject(ReasonInvalidFormat, "envelope is not a compact JWS", nil)
	}

	claims := jwt.MapClaims{}
	token, _, err := jwt.NewParser().ParseUnverified(string(raw), claims)
	if err != nil {
		return nil, reject(ReasonInvalidFormat, "envelope could not be decoded", err)
	}
	if alg, _ := token.Header["alg"].(string); alg == "" {
		return nil, reject(ReasonInvalidFormat, "envelope header has no alg", nil)
	}

	return &Envelope{
		Header: token.Header,
		Claims: claims,
		Raw:    raw,
	}, nil
}

// Claim returns a string claim from the payload. Non-string values count as absent.
func (e *Envelope) Claim(name string) (string, bool) {
	v, ok := e.Claims[name].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *Envelope) headerString(name string) (string, bool) {
	v, ok := e.Header[name].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// headerStrings reads a header member that must be a JSON array of strings.
func (e *Envelope) headerStrings(name string) ([]string, bool) {
	raw, ok := e.Header[name].([]any)
	if !ok || len(raw) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
