package models

import (
	"strings"
	"time"

	dErrors "feedlog/pkg/domain-errors"
)

// MaxIssuerLength bounds issuer identities to the DNS name limit.
const MaxIssuerLength = 253

// PolicyKind tags the trust policy configured for a namespace. The tag is
// fixed per namespace and selects the verification strategy; it is never
// negotiated per submission.
type PolicyKind string

const (
	// PolicyTLSCert authenticates envelopes by the leaf certificate carried in x5c.
	PolicyTLSCert PolicyKind = "tlsCert"
	// PolicyJWKS authenticates envelopes by kid against the signing-key registry.
	PolicyJWKS PolicyKind = "jwks"
)

func (p PolicyKind) String() string {
	return string(p)
}

// ParsePolicyKind validates a policy tag from an external source.
func ParsePolicyKind(s string) (PolicyKind, error) {
	switch PolicyKind(strings.TrimSpace(s)) {
	case PolicyTLSCert:
		return PolicyTLSCert, nil
	case PolicyJWKS:
		return PolicyJWKS, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "trust_policy is required")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "trust_policy must be one of tlsCert, jwks")
	}
}

// Permissions holds bcrypt hashes of the namespace credentials. An empty hash
// means the corresponding action is not gated.
type Permissions struct {
	OwnerHash  string
	WriterHash string
}

func (p Permissions) HasOwner() bool  { return p.OwnerHash != "" }
func (p Permissions) HasWriter() bool { return p.WriterHash != "" }

// Namespace is the registered trust configuration for one issuer identity.
//
// Invariants:
//   - Issuer is a valid issuer identity (see ValidateIssuer) and is the record key
//   - TrustPolicy is a known PolicyKind
//   - CreatedAt is set on first registration and preserved across updates
//   - Version is assigned by the store: 1 on insert, +1 on every update
//   - records are never deleted; the last write wins among writers that
//     were authorized against the same stored owner credential
type Namespace struct {
	Issuer      string      `json:"issuer"`
	TrustPolicy PolicyKind  `json:"trust_policy"`
	Permissions Permissions `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Version     int64       `json:"-"`
}

// Precondition is the state an upsert was authorized against. Stores refuse
// the write with sentinel.ErrConflict when the stored record no longer
// matches. A nil *Precondition writes unconditionally.
type Precondition struct {
	// Absent requires that no record exists yet.
	Absent bool
	// OwnerHash must equal the stored owner hash when Absent is false.
	OwnerHash string
}

// ExpectAbsent guards a first registration.
func ExpectAbsent() *Precondition {
	return &Precondition{Absent: true}
}

// ExpectOwner guards an update authorized against the owner hash read earlier.
func ExpectOwner(hash string) *Precondition {
	return &Precondition{OwnerHash: hash}
}

// Holds reports whether stored (nil when absent) satisfies p.
func (p *Precondition) Holds(stored *Namespace) bool {
	switch {
	case p == nil:
		return true
	case p.Absent:
		return stored == nil
	default:
		return stored != nil && stored.Permissions.OwnerHash == p.OwnerHash
	}
}

// NewNamespace validates invariants and builds a namespace record.
func NewNamespace(issuer string, policy PolicyKind, perms Permissions, now time.Time) (*Namespace, error) {
	if err := ValidateIssuer(issuer); err != nil {
		return nil, err
	}
	if _, err := ParsePolicyKind(string(policy)); err != nil {
		return nil, err
	}
	return &Namespace{
		Issuer:      issuer,
		TrustPolicy: policy,
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidateIssuer accepts DNS names and URL-shaped identities of the form
// host[:port][/path]. Characters outside [A-Za-z0-9.-_~:/] are rejected, which
// keeps the feed-name separator out of the issuer identity space.
func ValidateIssuer(issuer string) error {
	if issuer == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer is required")
	}
	if len(issuer) > MaxIssuerLength {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer must be at most 253 characters")
	}
	if !isAlnum(issuer[0]) {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer must start with a letter or digit")
	}
	if strings.HasSuffix(issuer, "/") || strings.Contains(issuer, "//") {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer must not contain empty path segments")
	}
	for i := 0; i < len(issuer); i++ {
		c := issuer[i]
		if isAlnum(c) {
			continue
		}
		switch c {
		case '.', '-', '_', '~', ':', '/':
			continue
		}
		return dErrors.New(dErrors.CodeInvalidInput, "issuer contains an invalid character")
	}
	return nil
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
