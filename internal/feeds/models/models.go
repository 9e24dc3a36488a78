package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	dErrors "feedlog/pkg/domain-errors"
)

// FeedSeparator joins issuer and subject into a feed name. Issuers cannot
// contain it, so splitting at the first occurrence is unambiguous.
const FeedSeparator = "|"

const MaxSubjectLength = 512

// FeedName returns the identity of the feed that subject names under issuer.
func FeedName(issuer, subject string) string {
	return issuer + FeedSeparator + subject
}

// SplitFeedName reverses FeedName.
func SplitFeedName(feed string) (issuer, subject string, ok bool) {
	return strings.Cut(feed, FeedSeparator)
}

// ValidateSubject rejects empty and oversized subjects, invalid UTF-8 and
// control characters.
func ValidateSubject(subject string) error {
	if subject == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	if len(subject) > MaxSubjectLength {
		return dErrors.New(dErrors.CodeInvalidInput, "subject is too long")
	}
	if !utf8.ValidString(subject) {
		return dErrors.New(dErrors.CodeInvalidInput, "subject must be valid UTF-8")
	}
	if strings.IndexFunc(subject, unicode.IsControl) >= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "subject contains control characters")
	}
	return nil
}

// ContentHash is the hex SHA-256 of the raw envelope bytes.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// StoredItem is one accepted submission. Items are immutable once written;
// (Issuer, Subject, Seqno) is the key.
type StoredItem struct {
	Issuer      string
	Subject     string
	Seqno       uint64
	ContentHash string
	// Envelope holds the raw JWS only when the deployment stores envelopes.
	Envelope    []byte
	SubmittedAt time.Time
}

func (i *StoredItem) Feed() string {
	return FeedName(i.Issuer, i.Subject)
}

// Reference is the stable handle returned to submitters.
func (i *StoredItem) Reference() string {
	return "sha256:" + i.ContentHash
}

// Receipt confirms a committed submission.
type Receipt struct {
	Issuer        string `json:"issuer"`
	Subject       string `json:"subject"`
	Seqno         uint64 `json:"seqno"`
	ItemReference string `json:"item_reference"`
}

func NewReceipt(item *StoredItem) *Receipt {
	return &Receipt{
		Issuer:        item.Issuer,
		Subject:       item.Subject,
		Seqno:         item.Seqno,
		ItemReference: item.Reference(),
	}
}
