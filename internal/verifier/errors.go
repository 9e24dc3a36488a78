package verifier

import (
	"errors"
	"fmt"
)

// Reason classifies why an envelope was rejected.
type Reason string

const (
	ReasonInvalidFormat     Reason = "InvalidFormat"
	ReasonMissingCredential Reason = "MissingCredential"
	ReasonKeyNotFound       Reason = "KeyNotFound"
	ReasonSignatureInvalid  Reason = "SignatureInvalid"
	ReasonClaimsInvalid     Reason = "ClaimsInvalid"
	ReasonIdentityMismatch  Reason = "IdentityMismatch"
	ReasonUnknownPolicy     Reason = "UnknownPolicy"
)

// RejectionError is returned for every envelope that fails verification.
// Infrastructure failures (registry unreachable) are returned as plain errors.
type RejectionError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *RejectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(reason Reason, message string, err error) error {
	return &RejectionError{Reason: reason, Message: message, Err: err}
}

// ReasonOf extracts the rejection reason, if err is a rejection.
func ReasonOf(err error) (Reason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
