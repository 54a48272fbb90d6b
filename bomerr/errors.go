// Package bomerr defines the structured error type shared by the ledger
// packages.
package bomerr

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	// KindEncoding: a value cannot be canonically encoded.
	KindEncoding Kind = "Encoding"
	// KindKeyFormat: bytes are not a key of the expected type.
	KindKeyFormat Kind = "KeyFormat"
	// KindSigning: the signing key is unusable.
	KindSigning Kind = "Signing"
	// KindValidation: a document or record is structurally invalid.
	KindValidation Kind = "Validation"
)

// Stable rule identifiers.
const (
	RuleEncodeValue      = "AIBOM-ENC-001"
	RuleEncodeNumber     = "AIBOM-ENC-002"
	RuleKeyPEM           = "AIBOM-KEY-001"
	RuleKeyType          = "AIBOM-KEY-002"
	RuleKeyID            = "AIBOM-KEY-003"
	RuleKeySeed          = "AIBOM-KEY-004"
	RuleSignKey          = "AIBOM-SIG-001"
	RuleSignDocument     = "AIBOM-SIG-002"
	RuleValDocument      = "AIBOM-VAL-001"
	RuleValComponent     = "AIBOM-VAL-002"
	RuleValFingerprint   = "AIBOM-VAL-003"
	RuleValOrigin        = "AIBOM-VAL-004"
	RuleValSignature     = "AIBOM-VAL-005"
	RuleValTimestamp     = "AIBOM-VAL-006"
	RuleValComponentType = "AIBOM-VAL-007"
)

// Error is the structured error type.
//
// RuleID names the violated rule (e.g. AIBOM-VAL-003). Message is intended for
// humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error without a cause.
func New(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// Wrap returns a structured error carrying cause. A nil cause behaves like New.
func Wrap(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return New(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
