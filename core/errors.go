package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// RuleKind classifies a business-rule rejection.
type RuleKind string

const (
	SequencingError             RuleKind = "SequencingError"
	SessionOrderingError        RuleKind = "SessionOrderingError"
	DuplicateRecordError        RuleKind = "DuplicateRecordError"
	HandoverAmountError         RuleKind = "HandoverAmountError"
	PaymentHistoryConflictError RuleKind = "PaymentHistoryConflictError"
	ConfirmationRequiredError   RuleKind = "ConfirmationRequiredError"
	ConcurrentUpdateError       RuleKind = "ConcurrentUpdateError"
)

// RuleError is a deterministic rejection of a requested state transition.
// The operation was not performed; Reason is meant for display.
type RuleError struct {
	Kind   RuleKind
	Reason string
}

func NewRuleError(kind RuleKind, format string, args ...interface{}) error {
	return &RuleError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (err RuleError) Error() string {
	return err.Reason
}

// RuleKindOf returns the RuleKind of err (or its cause), if any.
func RuleKindOf(err error) (RuleKind, bool) {
	if rerr, ok := errors.Cause(err).(*RuleError); ok {
		return rerr.Kind, true
	}
	return "", false
}

// IsRuleKind reports whether err is a RuleError of the given kind.
func IsRuleKind(err error, kind RuleKind) bool {
	k, ok := RuleKindOf(err)
	return ok && k == kind
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
