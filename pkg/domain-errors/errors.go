// Package domainerrors carries categorical error kinds across layers.
//
// Every guard failure in the condominium backend and the adapter is returned as
// an *Error with a Code. Transport layers map codes to status codes; callers
// branch on codes with HasCode instead of matching message text.
//
// Usage:
//
//	return dErrors.New(dErrors.CodeDuplicateTopic, "topic already exists")
//	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load topic")
//	if dErrors.HasCode(err, dErrors.CodeNotUpgraded) { ... }
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies an error kind. Values are stable and appear in API responses.
type Code string

// Guard failures raised by the access-control, voting and treasury subsystems.
const (
	CodePermissionDenied      Code = "permission_denied"
	CodeInvalidState          Code = "invalid_state"
	CodeNotFound              Code = "not_found"
	CodeDuplicateTopic        Code = "duplicate_topic"
	CodeDuplicateVote         Code = "duplicate_vote"
	CodeEmptyOption           Code = "empty_option"
	CodeQuorumNotMet          Code = "quorum_not_met"
	CodeInsufficientValue     Code = "insufficient_value"
	CodeAlreadyPaidThisPeriod Code = "already_paid_this_period"
	CodeAmountExceedsApproval Code = "amount_exceeds_approval"
	CodeInsufficientFunds     Code = "insufficient_funds"
	CodeNotAResident          Code = "not_a_resident"
	CodeProtectedRole         Code = "protected_role"
	CodeInvalidParticipant    Code = "invalid_participant"
	CodeUnknownResidence      Code = "unknown_residence"
	CodeInvalidCategoryAmount Code = "invalid_category_amount"
	CodeUnknownResident       Code = "unknown_resident"
	CodeWrongTopicState       Code = "wrong_topic_state"
)

// Guard failures raised by the upgrade adapter itself.
const (
	CodeInvalidAddress Code = "invalid_address"
	CodeNotUpgraded    Code = "not_upgraded"
)

// Infrastructure and request-shape failures.
const (
	CodeInvalidArgument Code = "invalid_argument"
	CodeUnauthorized    Code = "unauthorized"
	CodeTimeout         Code = "timeout"
	CodeInternal        Code = "internal_error"
)

// Error is a coded domain error. Message is safe to show to callers except for
// CodeInternal, whose message is replaced at the transport boundary.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
// Returns nil when err is nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the outermost code in the chain, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in the chain has the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// MessageOf returns the human-readable message of the outermost coded error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
