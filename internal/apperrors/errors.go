// Package apperrors defines the closed set of error kinds produced by the
// contact-exchange components. Callers branch on Kind, never on message text.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind string

const (
	KindInvalidFormat      Kind = "invalid_format"
	KindUnsupportedFormat  Kind = "unsupported_format"
	KindPayloadTooLarge    Kind = "payload_too_large"
	KindEmptyPayload       Kind = "empty_payload"
	KindNoCameraFound      Kind = "no_camera_found"
	KindCameraAccessDenied Kind = "camera_access_denied"
	KindDeviceInUse        Kind = "device_in_use"
	KindDeviceFailure      Kind = "device_failure"
	KindDuplicateContact   Kind = "duplicate_contact"
	KindPersistence        Kind = "persistence"
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindUnknown            Kind = "unknown"
)

// Error is a classified error. Two Errors match under errors.Is when their
// kinds are equal, so the sentinels below can be compared against wrapped
// errors carrying extra context.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidFormat      = &Error{Kind: KindInvalidFormat, Message: "payload is not a vCard"}
	ErrUnsupportedFormat  = &Error{Kind: KindUnsupportedFormat, Message: "QR code does not contain a vCard"}
	ErrPayloadTooLarge    = &Error{Kind: KindPayloadTooLarge, Message: "payload exceeds QR capacity"}
	ErrEmptyPayload       = &Error{Kind: KindEmptyPayload, Message: "payload is empty"}
	ErrNoCameraFound      = &Error{Kind: KindNoCameraFound, Message: "no camera found"}
	ErrCameraAccessDenied = &Error{Kind: KindCameraAccessDenied, Message: "camera access denied"}
	ErrDeviceInUse        = &Error{Kind: KindDeviceInUse, Message: "camera already in use"}
	ErrDeviceFailure      = &Error{Kind: KindDeviceFailure, Message: "camera failure"}
	ErrDuplicateContact   = &Error{Kind: KindDuplicateContact, Message: "contact already saved"}
	ErrPersistence        = &Error{Kind: KindPersistence, Message: "persistence failure"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
)

// New returns a classified error wrapping cause.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrap attaches cause to a copy of the sentinel's kind and message.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Cause: cause}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsDevice reports whether err is a camera/device failure.
func IsDevice(err error) bool {
	switch KindOf(err) {
	case KindNoCameraFound, KindCameraAccessDenied, KindDeviceInUse, KindDeviceFailure:
		return true
	}
	return false
}
