// Package apperr defines the engine's error taxonomy. Every structural
// failure (validation, type mismatch, cycle, unknown attribute) carries
// enough context for the caller to render field-level feedback.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindType             Kind = "type"
	KindImmutable        Kind = "immutable_attribute"
	KindCyclic           Kind = "cyclic_reference"
	KindUnknownAttribute Kind = "unknown_attribute"
	KindDangling         Kind = "dangling_reference"
	KindNotFound         Kind = "not_found"
)

// Error is a structured engine error. Attribute names the offending
// attribute code where one applies; Reason is a short machine-readable
// token ("required", "duplicate", ...).
type Error struct {
	Kind      Kind           `json:"kind"`
	Attribute string         `json:"attribute,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
}

func (e *Error) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("%s: attribute %q: %s", e.Kind, e.Attribute, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an Error with printf-style message formatting.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a validation error pinned to an attribute code.
func Validation(attribute, reason, format string, args ...any) *Error {
	return &Error{
		Kind:      KindValidation,
		Attribute: attribute,
		Reason:    reason,
		Message:   fmt.Sprintf(format, args...),
	}
}

// TypeError reports a value that does not coerce to its attribute's type.
func TypeError(attribute, format string, args ...any) *Error {
	return &Error{Kind: KindType, Attribute: attribute, Message: fmt.Sprintf(format, args...)}
}

// Immutable reports a direct write to a computed attribute.
func Immutable(attribute string) *Error {
	return &Error{
		Kind:      KindImmutable,
		Attribute: attribute,
		Message:   "combination columns are computed on read and cannot be written",
	}
}

// Cyclic reports a combo spec whose member graph would contain a cycle.
func Cyclic(attribute, format string, args ...any) *Error {
	return &Error{Kind: KindCyclic, Attribute: attribute, Message: fmt.Sprintf(format, args...)}
}

// UnknownAttribute reports a write against a code the model does not define.
func UnknownAttribute(code string) *Error {
	return &Error{
		Kind:      KindUnknownAttribute,
		Attribute: code,
		Message:   fmt.Sprintf("attribute %q is not defined on this data model", code),
	}
}

// NotFound reports a missing entity.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or "" if err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an engine error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
