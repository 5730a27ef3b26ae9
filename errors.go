package firecms

import (
	"errors"
	"fmt"
)

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	// CodeNaming marks a file whose name builder returned an empty or invalid name.
	CodeNaming = "naming"
	// CodeTransport marks a failed upload, URL resolution or post-process step.
	CodeTransport = "transport"
	// CodeConfiguration marks a field or registry built from an invalid configuration.
	CodeConfiguration = "configuration"
	// CodeSchemaResolution marks a path for which no source produced a schema.
	CodeSchemaResolution = "schema_resolution"
)

// Sentinels for errors.Is. An *Error matches the sentinel with the same code.
var (
	ErrNaming           = &Error{Code: CodeNaming, Message: "invalid file name"}
	ErrTransport        = &Error{Code: CodeTransport, Message: "transport failure"}
	ErrConfiguration    = &Error{Code: CodeConfiguration, Message: "invalid configuration"}
	ErrSchemaResolution = &Error{Code: CodeSchemaResolution, Message: "schema not resolved"}
)

// Error is the single error model shared by every package in this module.
type Error struct {
	Code    string // One of the codes listed above.
	Path    string // Collection path, property key or file name the error refers to.
	Message string
	Cause   error // Optional: underlying error.
}

// NewError builds an *Error. cause may be nil.
func NewError(code, path, msg string, cause error) *Error {
	return &Error{Code: code, Path: path, Message: msg, Cause: cause}
}

// Errorf builds an *Error with a formatted message.
func Errorf(code, path, format string, args ...any) *Error {
	return &Error{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Code
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return t.Code == e.Code
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err carries an *Error with the given code.
func HasCode(err error, code string) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}
