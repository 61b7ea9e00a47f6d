package errors

import (
	"errors"
	"fmt"
)

// TraceError is returned by the loader and the aggregation pass. TraceIndex
// and EventIndex are -1 when the failure is not tied to a position.
type TraceError struct {
	Code       string
	Message    string
	Cause      error
	Path       string
	TraceIndex int
	EventIndex int
	Category   string
}

func (e *TraceError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if loc := e.location(); loc != "" {
		msg += " (" + loc + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TraceError) Unwrap() error { return e.Cause }

func (e *TraceError) location() string {
	var loc string
	if e.Path != "" {
		loc = "path=" + e.Path
	}
	if e.TraceIndex >= 0 {
		loc = appendLoc(loc, fmt.Sprintf("trace=%d", e.TraceIndex))
	}
	if e.EventIndex >= 0 {
		loc = appendLoc(loc, fmt.Sprintf("event=%d", e.EventIndex))
	}
	if e.Category != "" {
		loc = appendLoc(loc, "category="+e.Category)
	}
	return loc
}

func appendLoc(loc, part string) string {
	if loc == "" {
		return part
	}
	return loc + " " + part
}

const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnreadable        = "UNREADABLE"
	ErrCodeMalformedDocument = "MALFORMED_DOCUMENT"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
)

func ErrNotFound(path string, cause error) *TraceError {
	return &TraceError{
		Code:       ErrCodeNotFound,
		Message:    "trace file not found",
		Cause:      cause,
		Path:       path,
		TraceIndex: -1,
		EventIndex: -1,
	}
}

func ErrUnreadable(path string, cause error) *TraceError {
	return &TraceError{
		Code:       ErrCodeUnreadable,
		Message:    "trace file cannot be read",
		Cause:      cause,
		Path:       path,
		TraceIndex: -1,
		EventIndex: -1,
	}
}

// ErrMalformed reports a document-level shape violation.
func ErrMalformed(msg string, cause error) *TraceError {
	return &TraceError{
		Code:       ErrCodeMalformedDocument,
		Message:    msg,
		Cause:      cause,
		TraceIndex: -1,
		EventIndex: -1,
	}
}

// ErrMalformedEvent reports a violation tied to one event of one trace.
func ErrMalformedEvent(traceIndex, eventIndex int, category, msg string) *TraceError {
	return &TraceError{
		Code:       ErrCodeMalformedDocument,
		Message:    msg,
		TraceIndex: traceIndex,
		EventIndex: eventIndex,
		Category:   category,
	}
}

func ErrInvalidConfig(msg string, cause error) *TraceError {
	return &TraceError{
		Code:       ErrCodeInvalidConfig,
		Message:    msg,
		Cause:      cause,
		TraceIndex: -1,
		EventIndex: -1,
	}
}

// Code returns the TraceError code found in err's chain, or "" if none.
func Code(err error) string {
	var te *TraceError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func IsNotFound(err error) bool { return Code(err) == ErrCodeNotFound }
func IsUnreadable(err error) bool { return Code(err) == ErrCodeUnreadable }
func IsMalformed(err error) bool { return Code(err) == ErrCodeMalformedDocument }
func IsInvalidConfig(err error) bool { return Code(err) == ErrCodeInvalidConfig }
