// Package errors provides structured error handling for the pushmail SDK.
// It defines the fixed taxonomy of push-protocol errors, maps raw server
// error strings and URS return codes into it, and carries enough context
// (operation, offending payload) for the retry policy and diagnostics.
package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category represents the type/category of an error for classification and handling
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryAuth       Category = "auth"
	CategoryTransport  Category = "transport"
	CategoryProtocol   Category = "protocol"
	CategoryServer     Category = "server"
	CategoryCancelled  Category = "cancelled"
	CategoryTimeout    Category = "timeout"
)

// Severity indicates how critical an error is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Operation identifies which protocol request produced an error.
type Operation string

const (
	OpLogin   Operation = "login"
	OpConnect Operation = "connect"
	OpSignin  Operation = "signin"
	OpPoll    Operation = "poll"
)

// Context provides additional context about where and when an error occurred
type Context struct {
	Operation Operation       `json:"operation,omitempty"`
	Endpoint  string          `json:"endpoint,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// PushError defines the interface for all pushmail SDK errors
type PushError interface {
	error

	// Code returns the stable taxonomy code
	Code() Code

	// Message returns the user-facing error message
	Message() string

	// Details returns detailed technical description for debugging
	Details() string

	// Category returns the error category for classification
	Category() Category

	// Severity returns the error severity level
	Severity() Severity

	// Context returns the error context information
	Context() *Context

	// WithContext returns a new error with the provided context
	WithContext(ctx *Context) PushError

	// WithDetail returns a new error with additional detail
	WithDetail(detail string) PushError

	// Unwrap returns the underlying error for error chain traversal
	Unwrap() error

	// ToJSON returns the error as a JSON-serializable map
	ToJSON() map[string]interface{}
}

// baseError implements the PushError interface
type baseError struct {
	code     Code
	message  string
	details  string
	category Category
	severity Severity
	context  *Context
	cause    error
}

// Error implements the error interface
func (e *baseError) Error() string {
	if e.details != "" {
		return fmt.Sprintf("%s: %s", e.code, e.details)
	}
	return string(e.code)
}

// Code returns the taxonomy code
func (e *baseError) Code() Code {
	return e.code
}

// Message returns the user-facing error message
func (e *baseError) Message() string {
	return e.message
}

// Details returns detailed technical description
func (e *baseError) Details() string {
	return e.details
}

// Category returns the error category
func (e *baseError) Category() Category {
	return e.category
}

// Severity returns the error severity
func (e *baseError) Severity() Severity {
	return e.severity
}

// Context returns the error context
func (e *baseError) Context() *Context {
	return e.context
}

// WithContext returns a new error with the provided context
func (e *baseError) WithContext(ctx *Context) PushError {
	newErr := *e
	if ctx != nil && ctx.Timestamp.IsZero() {
		ctx.Timestamp = time.Now()
	}
	newErr.context = ctx
	return &newErr
}

// WithDetail returns a new error with additional detail
func (e *baseError) WithDetail(detail string) PushError {
	newErr := *e
	if newErr.details != "" {
		newErr.details = fmt.Sprintf("%s; %s", newErr.details, detail)
	} else {
		newErr.details = detail
	}
	return &newErr
}

// Unwrap returns the underlying error
func (e *baseError) Unwrap() error {
	return e.cause
}

// ToJSON returns the error as a JSON-serializable map
func (e *baseError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":     string(e.code),
		"message":  e.message,
		"category": string(e.category),
		"severity": string(e.severity),
	}

	if e.details != "" {
		result["details"] = e.details
	}

	if e.context != nil {
		result["context"] = e.context
	}

	if e.cause != nil {
		result["cause"] = e.cause.Error()
	}

	return result
}

// MarshalJSON implements json.Marshaler for baseError
func (e *baseError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}

// New creates a new PushError for the given taxonomy code
func New(code Code) PushError {
	info := infoFor(code)
	return &baseError{
		code:     info.Code,
		message:  info.Message,
		category: info.Category,
		severity: info.Severity,
		context: &Context{
			Timestamp: time.Now(),
		},
	}
}

// Newf creates a new PushError with a formatted detail string
func Newf(code Code, format string, args ...interface{}) PushError {
	return New(code).WithDetail(fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error under a taxonomy code
func Wrap(err error, code Code) PushError {
	info := infoFor(code)
	return &baseError{
		code:     info.Code,
		message:  info.Message,
		details:  err.Error(),
		category: info.Category,
		severity: info.Severity,
		cause:    err,
		context: &Context{
			Timestamp: time.Now(),
		},
	}
}

// AsPushError extracts a PushError from any error
func AsPushError(err error) (PushError, bool) {
	if err == nil {
		return nil, false
	}

	if pushErr, ok := err.(PushError); ok {
		return pushErr, true
	}

	return nil, false
}

// CodeOf returns the taxonomy code of an error. Errors that are not
// PushErrors fall under the server error bucket.
func CodeOf(err error) Code {
	if pushErr, ok := AsPushError(err); ok {
		return pushErr.Code()
	}
	return CodeServerError
}

// Is checks whether an error carries a specific taxonomy code
func Is(err error, code Code) bool {
	pushErr, ok := AsPushError(err)
	return ok && pushErr.Code() == code
}

// OperationOf returns the operation recorded in an error's context,
// or the empty operation when none is attached.
func OperationOf(err error) Operation {
	if pushErr, ok := AsPushError(err); ok {
		if ctx := pushErr.Context(); ctx != nil {
			return ctx.Operation
		}
	}
	return ""
}
