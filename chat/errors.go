package chat

import (
	"errors"
	"fmt"
)

// ErrorKind classifies errors raised by the core and by adapters.
type ErrorKind int

const (
	ErrValidation     ErrorKind = iota // invalid role, malformed pairing or input, precondition violation
	ErrAdapter                         // marshal/unmarshal failure or unexpected shape in an adapter
	ErrAuthentication                  // 401/403
	ErrNotFound                        // 404
	ErrInvalidRequest                  // 400
	ErrRateLimit                       // 429
	ErrServer                          // 500+
	ErrContextLength                   // input exceeds the model's token/context limit
	ErrContentFilter                   // blocked by safety guardrails
)

var errorKindNames = [...]string{
	ErrValidation:     "validation",
	ErrAdapter:        "adapter",
	ErrAuthentication: "authentication",
	ErrNotFound:       "not_found",
	ErrInvalidRequest: "invalid_request",
	ErrRateLimit:      "rate_limit",
	ErrServer:         "server",
	ErrContextLength:  "context_length",
	ErrContentFilter:  "content_filter",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("unknown(%d)", k)
}

// Error is the library's error type.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Cause    error  // underlying error
	Raw      []byte // raw response body if available
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("chat [%s] %s: %s", e.Kind, e.Provider, e.Message)
	}
	return fmt.Sprintf("chat [%s]: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}
