package database

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Standard engine errors
var (
	// ErrAdapterNotFound is returned when no adapter is registered for an engine
	ErrAdapterNotFound = errors.New("adapter not found")

	// ErrConnectionFailed is returned when a session cannot be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidQuery is returned when the engine rejects a statement
	ErrInvalidQuery = errors.New("invalid query")

	// ErrOperationNotSupported is returned when an engine lacks an operation category
	ErrOperationNotSupported = errors.New("operation not supported by this engine")
)

// ConnectionError is returned when a session cannot be opened: network
// failure, refused dial, or rejected credentials. The engine-native message
// is carried in Cause and passed through to the caller.
type ConnectionError struct {
	Engine Engine
	Host   string
	Port   int
	Cause  error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s at %s:%d: %v", e.Engine, e.Host, e.Port, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	if errors.Is(target, ErrConnectionFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(engine Engine, host string, port int, cause error) *ConnectionError {
	return &ConnectionError{
		Engine: engine,
		Host:   host,
		Port:   port,
		Cause:  cause,
	}
}

// IsConnectionError checks if an error indicates a failed session open.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// QueryError is returned when the engine rejects a statement. Hint carries
// an optional human-facing suggestion for recognizable failure classes.
type QueryError struct {
	Engine Engine
	Cause  error
	Hint   string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("[%s] query failed: %v (hint: %s)", e.Engine, e.Cause, e.Hint)
	}
	return fmt.Sprintf("[%s] query failed: %v", e.Engine, e.Cause)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrInvalidQuery.
func (e *QueryError) Is(target error) bool {
	if errors.Is(target, ErrInvalidQuery) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewQueryError creates a QueryError, attaching a quoting hint when the
// statement looks like it tripped over an unquoted hyphenated identifier.
func NewQueryError(engine Engine, sqlText string, cause error) *QueryError {
	return &QueryError{
		Engine: engine,
		Cause:  cause,
		Hint:   quotingHint(engine, sqlText, cause),
	}
}

// UnsupportedOperationError is returned when an engine lacks an operation.
type UnsupportedOperationError struct {
	Engine    Engine
	Operation string
	Reason    string
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s does not support %s: %s", e.Engine, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s does not support %s", e.Engine, e.Operation)
}

// Is checks if the error is ErrOperationNotSupported.
func (e *UnsupportedOperationError) Is(target error) bool {
	return errors.Is(target, ErrOperationNotSupported)
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError.
func NewUnsupportedOperationError(engine Engine, operation string, reason string) *UnsupportedOperationError {
	return &UnsupportedOperationError{
		Engine:    engine,
		Operation: operation,
		Reason:    reason,
	}
}

// hyphenatedIdent matches a bare word-hyphen-word token, the common shape of
// an unquoted hyphenated table or column name.
var hyphenatedIdent = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*(?:-[A-Za-z0-9_]+)+\b`)

// quotingHint returns a suggestion when a syntax error mentions a statement
// containing a hyphenated identifier, which most engines parse as
// subtraction unless quoted.
func quotingHint(engine Engine, sqlText string, cause error) string {
	if cause == nil {
		return ""
	}
	msg := strings.ToLower(cause.Error())
	if !strings.Contains(msg, "syntax") && !strings.Contains(msg, "near") {
		return ""
	}
	ident := hyphenatedIdent.FindString(sqlText)
	if ident == "" {
		return ""
	}

	quote := "\""
	if engine == MySQL {
		quote = "`"
	}
	return fmt.Sprintf("identifier %q contains a hyphen; quote it as %s%s%s", ident, quote, ident, quote)
}
