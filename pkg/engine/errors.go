package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an error for the invocation envelope.
type ErrorClass string

const (
	// ErrorClassValidation indicates missing or malformed input.
	// Examples: absent required field, unparseable date, unknown status.
	ErrorClassValidation ErrorClass = "ValidationError"

	// ErrorClassNotFound indicates a referenced period or task is absent from the store.
	ErrorClassNotFound ErrorClass = "NotFoundError"

	// ErrorClassExecution indicates the store query failed or timed out.
	ErrorClassExecution ErrorClass = "ExecutionError"

	// ErrorClassInternal indicates any unexpected failure.
	ErrorClassInternal ErrorClass = "InternalError"
)

// Sentinel errors wrapped by classified errors.
var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidDate   = errors.New("invalid date")
	ErrCycle         = errors.New("circular dependency")
)

// queryExcerptLimit caps how much of a statement is echoed in execution errors.
const queryExcerptLimit = 100

// CloseError represents a classified error with context.
type CloseError struct {
	// Class is the error classification reported to callers.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Period is the close period being processed, if applicable.
	Period string `json:"period,omitempty"`

	// TaskID is the task that caused the error, if applicable.
	TaskID string `json:"task_id,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *CloseError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	switch {
	case e.Operation != "" && e.Period != "":
		return fmt.Sprintf("%s (operation=%s, period=%s)", msg, e.Operation, e.Period)
	case e.Operation != "" && e.TaskID != "":
		return fmt.Sprintf("%s (operation=%s, task=%s)", msg, e.Operation, e.TaskID)
	case e.Operation != "":
		return fmt.Sprintf("%s (operation=%s)", msg, e.Operation)
	default:
		return msg
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *CloseError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *CloseError) Is(target error) bool {
	t, ok := target.(*CloseError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, err error) *CloseError {
	return &CloseError{
		Class:   ErrorClassValidation,
		Code:    ErrCodeValidation,
		Message: message,
		Err:     err,
	}
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(message string, err error) *CloseError {
	return &CloseError{
		Class:   ErrorClassNotFound,
		Code:    ErrCodeNotFound,
		Message: message,
		Err:     err,
	}
}

// NewExecutionError creates a new execution error for a failed statement.
// Only a truncated excerpt of the statement is kept.
func NewExecutionError(message, statement string, err error) *CloseError {
	e := &CloseError{
		Class:   ErrorClassExecution,
		Code:    ErrCodeQueryFailed,
		Message: message,
		Err:     err,
	}
	if statement != "" {
		e.Message = fmt.Sprintf("%s. Query: %s...", message, QueryExcerpt(statement))
	}
	return e
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *CloseError {
	return &CloseError{
		Class:   ErrorClassInternal,
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// WithPeriod adds period context to an error.
func (e *CloseError) WithPeriod(period string) *CloseError {
	e.Period = period
	return e
}

// WithTask adds task context to an error.
func (e *CloseError) WithTask(taskID string) *CloseError {
	e.TaskID = taskID
	return e
}

// WithOperation adds operation context to an error.
func (e *CloseError) WithOperation(operation string) *CloseError {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *CloseError) WithCode(code string) *CloseError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *CloseError) WithDetail(key string, value interface{}) *CloseError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsValidation returns true if the error is classified as a validation error.
func IsValidation(err error) bool {
	return classOf(err) == ErrorClassValidation
}

// IsNotFound returns true if the error is classified as not found.
func IsNotFound(err error) bool {
	return classOf(err) == ErrorClassNotFound
}

// IsExecution returns true if the error is classified as an execution error.
func IsExecution(err error) bool {
	return classOf(err) == ErrorClassExecution
}

// IsInternal returns true if the error is classified as internal.
func IsInternal(err error) bool {
	return classOf(err) == ErrorClassInternal
}

// ErrorType returns the envelope error type for any error.
// Unclassified errors are reported as internal.
func ErrorType(err error) ErrorClass {
	if c := classOf(err); c != "" {
		return c
	}
	return ErrorClassInternal
}

func classOf(err error) ErrorClass {
	var e *CloseError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// QueryExcerpt returns at most the first 100 characters of a statement.
func QueryExcerpt(statement string) string {
	r := []rune(statement)
	if len(r) <= queryExcerptLimit {
		return statement
	}
	return string(r[:queryExcerptLimit])
}

// Common error codes.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeInvalidStatus = "INVALID_STATUS"
	ErrCodeInvalidDate   = "INVALID_DATE"
	ErrCodeMissingField  = "MISSING_FIELD"
	ErrCodeCycle         = "CIRCULAR_DEPENDENCY"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeQueryFailed   = "QUERY_FAILED"
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeInternal      = "INTERNAL_ERROR"
)
