package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError represents an application error with additional context
type AppError struct {
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Internal error       `json:"-"`
	Details  interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Error codes
const (
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConfiguration       = "CONFIGURATION_ERROR"
	ErrCodeAuthentication      = "AUTHENTICATION_ERROR"
	ErrCodeCategoryEnumeration = "CATEGORY_ENUMERATION_ERROR"
	ErrCodeQuerySyntax         = "QUERY_SYNTAX_ERROR"
	ErrCodeTemplate            = "TEMPLATE_ERROR"
	ErrCodeGenerationEmpty     = "GENERATION_EMPTY"
	ErrCodeStore               = "STORE_ERROR"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeRateLimited         = "RATE_LIMITED"
)

var statusCodes = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConfiguration:       http.StatusBadRequest,
	ErrCodeAuthentication:      http.StatusBadGateway,
	ErrCodeCategoryEnumeration: http.StatusBadGateway,
	ErrCodeQuerySyntax:         http.StatusBadRequest,
	ErrCodeTemplate:            http.StatusUnprocessableEntity,
	ErrCodeGenerationEmpty:     http.StatusUnprocessableEntity,
	ErrCodeStore:               http.StatusInternalServerError,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeRateLimited:         http.StatusTooManyRequests,
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Internal: err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// IsCode reports whether any AppError in err's chain carries code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Internal
	}
	return false
}

// From returns the outermost AppError in err's chain, or wraps err as an internal error
func From(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", err)
}

// StatusCode maps the code of e to an HTTP status
func (e *AppError) StatusCode() int {
	if status, ok := statusCodes[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Internal creates an internal error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

// BadRequest creates an error for a malformed request
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message)
}

// ConfigurationError rejects a malformed scan or generation config before any work starts.
func ConfigurationError(message string, details interface{}) *AppError {
	return New(ErrCodeConfiguration, message).WithDetails(details)
}

// AuthenticationError reports unresolved credentials together with a remediation hint.
func AuthenticationError(provider, context, hint string, err error) *AppError {
	msg := fmt.Sprintf("failed to authenticate with %s", provider)
	if context != "" {
		msg += " (" + context + ")"
	}
	if hint != "" {
		msg += "; " + hint
	}
	return Wrap(err, ErrCodeAuthentication, msg)
}

// CategoryEnumerationError reports a category that could not be listed at all.
func CategoryEnumerationError(category, context, hint string, err error) *AppError {
	msg := fmt.Sprintf("failed to enumerate %s", category)
	if context != "" {
		msg += " (" + context + ")"
	}
	if hint != "" {
		msg += "; " + hint
	}
	return Wrap(err, ErrCodeCategoryEnumeration, msg)
}

// QuerySyntaxError wraps a lex or parse failure so callers can treat it as bad input.
func QuerySyntaxError(err error) *AppError {
	return Wrap(err, ErrCodeQuerySyntax, "invalid query")
}

// TemplateError reports a missing or broken template along with every location searched.
func TemplateError(message string, searched []string, err error) *AppError {
	if len(searched) > 0 {
		message = fmt.Sprintf("%s (searched: %s)", message, strings.Join(searched, ", "))
	}
	return Wrap(err, ErrCodeTemplate, message).WithDetails(searched)
}

// GenerationEmptyError is returned when no file at all could be produced.
func GenerationEmptyError() *AppError {
	return New(ErrCodeGenerationEmpty,
		"no files were generated; likely causes: "+
			"(1) the scan produced no data for any template-mapped category, "+
			"(2) the selection excluded every resource, "+
			"(3) templates failed to load")
}

// StoreError wraps a failure of the scan or selection store.
func StoreError(message string, err error) *AppError {
	return Wrap(err, ErrCodeStore, message)
}
