package rdm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FieldError is a single validation failure reported by the server.
type FieldError struct {
	Field    string   `json:"field"    yaml:"field"`
	Messages []string `json:"messages" yaml:"messages"`
}

// HTTPError is returned when the server answers with a non-2xx status.
// Body always holds the raw response payload; Message and Errors are filled
// in when the payload follows the InvenioRDM error format.
type HTTPError struct {
	StatusCode int          `json:"status"           yaml:"status"`
	Message    string       `json:"message"          yaml:"message"`
	Errors     []FieldError `json:"errors,omitempty" yaml:"errors,omitempty"`
	Body       []byte       `json:"-"                yaml:"-"`
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	if len(e.Errors) == 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
	}

	fields := make([]string, 0, len(e.Errors))
	for _, fieldErr := range e.Errors {
		fields = append(fields, fmt.Sprintf("%s: %s", fieldErr.Field, strings.Join(fieldErr.Messages, ", ")))
	}

	return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, msg, strings.Join(fields, "; "))
}

// NewHTTPError builds an HTTPError from a status code and raw body. Bodies
// that are not InvenioRDM error documents are kept verbatim in Body only.
func NewHTTPError(statusCode int, body []byte) *HTTPError {
	httpErr := &HTTPError{}
	_ = json.Unmarshal(body, httpErr)

	httpErr.StatusCode = statusCode
	httpErr.Body = body

	return httpErr
}

// DeserializationError is returned when a response body does not have the
// shape a Contract expects.
type DeserializationError struct {
	Contract string
	Err      error
}

// Error implements the error interface.
func (e *DeserializationError) Error() string {
	return fmt.Sprintf("decoding %s response: %v", e.Contract, e.Err)
}

// Unwrap returns the underlying decode failure.
func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// MissingFieldError is returned when metadata lacks a field needed to derive
// endpoint arguments.
type MissingFieldError struct {
	Contract string
	Field    string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s metadata has no %q field", e.Contract, e.Field)
}

// FieldNotFoundError is returned when reading a key that metadata does not hold.
type FieldNotFoundError struct {
	Key string
}

// Error implements the error interface.
func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found", e.Key)
}

// UnresolvedEndpointError is returned when an endpoint template still has
// unbound placeholders at URL build time.
type UnresolvedEndpointError struct {
	Template     string
	Placeholders []string
}

// Error implements the error interface.
func (e *UnresolvedEndpointError) Error() string {
	return fmt.Sprintf("endpoint %s has unbound placeholders: %s", e.Template, strings.Join(e.Placeholders, ", "))
}

// InvalidInputError is returned by normalization helpers for input of an
// unsupported shape.
type InvalidInputError struct {
	Input    interface{}
	Expected string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input of type %T: expected %s", e.Input, e.Expected)
}

// Static errors for err113 compliance.
var (
	ErrConfigRequired   = errors.New("config is required")
	ErrBaseURLRequired  = errors.New("base URL is required")
	ErrSkipTLSOnlyInDev = errors.New("skipTLS is only allowed in development environments")
	ErrNotAnObject      = errors.New("payload is not a JSON object")
	ErrNotAList         = errors.New("metadata does not describe a list")
	ErrHitsExceedTotal  = errors.New("hit count exceeds total")
	ErrInvalidHit       = errors.New("hit is not a JSON object")
	ErrNoStreamPayload  = errors.New("stream metadata has no payload")
	ErrNoData           = errors.New("resource holds no data")
	ErrNoPreviousPage   = errors.New("pagination has no previous page")
	ErrNoNextPage       = errors.New("pagination has no next page")
)

// HTTPStatus returns the status code carried by err, or 0 when err is not
// an HTTPError.
func HTTPStatus(err error) int {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	return 0
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return HTTPStatus(err) == http.StatusNotFound
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return HTTPStatus(err) == http.StatusUnauthorized
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return HTTPStatus(err) == http.StatusForbidden
}

// IsValidation checks if the error is a request validation failure.
func IsValidation(err error) bool {
	return HTTPStatus(err) == http.StatusBadRequest
}
