package strut

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for request binding. Extraction failures wrap one of
// these so callers can classify them with errors.Is.
var (
	ErrBindPath   = errors.New("bind path")
	ErrBindQuery  = errors.New("bind query")
	ErrBindHeader = errors.New("bind header")
	ErrBindBody   = errors.New("bind body")
	ErrBindForm   = errors.New("bind form")
)

// Sentinel errors for endpoint registration. Each names the rule that was
// violated; they are always returned wrapped in a *RegistrationError.
var (
	ErrTemplateSyntax  = errors.New("invalid path template")
	ErrBadHandler      = errors.New("invalid handler signature")
	ErrNotExtractor    = errors.New("parameter does not implement Extractor")
	ErrBindTarget      = errors.New("unbindable extractor target")
	ErrDuplicateBody   = errors.New("multiple body extractors")
	ErrNotResponder    = errors.New("response type does not implement Responder")
	ErrVarMismatch     = errors.New("path variable mismatch")
	ErrRouteConflict   = errors.New("route conflict")
	ErrVarNameConflict = errors.New("path variable name conflict")
	ErrStarted         = errors.New("service is already serving")
)

// RegistrationError reports an endpoint that failed contract validation.
// It wraps one of the registration sentinels and is returned before any
// part of the endpoint becomes routable.
type RegistrationError struct {
	Method   string
	Template string
	Err      error
}

// Error returns the failure with its method and template context.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s %s: %v", e.Method, e.Template, e.Err)
}

// Unwrap returns the wrapped rule sentinel chain.
func (e *RegistrationError) Unwrap() error { return e.Err }

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// Problem is an RFC 9457 problem details response. It is the single error
// body every endpoint can produce, and it satisfies the response contract
// so the dispatcher and the generated document agree on its shape.
//
//nolint:errname // RFC 9457 standard name
type Problem struct {
	Type      string            `json:"type,omitempty"`
	Title     string            `json:"title,omitempty"`
	Status    int               `json:"status" required:"true"`
	Detail    string            `json:"detail,omitempty"`
	Instance  string            `json:"instance,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *Problem) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *Problem) StatusCode() int { return p.Status }

// NewProblem returns a Problem for the given status with the standard
// status text as its title.
func NewProblem(status int, detail string) *Problem {
	return &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// ValidationError describes a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
