package strut

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Request is the per-request view handed to extractors and responders.
// One is created per dispatch and never shared between requests. The body
// may be consumed at most once; registration guarantees at most one
// body-consuming extractor, and the consumption guard turns a misbehaving
// custom extractor into a clear server error instead of a silent
// truncation.
type Request struct {
	http *http.Request

	id       string
	template string
	vars     map[string]string

	bodyLimit int64
	bodyRead  bool

	validator Validator
}

// ID returns the request identifier echoed in the response headers and in
// problem bodies.
func (r *Request) ID() string { return r.id }

// Context returns the underlying request context.
func (r *Request) Context() context.Context { return r.http.Context() }

// Method returns the HTTP method.
func (r *Request) Method() string { return r.http.Method }

// Path returns the raw request path.
func (r *Request) Path() string { return r.http.URL.Path }

// Template returns the route template the request matched, such as
// "/widgets/{id}".
func (r *Request) Template() string { return r.template }

// PathValue returns the captured value of a template variable.
func (r *Request) PathValue(name string) string { return r.vars[name] }

// Query returns the parsed query string.
func (r *Request) Query() url.Values { return r.http.URL.Query() }

// Header returns the request headers.
func (r *Request) Header() http.Header { return r.http.Header }

// HTTP returns the underlying *http.Request for escape-hatch use.
func (r *Request) HTTP() *http.Request { return r.http }

// readBody consumes the request body, capped at the effective body limit.
// A second read reports an internal fault: the body is a stream and a
// well-formed endpoint only declares one consumer.
func (r *Request) readBody() ([]byte, error) {
	if r.bodyRead {
		return nil, Error(http.StatusInternalServerError, "request body already consumed")
	}
	r.bodyRead = true

	if r.http.Body == nil {
		return nil, nil
	}

	body := http.MaxBytesReader(nil, r.http.Body, r.bodyLimit)
	data, err := io.ReadAll(body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, Errorf(http.StatusRequestEntityTooLarge,
				"request body exceeded maximum size of %d bytes", r.bodyLimit)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
