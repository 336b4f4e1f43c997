package strut

import (
	"net/http"
	"reflect"
)

// Source identifies which part of a request an extractor reads.
type Source int

const (
	SourcePath Source = iota
	SourceQuery
	SourceHeader
	SourceBody
	SourceRequest
)

// Binding is the declarative record an extractor type reports about
// itself. It is pure metadata: registration-time validation and document
// generation read it without running any extractor code.
type Binding struct {
	// Source is the request part this extractor reads.
	Source Source

	// Target is the struct type the extractor binds into, nil when the
	// extractor has no typed target (RawBody, RawRequest).
	Target reflect.Type

	// Media is the exact request content type a body extractor accepts,
	// or "*/*" for any. Empty for non-body extractors.
	Media string

	// Consumes marks extractors that read the request body. At most one
	// per endpoint.
	Consumes bool
}

// Extractor is the contract every handler parameter type must satisfy.
// Binding must be callable on the zero value and must always report the
// same metadata; Bind populates the receiver from the request.
type Extractor interface {
	Bind(r *Request) error
	Binding() Binding
}

// Path binds struct fields tagged `path:"name"` from the variables
// captured by the route template.
type Path[T any] struct {
	Value T
}

func (p *Path[T]) Bind(r *Request) error {
	if err := bindVars(&p.Value, r.vars); err != nil {
		return err
	}
	return checkValue(r, &p.Value)
}

func (Path[T]) Binding() Binding {
	return Binding{Source: SourcePath, Target: reflect.TypeFor[T]()}
}

// Query binds struct fields tagged `query:"name"` from the query string.
// Fields may carry `required:"true"` and `default:"..."` tags; slice
// fields collect repeated keys.
type Query[T any] struct {
	Value T
}

func (q *Query[T]) Bind(r *Request) error {
	if err := bindQuery(&q.Value, r.Query()); err != nil {
		return err
	}
	return checkValue(r, &q.Value)
}

func (Query[T]) Binding() Binding {
	return Binding{Source: SourceQuery, Target: reflect.TypeFor[T]()}
}

// Headers binds struct fields tagged `header:"Name"` from the request
// headers. Fields may carry `required:"true"` and `default:"..."` tags.
type Headers[T any] struct {
	Value T
}

func (h *Headers[T]) Bind(r *Request) error {
	if err := bindHeaders(&h.Value, r.Header()); err != nil {
		return err
	}
	return checkValue(r, &h.Value)
}

func (Headers[T]) Binding() Binding {
	return Binding{Source: SourceHeader, Target: reflect.TypeFor[T]()}
}

// RawRequest is the escape hatch to the underlying *http.Request. It
// counts as the endpoint's body consumer since the raw body comes with it.
type RawRequest struct {
	Request *http.Request
}

func (rr *RawRequest) Bind(r *Request) error {
	rr.Request = r.HTTP()
	return nil
}

func (RawRequest) Binding() Binding {
	return Binding{Source: SourceRequest, Consumes: true}
}
