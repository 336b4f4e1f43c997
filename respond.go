package strut

import (
	"io"
	"net/http"
	"reflect"
)

// ResponseSpec is the declarative record a responder type reports about
// itself. Registration-time validation and document generation read it
// from the zero value, so it must not depend on instance state.
type ResponseSpec struct {
	// Status is the fixed status code this responder writes, 0 when the
	// responder chooses at runtime.
	Status int

	// ContentType is the media type of the success body, empty when the
	// responder writes no body.
	ContentType string

	// Schema is the Go type documented as the response body, nil when
	// there is none.
	Schema reflect.Type

	// Dynamic marks escape-hatch responders whose status is chosen per
	// request. They are documented under the "default" response.
	Dynamic bool
}

// Payload is a fully serialized response. Building it completely before
// touching the ResponseWriter keeps failed serialization from leaking a
// half-written success response.
type Payload struct {
	Status      int
	ContentType string
	Body        []byte
	Stream      io.Reader
}

// Responder is the contract every handler return type must satisfy.
// StatusCode and ResponseSpec must be callable on the zero value.
type Responder interface {
	StatusCode() int
	Respond(r *Request) (*Payload, error)
	ResponseSpec() ResponseSpec
}

// HeaderSetter is implemented by responders that add headers. They are
// applied after serialization succeeds and before the status line.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// CookieSetter is implemented by responders that set cookies.
type CookieSetter interface {
	Cookies() []*http.Cookie
}

// OK writes T as a 200 application/json response.
type OK[T any] struct {
	Value T
}

func (OK[T]) StatusCode() int { return http.StatusOK }

func (o OK[T]) Respond(*Request) (*Payload, error) {
	body, err := jsonMarshal(o.Value)
	if err != nil {
		return nil, err
	}
	return &Payload{Status: http.StatusOK, ContentType: mediaJSON, Body: body}, nil
}

func (OK[T]) ResponseSpec() ResponseSpec {
	return ResponseSpec{
		Status:      http.StatusOK,
		ContentType: mediaJSON,
		Schema:      reflect.TypeFor[T](),
	}
}

// Created writes T as a 201 application/json response.
type Created[T any] struct {
	Value T
}

func (Created[T]) StatusCode() int { return http.StatusCreated }

func (c Created[T]) Respond(*Request) (*Payload, error) {
	body, err := jsonMarshal(c.Value)
	if err != nil {
		return nil, err
	}
	return &Payload{Status: http.StatusCreated, ContentType: mediaJSON, Body: body}, nil
}

func (Created[T]) ResponseSpec() ResponseSpec {
	return ResponseSpec{
		Status:      http.StatusCreated,
		ContentType: mediaJSON,
		Schema:      reflect.TypeFor[T](),
	}
}

// Accepted writes T as a 202 application/json response.
type Accepted[T any] struct {
	Value T
}

func (Accepted[T]) StatusCode() int { return http.StatusAccepted }

func (a Accepted[T]) Respond(*Request) (*Payload, error) {
	body, err := jsonMarshal(a.Value)
	if err != nil {
		return nil, err
	}
	return &Payload{Status: http.StatusAccepted, ContentType: mediaJSON, Body: body}, nil
}

func (Accepted[T]) ResponseSpec() ResponseSpec {
	return ResponseSpec{
		Status:      http.StatusAccepted,
		ContentType: mediaJSON,
		Schema:      reflect.TypeFor[T](),
	}
}

// NoContent writes an empty 204 response.
type NoContent struct{}

func (NoContent) StatusCode() int { return http.StatusNoContent }

func (NoContent) Respond(*Request) (*Payload, error) {
	return &Payload{Status: http.StatusNoContent}, nil
}

func (NoContent) ResponseSpec() ResponseSpec {
	return ResponseSpec{Status: http.StatusNoContent}
}

// SeeOther writes a 303 redirect to Location.
type SeeOther struct {
	Location string
}

func (SeeOther) StatusCode() int { return http.StatusSeeOther }

func (SeeOther) Respond(*Request) (*Payload, error) {
	return &Payload{Status: http.StatusSeeOther}, nil
}

func (SeeOther) ResponseSpec() ResponseSpec {
	return ResponseSpec{Status: http.StatusSeeOther}
}

func (s SeeOther) SetHeaders(h http.Header) {
	h.Set("Location", s.Location)
}

// TemporaryRedirect writes a 307 redirect to Location.
type TemporaryRedirect struct {
	Location string
}

func (TemporaryRedirect) StatusCode() int { return http.StatusTemporaryRedirect }

func (TemporaryRedirect) Respond(*Request) (*Payload, error) {
	return &Payload{Status: http.StatusTemporaryRedirect}, nil
}

func (TemporaryRedirect) ResponseSpec() ResponseSpec {
	return ResponseSpec{Status: http.StatusTemporaryRedirect}
}

func (t TemporaryRedirect) SetHeaders(h http.Header) {
	h.Set("Location", t.Location)
}

// Raw is the escape hatch for endpoints that pick status and media type
// at runtime. It is documented under the "default" response with an
// application/octet-stream body.
type Raw struct {
	Status      int
	ContentType string
	Body        io.Reader
}

func (r Raw) StatusCode() int { return r.Status }

func (r Raw) Respond(*Request) (*Payload, error) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	ct := r.ContentType
	if ct == "" && r.Body != nil {
		ct = mediaOctet
	}
	return &Payload{Status: status, ContentType: ct, Stream: r.Body}, nil
}

func (Raw) ResponseSpec() ResponseSpec {
	return ResponseSpec{ContentType: mediaOctet, Dynamic: true}
}
