package strut

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

const (
	mediaJSON    = "application/json"
	mediaForm    = "application/x-www-form-urlencoded"
	mediaOctet   = "application/octet-stream"
	mediaProblem = "application/problem+json"
	mediaAny     = "*/*"
)

// requestContentType returns the request's media type with any
// parameters stripped and lowercased. A missing header is treated as
// application/json.
func requestContentType(r *Request) string {
	ct := r.Header().Get("Content-Type")
	if ct == "" {
		return mediaJSON
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt, _, _ = strings.Cut(ct, ";")
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return mt
}

// TypedBody decodes an application/json request body into T. A request
// carrying any other content type is rejected with 415 before the body
// is read; an unparsable or empty body is a 400.
type TypedBody[T any] struct {
	Value T
}

func (b *TypedBody[T]) Bind(r *Request) error {
	if ct := requestContentType(r); ct != mediaJSON {
		return Errorf(http.StatusUnsupportedMediaType, "expected content type %q, got %q", mediaJSON, ct)
	}
	data, err := r.readBody()
	if err != nil {
		return err
	}
	if err := jsonUnmarshal(data, &b.Value); err != nil {
		return fmt.Errorf("%w: unable to parse JSON body: %v", ErrBindBody, err)
	}
	return checkValue(r, &b.Value)
}

func (TypedBody[T]) Binding() Binding {
	return Binding{
		Source:   SourceBody,
		Target:   reflect.TypeFor[T](),
		Media:    mediaJSON,
		Consumes: true,
	}
}

// FormBody decodes an application/x-www-form-urlencoded request body
// into T using `form:"name"` field tags.
type FormBody[T any] struct {
	Value T
}

func (b *FormBody[T]) Bind(r *Request) error {
	if ct := requestContentType(r); ct != mediaForm {
		return Errorf(http.StatusUnsupportedMediaType, "expected content type %q, got %q", mediaForm, ct)
	}
	data, err := r.readBody()
	if err != nil {
		return err
	}
	form, err := url.ParseQuery(string(data))
	if err != nil {
		return fmt.Errorf("%w: unable to parse form body: %v", ErrBindForm, err)
	}
	if err := bindForm(&b.Value, form); err != nil {
		return err
	}
	return checkValue(r, &b.Value)
}

func (FormBody[T]) Binding() Binding {
	return Binding{
		Source:   SourceBody,
		Target:   reflect.TypeFor[T](),
		Media:    mediaForm,
		Consumes: true,
	}
}

// RawBody reads the request body as bytes without interpreting it. Any
// content type is accepted; the body size cap still applies.
type RawBody struct {
	Data        []byte
	ContentType string
}

func (b *RawBody) Bind(r *Request) error {
	data, err := r.readBody()
	if err != nil {
		return err
	}
	b.Data = data
	b.ContentType = r.Header().Get("Content-Type")
	return nil
}

func (RawBody) Binding() Binding {
	return Binding{Source: SourceBody, Media: mediaAny, Consumes: true}
}
