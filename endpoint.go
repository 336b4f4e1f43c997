package strut

import (
	"net/http"
	"reflect"
)

// endpoint holds the compiled record for one method and template pair,
// used for both request dispatch and OpenAPI generation. It is immutable
// once registered, so dispatch reads it without locks.
type endpoint struct {
	method      string
	rawTemplate string
	template    pathTemplate

	handlerFn    any           // as passed to Register, nil for escape-hatch endpoints
	handler      reflect.Value // validated handler func
	params       []paramBinding
	response     ResponseSpec
	respNeedAddr bool // responder methods live on the pointer type

	rawHandler http.Handler // escape hatch, bypasses the typed pipeline

	summary     string
	desc        string
	tags        []string
	operationID string
	deprecated  bool
	errors      []int
	bodyLimit   int64

	// hidden endpoints serve but stay out of the generated document
	// (the OpenAPI and docs endpoints themselves).
	hidden bool
}

// paramBinding pairs one handler parameter with its resolved extractor
// metadata. base is instantiated fresh per request; passPtr records
// whether the handler declared *base or base.
type paramBinding struct {
	typ     reflect.Type
	base    reflect.Type
	passPtr bool
	binding Binding
}

// hasPathParams reports whether the endpoint declares a path extractor.
func (ep *endpoint) hasPathParams() bool {
	return len(ep.template.vars) > 0
}

// consumesBody reports whether any extractor reads the request body.
func (ep *endpoint) consumesBody() bool {
	for _, p := range ep.params {
		if p.binding.Consumes {
			return true
		}
	}
	return false
}

// bodyBinding returns the body extractor's binding, if any.
func (ep *endpoint) bodyBinding() (Binding, bool) {
	for _, p := range ep.params {
		if p.binding.Source == SourceBody {
			return p.binding, true
		}
	}
	return Binding{}, false
}

// EndpointOption configures an endpoint at registration time.
type EndpointOption func(*endpoint)

// WithSummary sets the OpenAPI summary for the endpoint.
func WithSummary(s string) EndpointOption {
	return func(ep *endpoint) {
		ep.summary = s
	}
}

// WithDescription sets the OpenAPI description for the endpoint.
func WithDescription(d string) EndpointOption {
	return func(ep *endpoint) {
		ep.desc = d
	}
}

// WithTags adds OpenAPI tags to the endpoint.
func WithTags(tags ...string) EndpointOption {
	return func(ep *endpoint) {
		ep.tags = append(ep.tags, tags...)
	}
}

// WithOperationID sets a custom OpenAPI operationId.
func WithOperationID(id string) EndpointOption {
	return func(ep *endpoint) {
		ep.operationID = id
	}
}

// WithDeprecated marks the endpoint as deprecated in the OpenAPI spec.
func WithDeprecated() EndpointOption {
	return func(ep *endpoint) {
		ep.deprecated = true
	}
}

// WithErrors declares additional HTTP error status codes for the OpenAPI spec.
func WithErrors(codes ...int) EndpointOption {
	return func(ep *endpoint) {
		ep.errors = append(ep.errors, codes...)
	}
}

// WithBodyLimit sets a per-endpoint maximum request body size in bytes,
// overriding the service default.
func WithBodyLimit(maxBytes int64) EndpointOption {
	return func(ep *endpoint) {
		ep.bodyLimit = maxBytes
	}
}
