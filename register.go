package strut

import "net/http"

// Registrar is the interface accepted by the registration functions.
// Both *Service and *Group implement it.
type Registrar interface {
	register(ep *endpoint) error
}

// Register validates handler against the endpoint contract and mounts it
// at method and template. Handlers have the shape
//
//	func(ctx context.Context, e1 E1, ..., eN EN) (R, error)
//
// where each Ei implements Extractor and R implements Responder. Every
// contract violation surfaces here as a *RegistrationError; a handler
// that registers cleanly cannot fail structurally at dispatch.
func Register(reg Registrar, method, template string, handler any, opts ...EndpointOption) error {
	ep := &endpoint{
		method:      method,
		rawTemplate: template,
		handlerFn:   handler,
	}
	for _, opt := range opts {
		opt(ep)
	}
	return reg.register(ep)
}

// Get registers a GET handler.
func Get(reg Registrar, template string, handler any, opts ...EndpointOption) error {
	return Register(reg, http.MethodGet, template, handler, opts...)
}

// Post registers a POST handler.
func Post(reg Registrar, template string, handler any, opts ...EndpointOption) error {
	return Register(reg, http.MethodPost, template, handler, opts...)
}

// Put registers a PUT handler.
func Put(reg Registrar, template string, handler any, opts ...EndpointOption) error {
	return Register(reg, http.MethodPut, template, handler, opts...)
}

// Patch registers a PATCH handler.
func Patch(reg Registrar, template string, handler any, opts ...EndpointOption) error {
	return Register(reg, http.MethodPatch, template, handler, opts...)
}

// Delete registers a DELETE handler.
func Delete(reg Registrar, template string, handler any, opts ...EndpointOption) error {
	return Register(reg, http.MethodDelete, template, handler, opts...)
}

// OperationInfo provides OpenAPI metadata for escape-hatch handlers that
// the service cannot infer from types.
type OperationInfo struct {
	Summary     string
	Description string
	Tags        []string
	OperationID string

	// Status is the success status documented for the operation. Zero
	// documents the operation under the "default" response.
	Status int
}

// Handle registers a plain http.Handler, bypassing the typed pipeline.
// Template parsing and collision checks still apply, and captured path
// variables are exposed through (*http.Request).PathValue.
func Handle(reg Registrar, method, template string, h http.Handler, info OperationInfo) error {
	ep := &endpoint{
		method:      method,
		rawTemplate: template,
		rawHandler:  h,
		summary:     info.Summary,
		desc:        info.Description,
		tags:        info.Tags,
		operationID: info.OperationID,
	}
	if info.Status != 0 {
		ep.response = ResponseSpec{Status: info.Status}
	} else {
		ep.response = ResponseSpec{Dynamic: true}
	}
	return reg.register(ep)
}
