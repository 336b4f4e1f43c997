package strut

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

var (
	ctxType       = reflect.TypeFor[context.Context]()
	errType       = reflect.TypeFor[error]()
	extractorType = reflect.TypeFor[Extractor]()
	responderType = reflect.TypeFor[Responder]()
)

// checkContract validates an endpoint's handler against the contract and
// compiles its parameter bindings. The rules run in a fixed order and the
// first violation wins:
//
//  1. the handler is func(ctx, extractors...) (R, error)
//  2. every parameter after ctx is an Extractor with a bindable target,
//     and at most one consumes the body
//  3. R implements Responder
//  4. the template's variables and the path extractors' fields match
//     exactly
func checkContract(ep *endpoint) error {
	t, err := checkSignature(ep.handlerFn)
	if err != nil {
		return err
	}

	params, err := checkParams(t)
	if err != nil {
		return err
	}

	response, needAddr, err := checkResponse(t.Out(0))
	if err != nil {
		return err
	}

	if err := checkPathVars(ep.template, params); err != nil {
		return err
	}

	ep.handler = reflect.ValueOf(ep.handlerFn)
	ep.params = params
	ep.response = response
	ep.respNeedAddr = needAddr
	return nil
}

// checkSignature enforces the handler shape: a non-variadic function
// taking context.Context first and returning exactly (R, error).
func checkSignature(fn any) (reflect.Type, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: handler is nil", ErrBadHandler)
	}
	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: handler must be a function, got %s", ErrBadHandler, t)
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: handler must not be variadic", ErrBadHandler)
	}
	if t.NumIn() < 1 || t.In(0) != ctxType {
		return nil, fmt.Errorf("%w: handler must take context.Context as its first parameter", ErrBadHandler)
	}
	if t.NumOut() != 2 {
		return nil, fmt.Errorf("%w: handler must return (response, error), got %d return values", ErrBadHandler, t.NumOut())
	}
	if t.Out(1) != errType {
		return nil, fmt.Errorf("%w: handler's second return value must be error, got %s", ErrBadHandler, t.Out(1))
	}
	return t, nil
}

// checkParams resolves every parameter after ctx to an extractor and
// builds the per-parameter bindings in declaration order.
func checkParams(t reflect.Type) ([]paramBinding, error) {
	var params []paramBinding
	bodyAt := -1

	for i := 1; i < t.NumIn(); i++ {
		pt := t.In(i)
		base, passPtr, ok := resolveExtractor(pt)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %d (%s)", ErrNotExtractor, i, pt)
		}

		b := reflect.New(base).Interface().(Extractor).Binding()

		if err := checkBindTarget(b); err != nil {
			return nil, fmt.Errorf("%w: parameter %d (%s): %w", ErrBindTarget, i, pt, err)
		}

		if b.Consumes {
			if bodyAt >= 0 {
				return nil, fmt.Errorf("%w: parameters %d and %d both consume the request body", ErrDuplicateBody, bodyAt, i)
			}
			bodyAt = i
		}

		params = append(params, paramBinding{
			typ:     pt,
			base:    base,
			passPtr: passPtr,
			binding: b,
		})
	}
	return params, nil
}

// resolveExtractor maps a declared parameter type to the extractor
// struct to instantiate. Handlers may take an extractor by value or by
// pointer; either way the request pipeline binds through a pointer.
func resolveExtractor(pt reflect.Type) (base reflect.Type, passPtr bool, ok bool) {
	if pt.Kind() == reflect.Pointer && pt.Elem().Kind() == reflect.Struct {
		if pt.Implements(extractorType) {
			return pt.Elem(), true, true
		}
		return nil, false, false
	}
	if pt.Kind() == reflect.Struct && reflect.PointerTo(pt).Implements(extractorType) {
		return pt, false, true
	}
	return nil, false, false
}

// checkBindTarget verifies that every tagged field of an extractor's
// target struct can be bound from a string value. JSON bodies are
// exempt: the decoder handles arbitrary types.
func checkBindTarget(b Binding) error {
	if b.Target == nil {
		return nil
	}

	var tag string
	switch b.Source {
	case SourcePath:
		tag = "path"
	case SourceQuery:
		tag = "query"
	case SourceHeader:
		tag = "header"
	case SourceBody:
		if b.Media != mediaForm {
			return nil
		}
		tag = "form"
	case SourceRequest:
		return nil
	}

	t := b.Target
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("target must be a struct, got %s", t)
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get(tag)
		if name == "" {
			continue
		}
		if !bindableKind(f.Type) {
			return fmt.Errorf("field %q has unsupported type %s", f.Name, f.Type)
		}
	}
	return nil
}

// checkResponse verifies that the first return type implements
// Responder. needAddr is set when only the pointer type has the methods,
// so dispatch must copy the returned value to call them.
func checkResponse(rt reflect.Type) (ResponseSpec, bool, error) {
	switch {
	case rt.Implements(responderType):
		var zero reflect.Value
		if rt.Kind() == reflect.Pointer {
			zero = reflect.New(rt.Elem())
		} else {
			zero = reflect.Zero(rt)
		}
		return zero.Interface().(Responder).ResponseSpec(), false, nil

	case rt.Kind() == reflect.Struct && reflect.PointerTo(rt).Implements(responderType):
		spec := reflect.New(rt).Interface().(Responder).ResponseSpec()
		return spec, true, nil

	default:
		return ResponseSpec{}, false, fmt.Errorf("%w: %s", ErrNotResponder, rt)
	}
}

// checkPathVars enforces exact agreement between the variables the
// template declares and the fields the path extractors bind.
func checkPathVars(tmpl pathTemplate, params []paramBinding) error {
	bound := make(map[string]bool)

	for _, p := range params {
		if p.binding.Source != SourcePath || p.binding.Target == nil {
			continue
		}
		t := p.binding.Target
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Tag.Get("path")
			if name == "" {
				continue
			}
			if bound[name] {
				return fmt.Errorf("%w: path variable {%s} is bound more than once", ErrVarMismatch, name)
			}
			bound[name] = true
		}
	}

	for _, v := range tmpl.vars {
		if !bound[v] {
			return fmt.Errorf("%w: path variable {%s} is not bound by any extractor", ErrVarMismatch, v)
		}
		delete(bound, v)
	}
	if len(bound) > 0 {
		extras := slices.Sorted(maps.Keys(bound))
		return fmt.Errorf("%w: field %q does not match any path variable", ErrVarMismatch, extras[0])
	}
	return nil
}
