package strut

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// bindVars binds struct fields tagged "path" from captured template
// variables. Registration guarantees the variable set matches, so a
// missing variable here means the request never routed through the
// template that declared it.
func bindVars(target any, vars map[string]string) error {
	v := reflect.ValueOf(target).Elem()
	t := v.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("path")
		if name == "" {
			continue
		}

		val, ok := vars[name]
		if !ok {
			return fmt.Errorf("%w: %s: no such path variable", ErrBindPath, name)
		}
		if err := setFieldValue(v.Field(i), val); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBindPath, name, err)
		}
	}
	return nil
}

// bindQuery binds struct fields tagged "query" from the query string.
func bindQuery(target any, q url.Values) error {
	v := reflect.ValueOf(target).Elem()
	t := v.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("query")
		if name == "" {
			continue
		}

		field := v.Field(i)

		// Repeated keys collect into slice fields.
		if field.Kind() == reflect.Slice && field.Type().Elem().Kind() != reflect.Uint8 {
			vals := q[name]
			if len(vals) == 0 {
				if def := f.Tag.Get("default"); def != "" {
					vals = strings.Split(def, ",")
				}
			}
			if len(vals) == 0 && f.Tag.Get("required") == "true" {
				return fmt.Errorf("%w: %s: missing required parameter", ErrBindQuery, name)
			}
			if err := setSliceField(field, vals); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, err)
			}
			continue
		}

		val := q.Get(name)
		if val == "" {
			val = f.Tag.Get("default")
		}
		if val == "" {
			if f.Tag.Get("required") == "true" {
				return fmt.Errorf("%w: %s: missing required parameter", ErrBindQuery, name)
			}
			continue
		}
		if err := setFieldValue(field, val); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, err)
		}
	}
	return nil
}

// bindHeaders binds struct fields tagged "header" from request headers.
func bindHeaders(target any, h http.Header) error {
	v := reflect.ValueOf(target).Elem()
	t := v.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("header")
		if name == "" {
			continue
		}

		val := h.Get(name)
		if val == "" {
			val = f.Tag.Get("default")
		}
		if val == "" {
			if f.Tag.Get("required") == "true" {
				return fmt.Errorf("%w: %s: missing required header", ErrBindHeader, name)
			}
			continue
		}
		if err := setFieldValue(v.Field(i), val); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBindHeader, name, err)
		}
	}
	return nil
}

// bindForm binds struct fields tagged "form" from a parsed
// application/x-www-form-urlencoded body.
func bindForm(target any, form url.Values) error {
	v := reflect.ValueOf(target).Elem()
	t := v.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("form")
		if name == "" {
			continue
		}

		field := v.Field(i)

		if field.Kind() == reflect.Slice && field.Type().Elem().Kind() != reflect.Uint8 {
			if err := setSliceField(field, form[name]); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrBindForm, name, err)
			}
			continue
		}

		val := form.Get(name)
		if val == "" {
			val = f.Tag.Get("default")
		}
		if val == "" {
			if f.Tag.Get("required") == "true" {
				return fmt.Errorf("%w: %s: missing required field", ErrBindForm, name)
			}
			continue
		}
		if err := setFieldValue(field, val); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBindForm, name, err)
		}
	}
	return nil
}

// setSliceField populates a slice field from repeated string values.
func setSliceField(field reflect.Value, values []string) error {
	out := reflect.MakeSlice(field.Type(), len(values), len(values))
	for i, val := range values {
		if err := setFieldValue(out.Index(i), val); err != nil {
			return err
		}
	}
	field.Set(out)
	return nil
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return setFieldValue(field.Elem(), value)
	}

	switch field.Type() {
	case reflect.TypeFor[time.Duration]():
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	case reflect.TypeFor[time.Time]():
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(ts))
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

// bindableKind reports whether a field type can be bound from a string
// value. Used by registration-time target checks.
func bindableKind(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		return bindableKind(t.Elem())
	}
	switch t {
	case reflect.TypeFor[time.Duration](), reflect.TypeFor[time.Time]():
		return true
	}
	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return bindableKind(t.Elem())
	default:
		return false
	}
}
