package strut

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// errorSchemaName is the component name every error response references.
const errorSchemaName = "Problem"

// JSONSchema represents a JSON Schema object (subset for OpenAPI 3.1).
type JSONSchema struct {
	Type        string                `json:"type,omitempty"`
	Format      string                `json:"format,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Description string                `json:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	Ref         string                `json:"$ref,omitempty"`

	// AdditionalProperties can be true (any) or a schema.
	AdditionalProperties *JSONSchema `json:"additionalProperties,omitempty"`

	ContentEncoding string `json:"contentEncoding,omitempty"`

	Default any    `json:"default,omitempty"`
	Example any    `json:"example,omitempty"`
	Pattern string `json:"pattern,omitempty"`

	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	MinItems  *int     `json:"minItems,omitempty"`
	MaxItems  *int     `json:"maxItems,omitempty"`
}

// SchemaProvider is implemented by types that supply their own schema
// instead of the reflected one.
type SchemaProvider interface {
	JSONSchema() JSONSchema
}

// SchemaTransformer is implemented by types that adjust their reflected
// schema before it is stored in the components table.
type SchemaTransformer interface {
	TransformSchema(schema JSONSchema) JSONSchema
}

var (
	schemaProviderIface    = reflect.TypeFor[SchemaProvider]()
	schemaTransformerIface = reflect.TypeFor[SchemaTransformer]()
)

// schemaRegistry interns named struct schemas so every appearance of a
// type resolves to one $ref and one components entry. Identity is the
// reflect.Type, so two types with the same shape still document
// separately.
type schemaRegistry struct {
	names  map[reflect.Type]string
	owners map[string]reflect.Type
	defs   map[string]JSONSchema
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{
		names:  make(map[reflect.Type]string),
		owners: make(map[string]reflect.Type),
		defs:   make(map[string]JSONSchema),
	}
}

// typeToSchema converts a reflect.Type to a JSONSchema, interning named
// structs as components and returning a $ref for them.
func (r *schemaRegistry) typeToSchema(t reflect.Type) JSONSchema {
	// Unwrap pointer.
	if t.Kind() == reflect.Pointer {
		return r.typeToSchema(t.Elem())
	}

	if s, ok := providerSchema(t); ok {
		return s
	}

	// Handle well-known types.
	switch t {
	case reflect.TypeFor[time.Time]():
		return JSONSchema{Type: "string", Format: "date-time"}
	case reflect.TypeFor[time.Duration]():
		return JSONSchema{Type: "string", Format: "duration"}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return JSONSchema{Type: "string"}
	case reflect.Bool:
		return JSONSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return JSONSchema{Type: "integer"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return JSONSchema{Type: "number"}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return JSONSchema{Type: "string", ContentEncoding: "base64"}
		}
		items := r.typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Array:
		items := r.typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return JSONSchema{Type: "object"}
		}
		valSchema := r.typeToSchema(t.Elem())
		return JSONSchema{Type: "object", AdditionalProperties: &valSchema}
	case reflect.Struct:
		return r.refSchema(t)
	case reflect.Interface:
		return JSONSchema{}
	default:
		return JSONSchema{}
	}
}

// refSchema interns a struct type and returns a $ref to it. Anonymous
// structs have no stable name and inline instead. A placeholder def is
// stored before the walk so self-referential types terminate.
func (r *schemaRegistry) refSchema(t reflect.Type) JSONSchema {
	if t.Name() == "" {
		return r.structToSchema(t)
	}

	if name, ok := r.names[t]; ok {
		return JSONSchema{Ref: "#/components/schemas/" + name}
	}

	name := r.assignName(t)
	r.defs[name] = JSONSchema{}

	schema := r.structToSchema(t)
	if tr, ok := transformerFor(t); ok {
		schema = tr.TransformSchema(schema)
	}
	r.defs[name] = schema

	return JSONSchema{Ref: "#/components/schemas/" + name}
}

// assignName picks the component name for a type. Generic instantiation
// noise is stripped, and a name already owned by a different type gets a
// numeric suffix. Assignment order is registration order, so the result
// is deterministic for a fixed set of endpoints.
func (r *schemaRegistry) assignName(t reflect.Type) string {
	base := sanitizeSchemaName(t.Name())
	name := base
	for n := 2; ; n++ {
		owner, taken := r.owners[name]
		if !taken || owner == t {
			break
		}
		name = fmt.Sprintf("%s%d", base, n)
	}
	r.names[t] = name
	r.owners[name] = t
	return name
}

// sanitizeSchemaName flattens a generic type name such as
// "Page[example.com/mod.Widget]" into "PageWidget".
func sanitizeSchemaName(name string) string {
	i := strings.IndexByte(name, '[')
	if i < 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name[:i])
	for _, part := range strings.FieldsFunc(name[i:], func(c rune) bool {
		return c == '[' || c == ']' || c == ','
	}) {
		part = strings.TrimSpace(part)
		if j := strings.LastIndexByte(part, '.'); j >= 0 {
			part = part[j+1:]
		}
		b.WriteString(part)
	}
	return b.String()
}

// structToSchema converts a struct type to an object schema, resolving
// nested structs through the registry.
func (r *schemaRegistry) structToSchema(t reflect.Type) JSONSchema {
	schema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if isParamField(f) {
			continue
		}
		if f.Type == reflect.TypeFor[RawRequest]() {
			continue
		}

		name := jsonFieldName(f)
		if name == "-" {
			continue
		}

		prop := r.typeToSchema(f.Type)

		if doc := f.Tag.Get("doc"); doc != "" {
			prop.Description = doc
		}
		prop = applyConstraintTags(prop, f)

		schema.Properties[name] = prop

		if f.Tag.Get("required") == "true" {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}

// providerSchema returns the custom schema for types implementing
// SchemaProvider.
func providerSchema(t reflect.Type) (JSONSchema, bool) {
	switch {
	case t.Implements(schemaProviderIface):
		return reflect.Zero(t).Interface().(SchemaProvider).JSONSchema(), true
	case t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(schemaProviderIface):
		return reflect.New(t).Interface().(SchemaProvider).JSONSchema(), true
	default:
		return JSONSchema{}, false
	}
}

// transformerFor returns the type's SchemaTransformer, if implemented.
func transformerFor(t reflect.Type) (SchemaTransformer, bool) {
	switch {
	case t.Implements(schemaTransformerIface):
		return reflect.Zero(t).Interface().(SchemaTransformer), true
	case t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(schemaTransformerIface):
		return reflect.New(t).Interface().(SchemaTransformer), true
	default:
		return nil, false
	}
}

// typeToSchema converts a reflect.Type to a fully inlined JSONSchema.
// Parameter schemas use this form; body and response schemas go through
// the registry so named types become components.
func typeToSchema(t reflect.Type) JSONSchema {
	// Unwrap pointer.
	if t.Kind() == reflect.Pointer {
		return typeToSchema(t.Elem())
	}

	if s, ok := providerSchema(t); ok {
		return s
	}

	// Handle well-known types.
	switch t {
	case reflect.TypeFor[time.Time]():
		return JSONSchema{Type: "string", Format: "date-time"}
	case reflect.TypeFor[time.Duration]():
		return JSONSchema{Type: "string", Format: "duration"}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return JSONSchema{Type: "string"}
	case reflect.Bool:
		return JSONSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return JSONSchema{Type: "integer"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return JSONSchema{Type: "number"}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return JSONSchema{Type: "string", ContentEncoding: "base64"}
		}
		items := typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Array:
		items := typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return JSONSchema{Type: "object"}
		}
		valSchema := typeToSchema(t.Elem())
		return JSONSchema{Type: "object", AdditionalProperties: &valSchema}
	case reflect.Struct:
		return structToSchema(t)
	case reflect.Interface:
		return JSONSchema{}
	default:
		return JSONSchema{}
	}
}

// structToSchema converts a struct type to a fully inlined object schema.
func structToSchema(t reflect.Type) JSONSchema {
	schema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		// Param fields are not part of the body schema.
		if isParamField(f) {
			continue
		}

		// Skip embedded RawRequest.
		if f.Type == reflect.TypeFor[RawRequest]() {
			continue
		}

		name := jsonFieldName(f)
		if name == "-" {
			continue
		}

		prop := typeToSchema(f.Type)

		if doc := f.Tag.Get("doc"); doc != "" {
			prop.Description = doc
		}
		prop = applyConstraintTags(prop, f)

		schema.Properties[name] = prop

		if f.Tag.Get("required") == "true" {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}

// applyConstraintTags copies validation tags onto the schema so the
// document advertises exactly what validateConstraints enforces.
func applyConstraintTags(schema JSONSchema, f reflect.StructField) JSONSchema {
	if tag := f.Tag.Get("default"); tag != "" {
		schema.Default = tag
	}
	if tag := f.Tag.Get("example"); tag != "" {
		schema.Example = tag
	}
	if tag := f.Tag.Get("pattern"); tag != "" {
		schema.Pattern = tag
	}
	if tag := f.Tag.Get("enum"); tag != "" {
		schema.Enum = strings.Split(tag, ",")
	}
	if tag := f.Tag.Get("minLength"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			schema.MinLength = &n
		}
	}
	if tag := f.Tag.Get("maxLength"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			schema.MaxLength = &n
		}
	}
	if tag := f.Tag.Get("minimum"); tag != "" {
		if v, err := strconv.ParseFloat(tag, 64); err == nil {
			schema.Minimum = &v
		}
	}
	if tag := f.Tag.Get("maximum"); tag != "" {
		if v, err := strconv.ParseFloat(tag, 64); err == nil {
			schema.Maximum = &v
		}
	}
	if tag := f.Tag.Get("minItems"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			schema.MinItems = &n
		}
	}
	if tag := f.Tag.Get("maxItems"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			schema.MaxItems = &n
		}
	}
	return schema
}

// errorResponseSchema is the schema for the RFC 9457 problem document,
// fully inlined so the components table carries a single self-contained
// entry.
func errorResponseSchema() JSONSchema {
	return structToSchema(reflect.TypeFor[Problem]())
}

// paramTags are the struct tags that mark a field as bound from the
// request line or headers rather than the body.
var paramTags = []string{"path", "query", "header", "form"}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

// isParamField reports whether a struct field has parameter binding tags.
func isParamField(f reflect.StructField) bool {
	for _, tag := range paramTags {
		if f.Tag.Get(tag) != "" {
			return true
		}
	}
	return false
}
