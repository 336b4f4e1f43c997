package strut

import (
	"reflect"
	"slices"
)

// Test-only exports for internal functions.
var (
	BindVars    = bindVars
	BindQuery   = bindQuery
	BindHeaders = bindHeaders
	BindForm    = bindForm

	TypeToSchema        = typeToSchema
	StructToSchema      = structToSchema
	JSONFieldName       = jsonFieldName
	ApplyConstraintTags = applyConstraintTags
	SanitizeSchemaName  = sanitizeSchemaName

	ErrorResponseSchema = errorResponseSchema
	ErrorSchemaName     = errorSchemaName

	ValidateConstraints = validateConstraints
	GenerateOperationID = generateOperationID
)

// ParsedTemplate summarizes a parsed route template for external tests.
type ParsedTemplate struct {
	Vars    []string
	Wild    bool
	DocPath string
}

// ParseTemplate parses a route template and reports its shape.
func ParseTemplate(raw string) (ParsedTemplate, error) {
	t, err := parseTemplate(raw)
	if err != nil {
		return ParsedTemplate{}, err
	}
	return ParsedTemplate{
		Vars:    slices.Clone(t.vars),
		Wild:    t.wild,
		DocPath: t.openAPIPath(),
	}, nil
}

// TestSchemaRegistry wraps schemaRegistry for external tests.
type TestSchemaRegistry struct {
	reg  *schemaRegistry
	Defs map[string]JSONSchema
}

// NewSchemaRegistry creates a TestSchemaRegistry for testing.
func NewSchemaRegistry() *TestSchemaRegistry {
	r := newSchemaRegistry()
	return &TestSchemaRegistry{reg: r, Defs: r.defs}
}

// TypeToSchema delegates to the internal registry.
func (t *TestSchemaRegistry) TypeToSchema(typ reflect.Type) JSONSchema {
	return t.reg.typeToSchema(typ)
}
