package strut

import (
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// OpenAPISpec is the top-level OpenAPI 3.1 document.
type OpenAPISpec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Tags       []Tag               `json:"tags,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components *Components         `json:"components,omitempty"`
}

// Info holds API metadata.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Server describes a server the API is available on.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Tag describes a group of operations.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Components holds the reusable schema definitions.
type Components struct {
	Schemas map[string]JSONSchema `json:"schemas,omitempty"`
}

// PathItem maps HTTP methods to operations.
type PathItem map[string]Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string        `json:"summary,omitempty"`
	Description string        `json:"description,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	OperationID string        `json:"operationId,omitempty"`
	Parameters  []Parameter   `json:"parameters,omitempty"`
	RequestBody *RequestBody  `json:"requestBody,omitempty"`
	Responses   OperationResp `json:"responses"`
	Deprecated  bool          `json:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name"`
	In          string     `json:"in"`
	Description string     `json:"description,omitempty"`
	Required    bool       `json:"required,omitempty"`
	Schema      JSONSchema `json:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required"`
	Content  map[string]MediaObj `json:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *JSONSchema `json:"schema,omitempty"`
}

// OperationResp maps HTTP status codes to response objects.
type OperationResp map[string]ResponseObj

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description"`
	Content     map[string]MediaObj `json:"content,omitempty"`
}

// OpenAPI generates the full OpenAPI 3.1 document from the registered
// endpoints. Generation is pure: it reads only the endpoint records, so
// the same registrations always produce the same document.
func (s *Service) OpenAPI() OpenAPISpec {
	reg := newSchemaRegistry()

	spec := OpenAPISpec{
		OpenAPI: "3.1.0",
		Info: Info{
			Title:       s.title,
			Version:     s.version,
			Description: s.description,
		},
		Servers: s.servers,
		Paths:   make(map[string]PathItem),
	}
	if spec.Info.Title == "" {
		spec.Info.Title = "API"
	}
	if spec.Info.Version == "" {
		spec.Info.Version = "0.0.1"
	}

	for _, ep := range s.endpoints {
		if ep.hidden {
			continue
		}
		path := ep.template.openAPIPath()
		method := strings.ToLower(ep.method)

		if spec.Paths[path] == nil {
			spec.Paths[path] = make(PathItem)
		}
		spec.Paths[path][method] = buildOperation(reg, ep)
	}

	reg.defs[errorSchemaName] = errorResponseSchema()
	spec.Components = &Components{Schemas: reg.defs}

	spec.Tags = s.buildTags()

	return spec
}

// buildOperation creates an Operation from an endpoint record.
func buildOperation(reg *schemaRegistry, ep *endpoint) Operation {
	op := Operation{
		Summary:     ep.summary,
		Description: ep.desc,
		Tags:        ep.tags,
		OperationID: ep.operationID,
		Deprecated:  ep.deprecated,
		Responses:   make(OperationResp),
	}
	if op.OperationID == "" {
		op.OperationID = generateOperationID(ep.method, ep.template.raw)
	}

	// Parameters follow extractor declaration order, then field order.
	for _, p := range ep.params {
		op.Parameters = append(op.Parameters, extractParameters(p.binding)...)
	}

	if b, ok := ep.bodyBinding(); ok {
		op.RequestBody = requestBodyFor(reg, b)
	}

	addSuccessResponse(reg, &op, ep.response)
	addErrorResponses(&op, ep)

	return op
}

// addSuccessResponse documents the responder's fixed contract, or the
// "default" entry for dynamic responders.
func addSuccessResponse(reg *schemaRegistry, op *Operation, rs ResponseSpec) {
	switch {
	case rs.Dynamic:
		content := map[string]MediaObj{}
		if rs.ContentType != "" {
			content[rs.ContentType] = MediaObj{Schema: &JSONSchema{Type: "string", Format: "binary"}}
		}
		resp := ResponseObj{Description: "Request-defined response"}
		if len(content) > 0 {
			resp.Content = content
		}
		op.Responses["default"] = resp

	case rs.Schema != nil && rs.ContentType != "":
		schema := reg.typeToSchema(rs.Schema)
		op.Responses[statusToString(rs.Status)] = ResponseObj{
			Description: "Successful response",
			Content:     map[string]MediaObj{rs.ContentType: {Schema: &schema}},
		}

	case rs.Status != 0:
		op.Responses[statusToString(rs.Status)] = ResponseObj{
			Description: "No content",
		}
	}
}

// addErrorResponses documents the statuses the dispatch pipeline itself
// can produce: 400 and 500 always, 404 when the template has variables,
// 415 when a body extractor checks content types, plus any explicitly
// declared codes. Codes already documented as the success response are
// left alone.
func addErrorResponses(op *Operation, ep *endpoint) {
	codes := []int{http.StatusBadRequest, http.StatusInternalServerError}
	if ep.hasPathParams() {
		codes = append(codes, http.StatusNotFound)
	}
	if b, ok := ep.bodyBinding(); ok && b.Media != mediaAny {
		codes = append(codes, http.StatusUnsupportedMediaType)
	}
	codes = append(codes, ep.errors...)

	slices.Sort(codes)
	codes = slices.Compact(codes)

	for _, code := range codes {
		key := statusToString(code)
		if _, exists := op.Responses[key]; exists {
			continue
		}
		op.Responses[key] = errorResponse(code)
	}
}

// errorResponse builds a response object referencing the shared problem
// document schema.
func errorResponse(code int) ResponseObj {
	return ResponseObj{
		Description: http.StatusText(code),
		Content: map[string]MediaObj{
			mediaProblem: {Schema: &JSONSchema{Ref: "#/components/schemas/" + errorSchemaName}},
		},
	}
}

// extractParameters builds OpenAPI parameters from one extractor's
// target struct.
func extractParameters(b Binding) []Parameter {
	var in, tag string
	switch b.Source {
	case SourcePath:
		in, tag = "path", "path"
	case SourceQuery:
		in, tag = "query", "query"
	case SourceHeader:
		in, tag = "header", "header"
	default:
		return nil
	}
	if b.Target == nil || b.Target.Kind() != reflect.Struct {
		return nil
	}

	var params []Parameter
	t := b.Target
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		val := f.Tag.Get(tag)
		if val == "" {
			continue
		}

		p := Parameter{
			Name:   val,
			In:     in,
			Schema: applyConstraintTags(typeToSchema(f.Type), f),
		}

		if doc := f.Tag.Get("doc"); doc != "" {
			p.Description = doc
		}

		if f.Tag.Get("required") == "true" || in == "path" {
			p.Required = true
		}

		params = append(params, p)
	}

	return params
}

// requestBodyFor documents the body extractor's media type and schema.
func requestBodyFor(reg *schemaRegistry, b Binding) *RequestBody {
	if b.Target == nil {
		return &RequestBody{
			Required: true,
			Content: map[string]MediaObj{
				mediaOctet: {Schema: &JSONSchema{Type: "string", Format: "binary"}},
			},
		}
	}
	schema := reg.typeToSchema(b.Target)
	return &RequestBody{
		Required: true,
		Content: map[string]MediaObj{
			b.Media: {Schema: &schema},
		},
	}
}

// buildTags collects every tag in use plus every described tag, sorted
// by name.
func (s *Service) buildTags() []Tag {
	seen := make(map[string]bool)
	var names []string

	for name := range s.tagDescs {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, ep := range s.endpoints {
		if ep.hidden {
			continue
		}
		for _, tag := range ep.tags {
			if !seen[tag] {
				seen[tag] = true
				names = append(names, tag)
			}
		}
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)

	tags := make([]Tag, 0, len(names))
	for _, name := range names {
		tags = append(tags, Tag{Name: name, Description: s.tagDescs[name]})
	}
	return tags
}

// generateOperationID derives an operationId from the method and
// template, e.g. GET /users/{id} becomes getUsersById.
func generateOperationID(method, template string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, seg := range splitPath(template) {
		if strings.HasPrefix(seg, "{") {
			name := strings.TrimSuffix(strings.TrimPrefix(seg, "{"), "}")
			name = strings.TrimSuffix(name, "...")
			b.WriteString("By")
			b.WriteString(camelSegment(name))
			continue
		}
		b.WriteString(camelSegment(seg))
	}
	return b.String()
}

// camelSegment upper-cases the start of each alphanumeric run, so
// "user-profiles" becomes "UserProfiles".
func camelSegment(seg string) string {
	var b strings.Builder
	upper := true
	for _, r := range seg {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// statusToString converts an HTTP status code to its string representation.
func statusToString(code int) string {
	return strconv.Itoa(code)
}
