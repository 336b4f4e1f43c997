package strut_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strutkit/strut"
)

type specListParams struct {
	Material string `query:"material" doc:"filter by material"`
	Limit    int    `query:"limit" required:"true" default:"50" minimum:"1" maximum:"500"`
}

type specWidgetSel struct {
	ID string `path:"id" doc:"widget identifier"`
}

type specTenantHeader struct {
	Tenant string `header:"X-Tenant" required:"true"`
}

type specNewWidget struct {
	Name     string `json:"name" required:"true" minLength:"1"`
	Material string `json:"material" required:"true" enum:"wood,metal,plastic"`
}

type specOrderForm struct {
	Quantity int `form:"quantity" required:"true"`
}

type specAssetSel struct {
	Rest string `path:"rest"`
}

func specListHandler(_ context.Context, _ strut.Query[specListParams]) (strut.OK[Page[Gadget]], error) {
	return strut.OK[Page[Gadget]]{}, nil
}

func specGetHandler(_ context.Context, _ strut.Path[specWidgetSel], _ strut.Headers[specTenantHeader]) (strut.OK[Gadget], error) {
	return strut.OK[Gadget]{}, nil
}

func specCreateHandler(_ context.Context, _ strut.TypedBody[specNewWidget]) (strut.Created[Gadget], error) {
	return strut.Created[Gadget]{}, nil
}

func specDeleteHandler(_ context.Context, _ strut.Path[specWidgetSel]) (strut.NoContent, error) {
	return strut.NoContent{}, nil
}

func specOrderHandler(_ context.Context, _ strut.FormBody[specOrderForm]) (strut.Accepted[Gadget], error) {
	return strut.Accepted[Gadget]{}, nil
}

func specImageHandler(_ context.Context, _ strut.Path[specWidgetSel], _ strut.RawBody) (strut.NoContent, error) {
	return strut.NoContent{}, nil
}

func specAssetHandler(_ context.Context, _ strut.Path[specAssetSel]) (strut.Raw, error) {
	return strut.Raw{}, nil
}

// specService registers a representative endpoint set covering every
// documented shape.
func specService(t *testing.T) *strut.Service {
	t.Helper()

	svc := strut.New(
		strut.WithTitle("Widget Inventory"),
		strut.WithVersion("1.2.3"),
		strut.WithServiceDescription("manages the widget fleet"),
		strut.WithServers(strut.Server{URL: "https://api.example.com", Description: "production"}),
		strut.WithTagDescriptions(map[string]string{"widgets": "widget operations"}),
	)

	require.NoError(t, strut.Get(svc, "/widgets", specListHandler,
		strut.WithSummary("List widgets"),
		strut.WithDescription("Returns a page of widgets."),
		strut.WithTags("widgets"),
	))
	require.NoError(t, strut.Get(svc, "/widgets/{id}", specGetHandler, strut.WithTags("widgets")))
	require.NoError(t, strut.Post(svc, "/widgets", specCreateHandler, strut.WithTags("widgets", "admin")))
	require.NoError(t, strut.Delete(svc, "/widgets/{id}", specDeleteHandler,
		strut.WithOperationID("removeWidget"),
		strut.WithDeprecated(),
		strut.WithErrors(http.StatusConflict),
	))
	require.NoError(t, strut.Post(svc, "/orders", specOrderHandler))
	require.NoError(t, strut.Put(svc, "/widgets/{id}/image", specImageHandler))
	require.NoError(t, strut.Get(svc, "/assets/{rest...}", specAssetHandler))
	require.NoError(t, strut.Handle(svc, http.MethodGet, "/metrics", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), strut.OperationInfo{Summary: "Prometheus metrics"}))
	require.NoError(t, svc.ServeSpec("/openapi.json"))
	require.NoError(t, svc.ServeSpecYAML("/openapi.yaml"))
	require.NoError(t, svc.ServeDocs("/docs"))

	return svc
}

func TestOpenAPI_document_metadata(t *testing.T) {
	t.Parallel()

	spec := specService(t).OpenAPI()

	assert.Equal(t, "3.1.0", spec.OpenAPI)
	assert.Equal(t, "Widget Inventory", spec.Info.Title)
	assert.Equal(t, "1.2.3", spec.Info.Version)
	assert.Equal(t, "manages the widget fleet", spec.Info.Description)

	require.Len(t, spec.Servers, 1)
	assert.Equal(t, "https://api.example.com", spec.Servers[0].URL)

	// Tags are sorted by name; described tags carry their description.
	require.Len(t, spec.Tags, 2)
	assert.Equal(t, strut.Tag{Name: "admin"}, spec.Tags[0])
	assert.Equal(t, strut.Tag{Name: "widgets", Description: "widget operations"}, spec.Tags[1])
}

func TestOpenAPI_defaults_title_and_version(t *testing.T) {
	t.Parallel()

	svc := strut.New()
	require.NoError(t, strut.Get(svc, "/widgets", specListHandler))

	spec := svc.OpenAPI()
	assert.Equal(t, "API", spec.Info.Title)
	assert.Equal(t, "0.0.1", spec.Info.Version)
}

func TestOpenAPI_paths(t *testing.T) {
	t.Parallel()

	spec := specService(t).OpenAPI()

	assert.Len(t, spec.Paths, 6)
	assert.Contains(t, spec.Paths["/widgets"], "get")
	assert.Contains(t, spec.Paths["/widgets"], "post")
	assert.Contains(t, spec.Paths["/widgets/{id}"], "get")
	assert.Contains(t, spec.Paths["/widgets/{id}"], "delete")
	assert.Contains(t, spec.Paths["/orders"], "post")
	assert.Contains(t, spec.Paths["/widgets/{id}/image"], "put")
	assert.Contains(t, spec.Paths["/assets/{rest}"], "get")
	assert.Contains(t, spec.Paths["/metrics"], "get")

	// The OpenAPI and docs endpoints serve but are not documented.
	assert.NotContains(t, spec.Paths, "/openapi.json")
	assert.NotContains(t, spec.Paths, "/openapi.yaml")
	assert.NotContains(t, spec.Paths, "/docs")
}

func TestOpenAPI_parameters_follow_declaration_order(t *testing.T) {
	t.Parallel()

	spec := specService(t).OpenAPI()

	list := spec.Paths["/widgets"]["get"]
	require.Len(t, list.Parameters, 2)

	material := list.Parameters[0]
	assert.Equal(t, "material", material.Name)
	assert.Equal(t, "query", material.In)
	assert.Equal(t, "filter by material", material.Description)
	assert.False(t, material.Required)
	assert.Equal(t, "string", material.Schema.Type)

	limit := list.Parameters[1]
	assert.Equal(t, "limit", limit.Name)
	assert.True(t, limit.Required)
	assert.Equal(t, "integer", limit.Schema.Type)
	assert.Equal(t, "50", limit.Schema.Default)
	require.NotNil(t, limit.Schema.Minimum)
	assert.InDelta(t, 1.0, *limit.Schema.Minimum, 0)
	require.NotNil(t, limit.Schema.Maximum)
	assert.InDelta(t, 500.0, *limit.Schema.Maximum, 0)

	// Path extractor declared first, header extractor second.
	get := spec.Paths["/widgets/{id}"]["get"]
	require.Len(t, get.Parameters, 2)

	id := get.Parameters[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, "path", id.In)
	assert.True(t, id.Required)
	assert.Equal(t, "widget identifier", id.Description)

	tenant := get.Parameters[1]
	assert.Equal(t, "X-Tenant", tenant.Name)
	assert.Equal(t, "header", tenant.In)
	assert.True(t, tenant.Required)
}

func TestOpenAPI_request_bodies(t *testing.T) {
	t.Parallel()

	spec := specService(t).OpenAPI()

	create := spec.Paths["/widgets"]["post"]
	require.NotNil(t, create.RequestBody)
	assert.True(t, create.RequestBody.Required)
	require.Contains(t, create.RequestBody.Content, "application/json")
	assert.Equal(t, "#/components/schemas/specNewWidget", create.RequestBody.Content["application/json"].Schema.Ref)

	order := spec.Paths["/orders"]["post"]
	require.NotNil(t, order.RequestBody)
	require.Contains(t, order.RequestBody.Content, "application/x-www-form-urlencoded")
	assert.Equal(t, "#/components/schemas/specOrderForm", order.RequestBody.Content["application/x-www-form-urlencoded"].Schema.Ref)

	image := spec.Paths["/widgets/{id}/image"]["put"]
	require.NotNil(t, image.RequestBody)
	require.Contains(t, image.RequestBody.Content, "application/octet-stream")
	raw := image.RequestBody.Content["application/octet-stream"].Schema
	assert.Equal(t, "string", raw.Type)
	assert.Equal(t, "binary", raw.Format)

	assert.Nil(t, spec.Paths["/widgets"]["get"].RequestBody)
}

func TestOpenAPI_success_responses(t *testing.T) {
	t.Parallel()

	spec := specService(t).OpenAPI()

	list := spec.Paths["/widgets"]["get"]
	require.Contains(t, list.Responses, "200")
	ok := list.Responses["200"]
	assert.Equal(t, "Successful response", ok.Description)
	require.Contains(t, ok.Content, "application/json")
	assert.Equal(t, "#/components/schemas/PageGadget", ok.Content["application/json"].Schema.Ref)

	create := spec.Paths["/widgets"]["post"]
	require.Contains(t, create.Responses, "201")
	assert.Equal(t, "#/components/schemas/Gadget", create.Responses["201"].Content["application/json"].Schema.Ref)

	del := spec.Paths["/widgets/{id}"]["delete"]
	require.Contains(t, del.Responses, "204")
	assert.Equal(t, "No content", del.Responses["204"].Description)
	assert.Empty(t, del.Responses["204"].Content)

	assets := spec.Paths["/assets/{rest}"]["get"]
	require.Contains(t, assets.Responses, "default")
	dyn := assets.Responses["default"]
	assert.Equal(t, "Request-defined response", dyn.Description)
	require.Contains(t, dyn.Content, "application/octet-stream")

	metrics := spec.Paths["/metrics"]["get"]
	assert.Equal(t, "Prometheus metrics", metrics.Summary)
	require.Contains(t, metrics.Responses, "default")
	assert.Empty(t, metrics.Responses["default"].Content)
}

func TestOpenAPI_error_responses(t *testing.T) {
	t.Parallel()

	spec := specService(t).OpenAPI()

	// Every typed endpoint can produce 400 and 500.
	list := spec.Paths["/widgets"]["get"]
	require.Contains(t, list.Responses, "400")
	require.Contains(t, list.Responses, "500")
	assert.NotContains(t, list.Responses, "404")
	assert.NotContains(t, list.Responses, "415")

	bad := list.Responses["400"]
	assert.Equal(t, "Bad Request", bad.Description)
	require.Contains(t, bad.Content, "application/problem+json")
	assert.Equal(t, "#/components/schemas/Problem", bad.Content["application/problem+json"].Schema.Ref)

	// Path variables add 404.
	get := spec.Paths["/widgets/{id}"]["get"]
	assert.Contains(t, get.Responses, "404")

	// A media-typed body extractor adds 415; a raw body does not.
	assert.Contains(t, spec.Paths["/widgets"]["post"].Responses, "415")
	assert.Contains(t, spec.Paths["/orders"]["post"].Responses, "415")
	assert.NotContains(t, spec.Paths["/widgets/{id}/image"]["put"].Responses, "415")

	// Explicitly declared codes appear alongside the implicit set.
	del := spec.Paths["/widgets/{id}"]["delete"]
	assert.Contains(t, del.Responses, "409")
	assert.Contains(t, del.Responses, "404")
	assert.True(t, del.Deprecated)
}

func TestOpenAPI_components(t *testing.T) {
	t.Parallel()

	spec := specService(t).OpenAPI()

	require.NotNil(t, spec.Components)
	for _, name := range []string{"Problem", "Gadget", "PageGadget", "specNewWidget", "specOrderForm"} {
		assert.Contains(t, spec.Components.Schemas, name)
	}

	problem := spec.Components.Schemas["Problem"]
	assert.Equal(t, "object", problem.Type)
	assert.Equal(t, []string{"status"}, problem.Required)
}

func TestOpenAPI_operation_ids(t *testing.T) {
	t.Parallel()

	spec := specService(t).OpenAPI()

	assert.Equal(t, "getWidgets", spec.Paths["/widgets"]["get"].OperationID)
	assert.Equal(t, "getWidgetsById", spec.Paths["/widgets/{id}"]["get"].OperationID)
	assert.Equal(t, "putWidgetsByIdImage", spec.Paths["/widgets/{id}/image"]["put"].OperationID)
	assert.Equal(t, "removeWidget", spec.Paths["/widgets/{id}"]["delete"].OperationID)
}

func TestGenerateOperationID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		method   string
		template string
		want     string
	}{
		"root":           {method: http.MethodGet, template: "/", want: "get"},
		"literal":        {method: http.MethodGet, template: "/widgets", want: "getWidgets"},
		"variable":       {method: http.MethodGet, template: "/users/{id}", want: "getUsersById"},
		"snake variable": {method: http.MethodGet, template: "/users/{user_id}/posts", want: "getUsersByUserIdPosts"},
		"kebab literal":  {method: http.MethodPost, template: "/user-profiles", want: "postUserProfiles"},
		"wildcard":       {method: http.MethodGet, template: "/assets/{path...}", want: "getAssetsByPath"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, strut.GenerateOperationID(tc.method, tc.template))
		})
	}
}

func TestSpecJSON_is_byte_identical_across_builds(t *testing.T) {
	t.Parallel()

	svc := specService(t)

	first, err := svc.SpecJSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, sonic.ConfigStd.Unmarshal(first, &doc))

	// Repeated calls return the cached bytes.
	second, err := svc.SpecJSON()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A fresh service with the same registrations generates the same
	// bytes from scratch.
	third, err := specService(t).SpecJSON()
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestSpecJSON_cache_invalidated_by_registration(t *testing.T) {
	t.Parallel()

	svc := strut.New()
	require.NoError(t, strut.Get(svc, "/widgets", specListHandler))

	first, err := svc.SpecJSON()
	require.NoError(t, err)

	require.NoError(t, strut.Post(svc, "/widgets", specCreateHandler))

	second, err := svc.SpecJSON()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Contains(t, string(second), `"post"`)
}
