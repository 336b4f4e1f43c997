package strut_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strutkit/strut"
)

// doubleReader consumes the request body twice to exercise the
// consumption guard.
type doubleReader struct{}

func (d *doubleReader) Bind(r *strut.Request) error {
	var first strut.RawBody
	if err := first.Bind(r); err != nil {
		return err
	}
	var second strut.RawBody
	return second.Bind(r)
}

func (doubleReader) Binding() strut.Binding {
	return strut.Binding{Source: strut.SourceBody, Media: "*/*", Consumes: true}
}

func TestRequest_second_body_read_is_an_internal_fault(t *testing.T) {
	t.Parallel()

	svc := strut.New()
	require.NoError(t, strut.Post(svc, "/widgets", func(_ context.Context, _ doubleReader) (strut.NoContent, error) {
		return strut.NoContent{}, nil
	}))

	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	resp := postBody(t, srv.URL+"/widgets", "application/octet-stream", "hello")
	defer func() { require.NoError(t, resp.Body.Close()) }()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	problem := decodeProblem(t, resp.Body)
	assert.Equal(t, "request body already consumed", problem.Detail)
}

func echoDocHandler(_ context.Context, b strut.TypedBody[widgetDoc]) (strut.OK[widgetDoc], error) {
	return strut.OK[widgetDoc]{Value: b.Value}, nil
}

func TestRequest_endpoint_limit_overrides_service_default(t *testing.T) {
	t.Parallel()

	svc := strut.New(strut.WithDefaultBodyLimit(8))
	require.NoError(t, strut.Post(svc, "/small", echoDocHandler))
	require.NoError(t, strut.Post(svc, "/large", echoDocHandler, strut.WithBodyLimit(1024)))

	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	payload := `{"name":"` + strings.Repeat("x", 64) + `"}`

	small := postBody(t, srv.URL+"/small", "application/json", payload)
	defer func() { require.NoError(t, small.Body.Close()) }()
	require.Equal(t, http.StatusRequestEntityTooLarge, small.StatusCode)
	problem := decodeProblem(t, small.Body)
	assert.Equal(t, "request body exceeded maximum size of 8 bytes", problem.Detail)

	large := postBody(t, srv.URL+"/large", "application/json", payload)
	require.NoError(t, large.Body.Close())
	assert.Equal(t, http.StatusOK, large.StatusCode)
}

func TestRequest_accessors(t *testing.T) {
	t.Parallel()

	type reqInfo struct {
		ID      string `json:"id"`
		Query   string `json:"query"`
		Header  string `json:"header"`
		HasHTTP bool   `json:"has_http"`
	}

	svc := strut.New()
	require.NoError(t, strut.Get(svc, "/inspect", func(ctx context.Context) (strut.OK[reqInfo], error) {
		req, ok := strut.RequestFrom(ctx)
		if !ok {
			return strut.OK[reqInfo]{}, strut.Error(http.StatusInternalServerError, "no request in context")
		}
		return strut.OK[reqInfo]{Value: reqInfo{
			ID:      req.ID(),
			Query:   req.Query().Get("verbose"),
			Header:  req.Header().Get("X-Caller"),
			HasHTTP: req.HTTP() != nil,
		}}, nil
	}))

	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/inspect?verbose=1", nil)
	require.NoError(t, err)
	req.Header.Set("X-Caller", "cli")
	req.Header.Set(strut.RequestIDHeader, "req-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var info reqInfo
	require.NoError(t, sonic.ConfigStd.Unmarshal(data, &info))

	assert.Equal(t, "req-42", info.ID)
	assert.Equal(t, "1", info.Query)
	assert.Equal(t, "cli", info.Header)
	assert.True(t, info.HasHTTP)
}
