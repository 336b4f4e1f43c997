package strut_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strutkit/strut"
)

func TestRecovery_catches_escape_hatch_panics(t *testing.T) {
	t.Parallel()

	svc := strut.New()
	svc.Use(strut.Recovery())

	require.NoError(t, strut.Handle(svc, http.MethodGet, "/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("wiring fault")
	}), strut.OperationInfo{}))
	require.NoError(t, strut.Get(svc, "/ok", echoHandler("ok")))

	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	resp := doGet(t, srv.Client(), srv.URL+"/boom")
	defer func() { require.NoError(t, resp.Body.Close()) }()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

	problem := decodeProblem(t, resp.Body)
	assert.Equal(t, "internal server error", problem.Detail)

	// The server keeps serving after the panic.
	status, body := getJSON[routeEcho](t, srv, "/ok")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.Route)
}
