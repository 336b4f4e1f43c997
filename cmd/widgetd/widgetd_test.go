package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strutkit/strut"
	"github.com/strutkit/strut/apitest"
)

func newTestClient(t *testing.T) (*apitest.Client, *widgetStore) {
	t.Helper()

	store := newWidgetStore()
	seed(store)
	srv := newServer(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	svc, err := newService(Config{BodyLimit: 1 << 20}, srv)
	require.NoError(t, err)

	return apitest.NewClient(t, svc), store
}

func TestWidgetd_end_to_end(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)

	health := apitest.Get[HealthStatus](t, c, "/healthz")
	require.Equal(t, http.StatusOK, health.Status)
	assert.Equal(t, "ok", health.Body.Status)

	page := apitest.Get[WidgetPage](t, c, "/widgets")
	require.Equal(t, http.StatusOK, page.Status)
	require.NotNil(t, page.Body)
	assert.Equal(t, 3, page.Body.Total)
	names := make([]string, 0, len(page.Body.Items))
	for _, w := range page.Body.Items {
		names = append(names, w.Name)
	}
	assert.ElementsMatch(t, []string{"left-handed flange", "self-sealing stem bolt", "whittled grommet"}, names)

	wood := apitest.Get[WidgetPage](t, c, "/widgets?material=wood")
	require.Equal(t, http.StatusOK, wood.Status)
	assert.Equal(t, 1, wood.Body.Total)

	paged := apitest.Get[WidgetPage](t, c, "/widgets?limit=2&offset=2")
	require.Equal(t, http.StatusOK, paged.Status)
	assert.Equal(t, 3, paged.Body.Total)
	assert.Len(t, paged.Body.Items, 1)

	count := apitest.Get[WidgetCount](t, c, "/widgets/count")
	require.Equal(t, http.StatusOK, count.Status)
	assert.Equal(t, 3, count.Body.Count)

	created := apitest.Post[NewWidget, Widget](t, c, "/widgets", &NewWidget{
		Name:     "ratchet",
		Material: "plastic",
		Grams:    75,
	})
	require.Equal(t, http.StatusCreated, created.Status)
	require.NotNil(t, created.Body)
	require.NotEmpty(t, created.Body.ID)

	got := apitest.Get[Widget](t, c, "/widgets/"+created.Body.ID)
	require.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, "ratchet", got.Body.Name)

	updated := apitest.Put[WidgetUpdate, Widget](t, c, "/widgets/"+created.Body.ID, &WidgetUpdate{Grams: 80})
	require.Equal(t, http.StatusOK, updated.Status)
	assert.Equal(t, "ratchet", updated.Body.Name)
	assert.Equal(t, 80, updated.Body.Grams)

	deleted := apitest.Delete[struct{}](t, c, "/widgets/"+created.Body.ID)
	require.Equal(t, http.StatusNoContent, deleted.Status)

	missing := apitest.Get[strut.Problem](t, c, "/widgets/"+created.Body.ID)
	require.Equal(t, http.StatusNotFound, missing.Status)
	require.NotNil(t, missing.Body)
	assert.Contains(t, missing.Body.Detail, "not found")
}

func TestWidgetd_rejects_invalid_widgets(t *testing.T) {
	t.Parallel()

	c, store := newTestClient(t)

	bad := apitest.Post[NewWidget, strut.Problem](t, c, "/widgets", &NewWidget{
		Name:     "vase",
		Material: "glass",
		Grams:    200,
	})
	require.Equal(t, http.StatusBadRequest, bad.Status)
	require.NotNil(t, bad.Body)
	assert.Equal(t, "Validation Failed", bad.Body.Title)
	require.Len(t, bad.Body.Errors, 1)
	assert.Equal(t, "material", bad.Body.Errors[0].Field)
	assert.Equal(t, "must be one of [wood,metal,plastic]", bad.Body.Errors[0].Message)

	w := store.list("wood")[0]
	badUpdate := apitest.Put[WidgetUpdate, strut.Problem](t, c, "/widgets/"+w.ID, &WidgetUpdate{Material: "glass"})
	require.Equal(t, http.StatusBadRequest, badUpdate.Status)
	require.NotNil(t, badUpdate.Body)
	assert.Equal(t, "material must be one of wood, metal, plastic", badUpdate.Body.Detail)
}

func TestWidgetUpdate_validate(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		material string
		wantErr  bool
	}{
		"empty means unchanged": {material: "", wantErr: false},
		"wood":                  {material: "wood", wantErr: false},
		"metal":                 {material: "metal", wantErr: false},
		"plastic":               {material: "plastic", wantErr: false},
		"unknown material":      {material: "glass", wantErr: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			u := WidgetUpdate{Material: tc.material}
			err := u.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, strut.ErrorStatus(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWidgetd_image_round_trip(t *testing.T) {
	t.Parallel()

	c, store := newTestClient(t)
	w := store.list("wood")[0]
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

	upload := func(contentType string, body []byte) *http.Response {
		t.Helper()
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPut,
			c.Server.URL+"/widgets/"+w.ID+"/image", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", contentType)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := upload("image/png", png)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
		c.Server.URL+"/widgets/"+w.ID+"/image", nil)
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, raw.Body.Close()) }()
	require.Equal(t, http.StatusOK, raw.StatusCode)
	assert.Equal(t, "image/png", raw.Header.Get("Content-Type"))
	body, err := io.ReadAll(raw.Body)
	require.NoError(t, err)
	assert.Equal(t, png, body)

	wrong := upload("text/plain", []byte("not an image"))
	defer func() { require.NoError(t, wrong.Body.Close()) }()
	require.Equal(t, http.StatusUnsupportedMediaType, wrong.StatusCode)

	var problem strut.Problem
	require.NoError(t, sonic.ConfigStd.NewDecoder(wrong.Body).Decode(&problem))
	assert.Contains(t, problem.Detail, `expected an image/* body`)
}

func TestWidgetd_watch_streams_mutations(t *testing.T) {
	t.Parallel()

	c, store := newTestClient(t)

	wsURL := "ws" + strings.TrimPrefix(c.Server.URL, "http") + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil) //nolint:bodyclose
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	// The handler subscribes after the upgrade completes; wait for the
	// subscription before mutating so no event is missed.
	require.Eventually(t, func() bool {
		store.wmu.Lock()
		defer store.wmu.Unlock()
		return len(store.watchers) == 1
	}, time.Second, 5*time.Millisecond)

	w := store.create("conveyor belt", "metal", 500)
	require.True(t, store.delete(w.ID))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var created widgetEvent
	require.NoError(t, conn.ReadJSON(&created))
	assert.Equal(t, eventCreated, created.Type)
	assert.Equal(t, w.ID, created.Widget.ID)
	assert.Equal(t, "conveyor belt", created.Widget.Name)

	var deleted widgetEvent
	require.NoError(t, conn.ReadJSON(&deleted))
	assert.Equal(t, eventDeleted, deleted.Type)
	assert.Equal(t, w.ID, deleted.Widget.ID)
}

func TestWidgetd_operational_endpoints(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)

	// Some traffic so the request counter has something to show.
	health := apitest.Get[HealthStatus](t, c, "/healthz")
	require.Equal(t, http.StatusOK, health.Status)

	fetch := func(path string) (string, http.Header) {
		t.Helper()
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.Server.URL+path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { require.NoError(t, resp.Body.Close()) }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body), resp.Header
	}

	spec, specHeaders := fetch("/openapi.json")
	assert.Equal(t, "application/json", specHeaders.Get("Content-Type"))
	var doc struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, sonic.ConfigStd.Unmarshal([]byte(spec), &doc))
	assert.Equal(t, "Widget Inventory", doc.Info.Title)
	assert.Equal(t, "1.0.0", doc.Info.Version)
	assert.Contains(t, doc.Paths, "/widgets/{id}/image")
	assert.Contains(t, doc.Paths, "/watch")

	docs, docsHeaders := fetch("/docs")
	assert.Contains(t, docsHeaders.Get("Content-Type"), "text/html")
	assert.Contains(t, docs, "<title>Widget Inventory</title>")
	assert.Contains(t, docs, `"/openapi.json"`)

	metrics, _ := fetch("/metrics")
	assert.Contains(t, metrics, "go_goroutines")
	assert.Contains(t, metrics, "http_requests_total")
	assert.Contains(t, metrics, `template="/healthz"`)
}

func TestWidgetd_spec_is_valid_openapi(t *testing.T) {
	t.Parallel()

	store := newWidgetStore()
	srv := newServer(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	svc, err := newService(Config{BodyLimit: 1 << 20}, srv)
	require.NoError(t, err)
	require.NoError(t, svc.ValidateSpec(context.Background()))
}
