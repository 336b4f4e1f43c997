package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/strutkit/strut"
)

// server bundles the store and the handlers mounted on the service.
type server struct {
	store    *widgetStore
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newServer(store *widgetStore, logger *slog.Logger) *server {
	return &server{
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ---------------------------------------------------------------------------
// Request / response types
// ---------------------------------------------------------------------------

type HealthStatus struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type ListWidgetsParams struct {
	Material string `query:"material" doc:"Filter by material (wood, metal, plastic)"`
	Limit    int    `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Max results"`
	Offset   int    `query:"offset" default:"0" minimum:"0" doc:"Pagination offset"`
}

type WidgetPage struct {
	Items []Widget `json:"items"`
	Total int      `json:"total" doc:"Total widgets matching the filter, before pagination"`
}

type WidgetCount struct {
	Count int `json:"count"`
}

type WidgetSelector struct {
	ID string `path:"id" doc:"Widget ID"`
}

type NewWidget struct {
	Name     string `json:"name" required:"true" minLength:"1" maxLength:"64" doc:"Display name"`
	Material string `json:"material" required:"true" enum:"wood,metal,plastic" doc:"Material"`
	Grams    int    `json:"grams" required:"true" minimum:"1" doc:"Weight in grams"`
}

type WidgetUpdate struct {
	Name     string `json:"name" maxLength:"64" doc:"New display name, unchanged when empty"`
	Material string `json:"material" doc:"New material, unchanged when empty"`
	Grams    int    `json:"grams" minimum:"0" doc:"New weight in grams, unchanged when zero"`
}

func (u *WidgetUpdate) Validate() error {
	if u.Material != "" && !validMaterial(u.Material) {
		return strut.Errorf(http.StatusBadRequest, "material must be one of wood, metal, plastic")
	}
	return nil
}

func validMaterial(m string) bool {
	switch m {
	case "wood", "metal", "plastic":
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Typed handlers
// ---------------------------------------------------------------------------

func (s *server) handleHealth(_ context.Context) (strut.OK[HealthStatus], error) {
	return strut.OK[HealthStatus]{Value: HealthStatus{
		Status: "ok",
		Time:   time.Now().UTC(),
	}}, nil
}

func (s *server) handleListWidgets(_ context.Context, q strut.Query[ListWidgetsParams]) (strut.OK[WidgetPage], error) {
	widgets := s.store.list(q.Value.Material)
	total := len(widgets)

	if q.Value.Offset > len(widgets) {
		widgets = nil
	} else {
		widgets = widgets[q.Value.Offset:]
	}
	if q.Value.Limit > 0 && q.Value.Limit < len(widgets) {
		widgets = widgets[:q.Value.Limit]
	}

	return strut.OK[WidgetPage]{Value: WidgetPage{
		Items: widgets,
		Total: total,
	}}, nil
}

func (s *server) handleCountWidgets(_ context.Context) (strut.OK[WidgetCount], error) {
	return strut.OK[WidgetCount]{Value: WidgetCount{Count: s.store.count()}}, nil
}

func (s *server) handleGetWidget(_ context.Context, p strut.Path[WidgetSelector]) (strut.OK[Widget], error) {
	w, ok := s.store.get(p.Value.ID)
	if !ok {
		return strut.OK[Widget]{}, strut.Errorf(http.StatusNotFound, "widget %s not found", p.Value.ID)
	}
	return strut.OK[Widget]{Value: w}, nil
}

func (s *server) handleCreateWidget(_ context.Context, b strut.TypedBody[NewWidget]) (strut.Created[Widget], error) {
	w := s.store.create(b.Value.Name, b.Value.Material, b.Value.Grams)
	return strut.Created[Widget]{Value: w}, nil
}

func (s *server) handleUpdateWidget(_ context.Context, p strut.Path[WidgetSelector], b strut.TypedBody[WidgetUpdate]) (strut.OK[Widget], error) {
	w, ok := s.store.update(p.Value.ID, b.Value.Name, b.Value.Material, b.Value.Grams)
	if !ok {
		return strut.OK[Widget]{}, strut.Errorf(http.StatusNotFound, "widget %s not found", p.Value.ID)
	}
	return strut.OK[Widget]{Value: w}, nil
}

func (s *server) handleDeleteWidget(_ context.Context, p strut.Path[WidgetSelector]) (strut.NoContent, error) {
	if !s.store.delete(p.Value.ID) {
		return strut.NoContent{}, strut.Errorf(http.StatusNotFound, "widget %s not found", p.Value.ID)
	}
	return strut.NoContent{}, nil
}

func (s *server) handleGetImage(_ context.Context, p strut.Path[WidgetSelector]) (strut.Raw, error) {
	img, ok := s.store.getImage(p.Value.ID)
	if !ok {
		return strut.Raw{}, strut.Errorf(http.StatusNotFound, "no image for widget %s", p.Value.ID)
	}
	return strut.Raw{
		ContentType: img.contentType,
		Body:        bytes.NewReader(img.data),
	}, nil
}

func (s *server) handleSetImage(_ context.Context, p strut.Path[WidgetSelector], body strut.RawBody) (strut.NoContent, error) {
	if !strings.HasPrefix(body.ContentType, "image/") {
		return strut.NoContent{}, strut.Errorf(http.StatusUnsupportedMediaType,
			"expected an image/* body, got %q", body.ContentType)
	}
	if !s.store.setImage(p.Value.ID, storedImage{data: body.Data, contentType: body.ContentType}) {
		return strut.NoContent{}, strut.Errorf(http.StatusNotFound, "widget %s not found", p.Value.ID)
	}
	return strut.NoContent{}, nil
}

// ---------------------------------------------------------------------------
// Websocket change feed
// ---------------------------------------------------------------------------

// handleWatch upgrades to a websocket and streams store mutations as JSON
// until either side disconnects.
func (s *server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		return
	}
	defer conn.Close() //nolint:errcheck

	events, cancel := s.store.watch()
	defer cancel()

	// Reader pump: the client never sends data frames, but reading is how
	// close frames and dead peers are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("watch write failed", "err", err)
			return
		}
	}
}

// seed pre-populates the store so the demo has data to serve.
func seed(store *widgetStore) {
	store.create("left-handed flange", "metal", 120)
	store.create("self-sealing stem bolt", "metal", 45)
	store.create("whittled grommet", "wood", 30)
}
