package main

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Widget is the core domain entity.
type Widget struct {
	ID        string    `json:"id" doc:"Widget ID"`
	Name      string    `json:"name" doc:"Display name"`
	Material  string    `json:"material" doc:"Material the widget is made of"`
	Grams     int       `json:"grams" doc:"Weight in grams"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// widgetEvent is one entry on the websocket change feed.
type widgetEvent struct {
	Type   string `json:"type"`
	Widget Widget `json:"widget"`
}

const (
	eventCreated = "created"
	eventUpdated = "updated"
	eventDeleted = "deleted"
)

type storedImage struct {
	data        []byte
	contentType string
}

// widgetStore is an in-memory widget inventory. Mutations fan out to
// watch subscribers; slow subscribers drop events rather than block
// mutations.
type widgetStore struct {
	mu      sync.RWMutex
	widgets map[string]*Widget
	images  map[string]storedImage

	wmu      sync.Mutex
	watchers map[chan widgetEvent]struct{}
}

func newWidgetStore() *widgetStore {
	return &widgetStore{
		widgets:  make(map[string]*Widget),
		images:   make(map[string]storedImage),
		watchers: make(map[chan widgetEvent]struct{}),
	}
}

func (s *widgetStore) list(material string) []Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Widget, 0, len(s.widgets))
	for _, w := range s.widgets {
		if material != "" && w.Material != material {
			continue
		}
		out = append(out, *w)
	}
	// Stable order so pagination offsets mean something.
	slices.SortFunc(out, func(a, b Widget) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (s *widgetStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.widgets)
}

func (s *widgetStore) get(id string) (Widget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.widgets[id]
	if !ok {
		return Widget{}, false
	}
	return *w, true
}

func (s *widgetStore) create(name, material string, grams int) Widget {
	now := time.Now().UTC()
	w := &Widget{
		ID:        uuid.NewString(),
		Name:      name,
		Material:  material,
		Grams:     grams,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.widgets[w.ID] = w
	cp := *w
	s.mu.Unlock()

	s.notify(eventCreated, cp)
	return cp
}

func (s *widgetStore) update(id, name, material string, grams int) (Widget, bool) {
	s.mu.Lock()
	w, ok := s.widgets[id]
	if !ok {
		s.mu.Unlock()
		return Widget{}, false
	}
	if name != "" {
		w.Name = name
	}
	if material != "" {
		w.Material = material
	}
	if grams > 0 {
		w.Grams = grams
	}
	w.UpdatedAt = time.Now().UTC()
	cp := *w
	s.mu.Unlock()

	s.notify(eventUpdated, cp)
	return cp, true
}

func (s *widgetStore) delete(id string) bool {
	s.mu.Lock()
	w, ok := s.widgets[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	cp := *w
	delete(s.widgets, id)
	delete(s.images, id)
	s.mu.Unlock()

	s.notify(eventDeleted, cp)
	return true
}

func (s *widgetStore) setImage(id string, img storedImage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.widgets[id]; !ok {
		return false
	}
	s.images[id] = img
	return true
}

func (s *widgetStore) getImage(id string) (storedImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[id]
	return img, ok
}

// watch subscribes to mutation events. The cancel func is idempotent and
// closes the returned channel.
func (s *widgetStore) watch() (<-chan widgetEvent, func()) {
	ch := make(chan widgetEvent, 16)

	s.wmu.Lock()
	s.watchers[ch] = struct{}{}
	s.wmu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.wmu.Lock()
			delete(s.watchers, ch)
			close(ch)
			s.wmu.Unlock()
		})
	}
	return ch, cancel
}

// notify delivers an event to every watcher. Sends and closes are both
// serialized under wmu, so a cancelled watcher can never be written to.
func (s *widgetStore) notify(typ string, w Widget) {
	ev := widgetEvent{Type: typ, Widget: w}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
