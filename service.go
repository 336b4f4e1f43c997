package strut

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBodyLimit caps request body reads for endpoints that do not set
// their own limit.
const DefaultBodyLimit int64 = 1 << 20

// Service is the central type that holds endpoints, middleware, and
// configuration. It implements http.Handler.
//
// Registration and serving are two phases: endpoints are registered
// before the first request is served, and once serving starts the route
// table is read-only. Further registration attempts fail with
// ErrStarted.
type Service struct {
	router     *router
	endpoints  []*endpoint
	middleware []Middleware

	title       string
	version     string
	description string
	servers     []Server
	tagDescs    map[string]string

	validator Validator
	logger    *slog.Logger
	tracer    SpanStarter
	metrics   *Metrics
	limiter   *rate.Limiter

	bodyLimit int64

	serving atomic.Bool

	mu       sync.Mutex
	specJSON []byte
	specYAML []byte
}

// Option configures a Service.
type Option func(*Service)

// WithTitle sets the API title (used in the OpenAPI spec).
func WithTitle(title string) Option {
	return func(s *Service) {
		s.title = title
	}
}

// WithVersion sets the API version (used in the OpenAPI spec).
func WithVersion(version string) Option {
	return func(s *Service) {
		s.version = version
	}
}

// WithServiceDescription sets the API description (used in the OpenAPI
// spec).
func WithServiceDescription(d string) Option {
	return func(s *Service) {
		s.description = d
	}
}

// WithServers sets the OpenAPI servers array.
func WithServers(servers ...Server) Option {
	return func(s *Service) {
		s.servers = servers
	}
}

// WithTagDescriptions sets tag descriptions for the OpenAPI spec.
func WithTagDescriptions(descs map[string]string) Option {
	return func(s *Service) {
		s.tagDescs = descs
	}
}

// WithValidator sets a service-wide validator applied to every bound
// value after constraint tags and SelfValidator.
func WithValidator(v Validator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// WithLogger sets the logger used for dispatch-internal failures such as
// handler panics and response serialization errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// SpanStarter is a tracing hook interface for creating spans per request.
// Implement this with your preferred tracing backend (e.g., OpenTelemetry).
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func())
}

// WithTracer sets a tracing hook for the service.
func WithTracer(t SpanStarter) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithMetrics enables request metrics collection.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithThrottle limits request intake to r events per second with the
// given burst. Excess requests receive 429 with a Retry-After header.
func WithThrottle(r rate.Limit, burst int) Option {
	return func(s *Service) {
		s.limiter = rate.NewLimiter(r, burst)
	}
}

// WithDefaultBodyLimit sets the service-wide request body cap in bytes.
func WithDefaultBodyLimit(maxBytes int64) Option {
	return func(s *Service) {
		s.bodyLimit = maxBytes
	}
}

// New creates a Service with the given options.
func New(opts ...Option) *Service {
	s := &Service{
		router:    newRouter(),
		bodyLimit: DefaultBodyLimit,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Use adds middleware to the service. Middleware is applied in the order
// added, outside the dispatch pipeline.
func (s *Service) Use(mw ...Middleware) {
	s.middleware = append(s.middleware, mw...)
}

// register implements Registrar. It parses the template, runs the
// contract checks, and inserts the endpoint into the route table. Every
// failure comes back as a *RegistrationError naming the method and
// template.
func (s *Service) register(ep *endpoint) error {
	regErr := func(err error) error {
		return &RegistrationError{Method: ep.method, Template: ep.rawTemplate, Err: err}
	}

	if s.serving.Load() {
		return regErr(ErrStarted)
	}

	tmpl, err := parseTemplate(ep.rawTemplate)
	if err != nil {
		return regErr(err)
	}
	ep.template = tmpl

	if ep.rawHandler == nil {
		if err := checkContract(ep); err != nil {
			return regErr(err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.router.insert(ep); err != nil {
		return regErr(err)
	}
	s.endpoints = append(s.endpoints, ep)
	s.specJSON = nil
	s.specYAML = nil
	return nil
}

// ServeHTTP implements http.Handler. The first request freezes the route
// table.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.serving.Store(true)

	handler := http.Handler(http.HandlerFunc(s.dispatch))
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	handler.ServeHTTP(w, r)
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (s *Service) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
