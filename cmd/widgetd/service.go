package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/strutkit/strut"
)

// newService assembles the widget service: endpoints, middleware,
// metrics, and the self-serving OpenAPI document.
func newService(cfg Config, srv *server) (*strut.Service, error) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []strut.Option{
		strut.WithTitle("Widget Inventory"),
		strut.WithVersion("1.0.0"),
		strut.WithServiceDescription("Demo widget inventory service built on strut."),
		strut.WithTagDescriptions(map[string]string{
			"widgets": "Widget inventory operations",
			"ops":     "Operational endpoints",
		}),
		strut.WithLogger(srv.logger),
		strut.WithMetrics(strut.NewMetrics(promReg)),
		strut.WithDefaultBodyLimit(cfg.BodyLimit),
	}
	if cfg.ThrottleRPS > 0 {
		opts = append(opts, strut.WithThrottle(rate.Limit(cfg.ThrottleRPS), cfg.ThrottleBurst))
	}

	svc := strut.New(opts...)
	svc.Use(strut.Recovery())
	svc.Use(strut.Logger(srv.logger))

	err := errors.Join(
		strut.Get(svc, "/healthz", srv.handleHealth,
			strut.WithSummary("Health check"),
			strut.WithTags("ops"),
		),

		strut.Get(svc, "/widgets", srv.handleListWidgets,
			strut.WithSummary("List widgets"),
			strut.WithDescription("Returns widgets with optional filtering by material."),
			strut.WithTags("widgets"),
		),
		strut.Get(svc, "/widgets/count", srv.handleCountWidgets,
			strut.WithSummary("Count widgets"),
			strut.WithTags("widgets"),
		),
		strut.Post(svc, "/widgets", srv.handleCreateWidget,
			strut.WithSummary("Create widget"),
			strut.WithTags("widgets"),
		),
		strut.Get(svc, "/widgets/{id}", srv.handleGetWidget,
			strut.WithSummary("Get widget by ID"),
			strut.WithTags("widgets"),
		),
		strut.Put(svc, "/widgets/{id}", srv.handleUpdateWidget,
			strut.WithSummary("Update widget"),
			strut.WithTags("widgets"),
		),
		strut.Delete(svc, "/widgets/{id}", srv.handleDeleteWidget,
			strut.WithSummary("Delete widget"),
			strut.WithTags("widgets"),
		),

		strut.Get(svc, "/widgets/{id}/image", srv.handleGetImage,
			strut.WithSummary("Download widget image"),
			strut.WithTags("widgets"),
		),
		strut.Put(svc, "/widgets/{id}/image", srv.handleSetImage,
			strut.WithSummary("Upload widget image"),
			strut.WithDescription("Stores the raw body as the widget's image. Any image/* content type is accepted."),
			strut.WithTags("widgets"),
			strut.WithErrors(http.StatusUnsupportedMediaType),
		),

		strut.Handle(svc, http.MethodGet, "/watch", http.HandlerFunc(srv.handleWatch), strut.OperationInfo{
			Summary:     "Watch widget changes",
			Description: "Upgrades to a websocket and streams widget mutations as JSON events.",
			Tags:        []string{"widgets"},
			Status:      http.StatusSwitchingProtocols,
		}),
		strut.Handle(svc, http.MethodGet, "/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}), strut.OperationInfo{
			Summary: "Prometheus metrics",
			Tags:    []string{"ops"},
			Status:  http.StatusOK,
		}),

		svc.ServeSpec("/openapi.json"),
		svc.ServeSpecYAML("/openapi.yaml"),
		svc.ServeDocs("/docs"),
	)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
