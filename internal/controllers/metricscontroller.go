package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/digestwatch/digestwatch/internal/logging"
	"github.com/digestwatch/digestwatch/pkg/model"
)

type ProbeResult struct {
	Body string `json:"body"`
}

// MetricsController serves Prometheus metrics about the tracking state
// and instruments the HTTP surface.
type MetricsController struct {
	Path             string
	Api              *huma.API
	Config           *model.Config
	Logger           *zerolog.Logger
	registry         *prometheus.Registry
	HttpRequests     *prometheus.CounterVec
	ScansTotal       prometheus.Counter
	ChangesTotal     prometheus.Counter
	UpdateChecks     prometheus.Counter
	UpdatesAvailable prometheus.Gauge
}

func NewMetricsController(api *huma.API, config *model.Config) *MetricsController {
	logger := logging.NewLogger("info", "component", "MetricsController")
	registry := prometheus.NewRegistry()
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "digestwatch_http_request_count",
		Help: "Counter for HTTP requests to the digestwatch API",
	}, []string{"path", "operation_id", "method", "status_code"})
	scansTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "digestwatch_scans_total",
		Help: "Number of container scans executed",
	})
	changesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "digestwatch_digest_changes_total",
		Help: "Number of digest changes detected by scans",
	})
	updateChecks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "digestwatch_update_checks_total",
		Help: "Number of remote update checks executed",
	})
	updatesAvailable := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "digestwatch_updates_available",
		Help: "Containers with a newer remote digest at the last update check",
	})
	for _, c := range []prometheus.Collector{httpRequests, scansTotal, changesTotal, updateChecks, updatesAvailable} {
		if err := registry.Register(c); err != nil {
			logger.Warn().Err(err).Msg("Failed to register metric, duplicate registration?")
		}
	}
	return &MetricsController{
		Path:             "/metrics",
		Api:              api,
		Config:           config,
		Logger:           logger,
		registry:         registry,
		HttpRequests:     httpRequests,
		ScansTotal:       scansTotal,
		ChangesTotal:     changesTotal,
		UpdateChecks:     updateChecks,
		UpdatesAvailable: updatesAvailable,
	}
}

// ObserveScan records the outcome of one scan run.
func (mc *MetricsController) ObserveScan(result model.ScanResult) {
	mc.ScansTotal.Inc()
	mc.ChangesTotal.Add(float64(result.ChangesDetected))
}

func (mc *MetricsController) AddRoutes() {
	{
		op, handler := mc.GetMetrics()
		huma.Register(*mc.Api, op, handler)
	}
	{
		op, handler := mc.GetLiveness()
		huma.Register(*mc.Api, op, handler)
	}
	{
		op, handler := mc.GetReadiness()
		huma.Register(*mc.Api, op, handler)
	}
}

// newTrackingRegistry builds a registry with gauges computed from the
// database at scrape time.
func (mc *MetricsController) newTrackingRegistry(ctx context.Context) (*prometheus.Registry, error) {
	databaseContext, err := getDatabaseContext(ctx)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	tracked := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "digestwatch_containers_tracked",
		Help: "Distinct container names in the tracking database",
	})
	events := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "digestwatch_digest_events",
		Help: "Digest change events recorded in the tracking database",
	})
	for _, c := range []prometheus.Collector{tracked, events} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	var trackedCount int64
	if err := databaseContext.DB.Model(&model.ContainerSnapshot{}).
		Distinct("container_name").Count(&trackedCount).Error; err != nil {
		return nil, err
	}
	var eventCount int64
	if err := databaseContext.DB.Model(&model.DigestChangeEvent{}).Count(&eventCount).Error; err != nil {
		return nil, err
	}
	tracked.Set(float64(trackedCount))
	events.Set(float64(eventCount))
	return registry, nil
}

func (mc *MetricsController) GetMetrics() (huma.Operation, func(ctx context.Context, input *struct{}) (*struct{ Body string }, error)) {
	return huma.Operation{
			OperationID: "GetMetrics",
			Method:      "GET",
			Path:        mc.Path,
			Summary:     "Gets tracking metrics",
			Description: "Prometheus metrics: request counters, scan counters and database gauges.",
			Tags:        []string{"Metrics"},
			Responses: map[string]*huma.Response{
				"200": {
					Content: map[string]*huma.MediaType{
						"text/plain": {},
					},
					Description: "Metrics",
				},
				"500": {
					Description: "Internal server error",
				},
			},
		}, func(ctx context.Context, input *struct{}) (*struct{ Body string }, error) {
			trackingRegistry, err := mc.newTrackingRegistry(ctx)
			if err != nil {
				return nil, huma.Error500InternalServerError("Failed to build tracking registry: " + err.Error())
			}
			gatherers := prometheus.Gatherers{mc.registry, trackingRegistry}
			h := promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
			writer := ctx.Value("writer").(http.ResponseWriter)
			request := ctx.Value("request").(*http.Request)
			h.ServeHTTP(writer, request)
			return nil, nil
		}
}

func (mc *MetricsController) GetLiveness() (huma.Operation, func(ctx context.Context, input *struct{}) (*ProbeResult, error)) {
	return huma.Operation{
			OperationID: "LivenessProbe",
			Method:      "GET",
			Path:        mc.Path + "/liveness",
			Summary:     "Liveness probe",
			Tags:        []string{"Probes"},
			Responses: map[string]*huma.Response{
				"200": {
					Content: map[string]*huma.MediaType{
						"text/plain": {},
					},
					Description: "Check if the service is alive",
				},
			},
		}, func(ctx context.Context, input *struct{}) (*ProbeResult, error) {
			return &ProbeResult{Body: "OK"}, nil
		}
}

func (mc *MetricsController) GetReadiness() (huma.Operation, func(ctx context.Context, input *struct{}) (*ProbeResult, error)) {
	return huma.Operation{
			OperationID: "ReadinessProbe",
			Method:      "GET",
			Path:        mc.Path + "/readiness",
			Summary:     "Readiness probe",
			Description: "Returns error when the tracking database is unreachable",
			Tags:        []string{"Probes"},
			Responses: map[string]*huma.Response{
				"200": {
					Content: map[string]*huma.MediaType{
						"text/plain": {},
					},
					Description: "Ready when the tracking database answers",
				},
				"500": {
					Description: "Internal server error",
				},
			},
		}, func(ctx context.Context, input *struct{}) (*ProbeResult, error) {
			databaseContext, err := getDatabaseContext(ctx)
			if err != nil {
				return nil, huma.Error500InternalServerError("Database context not found in request context")
			}
			var one int64
			if err := databaseContext.DB.Raw("SELECT 1").Scan(&one).Error; err != nil {
				return nil, huma.Error500InternalServerError("Tracking database unreachable: " + err.Error())
			}
			return &ProbeResult{Body: "Ready to serve requests"}, nil
		}
}

// The metrics handler writes the scrape response itself, so request and
// writer are injected into the context here.
func (mc *MetricsController) MetricsMiddleware() func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, w := humachi.Unwrap(ctx)
		ctx = huma.WithValue(ctx, "request", r)
		ctx = huma.WithValue(ctx, "writer", w)
		next(ctx)
		mc.HttpRequests.WithLabelValues(
			ctx.Operation().Path,
			ctx.Operation().OperationID,
			ctx.Method(),
			fmt.Sprintf("%d", ctx.Status()),
		).Inc()
	}
}
