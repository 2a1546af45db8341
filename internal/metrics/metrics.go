package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fridgemate",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fridgemate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fridgemate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	friendCodesGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fridgemate",
			Subsystem: "friends",
			Name:      "codes_generated_total",
			Help:      "Total number of friend codes issued.",
		},
	)

	friendCodeRedemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fridgemate",
			Subsystem: "friends",
			Name:      "code_redemptions_total",
			Help:      "Friend code redemption attempts by outcome.",
		},
		[]string{"outcome"},
	)

	friendCodesSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fridgemate",
			Subsystem: "friends",
			Name:      "codes_swept_total",
			Help:      "Total number of lapsed friend codes cleared by the sweeper.",
		},
	)

	fridgePlacements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fridgemate",
			Subsystem: "fridge",
			Name:      "placements_total",
			Help:      "Fridge placement attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		friendCodesGenerated,
		friendCodeRedemptions,
		friendCodesSwept,
		fridgePlacements,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := routeLabel(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordCodeGenerated counts an issued friend code.
func RecordCodeGenerated() {
	friendCodesGenerated.Inc()
}

// RecordRedemption counts a redemption attempt. outcome is "success" or an error kind.
func RecordRedemption(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	friendCodeRedemptions.WithLabelValues(outcome).Inc()
}

// RecordCodesSwept adds n cleared codes.
func RecordCodesSwept(n int64) {
	if n > 0 {
		friendCodesSwept.Add(float64(n))
	}
}

// RecordPlacement counts a placement attempt. outcome is "success" or an error kind.
func RecordPlacement(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	fridgePlacements.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// unmatchedRoute labels requests for paths no registered route covers.
const unmatchedRoute = "unmatched"

var (
	routesMu sync.RWMutex
	routes   = make(map[string]bool)
)

// RegisterRoute records a ServeMux pattern such as "GET /api/artifacts/{id}".
// Only registered routes get their own path label.
func RegisterRoute(pattern string) {
	path := pattern
	if _, p, ok := strings.Cut(pattern, " "); ok {
		path = p
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			parts[i] = ":id"
		}
	}

	routesMu.Lock()
	defer routesMu.Unlock()
	routes["/"+strings.Join(parts, "/")] = true
}

func routeLabel(raw string) string {
	path := canonicalPath(raw)
	routesMu.RLock()
	defer routesMu.RUnlock()
	if routes[path] {
		return path
	}
	return unmatchedRoute
}

// canonicalPath collapses id segments.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		if _, err := uuid.Parse(p); err == nil {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}
