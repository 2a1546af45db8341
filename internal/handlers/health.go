package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 5 * time.Second

type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	postgres      HealthChecker
	redis         HealthChecker
	schemaVersion uint
}

func NewHealthHandler(postgres, redis HealthChecker) *HealthHandler {
	return &HealthHandler{
		postgres: postgres,
		redis:    redis,
	}
}

// SetSchemaVersion records the migration version applied at startup.
func (h *HealthHandler) SetSchemaVersion(version uint) {
	h.schemaVersion = version
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	SchemaVersion uint              `json:"schema_version,omitempty"`
	Timestamp     string            `json:"timestamp"`
}

func (h *HealthHandler) check(ctx context.Context) map[string]error {
	return map[string]error{
		"postgres": h.postgres.Health(ctx),
		"redis":    h.redis.Health(ctx),
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:        "healthy",
		Checks:        make(map[string]string),
		SchemaVersion: h.schemaVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	for name, err := range h.check(ctx) {
		if err != nil {
			response.Status = "unhealthy"
			response.Checks[name] = "unhealthy: " + err.Error()
			continue
		}
		response.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	for _, err := range h.check(ctx) {
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
