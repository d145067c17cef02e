package handlers

import (
	"context"
	"net/http"
	"time"

	"mindspark/realtime/internal/utils"
)

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"`
	Service string                    `json:"service"`
	Checks  map[string]ReadinessCheck `json:"checks"`
}

// Pinger is satisfied by the database and redis health checks.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler builds a handler whose readiness runs every named check.
// Nil checks are skipped, so optional backends can be passed unconditionally.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	filtered := make(map[string]Pinger, len(checks))
	for name, check := range checks {
		if check != nil {
			filtered[name] = check
		}
	}
	return &HealthHandler{checks: filtered}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, _ *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "realtime",
	})
}

func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
	defer cancel()

	response := ReadinessResponse{
		Status:  "ready",
		Service: "realtime",
		Checks:  make(map[string]ReadinessCheck, len(handler.checks)),
	}
	for name, check := range handler.checks {
		if err := check(ctx); err != nil {
			response.Checks[name] = ReadinessCheck{Status: "failed", Message: err.Error()}
			response.Status = "not_ready"
			continue
		}
		response.Checks[name] = ReadinessCheck{Status: "ok"}
	}

	if response.Status != "ready" {
		utils.JSON(writer, http.StatusServiceUnavailable, response)
		return
	}
	utils.JSON(writer, http.StatusOK, response)
}
