package api

import (
	"log/slog"
	"net/http"

	"github.com/integhra/ragstore/application/service"
	"github.com/integhra/ragstore/infrastructure/api/middleware"
)

// HealthResponse is the GET /healthz reply.
type HealthResponse struct {
	Status          string `json:"status"`
	Database        bool   `json:"database"`
	VectorExtension bool   `json:"vector_extension"`
	Records         int64  `json:"records"`
}

// HealthHandler returns the /healthz handler. Reports 503 when the
// database or the vector extension is unavailable.
func HealthHandler(health *service.Health, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		status := health.Check(req.Context())

		response := HealthResponse{
			Status:          "ok",
			Database:        status.Database,
			VectorExtension: status.VectorExtension,
			Records:         status.Records,
		}
		code := http.StatusOK
		if !status.Healthy() {
			response.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}

		middleware.WriteJSON(w, code, response)
	}
}
