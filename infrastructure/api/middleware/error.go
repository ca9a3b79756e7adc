package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/infrastructure/persistence"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// WriteError maps domain errors to HTTP status codes and writes a JSON
// error body.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := http.StatusInternalServerError
	title := "Internal Server Error"

	switch {
	case errors.Is(err, persistence.ErrNotFound):
		status = http.StatusNotFound
		title = "Not Found"
	case errors.Is(err, embedding.ErrDuplicateEntity):
		status = http.StatusConflict
		title = "Conflict"
	case errors.Is(err, embedding.ErrMissingField), errors.Is(err, embedding.ErrDimensionMismatch):
		status = http.StatusBadRequest
		title = "Validation Error"
	case errors.Is(err, persistence.ErrVectorIndexUnsupported):
		status = http.StatusConflict
		title = "Unsupported Backend"
	}

	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err.Error())
	}

	WriteJSON(w, status, errorResponse{Error: title, Detail: err.Error()})
}

// WriteBadRequest writes a 400 with the given detail.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request", Detail: detail})
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
