package v1

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/integhra/ragstore/infrastructure/api/middleware"
	"github.com/integhra/ragstore/infrastructure/persistence"
)

// IndexStatusDTO is the vector index state reply.
type IndexStatusDTO struct {
	State string `json:"state"`
	Rows  int64  `json:"rows"`
}

// IndexCreateRequest is the POST /api/v1/index body.
type IndexCreateRequest struct {
	Lists int `json:"lists,omitempty"`
}

// IndexRouter handles vector index administration endpoints.
type IndexRouter struct {
	index        *persistence.VectorIndex
	defaultLists int
	logger       *slog.Logger
}

// NewIndexRouter creates an IndexRouter.
func NewIndexRouter(index *persistence.VectorIndex, defaultLists int, logger *slog.Logger) *IndexRouter {
	return &IndexRouter{index: index, defaultLists: defaultLists, logger: logger}
}

// Routes returns the chi router for index endpoints.
func (r *IndexRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.Status)
	router.Post("/", r.Create)
	return router
}

// Status handles GET /api/v1/index.
func (r *IndexRouter) Status(w http.ResponseWriter, req *http.Request) {
	status, err := r.index.Status(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, IndexStatusDTO{State: string(status.State), Rows: status.Rows})
}

// Create handles POST /api/v1/index, the one-time transition to the
// indexed state. Idempotent: creating an existing index reports it.
func (r *IndexRouter) Create(w http.ResponseWriter, req *http.Request) {
	var body IndexCreateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && err != io.EOF {
		middleware.WriteBadRequest(w, "invalid JSON body")
		return
	}

	lists := body.Lists
	if lists <= 0 {
		lists = r.defaultLists
	}

	status, err := r.index.Create(req.Context(), lists)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, IndexStatusDTO{State: string(status.State), Rows: status.Rows})
}
