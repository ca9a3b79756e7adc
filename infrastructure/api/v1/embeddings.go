package v1

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/domain/repository"
	"github.com/integhra/ragstore/infrastructure/api/middleware"
)

const defaultListLimit = 50

// RecordDTO is a stored embedding record without its vector.
type RecordDTO struct {
	ID          int64          `json:"id"`
	EntityType  string         `json:"entity_type"`
	EntityID    int64          `json:"entity_id"`
	ContentText string         `json:"content_text"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ListResponse is the GET /api/v1/embeddings reply.
type ListResponse struct {
	Records []RecordDTO `json:"records"`
	Count   int         `json:"count"`
}

// EmbeddingsRouter handles record listing and lookup endpoints.
type EmbeddingsRouter struct {
	store  embedding.Store
	logger *slog.Logger
}

// NewEmbeddingsRouter creates an EmbeddingsRouter.
func NewEmbeddingsRouter(store embedding.Store, logger *slog.Logger) *EmbeddingsRouter {
	return &EmbeddingsRouter{store: store, logger: logger}
}

// Routes returns the chi router for embedding endpoints.
func (r *EmbeddingsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.List)
	router.Get("/{entityType}/{entityID}", r.Get)
	return router
}

// List handles GET /api/v1/embeddings. Supports entity_type and limit
// query parameters; results come back most recent first.
func (r *EmbeddingsRouter) List(w http.ResponseWriter, req *http.Request) {
	options := []repository.Option{embedding.WithRecentFirst()}

	if entityType := req.URL.Query().Get("entity_type"); entityType != "" {
		options = append(options, embedding.WithEntityType(entityType))
	}

	limit := defaultListLimit
	if raw := req.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			middleware.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	options = append(options, repository.WithLimit(limit))

	records, err := r.store.Find(req.Context(), options...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	dtos := make([]RecordDTO, len(records))
	for i, record := range records {
		dtos[i] = toRecordDTO(record)
	}
	middleware.WriteJSON(w, http.StatusOK, ListResponse{Records: dtos, Count: len(dtos)})
}

// Get handles GET /api/v1/embeddings/{entityType}/{entityID}.
func (r *EmbeddingsRouter) Get(w http.ResponseWriter, req *http.Request) {
	entityType := chi.URLParam(req, "entityType")
	entityID, err := strconv.ParseInt(chi.URLParam(req, "entityID"), 10, 64)
	if err != nil {
		middleware.WriteBadRequest(w, "entityID must be an integer")
		return
	}

	record, err := r.store.FindOne(req.Context(), embedding.WithEntity(entityType, entityID)...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toRecordDTO(record))
}

func toRecordDTO(record embedding.Record) RecordDTO {
	return RecordDTO{
		ID:          record.ID(),
		EntityType:  record.EntityType(),
		EntityID:    record.EntityID(),
		ContentText: record.Content(),
		Metadata:    record.Metadata(),
		CreatedAt:   record.CreatedAt(),
	}
}
