// Package v1 provides the versioned REST handlers.
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/integhra/ragstore/application/service"
	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/infrastructure/api/middleware"
)

// SearchRequest is the POST /api/v1/search body.
type SearchRequest struct {
	Query       string         `json:"query"`
	Limit       int            `json:"limit,omitempty"`
	EntityTypes []string       `json:"entity_types,omitempty"`
	MinScore    float64        `json:"min_score,omitempty"`
	Filters     *SearchFilters `json:"filters,omitempty"`
}

// SearchFilters are the hard metadata filters of a search request.
type SearchFilters struct {
	Labs       []string `json:"labs,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Species    []string `json:"species,omitempty"`
	OffersOnly bool     `json:"offers_only,omitempty"`
}

// SearchResponse is the POST /api/v1/search reply.
type SearchResponse struct {
	Results []SearchResultDTO `json:"results"`
	Count   int               `json:"count"`
}

// SearchResultDTO is one ranked record.
type SearchResultDTO struct {
	EntityType  string         `json:"entity_type"`
	EntityID    int64          `json:"entity_id"`
	ContentText string         `json:"content_text"`
	Score       float64        `json:"score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SearchRouter handles search endpoints.
type SearchRouter struct {
	search *service.Search
	logger *slog.Logger
}

// NewSearchRouter creates a SearchRouter.
func NewSearchRouter(search *service.Search, logger *slog.Logger) *SearchRouter {
	return &SearchRouter{search: search, logger: logger}
}

// Routes returns the chi router for search endpoints.
func (r *SearchRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", r.Search)
	return router
}

// Search handles POST /api/v1/search.
func (r *SearchRouter) Search(w http.ResponseWriter, req *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if body.Query == "" {
		middleware.WriteBadRequest(w, "query is required")
		return
	}

	options := []service.SearchOption{}
	if body.Limit > 0 {
		options = append(options, service.WithLimit(body.Limit))
	}
	if len(body.EntityTypes) > 0 {
		options = append(options, service.WithEntityTypes(body.EntityTypes...))
	}
	if body.MinScore > 0 {
		options = append(options, service.WithMinScore(body.MinScore))
	}
	if f := body.Filters; f != nil {
		var filterOpts []embedding.FiltersOption
		if len(f.Labs) > 0 {
			filterOpts = append(filterOpts, embedding.WithLabs(f.Labs))
		}
		if len(f.Categories) > 0 {
			filterOpts = append(filterOpts, embedding.WithCategories(f.Categories))
		}
		if len(f.Species) > 0 {
			filterOpts = append(filterOpts, embedding.WithSpecies(f.Species))
		}
		if f.OffersOnly {
			filterOpts = append(filterOpts, embedding.WithOffersOnly())
		}
		if len(filterOpts) > 0 {
			options = append(options, service.WithFilters(embedding.NewFilters(filterOpts...)))
		}
	}

	results, err := r.search.Query(req.Context(), body.Query, options...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	dtos := make([]SearchResultDTO, len(results))
	for i, result := range results {
		record := result.Record()
		dtos[i] = SearchResultDTO{
			EntityType:  record.EntityType(),
			EntityID:    record.EntityID(),
			ContentText: record.Content(),
			Score:       result.Score(),
			Metadata:    record.Metadata(),
			CreatedAt:   record.CreatedAt(),
		}
	}

	middleware.WriteJSON(w, http.StatusOK, SearchResponse{Results: dtos, Count: len(dtos)})
}
