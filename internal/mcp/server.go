// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/integhra/ragstore/application/service"
	"github.com/integhra/ragstore/domain/embedding"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Searcher runs ranked retrieval for MCP tools.
type Searcher interface {
	Query(ctx context.Context, query string, options ...service.SearchOption) ([]embedding.Result, error)
}

// Server wraps the MCP server with the retrieval tools.
type Server struct {
	mcpServer *server.MCPServer
	search    Searcher
	store     embedding.Store
	logger    *slog.Logger
}

// NewServer creates an MCP server exposing search and record lookup.
func NewServer(search Searcher, store embedding.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		search: search,
		store:  store,
		logger: logger,
	}

	mcpServer := server.NewMCPServer(
		"ragstore",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	searchTool := mcp.NewTool("search_products",
		mcp.WithDescription("Search the product catalog using vector similarity with keyword rescoring"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of results to return (default: 5)"),
		),
		mcp.WithString("entity_type",
			mcp.Description("Restrict to one entity type (product, offer, company)"),
		),
		mcp.WithString("lab",
			mcp.Description("Restrict to one laboratory (normalized name)"),
		),
		mcp.WithString("species",
			mcp.Description("Restrict to products for a species"),
		),
		mcp.WithBoolean("offers_only",
			mcp.Description("Only return active offers"),
		),
	)
	mcpServer.AddTool(searchTool, s.handleSearch)

	getTool := mcp.NewTool("get_record",
		mcp.WithDescription("Get a stored record by entity type and entity ID"),
		mcp.WithString("entity_type",
			mcp.Required(),
			mcp.Description("The entity type (product, offer, company)"),
		),
		mcp.WithString("entity_id",
			mcp.Required(),
			mcp.Description("The numeric entity ID"),
		),
	)
	mcpServer.AddTool(getTool, s.handleGetRecord)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	options := []service.SearchOption{}
	if topK := request.GetInt("top_k", 0); topK > 0 {
		options = append(options, service.WithLimit(topK))
	}
	if entityType := request.GetString("entity_type", ""); entityType != "" {
		options = append(options, service.WithEntityTypes(entityType))
	}

	var filterOpts []embedding.FiltersOption
	if lab := request.GetString("lab", ""); lab != "" {
		filterOpts = append(filterOpts, embedding.WithLabs([]string{lab}))
	}
	if species := request.GetString("species", ""); species != "" {
		filterOpts = append(filterOpts, embedding.WithSpecies([]string{species}))
	}
	if request.GetBool("offers_only", false) {
		filterOpts = append(filterOpts, embedding.WithOffersOnly())
	}
	if len(filterOpts) > 0 {
		options = append(options, service.WithFilters(embedding.NewFilters(filterOpts...)))
	}

	results, err := s.search.Query(ctx, query, options...)
	if err != nil {
		s.logger.Error("search failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	type searchResult struct {
		EntityType string  `json:"entity_type"`
		EntityID   int64   `json:"entity_id"`
		Content    string  `json:"content"`
		Title      string  `json:"title,omitempty"`
		Score      float64 `json:"score"`
	}

	out := make([]searchResult, len(results))
	for i, result := range results {
		record := result.Record()
		title, _ := record.Metadata()[embedding.MetaTitle].(string)
		out[i] = searchResult{
			EntityType: record.EntityType(),
			EntityID:   record.EntityID(),
			Content:    record.Content(),
			Title:      title,
			Score:      result.Score(),
		}
	}

	jsonBytes, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityType, err := request.RequireString("entity_type")
	if err != nil {
		return mcp.NewToolResultError("entity_type is required"), nil
	}
	idStr, err := request.RequireString("entity_id")
	if err != nil {
		return mcp.NewToolResultError("entity_id is required"), nil
	}
	entityID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid entity_id: %s", idStr)), nil
	}

	record, err := s.store.FindOne(ctx, embedding.WithEntity(entityType, entityID)...)
	if err != nil {
		s.logger.Error("record lookup failed",
			slog.String("entity_type", entityType),
			slog.Int64("entity_id", entityID),
			slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to get record: %v", err)), nil
	}

	type recordResult struct {
		EntityType string         `json:"entity_type"`
		EntityID   int64          `json:"entity_id"`
		Content    string         `json:"content"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}

	jsonBytes, err := json.Marshal(recordResult{
		EntityType: record.EntityType(),
		EntityID:   record.EntityID(),
		Content:    record.Content(),
		Metadata:   record.Metadata(),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
