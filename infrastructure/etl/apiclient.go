package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/integhra/ragstore/internal/config"
)

// APIClient pulls changed products and offers from the production REST
// API for incremental sync.
type APIClient struct {
	baseURL    string
	token      string
	client     *http.Client
	maxRetries int
	logger     *slog.Logger

	productsPath string
	offersPath   string
}

// NewAPIClient creates a client from the sync configuration.
func NewAPIClient(cfg config.SyncConfig, logger *slog.Logger) *APIClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIClient{
		baseURL:      strings.TrimRight(cfg.BaseURL(), "/"),
		token:        cfg.Token(),
		client:       &http.Client{Timeout: cfg.Timeout()},
		maxRetries:   cfg.MaxRetries(),
		logger:       logger,
		productsPath: cfg.ProductsPath(),
		offersPath:   cfg.OffersPath(),
	}
}

// apiRow is a loosely-typed row from the production API. Both endpoints
// return either a bare array or a paginated {"results": [...]} envelope.
type apiRow map[string]any

type apiEnvelope struct {
	Results []apiRow `json:"results"`
}

func (c *APIClient) get(ctx context.Context, path string, updatedAfter time.Time) ([]apiRow, error) {
	endpoint := c.baseURL + path
	if !updatedAfter.IsZero() {
		params := url.Values{"updated_after": {updatedAfter.Format(time.RFC3339)}}
		endpoint += "?" + params.Encode()
	}

	var body []byte
	delay := time.Second
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, lastErr = c.fetch(ctx, endpoint)
		if lastErr == nil {
			break
		}
		if attempt < c.maxRetries {
			c.logger.WarnContext(ctx, "api request failed, retrying",
				slog.String("endpoint", path),
				slog.Int("attempt", attempt+1),
				slog.String("error", lastErr.Error()))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, lastErr)
	}

	// Bare array or paginated envelope.
	var rows []apiRow
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}
	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return envelope.Results, nil
}

func (c *APIClient) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ProductsUpdatedSince fetches products changed after the given time.
// A zero time fetches everything.
func (c *APIClient) ProductsUpdatedSince(ctx context.Context, since time.Time) ([]Product, error) {
	rows, err := c.get(ctx, c.productsPath, since)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		id := rowInt64(row, "id")
		if id == 0 {
			continue
		}
		products = append(products, Product{
			ID:                id,
			Title:             rowString(row, "title"),
			Description:       rowString(row, "description"),
			ActiveIngredient:  rowString(row, "active_ingredient"),
			TherapeuticAction: rowString(row, "therapeutic_action"),
			EnterpriseID:      rowString(row, "enterprise_id"),
			EnterpriseTitle:   rowString(row, "enterprise_title"),
			CategoryID:        rowString(row, "category_id"),
			CategoryName:      rowString(row, "category_name"),
		})
	}
	c.logger.InfoContext(ctx, "fetched products from api", slog.Int("count", len(products)))
	return products, nil
}

// OffersUpdatedSince fetches offers changed after the given time.
func (c *APIClient) OffersUpdatedSince(ctx context.Context, since time.Time) ([]Offer, error) {
	rows, err := c.get(ctx, c.offersPath, since)
	if err != nil {
		return nil, err
	}

	offers := make([]Offer, 0, len(rows))
	for _, row := range rows {
		id := rowInt64(row, "id")
		if id == 0 {
			continue
		}
		offers = append(offers, Offer{
			ID:            id,
			Title:         rowString(row, "title"),
			Description:   rowString(row, "description"),
			DateFrom:      rowString(row, "date_from"),
			DateTo:        rowString(row, "date_to"),
			SupplierID:    rowString(row, "enterprise_supplier_id"),
			SupplierTitle: rowString(row, "enterprise_supplier_title"),
			ProductName:   rowString(row, "product_name"),
		})
	}
	c.logger.InfoContext(ctx, "fetched offers from api", slog.Int("count", len(offers)))
	return offers, nil
}

// Ping verifies the API is reachable with the configured credentials.
func (c *APIClient) Ping(ctx context.Context) error {
	_, err := c.fetch(ctx, c.baseURL+c.productsPath+"?limit=1")
	if err != nil {
		return fmt.Errorf("api ping: %w", err)
	}
	return nil
}

func rowString(row apiRow, key string) string {
	switch v := row[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func rowInt64(row apiRow, key string) int64 {
	switch v := row[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
