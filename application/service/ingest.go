package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/infrastructure/etl"
	"github.com/integhra/ragstore/infrastructure/tracking"
	"golang.org/x/sync/errgroup"
)

// ErrSyncNotInitialized indicates an incremental sync was attempted before
// any bulk ingest recorded a starting point.
var ErrSyncNotInitialized = errors.New("no previous ingest recorded, run a bulk ingest first")

// IngestStats summarises an ingest run.
type IngestStats struct {
	Products  int
	Offers    int
	Companies int
	Skipped   int
	Stored    int
}

// Ingest orchestrates extraction, enrichment, transformation, embedding,
// and storage.
type Ingest struct {
	store     embedding.Store
	embedder  embedding.Embedder
	state     *etl.SyncState
	api       *etl.APIClient
	batchSize int
	parallel  int
	logger    *slog.Logger
}

// NewIngest creates an Ingest service. api may be nil when incremental
// sync is not configured.
func NewIngest(store embedding.Store, embedder embedding.Embedder, state *etl.SyncState, api *etl.APIClient, batchSize, parallel int, logger *slog.Logger) *Ingest {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if parallel <= 0 {
		parallel = 1
	}
	return &Ingest{
		store:     store,
		embedder:  embedder,
		state:     state,
		api:       api,
		batchSize: batchSize,
		parallel:  parallel,
		logger:    logger,
	}
}

// Bulk runs a full ingest from the CSV sources listed in the manifest.
func (s *Ingest) Bulk(ctx context.Context, manifestPath string) (IngestStats, error) {
	started := time.Now().UTC()

	manifest, err := etl.LoadManifest(manifestPath)
	if err != nil {
		return IngestStats{}, err
	}

	products, err := etl.ParseProductsCSV(manifest.Products)
	if err != nil {
		return IngestStats{}, err
	}

	var offers []etl.Offer
	if manifest.Offers != "" {
		if offers, err = etl.ParseOffersCSV(manifest.Offers); err != nil {
			return IngestStats{}, err
		}
	}
	var companies []etl.Company
	if manifest.Companies != "" {
		if companies, err = etl.ParseCompaniesCSV(manifest.Companies); err != nil {
			return IngestStats{}, err
		}
	}
	var categories []etl.Category
	if manifest.Categories != "" {
		if categories, err = etl.ParseCategoriesCSV(manifest.Categories); err != nil {
			return IngestStats{}, err
		}
	}
	var links []etl.OfferProduct
	if manifest.OfferProducts != "" {
		if links, err = etl.ParseOfferProductsCSV(manifest.OfferProducts); err != nil {
			return IngestStats{}, err
		}
	}
	var compendium []etl.CompendiumEntry
	if manifest.Compendium != "" {
		if compendium, err = etl.ParseCompendiumCSV(manifest.Compendium); err != nil {
			return IngestStats{}, err
		}
	}

	s.logger.InfoContext(ctx, "sources extracted",
		slog.Int("products", len(products)),
		slog.Int("offers", len(offers)),
		slog.Int("companies", len(companies)))

	etl.EnrichWithCompanies(products, offers, companies, s.logger)
	etl.EnrichWithCategories(products, categories, s.logger)
	etl.EnrichWithCompendium(products, compendium, s.logger)
	etl.EnrichOffersWithProducts(offers, products, links, s.logger)

	filtered := etl.FilterProducts(products, s.logger)

	drafts := etl.TransformProducts(filtered)
	drafts = append(drafts, etl.TransformOffers(offers)...)
	drafts = append(drafts, etl.TransformCompanies(companies)...)

	stored, err := s.embedAndStore(ctx, drafts)
	if err != nil {
		return IngestStats{}, err
	}

	if s.state != nil {
		if err := s.state.Record(started); err != nil {
			return IngestStats{}, err
		}
	}

	stats := IngestStats{
		Products:  len(filtered),
		Offers:    len(offers),
		Companies: len(companies),
		Skipped:   len(products) - len(filtered),
		Stored:    stored,
	}
	s.logger.InfoContext(ctx, "bulk ingest done",
		slog.Int("stored", stats.Stored),
		slog.Int("skipped", stats.Skipped),
		slog.Duration("elapsed", time.Since(started)))
	return stats, nil
}

// Sync pulls records changed since the last run from the production API
// and upserts them. The state timestamp only advances on success.
func (s *Ingest) Sync(ctx context.Context) (IngestStats, error) {
	if s.api == nil {
		return IngestStats{}, errors.New("sync api not configured")
	}

	since, err := s.state.Last()
	if err != nil {
		if errors.Is(err, etl.ErrNoSyncState) {
			return IngestStats{}, ErrSyncNotInitialized
		}
		return IngestStats{}, err
	}
	started := time.Now().UTC()

	products, err := s.api.ProductsUpdatedSince(ctx, since)
	if err != nil {
		return IngestStats{}, err
	}
	offers, err := s.api.OffersUpdatedSince(ctx, since)
	if err != nil {
		return IngestStats{}, err
	}

	filtered := etl.FilterProducts(products, s.logger)
	drafts := etl.TransformProducts(filtered)
	drafts = append(drafts, etl.TransformOffers(offers)...)

	stored, err := s.embedAndStore(ctx, drafts)
	if err != nil {
		return IngestStats{}, err
	}

	if err := s.state.Record(started); err != nil {
		return IngestStats{}, err
	}

	stats := IngestStats{
		Products: len(filtered),
		Offers:   len(offers),
		Skipped:  len(products) - len(filtered),
		Stored:   stored,
	}
	s.logger.InfoContext(ctx, "incremental sync done",
		slog.Time("since", since),
		slog.Int("stored", stats.Stored))
	return stats, nil
}

// embedAndStore embeds drafts in parallel batches and upserts the
// resulting records. Batches are independent; a failed batch cancels the
// rest through the errgroup.
func (s *Ingest) embedAndStore(ctx context.Context, drafts []etl.Draft) (int, error) {
	valid := make([]etl.Draft, 0, len(drafts))
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			s.logger.Warn("draft skipped", slog.String("error", err.Error()))
			continue
		}
		valid = append(valid, d)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	progress := tracking.NewTracker("embed and store", len(valid), s.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)

	var mu sync.Mutex
	stored := 0

	for start := 0; start < len(valid); start += s.batchSize {
		end := start + s.batchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, d := range batch {
				texts[i] = d.ContentText
			}

			vectors, err := s.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed batch: got %d vectors for %d drafts", len(vectors), len(batch))
			}

			records := make([]embedding.Record, len(batch))
			for i, d := range batch {
				records[i] = embedding.NewRecord(d.EntityType, d.EntityID, d.ContentText, vectors[i], d.Metadata)
			}
			if err := s.store.Upsert(gctx, records); err != nil {
				return fmt.Errorf("upsert batch: %w", err)
			}

			mu.Lock()
			stored += len(records)
			mu.Unlock()
			progress.Advance(gctx, len(records))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		progress.Fail(ctx, err)
		return stored, err
	}
	progress.Done(ctx)
	return stored, nil
}
