package restaurant

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"
)

// ReviewSource fetches raw review texts for a place from the scraping
// provider.
type ReviewSource interface {
	FetchReviews(ctx context.Context, placeID string) ([]string, error)
}

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Ingestor guarantees a restaurant's reviews exist in the store, fetching
// and embedding them at most once.
type Ingestor struct {
	repo     Repository
	source   ReviewSource
	embedder Embedder
	group    singleflight.Group
}

func NewIngestor(repo Repository, source ReviewSource, embedder Embedder) *Ingestor {
	return &Ingestor{
		repo:     repo,
		source:   source,
		embedder: embedder,
	}
}

// EnsureReviewsIngested returns the restaurant's id, ingesting its reviews
// first if the (name, place id) pair has never been seen. Repeated calls for
// a known restaurant are pure reads. Concurrent first requests for the same
// pair share a single fetch/embed/store execution.
func (ing *Ingestor) EnsureReviewsIngested(ctx context.Context, name, placeID string) (int64, error) {
	if name == "" || placeID == "" {
		return 0, errors.New("restaurant name and place id are required")
	}

	key := name + "|" + placeID
	id, err, _ := ing.group.Do(key, func() (any, error) {
		return ing.ingest(ctx, name, placeID)
	})
	if err != nil {
		return 0, err
	}

	return id.(int64), nil
}

func (ing *Ingestor) ingest(ctx context.Context, name, placeID string) (int64, error) {
	id, found, err := ing.repo.FindRestaurant(ctx, name, placeID)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}

	texts, err := ing.source.FetchReviews(ctx, placeID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch reviews: %w", err)
	}
	log.Printf("Fetched %d reviews for %q", len(texts), name)

	var reviews []ReviewEmbedding
	if len(texts) > 0 {
		vectors, err := ing.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed reviews: %w", err)
		}
		if len(vectors) != len(texts) {
			return 0, fmt.Errorf("embedded %d of %d reviews", len(vectors), len(texts))
		}

		reviews = make([]ReviewEmbedding, len(texts))
		for i, text := range texts {
			reviews[i] = ReviewEmbedding{Review: text, Embedding: vectors[i]}
		}
	}

	return ing.repo.IngestRestaurant(ctx, name, placeID, reviews)
}
