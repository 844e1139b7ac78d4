package restaurant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/LiamTurner347/grains/internal/cache"
	"github.com/LiamTurner347/grains/internal/openai"
)

// ErrBadSummaryFormat reports a summarizer response that failed shape
// validation. Distinct from upstream errors so callers can tell "no reviews"
// from "model returned garbage".
var ErrBadSummaryFormat = errors.New("summarizer returned a malformed dish list")

type ReviewIngestor interface {
	EnsureReviewsIngested(ctx context.Context, name, placeID string) (int64, error)
}

type ContextRetriever interface {
	RetrieveContext(ctx context.Context, restaurantID int64) ([]SearchResult, error)
}

type Summarizer interface {
	GenerateBestDishes(ctx context.Context, name, reviewContext string) (*openai.BestDishes, error)
}

type ResultCache interface {
	Get(ctx context.Context, name string) (cache.Entry, bool, error)
	Set(ctx context.Context, name string, entry cache.Entry) error
}

type Service struct {
	ingestor   ReviewIngestor
	retriever  ContextRetriever
	summarizer Summarizer
	cache      ResultCache
}

func NewService(
	ingestor ReviewIngestor,
	retriever ContextRetriever,
	summarizer Summarizer,
	cache ResultCache,
) *Service {
	return &Service{
		ingestor:   ingestor,
		retriever:  retriever,
		summarizer: summarizer,
		cache:      cache,
	}
}

// GetBestDishes returns the recommendation for a restaurant, from cache when
// present, otherwise by running the full ingest, retrieve, summarize
// pipeline and caching the result.
func (s *Service) GetBestDishes(ctx context.Context, name, placeID string) (*Recommendation, error) {
	rec, err := s.fromCache(ctx, name)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		log.Printf("Cache hit for %q", name)
		return rec, nil
	}

	restaurantID, err := s.ingestor.EnsureReviewsIngested(ctx, name, placeID)
	if err != nil {
		return nil, err
	}

	results, err := s.retriever.RetrieveContext(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	dishes, err := s.summarizer.GenerateBestDishes(ctx, name, buildContext(results))
	if err != nil {
		return nil, fmt.Errorf("summarization failed: %w", err)
	}
	if !validDishes(dishes) {
		return nil, ErrBadSummaryFormat
	}

	serialized, err := json.Marshal(dishes)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, name, cache.Entry{
		Restaurant: name,
		BestDishes: string(serialized),
	}); err != nil {
		return nil, err
	}

	return &Recommendation{Restaurant: name, BestDishes: *dishes}, nil
}

// fromCache returns the cached recommendation, or nil on a miss. A cache
// connectivity failure is fatal, but an entry that no longer decodes is
// just a miss: the pipeline recomputes and overwrites it.
func (s *Service) fromCache(ctx context.Context, name string) (*Recommendation, error) {
	entry, ok, err := s.cache.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var dishes openai.BestDishes
	if err := json.Unmarshal([]byte(entry.BestDishes), &dishes); err != nil {
		log.Printf("Discarding malformed cache entry for %q: %v", name, err)
		return nil, nil
	}
	if !validDishes(&dishes) {
		log.Printf("Discarding malformed cache entry for %q: empty dish list", name)
		return nil, nil
	}

	return &Recommendation{Restaurant: entry.Restaurant, BestDishes: dishes}, nil
}

// buildContext formats the ranked reviews into the prompt context block.
func buildContext(results []SearchResult) string {
	lines := make([]string, len(results))
	for i, res := range results {
		lines[i] = fmt.Sprintf("- %s (Similarity: %.2f)", res.Review, res.Similarity)
	}
	return strings.Join(lines, "\n")
}

func validDishes(dishes *openai.BestDishes) bool {
	if dishes == nil || len(dishes.BestDishes) == 0 {
		return false
	}
	for _, dish := range dishes.BestDishes {
		if dish.Name == "" || dish.Description == "" {
			return false
		}
	}
	return true
}
