package restaurant

import (
	"context"
	"errors"
	"fmt"
)

// referencePrompts describe generic praise for a specific dish. Their
// averaged embedding is the query vector for "what are the best dishes";
// averaging several templates keeps the query from leaning on any single
// phrasing.
var referencePrompts = []string{
	"The food at this restaurant was outstanding! The [dish name] was cooked to perfection...",
	"I highly recommend the [dish name]! It had an incredible depth of flavor...",
	"If you're visiting, don't miss the [dish name]. The sauce was rich, and the seasoning was just right!",
}

const defaultTopK = 50

// Retriever pulls the stored reviews most relevant to dish praise for a
// restaurant.
type Retriever struct {
	repo     Repository
	embedder Embedder
	topK     int
}

func NewRetriever(repo Repository, embedder Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Retriever{
		repo:     repo,
		embedder: embedder,
		topK:     topK,
	}
}

// RetrieveContext returns up to topK reviews ranked by cosine similarity to
// the averaged reference embedding.
func (r *Retriever) RetrieveContext(ctx context.Context, restaurantID int64) ([]SearchResult, error) {
	query, err := r.queryVector(ctx)
	if err != nil {
		return nil, err
	}
	return r.repo.SimilaritySearch(ctx, restaurantID, query, r.topK)
}

func (r *Retriever) queryVector(ctx context.Context) ([]float32, error) {
	vectors := make([][]float32, len(referencePrompts))
	for i, prompt := range referencePrompts {
		vec, err := r.embedder.Embed(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to embed reference prompt: %w", err)
		}
		vectors[i] = vec
	}

	return averageVectors(vectors)
}

// averageVectors computes the element-wise arithmetic mean.
func averageVectors(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, errors.New("no vectors to average")
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("embedding dimension mismatch: %d != %d", len(vec), dim)
		}
		for i, v := range vec {
			sums[i] += float64(v)
		}
	}

	avg := make([]float32, dim)
	for i, sum := range sums {
		avg[i] = float32(sum / float64(len(vectors)))
	}

	return avg, nil
}
