package restaurant

import "github.com/LiamTurner347/grains/internal/openai"

type Restaurant struct {
	ID      int64
	Name    string
	PlaceID string
}

// ReviewEmbedding pairs a raw review text with its embedding vector.
type ReviewEmbedding struct {
	Review    string
	Embedding []float32
}

// SearchResult is one review ranked by similarity to the query vector.
type SearchResult struct {
	Review     string
	Similarity float64
}

// Recommendation is the response payload for the best-dishes endpoint.
type Recommendation struct {
	Restaurant string            `json:"restaurant"`
	BestDishes openai.BestDishes `json:"bestDishes"`
}
