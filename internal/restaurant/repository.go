package restaurant

import "context"

type Repository interface {
	// FindRestaurant resolves a restaurant by its (name, place id) pair.
	// Absence is reported via the bool, not an error.
	FindRestaurant(ctx context.Context, name, placeID string) (int64, bool, error)

	// EnsureRestaurant registers the pair if it is not already present and
	// returns its id either way.
	EnsureRestaurant(ctx context.Context, name, placeID string) (int64, error)

	// StoreReviews persists one row per review for the restaurant.
	StoreReviews(ctx context.Context, restaurantID int64, reviews []ReviewEmbedding) error

	// IngestRestaurant registers the restaurant and stores its reviews in
	// one transaction, so a failure leaves no half-ingested state behind.
	IngestRestaurant(ctx context.Context, name, placeID string, reviews []ReviewEmbedding) (int64, error)

	// SimilaritySearch returns up to limit reviews of the restaurant,
	// ordered by descending cosine similarity to the query vector.
	SimilaritySearch(ctx context.Context, restaurantID int64, query []float32, limit int) ([]SearchResult, error)
}
