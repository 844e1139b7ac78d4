package restaurant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// querier is satisfied by both the pool and a transaction, so the insert
// helpers can run standalone or inside IngestRestaurant.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// --------------------------------------------------
// Lookup by (name, place_id) pair
// --------------------------------------------------
func (r *PostgresRepository) FindRestaurant(
	ctx context.Context,
	name string,
	placeID string,
) (int64, bool, error) {

	if name == "" || placeID == "" {
		return 0, false, errors.New("restaurant name and place id are required")
	}

	var id int64
	err := r.db.QueryRow(ctx, `
		SELECT id FROM restaurants WHERE name = $1 AND place_id = $2
	`, name, placeID).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up restaurant: %w", err)
	}

	return id, true, nil
}

// --------------------------------------------------
// Insert-if-absent restaurant registration
// --------------------------------------------------
func (r *PostgresRepository) EnsureRestaurant(
	ctx context.Context,
	name string,
	placeID string,
) (int64, error) {
	return ensureRestaurant(ctx, r.db, name, placeID)
}

func ensureRestaurant(ctx context.Context, q querier, name, placeID string) (int64, error) {
	if name == "" || placeID == "" {
		return 0, errors.New("restaurant name and place id are required")
	}

	_, err := q.Exec(ctx, `
		INSERT INTO restaurants (name, place_id)
		VALUES ($1, $2)
		ON CONFLICT (name, place_id) DO NOTHING
	`, name, placeID)
	if err != nil {
		return 0, fmt.Errorf("failed to register restaurant: %w", err)
	}

	// Resolve by the same pair the conflict target uses; a second
	// restaurant sharing the display name must not collide.
	var id int64
	err = q.QueryRow(ctx, `
		SELECT id FROM restaurants WHERE name = $1 AND place_id = $2
	`, name, placeID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve restaurant id: %w", err)
	}

	return id, nil
}

// --------------------------------------------------
// Bulk review insert
// --------------------------------------------------
func (r *PostgresRepository) StoreReviews(
	ctx context.Context,
	restaurantID int64,
	reviews []ReviewEmbedding,
) error {
	return storeReviews(ctx, r.db, restaurantID, reviews)
}

func storeReviews(ctx context.Context, q querier, restaurantID int64, reviews []ReviewEmbedding) error {
	if len(reviews) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rev := range reviews {
		batch.Queue(`
			INSERT INTO reviews (restaurant_id, review, embedding)
			VALUES ($1, $2, $3)
		`, restaurantID, rev.Review, pgvector.NewVector(rev.Embedding))
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for i := range reviews {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to store review %d of %d: %w", i+1, len(reviews), err)
		}
	}

	return nil
}

// --------------------------------------------------
// Transactional ingest: restaurant + reviews or nothing
// --------------------------------------------------
func (r *PostgresRepository) IngestRestaurant(
	ctx context.Context,
	name string,
	placeID string,
	reviews []ReviewEmbedding,
) (int64, error) {

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id, err := ensureRestaurant(ctx, tx, name, placeID)
	if err != nil {
		return 0, err
	}

	if err := storeReviews(ctx, tx, id, reviews); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit ingest transaction: %w", err)
	}

	return id, nil
}

// --------------------------------------------------
// Cosine similarity search over stored embeddings
// --------------------------------------------------
func (r *PostgresRepository) SimilaritySearch(
	ctx context.Context,
	restaurantID int64,
	query []float32,
	limit int,
) ([]SearchResult, error) {

	rows, err := r.db.Query(ctx, `
		SELECT
			review,
			1 - (embedding <=> $1) AS similarity
		FROM reviews
		WHERE restaurant_id = $2
		ORDER BY similarity DESC
		LIMIT $3
	`, pgvector.NewVector(query), restaurantID, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var res SearchResult
		if err := rows.Scan(&res.Review, &res.Similarity); err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	return results, rows.Err()
}
