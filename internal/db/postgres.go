package db

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

func ConnectPostgres() *pgxpool.Pool {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Fatal(err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// pgvector types must be registered on every new connection
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatal(err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal("Postgres connection failed:", err)
	}

	log.Println("Connected to PostgreSQL")

	if err := initSchema(pool); err != nil {
		log.Fatal("Failed to initialize schema:", err)
	}

	return pool
}

// initSchema creates the review-store tables and indexes
func initSchema(pool *pgxpool.Pool) error {
	ctx := context.Background()

	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return err
	}

	restaurantsSQL := `
		CREATE TABLE IF NOT EXISTS restaurants (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			place_id TEXT NOT NULL
		)
	`
	if _, err := pool.Exec(ctx, restaurantsSQL); err != nil {
		return err
	}

	reviewsSQL := `
		CREATE TABLE IF NOT EXISTS reviews (
			id SERIAL PRIMARY KEY,
			restaurant_id INT NOT NULL,
			review TEXT NOT NULL,
			embedding VECTOR(1536) NOT NULL,
			FOREIGN KEY (restaurant_id) REFERENCES restaurants(id) ON DELETE CASCADE
		)
	`
	if _, err := pool.Exec(ctx, reviewsSQL); err != nil {
		return err
	}

	// Uniqueness is on the (name, place_id) pair; two branches of a chain
	// may share a display name but never a place id.
	pairIndexSQL := `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_restaurants_name_place_id
		ON restaurants (name, place_id)
	`
	if _, err := pool.Exec(ctx, pairIndexSQL); err != nil {
		return err
	}

	hnswIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_reviews_embedding
		ON reviews USING hnsw (embedding vector_cosine_ops)
	`
	if _, err := pool.Exec(ctx, hnswIndexSQL); err != nil {
		return err
	}

	log.Println("Schema initialized successfully")
	return nil
}
