package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/LiamTurner347/grains/internal/cache"
	"github.com/LiamTurner347/grains/internal/db"
	"github.com/LiamTurner347/grains/internal/middleware"
	"github.com/LiamTurner347/grains/internal/openai"
	"github.com/LiamTurner347/grains/internal/restaurant"
	"github.com/LiamTurner347/grains/internal/reviews"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {

	// ───────────────────────── ENV ─────────────────────────
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	required := []string{
		"DATABASE_URL",
		"REDIS_ADDR",
		"OPENAI_API_KEY",
		"APIFY_API_TOKEN",
	}

	for _, k := range required {
		if os.Getenv(k) == "" {
			log.Fatalf("Missing env var: %s", k)
		}
	}

	// ───────────────────────── DB + CACHE ─────────────────────────
	pgDB := db.ConnectPostgres()
	defer pgDB.Close()

	resultCache := cache.NewClient()
	defer resultCache.Close()

	if err := resultCache.Connect(context.Background()); err != nil {
		log.Fatal("Redis connection failed:", err)
	}

	// ───────────────────────── GIN ─────────────────────────
	r := gin.Default()

	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// ───────────────────────── PIPELINE ─────────────────────────
	repo := restaurant.NewPostgresRepository(pgDB)
	openaiClient := openai.NewClient()
	reviewSource := reviews.NewClient()

	ingestor := restaurant.NewIngestor(repo, reviewSource, openaiClient)
	retriever := restaurant.NewRetriever(repo, openaiClient, 50)

	service := restaurant.NewService(ingestor, retriever, openaiClient, resultCache)
	handler := restaurant.NewHandler(service)

	// ───────────────────────── ROUTES ─────────────────────────
	api := r.Group("/api/restaurants")
	{
		api.GET("/:name/:id/best-dishes", handler.GetBestDishes)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.NoRoute(func(c *gin.Context) {
		c.String(404, "Route not found")
	})

	// ───────────────────────── START ─────────────────────────
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	log.Printf("API running at http://localhost:%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
