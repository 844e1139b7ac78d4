package cache

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Entry is the raw cached recommendation for one restaurant name.
// BestDishes holds the dish list as serialized JSON; the service layer
// owns decoding it and rebuilding the response wrapper.
type Entry struct {
	Restaurant string
	BestDishes string
}

type Client struct {
	rdb  *redis.Client
	once sync.Once
}

func NewClient() *Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		}),
	}
}

// Connect pings the server once; safe to call on every request.
func (c *Client) Connect(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		if err = c.rdb.Ping(ctx).Err(); err == nil {
			log.Println("Connected to Redis")
		}
	})
	return err
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get looks up the cached recommendation for a restaurant name. A missing
// hash or a hash without both expected fields is a miss, never an error the
// pipeline has to handle.
func (c *Client) Get(ctx context.Context, name string) (Entry, bool, error) {
	fields, err := c.rdb.HGetAll(ctx, name).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache for %q: %w", name, err)
	}

	restaurant, okName := fields["restaurant"]
	dishes, okDishes := fields["bestDishes"]
	if !okName || !okDishes || restaurant == "" || dishes == "" {
		return Entry{}, false, nil
	}

	return Entry{Restaurant: restaurant, BestDishes: dishes}, true, nil
}

// Set overwrites any existing entry for the name.
func (c *Client) Set(ctx context.Context, name string, entry Entry) error {
	err := c.rdb.HSet(ctx, name, map[string]string{
		"restaurant": entry.Restaurant,
		"bestDishes": entry.BestDishes,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to cache result for %q: %w", name, err)
	}
	return nil
}
