package reviews

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const scraperActor = "compass~google-maps-reviews-scraper"

// ErrUpstream marks failures of the scraping provider itself, as opposed to
// bad inputs or local storage problems.
var ErrUpstream = errors.New("review source request failed")

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient() *Client {
	baseURL := os.Getenv("APIFY_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.apify.com"
	}
	return &Client{
		baseURL: baseURL,
		token:   os.Getenv("APIFY_API_TOKEN"),
		// Scraper runs take a while; the sync endpoint holds the
		// connection until the actor finishes.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

type scraperInput struct {
	PlaceIDs         []string `json:"placeIds"`
	MaxReviews       int      `json:"maxReviews"`
	ReviewsSort      string   `json:"reviewsSort"`
	ReviewsStartDate string   `json:"reviewsStartDate"`
	Language         string   `json:"language"`
	PersonalData     bool     `json:"personalData"`
}

// FetchReviews runs the scraper for one place and returns the review texts,
// newest first. Items without textual content (photo-only or rating-only
// reviews) are dropped.
func (c *Client) FetchReviews(ctx context.Context, placeID string) ([]string, error) {
	if c.token == "" {
		return nil, errors.New("missing APIFY_API_TOKEN")
	}
	if placeID == "" {
		return nil, errors.New("empty place id")
	}

	input := scraperInput{
		PlaceIDs:         []string{placeID},
		MaxReviews:       150,
		ReviewsSort:      "newest",
		ReviewsStartDate: "2023-01-01",
		Language:         "en",
		PersonalData:     false,
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"%s/v2/acts/%s/run-sync-get-dataset-items?token=%s",
		c.baseURL,
		scraperActor,
		c.token,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w (%d): %s", ErrUpstream, resp.StatusCode, string(raw))
	}

	// The text field is not guaranteed to be a string, so decode it lazily
	// and keep only items where it is one.
	var items []struct {
		Text json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unexpected scraper output: %w", err)
	}

	var texts []string
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item.Text, &text); err != nil {
			continue
		}
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}

	return texts, nil
}
