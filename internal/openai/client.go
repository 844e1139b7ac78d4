package openai

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

const (
	embeddingModel = "text-embedding-3-small"
	chatModel      = "gpt-4o-2024-08-06"

	// EmbeddingDimension is fixed by the embedding model in use.
	EmbeddingDimension = 1536
)

// ErrUpstream marks transport or API failures of the OpenAI service, as
// opposed to responses that arrived but failed validation.
var ErrUpstream = errors.New("openai request failed")

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient() *Client {
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// --------------------------------------------------
// Embeddings
// --------------------------------------------------

type embeddingRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates one embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.createEmbeddings(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for all texts in a single API call.
// result[i] always corresponds to texts[i].
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}
	return c.createEmbeddings(ctx, texts, len(texts))
}

func (c *Client) createEmbeddings(ctx context.Context, input any, want int) ([][]float32, error) {
	if c.apiKey == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}

	raw, err := c.post(ctx, "/embeddings", embeddingRequest{
		Model: embeddingModel,
		Input: input,
	})
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}
	if len(resp.Data) != want {
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(resp.Data))
	}

	// The API is documented to return entries tagged with their input index;
	// place by index rather than trusting response order.
	vectors := make([][]float32, want)
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= want {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}

	return vectors, nil
}

// --------------------------------------------------
// Structured chat completion
// --------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat json.RawMessage `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string  `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

// bestDishesSchema constrains the model output to the BestDishes shape.
const bestDishesSchema = `{
	"type": "json_schema",
	"json_schema": {
		"name": "data",
		"strict": true,
		"schema": {
			"type": "object",
			"properties": {
				"bestDishes": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"name": {"type": "string"},
							"description": {"type": "string"}
						},
						"required": ["name", "description"],
						"additionalProperties": false
					}
				}
			},
			"required": ["bestDishes"],
			"additionalProperties": false
		}
	}
}`

// GenerateBestDishes asks the chat model to summarize the review context
// into a structured dish list.
func (c *Client) GenerateBestDishes(ctx context.Context, name, reviewContext string) (*BestDishes, error) {
	if c.apiKey == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}

	raw, err := c.post(ctx, "/chat/completions", chatRequest{
		Model: chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: criticSystemPrompt},
			{Role: "user", Content: BuildBestDishesPrompt(name, reviewContext)},
		},
		Temperature:    0.4,
		ResponseFormat: json.RawMessage(bestDishesSchema),
	})
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty chat completion response")
	}
	if refusal := resp.Choices[0].Message.Refusal; refusal != nil && *refusal != "" {
		return nil, fmt.Errorf("model refused to answer: %s", *refusal)
	}

	var dishes BestDishes
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &dishes); err != nil {
		return nil, fmt.Errorf("invalid best dishes output: %w", err)
	}

	return &dishes, nil
}

// --------------------------------------------------
// Transport
// --------------------------------------------------

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w (%d): %s", ErrUpstream, resp.StatusCode, string(raw))
	}

	return raw, nil
}
