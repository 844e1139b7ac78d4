package restaurant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/LiamTurner347/grains/internal/cache"
	"github.com/LiamTurner347/grains/internal/openai"
)

// --------------------------------------------------
// Pipeline mocks
// --------------------------------------------------

type mockIngestor struct {
	id    int64
	err   error
	calls int
}

func (m *mockIngestor) EnsureReviewsIngested(ctx context.Context, name, placeID string) (int64, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.id, nil
}

type mockRetriever struct {
	results []SearchResult
	err     error
	calls   int
}

func (m *mockRetriever) RetrieveContext(ctx context.Context, restaurantID int64) ([]SearchResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type mockSummarizer struct {
	dishes      *openai.BestDishes
	err         error
	calls       int
	lastContext string
}

func (m *mockSummarizer) GenerateBestDishes(ctx context.Context, name, reviewContext string) (*openai.BestDishes, error) {
	m.calls++
	m.lastContext = reviewContext
	if m.err != nil {
		return nil, m.err
	}
	return m.dishes, nil
}

type mockCache struct {
	entries map[string]cache.Entry
	getErr  error
	setErr  error
	sets    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]cache.Entry)}
}

func (m *mockCache) Get(ctx context.Context, name string) (cache.Entry, bool, error) {
	if m.getErr != nil {
		return cache.Entry{}, false, m.getErr
	}
	entry, ok := m.entries[name]
	return entry, ok, nil
}

func (m *mockCache) Set(ctx context.Context, name string, entry cache.Entry) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.entries[name] = entry
	return nil
}

func sampleDishes() *openai.BestDishes {
	return &openai.BestDishes{BestDishes: []openai.Dish{
		{Name: "Lobster Ravioli", Description: "Silky pasta with a rich shellfish filling."},
	}}
}

// --------------------------------------------------
// TESTS
// --------------------------------------------------

func TestGetBestDishes_CacheHitShortCircuits(t *testing.T) {
	ingestor := &mockIngestor{id: 1}
	retriever := &mockRetriever{}
	summarizer := &mockSummarizer{dishes: sampleDishes()}
	resultCache := newMockCache()

	serialized, _ := json.Marshal(sampleDishes())
	resultCache.entries["Robinsons Cafe"] = cache.Entry{
		Restaurant: "Robinsons Cafe",
		BestDishes: string(serialized),
	}

	s := NewService(ingestor, retriever, summarizer, resultCache)
	rec, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if ingestor.calls != 0 || retriever.calls != 0 || summarizer.calls != 0 {
		t.Errorf("cache hit must not touch the pipeline: ingest=%d retrieve=%d summarize=%d",
			ingestor.calls, retriever.calls, summarizer.calls)
	}
	if rec.Restaurant != "Robinsons Cafe" {
		t.Errorf("restaurant = %q", rec.Restaurant)
	}
	if len(rec.BestDishes.BestDishes) != 1 || rec.BestDishes.BestDishes[0].Name != "Lobster Ravioli" {
		t.Errorf("unexpected dishes: %+v", rec.BestDishes)
	}
}

func TestGetBestDishes_MissRunsPipelineAndCaches(t *testing.T) {
	ingestor := &mockIngestor{id: 7}
	retriever := &mockRetriever{results: []SearchResult{
		{Review: "Loved the lobster ravioli!", Similarity: 0.91234},
		{Review: "Truffle toast was divine", Similarity: 0.8},
	}}
	summarizer := &mockSummarizer{dishes: sampleDishes()}
	resultCache := newMockCache()

	s := NewService(ingestor, retriever, summarizer, resultCache)
	rec, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if ingestor.calls != 1 || retriever.calls != 1 || summarizer.calls != 1 {
		t.Errorf("pipeline not run exactly once: ingest=%d retrieve=%d summarize=%d",
			ingestor.calls, retriever.calls, summarizer.calls)
	}

	wantContext := "- Loved the lobster ravioli! (Similarity: 0.91)\n- Truffle toast was divine (Similarity: 0.80)"
	if summarizer.lastContext != wantContext {
		t.Errorf("context = %q, want %q", summarizer.lastContext, wantContext)
	}

	entry, ok := resultCache.entries["Robinsons Cafe"]
	if !ok {
		t.Fatal("result was not cached")
	}
	if entry.Restaurant != "Robinsons Cafe" {
		t.Errorf("cached restaurant = %q", entry.Restaurant)
	}
	if !strings.Contains(entry.BestDishes, "Lobster Ravioli") {
		t.Errorf("cached dishes = %q", entry.BestDishes)
	}
	if rec.Restaurant != "Robinsons Cafe" {
		t.Errorf("restaurant = %q", rec.Restaurant)
	}
}

func TestGetBestDishes_SecondCallReturnsIdenticalPayloadFromCache(t *testing.T) {
	ingestor := &mockIngestor{id: 7}
	retriever := &mockRetriever{results: []SearchResult{
		{Review: "Loved the lobster ravioli!", Similarity: 0.9},
	}}
	summarizer := &mockSummarizer{dishes: sampleDishes()}
	resultCache := newMockCache()

	s := NewService(ingestor, retriever, summarizer, resultCache)

	first, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123")
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123")
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if summarizer.calls != 1 {
		t.Errorf("expected 1 summarizer call, got %d", summarizer.calls)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("payloads differ:\n%s\n%s", a, b)
	}
}

func TestGetBestDishes_EmptyDishListRejected(t *testing.T) {
	summarizer := &mockSummarizer{dishes: &openai.BestDishes{}}
	resultCache := newMockCache()

	s := NewService(&mockIngestor{id: 1}, &mockRetriever{}, summarizer, resultCache)
	_, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123")

	if !errors.Is(err, ErrBadSummaryFormat) {
		t.Fatalf("expected ErrBadSummaryFormat, got %v", err)
	}
	if resultCache.sets != 0 {
		t.Error("malformed summary must not be cached")
	}
}

func TestGetBestDishes_DishMissingFieldsRejected(t *testing.T) {
	summarizer := &mockSummarizer{dishes: &openai.BestDishes{BestDishes: []openai.Dish{
		{Name: "Lobster Ravioli", Description: ""},
	}}}
	resultCache := newMockCache()

	s := NewService(&mockIngestor{id: 1}, &mockRetriever{}, summarizer, resultCache)
	_, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123")

	if !errors.Is(err, ErrBadSummaryFormat) {
		t.Fatalf("expected ErrBadSummaryFormat, got %v", err)
	}
	if resultCache.sets != 0 {
		t.Error("malformed summary must not be cached")
	}
}

func TestGetBestDishes_MalformedCacheEntryFallsThrough(t *testing.T) {
	ingestor := &mockIngestor{id: 3}
	retriever := &mockRetriever{results: []SearchResult{
		{Review: "Great", Similarity: 0.9},
	}}
	summarizer := &mockSummarizer{dishes: sampleDishes()}
	resultCache := newMockCache()
	resultCache.entries["Robinsons Cafe"] = cache.Entry{
		Restaurant: "Robinsons Cafe",
		BestDishes: "{not json",
	}

	s := NewService(ingestor, retriever, summarizer, resultCache)
	rec, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123")
	if err != nil {
		t.Fatalf("expected recomputation, got %v", err)
	}
	if summarizer.calls != 1 {
		t.Errorf("expected pipeline to run, summarizer calls = %d", summarizer.calls)
	}
	if !strings.Contains(resultCache.entries["Robinsons Cafe"].BestDishes, "Lobster Ravioli") {
		t.Error("malformed entry should be overwritten with a fresh result")
	}
	if rec.BestDishes.BestDishes[0].Name != "Lobster Ravioli" {
		t.Errorf("unexpected dishes: %+v", rec.BestDishes)
	}
}

func TestGetBestDishes_EmptyCachedDishListFallsThrough(t *testing.T) {
	for _, payload := range []string{`{"bestDishes": []}`, `null`} {
		ingestor := &mockIngestor{id: 3}
		retriever := &mockRetriever{results: []SearchResult{
			{Review: "Great", Similarity: 0.9},
		}}
		summarizer := &mockSummarizer{dishes: sampleDishes()}
		resultCache := newMockCache()
		resultCache.entries["Robinsons Cafe"] = cache.Entry{
			Restaurant: "Robinsons Cafe",
			BestDishes: payload,
		}

		s := NewService(ingestor, retriever, summarizer, resultCache)
		rec, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123")
		if err != nil {
			t.Fatalf("payload %q: expected recomputation, got %v", payload, err)
		}
		if summarizer.calls != 1 {
			t.Errorf("payload %q: expected pipeline to run, summarizer calls = %d", payload, summarizer.calls)
		}
		if len(rec.BestDishes.BestDishes) != 1 {
			t.Errorf("payload %q: expected a recomputed dish list, got %+v", payload, rec.BestDishes)
		}
		if !strings.Contains(resultCache.entries["Robinsons Cafe"].BestDishes, "Lobster Ravioli") {
			t.Errorf("payload %q: empty entry should be overwritten with a fresh result", payload)
		}
	}
}

func TestGetBestDishes_CacheReadFailureIsFatal(t *testing.T) {
	resultCache := newMockCache()
	resultCache.getErr = errors.New("redis down")

	s := NewService(&mockIngestor{id: 1}, &mockRetriever{}, &mockSummarizer{dishes: sampleDishes()}, resultCache)
	if _, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123"); err == nil {
		t.Fatal("expected cache read failure to surface")
	}
}

func TestGetBestDishes_PipelineErrorsPropagate(t *testing.T) {
	resultCache := newMockCache()

	s := NewService(&mockIngestor{err: errors.New("fetch failed")}, &mockRetriever{}, &mockSummarizer{}, resultCache)
	if _, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123"); err == nil {
		t.Fatal("expected ingestion error to surface")
	}
	if resultCache.sets != 0 {
		t.Error("nothing should be cached on failure")
	}
}

// --------------------------------------------------
// Full pipeline scenario with real Ingestor and Retriever
// --------------------------------------------------

func TestGetBestDishes_EndToEndScenario(t *testing.T) {
	// Reviews and reference prompts embed onto a two-axis space where the
	// first component tracks dish praise.
	vectors := map[string][]float32{
		"Loved the lobster ravioli!":           {0.9, 0.1},
		"Truffle toast was divine":             {0.5, 0.5},
		"Great lobster ravioli, ordered twice": {0.95, 0.05},
	}
	embedder := &mockEmbedder{vectorFor: func(text string) []float32 {
		if v, ok := vectors[text]; ok {
			return v
		}
		return []float32{1, 0}
	}}

	repo := &scenarioRepo{cosineRepo: &cosineRepo{}}
	source := &mockSource{texts: []string{
		"Loved the lobster ravioli!",
		"Truffle toast was divine",
		"Great lobster ravioli, ordered twice",
	}}
	summarizer := &mockSummarizer{dishes: sampleDishes()}
	resultCache := newMockCache()

	s := NewService(
		NewIngestor(repo, source, embedder),
		NewRetriever(repo, embedder, 2),
		summarizer,
		resultCache,
	)

	rec, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123")
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if rec.Restaurant != "Robinsons Cafe" {
		t.Errorf("restaurant = %q", rec.Restaurant)
	}

	// k=2 must pick both ravioli mentions over the single truffle one.
	if strings.Contains(summarizer.lastContext, "Truffle toast") {
		t.Errorf("truffle review should not be in top-2 context: %q", summarizer.lastContext)
	}
	if !strings.Contains(summarizer.lastContext, "lobster ravioli") {
		t.Errorf("ravioli reviews missing from context: %q", summarizer.lastContext)
	}

	second, err := s.GetBestDishes(context.Background(), "Robinsons Cafe", "place123")
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if summarizer.calls != 1 {
		t.Errorf("second call must be served from cache, summarizer calls = %d", summarizer.calls)
	}
	if source.calls() != 1 {
		t.Errorf("second call must not refetch reviews, fetches = %d", source.calls())
	}

	a, _ := json.Marshal(rec)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("payloads differ:\n%s\n%s", a, b)
	}
}

// scenarioRepo combines the mock registration bookkeeping with real cosine
// ranking over whatever IngestRestaurant stored.
type scenarioRepo struct {
	*cosineRepo
	registered bool
	id         int64
}

func (s *scenarioRepo) FindRestaurant(ctx context.Context, name, placeID string) (int64, bool, error) {
	return s.id, s.registered, nil
}

func (s *scenarioRepo) EnsureRestaurant(ctx context.Context, name, placeID string) (int64, error) {
	if !s.registered {
		s.registered = true
		s.id = 1
	}
	return s.id, nil
}

func (s *scenarioRepo) StoreReviews(ctx context.Context, restaurantID int64, reviews []ReviewEmbedding) error {
	s.stored = append(s.stored, reviews...)
	return nil
}

func (s *scenarioRepo) IngestRestaurant(ctx context.Context, name, placeID string, reviews []ReviewEmbedding) (int64, error) {
	id, _ := s.EnsureRestaurant(ctx, name, placeID)
	s.stored = append(s.stored, reviews...)
	return id, nil
}
