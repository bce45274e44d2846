package retrieval

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/tayyib/internal/embedding"
	"github.com/hyperjump/tayyib/internal/models"
	"github.com/hyperjump/tayyib/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dims = 32

func newFixture(t *testing.T) *Retriever {
	t.Helper()
	emb := embedding.NewMockEmbedder(dims)
	idx, err := vector.NewMemoryIndex(dims)
	require.NoError(t, err)

	ctx := context.Background()
	texts := map[string]vector.Record{
		"what is ihram": {SourceID: "ihram", Lang: "EN", Title: "Ihram", URL: "https://example.org/ihram", Text: strings.Repeat("i", 500)},
		"tawaf steps":   {SourceID: "tawaf", Lang: "EN", Title: "Tawaf", Text: "Seven circuits."},
		"ما هو الإحرام": {SourceID: "ihram-ar", Lang: "AR", Title: "الإحرام", Text: "نية الدخول في النسك"},
	}
	for text, rec := range texts {
		v, err := emb.Embed(ctx, text)
		require.NoError(t, err)
		require.NoError(t, idx.Add(ctx, []vector.Record{rec}, [][]float32{v}))
	}
	return NewRetriever(emb, idx, Options{SnippetChars: 300}, nil, nil)
}

func TestRetrieve_exactMatch(t *testing.T) {
	emb := embedding.NewMockEmbedder(dims)
	idx, _ := vector.NewMemoryIndex(dims)
	v, _ := emb.Embed(context.Background(), "what is ihram")
	require.NoError(t, idx.Add(context.Background(),
		[]vector.Record{{SourceID: "ihram", Lang: "EN", Title: "Ihram", Text: strings.Repeat("é", 400)}},
		[][]float32{v}))
	r := NewRetriever(emb, idx, Options{SnippetChars: 300}, nil, nil)

	res := r.Retrieve(context.Background(), "what is ihram", models.LangEN, 5)
	require.Len(t, res.Sources, 1)
	assert.InDelta(t, 1.0, res.Confidence, 1e-6)
	assert.Equal(t, models.RelevanceHigh, res.Sources[0].Relevance)
	assert.Equal(t, "ihram", res.Sources[0].SourceID)
	assert.Equal(t, 300, len([]rune(res.Sources[0].Snippet)))
}

func TestRetrieve_cachedWithinTTL(t *testing.T) {
	emb := embedding.NewMockEmbedder(dims)
	idx, _ := vector.NewMemoryIndex(dims)
	v, _ := emb.Embed(context.Background(), "tawaf steps")
	require.NoError(t, idx.Add(context.Background(), []vector.Record{{SourceID: "tawaf", Lang: "EN"}}, [][]float32{v}))
	r := NewRetriever(emb, idx, Options{}, nil, nil)
	before := emb.Calls()

	first := r.Retrieve(context.Background(), "tawaf steps", models.LangEN, 5)
	second := r.Retrieve(context.Background(), "tawaf steps", models.LangEN, 5)

	assert.Equal(t, first, second)
	assert.Equal(t, before+1, emb.Calls(), "second lookup must not reach the embedder")

	// Callers mutating a result must not corrupt the cache.
	first.Sources[0].Title = "mutated"
	third := r.Retrieve(context.Background(), "tawaf steps", models.LangEN, 5)
	assert.NotEqual(t, "mutated", third.Sources[0].Title)
}

func TestRetrieve_embeddingFailureDegrades(t *testing.T) {
	emb := embedding.NewMockEmbedder(dims)
	emb.Err = errors.New("embedding provider down")
	idx, _ := vector.NewMemoryIndex(dims)
	r := NewRetriever(emb, idx, Options{}, nil, nil)

	for _, q := range []string{"what is ihram", "tawaf", "رمي الجمرات"} {
		res := r.Retrieve(context.Background(), q, models.LangEN, 5)
		assert.Empty(t, res.Sources)
		assert.Zero(t, res.Confidence)
	}

	// Failures are not cached.
	emb.Err = nil
	calls := emb.Calls()
	r.Retrieve(context.Background(), "what is ihram", models.LangEN, 5)
	assert.Equal(t, calls+1, emb.Calls())
}

type failingIndex struct{}

func (failingIndex) Search(context.Context, []float32, int, string) ([]*vector.Hit, error) {
	return nil, errors.New("index unavailable")
}
func (failingIndex) Size() int    { return 0 }
func (failingIndex) Close() error { return nil }

func TestRetrieve_indexFailureDegrades(t *testing.T) {
	r := NewRetriever(embedding.NewMockEmbedder(dims), failingIndex{}, Options{}, nil, nil)
	res := r.Retrieve(context.Background(), "what is ihram", models.LangEN, 5)
	assert.Empty(t, res.Sources)
	assert.Zero(t, res.Confidence)
}

func TestRetrieve_languagePartition(t *testing.T) {
	r := newFixture(t)
	res := r.Retrieve(context.Background(), "what is ihram", models.LangFR, 5)
	assert.Empty(t, res.Sources)
	assert.Zero(t, res.Confidence)

	res = r.Retrieve(context.Background(), "what is ihram", models.LangEN, 5)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "ihram", res.Sources[0].SourceID)
	for _, s := range res.Sources {
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 1.0)
	}
	assert.Equal(t, res.Sources[0].Score, res.Confidence, "confidence follows the nearest hit")
}

func TestRetrieve_emptyAndCancelled(t *testing.T) {
	r := newFixture(t)
	assert.Empty(t, r.Retrieve(context.Background(), "   ", models.LangEN, 5).Sources)
	assert.Empty(t, r.Retrieve(context.Background(), "what is ihram", models.LangEN, 0).Sources)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := r.Retrieve(ctx, "tawaf steps", models.LangEN, 5)
	assert.Empty(t, res.Sources)
	assert.Zero(t, res.Confidence)
}

func TestRetrieve_concurrentIdenticalQueries(t *testing.T) {
	r := newFixture(t)
	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Retrieve(context.Background(), "tawaf steps", models.LangEN, 3)
		}(i)
	}
	wg.Wait()
	for _, res := range results[1:] {
		assert.Equal(t, results[0], res)
	}
}

// gatedEmbedder blocks every Embed until release is closed.
type gatedEmbedder struct {
	*embedding.MockEmbedder
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.MockEmbedder.Embed(ctx, text)
}

func TestRetrieve_cancelledCallerDoesNotFailOthers(t *testing.T) {
	mock := embedding.NewMockEmbedder(dims)
	idx, _ := vector.NewMemoryIndex(dims)
	v, _ := mock.Embed(context.Background(), "tawaf steps")
	require.NoError(t, idx.Add(context.Background(),
		[]vector.Record{{SourceID: "tawaf", Lang: "EN", Title: "Tawaf", Text: "Seven circuits."}},
		[][]float32{v}))
	emb := &gatedEmbedder{MockEmbedder: mock, started: make(chan struct{}), release: make(chan struct{})}
	r := NewRetriever(emb, idx, Options{}, nil, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	doneA := make(chan Result, 1)
	go func() { doneA <- r.Retrieve(ctxA, "tawaf steps", models.LangEN, 5) }()
	<-emb.started

	doneB := make(chan Result, 1)
	go func() { doneB <- r.Retrieve(context.Background(), "tawaf steps", models.LangEN, 5) }()

	cancelA()
	resA := <-doneA
	assert.Empty(t, resA.Sources, "cancelled caller returns nothing")

	close(emb.release)
	resB := <-doneB
	require.Len(t, resB.Sources, 1)
	assert.InDelta(t, 1.0, resB.Confidence, 1e-6)
}

func TestScoreFor(t *testing.T) {
	prev := math.Inf(1)
	for d := 0.0; d <= 2.0; d += 0.05 {
		s := ScoreFor(d)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		assert.LessOrEqual(t, s, prev, "score must not increase with distance (d=%v)", d)
		prev = s
	}
	assert.Equal(t, 1.0, ScoreFor(0))
	assert.Equal(t, 0.0, ScoreFor(2))
	assert.InDelta(t, 0.92, ScoreFor(0.4), 1e-9)
}

func TestRelevanceFor(t *testing.T) {
	tests := []struct {
		d    float64
		want models.Relevance
	}{
		{0, models.RelevanceHigh},
		{0.2, models.RelevanceHigh},
		{0.21, models.RelevanceMed},
		{0.4, models.RelevanceMed},
		{0.41, models.RelevanceLow},
		{1.3, models.RelevanceLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelevanceFor(tt.d), "distance %v", tt.d)
	}
}
