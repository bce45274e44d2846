package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/hyperjump/tayyib/internal/config"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	a, err := e.Embed(context.Background(), "what is ihram")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(context.Background(), "what is ihram")
	if len(a) != 16 {
		t.Fatalf("len = %d, want 16", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should embed identically")
		}
	}
	var sum float64
	for _, v := range a {
		sum += float64(v * v)
	}
	if math.Abs(sum-1) > 1e-4 {
		t.Errorf("expected unit vector, norm² = %v", sum)
	}
	if e.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", e.Calls())
	}
}

func TestMockEmbedder_Err(t *testing.T) {
	e := NewMockEmbedder(8)
	e.Err = errors.New("down")
	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Error("expected configured error")
	}
}

func TestCached(t *testing.T) {
	inner := NewMockEmbedder(8)
	c, err := NewCached(inner, 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Embed(ctx, "tawaf"); err != nil {
			t.Fatal(err)
		}
	}
	if inner.Calls() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.Calls())
	}
	_, _ = c.Embed(ctx, "sai")
	_, _ = c.Embed(ctx, "rawdah") // evicts tawaf
	_, _ = c.Embed(ctx, "tawaf")
	if inner.Calls() != 4 {
		t.Errorf("inner calls = %d, want 4 after eviction", inner.Calls())
	}
	if c.Dimensions() != 8 {
		t.Errorf("Dimensions() = %d", c.Dimensions())
	}
}

func TestCached_returnsCopies(t *testing.T) {
	c, _ := NewCached(NewMockEmbedder(8), 4)
	ctx := context.Background()
	want, _ := NewMockEmbedder(8).Embed(ctx, "tawaf")

	first, _ := c.Embed(ctx, "tawaf")
	first[0] = 42
	second, _ := c.Embed(ctx, "tawaf")
	second[1] = 42
	third, _ := c.Embed(ctx, "tawaf")
	if !reflect.DeepEqual(third, want) {
		t.Errorf("cached vector was mutated by a caller: %v, want %v", third, want)
	}
}

func TestCached_doesNotCacheErrors(t *testing.T) {
	inner := NewMockEmbedder(8)
	inner.Err = errors.New("rate limited")
	c, _ := NewCached(inner, 4)
	_, _ = c.Embed(context.Background(), "q")
	inner.Err = nil
	if _, err := c.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("second call should reach the provider: %v", err)
	}
	if inner.Calls() != 2 {
		t.Errorf("inner calls = %d, want 2", inner.Calls())
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "text-embedding-3-large" {
			t.Errorf("model = %v", req["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.6,0.8]}],"model":"text-embedding-3-large"}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIOptions{APIKey: "k", BaseURL: srv.URL, Model: "text-embedding-3-large", Dimensions: 2})
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 2 || v[0] != 0.6 || v[1] != 0.8 {
		t.Errorf("unexpected embedding %v", v)
	}
}

func TestOpenAIEmbedder_serverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()
	e, _ := NewOpenAIEmbedder(OpenAIOptions{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error on 500")
	}
}

func TestNewOpenAIEmbedder_missingKey(t *testing.T) {
	if _, err := NewOpenAIEmbedder(OpenAIOptions{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestNew(t *testing.T) {
	cfg := config.Defaults()
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 32
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if e.Dimensions() != 32 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}

	cfg.Embedding.Provider = "bogus"
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNew_openAIWithoutKeyDegrades(t *testing.T) {
	cfg := config.Defaults()
	cfg.Embedding.Provider = "openai"
	cfg.Completion.APIKey = ""
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New should not fail without a key: %v", err)
	}
	defer e.Close()
	if _, err := e.Embed(context.Background(), "ihram"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Embed err = %v, want ErrMissingAPIKey", err)
	}
}

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("Hello World", 10)
	if len(ids) != 10 {
		t.Errorf("len(ids)=%d", len(ids))
	}
	if ids[0] != clsToken || ids[3] != sepToken {
		t.Errorf("expected CLS ... SEP framing, got %v", ids)
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask should cover CLS, words and SEP only: %v", attn)
	}
	lower, _, _ := tok.Tokenize("hello world", 10)
	if lower[1] != ids[1] {
		t.Error("tokenization should be case-insensitive")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}
