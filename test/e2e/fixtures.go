// Package e2e drives the kiosk HTTP API end to end over real storage, a memory vector index,
// the shipped offline pack and a scripted OpenAI-compatible provider.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/tayyib/internal/completion"
	"github.com/hyperjump/tayyib/internal/config"
	"github.com/hyperjump/tayyib/internal/embedding"
	"github.com/hyperjump/tayyib/internal/models"
	"github.com/hyperjump/tayyib/internal/observability"
	"github.com/hyperjump/tayyib/internal/offline"
	"github.com/hyperjump/tayyib/internal/retrieval"
	"github.com/hyperjump/tayyib/internal/routing"
	"github.com/hyperjump/tayyib/internal/server"
	"github.com/hyperjump/tayyib/internal/storage"
	"github.com/hyperjump/tayyib/internal/stream"
	"github.com/hyperjump/tayyib/internal/vector"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	e2eDimensions = 64
	offlinePack   = "../../data/offline_pack/offline_pack.json"
)

// Queries with an indexed passage embedded from the exact same text, so retrieval scores 1.
const (
	tawafQuery    = "How do I perform tawaf?"
	umbrellaQuery = "Can I carry an umbrella in the Haram?"
)

// fixtureSource is one indexed passage. Its vector is the mock embedding of IndexedAs.
type fixtureSource struct {
	vector.Record
	IndexedAs string
}

func corpus() []fixtureSource {
	return []fixtureSource{
		{
			Record: vector.Record{
				SourceID: "guide-tawaf-en", Lang: "EN", Title: "Tawaf guide",
				URL: "https://example.org/guides/tawaf", Text: "Tawaf is seven anticlockwise circuits around the Kaaba.",
			},
			IndexedAs: tawafQuery,
		},
		{
			Record: vector.Record{
				SourceID: "haram-etiquette-en", Lang: "EN", Title: "Haram etiquette",
				URL: "https://example.org/guides/etiquette", Text: "Small umbrellas are allowed in the courtyards of the Haram.",
			},
			IndexedAs: umbrellaQuery,
		},
		{
			Record: vector.Record{
				SourceID: "guide-ihram-ar", Lang: "AR", Title: "دليل الإحرام",
				URL: "https://example.org/ar/ihram", Text: "الإحرام نية الدخول في النسك.",
			},
			IndexedAs: "ما هو الإحرام",
		},
	}
}

// provider is a scripted OpenAI-compatible chat completions server.
type provider struct {
	srv    *httptest.Server
	calls  atomic.Int32
	answer completion.AnswerPayload
	chunks []string
}

func newProvider(t *testing.T) *provider {
	t.Helper()
	p := &provider{
		answer: completion.AnswerPayload{
			Direct:    "Yes, a small umbrella is fine in the courtyards.",
			Steps:     []string{"Keep it folded indoors", "Mind other pilgrims"},
			Mistakes:  []string{},
			FollowUps: []string{"What can I bring into the Haram?"},
		},
		chunks: []string{"Yes, ", "a small ", "umbrella is fine."},
	}
	p.srv = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *provider) serve(w http.ResponseWriter, r *http.Request) {
	p.calls.Add(1)
	var req struct {
		Stream bool `json:"stream"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Stream {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, c := range p.chunks {
			b, _ := json.Marshal(c)
			fmt.Fprintf(w, `data: {"id":"1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":%s}}]}`+"\n\n", b)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		return
	}

	content, _ := json.Marshal(p.answer)
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-test",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": string(content)},
			"finish_reason": "stop",
		}},
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// stack is a running kiosk API.
type stack struct {
	url      string
	provider *provider
	store    *storage.SQLiteStorage
}

type stackOption func(cfg *config.Config)

func withoutAPIKey() stackOption {
	return func(cfg *config.Config) { cfg.Completion.APIKey = "" }
}

func withSessionLimit(n int) stackOption {
	return func(cfg *config.Config) { cfg.Routing.MaxMessagesPerSession = n }
}

func newStack(t *testing.T, opts ...stackOption) *stack {
	t.Helper()
	ctx := context.Background()
	p := newProvider(t)

	cfg := config.Defaults()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "analytics.sqlite")
	cfg.Storage.OfflinePackPath = offlinePack
	cfg.Completion.APIKey = "sk-test"
	cfg.Completion.BaseURL = p.srv.URL
	cfg.Completion.RetryBackoff = 10 * time.Millisecond
	cfg.Embedding.Dimensions = e2eDimensions
	for _, o := range opts {
		o(cfg)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	embedder := embedding.NewMockEmbedder(e2eDimensions)
	index, err := vector.NewMemoryIndex(e2eDimensions)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = index.Close() })
	for _, src := range corpus() {
		vec, err := embedder.Embed(ctx, src.IndexedAs)
		if err != nil {
			t.Fatal(err)
		}
		if err := index.Add(ctx, []vector.Record{src.Record}, [][]float32{vec}); err != nil {
			t.Fatalf("index %s: %v", src.SourceID, err)
		}
	}

	table, err := offline.LoadTable(cfg.Storage.OfflinePackPath)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() == 0 {
		t.Fatal("offline pack is empty")
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	errLog := &completion.ErrorLog{}
	llm := completion.NewOpenAIClient(completion.Options{
		APIKey:       cfg.Completion.APIKey,
		BaseURL:      cfg.Completion.BaseURL,
		Model:        "gpt-test",
		RetryBackoff: cfg.Completion.RetryBackoff,
		MaxRetries:   1,
		ErrorLog:     errLog,
	}, nil)
	retriever := retrieval.NewRetriever(embedder, index, retrieval.Options{}, metrics, nil)
	engine := routing.NewEngine(offline.NewMatcher(table, cfg.Routing.TagBonus), retriever, llm, cfg.Routing, metrics, nil)
	pipeline := stream.NewPipeline(engine, llm, store, store, stream.Options{
		MaxMessagesPerSession: cfg.Routing.MaxMessagesPerSession,
		FragmentSize:          cfg.Routing.FragmentSize,
		HashSalt:              cfg.Privacy.QueryHashSalt,
	}, metrics, nil)

	srv := server.NewServer(server.Deps{
		Engine:    engine,
		Pipeline:  pipeline,
		Retriever: retriever,
		Storage:   store,
		Index:     index,
		ErrorLog:  errLog,
		Metrics:   metrics,
		Gatherer:  reg,
		Config:    cfg,
	}, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &stack{url: ts.URL, provider: p, store: store}
}

func (s *stack) ask(t *testing.T, body string) models.AskResponse {
	t.Helper()
	resp, err := http.Post(s.url+"/api/ask", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ask status %d", resp.StatusCode)
	}
	var out models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

// chat posts one conversational request and returns the streamed text and the terminal metadata.
func (s *stack) chat(t *testing.T, body string) (string, models.ChatMeta) {
	t.Helper()
	resp, err := http.Post(s.url+"/api/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return parseEvents(t, string(raw))
}

// parseEvents splits an SSE body into concatenated token text and the meta record.
func parseEvents(t *testing.T, body string) (string, models.ChatMeta) {
	t.Helper()
	var text strings.Builder
	var meta models.ChatMeta
	metas := 0
	for _, block := range strings.Split(body, "\n\n") {
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		event := strings.TrimPrefix(lines[0], "event: ")
		data := make([]string, 0, len(lines)-1)
		for _, l := range lines[1:] {
			data = append(data, strings.TrimPrefix(l, "data: "))
		}
		switch event {
		case "token":
			if metas > 0 {
				t.Fatal("token after meta")
			}
			text.WriteString(strings.Join(data, "\n"))
		case "meta":
			metas++
			if err := json.Unmarshal([]byte(strings.Join(data, "\n")), &meta); err != nil {
				t.Fatalf("decode meta: %v", err)
			}
		default:
			t.Fatalf("unexpected event %q", event)
		}
	}
	if metas != 1 {
		t.Fatalf("want exactly one meta event, got %d", metas)
	}
	return text.String(), meta
}
