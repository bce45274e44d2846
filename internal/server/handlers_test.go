package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/tayyib/internal/completion"
	"github.com/hyperjump/tayyib/internal/config"
	"github.com/hyperjump/tayyib/internal/models"
	"github.com/hyperjump/tayyib/internal/observability"
	"github.com/hyperjump/tayyib/internal/retrieval"
	"github.com/hyperjump/tayyib/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

type stubAsker struct {
	decision *models.RouteDecision
	panics   bool
	queries  []models.Query
}

func (s *stubAsker) Ask(_ context.Context, q models.Query) *models.RouteDecision {
	s.queries = append(s.queries, q)
	if s.panics {
		panic("engine exploded")
	}
	return s.decision
}

type stubStreamer struct {
	events []models.StreamEvent
	query  models.Query
}

func (s *stubStreamer) Run(_ context.Context, q models.Query) iter.Seq[models.StreamEvent] {
	s.query = q
	return func(yield func(models.StreamEvent) bool) {
		for _, ev := range s.events {
			if !yield(ev) {
				return
			}
		}
	}
}

type stubRetriever struct {
	result retrieval.Result
	topK   int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, _ models.Lang, topK int) retrieval.Result {
	s.topK = topK
	return s.result
}

type fixture struct {
	srv      *Server
	handler  http.Handler
	asker    *stubAsker
	streamer *stubStreamer
	store    *storage.SQLiteStorage
	errLog   *completion.ErrorLog
}

func newFixture(t *testing.T, devMode bool) *fixture {
	t.Helper()
	cfg := config.Defaults()
	cfg.DevMode = devMode
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "analytics.sqlite")

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	reg := prometheus.NewRegistry()
	f := &fixture{
		asker: &stubAsker{decision: &models.RouteDecision{
			Route:      models.RouteRetrievalGrounded,
			Confidence: 0.8,
			Sources:    []models.RetrievedSource{{SourceID: "s1", Title: "Tawaf", URL: "https://example.org", Relevance: models.RelevanceHigh}},
			Answer:     &models.Answer{Direct: "Seven circuits."},
			Chips:      []string{"What is sai?"},
			DebugNotes: "rag",
		}},
		streamer: &stubStreamer{},
		store:    store,
		errLog:   &completion.ErrorLog{},
	}
	f.srv = NewServer(Deps{
		Engine:    f.asker,
		Pipeline:  f.streamer,
		Retriever: &stubRetriever{result: retrieval.Result{Sources: []models.RetrievedSource{{SourceID: "s1", Score: 0.9}}, Confidence: 0.9}},
		Storage:   store,
		ErrorLog:  f.errLog,
		Metrics:   observability.NewMetrics(reg),
		Gatherer:  reg,
		Config:    cfg,
		Version:   VersionInfo{Version: "1.2.3", BuildTime: "today"},
	}, nil)
	f.handler = f.srv.Router()
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func TestHandleAsk(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(http.MethodPost, "/api/ask", `{"lang":"en","query":"How do I perform tawaf?","session_id":"s1","clarified":true,"clarifier_choice":"Steps"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.AskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.RouteUsed != "rag" || resp.Route != models.RouteRetrievalGrounded {
		t.Errorf("route: got %s/%s", resp.Route, resp.RouteUsed)
	}
	if resp.Answer.Direct != "Seven circuits." || resp.Answer.Steps == nil {
		t.Errorf("answer: got %+v", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Title != "Tawaf" {
		t.Errorf("sources: got %+v", resp.Sources)
	}
	if resp.DebugNotes != nil {
		t.Error("debug notes should be hidden outside dev mode")
	}

	if len(f.asker.queries) != 1 {
		t.Fatalf("expected one engine call, got %d", len(f.asker.queries))
	}
	q := f.asker.queries[0]
	if q.Lang != models.LangEN || q.ClarifierChoice != "Steps" || q.Mode != models.ModeAsk {
		t.Errorf("query: got %+v", q)
	}

	n, err := f.store.CountPriorTurns(context.Background(), "s1", models.ModeAsk)
	if err != nil || n != 1 {
		t.Errorf("analytics rows: got %d, %v", n, err)
	}
}

func TestHandleAsk_emptyQuery(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(http.MethodPost, "/api/ask", `{"lang":"FR","query":"  ","session_id":"s1"}`)
	var resp models.AskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorCode == nil || *resp.ErrorCode != models.ErrEmptyQuery {
		t.Errorf("error code: got %v", resp.ErrorCode)
	}
	if resp.ClarifyingQuestion == nil || *resp.ClarifyingQuestion != "Veuillez poser une question sur la Omra." {
		t.Errorf("clarifying question: got %v", resp.ClarifyingQuestion)
	}
	if len(f.asker.queries) != 0 {
		t.Error("engine should not be called for an empty query")
	}
}

func TestHandleAsk_badRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"unknown lang", `{"lang":"DE","query":"q","session_id":"s"}`},
		{"missing session", `{"lang":"EN","query":"q"}`},
	}
	f := newFixture(t, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/ask", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleAsk_panicReturnsSafeResponse(t *testing.T) {
	f := newFixture(t, false)
	f.asker.panics = true

	w := f.do(http.MethodPost, "/api/ask", `{"lang":"EN","query":"q","session_id":"s"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.AskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.RouteUsed != "fallback" || resp.ErrorCode == nil || *resp.ErrorCode != models.ErrAsk {
		t.Errorf("got %+v", resp)
	}
	if resp.Confidence != 0 || len(resp.Sources) != 0 {
		t.Errorf("safe response should be empty: %+v", resp)
	}
}

func TestHandleChat_sseFraming(t *testing.T) {
	f := newFixture(t, false)
	d := &models.RouteDecision{Route: models.RouteOffline, Confidence: 0.9, Sources: []models.RetrievedSource{{Title: "Ihram"}}}
	f.streamer.events = []models.StreamEvent{
		models.TokenEvent("## Direct"),
		models.TokenEvent(" Answer\n\nIhram"),
		models.MetaEvent("stream-1", d, 12),
	}

	w := f.do(http.MethodPost, "/api/chat", `{"lang":"AR","session_id":"s1","messages":[{"role":"user","content":"ما هو الإحرام؟"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type: got %q", got)
	}
	if w.Header().Get("Cache-Control") != "no-cache" || w.Header().Get("X-Accel-Buffering") != "no" {
		t.Errorf("missing streaming headers: %v", w.Header())
	}
	if f.streamer.query.Text != "ما هو الإحرام؟" || f.streamer.query.Lang != models.LangAR {
		t.Errorf("query: got %+v", f.streamer.query)
	}

	body := w.Body.String()
	wantPrefix := "event: token\ndata: ## Direct\n\nevent: token\ndata:  Answer\ndata: \ndata: Ihram\n\nevent: meta\ndata: "
	if !strings.HasPrefix(body, wantPrefix) {
		t.Fatalf("framing mismatch:\n%q", body)
	}

	var meta models.ChatMeta
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "data: {") {
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &meta); err != nil {
				t.Fatal(err)
			}
		}
	}
	if meta.StreamID != "stream-1" || meta.RouteUsed != "offline" || len(meta.Sources) != 1 {
		t.Errorf("meta: got %+v", meta)
	}
}

func TestHandleChat_badRequest(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(http.MethodPost, "/api/chat", `{"lang":"EN","messages":[{"role":"system","content":"x"}]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleRetrieve(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(http.MethodPost, "/api/rag_test", `{"lang":"EN","query":"tawaf"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.RetrieveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Confidence != 0.9 {
		t.Errorf("got %+v", resp)
	}
	if got := f.srv.deps.Retriever.(*stubRetriever).topK; got != 5 {
		t.Errorf("default top_k: got %d, want 5", got)
	}
}

func TestHandleFeedback(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(http.MethodPost, "/api/feedback", `{"session_id":"s1","rating_1_5":5,"time_on_screen_ms":1200,"last_route_used":"offline"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	events, err := f.store.ListEvents(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Mode != models.ModeFeedback || *events[0].Rating != 5 {
		t.Errorf("events: got %+v", events)
	}

	w = f.do(http.MethodPost, "/api/feedback", `{"session_id":"s1","rating_1_5":9}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("out of range rating: got %d, want 400", w.Code)
	}
}

func TestHandleHealthAndVersion(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(http.MethodGet, "/api/health", "")
	var health map[string]string
	_ = json.NewDecoder(w.Body).Decode(&health)
	if health["status"] != "ok" {
		t.Errorf("health: got %v", health)
	}

	w = f.do(http.MethodGet, "/api/version", "")
	var version map[string]interface{}
	_ = json.NewDecoder(w.Body).Decode(&version)
	if version["version"] != "1.2.3" || version["event_mode"] != false {
		t.Errorf("version: got %v", version)
	}
}

func TestHandleDiag(t *testing.T) {
	f := newFixture(t, false)
	if w := f.do(http.MethodGet, "/api/diag", ""); w.Code != http.StatusNotFound {
		t.Errorf("diag outside dev mode: got %d, want 404", w.Code)
	}

	f = newFixture(t, true)
	f.errLog.Record(&completion.Error{Code: models.ErrRateLimited, Status: 429})
	w := f.do(http.MethodGet, "/api/diag", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var diag map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&diag); err != nil {
		t.Fatal(err)
	}
	if diag["openai_key_present"] != false {
		t.Errorf("key present: got %v", diag["openai_key_present"])
	}
	last, ok := diag["last_provider_error"].(map[string]interface{})
	if !ok || last["error_code"] != "rate_limited" {
		t.Errorf("last provider error: got %v", diag["last_provider_error"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, false)
	f.do(http.MethodPost, "/api/ask", `{"lang":"EN","query":"q","session_id":"s"}`)

	w := f.do(http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `tayyib_requests_total{mode="ask",route="retrieval_grounded"} 1`) {
		t.Errorf("metrics missing request counter:\n%s", w.Body.String())
	}
}
