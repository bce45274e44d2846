// Package main is the Tayyib kiosk assistant entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/tayyib/internal/cli"
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
	"github.com/hyperjump/tayyib/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const defaultConfigPath = "/usr/local/etc/tayyib/config.yaml"

// loadConfig loads config from path. When path is the default and config.yaml exists in the
// current directory, that file is used instead so "tayyib server" works from a checkout.
// A missing default config falls back to built-in defaults plus environment overrides.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg := config.Defaults()
			config.ApplyEnv(cfg, os.LookupEnv)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "chat":
		runChat()
	case "retrieve":
		runRetrieve()
	case "init":
		runInit()
	case "check-offline":
		runCheckOffline()
	case "index":
		runIndex()
	case "version", "--version", "-v":
		fmt.Printf("tayyib version %s (built %s)\n", version, buildTime)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds the wired engine and its dependencies.
type Components struct {
	Embedder  embedding.Embedder
	Index     vector.Index
	Retriever *retrieval.Retriever
	LLM       *completion.OpenAIClient
	ErrorLog  *completion.ErrorLog
	Engine    *routing.Engine
	Pipeline  *stream.Pipeline
	Storage   *storage.SQLiteStorage
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry
}

// Close releases every component that holds a resource.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Registry: prometheus.NewRegistry(), ErrorLog: &completion.ErrorLog{}}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = observability.NewMetrics(c.Registry)

	var err error
	c.Embedder, err = embedding.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	c.Index, err = vector.New(context.Background(), cfg, c.Embedder, c.Embedder.Dimensions(), logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	c.Storage, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open analytics storage: %w", err)
	}
	table, err := offline.LoadTable(cfg.Storage.OfflinePackPath)
	if err != nil {
		c.Close()
		return nil, err
	}
	logger.Info("offline pack loaded",
		zap.String("path", cfg.Storage.OfflinePackPath),
		zap.Int("entries", table.Len()),
	)

	c.Retriever = retrieval.NewRetriever(c.Embedder, c.Index, retrieval.Options{
		CacheTTL:     cfg.Retrieval.CacheTTL,
		CacheSize:    cfg.Retrieval.CacheSize,
		SnippetChars: cfg.Retrieval.SnippetChars,
	}, c.Metrics, logger)

	c.LLM = completion.NewOpenAIClient(completion.Options{
		APIKey:         cfg.Completion.APIKey,
		BaseURL:        cfg.Completion.BaseURL,
		Model:          cfg.Completion.Model,
		ConnectTimeout: cfg.Completion.ConnectTimeout,
		ReadTimeout:    cfg.Completion.ReadTimeout,
		StreamDeadline: cfg.Completion.StreamDeadline,
		RetryBackoff:   cfg.Completion.RetryBackoff,
		MaxRetries:     cfg.Completion.Retries(),
		ErrorLog:       c.ErrorLog,
	}, logger)
	if !c.LLM.HasCredential() {
		logger.Warn("no completion API key configured; generated answers will fall back to clarifiers")
	}

	matcher := offline.NewMatcher(table, cfg.Routing.TagBonus)
	c.Engine = routing.NewEngine(matcher, c.Retriever, c.LLM, cfg.Routing, c.Metrics, logger)
	c.Pipeline = stream.NewPipeline(c.Engine, c.LLM, c.Storage, c.Storage, stream.Options{
		MaxMessagesPerSession: cfg.Routing.MaxMessagesPerSession,
		FragmentSize:          cfg.Routing.FragmentSize,
		HashSalt:              cfg.Privacy.QueryHashSalt,
	}, c.Metrics, logger)
	return c, nil
}

// setup loads config and builds the logger for a subcommand.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode, cfg.EventMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, resolved
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, resolved := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("event_mode", cfg.EventMode),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(server.Deps{
		Engine:    components.Engine,
		Pipeline:  components.Pipeline,
		Retriever: components.Retriever,
		Storage:   components.Storage,
		Index:     components.Index,
		ErrorLog:  components.ErrorLog,
		Metrics:   components.Metrics,
		Gatherer:  components.Registry,
		Config:    cfg,
		Version:   server.VersionInfo{Version: version, BuildTime: buildTime},
	}, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQuery joins positional args so multi-word queries work with or without quotes.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags that appear after the query to the front so flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// queryFlags are shared by ask, chat and retrieve.
type queryFlags struct {
	configPath *string
	serverURL  *string
	lang       *string
	output     *string
	debug      *bool
}

func newQueryFlags(fs *flag.FlagSet) *queryFlags {
	return &queryFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		serverURL:  fs.String("server", "", "server URL (empty = answer in-process)"),
		lang:       fs.String("lang", "EN", "answer language: EN, AR or FR"),
		output:     fs.String("output", "text", "output format: text or json"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
	}
}

func (f *queryFlags) format() cli.OutputFormat {
	format, err := cli.ParseOutputFormat(*f.output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func (f *queryFlags) language() models.Lang {
	lang := models.Lang(strings.ToUpper(strings.TrimSpace(*f.lang)))
	if !lang.Valid() {
		fmt.Fprintf(os.Stderr, "Unknown language %q; use EN, AR or FR\n", *f.lang)
		os.Exit(1)
	}
	return lang
}

// inProcess builds components for a one-off command. Logging stays quiet unless -debug is set.
func (f *queryFlags) inProcess() (*Components, *zap.Logger) {
	cfg, logger, _ := setup(*f.configPath, *f.debug)
	if !*f.debug && !cfg.Debug {
		logger = zap.NewNop()
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, logger
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	qf := newQueryFlags(fs)
	choice := fs.String("choice", "", "clarifier choice picked for this question")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: tayyib ask [flags] <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format := qf.format()
	req := &models.AskRequest{
		Lang:            qf.language(),
		Query:           buildQuery(fs.Args()),
		SessionID:       uuid.NewString(),
		Clarified:       *choice != "",
		ClarifierChoice: *choice,
	}

	var resp *models.AskResponse
	if *qf.serverURL != "" {
		var out models.AskResponse
		if err := postJSON(*qf.serverURL+"/api/ask", req, &out); err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		resp = &out
	} else {
		components, logger := qf.inProcess()
		defer components.Close()
		defer logger.Sync()

		start := time.Now()
		q := req.ToQuery()
		var d *models.RouteDecision
		if strings.TrimSpace(q.Text) == "" {
			d = &models.RouteDecision{
				Route:              models.RouteErrorFallback,
				ClarifyingQuestion: routing.EmptyQueryMessage(q.Lang),
				ErrorCode:          models.ErrEmptyQuery,
			}
		} else {
			d = components.Engine.Ask(context.Background(), q)
		}
		resp = models.NewAskResponse(d, time.Since(start).Milliseconds())
	}
	if err := cli.WriteAskResponse(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// chatter sends one conversational turn and streams fragments to onText.
type chatter func(req *models.ChatRequest, onText func(string)) (*models.ChatMeta, error)

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	qf := newQueryFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: tayyib chat [flags] [message]\n\n")
		fmt.Fprintf(fs.Output(), "Without a message, starts an interactive session. Type \"exit\" or press Ctrl-D to leave.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format := qf.format()
	lang := qf.language()

	var send chatter
	if *qf.serverURL != "" {
		base := *qf.serverURL
		send = func(req *models.ChatRequest, onText func(string)) (*models.ChatMeta, error) {
			return chatViaHTTP(base, req, onText)
		}
	} else {
		components, logger := qf.inProcess()
		defer components.Close()
		defer logger.Sync()
		send = func(req *models.ChatRequest, onText func(string)) (*models.ChatMeta, error) {
			var meta *models.ChatMeta
			for ev := range components.Pipeline.Run(context.Background(), req.ToQuery()) {
				switch ev.Type {
				case models.EventToken:
					onText(ev.Text)
				case models.EventMeta:
					meta = ev.Meta
				}
			}
			if meta == nil {
				return nil, errors.New("stream ended without metadata")
			}
			return meta, nil
		}
	}

	sess := &chatSession{
		req:    models.ChatRequest{Lang: lang, SessionID: uuid.NewString()},
		send:   send,
		format: format,
		out:    os.Stdout,
	}
	if msg := buildQuery(fs.Args()); msg != "" {
		if err := sess.turn(msg); err != nil {
			fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stdout, "\n> ")
		if !in.Scan() {
			return
		}
		msg := strings.TrimSpace(in.Text())
		if msg == "exit" || msg == "quit" {
			return
		}
		if msg == "" {
			continue
		}
		if err := sess.turn(msg); err != nil {
			fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		}
	}
}

// chatSession carries the running history of an interactive chat.
type chatSession struct {
	req    models.ChatRequest
	send   chatter
	format cli.OutputFormat
	out    io.Writer
}

func (s *chatSession) turn(msg string) error {
	s.req.Messages = append(s.req.Messages, models.ChatMessage{Role: models.RoleUser, Content: msg})
	var reply strings.Builder
	meta, err := s.send(&s.req, func(text string) {
		reply.WriteString(text)
		if s.format == cli.OutputText {
			fmt.Fprint(s.out, text)
		}
	})
	if err != nil {
		s.req.Messages = s.req.Messages[:len(s.req.Messages)-1]
		return err
	}
	s.req.Messages = append(s.req.Messages, models.ChatMessage{Role: models.RoleAssistant, Content: reply.String()})
	return cli.WriteChatMeta(s.out, reply.String(), meta, s.format)
}

func runRetrieve() {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	qf := newQueryFlags(fs)
	topK := fs.Int("top-k", 5, "number of sources")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: tayyib retrieve [flags] <query>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format := qf.format()
	req := &models.RetrieveRequest{Lang: qf.language(), Query: buildQuery(fs.Args()), TopK: *topK}
	if err := req.Validate(); err != nil {
		fs.Usage()
		os.Exit(1)
	}

	var resp models.RetrieveResponse
	if *qf.serverURL != "" {
		if err := postJSON(*qf.serverURL+"/api/rag_test", req, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Retrieve failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, logger := qf.inProcess()
		defer components.Close()
		defer logger.Sync()
		res := components.Retriever.Retrieve(context.Background(), req.Query, req.Lang, req.TopK)
		resp = models.RetrieveResponse{Results: res.Sources, Confidence: res.Confidence}
		if resp.Results == nil {
			resp.Results = []models.RetrievedSource{}
		}
	}
	if err := cli.WriteRetrieveResponse(os.Stdout, &resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "where to write the starter config")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if _, err := os.Stat(*path); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "%s already exists (use -force to overwrite)\n", *path)
		os.Exit(1)
	}
	cfg := config.Defaults()
	// API keys come from the environment, never the file.
	cfg.Completion.APIKey = ""
	cfg.VectorIndex.APIKey = ""
	if err := config.Save(*path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *path)
}

func runCheckOffline() {
	fs := flag.NewFlagSet("check-offline", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	sources := fs.String("sources", "./data/rag_corpus/sources.yml", "approved sources manifest")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}
	table, err := offline.LoadTable(cfg.Storage.OfflinePackPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}
	ids, err := offline.LoadSourceIDs(*sources)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}
	if problems := table.Check(ids); len(problems) > 0 {
		fmt.Println("Offline integrity check failed:")
		for _, p := range problems {
			fmt.Printf("- %s\n", p)
		}
		os.Exit(1)
	}
	fmt.Printf("Offline integrity check passed (%d entries)\n", table.Len())
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	input := fs.String("input", "", "passages JSONL file (default: storage.passages_path)")
	debugFlag := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, _ := setup(*configPath, *debugFlag)
	defer logger.Sync()
	if vector.IndexType(cfg.VectorIndex.Type) != vector.IndexTypeMemory {
		fmt.Fprintf(os.Stderr, "index builds the local memory index; vector_index.type is %s\n", cfg.VectorIndex.Type)
		os.Exit(1)
	}
	if *input == "" {
		*input = cfg.Storage.PassagesPath
	}

	embedder, err := embedding.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create embedder: %v\n", err)
		os.Exit(1)
	}
	defer embedder.Close()
	idx, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if err := idx.Load(cfg.Storage.VectorIndexPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load vector index: %v\n", err)
		os.Exit(1)
	}
	passages, err := vector.LoadPassages(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	n, err := idx.Ingest(ctx, embedder, passages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		os.Exit(1)
	}
	if err := idx.Save(cfg.Storage.VectorIndexPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save vector index: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d passages into %s (%d total)\n", n, cfg.Storage.VectorIndexPath, idx.Size())
}

var httpClient = utils.NewHTTPClient(5 * time.Second)

func postJSON(url string, body, out interface{}) error {
	resp, err := post(url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func post(url string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp, nil
}

func chatViaHTTP(serverURL string, req *models.ChatRequest, onText func(string)) (*models.ChatMeta, error) {
	resp, err := post(serverURL+"/api/chat", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var meta *models.ChatMeta
	err = readSSE(resp.Body, func(event, data string) error {
		switch event {
		case string(models.EventToken):
			onText(data)
		case string(models.EventMeta):
			meta = &models.ChatMeta{}
			if err := json.Unmarshal([]byte(data), meta); err != nil {
				return fmt.Errorf("decode meta: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, errors.New("stream ended without metadata")
	}
	return meta, nil
}

// readSSE parses an event stream, calling fn once per event with its data lines rejoined by newlines.
func readSSE(r io.Reader, fn func(event, data string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	var event string
	var data []string
	dispatch := func() error {
		if event == "" && data == nil {
			return nil
		}
		if event == "" {
			event = "message"
		}
		err := fn(event, strings.Join(data, "\n"))
		event, data = "", nil
		return err
	}
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if err := dispatch(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			v := strings.TrimPrefix(line, "data:")
			v = strings.TrimPrefix(v, " ")
			data = append(data, v)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return dispatch()
}

func printUsage() {
	fmt.Println(`Tayyib - multilingual Umrah kiosk assistant

Usage:
  tayyib <command> [flags]

Commands:
  server         Start the HTTP API (/api/ask, /api/chat, /api/feedback, ...)
  ask            Answer one question as a structured response
  chat           Stream conversational replies (interactive without a message)
  retrieve       Show raw retrieval hits for a query
  init           Write a starter config.yaml
  check-offline  Verify every offline pack entry cites approved sources
  index          Embed a passages JSONL file into the local vector index
  version        Print version
  help           Show this help

Examples:
  tayyib server -config ./config.yaml
  tayyib ask -lang FR comment faire le tawaf
  tayyib chat -server http://localhost:8000
  tayyib retrieve -top-k 3 ihram rules
  tayyib index -input ./data/rag_corpus/passages.jsonl

Environment variables (also read from .env):
  OPENAI_API_KEY, WEAVIATE_URL, WEAVIATE_API_KEY, EVENT_MODE, KIOSK_DEV_MODE`)
}
