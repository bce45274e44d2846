package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/tayyib/internal/cli"
	"github.com/hyperjump/tayyib/internal/models"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"how to do tawaf", "-lang", "FR"},
			expected: []string{"-lang", "FR", "how to do tawaf"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-lang", "FR", "how to do tawaf"},
			expected: []string{"-lang", "FR", "how to do tawaf"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"ihram"},
			expected: []string{"ihram"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"ihram", "rules", "-top-k", "3"},
			expected: []string{"-top-k", "3", "ihram", "rules"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"ihram"}, "ihram"},
		{"multiple words", []string{"what", "is", "sai"}, "what is sai"},
		{"quoted phrase", []string{"what is sai"}, "what is sai"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(tt.args); got != tt.expected {
				t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestReadSSE(t *testing.T) {
	body := "event: token\ndata: ## Direct\n\n" +
		"event: token\ndata:  Answer\ndata: \ndata: Ihram\n\n" +
		": keepalive\n\n" +
		"event: meta\ndata: {\"stream_id\":\"x\"}\n"

	type event struct{ name, data string }
	var got []event
	err := readSSE(strings.NewReader(body), func(name, data string) error {
		got = append(got, event{name, data})
		return nil
	})
	if err != nil {
		t.Fatalf("readSSE: %v", err)
	}
	want := []event{
		{"token", "## Direct"},
		{"token", " Answer\n\nIhram"},
		{"meta", `{"stream_id":"x"}`},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("readSSE events = %#v, want %#v", got, want)
	}
}

func TestReadSSE_callbackError(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	err := readSSE(strings.NewReader("event: token\ndata: a\n\nevent: token\ndata: b\n\n"), func(string, string) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Errorf("readSSE error = %v after %d events, want stop after 1", err, n)
	}
}

func TestChatSession_keepsHistory(t *testing.T) {
	var seen [][]models.ChatMessage
	send := func(req *models.ChatRequest, onText func(string)) (*models.ChatMeta, error) {
		seen = append(seen, append([]models.ChatMessage(nil), req.Messages...))
		onText("Wear ")
		onText("ihram.")
		return &models.ChatMeta{RouteUsed: "offline", StreamID: "s"}, nil
	}
	var out bytes.Buffer
	sess := &chatSession{
		req:    models.ChatRequest{Lang: models.LangEN, SessionID: "abc"},
		send:   send,
		format: cli.OutputText,
		out:    &out,
	}

	if err := sess.turn("What do I wear?"); err != nil {
		t.Fatal(err)
	}
	if err := sess.turn("And after?"); err != nil {
		t.Fatal(err)
	}

	if len(seen) != 2 || len(seen[1]) != 3 {
		t.Fatalf("second turn should carry user, assistant, user; got %+v", seen)
	}
	if seen[1][1].Role != models.RoleAssistant || seen[1][1].Content != "Wear ihram." {
		t.Errorf("assistant reply not kept: %+v", seen[1][1])
	}
	if !strings.Contains(out.String(), "Wear ihram.") || !strings.Contains(out.String(), "[offline]") {
		t.Errorf("output: %q", out.String())
	}
}

func TestChatSession_failedTurnDropsMessage(t *testing.T) {
	sess := &chatSession{
		req: models.ChatRequest{Lang: models.LangEN},
		send: func(*models.ChatRequest, func(string)) (*models.ChatMeta, error) {
			return nil, errors.New("connection refused")
		},
		format: cli.OutputJSON,
		out:    &bytes.Buffer{},
	}
	if err := sess.turn("hello"); err == nil {
		t.Fatal("expected error")
	}
	if len(sess.req.Messages) != 0 {
		t.Errorf("failed turn should not stay in history: %+v", sess.req.Messages)
	}
}

func TestLoadConfig_explicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "dev_mode: true\nstorage:\n  database_path: ./analytics.sqlite\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if !cfg.DevMode {
		t.Error("dev_mode not loaded")
	}
	if want := filepath.Join(dir, "analytics.sqlite"); cfg.Storage.DatabasePath != want {
		t.Errorf("database path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}
}
