package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/tayyib/internal/models"
	"github.com/hyperjump/tayyib/pkg/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Options configures the OpenAI client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	StreamDeadline time.Duration
	RetryBackoff   time.Duration
	// MaxRetries is clamped to [0,1].
	MaxRetries int
	// ErrorLog, when set, receives every unrecovered failure.
	ErrorLog *ErrorLog
}

func (o *Options) applyDefaults() {
	if o.Model == "" {
		o.Model = "gpt-4o"
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 12 * time.Second
	}
	if o.StreamDeadline <= 0 {
		o.StreamDeadline = 15 * time.Second
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 600 * time.Millisecond
	}
	o.MaxRetries = min(max(o.MaxRetries, 0), 1)
}

// OpenAIClient implements Client on the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	opts   Options
	logger *zap.Logger
}

// NewOpenAIClient creates a client. Without an API key every call fails with missing_credential.
func NewOpenAIClient(opts Options, logger *zap.Logger) *OpenAIClient {
	opts.applyDefaults()
	c := &OpenAIClient{opts: opts, logger: utils.OrNop(logger)}
	if opts.APIKey != "" {
		cfg := openai.DefaultConfig(opts.APIKey)
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
		cfg.HTTPClient = utils.NewHTTPClient(opts.ConnectTimeout)
		c.client = openai.NewClientWithConfig(cfg)
	}
	return c
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.opts.Model
}

// HasCredential reports whether an API key was configured.
func (c *OpenAIClient) HasCredential() bool {
	return c.client != nil
}

// Complete sends prompt and decodes the JSON reply into out.
func (c *OpenAIClient) Complete(ctx context.Context, prompt Prompt, schema *Schema, out any) error {
	if c.client == nil {
		return c.fail(&Error{Code: models.ErrMissingCredential, Err: ErrNoAPIKey})
	}
	req := c.request(prompt)
	if schema != nil {
		def := schema.Definition
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schema.Name,
				Schema: &def,
				Strict: true,
			},
		}
	}

	var content string
	err := c.withRetry(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.ReadTimeout)
		defer cancel()
		resp, err := c.client.CreateChatCompletion(attemptCtx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return &Error{Code: models.ErrMalformedOutput, Err: errors.New("no choices returned")}
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return c.fail(err)
	}
	if err := json.Unmarshal([]byte(stripFences(content)), out); err != nil {
		return c.fail(&Error{Code: models.ErrMalformedOutput, Err: fmt.Errorf("decode reply: %w", err)})
	}
	return nil
}

// Stream opens a streamed completion bounded by the stream deadline. Only opening the stream is
// retried; once fragments flow a failure ends the stream.
func (c *OpenAIClient) Stream(ctx context.Context, prompt Prompt) (Stream, error) {
	if c.client == nil {
		return nil, c.fail(&Error{Code: models.ErrMissingCredential, Err: ErrNoAPIKey})
	}
	req := c.request(prompt)
	req.Stream = true

	streamCtx, cancel := context.WithTimeout(ctx, c.opts.StreamDeadline)
	var stream *openai.ChatCompletionStream
	err := c.withRetry(streamCtx, func(ctx context.Context) error {
		s, err := c.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		cancel()
		return nil, c.fail(err)
	}
	return &openAIStream{stream: stream, cancel: cancel, onFail: c.fail}, nil
}

func (c *OpenAIClient) request(p Prompt) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(p.Messages)+1)
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	for _, m := range p.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	req := openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Messages:    msgs,
		Temperature: p.Temperature,
	}
	if p.MaxTokens > 0 {
		req.MaxCompletionTokens = p.MaxTokens
	}
	return req
}

// withRetry runs fn, retrying transient failures after a constant backoff.
func (c *OpenAIClient) withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(c.opts.MaxRetries), retry.NewConstant(c.opts.RetryBackoff))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		classified := classify(err)
		if classified.Transient() && ctx.Err() == nil {
			c.logger.Debug("completion attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.String("error_code", string(classified.Code)),
				zap.Int("status", classified.Status),
			)
			return retry.RetryableError(classified)
		}
		return classified
	})
}

func (c *OpenAIClient) fail(err error) error {
	classified := classify(err)
	c.opts.ErrorLog.Record(classified)
	c.logger.Warn("completion failed",
		zap.String("error_code", string(classified.Code)),
		zap.Int("status", classified.Status),
		zap.Error(classified.Err),
	)
	return classified
}

// stripFences removes a surrounding markdown code fence some models add around JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type openAIStream struct {
	stream  *openai.ChatCompletionStream
	cancel  context.CancelFunc
	onFail  func(error) error
	current string
	full    strings.Builder
	err     error
	done    bool
}

func (s *openAIStream) Next() bool {
	for !s.done {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			return false
		}
		if err != nil {
			s.err = s.onFail(err)
			s.done = true
			return false
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		s.current = resp.Choices[0].Delta.Content
		s.full.WriteString(s.current)
		return true
	}
	return false
}

func (s *openAIStream) Text() string { return s.current }

func (s *openAIStream) Full() string { return s.full.String() }

func (s *openAIStream) Err() error { return s.err }

func (s *openAIStream) Close() error {
	s.done = true
	s.cancel()
	return s.stream.Close()
}
