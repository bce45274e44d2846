package embedding

import (
	"errors"
	"fmt"

	"github.com/hyperjump/tayyib/internal/config"
	"github.com/hyperjump/tayyib/pkg/utils"
	"go.uber.org/zap"
)

// New builds the embedder selected by cfg.Embedding.Provider, wrapped in an LRU cache.
func New(cfg *config.Config, logger *zap.Logger) (Embedder, error) {
	logger = utils.OrNop(logger)
	ec := cfg.Embedding

	var inner Embedder
	switch ec.Provider {
	case "openai":
		e, err := NewOpenAIEmbedder(OpenAIOptions{
			APIKey:         cfg.Completion.APIKey,
			BaseURL:        cfg.Completion.BaseURL,
			Model:          ec.Model,
			Dimensions:     ec.Dimensions,
			ConnectTimeout: cfg.Completion.ConnectTimeout,
		})
		switch {
		case errors.Is(err, ErrMissingAPIKey):
			// Keep serving: retrieval degrades to no sources and the offline pack still answers.
			logger.Warn("no embedding API key configured; retrieval disabled")
			m := NewMockEmbedder(ec.Dimensions)
			m.Err = ErrMissingAPIKey
			inner = m
		case err != nil:
			return nil, err
		default:
			inner = e
		}
	case "onnx":
		e, err := NewONNXEmbedder(ec.ModelPath, ec.Dimensions, ec.MaxTokens)
		if err != nil {
			return nil, err
		}
		inner = e
	case "mock":
		inner = NewMockEmbedder(ec.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
	}

	logger.Info("embedder ready",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.Int("dimensions", inner.Dimensions()),
	)
	return NewCached(inner, ec.CacheSize)
}
