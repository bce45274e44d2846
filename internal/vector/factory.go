package vector

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hyperjump/tayyib/internal/config"
	"github.com/hyperjump/tayyib/pkg/utils"
	"go.uber.org/zap"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory loads a local index file into memory.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeWeaviate queries a remote Weaviate class.
	IndexTypeWeaviate IndexType = "weaviate"
)

// New creates the index selected by cfg.VectorIndex.Type. A memory index is loaded from
// cfg.Storage.VectorIndexPath when that file exists. When it is still empty, passages from
// cfg.Storage.PassagesPath are embedded with emb and the result is saved for the next start.
func New(ctx context.Context, cfg *config.Config, emb TextEmbedder, dimensions int, logger *zap.Logger) (Index, error) {
	logger = utils.OrNop(logger)
	switch IndexType(cfg.VectorIndex.Type) {
	case IndexTypeMemory, "":
		idx, err := NewMemoryIndex(dimensions)
		if err != nil {
			return nil, err
		}
		if err := idx.Load(cfg.Storage.VectorIndexPath); err != nil {
			return nil, fmt.Errorf("load vector index: %w", err)
		}
		if idx.Size() == 0 {
			seedMemoryIndex(ctx, idx, emb, cfg.Storage, logger)
		}
		logger.Info("memory vector index loaded",
			zap.String("path", cfg.Storage.VectorIndexPath),
			zap.Int("size", idx.Size()),
		)
		return idx, nil
	case IndexTypeWeaviate:
		return NewWeaviateIndex(cfg.VectorIndex.URL, cfg.VectorIndex.APIKey, cfg.VectorIndex.ClassName)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, weaviate)", cfg.VectorIndex.Type)
	}
}

// seedMemoryIndex fills an empty index from the passages file. Failures leave the index empty so
// retrieval degrades instead of blocking startup.
func seedMemoryIndex(ctx context.Context, idx *MemoryIndex, emb TextEmbedder, st config.StorageConfig, logger *zap.Logger) {
	if st.PassagesPath == "" {
		return
	}
	if _, err := os.Stat(st.PassagesPath); errors.Is(err, os.ErrNotExist) {
		logger.Debug("no passages file, memory index stays empty", zap.String("path", st.PassagesPath))
		return
	}
	passages, err := LoadPassages(st.PassagesPath)
	if err != nil {
		logger.Warn("failed to read passages", zap.Error(err))
		return
	}
	n, err := idx.Ingest(ctx, emb, passages)
	if err != nil {
		logger.Warn("failed to ingest passages, memory index stays empty", zap.Error(err))
		return
	}
	if err := idx.Save(st.VectorIndexPath); err != nil {
		logger.Warn("failed to save vector index", zap.String("path", st.VectorIndexPath), zap.Error(err))
	}
	logger.Info("memory vector index seeded from passages",
		zap.String("path", st.PassagesPath),
		zap.Int("passages", n),
	)
}
