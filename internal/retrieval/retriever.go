// Package retrieval turns a query into scored source passages via the embedder and vector index.
package retrieval

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hyperjump/tayyib/internal/embedding"
	"github.com/hyperjump/tayyib/internal/models"
	"github.com/hyperjump/tayyib/internal/observability"
	"github.com/hyperjump/tayyib/internal/vector"
	"github.com/hyperjump/tayyib/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Result is the outcome of one retrieval.
type Result struct {
	Sources    []models.RetrievedSource
	Confidence float64
}

// Options tunes caching and snippet size.
type Options struct {
	CacheTTL     time.Duration
	CacheSize    int
	SnippetChars int
	// Timeout bounds one shared embed and search round trip.
	Timeout time.Duration
}

// Retriever embeds queries, searches the index and caches results briefly. It never fails:
// every provider error degrades to no sources and zero confidence.
type Retriever struct {
	embedder embedding.Embedder
	index    vector.Index
	cache    *expirable.LRU[string, Result]
	group    singleflight.Group
	snippet  int
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewRetriever creates a retriever over embedder and index.
func NewRetriever(embedder embedding.Embedder, index vector.Index, opts Options, metrics *observability.Metrics, logger *zap.Logger) *Retriever {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 60 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.SnippetChars <= 0 {
		opts.SnippetChars = 300
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		cache:    expirable.NewLRU[string, Result](opts.CacheSize, nil, opts.CacheTTL),
		snippet:  opts.SnippetChars,
		timeout:  opts.Timeout,
		metrics:  metrics,
		logger:   utils.OrNop(logger),
	}
}

// Retrieve returns up to topK sources for query in lang, nearest first, and the confidence of the
// best match. Identical lookups within the cache TTL are served from cache; concurrent identical
// lookups share one provider round trip.
func (r *Retriever) Retrieve(ctx context.Context, query string, lang models.Lang, topK int) Result {
	if strings.TrimSpace(query) == "" || topK <= 0 || r.embedder == nil || r.index == nil || ctx.Err() != nil {
		return Result{}
	}
	key := cacheKey(lang, query, topK)
	if cached, ok := r.cache.Get(key); ok {
		r.metrics.RecordCache(true)
		return cached.clone()
	}
	r.metrics.RecordCache(false)

	// The lookup is shared by every caller waiting on key, so it must not inherit one caller's
	// cancellation. Each caller gives up through its own ctx below.
	ch := r.group.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		res, err := r.search(sctx, query, lang, topK)
		if err != nil {
			return Result{}, err
		}
		r.cache.Add(key, res)
		return res, nil
	})
	select {
	case <-ctx.Done():
		return Result{}
	case out := <-ch:
		if out.Err != nil {
			return Result{}
		}
		return out.Val.(Result).clone()
	}
}

func (r *Retriever) search(ctx context.Context, query string, lang models.Lang, topK int) (Result, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.metrics.RecordRetrievalFailure("embed")
		r.logger.Warn("query embedding failed", zap.String("lang", string(lang)), zap.Error(err))
		return Result{}, err
	}
	hits, err := r.index.Search(ctx, vec, topK, string(lang))
	if err != nil {
		r.metrics.RecordRetrievalFailure("index")
		r.logger.Warn("vector search failed", zap.String("lang", string(lang)), zap.Error(err))
		return Result{}, err
	}

	res := Result{Sources: make([]models.RetrievedSource, 0, len(hits))}
	best := -1.0
	for _, h := range hits {
		if h == nil || (h.Lang != "" && !strings.EqualFold(h.Lang, string(lang))) {
			continue
		}
		res.Sources = append(res.Sources, models.RetrievedSource{
			SourceID:  h.SourceID,
			Title:     h.Title,
			URL:       h.URL,
			Snippet:   utils.Truncate(h.Text, r.snippet),
			Relevance: RelevanceFor(h.Distance),
			Score:     ScoreFor(h.Distance),
			Page:      h.Page,
			PageLabel: h.PageLabel,
			PageStart: h.PageStart,
			PageEnd:   h.PageEnd,
		})
		if best < 0 || h.Distance < best {
			best = h.Distance
		}
	}
	if len(res.Sources) > 0 {
		res.Confidence = ScoreFor(best)
	}
	r.logger.Debug("retrieval complete",
		zap.String("lang", string(lang)),
		zap.Int("sources", len(res.Sources)),
		zap.Float64("confidence", res.Confidence),
	)
	return res, nil
}

// RelevanceFor maps a distance to its coarse tier.
func RelevanceFor(distance float64) models.Relevance {
	switch {
	case distance <= 0.2:
		return models.RelevanceHigh
	case distance <= 0.4:
		return models.RelevanceMed
	default:
		return models.RelevanceLow
	}
}

// ScoreFor maps a distance to a score in [0,1] that decreases as distance grows.
func ScoreFor(distance float64) float64 {
	return models.Clamp01(1 - distance*distance/2)
}

func cacheKey(lang models.Lang, query string, topK int) string {
	return string(lang) + ":" + strconv.Itoa(topK) + ":" + query
}

func (r Result) clone() Result {
	out := Result{Confidence: r.Confidence, Sources: make([]models.RetrievedSource, len(r.Sources))}
	copy(out.Sources, r.Sources)
	return out
}
