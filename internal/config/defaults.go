package config

import "time"

// DefaultHashSalt is used when no salt is configured. Not for production kiosks.
const DefaultHashSalt = "dev-salt-not-for-production"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/analytics.sqlite"
	}
	if cfg.Storage.OfflinePackPath == "" {
		cfg.Storage.OfflinePackPath = "./data/offline_pack/offline_pack.json"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "./data/index/sources.idx"
	}
	if cfg.Storage.PassagesPath == "" {
		cfg.Storage.PassagesPath = "./data/rag_corpus/passages.jsonl"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-large"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 3072
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.VectorIndex.Type == "" {
		cfg.VectorIndex.Type = "memory"
	}
	if cfg.VectorIndex.ClassName == "" {
		cfg.VectorIndex.ClassName = "UmrahSource"
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "gpt-4o"
	}
	if cfg.Completion.ConnectTimeout == 0 {
		cfg.Completion.ConnectTimeout = 5 * time.Second
	}
	if cfg.Completion.ReadTimeout == 0 {
		cfg.Completion.ReadTimeout = 12 * time.Second
	}
	if cfg.Completion.StreamDeadline == 0 {
		cfg.Completion.StreamDeadline = 15 * time.Second
	}
	if cfg.Completion.RetryBackoff == 0 {
		cfg.Completion.RetryBackoff = 600 * time.Millisecond
	}
	retries := cfg.Completion.Retries()
	cfg.Completion.MaxRetries = &retries
	if cfg.Retrieval.CacheTTL == 0 {
		cfg.Retrieval.CacheTTL = 60 * time.Second
	}
	if cfg.Retrieval.CacheSize == 0 {
		cfg.Retrieval.CacheSize = 1024
	}
	if cfg.Retrieval.SnippetChars == 0 {
		cfg.Retrieval.SnippetChars = 300
	}
	applyRoutingDefaults(&cfg.Routing)
	if cfg.Privacy.QueryHashSalt == "" {
		cfg.Privacy.QueryHashSalt = DefaultHashSalt
	}
}

func applyRoutingDefaults(r *RoutingConfig) {
	if r.OfflineThreshold == 0 {
		r.OfflineThreshold = 0.25
	}
	if r.GroundingThreshold == 0 {
		r.GroundingThreshold = 0.35
	}
	if r.MinSources == 0 {
		r.MinSources = 1
	}
	if r.MinSourceScore == 0 {
		r.MinSourceScore = 0.2
	}
	if r.OfflineTopK == 0 {
		r.OfflineTopK = 3
	}
	if r.RetrievalTopK == 0 {
		r.RetrievalTopK = 5
	}
	if r.MaxHistoryMessages == 0 {
		r.MaxHistoryMessages = 10
	}
	if r.MaxMessagesPerSession == 0 {
		r.MaxMessagesPerSession = 15
	}
	if r.FragmentSize == 0 {
		r.FragmentSize = 8
	}
	if r.SuggestionLimit == 0 {
		r.SuggestionLimit = 3
	}
	if r.TagBonus == 0 {
		r.TagBonus = 0.15
	}
}

// Defaults returns a config with every default applied.
func Defaults() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
