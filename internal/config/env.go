package config

import (
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with values from the environment. Secrets are normally supplied this way
// rather than in the YAML file.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "1", "true", "yes":
				*dst = true
			case "0", "false", "no":
				*dst = false
			}
		}
	}

	str("OPENAI_API_KEY", &cfg.Completion.APIKey)
	str("OPENAI_MODEL", &cfg.Completion.Model)
	str("OPENAI_BASE_URL", &cfg.Completion.BaseURL)
	str("OPENAI_EMBED_MODEL", &cfg.Embedding.Model)
	str("QUERY_HASH_SALT", &cfg.Privacy.QueryHashSalt)
	str("SQLITE_PATH", &cfg.Storage.DatabasePath)
	str("OFFLINE_PACK_PATH", &cfg.Storage.OfflinePackPath)
	str("WEAVIATE_URL", &cfg.VectorIndex.URL)
	str("WEAVIATE_API_KEY", &cfg.VectorIndex.APIKey)
	flag("EVENT_MODE", &cfg.EventMode)
	flag("KIOSK_DEV_MODE", &cfg.DevMode)

	if v, ok := lookup("MAX_MESSAGES_PER_SESSION"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Routing.MaxMessagesPerSession = n
		}
	}
}
