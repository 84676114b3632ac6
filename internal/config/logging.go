package config

import (
	"context"
	"log/slog"
)

// Log logs the resolved settings in a granular way, skipping irrelevant
// ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == TransportSSE {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	logger.InfoContext(ctx, "Config: store.data_dir", "value", s.Store.DataDir)
	logger.InfoContext(ctx, "Config: search", "value", SearchSettingsLogValue(s.Search))
	logger.InfoContext(ctx, "Config: llm", "value", LLMSettingsLogValue(s.LLM))
	logger.InfoContext(ctx, "Config: batch", "value", BatchSettingsLogValue(s.Batch))
}

// SearchSettingsLogValue returns a slog.Value for SearchSettings
func SearchSettingsLogValue(s SearchSettings) slog.Value {
	return slog.GroupValue(
		slog.Bool("fuzzy_enabled", s.Fuzzy.Enabled),
		slog.Int("max_edits_short", s.Fuzzy.MaxEditsShort),
		slog.Int("max_edits_long", s.Fuzzy.MaxEditsLong),
		slog.Int("prefix_length", s.Fuzzy.PrefixLength),
		slog.Int("max_expansions", s.Fuzzy.MaxExpansions),
		slog.Int("max_results", s.MaxResults),
		slog.Duration("cache_ttl", s.CacheTTL),
	)
}

// LLMSettingsLogValue returns a slog.Value for LLMSettings with the API
// key masked
func LLMSettingsLogValue(s LLMSettings) slog.Value {
	key := ""
	if s.APIKey != "" {
		key = "****"
	}
	return slog.GroupValue(
		slog.String("api_key", key),
		slog.String("model", s.Model),
		slog.Duration("timeout", s.Timeout),
	)
}

// BatchSettingsLogValue returns a slog.Value for BatchSettings
func BatchSettingsLogValue(s BatchSettings) slog.Value {
	return slog.GroupValue(
		slog.Int("page_size", s.PageSize),
		slog.Float64("rate", s.Rate),
		slog.Bool("auto_apply", s.AutoApply),
		slog.Float64("auto_apply_threshold", s.AutoApplyThreshold),
		slog.Float64("similarity_threshold", s.SimilarityThreshold),
	)
}
