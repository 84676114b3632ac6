package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Transport constants
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// AuthSettings configuration for the SSE transport. An empty key list
// disables authentication.
type AuthSettings struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// StoreSettings configuration for the document store and search index.
type StoreSettings struct {
	DataDir string `mapstructure:"data_dir"`
}

// FuzzySettings tunes approximate matching. MaxEditsShort applies to
// queries of at most ShortQueryLen characters; longer queries use
// MaxEditsLong. PrefixLength requires that many leading characters to
// match exactly, which sharply cuts false positives ("must" -> "music").
// MaxExpansions caps how many hits a fuzzy lookup may fan out to.
type FuzzySettings struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxEditsShort int  `mapstructure:"max_edits_short"`
	MaxEditsLong  int  `mapstructure:"max_edits_long"`
	ShortQueryLen int  `mapstructure:"short_query_len"`
	PrefixLength  int  `mapstructure:"prefix_length"`
	MaxExpansions int  `mapstructure:"max_expansions"`
}

// WeightSettings are per-field score boosts: name and aliases dominate,
// full text contributes least.
type WeightSettings struct {
	Name        float64 `mapstructure:"name"`
	Aliases     float64 `mapstructure:"aliases"`
	Tags        float64 `mapstructure:"tags"`
	Description float64 `mapstructure:"description"`
	Text        float64 `mapstructure:"text"`
}

// BehaviorSettings shape result-set behavior independent of matching.
type BehaviorSettings struct {
	MinShouldMatch float64 `mapstructure:"min_should_match"`
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	MinQueryLength int     `mapstructure:"min_query_length"`
}

// SearchSettings is the process-wide search configuration. It is loaded
// once and read-only at request time; changing it only affects
// subsequent calls.
type SearchSettings struct {
	Fuzzy      FuzzySettings    `mapstructure:"fuzzy"`
	Weights    WeightSettings   `mapstructure:"weights"`
	Behavior   BehaviorSettings `mapstructure:"behavior"`
	MaxResults int              `mapstructure:"max_results"`
	CacheTTL   time.Duration    `mapstructure:"cache_ttl"`
}

// LLMSettings configuration for the external text-understanding
// capability.
type LLMSettings struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BatchSettings configuration for the offline pipelines.
type BatchSettings struct {
	PageSize            int           `mapstructure:"page_size"`
	Rate                float64       `mapstructure:"rate"`
	Burst               int           `mapstructure:"burst"`
	AutoApply           bool          `mapstructure:"auto_apply"`
	AutoApplyThreshold  float64       `mapstructure:"auto_apply_threshold"`
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"`
	PageDelay           time.Duration `mapstructure:"page_delay"`
}

// Settings application settings
type Settings struct {
	Transport string         `mapstructure:"transport"`
	Host      string         `mapstructure:"host"`
	Port      int            `mapstructure:"port"`
	Auth      AuthSettings   `mapstructure:"auth"`
	Store     StoreSettings  `mapstructure:"store"`
	Search    SearchSettings `mapstructure:"search"`
	LLM       LLMSettings    `mapstructure:"llm"`
	Batch     BatchSettings  `mapstructure:"batch"`
}

// LoadSettings loads settings from environment variables and an optional
// .env file.
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", TransportStdio)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)

	v.SetDefault("store.data_dir", defaultDataDir())

	// Fuzzy defaults are tuned empirically against the lexicon corpus;
	// keep them unless retuning is an explicit goal.
	v.SetDefault("search.fuzzy.enabled", true)
	v.SetDefault("search.fuzzy.max_edits_short", 1)
	v.SetDefault("search.fuzzy.max_edits_long", 2)
	v.SetDefault("search.fuzzy.short_query_len", 5)
	v.SetDefault("search.fuzzy.prefix_length", 2)
	v.SetDefault("search.fuzzy.max_expansions", 50)

	v.SetDefault("search.weights.name", 10.0)
	v.SetDefault("search.weights.aliases", 10.0)
	v.SetDefault("search.weights.tags", 6.0)
	v.SetDefault("search.weights.description", 4.0)
	v.SetDefault("search.weights.text", 1.0)

	v.SetDefault("search.behavior.min_should_match", 1.0)
	v.SetDefault("search.behavior.score_threshold", 0.0)
	v.SetDefault("search.behavior.min_query_length", 3)

	v.SetDefault("search.max_results", 20)
	v.SetDefault("search.cache_ttl", 5*time.Minute)

	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("batch.page_size", 25)
	v.SetDefault("batch.rate", 1.0)
	v.SetDefault("batch.burst", 1)
	v.SetDefault("batch.auto_apply", false)
	v.SetDefault("batch.auto_apply_threshold", 0.95)
	v.SetDefault("batch.similarity_threshold", 0.8)
	v.SetDefault("batch.page_delay", 2*time.Second)

	// Environment variables
	v.SetEnvPrefix("EXICON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("auth.api_keys", "EXICON_AUTH_API_KEYS")
	_ = v.BindEnv("store.data_dir", "EXICON_STORE_DATA_DIR")
	_ = v.BindEnv("search.fuzzy.enabled", "EXICON_SEARCH_FUZZY_ENABLED")
	_ = v.BindEnv("search.fuzzy.max_edits_short", "EXICON_SEARCH_FUZZY_MAX_EDITS_SHORT")
	_ = v.BindEnv("search.fuzzy.max_edits_long", "EXICON_SEARCH_FUZZY_MAX_EDITS_LONG")
	_ = v.BindEnv("search.fuzzy.short_query_len", "EXICON_SEARCH_FUZZY_SHORT_QUERY_LEN")
	_ = v.BindEnv("search.fuzzy.prefix_length", "EXICON_SEARCH_FUZZY_PREFIX_LENGTH")
	_ = v.BindEnv("search.fuzzy.max_expansions", "EXICON_SEARCH_FUZZY_MAX_EXPANSIONS")
	_ = v.BindEnv("search.behavior.score_threshold", "EXICON_SEARCH_BEHAVIOR_SCORE_THRESHOLD")
	_ = v.BindEnv("search.behavior.min_query_length", "EXICON_SEARCH_BEHAVIOR_MIN_QUERY_LENGTH")
	_ = v.BindEnv("search.max_results", "EXICON_SEARCH_MAX_RESULTS")
	_ = v.BindEnv("search.cache_ttl", "EXICON_SEARCH_CACHE_TTL")
	_ = v.BindEnv("llm.api_key", "EXICON_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.model", "EXICON_LLM_MODEL")
	_ = v.BindEnv("llm.timeout", "EXICON_LLM_TIMEOUT")
	_ = v.BindEnv("batch.page_size", "EXICON_BATCH_PAGE_SIZE")
	_ = v.BindEnv("batch.rate", "EXICON_BATCH_RATE")
	_ = v.BindEnv("batch.burst", "EXICON_BATCH_BURST")
	_ = v.BindEnv("batch.auto_apply", "EXICON_BATCH_AUTO_APPLY")
	_ = v.BindEnv("batch.auto_apply_threshold", "EXICON_BATCH_AUTO_APPLY_THRESHOLD")
	_ = v.BindEnv("batch.similarity_threshold", "EXICON_BATCH_SIMILARITY_THRESHOLD")
	_ = v.BindEnv("batch.page_delay", "EXICON_BATCH_PAGE_DELAY")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("transport", flags.Lookup("transport"))
		_ = v.BindPFlag("host", flags.Lookup("host"))
		_ = v.BindPFlag("port", flags.Lookup("port"))
		_ = v.BindPFlag("auth.api_keys", flags.Lookup("auth-api-keys"))
		_ = v.BindPFlag("store.data_dir", flags.Lookup("data-dir"))
		_ = v.BindPFlag("search.max_results", flags.Lookup("max-results"))
		_ = v.BindPFlag("llm.model", flags.Lookup("llm-model"))
		_ = v.BindPFlag("batch.page_size", flags.Lookup("page-size"))
		_ = v.BindPFlag("batch.auto_apply", flags.Lookup("auto-apply"))
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as
	// a comma-separated string
	apiKeysEnv := os.Getenv("EXICON_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	settings.Store.DataDir = expandHomeDir(settings.Store.DataDir)

	return &settings, nil
}

// defaultDataDir returns the default base directory for the store and
// indexes.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".exicon"
	}
	return filepath.Join(home, ".exicon")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for invalid or inconsistent configurations.
// Configuration errors are fatal at startup; they must never surface
// mid-run.
func ValidateSettings(s *Settings) error {
	switch s.Transport {
	case TransportStdio, TransportSSE:
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	if s.Store.DataDir == "" {
		return errors.New("store data-dir cannot be empty")
	}

	if err := validateSearchSettings(&s.Search); err != nil {
		return err
	}

	if s.Batch.PageSize <= 0 {
		return errors.New("batch page-size must be positive")
	}
	if s.Batch.Rate <= 0 {
		return errors.New("batch rate must be positive")
	}
	if s.Batch.Burst <= 0 {
		return errors.New("batch burst must be positive")
	}
	if s.Batch.AutoApplyThreshold < 0 || s.Batch.AutoApplyThreshold > 1 {
		return errors.New("batch auto-apply-threshold must be in [0,1]")
	}
	if s.Batch.SimilarityThreshold < 0 || s.Batch.SimilarityThreshold > 1 {
		return errors.New("batch similarity-threshold must be in [0,1]")
	}

	return nil
}

func validateSearchSettings(s *SearchSettings) error {
	if s.Fuzzy.MaxEditsShort < 0 || s.Fuzzy.MaxEditsLong < 0 {
		return errors.New("search fuzzy max-edits values cannot be negative")
	}
	if s.Fuzzy.ShortQueryLen <= 0 {
		return errors.New("search fuzzy short-query-len must be positive")
	}
	if s.Fuzzy.PrefixLength < 0 {
		return errors.New("search fuzzy prefix-length cannot be negative")
	}
	if s.Fuzzy.MaxExpansions <= 0 {
		return errors.New("search fuzzy max-expansions must be positive")
	}
	if s.Behavior.MinShouldMatch < 0 {
		return errors.New("search min-should-match cannot be negative")
	}
	if s.Behavior.MinQueryLength < 0 {
		return errors.New("search min-query-length cannot be negative")
	}
	if s.MaxResults <= 0 {
		return errors.New("search max-results must be positive")
	}
	if s.CacheTTL < 0 {
		return errors.New("search cache-ttl cannot be negative")
	}
	for name, w := range map[string]float64{
		"name":        s.Weights.Name,
		"aliases":     s.Weights.Aliases,
		"tags":        s.Weights.Tags,
		"description": s.Weights.Description,
		"text":        s.Weights.Text,
	} {
		if w <= 0 {
			return errors.New("search weight for field '" + name + "' must be positive")
		}
	}
	return nil
}

// ValidateLLMSettings checks the settings the batch pipelines need on
// top of ValidateSettings. Called by commands that talk to the language
// model so the server can run without credentials.
func ValidateLLMSettings(s *Settings) error {
	if s.LLM.APIKey == "" {
		return errors.New("llm api-key is required (EXICON_LLM_API_KEY or OPENAI_API_KEY)")
	}
	if s.LLM.Model == "" {
		return errors.New("llm model cannot be empty")
	}
	if s.LLM.Timeout <= 0 {
		return errors.New("llm timeout must be positive")
	}
	return nil
}
