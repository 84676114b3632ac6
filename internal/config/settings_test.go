package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadSettings_Defaults(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Transport != TransportStdio {
		t.Errorf("Expected default transport 'stdio', got '%s'", settings.Transport)
	}
	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
	if !settings.Search.Fuzzy.Enabled {
		t.Error("Expected fuzzy matching enabled by default")
	}
	if settings.Search.Fuzzy.MaxEditsShort != 1 {
		t.Errorf("Expected max_edits_short 1, got %d", settings.Search.Fuzzy.MaxEditsShort)
	}
	if settings.Search.Fuzzy.MaxEditsLong != 2 {
		t.Errorf("Expected max_edits_long 2, got %d", settings.Search.Fuzzy.MaxEditsLong)
	}
	if settings.Search.Fuzzy.ShortQueryLen != 5 {
		t.Errorf("Expected short_query_len 5, got %d", settings.Search.Fuzzy.ShortQueryLen)
	}
	if settings.Search.Weights.Name <= settings.Search.Weights.Description {
		t.Error("Expected name weight above description weight")
	}
	if settings.Batch.SimilarityThreshold != 0.8 {
		t.Errorf("Expected similarity threshold 0.8, got %v", settings.Batch.SimilarityThreshold)
	}
	if settings.Batch.AutoApply {
		t.Error("Expected auto-apply disabled by default")
	}
	if settings.Search.CacheTTL != 5*time.Minute {
		t.Errorf("Expected cache TTL 5m, got %v", settings.Search.CacheTTL)
	}
}

func TestLoadSettings_EnvVars(t *testing.T) {
	t.Setenv("EXICON_PORT", "9090")
	t.Setenv("EXICON_SEARCH_FUZZY_MAX_EDITS_LONG", "3")
	t.Setenv("EXICON_BATCH_AUTO_APPLY", "true")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Port)
	}
	if settings.Search.Fuzzy.MaxEditsLong != 3 {
		t.Errorf("Expected max_edits_long 3, got %d", settings.Search.Fuzzy.MaxEditsLong)
	}
	if !settings.Batch.AutoApply {
		t.Error("Expected auto-apply enabled via env")
	}
}

func TestLoadSettings_APIKeys_EnvVar(t *testing.T) {
	t.Setenv("EXICON_AUTH_API_KEYS", "key1, key2,key3")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if len(settings.Auth.APIKeys) != 3 {
		t.Fatalf("Expected 3 API keys, got %d", len(settings.Auth.APIKeys))
	}
	if settings.Auth.APIKeys[1] != "key2" {
		t.Errorf("Expected trimmed key2, got '%s'", settings.Auth.APIKeys[1])
	}
}

func TestLoadSettings_LLMKeyFallsBackToOpenAIEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.LLM.APIKey != "sk-test" {
		t.Errorf("Expected LLM api key from OPENAI_API_KEY, got '%s'", settings.LLM.APIKey)
	}
}

func TestLoadSettingsWithFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("transport", "", "")
	flags.Int("page-size", 0, "")
	if err := flags.Parse([]string{"--transport=sse", "--page-size=7"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Transport != TransportSSE {
		t.Errorf("Expected transport 'sse', got '%s'", settings.Transport)
	}
	if settings.Batch.PageSize != 7 {
		t.Errorf("Expected page size 7, got %d", settings.Batch.PageSize)
	}
}

func TestValidateSettings_Valid(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if err := ValidateSettings(settings); err != nil {
		t.Errorf("Default settings should validate: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	base := func() *Settings {
		s, err := LoadSettings()
		if err != nil {
			t.Fatalf("Failed to load settings: %v", err)
		}
		return s
	}

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"bad transport", func(s *Settings) { s.Transport = "http" }},
		{"empty data dir", func(s *Settings) { s.Store.DataDir = "" }},
		{"negative max edits", func(s *Settings) { s.Search.Fuzzy.MaxEditsShort = -1 }},
		{"zero short query len", func(s *Settings) { s.Search.Fuzzy.ShortQueryLen = 0 }},
		{"zero max expansions", func(s *Settings) { s.Search.Fuzzy.MaxExpansions = 0 }},
		{"zero max results", func(s *Settings) { s.Search.MaxResults = 0 }},
		{"zero field weight", func(s *Settings) { s.Search.Weights.Tags = 0 }},
		{"zero page size", func(s *Settings) { s.Batch.PageSize = 0 }},
		{"zero rate", func(s *Settings) { s.Batch.Rate = 0 }},
		{"threshold above one", func(s *Settings) { s.Batch.SimilarityThreshold = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			if err := ValidateSettings(s); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestValidateLLMSettings(t *testing.T) {
	s := &Settings{LLM: LLMSettings{APIKey: "sk", Model: "gpt-4o", Timeout: time.Minute}}
	if err := ValidateLLMSettings(s); err != nil {
		t.Errorf("Expected valid LLM settings: %v", err)
	}

	s.LLM.APIKey = ""
	if err := ValidateLLMSettings(s); err == nil {
		t.Error("Expected error for missing API key")
	}

	s.LLM = LLMSettings{APIKey: "sk", Model: "gpt-4o"}
	if err := ValidateLLMSettings(s); err == nil {
		t.Error("Expected error for zero timeout")
	}
}
