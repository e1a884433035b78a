package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port              string
	Env               string
	LogLevel          string
	CORSAllowOrigin   []string
	DatabaseURL       string
	RateLimitRPM      int
	HistoryLimit      int
	DebugEvents       bool
	AnalyzeTimeout    time.Duration
	RegenerateTimeout time.Duration

	Gemini   GeminiConfig
	Pipeline PipelineConfig
}

// GeminiConfig configures the hosted model provider.
type GeminiConfig struct {
	APIKey            string
	BaseURL           string
	FastModel         string
	AccurateModel     string
	RequestsPerMinute int
	Burst             int
	ResearchAgent     string
}

// PipelineConfig carries per-run tuning knobs.
type PipelineConfig struct {
	MaxRetries        int
	TitleFetchTimeout time.Duration
	TitleFetchLimit   int
	DeepMaxURLs       int
	AgentExpected     time.Duration
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPM", 10)
	v.SetDefault("HISTORY_LIMIT", 50)
	v.SetDefault("DEBUG_EVENTS", false)
	v.SetDefault("ANALYZE_TIMEOUT", "15m")
	v.SetDefault("REGENERATE_TIMEOUT", "2m")

	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("GEMINI_FAST_MODEL", "gemini-3-flash-preview")
	v.SetDefault("GEMINI_ACCURATE_MODEL", "gemini-3-pro-preview")
	v.SetDefault("GEMINI_RPM", 60)
	v.SetDefault("GEMINI_BURST", 10)
	v.SetDefault("DEEP_RESEARCH_AGENT", "deep-research-pro-preview-12-2025")
	v.SetDefault("DEEP_RESEARCH_EXPECTED", "10m")

	v.SetDefault("LLM_MAX_RETRIES", 2)
	v.SetDefault("TITLE_FETCH_TIMEOUT", "5s")
	v.SetDefault("TITLE_FETCH_LIMIT", 20)
	v.SetDefault("DEEP_MAX_URLS", 20)
}

// Load reads configuration from an optional env-format file, then environment variables.
// PRISM_CONFIG_FILE selects the file (default .env); a missing file is ignored.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	path := v.GetString("PRISM_CONFIG_FILE")
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Config{
		Port:              v.GetString("PORT"),
		Env:               normalizeEnv(v.GetString("ENV")),
		LogLevel:          v.GetString("LOG_LEVEL"),
		CORSAllowOrigin:   splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		RateLimitRPM:      v.GetInt("RATE_LIMIT_RPM"),
		HistoryLimit:      v.GetInt("HISTORY_LIMIT"),
		DebugEvents:       v.GetBool("DEBUG_EVENTS"),
		AnalyzeTimeout:    v.GetDuration("ANALYZE_TIMEOUT"),
		RegenerateTimeout: v.GetDuration("REGENERATE_TIMEOUT"),
		Gemini: GeminiConfig{
			APIKey:            v.GetString("GEMINI_API_KEY"),
			BaseURL:           strings.TrimRight(v.GetString("GEMINI_BASE_URL"), "/"),
			FastModel:         v.GetString("GEMINI_FAST_MODEL"),
			AccurateModel:     v.GetString("GEMINI_ACCURATE_MODEL"),
			RequestsPerMinute: v.GetInt("GEMINI_RPM"),
			Burst:             v.GetInt("GEMINI_BURST"),
			ResearchAgent:     v.GetString("DEEP_RESEARCH_AGENT"),
		},
		Pipeline: PipelineConfig{
			MaxRetries:        v.GetInt("LLM_MAX_RETRIES"),
			TitleFetchTimeout: v.GetDuration("TITLE_FETCH_TIMEOUT"),
			TitleFetchLimit:   v.GetInt("TITLE_FETCH_LIMIT"),
			DeepMaxURLs:       v.GetInt("DEEP_MAX_URLS"),
			AgentExpected:     v.GetDuration("DEEP_RESEARCH_EXPECTED"),
		},
	}

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required in production")
	}
	if cfg.Pipeline.MaxRetries < 0 {
		cfg.Pipeline.MaxRetries = 0
	}
	return cfg, nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}
