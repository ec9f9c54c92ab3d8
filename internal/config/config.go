// Package config loads the environment-variable configuration of the
// persona-memory core, with a Validate pass that returns
// MissingConfig/InvalidConfig errors.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"jyra/internal/apperrors"
)

// Config holds every environment-variable setting the core reads. validate
// tags cover the declarative range/required checks; Validate() layers the
// cross-field "at least one model backend" rule on top, since that check
// can't be expressed as a single struct tag.
type Config struct {
	// Out-of-core chat bridge credential; the core never dials Telegram
	// itself and Validate does not check it, it is only carried through.
	TelegramBotToken string `yaml:"telegram_bot_token"`

	GeminiAPIKey    string `yaml:"gemini_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	EnableOpenAI    bool   `yaml:"enable_openai"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	EnableAnthropic bool   `yaml:"enable_anthropic"`

	EmbeddingDimension int `yaml:"embedding_dimension" validate:"gt=0"`

	ResponseCacheDir string `yaml:"response_cache_dir" validate:"required"`
	ResponseCacheTTL int    `yaml:"response_cache_ttl" validate:"gt=0"` // seconds

	DatabasePath string `yaml:"database_path" validate:"required"`

	MaxConversationHistory int    `yaml:"max_conversation_history" validate:"gt=0"`
	DefaultLanguage        string `yaml:"default_language"`
	LogLevel               string `yaml:"log_level"`
	Environment            string `yaml:"environment" validate:"oneof=development staging production test"`

	AdminUserIDs []int64 `yaml:"admin_user_ids"`

	RateLimitWindow      int `yaml:"rate_limit_window" validate:"gt=0"` // seconds
	RateLimitMaxRequests int `yaml:"rate_limit_max_requests" validate:"gt=0"`

	ErrorDetailLevel int `yaml:"error_detail_level" validate:"gte=0,lte=3"` // 0-3, see apperrors.DetailLevel

	DecayIntervalHours         int     `yaml:"decay_interval_hours" validate:"gt=0"`
	ConsolidationMinSimilarity float64 `yaml:"consolidation_min_similarity" validate:"gt=0,lte=1"`

	ConversationRetentionDays int `yaml:"conversation_retention_days" validate:"gt=0"`
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvIntList(key string) []int64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		EnableOpenAI:    getEnvBool("ENABLE_OPENAI", false),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		EnableAnthropic: getEnvBool("ENABLE_ANTHROPIC", false),

		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 768),

		ResponseCacheDir: getEnv("RESPONSE_CACHE_DIR", "./data/response_cache"),
		ResponseCacheTTL: getEnvInt("RESPONSE_CACHE_TTL", 3600),

		DatabasePath: getEnv("DATABASE_PATH", "./data/jyra.db"),

		MaxConversationHistory: getEnvInt("MAX_CONVERSATION_HISTORY", 10),
		DefaultLanguage:        getEnv("DEFAULT_LANGUAGE", "en"),
		LogLevel:               getEnv("LOG_LEVEL", "INFO"),
		Environment:            getEnv("ENVIRONMENT", "development"),

		AdminUserIDs: getEnvIntList("ADMIN_USER_IDS"),

		RateLimitWindow:      getEnvInt("RATE_LIMIT_WINDOW", 60),
		RateLimitMaxRequests: getEnvInt("RATE_LIMIT_MAX_REQUESTS", 20),

		ErrorDetailLevel: getEnvInt("ERROR_DETAIL_LEVEL", 1),

		DecayIntervalHours:         getEnvInt("DECAY_INTERVAL_HOURS", 24),
		ConsolidationMinSimilarity: getEnvFloat("CONSOLIDATION_MIN_SIMILARITY", 0.75),

		ConversationRetentionDays: getEnvInt("CONVERSATION_RETENTION_DAYS", 90),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces that at least one model/embedding backend is usable and
// that numeric settings are in sane ranges.
func (c *Config) Validate() error {
	// Cross-field rule validator can't express as a single struct tag.
	if c.GeminiAPIKey == "" && !(c.EnableOpenAI && c.OpenAIAPIKey != "") {
		return apperrors.New(apperrors.KindMissingConfig, "at least one of GEMINI_API_KEY or (ENABLE_OPENAI with OPENAI_API_KEY) must be set")
	}
	if c.DatabasePath == "" {
		return apperrors.New(apperrors.KindMissingConfig, "DATABASE_PATH must be set")
	}

	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return apperrors.New(apperrors.KindInvalidConfig, formatValidationErrors(verrs))
		}
		return apperrors.Wrap(apperrors.KindInvalidConfig, "validate config", err)
	}
	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	var b strings.Builder
	for i, fe := range errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fe.Field())
		b.WriteString(" failed on '")
		b.WriteString(fe.Tag())
		b.WriteString("'")
	}
	return b.String()
}

// IsAdmin reports whether userID is configured as an admin.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
