package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"CanonCurator/internal/domain"
	"CanonCurator/internal/scoring"
)

const (
	defaultTimezone     = "UTC"
	configPathEnv       = "CANON_CURATOR_CONFIG"
	databaseDSNEnv      = "DATABASE_DSN"
	databaseDriverEnv   = "DATABASE_DRIVER"
	inferenceBackendEnv = "INFERENCE_BACKEND"
	inferenceAPIKeyEnv  = "INFERENCE_API_KEY"
	inferenceModelEnv   = "INFERENCE_MODEL"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	httpAddrEnv         = "HTTP_ADDR"
	logLevelEnv         = "LOG_LEVEL"
)

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Inference     InferenceConfig    `yaml:"inference"`
	Engine        EngineConfig       `yaml:"engine"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	HTTP          HTTPConfig         `yaml:"http"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig selects the SQL flavour and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN    string `yaml:"dsn" validate:"required"`
}

// InferenceConfig describes the date-inference backend and its call budget.
type InferenceConfig struct {
	Backend           string        `yaml:"backend" validate:"oneof=llm ml"`
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	SystemPrompt      string        `yaml:"systemPrompt"`
	TimeoutSeconds    int           `yaml:"timeoutSeconds" validate:"gte=0"`
	MaxAttempts       int           `yaml:"maxAttempts" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// Timeout converts TimeoutSeconds, zero meaning the backend default.
func (c InferenceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BreakerConfig tunes the inference circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32  `yaml:"maxRequests"`
	IntervalSeconds  int     `yaml:"intervalSeconds" validate:"gte=0"`
	TimeoutSeconds   int     `yaml:"timeoutSeconds" validate:"gte=0"`
	FailureThreshold float64 `yaml:"failureThreshold" validate:"gt=0,lte=1"`
	MinRequests      uint32  `yaml:"minRequests"`
}

// EngineConfig carries the scoring and batching knobs.
type EngineConfig struct {
	BatchSize           int                         `yaml:"batchSize" validate:"gte=1"`
	StalenessThresholds scoring.StalenessThresholds `yaml:"stalenessThresholds"`
	FastMovingKeywords  []string                    `yaml:"fastMovingKeywords"`
	Domains             map[int]string              `yaml:"domains" validate:"dive,required"`
}

// SchedulerConfig defines when enrichment should run.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression" validate:"required_if=Enabled true"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	BaseURL  string `yaml:"baseUrl"`
}

// HTTPConfig configures the reporting server.
type HTTPConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// LoggingConfig selects level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Settings builds the immutable scoring settings once.
func (c Config) Settings() scoring.Settings {
	domains := scoring.DefaultDomains()
	for id, label := range c.Engine.Domains {
		domains[domain.DomainID(id)] = label
	}
	return scoring.NewSettings(c.Engine.StalenessThresholds, c.Engine.FastMovingKeywords, domains)
}

// Load reads .env files, the YAML file at path (or $CANON_CURATOR_CONFIG), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	loadDotEnv()

	cfg := Default()
	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnv populates the environment from .env.local then .env. Existing variables win.
func loadDotEnv() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{databaseDSNEnv, &c.Database.DSN},
		{databaseDriverEnv, &c.Database.Driver},
		{inferenceBackendEnv, &c.Inference.Backend},
		{inferenceAPIKeyEnv, &c.Inference.APIKey},
		{inferenceModelEnv, &c.Inference.Model},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{httpAddrEnv, &c.HTTP.Addr},
		{logLevelEnv, &c.Logging.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalid, tz)
	}
	c.Scheduler.location = loc
	return nil
}

var validate = validator.New()

// Validate checks field constraints and returns ErrInvalid with every violation listed.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "canon.db"},
		Inference: InferenceConfig{
			Backend:           "llm",
			Endpoint:          "https://api.openai.com/v1/chat/completions",
			Model:             "gpt-4o-mini",
			TimeoutSeconds:    30,
			MaxAttempts:       3,
			RequestsPerSecond: 2,
			Burst:             5,
			Breaker: BreakerConfig{
				MaxRequests:      1,
				IntervalSeconds:  60,
				TimeoutSeconds:   30,
				FailureThreshold: 0.6,
				MinRequests:      5,
			},
		},
		Engine: EngineConfig{
			BatchSize:           5,
			StalenessThresholds: scoring.DefaultThresholds(),
			FastMovingKeywords:  scoring.DefaultFastMovingKeywords(),
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: time.UTC},
		HTTP:      HTTPConfig{Addr: ":8080"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}
