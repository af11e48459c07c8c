package main

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const defaultSettingsPath = ".siaran/settings.yaml"

//go:embed config/default-settings.yaml
var defaultSettings string

// Credentials holds the secrets read from the environment once at startup.
type Credentials struct {
	AnthropicAPIKey string
	RapidAPIKey     string
	FBPageID        string
	FBUserToken     string
}

// SourceSettings configures one content source.
type SourceSettings struct {
	Type     string `yaml:"type"` // "twitter" or "news"
	Username string `yaml:"username,omitempty"`
	FeedURL  string `yaml:"feed_url,omitempty"`
	MaxItems int    `yaml:"max_items,omitempty"`
}

// TranslatorSettings tunes the caption translator.
type TranslatorSettings struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Language    string  `yaml:"language"`
	MaxRetries  int     `yaml:"max_retries"`
	BaseDelayMS int     `yaml:"base_delay_ms"`
	MaxDelayMS  int     `yaml:"max_delay_ms"`
}

// Settings represents the YAML configuration structure.
type Settings struct {
	LedgerPath string             `yaml:"ledger_path"`
	PacingMS   int                `yaml:"pacing_ms"`
	Sources    []SourceSettings   `yaml:"sources"`
	Translator TranslatorSettings `yaml:"translator"`
}

// Config is built once at startup and passed by reference into every
// collaborator constructor; nothing reads the environment after this.
type Config struct {
	Credentials Credentials
	Settings    *Settings
}

// Pacing returns the inter-item courtesy delay.
func (c *Config) Pacing() time.Duration {
	return time.Duration(c.Settings.PacingMS) * time.Millisecond
}

// NewConfig loads settings from the given path (bootstrapping the default
// file if missing) and credentials from the environment, then validates
// that every credential the configured sources need is present.
func NewConfig(settingsPath string) (*Config, error) {
	if settingsPath == "" {
		settingsPath = defaultSettingsPath
		if err := ensureSettingsExist(settingsPath); err != nil {
			return nil, fmt.Errorf("ensuring settings file exists: %w", err)
		}
	}

	settings, err := loadSettings(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	cfg := &Config{
		Credentials: Credentials{
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			RapidAPIKey:     os.Getenv("RAPIDAPI_KEY"),
			FBPageID:        os.Getenv("FB_PAGE_ID"),
			FBUserToken:     os.Getenv("FB_USER_TOKEN"),
		},
		Settings: settings,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks required credentials against the configured sources.
// Missing credentials are configuration errors and abort before any fetch.
func (c *Config) validate() error {
	if len(c.Settings.Sources) == 0 {
		return fmt.Errorf("no sources configured")
	}
	if c.Credentials.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.Credentials.FBPageID == "" {
		return fmt.Errorf("FB_PAGE_ID is required")
	}
	if c.Credentials.FBUserToken == "" {
		return fmt.Errorf("FB_USER_TOKEN is required")
	}
	for _, src := range c.Settings.Sources {
		switch src.Type {
		case "twitter":
			if c.Credentials.RapidAPIKey == "" {
				return fmt.Errorf("RAPIDAPI_KEY is required for twitter source %q", src.Username)
			}
			if src.Username == "" {
				return fmt.Errorf("twitter source requires a username")
			}
		case "news":
			if src.FeedURL == "" {
				return fmt.Errorf("news source requires a feed_url")
			}
		default:
			return fmt.Errorf("unknown source type %q", src.Type)
		}
	}
	return nil
}

// loadSettings loads and normalizes settings from a YAML file.
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", settingsPath, err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	applySettingsDefaults(&settings)
	return &settings, nil
}

func applySettingsDefaults(s *Settings) {
	if s.LedgerPath == "" {
		s.LedgerPath = "results.json"
	}
	if s.PacingMS <= 0 {
		s.PacingMS = 1000
	}
	if s.Translator.Model == "" {
		s.Translator.Model = "claude-sonnet-4-20250514"
	}
	if s.Translator.MaxTokens <= 0 {
		s.Translator.MaxTokens = 1000
	}
	if s.Translator.Language == "" {
		s.Translator.Language = "Malay"
	}
	if s.Translator.MaxRetries <= 0 {
		s.Translator.MaxRetries = 3
	}
	if s.Translator.BaseDelayMS <= 0 {
		s.Translator.BaseDelayMS = 500
	}
	if s.Translator.MaxDelayMS <= 0 {
		s.Translator.MaxDelayMS = 8000
	}
	for i := range s.Sources {
		if s.Sources[i].MaxItems <= 0 {
			s.Sources[i].MaxItems = 20
		}
	}
}

// ensureSettingsExist writes the embedded default settings on first run.
func ensureSettingsExist(settingsPath string) error {
	if _, err := os.Stat(settingsPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(".siaran", 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(settingsPath, []byte(defaultSettings), 0644); err != nil {
		return fmt.Errorf("writing default settings: %w", err)
	}
	return nil
}

// loadEnv loads local .env files into the process environment, if present.
func loadEnv(logger *logrus.Logger) {
	for _, file := range []string{".env", ".env.dev"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			logger.WithError(err).Warnf("Failed to load %s", file)
			continue
		}
		logger.Debugf("Loaded env file %s", file)
	}
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// logLevelFromEnv maps LOG_LEVEL to a logrus level, defaulting to info.
func logLevelFromEnv() logrus.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
