package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSettingsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func setTestCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("RAPIDAPI_KEY", "rapid-test")
	t.Setenv("FB_PAGE_ID", "page123")
	t.Setenv("FB_USER_TOKEN", "user-token")
}

func TestNewConfigAppliesDefaults(t *testing.T) {
	setTestCredentials(t)
	path := writeSettingsFile(t, `
sources:
  - type: twitter
    username: WatcherGuru
`)

	cfg, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}

	s := cfg.Settings
	if s.LedgerPath != "results.json" {
		t.Errorf("LedgerPath = %q, want default", s.LedgerPath)
	}
	if s.PacingMS != 1000 {
		t.Errorf("PacingMS = %d, want 1000", s.PacingMS)
	}
	if s.Translator.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", s.Translator.MaxRetries)
	}
	if s.Translator.Language != "Malay" {
		t.Errorf("Language = %q, want default", s.Translator.Language)
	}
	if s.Sources[0].MaxItems != 20 {
		t.Errorf("MaxItems = %d, want 20", s.Sources[0].MaxItems)
	}
}

func TestNewConfigOverridesDefaults(t *testing.T) {
	setTestCredentials(t)
	path := writeSettingsFile(t, `
ledger_path: custom.json
pacing_ms: 250
sources:
  - type: news
    feed_url: https://news.example/rss
    max_items: 5
translator:
  language: Indonesian
  max_retries: 5
`)

	cfg, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}

	if cfg.Settings.LedgerPath != "custom.json" {
		t.Errorf("LedgerPath = %q", cfg.Settings.LedgerPath)
	}
	if got := cfg.Pacing().Milliseconds(); got != 250 {
		t.Errorf("Pacing() = %dms, want 250", got)
	}
	if cfg.Settings.Translator.Language != "Indonesian" {
		t.Errorf("Language = %q", cfg.Settings.Translator.Language)
	}
	if cfg.Settings.Sources[0].MaxItems != 5 {
		t.Errorf("MaxItems = %d, want 5", cfg.Settings.Sources[0].MaxItems)
	}
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		settings string
		unset    string
		wantErr  string
	}{
		{
			name:     "no sources",
			settings: "sources: []\n",
			wantErr:  "no sources",
		},
		{
			name: "missing anthropic key",
			settings: `
sources:
  - type: twitter
    username: someone
`,
			unset:   "ANTHROPIC_API_KEY",
			wantErr: "ANTHROPIC_API_KEY",
		},
		{
			name: "missing rapidapi key for twitter",
			settings: `
sources:
  - type: twitter
    username: someone
`,
			unset:   "RAPIDAPI_KEY",
			wantErr: "RAPIDAPI_KEY",
		},
		{
			name: "twitter source without username",
			settings: `
sources:
  - type: twitter
`,
			wantErr: "username",
		},
		{
			name: "news source without feed url",
			settings: `
sources:
  - type: news
`,
			wantErr: "feed_url",
		},
		{
			name: "unknown source type",
			settings: `
sources:
  - type: mastodon
`,
			wantErr: "unknown source type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setTestCredentials(t)
			if tt.unset != "" {
				t.Setenv(tt.unset, "")
			}
			path := writeSettingsFile(t, tt.settings)

			_, err := NewConfig(path)
			if err == nil {
				t.Fatal("NewConfig() error = nil, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewConfigRapidAPIKeyNotRequiredForNewsOnly(t *testing.T) {
	setTestCredentials(t)
	t.Setenv("RAPIDAPI_KEY", "")
	path := writeSettingsFile(t, `
sources:
  - type: news
    feed_url: https://news.example/rss
`)

	if _, err := NewConfig(path); err != nil {
		t.Fatalf("NewConfig() error = %v, RAPIDAPI_KEY should only gate twitter sources", err)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SIARAN_TEST_STR", "value")
	t.Setenv("SIARAN_TEST_INT", "42")
	t.Setenv("SIARAN_TEST_BAD_INT", "forty-two")

	if got := getEnv("SIARAN_TEST_STR", "fallback"); got != "value" {
		t.Errorf("getEnv() = %q", got)
	}
	if got := getEnv("SIARAN_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("getEnv() = %q, want fallback", got)
	}
	if got := getEnvInt("SIARAN_TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt() = %d", got)
	}
	if got := getEnvInt("SIARAN_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("getEnvInt() = %d, want fallback for unparseable value", got)
	}
}
