package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	settingsPath string
	ledgerPath   string
	dryRun       bool
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "siaran",
	Short: "Fetch, translate and repost content to a Facebook page",
	Long: `Pulls recent items from the configured sources, translates each caption
with Claude, and posts them to a Facebook page with their media.
Already-posted items are skipped using a local results ledger.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		loadEnv(logger)

		cfg, err := NewConfig(settingsPath)
		if err != nil {
			logger.Fatalf("Configuration error: %v", err)
		}
		if ledgerPath != "" {
			cfg.Settings.LedgerPath = ledgerPath
		}

		if err := run(cfg, logger); err != nil {
			logger.Fatalf("Run failed: %v", err)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&settingsPath, "settings", "", "Path to settings file (default .siaran/settings.yaml)")
	rootCmd.Flags().StringVar(&ledgerPath, "ledger", "", "Path to the results ledger (overrides settings)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Post normally but skip the ledger commit")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logLevelFromEnv())
	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
	}
	if getEnv("LOG_FORMAT", "") == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func run(cfg *Config, logger *logrus.Logger) error {
	fetchers, err := newFetchers(cfg, logger)
	if err != nil {
		return fmt.Errorf("building fetchers: %w", err)
	}

	translator, err := NewCaptionTranslator(cfg.Credentials.AnthropicAPIKey, cfg.Settings.Translator, logger)
	if err != nil {
		return fmt.Errorf("building translator: %w", err)
	}

	graphClient := &http.Client{Timeout: time.Duration(getEnvInt("FB_HTTP_TIMEOUT_SECONDS", 120)) * time.Second}
	publisher := NewPagePublisher(cfg.Credentials.FBPageID, cfg.Credentials.FBUserToken, logger,
		WithGraphBaseURL(getEnv("FB_GRAPH_BASE_URL", defaultGraphBaseURL)),
		WithGraphHTTPClient(graphClient))

	ledger := OpenLedger(cfg.Settings.LedgerPath, logger)
	logger.Infof("Ledger %s holds %d entries", cfg.Settings.LedgerPath, ledger.Len())

	pipeline := NewPipeline(fetchers, translator, publisher, ledger, PipelineConfig{
		Pacing: cfg.Pacing(),
		DryRun: dryRun,
	}, logger)

	report, err := pipeline.Run(context.Background())
	if err != nil {
		return err
	}

	skipped := 0
	failed := 0
	for _, r := range report.Results {
		switch r.Status {
		case StatusSkippedDuplicate, StatusSkippedTranslation:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	logger.Infof("Done: %d published, %d skipped, %d failed", report.Published, skipped, failed)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
