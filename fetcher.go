package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Fetcher returns a normalized, ordered, bounded batch of candidate items
// from one content source. Malformed upstream records are skipped
// individually, never failing the batch.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]ContentItem, error)
}

// newFetchers builds one fetcher per configured source.
func newFetchers(cfg *Config, logger *logrus.Logger) ([]Fetcher, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	fetchers := make([]Fetcher, 0, len(cfg.Settings.Sources))
	for _, src := range cfg.Settings.Sources {
		switch src.Type {
		case "twitter":
			fetchers = append(fetchers, NewTwitterFetcher(cfg.Credentials.RapidAPIKey, src.Username, src.MaxItems, logger,
				WithTwitterHTTPClient(client)))
		case "news":
			fetchers = append(fetchers, NewNewsFetcher(src.FeedURL, src.MaxItems, logger,
				WithNewsHTTPClient(client)))
		default:
			return nil, fmt.Errorf("unknown source type %q", src.Type)
		}
	}

	return fetchers, nil
}
