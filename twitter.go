package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultTwitterBaseURL = "https://twttrapi.p.rapidapi.com"
	twitterRapidAPIHost   = "twttrapi.p.rapidapi.com"
)

// TwitterFetcher pulls a user's recent tweets through the twttrapi
// RapidAPI gateway and normalizes them into ContentItems.
type TwitterFetcher struct {
	apiKey   string
	username string
	maxItems int
	baseURL  string
	client   *http.Client
	log      *logrus.Logger
}

// TwitterFetcherOption customizes a TwitterFetcher.
type TwitterFetcherOption func(*TwitterFetcher)

// WithTwitterBaseURL overrides the API base URL.
func WithTwitterBaseURL(baseURL string) TwitterFetcherOption {
	return func(f *TwitterFetcher) {
		f.baseURL = baseURL
	}
}

// WithTwitterHTTPClient overrides the HTTP client.
func WithTwitterHTTPClient(client *http.Client) TwitterFetcherOption {
	return func(f *TwitterFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// NewTwitterFetcher creates a fetcher for one account's timeline.
func NewTwitterFetcher(apiKey, username string, maxItems int, logger *logrus.Logger, opts ...TwitterFetcherOption) *TwitterFetcher {
	f := &TwitterFetcher{
		apiKey:   apiKey,
		username: username,
		maxItems: maxItems,
		baseURL:  defaultTwitterBaseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name identifies this source in logs and run reports.
func (f *TwitterFetcher) Name() string {
	return "twitter/" + f.username
}

// Fetch returns up to maxItems normalized tweets in timeline order.
// Entries that cannot be parsed are skipped individually.
func (f *TwitterFetcher) Fetch(ctx context.Context) ([]ContentItem, error) {
	endpoint := fmt.Sprintf("%s/user-tweets?username=%s", f.baseURL, url.QueryEscape(f.username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-rapidapi-key", f.apiKey)
	req.Header.Set("x-rapidapi-host", twitterRapidAPIHost)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tweets for %s: %w", f.username, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tweets response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	var timeline twTimelineResponse
	if err := json.Unmarshal(body, &timeline); err != nil {
		return nil, fmt.Errorf("parsing tweets response: %w", err)
	}

	var entries []twEntry
	for _, ins := range timeline.UserResult.Result.TimelineResponse.Timeline.Instructions {
		if ins.Typename == "TimelineAddEntries" {
			entries = ins.Entries
			break
		}
	}

	items := make([]ContentItem, 0, f.maxItems)
	for _, entry := range entries {
		item, ok := f.normalize(entry)
		if !ok {
			continue
		}
		items = append(items, item)
		if len(items) >= f.maxItems {
			break
		}
	}

	f.log.Debugf("Fetched %d tweets from @%s", len(items), f.username)
	return items, nil
}

// normalize converts one timeline entry into a ContentItem. Entries
// without an id or text are not items (retweet stubs, cursors, ads).
func (f *TwitterFetcher) normalize(entry twEntry) (ContentItem, bool) {
	tweet := entry.Content.Content.TweetResult.Result
	if tweet.RestID == "" {
		return ContentItem{}, false
	}

	// Long-form note text wins over the truncated legacy fields.
	text := tweet.NoteTweet.NoteTweetResults.Result.Text
	if text == "" {
		text = tweet.Legacy.FullText
	}
	if text == "" {
		text = tweet.Legacy.Text
	}
	if text == "" {
		return ContentItem{}, false
	}

	item := ContentItem{
		ID:        tweet.RestID,
		RawText:   text,
		SourceURL: fmt.Sprintf("https://x.com/%s/status/%s", f.username, tweet.RestID),
	}

	media := tweet.Legacy.ExtendedEntities.Media
	media = append(media, tweet.Legacy.Entities.Media...)
	for _, m := range media {
		switch m.Type {
		case "photo":
			if u := m.photoURL(); u != "" {
				item.PhotoURLs = append(item.PhotoURLs, u)
			}
		case "video":
			if item.VideoURL == "" {
				item.VideoURL = m.bestVideoURL()
			}
		}
	}
	// At most one media kind per item: a video tweet's thumbnail photos
	// are not separate candidates.
	if item.VideoURL != "" {
		item.PhotoURLs = nil
	}

	return item, true
}

// Wire types for the twttrapi timeline response. Only the fields the
// normalizer touches are declared.

type twTimelineResponse struct {
	UserResult struct {
		Result struct {
			TimelineResponse struct {
				Timeline struct {
					Instructions []struct {
						Typename string    `json:"__typename"`
						Entries  []twEntry `json:"entries"`
					} `json:"instructions"`
				} `json:"timeline"`
			} `json:"timeline_response"`
		} `json:"result"`
	} `json:"user_result"`
}

type twEntry struct {
	Content struct {
		Content struct {
			TweetResult struct {
				Result twTweet `json:"result"`
			} `json:"tweetResult"`
		} `json:"content"`
	} `json:"content"`
}

type twTweet struct {
	RestID    string `json:"rest_id"`
	NoteTweet struct {
		NoteTweetResults struct {
			Result struct {
				Text string `json:"text"`
			} `json:"result"`
		} `json:"note_tweet_results"`
	} `json:"note_tweet"`
	Legacy struct {
		FullText         string           `json:"full_text"`
		Text             string           `json:"text"`
		ExtendedEntities twMediaContainer `json:"extended_entities"`
		Entities         twMediaContainer `json:"entities"`
	} `json:"legacy"`
}

type twMediaContainer struct {
	Media []twMedia `json:"media"`
}

type twMedia struct {
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
	MediaURL      string `json:"media_url"`
	VideoInfo     struct {
		Variants []struct {
			Bitrate     int    `json:"bitrate"`
			ContentType string `json:"content_type"`
			URL         string `json:"url"`
		} `json:"variants"`
	} `json:"video_info"`
}

func (m twMedia) photoURL() string {
	if m.MediaURLHTTPS != "" {
		return m.MediaURLHTTPS
	}
	return m.MediaURL
}

// bestVideoURL picks the highest-bitrate mp4 variant.
func (m twMedia) bestVideoURL() string {
	best := ""
	bestBitrate := -1
	for _, v := range m.VideoInfo.Variants {
		if v.ContentType != "video/mp4" {
			continue
		}
		if v.Bitrate > bestBitrate {
			best = v.URL
			bestBitrate = v.Bitrate
		}
	}
	return best
}
