package main

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/sirupsen/logrus"
)

// NewsFetcher pulls items from an RSS feed and normalizes them into
// ContentItems. Item bodies arrive as HTML and are converted to plain
// markdown text before translation.
type NewsFetcher struct {
	feedURL   string
	maxItems  int
	client    *http.Client
	converter *md.Converter
	log       *logrus.Logger
}

// NewsFetcherOption customizes a NewsFetcher.
type NewsFetcherOption func(*NewsFetcher)

// WithNewsHTTPClient overrides the HTTP client.
func WithNewsHTTPClient(client *http.Client) NewsFetcherOption {
	return func(f *NewsFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// NewNewsFetcher creates a fetcher for one RSS feed.
func NewNewsFetcher(feedURL string, maxItems int, logger *logrus.Logger, opts ...NewsFetcherOption) *NewsFetcher {
	f := &NewsFetcher{
		feedURL:   feedURL,
		maxItems:  maxItems,
		client:    &http.Client{Timeout: 30 * time.Second},
		converter: md.NewConverter("", true, nil),
		log:       logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name identifies this source in logs and run reports.
func (f *NewsFetcher) Name() string {
	return "news/" + f.feedURL
}

// Fetch returns up to maxItems normalized feed items in document order.
// Items missing an identifier or title are skipped individually.
func (f *NewsFetcher) Fetch(ctx context.Context) ([]ContentItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", f.feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: f.feedURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed body: %w", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing feed XML: %w", err)
	}

	items := make([]ContentItem, 0, f.maxItems)
	for _, raw := range feed.Channel.Items {
		item, ok := f.normalize(raw)
		if !ok {
			continue
		}
		items = append(items, item)
		if len(items) >= f.maxItems {
			break
		}
	}

	f.log.Debugf("Fetched %d items from %s", len(items), f.feedURL)
	return items, nil
}

// normalize converts one RSS item. The GUID is the dedupe id, falling
// back to the link when feeds omit it.
func (f *NewsFetcher) normalize(raw rssItem) (ContentItem, bool) {
	id := strings.TrimSpace(raw.GUID)
	if id == "" {
		id = strings.TrimSpace(raw.Link)
	}
	title := strings.TrimSpace(raw.Title)
	if id == "" || title == "" {
		return ContentItem{}, false
	}

	text := title
	if body := f.htmlToText(raw.Description); body != "" {
		text = title + "\n\n" + body
	}

	item := ContentItem{
		ID:        id,
		RawText:   text,
		SourceURL: strings.TrimSpace(raw.Link),
	}

	switch {
	case strings.HasPrefix(raw.Enclosure.Type, "image/"):
		item.PhotoURLs = []string{raw.Enclosure.URL}
	case strings.HasPrefix(raw.Enclosure.Type, "video/"):
		item.VideoURL = raw.Enclosure.URL
	}

	return item, true
}

// htmlToText strips HTML from a feed body, degrading to the raw string
// when conversion fails.
func (f *NewsFetcher) htmlToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	text, err := f.converter.ConvertString(html)
	if err != nil {
		f.log.WithError(err).Debug("HTML conversion failed, using raw description")
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(text)
}

// Wire types for the RSS document.

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	Enclosure   struct {
		URL  string `xml:"url,attr"`
		Type string `xml:"type,attr"`
	} `xml:"enclosure"`
}
