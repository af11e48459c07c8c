package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example News</title>
    <item>
      <title>Markets rally on rate cut</title>
      <link>https://news.example/markets-rally</link>
      <guid>news-001</guid>
      <description>&lt;p&gt;Stocks &lt;b&gt;climbed&lt;/b&gt; sharply today.&lt;/p&gt;</description>
    </item>
    <item>
      <title>Storm hits the coast</title>
      <link>https://news.example/storm</link>
      <description>Heavy rain expected.</description>
      <enclosure url="https://cdn.example/storm.jpg" type="image/jpeg"/>
    </item>
    <item>
      <title>Launch replay</title>
      <link>https://news.example/launch</link>
      <guid>news-003</guid>
      <enclosure url="https://cdn.example/launch.mp4" type="video/mp4"/>
    </item>
    <item>
      <title></title>
      <link>https://news.example/untitled</link>
    </item>
  </channel>
</rss>`

func newTestNewsFetcher(t *testing.T, maxItems int, handler http.HandlerFunc) *NewsFetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewNewsFetcher(server.URL, maxItems, newTestLogger())
}

func TestNewsFetchNormalizes(t *testing.T) {
	f := newTestNewsFetcher(t, 20, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeedXML))
	})

	items, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	// The untitled item is skipped.
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}

	first := items[0]
	if first.ID != "news-001" {
		t.Errorf("ID = %q, want guid", first.ID)
	}
	if !strings.HasPrefix(first.RawText, "Markets rally on rate cut\n\n") {
		t.Errorf("RawText = %q, want title prefix", first.RawText)
	}
	if strings.Contains(first.RawText, "<p>") || strings.Contains(first.RawText, "<b>") {
		t.Errorf("RawText still contains HTML: %q", first.RawText)
	}
	if !strings.Contains(first.RawText, "climbed") {
		t.Errorf("RawText lost body text: %q", first.RawText)
	}

	// No guid: the link stands in as the dedupe id.
	second := items[1]
	if second.ID != "https://news.example/storm" {
		t.Errorf("ID = %q, want link fallback", second.ID)
	}
	if len(second.PhotoURLs) != 1 || second.PhotoURLs[0] != "https://cdn.example/storm.jpg" {
		t.Errorf("PhotoURLs = %v", second.PhotoURLs)
	}

	third := items[2]
	if third.VideoURL != "https://cdn.example/launch.mp4" {
		t.Errorf("VideoURL = %q", third.VideoURL)
	}
	if third.RawText != "Launch replay" {
		t.Errorf("RawText = %q, want bare title when description is empty", third.RawText)
	}
}

func TestNewsFetchCapsItems(t *testing.T) {
	f := newTestNewsFetcher(t, 1, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeedXML))
	})

	items, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("len(items) = %d, want 1", len(items))
	}
}

func TestNewsFetchHTTPError(t *testing.T) {
	f := newTestNewsFetcher(t, 20, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := f.Fetch(context.Background())
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Fetch() error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", httpErr.StatusCode)
	}
}

func TestNewsFetchMalformedXML(t *testing.T) {
	f := newTestNewsFetcher(t, 20, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{json, not xml}"))
	})

	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch() error = nil, want parse error")
	}
}
