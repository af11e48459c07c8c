package main

import "time"

// MediaKind identifies what media a source item carries. An item has at
// most one kind; video wins over photos when a source reports both.
type MediaKind string

const (
	MediaNone   MediaKind = "none"
	MediaPhotos MediaKind = "photos"
	MediaVideo  MediaKind = "video"
)

// PublishMode is the publishing strategy that actually shipped an item.
// Unlike MediaKind it includes the text-only fallback floor.
type PublishMode string

const (
	ModeText   PublishMode = "text"
	ModePhotos PublishMode = "photos"
	ModeVideo  PublishMode = "video"
)

// ContentItem is one normalized unit of source content. Fetchers build
// these from raw API responses; they are never mutated afterwards.
type ContentItem struct {
	ID        string
	RawText   string
	PhotoURLs []string
	VideoURL  string
	SourceURL string
}

// MediaKind reports the item's media kind by priority: video, then photos.
func (it ContentItem) MediaKind() MediaKind {
	if it.VideoURL != "" {
		return MediaVideo
	}
	if len(it.PhotoURLs) > 0 {
		return MediaPhotos
	}
	return MediaNone
}

// MediaSnapshot records what media, if any, was attached to a published post.
type MediaSnapshot struct {
	Mode PublishMode `json:"mode"`
	URLs []string    `json:"urls,omitempty"`
}

// LedgerEntry is the persisted record of one successfully published item.
// The ID doubles as the deduplication key across runs.
type LedgerEntry struct {
	ID            string        `json:"id"`
	SourceURL     string        `json:"source_url"`
	OriginalText  string        `json:"original_text"`
	PublishedText string        `json:"published_text"`
	Media         MediaSnapshot `json:"media"`
	Status        string        `json:"status"`
	Timestamp     time.Time     `json:"timestamp"`
}

// ItemStatus represents the terminal outcome of processing one item.
type ItemStatus string

const (
	StatusPublished          ItemStatus = "published"
	StatusSkippedDuplicate   ItemStatus = "skipped-duplicate"
	StatusSkippedTranslation ItemStatus = "skipped-translation-failed"
	StatusFailed             ItemStatus = "failed"
)

// ItemResult tracks the outcome of processing one item within a run.
type ItemResult struct {
	ID     string
	Source string
	Status ItemStatus
	Mode   PublishMode
	Err    error
}

// RunReport aggregates the outcomes of one pipeline run.
type RunReport struct {
	Results   []ItemResult
	Published int
}
