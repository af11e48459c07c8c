package main

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineConfig carries the orchestration knobs.
type PipelineConfig struct {
	// Pacing is the courtesy delay between publish attempts.
	Pacing time.Duration
	// DryRun skips the ledger commit so repeated test runs stay repeatable.
	DryRun bool
	// MediaClient downloads media; a default client is used when nil.
	MediaClient *http.Client
}

// Pipeline composes the fetchers, translator, publisher and ledger into
// one sequential run. Items are processed strictly one at a time, in
// fetcher order; every per-item error is absorbed so one bad item never
// blocks the rest of the batch.
type Pipeline struct {
	fetchers   []Fetcher
	translator Translator
	publisher  Publisher
	ledger     *Ledger
	pacing     time.Duration
	dryRun     bool
	log        *logrus.Logger

	// Injection points for tests.
	sleep    func(time.Duration)
	newScope func() resourceScope
}

// NewPipeline wires the collaborators together.
func NewPipeline(fetchers []Fetcher, translator Translator, publisher Publisher, ledger *Ledger, cfg PipelineConfig, logger *logrus.Logger) *Pipeline {
	mediaClient := cfg.MediaClient
	return &Pipeline{
		fetchers:   fetchers,
		translator: translator,
		publisher:  publisher,
		ledger:     ledger,
		pacing:     cfg.Pacing,
		dryRun:     cfg.DryRun,
		log:        logger,
		sleep:      time.Sleep,
		newScope: func() resourceScope {
			return newMediaScope(mediaClient, logger)
		},
	}
}

// Run processes every candidate item from every fetcher, then commits all
// newly published entries to the ledger in one batch. A fetcher error
// degrades that source to an empty batch; only the final ledger commit can
// fail the run.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{}
	var staged []LedgerEntry

	for _, fetcher := range p.fetchers {
		items, err := fetcher.Fetch(ctx)
		if err != nil {
			p.log.WithError(err).Warnf("Fetch failed for %s, skipping source", fetcher.Name())
			continue
		}

		p.log.Infof("Processing %d items from %s", len(items), fetcher.Name())
		for _, item := range items {
			result, entry := p.processItem(ctx, item)
			result.Source = fetcher.Name()
			report.Results = append(report.Results, result)
			p.logResult(result)

			if entry != nil {
				staged = append(staged, *entry)
			}
			// Pace only actual publish attempts; skips cost the target nothing.
			if result.Status == StatusPublished || result.Status == StatusFailed {
				p.sleep(p.pacing)
			}
		}
	}

	report.Published = len(staged)
	if len(staged) == 0 {
		p.log.Info("Nothing to publish")
		return report, nil
	}

	if p.dryRun {
		p.log.Infof("Dry run: skipping ledger commit of %d entries", len(staged))
		return report, nil
	}

	if err := p.ledger.AppendAll(staged); err != nil {
		return report, err
	}
	p.log.Infof("Logged %d new entries", len(staged))
	return report, nil
}

// processItem runs one item through dedupe, translation and the publish
// fallback chain. All media acquired for the item is released before
// returning, whatever the outcome.
func (p *Pipeline) processItem(ctx context.Context, item ContentItem) (ItemResult, *LedgerEntry) {
	result := ItemResult{ID: item.ID}

	if p.ledger.Contains(item.ID) {
		result.Status = StatusSkippedDuplicate
		return result, nil
	}

	caption, err := p.translator.Translate(ctx, item.RawText)
	if err != nil {
		result.Status = StatusSkippedTranslation
		result.Err = err
		return result, nil
	}

	scope := p.newScope()
	defer scope.Release()

	mode, mediaURLs, err := p.publishWithFallback(ctx, item, caption, scope)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result, nil
	}

	result.Status = StatusPublished
	result.Mode = mode
	entry := &LedgerEntry{
		ID:            item.ID,
		SourceURL:     item.SourceURL,
		OriginalText:  item.RawText,
		PublishedText: caption,
		Media:         MediaSnapshot{Mode: mode, URLs: mediaURLs},
		Status:        string(StatusPublished),
		Timestamp:     time.Now(),
	}
	return result, entry
}

// publishWithFallback tries strategies in order of media priority and
// degrades monotonically: video and photos both fall back to a text-only
// post with the same caption on any failure, and text is the floor. The
// returned URLs are the media that actually shipped, which can be a
// subset of the item's candidates when some downloads failed.
func (p *Pipeline) publishWithFallback(ctx context.Context, item ContentItem, caption string, scope resourceScope) (PublishMode, []string, error) {
	switch item.MediaKind() {
	case MediaVideo:
		path, err := scope.Download(item.VideoURL, item.ID, 0)
		if err == nil {
			if err := p.publisher.PublishVideo(ctx, path, caption); err == nil {
				return ModeVideo, []string{item.VideoURL}, nil
			}
			p.log.WithField("item", item.ID).Warn("Video publish failed, falling back to text")
		} else {
			p.log.WithField("item", item.ID).WithError(err).Warn("Video download failed, falling back to text")
		}

	case MediaPhotos:
		var paths, urls []string
		for i, photoURL := range item.PhotoURLs {
			path, err := scope.Download(photoURL, item.ID, i)
			if err != nil {
				p.log.WithField("item", item.ID).WithError(err).Warnf("Photo %d download failed, excluding it", i)
				continue
			}
			paths = append(paths, path)
			urls = append(urls, photoURL)
		}
		if len(paths) > 0 {
			if err := p.publisher.PublishPhotos(ctx, paths, caption); err == nil {
				return ModePhotos, urls, nil
			}
			p.log.WithField("item", item.ID).Warn("Photo publish failed, falling back to text")
		} else {
			p.log.WithField("item", item.ID).Warn("No photos downloaded, falling back to text")
		}
	}

	if err := p.publisher.PublishText(ctx, caption); err != nil {
		return "", nil, err
	}
	return ModeText, nil, nil
}

func (p *Pipeline) logResult(result ItemResult) {
	fields := logrus.Fields{"item": result.ID, "source": result.Source}
	switch result.Status {
	case StatusPublished:
		p.log.WithFields(fields).Infof("✓ Published (%s)", result.Mode)
	case StatusSkippedDuplicate:
		p.log.WithFields(fields).Info("Skipped: already published")
	case StatusSkippedTranslation:
		p.log.WithFields(fields).Info("Skipped: translation failed")
	case StatusFailed:
		p.log.WithFields(fields).WithError(result.Err).Error("✗ Publish failed")
	}
}
