package main

import (
	_ "embed"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"
)

// errTranslationFailed is the distinguished failure marker returned after
// every retry is exhausted.
var errTranslationFailed = errors.New("translation failed")

// errNothingToTranslate is returned when the input is empty after
// preprocessing; no network call is made in that case.
var errNothingToTranslate = errors.New("nothing to translate")

//go:embed config/translator-system-prompt.md
var translatorSystemPrompt string

// Source noise stripped before translation. Markdown links go first so the
// bare-URL pattern does not leave half-eaten brackets behind.
var (
	mdLinkPattern  = regexp.MustCompile(`\[[^\]]*\]\([^)]*\)`)
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// Translator turns raw source text into a publishable caption, or reports
// a terminal failure the orchestrator converts into a skip.
type Translator interface {
	Translate(ctx context.Context, rawText string) (string, error)
}

// CaptionTranslator wraps one LLM call with preprocessing and a bounded
// retry policy. The prompt allows the model to substitute filler for
// advertisement-like input; callers cannot tell substitution from
// translation, by contract.
type CaptionTranslator struct {
	apiKey       string
	settings     TranslatorSettings
	systemPrompt string
	retry        retrypolicy.RetryPolicy[string]
	log          *logrus.Logger

	// call performs one transform attempt; overridable in tests.
	call func(cleaned string) (string, error)
}

// NewCaptionTranslator builds a translator from validated settings. The
// system prompt template must carry the {{.language}} variable.
func NewCaptionTranslator(apiKey string, settings TranslatorSettings, logger *logrus.Logger) (*CaptionTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("translator requires an API key")
	}
	if !strings.Contains(translatorSystemPrompt, "{{.language}}") {
		return nil, fmt.Errorf("translator system prompt must contain {{.language}} variable")
	}

	systemPrompt := strings.ReplaceAll(translatorSystemPrompt, "{{.language}}", settings.Language)

	retry := retrypolicy.NewBuilder[string]().
		HandleIf(func(_ string, err error) bool { return err != nil }).
		WithBackoff(time.Duration(settings.BaseDelayMS)*time.Millisecond, time.Duration(settings.MaxDelayMS)*time.Millisecond).
		WithMaxRetries(settings.MaxRetries).
		Build()

	t := &CaptionTranslator{
		apiKey:       apiKey,
		settings:     settings,
		systemPrompt: systemPrompt,
		retry:        retry,
		log:          logger,
	}
	t.call = t.callAnthropic
	return t, nil
}

// Translate preprocesses rawText and submits it for translation with
// bounded retry. Attempts are synchronous and block the caller.
func (t *CaptionTranslator) Translate(ctx context.Context, rawText string) (string, error) {
	cleaned := cleanSourceText(rawText)
	if cleaned == "" {
		return "", errNothingToTranslate
	}

	caption, err := failsafe.With(t.retry).WithContext(ctx).Get(func() (string, error) {
		return t.call(cleaned)
	})
	if err != nil {
		t.log.WithError(err).Warn("Translation failed after retries")
		return "", fmt.Errorf("%w: %v", errTranslationFailed, err)
	}

	return caption, nil
}

// callAnthropic performs a single translation attempt. An empty model
// response counts as a failed attempt and is retried.
func (t *CaptionTranslator) callAnthropic(cleaned string) (string, error) {
	settings := types.RequestSettings{
		Model:       t.settings.Model,
		MaxTokens:   t.settings.MaxTokens,
		Temperature: t.settings.Temperature,
	}

	response, err := anthropic.PromptWithSettings(t.systemPrompt, cleaned, "", t.apiKey, settings)
	if err != nil {
		return "", fmt.Errorf("translation call: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in translation response")
	}

	caption := strings.TrimSpace(response.Content[0].Text)
	if caption == "" {
		return "", fmt.Errorf("empty translation output")
	}
	return caption, nil
}

// cleanSourceText strips mentions, URLs and markdown links, then collapses
// all whitespace runs to single spaces.
func cleanSourceText(text string) string {
	cleaned := mdLinkPattern.ReplaceAllString(text, "")
	cleaned = urlPattern.ReplaceAllString(cleaned, "")
	cleaned = mentionPattern.ReplaceAllString(cleaned, "")
	return strings.Join(strings.Fields(cleaned), " ")
}
