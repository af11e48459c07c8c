package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v19.0"

// GraphError is a non-2xx response from the Graph API.
type GraphError struct {
	StatusCode int
	Body       string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph API returned status %d: %s", e.StatusCode, e.Body)
}

// Publisher posts captions to the publishing target. Every operation is a
// plain pass/fail: a nil error means the post shipped. None of the
// operations retry internally; the orchestrator's fallback chain decides
// what happens after a failure.
type Publisher interface {
	PublishText(ctx context.Context, caption string) error
	PublishPhotos(ctx context.Context, paths []string, caption string) error
	PublishVideo(ctx context.Context, path string, caption string) error
}

// PagePublisher posts to a Facebook page through the Graph API. Each call
// exchanges the long-lived user token for a fresh page token first; a
// failed exchange is reported exactly like a failed publish.
type PagePublisher struct {
	baseURL   string
	pageID    string
	userToken string
	client    *http.Client
	log       *logrus.Logger
}

// PagePublisherOption customizes a PagePublisher.
type PagePublisherOption func(*PagePublisher)

// WithGraphBaseURL overrides the Graph API base URL.
func WithGraphBaseURL(baseURL string) PagePublisherOption {
	return func(p *PagePublisher) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithGraphHTTPClient overrides the HTTP client.
func WithGraphHTTPClient(client *http.Client) PagePublisherOption {
	return func(p *PagePublisher) {
		if client != nil {
			p.client = client
		}
	}
}

// NewPagePublisher creates a publisher for one page.
func NewPagePublisher(pageID, userToken string, logger *logrus.Logger, opts ...PagePublisherOption) *PagePublisher {
	p := &PagePublisher{
		baseURL:   defaultGraphBaseURL,
		pageID:    pageID,
		userToken: userToken,
		client:    &http.Client{Timeout: 60 * time.Second},
		log:       logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// pageToken exchanges the user token for the page access token of the
// first managed page.
func (p *PagePublisher) pageToken(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/me/accounts?access_token=%s", p.baseURL, url.QueryEscape(p.userToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &GraphError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var accounts struct {
		Data []struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &accounts); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}
	if len(accounts.Data) == 0 || accounts.Data[0].AccessToken == "" {
		return "", fmt.Errorf("no page token in accounts response")
	}

	return accounts.Data[0].AccessToken, nil
}

// PublishText posts a text-only message to the page feed.
func (p *PagePublisher) PublishText(ctx context.Context, caption string) error {
	token, err := p.pageToken(ctx)
	if err != nil {
		return err
	}

	form := url.Values{
		"message":      {caption},
		"access_token": {token},
	}
	if err := p.postForm(ctx, fmt.Sprintf("%s/%s/feed", p.baseURL, p.pageID), form, nil); err != nil {
		return err
	}

	p.log.Info("Text post published")
	return nil
}

// PublishPhotos stages each photo as an unpublished upload, skipping
// uploads that fail, then creates one aggregate feed post attaching every
// staged photo. Zero staged photos fails the operation; a partial set does
// not.
func (p *PagePublisher) PublishPhotos(ctx context.Context, paths []string, caption string) error {
	token, err := p.pageToken(ctx)
	if err != nil {
		return err
	}

	var attached []map[string]string
	for _, path := range paths {
		id, err := p.stagePhoto(ctx, path, token)
		if err != nil {
			p.log.WithError(err).Warnf("Skipping photo %s", filepath.Base(path))
			continue
		}
		attached = append(attached, map[string]string{"media_fbid": id})
	}
	if len(attached) == 0 {
		return fmt.Errorf("no photos staged successfully")
	}

	attachedJSON, err := json.Marshal(attached)
	if err != nil {
		return fmt.Errorf("marshaling attached media: %w", err)
	}

	form := url.Values{
		"message":        {caption},
		"attached_media": {string(attachedJSON)},
		"access_token":   {token},
	}
	if err := p.postForm(ctx, fmt.Sprintf("%s/%s/feed", p.baseURL, p.pageID), form, nil); err != nil {
		return err
	}

	p.log.Infof("Photo post published with %d of %d photos", len(attached), len(paths))
	return nil
}

// PublishVideo uploads one video with the caption as description.
// All-or-nothing: any non-success response fails the operation.
func (p *PagePublisher) PublishVideo(ctx context.Context, path string, caption string) error {
	token, err := p.pageToken(ctx)
	if err != nil {
		return err
	}

	fields := map[string]string{
		"description":  caption,
		"access_token": token,
	}
	var upload struct {
		ID string `json:"id"`
	}
	if err := p.postMultipart(ctx, fmt.Sprintf("%s/%s/videos", p.baseURL, p.pageID), fields, path, &upload); err != nil {
		return err
	}

	p.log.Info("Video post published")
	return nil
}

// stagePhoto uploads one photo with published=false and returns its media id.
func (p *PagePublisher) stagePhoto(ctx context.Context, path, token string) (string, error) {
	fields := map[string]string{
		"published":    "false",
		"access_token": token,
	}
	var upload struct {
		ID string `json:"id"`
	}
	if err := p.postMultipart(ctx, fmt.Sprintf("%s/%s/photos", p.baseURL, p.pageID), fields, path, &upload); err != nil {
		return "", err
	}
	if upload.ID == "" {
		return "", fmt.Errorf("no media id in upload response")
	}
	return upload.ID, nil
}

// postForm submits a urlencoded form and optionally decodes the response.
func (p *PagePublisher) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.doJSON(req, out)
}

// postMultipart submits form fields plus one file under the "source" part.
func (p *PagePublisher) postMultipart(ctx context.Context, endpoint string, fields map[string]string, filePath string, out any) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening media file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("writing form field: %w", err)
		}
	}
	part, err := writer.CreateFormFile("source", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copying media file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return p.doJSON(req, out)
}

// doJSON executes a request, maps non-2xx to GraphError and decodes the
// body into out when provided.
func (p *PagePublisher) doJSON(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading graph response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GraphError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parsing graph response: %w", err)
		}
	}
	return nil
}
