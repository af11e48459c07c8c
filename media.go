package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// maxMediaBytes caps a single media download. Graph uploads larger than
// this would be rejected anyway.
const maxMediaBytes = 100 << 20

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// resourceScope owns downloaded media artifacts for one item's processing
// window. Release must run on every exit path of the enclosing operation.
type resourceScope interface {
	Download(url, itemID string, index int) (string, error)
	Count() int
	Release()
}

// mediaScope downloads media to uniquely named files in a temp directory
// and deletes them all on Release. Deletion failure is logged, never
// escalated.
type mediaScope struct {
	client *http.Client
	dir    string
	files  []string
	log    *logrus.Logger
}

func newMediaScope(client *http.Client, logger *logrus.Logger) *mediaScope {
	if client == nil {
		client = &http.Client{}
	}
	return &mediaScope{
		client: client,
		dir:    os.TempDir(),
		log:    logger,
	}
}

// Download fetches the media at url into a local file named from the item
// id and index, with the extension sniffed from the content. The file is
// tracked for Release regardless of what the caller does with it.
func (s *mediaScope) Download(url, itemID string, index int) (string, error) {
	resp, err := s.client.Get(url)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return "", fmt.Errorf("reading media body: %w", err)
	}

	ext := mimetype.Detect(body).Extension()
	if ext == "" {
		ext = ".bin"
	}

	name := fmt.Sprintf("siaran_%s_%d%s", sanitizeID(itemID), index, ext)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("writing media file: %w", err)
	}

	s.files = append(s.files, path)
	return path, nil
}

// Count returns how many artifacts this scope currently owns.
func (s *mediaScope) Count() int {
	return len(s.files)
}

// Release deletes every downloaded artifact. Best effort: failures are
// logged and the remaining files are still removed.
func (s *mediaScope) Release() {
	for _, path := range s.files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.WithError(err).Warnf("Failed to remove media file %s", path)
		}
	}
	s.files = nil
}

// sanitizeID makes an item id safe to embed in a filename.
func sanitizeID(id string) string {
	cleaned := unsafeIDChars.ReplaceAllString(id, "-")
	if cleaned == "" {
		return "item"
	}
	return cleaned
}
