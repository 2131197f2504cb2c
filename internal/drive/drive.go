// Package drive lists sequencing files held in a shared storage folder.
package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/exprgate/exprgate/internal/secret"
)

// DefaultBaseURL is the public Google Drive API endpoint.
const DefaultBaseURL = "https://www.googleapis.com"

// maxPages bounds pagination for a single folder listing.
const maxPages = 50

// ErrListFailed is returned when the provider rejects a listing.
var ErrListFailed = errors.New("drive listing failed")

// Lister lists file names in a folder via the Drive v3 files endpoint.
type Lister struct {
	baseURL    string
	key        secret.Credential
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
}

// NewLister creates a Lister authenticated with key.
func NewLister(baseURL string, key secret.Credential, httpClient *http.Client) *Lister {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Lister{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: httpClient,
		backoff:    nextRetryDelay,
	}
}

type filesPage struct {
	Files []struct {
		Name string `json:"name"`
	} `json:"files"`
	NextPageToken string `json:"nextPageToken"`
}

// ListBAM returns the names of BAM files directly inside folderID.
func (l *Lister) ListBAM(ctx context.Context, folderID string) ([]string, error) {
	names := []string{}
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		result, err := l.fetch(ctx, folderID, pageToken)
		if err != nil {
			return nil, err
		}
		for _, f := range result.Files {
			if strings.Contains(f.Name, ".bam") {
				names = append(names, f.Name)
			}
		}
		if result.NextPageToken == "" {
			return names, nil
		}
		pageToken = result.NextPageToken
	}

	return names, nil
}

// fetch retries transport failures, 429 and 5xx responses with backoff.
func (l *Lister) fetch(ctx context.Context, folderID, pageToken string) (*filesPage, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(l.backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		page, retry, err := l.fetchOnce(ctx, folderID, pageToken)
		if err == nil {
			return page, nil
		}
		if !retry || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (l *Lister) fetchOnce(ctx context.Context, folderID, pageToken string) (*filesPage, bool, error) {
	q := url.Values{}
	q.Set("corpora", "user")
	q.Set("includeItemsFromAllDrives", "true")
	q.Set("supportsAllDrives", "true")
	q.Set("q", fmt.Sprintf("'%s' in parents", strings.ReplaceAll(folderID, "'", `\'`)))
	q.Set("fields", "nextPageToken,files(name)")
	q.Set("key", l.key.Value())
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/drive/v3/files?"+q.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrListFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, isRetryable(resp.StatusCode), fmt.Errorf("%w: status %d", ErrListFailed, resp.StatusCode)
	}

	var page filesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, false, fmt.Errorf("%w: decode: %v", ErrListFailed, err)
	}
	return &page, false, nil
}
