// Package crawler implements the sequential crawl, scheduling and retention
// core: fetching journal article pages by numeric id, extracting their
// structured content, and driving the monthly crawl cycle.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// notFoundMarker is the error string the journal embeds in otherwise valid
// HTML when an article number does not exist.
const notFoundMarker = "유효한 KJCN 저널 기사를 찾을 수 없습니다"

const (
	fetchTimeout = 10 * time.Second
	probeTimeout = 5 * time.Second
)

var (
	// ErrArticleNotFound marks a page that answered but is not a valid
	// article: non-2xx status or the journal's not-found marker.
	ErrArticleNotFound = errors.New("article not found")
	// ErrTitleNotFound marks a page without a recognizable title element.
	ErrTitleNotFound = errors.New("article title not found")
	// ErrBodyNotFound marks a page missing the article body container.
	ErrBodyNotFound = errors.New("article body not found")
	// ErrEmptyBody marks a page whose body container holds no section text.
	ErrEmptyBody = errors.New("article body is empty")
)

// IsNotAnArticle reports whether err means the page exists but does not carry
// the journal's article structure, as opposed to a transport fault.
func IsNotAnArticle(err error) bool {
	return errors.Is(err, ErrArticleNotFound) ||
		errors.Is(err, ErrTitleNotFound) ||
		errors.Is(err, ErrBodyNotFound) ||
		errors.Is(err, ErrEmptyBody)
}

// Fetcher retrieves journal article pages. A single GET per id, no retries.
type Fetcher struct {
	baseURL string
	client  *http.Client
	probes  *http.Client
}

// NewFetcher creates a Fetcher for the given journal base URL.
func NewFetcher(baseURL string) *Fetcher {
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: fetchTimeout},
		probes:  &http.Client{Timeout: probeTimeout},
	}
}

// ArticleURL builds the canonical URL for an article number.
func (f *Fetcher) ArticleURL(number int) string {
	return f.baseURL + "?number=" + strconv.Itoa(number)
}

// ArticleNumber extracts the numeric id from a canonical article URL.
// Returns 0 when the URL carries no parseable number parameter.
func (f *Fetcher) ArticleNumber(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(u.Query().Get("number"))
	if err != nil {
		return 0
	}
	return n
}

// Fetch performs a single GET and returns the parsed document. A non-2xx
// status or the not-found marker yields ErrArticleNotFound; transport faults
// are returned as-is.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", pageURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed for %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d for %s", ErrArticleNotFound, resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body for %s: %w", pageURL, err)
	}

	if strings.Contains(string(body), notFoundMarker) {
		return nil, fmt.Errorf("%w: %s", ErrArticleNotFound, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for %s: %w", pageURL, err)
	}

	return doc, nil
}

// Probe checks whether an article number exists without extracting content.
// Returns false with a nil error for a definite not-found answer and false
// with the error for transport faults; either way the caller stops scanning.
func (f *Fetcher) Probe(ctx context.Context, number int) (bool, error) {
	pageURL := f.ArticleURL(number)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build probe request for %s: %w", pageURL, err)
	}

	resp, err := f.probes.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe failed for %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("number", number).Int("status", resp.StatusCode).Msg("Probe returned non-OK status")
		return false, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read probe body for %s: %w", pageURL, err)
	}

	if strings.Contains(string(body), notFoundMarker) {
		return false, nil
	}
	return true, nil
}
