package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"harukcal/backend/internal/models"
	"harukcal/backend/internal/summarize"
)

// IssueStore is the narrow persistence interface the crawl pipeline needs.
// Each operation is individually transactional; the crawler performs no
// multi-statement transactions.
type IssueStore interface {
	Exists(ctx context.Context, reference string) (bool, error)
	// Insert stores a new issue. Returns false without writing when a row
	// with the same reference already exists.
	Insert(ctx context.Context, title, content, reference, role string) (bool, error)
	CountAll(ctx context.Context) (int, error)
	Oldest(ctx context.Context, n int) ([]models.Issue, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

// Status classifies a per-id crawl outcome.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusException Status = "exception"
)

// Outcome records what happened for a single article number during a crawl.
type Outcome struct {
	ArticleNumber int    `json:"article_number"`
	URL           string `json:"url"`
	Status        Status `json:"status"`
	Title         string `json:"title,omitempty"`
	ContentLength int    `json:"content_length,omitempty"`
	Reference     string `json:"reference,omitempty"`
	Error         string `json:"error,omitempty"`
}

// CrawlResult is the result of crawling a single article by URL.
type CrawlResult struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Reference string `json:"reference"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Crawler drives the fetch → extract → summarize → store pipeline. All work
// across article ids is strictly sequential; the inter-request delay is the
// only rate limiting.
type Crawler struct {
	fetcher    *Fetcher
	summarizer summarize.Summarizer
	store      IssueStore

	// sleep is injectable so tests run without real delays.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a Crawler over the given fetcher, summarizer and store.
func New(fetcher *Fetcher, summarizer summarize.Summarizer, store IssueStore) *Crawler {
	return &Crawler{
		fetcher:    fetcher,
		summarizer: summarizer,
		store:      store,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// CrawlOne fetches, extracts, summarizes and stores a single article.
func (c *Crawler) CrawlOne(ctx context.Context, pageURL string) (*CrawlResult, error) {
	doc, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	article, err := ExtractArticle(doc)
	if err != nil {
		return nil, err
	}

	title := summarize.ShortKoreanTitle(ctx, c.summarizer, article.Title, summarize.DefaultTitleWords)
	content := summarize.Content(ctx, c.summarizer, article.Body)

	inserted, err := c.store.Insert(ctx, title, content, pageURL, "ADMIN")
	if err != nil {
		return nil, fmt.Errorf("failed to store article %s: %w", pageURL, err)
	}
	if !inserted {
		log.Info().Str("reference", pageURL).Msg("Duplicate reference, insert skipped")
	}

	return &CrawlResult{
		Title:     title,
		Content:   content,
		Reference: pageURL,
		Duplicate: !inserted,
	}, nil
}

// CrawlRange crawls every article number from start to end inclusive, in
// ascending order, sleeping delay between consecutive ids but not after the
// last. One outcome per id, always.
func (c *Crawler) CrawlRange(ctx context.Context, start, end int, delay time.Duration) []Outcome {
	log.Info().
		Int("start", start).
		Int("end", end).
		Dur("delay", delay).
		Msg("Starting batch crawl")

	var results []Outcome
	for number := start; number <= end; number++ {
		pageURL := c.fetcher.ArticleURL(number)

		result, err := c.CrawlOne(ctx, pageURL)
		switch {
		case err == nil:
			log.Info().Int("number", number).Str("title", result.Title).Msg("Article crawled")
			results = append(results, Outcome{
				ArticleNumber: number,
				URL:           pageURL,
				Status:        StatusSuccess,
				Title:         result.Title,
				ContentLength: len(result.Content),
				Reference:     result.Reference,
			})
		case IsNotAnArticle(err):
			log.Warn().Int("number", number).Err(err).Msg("Article crawl failed")
			results = append(results, Outcome{
				ArticleNumber: number,
				URL:           pageURL,
				Status:        StatusError,
				Error:         err.Error(),
			})
		default:
			log.Error().Int("number", number).Err(err).Msg("Article crawl faulted")
			results = append(results, Outcome{
				ArticleNumber: number,
				URL:           pageURL,
				Status:        StatusException,
				Error:         err.Error(),
			})
		}

		if number < end {
			c.sleep(ctx, delay)
		}
	}

	summary := summarizeOutcomes(results)
	log.Info().
		Int("total", len(results)).
		Int("success", summary[StatusSuccess]).
		Int("errors", summary[StatusError]).
		Int("exceptions", summary[StatusException]).
		Msg("Batch crawl finished")

	return results
}

// CrawlNext crawls the count articles after current: [current+1, current+count].
func (c *Crawler) CrawlNext(ctx context.Context, current, count int, delay time.Duration) []Outcome {
	return c.CrawlRange(ctx, current+1, current+count, delay)
}

// CrawlPrevious crawls the count articles before current: [current-count, current-1].
func (c *Crawler) CrawlPrevious(ctx context.Context, current, count int, delay time.Duration) []Outcome {
	return c.CrawlRange(ctx, current-count, current-1, delay)
}

func summarizeOutcomes(results []Outcome) map[Status]int {
	counts := make(map[Status]int, 3)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}
