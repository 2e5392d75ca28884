package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// crawlInterval is the cooldown between scheduled runs.
	crawlInterval = 30 * 24 * time.Hour

	// probeDelay separates existence probes while scanning forward.
	probeDelay = 500 * time.Millisecond
)

// RunResult summarizes a scheduled or manual crawl run.
type RunResult struct {
	RunID             string         `json:"run_id"`
	Status            string         `json:"status"` // skipped | no_new_articles | completed | error
	Message           string         `json:"message,omitempty"`
	DaysUntilNext     *int           `json:"days_until_next,omitempty"`
	ArticlesFound     int            `json:"articles_found"`
	ArticlesCrawled   int            `json:"articles_crawled"`
	LastCrawledNumber int            `json:"last_crawled_number"`
	Cleanup           *CleanupResult `json:"cleanup_result,omitempty"`
	Results           []Outcome      `json:"results,omitempty"`
}

// CleanupResult reports a retention pass over the stored issues.
type CleanupResult struct {
	Status          string         `json:"status"` // skipped | completed | error
	Message         string         `json:"message"`
	ArticlesDeleted int64          `json:"articles_deleted"`
	Deleted         []DeletedIssue `json:"deleted_articles,omitempty"`
}

// DeletedIssue identifies a row removed by retention cleanup.
type DeletedIssue struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusReport is the crawler state exposed to the HTTP layer.
type StatusReport struct {
	LastCrawledNumber   int        `json:"last_crawled_number"`
	LastCrawlDate       *time.Time `json:"last_crawl_date"`
	DaysUntilNext       *int       `json:"days_until_next_crawl"`
	MaxArticlesPerMonth int        `json:"max_articles_per_month"`
	AutoIncrementLimit  int        `json:"auto_increment_limit"`
}

// Scheduler owns the persisted crawl state and drives the monthly cycle:
// probe forward for new article numbers, delegate the discovered range to the
// batch crawler, apply retention, persist progress.
type Scheduler struct {
	crawler *Crawler
	fetcher *Fetcher
	store   IssueStore
	state   *StateFile

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewScheduler creates a Scheduler over an existing crawler and state file.
func NewScheduler(c *Crawler, state *StateFile) *Scheduler {
	return &Scheduler{
		crawler: c,
		fetcher: c.fetcher,
		store:   c.store,
		state:   state,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// ShouldRunMonthly reports whether the 30-day cooldown has elapsed. A state
// with no recorded run is always due.
func (s *Scheduler) ShouldRunMonthly() bool {
	state := s.state.Get()
	if state.LastCrawlDate == nil {
		return true
	}
	return !s.now().Before(state.LastCrawlDate.Add(crawlInterval))
}

// FindNewArticles probes article numbers after+1 .. after+maxLookAhead in
// ascending order and returns the ids that exist. The scan stops at the first
// not-found answer or transport fault; journal ids are assigned densely, so
// the first gap marks the end of published content.
func (s *Scheduler) FindNewArticles(ctx context.Context, after, maxLookAhead int) []int {
	var found []int

	for i := 0; i < maxLookAhead; i++ {
		number := after + 1 + i

		ok, err := s.fetcher.Probe(ctx, number)
		if err != nil {
			log.Warn().Int("number", number).Err(err).Msg("Probe faulted, stopping search")
			break
		}
		if !ok {
			log.Info().Int("number", number).Msg("Article not found, stopping search")
			break
		}

		log.Info().Int("number", number).Msg("Found new article")
		found = append(found, number)

		s.sleep(ctx, probeDelay)
	}

	return found
}

// MonthlyCrawl performs the scheduled crawl cycle. It never fails as a whole:
// sub-operation faults degrade into the result record. When a run is due,
// last_crawl_date is updated regardless of outcome.
func (s *Scheduler) MonthlyCrawl(ctx context.Context) (result *RunResult) {
	runID := uuid.NewString()
	result = &RunResult{RunID: runID}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("run_id", runID).Interface("panic", r).Msg("Monthly crawl panicked")
			result.Status = "error"
			result.Message = fmt.Sprintf("monthly crawl panicked: %v", r)
		}
	}()

	log.Info().Str("run_id", runID).Msg("Monthly crawl invoked")

	state := s.state.Get()
	result.LastCrawledNumber = state.LastCrawledNumber

	if !s.ShouldRunMonthly() {
		days := s.daysUntilNext(state)
		result.Status = "skipped"
		result.DaysUntilNext = days
		if days != nil {
			result.Message = fmt.Sprintf("Monthly crawl not due yet. Next crawl in %d days.", *days)
		}
		return result
	}

	log.Info().Int("after", state.LastCrawledNumber).Msg("Searching for new articles")
	found := s.FindNewArticles(ctx, state.LastCrawledNumber, state.AutoIncrementLimit)
	result.ArticlesFound = len(found)

	if len(found) == 0 {
		s.touchLastCrawlDate()
		result.Status = "no_new_articles"
		result.Message = "No new articles found"
		return result
	}

	// Cap from the tail; the found sequence is ascending, so the lowest ids
	// are kept. Probing stops at the first gap, which makes the capped set
	// contiguous and [min,max] equal to the set itself.
	toCrawl := found
	if len(toCrawl) > state.MaxArticlesPerMonth {
		toCrawl = toCrawl[:state.MaxArticlesPerMonth]
	}

	log.Info().
		Int("found", len(found)).
		Int("crawling", len(toCrawl)).
		Msg("Crawling new articles")

	outcomes := s.crawler.CrawlRange(ctx, toCrawl[0], toCrawl[len(toCrawl)-1], state.RequestDelay())
	result.Results = outcomes

	successes := 0
	maxSuccess := 0
	for _, o := range outcomes {
		if o.Status == StatusSuccess {
			successes++
			if o.ArticleNumber > maxSuccess {
				maxSuccess = o.ArticleNumber
			}
		}
	}
	result.ArticlesCrawled = successes

	if successes > 0 {
		log.Info().Int("count", successes).Msg("Cleaning up oldest articles")
		result.Cleanup = s.CleanupOldest(ctx, successes)
	}

	if err := s.state.Update(func(st *State) {
		if maxSuccess > st.LastCrawledNumber {
			st.LastCrawledNumber = maxSuccess
		}
		now := s.now()
		st.LastCrawlDate = &now
	}); err != nil {
		log.Error().Err(err).Msg("Failed to persist crawl state")
	}

	result.LastCrawledNumber = s.state.Get().LastCrawledNumber
	result.Status = "completed"
	result.Message = fmt.Sprintf("Monthly crawl completed. Crawled %d articles.", successes)
	return result
}

// ManualCrawlFrom crawls [start, start+count-1] without the due-date gate.
// The last crawled number is advanced and persisted only when at least one
// article succeeded.
func (s *Scheduler) ManualCrawlFrom(ctx context.Context, start, count int) (result *RunResult) {
	runID := uuid.NewString()
	result = &RunResult{RunID: runID}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("run_id", runID).Interface("panic", r).Msg("Manual crawl panicked")
			result.Status = "error"
			result.Message = fmt.Sprintf("manual crawl panicked: %v", r)
		}
	}()

	log.Info().Str("run_id", runID).Int("start", start).Int("count", count).Msg("Manual crawl invoked")

	state := s.state.Get()
	result.LastCrawledNumber = state.LastCrawledNumber

	outcomes := s.crawler.CrawlRange(ctx, start, start+count-1, state.RequestDelay())
	result.Results = outcomes

	successes := 0
	maxSuccess := 0
	for _, o := range outcomes {
		if o.Status == StatusSuccess {
			successes++
			if o.ArticleNumber > maxSuccess {
				maxSuccess = o.ArticleNumber
			}
		}
	}
	result.ArticlesCrawled = successes
	result.ArticlesFound = len(outcomes)

	if successes > 0 {
		if err := s.state.Update(func(st *State) {
			if maxSuccess > st.LastCrawledNumber {
				st.LastCrawledNumber = maxSuccess
			}
		}); err != nil {
			log.Error().Err(err).Msg("Failed to persist crawl state")
		}
		result.LastCrawledNumber = s.state.Get().LastCrawledNumber
	}

	result.Status = "completed"
	result.Message = fmt.Sprintf("Manual crawl completed. Crawled %d articles.", successes)
	return result
}

// CleanupOldest deletes the count oldest issues by created_at. A store with
// count rows or fewer is left untouched. The reported deleted count is the
// store's affected-row count, which can differ from the request under
// concurrent modification.
func (s *Scheduler) CleanupOldest(ctx context.Context, count int) *CleanupResult {
	total, err := s.store.CountAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count stored issues")
		return &CleanupResult{Status: "error", Message: fmt.Sprintf("failed to count issues: %v", err)}
	}

	if total <= count {
		log.Info().Int("total", total).Int("requested", count).Msg("Not enough articles to delete")
		return &CleanupResult{
			Status:  "skipped",
			Message: fmt.Sprintf("Not enough articles to delete. Total: %d, Requested: %d", total, count),
		}
	}

	oldest, err := s.store.Oldest(ctx, count)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch oldest issues")
		return &CleanupResult{Status: "error", Message: fmt.Sprintf("failed to fetch oldest issues: %v", err)}
	}

	ids := make([]int64, 0, len(oldest))
	deleted := make([]DeletedIssue, 0, len(oldest))
	for _, issue := range oldest {
		ids = append(ids, issue.ID)
		deleted = append(deleted, DeletedIssue{ID: issue.ID, Title: issue.Title, CreatedAt: issue.CreatedAt})
	}

	affected, err := s.store.DeleteByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete oldest issues")
		return &CleanupResult{Status: "error", Message: fmt.Sprintf("failed to delete oldest issues: %v", err)}
	}

	log.Info().Int64("deleted", affected).Msg("Deleted oldest articles")
	return &CleanupResult{
		Status:          "completed",
		Message:         fmt.Sprintf("Deleted %d oldest articles", affected),
		ArticlesDeleted: affected,
		Deleted:         deleted,
	}
}

// Status reports the current crawler configuration and progress.
func (s *Scheduler) Status() *StatusReport {
	state := s.state.Get()
	return &StatusReport{
		LastCrawledNumber:   state.LastCrawledNumber,
		LastCrawlDate:       state.LastCrawlDate,
		DaysUntilNext:       s.daysUntilNext(state),
		MaxArticlesPerMonth: state.MaxArticlesPerMonth,
		AutoIncrementLimit:  state.AutoIncrementLimit,
	}
}

// touchLastCrawlDate records a run that made no other progress.
func (s *Scheduler) touchLastCrawlDate() {
	if err := s.state.Update(func(st *State) {
		now := s.now()
		st.LastCrawlDate = &now
	}); err != nil {
		log.Error().Err(err).Msg("Failed to persist crawl state")
	}
}

func (s *Scheduler) daysUntilNext(state State) *int {
	if state.LastCrawlDate == nil {
		return nil
	}
	days := int(state.LastCrawlDate.Add(crawlInterval).Sub(s.now()).Hours() / 24)
	return &days
}
