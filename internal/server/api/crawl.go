package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"

	"harukcal/backend/internal/crawler"
)

const defaultCrawlDelay = 1.0 // seconds
const defaultCrawlCount = 5
const defaultManualCount = 10
const defaultCleanupCount = 10

// CrawlHandler exposes the crawl and retention operations.
type CrawlHandler struct {
	crawler   *crawler.Crawler
	scheduler *crawler.Scheduler
}

// NewCrawlHandler creates a new handler instance.
func NewCrawlHandler(c *crawler.Crawler, s *crawler.Scheduler) *CrawlHandler {
	return &CrawlHandler{crawler: c, scheduler: s}
}

// RangeResponse wraps batch crawl outcomes.
type RangeResponse struct {
	Message string            `json:"message"`
	Results []crawler.Outcome `json:"results"`
}

// CrawlOne handles POST /v1/crawl?url=.
func (h *CrawlHandler) CrawlOne(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		http.Error(w, "Missing required parameter: 'url'", http.StatusBadRequest)
		return
	}

	result, err := h.crawler.CrawlOne(r.Context(), pageURL)
	if err != nil {
		if crawler.IsNotAnArticle(err) {
			writeJSON(w, r, http.StatusUnprocessableEntity, map[string]string{
				"error":     err.Error(),
				"reference": pageURL,
			})
			return
		}
		log.Error().Err(err).Str("url", pageURL).Msg("Crawl failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// CrawlRange handles POST /v1/crawl/range?start=&end=&delay=.
func (h *CrawlHandler) CrawlRange(w http.ResponseWriter, r *http.Request) {
	start, ok := intParam(w, r, "start", 0, true)
	if !ok {
		return
	}
	end, ok := intParam(w, r, "end", 0, true)
	if !ok {
		return
	}
	delay, ok := delayParam(w, r)
	if !ok {
		return
	}

	results := h.crawler.CrawlRange(r.Context(), start, end, delay)
	writeJSON(w, r, http.StatusOK, RangeResponse{
		Message: fmt.Sprintf("Batch crawl completed for articles %d to %d", start, end),
		Results: results,
	})
}

// CrawlNext handles POST /v1/crawl/next?current=&count=&delay=.
func (h *CrawlHandler) CrawlNext(w http.ResponseWriter, r *http.Request) {
	current, ok := intParam(w, r, "current", 0, true)
	if !ok {
		return
	}
	count, ok := intParam(w, r, "count", defaultCrawlCount, false)
	if !ok {
		return
	}
	delay, ok := delayParam(w, r)
	if !ok {
		return
	}

	results := h.crawler.CrawlNext(r.Context(), current, count, delay)
	writeJSON(w, r, http.StatusOK, RangeResponse{
		Message: fmt.Sprintf("Crawled next %d articles starting from %d", count, current),
		Results: results,
	})
}

// CrawlPrevious handles POST /v1/crawl/previous?current=&count=&delay=.
func (h *CrawlHandler) CrawlPrevious(w http.ResponseWriter, r *http.Request) {
	current, ok := intParam(w, r, "current", 0, true)
	if !ok {
		return
	}
	count, ok := intParam(w, r, "count", defaultCrawlCount, false)
	if !ok {
		return
	}
	delay, ok := delayParam(w, r)
	if !ok {
		return
	}

	results := h.crawler.CrawlPrevious(r.Context(), current, count, delay)
	writeJSON(w, r, http.StatusOK, RangeResponse{
		Message: fmt.Sprintf("Crawled previous %d articles ending at %d", count, current),
		Results: results,
	})
}

// Monthly handles POST /v1/crawl/monthly. The due-date gate decides whether
// anything actually runs.
func (h *CrawlHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	result := h.scheduler.MonthlyCrawl(r.Context())
	writeJSON(w, r, http.StatusOK, result)
}

// Manual handles POST /v1/crawl/manual?start=&count=.
func (h *CrawlHandler) Manual(w http.ResponseWriter, r *http.Request) {
	start, ok := intParam(w, r, "start", 0, true)
	if !ok {
		return
	}
	count, ok := intParam(w, r, "count", defaultManualCount, false)
	if !ok {
		return
	}

	result := h.scheduler.ManualCrawlFrom(r.Context(), start, count)
	writeJSON(w, r, http.StatusOK, result)
}

// Cleanup handles POST /v1/crawl/cleanup?count=.
func (h *CrawlHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	count, ok := intParam(w, r, "count", defaultCleanupCount, false)
	if !ok {
		return
	}

	result := h.scheduler.CleanupOldest(r.Context(), count)
	writeJSON(w, r, http.StatusOK, result)
}

// Status handles GET /v1/crawl/status.
func (h *CrawlHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.scheduler.Status())
}

// intParam parses an integer query parameter, writing a 400 response when it
// is missing (and required) or malformed.
func intParam(w http.ResponseWriter, r *http.Request, name string, defaultValue int, required bool) (int, bool) {
	valStr := r.URL.Query().Get(name)
	if valStr == "" {
		if required {
			http.Error(w, fmt.Sprintf("Missing required parameter: '%s'", name), http.StatusBadRequest)
			return 0, false
		}
		return defaultValue, true
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid '%s' parameter", name), http.StatusBadRequest)
		return 0, false
	}
	return val, true
}

func delayParam(w http.ResponseWriter, r *http.Request) (time.Duration, bool) {
	valStr := r.URL.Query().Get("delay")
	if valStr == "" {
		return time.Duration(defaultCrawlDelay * float64(time.Second)), true
	}

	seconds, err := strconv.ParseFloat(valStr, 64)
	if err != nil || seconds < 0 {
		http.Error(w, "Invalid 'delay' parameter", http.StatusBadRequest)
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
