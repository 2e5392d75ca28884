package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"harukcal/backend/internal/models"
)

// stubSummarizer echoes its inputs so tests can assert on pipeline wiring
// without a model.
type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, text string) (string, error) {
	return "요약: " + text, nil
}

func (stubSummarizer) Translate(_ context.Context, text string) (string, error) {
	return "번역: " + text, nil
}

func (stubSummarizer) ShortenTitle(_ context.Context, title string, _ int) (string, error) {
	return title, nil
}

// memStore is an in-memory IssueStore keeping insertion order.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	issues []models.Issue

	insertErr error
}

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func (m *memStore) Exists(_ context.Context, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, issue := range m.issues {
		if issue.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Insert(ctx context.Context, title, content, reference, role string) (bool, error) {
	if m.insertErr != nil {
		return false, m.insertErr
	}
	if exists, _ := m.Exists(ctx, reference); exists {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = append(m.issues, models.Issue{
		ID:        m.nextID,
		Title:     title,
		Content:   content,
		Reference: reference,
		Role:      role,
		CreatedAt: time.Now().Add(time.Duration(m.nextID) * time.Second),
	})
	m.nextID++
	return true, nil
}

func (m *memStore) CountAll(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.issues), nil
}

func (m *memStore) Oldest(_ context.Context, n int) ([]models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.issues) {
		n = len(m.issues)
	}
	oldest := make([]models.Issue, n)
	copy(oldest, m.issues[:n])
	return oldest, nil
}

func (m *memStore) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	toDelete := make(map[int64]bool, len(ids))
	for _, id := range ids {
		toDelete[id] = true
	}

	var kept []models.Issue
	var deleted int64
	for _, issue := range m.issues {
		if toDelete[issue.ID] {
			deleted++
			continue
		}
		kept = append(kept, issue)
	}
	m.issues = kept
	return deleted, nil
}

func articlePage(number int) string {
	return fmt.Sprintf(`<html><body>
  <h3 class="tit_ko">테스트 기사 제목 %d번</h3>
  <div class="contents"><div class="articleCon">
    <h4 class="link-target">초록</h4>
    <dd>기사 %d의 본문입니다.</dd>
  </div></div>
</body></html>`, number, number)
}

const notFoundPage = `<html><body><p>유효한 KJCN 저널 기사를 찾을 수 없습니다</p></body></html>`

// journalServer serves article pages for the given ids and the journal's
// not-found page for everything else.
func journalServer(articles map[int]bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.Atoi(r.URL.Query().Get("number"))
		if err != nil || !articles[number] {
			fmt.Fprint(w, notFoundPage)
			return
		}
		fmt.Fprint(w, articlePage(number))
	}))
}

// noSleep replaces the injectable delay so tests run instantly.
func noSleep(context.Context, time.Duration) {}

func newTestCrawler(baseURL string, store IssueStore) *Crawler {
	c := New(NewFetcher(baseURL), stubSummarizer{}, store)
	c.sleep = noSleep
	return c
}
