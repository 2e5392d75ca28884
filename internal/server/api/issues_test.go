package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harukcal/backend/internal/database"
	"harukcal/backend/internal/models"
	"harukcal/backend/internal/storage"
)

func newIssuesTestServer(t *testing.T) (*httptest.Server, *storage.IssueRepository) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDB(database.NewConfig(dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := storage.NewIssueRepository(db)
	h := NewIssuesHandler(repo)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/issues", h.List)
	mux.HandleFunc("GET /v1/issues/export", h.Export)
	mux.HandleFunc("GET /v1/issues/{id}", h.Get)
	mux.HandleFunc("POST /v1/issues", h.Create)
	mux.HandleFunc("PUT /v1/issues/{id}", h.Update)
	mux.HandleFunc("DELETE /v1/issues/{id}", h.Delete)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, repo
}

func seedIssue(t *testing.T, repo *storage.IssueRepository, title, reference string) *models.Issue {
	t.Helper()

	issue := models.NewIssue()
	issue.Title = title
	issue.Content = "content of " + title
	issue.Reference = reference

	created, err := repo.Create(context.Background(), issue)
	require.NoError(t, err)
	return created
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestListIssues(t *testing.T) {
	srv, repo := newIssuesTestServer(t)
	for i := 0; i < 3; i++ {
		seedIssue(t, repo, fmt.Sprintf("issue %d", i), fmt.Sprintf("ref-%d", i))
	}

	resp, err := http.Get(srv.URL + "/v1/issues")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[IssuesResponse](t, resp)
	assert.Len(t, body.Items, 3)
	assert.Nil(t, body.NextCursor)
}

func TestListIssuesPaginates(t *testing.T) {
	srv, repo := newIssuesTestServer(t)
	for i := 0; i < 5; i++ {
		seedIssue(t, repo, fmt.Sprintf("issue %d", i), fmt.Sprintf("ref-%d", i))
	}

	resp, err := http.Get(srv.URL + "/v1/issues?limit=2")
	require.NoError(t, err)
	first := decodeBody[IssuesResponse](t, resp)
	require.Len(t, first.Items, 2)
	require.NotNil(t, first.NextCursor)

	resp, err = http.Get(srv.URL + "/v1/issues?limit=10&cursor=" + *first.NextCursor)
	require.NoError(t, err)
	second := decodeBody[IssuesResponse](t, resp)
	assert.Len(t, second.Items, 3)
	assert.Nil(t, second.NextCursor)

	// No row may appear on both pages.
	seen := map[int64]bool{}
	for _, issue := range append(first.Items, second.Items...) {
		assert.False(t, seen[issue.ID], "issue %d returned twice", issue.ID)
		seen[issue.ID] = true
	}
}

func TestListIssuesRejectsBadParams(t *testing.T) {
	srv, _ := newIssuesTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/issues?limit=0")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/issues?cursor=garbage!!!")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetIssue(t *testing.T) {
	srv, repo := newIssuesTestServer(t)
	created := seedIssue(t, repo, "조회 대상", "ref-get")

	resp, err := http.Get(fmt.Sprintf("%s/v1/issues/%d", srv.URL, created.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	issue := decodeBody[models.Issue](t, resp)
	assert.Equal(t, created.ID, issue.ID)
	assert.Equal(t, "조회 대상", issue.Title)
}

func TestGetIssueNotFound(t *testing.T) {
	srv, _ := newIssuesTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/issues/99999")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateIssue(t *testing.T) {
	srv, _ := newIssuesTestServer(t)

	payload, _ := json.Marshal(CreateIssueRequest{
		Title:     "새 이슈",
		Content:   "이슈 본문",
		Reference: "ref-new",
	})

	resp, err := http.Post(srv.URL+"/v1/issues", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	issue := decodeBody[models.Issue](t, resp)
	assert.NotZero(t, issue.ID)
	assert.Equal(t, "새 이슈", issue.Title)
	assert.Equal(t, "ADMIN", issue.Role)
}

func TestCreateIssueValidation(t *testing.T) {
	srv, _ := newIssuesTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/issues", "application/json", strings.NewReader(`{"title":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/v1/issues", "application/json", strings.NewReader("{broken"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateIssue(t *testing.T) {
	srv, repo := newIssuesTestServer(t)
	created := seedIssue(t, repo, "원래 제목", "ref-upd")

	req, _ := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/v1/issues/%d", srv.URL, created.ID),
		strings.NewReader(`{"title":"수정된 제목"}`))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	issue := decodeBody[models.Issue](t, resp)
	assert.Equal(t, "수정된 제목", issue.Title)
	assert.Equal(t, "content of 원래 제목", issue.Content)
}

func TestUpdateIssueEmptyBody(t *testing.T) {
	srv, repo := newIssuesTestServer(t)
	created := seedIssue(t, repo, "제목", "ref-upd2")

	req, _ := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/v1/issues/%d", srv.URL, created.ID),
		strings.NewReader(`{}`))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteIssue(t *testing.T) {
	srv, repo := newIssuesTestServer(t)
	created := seedIssue(t, repo, "삭제 대상", "ref-del")

	req, _ := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/v1/issues/%d", srv.URL, created.ID), nil)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Gone now.
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportIssuesCSV(t *testing.T) {
	srv, repo := newIssuesTestServer(t)
	seedIssue(t, repo, "수출 대상", "ref-csv")

	resp, err := http.Get(srv.URL + "/v1/issues/export")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,title,content,reference,created_at", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "수출 대상")
}
