package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"

	"harukcal/backend/internal/models"
	"harukcal/backend/internal/server/pagination"
	"harukcal/backend/internal/storage"
)

const defaultLimit = 100
const maxLimit = 1000

// IssuesResponse is the paginated list payload.
type IssuesResponse struct {
	Items      []models.Issue `json:"items"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// IssuesHandler serves CRUD over the issues table.
type IssuesHandler struct {
	repo *storage.IssueRepository
}

// NewIssuesHandler creates a new handler instance.
func NewIssuesHandler(repo *storage.IssueRepository) *IssuesHandler {
	return &IssuesHandler{repo: repo}
}

// List handles GET /v1/issues with optional cursor pagination, newest first.
func (h *IssuesHandler) List(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	query := r.URL.Query()

	limit := defaultLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 || parsedLimit > maxLimit {
			log.Warn().Err(err).Str("limit", limitStr).Msg("Invalid 'limit' parameter value")
			http.Error(w, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", maxLimit), http.StatusBadRequest)
			return
		}
		limit = parsedLimit
	}

	var cursorTimestamp *time.Time
	var cursorID *int64
	if cursorStr := query.Get("cursor"); cursorStr != "" {
		ts, id, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			log.Warn().Err(err).Str("cursor", cursorStr).Msg("Invalid 'cursor' parameter")
			http.Error(w, "Invalid 'cursor' parameter", http.StatusBadRequest)
			return
		}
		cursorTimestamp = &ts
		cursorID = &id
	}

	items, err := h.repo.List(r.Context(), limit+1, cursorTimestamp, cursorID) // Fetch one extra
	if err != nil {
		log.Error().Err(err).Msg("Error fetching issues from repository")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var nextCursorStr *string
	if len(items) > limit {
		items = items[:limit]
		lastItem := items[len(items)-1]
		cursor := pagination.EncodeCursor(lastItem.CreatedAt.UTC(), lastItem.ID)
		nextCursorStr = &cursor
	}

	writeJSON(w, r, http.StatusOK, IssuesResponse{Items: items, NextCursor: nextCursorStr})
}

// Get handles GET /v1/issues/{id}.
func (h *IssuesHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid issue id", http.StatusBadRequest)
		return
	}

	issue, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Issue not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Error fetching issue")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, issue)
}

// CreateIssueRequest is the POST /v1/issues payload.
type CreateIssueRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Reference string `json:"reference"`
}

// Create handles POST /v1/issues.
func (h *IssuesHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	var req CreateIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Content == "" {
		http.Error(w, "title and content are required", http.StatusBadRequest)
		return
	}

	issue := models.NewIssue()
	issue.Title = req.Title
	issue.Content = req.Content
	issue.Reference = req.Reference

	created, err := h.repo.Create(r.Context(), issue)
	if err != nil {
		log.Error().Err(err).Msg("Error creating issue")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusCreated, created)
}

// Update handles PUT /v1/issues/{id} with a partial body.
func (h *IssuesHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid issue id", http.StatusBadRequest)
		return
	}

	var update storage.IssueUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if update.Empty() {
		http.Error(w, "No fields to update", http.StatusBadRequest)
		return
	}

	issue, err := h.repo.Update(r.Context(), id, update)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Issue not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Error updating issue")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, issue)
}

// Delete handles DELETE /v1/issues/{id}.
func (h *IssuesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid issue id", http.StatusBadRequest)
		return
	}

	err = h.repo.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Issue not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Error deleting issue")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Issue %d deleted successfully", id),
	})
}

// Export handles GET /v1/issues/export, streaming all issues as CSV.
func (h *IssuesHandler) Export(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	// Page through the repository; the list is newest first.
	var all []models.Issue
	var cursorTimestamp *time.Time
	var cursorID *int64
	for {
		page, err := h.repo.List(r.Context(), maxLimit+1, cursorTimestamp, cursorID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to query issues for export")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if len(page) > maxLimit {
			page = page[:maxLimit]
			last := page[len(page)-1]
			ts := last.CreatedAt.UTC()
			cursorTimestamp = &ts
			cursorID = &last.ID
			all = append(all, page...)
			continue
		}
		all = append(all, page...)
		break
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=issues.csv")

	csvWriter := csv.NewWriter(w)

	header := []string{"id", "title", "content", "reference", "created_at"}
	if err := csvWriter.Write(header); err != nil {
		log.Error().Err(err).Msg("Failed to write CSV header")
		http.Error(w, "Error generating CSV", http.StatusInternalServerError)
		return
	}

	for _, issue := range all {
		record := []string{
			strconv.FormatInt(issue.ID, 10),
			issue.Title,
			issue.Content,
			issue.Reference,
			issue.CreatedAt.Format(time.RFC3339),
		}
		if err := csvWriter.Write(record); err != nil {
			log.Error().Err(err).Msg("Failed to write CSV record")
			return
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		log.Error().Err(err).Msg("Error flushing CSV data")
		return
	}

	log.Info().Int("issue_count", len(all)).Msg("Exported issues as CSV")
}

// writeJSON marshals v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	log := hlog.FromRequest(r)

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
	}
}
