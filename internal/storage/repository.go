// Package storage implements the issues repository over sqlx. It serves both
// the HTTP layer (CRUD, listing) and the crawl pipeline (dedup insert,
// retention).
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"harukcal/backend/internal/database"
	"harukcal/backend/internal/models"
)

// ErrNotFound is returned when an issue id does not exist.
var ErrNotFound = errors.New("issue not found")

// adminAccountID is the member id recorded for rows inserted by the crawl
// pipeline under the ADMIN role.
const adminAccountID = 8

// IssueRepository provides access to the issues table. Every operation is
// individually transactional.
type IssueRepository struct {
	db *database.DB
}

// NewIssueRepository creates a repository over an existing connection.
func NewIssueRepository(db *database.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Exists reports whether a row with the given reference is stored.
func (r *IssueRepository) Exists(ctx context.Context, reference string) (bool, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, "SELECT id FROM issues WHERE reference = ?", reference)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check reference %s: %w", reference, err)
	}
	return true, nil
}

// Insert stores a new issue keyed by reference. Returns false without
// writing when the reference already exists; the UNIQUE constraint backs the
// check under concurrent inserts.
func (r *IssueRepository) Insert(ctx context.Context, title, content, reference, role string) (bool, error) {
	exists, err := r.Exists(ctx, reference)
	if err != nil {
		return false, err
	}
	if exists {
		log.Debug().Str("reference", reference).Msg("Duplicate reference detected")
		return false, nil
	}

	adminID := sql.NullInt64{}
	if role == "ADMIN" {
		adminID = sql.NullInt64{Int64: adminAccountID, Valid: true}
	}

	// Stored in UTC so the pagination cursor compares consistently.
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO issues (title, content, reference, role, admin_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(reference) DO NOTHING`,
		title, content, reference, role, adminID, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to insert issue %s: %w", reference, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for %s: %w", reference, err)
	}
	return affected > 0, nil
}

// CountAll returns the number of stored issues.
func (r *IssueRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM issues"); err != nil {
		return 0, fmt.Errorf("failed to count issues: %w", err)
	}
	return count, nil
}

// Oldest returns the n oldest issues ascending by created_at.
func (r *IssueRepository) Oldest(ctx context.Context, n int) ([]models.Issue, error) {
	var issues []models.Issue
	err := r.db.SelectContext(ctx, &issues,
		"SELECT * FROM issues ORDER BY created_at ASC, id ASC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch oldest issues: %w", err)
	}
	return issues, nil
}

// DeleteByIDs removes the given issue ids in one statement and returns the
// store's affected-row count.
func (r *IssueRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In("DELETE FROM issues WHERE id IN (?)", ids)
	if err != nil {
		return 0, fmt.Errorf("failed to build bulk delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete issues: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted row count: %w", err)
	}
	return affected, nil
}

// List returns issues newest first. With a cursor (created_at and id of the
// last item of the previous page) it returns the strictly older rows.
func (r *IssueRepository) List(ctx context.Context, limit int, cursorTimestamp *time.Time, cursorID *int64) ([]models.Issue, error) {
	var issues []models.Issue
	var query string
	var args []any

	const baseQuery = `SELECT * FROM issues `
	const orderBy = ` ORDER BY created_at DESC, id DESC LIMIT ?`

	if cursorTimestamp != nil && cursorID != nil {
		query = baseQuery + `WHERE (created_at < ?) OR (created_at = ? AND id < ?)` + orderBy
		args = append(args, cursorTimestamp.UTC(), cursorTimestamp.UTC(), *cursorID, limit)
	} else {
		query = baseQuery + orderBy
		args = append(args, limit)
	}

	err := r.db.SelectContext(ctx, &issues, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Issue{}, nil
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return issues, nil
}

// GetByID fetches one issue or ErrNotFound.
func (r *IssueRepository) GetByID(ctx context.Context, id int64) (*models.Issue, error) {
	var issue models.Issue
	err := r.db.GetContext(ctx, &issue, "SELECT * FROM issues WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue %d: %w", id, err)
	}
	return &issue, nil
}

// Create inserts a manually administered issue and returns it with its
// assigned id.
func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now
	if issue.Role == "" {
		issue.Role = "ADMIN"
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO issues (title, content, reference, role, admin_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		issue.Title, issue.Content, issue.Reference, issue.Role, issue.AdminID, issue.CreatedAt, issue.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get created issue id: %w", err)
	}
	issue.ID = id
	return issue, nil
}

// IssueUpdate carries the optional fields of a partial update.
type IssueUpdate struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Reference *string `json:"reference"`
}

// Empty reports whether the update carries no fields.
func (u IssueUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Reference == nil
}

// Update applies a partial update and returns the updated row.
// ErrNotFound when the id does not exist.
func (r *IssueRepository) Update(ctx context.Context, id int64, update IssueUpdate) (*models.Issue, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	var fields []string
	var args []any

	if update.Title != nil {
		fields = append(fields, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Content != nil {
		fields = append(fields, "content = ?")
		args = append(args, *update.Content)
	}
	if update.Reference != nil {
		fields = append(fields, "reference = ?")
		args = append(args, *update.Reference)
	}

	fields = append(fields, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := fmt.Sprintf("UPDATE issues SET %s WHERE id = ?", strings.Join(fields, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update issue %d: %w", id, err)
	}

	return r.GetByID(ctx, id)
}

// Delete removes one issue by id. ErrNotFound when the id does not exist.
func (r *IssueRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM issues WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete issue %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deleted row count for %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
