package models

import (
	"database/sql"
	"time"
)

// Issue represents a row in the issues table. Reference is the canonical
// source URL and is unique across the table.
type Issue struct {
	ID        int64         `db:"id" json:"id"`
	Title     string        `db:"title" json:"title"`
	Content   string        `db:"content" json:"content"`
	Reference string        `db:"reference" json:"reference"`
	Role      string        `db:"role" json:"role"`
	AdminID   sql.NullInt64 `db:"admin_id" json:"-"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// NewIssue creates a new Issue with default attribution and timestamps.
func NewIssue() *Issue {
	now := time.Now().UTC()
	return &Issue{
		Role:      "ADMIN",
		CreatedAt: now,
		UpdatedAt: now,
	}
}
