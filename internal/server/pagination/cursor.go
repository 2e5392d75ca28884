// Package pagination implements the opaque cursor used by the issue listing.
// A cursor names the last issue of a page by its (created_at, id) pair; the
// next page starts strictly after that row in the newest-first order.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const cursorSeparator = ","

// Nanosecond precision: issue rows crawled in one batch can share a second.
const timeFormat = time.RFC3339Nano

// EncodeCursor builds the cursor for the issue with the given creation time
// and id. The timestamp is normalized to UTC before encoding.
func EncodeCursor(createdAt time.Time, issueID int64) string {
	key := createdAt.UTC().Format(timeFormat) + cursorSeparator + strconv.FormatInt(issueID, 10)
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor recovers the (created_at, id) pair from an issue cursor.
// Malformed cursors fail decoding rather than silently restarting the list.
func DecodeCursor(cursor string) (time.Time, int64, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	createdPart, idPart, found := strings.Cut(string(raw), cursorSeparator)
	if !found {
		return time.Time{}, 0, fmt.Errorf("invalid cursor format")
	}

	createdAt, err := time.Parse(timeFormat, createdPart)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid timestamp in cursor: %w", err)
	}

	issueID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid id in cursor: %w", err)
	}

	return createdAt.UTC(), issueID, nil
}
