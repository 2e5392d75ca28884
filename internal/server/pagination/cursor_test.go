package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 30, 45, 123456789, time.UTC)

	cursor := EncodeCursor(ts, 42)
	gotTS, gotID, err := DecodeCursor(cursor)

	require.NoError(t, err)
	assert.True(t, gotTS.Equal(ts))
	assert.Equal(t, int64(42), gotID)
}

func TestCursorNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	ts := time.Date(2026, 8, 28, 19, 30, 0, 0, loc)

	cursor := EncodeCursor(ts, 7)
	gotTS, _, err := DecodeCursor(cursor)

	require.NoError(t, err)
	assert.Equal(t, time.UTC, gotTS.Location())
	assert.True(t, gotTS.Equal(ts))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, cursor := range []string{
		"not base64 !!!",
		"bm8tc2VwYXJhdG9y",     // "no-separator"
		"bm90LWEtdGltZSwxMjM=", // "not-a-time,123"
	} {
		_, _, err := DecodeCursor(cursor)
		assert.Error(t, err, "cursor %q", cursor)
	}
}
