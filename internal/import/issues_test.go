package importissues

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harukcal/backend/internal/database"
	"harukcal/backend/internal/storage"
)

func newTestImporter(t *testing.T) (*Importer, *storage.IssueRepository) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDB(database.NewConfig(dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := storage.NewIssueRepository(db)
	return NewImporter(repo), repo
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "issues.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportIssues(t *testing.T) {
	importer, repo := newTestImporter(t)

	path := writeCSV(t, `title,content,reference
첫 번째 이슈,첫 번째 본문,https://example.com/1
두 번째 이슈,두 번째 본문,https://example.com/2
`)

	require.NoError(t, importer.ImportIssues(context.Background(), path))

	count, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImportIssuesSkipsDuplicates(t *testing.T) {
	importer, repo := newTestImporter(t)

	path := writeCSV(t, `title,content,reference
이슈,본문,https://example.com/1
중복 이슈,중복 본문,https://example.com/1
`)

	require.NoError(t, importer.ImportIssues(context.Background(), path))

	count, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The first row wins.
	issues, err := repo.List(context.Background(), 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "이슈", issues[0].Title)
}

func TestImportIssuesColumnOrderAndCase(t *testing.T) {
	importer, repo := newTestImporter(t)

	path := writeCSV(t, `Reference,Title,Content,Role
https://example.com/1,이슈,본문,USER
`)

	require.NoError(t, importer.ImportIssues(context.Background(), path))

	issues, err := repo.List(context.Background(), 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "이슈", issues[0].Title)
	assert.Equal(t, "본문", issues[0].Content)
	assert.Equal(t, "USER", issues[0].Role)
}

func TestImportIssuesMissingColumn(t *testing.T) {
	importer, _ := newTestImporter(t)

	path := writeCSV(t, `title,content
이슈,본문
`)

	err := importer.ImportIssues(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference")
}

func TestImportIssuesSkipsRowsWithEmptyReference(t *testing.T) {
	importer, repo := newTestImporter(t)

	path := writeCSV(t, `title,content,reference
유효한 이슈,본문,https://example.com/1
참조 없는 이슈,본문,
`)

	require.NoError(t, importer.ImportIssues(context.Background(), path))

	count, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestImportIssuesMissingFile(t *testing.T) {
	importer, _ := newTestImporter(t)
	assert.Error(t, importer.ImportIssues(context.Background(), "/does/not/exist.csv"))
}
