package importissues

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"harukcal/backend/internal/storage"
)

// Importer backfills issues from a CSV file, skipping duplicate references.
type Importer struct {
	repo *storage.IssueRepository
}

// NewImporter creates a new issues importer
func NewImporter(repo *storage.IssueRepository) *Importer {
	return &Importer{repo: repo}
}

// ImportIssues imports issues from a CSV file with columns
// title, content, reference.
func (i *Importer) ImportIssues(ctx context.Context, csvPath string) error {
	log.Info().Str("csv", csvPath).Msg("Starting issues import")

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	if err := i.parseAndImport(ctx, f); err != nil {
		return fmt.Errorf("failed to import issues: %w", err)
	}

	log.Info().Msg("Import completed successfully")
	return nil
}

func (i *Importer) parseAndImport(ctx context.Context, csvData io.Reader) error {
	reader := csv.NewReader(csvData)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return err
	}

	log.Debug().Strs("header", header).Msg("CSV header read")

	expectedColumns := map[string]bool{
		"title": false, "content": false, "reference": false,
	}

	for _, column := range header {
		column = strings.ToLower(column)
		if _, exists := expectedColumns[column]; exists {
			expectedColumns[column] = true
		}
	}

	for column, found := range expectedColumns {
		if !found {
			return fmt.Errorf("required column '%s' not found in CSV header", column)
		}
	}

	titleIdx := findColumnIndex(header, "title")
	contentIdx := findColumnIndex(header, "content")
	referenceIdx := findColumnIndex(header, "reference")
	roleIdx := findColumnIndex(header, "role")

	lineCount := 1 // Header was already read
	successCount := 0
	duplicateCount := 0
	var importErrors []string

	for {
		lineCount++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", lineCount).Msg("Error reading CSV line")
			importErrors = append(importErrors, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			log.Debug().Int("line", lineCount).Msg("Skipping empty row")
			continue
		}

		title := safeGetValue(record, titleIdx)
		content := safeGetValue(record, contentIdx)
		reference := safeGetValue(record, referenceIdx)
		role := safeGetValue(record, roleIdx)
		if role == "" {
			role = "ADMIN"
		}

		if reference == "" {
			log.Warn().Int("line", lineCount).Msg("Skipping row with empty reference")
			importErrors = append(importErrors, fmt.Sprintf("line %d: empty reference", lineCount))
			continue
		}

		logger := log.With().
			Int("line", lineCount).
			Str("reference", reference).
			Logger()

		inserted, err := i.repo.Insert(ctx, title, content, reference, role)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to insert issue")
			importErrors = append(importErrors, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}
		if !inserted {
			logger.Warn().Msg("Duplicate reference")
			duplicateCount++
			continue
		}

		successCount++
		logger.Debug().Msg("Issue inserted successfully")
	}

	log.Info().
		Int("total", lineCount-1).
		Int("success", successCount).
		Int("duplicates", duplicateCount).
		Int("errors", len(importErrors)).
		Msg("Import summary")

	fmt.Printf("Imported %d issues successfully (%d duplicates skipped)\n", successCount, duplicateCount)
	if len(importErrors) > 0 {
		fmt.Printf("Encountered %d errors:\n", len(importErrors))
		for _, e := range importErrors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return nil
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(col, columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns the value at the given index or an empty string when
// the index is out of bounds.
func safeGetValue(record []string, index int) string {
	if index >= 0 && index < len(record) {
		return record[index]
	}
	return ""
}
