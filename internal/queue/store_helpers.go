package queue

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const itemColumns = "position, post_id, keyword, seo_title, processed_at, last_error, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		position     int
		postID       string
		keyword      string
		seoTitle     sql.NullString
		processedRaw sql.NullString
		lastError    sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&position,
		&postID,
		&keyword,
		&seoTitle,
		&processedRaw,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return Record{}, err
	}

	record := Record{
		WorkItem: WorkItem{
			ID:       postID,
			Keyword:  keyword,
			SEOTitle: seoTitle.String,
			Position: position,
		},
		LastError: lastError.String,
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			record.ProcessedAt = &processed
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	record.Status = record.State()
	return record, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
