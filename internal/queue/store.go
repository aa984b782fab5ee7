package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Add appends a pending work item for postID.
func (s *Store) Add(ctx context.Context, postID, keyword, seoTitle string) (WorkItem, error) {
	postID = strings.TrimSpace(postID)
	keyword = strings.TrimSpace(keyword)
	if postID == "" {
		return WorkItem{}, invalidItem("post id required")
	}
	if keyword == "" {
		return WorkItem{}, invalidItem("keyword required")
	}
	now := s.timestamp()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO work_items (post_id, keyword, seo_title, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		postID,
		keyword,
		nullableString(strings.TrimSpace(seoTitle)),
		now,
		now,
	)
	if err != nil {
		return WorkItem{}, fmt.Errorf("insert work item: %w", err)
	}
	position, err := res.LastInsertId()
	if err != nil {
		return WorkItem{}, fmt.Errorf("last insert id: %w", err)
	}
	return WorkItem{
		ID:       postID,
		Keyword:  keyword,
		SEOTitle: strings.TrimSpace(seoTitle),
		Position: int(position),
		Status:   StatusPending,
	}, nil
}

// Import adds items whose post id has no pending row yet and returns the
// number of rows inserted.
func (s *Store) Import(ctx context.Context, items []WorkItem) (int, error) {
	added := 0
	for _, item := range items {
		var count int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM work_items WHERE post_id = ? AND processed_at IS NULL`,
			strings.TrimSpace(item.ID),
		).Scan(&count); err != nil {
			return added, fmt.Errorf("check existing item: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := s.Add(ctx, item.ID, item.Keyword, item.SEOTitle); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Get fetches a row by queue position.
func (s *Store) Get(ctx context.Context, position int) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE position = ?`, position)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work item: %w", err)
	}
	return &record, nil
}

// List returns every row in queue order.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM work_items ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	return scanRecords(rows)
}

// ListPending returns unprocessed items in queue order, including items
// that failed on an earlier run.
func (s *Store) ListPending(ctx context.Context) ([]WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE processed_at IS NULL ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	items := make([]WorkItem, 0, len(records))
	for _, record := range records {
		item := record.WorkItem
		item.Status = StatusPending
		items = append(items, item)
	}
	return items, nil
}

// NextPending returns the oldest unprocessed item or nil.
func (s *Store) NextPending(ctx context.Context) (*WorkItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE processed_at IS NULL ORDER BY position LIMIT 1`)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending item: %w", err)
	}
	item := record.WorkItem
	item.Status = StatusPending
	return &item, nil
}

// MarkProcessed stamps the processed marker on the item's row and clears
// any recorded failure.
func (s *Store) MarkProcessed(ctx context.Context, item WorkItem) error {
	now := s.timestamp()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items SET processed_at = ?, last_error = NULL, updated_at = ?
         WHERE position = ? AND post_id = ?`,
		now,
		now,
		item.Position,
		item.ID,
	)
	if err != nil {
		return markFailed(item, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return markFailed(item, err)
	}
	if affected == 0 {
		return markFailed(item, errors.New("no matching queue row"))
	}
	return nil
}

// RecordFailure stores reason on the item's row; the row stays pending.
func (s *Store) RecordFailure(ctx context.Context, item WorkItem, reason string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE work_items SET last_error = ?, updated_at = ? WHERE position = ? AND processed_at IS NULL`,
		nullableString(reason),
		s.timestamp(),
		item.Position,
	)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// Reset clears the processed marker and failure reason for the given
// positions, or for every row when none are given.
func (s *Store) Reset(ctx context.Context, positions ...int) (int64, error) {
	query := `UPDATE work_items SET processed_at = NULL, last_error = NULL, updated_at = ?`
	args := []any{s.timestamp()}
	if len(positions) > 0 {
		query += ` WHERE position IN (` + makePlaceholders(len(positions)) + `)`
		for _, position := range positions {
			args = append(args, position)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset work items: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes the row at position.
func (s *Store) Remove(ctx context.Context, position int) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM work_items WHERE position = ?`, position)
	if err != nil {
		return false, fmt.Errorf("delete work item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
