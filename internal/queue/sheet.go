package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"postforge/internal/config"
	"postforge/internal/logging"
	"postforge/internal/services"
)

// SheetColumns names the header cells the sheet backend reads and writes.
type SheetColumns struct {
	Keyword   string
	SEOTitle  string
	PostID    string
	Processed string
}

type columnIndex struct {
	keyword   int
	seoTitle  int
	postID    int
	processed int
}

// workbook is one read of the sheet: the open file, the resolved sheet name
// and column positions, and every row as read while resolving them.
type workbook struct {
	file  *excelize.File
	name  string
	index columnIndex
	rows  [][]string
}

// Sheet is a work-item source backed by an XLSX workbook. The first row
// holds headers; a data row is pending while its processed cell is empty.
type Sheet struct {
	mu      sync.Mutex
	path    string
	name    string
	columns SheetColumns
	logger  *slog.Logger
	now     func() time.Time
}

// NewSheetFromConfig builds the sheet backend from the [queue] section.
func NewSheetFromConfig(cfg *config.Config, logger *slog.Logger) (*Sheet, error) {
	return OpenSheet(cfg.Queue.SheetPath, cfg.Queue.SheetName, SheetColumns{
		Keyword:   cfg.Queue.KeywordColumn,
		SEOTitle:  cfg.Queue.SEOTitleColumn,
		PostID:    cfg.Queue.PostIDColumn,
		Processed: cfg.Queue.ProcessedColumn,
	}, logger)
}

// OpenSheet verifies the workbook at path carries the required headers.
// An empty sheetName selects the first worksheet.
func OpenSheet(path, sheetName string, columns SheetColumns, logger *slog.Logger) (*Sheet, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "open sheet", "sheet path required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	sheet := &Sheet{
		path:    path,
		name:    strings.TrimSpace(sheetName),
		columns: columns,
		logger:  logging.NewComponentLogger(logger, "queue-sheet"),
		now:     time.Now,
	}
	wb, err := sheet.load()
	if err != nil {
		return nil, err
	}
	_ = wb.file.Close()
	sheet.name = wb.name
	sheet.logger.Debug("sheet opened",
		logging.String("path", path),
		logging.String("sheet", wb.name),
		logging.Int("post_id_column", wb.index.postID+1),
	)
	return sheet, nil
}

func (s *Sheet) load() (*workbook, error) {
	file, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	name := s.name
	if name == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			_ = file.Close()
			return nil, fmt.Errorf("workbook %s has no sheets", s.path)
		}
		name = sheets[0]
	}
	rows, err := file.GetRows(name)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		_ = file.Close()
		return nil, fmt.Errorf("sheet %q has no header row", name)
	}
	index, err := s.resolveColumns(rows[0])
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &workbook{file: file, name: name, index: index, rows: rows}, nil
}

func (s *Sheet) resolveColumns(header []string) (columnIndex, error) {
	find := func(label string) int {
		label = strings.TrimSpace(label)
		if label == "" {
			return -1
		}
		for i, cell := range header {
			if strings.EqualFold(strings.TrimSpace(cell), label) {
				return i
			}
		}
		return -1
	}
	index := columnIndex{
		keyword:   find(s.columns.Keyword),
		seoTitle:  find(s.columns.SEOTitle),
		postID:    find(s.columns.PostID),
		processed: find(s.columns.Processed),
	}
	var missing []string
	if index.keyword < 0 {
		missing = append(missing, s.columns.Keyword)
	}
	if index.postID < 0 {
		missing = append(missing, s.columns.PostID)
	}
	if index.processed < 0 {
		missing = append(missing, s.columns.Processed)
	}
	if len(missing) > 0 {
		return columnIndex{}, services.Wrap(services.ErrConfiguration, "", "open sheet",
			fmt.Sprintf("missing header columns: %s", strings.Join(missing, ", ")), nil)
	}
	return index, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ListPending returns the rows whose processed cell is empty, in sheet order.
// The workbook is re-read on every call so external edits are honoured.
func (s *Sheet) ListPending(ctx context.Context) ([]WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.pendingLocked(0)
}

// NextPending returns the first pending row or nil.
func (s *Sheet) NextPending(ctx context.Context) (*WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, err := s.pendingLocked(1)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func (s *Sheet) pendingLocked(limit int) ([]WorkItem, error) {
	wb, err := s.load()
	if err != nil {
		return nil, err
	}
	defer wb.file.Close()
	return s.pendingRows(wb.rows, wb.index, limit), nil
}

// pendingRows selects pending items from rows, header first.
func (s *Sheet) pendingRows(rows [][]string, index columnIndex, limit int) []WorkItem {
	var items []WorkItem
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		rowNumber := i + 1
		if cellAt(row, index.processed) != "" {
			continue
		}
		postID := cellAt(row, index.postID)
		keyword := cellAt(row, index.keyword)
		if postID == "" {
			if keyword != "" {
				s.logger.Warn("sheet row skipped",
					logging.String(logging.FieldEventType, "queue_row_skipped"),
					logging.Int("row", rowNumber),
					logging.String("keyword", keyword),
					logging.String(logging.FieldErrorHint, "fill in the post id column"),
					logging.String(logging.FieldImpact, "row will not be processed"),
				)
			}
			continue
		}
		items = append(items, WorkItem{
			ID:       postID,
			Keyword:  keyword,
			SEOTitle: cellAt(row, index.seoTitle),
			Position: rowNumber,
			Status:   StatusPending,
		})
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items
}

// MarkProcessed writes the current time into the processed cell of the
// item's row and saves the workbook. The row must still carry the item's
// post id.
func (s *Sheet) MarkProcessed(ctx context.Context, item WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return markFailed(item, err)
	}
	wb, err := s.load()
	if err != nil {
		return markFailed(item, err)
	}
	defer wb.file.Close()

	var current string
	if item.Position >= 1 && item.Position <= len(wb.rows) {
		current = cellAt(wb.rows[item.Position-1], wb.index.postID)
	}
	if current != item.ID {
		return markFailed(item, fmt.Errorf("row %d now holds post %q", item.Position, current))
	}

	markerCell, err := excelize.CoordinatesToCellName(wb.index.processed+1, item.Position)
	if err != nil {
		return markFailed(item, err)
	}
	if err := wb.file.SetCellValue(wb.name, markerCell, s.now().UTC().Format(time.RFC3339)); err != nil {
		return markFailed(item, err)
	}
	if err := wb.file.Save(); err != nil {
		return markFailed(item, err)
	}
	return nil
}

// HealthCheck verifies the workbook is readable and carries the headers.
func (s *Sheet) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("workbook %s does not exist", s.path)
		}
		return err
	}
	wb, err := s.load()
	if err != nil {
		return err
	}
	return wb.file.Close()
}

// Close is a no-op; the workbook is opened per operation.
func (s *Sheet) Close() error {
	return nil
}

// Path returns the workbook location.
func (s *Sheet) Path() string {
	return s.path
}
