package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"postforge/internal/logging"
	"postforge/internal/services"
)

const createSnapshotsTable = `CREATE TABLE IF NOT EXISTS snapshots (
    id BIGSERIAL PRIMARY KEY,
    document_id TEXT NOT NULL,
    stage TEXT NOT NULL,
    content TEXT NOT NULL,
    attributes JSONB NOT NULL DEFAULT '{}'::jsonb,
    captured_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS snapshots_document_idx ON snapshots (document_id, captured_at);`

// PostgresConfig holds pool settings for the PostgreSQL archive.
type PostgresConfig struct {
	DSN         string
	MaxConns    int32
	DialTimeout time.Duration
}

// Postgres archives snapshots as rows of an insert-only table.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time
}

// OpenPostgres connects, creates the snapshots table when missing and
// returns the archive.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "archive-postgres")
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("archive: postgres dsn required")
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("archive: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "postforge"

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("archive: connect: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}
	if _, err := pool.Exec(connectCtx, createSnapshotsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: create snapshots table: %w", err)
	}
	logger.Info("postgres archive connected", logging.String(logging.FieldEventType, "archive_connected"))
	return &Postgres{pool: pool, logger: logger, now: time.Now}, nil
}

// Store inserts snap and returns postgres:snapshots/<id>.
func (p *Postgres) Store(ctx context.Context, snap Snapshot) (string, error) {
	if strings.TrimSpace(snap.DocumentID) == "" {
		return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "document id required", nil)
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = p.now()
	}
	attributes := snap.Attributes
	if attributes == nil {
		attributes = map[string]string{}
	}
	attrJSON, err := json.Marshal(attributes)
	if err != nil {
		return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "encode attributes", err)
	}
	var id int64
	err = p.pool.QueryRow(ctx,
		`INSERT INTO snapshots (document_id, stage, content, attributes, captured_at)
         VALUES ($1, $2, $3, $4::jsonb, $5) RETURNING id`,
		strings.TrimSpace(snap.DocumentID),
		snap.Stage,
		snap.Content,
		string(attrJSON),
		snap.CapturedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "insert row", err)
	}
	return fmt.Sprintf("postgres:snapshots/%d", id), nil
}

// List returns the snapshots of documentID ordered by capture time.
func (p *Postgres) List(ctx context.Context, documentID string) ([]Entry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, document_id, stage, captured_at FROM snapshots WHERE document_id = $1 ORDER BY captured_at, id`,
		strings.TrimSpace(documentID),
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			id    int64
			entry Entry
		)
		if err := rows.Scan(&id, &entry.DocumentID, &entry.Stage, &entry.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		entry.Location = fmt.Sprintf("postgres:snapshots/%d", id)
		entry.CapturedAt = entry.CapturedAt.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}

// HealthCheck pings the pool.
func (p *Postgres) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases the pool.
func (p *Postgres) Close() error {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
	return nil
}
