package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

type UploadRepository struct {
	db *sql.DB
}

func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *UploadRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS uploads (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	partner_name TEXT NOT NULL,
	status TEXT NOT NULL,
	failure_kind TEXT NOT NULL DEFAULT '',
	record_id TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_uploads_status ON uploads(status);
CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at DESC);

CREATE TABLE IF NOT EXISTS conversation_messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_messages_conversation
	ON conversation_messages(conversation_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO uploads (
	id, filename, mime_type, storage_path, partner_name, status, failure_kind, record_id, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		upload.ID, upload.Filename, upload.MimeType, upload.StoragePath, upload.PartnerName,
		string(upload.Status), string(upload.FailureKind), upload.RecordID, upload.Error,
		upload.CreatedAt, upload.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

func (r *UploadRepository) GetByID(ctx context.Context, id string) (*domain.Upload, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, partner_name, status, failure_kind, record_id, error_message, created_at, updated_at
FROM uploads
WHERE id = $1
`, id)

	var upload domain.Upload
	var status, failureKind string

	err := row.Scan(
		&upload.ID, &upload.Filename, &upload.MimeType, &upload.StoragePath, &upload.PartnerName,
		&status, &failureKind, &upload.RecordID, &upload.Error, &upload.CreatedAt, &upload.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrUploadNotFound, "get upload", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan upload: %w", err)
	}

	upload.Status = domain.UploadStatus(status)
	upload.FailureKind = domain.FailureKind(failureKind)
	return &upload, nil
}

func (r *UploadRepository) UpdateStatus(ctx context.Context, id string, status domain.UploadStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE uploads
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update upload status: %w", err)
	}
	return checkRowAffected(result, id)
}

func (r *UploadRepository) SaveOutcome(ctx context.Context, id string, outcome domain.IngestOutcome) error {
	recordID := ""
	if outcome.Record != nil {
		recordID = outcome.Record.ID
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE uploads
SET status = $2, failure_kind = $3, record_id = $4, error_message = $5, updated_at = $6
WHERE id = $1
`, id, string(outcome.UploadStatus()), string(outcome.FailureKind), recordID, outcome.Message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save ingest outcome: %w", err)
	}
	return checkRowAffected(result, id)
}

func checkRowAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrUploadNotFound, "update upload", fmt.Errorf("id=%s", id))
	}
	return nil
}
