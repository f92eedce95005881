package queue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Row is one document in doc_text_extraction_queue, limited to the columns
// the extraction pipeline reads.
type Row struct {
	ExtractionID         int64
	DocID                string
	DocName              string
	FileExt              string
	SourceURI            string
	DatalakeRawURI       string
	Password             string
	TextExtractionStatus int
	NumberOfPages        int
}

// Store is the Postgres-backed queue store. Every operation is a single
// statement; the pool reconnects lazily.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the Service 1 database.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// Ping checks database connectivity (used by the status endpoint).
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// FetchPending reads active rows for the requested extraction ids.
func (s *Store) FetchPending(ctx context.Context, ids []int64) ([]Row, error) {
	const q = `
		SELECT extraction_id, doc_id, COALESCE(doc_name, ''), COALESCE(file_ext, ''),
		       COALESCE(source_uri, ''), COALESCE(datalake_raw_uri, ''), COALESCE(password, ''),
		       COALESCE(text_extraction_status, 0), COALESCE(number_of_pages, 0)
		FROM doc_text_extraction_queue
		WHERE extraction_id = ANY($1) AND is_active = true`

	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch pending: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ExtractionID, &r.DocID, &r.DocName, &r.FileExt,
			&r.SourceURI, &r.DatalakeRawURI, &r.Password,
			&r.TextExtractionStatus, &r.NumberOfPages); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TryAcquireLock flips is_processing from false to true in one conditional
// update. Returns false when another worker already holds the row.
func (s *Store) TryAcquireLock(ctx context.Context, docID string) (bool, error) {
	const q = `
		UPDATE doc_text_extraction_queue
		SET is_processing = TRUE, processing_started_at = now(), updated_at = now()
		WHERE doc_id = $1 AND is_processing = FALSE`

	tag, err := s.pool.Exec(ctx, q, docID)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", docID, err)
	}
	if tag.RowsAffected() == 1 {
		log.Info().Str("doc_id", docID).Msg("acquired processing lock")
		return true, nil
	}
	return false, nil
}

// ReleaseLock unconditionally clears the processing lock.
func (s *Store) ReleaseLock(ctx context.Context, docID string) error {
	const q = `
		UPDATE doc_text_extraction_queue
		SET is_processing = FALSE, processing_started_at = NULL, updated_at = now()
		WHERE doc_id = $1`

	if _, err := s.pool.Exec(ctx, q, docID); err != nil {
		return fmt.Errorf("release lock %s: %w", docID, err)
	}
	log.Info().Str("doc_id", docID).Msg("released processing lock")
	return nil
}

var statusFields = map[string]bool{
	"text_extraction_status": true,
}

var uriFields = map[string]bool{
	"datalake_raw_uri":  true,
	"datalake_text_uri": true,
}

// SetStatus writes a whitelisted integer status column.
func (s *Store) SetStatus(ctx context.Context, docID, field string, value int) error {
	if !statusFields[field] {
		return fmt.Errorf("set status: unknown field %q", field)
	}
	q := `UPDATE doc_text_extraction_queue SET ` + field + ` = $1, updated_at = now() WHERE doc_id = $2`
	if _, err := s.pool.Exec(ctx, q, value, docID); err != nil {
		return fmt.Errorf("set %s=%d for %s: %w", field, value, docID, err)
	}
	return nil
}

// SetURI writes a whitelisted URI column.
func (s *Store) SetURI(ctx context.Context, docID, field, value string) error {
	if !uriFields[field] {
		return fmt.Errorf("set uri: unknown field %q", field)
	}
	q := `UPDATE doc_text_extraction_queue SET ` + field + ` = $1, updated_at = now() WHERE doc_id = $2`
	if _, err := s.pool.Exec(ctx, q, value, docID); err != nil {
		return fmt.Errorf("set %s for %s: %w", field, docID, err)
	}
	return nil
}

// SetError writes the same message to both error columns.
func (s *Store) SetError(ctx context.Context, docID, message string) error {
	const q = `
		UPDATE doc_text_extraction_queue
		SET last_error_message = $1, error_message = $1, updated_at = now()
		WHERE doc_id = $2`

	if _, err := s.pool.Exec(ctx, q, message, docID); err != nil {
		return fmt.Errorf("set error for %s: %w", docID, err)
	}
	return nil
}

// SetDuration records the extraction duration in seconds.
func (s *Store) SetDuration(ctx context.Context, docID string, seconds int) error {
	const q = `
		UPDATE doc_text_extraction_queue
		SET text_extraction_duration_seconds = $1, updated_at = now()
		WHERE doc_id = $2`

	if _, err := s.pool.Exec(ctx, q, seconds, docID); err != nil {
		return fmt.Errorf("set duration for %s: %w", docID, err)
	}
	return nil
}

// TouchLastProcessed stamps last_processed_at, updated_at and extracted_at.
func (s *Store) TouchLastProcessed(ctx context.Context, docID string) error {
	const q = `
		UPDATE doc_text_extraction_queue
		SET last_processed_at = now(), updated_at = now(), extracted_at = now()
		WHERE doc_id = $1`

	if _, err := s.pool.Exec(ctx, q, docID); err != nil {
		return fmt.Errorf("touch last processed for %s: %w", docID, err)
	}
	return nil
}
