package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// MetadataDB records one row per transcription job in SQLite
type MetadataDB struct {
	db  *sql.DB
	now func() time.Time
}

// NewMetadataDB creates a new metadata database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_name TEXT NOT NULL UNIQUE,
		source_bucket TEXT NOT NULL,
		source_key TEXT NOT NULL,
		status TEXT NOT NULL,
		output_bucket TEXT NOT NULL DEFAULT '',
		output_key TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_source_key ON transcripts(source_key);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db, now: time.Now}, nil
}

// RecordSubmitted inserts the row for a freshly submitted job
func (mdb *MetadataDB) RecordSubmitted(jobName string, src types.SourceRef) error {
	query := `
	INSERT INTO transcripts (job_name, source_bucket, source_key, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	now := mdb.now().UTC()
	_, err := mdb.db.Exec(query, jobName, src.Bucket, src.Key, string(types.StatusSubmitted), now, now)
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %w", err)
	}
	return nil
}

// RecordOutcome stores the terminal status of a job
func (mdb *MetadataDB) RecordOutcome(jobName string, status types.JobStatus, outputBucket, outputKey, message string) error {
	query := `
	UPDATE transcripts
	SET status = ?, output_bucket = ?, output_key = ?, message = ?, updated_at = ?
	WHERE job_name = ?
	`

	res, err := mdb.db.Exec(query, string(status), outputBucket, outputKey, message, mdb.now().UTC(), jobName)
	if err != nil {
		return fmt.Errorf("failed to update transcript metadata: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: job %s", types.ErrNotFound, jobName)
	}
	return nil
}

const selectColumns = `job_name, source_bucket, source_key, status, output_bucket, output_key, message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.TranscriptRecord, error) {
	var (
		rec    types.TranscriptRecord
		status string
	)
	err := row.Scan(&rec.JobName, &rec.SourceBucket, &rec.SourceKey, &status,
		&rec.OutputBucket, &rec.OutputKey, &rec.Message, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = types.JobStatus(status)
	return &rec, nil
}

// GetTranscript retrieves transcript metadata by job name
func (mdb *MetadataDB) GetTranscript(jobName string) (*types.TranscriptRecord, error) {
	row := mdb.db.QueryRow(`SELECT `+selectColumns+` FROM transcripts WHERE job_name = ?`, jobName)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", types.ErrNotFound, jobName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return rec, nil
}

// ListTranscripts returns the newest transcripts first
func (mdb *MetadataDB) ListTranscripts(limit int) ([]types.TranscriptRecord, error) {
	rows, err := mdb.db.Query(`SELECT `+selectColumns+` FROM transcripts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := []types.TranscriptRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, *rec)
	}
	return transcripts, rows.Err()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
