// Package store keeps a PostgreSQL log of plate reads and the queue of reads
// waiting for manual review.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	perrors "plate-reader/internal/errors"
	"plate-reader/internal/ocr"
	"plate-reader/internal/pipeline"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a read id is unknown.
var ErrNotFound = errors.New("plate read not found")

const schema = `
CREATE TABLE IF NOT EXISTS plate_reads (
	id                  UUID PRIMARY KEY,
	source              TEXT NOT NULL DEFAULT '',
	label               TEXT NOT NULL DEFAULT '',
	detector_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	plate               TEXT NOT NULL DEFAULT '',
	symbols             TEXT[] NOT NULL DEFAULT '{}',
	angle               INTEGER NOT NULL DEFAULT 0,
	candidates          INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	reason              TEXT NOT NULL DEFAULT '',
	reviewed_plate      TEXT,
	similarity          DOUBLE PRECISION,
	reviewed_at         TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS plate_reads_pending_idx
	ON plate_reads (created_at) WHERE reviewed_at IS NULL;
`

// Record is one row of plate_reads.
type Record struct {
	ID                 uuid.UUID       `json:"id"`
	Source             string          `json:"source"`
	Label              string          `json:"label"`
	DetectorConfidence float64         `json:"detector_confidence"`
	Plate              string          `json:"plate"`
	Symbols            []string        `json:"symbols"`
	Angle              int             `json:"angle"`
	Candidates         int             `json:"candidates"`
	Status             pipeline.Status `json:"status"`
	Reason             string          `json:"reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// NeedsReview reports whether a person should look at the plate.
func (r Record) NeedsReview() bool {
	return r.Status == pipeline.StatusSegmentationFailure || r.Status == pipeline.StatusEmpty
}

// FromRead builds a Record from the result of pipeline.Reader.Read. The
// record keeps the read's ID so log lines and the review queue agree; crop
// supplies source and detector fields when there is no read at all.
func FromRead(crop pipeline.Crop, read *pipeline.Read, err error) Record {
	rec := Record{
		Source:             crop.Source,
		Label:              crop.Label,
		DetectorConfidence: crop.Confidence,
		Status:             pipeline.StatusOf(read, err),
	}
	if read != nil {
		rec.ID = read.ID
	} else {
		rec.ID = uuid.New()
	}
	if err != nil {
		rec.Reason = err.Error()
		var seg *perrors.SegmentationError
		if errors.As(err, &seg) {
			fields := seg.ToMap()
			rec.Reason = fmt.Sprintf("%s: %s", fields["stage"], fields["reason"])
		}
		if read != nil {
			rec.Angle = read.Angle
			rec.Candidates = read.Candidates
		}
		return rec
	}

	rec.Plate = read.Plate
	rec.Angle = read.Angle
	rec.Candidates = read.Candidates
	rec.Symbols = make([]string, 0, len(read.Symbols))
	for _, s := range read.Symbols {
		if s.Accepted {
			rec.Symbols = append(rec.Symbols, s.Symbol)
		}
	}
	return rec
}

// Store is a PostgreSQL-backed read log.
type Store struct {
	db *sql.DB
}

// Open connects to databaseURL and checks the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the table and index if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record inserts rec. Inserting the same id twice updates the row.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.ID == uuid.Nil {
		return fmt.Errorf("record id is required")
	}
	symbols := rec.Symbols
	if symbols == nil {
		symbols = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plate_reads (
			id, source, label, detector_confidence, plate, symbols,
			angle, candidates, status, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			plate = EXCLUDED.plate,
			symbols = EXCLUDED.symbols,
			angle = EXCLUDED.angle,
			candidates = EXCLUDED.candidates,
			status = EXCLUDED.status,
			reason = EXCLUDED.reason`,
		rec.ID, rec.Source, rec.Label, rec.DetectorConfidence, rec.Plate, pq.Array(symbols),
		rec.Angle, rec.Candidates, string(rec.Status), rec.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to record read %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, label, detector_confidence, plate, symbols,
		       angle, candidates, status, reason, created_at
		FROM plate_reads WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// PendingReview lists unreviewed reads that failed or came out empty, oldest
// first.
func (s *Store) PendingReview(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, label, detector_confidence, plate, symbols,
		       angle, candidates, status, reason, created_at
		FROM plate_reads
		WHERE reviewed_at IS NULL AND status = ANY($1)
		ORDER BY created_at
		LIMIT $2`,
		pq.Array([]string{string(pipeline.StatusSegmentationFailure), string(pipeline.StatusEmpty)}), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reads: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// MarkReviewed stores the plate a reviewer read and returns how close the
// pipeline's plate was to it.
func (s *Store) MarkReviewed(ctx context.Context, id uuid.UUID, plate string) (float64, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	reviewed := ocr.NormalizePlate(plate)
	similarity := ocr.Similarity(rec.Plate, reviewed)

	_, err = s.db.ExecContext(ctx, `
		UPDATE plate_reads
		SET reviewed_plate = $2, similarity = $3, reviewed_at = NOW()
		WHERE id = $1`, id, reviewed, similarity)
	if err != nil {
		return 0, fmt.Errorf("failed to mark read %s reviewed: %w", id, err)
	}
	return similarity, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var status string
	err := row.Scan(
		&rec.ID, &rec.Source, &rec.Label, &rec.DetectorConfidence, &rec.Plate, pq.Array(&rec.Symbols),
		&rec.Angle, &rec.Candidates, &status, &rec.Reason, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan read: %w", err)
	}
	rec.Status = pipeline.Status(status)
	return &rec, nil
}
