package store

import (
	"context"
	"fmt"
	"time"

	"github.com/datallboy/gofetch/internal/domain"
)

func (s *PersistentStore) RecordTransfer(ctx context.Context, rec domain.TransferRecord) error {
	query := s.rebind(`INSERT INTO transfers (id, url, range_start, range_end, bytes, status, error, attempts, duration_ms, finished_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.URL,
		int64(rec.RangeStart),
		int64(rec.RangeEnd),
		rec.Bytes,
		string(rec.Status),
		rec.Error,
		rec.Attempts,
		rec.Duration.Milliseconds(),
		rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record transfer %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PersistentStore) ListTransfers(ctx context.Context, limit int) ([]domain.TransferRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := s.rebind(`
			SELECT id, url, range_start, range_end, bytes, status, error, attempts, duration_ms, finished_at
			FROM transfers
			ORDER BY finished_at DESC
			LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transfer history: %w", err)
	}
	defer rows.Close()

	var records []domain.TransferRecord
	for rows.Next() {
		var rec domain.TransferRecord
		var rangeStart, rangeEnd, durationMS int64
		var status string

		err := rows.Scan(
			&rec.ID, &rec.URL, &rangeStart, &rangeEnd, &rec.Bytes,
			&status, &rec.Error, &rec.Attempts, &durationMS, &rec.FinishedAt,
		)
		if err != nil {
			return nil, err
		}

		rec.RangeStart = uint64(rangeStart)
		rec.RangeEnd = uint64(rangeEnd)
		rec.Status = domain.JobStatus(status)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}

	return records, rows.Err()
}
