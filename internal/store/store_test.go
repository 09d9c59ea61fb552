package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/gofetch/internal/domain"
)

func newSQLiteStore(t *testing.T) *PersistentStore {
	t.Helper()
	s, err := NewPersistentStore("sqlite", filepath.Join(t.TempDir(), "gofetch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListTransfers(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	first := domain.TransferRecord{
		ID:         "job-1",
		URL:        "http://files.example.com/blob",
		RangeStart: 0,
		RangeEnd:   4095,
		Bytes:      4096,
		Status:     domain.StatusCompleted,
		Attempts:   1,
		Duration:   120 * time.Millisecond,
		FinishedAt: base,
	}
	second := domain.TransferRecord{
		ID:         "job-2",
		URL:        "http://files.example.com/missing",
		RangeStart: 0,
		RangeEnd:   4095,
		Status:     domain.StatusFailed,
		Error:      "resource not found",
		Attempts:   1,
		Duration:   15 * time.Millisecond,
		FinishedAt: base.Add(time.Minute),
	}

	require.NoError(t, s.RecordTransfer(ctx, first))
	require.NoError(t, s.RecordTransfer(ctx, second))

	records, err := s.ListTransfers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "job-2", records[0].ID)
	assert.Equal(t, domain.StatusFailed, records[0].Status)
	assert.Equal(t, "resource not found", records[0].Error)

	assert.Equal(t, "job-1", records[1].ID)
	assert.Equal(t, int64(4096), records[1].Bytes)
	assert.Equal(t, uint64(4095), records[1].RangeEnd)
	assert.Equal(t, 120*time.Millisecond, records[1].Duration)
}

func TestListTransfersHonorsLimit(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := domain.TransferRecord{
			ID:         string(rune('a' + i)),
			URL:        "http://files.example.com/blob",
			Status:     domain.StatusCompleted,
			FinishedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.RecordTransfer(ctx, rec))
	}

	records, err := s.ListTransfers(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Zero falls back to the default limit.
	records, err = s.ListTransfers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestRebindForPostgres(t *testing.T) {
	s := &PersistentStore{driver: "postgres"}
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)",
		s.rebind("INSERT INTO t (a, b) VALUES (?, ?)"))

	s.driver = "sqlite"
	assert.Equal(t, "SELECT * FROM t WHERE id = ?",
		s.rebind("SELECT * FROM t WHERE id = ?"))
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewPersistentStore("mysql", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported history driver")
}
