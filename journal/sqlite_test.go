package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = 'trades'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "trades", name)
}

func TestSQLiteRecordAndGetTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	rec := sampleTrade(1)
	require.NoError(t, j.RecordTrade(rec))

	got, err := j.GetTrade(rec.TradeID)
	require.NoError(t, err)
	assert.Equal(t, rec.TradeID, got.TradeID)
	assert.Equal(t, rec.Reason, got.Reason)
	assertSameTrade(t, rec, got)

	_, err = j.GetTrade("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteRejectsUnknownSide(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	rec := sampleTrade(0)
	rec.Side = "Hold"
	require.NoError(t, j.RecordTrade(rec))

	_, err := j.GetTrade(rec.TradeID)
	assert.ErrorContains(t, err, "unknown side")
	_, err = j.ListTrades()
	assert.ErrorContains(t, err, "unknown side")
}

func TestSQLiteDuplicateTradeIDRejected(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	require.NoError(t, j.RecordTrade(sampleTrade(0)))
	assert.Error(t, j.RecordTrade(sampleTrade(0)))
}

func TestSQLiteListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	for i := 0; i < 5; i++ {
		require.NoError(t, j.RecordTrade(sampleTrade(i)))
	}

	// sampleTrade(i) closes at 03:34:05 + i hours on 2024-01-02
	start := time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)

	got, err := j.ListTradesClosedBetween(start, end)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "T001", got[0].TradeID)
	assert.Equal(t, "T002", got[1].TradeID)
	assert.Equal(t, "T003", got[2].TradeID)
}
