package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDBRecordsAndReturnsProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	db, err := OpenRunDB(path)
	require.NoError(t, err)
	defer db.Close()

	_, ok, err := db.LastProcessed(0)
	require.NoError(t, err)
	assert.False(t, ok)

	stamp := time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC)
	require.NoError(t, db.RecordProgress(0, stamp))

	got, ok, err := db.LastProcessed(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(stamp))
}

func TestRunDBClearIntervalRemovesProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	db, err := OpenRunDB(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.RecordProgress(1, time.Now().UTC()))
	require.NoError(t, db.ClearInterval(1))

	_, ok, err := db.LastProcessed(1)
	require.NoError(t, err)
	assert.False(t, ok)
}
