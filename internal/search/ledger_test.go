package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLedger() *Ledger {
	return &Ledger{
		LastRun:   time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC),
		CallsUsed: 17,
		Runs: []RunRecord{
			{Timestamp: time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC), Calls: 17, Found: 42, Matched: 5},
		},
	}
}

func TestFileStoreMissingFileIsEmptyLedger(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "ledger.json"))

	ledger, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.True(t, ledger.LastRun.IsZero())
	assert.Zero(t, ledger.CallsUsed)
	assert.Empty(t, ledger.Runs)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.json")
	store := NewFileStore(path)

	require.NoError(t, store.Write(context.Background(), sampleLedger()))

	ledger, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleLedger(), ledger)

	// No temp files survive the write.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ledger.json", entries[0].Name())
}

func TestFileStoreCorruptLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Read(context.Background())
	assert.ErrorContains(t, err, "parse ledger")
}

func TestRedisStoreRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	store := NewRedisStore(client, "")

	ledger, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ledger.CallsUsed)

	require.NoError(t, store.Write(context.Background(), sampleLedger()))

	ledger, err = store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleLedger(), ledger)
}
