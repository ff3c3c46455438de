package janitor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileworks/fileworks/internal/storage"
)

func putObject(t *testing.T, st *storage.MemoryStorage, key string, age time.Duration) {
	t.Helper()
	ctx := context.Background()
	data := []byte("content")
	require.NoError(t, st.Upload(ctx, key, bytes.NewReader(data), "text/plain", int64(len(data))))
	st.SetModTime(key, time.Now().Add(-age))
}

func TestSweepDeletesExpiredObjects(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()

	putObject(t, st, "uploads/a/old.png", 25*time.Hour)
	putObject(t, st, "processed/b/old.pdf", 48*time.Hour)
	putObject(t, st, "uploads/c/fresh.png", time.Hour)

	j := New(st, 24*time.Hour, time.Hour)
	stats, err := j.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, Stats{Scanned: 3, Deleted: 2}, stats)

	exists, err := st.Exists(ctx, "uploads/c/fresh.png")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = st.Exists(ctx, "uploads/a/old.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSweepEmptyStore(t *testing.T) {
	j := New(storage.NewMemoryStorage(), 24*time.Hour, time.Hour)
	stats, err := j.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	j := New(storage.NewMemoryStorage(), 24*time.Hour, 10*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
