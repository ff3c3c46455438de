package jobstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileworks/fileworks/internal/tool"
)

func newTestJob(t *testing.T) *Job {
	t.Helper()
	return &Job{
		ID:      uuid.New(),
		Tool:    tool.TypeImageResize,
		Params:  tool.Params{},
		FileIDs: []uuid.UUID{uuid.New()},
	}
}

func TestMemoryStore_CreateAndGetJob(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	j := newTestJob(t)
	require.NoError(t, store.CreateJob(ctx, j))

	got, err := store.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, tool.TypeImageResize, got.Tool)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestMemoryStore_GetJobMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	j := newTestJob(t)
	require.NoError(t, store.CreateJob(ctx, j))

	require.NoError(t, store.MarkProcessing(ctx, j.ID))
	got, err := store.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)

	require.NoError(t, store.MarkCompleted(ctx, j.ID, "processed/x/resized_a.png"))
	got, err = store.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "processed/x/resized_a.png", got.OutputKey)
	assert.Empty(t, got.ErrorDetail)
}

func TestMemoryStore_FailureSetsDetail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	j := newTestJob(t)
	require.NoError(t, store.CreateJob(ctx, j))
	require.NoError(t, store.MarkProcessing(ctx, j.ID))
	require.NoError(t, store.MarkFailed(ctx, j.ID, "file appears corrupted"))

	got, err := store.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "file appears corrupted", got.ErrorDetail)
	assert.Empty(t, got.OutputKey)
}

func TestMemoryStore_ForwardOnlyTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("cannot complete a pending job", func(t *testing.T) {
		store := NewMemoryStore()
		j := newTestJob(t)
		require.NoError(t, store.CreateJob(ctx, j))

		err := store.MarkCompleted(ctx, j.ID, "out")
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("cannot reprocess a completed job", func(t *testing.T) {
		store := NewMemoryStore()
		j := newTestJob(t)
		require.NoError(t, store.CreateJob(ctx, j))
		require.NoError(t, store.MarkProcessing(ctx, j.ID))
		require.NoError(t, store.MarkCompleted(ctx, j.ID, "out"))

		err := store.MarkProcessing(ctx, j.ID)
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("cannot fail a completed job", func(t *testing.T) {
		store := NewMemoryStore()
		j := newTestJob(t)
		require.NoError(t, store.CreateJob(ctx, j))
		require.NoError(t, store.MarkProcessing(ctx, j.ID))
		require.NoError(t, store.MarkCompleted(ctx, j.ID, "out"))

		err := store.MarkFailed(ctx, j.ID, "boom")
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("pending job may fail directly", func(t *testing.T) {
		store := NewMemoryStore()
		j := newTestJob(t)
		require.NoError(t, store.CreateJob(ctx, j))

		assert.NoError(t, store.MarkFailed(ctx, j.ID, "bad plan"))
	})

	t.Run("double processing claim is rejected", func(t *testing.T) {
		store := NewMemoryStore()
		j := newTestJob(t)
		require.NoError(t, store.CreateJob(ctx, j))
		require.NoError(t, store.MarkProcessing(ctx, j.ID))

		err := store.MarkProcessing(ctx, j.ID)
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})
}

func TestMemoryStore_Files(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := &UploadedFile{ID: uuid.New(), Key: "uploads/a/one.pdf", OriginalName: "one.pdf", Size: 10}
	b := &UploadedFile{ID: uuid.New(), Key: "uploads/b/two.pdf", OriginalName: "two.pdf", Size: 20}
	require.NoError(t, store.CreateFile(ctx, a))
	require.NoError(t, store.CreateFile(ctx, b))

	files, err := store.GetFiles(ctx, []uuid.UUID{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "two.pdf", files[0].OriginalName)
	assert.Equal(t, "one.pdf", files[1].OriginalName)

	require.NoError(t, store.DeleteFile(ctx, a.ID))
	_, err = store.GetFile(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetFiles(ctx, []uuid.UUID{a.ID, b.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
