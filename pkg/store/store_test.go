package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore()
		defer s.Close()
		fn(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "clawspace.db"))
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func TestStore_CreateAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		ws := &Workspace{Name: "support", Path: "/tmp/support"}
		require.NoError(t, s.Create(ctx, ws))

		assert.NotEmpty(t, ws.ID)
		assert.Equal(t, StatusStopped, ws.Status)
		assert.False(t, ws.CreatedAt.IsZero())

		got, err := s.Get(ctx, ws.ID)
		require.NoError(t, err)
		assert.Equal(t, "support", got.Name)
		assert.Equal(t, "/tmp/support", got.Path)
		assert.Equal(t, StatusStopped, got.Status)
		assert.Equal(t, 0, got.PID)
		assert.False(t, got.HasPID())
	})
}

func TestStore_GetMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_UpdatePIDAndStatus(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		ws := &Workspace{Name: "billing"}
		require.NoError(t, s.Create(ctx, ws))

		ws.PID = 4242
		ws.Status = StatusRunning
		require.NoError(t, s.Update(ctx, ws))

		got, err := s.Get(ctx, ws.ID)
		require.NoError(t, err)
		assert.Equal(t, 4242, got.PID)
		assert.Equal(t, StatusRunning, got.Status)

		got.PID = 0
		got.Status = StatusStopped
		require.NoError(t, s.Update(ctx, got))

		again, err := s.Get(ctx, ws.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, again.PID)
		assert.Equal(t, StatusStopped, again.Status)
	})
}

func TestStore_UpdateRejectsUnknown(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		err := s.Update(ctx, &Workspace{ID: "ghost", Status: StatusStopped})
		assert.ErrorIs(t, err, ErrNotFound)

		ws := &Workspace{Name: "x"}
		require.NoError(t, s.Create(ctx, ws))
		ws.Status = "paused"
		assert.ErrorIs(t, s.Update(ctx, ws), ErrInvalidStatus)
	})
}

func TestStore_DeleteAndList(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		first := &Workspace{Name: "first"}
		second := &Workspace{Name: "second"}
		require.NoError(t, s.Create(ctx, first))
		require.NoError(t, s.Create(ctx, second))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "first", list[0].Name)
		assert.Equal(t, "second", list[1].Name)

		require.NoError(t, s.Delete(ctx, first.ID))
		assert.ErrorIs(t, s.Delete(ctx, first.ID), ErrNotFound)

		list, err = s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, second.ID, list[0].ID)
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ws := &Workspace{Name: "copy"}
	require.NoError(t, s.Create(ctx, ws))

	got, err := s.Get(ctx, ws.ID)
	require.NoError(t, err)
	got.PID = 99

	again, err := s.Get(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.PID)
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore("")
	assert.Error(t, err)
}
