package dao

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haierkeys/lww-note-sync/internal/config"
	"github.com/haierkeys/lww-note-sync/internal/domain"
)

func sampleSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Notes: []domain.Note{
			{ID: "1700000000000-zzzzzzzzz", Title: "b", Content: "second", CreatedAt: 20, LastModified: 30},
			{ID: "1700000000000-aaaaaaaaa", Title: "a", Content: "first\nline", CreatedAt: 10, LastModified: 10},
		},
		DeletedIDs: []string{"gone-1", "gone-2"},
	}
}

func TestFileStateStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "client", "state.json")
	s := NewFileStateStore(path)

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, sampleSnapshot()))

	got, ok, err := NewFileStateStore(path).Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleSnapshot(), got)

	require.NoError(t, s.Save(ctx, domain.Snapshot{}))
	got, ok, err = s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, got.Notes)
	assert.Empty(t, got.DeletedIDs)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"deletedIds"`)
}

func TestFileStateStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, _, err := NewFileStateStore(path).Load(context.Background())
	assert.Error(t, err)
}

func newTestDB(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Enabled:     true,
		Type:        "sqlite",
		Path:        filepath.Join(t.TempDir(), "db", "replica.sqlite3"),
		TablePrefix: "lww_",
		AutoMigrate: true,
	}
}

func TestDBStateStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := NewDBEngine(newTestDB(t), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB(db) })

	server := NewDBStateStore(db, "server")
	other := NewDBStateStore(db, "client-a")

	_, ok, err := server.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, server.Save(ctx, sampleSnapshot()))
	require.NoError(t, other.Save(ctx, domain.Snapshot{DeletedIDs: []string{"x"}}))

	got, ok, err := server.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleSnapshot(), got, "insertion order and tombstones are preserved")

	next := sampleSnapshot()
	next.Notes = next.Notes[:1]
	next.Notes[0].Content = "edited"
	next.DeletedIDs = []string{"gone-3"}
	require.NoError(t, server.Save(ctx, next))

	got, ok, err = server.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, next, got)

	got, ok, err = other.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, got.Notes)
	assert.Equal(t, []string{"x"}, got.DeletedIDs)
}

func TestNewDBEngine_UnsupportedType(t *testing.T) {
	_, err := NewDBEngine(config.DatabaseConfig{Type: "oracle"}, false)
	assert.Error(t, err)
}
