package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "songs")
	store := NewFileStore(dir)
	require.NoError(t, store.Reset(ctx))

	for _, song := range []models.EncodedSong{
		{SongIndex: 10, Tokens: "64 _"},
		{SongIndex: 2, Tokens: "60 _ _ _"},
		{SongIndex: 0, Tokens: "r _"},
	} {
		require.NoError(t, store.Save(ctx, &song))
	}

	data, err := os.ReadFile(filepath.Join(dir, "2.txt"))
	require.NoError(t, err)
	assert.Equal(t, "60 _ _ _", string(data))

	songs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, songs, 3)
	assert.Equal(t, []int{0, 2, 10}, []int{songs[0].SongIndex, songs[1].SongIndex, songs[2].SongIndex})
	assert.Equal(t, "64 _", songs[2].Tokens)
}

func TestFileStore_ResetRemovesOnlySongFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "7.txt"), []byte("60"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	store := NewFileStore(dir)
	require.NoError(t, store.Reset(ctx))

	songs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, songs)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, &models.EncodedSong{SongIndex: 3, Tokens: "62"}))
	require.NoError(t, store.Save(ctx, &models.EncodedSong{SongIndex: 1, Tokens: "60"}))

	songs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "60", songs[0].Tokens)

	require.NoError(t, store.Reset(ctx))
	songs, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, songs)
}

func TestSongFileIndex(t *testing.T) {
	tests := []struct {
		name  string
		index int
		ok    bool
	}{
		{name: "0.txt", index: 0, ok: true},
		{name: "7.txt", index: 7, ok: true},
		{name: "123.txt", index: 123, ok: true},
		{name: "007.txt"},
		{name: "+7.txt"},
		{name: "-1.txt"},
		{name: "7.TXT"},
		{name: "notes.txt"},
		{name: "7.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, ok := songFileIndex(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.index, index)
		})
	}
}

func TestFileStore_ListIgnoresNonCanonicalNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "7.txt"), []byte("60 _"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "007.txt"), []byte("62 _"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "+7.txt"), []byte("64 _"), 0o644))

	songs, err := NewFileStore(dir).List(ctx)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, 7, songs[0].SongIndex)
	assert.Equal(t, "60 _", songs[0].Tokens)

	require.NoError(t, NewFileStore(dir).Reset(ctx))
	assert.FileExists(t, filepath.Join(dir, "007.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "7.txt"))
}
