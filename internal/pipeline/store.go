package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
)

// SongStore persists encoded songs between preprocessing and assembly.
// Save may be called concurrently; List returns songs ordered by SongIndex.
type SongStore interface {
	Reset(ctx context.Context) error
	Save(ctx context.Context, song *models.EncodedSong) error
	List(ctx context.Context) ([]models.EncodedSong, error)
}

const songFileExt = ".txt"

// FileStore writes one "<index>.txt" file per song, holding its space-joined tokens
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory songs are written to
func (s *FileStore) Dir() string {
	return s.dir
}

// Reset creates the directory and removes song files left by a previous run
func (s *FileStore) Reset(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create song dir %s: %w", s.dir, err)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read song dir %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := songFileIndex(e.Name()); !ok || e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("remove stale song file: %w", err)
		}
	}
	return nil
}

func (s *FileStore) Save(ctx context.Context, song *models.EncodedSong) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.dir, strconv.Itoa(song.SongIndex)+songFileExt)
	if err := os.WriteFile(path, []byte(song.Tokens), 0o644); err != nil {
		return fmt.Errorf("write song %d: %w", song.SongIndex, err)
	}
	return nil
}

// List reads every song file back. Only SongIndex, SourcePath and Tokens are populated.
func (s *FileStore) List(ctx context.Context) ([]models.EncodedSong, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read song dir %s: %w", s.dir, err)
	}

	var songs []models.EncodedSong
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index, ok := songFileIndex(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read song %d: %w", index, err)
		}
		songs = append(songs, models.EncodedSong{
			SongIndex:  index,
			SourcePath: path,
			Tokens:     strings.TrimSpace(string(data)),
		})
	}
	sortSongs(songs)
	return songs, nil
}

func songFileIndex(name string) (int, bool) {
	if !strings.HasSuffix(name, songFileExt) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(name, songFileExt))
	if err != nil || n < 0 || strconv.Itoa(n)+songFileExt != name {
		return 0, false
	}
	return n, true
}

// MemoryStore keeps songs in memory; used by the API and tests
type MemoryStore struct {
	mu    sync.Mutex
	songs map[int]models.EncodedSong
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{songs: make(map[int]models.EncodedSong)}
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.songs = make(map[int]models.EncodedSong)
	return nil
}

func (s *MemoryStore) Save(ctx context.Context, song *models.EncodedSong) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.songs[song.SongIndex] = *song
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.EncodedSong, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	songs := make([]models.EncodedSong, 0, len(s.songs))
	for _, song := range s.songs {
		songs = append(songs, song)
	}
	sortSongs(songs)
	return songs, nil
}

func sortSongs(songs []models.EncodedSong) {
	sort.Slice(songs, func(i, j int) bool {
		return songs[i].SongIndex < songs[j].SongIndex
	})
}
