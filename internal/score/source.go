// Package score reads notation files into models.Score values. Each format is a
// Source; the Registry picks one by file extension.
package score

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
)

// Source parses one notation format
type Source interface {
	// Extensions lists the lower-case file extensions handled, with the leading dot
	Extensions() []string
	Parse(ctx context.Context, path string) (*models.Score, error)
}

// Registry maps file extensions to sources
type Registry struct {
	sources map[string]Source
}

// NewRegistry registers the sources in order; later sources win on shared extensions
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source)}
	for _, s := range sources {
		for _, ext := range s.Extensions() {
			r.sources[strings.ToLower(ext)] = s
		}
	}
	return r
}

// DefaultRegistry handles Humdrum kern and JSON scores
func DefaultRegistry() *Registry {
	return NewRegistry(KernSource{}, JSONSource{})
}

// Supports reports whether a source is registered for the path's extension
func (r *Registry) Supports(path string) bool {
	_, ok := r.sources[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Parse dispatches to the source registered for the path's extension
func (r *Registry) Parse(ctx context.Context, path string) (*models.Score, error) {
	s, ok := r.sources[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("no score source for %s", path)
	}
	return s.Parse(ctx, path)
}

// Discover walks root recursively and returns every supported file, sorted so
// song indexes are stable between runs.
func (r *Registry) Discover(ctx context.Context, root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() && r.Supports(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// JSONSource reads scores stored in the models.Score JSON shape
type JSONSource struct{}

func (JSONSource) Extensions() []string {
	return []string{".json"}
}

func (JSONSource) Parse(ctx context.Context, path string) (*models.Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var s models.Score
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := Validate(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.ID == "" {
		s.ID = songID(path)
	}
	s.Source = path
	return &s, nil
}

// Validate checks the score invariants: every duration strictly positive
func Validate(s *models.Score) error {
	for i, ev := range s.Events() {
		if ev.Duration <= 0 {
			return fmt.Errorf("event %d has non-positive duration %v", i, ev.Duration)
		}
	}
	return nil
}

func songID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
