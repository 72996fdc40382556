// Package file stores episode graphs as YAML or JSON documents on disk.
//
// Layout: <base>/<seriesID>/<episodeID>.yaml (or .yml/.json) for graphs and
// <base>/<seriesID>/.memory/<userID>.yaml for cross-episode flags.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wavebound/storyline/pkg/codec"
	"github.com/wavebound/storyline/pkg/domain"
)

var extensions = []string{".yaml", ".yml", ".json"}

// Store implements ports.GraphStore and ports.MemoryStore on the local
// filesystem.
type Store struct {
	BasePath string
	format   codec.Format

	memoryMu sync.Mutex
}

// Option configures the Store.
type Option func(*Store)

// WithFormat selects the encoding for new documents. Existing documents are
// read in whatever supported format they use.
func WithFormat(format codec.Format) Option {
	return func(s *Store) {
		s.format = format
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".storyline/episodes".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".storyline", "episodes")
	}
	s := &Store{BasePath: basePath, format: codec.FormatYAML}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func checkID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("invalid %s %q", kind, id)
	}
	return nil
}

func (s *Store) seriesDir(seriesID string) string {
	return filepath.Join(s.BasePath, seriesID)
}

// find returns the path of an existing document for the episode.
func (s *Store) find(seriesID, episodeID string) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(s.seriesDir(seriesID), episodeID+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat episode file: %w", err)
		}
	}
	return "", domain.ErrGraphNotFound
}

// Get loads the graph of an episode.
func (s *Store) Get(ctx context.Context, seriesID, episodeID string) (*domain.Graph, error) {
	if err := checkID("seriesID", seriesID); err != nil {
		return nil, err
	}
	if err := checkID("episodeID", episodeID); err != nil {
		return nil, err
	}

	path, err := s.find(seriesID, episodeID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read episode file: %w", err)
	}
	g, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("episode %s/%s: %w", seriesID, episodeID, err)
	}
	return g, nil
}

// Put writes the whole graph atomically. A document stored under another
// extension is replaced.
func (s *Store) Put(ctx context.Context, seriesID, episodeID string, g *domain.Graph) error {
	if err := checkID("seriesID", seriesID); err != nil {
		return err
	}
	if err := checkID("episodeID", episodeID); err != nil {
		return err
	}
	if g == nil {
		return fmt.Errorf("graph cannot be nil")
	}

	data, err := codec.Encode(g, s.format)
	if err != nil {
		return err
	}

	ext := ".yaml"
	if s.format == codec.FormatJSON {
		ext = ".json"
	}
	dest := filepath.Join(s.seriesDir(seriesID), episodeID+ext)
	if err := writeAtomic(s.seriesDir(seriesID), dest, data); err != nil {
		return err
	}

	for _, other := range extensions {
		if other == ext {
			continue
		}
		stale := filepath.Join(s.seriesDir(seriesID), episodeID+other)
		if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove stale episode file: %w", err)
		}
	}
	return nil
}

// List returns the episode ids of a series, sorted.
func (s *Store) List(ctx context.Context, seriesID string) ([]string, error) {
	if err := checkID("seriesID", seriesID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.seriesDir(seriesID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ext := filepath.Ext(name)
		for _, known := range extensions {
			if ext == known {
				id := strings.TrimSuffix(name, ext)
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// writeAtomic writes to a temporary file in dir, syncs it and renames it over
// dest.
func writeAtomic(dir, dest string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-*"+filepath.Ext(dest))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename fails on Windows when dest exists.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
