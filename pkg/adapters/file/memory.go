package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

type memoryDoc struct {
	Flags []string `yaml:"flags"`
}

func (s *Store) memoryDir(seriesID string) string {
	return filepath.Join(s.seriesDir(seriesID), ".memory")
}

// LoadFlags returns the flags a user has reached in a series.
func (s *Store) LoadFlags(ctx context.Context, seriesID, userID string) ([]string, error) {
	if err := checkID("seriesID", seriesID); err != nil {
		return nil, err
	}
	if err := checkID("userID", userID); err != nil {
		return nil, err
	}
	doc, err := s.readMemory(seriesID, userID)
	if err != nil {
		return nil, err
	}
	return doc.Flags, nil
}

// MergeFlags adds flags to the user's stored set.
func (s *Store) MergeFlags(ctx context.Context, seriesID, userID string, flags []string) error {
	if err := checkID("seriesID", seriesID); err != nil {
		return err
	}
	if err := checkID("userID", userID); err != nil {
		return err
	}
	if len(flags) == 0 {
		return nil
	}

	s.memoryMu.Lock()
	defer s.memoryMu.Unlock()

	doc, err := s.readMemory(seriesID, userID)
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(doc.Flags)+len(flags))
	for _, f := range append(doc.Flags, flags...) {
		if f != "" {
			set[f] = true
		}
	}
	doc.Flags = doc.Flags[:0]
	for f := range set {
		doc.Flags = append(doc.Flags, f)
	}
	sort.Strings(doc.Flags)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}
	dir := s.memoryDir(seriesID)
	return writeAtomic(dir, filepath.Join(dir, userID+".yaml"), data)
}

func (s *Store) readMemory(seriesID, userID string) (memoryDoc, error) {
	var doc memoryDoc
	data, err := os.ReadFile(filepath.Join(s.memoryDir(seriesID), userID+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("failed to read memory file: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse memory file: %w", err)
	}
	return doc, nil
}
