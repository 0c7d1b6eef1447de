package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wricardo/geocard/game/engine"
)

// FileStore writes one indented JSON file per finished game, named by its
// start time inside a directory per session id.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) Archive(ctx context.Context, summary engine.Summary) error {
	if err := validate(summary); err != nil {
		return err
	}
	dir, err := fs.sessionDir(summary.SessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	path := filepath.Join(dir, strconv.FormatInt(summary.StartedAt.UnixNano(), 10)+".json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	// write then rename so readers never see a partial file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

func (fs *FileStore) Get(ctx context.Context, sessionID string) (*engine.Summary, error) {
	dir, err := fs.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}
	games, err := readSummaries(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(games) == 0) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s := newestFirst(games, 1)[0]
	return &s, nil
}

func (fs *FileStore) List(ctx context.Context, limit int) ([]engine.Summary, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var out []engine.Summary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		games, err := readSummaries(filepath.Join(fs.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, games...)
	}
	return newestFirst(out, limit), nil
}

func (fs *FileStore) Close(ctx context.Context) error { return nil }

func (fs *FileStore) sessionDir(sessionID string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\.`) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(fs.dir, sessionID), nil
}

// readSummaries reads every summary archived in one session directory.
func readSummaries(dir string) ([]engine.Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []engine.Summary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		s, err := readSummary(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func readSummary(path string) (*engine.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary file: %w", err)
	}

	var s engine.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary %s: %w", filepath.Base(path), err)
	}
	return &s, nil
}
