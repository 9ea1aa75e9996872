// Package journal persists download completion so interrupted runs never
// re-fetch assets they already hold. One asset identifier per line, appended
// and synced before the download counts as done; the journal, not the asset
// file on disk, is the source of truth for completion.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Journal is an append-only record of completed asset downloads for one work
// unit. Safe for concurrent use.
type Journal struct {
	path string
	file *os.File
	done map[string]struct{}
	mu   sync.Mutex
}

// Open loads the journal at path, creating it if absent. Every previously
// recorded identifier is available through Contains immediately.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}

	done := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			done[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}

	return &Journal{path: path, file: file, done: done}, nil
}

// Contains reports whether id was already recorded, in this run or a prior one
func (j *Journal) Contains(id string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.done[id]
	return ok
}

// Record marks id complete. The line is flushed to stable storage before
// Record returns, so a crash immediately after never forgets the download.
// Recording an already known id is a no-op.
func (j *Journal) Record(id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.done[id]; ok {
		return nil
	}

	if _, err := j.file.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("appending to journal %s: %w", j.path, err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("syncing journal %s: %w", j.path, err)
	}

	j.done[id] = struct{}{}
	return nil
}

// Len returns the number of recorded identifiers
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.done)
}

// Close releases the underlying file
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
