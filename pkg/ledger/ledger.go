// Package ledger tracks campaign-level progress across runs: which contests
// finished, and which gave up with what reason. Both files are plain text so
// an operator can inspect or hand-edit them between runs.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Progress records contests that completed successfully, one id per line.
// A contest present here is skipped by later runs.
type Progress struct {
	path string
	file *os.File
	done map[string]struct{}
	mu   sync.Mutex
}

// OpenProgress loads the progress ledger at path, creating it if absent
func OpenProgress(path string) (*Progress, error) {
	file, done, err := openLineFile(path)
	if err != nil {
		return nil, err
	}
	return &Progress{path: path, file: file, done: done}, nil
}

// Completed reports whether contestID finished in this run or a prior one
func (p *Progress) Completed(contestID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.done[contestID]
	return ok
}

// MarkCompleted records contestID as finished, synced before returning
func (p *Progress) MarkCompleted(contestID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.done[contestID]; ok {
		return nil
	}
	if _, err := p.file.WriteString(contestID + "\n"); err != nil {
		return fmt.Errorf("appending to progress ledger %s: %w", p.path, err)
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("syncing progress ledger %s: %w", p.path, err)
	}
	p.done[contestID] = struct{}{}
	return nil
}

// Count returns the number of completed contests
func (p *Progress) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.done)
}

// Close releases the underlying file
func (p *Progress) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file.Close()
}

// Failures records contests that exhausted their whole-unit retry budget or
// hit a fatal error. Tab-separated: contest id, reason, timestamp.
type Failures struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// OpenFailures opens the failure ledger at path for appending
func OpenFailures(path string) (*Failures, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening failure ledger %s: %w", path, err)
	}
	return &Failures{path: path, file: file}, nil
}

// Record appends one failure line, synced before returning. Newlines in the
// reason are flattened so the file stays one failure per line.
func (f *Failures) Record(contestID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	reason = strings.ReplaceAll(reason, "\n", " ")
	line := fmt.Sprintf("%s\t%s\t%s\n", contestID, reason, time.Now().Format(time.RFC3339))
	if _, err := f.file.WriteString(line); err != nil {
		return fmt.Errorf("appending to failure ledger %s: %w", f.path, err)
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("syncing failure ledger %s: %w", f.path, err)
	}
	return nil
}

// Close releases the underlying file
func (f *Failures) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

func openLineFile(path string) (*os.File, map[string]struct{}, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}

	ids := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return file, ids, nil
}
