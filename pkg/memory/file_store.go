// SPDX-License-Identifier: Apache-2.0
package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists entries as JSON lines in a file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed memory store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Remember appends a JSON-encoded entry to the file.
func (f *FileStore) Remember(_ context.Context, entry Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	return enc.Encode(entry)
}

// Recall scans the file and returns matching entries, newest first.
func (f *FileStore) Recall(_ context.Context, query string, limit int) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return filterEntries(entries, query, limit), nil
}
