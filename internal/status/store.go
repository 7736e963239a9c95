package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the status document and the rolling history log.
//
// Load returns (nil, nil) when no document exists or the stored bytes are
// malformed; callers treat a missing document as "first run". Save must
// replace the document atomically: readers see either the previous complete
// document or the new one, never a partial write.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	AppendHistory(ctx context.Context, entry HistoryEntry) error
}

// FileStore keeps the status document and history as JSON files, matching
// the layout consumed by static hosting (status.json, status-history.json).
type FileStore struct {
	DocumentPath string
	HistoryPath  string
}

// NewFileStore creates a file store rooted at dir using the default file
// names.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		DocumentPath: filepath.Join(dir, "status.json"),
		HistoryPath:  filepath.Join(dir, "status-history.json"),
	}
}

// Load reads and parses the persisted document. Absent or malformed files
// yield (nil, nil).
func (s *FileStore) Load(_ context.Context) (*Document, error) {
	raw, err := os.ReadFile(s.DocumentPath)
	if err != nil {
		return nil, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil
	}
	return &doc, nil
}

// Save serializes the document and replaces the file atomically via a temp
// file and rename. Failure here is fatal to the run.
func (s *FileStore) Save(_ context.Context, doc *Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status document: %w", err)
	}
	return writeFileAtomic(s.DocumentPath, raw)
}

// AppendHistory reads the existing log (absent or malformed counts as
// empty), appends the entry, trims to HistoryLimit and writes back.
func (s *FileStore) AppendHistory(_ context.Context, entry HistoryEntry) error {
	var history []HistoryEntry
	if raw, err := os.ReadFile(s.HistoryPath); err == nil {
		_ = json.Unmarshal(raw, &history)
	}

	history = append(history, entry)
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}

	raw, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return writeFileAtomic(s.HistoryPath, raw)
}

// writeFileAtomic writes data to a sibling temp file and renames it over
// path so readers never observe a partial document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
