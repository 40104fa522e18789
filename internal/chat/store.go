package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parleydev/parley/internal/logging"
)

// ErrMalformedDocument indicates a persisted conversation that cannot be
// decoded. Loads fail fast; no partial recovery is attempted.
var ErrMalformedDocument = errors.New("malformed conversation document")

// Entry summarizes one stored conversation for listings.
type Entry struct {
	Filename     string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Store persists conversation documents. The session core stays agnostic
// to the concrete implementation.
type Store interface {
	// Load reads and validates the document at path.
	Load(path string) (*Document, error)

	// Save writes the document to path, refreshing its updated timestamp
	// and setting the created timestamp on first save.
	Save(path string, doc *Document) error

	// ListEntries summarizes the stored conversations under dir.
	ListEntries(dir string) ([]Entry, error)

	// Delete removes the stored conversation at path.
	Delete(path string) error
}

// Ensure concrete type implements the interface
var _ Store = (*FileStore)(nil)

// FileStore persists documents as JSON files, one per conversation.
// Reference IDs are runtime-only and never reach the persisted bytes.
type FileStore struct{}

// NewFileStore returns a JSON-on-disk store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Load reads the document at path, failing fast on malformed content.
func (fs *FileStore) Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, path, err)
	}
	for i, m := range doc.Messages {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("%w: %s: message %d has unknown role %q", ErrMalformedDocument, path, i, m.Role)
		}
	}
	return &doc, nil
}

// Save writes the document atomically (temp file, then rename). The updated
// timestamp is refreshed on every save; the created timestamp is set once.
func (fs *FileStore) Save(path string, doc *Document) error {
	if doc.Metadata.CreatedAt.IsZero() {
		doc.Metadata.CreatedAt = time.Now()
	}
	doc.Metadata.UpdatedAt = time.Now()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create conversation directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename conversation file: %w", err)
	}
	return nil
}

// ListEntries summarizes the .json conversations under dir, most recently
// updated first. Unreadable files are skipped so one corrupt conversation
// does not hide the rest.
func (fs *FileStore) ListEntries(dir string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read conversation directory: %w", err)
	}

	var entries []Entry
	for _, item := range items {
		if item.IsDir() || !strings.HasSuffix(item.Name(), ".json") {
			continue
		}
		doc, err := fs.Load(filepath.Join(dir, item.Name()))
		if err != nil {
			logging.DefaultLogger.Debug("skipping unreadable conversation", logging.Fields{
				"file":  item.Name(),
				"error": err.Error(),
			})
			continue
		}
		entries = append(entries, Entry{
			Filename:     item.Name(),
			Title:        doc.Metadata.Title,
			CreatedAt:    doc.Metadata.CreatedAt,
			UpdatedAt:    doc.Metadata.UpdatedAt,
			MessageCount: len(doc.Messages),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

// Delete removes the stored conversation at path.
func (fs *FileStore) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", path, err)
	}
	return nil
}

// ValidateFileName rejects conversation names that would escape the chats
// directory.
func ValidateFileName(name string) error {
	if name == "" {
		return errors.New("conversation name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name == ".." || strings.Contains(name, "..") {
		return fmt.Errorf("invalid conversation name %q", name)
	}
	return nil
}
