package chat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewFileStore()
	path := filepath.Join(t.TempDir(), "chat.json")

	doc := NewDocument("trip planning")
	doc.Metadata.SystemPrompt = "default"
	doc.Append(
		Message{Role: RoleUser, Lines: []string{"line one", "line two"}, Timestamp: time.Now(), RefID: "f0f"},
		Message{Role: RoleAssistant, Lines: []string{"reply"}, Model: "gpt-test", Citations: []string{"https://example.com"}, Timestamp: time.Now(), RefID: "f1f"},
		Message{Role: RoleError, Lines: []string{"timeout"}, ErrorDetail: map[string]string{"status": "504"}, Timestamp: time.Now(), RefID: "f2f"},
	)

	if err := store.Save(path, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Reference IDs must never reach the persisted bytes.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}
	for _, id := range []string{"f0f", "f1f", "f2f"} {
		if strings.Contains(string(raw), id) {
			t.Errorf("persisted form contains reference ID %q", id)
		}
	}

	loaded, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != doc.Len() {
		t.Fatalf("loaded %d messages, want %d", loaded.Len(), doc.Len())
	}
	for i := range doc.Messages {
		orig, got := doc.Messages[i], loaded.Messages[i]
		if got.Role != orig.Role {
			t.Errorf("message %d role = %q, want %q", i, got.Role, orig.Role)
		}
		if got.Text() != orig.Text() {
			t.Errorf("message %d text = %q, want %q", i, got.Text(), orig.Text())
		}
		if got.Model != orig.Model {
			t.Errorf("message %d model = %q, want %q", i, got.Model, orig.Model)
		}
		if !got.Timestamp.Equal(orig.Timestamp) {
			t.Errorf("message %d timestamp = %v, want %v", i, got.Timestamp, orig.Timestamp)
		}
		if got.RefID != "" {
			t.Errorf("message %d carries reference ID %q after load", i, got.RefID)
		}
	}
	if loaded.Metadata.Title != "trip planning" || loaded.Metadata.SystemPrompt != "default" {
		t.Errorf("metadata = %+v, want title and system prompt preserved", loaded.Metadata)
	}
	if len(loaded.Messages[2].ErrorDetail) != 1 || loaded.Messages[2].ErrorDetail["status"] != "504" {
		t.Errorf("error detail = %v, want status 504", loaded.Messages[2].ErrorDetail)
	}
}

func TestSaveTimestamps(t *testing.T) {
	store := NewFileStore()
	path := filepath.Join(t.TempDir(), "chat.json")

	doc := NewDocument("stamps")
	if err := store.Save(path, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if doc.Metadata.CreatedAt.IsZero() {
		t.Fatal("first save did not set created timestamp")
	}

	created := doc.Metadata.CreatedAt
	firstUpdate := doc.Metadata.UpdatedAt

	doc.Append(NewUserMessage("more"))
	if err := store.Save(path, doc); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if !doc.Metadata.CreatedAt.Equal(created) {
		t.Errorf("created timestamp changed on second save: %v -> %v", created, doc.Metadata.CreatedAt)
	}
	if doc.Metadata.UpdatedAt.Before(firstUpdate) {
		t.Errorf("updated timestamp moved backwards: %v -> %v", firstUpdate, doc.Metadata.UpdatedAt)
	}
}

func TestLoadMalformed(t *testing.T) {
	store := NewFileStore()
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{"metadata": {`},
		{"unknown role", `{"metadata": {}, "messages": [{"role": "system", "content": ["x"]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("failed to write fixture: %v", err)
			}
			_, err := store.Load(path)
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("Load error = %v, want ErrMalformedDocument", err)
			}
		})
	}

	if _, err := store.Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load of missing file succeeded")
	} else if errors.Is(err, ErrMalformedDocument) {
		t.Error("missing file misreported as malformed")
	}
}

func TestListEntries(t *testing.T) {
	store := NewFileStore()
	dir := t.TempDir()

	older := NewDocument("older")
	older.Append(NewUserMessage("a"))
	if err := store.Save(filepath.Join(dir, "older.json"), older); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	newer := NewDocument("newer")
	newer.Append(NewUserMessage("a"), NewAssistantMessage("b", "m", nil))
	if err := store.Save(filepath.Join(dir, "newer.json"), newer); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Corrupt and unrelated files must not break the listing.
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	entries, err := store.ListEntries(dir)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ListEntries returned %d entries, want 2", len(entries))
	}
	if entries[0].Title != "newer" || entries[1].Title != "older" {
		t.Errorf("entries not sorted most-recent first: %q, %q", entries[0].Title, entries[1].Title)
	}
	if entries[0].MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", entries[0].MessageCount)
	}

	// A missing directory lists as empty, not as an error.
	entries, err = store.ListEntries(filepath.Join(dir, "nope"))
	if err != nil || entries != nil {
		t.Errorf("ListEntries on missing dir = (%v, %v), want (nil, nil)", entries, err)
	}
}

func TestDelete(t *testing.T) {
	store := NewFileStore()
	path := filepath.Join(t.TempDir(), "gone.json")

	if err := store.Save(path, NewDocument("gone")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(path); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(path); err == nil {
		t.Error("Load succeeded after Delete")
	}
	if err := store.Delete(path); err == nil {
		t.Error("Delete of missing file succeeded")
	}
}

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "work-notes", false},
		{"with extension", "work-notes.json", false},
		{"empty", "", true},
		{"path separator", "a/b", true},
		{"windows separator", `a\b`, true},
		{"parent traversal", "..", true},
		{"embedded traversal", "a..b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFileName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
