package cmd

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestBackupChats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"20250101-aaaa.json": `{"metadata":{"title":"one"}}`,
		"20250102-bbbb.json": `{"metadata":{"title":"two"}}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}
	// Non-chat entries are skipped.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir fixture: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "chats.zip")
	count, err := backupChats(dir, dest)
	if err != nil {
		t.Fatalf("backupChats: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	zr, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)

		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if got, want := string(body), files[f.Name]; got != want {
			t.Errorf("%s body = %q, want %q", f.Name, got, want)
		}
	}
	sort.Strings(names)
	want := []string{"20250101-aaaa.json", "20250102-bbbb.json"}
	if len(names) != len(want) {
		t.Fatalf("archived %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("archived %v, want %v", names, want)
			break
		}
	}
}

func TestBackupChatsEmptyDir(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "chats.zip")
	if _, err := backupChats(t.TempDir(), dest); err == nil {
		t.Fatal("expected error for a directory with no chats")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("empty backup still created an archive file")
	}
}
