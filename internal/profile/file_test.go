package profile

import (
	"os"
	"path/filepath"
	"testing"
)

// writeProfile writes a profile fixture and returns its path.
func writeProfile(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, ProfileFileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write profile fixture: %v", err)
	}
	return path
}

const minimalProfile = `{
  "providers": {
    "openai": {
      "kind": "openai",
      "base_url": "https://api.openai.com",
      "api_key": "test-key",
      "model": "gpt-4o-mini"
    }
  }
}`

func TestLoadPathValid(t *testing.T) {
	path := writeProfile(t, t.TempDir(), minimalProfile)

	p, err := LoadPath(path)
	if err != nil {
		t.Fatalf("LoadPath() error = %v", err)
	}
	if p.DefaultProvider != "openai" {
		t.Errorf("DefaultProvider = %q, want openai", p.DefaultProvider)
	}
	prov, err := p.Provider("openai")
	if err != nil || prov.Model != "gpt-4o-mini" {
		t.Errorf("Provider(openai) = (%+v, %v)", prov, err)
	}
}

func TestLoadPathInvalidJSON(t *testing.T) {
	path := writeProfile(t, t.TempDir(), `{"providers": {`)

	if _, err := LoadPath(path); err == nil {
		t.Error("LoadPath() should return error for invalid JSON")
	}
}

func TestLoadPathInvalidProfile(t *testing.T) {
	path := writeProfile(t, t.TempDir(), `{"providers": {}}`)

	if _, err := LoadPath(path); err == nil {
		t.Error("LoadPath() should return error for a profile with no providers")
	}
}

func TestLoadPathNotFound(t *testing.T) {
	if _, err := LoadPath("/nonexistent/profile.json"); err == nil {
		t.Error("LoadPath() should return error for a missing file")
	}
}

func TestLoadHonorsEnvOverride(t *testing.T) {
	path := writeProfile(t, t.TempDir(), minimalProfile)
	t.Setenv(EnvProfilePath, path)

	p, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := p.Provider("openai"); err != nil {
		t.Errorf("loaded profile missing provider: %v", err)
	}
}

func TestPaths(t *testing.T) {
	paths := Paths()

	if len(paths) == 0 {
		t.Fatal("Paths() returned nothing")
	}
	if paths[0] != filepath.Join(".", ".parley", ProfileFileName) {
		t.Errorf("first path = %q, want current-directory path", paths[0])
	}
	for i, p := range paths {
		if filepath.Base(p) != ProfileFileName {
			t.Errorf("path %d = %q, should end with %q", i, p, ProfileFileName)
		}
	}
}

func TestCreateDefault(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	path, err := CreateDefault()
	if err != nil {
		t.Fatalf("CreateDefault() error = %v", err)
	}

	// The starter profile must itself be loadable and valid.
	p, err := LoadPath(path)
	if err != nil {
		t.Fatalf("starter profile does not load: %v", err)
	}
	if _, err := p.Provider(p.DefaultProvider); err != nil {
		t.Errorf("starter default provider unusable: %v", err)
	}

	// A second create must refuse to overwrite.
	if _, err := CreateDefault(); err == nil {
		t.Error("CreateDefault() should fail when the profile exists")
	}
}
