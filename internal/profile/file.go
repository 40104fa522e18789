package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ProfileFileName is the name of the profile file
const ProfileFileName = "profile.json"

// Paths returns the locations checked for a profile, in priority order.
func Paths() []string {
	var paths []string

	// 1. Current directory
	paths = append(paths, filepath.Join(".", ".parley", ProfileFileName))

	// 2. User config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "parley", ProfileFileName))
	}

	// 3. Home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "parley", ProfileFileName))
	}

	return paths
}

// Load reads the profile, honoring the explicit path override, and
// validates it. A missing profile is an error: unlike optional settings,
// nothing works without configured providers.
func Load() (*Profile, error) {
	if path := os.Getenv(EnvProfilePath); path != "" {
		return LoadPath(path)
	}

	for _, path := range Paths() {
		if _, err := os.Stat(path); err == nil {
			return LoadPath(path)
		}
	}

	return nil, fmt.Errorf("no profile found (looked in %v): %w", Paths(), ErrNoProviders)
}

// LoadPath reads and validates the profile at an explicit path.
func LoadPath(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return &p, nil
}

func defaultChatsDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "parley", "chats")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "parley", "chats")
	}
	return filepath.Join(".", ".parley", "chats")
}

// CreateDefault writes a starter profile to the user config directory and
// returns its path. Refuses to overwrite an existing profile.
func CreateDefault() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine config directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "parley")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create profile directory: %w", err)
	}

	path := filepath.Join(dir, ProfileFileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("profile already exists at %s", path)
	}

	starter := Profile{
		DefaultProvider: "openai",
		Providers: map[string]Provider{
			"openai": {
				Kind:      KindOpenAI,
				BaseURL:   "https://api.openai.com/v1",
				APIKeyEnv: "OPENAI_API_KEY",
				Model:     "gpt-4o-mini",
				Models:    []string{"gpt-4o-mini", "gpt-4o"},
			},
			"anthropic": {
				Kind:      KindAnthropic,
				BaseURL:   "https://api.anthropic.com",
				APIKeyEnv: "ANTHROPIC_API_KEY",
				Model:     "claude-sonnet-4-5",
			},
			"perplexity": {
				Kind:      KindOpenAI,
				BaseURL:   "https://api.perplexity.ai",
				APIKeyEnv: "PERPLEXITY_API_KEY",
				Model:     "sonar",
				Search:    true,
			},
		},
		SystemPrompts: map[string]string{
			DefaultSystemPromptName: DefaultSystemPromptText,
			"coder":                 "You are a concise programming assistant. Prefer code over prose.",
		},
		Defaults: &Defaults{Stream: true, Render: true},
	}

	data, err := json.MarshalIndent(starter, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal starter profile: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write profile: %w", err)
	}
	return path, nil
}
