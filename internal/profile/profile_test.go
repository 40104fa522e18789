package profile

import (
	"errors"
	"testing"
	"time"
)

func validProfile() *Profile {
	return &Profile{
		Providers: map[string]Provider{
			"openai": {
				Kind:    KindOpenAI,
				BaseURL: "https://api.openai.com",
				APIKey:  "test-key",
				Model:   "gpt-4o-mini",
				Models:  []string{"gpt-4o-mini", "gpt-4o"},
			},
			"anthropic": {
				Kind:      KindAnthropic,
				BaseURL:   "https://api.anthropic.com",
				APIKeyEnv: "TEST_ANTHROPIC_KEY",
				Model:     "claude-sonnet-4-5",
			},
		},
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	p := validProfile()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// Sorted-first provider becomes the default when unset.
	if p.DefaultProvider != "anthropic" {
		t.Errorf("DefaultProvider = %q, want anthropic", p.DefaultProvider)
	}
	if p.DefaultSystemPrompt != DefaultSystemPromptName {
		t.Errorf("DefaultSystemPrompt = %q, want %q", p.DefaultSystemPrompt, DefaultSystemPromptName)
	}
	if text, err := p.SystemPromptText(DefaultSystemPromptName); err != nil || text != DefaultSystemPromptText {
		t.Errorf("SystemPromptText(default) = (%q, %v)", text, err)
	}
	if p.ChatsDir == "" {
		t.Error("ChatsDir not defaulted")
	}
	if p.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", p.Timeout(), DefaultTimeout)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr error
	}{
		{
			name:    "no providers",
			mutate:  func(p *Profile) { p.Providers = nil },
			wantErr: ErrNoProviders,
		},
		{
			name: "bad kind",
			mutate: func(p *Profile) {
				prov := p.Providers["openai"]
				prov.Kind = "grpc"
				p.Providers["openai"] = prov
			},
			wantErr: ErrUnknownKind,
		},
		{
			name:    "unknown default provider",
			mutate:  func(p *Profile) { p.DefaultProvider = "nope" },
			wantErr: ErrUnknownProvider,
		},
		{
			name:    "unknown helper provider",
			mutate:  func(p *Profile) { p.HelperProvider = "nope" },
			wantErr: ErrUnknownProvider,
		},
		{
			name:    "unknown default system prompt",
			mutate:  func(p *Profile) { p.DefaultSystemPrompt = "nope" },
			wantErr: ErrUnknownSystemPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(p)
			if err := p.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEnvOverrides(t *testing.T) {
	t.Setenv(EnvProvider, "openai")
	t.Setenv(EnvChatsDir, "/tmp/test-chats")

	p := validProfile()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.DefaultProvider != "openai" {
		t.Errorf("DefaultProvider = %q, want env override openai", p.DefaultProvider)
	}
	if p.ChatsDir != "/tmp/test-chats" {
		t.Errorf("ChatsDir = %q, want env override", p.ChatsDir)
	}
}

func TestTimeoutExplicit(t *testing.T) {
	p := validProfile()
	p.TimeoutSeconds = 30
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", p.Timeout())
	}

	p.TimeoutSeconds = -1
	if err := p.Validate(); err == nil {
		t.Error("Validate() accepted negative timeout")
	}
}

func TestProviderLookup(t *testing.T) {
	p := validProfile()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	prov, err := p.Provider("openai")
	if err != nil {
		t.Fatalf("Provider(openai) error = %v", err)
	}
	if prov.Kind != KindOpenAI {
		t.Errorf("Kind = %q, want openai", prov.Kind)
	}

	if _, err := p.Provider("missing"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Provider(missing) error = %v, want ErrUnknownProvider", err)
	}
}

func TestCredential(t *testing.T) {
	t.Run("literal key", func(t *testing.T) {
		prov := Provider{APIKey: "literal"}
		key, err := prov.Credential()
		if err != nil || key != "literal" {
			t.Errorf("Credential() = (%q, %v), want (literal, nil)", key, err)
		}
	})

	t.Run("env key", func(t *testing.T) {
		t.Setenv("TEST_ANTHROPIC_KEY", "from-env")
		prov := Provider{APIKeyEnv: "TEST_ANTHROPIC_KEY"}
		key, err := prov.Credential()
		if err != nil || key != "from-env" {
			t.Errorf("Credential() = (%q, %v), want (from-env, nil)", key, err)
		}
	})

	t.Run("env key unset", func(t *testing.T) {
		t.Setenv("TEST_ANTHROPIC_KEY", "")
		prov := Provider{APIKeyEnv: "TEST_ANTHROPIC_KEY"}
		if _, err := prov.Credential(); !errors.Is(err, ErrMissingCredential) {
			t.Errorf("Credential() error = %v, want ErrMissingCredential", err)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		if _, err := (Provider{}).Credential(); !errors.Is(err, ErrMissingCredential) {
			t.Errorf("Credential() error = %v, want ErrMissingCredential", err)
		}
	})
}

func TestProviderModelHelpers(t *testing.T) {
	prov := Provider{Model: "a", Models: []string{"a", "b"}}
	if prov.DefaultModel() != "a" {
		t.Errorf("DefaultModel() = %q, want a", prov.DefaultModel())
	}
	if !prov.ValidateModel("b") || prov.ValidateModel("c") {
		t.Error("ValidateModel not checking the configured list")
	}

	listOnly := Provider{Models: []string{"x"}}
	if listOnly.DefaultModel() != "x" {
		t.Errorf("DefaultModel() = %q, want first listed", listOnly.DefaultModel())
	}

	// No list disables validation.
	open := Provider{}
	if !open.ValidateModel("anything") {
		t.Error("ValidateModel should accept anything with no configured list")
	}
}
