// Package profile loads the JSON profile describing configured providers,
// named system prompts, and session defaults. Precedence is flags over
// environment variables over the profile file.
package profile

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Environment variable names
const (
	// EnvProfilePath points at an explicit profile file, bypassing the
	// search paths.
	EnvProfilePath = "PARLEY_PROFILE"
	// EnvProvider overrides the profile's default provider.
	EnvProvider = "PARLEY_PROVIDER"
	// EnvChatsDir overrides where conversations are stored.
	EnvChatsDir = "PARLEY_CHATS_DIR"
)

// Defaults applied by Validate when the profile leaves them unset.
const (
	// DefaultTimeout bounds one provider request; streams can take a while.
	DefaultTimeout = 120 * time.Second

	DefaultSystemPromptName = "default"
	DefaultSystemPromptText = "Be precise and concise."
)

// Errors
var (
	ErrNoProviders         = errors.New("no providers configured. Run 'parley init' to create a profile")
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrUnknownSystemPrompt = errors.New("unknown system prompt")
	ErrMissingCredential   = errors.New("missing API key")
	ErrUnknownKind         = errors.New("unknown provider kind")
)

// Kind selects the wire format a provider adapter speaks.
type Kind string

// Provider kinds
const (
	// KindOpenAI is the chat-completions format, also spoken by
	// OpenAI-compatible endpoints such as Perplexity and xAI.
	KindOpenAI Kind = "openai"
	// KindAnthropic is the Anthropic messages format.
	KindAnthropic Kind = "anthropic"
)

// Valid reports whether k names a supported adapter.
func (k Kind) Valid() bool {
	return k == KindOpenAI || k == KindAnthropic
}

// Provider describes one configured endpoint. BaseURL carries everything
// up to the wire-format path: the openai kind appends /chat/completions,
// the anthropic kind appends /v1/messages.
type Provider struct {
	Kind      Kind     `json:"kind"`
	BaseURL   string   `json:"base_url,omitempty"`
	APIKey    string   `json:"api_key,omitempty"`
	APIKeyEnv string   `json:"api_key_env,omitempty"`
	Model     string   `json:"model,omitempty"`
	Models    []string `json:"models,omitempty"`
	MaxTokens int      `json:"max_tokens,omitempty"`
	// Search marks providers that accept a web-search toggle and return
	// citations (Perplexity-style).
	Search bool `json:"search,omitempty"`
}

// Credential resolves the provider's API key: the literal value first,
// then the named environment variable.
func (p Provider) Credential() (string, error) {
	if p.APIKey != "" {
		return p.APIKey, nil
	}
	if p.APIKeyEnv != "" {
		if key := strings.TrimSpace(os.Getenv(p.APIKeyEnv)); key != "" {
			return key, nil
		}
		return "", fmt.Errorf("%w: set %s", ErrMissingCredential, p.APIKeyEnv)
	}
	return "", fmt.Errorf("%w: set api_key or api_key_env in the profile", ErrMissingCredential)
}

// DefaultModel returns the provider's default model: the explicit one, or
// the first of its model list.
func (p Provider) DefaultModel() string {
	if p.Model != "" {
		return p.Model
	}
	if len(p.Models) > 0 {
		return p.Models[0]
	}
	return ""
}

// ValidateModel checks the model against the provider's configured list.
// An empty list disables validation.
func (p Provider) ValidateModel(model string) bool {
	if len(p.Models) == 0 {
		return true
	}
	for _, m := range p.Models {
		if m == model {
			return true
		}
	}
	return false
}

// ModelNames returns the configured models as a display string.
func (p Provider) ModelNames() string {
	if len(p.Models) == 0 {
		return p.Model
	}
	return strings.Join(p.Models, ", ")
}

// Defaults holds flag defaults applied to interactive sessions. Only true
// values apply, since an unset flag and a false flag are indistinguishable.
type Defaults struct {
	Stream bool `json:"stream,omitempty"`
	Render bool `json:"render,omitempty"`
	Search bool `json:"search,omitempty"`
}

// Profile is the loaded configuration.
type Profile struct {
	DefaultProvider string              `json:"default_provider,omitempty"`
	Providers       map[string]Provider `json:"providers,omitempty"`

	SystemPrompts       map[string]string `json:"system_prompts,omitempty"`
	DefaultSystemPrompt string            `json:"default_system_prompt,omitempty"`

	HelperProvider string `json:"helper_provider,omitempty"`
	HelperModel    string `json:"helper_model,omitempty"`

	ChatsDir       string    `json:"chats_dir,omitempty"`
	TimeoutSeconds int       `json:"timeout_seconds,omitempty"`
	Defaults       *Defaults `json:"defaults,omitempty"`
}

// Validate fills defaults, applies environment overrides, and checks that
// the profile is usable.
func (p *Profile) Validate() error {
	if len(p.Providers) == 0 {
		return ErrNoProviders
	}
	for name, prov := range p.Providers {
		if !prov.Kind.Valid() {
			return fmt.Errorf("%w: provider %q has kind %q (valid: %s, %s)", ErrUnknownKind, name, prov.Kind, KindOpenAI, KindAnthropic)
		}
	}

	if env := os.Getenv(EnvProvider); env != "" {
		p.DefaultProvider = env
	}
	if p.DefaultProvider == "" {
		p.DefaultProvider = p.firstProviderName()
	}
	if _, ok := p.Providers[p.DefaultProvider]; !ok {
		return fmt.Errorf("%w: default provider %q not in profile", ErrUnknownProvider, p.DefaultProvider)
	}

	if p.HelperProvider != "" {
		if _, ok := p.Providers[p.HelperProvider]; !ok {
			return fmt.Errorf("%w: helper provider %q not in profile", ErrUnknownProvider, p.HelperProvider)
		}
	}

	if p.SystemPrompts == nil {
		p.SystemPrompts = make(map[string]string)
	}
	if _, ok := p.SystemPrompts[DefaultSystemPromptName]; !ok {
		p.SystemPrompts[DefaultSystemPromptName] = DefaultSystemPromptText
	}
	if p.DefaultSystemPrompt == "" {
		p.DefaultSystemPrompt = DefaultSystemPromptName
	}
	if _, ok := p.SystemPrompts[p.DefaultSystemPrompt]; !ok {
		return fmt.Errorf("%w: default system prompt %q not in profile", ErrUnknownSystemPrompt, p.DefaultSystemPrompt)
	}

	if env := os.Getenv(EnvChatsDir); env != "" {
		p.ChatsDir = env
	}
	if p.ChatsDir == "" {
		p.ChatsDir = defaultChatsDir()
	}

	if p.TimeoutSeconds < 0 {
		return fmt.Errorf("invalid timeout_seconds %d: must not be negative", p.TimeoutSeconds)
	}
	return nil
}

// Timeout returns the configured request timeout.
func (p *Profile) Timeout() time.Duration {
	if p.TimeoutSeconds > 0 {
		return time.Duration(p.TimeoutSeconds) * time.Second
	}
	return DefaultTimeout
}

// Provider looks up a configured provider by name.
func (p *Profile) Provider(name string) (Provider, error) {
	prov, ok := p.Providers[name]
	if !ok {
		return Provider{}, fmt.Errorf("%w: %q (configured: %s)", ErrUnknownProvider, name, p.ProviderNames())
	}
	return prov, nil
}

// ProviderNames returns the configured provider names, sorted.
func (p *Profile) ProviderNames() string {
	names := make([]string, 0, len(p.Providers))
	for name := range p.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// SystemPromptText resolves a named system prompt.
func (p *Profile) SystemPromptText(name string) (string, error) {
	text, ok := p.SystemPrompts[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSystemPrompt, name)
	}
	return text, nil
}

// SystemPromptNames returns the configured prompt names, sorted.
func (p *Profile) SystemPromptNames() []string {
	names := make([]string, 0, len(p.SystemPrompts))
	for name := range p.SystemPrompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Profile) firstProviderName() string {
	names := make([]string, 0, len(p.Providers))
	for name := range p.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
