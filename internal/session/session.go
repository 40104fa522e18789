// Package session holds the single mutable record of one interactive
// session: current provider and model, the open conversation document,
// input mode, timeout, and the two exclusive sub-mode controllers.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/refid"
)

// Error kinds callers must distinguish: a conflicting mode is recoverable
// by exiting the other mode; "not active" means the operation requires a
// mode that is not entered.
var (
	ErrModeConflict = errors.New("conflicting interaction mode")
	ErrNotActive    = errors.New("mode not active")
)

// Mode is the session's derived interaction mode.
type Mode string

// Interaction modes
const (
	ModeNormal Mode = "normal"
	ModeRetry  Mode = "retry"
	ModeSecret Mode = "secret"
)

// InputMode controls how the read loop assembles a message from input lines.
type InputMode string

// Input modes: quick sends each line, compose buffers until a lone ".".
const (
	InputQuick   InputMode = "quick"
	InputCompose InputMode = "compose"
)

// Invalidator clears a cache of constructed provider clients. The session
// calls it whenever the request timeout changes, since cached clients bake
// the timeout in.
type Invalidator interface {
	Invalidate()
}

// State is the session record. It is confined to the read loop's goroutine;
// no internal locking is needed because only one operation is ever in
// flight per session.
type State struct {
	provider string
	model    string

	helperProvider string
	helperModel    string

	inputMode    InputMode
	systemPrompt string

	doc     *chat.Document
	docPath string

	refs   *refid.Set
	retry  *RetryController
	secret *SecretController

	timeout        time.Duration
	defaultTimeout time.Duration
	cache          Invalidator
}

// New creates session state from profile defaults.
func New(provider, model, systemPrompt string, timeout time.Duration) *State {
	refs := refid.NewSet()
	return &State{
		provider:       provider,
		model:          model,
		inputMode:      InputQuick,
		systemPrompt:   systemPrompt,
		refs:           refs,
		retry:          newRetryController(refs),
		secret:         newSecretController(),
		timeout:        timeout,
		defaultTimeout: timeout,
	}
}

// Provider returns the current provider name.
func (s *State) Provider() string { return s.provider }

// Model returns the current model name.
func (s *State) Model() string { return s.model }

// SetProvider switches the current provider and model together; a provider
// change without a model change is never meaningful.
func (s *State) SetProvider(provider, model string) {
	s.provider = provider
	s.model = model
}

// SetModel switches the current model.
func (s *State) SetModel(model string) { s.model = model }

// HelperProvider returns the provider used for background tasks such as
// title and summary generation, defaulting to the current provider.
func (s *State) HelperProvider() string {
	if s.helperProvider == "" {
		return s.provider
	}
	return s.helperProvider
}

// HelperModel returns the model used for background tasks, defaulting to
// the current model when no helper is configured.
func (s *State) HelperModel() string {
	if s.helperModel == "" {
		return s.model
	}
	return s.helperModel
}

// SetHelper configures the background-task provider and model. Empty values
// fall back to the current provider/model.
func (s *State) SetHelper(provider, model string) {
	s.helperProvider = provider
	s.helperModel = model
}

// InputMode returns the active input mode.
func (s *State) InputMode() InputMode { return s.inputMode }

// SetInputMode validates and sets the input mode.
func (s *State) SetInputMode(mode InputMode) error {
	switch mode {
	case InputQuick, InputCompose:
		s.inputMode = mode
		return nil
	}
	return fmt.Errorf("invalid input mode %q (valid: %s, %s)", mode, InputQuick, InputCompose)
}

// SystemPrompt returns the session's system-prompt reference name.
func (s *State) SystemPrompt() string { return s.systemPrompt }

// SetSystemPrompt updates the session's system-prompt reference.
func (s *State) SetSystemPrompt(name string) { s.systemPrompt = name }

// Document returns the open conversation document, or nil.
func (s *State) Document() *chat.Document { return s.doc }

// DocumentPath returns the open document's storage path, or "" when the
// document has never been persisted.
func (s *State) DocumentPath() string { return s.docPath }

// HasDocument reports whether a conversation is open.
func (s *State) HasDocument() bool { return s.doc != nil }

// Refs returns the live reference-ID set.
func (s *State) Refs() *refid.Set { return s.refs }

// Retry returns the retry-mode controller.
func (s *State) Retry() *RetryController { return s.retry }

// Secret returns the secret-mode controller.
func (s *State) Secret() *SecretController { return s.secret }

// SetCache hands the session the provider-instance cache to invalidate on
// timeout changes.
func (s *State) SetCache(c Invalidator) { s.cache = c }

// Timeout returns the effective request timeout.
func (s *State) Timeout() time.Duration { return s.timeout }

// SetTimeout overrides the request timeout and invalidates any cached
// provider clients, whose connections bake the old timeout in.
func (s *State) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid timeout %v: must be positive", d)
	}
	s.timeout = d
	s.invalidateCache()
	return nil
}

// ResetTimeout restores the profile default, invalidating cached clients.
func (s *State) ResetTimeout() {
	s.timeout = s.defaultTimeout
	s.invalidateCache()
}

func (s *State) invalidateCache() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

// InteractionMode derives the current mode from the controllers.
func (s *State) InteractionMode() Mode {
	switch {
	case s.retry.Active():
		return ModeRetry
	case s.secret.Active():
		return ModeSecret
	}
	return ModeNormal
}

// SwitchDocument replaces the open document: the ID set is rebuilt from
// scratch, every message gets a fresh reference ID, both mode controllers
// are cleared, and missing metadata is backfilled from the session. An
// explicit system prompt in the incoming metadata is never overwritten.
func (s *State) SwitchDocument(doc *chat.Document, path string) {
	s.retry.Exit()
	s.secret.Exit()
	s.refs.Reset()

	for i := range doc.Messages {
		doc.Messages[i].RefID = s.refs.Generate()
	}
	if doc.Metadata.SystemPrompt == "" && s.systemPrompt != "" {
		doc.Metadata.SystemPrompt = s.systemPrompt
	}

	s.doc = doc
	s.docPath = path
}

// SetDocumentPath records where the open document is persisted.
func (s *State) SetDocumentPath(path string) { s.docPath = path }

// CloseDocument clears the open document, the ID set, and both mode
// controllers.
func (s *State) CloseDocument() {
	s.retry.Exit()
	s.secret.Exit()
	s.refs.Reset()
	s.doc = nil
	s.docPath = ""
}
