// Package orchestrator owns the side effects behind the interactive loop:
// chat lifecycle, per-turn message assembly, and the terminal transitions
// of a send. Command handlers stay thin by emitting Signals; the
// orchestrator resolves them into executable Actions.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parleydev/parley/internal/action"
	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/logging"
	"github.com/parleydev/parley/internal/profile"
	"github.com/parleydev/parley/internal/provider"
	"github.com/parleydev/parley/internal/session"
	"github.com/parleydev/parley/internal/term"
)

// Orchestrator coordinates the session state, the chat store, the provider
// cache, and the terminal. All methods run on the loop goroutine.
type Orchestrator struct {
	state    *session.State
	store    chat.Store
	cache    *provider.Cache
	prof     *profile.Profile
	terminal term.Terminal
	log      *logging.Logger

	search bool
}

// New wires an orchestrator over its collaborators. The logger may be nil,
// in which case the package default is used.
func New(state *session.State, store chat.Store, cache *provider.Cache, prof *profile.Profile, terminal term.Terminal, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.DefaultLogger
	}
	return &Orchestrator{
		state:    state,
		store:    store,
		cache:    cache,
		prof:     prof,
		terminal: terminal,
		log:      log,
	}
}

// SetSearch toggles web search for subsequent turns. Providers that cannot
// search reject the flag before any network call.
func (o *Orchestrator) SetSearch(enabled bool) { o.search = enabled }

// Search reports whether web search is requested on sends.
func (o *Orchestrator) Search() bool { return o.search }

// Resolve performs the side effects a Signal stands for and translates it
// into an Action for the read loop.
func (o *Orchestrator) Resolve(sig action.Signal) (action.Action, error) {
	switch s := sig.(type) {
	case action.Exit:
		if err := o.persistOpen(); err != nil {
			return nil, err
		}
		return action.Break{}, nil
	case action.NewChat:
		return o.newChat(s.Title)
	case action.OpenChat:
		return o.openChat(s.Name)
	case action.CloseChat:
		return o.closeChat()
	case action.RenameChat:
		return o.renameChat(s.Title)
	case action.DeleteChat:
		return o.deleteChat(s.Name)
	case action.ApplyRetry:
		return o.applyRetry(s.ID)
	case action.CancelRetry:
		if !o.state.Retry().Active() {
			return nil, fmt.Errorf("cancel retry: %w", session.ErrNotActive)
		}
		o.state.Retry().Exit()
		return action.Continue{Message: "Retry cancelled; conversation unchanged."}, nil
	case action.ClearSecret:
		if !o.state.Secret().Active() {
			return nil, fmt.Errorf("clear secret context: %w", session.ErrNotActive)
		}
		o.state.Secret().Exit()
		return action.Continue{Message: "Secret mode off; nothing was recorded."}, nil
	}
	return nil, fmt.Errorf("unresolvable signal %T", sig)
}

// persistOpen saves the open conversation, if any. Empty conversations are
// not written; a file with no messages is noise in the chat list.
func (o *Orchestrator) persistOpen() error {
	doc := o.state.Document()
	path := o.state.DocumentPath()
	if doc == nil || path == "" || doc.Len() == 0 {
		return nil
	}
	if err := o.store.Save(path, doc); err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

// newChatPath builds a unique filename for a fresh conversation.
func (o *Orchestrator) newChatPath() string {
	stamp := time.Now().Format("20060102-150405")
	return filepath.Join(o.prof.ChatsDir, fmt.Sprintf("%s-%s.json", stamp, uuid.NewString()[:8]))
}

func (o *Orchestrator) newChat(title string) (action.Action, error) {
	if err := o.persistOpen(); err != nil {
		return nil, err
	}
	doc := chat.NewDocument(title)
	o.state.SwitchDocument(doc, o.newChatPath())
	o.log.Debug("opened new chat", logging.Fields{"path": o.state.DocumentPath()})
	if title == "" {
		return action.Continue{Message: "Started a new chat."}, nil
	}
	return action.Continue{Message: fmt.Sprintf("Started a new chat: %s", title)}, nil
}

func (o *Orchestrator) openChat(name string) (action.Action, error) {
	if err := o.persistOpen(); err != nil {
		return nil, err
	}
	if name == "" {
		picked, err := o.pickChat("Open which chat?")
		if err != nil {
			if errors.Is(err, term.ErrCancelled) {
				return action.Continue{}, nil
			}
			return nil, err
		}
		name = picked
	}
	if err := chat.ValidateFileName(name); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	path := filepath.Join(o.prof.ChatsDir, name)
	doc, err := o.store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat: %w", err)
	}
	o.state.SwitchDocument(doc, path)
	title := doc.Metadata.Title
	if title == "" {
		title = name
	}
	return action.Continue{Message: fmt.Sprintf("Opened chat: %s (%d messages)", title, doc.Len())}, nil
}

func (o *Orchestrator) closeChat() (action.Action, error) {
	if !o.state.HasDocument() {
		return nil, errors.New("no chat is open")
	}
	if err := o.persistOpen(); err != nil {
		return nil, err
	}
	o.state.CloseDocument()
	return action.Continue{Message: "Chat saved and closed."}, nil
}

func (o *Orchestrator) renameChat(title string) (action.Action, error) {
	doc := o.state.Document()
	if doc == nil {
		return nil, errors.New("no chat is open")
	}
	if title == "" {
		ctx, cancel := context.WithTimeout(context.Background(), o.state.Timeout())
		defer cancel()
		generated, err := o.GenerateTitle(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate title: %w", err)
		}
		title = generated
	}
	doc.Metadata.Title = title
	if err := o.persistOpen(); err != nil {
		return nil, err
	}
	return action.Continue{Message: fmt.Sprintf("Renamed chat to: %s", title)}, nil
}

func (o *Orchestrator) deleteChat(name string) (action.Action, error) {
	if name == "" {
		picked, err := o.pickChat("Delete which chat?")
		if err != nil {
			if errors.Is(err, term.ErrCancelled) {
				return action.Continue{}, nil
			}
			return nil, err
		}
		name = picked
	}
	if err := chat.ValidateFileName(name); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	ok, err := o.terminal.Confirm(fmt.Sprintf("Delete chat %q? This cannot be undone.", name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return action.Continue{Message: "Delete cancelled."}, nil
	}
	path := filepath.Join(o.prof.ChatsDir, name)
	if o.state.DocumentPath() == path {
		o.state.CloseDocument()
	}
	if err := o.store.Delete(path); err != nil {
		return nil, fmt.Errorf("failed to delete chat: %w", err)
	}
	return action.Continue{Message: fmt.Sprintf("Deleted chat: %s", name)}, nil
}

// pickChat lists stored conversations and asks the user to choose one.
// Returns the chosen filename.
func (o *Orchestrator) pickChat(title string) (string, error) {
	entries, err := o.store.ListEntries(o.prof.ChatsDir)
	if err != nil {
		return "", fmt.Errorf("failed to list chats: %w", err)
	}
	if len(entries) == 0 {
		return "", errors.New("no stored chats")
	}
	options := make([]string, len(entries))
	for i, e := range entries {
		label := e.Title
		if label == "" {
			label = e.Filename
		}
		options[i] = fmt.Sprintf("%s (%d messages, %s)", label, e.MessageCount, e.UpdatedAt.Format("2006-01-02"))
	}
	idx, err := o.terminal.PromptSelection(title, options, true)
	if err != nil {
		return "", err
	}
	return entries[idx].Filename, nil
}
