package orchestrator

import (
	"errors"
	"fmt"

	"github.com/parleydev/parley/internal/action"
	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/session"
)

// Rewind removes the last n exchanges from the open conversation. An
// exchange is a user message and everything sent in reply to it.
func (o *Orchestrator) Rewind(n int) (action.Action, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid rewind count %d", n)
	}
	if o.state.InteractionMode() != session.ModeNormal {
		return nil, fmt.Errorf("rewind while a mode is active: %w", session.ErrModeConflict)
	}
	doc := o.state.Document()
	if doc == nil || doc.Len() == 0 {
		return nil, errors.New("no messages to rewind")
	}

	noun := "exchange"
	if n > 1 {
		noun = "exchanges"
	}
	ok, err := o.terminal.Confirm(fmt.Sprintf("Remove the last %d %s?", n, noun))
	if err != nil {
		return nil, err
	}
	if !ok {
		return action.Continue{Message: "Rewind cancelled."}, nil
	}

	removed := 0
	for i := 0; i < n && doc.Len() > 0; i++ {
		// Drop back through the replies to the user message that
		// started the exchange, inclusive.
		for doc.Len() > 0 {
			popped, _ := doc.PopLast()
			if popped.RefID != "" {
				o.state.Refs().Release(popped.RefID)
			}
			removed++
			if popped.Role == chat.RoleUser {
				break
			}
		}
	}
	// Save directly: a rewind may empty the chat, and the emptied state
	// must still reach disk.
	if err := o.store.Save(o.state.DocumentPath(), doc); err != nil {
		return nil, fmt.Errorf("failed to save chat: %w", err)
	}
	return action.Continue{Message: fmt.Sprintf("Removed %d message(s).", removed)}, nil
}

// Purge clears every message from the open conversation, keeping its
// metadata.
func (o *Orchestrator) Purge() (action.Action, error) {
	if o.state.InteractionMode() != session.ModeNormal {
		return nil, fmt.Errorf("purge while a mode is active: %w", session.ErrModeConflict)
	}
	doc := o.state.Document()
	if doc == nil || doc.Len() == 0 {
		return nil, errors.New("no messages to purge")
	}

	ok, err := o.terminal.Confirm(fmt.Sprintf("Delete all %d messages in this chat?", doc.Len()))
	if err != nil {
		return nil, err
	}
	if !ok {
		return action.Continue{Message: "Purge cancelled."}, nil
	}

	for doc.Len() > 0 {
		popped, _ := doc.PopLast()
		if popped.RefID != "" {
			o.state.Refs().Release(popped.RefID)
		}
	}
	if err := o.store.Save(o.state.DocumentPath(), doc); err != nil {
		return nil, fmt.Errorf("failed to save chat: %w", err)
	}
	return action.Continue{Message: "Chat emptied."}, nil
}
