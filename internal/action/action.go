// Package action defines the closed set of outcomes produced by command
// handlers and user-message handling. Actions are executed directly by the
// read loop; Signals are first resolved by the orchestrator, which performs
// the associated chat-lifecycle side effects.
package action

import (
	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/session"
)

// Outcome is the result of processing one line of user input. The variant
// set is closed: only the Action and Signal types below implement it.
type Outcome interface {
	isOutcome()
}

// Action is an outcome the read loop executes without further resolution.
type Action interface {
	Outcome
	isAction()
}

// Signal is an outcome the orchestrator must resolve into an Action.
type Signal interface {
	Outcome
	isSignal()
}

// Break terminates the read loop.
type Break struct{}

// Print shows a message; no state changes.
type Print struct {
	Message string
}

// Continue keeps the loop running, optionally showing a message. It never
// carries chat data; the loop reads the live session, so there is no stale
// copy to drift.
type Continue struct {
	Message string
}

// Send hands one conversation turn to the provider-dispatch pipeline.
type Send struct {
	Mode     session.Mode
	Messages []chat.Message
	Search   bool

	// RetryUserText is the user text of the retried turn; set only in
	// retry mode, where the turn is stored as an attempt instead of
	// being appended to the document.
	RetryUserText string

	// AssistantID is the reference ID reserved for the reply before the
	// network call, so the streamed output carries a stable label.
	AssistantID string

	// ChatPath and ChatDoc identify the open conversation for normal-mode
	// persistence; both are empty/nil in retry and secret modes.
	ChatPath string
	ChatDoc  *chat.Document
}

func (Break) isOutcome()    {}
func (Print) isOutcome()    {}
func (Continue) isOutcome() {}
func (Send) isOutcome()     {}

func (Break) isAction()    {}
func (Print) isAction()    {}
func (Continue) isAction() {}
func (Send) isAction()     {}

// Exit asks to terminate the session, persisting any open conversation.
type Exit struct{}

// NewChat creates and opens a fresh conversation.
type NewChat struct {
	Title string
}

// OpenChat loads a stored conversation by name; an empty name asks the
// user to pick one.
type OpenChat struct {
	Name string
}

// CloseChat saves and closes the open conversation.
type CloseChat struct{}

// RenameChat retitles the open conversation. An empty title requests a
// generated one from the helper model.
type RenameChat struct {
	Title string
}

// DeleteChat removes a stored conversation by name; an empty name asks the
// user to pick one.
type DeleteChat struct {
	Name string
}

// ApplyRetry replaces the retry target with the attempt labeled ID.
// The literal "last" selects the most recent attempt.
type ApplyRetry struct {
	ID string
}

// CancelRetry exits retry mode, discarding all attempts.
type CancelRetry struct{}

// ClearSecret exits secret mode, discarding its context.
type ClearSecret struct{}

func (Exit) isOutcome()        {}
func (NewChat) isOutcome()     {}
func (OpenChat) isOutcome()    {}
func (CloseChat) isOutcome()   {}
func (RenameChat) isOutcome()  {}
func (DeleteChat) isOutcome()  {}
func (ApplyRetry) isOutcome()  {}
func (CancelRetry) isOutcome() {}
func (ClearSecret) isOutcome() {}

func (Exit) isSignal()        {}
func (NewChat) isSignal()     {}
func (OpenChat) isSignal()    {}
func (CloseChat) isSignal()   {}
func (RenameChat) isSignal()  {}
func (DeleteChat) isSignal()  {}
func (ApplyRetry) isSignal()  {}
func (CancelRetry) isSignal() {}
func (ClearSecret) isSignal() {}
