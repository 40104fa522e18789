package orchestrator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/parleydev/parley/internal/action"
	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/logging"
	"github.com/parleydev/parley/internal/provider"
	"github.com/parleydev/parley/internal/session"
	"github.com/parleydev/parley/internal/transition"
)

const maxTitleRunes = 60

// UserMessage turns one line of plain user input into a Send for the
// dispatch pipeline, applying the interaction mode's turn rules.
func (o *Orchestrator) UserMessage(text string) (action.Action, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return action.Continue{}, nil
	}
	switch o.state.InteractionMode() {
	case session.ModeRetry:
		return o.retryTurn(text)
	case session.ModeSecret:
		return o.secretTurn(text)
	default:
		return o.normalTurn(text)
	}
}

// normalTurn appends the user message optimistically and persists before
// the network call, so a crash mid-send loses nothing the user typed.
func (o *Orchestrator) normalTurn(text string) (action.Action, error) {
	if !o.state.HasDocument() {
		o.state.SwitchDocument(chat.NewDocument(""), o.newChatPath())
	}
	doc := o.state.Document()
	if doc.Metadata.Title == "" {
		doc.Metadata.Title = autoTitle(text)
	}

	userMsg := chat.NewUserMessage(text)
	userMsg.RefID = o.state.Refs().Generate()
	doc.Append(userMsg)

	path := o.state.DocumentPath()
	if err := o.store.Save(path, doc); err != nil {
		doc.PopLast()
		o.state.Refs().Release(userMsg.RefID)
		return nil, fmt.Errorf("failed to save chat: %w", err)
	}

	return action.Send{
		Mode:        session.ModeNormal,
		Messages:    doc.CloneMessages(),
		Search:      o.search,
		AssistantID: o.state.Refs().Generate(),
		ChatPath:    path,
		ChatDoc:     doc,
	}, nil
}

// retryTurn builds a send over the frozen context. Nothing is persisted;
// the reply lands in the attempt set until one is applied.
func (o *Orchestrator) retryTurn(text string) (action.Action, error) {
	frozen, err := o.state.Retry().Context()
	if err != nil {
		return nil, err
	}
	msgs := make([]chat.Message, 0, len(frozen)+1)
	msgs = append(msgs, frozen...)
	msgs = append(msgs, chat.NewUserMessage(text))

	return action.Send{
		Mode:          session.ModeRetry,
		Messages:      msgs,
		Search:        o.search,
		RetryUserText: text,
		AssistantID:   o.state.Refs().Generate(),
	}, nil
}

// secretTurn re-reads the live conversation each turn, so replies stay
// current with the persisted history without ever joining it.
func (o *Orchestrator) secretTurn(text string) (action.Action, error) {
	if !o.state.Secret().Active() {
		return nil, session.ErrNotActive
	}
	var msgs []chat.Message
	if doc := o.state.Document(); doc != nil {
		msgs = doc.CloneMessages()
	}
	msgs = append(msgs, chat.NewUserMessage(text))

	return action.Send{
		Mode:        session.ModeSecret,
		Messages:    msgs,
		Search:      o.search,
		AssistantID: o.state.Refs().Generate(),
	}, nil
}

// HandleSuccess records a completed reply. Exactly one of the four
// handlers runs per Send.
func (o *Orchestrator) HandleSuccess(act action.Send, content string, meta *provider.Metadata) error {
	model := o.state.Model()
	var citations []string
	if meta != nil {
		if meta.Model != "" {
			model = meta.Model
		}
		citations = meta.Citations
	}

	switch act.Mode {
	case session.ModeRetry:
		id, err := o.state.Retry().AddAttempt(act.RetryUserText, content, act.AssistantID, model, citations)
		if err != nil {
			o.state.Refs().Release(act.AssistantID)
			return err
		}
		o.log.Debug("stored retry attempt", logging.Fields{"id": id})
		return nil
	case session.ModeSecret:
		o.state.Refs().Release(act.AssistantID)
		return nil
	}

	hasChat := act.ChatDoc != nil && act.ChatPath != ""
	if !transition.CanMutateNormalChat(act.Mode, hasChat) {
		if act.AssistantID != "" {
			o.state.Refs().Release(act.AssistantID)
		}
		return nil
	}
	msg := chat.NewAssistantMessage(content, model, citations)
	msg.RefID = act.AssistantID
	if msg.RefID == "" {
		msg.RefID = o.state.Refs().Generate()
	}
	act.ChatDoc.Append(msg)
	if err := o.store.Save(act.ChatPath, act.ChatDoc); err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

// HandleError records a failed send: the optimistic user message rolls
// back and a sanitized error message takes its place in the history.
func (o *Orchestrator) HandleError(act action.Send, sendErr error) error {
	hasChat := act.ChatDoc != nil && act.ChatPath != ""
	if transition.ShouldReleaseForError(act.Mode, hasChat, act.AssistantID != "") {
		o.state.Refs().Release(act.AssistantID)
	}
	if !transition.CanMutateNormalChat(act.Mode, hasChat) {
		return nil
	}

	o.popTrailingUser(act.ChatDoc)
	errMsg := chat.NewErrorMessage(provider.Sanitize(sendErr), provider.ErrorDetail(sendErr))
	errMsg.RefID = o.state.Refs().Generate()
	act.ChatDoc.Append(errMsg)
	if err := o.store.Save(act.ChatPath, act.ChatDoc); err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

// HandleCancel rolls an interrupted send back to its pre-send state.
// Cancellation is not an error, so no error message is recorded.
func (o *Orchestrator) HandleCancel(act action.Send) error {
	hasChat := act.ChatDoc != nil && act.ChatPath != ""
	if transition.ShouldReleaseForCancel(act.Mode, hasChat, act.AssistantID != "") {
		o.state.Refs().Release(act.AssistantID)
	}
	if !transition.CanMutateNormalChat(act.Mode, hasChat) {
		return nil
	}
	if !transition.HasTrailingUserMessage(act.ChatDoc) {
		return nil
	}
	o.popTrailingUser(act.ChatDoc)
	if err := o.store.Save(act.ChatPath, act.ChatDoc); err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

// HandleSendFailure undoes a turn rejected before any network call, such
// as requesting search from a provider that cannot search.
func (o *Orchestrator) HandleSendFailure(act action.Send) error {
	hasChat := act.ChatDoc != nil && act.ChatPath != ""
	if transition.ShouldRollbackPreSend(act.Mode, hasChat, act.ChatDoc) {
		o.popTrailingUser(act.ChatDoc)
		if err := o.store.Save(act.ChatPath, act.ChatDoc); err != nil {
			return fmt.Errorf("failed to save chat: %w", err)
		}
	}
	if transition.ShouldReleaseForRollback(act.AssistantID != "") {
		o.state.Refs().Release(act.AssistantID)
	}
	return nil
}

// popTrailingUser removes a trailing user message and frees its ID.
func (o *Orchestrator) popTrailingUser(doc *chat.Document) {
	if !transition.HasTrailingUserMessage(doc) {
		return
	}
	if last, ok := doc.PopLast(); ok && last.RefID != "" {
		o.state.Refs().Release(last.RefID)
	}
}

// autoTitle derives a chat title from the opening words of a message.
func autoTitle(text string) string {
	fields := strings.Fields(text)
	if len(fields) > 8 {
		fields = fields[:8]
	}
	title := strings.Join(fields, " ")
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = string([]rune(title)[:maxTitleRunes])
	}
	return title
}
