package orchestrator

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/parleydev/parley/internal/action"
	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/logging"
	"github.com/parleydev/parley/internal/session"
)

// EnterRetry freezes the conversation up to the targeted reply and starts
// collecting attempts. An empty ref targets the most recent reply.
func (o *Orchestrator) EnterRetry(ref string) (action.Action, error) {
	doc := o.state.Document()
	if doc == nil || doc.Len() == 0 {
		return nil, errors.New("no conversation to retry")
	}

	target, err := o.resolveRetryTarget(doc, ref)
	if err != nil {
		return nil, err
	}

	// The frozen context stops before the exchange being redone: when the
	// target follows its user message, that message is part of the redo.
	start := target
	if target > 0 && doc.Messages[target-1].Role == chat.RoleUser {
		start = target - 1
	}
	frozen := doc.CloneMessages()[:start]
	if err := o.state.EnterRetry(frozen, target); err != nil {
		return nil, err
	}

	label := doc.Messages[target].RefID
	if label == "" {
		label = strconv.Itoa(target)
	}
	return action.Continue{
		Message: fmt.Sprintf("Retry mode: redoing [%s]. Type alternatives; /apply keeps one, /cancel keeps the original.", label),
	}, nil
}

func (o *Orchestrator) resolveRetryTarget(doc *chat.Document, ref string) (int, error) {
	if ref == "" {
		for i := doc.Len() - 1; i >= 0; i-- {
			if doc.Messages[i].Role != chat.RoleUser {
				return i, nil
			}
		}
		return 0, errors.New("no reply to retry")
	}

	pos, ok := chat.BuildRefIndex(doc.Messages).IndexOf(ref)
	if !ok {
		// Plain indexes cover messages that never got an ID.
		n, err := strconv.Atoi(ref)
		if err != nil || n < 0 || n >= doc.Len() {
			return 0, fmt.Errorf("unknown reference %q", ref)
		}
		pos = n
	}
	if doc.Messages[pos].Role == chat.RoleUser {
		return 0, fmt.Errorf("[%s] is a user message; retry targets replies", ref)
	}
	return pos, nil
}

// EnterSecret starts an unrecorded side conversation over the current
// history.
func (o *Orchestrator) EnterSecret() (action.Action, error) {
	var snapshot []chat.Message
	if doc := o.state.Document(); doc != nil {
		snapshot = doc.CloneMessages()
	}
	if err := o.state.EnterSecret(snapshot); err != nil {
		return nil, err
	}
	return action.Continue{Message: "Secret mode: replies are not recorded. /endsecret returns to normal."}, nil
}

// applyRetry splices the chosen attempt into the conversation in place of
// the retried exchange, then leaves retry mode.
func (o *Orchestrator) applyRetry(id string) (action.Action, error) {
	retry := o.state.Retry()
	if !retry.Active() {
		return nil, fmt.Errorf("apply retry: %w", session.ErrNotActive)
	}
	if id == "" || id == "last" {
		latest, ok := retry.LatestAttemptID()
		if !ok {
			return nil, errors.New("no attempts yet; type a message first")
		}
		id = latest
	}
	attempt, ok := retry.TakeAttempt(id)
	if !ok {
		return nil, fmt.Errorf("unknown attempt %q", id)
	}

	doc := o.state.Document()
	target, err := retry.TargetIndex()
	if err != nil {
		return nil, err
	}
	if doc == nil || target < 0 || target >= doc.Len() {
		return nil, fmt.Errorf("retry target %d is out of range", target)
	}

	// Replace the whole exchange when the target follows its user message;
	// otherwise the attempt's pair stands in for the single target.
	start := target
	if target > 0 && doc.Messages[target-1].Role == chat.RoleUser {
		start = target - 1
	}

	newUser := chat.NewUserMessage(attempt.UserText)
	newAssistant := chat.NewAssistantMessage(attempt.AssistantText, attempt.Model, attempt.Citations)
	newAssistant.RefID = id

	repl := []chat.Message{newUser, newAssistant}
	o.carryRefIDs(doc.Messages[start:target+1], repl)
	if repl[0].RefID == "" {
		repl[0].RefID = o.state.Refs().Generate()
	}

	if err := doc.ReplaceRange(start, target+1, repl...); err != nil {
		return nil, err
	}
	retry.Exit()
	if err := o.persistOpen(); err != nil {
		return nil, err
	}
	o.log.Debug("applied retry attempt", logging.Fields{"id": id, "target": target})
	return action.Continue{Message: fmt.Sprintf("Applied attempt [%s].", repl[1].RefID)}, nil
}

// carryRefIDs preserves the IDs of replaced messages onto their structural
// counterparts (same role, same relative position), so labels the user has
// already seen keep meaning the same slot. IDs with no counterpart are
// released.
func (o *Orchestrator) carryRefIDs(old []chat.Message, repl []chat.Message) {
	carried := make(map[string]bool, len(old))
	for i := range repl {
		if i >= len(old) {
			break
		}
		if old[i].RefID == "" || old[i].Role != repl[i].Role {
			continue
		}
		if repl[i].RefID != "" && repl[i].RefID != old[i].RefID {
			o.state.Refs().Release(repl[i].RefID)
		}
		repl[i].RefID = old[i].RefID
		carried[old[i].RefID] = true
	}
	for _, m := range old {
		if m.RefID != "" && !carried[m.RefID] {
			o.state.Refs().Release(m.RefID)
		}
	}
}
