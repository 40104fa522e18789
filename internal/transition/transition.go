// Package transition holds the pure decision functions applied on the
// terminal transitions of a send: whether the persisted chat may be
// mutated and whether a reserved reference ID must be released.
package transition

import (
	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/session"
)

// CanMutateNormalChat reports whether the persisted document may be
// mutated: normal mode with chat context present.
func CanMutateNormalChat(mode session.Mode, hasChatContext bool) bool {
	return mode == session.ModeNormal && hasChatContext
}

// HasTrailingUserMessage reports whether the document ends in a user
// message still awaiting its reply.
func HasTrailingUserMessage(doc *chat.Document) bool {
	if doc == nil {
		return false
	}
	last, ok := doc.Last()
	return ok && last.Role == chat.RoleUser
}

// ShouldReleaseForRollback reports whether rolling back an optimistic
// append must release the reply's ID. Rollback always releases a reserved
// ID.
func ShouldReleaseForRollback(idReserved bool) bool {
	return idReserved
}

// ShouldReleaseForError reports whether a failed send must release the
// reserved ID. In normal mode the release pairs with the chat rollback, so
// it additionally requires chat context.
func ShouldReleaseForError(mode session.Mode, hasChatContext, idReserved bool) bool {
	if mode == session.ModeNormal {
		return hasChatContext && idReserved
	}
	return idReserved
}

// ShouldReleaseForCancel reports whether a cancelled send must release the
// reserved ID. Same rule as the error transition.
func ShouldReleaseForCancel(mode session.Mode, hasChatContext, idReserved bool) bool {
	return ShouldReleaseForError(mode, hasChatContext, idReserved)
}

// ShouldRollbackPreSend reports whether a validation failure before any
// network call must pop the optimistically appended user message.
func ShouldRollbackPreSend(mode session.Mode, hasChatContext bool, doc *chat.Document) bool {
	return CanMutateNormalChat(mode, hasChatContext) && HasTrailingUserMessage(doc)
}
