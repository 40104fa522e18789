package session

import (
	"fmt"

	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/refid"
)

// EnterRetry activates retry mode. The exclusion check runs before any
// mutation, so a failed enter leaves both controllers untouched.
func (s *State) EnterRetry(context []chat.Message, targetIndex int) error {
	if s.secret.Active() {
		return fmt.Errorf("cannot enter retry mode while secret mode is active: %w", ErrModeConflict)
	}
	s.retry.enter(context, targetIndex)
	return nil
}

// EnterSecret activates secret mode. The exclusion check runs before any
// mutation.
func (s *State) EnterSecret(context []chat.Message) error {
	if s.retry.Active() {
		return fmt.Errorf("cannot enter secret mode while retry mode is active: %w", ErrModeConflict)
	}
	s.secret.enter(context)
	return nil
}

// Attempt is one candidate regeneration tracked while retry mode is active.
type Attempt struct {
	UserText      string
	AssistantText string
	Model         string
	Citations     []string
}

// RetryController tracks the state of one retry-mode episode: the frozen
// context the retried turns are built from, the document index a later
// apply must replace, and the candidate attempts keyed by reference ID.
type RetryController struct {
	refs        *refid.Set
	active      bool
	context     []chat.Message
	targetIndex int
	attempts    map[string]Attempt
	order       []string
}

func newRetryController(refs *refid.Set) *RetryController {
	return &RetryController{refs: refs, attempts: make(map[string]Attempt)}
}

// Active reports whether retry mode is entered.
func (c *RetryController) Active() bool { return c.active }

func (c *RetryController) enter(context []chat.Message, targetIndex int) {
	c.releaseAttempts()
	c.active = true
	c.context = make([]chat.Message, len(context))
	copy(c.context, context)
	c.targetIndex = targetIndex
}

// AddAttempt stores a candidate regeneration. When id is empty a fresh
// reference ID is allocated; otherwise the supplied ID is marked live.
// Returns the attempt's key.
func (c *RetryController) AddAttempt(userText, assistantText, id, model string, citations []string) (string, error) {
	if !c.active {
		return "", fmt.Errorf("not in retry mode: %w", ErrNotActive)
	}
	if id == "" {
		id = c.refs.Generate()
	} else {
		c.refs.Reserve(id)
	}
	if _, exists := c.attempts[id]; !exists {
		c.order = append(c.order, id)
	}
	c.attempts[id] = Attempt{
		UserText:      userText,
		AssistantText: assistantText,
		Model:         model,
		Citations:     citations,
	}
	return id, nil
}

// LatestAttemptID returns the most recently added attempt's key.
func (c *RetryController) LatestAttemptID() (string, bool) {
	if len(c.order) == 0 {
		return "", false
	}
	return c.order[len(c.order)-1], true
}

// Attempt looks up a candidate by reference ID.
func (c *RetryController) Attempt(id string) (Attempt, bool) {
	a, ok := c.attempts[id]
	return a, ok
}

// TakeAttempt removes a candidate without releasing its reference ID; the
// caller is transferring the ID onto a persisted message.
func (c *RetryController) TakeAttempt(id string) (Attempt, bool) {
	a, ok := c.attempts[id]
	if !ok {
		return Attempt{}, false
	}
	delete(c.attempts, id)
	for i, key := range c.order {
		if key == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return a, true
}

// Context returns the frozen context captured at enter time.
func (c *RetryController) Context() ([]chat.Message, error) {
	if !c.active {
		return nil, fmt.Errorf("not in retry mode: %w", ErrNotActive)
	}
	return c.context, nil
}

// TargetIndex returns the document index an apply must replace.
func (c *RetryController) TargetIndex() (int, error) {
	if !c.active {
		return 0, fmt.Errorf("not in retry mode: %w", ErrNotActive)
	}
	return c.targetIndex, nil
}

// Exit leaves retry mode, releasing every remaining attempt's reference ID.
// Exiting an inactive controller is a no-op.
func (c *RetryController) Exit() {
	c.releaseAttempts()
	c.active = false
	c.context = nil
	c.targetIndex = 0
}

func (c *RetryController) releaseAttempts() {
	for id := range c.attempts {
		c.refs.Release(id)
	}
	c.attempts = make(map[string]Attempt)
	c.order = nil
}

// SecretController tracks secret mode. The snapshot captured at enter time
// is retained, but turn construction reads the live persisted messages so
// later turns see document growth; nothing from a secret turn is ever
// persisted.
type SecretController struct {
	active   bool
	snapshot []chat.Message
}

func newSecretController() *SecretController {
	return &SecretController{}
}

// Active reports whether secret mode is entered.
func (c *SecretController) Active() bool { return c.active }

func (c *SecretController) enter(context []chat.Message) {
	c.active = true
	c.snapshot = make([]chat.Message, len(context))
	copy(c.snapshot, context)
}

// Context returns the snapshot captured at enter time.
func (c *SecretController) Context() ([]chat.Message, error) {
	if !c.active {
		return nil, fmt.Errorf("not in secret mode: %w", ErrNotActive)
	}
	return c.snapshot, nil
}

// Exit leaves secret mode and drops the snapshot. A no-op when inactive.
func (c *SecretController) Exit() {
	c.active = false
	c.snapshot = nil
}
