package session

import (
	"testing"
	"time"

	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/refid"
)

func newTestState() *State {
	return New("openai", "gpt-test", "default", 60*time.Second)
}

func twoMessageDoc() *chat.Document {
	doc := chat.NewDocument("test")
	doc.Append(chat.NewUserMessage("hello"), chat.NewAssistantMessage("hi", "gpt-test", nil))
	return doc
}

type countingCache struct{ calls int }

func (c *countingCache) Invalidate() { c.calls++ }

func TestAccessorDefaults(t *testing.T) {
	s := newTestState()

	if s.Provider() != "openai" || s.Model() != "gpt-test" {
		t.Errorf("provider/model = %q/%q, want openai/gpt-test", s.Provider(), s.Model())
	}
	if s.InputMode() != InputQuick {
		t.Errorf("InputMode() = %q, want %q", s.InputMode(), InputQuick)
	}
	if s.SystemPrompt() != "default" {
		t.Errorf("SystemPrompt() = %q, want default", s.SystemPrompt())
	}
	if s.HasDocument() {
		t.Error("new state reports an open document")
	}
	if s.InteractionMode() != ModeNormal {
		t.Errorf("InteractionMode() = %q, want normal", s.InteractionMode())
	}
}

func TestHelperDefaults(t *testing.T) {
	s := newTestState()

	if s.HelperProvider() != "openai" || s.HelperModel() != "gpt-test" {
		t.Errorf("helper defaults = %q/%q, want current provider/model", s.HelperProvider(), s.HelperModel())
	}

	s.SetHelper("anthropic", "claude-test")
	if s.HelperProvider() != "anthropic" || s.HelperModel() != "claude-test" {
		t.Errorf("helper = %q/%q after SetHelper", s.HelperProvider(), s.HelperModel())
	}

	s.SetHelper("", "")
	if s.HelperProvider() != "openai" || s.HelperModel() != "gpt-test" {
		t.Errorf("helper = %q/%q after clearing, want fallback to current", s.HelperProvider(), s.HelperModel())
	}
}

func TestSetInputMode(t *testing.T) {
	s := newTestState()

	if err := s.SetInputMode(InputCompose); err != nil {
		t.Fatalf("SetInputMode(compose) failed: %v", err)
	}
	if s.InputMode() != InputCompose {
		t.Errorf("InputMode() = %q, want compose", s.InputMode())
	}

	if err := s.SetInputMode(InputMode("verbose")); err == nil {
		t.Error("SetInputMode accepted an unknown mode")
	}
	if s.InputMode() != InputCompose {
		t.Errorf("InputMode() = %q after rejected set, want compose", s.InputMode())
	}
}

func TestTimeoutInvalidatesCache(t *testing.T) {
	s := newTestState()
	cache := &countingCache{}
	s.SetCache(cache)

	if err := s.SetTimeout(30 * time.Second); err != nil {
		t.Fatalf("SetTimeout failed: %v", err)
	}
	if s.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", s.Timeout())
	}
	if cache.calls != 1 {
		t.Errorf("cache invalidated %d times after SetTimeout, want 1", cache.calls)
	}

	s.ResetTimeout()
	if s.Timeout() != 60*time.Second {
		t.Errorf("Timeout() = %v after reset, want 60s default", s.Timeout())
	}
	if cache.calls != 2 {
		t.Errorf("cache invalidated %d times after ResetTimeout, want 2", cache.calls)
	}

	if err := s.SetTimeout(0); err == nil {
		t.Error("SetTimeout accepted a non-positive duration")
	}
	if cache.calls != 2 {
		t.Errorf("rejected SetTimeout still invalidated the cache")
	}
}

func TestSwitchDocumentAssignsFreshIDs(t *testing.T) {
	s := newTestState()
	doc := twoMessageDoc()

	s.SwitchDocument(doc, "/tmp/a.json")

	if !s.HasDocument() || s.DocumentPath() != "/tmp/a.json" {
		t.Fatalf("document not installed: has=%v path=%q", s.HasDocument(), s.DocumentPath())
	}
	if s.Refs().Len() != doc.Len() {
		t.Fatalf("live IDs = %d, want %d", s.Refs().Len(), doc.Len())
	}

	// Every message is labeled; the derived maps must be reversible.
	index := chat.BuildRefIndex(doc.Messages)
	if index.Len() != doc.Len() {
		t.Fatalf("indexed %d messages, want %d", index.Len(), doc.Len())
	}
	for i, m := range doc.Messages {
		if !refid.IsReferenceID(m.RefID) {
			t.Errorf("message %d has malformed ID %q", i, m.RefID)
		}
		if pos, ok := index.IndexOf(m.RefID); !ok || pos != i {
			t.Errorf("IndexOf(%q) = (%d, %v), want (%d, true)", m.RefID, pos, ok, i)
		}
	}
}

func TestSwitchDocumentRederivesFromScratch(t *testing.T) {
	s := newTestState()

	doc := twoMessageDoc()
	s.SwitchDocument(doc, "a.json")

	other := twoMessageDoc()
	s.SwitchDocument(other, "b.json")

	// The set is rebuilt, not accumulated: only the new document's IDs
	// are live, and they are unique among themselves.
	if s.Refs().Len() != other.Len() {
		t.Errorf("live IDs = %d after switch, want %d", s.Refs().Len(), other.Len())
	}
	if other.Messages[0].RefID == other.Messages[1].RefID {
		t.Errorf("duplicate IDs assigned: %q", other.Messages[0].RefID)
	}
	for i, m := range other.Messages {
		if !s.Refs().Contains(m.RefID) {
			t.Errorf("message %d ID %q not live after switch", i, m.RefID)
		}
	}
}

func TestSwitchDocumentBackfillsSystemPrompt(t *testing.T) {
	s := newTestState()

	plain := chat.NewDocument("plain")
	s.SwitchDocument(plain, "plain.json")
	if plain.Metadata.SystemPrompt != "default" {
		t.Errorf("missing system prompt not backfilled: %q", plain.Metadata.SystemPrompt)
	}

	explicit := chat.NewDocument("explicit")
	explicit.Metadata.SystemPrompt = "coder"
	s.SwitchDocument(explicit, "explicit.json")
	if explicit.Metadata.SystemPrompt != "coder" {
		t.Errorf("explicit system prompt overwritten: %q", explicit.Metadata.SystemPrompt)
	}
}

func TestSwitchDocumentClearsModes(t *testing.T) {
	s := newTestState()
	s.SwitchDocument(twoMessageDoc(), "a.json")

	if err := s.EnterRetry(s.Document().CloneMessages(), 1); err != nil {
		t.Fatalf("EnterRetry failed: %v", err)
	}

	s.SwitchDocument(twoMessageDoc(), "b.json")
	if s.InteractionMode() != ModeNormal {
		t.Errorf("mode = %q after switch, want normal", s.InteractionMode())
	}
	if s.Retry().Active() {
		t.Error("retry controller still active after switch")
	}
}

func TestCloseDocument(t *testing.T) {
	s := newTestState()
	s.SwitchDocument(twoMessageDoc(), "a.json")
	if err := s.EnterSecret(s.Document().CloneMessages()); err != nil {
		t.Fatalf("EnterSecret failed: %v", err)
	}

	s.CloseDocument()

	if s.HasDocument() || s.DocumentPath() != "" {
		t.Error("document still present after close")
	}
	if s.Refs().Len() != 0 {
		t.Errorf("live IDs = %d after close, want 0", s.Refs().Len())
	}
	if s.InteractionMode() != ModeNormal {
		t.Errorf("mode = %q after close, want normal", s.InteractionMode())
	}
}
