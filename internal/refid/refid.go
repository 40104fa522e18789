// Package refid allocates the short process-local identifiers used to label
// conversation messages. IDs are lowercase hex, never persisted, and unique
// within one loaded session.
package refid

import (
	"math/rand/v2"
	"strings"
)

// Allocation constants
const (
	// MinWidth is the smallest ID width in hex digits (4096 combinations).
	MinWidth = 3

	// drawsPerWidth is how many random candidates are tried at a given
	// width before widening by one digit.
	drawsPerWidth = 8
)

const hexDigits = "0123456789abcdef"

// Set tracks every reference ID currently live: IDs attached to loaded
// messages, IDs reserved for in-flight replies, and retry-attempt keys.
// An ID stays in the set from generation/reservation until it is released.
type Set struct {
	ids map[string]struct{}
}

// NewSet returns an empty live-ID set.
func NewSet() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Generate returns an ID not present in the set and inserts it. It tries a
// fixed number of random draws at the minimum width and widens by one hex
// digit when every draw collides, so it always terminates and IDs stay
// short while few are live.
func (s *Set) Generate() string {
	for width := MinWidth; ; width++ {
		for i := 0; i < drawsPerWidth; i++ {
			id := randomHex(width)
			if _, used := s.ids[id]; !used {
				s.ids[id] = struct{}{}
				return id
			}
		}
	}
}

// Reserve marks an externally supplied ID as live.
func (s *Set) Reserve(id string) {
	s.ids[id] = struct{}{}
}

// Release removes an ID from the set, returning it to the pool. Releasing
// an ID that is not live is a no-op.
func (s *Set) Release(id string) {
	delete(s.ids, id)
}

// Contains reports whether id is currently live.
func (s *Set) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of live IDs.
func (s *Set) Len() int {
	return len(s.ids)
}

// Reset discards every live ID.
func (s *Set) Reset() {
	s.ids = make(map[string]struct{})
}

// IsReferenceID reports whether s has the shape of an allocated ID:
// non-empty, no whitespace, at least MinWidth characters, all hex digits.
func IsReferenceID(s string) bool {
	if len(s) < MinWidth {
		return false
	}
	for _, r := range s {
		if !isHexDigit(r) {
			return false
		}
	}
	return true
}

func isHexDigit(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'f':
		return true
	case r >= 'A' && r <= 'F':
		return true
	}
	return false
}

func randomHex(width int) string {
	var b strings.Builder
	b.Grow(width)
	for i := 0; i < width; i++ {
		b.WriteByte(hexDigits[rand.IntN(len(hexDigits))])
	}
	return b.String()
}
