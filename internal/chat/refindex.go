package chat

// RefIndex maps message positions to reference IDs and back. It is derived
// from a message slice and can be rebuilt at any time; messages without an
// ID are resolvable by position only.
type RefIndex struct {
	byID  map[string]int
	byPos map[int]string
}

// BuildRefIndex derives the position/ID maps from msgs.
func BuildRefIndex(msgs []Message) *RefIndex {
	x := &RefIndex{
		byID:  make(map[string]int),
		byPos: make(map[int]string),
	}
	for i, m := range msgs {
		if m.RefID == "" {
			continue
		}
		x.byID[m.RefID] = i
		x.byPos[i] = m.RefID
	}
	return x
}

// IndexOf returns the position of the message labeled id.
func (x *RefIndex) IndexOf(id string) (int, bool) {
	i, ok := x.byID[id]
	return i, ok
}

// IDAt returns the reference ID of the message at pos, if it has one.
func (x *RefIndex) IDAt(pos int) (string, bool) {
	id, ok := x.byPos[pos]
	return id, ok
}

// Len returns the number of labeled messages.
func (x *RefIndex) Len() int {
	return len(x.byID)
}
