package callgraph

// Interner assigns dense integer IDs to stack frame identities, in
// first-seen order starting at 0.
//
// It is not safe for concurrent use.
type Interner struct {
	ids map[string]int
}

func NewInterner() *Interner {
	return &Interner{ids: make(map[string]int)}
}

// ID returns the ID of identity, allocating the next one if it was never seen
// in the current window.
func (in *Interner) ID(identity string) int {
	if id, ok := in.ids[identity]; ok {
		return id
	}
	id := len(in.ids)
	in.ids[identity] = id

	return id
}

func (in *Interner) Len() int {
	return len(in.ids)
}

// Nodes returns the identity to ID table. The map is owned by the interner
// until the next Reset.
func (in *Interner) Nodes() map[string]int {
	return in.ids
}

// Reset forgets all identities; numbering restarts at 0.
func (in *Interner) Reset() {
	in.ids = make(map[string]int)
}
