package roster

import "fmt"

// Peer is the local simulation object backing a managed actor. The roster
// owns it exclusively; Destroy is called exactly once.
type Peer interface {
	Update(state PeerState)
	SetParked(parked bool)
	Destroy()
}

type entry struct {
	peer   Peer
	index  int
	class  ActorClass
	parked bool
}

// Arena holds the managed peers keyed by actor id.
type Arena struct {
	entries map[string]*entry
}

func NewArena() *Arena {
	return &Arena{entries: make(map[string]*entry)}
}

func (a *Arena) Len() int { return len(a.entries) }

func (a *Arena) insert(id string, e *entry) error {
	if _, ok := a.entries[id]; ok {
		return fmt.Errorf("roster: peer %q already exists", id)
	}
	a.entries[id] = e
	return nil
}

func (a *Arena) get(id string) (*entry, bool) {
	e, ok := a.entries[id]
	return e, ok
}

// Contains reports whether id has a live peer.
func (a *Arena) Contains(id string) bool {
	_, ok := a.entries[id]
	return ok
}

// Remove destroys the peer for id. It returns false when there was none,
// so a second Remove for the same id is a no-op.
func (a *Arena) Remove(id string) bool {
	e, ok := a.entries[id]
	if !ok {
		return false
	}
	delete(a.entries, id)
	e.peer.Destroy()
	return true
}

// IDs returns the managed ids in unspecified order.
func (a *Arena) IDs() []string {
	out := make([]string, 0, len(a.entries))
	for id := range a.entries {
		out = append(out, id)
	}
	return out
}
