package roster

// BiMap is the bidirectional actor id <-> local index mapping. The roster
// writes it; collaborators only read.
type BiMap struct {
	toIndex map[string]int
	toID    map[int]string
}

func NewBiMap() *BiMap {
	return &BiMap{toIndex: make(map[string]int), toID: make(map[int]string)}
}

func (m *BiMap) put(id string, index int) {
	if old, ok := m.toIndex[id]; ok {
		delete(m.toID, old)
	}
	if old, ok := m.toID[index]; ok {
		delete(m.toIndex, old)
	}
	m.toIndex[id] = index
	m.toID[index] = id
}

func (m *BiMap) delete(id string) {
	if index, ok := m.toIndex[id]; ok {
		delete(m.toID, index)
		delete(m.toIndex, id)
	}
}

func (m *BiMap) Index(id string) (int, bool) {
	i, ok := m.toIndex[id]
	return i, ok
}

func (m *BiMap) ID(index int) (string, bool) {
	id, ok := m.toID[index]
	return id, ok
}

func (m *BiMap) Len() int { return len(m.toIndex) }
