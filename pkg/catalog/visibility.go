package catalog

import "sync"

// visibilityMemo remembers the last visibility seen for each article while
// the override store was reachable. During an outage it answers for the
// hidden flag; an article it has never seen counts as hidden.
type visibilityMemo struct {
	mu      sync.RWMutex
	visible map[string]bool
}

func newVisibilityMemo() *visibilityMemo {
	return &visibilityMemo{visible: make(map[string]bool)}
}

func (m *visibilityMemo) record(rows []AdminArticle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.visible[row.ID] = row.Visible
	}
}

func (m *visibilityMemo) set(id string, visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible[id] = visible
}

func (m *visibilityMemo) lastKnown(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.visible[id]
}
