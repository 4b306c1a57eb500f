// internal/game/matchmaking.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// Matchmaker is the FIFO waiting list of players seeking a match. Arrival
// order is the only ordering: the earliest waiting player pairs with the next
// distinct registrant. Queue inspection and room creation happen under one
// lock so two racing registrations can never both claim the same entry.
type Matchmaker struct {
	mu       sync.Mutex
	waiting  []*Client
	registry *Registry
}

// NewMatchmaker returns an empty queue paired with the given registry.
func NewMatchmaker(registry *Registry) *Matchmaker {
	return &Matchmaker{registry: registry}
}

// Register enqueues the client, or pairs it with the earliest waiting player.
//
// Re-registering a user who is already waiting rebinds their queue entry to
// the new connection and nothing else: no duplicate entry, no match attempt.
// Otherwise, if someone is waiting, the earliest entry becomes player1, the
// newcomer player2, and a room is created; both returned so the caller can
// notify each side. A nil room means the client is now waiting.
func (m *Matchmaker) Register(c *Client) (*Room, *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked()

	for i, w := range m.waiting {
		if w.UserID == c.UserID {
			m.waiting[i] = c
			return nil, nil
		}
	}

	if len(m.waiting) >= 1 {
		first := m.waiting[0]
		m.waiting = m.waiting[1:]

		p1 := &PlayerRef{UserID: first.UserID, Username: first.Username, Role: RolePlayer1}
		p2 := &PlayerRef{UserID: c.UserID, Username: c.Username, Role: RolePlayer2}
		room := m.registry.Create(p1, p2, nil)
		return room, first
	}

	m.waiting = append(m.waiting, c)
	return nil, nil
}

// Cancel removes the entry bound to the given connection. No-op if absent.
func (m *Matchmaker) Cancel(connID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.waiting {
		if w.ID == connID {
			m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
			return
		}
	}
}

// Prune drops every entry whose connection is no longer live. Also runs
// before each Register, so silently dropped connections cannot grow the
// queue or ghost-match a later registrant.
func (m *Matchmaker) Prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
}

func (m *Matchmaker) pruneLocked() {
	kept := m.waiting[:0]
	for _, w := range m.waiting {
		if w.Live() {
			kept = append(kept, w)
		}
	}
	m.waiting = kept
}

// Waiting reports whether userID currently has a queue entry.
func (m *Matchmaker) Waiting(userID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.waiting {
		if w.UserID == userID {
			return true
		}
	}
	return false
}

// Len returns the number of waiting entries.
func (m *Matchmaker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}
