// internal/game/room.go
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pong/internal/models"
)

// Role is a player's seat in a room.
type Role int

const (
	RoleUnassigned Role = -1
	RolePlayer1    Role = 0
	RolePlayer2    Role = 1
)

// DefaultTickInterval is the fixed simulation rate while a room is Playing.
const DefaultTickInterval = 50 * time.Millisecond

// PlayerRef identifies one of the two seats in a room. Client is nil until
// the player binds a live connection via Connect, and again after a
// disconnect; scores and settings survive either way.
type PlayerRef struct {
	UserID   uuid.UUID
	Username string
	Role     Role
	Client   *Client
}

// Room is one live two-player session. Every mutation, inbound events and
// simulation ticks alike, serializes through Mu, so no two events ever
// interleave inside a room.
type Room struct {
	ID      uuid.UUID
	Players [2]*PlayerRef
	State   GameState

	Mu sync.Mutex

	// TickInterval may be shortened by tests before Start.
	TickInterval time.Duration

	// OnFinish fires exactly once when the round reaches its target score.
	// Installed by the registry owner; called without the room lock held.
	OnFinish func(r *Room)

	stop     chan struct{}
	stopped  bool
	finished bool
}

// NewRoom creates a Setup-phase room for the given seats. Both connection
// slots start unbound; retry flags start false.
func NewRoom(id uuid.UUID, p1, p2 *PlayerRef, settings GameSettings) *Room {
	p1.Role = RolePlayer1
	p2.Role = RolePlayer2
	return &Room{
		ID:           id,
		Players:      [2]*PlayerRef{p1, p2},
		State:        NewGameState(settings),
		TickInterval: DefaultTickInterval,
		stop:         make(chan struct{}),
	}
}

// Connect binds a live connection to the seat owned by userID and returns the
// seat's role. Unknown identities and closed rooms are rejected.
func (r *Room) Connect(c *Client, userID uuid.UUID) (Role, bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.State.Phase == PhaseClosed {
		return RoleUnassigned, false
	}
	for _, p := range r.Players {
		if p.UserID == userID {
			p.Client = c
			return p.Role, true
		}
	}
	return RoleUnassigned, false
}

// SettingChange mutates one tunable while the room is still in Setup.
// checked=false reverts the field to its default. Any other phase: no-op.
func (r *Room) SettingChange(name string, checked bool, value float64) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.State.Phase != PhaseSetup {
		return
	}
	defaults := DefaultSettings()
	switch name {
	case "point":
		if checked && value > 0 {
			r.State.Settings.TargetScore = int(value)
		} else {
			r.State.Settings.TargetScore = defaults.TargetScore
		}
	case "speed":
		if checked && value > 0 {
			r.State.Settings.BallSpeed = value
		} else {
			r.State.Settings.BallSpeed = defaults.BallSpeed
		}
	}
}

// Start freezes settings and transitions Setup -> Playing, launching the
// fixed-tick simulation loop. Returns false if the room was not in Setup.
func (r *Room) Start(point int, speed float64) bool {
	r.Mu.Lock()
	if r.State.Phase != PhaseSetup {
		r.Mu.Unlock()
		return false
	}
	if point > 0 {
		r.State.Settings.TargetScore = point
	}
	if speed > 0 {
		r.State.Settings.BallSpeed = speed
	}
	r.State.Phase = PhasePlaying
	r.Mu.Unlock()

	go r.run()
	return true
}

// run drives the simulation until the round ends or the room is torn down.
func (r *Room) run() {
	ticker := time.NewTicker(r.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if r.Advance() {
				return
			}
		}
	}
}

// Advance executes one simulation tick under the room lock and broadcasts the
// resulting frame to both seats. Returns true once the room leaves Playing.
// Exposed so tests can drive the simulation deterministically.
func (r *Room) Advance() bool {
	r.Mu.Lock()
	if r.State.Phase != PhasePlaying {
		r.Mu.Unlock()
		return true
	}

	winner := r.State.step()
	if winner >= 0 {
		r.State.Phase = PhaseRoundEnd
	}
	r.broadcastLocked(map[string]interface{}{
		"event":      "gameObject",
		"gameObject": r.State,
	})

	var finish func(*Room)
	if winner >= 0 && !r.finished {
		r.finished = true
		finish = r.OnFinish
	}
	r.Mu.Unlock()

	if finish != nil {
		finish(r)
	}
	return winner >= 0
}

// BarSelect records a movement directive for the seat bound to the given
// connection. Accepted only while Playing; last write before a tick wins.
func (r *Room) BarSelect(key KeyStatus, connID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.State.Phase != PhasePlaying {
		return
	}
	for i, p := range r.Players {
		if p.Client != nil && p.Client.ID == connID {
			r.State.input[i] = key
		}
	}
}

// Retry records userID's rematch vote once the round has ended and moves the
// room into RetryNegotiation. It returns a snapshot of the state plus both
// seat refs (connections stripped) so the caller can decide whether both
// flags are now set and build the replacement room.
func (r *Room) Retry(userID uuid.UUID) (GameState, PlayerRef, PlayerRef, bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.State.Phase != PhaseRoundEnd && r.State.Phase != PhaseRetryNegotiation {
		return GameState{}, PlayerRef{}, PlayerRef{}, false
	}
	member := false
	for i, p := range r.Players {
		if p.UserID == userID {
			r.State.Retry[i] = true
			member = true
		}
	}
	if !member {
		return GameState{}, PlayerRef{}, PlayerRef{}, false
	}
	r.State.Phase = PhaseRetryNegotiation

	p1 := PlayerRef{UserID: r.Players[0].UserID, Username: r.Players[0].Username, Role: RolePlayer1}
	p2 := PlayerRef{UserID: r.Players[1].UserID, Username: r.Players[1].Username, Role: RolePlayer2}
	return r.State, p1, p2, true
}

// RetryCancel clears userID's rematch vote. When no votes remain the room
// falls back to RoundEnd.
func (r *Room) RetryCancel(userID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.State.Phase != PhaseRetryNegotiation {
		return
	}
	for i, p := range r.Players {
		if p.UserID == userID {
			r.State.Retry[i] = false
		}
	}
	if !r.State.Retry[0] && !r.State.Retry[1] {
		r.State.Phase = PhaseRoundEnd
	}
}

// Quit abruptly terminates the room from any non-terminal state: the tick
// loop stops, both connections unbind, and the room closes. Idempotent.
func (r *Room) Quit() {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.State.Phase == PhaseClosed {
		return
	}
	r.State.Phase = PhaseClosed
	if !r.stopped {
		r.stopped = true
		close(r.stop)
	}
	for _, p := range r.Players {
		p.Client = nil
	}
}

// DisconnectUser unbinds userID's connection without destroying the room, so
// the same seat can be reclaimed later with state intact.
func (r *Room) DisconnectUser(userID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	for i, p := range r.Players {
		if p.UserID == userID {
			p.Client = nil
			r.State.input[i] = KeyNeutral
		}
	}
}

// DisconnectAll unbinds both connections.
func (r *Room) DisconnectAll() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	for i, p := range r.Players {
		p.Client = nil
		r.State.input[i] = KeyNeutral
	}
}

// HasUser reports whether userID owns a seat in this room.
func (r *Room) HasUser(userID uuid.UUID) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	for _, p := range r.Players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current game state.
func (r *Room) Snapshot() GameState {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.State
}

// Clients returns the currently bound connections, in seat order.
func (r *Room) Clients() []*Client {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	var out []*Client
	for _, p := range r.Players {
		if p.Client != nil {
			out = append(out, p.Client)
		}
	}
	return out
}

// MemberIDs returns both seat owners' user ids, in seat order.
func (r *Room) MemberIDs() [2]uuid.UUID {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return [2]uuid.UUID{r.Players[0].UserID, r.Players[1].UserID}
}

// Summary derives the lobby projection of this room.
func (r *Room) Summary() models.RoomSummary {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return models.RoomSummary{
		ID:      r.ID,
		Player1: models.PlayerInfo{ID: r.Players[0].UserID, Name: r.Players[0].Username},
		Player2: models.PlayerInfo{ID: r.Players[1].UserID, Name: r.Players[1].Username},
	}
}

// Broadcast sends a message to every bound connection in the room.
func (r *Room) Broadcast(msg map[string]interface{}) {
	r.Mu.Lock()
	r.broadcastLocked(msg)
	r.Mu.Unlock()
}

// broadcastLocked assumes the room lock is held. Client writes are
// non-blocking channel sends, so holding the lock here is safe.
func (r *Room) broadcastLocked(msg map[string]interface{}) {
	for _, p := range r.Players {
		if p.Client != nil {
			p.Client.Write(msg)
		}
	}
}
