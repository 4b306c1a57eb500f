// internal/game/registry.go
package game

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pong/internal/models"
)

// Registry owns the set of live rooms, indexed by room id and by member user
// id. It is constructed once at startup; rooms enter through Create and leave
// through Destroy, never by timeout.
type Registry struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]*Room
	byMember map[uuid.UUID]uuid.UUID // userID -> roomID
	order    []uuid.UUID             // creation order, for stable listings

	// LobbyFn broadcasts room add/remove events to the lobby group.
	// Installed by the gateway; nil drops the events.
	LobbyFn func(msg map[string]interface{})

	// OnRoomFinish is copied onto every created room's OnFinish hook.
	OnRoomFinish func(r *Room)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[uuid.UUID]*Room),
		byMember: make(map[uuid.UUID]uuid.UUID),
	}
}

// Create builds and stores a new room for the two seats, then announces it to
// the lobby group. Pass nil settings for defaults; a rematch passes the prior
// round's settings to carry them forward.
func (reg *Registry) Create(p1, p2 *PlayerRef, settings *GameSettings) *Room {
	s := DefaultSettings()
	if settings != nil {
		s = *settings
	}
	room := NewRoom(uuid.New(), p1, p2, s)
	room.OnFinish = reg.OnRoomFinish

	reg.mu.Lock()
	reg.rooms[room.ID] = room
	reg.byMember[p1.UserID] = room.ID
	reg.byMember[p2.UserID] = room.ID
	reg.order = append(reg.order, room.ID)
	lobbyFn := reg.LobbyFn
	reg.mu.Unlock()

	if lobbyFn != nil {
		lobbyFn(map[string]interface{}{
			"event":    "addGameRoom",
			"gameRoom": room.Summary(),
		})
	}
	return room
}

// Find resolves a room id.
func (reg *Registry) Find(id uuid.UUID) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// FindByMember resolves the room a user currently belongs to, if any.
func (reg *Registry) FindByMember(userID uuid.UUID) (uuid.UUID, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	id, ok := reg.byMember[userID]
	return id, ok
}

// Destroy quits and removes the room, then announces the removal to the lobby
// group. Exactly one removal event is emitted per room: destroying an unknown
// id is a no-op.
func (reg *Registry) Destroy(id uuid.UUID) {
	reg.mu.Lock()
	room, ok := reg.rooms[id]
	if !ok {
		reg.mu.Unlock()
		return
	}
	delete(reg.rooms, id)
	for i, oid := range reg.order {
		if oid == id {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}
	for _, p := range room.Players {
		if reg.byMember[p.UserID] == id {
			delete(reg.byMember, p.UserID)
		}
	}
	lobbyFn := reg.LobbyFn
	reg.mu.Unlock()

	room.Quit()
	if lobbyFn != nil {
		lobbyFn(map[string]interface{}{
			"event":      "deleteGameRoom",
			"gameRoomId": id.String(),
		})
	}
}

// List returns lobby summaries of every live room, oldest first.
func (reg *Registry) List() []models.RoomSummary {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.order))
	for _, id := range reg.order {
		if r, ok := reg.rooms[id]; ok {
			rooms = append(rooms, r)
		}
	}
	reg.mu.Unlock()

	out := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	return out
}

// DisconnectEverywhere unbinds userID's connection from whichever room they
// belong to, without destroying it. Enforces the one-connection-one-room
// invariant before any (re)join.
func (reg *Registry) DisconnectEverywhere(userID uuid.UUID) {
	reg.mu.Lock()
	id, ok := reg.byMember[userID]
	var room *Room
	if ok {
		room = reg.rooms[id]
	}
	reg.mu.Unlock()

	if room != nil {
		room.DisconnectUser(userID)
	}
}
