package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeats() (*PlayerRef, *PlayerRef) {
	return &PlayerRef{UserID: uuid.New(), Username: "alice"},
		&PlayerRef{UserID: uuid.New(), Username: "bob"}
}

func TestRegistryCreateAndLookup(t *testing.T) {
	reg := NewRegistry()
	var events []map[string]interface{}
	reg.LobbyFn = func(msg map[string]interface{}) { events = append(events, msg) }

	p1, p2 := newSeats()
	room := reg.Create(p1, p2, nil)

	found, ok := reg.Find(room.ID)
	require.True(t, ok)
	assert.Same(t, room, found)

	id, ok := reg.FindByMember(p1.UserID)
	require.True(t, ok)
	assert.Equal(t, room.ID, id)
	id, ok = reg.FindByMember(p2.UserID)
	require.True(t, ok)
	assert.Equal(t, room.ID, id)

	_, ok = reg.FindByMember(uuid.New())
	assert.False(t, ok)

	require.Len(t, events, 1)
	assert.Equal(t, "addGameRoom", events[0]["event"])
}

func TestRegistrySettingsCarryOver(t *testing.T) {
	reg := NewRegistry()
	p1, p2 := newSeats()
	s := GameSettings{TargetScore: 5, BallSpeed: 3}
	room := reg.Create(p1, p2, &s)

	st := room.Snapshot()
	assert.Equal(t, s, st.Settings)
	assert.Equal(t, [2]bool{false, false}, st.Retry, "retry flags reset in a fresh room")
	assert.Equal(t, PhaseSetup, st.Phase)
}

func TestRegistryDestroyExactlyOnce(t *testing.T) {
	reg := NewRegistry()
	var deletes int
	reg.LobbyFn = func(msg map[string]interface{}) {
		if msg["event"] == "deleteGameRoom" {
			deletes++
		}
	}

	p1, p2 := newSeats()
	room := reg.Create(p1, p2, nil)

	reg.Destroy(room.ID)
	assert.Equal(t, 1, deletes)
	assert.Equal(t, PhaseClosed, room.Snapshot().Phase, "destroy quits the room")
	_, ok := reg.Find(room.ID)
	assert.False(t, ok)
	_, ok = reg.FindByMember(p1.UserID)
	assert.False(t, ok)

	// second destroy is a no-op, no dangling broadcast
	reg.Destroy(room.ID)
	assert.Equal(t, 1, deletes)
}

func TestRegistryListOldestFirst(t *testing.T) {
	reg := NewRegistry()
	a1, a2 := newSeats()
	b1, b2 := newSeats()
	r1 := reg.Create(a1, a2, nil)
	r2 := reg.Create(b1, b2, nil)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, r1.ID, list[0].ID)
	assert.Equal(t, r2.ID, list[1].ID)
	assert.Equal(t, "alice", list[0].Player1.Name)

	reg.Destroy(r1.ID)
	list = reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, r2.ID, list[0].ID)
}

func TestDisconnectEverywhereUnbindsWithoutDestroying(t *testing.T) {
	reg := NewRegistry()
	p1, p2 := newSeats()
	room := reg.Create(p1, p2, nil)

	c := NewClient(p1.UserID, "alice")
	_, ok := room.Connect(c, p1.UserID)
	require.True(t, ok)
	require.Len(t, room.Clients(), 1)

	reg.DisconnectEverywhere(p1.UserID)
	assert.Empty(t, room.Clients())

	// membership survives; the room is still discoverable
	id, ok := reg.FindByMember(p1.UserID)
	require.True(t, ok)
	assert.Equal(t, room.ID, id)
}
