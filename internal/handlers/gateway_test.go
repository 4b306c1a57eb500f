// internal/handlers/gateway_test.go
package handlers

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/pong/internal/game"
	"github.com/jason-s-yu/pong/internal/models"
)

// newTestServer builds a gateway with a silenced logger. No database or redis
// is connected; the status and match-record side effects degrade to no-ops.
func newTestServer() *GameServer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewGameServer(logger)
}

// drain empties a client's OutChan and returns the messages keyed by event name
// in arrival order.
func drain(c *game.Client) []map[string]interface{} {
	var msgs []map[string]interface{}
	for {
		select {
		case msg := <-c.OutChan:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func eventsOf(msgs []map[string]interface{}) []string {
	var names []string
	for _, m := range msgs {
		if ev, ok := m["event"].(string); ok {
			names = append(names, ev)
		}
	}
	return names
}

func findEvent(msgs []map[string]interface{}, name string) map[string]interface{} {
	for _, m := range msgs {
		if m["event"] == name {
			return m
		}
	}
	return nil
}

func TestRegisterMatchNotifiesBothSides(t *testing.T) {
	s := newTestServer()
	a := game.NewClient(uuid.New(), "alice")
	b := game.NewClient(uuid.New(), "bob")

	s.handleGameEvent(a, "registerMatch", map[string]interface{}{})
	assert.Empty(t, drain(a), "first registrant just waits")

	s.handleGameEvent(b, "registerMatch", map[string]interface{}{})
	aMsgs, bMsgs := drain(a), drain(b)
	aGo := findEvent(aMsgs, "goGameRoom")
	bGo := findEvent(bMsgs, "goGameRoom")
	require.NotNil(t, aGo)
	require.NotNil(t, bGo)
	assert.Equal(t, aGo["gameRoomId"], bGo["gameRoomId"], "both sides get the same room")

	roomID, ok := s.Registry.FindByMember(a.UserID)
	require.True(t, ok)
	assert.Equal(t, roomID.String(), aGo["gameRoomId"])
}

func TestCancelMatchDequeues(t *testing.T) {
	s := newTestServer()
	a := game.NewClient(uuid.New(), "alice")

	s.handleGameEvent(a, "registerMatch", map[string]interface{}{})
	require.Equal(t, 1, s.Matchmaker.Len())

	s.handleGameEvent(a, "cancelMatch", map[string]interface{}{})
	assert.Equal(t, 0, s.Matchmaker.Len())
}

func TestConnectServerUnknownRoom(t *testing.T) {
	s := newTestServer()
	a := game.NewClient(uuid.New(), "alice")

	s.handleGameEvent(a, "connectServer", map[string]interface{}{
		"roomId": uuid.New().String(),
	})
	assert.Contains(t, eventsOf(drain(a)), "noRoom")

	// malformed room id: silent no-op
	s.handleGameEvent(a, "connectServer", map[string]interface{}{"roomId": "garbage"})
	assert.Empty(t, drain(a))
}

func TestReadyGameIndexSnapshot(t *testing.T) {
	s := newTestServer()

	// idle user
	idle := game.NewClient(uuid.New(), "ida")
	s.handleGameEvent(idle, "readyGameIndex", map[string]interface{}{})
	snap := findEvent(drain(idle), "setFirstGameRooms")
	require.NotNil(t, snap)
	assert.Equal(t, 0, snap["status"])
	assert.Equal(t, "", snap["gameRoomId"])

	// queued user
	queued := game.NewClient(uuid.New(), "quinn")
	s.handleGameEvent(queued, "registerMatch", map[string]interface{}{})
	queued2 := game.NewClient(queued.UserID, "quinn")
	s.handleGameEvent(queued2, "readyGameIndex", map[string]interface{}{})
	snap = findEvent(drain(queued2), "setFirstGameRooms")
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap["status"])

	// in-match user
	a := game.NewClient(uuid.New(), "alice")
	b := game.NewClient(uuid.New(), "bob")
	s.handleGameEvent(a, "registerMatch", map[string]interface{}{})
	s.handleGameEvent(b, "registerMatch", map[string]interface{}{})
	roomID, ok := s.Registry.FindByMember(a.UserID)
	require.True(t, ok)

	a2 := game.NewClient(a.UserID, "alice")
	s.handleGameEvent(a2, "readyGameIndex", map[string]interface{}{})
	snap = findEvent(drain(a2), "setFirstGameRooms")
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap["status"])
	assert.Equal(t, roomID.String(), snap["gameRoomId"])
}

// TestReadyGameIndexCoversConcurrentCreate races the lobby join against room
// creation: every room must land in the snapshot or in an addGameRoom
// broadcast, never in neither.
func TestReadyGameIndexCoversConcurrentCreate(t *testing.T) {
	s := newTestServer()
	const creators = 4

	for iter := 0; iter < 60; iter++ {
		watcher := game.NewClient(uuid.New(), "wes")
		rooms := make([]*game.Room, creators)

		var start, done sync.WaitGroup
		start.Add(1)
		done.Add(creators + 1)
		for i := 0; i < creators; i++ {
			go func(i int) {
				defer done.Done()
				start.Wait()
				p1 := &game.PlayerRef{UserID: uuid.New(), Username: "p1"}
				p2 := &game.PlayerRef{UserID: uuid.New(), Username: "p2"}
				rooms[i] = s.Registry.Create(p1, p2, nil)
			}(i)
		}
		go func() {
			defer done.Done()
			start.Wait()
			s.handleGameEvent(watcher, "readyGameIndex", map[string]interface{}{})
		}()
		start.Done()
		done.Wait()

		seen := make(map[uuid.UUID]bool)
		for _, msg := range drain(watcher) {
			switch msg["event"] {
			case "addGameRoom":
				seen[msg["gameRoom"].(models.RoomSummary).ID] = true
			case "setFirstGameRooms":
				for _, sum := range msg["gameRooms"].([]models.RoomSummary) {
					seen[sum.ID] = true
				}
			}
		}
		s.LeaveLobby(watcher.ID)
		for i, r := range rooms {
			require.Truef(t, seen[r.ID],
				"iteration %d: creator %d's room %s visible in neither snapshot nor broadcast", iter, i, r.ID)
			s.Registry.Destroy(r.ID)
		}
	}
}

func TestRegisterMatchWhileSeatedRedirects(t *testing.T) {
	s := newTestServer()
	a := game.NewClient(uuid.New(), "alice")
	b := game.NewClient(uuid.New(), "bob")
	s.handleGameEvent(a, "registerMatch", map[string]interface{}{})
	s.handleGameEvent(b, "registerMatch", map[string]interface{}{})
	drain(a)

	roomID, ok := s.Registry.FindByMember(a.UserID)
	require.True(t, ok)

	// a fresh connection for the same user tries to queue again
	a2 := game.NewClient(a.UserID, "alice")
	s.handleGameEvent(a2, "registerMatch", map[string]interface{}{})

	back := findEvent(drain(a2), "goGameRoom")
	require.NotNil(t, back, "seated user is pointed back at their room")
	assert.Equal(t, roomID.String(), back["gameRoomId"])
	assert.Equal(t, 0, s.Matchmaker.Len(), "no queue entry for a seated user")

	still, ok := s.Registry.FindByMember(a.UserID)
	require.True(t, ok)
	assert.Equal(t, roomID, still, "member index still points at the live room")
	assert.Len(t, s.Registry.List(), 1)
}

func TestLobbyReceivesAddAndDelete(t *testing.T) {
	s := newTestServer()

	observer := game.NewClient(uuid.New(), "olive")
	s.handleGameEvent(observer, "readyGameIndex", map[string]interface{}{})
	drain(observer)

	a := game.NewClient(uuid.New(), "alice")
	b := game.NewClient(uuid.New(), "bob")
	s.handleGameEvent(a, "registerMatch", map[string]interface{}{})
	s.handleGameEvent(b, "registerMatch", map[string]interface{}{})

	msgs := drain(observer)
	require.Len(t, eventsOf(msgs), 1, "exactly one add per room")
	assert.Equal(t, "addGameRoom", msgs[0]["event"])

	roomID, _ := s.Registry.FindByMember(a.UserID)
	s.handleGameEvent(a, "quit", map[string]interface{}{"id": roomID.String()})

	msgs = drain(observer)
	require.Len(t, msgs, 1, "exactly one delete per room")
	assert.Equal(t, "deleteGameRoom", msgs[0]["event"])
	assert.Equal(t, roomID.String(), msgs[0]["gameRoomId"])

	// quitting again: room is gone, nothing happens
	s.handleGameEvent(a, "quit", map[string]interface{}{"id": roomID.String()})
	assert.Empty(t, drain(observer))
}

// TestMatchToRematchFlow walks the whole happy path: pairing, connecting,
// starting with custom settings, finishing the round, and a mutual rematch
// that carries the settings into a fresh room.
func TestMatchToRematchFlow(t *testing.T) {
	s := newTestServer()

	observer := game.NewClient(uuid.New(), "olive")
	s.handleGameEvent(observer, "readyGameIndex", map[string]interface{}{})
	drain(observer)

	a := game.NewClient(uuid.New(), "alice")
	b := game.NewClient(uuid.New(), "bob")
	s.handleGameEvent(a, "registerMatch", map[string]interface{}{})
	s.handleGameEvent(b, "registerMatch", map[string]interface{}{})

	roomID, ok := s.Registry.FindByMember(a.UserID)
	require.True(t, ok)
	room, ok := s.Registry.Find(roomID)
	require.True(t, ok)
	room.TickInterval = time.Hour // drive ticks by hand

	// both players connect their realtime channel
	s.handleGameEvent(a, "connectServer", map[string]interface{}{"roomId": roomID.String()})
	s.handleGameEvent(b, "connectServer", map[string]interface{}{"roomId": roomID.String()})
	aConnect := findEvent(drain(a), "connectClient")
	bConnect := findEvent(drain(b), "connectClient")
	require.NotNil(t, aConnect)
	require.NotNil(t, bConnect)
	assert.Equal(t, 0, aConnect["role"])
	assert.Equal(t, 1, bConnect["role"])

	// start with point=5 speed=3
	s.handleGameEvent(a, "start", map[string]interface{}{
		"id": roomID.String(), "point": float64(5), "speed": float64(3),
	})
	st := room.Snapshot()
	require.Equal(t, game.PhasePlaying, st.Phase)
	assert.Equal(t, 5, st.Settings.TargetScore)
	assert.Equal(t, 3.0, st.Settings.BallSpeed)

	// inputs only land from bound connections
	s.handleGameEvent(a, "move", map[string]interface{}{"id": roomID.String(), "key": "up"})

	// drive the score to 5-3 and tick once to end the round
	room.Mu.Lock()
	room.State.Scores = [2]int{5, 3}
	room.Mu.Unlock()
	require.True(t, room.Advance())
	require.Equal(t, game.PhaseRoundEnd, room.Snapshot().Phase)

	// rematch negotiation
	s.handleGameEvent(a, "retry", map[string]interface{}{"id": roomID.String()})
	require.Equal(t, game.PhaseRetryNegotiation, room.Snapshot().Phase)
	assert.Empty(t, findEvent(drain(a), "goNewGame"), "one vote is not enough")

	s.handleGameEvent(b, "retry", map[string]interface{}{"id": roomID.String()})

	aNew := findEvent(drain(a), "goNewGame")
	bNew := findEvent(drain(b), "goNewGame")
	require.NotNil(t, aNew)
	require.NotNil(t, bNew)
	assert.Equal(t, aNew["gameRoomId"], bNew["gameRoomId"])

	// old room destroyed, replacement carries the settings with clean flags
	_, ok = s.Registry.Find(roomID)
	assert.False(t, ok)
	newID, err := uuid.Parse(aNew["gameRoomId"].(string))
	require.NoError(t, err)
	newRoom, ok := s.Registry.Find(newID)
	require.True(t, ok)
	newSt := newRoom.Snapshot()
	assert.Equal(t, game.PhaseSetup, newSt.Phase)
	assert.Equal(t, 5, newSt.Settings.TargetScore)
	assert.Equal(t, 3.0, newSt.Settings.BallSpeed)
	assert.Equal(t, [2]bool{false, false}, newSt.Retry)
	assert.Equal(t, a.UserID, newRoom.Players[0].UserID)
	assert.Equal(t, b.UserID, newRoom.Players[1].UserID)

	// lobby saw exactly one delete and one add for the swap
	msgs := drain(observer)
	assert.Equal(t, []string{"deleteGameRoom", "addGameRoom"}, eventsOf(msgs))
}

func TestRetryCancelBeforeSecondVote(t *testing.T) {
	s := newTestServer()
	a := game.NewClient(uuid.New(), "alice")
	b := game.NewClient(uuid.New(), "bob")
	s.handleGameEvent(a, "registerMatch", map[string]interface{}{})
	s.handleGameEvent(b, "registerMatch", map[string]interface{}{})

	roomID, _ := s.Registry.FindByMember(a.UserID)
	room, _ := s.Registry.Find(roomID)
	room.Mu.Lock()
	room.State.Phase = game.PhaseRoundEnd
	room.Mu.Unlock()

	s.handleGameEvent(a, "retry", map[string]interface{}{"id": roomID.String()})
	s.handleGameEvent(a, "retryCancel", map[string]interface{}{"id": roomID.String()})

	assert.Equal(t, game.PhaseRoundEnd, room.Snapshot().Phase)
	_, ok := s.Registry.Find(roomID)
	assert.True(t, ok, "no replacement room was created")
	assert.Len(t, s.Registry.List(), 1)
}

func TestSettingChangeIgnoredAfterStart(t *testing.T) {
	s := newTestServer()
	a := game.NewClient(uuid.New(), "alice")
	b := game.NewClient(uuid.New(), "bob")
	s.handleGameEvent(a, "registerMatch", map[string]interface{}{})
	s.handleGameEvent(b, "registerMatch", map[string]interface{}{})

	roomID, _ := s.Registry.FindByMember(a.UserID)
	room, _ := s.Registry.Find(roomID)
	room.TickInterval = time.Hour

	s.handleGameEvent(a, "settingChange", map[string]interface{}{
		"id": roomID.String(), "name": "point", "checked": true, "value": float64(7),
	})
	assert.Equal(t, 7, room.Snapshot().Settings.TargetScore)

	s.handleGameEvent(a, "start", map[string]interface{}{"id": roomID.String()})
	s.handleGameEvent(a, "settingChange", map[string]interface{}{
		"id": roomID.String(), "name": "point", "checked": true, "value": float64(9),
	})
	assert.Equal(t, 7, room.Snapshot().Settings.TargetScore, "settings frozen once Playing")
}

func TestExtractCookieToken(t *testing.T) {
	assert.Equal(t, "abc", extractCookieToken("auth_token=abc", "auth_token"))
	assert.Equal(t, "abc", extractCookieToken("other=x; auth_token=abc; more=y", "auth_token"))
	assert.Equal(t, "", extractCookieToken("other=x", "auth_token"))
}
