// internal/handlers/gateway.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/pong/internal/cache"
	"github.com/jason-s-yu/pong/internal/database"
	"github.com/jason-s-yu/pong/internal/game"
	"github.com/jason-s-yu/pong/internal/models"
)

// GameServer is the session gateway: it owns the room registry, the
// matchmaking queue, and the lobby broadcast group, and routes every inbound
// realtime event to the right operation.
type GameServer struct {
	Logger     *logrus.Logger
	Registry   *game.Registry
	Matchmaker *game.Matchmaker

	lobbyMu sync.Mutex
	lobby   map[uuid.UUID]*game.Client // connID -> client subscribed to room-list events
}

// NewGameServer wires a gateway with an empty registry and queue.
func NewGameServer(logger *logrus.Logger) *GameServer {
	s := &GameServer{
		Logger: logger,
		lobby:  make(map[uuid.UUID]*game.Client),
	}
	reg := game.NewRegistry()
	reg.LobbyFn = s.BroadcastLobby
	reg.OnRoomFinish = s.handleRoomFinish
	s.Registry = reg
	s.Matchmaker = game.NewMatchmaker(reg)
	return s
}

// JoinLobby subscribes a connection to room add/remove broadcasts.
func (s *GameServer) JoinLobby(c *game.Client) {
	s.lobbyMu.Lock()
	defer s.lobbyMu.Unlock()
	s.lobby[c.ID] = c
}

// LeaveLobby drops a connection from the broadcast group. No-op if absent.
func (s *GameServer) LeaveLobby(connID uuid.UUID) {
	s.lobbyMu.Lock()
	defer s.lobbyMu.Unlock()
	delete(s.lobby, connID)
}

// BroadcastLobby fans a message out to every lobby subscriber, dropping dead
// connections as it goes. Fire-and-forget: a missed broadcast is recovered by
// the client's next readyGameIndex snapshot.
func (s *GameServer) BroadcastLobby(msg map[string]interface{}) {
	s.lobbyMu.Lock()
	defer s.lobbyMu.Unlock()
	for id, c := range s.lobby {
		if !c.Live() {
			delete(s.lobby, id)
			continue
		}
		c.Write(msg)
	}
}

// handleGameEvent routes one inbound event. Unknown rooms and out-of-phase
// operations are deliberately silent no-ops: the sender has no reliable
// channel back during transient races, so the server never surfaces them.
func (s *GameServer) handleGameEvent(client *game.Client, event string, msg map[string]interface{}) {
	switch event {
	case "registerMatch":
		// A user still seated in a live room goes back there instead of
		// pairing into a second one, which would orphan the old seat's
		// member-index entry.
		if roomID, in := s.Registry.FindByMember(client.UserID); in {
			client.Emit("goGameRoom", map[string]interface{}{"gameRoomId": roomID.String()})
			return
		}
		room, first := s.Matchmaker.Register(client)
		if room != nil {
			payload := map[string]interface{}{"gameRoomId": room.ID.String()}
			client.Emit("goGameRoom", payload)
			first.Emit("goGameRoom", payload)
			s.setRoomStatus(room, true)
		}
		s.Logger.Debugf("registerMatch: user %s, queue len %d", client.UserID, s.Matchmaker.Len())

	case "cancelMatch":
		s.Matchmaker.Cancel(client.ID)

	case "connectServer":
		roomID, err := uuid.Parse(getString(msg, "roomId"))
		if err != nil {
			return
		}
		s.Registry.DisconnectEverywhere(client.UserID)
		room, ok := s.Registry.Find(roomID)
		if !ok {
			client.Emit("noRoom", nil)
			return
		}
		role, ok := room.Connect(client, client.UserID)
		if !ok {
			s.Logger.Warnf("connectServer: user %s is not a member of room %s", client.UserID, roomID)
			return
		}
		client.Emit("connectClient", map[string]interface{}{
			"role":       int(role),
			"gameObject": room.Snapshot(),
		})

	case "settingChange":
		if room, ok := s.findRoom(msg); ok {
			room.SettingChange(getString(msg, "name"), getBool(msg, "checked"), getFloat(msg, "value"))
		}

	case "start":
		if room, ok := s.findRoom(msg); ok {
			room.Start(int(getFloat(msg, "point")), getFloat(msg, "speed"))
		}

	case "move":
		if room, ok := s.findRoom(msg); ok {
			room.BarSelect(game.ParseKeyStatus(getString(msg, "key")), client.ID)
		}

	case "retry":
		room, ok := s.findRoom(msg)
		if !ok {
			return
		}
		state, p1, p2, ok := room.Retry(client.UserID)
		if !ok {
			return
		}
		if !state.Retry[0] || !state.Retry[1] {
			return
		}
		// Both sides agreed: replace the room, carrying settings forward.
		clients := room.Clients()
		s.Registry.Destroy(room.ID)
		newRoom := s.Registry.Create(&p1, &p2, &state.Settings)
		s.setRoomStatus(newRoom, true)
		for _, c := range clients {
			c.Emit("goNewGame", map[string]interface{}{"gameRoomId": newRoom.ID.String()})
		}

	case "retryCancel":
		if room, ok := s.findRoom(msg); ok {
			room.RetryCancel(client.UserID)
		}

	case "quit":
		room, ok := s.findRoom(msg)
		if !ok {
			return
		}
		s.setRoomStatus(room, false)
		s.Registry.Destroy(room.ID)

	case "readyGameIndex":
		s.Registry.DisconnectEverywhere(client.UserID)
		// Subscribe before reading the room list. A room created in between
		// then arrives as both a snapshot entry and an addGameRoom broadcast,
		// which is harmless; joining after the read would let it land in
		// neither.
		s.JoinLobby(client)
		status := 0
		roomIDStr := ""
		if roomID, in := s.Registry.FindByMember(client.UserID); in {
			status = 2
			roomIDStr = roomID.String()
		} else {
			s.Matchmaker.Prune()
			if s.Matchmaker.Waiting(client.UserID) {
				status = 1
			}
		}
		client.Emit("setFirstGameRooms", map[string]interface{}{
			"gameRooms":  s.Registry.List(),
			"status":     status,
			"gameRoomId": roomIDStr,
		})

	default:
		s.Logger.Warnf("unknown game event '%s' from user %s", event, client.UserID)
	}
}

// findRoom resolves the "id" field of an event payload to a live room.
func (s *GameServer) findRoom(msg map[string]interface{}) (*game.Room, bool) {
	roomID, err := uuid.Parse(getString(msg, "id"))
	if err != nil {
		return nil, false
	}
	return s.Registry.Find(roomID)
}

// setRoomStatus flips both members' persisted in-game flag. The write is an
// external collaborator call: it runs off the event path and failures are
// logged and swallowed, never blocking gameplay.
func (s *GameServer) setRoomStatus(room *game.Room, inGame bool) {
	if database.DB == nil {
		s.Logger.Debugf("profile store not connected, skipping status update for room %s", room.ID)
		return
	}
	status := models.StatusOnline
	if inGame {
		status = models.StatusInGame
	}
	members := room.MemberIDs()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, id := range members {
			if err := database.SetUserStatus(ctx, id, status); err != nil {
				s.Logger.Warnf("failed to set status %s for user %s: %v", status, id, err)
			}
		}
	}()
}

// handleRoomFinish runs once per room when the round reaches its target
// score: members go back to online and the result is queued for the stats
// consumer. Both are best-effort side effects.
func (s *GameServer) handleRoomFinish(room *game.Room) {
	s.setRoomStatus(room, false)

	state := room.Snapshot()
	members := room.MemberIDs()
	record := cache.MatchRecord{
		RoomID:       room.ID,
		Player1ID:    members[0],
		Player2ID:    members[1],
		Player1Score: state.Scores[0],
		Player2Score: state.Scores[1],
		TargetScore:  state.Settings.TargetScore,
		FinishedAt:   time.Now().Unix(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := cache.PublishMatchRecord(ctx, record); err != nil {
			s.Logger.Warnf("failed to publish match record for room %s: %v", room.ID, err)
		}
	}()
}
