// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/pong/internal/auth"
	"github.com/jason-s-yu/pong/internal/database"
	"github.com/jason-s-yu/pong/internal/game"
	"github.com/jason-s-yu/pong/internal/middleware"
)

// GameWSHandler upgrades the HTTP connection to the game WebSocket. It
// authenticates the handshake token, resolves the caller's profile, and runs
// the read loop that feeds the gateway's event router. Every inbound event
// for the lifetime of the socket flows through the returned client identity.
func GameWSHandler(logger *logrus.Logger, s *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "game" {
			c.Close(BadSubprotocolError, "client must speak the game subprotocol")
			return
		}

		// Handshake auth: a missing or invalid token terminates the
		// connection immediately. There is no guest path here.
		token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
		if token == "" {
			c.Close(InvalidAuthTokenError, "missing auth token")
			return
		}
		userIDStr, err := auth.AuthenticateJWT(token)
		if err != nil {
			logger.Warnf("rejected game connection from %s: %v", r.RemoteAddr, err)
			c.Close(InvalidAuthTokenError, "invalid auth token")
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			c.Close(InvalidUserIDError, "invalid user id in token")
			return
		}

		username := resolveUsername(r.Context(), logger, userID)
		if username == "" {
			c.Close(UnknownUserError, "no profile for token subject")
			return
		}

		client := game.NewClient(userID, username)
		ctx, cancel := context.WithCancel(r.Context())
		client.Cancel = cancel
		defer cancel()

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		go writePump(ctx, c, client, logger)
		readPump(ctx, c, s, client, logger)

		// Lazy disconnect: mark the connection dead and drop it from the
		// lobby group. Rooms keep their seat binding until the next relevant
		// event; the matchmaking queue prunes on its next registration.
		client.MarkDead()
		s.LeaveLobby(client.ID)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// resolveUsername looks the token subject up in the profile store. Without a
// connected store (local development) every identity resolves as a guest.
func resolveUsername(ctx context.Context, logger *logrus.Logger, userID uuid.UUID) string {
	if database.DB == nil {
		logger.Debugf("profile store not connected, using guest name for %s", userID)
		return "Guest"
	}
	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	u, err := database.GetUserByID(lookupCtx, userID)
	if err != nil {
		logger.Warnf("profile lookup failed for %s: %v", userID, err)
		return ""
	}
	return u.Username
}

// readPump reads events off the socket and hands them to the gateway router
// until the connection closes or the context is cancelled.
func readPump(ctx context.Context, c *websocket.Conn, s *GameServer, client *game.Client, logger *logrus.Logger) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("game websocket closed normally for user %s", client.UserID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("game websocket context canceled for user %s", client.UserID)
			} else {
				logger.Warnf("game websocket read error for user %s: %v (status %d)", client.UserID, err, closeStatus)
			}
			return
		}

		if typ != websocket.MessageText {
			logger.Warnf("ignoring non-text message type %d from user %s", typ, client.UserID)
			continue
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("invalid json from user %s: %v", client.UserID, err)
			continue
		}
		event, _ := msg["event"].(string)
		if event == "" {
			logger.Warnf("missing event name from user %s", client.UserID)
			continue
		}

		s.handleGameEvent(client, event, msg)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// writePump drains the client's OutChan onto the socket and pings
// periodically so proxies keep the connection open.
func writePump(ctx context.Context, c *websocket.Conn, client *game.Client, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-client.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing msg for user %s: %v", client.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("failed to write to websocket for user %s: %v", client.UserID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed for user %s: %v, assuming disconnect", client.UserID, err)
				return
			}
		}
	}
}
