// internal/game/client.go
package game

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Client is one live realtime connection, identified separately from the user
// behind it: the same user reconnecting gets a new Client with a new ID.
// Outbound messages go through OutChan; the websocket handler runs the pump
// that drains it.
type Client struct {
	ID       uuid.UUID // connection id, unique per socket
	UserID   uuid.UUID
	Username string

	// OutChan carries outbound event payloads. Writes never block: a full or
	// closed channel drops the message (at-most-once delivery, recoverable
	// only by the client re-querying state).
	OutChan chan map[string]interface{}

	// Cancel stops the goroutines tied to this connection.
	Cancel func()

	mu   sync.Mutex
	live bool
}

// NewClient wraps an authenticated connection identity.
func NewClient(userID uuid.UUID, username string) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Username: username,
		OutChan:  make(chan map[string]interface{}, 32),
		live:     true,
	}
}

// Write pushes a message onto the client's OutChan non-blockingly. Logs if dropped.
func (c *Client) Write(msg map[string]interface{}) {
	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	select {
	case c.OutChan <- msg:
	default:
		ev, _ := msg["event"].(string)
		log.Printf("Client Write WARNING: OutChan for user %s full. Dropped event '%s'.", c.UserID, ev)
	}
}

// Emit sends a named event with the given fields.
func (c *Client) Emit(event string, fields map[string]interface{}) {
	msg := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		msg[k] = v
	}
	msg["event"] = event
	c.Write(msg)
}

// Live reports whether the underlying socket is still believed connected.
// The matchmaking queue uses this to prune ghost entries.
func (c *Client) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// MarkDead flags the connection as gone and cancels its goroutines. Idempotent.
// Detection is lazy: nothing is torn down here beyond the connection itself;
// rooms and queues react at the next relevant event.
func (c *Client) MarkDead() {
	c.mu.Lock()
	wasLive := c.live
	c.live = false
	cancel := c.Cancel
	c.mu.Unlock()

	if wasLive && cancel != nil {
		cancel()
	}
}
