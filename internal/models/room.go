// internal/models/room.go
package models

import "github.com/google/uuid"

// PlayerInfo is the externally visible slice of a room member.
type PlayerInfo struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// RoomSummary is the lobby-facing projection of a live game room. It is
// derived from room state on demand and carries no authority of its own.
type RoomSummary struct {
	ID      uuid.UUID  `json:"id"`
	Player1 PlayerInfo `json:"player1"`
	Player2 PlayerInfo `json:"player2"`
}
