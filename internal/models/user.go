package models

import "github.com/google/uuid"

// User statuses persisted on the profile record. The game core only ever
// toggles between online and in_game; offline is owned by the account layer.
const (
	StatusOffline = "offline"
	StatusOnline  = "online"
	StatusInGame  = "in_game"
)

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`
	Status   string    `json:"status"`
}
