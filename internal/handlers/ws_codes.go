// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game gateway. These give clients a
// more specific reason for closure than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Handshake token was missing, invalid, or expired.
	InvalidUserIDError    = 3002 // User ID derived from token was malformed.
	UnknownUserError      = 3003 // Token subject has no profile record.
)
