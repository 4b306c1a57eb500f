package handlers

import "strings"

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// getString pulls a string field out of a decoded JSON payload.
func getString(msg map[string]interface{}, key string) string {
	v, _ := msg[key].(string)
	return v
}

// getFloat pulls a numeric field out of a decoded JSON payload. JSON numbers
// decode as float64.
func getFloat(msg map[string]interface{}, key string) float64 {
	v, _ := msg[key].(float64)
	return v
}

// getBool pulls a boolean field out of a decoded JSON payload.
func getBool(msg map[string]interface{}, key string) bool {
	v, _ := msg[key].(bool)
	return v
}
