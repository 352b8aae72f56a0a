// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// List endpoints
	DefaultListLimit = 20
	MaxListLimit     = 200

	// Per-connection WebSocket control rate limiting
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Upper bound for a single WebSocket write
	WriteTimeout = 5 * time.Second
)
