// Package domain contains entity without logic, just meta-data
package domain

type (
	// SessionID identifies one accepted connection. Assigned by the
	// registry at accept time, stable until the connection closes,
	// never reused while it is open.
	SessionID string

	// Role is a client-supplied tag (caller/callee). The relay stores
	// and echoes it, nothing more.
	Role string
)
