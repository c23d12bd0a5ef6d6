package domain

// RoomID is a caller-supplied room name. Not validated for format.
type RoomID string

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	ID          RoomID `json:"id"`
	MemberCount int    `json:"member_count"`
}
