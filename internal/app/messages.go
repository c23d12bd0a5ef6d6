package app

import (
	"encoding/json"

	"github.com/smartmed/consult/internal/domain"
)

// Inbound frames are JSON objects with at least a "type" field. Fields
// the relay does not understand are ignored; negotiation payloads are
// kept as raw JSON and forwarded byte for byte.

type envelope struct {
	Type string `json:"type"`
}

type joinRequest struct {
	RoomID   string `json:"roomId"`
	UserRole string `json:"userRole"`
}

type chatRequest struct {
	Text string `json:"text"`
}

// signalRequest covers offer, answer and ice-candidate frames. Exactly
// one of the fields is set, depending on the frame type.
type signalRequest struct {
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type joinedReply struct {
	Type     string             `json:"type"`
	ClientID domain.SessionID   `json:"clientId"`
	RoomID   domain.RoomID      `json:"roomId"`
	Peers    []domain.SessionID `json:"peers"`
}

type peerJoinedNotice struct {
	Type   string           `json:"type"`
	RoomID domain.RoomID    `json:"roomId"`
	PeerID domain.SessionID `json:"peerId"`
}

type peerLeftNotice struct {
	Type   string           `json:"type"`
	RoomID domain.RoomID    `json:"roomId"`
	PeerID domain.SessionID `json:"peerId"`
}

type chatBroadcast struct {
	Type   string           `json:"type"`
	RoomID domain.RoomID    `json:"roomId"`
	Text   string           `json:"text"`
	From   domain.SessionID `json:"from"`
}

type hangupBroadcast struct {
	Type   string           `json:"type"`
	RoomID domain.RoomID    `json:"roomId"`
	From   domain.SessionID `json:"from"`
}

type signalBroadcast struct {
	Type      string           `json:"type"`
	RoomID    domain.RoomID    `json:"roomId"`
	From      domain.SessionID `json:"from"`
	Offer     json.RawMessage  `json:"offer,omitempty"`
	Answer    json.RawMessage  `json:"answer,omitempty"`
	Candidate json.RawMessage  `json:"candidate,omitempty"`
}

type pongReply struct {
	Type string `json:"type"`
}
