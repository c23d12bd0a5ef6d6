package app

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/smartmed/consult/internal/core"
	"github.com/smartmed/consult/internal/domain"
)

// Session is the relay-side state of one accepted connection.
// Room and Role are unset until a join frame is processed; both are
// mutated only by the registry while it holds its lock.
type Session struct {
	ID   domain.SessionID
	Room domain.RoomID
	Role domain.Role

	conn core.SignalConnection
}

// Signal returns the session's transport endpoint.
func (s *Session) Signal() core.SignalConnection { return s.conn }

// room is a registry-internal membership record. A room object exists
// if and only if it has at least one member; the registry deletes it
// the instant the last member is removed.
type room struct {
	id      domain.RoomID
	members map[domain.SessionID]*Session
}

// Registry is the process-wide room table. All mutations of the table
// and of room membership are serialized under one lock; no I/O happens
// while the lock is held, fan-out runs on snapshots taken under it.
type Registry struct {
	mu       sync.RWMutex
	nextID   uint64
	rooms    map[domain.RoomID]*room
	sessions map[domain.SessionID]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[domain.RoomID]*room),
		sessions: make(map[domain.SessionID]*Session),
	}
}

// Accept creates a session for a freshly accepted connection. The id
// comes from a monotonic counter, so it is unique for the process
// lifetime. No room is assigned and nothing is sent to the client.
func (r *Registry) Accept(conn core.SignalConnection) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s := &Session{
		ID:   domain.SessionID(strconv.FormatUint(r.nextID, 10)),
		conn: conn,
	}
	r.sessions[s.ID] = s
	log.Debug().Str("module", "app.registry").Str("sid", string(s.ID)).Msg("session accepted")
	return s
}

// JoinResult is the snapshot a Join hands back for notification
// purposes; none of it may be touched while holding the lock.
type JoinResult struct {
	// Peers are the members that were already in the room.
	Peers []*Session
	// LeftRoom and Left describe the room the session switched away
	// from, when it was in another room before.
	LeftRoom domain.RoomID
	Left     []*Session
	// Rejoined is set when the session was already a member of the
	// requested room, so no membership changed.
	Rejoined bool
}

// Join moves the session into roomID, creating the room if absent.
// An empty roomID is rejected: it is the "no room" sentinel and would
// corrupt the membership bookkeeping. Joining the current room again
// only refreshes the role.
func (r *Registry) Join(sid domain.SessionID, roomID domain.RoomID, role domain.Role) (JoinResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res JoinResult
	s, found := r.sessions[sid]
	if !found || roomID == "" {
		return res, false
	}
	if s.Room == roomID {
		res.Rejoined = true
		s.Role = role
		rm := r.rooms[roomID]
		res.Peers = make([]*Session, 0, len(rm.members))
		for _, m := range rm.members {
			if m.ID != sid {
				res.Peers = append(res.Peers, m)
			}
		}
		return res, true
	}
	if s.Room != "" {
		res.LeftRoom = s.Room
		res.Left = r.removeMember(s)
	}

	rm := r.ensureRoom(roomID)
	res.Peers = make([]*Session, 0, len(rm.members))
	for _, m := range rm.members {
		if m.ID != sid {
			res.Peers = append(res.Peers, m)
		}
	}
	rm.members[sid] = s
	s.Room = roomID
	s.Role = role

	log.Info().Str("module", "app.registry").Str("sid", string(sid)).
		Str("room", string(roomID)).Int("members", len(rm.members)).Msg("joined room")
	return res, true
}

// Evict destroys the session. If it was in a room, the room loses the
// member (and is deleted when that was the last one) and the remaining
// members are returned so the caller can notify them.
func (r *Registry) Evict(sid domain.SessionID) (roomID domain.RoomID, remaining []*Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, found := r.sessions[sid]
	if !found {
		return "", nil
	}
	delete(r.sessions, sid)
	roomID = s.Room
	remaining = r.removeMember(s)

	log.Info().Str("module", "app.registry").Str("sid", string(sid)).
		Str("room", string(roomID)).Msg("session evicted")
	return roomID, remaining
}

// Peers returns the session's current room and the other members of
// that room. ok is false when the session has not joined a room yet.
func (r *Registry) Peers(sid domain.SessionID) (roomID domain.RoomID, peers []*Session, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, found := r.sessions[sid]
	if !found || s.Room == "" {
		return "", nil, false
	}
	rm, found := r.rooms[s.Room]
	if !found {
		return "", nil, false
	}
	peers = make([]*Session, 0, len(rm.members))
	for _, m := range rm.members {
		if m.ID != sid {
			peers = append(peers, m)
		}
	}
	return s.Room, peers, true
}

// Rooms lists the live rooms with their member counts.
func (r *Registry) Rooms() []domain.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(r.rooms))
	for id, rm := range r.rooms {
		out = append(out, domain.RoomInfo{ID: id, MemberCount: len(rm.members)})
	}
	return out
}

// RoomMembers returns the member ids of a room, or nil when the room
// does not exist.
func (r *Registry) RoomMembers(roomID domain.RoomID) []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, found := r.rooms[roomID]
	if !found {
		return nil
	}
	out := make([]domain.SessionID, 0, len(rm.members))
	for sid := range rm.members {
		out = append(out, sid)
	}
	return out
}

// SessionCount reports the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ensureRoom returns the room, creating it if absent. Caller holds mu.
func (r *Registry) ensureRoom(id domain.RoomID) *room {
	rm, found := r.rooms[id]
	if !found {
		rm = &room{id: id, members: make(map[domain.SessionID]*Session)}
		r.rooms[id] = rm
		log.Debug().Str("module", "app.registry").Str("room", string(id)).Msg("room created")
	}
	return rm
}

// removeMember takes the session out of its current room, deletes the
// room when it became empty, and returns the remaining members. The
// session's room binding is cleared. Caller holds mu.
func (r *Registry) removeMember(s *Session) []*Session {
	if s.Room == "" {
		return nil
	}
	rm, found := r.rooms[s.Room]
	if !found {
		s.Room = ""
		return nil
	}
	delete(rm.members, s.ID)
	s.Room = ""
	if len(rm.members) == 0 {
		delete(r.rooms, rm.id)
		log.Debug().Str("module", "app.registry").Str("room", string(rm.id)).Msg("room deleted")
		return nil
	}
	remaining := make([]*Session, 0, len(rm.members))
	for _, m := range rm.members {
		remaining = append(remaining, m)
	}
	return remaining
}
