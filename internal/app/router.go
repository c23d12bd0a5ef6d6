package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/smartmed/consult/internal/core"
	"github.com/smartmed/consult/internal/domain"
)

// Router classifies inbound frames by type and applies the fan-out
// rule for each. The wire format is peer-controlled, so every decode
// failure is logged and dropped: a bad frame must never crash the
// relay or reach another peer.
type Router struct {
	reg *Registry
}

func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

// Accept registers a freshly opened connection and hands back its
// session. The client is told nothing until it joins a room.
func (rt *Router) Accept(conn core.SignalConnection) *Session {
	return rt.reg.Accept(conn)
}

// Close runs the disconnect path: evict the session from its room and
// tell the remaining members. The transport adapter guarantees this is
// called exactly once per connection, error path included.
func (rt *Router) Close(sess *Session) {
	roomID, remaining := rt.reg.Evict(sess.ID)
	if roomID == "" {
		return
	}
	rt.fanOut(remaining, peerLeftNotice{
		Type:   "peer-left",
		RoomID: roomID,
		PeerID: sess.ID,
	})
}

// Dispatch routes one inbound frame from sess.
func (rt *Router) Dispatch(sess *Session, data core.Frame) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("sid", string(sess.ID)).Msg("malformed frame dropped")
		return
	}

	switch env.Type {
	case "join":
		rt.handleJoin(sess, data)
	case "chat":
		rt.handleChat(sess, data)
	case "hangup":
		rt.handleHangup(sess)
	case "offer", "answer", "ice-candidate":
		rt.handleSignal(sess, env.Type, data)
	case "ping":
		rt.send(sess, pongReply{Type: "pong"})
	default:
		// Unrecognized types are ignored so future clients can't
		// break older relays.
		log.Debug().Str("module", "app.router").Str("type", env.Type).Msg("unknown frame type")
	}
}

func (rt *Router) handleJoin(sess *Session, data core.Frame) {
	var p joinRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("sid", string(sess.ID)).Msg("bad join payload")
		return
	}
	if p.RoomID == "" {
		// The empty string is the internal "no room" sentinel; a join
		// without a room id is as malformed as one without a type.
		log.Warn().Str("module", "app.router").Str("sid", string(sess.ID)).Msg("join without roomId dropped")
		return
	}
	roomID := domain.RoomID(p.RoomID)

	res, ok := rt.reg.Join(sess.ID, roomID, domain.Role(p.UserRole))
	if !ok {
		return
	}
	if len(res.Left) > 0 {
		// The session switched rooms: its old peers see it leave.
		rt.fanOut(res.Left, peerLeftNotice{
			Type:   "peer-left",
			RoomID: res.LeftRoom,
			PeerID: sess.ID,
		})
	}

	peerIDs := make([]domain.SessionID, 0, len(res.Peers))
	for _, p := range res.Peers {
		peerIDs = append(peerIDs, p.ID)
	}
	rt.send(sess, joinedReply{
		Type:     "joined",
		ClientID: sess.ID,
		RoomID:   roomID,
		Peers:    peerIDs,
	})
	if res.Rejoined {
		// Membership didn't change, the peers already know this one.
		return
	}
	rt.fanOut(res.Peers, peerJoinedNotice{
		Type:   "peer-joined",
		RoomID: roomID,
		PeerID: sess.ID,
	})
}

func (rt *Router) handleChat(sess *Session, data core.Frame) {
	var p chatRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("sid", string(sess.ID)).Msg("bad chat payload")
		return
	}
	roomID, peers, ok := rt.reg.Peers(sess.ID)
	if !ok {
		return
	}
	rt.fanOut(peers, chatBroadcast{
		Type:   "chat",
		RoomID: roomID,
		Text:   p.Text,
		From:   sess.ID,
	})
}

func (rt *Router) handleHangup(sess *Session) {
	// Application-level signal only: the sender stays in the room and
	// the connection stays open.
	roomID, peers, ok := rt.reg.Peers(sess.ID)
	if !ok {
		return
	}
	rt.fanOut(peers, hangupBroadcast{
		Type:   "hangup",
		RoomID: roomID,
		From:   sess.ID,
	})
}

// handleSignal relays offer, answer and ice-candidate frames. The
// negotiation payload is end-to-end data between the peers; the relay
// re-attaches it unchanged and never looks inside.
func (rt *Router) handleSignal(sess *Session, kind string, data core.Frame) {
	var p signalRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("sid", string(sess.ID)).Str("type", kind).Msg("bad signal payload")
		return
	}
	roomID, peers, ok := rt.reg.Peers(sess.ID)
	if !ok {
		return
	}
	out := signalBroadcast{
		Type:   kind,
		RoomID: roomID,
		From:   sess.ID,
	}
	switch kind {
	case "offer":
		out.Offer = p.Offer
	case "answer":
		out.Answer = p.Answer
	case "ice-candidate":
		out.Candidate = p.Candidate
	}
	rt.fanOut(peers, out)
}

func (rt *Router) send(sess *Session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("marshal reply")
		return
	}
	if err := sess.Signal().TrySend(b); err != nil {
		log.Debug().Str("module", "app.router").Str("sid", string(sess.ID)).Msg("send skipped, peer gone")
	}
}

// fanOut delivers v to every session in peers. Delivery is best-effort
// at-most-once: a closed or backlogged peer is skipped, not an error.
func (rt *Router) fanOut(peers []*Session, v any) {
	if len(peers) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("marshal broadcast")
		return
	}
	for _, p := range peers {
		if err := p.Signal().TrySend(b); err != nil {
			log.Debug().Str("module", "app.router").Str("sid", string(p.ID)).Msg("broadcast skipped, peer gone")
		}
	}
}
