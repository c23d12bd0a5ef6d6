// Package core declares the transport-facing contracts of the relay.
package core

// Frame is one raw outbound wire payload (a serialized JSON message).
type Frame []byte

// SignalConnection abstracts a client's messaging transport.
// Owned by the adapter; the adapter must Close() it.
//
// TrySend must never block and must fail (not panic) once the
// connection is closed: a send racing a disconnect is an expected
// condition, the caller just skips that peer.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
