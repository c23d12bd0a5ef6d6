package app_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartmed/consult/internal/core"
)

// fakeConn records every frame delivered to it. Closed connections
// refuse sends, mirroring the transport adapter.
type fakeConn struct {
	mu     sync.Mutex
	closed bool
	frames []core.Frame
}

var errConnClosed = errors.New("connection closed")

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errConnClosed
	}
	cp := make(core.Frame, len(fr))
	copy(cp, fr)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// received decodes every recorded frame into a generic map.
func (f *fakeConn) received(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

// lastOfType returns the most recent message with the given type.
func (f *fakeConn) lastOfType(t *testing.T, typ string) map[string]any {
	t.Helper()
	msgs := f.received(t)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i]["type"] == typ {
			return msgs[i]
		}
	}
	t.Fatalf("no %q message received, got %v", typ, msgs)
	return nil
}

func (f *fakeConn) countOfType(t *testing.T, typ string) int {
	t.Helper()
	n := 0
	for _, m := range f.received(t) {
		if m["type"] == typ {
			n++
		}
	}
	return n
}
