// Package signal adapts a gorilla/websocket connection to the relay's
// SignalConnection contract: a buffered outbound queue drained by one
// writer goroutine, and a single reader feeding the router.
package signal

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/smartmed/consult/internal/app"
	"github.com/smartmed/consult/internal/config"
	"github.com/smartmed/consult/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Controller struct {
	Router *app.Router
	cfg    *config.Config
}

func NewController(cfg *config.Config, router *app.Router) *Controller {
	return &Controller{Router: router, cfg: cfg}
}

// wsConn pairs the websocket with its outbound queue. TrySend never
// blocks: a full queue or a closed connection drops the frame and
// reports it, the peer is simply skipped.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until it
// closes. The read pump owns the disconnect path, so room cleanup and
// peer-left notification happen exactly once per connection.
func (ctl *Controller) HandleSignal(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}
	sess := ctl.Router.Accept(conn)
	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Msg("new WS connection")

	go ctl.writePump(sess, conn)
	go ctl.readPump(sess, conn)
}
