package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/ManasDasri/PomStud/internal/metrics"
	"github.com/ManasDasri/PomStud/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection to the relay.
type Client struct {
	// ID is assigned by the registry on Register.
	ID string

	hub  *Hub
	conn *websocket.Conn

	// send is the bounded outbound queue drained by WritePump.
	send chan *protocol.Message

	// done is closed once the client is unregistered.
	done      chan struct{}
	closeOnce sync.Once

	limiter *rate.Limiter
}

// NewClient wraps conn. conn may be nil for clients that never run pumps.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan *protocol.Message, hub.opts.QueueSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(hub.opts.MessageRate, hub.opts.MessageBurst),
	}
}

// deliver queues msg without blocking. A full queue drops msg for this
// client only.
func (c *Client) deliver(msg *protocol.Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		metrics.Sent.WithLabelValues(msg.Type).Inc()
		return true
	default:
		metrics.Dropped.WithLabelValues(metrics.ReasonQueueFull).Inc()
		c.hub.log.Warn("outbound queue full, message dropped", "conn", c.ID, "type", msg.Type)
		return false
	}
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Info("connection closed", "conn", c.ID, "err", err)
			}
			return
		}

		if !c.limiter.Allow() {
			metrics.Dropped.WithLabelValues(metrics.ReasonRateLimited).Inc()
			c.hub.log.Warn("rate limit exceeded, message dropped", "conn", c.ID, "type", msg.Type)
			continue
		}

		c.hub.Handle(c, &msg)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.hub.log.Debug("write failed", "conn", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
