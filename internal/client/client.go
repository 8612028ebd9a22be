package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ManasDasri/PomStud/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueue      = 64
)

// Client manages the WebSocket connection to the relay.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	resolver  *resolver

	incoming chan *protocol.Message
	outgoing chan *protocol.Message

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a client for the relay at serverURL.
func New(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		resolver:  newResolver(),
		incoming:  make(chan *protocol.Message, sendQueue),
		outgoing:  make(chan *protocol.Message, sendQueue),
		done:      make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return WrapError("connect", ErrConnection, fmt.Sprintf("invalid server URL: %v", err))
	}

	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ip, err := c.resolver.lookup(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}
		var d net.Dialer
		return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return WrapError("connect", ErrConnection, err.Error())
	}
	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	slog.Debug("connected to relay", "url", u.String())
	return nil
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			slog.Debug("relay read ended", "err", err)
			return
		}

		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				slog.Debug("relay write failed", "err", err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
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

// Send encodes payload and queues it for the relay.
func (c *Client) Send(event string, payload any) error {
	msg, err := protocol.NewMessage(event, payload)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// JoinRoom asks the relay to place this connection in roomID.
func (c *Client) JoinRoom(roomID, userName string) error {
	return c.Send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: roomID, UserName: userName})
}

// SendTimer publishes the local timer to the room.
func (c *Client) SendTimer(roomID string, t protocol.Timer) error {
	return c.Send(protocol.EventTimerUpdate, protocol.TimerUpdate{RoomID: roomID, TimerState: &t})
}

// SendTasks publishes the full local task list to the room.
func (c *Client) SendTasks(roomID string, tasks []protocol.Task) error {
	if tasks == nil {
		tasks = []protocol.Task{}
	}
	return c.Send(protocol.EventTaskUpdate, protocol.TaskUpdate{RoomID: roomID, Tasks: tasks})
}

// SendOffer relays an SDP offer to targetID.
func (c *Client) SendOffer(targetID string, offer json.RawMessage) error {
	return c.Send(protocol.EventOffer, protocol.Offer{Offer: offer, TargetID: targetID})
}

// SendAnswer relays an SDP answer to targetID.
func (c *Client) SendAnswer(targetID string, answer json.RawMessage) error {
	return c.Send(protocol.EventAnswer, protocol.Answer{Answer: answer, TargetID: targetID})
}

// SendCandidate relays an ICE candidate to targetID. A nil candidate is sent
// as null to mark the end of gathering.
func (c *Client) SendCandidate(targetID string, candidate json.RawMessage) error {
	if candidate == nil {
		candidate = json.RawMessage("null")
	}
	return c.Send(protocol.EventICECandidate, protocol.ICECandidate{Candidate: candidate, TargetID: targetID})
}

// Incoming returns the channel of relay messages. It is closed when the
// connection ends.
func (c *Client) Incoming() <-chan *protocol.Message {
	return c.incoming
}

// Done is closed once the client is closed or the connection drops.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the WebSocket connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
