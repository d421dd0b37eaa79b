package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-motionblend/pkg/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Viewers only send pings and control frames.
	maxMessageSize = 4 * 1024

	// Per-client frame queue. A viewer that falls this far behind is dropped.
	sendBuffer  = 256
	replyBuffer = 8
)

// Client is one viewer attached to a hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// send is closed by the hub; replies belongs to the client.
	send    chan Message
	replies chan Message
}

// NewClient registers conn with hub. It returns nil when the hub has stopped.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, sendBuffer),
		replies: make(chan Message, replyBuffer),
	}
	select {
	case hub.register <- client:
		return client
	case <-hub.done:
		return nil
	}
}

// Run pumps the connection until it closes. Call it from the websocket
// handler; it blocks.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if msg, ok := reply(data, time.Now()); ok {
			select {
			case c.replies <- msg:
			default:
			}
		}
	}
}

// reply answers an application-level ping with a pong carrying the
// measured latency. Anything else gets no answer.
func reply(data []byte, now time.Time) (Message, bool) {
	in, err := protocol.ParseMessage(data)
	if err != nil || in.Type != protocol.TypePing {
		return Message{}, false
	}
	ping, err := in.GetPingData()
	if err != nil {
		return Message{}, false
	}
	out, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, now.UnixMilli())
	if err != nil {
		return Message{}, false
	}
	msg, err := FromProtocol(out)
	return msg, err == nil
}

// writePump is the connection's only writer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		var msg Message
		select {
		case m, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msg = m

		case msg = <-c.replies:

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
			return
		}
	}
}
