package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-motionblend/pkg/protocol"
)

// StreamHandler receives each message from the frame stream. Returning an
// error ends the stream with that error.
type StreamHandler func(msg *protocol.Message) error

// Stream follows /ws/frames until ctx is done, the server closes the
// connection, or fn returns an error.
func (c *Client) Stream(ctx context.Context, fn StreamHandler) error {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws/frames"

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("motionblend: stream connect failed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("motionblend: stream read: %w", err)
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		if err := fn(msg); err != nil {
			if errors.Is(err, ErrStopStream) {
				return nil
			}
			return err
		}
	}
}

// ErrStopStream ends Stream without an error when returned by a handler.
var ErrStopStream = errors.New("motionblend: stop stream")
