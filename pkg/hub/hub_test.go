package hub

import (
	"context"
	"testing"
	"time"

	"github.com/teslashibe/go-motionblend/pkg/protocol"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, cancel
}

func fakeClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Message, buffer)}
	h.register <- c
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcast(t *testing.T) {
	h, _ := startHub(t)
	a := fakeClient(h, 4)
	b := fakeClient(h, 4)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	msg, err := protocol.NewErrorMessage("INTERNAL", "x")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.BroadcastMessage(msg); err != nil {
		t.Fatalf("BroadcastMessage failed: %v", err)
	}

	for _, c := range []*Client{a, b} {
		select {
		case got := <-c.send:
			parsed, err := protocol.ParseMessage(got.Data)
			if err != nil || parsed.Type != protocol.TypeError {
				t.Errorf("unexpected message %s (%v)", got.Data, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestUnregister(t *testing.T) {
	h, _ := startHub(t)
	c := fakeClient(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.unregister <- c
	waitFor(t, func() bool { return h.ClientCount() == 0 })
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}
}

func TestDropsSlowClient(t *testing.T) {
	h, _ := startHub(t)
	slow := fakeClient(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Broadcast(Message{Data: []byte("one")})
	h.Broadcast(Message{Data: []byte("two")})
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	first := <-slow.send
	if string(first.Data) != "one" {
		t.Errorf("unexpected first message %q", first.Data)
	}
}

func TestStop(t *testing.T) {
	h, cancel := startHub(t)
	c := fakeClient(h, 1)
	waitFor(t, func() bool { return h.IsRunning() })

	cancel()
	<-h.Done()
	if h.IsRunning() {
		t.Error("hub should not be running")
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed on stop")
	}
	if NewClient(h, nil) != nil {
		t.Error("NewClient should return nil after stop")
	}
}

func TestReplyToPing(t *testing.T) {
	ping, err := protocol.NewPingMessage("p1")
	if err != nil {
		t.Fatal(err)
	}
	data, err := ping.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	msg, ok := reply(data, time.UnixMilli(5000))
	if !ok {
		t.Fatal("expected a pong")
	}
	parsed, err := protocol.ParseMessage(msg.Data)
	if err != nil || parsed.Type != protocol.TypePong {
		t.Fatalf("unexpected reply %s (%v)", msg.Data, err)
	}
	pong, err := parsed.GetPongData()
	if err != nil {
		t.Fatal(err)
	}
	if pong.ID != "p1" || pong.PongTS != 5000 {
		t.Errorf("unexpected pong %+v", pong)
	}
}

func TestReplyIgnoresOtherMessages(t *testing.T) {
	errMsg, err := protocol.NewErrorMessage("INTERNAL", "x")
	if err != nil {
		t.Fatal(err)
	}
	data, err := errMsg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	for name, in := range map[string][]byte{
		"error":   data,
		"garbage": []byte("not json"),
		"empty":   nil,
	} {
		if _, ok := reply(in, time.Now()); ok {
			t.Errorf("%s: unexpected reply", name)
		}
	}
}
