package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-motionblend/pkg/api"
	"github.com/teslashibe/go-motionblend/pkg/protocol"
)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", Joints: 10, WindowLength: 31})
	})
	mux.HandleFunc("/api/generate_transition", func(w http.ResponseWriter, r *http.Request) {
		var req api.TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Length == nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(api.ErrorResponse{Error: api.ErrorBody{Code: api.CodeInvalid, Message: "missing length"}})
			return
		}
		json.NewEncoder(w).Encode(api.TransitionResponse{
			ID:               "t1",
			TransitionFrames: make([][]float64, *req.Length),
			FrameTime:        1.0 / 30,
		})
	})
	mux.HandleFunc("/api/transitions/t1/bvh", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("HIERARCHY\n"))
	})

	upgrader := websocket.Upgrader{}
	mux.HandleFunc("/ws/frames", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 3; i++ {
			msg, _ := protocol.NewFrameMessage(protocol.FrameData{Source: protocol.SourceTransition, ID: "t1", Index: i, Total: 3})
			data, _ := msg.Bytes()
			conn.WriteMessage(websocket.TextMessage, data)
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("localhost:8080")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	c, err := New(fakeServer(t).URL + "/")
	require.NoError(t, err)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 31, h.WindowLength)
}

func TestGenerateTransition(t *testing.T) {
	c, err := New(fakeServer(t).URL)
	require.NoError(t, err)

	n := 7
	resp, err := c.GenerateTransition(context.Background(), api.TransitionRequest{Length: &n})
	require.NoError(t, err)
	assert.Equal(t, "t1", resp.ID)
	assert.Len(t, resp.TransitionFrames, 7)

	_, err = c.GenerateTransition(context.Background(), api.TransitionRequest{})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, api.CodeInvalid, apiErr.Code)
	assert.Equal(t, "missing length", apiErr.Message)
}

func TestTransitionBVH(t *testing.T) {
	c, err := New(fakeServer(t).URL)
	require.NoError(t, err)

	data, err := c.TransitionBVH(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "HIERARCHY\n", string(data))

	_, err = c.TransitionBVH(context.Background(), "missing")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestStream(t *testing.T) {
	c, err := New(fakeServer(t).URL)
	require.NoError(t, err)

	var got []int
	err = c.Stream(context.Background(), func(msg *protocol.Message) error {
		f, err := msg.GetFrameData()
		if err != nil {
			return err
		}
		got = append(got, f.Index)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestStreamStop(t *testing.T) {
	c, err := New(fakeServer(t).URL)
	require.NoError(t, err)

	count := 0
	err = c.Stream(context.Background(), func(msg *protocol.Message) error {
		count++
		return ErrStopStream
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
