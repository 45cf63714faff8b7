package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/internal/storage"
	"github.com/trafficsignal/trafficsignal/pkg/core"
	"github.com/trafficsignal/trafficsignal/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secrets  []string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]streaming.Envelope(nil), m.messages...)
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

// testServer upgrades to WebSocket, records every envelope and acks
// start_run/end_run unless ack is false.
func testServer(t *testing.T, ack bool) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.mu.Lock()
		ml.secrets = append(ml.secrets, r.URL.Query().Get("secret"))
		ml.mu.Unlock()

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if ack && (env.Type == streaming.TypeStartRun || env.Type == streaming.TypeEndRun) {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, ml
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndRun(t *testing.T) {
	srv, ml := testServer(t, true)

	b := New(config.WebSocketConfig{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	run := &core.Run{ID: "r1", Bounds: core.Bounds{North: 250, South: 450, East: 750, West: 450}}
	require.NoError(t, b.StartRun(run))

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, b.RecordFrame(&core.Frame{
			Seq:      seq,
			Vehicles: []core.VehicleState{{ID: 0, Axis: core.AxisHorizontal, Position: 800, Cross: 265}},
		}))
	}
	require.NoError(t, b.EndRun())

	// end_run is acked, so every earlier frame has been written in order
	msgs := ml.all()
	require.Len(t, msgs, 5)
	assert.Equal(t, streaming.TypeStartRun, msgs[0].Type)
	assert.Equal(t, streaming.TypeFrame, msgs[1].Type)
	assert.Equal(t, streaming.TypeEndRun, msgs[4].Type)

	var start streaming.StartRunPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "r1", start.RunID)
	assert.Equal(t, 750, start.Bounds.East)

	var frame streaming.FramePayload
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &frame))
	assert.Equal(t, uint64(3), frame.Seq)
	assert.Equal(t, 265, frame.Vehicles[0].Y)

	var end streaming.EndRunPayload
	require.NoError(t, json.Unmarshal(msgs[4].Payload, &end))
	assert.Equal(t, "r1", end.RunID)
	assert.Equal(t, uint64(3), end.Frames)

	ml.mu.Lock()
	assert.Equal(t, []string{"test"}, ml.secrets)
	ml.mu.Unlock()
}

func TestStartRun_AckTimeout(t *testing.T) {
	srv, ml := testServer(t, false)

	b := New(config.WebSocketConfig{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.NewStartRun(&core.Run{ID: "r2"}))
	require.NoError(t, err)

	err = b.conn.sendAndWait(data, streaming.TypeStartRun, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for ack")

	assert.Eventually(t, func() bool { return ml.count(streaming.TypeStartRun) == 1 }, time.Second, 5*time.Millisecond)
}

func TestInit_DialFailure(t *testing.T) {
	b := New(config.WebSocketConfig{URL: "ws://127.0.0.1:1/stream"}, nil)
	require.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestInit_InvalidURL(t *testing.T) {
	b := New(config.WebSocketConfig{URL: "://bad"}, nil)
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid websocket URL")
}

func TestClose_Idempotent(t *testing.T) {
	srv, _ := testServer(t, true)

	b := New(config.WebSocketConfig{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())

	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())

	err := b.conn.sendAndWait([]byte(`{}`), streaming.TypeEndRun, time.Second)
	assert.Error(t, err)
}

func TestReconnect_ReplaysStartRun(t *testing.T) {
	var (
		mu    sync.Mutex
		conns []*ws.Conn
	)
	ml := &messageLog{}
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		conns = append(conns, c)
		mu.Unlock()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if json.Unmarshal(msg, &env) != nil {
				continue
			}
			ml.add(env)
			if env.Type == streaming.TypeStartRun {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				_ = c.WriteMessage(ws.TextMessage, data)
			}
		}
	}))
	defer srv.Close()

	b := New(config.WebSocketConfig{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()
	require.NoError(t, b.StartRun(&core.Run{ID: "r3"}))

	// drop the server side of the first session
	mu.Lock()
	require.Len(t, conns, 1)
	_ = conns[0].Close()
	mu.Unlock()

	assert.Eventually(t, func() bool {
		return ml.count(streaming.TypeStartRun) == 2
	}, 5*time.Second, 20*time.Millisecond)
}
