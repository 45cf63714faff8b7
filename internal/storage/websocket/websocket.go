package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trafficsignal/trafficsignal/internal/config"
	"github.com/trafficsignal/trafficsignal/pkg/core"
	"github.com/trafficsignal/trafficsignal/pkg/streaming"
)

// Backend streams runs to a live renderer over WebSocket.
// start_run and end_run wait for a server ack; frames are fire-and-forget.
type Backend struct {
	conn   *connection
	cfg    config.WebSocketConfig
	runID  atomic.Value // string
	frames atomic.Uint64
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{
		conn: newConnection(cfg.URL, cfg.Secret, logger),
		cfg:  cfg,
	}
	b.runID.Store("")
	return b
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return b.conn.open(ctx)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartRun announces the run and its layout and waits for the server ack.
// The message is kept and replayed if the connection has to be re-established.
func (b *Backend) StartRun(run *core.Run) error {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.NewStartRun(run))
	if err != nil {
		return err
	}

	b.conn.setHello(data)
	b.runID.Store(run.ID)
	b.frames.Store(0)

	return b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout)
}

// EndRun sends end_run and waits for the server ack.
func (b *Backend) EndRun() error {
	payload := streaming.EndRunPayload{
		RunID:   b.runID.Load().(string),
		EndedAt: time.Now(),
		Frames:  b.frames.Load(),
	}
	data, err := marshalEnvelope(streaming.TypeEndRun, payload)
	if err != nil {
		return err
	}

	err = b.conn.sendAndWait(data, streaming.TypeEndRun, ackTimeout)

	// a reconnect after this point must not resume the finished run
	b.conn.setHello(nil)
	return err
}

// RecordFrame queues the frame for sending.
func (b *Backend) RecordFrame(f *core.Frame) error {
	data, err := marshalEnvelope(streaming.TypeFrame, streaming.NewFrame(f))
	if err != nil {
		return err
	}
	if !b.conn.send(data) {
		return fmt.Errorf("frame %d dropped", f.Seq)
	}
	b.frames.Add(1)
	return nil
}
