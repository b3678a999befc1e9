package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

const (
	streamBuffer = 8
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamMessage is the JSON frame pushed to websocket clients.
type StreamMessage struct {
	Type   string            `json:"type"`
	RunID  string            `json:"run_id,omitempty"`
	Result *models.RunResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Stream pushes every published run to connected websocket clients.
type Stream struct {
	logger     *slog.Logger
	subscriber Subscriber
}

// NewStream constructs a Stream over subscriber.
func NewStream(logger *slog.Logger, subscriber Subscriber) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{logger: logger, subscriber: subscriber}
}

// ServeHTTP upgrades the connection and forwards runs until the client leaves.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer func() { _ = conn.Close() }()

	runs, cancelSub := s.subscriber.Subscribe(streamBuffer)
	defer cancelSub()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read loop only detects disconnects; clients send nothing meaningful.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.write(conn, StreamMessage{Type: "subscribed"}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-runs:
			if !ok {
				return
			}
			result := snap.Result()
			if err := s.write(conn, StreamMessage{Type: "run", RunID: snap.RunID, Result: &result}); err != nil {
				s.logger.Debug("websocket write failed", slog.Any("error", err))
				return
			}
		}
	}
}

func (s *Stream) write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
