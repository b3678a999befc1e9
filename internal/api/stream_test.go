package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/miradorstack/mirador-aiops/internal/state"
)

func TestStreamForwardsPublishedRuns(t *testing.T) {
	store := state.NewStore(nil, nil, 0, 5)
	srv := httptest.NewServer(NewHandler(nil, &fakeBackend{}, store, 0))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/runs"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello StreamMessage
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != "subscribed" {
		t.Fatalf("expected subscribed frame, got %+v %v", hello, err)
	}

	store.Publish(context.Background(), sampleSnapshot())

	var msg StreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "run" || msg.RunID != "20240301T120000-000001" || msg.Result == nil {
		t.Fatalf("unexpected frame %+v", msg)
	}
	if len(msg.Result.RootCauses) != 1 || msg.Result.Telemetry.TotalNodes != 15 {
		t.Fatalf("unexpected result %+v", msg.Result)
	}
}
