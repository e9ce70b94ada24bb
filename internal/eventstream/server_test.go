package eventstream

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
)

func startServer(t *testing.T, bus *events.Bus) *Server {
	t.Helper()
	s := NewServer(Config{Addr: "127.0.0.1:0", Bus: bus})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return msg
}

func TestServerHealth(t *testing.T) {
	s := startServer(t, nil)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestServerForwardsEvents(t *testing.T) {
	bus := events.NewBus()
	s := startServer(t, bus)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if msg := readMessage(t, ctx, conn); msg.Type != MessageHello {
		t.Fatalf("first message = %q, want hello", msg.Type)
	}

	// The hello frame is written before registration completes.
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", s.ClientCount())
	}

	bus.Publish(events.Event{Kind: events.KindItemNew, Entity: events.EntityGrades, EntityID: "g1", Job: "grades"})

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageEvent || msg.Event == nil {
		t.Fatalf("message = %+v, want event", msg)
	}
	if msg.Event.EntityID != "g1" || msg.Event.Kind != events.KindItemNew || msg.Event.Job != "grades" {
		t.Errorf("event = %+v", msg.Event)
	}
}

func TestServerStopDisconnectsClients(t *testing.T) {
	s := NewServer(Config{Addr: "127.0.0.1:0", Bus: events.NewBus()})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readMessage(t, ctx, conn)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("expected read error after Stop")
	}
	if s.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after Stop", s.ClientCount())
	}
}
