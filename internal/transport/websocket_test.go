package transport

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketBroadcast(t *testing.T) {
	ws, err := NewWebSocket("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocket error: %v", err)
	}
	defer ws.Close()
	ws.minInterval = 0

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ws.Addr()+"/readings", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	// The register happens in the upgrade handler; give it a moment.
	deadline := time.Now().Add(time.Second)
	for {
		ws.mu.Lock()
		n := len(ws.clients)
		ws.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	type reading struct {
		Note      string  `json:"note"`
		Frequency float64 `json:"frequency"`
	}
	if err := ws.Send(reading{Note: "A4", Frequency: 440.2}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got reading
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	if got.Note != "A4" || got.Frequency != 440.2 {
		t.Errorf("received %+v, want {A4 440.2}", got)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	ws, err := NewWebSocket("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocket error: %v", err)
	}
	defer ws.Close()

	ws.Send("first")
	before := ws.lastSend
	ws.Send("second") // Inside the rate window: dropped.
	if ws.lastSend != before {
		t.Error("rate-limited send updated the limiter timestamp")
	}
}
