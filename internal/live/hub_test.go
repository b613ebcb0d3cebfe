package live_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"schoolattend/internal/live"
)

func TestHubBroadcast(t *testing.T) {
	hub := live.NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var welcome live.Message
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Type != "WELCOME" || welcome.ClientID == "" {
		t.Fatalf("welcome = %+v", welcome)
	}
	if hub.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", hub.Count())
	}

	hub.Broadcast(live.Message{Type: "SCAN", Payload: map[string]string{"name": "Alice"}})
	var got struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "SCAN" || got.Payload["name"] != "Alice" {
		t.Errorf("message = %+v", got)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Error("client not unregistered after close")
	}
}
