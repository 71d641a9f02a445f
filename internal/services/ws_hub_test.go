package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vzalabardo/tomorrowmanyers/internal/models"
)

// newHubServer registers every accepted connection for eventID.
func newHubServer(t *testing.T, hub *WSHub, eventID string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(eventID, conn)
		go func() {
			defer hub.Unregister(eventID, conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWSHub_PublishCounts(t *testing.T) {
	hub := NewWSHub()
	srv := newHubServer(t, hub, "event-1")

	a := dial(t, srv)
	b := dial(t, srv)
	waitFor(t, func() bool { return hub.Watchers("event-1") == 2 })

	hub.PublishCounts("event-2", models.RSVPCounts{Yes: 9, Total: 9})
	hub.PublishCounts("event-1", models.RSVPCounts{Yes: 1, Maybe: 1, Total: 2})

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != MessageTypeRSVPCounts || msg.EventID != "event-1" {
			t.Errorf("message = %+v", msg)
		}
		if msg.Counts == nil || *msg.Counts != (models.RSVPCounts{Yes: 1, Maybe: 1, Total: 2}) {
			t.Errorf("counts = %+v", msg.Counts)
		}
	}
}

func TestWSHub_UnregisterOnDisconnect(t *testing.T) {
	hub := NewWSHub()
	srv := newHubServer(t, hub, "event-1")

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Watchers("event-1") == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.Watchers("event-1") == 0 })

	// Publishing with no watchers is a no-op.
	hub.PublishCounts("event-1", models.RSVPCounts{})
}

func TestWSHub_SnapshotNotOvertaken(t *testing.T) {
	hub := NewWSHub()
	older := models.RSVPCounts{Yes: 1, Total: 1}
	newer := models.RSVPCounts{Yes: 2, Total: 2}

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register("event-1", conn)
		defer hub.Unregister("event-1", conn)

		// An update lands while the snapshot is being read.
		load := func() (models.RSVPCounts, error) {
			go hub.PublishCounts("event-1", newer)
			time.Sleep(50 * time.Millisecond)
			return older, nil
		}
		if err := hub.SendSnapshot("event-1", conn, load); err != nil {
			t.Errorf("SendSnapshot() error = %v", err)
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	var got []models.RSVPCounts
	for i := 0; i < 2; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if msg.Counts == nil {
			t.Fatalf("message %d has no counts", i)
		}
		got = append(got, *msg.Counts)
	}
	if got[0] != older || got[1] != newer {
		t.Errorf("messages = %+v, want snapshot then update", got)
	}
}
