package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/models"
)

const (
	// MessageTypeRSVPCounts carries the current RSVP counts of an event.
	MessageTypeRSVPCounts = "rsvp_counts"

	writeWait = 10 * time.Second
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string             `json:"type"`
	EventID string             `json:"eventId"`
	Counts  *models.RSVPCounts `json:"counts,omitempty"`
}

// wsClient serializes writes to one connection.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(data)
}

func (c *wsClient) writeLocked(data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub fans RSVP count updates out to the connections watching an event
type WSHub struct {
	mu      sync.RWMutex
	clients map[string]map[*websocket.Conn]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[string]map[*websocket.Conn]*wsClient)}
}

// Register adds a connection watching eventID
func (h *WSHub) Register(eventID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers, ok := h.clients[eventID]
	if !ok {
		watchers = make(map[*websocket.Conn]*wsClient)
		h.clients[eventID] = watchers
	}
	watchers[conn] = &wsClient{conn: conn}

	log.Debug().Str("event_id", eventID).Int("watchers", len(watchers)).Msg("WebSocket connection registered")
}

// Unregister removes and closes a connection
func (h *WSHub) Unregister(eventID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers, ok := h.clients[eventID]
	if !ok {
		return
	}
	if _, exists := watchers[conn]; exists {
		conn.Close()
		delete(watchers, conn)
		log.Debug().Str("event_id", eventID).Msg("WebSocket connection unregistered")
	}
	if len(watchers) == 0 {
		delete(h.clients, eventID)
	}
}

// Watchers returns the number of connections watching eventID
func (h *WSHub) Watchers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[eventID])
}

// SendSnapshot loads the counts of eventID and sends them to a single
// registered connection. Publishes to that connection wait until the
// snapshot is written, so a newer update is never overtaken by an older
// snapshot.
func (h *WSHub) SendSnapshot(eventID string, conn *websocket.Conn, load func() (models.RSVPCounts, error)) error {
	h.mu.RLock()
	client, ok := h.clients[eventID][conn]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("connection is not watching event %s", eventID)
	}

	client.mu.Lock()
	counts, err := load()
	if err != nil {
		client.mu.Unlock()
		return fmt.Errorf("failed to load counts: %w", err)
	}
	data, err := countsMessage(eventID, counts)
	if err == nil {
		err = client.writeLocked(data)
	}
	client.mu.Unlock()

	if err != nil {
		h.Unregister(eventID, conn)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// PublishCounts sends the counts of eventID to every watcher. Connections
// that fail to receive are dropped.
func (h *WSHub) PublishCounts(eventID string, counts models.RSVPCounts) {
	h.mu.RLock()
	watchers := make([]*wsClient, 0, len(h.clients[eventID]))
	for _, c := range h.clients[eventID] {
		watchers = append(watchers, c)
	}
	h.mu.RUnlock()
	if len(watchers) == 0 {
		return
	}

	data, err := countsMessage(eventID, counts)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("Failed to encode live update")
		return
	}
	for _, c := range watchers {
		if err := c.write(data); err != nil {
			log.Warn().Err(err).Str("event_id", eventID).Msg("Failed to send live update")
			h.Unregister(eventID, c.conn)
		}
	}
}

func countsMessage(eventID string, counts models.RSVPCounts) ([]byte, error) {
	data, err := json.Marshal(WSMessage{Type: MessageTypeRSVPCounts, EventID: eventID, Counts: &counts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

var _ CountsPublisher = (*WSHub)(nil)
