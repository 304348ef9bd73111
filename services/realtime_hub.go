package services

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Conn is the part of a websocket connection the hub uses.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type WSClient struct {
	SchoolID uuid.UUID
	Conn     Conn

	writeMu sync.Mutex
}

func (c *WSClient) write(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, msg)
}

// RealtimeHub groups websocket clients by school.
type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*WSClient]struct{}
	log     logrus.FieldLogger
}

func NewRealtimeHub(log logrus.FieldLogger) *RealtimeHub {
	return &RealtimeHub{clients: make(map[uuid.UUID]map[*WSClient]struct{}), log: log}
}

func (h *RealtimeHub) Register(c *WSClient) {
	h.mu.Lock()
	if h.clients[c.SchoolID] == nil {
		h.clients[c.SchoolID] = make(map[*WSClient]struct{})
	}
	h.clients[c.SchoolID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.SchoolID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.SchoolID)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

// Count returns the number of clients subscribed to a school.
func (h *RealtimeHub) Count(schoolID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[schoolID])
}

// Broadcast sends payload as JSON to every client of the school.
func (h *RealtimeHub) Broadcast(schoolID uuid.UUID, payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Error("encoding realtime payload")
		return
	}
	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients[schoolID]))
	for c := range h.clients[schoolID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(msg); err != nil {
			h.log.WithError(err).WithField("school_id", schoolID).Debug("dropping realtime client")
			h.Unregister(c)
		}
	}
}
