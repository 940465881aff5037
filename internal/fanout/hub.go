// Package fanout pushes newly stored records to live subscriber connections,
// grouped by user id.
package fanout

import (
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/gorilla/websocket"
	"github.com/ukydev/road-monitor/internal/models"
)

// defaultSendBuffer is how many pending records a subscriber may lag behind
// before it is dropped.
const defaultSendBuffer = 64

// Publisher is the delivery contract the ingest path depends on. Publish is
// best-effort and never blocks the caller.
type Publisher interface {
	Publish(userID int64, record models.ProcessedAgentDataRecord)
}

// Conn is the connection surface the hub writes to. *websocket.Conn
// implements it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Subscriber is one live connection registered for a user id. A dedicated
// writer goroutine drains its send buffer, which keeps per-user delivery in
// publish order without letting one slow connection stall the others.
type Subscriber struct {
	conn Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// trySend queues a message without blocking. It reports false when the
// buffer is full; sends to an already closed subscriber are silently
// discarded.
func (s *Subscriber) trySend(message []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.send <- message:
		return true
	default:
		return false
	}
}

func (s *Subscriber) writeLoop() {
	for message := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.WithError(err).Debug("Subscriber write failed")
			// Closing the connection makes the handler's read loop
			// return, which unsubscribes this subscriber.
			s.conn.Close()
			return
		}
	}
}

// Hub maintains the user id to subscriber mapping. It owns no storage lock;
// a slow store write never blocks delivery and vice versa.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int64]map[*Subscriber]struct{}
	sendBuffer  int
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[int64]map[*Subscriber]struct{}),
		sendBuffer:  defaultSendBuffer,
	}
}

// Subscribe registers a connection for the given user id and starts its
// writer. The returned subscriber is the handle for Unsubscribe.
func (h *Hub) Subscribe(userID int64, conn Conn) *Subscriber {
	s := &Subscriber{
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}

	h.mu.Lock()
	set, ok := h.subscribers[userID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subscribers[userID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	go s.writeLoop()

	log.WithField("user_id", userID).Debug("Subscriber registered")
	return s
}

// Unsubscribe removes a subscriber from the user's set. It is idempotent and
// a no-op for subscribers that were never registered. The mapping entry is
// gone before Unsubscribe returns, so no later Publish delivers to the
// handle.
func (h *Hub) Unsubscribe(userID int64, s *Subscriber) {
	h.mu.Lock()
	if set, ok := h.subscribers[userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subscribers, userID)
		}
	}
	h.mu.Unlock()

	s.close()
}

// Publish delivers a record to every connection currently subscribed to the
// user id. Delivery is best-effort: a subscriber whose buffer is full is
// dropped and unsubscribed, and a failure on one connection never affects
// the others or the caller.
func (h *Hub) Publish(userID int64, record models.ProcessedAgentDataRecord) {
	message, err := json.Marshal(record)
	if err != nil {
		log.WithError(err).Error("Failed to marshal record for delivery")
		return
	}

	h.mu.Lock()
	set := h.subscribers[userID]
	targets := make([]*Subscriber, 0, len(set))
	for s := range set {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		if !s.trySend(message) {
			log.WithFields(log.Fields{
				"user_id":   userID,
				"record_id": record.ID,
			}).Warn("Dropping slow subscriber")
			h.Unsubscribe(userID, s)
			s.conn.Close()
		}
	}
}

// SubscriberCount reports how many connections are registered for a user id.
func (h *Hub) SubscriberCount(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[userID])
}
