package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	apperrors "github.com/Dashboard4-0/MS5-App-sub003/internal/errors"
	"github.com/Dashboard4-0/MS5-App-sub003/internal/metrics"
)

// connection is the registry entry for one live transport session. The
// *websocket.Conn handle is owned by the transport layer; the hub only holds
// a reference for identity and for handing messages to the writer.
type connection struct {
	id        uuid.UUID
	userID    string
	createdAt time.Time
	writer    *clientWriter
	topics    map[Topic]struct{}
}

// subscriber is one element of a topic snapshot: enough to enqueue a message
// and to prune the connection if the enqueue fails.
type subscriber struct {
	conn   *websocket.Conn
	id     uuid.UUID
	writer *clientWriter
}

// Stats is a point-in-time view over the registry and the subscription
// index, taken under one lock so the counts are mutually consistent.
type Stats struct {
	TotalConnections    int            `json:"total_connections"`
	TotalSubscriptions  int            `json:"total_subscriptions"`
	SubscriptionsByType map[string]int `json:"subscriptions_by_type"`
}

// Hub is the connection registry and topic subscription index. All state is
// guarded by one RWMutex; the lock is held for map mutations and snapshot
// copies only, never across a WebSocket write.
type Hub struct {
	mu     sync.RWMutex
	clock  clockwork.Clock
	conns  map[*websocket.Conn]*connection
	topics map[Topic]map[*websocket.Conn]*connection
}

func NewHub(clock clockwork.Clock) *Hub {
	return &Hub{
		clock:  clock,
		conns:  make(map[*websocket.Conn]*connection),
		topics: make(map[Topic]map[*websocket.Conn]*connection),
	}
}

// AddConnection registers a live connection and starts its writer. It fails
// only if the handle is already registered.
func (h *Hub) AddConnection(conn *websocket.Conn, userID string) (uuid.UUID, error) {
	h.mu.Lock()
	if _, exists := h.conns[conn]; exists {
		h.mu.Unlock()
		return uuid.Nil, apperrors.ConflictError("connection already registered")
	}

	c := &connection{
		id:        uuid.New(),
		userID:    userID,
		createdAt: h.clock.Now(),
		writer:    newClientWriter(conn, h.clock),
		topics:    make(map[Topic]struct{}),
	}
	h.conns[conn] = c
	total := len(h.conns)
	h.mu.Unlock()

	metrics.ActiveConnections.Set(float64(total))
	slog.Debug("Connection registered", "connection_id", c.id.String(), "user_id", userID, "total_connections", total)
	return c.id, nil
}

// RemoveConnection unregisters a connection and prunes every subscription
// edge it holds. Removing an unknown or already-removed handle is a no-op.
func (h *Hub) RemoveConnection(conn *websocket.Conn) {
	h.mu.Lock()
	c, exists := h.conns[conn]
	if !exists {
		h.mu.Unlock()
		return
	}
	delete(h.conns, conn)

	for topic := range c.topics {
		if bucket, ok := h.topics[topic]; ok {
			delete(bucket, conn)
			if len(bucket) == 0 {
				delete(h.topics, topic)
			}
		}
	}

	totalConns := len(h.conns)
	totalSubs := h.subscriptionCountLocked()
	h.mu.Unlock()

	metrics.ActiveConnections.Set(float64(totalConns))
	metrics.ActiveSubscriptions.Set(float64(totalSubs))

	// The writer stop blocks on its goroutine, so it runs outside the lock.
	c.writer.stop()
	slog.Debug("Connection removed", "connection_id", c.id.String(), "total_connections", totalConns)
}

// Subscribe adds the connection to the bucket for (category, target),
// creating the bucket on first use. Re-subscribing and subscribing from an
// unknown connection are no-ops.
func (h *Hub) Subscribe(conn *websocket.Conn, category Category, target string) {
	topic := Topic{Category: category, Target: target}

	h.mu.Lock()
	c, exists := h.conns[conn]
	if !exists {
		h.mu.Unlock()
		return
	}
	if _, already := c.topics[topic]; already {
		h.mu.Unlock()
		return
	}

	bucket, ok := h.topics[topic]
	if !ok {
		bucket = make(map[*websocket.Conn]*connection)
		h.topics[topic] = bucket
	}
	bucket[conn] = c
	c.topics[topic] = struct{}{}
	totalSubs := h.subscriptionCountLocked()
	h.mu.Unlock()

	metrics.ActiveSubscriptions.Set(float64(totalSubs))
	slog.Debug("Subscribed", "connection_id", c.id.String(), "topic", topic.String())
}

// Unsubscribe removes the membership edge and deletes the bucket when it
// becomes empty. Unknown memberships are a no-op.
func (h *Hub) Unsubscribe(conn *websocket.Conn, category Category, target string) {
	topic := Topic{Category: category, Target: target}

	h.mu.Lock()
	c, exists := h.conns[conn]
	if !exists {
		h.mu.Unlock()
		return
	}
	if _, member := c.topics[topic]; !member {
		h.mu.Unlock()
		return
	}

	delete(c.topics, topic)
	if bucket, ok := h.topics[topic]; ok {
		delete(bucket, conn)
		if len(bucket) == 0 {
			delete(h.topics, topic)
		}
	}
	totalSubs := h.subscriptionCountLocked()
	h.mu.Unlock()

	metrics.ActiveSubscriptions.Set(float64(totalSubs))
	slog.Debug("Unsubscribed", "connection_id", c.id.String(), "topic", topic.String())
}

// snapshot returns a copy of the current subscribers of a topic. The caller
// performs all sends on the copy without holding the hub lock.
func (h *Hub) snapshot(topic Topic) []subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	bucket, ok := h.topics[topic]
	if !ok {
		return nil
	}
	subs := make([]subscriber, 0, len(bucket))
	for conn, c := range bucket {
		subs = append(subs, subscriber{conn: conn, id: c.id, writer: c.writer})
	}
	return subs
}

// Send enqueues a message to one registered connection, used by the
// transport layer for acks, heartbeat responses, and error frames. Unknown
// handles report not-found.
func (h *Hub) Send(conn *websocket.Conn, msg []byte) error {
	h.mu.RLock()
	c, exists := h.conns[conn]
	h.mu.RUnlock()

	if !exists {
		return apperrors.NotFoundError("connection not registered")
	}
	c.writer.recordActivity()
	return c.writer.enqueue(msg)
}

// Stats returns a consistent snapshot of registry and index counts.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	byType := make(map[string]int)
	total := 0
	for topic, bucket := range h.topics {
		byType[string(topic.Category)] += len(bucket)
		total += len(bucket)
	}
	return Stats{
		TotalConnections:    len(h.conns),
		TotalSubscriptions:  total,
		SubscriptionsByType: byType,
	}
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// SubscriberCount returns the current size of one topic bucket.
func (h *Hub) SubscriberCount(category Category, target string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[Topic{Category: category, Target: target}])
}

// Stop gracefully closes every connection. Used during shutdown.
func (h *Hub) Stop(reason string) {
	h.mu.Lock()
	writers := make([]*clientWriter, 0, len(h.conns))
	for conn, c := range h.conns {
		writers = append(writers, c.writer)
		delete(h.conns, conn)
	}
	for topic := range h.topics {
		delete(h.topics, topic)
	}
	h.mu.Unlock()

	for _, w := range writers {
		w.stopGraceful(reason)
	}

	metrics.ActiveConnections.Set(0)
	metrics.ActiveSubscriptions.Set(0)
	slog.Info("Hub stopped", "disconnected_clients", len(writers))
}

// subscriptionCountLocked sums bucket sizes. Callers hold h.mu.
func (h *Hub) subscriptionCountLocked() int {
	total := 0
	for _, bucket := range h.topics {
		total += len(bucket)
	}
	return total
}
