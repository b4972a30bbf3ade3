// Package hub connects browser viewers over websockets. Viewers report tab
// visibility and viewport intersection; the hub folds the reports into a
// single visibility source for the scheduler and pushes rotation events back.
package hub

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/listener"
	"github.com/genricoloni/backdrop/internal/metrics"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Message types for websocket communication
const (
	MessageTypeRotation     = "rotation"
	MessageTypeState        = "state"
	MessageTypeVisibility   = "visibility"
	MessageTypeIntersection = "intersection"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

const (
	// SourceName identifies viewer reports in visibility changes
	SourceName = "viewers"

	// DefaultDebounce absorbs tab switching and scroll jitter
	DefaultDebounce = 250 * time.Millisecond
)

// ErrClosed is returned when a viewer connects after Stop
var ErrClosed = errors.New("hub closed")

// Message represents a websocket message
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type visibilityData struct {
	Hidden bool `json:"hidden"`
}

type intersectionData struct {
	Intersecting bool `json:"intersecting"`
}

// Hub maintains the connected viewers
type Hub struct {
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	debouncer *listener.Debouncer
	listeners listener.Set[domain.VisibilityChange]
	seq       atomic.Uint64

	mu      sync.RWMutex
	clients map[*Client]bool
	tracker *tracker
	closed  bool

	// Last answers handed to listeners. Held while emitting so flushes and
	// Subscribe replays reach listeners in order.
	emitMu       sync.Mutex
	pageVisible  bool
	intersecting bool
}

// NewHub creates a new Hub
func NewHub(logger *zap.Logger, clock clockwork.Clock) *Hub {
	h := &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
		},
		clients:      make(map[*Client]bool),
		tracker:      newTracker(),
		pageVisible:  true,
		intersecting: true,
	}
	h.debouncer = listener.NewDebouncer(clock, DefaultDebounce, h.flush)
	return h
}

// Subscribe attaches fn to aggregated viewer visibility changes. Hidden or
// off-screen viewers are reported to fn before Subscribe returns.
func (h *Hub) Subscribe(fn func(domain.VisibilityChange)) *listener.Subscription {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	sub := h.listeners.Add(fn)
	if !h.pageVisible {
		fn(domain.VisibilityChange{Source: SourceName, Kind: domain.VisibilityPage, Visible: false})
	}
	if !h.intersecting {
		fn(domain.VisibilityChange{Source: SourceName, Kind: domain.VisibilityIntersection, Visible: false})
	}
	return sub
}

// ServeWS upgrades the request and registers the viewer. When greeting is
// not nil it is the first message the viewer receives.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, greeting *Message) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return ErrClosed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		return err
	}

	client := newClient(h, conn)
	if !h.register(client) {
		_ = conn.Close()
		return ErrClosed
	}
	if greeting != nil {
		client.enqueue(*greeting)
	}
	client.start()
	return nil
}

// Start is a lifecycle no-op kept for symmetry with Stop
func (h *Hub) Start(ctx context.Context) error {
	h.logger.Info("Viewer hub started")
	return nil
}

// Stop disconnects every viewer and detaches all listeners
func (h *Hub) Stop(ctx context.Context) error {
	h.debouncer.Stop()

	h.mu.Lock()
	h.closed = true
	clients := h.sortedClientsLocked()
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
		h.tracker.leave(client.id)
	}
	h.mu.Unlock()

	h.listeners.Reset()
	metrics.ViewerConnections.Set(0)

	h.logger.Info("Viewer hub stopped", zap.Int("clientsClosed", len(clients)))
	return nil
}

// Forward broadcasts rotation events until the channel closes
func (h *Hub) Forward(events <-chan domain.RotationEvent) {
	for ev := range events {
		h.Broadcast(Message{Type: MessageTypeRotation, Data: ev})
	}
}

// Broadcast sends msg to every viewer in registration order. Viewers whose
// buffer is full are disconnected.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode broadcast", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for _, client := range h.sortedClientsLocked() {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		h.logger.Warn("Viewer too slow, disconnecting", zap.String("viewer", client.id))
		h.removeLocked(client)
	}
	if len(slow) > 0 {
		h.debouncer.Trigger()
	}
}

// ClientCount returns the number of connected viewers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = true
	h.tracker.join(c.id)
	count := len(h.clients)
	h.mu.Unlock()

	metrics.ViewerConnections.Set(float64(count))
	h.logger.Info("Viewer connected", zap.String("viewer", c.id), zap.Int("totalClients", count))
	h.debouncer.Trigger()
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	h.removeLocked(c)
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Viewer disconnected", zap.String("viewer", c.id), zap.Int("totalClients", count))
	h.debouncer.Trigger()
}

func (h *Hub) removeLocked(c *Client) {
	close(c.send)
	delete(h.clients, c)
	h.tracker.leave(c.id)
	metrics.ViewerConnections.Set(float64(len(h.clients)))
}

// handleReport applies one viewer report
func (h *Hub) handleReport(c *Client, msg inbound) {
	switch msg.Type {
	case MessageTypeVisibility:
		var data visibilityData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			h.logger.Debug("Invalid visibility report", zap.String("viewer", c.id), zap.Error(err))
			return
		}
		h.mu.Lock()
		h.tracker.setHidden(c.id, data.Hidden)
		h.mu.Unlock()

	case MessageTypeIntersection:
		var data intersectionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			h.logger.Debug("Invalid intersection report", zap.String("viewer", c.id), zap.Error(err))
			return
		}
		h.mu.Lock()
		h.tracker.setIntersecting(c.id, data.Intersecting)
		h.mu.Unlock()

	default:
		h.logger.Debug("Unknown viewer message", zap.String("viewer", c.id), zap.String("type", msg.Type))
		return
	}

	h.debouncer.Trigger()
}

// flush hands aggregate edges to listeners once reports settle
func (h *Hub) flush() {
	// The aggregate is read under emitMu so an older flush cannot emit last
	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.mu.RLock()
	pageVisible, intersecting := h.tracker.aggregate()
	h.mu.RUnlock()

	var changes []domain.VisibilityChange
	if pageVisible != h.pageVisible {
		h.pageVisible = pageVisible
		changes = append(changes, domain.VisibilityChange{Source: SourceName, Kind: domain.VisibilityPage, Visible: pageVisible})
	}
	if intersecting != h.intersecting {
		h.intersecting = intersecting
		changes = append(changes, domain.VisibilityChange{Source: SourceName, Kind: domain.VisibilityIntersection, Visible: intersecting})
	}

	for _, change := range changes {
		h.logger.Debug("Viewer visibility changed",
			zap.String("kind", string(change.Kind)),
			zap.Bool("visible", change.Visible))
		h.listeners.Emit(change)
	}
}

func (h *Hub) sortedClientsLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].seq < clients[j].seq
	})
	return clients
}
