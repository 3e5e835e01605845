package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/rs/zerolog/log"
)

// allItems is the subscription key of connections that did not pick an item.
const allItems = ""

// ConnectionManager fans auction events out to WebSocket clients. It
// implements events.Sink: Emit only queues, delivery happens on Start.
type ConnectionManager struct {
	// Connection pools keyed by the item a client subscribed to
	subscriptions map[string]map[*Connection]bool
	mu            sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan events.Event
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	Name    string
	ItemID  string // empty means every item
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	pingMu   sync.Mutex
	lastPing time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	BroadcastBuffer int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		BroadcastBuffer: 1000,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	if config.BroadcastBuffer <= 0 {
		config.BroadcastBuffer = 1000
	}
	return &ConnectionManager{
		subscriptions: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan events.Event, config.BroadcastBuffer),
	}
}

// Start delivers queued events until ctx is cancelled
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			cm.closeAll()
			log.Info().Msg("connection manager shutting down")
			return
		case event := <-cm.broadcastCh:
			cm.handleBroadcast(event)
		}
	}
}

// Emit queues an event for every interested connection. It never blocks; when
// the queue is full the event is dropped.
func (cm *ConnectionManager) Emit(event events.Event) {
	select {
	case cm.broadcastCh <- event:
	default:
		log.Warn().
			Str("event_type", string(event.Type)).
			Str("item_id", event.ItemID).
			Msg("broadcast channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, name, itemID string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := time.Now()
	connection := &Connection{
		ID:          uuid.New().String(),
		Name:        name,
		ItemID:      itemID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: now,
		lastPing:    now,
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("name", name).
		Str("item_id", itemID).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.subscriptions[conn.ItemID] == nil {
		cm.subscriptions[conn.ItemID] = make(map[*Connection]bool)
	}
	cm.subscriptions[conn.ItemID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("item_id", conn.ItemID).
		Int("total_connections", len(cm.subscriptions[conn.ItemID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, ok := cm.subscriptions[conn.ItemID]
	if !ok {
		return
	}
	if _, ok := connections[conn]; !ok {
		return
	}

	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.subscriptions, conn.ItemID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("item_id", conn.ItemID).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) handleBroadcast(event events.Event) {
	data, err := event.Marshal()
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	delivered, slow := cm.send(event, data)

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		if conn.Conn != nil {
			conn.Conn.Close()
		}
	}

	if delivered > 0 && event.Type != events.EventTypeCountdown {
		log.Debug().
			Str("event_type", string(event.Type)).
			Str("item_id", event.ItemID).
			Int("connections", delivered).
			Msg("event broadcasted")
	}
}

// send queues data on every connection that should see event while holding
// the read lock, so unregisterConnection cannot close a Send channel
// mid-send. Configuration events carry no item and reach everyone.
// Connections whose buffer is full are returned for the caller to drop once
// the lock is released.
func (cm *ConnectionManager) send(event events.Event, data []byte) (int, []*Connection) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	var delivered int
	var slow []*Connection
	for itemID, connections := range cm.subscriptions {
		if itemID != allItems && event.ItemID != "" && itemID != event.ItemID {
			continue
		}
		for conn := range connections {
			select {
			case conn.Send <- data:
				delivered++
			default:
				slow = append(slow, conn)
			}
		}
	}
	return delivered, slow
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.subscriptions {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// Stats summarizes the active connections
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	Subscriptions    map[string]int `json:"subscriptions"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := Stats{Subscriptions: make(map[string]int, len(cm.subscriptions))}
	for itemID, connections := range cm.subscriptions {
		key := itemID
		if key == allItems {
			key = "*"
		}
		stats.Subscriptions[key] = len(connections)
		stats.TotalConnections += len(connections)
	}
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.touch()
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.touch()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		// clients only listen; bids go through the HTTP API
		log.Debug().
			Str("connection_id", c.ID).
			Int("bytes", len(message)).
			Msg("ignoring client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

func (c *Connection) touch() {
	c.pingMu.Lock()
	c.lastPing = time.Now()
	c.pingMu.Unlock()
}
