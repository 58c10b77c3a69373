package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = 2 * pingPeriod
)

// Hub keeps the websocket connections of this instance and fans out events
// received from the bus.
type Hub struct {
	// connections maps a user id to the user's open connections keyed by
	// connection id. An entry is removed once its last connection closes.
	connections map[string]map[string]chan Event

	// Adding or removing a connection takes the write lock, delivering an
	// event takes the read lock.
	mu sync.RWMutex

	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHub(allowedOrigin string, log *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[string]chan Event),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		log: log,
	}
}

// AddConnection registers a new connection for userID. The returned channel
// is closed once ctx is done.
func (h *Hub) AddConnection(ctx context.Context, userID string) (<-chan Event, string) {
	connID := uuid.New().String()
	ch := make(chan Event, 16)

	h.mu.Lock()
	if _, ok := h.connections[userID]; !ok {
		h.connections[userID] = make(map[string]chan Event)
	}
	h.connections[userID][connID] = ch
	h.mu.Unlock()

	go h.cleanUp(ctx, connID, userID)

	return ch, connID
}

func (h *Hub) cleanUp(ctx context.Context, connID, userID string) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.connections[userID][connID]; ok {
		close(ch)
		delete(h.connections[userID], connID)
	}
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
	}
}

func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.connections {
		count += len(conns)
	}
	return count
}

// Dispatch delivers ev to the connections its channel addresses. Slow
// connections whose buffer is full miss the event.
func (h *Hub) Dispatch(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch {
	case ev.Channel == ChannelPosts:
		for userID, conns := range h.connections {
			h.send(userID, conns, ev)
		}
	case strings.HasPrefix(ev.Channel, "user-"):
		userID := strings.TrimPrefix(ev.Channel, "user-")
		if conns, ok := h.connections[userID]; ok {
			h.send(userID, conns, ev)
		}
	default:
		h.log.Debug("event for unknown channel dropped", zap.String("channel", ev.Channel))
	}
}

func (h *Hub) send(userID string, conns map[string]chan Event, ev Event) {
	for connID, ch := range conns {
		select {
		case ch <- ev:
		default:
			h.log.Debug("connection buffer full, event dropped",
				zap.String("user", userID),
				zap.String("conn", connID),
				zap.String("event", ev.Name),
			)
		}
	}
}

func (h *Hub) Run(ctx context.Context, client *redis.Client, channel string) {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	h.log.Info("realtime hub subscribed", zap.String("channel", channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				h.log.Warn("realtime subscription closed")
				return
			}
			h.handlePayload([]byte(msg.Payload))
		}
	}
}

func (h *Hub) handlePayload(payload []byte) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		h.log.Warn("malformed event on bus", zap.Error(err))
		return
	}
	h.Dispatch(ev)
}

// ServeWS upgrades the request and streams userID's events until either side
// goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, _ := h.AddConnection(ctx, userID)

	// clients only send control frames; reading is needed to process them
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
