package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/auth"
	"github.com/relaydesk/live-chat/internal/config"
	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/events"
	"github.com/relaydesk/live-chat/internal/observability"
)

// TokenParser validates agent access tokens presented on the upgrade.
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// Hub upgrades websocket connections and tracks live clients.
type Hub struct {
	dispatcher events.Dispatcher
	tokens     TokenParser
	logger     *zap.Logger
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

// NewHub builds a hub. With a nil tokens parser every client is anonymous.
func NewHub(dispatcher events.Dispatcher, tokens TokenParser, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		dispatcher: dispatcher,
		tokens:     tokens,
		logger:     logger.With(zap.String("component", "realtime_hub")),
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]*Client),
	}
}

// ServeHTTP upgrades the request and blocks until the connection ends. A
// bearer token, in the Authorization header or the access_token query
// parameter, identifies agents; a token that does not verify is refused.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	role := domain.RoleCustomer
	if token := bearerToken(r); token != "" {
		if h.tokens == nil {
			http.Error(w, "token authentication not configured", http.StatusUnauthorized)
			return
		}
		claims, err := h.tokens.ParseToken(token)
		if err != nil {
			h.logger.Debug("rejected feed token", zap.Error(err))
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		role = claims.Role
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}
	client := newClient(conn, h, role)

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	h.metrics.FeedClientConnected(1)

	client.Run(context.Background())
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()
	if ok {
		h.metrics.FeedClientConnected(-1)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}
}

// NewServer builds the standalone listener for the change feed.
func NewServer(cfg config.RealtimeConfig, hub *Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, hub)
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
