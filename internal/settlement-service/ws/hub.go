package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
)

const writeWait = 5 * time.Second

// client serializa as escritas: gorilla não aceita writers concorrentes
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub entrega mudanças de saldo aos clientes inscritos no userId
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// userID -> set of clients
	subs map[string]map[*client]struct{}
}

// NewHub cria o hub com a política de origem informada
func NewHub(allowOrigin func(r *http.Request) bool, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS mantém a conexão: subscribe/unsubscribe e ping/pong.
// A conexão só acompanha o usuário autenticado no contexto (ver WithUser).
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.UserID != "" && msg.UserID != userID {
				_ = c.write(map[string]string{"type": "error", "error": "forbidden"})
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[userID]; !ok {
				h.subs[userID] = make(map[*client]struct{})
			}
			h.subs[userID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.remove(userID, c)
		case "ping":
			_ = c.write(map[string]string{"type": "pong"})
		}
	}

	h.mu.Lock()
	for userID, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, userID)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, userID)
		}
	}
}

// Subscribers retorna quantos clientes acompanham o saldo do usuário
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Broadcast envia a mudança de saldo para os clientes do usuário
func (h *Hub) Broadcast(e events.BalanceChanged) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[e.UserID]))
	for c := range h.subs[e.UserID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	msg := struct {
		Type string `json:"type"`
		events.BalanceChanged
	}{Type: "balance", BalanceChanged: e}

	for _, c := range targets {
		if err := c.write(msg); err != nil {
			h.log.Debug("ws write failed", zap.String("user_id", e.UserID), zap.Error(err))
		}
	}
}
