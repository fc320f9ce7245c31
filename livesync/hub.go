package livesync

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
	"bitbucket.org/ginoconcreto/estoque_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub pushes the merged inventory/history view to connected dashboard
// sessions. Role and selected usina live on the session, not in the pushed
// payload, so a merge can never flip another session's login state.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	// session-local, set at connect time and never merged over
	usina models.Usina
	role  models.UserRole
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// statePayload is what each session receives; only store-derived fields.
type statePayload struct {
	Inventory map[models.Usina]models.StockSnapshot   `json:"inventory"`
	History   map[models.Usina][]*models.HistoryEntry `json:"history"`
	Estimates map[models.Usina]models.Estimates       `json:"estimates"`
}

// BroadcastState fans the merged view out to every session.
func (h *Hub) BroadcastState(state models.AppState) {
	estimates := make(map[models.Usina]models.Estimates, len(state.Inventory))
	for usina, snapshot := range state.Inventory {
		estimates[usina] = models.CalculateEstimates(snapshot)
	}
	payload, err := json.Marshal(statePayload{
		Inventory: state.Inventory,
		History:   state.History,
		Estimates: estimates,
	})
	if err != nil {
		config.LogError(config.GetLogger(), "hub.go", "BroadcastState", "json.Marshal", nil, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Buffer full: drop this frame for the slow session. The next
			// broadcast carries the full view again.
		}
	}
}

// ServeWS upgrades the request and registers the session. Role and usina
// come from the authenticated request context.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		config.LogError(config.GetLogger(), "hub.go", "ServeWS", "Upgrade", nil, err)
		return
	}

	cl := &client{
		conn:  conn,
		send:  make(chan []byte, 8),
		usina: models.Usina(c.Query("usina")),
		role:  models.UserRole(c.GetString("role")),
	}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	go cl.writePump()
	go cl.readPump(h)
}

func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}

func (cl *client) readPump(h *Hub) {
	defer func() {
		h.drop(cl)
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(4 * 1024)
	cl.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		// Sessions only listen; any inbound frame just keeps the connection alive.
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (cl *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
