package realtime

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"vagabond/internal/domain"
	"vagabond/internal/events"
	"vagabond/internal/utils"

	"github.com/gorilla/websocket"
)

const (
	MessageOnlineUsers    = "online_users"
	MessageBookingCreated = "booking_created"
	MessageBookingUpdated = "booking_updated"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Registry tracks who is online. Connect and Disconnect bracket every session.
type Registry interface {
	Connect(c *Client)
	Disconnect(c *Client)
	Online() []string
}

// Client is one websocket session.
type Client struct {
	UserID string
	Role   string
	send   chan []byte
}

func NewClient(userID, role string) *Client {
	return &Client{UserID: userID, Role: role, send: make(chan []byte, sendBuffer)}
}

func (c *Client) admin() bool { return c.Role == domain.RoleAdmin }

// Hub is the in-process Registry. The newest session of a user replaces the
// previous one in the online list.
type Hub struct {
	mu       sync.RWMutex
	users    map[string]*Client
	admins   map[*Client]struct{}
	upgrader websocket.Upgrader
}

func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		users:  map[string]*Client{},
		admins: map[*Client]struct{}{},
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(strings.TrimRight(o, "/"), origin) {
				return true
			}
		}
		return false
	}
}

func (h *Hub) Connect(c *Client) {
	h.mu.Lock()
	if c.UserID != "" {
		h.users[c.UserID] = c
	}
	if c.admin() {
		h.admins[c] = struct{}{}
	}
	h.mu.Unlock()
	h.broadcastOnline()
}

func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	if cur, ok := h.users[c.UserID]; ok && cur == c {
		delete(h.users, c.UserID)
	}
	delete(h.admins, c)
	h.mu.Unlock()
	h.broadcastOnline()
}

func (h *Hub) Online() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.users))
	for id := range h.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// BroadcastBooking tells connected admins about a committed booking change.
func (h *Hub) BroadcastBooking(ev events.BookingEvent) {
	msgType := MessageBookingUpdated
	if ev.Type == events.TypeBookingCreated {
		msgType = MessageBookingCreated
	}
	h.toAdmins(Message{Type: msgType, Data: ev})
}

func (h *Hub) broadcastOnline() {
	h.toAdmins(Message{Type: MessageOnlineUsers, Data: h.Online()})
}

func (h *Hub) toAdmins(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		utils.LogError("", "realtime", "broadcast", err, "marshal "+msg.Type)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.admins {
		select {
		case c.send <- b:
		default:
			// slow reader; it will catch up on the next online_users
		}
	}
}

// ServeWS upgrades the request and runs the session until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID, role string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := NewClient(userID, role)
	h.Connect(c)
	utils.LogEvent("", "realtime", "connect", "user="+userID+" role="+role)

	done := make(chan struct{})
	go h.writeLoop(conn, c, done)
	h.readLoop(conn)

	close(done)
	h.Disconnect(c)
	utils.LogEvent("", "realtime", "disconnect", "user="+userID)
	return nil
}

// readLoop only drains control frames; clients do not send commands.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *Client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case b := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
