package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Envelope é o quadro entregue aos clientes websocket
type Envelope struct {
	Event  string      `json:"event"`
	Data   interface{} `json:"data"`
	Origin string      `json:"origin,omitempty"`
}

// clientCommand é o que o cliente pode enviar: entrar/sair de salas
type clientCommand struct {
	Action         string `json:"action"`
	ConversationID int64  `json:"conversation_id"`
}

// Client é uma conexão websocket autenticada
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	actor models.Actor

	mu    sync.Mutex
	rooms map[string]bool
}

// Hub mantém as conexões ativas e as salas por conversa. Eventos de uma
// conversa vão para a sala; quando ninguém está na sala, caem no broadcast
// global para não se perderem.
type Hub struct {
	logger *logrus.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
}

// NewHub cria um hub vazio
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

// ConversationRoom padroniza o nome da sala de uma conversa
func ConversationRoom(conversationID int64) string {
	return fmt.Sprintf("conversation:%d", conversationID)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// A autenticação acontece antes do upgrade (token na query/header)
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve faz o upgrade da conexão e registra o cliente
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("error upgrading websocket: %w", err)
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 64),
		actor: actor,
		rooms: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	go client.writePump()
	go client.readPump()

	return nil
}

// Emit entrega o envelope para a sala da conversa; sem assinantes na sala,
// cai no broadcast global.
func (h *Hub) Emit(conversationID int64, ev Envelope) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).Error("Could not marshal realtime event")
		return
	}

	room := ConversationRoom(conversationID)

	h.mu.RLock()
	targets := make([]*Client, 0)
	if members, ok := h.rooms[room]; ok && len(members) > 0 {
		for c := range members {
			targets = append(targets, c)
		}
	} else {
		for c := range h.clients {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(payload)
	}
}

// Broadcast entrega o envelope para todos os clientes conectados
func (h *Hub) Broadcast(ev Envelope) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).Error("Could not marshal realtime event")
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(payload)
	}
}

// ClientCount retorna o número de conexões ativas
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(client.send)
}

func (h *Hub) join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true

	client.mu.Lock()
	client.rooms[room] = true
	client.mu.Unlock()
}

func (h *Hub) leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}

	client.mu.Lock()
	delete(client.rooms, room)
	client.mu.Unlock()
}

func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		// Cliente lento: derruba em vez de bloquear o hub
		c.hub.remove(c)
		c.conn.Close()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.ConversationID == 0 {
			continue
		}
		switch cmd.Action {
		case "join":
			c.hub.join(c, ConversationRoom(cmd.ConversationID))
		case "leave":
			c.hub.leave(c, ConversationRoom(cmd.ConversationID))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
