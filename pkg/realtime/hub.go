// Пакет realtime рассылает события мутаций подключенным по WebSocket клиентам,
// чтобы другие участники доски видели изменения без перезапроса
package realtime

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Таймаут записи сообщения клиенту
	writeWait = 10 * time.Second

	// Срок ожидания pong от клиента
	pongWait = 60 * time.Second

	// Период пингов, должен быть меньше pongWait
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// проверка Origin остается за CORS-слоем API
	CheckOrigin: func(r *http.Request) bool { return true },
}

// message — сообщение, адресованное подписчикам одной доски
type message struct {
	boardID int
	data    []byte
}

// Client представляет одно WebSocket-подключение, подписанное на доску
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	boardID int
}

// readPump вычитывает соединение только ради обработки закрытия и pong
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}
	}
}

// writePump отправляет клиенту сообщения из канала send и периодические пинги
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub хранит активных клиентов по доскам и рассылает им сообщения
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run запускает основной цикл хаба, вызывается в отдельной горутине
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case m := <-h.broadcast:
			for c := range h.clients {
				if c.boardID != m.boardID {
					continue
				}
				select {
				case c.send <- m.data:
				default:
					// клиент не успевает читать — отключаем
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Notify рассылает данные всем подписчикам доски, не блокируя вызывающего
func (h *Hub) Notify(boardID int, data []byte) {
	select {
	case h.broadcast <- message{boardID: boardID, data: data}:
	default:
		log.Printf("realtime broadcast buffer full, dropping event for board %d", boardID)
	}
}

// ServeWS апгрейдит HTTP-запрос до WebSocket и регистрирует клиента
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, boardID int) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	c := &Client{hub: h, conn: conn, send: make(chan []byte, 16), boardID: boardID}
	h.register <- c
	go c.writePump()
	go c.readPump()
}
