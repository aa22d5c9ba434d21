package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"drowsiness-detector-go/internal/detector"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

type wsClient struct {
	conn     *websocket.Conn
	clientID string
	send     chan Message
	once     sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub рассылает оповещения подключенным WebSocket клиентам (визуальное оповещение)
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*wsClient
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

// NewHub создает новый хаб
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*wsClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// ServeWS подключает нового клиента
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("Ошибка upgrade WebSocket соединения: %v", err)
		return
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	client := &wsClient{
		conn:     conn,
		clientID: clientID,
		send:     make(chan Message, sendBuffer),
	}

	h.mu.Lock()
	if old, ok := h.clients[clientID]; ok {
		old.close()
	}
	h.clients[clientID] = client
	h.mu.Unlock()

	h.logger.Infof("WebSocket клиент подключен: %s", clientID)

	client.send <- Message{
		Type:      TypeWelcome,
		ClientID:  clientID,
		Timestamp: nowUnix(),
		Payload: map[string]interface{}{
			"message": "Connected to Drowsiness Detection Server",
			"version": "1.0",
		},
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	if current, ok := h.clients[client.clientID]; ok && current == client {
		delete(h.clients, client.clientID)
	}
	h.mu.Unlock()
	client.close()
}

// readPump читает сообщения клиента до отключения
func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
		h.logger.Infof("WebSocket клиент отключен: %s", client.clientID)
	}()

	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warnf("Ошибка WebSocket клиента %s: %v", client.clientID, err)
			}
			return
		}

		switch msg.Type {
		case TypePing:
			h.deliver(client, Message{Type: TypePong, ClientID: client.clientID, Timestamp: nowUnix()})
		default:
			h.logger.Debugf("Неизвестный тип сообщения от %s: %s", client.clientID, msg.Type)
		}
	}
}

// writePump отправляет сообщения клиенту и поддерживает соединение ping-ами
func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver кладет сообщение в очередь клиента; медленный клиент отключается
func (h *Hub) deliver(client *wsClient, msg Message) (ok bool) {
	defer func() {
		// очередь уже закрыта
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case client.send <- msg:
		return true
	default:
		h.logger.Warnf("Очередь WebSocket клиента %s переполнена, отключаем", client.clientID)
		go h.unregister(client)
		return false
	}
}

// Broadcast рассылает сообщение всем клиентам
func (h *Hub) Broadcast(msg Message) int {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if h.deliver(c, msg) {
			delivered++
		}
	}
	return delivered
}

// ClientCount количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close отключает всех клиентов
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}

func (h *Hub) AlertRaised(_ context.Context, sessionID string, event detector.AlertEvent) error {
	n := h.Broadcast(NewAlertMessage(sessionID, event))
	h.logger.Debugf("Оповещение %s отправлено %d WebSocket клиентам", event.ID, n)
	return nil
}

func (h *Hub) AlertEnded(_ context.Context, sessionID string, ended detector.AlertEnded) error {
	h.Broadcast(NewAlertEndedMessage(sessionID, ended))
	return nil
}
