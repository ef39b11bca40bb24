package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lify-app/lify-backend/internal/broker"
	"github.com/lify-app/lify-backend/internal/middleware"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/service"
	"github.com/lify-app/lify-backend/internal/utils"
	"github.com/lify-app/lify-backend/pkg/apperr"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
)

const (
	maxSessionLifetime = 24 * time.Hour
	writeWait          = 10 * time.Second // Time allowed to write a message to the peer
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10 // 54 seconds
	maxMessageSize     = 64 * 1024
	sendBufferSize     = 64 // Queued room events per connection
)

// Inbound frame events
const (
	WSEventSend      = "message:send"
	WSEventDelivered = "message:delivered"
	WSEventRead      = "conversation:read"

	WSEventAck            = "ack"
	WSEventError          = "error"
	WSEventSessionExpired = "session:expired"
)

// WSFrame is the envelope of every frame in both directions
type WSFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type WSSendData struct {
	TempID    string             `json:"tempId"`
	To        uuid.UUID          `json:"to"`
	Content   *string            `json:"content"`
	MediaURL  *string            `json:"mediaUrl"`
	Type      models.MessageType `json:"type"`
	Duration  *int               `json:"duration"`
	ReplyToID *uuid.UUID         `json:"replyToId"`
}

type WSDeliveredData struct {
	MessageID uuid.UUID `json:"messageId"`
}

type WSReadData struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

type WSAck struct {
	TempID         string     `json:"tempId"`
	MessageID      *uuid.UUID `json:"messageId,omitempty"`
	ConversationID *uuid.UUID `json:"conversationId,omitempty"`
	IsRequest      bool       `json:"isRequest"`
	Status         string     `json:"status"` // "success" or "error"
	Error          string     `json:"error,omitempty"`
}

// outbound is a room event queued for one connection
type outbound struct {
	event string
	data  json.RawMessage
}

// Client is one WebSocket connection. A user may hold several.
type Client struct {
	conn        *websocket.Conn
	userID      uuid.UUID
	username    string
	connectedAt time.Time
	writeMu     sync.Mutex

	send      chan outbound
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, userID uuid.UUID, username string) *Client {
	return &Client{
		conn:        conn,
		userID:      userID,
		username:    username,
		connectedAt: time.Now(),
		send:        make(chan outbound, sendBufferSize),
	}
}

// enqueue hands an event to the client's writer without blocking
func (c *Client) enqueue(event string, data json.RawMessage) bool {
	select {
	case c.send <- outbound{event: event, data: data}:
		return true
	default:
		return false
	}
}

// close drops the connection, which ends the read loop and its cleanup
func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// writePump drains queued room events until done is closed
func (c *Client) writePump(done <-chan struct{}) {
	for {
		select {
		case msg := <-c.send:
			if err := c.writeFrame(msg.event, msg.data); err != nil {
				logger.Log.Debug("Hub: write failed",
					zap.String("user_id", c.userID.String()),
					zap.Error(err),
				)
				c.close()
				return
			}
		case <-done:
			return
		}
	}
}

func (c *Client) writeFrame(event string, data interface{}) error {
	frame := WSFrame{Event: event}
	switch v := data.(type) {
	case nil:
	case json.RawMessage:
		frame.Data = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		frame.Data = raw
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}

func (c *Client) writeControl(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

// Hub tracks the connected clients of this node, grouped by user room
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uuid.UUID]map[*Client]struct{})}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.userID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.userID] = room
	}
	room[client] = struct{}{}
}

func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.userID]
	if !ok {
		return false
	}
	if _, ok := room[client]; !ok {
		return false
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.userID)
	}
	return true
}

// Online reports how many connections userID has on this node
func (h *Hub) Online(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

func (h *Hub) clientsOf(userID uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[userID]
	out := make([]*Client, 0, len(room))
	for client := range room {
		out = append(out, client)
	}
	return out
}

// Deliver queues event on every local connection of its room and returns
// how many accepted it. A connection whose queue is full is dropped.
func (h *Hub) Deliver(event broker.Event) int {
	room, err := uuid.Parse(event.Room)
	if err != nil {
		logger.Log.Warn("Hub: event with invalid room",
			zap.String("event_id", event.ID),
			zap.String("room", event.Room),
		)
		return 0
	}

	delivered := 0
	for _, client := range h.clientsOf(room) {
		if !client.enqueue(event.Type, event.Payload) {
			logger.Log.Warn("Hub: dropping slow client",
				zap.String("user_id", client.userID.String()),
				zap.String("event", event.Type),
			)
			client.close()
			continue
		}
		delivered++
	}
	return delivered
}

// Run delivers broker events until ctx is done or the channel closes
func (h *Hub) Run(ctx context.Context, events <-chan broker.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				logger.Log.Warn("Hub: event stream closed")
				return
			}
			h.Deliver(event)
		}
	}
}

type WebSocketHandler struct {
	hub            *Hub
	messageService *service.MessageService
	sendLimiter    *middleware.RateLimiter
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler wires inbound frames to the message service. A nil
// sendLimiter disables rate limiting of message:send frames.
func NewWebSocketHandler(
	hub *Hub,
	messageService *service.MessageService,
	sendLimiter *middleware.RateLimiter,
	allowedOrigins []string,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		messageService: messageService,
		sendLimiter:    sendLimiter,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Native mobile clients send no Origin
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// GET /api/ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	claimsValue, exists := c.Get(middleware.ContextClaims)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	claims, ok := claimsValue.(*utils.Claims)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid claims format"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("Failed to upgrade connection",
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		return
	}

	client := newClient(conn, claims.UserID, claims.Username)
	h.hub.add(client)

	logger.Log.Info("Client connected",
		zap.String("user_id", client.userID.String()),
		zap.String("username", client.username),
		zap.Int("connections", h.hub.Online(client.userID)),
	)

	defer h.removeClient(client)
	h.handleClient(client)
}

// handleClient reads frames from one connection until it fails or the
// session lifetime runs out.
func (h *WebSocketHandler) handleClient(client *Client) {
	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingClient(client, done)
	go client.writePump(done)

	sessionTimer := time.AfterFunc(maxSessionLifetime, func() {
		h.closeClientGracefully(client, "session expired")
	})
	defer sessionTimer.Stop()

	ctx := context.Background()
	for {
		var frame WSFrame
		if err := client.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("WebSocket read error",
					zap.String("user_id", client.userID.String()),
					zap.Error(err),
				)
			}
			return
		}

		switch frame.Event {
		case WSEventSend:
			h.handleSend(ctx, client, frame.Data)
		case WSEventDelivered:
			h.handleDelivered(ctx, client, frame.Data)
		case WSEventRead:
			h.handleRead(ctx, client, frame.Data)
		default:
			h.sendError(client, "unknown event")
		}
	}
}

func (h *WebSocketHandler) handleSend(ctx context.Context, client *Client, raw json.RawMessage) {
	var data WSSendData
	if err := json.Unmarshal(raw, &data); err != nil || data.To == uuid.Nil {
		h.sendAck(client, WSAck{TempID: data.TempID, Status: "error", Error: "invalid message:send payload"})
		return
	}

	if h.sendLimiter != nil {
		allowed, _, err := h.sendLimiter.CheckLimit(ctx, client.userID.String())
		if err == nil && !allowed {
			h.sendAck(client, WSAck{TempID: data.TempID, Status: "error", Error: "too many messages"})
			return
		}
	}

	result, err := h.messageService.Send(ctx, service.SendInput{
		SenderID:    client.userID,
		RecipientID: data.To,
		Content:     data.Content,
		MediaURL:    data.MediaURL,
		Type:        data.Type,
		Duration:    data.Duration,
		ReplyToID:   data.ReplyToID,
	})
	if err != nil {
		h.sendAck(client, WSAck{TempID: data.TempID, Status: "error", Error: frameError(err)})
		return
	}

	h.sendAck(client, WSAck{
		TempID:         data.TempID,
		MessageID:      &result.Message.ID,
		ConversationID: &result.Conversation.ID,
		IsRequest:      result.IsRequest,
		Status:         "success",
	})
}

func (h *WebSocketHandler) handleDelivered(ctx context.Context, client *Client, raw json.RawMessage) {
	var data WSDeliveredData
	if err := json.Unmarshal(raw, &data); err != nil || data.MessageID == uuid.Nil {
		h.sendError(client, "invalid message:delivered payload")
		return
	}

	if err := h.messageService.MarkDelivered(ctx, data.MessageID, client.userID); err != nil {
		h.sendError(client, frameError(err))
	}
}

func (h *WebSocketHandler) handleRead(ctx context.Context, client *Client, raw json.RawMessage) {
	var data WSReadData
	if err := json.Unmarshal(raw, &data); err != nil || data.ConversationID == uuid.Nil {
		h.sendError(client, "invalid conversation:read payload")
		return
	}

	if _, err := h.messageService.MarkConversationRead(ctx, data.ConversationID, client.userID); err != nil {
		h.sendError(client, frameError(err))
	}
}

// frameError hides internal failures from the client
func frameError(err error) string {
	if StatusFor(apperr.CodeOf(err)) == http.StatusInternalServerError {
		logger.Log.Error("WebSocket operation failed", zap.Error(err))
		return "internal server error"
	}
	return err.Error()
}

func (h *WebSocketHandler) pingClient(client *Client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := client.writeControl(websocket.PingMessage, nil); err != nil {
				logger.Log.Debug("Ping failed",
					zap.String("user_id", client.userID.String()),
					zap.Error(err),
				)
				return
			}
		case <-done:
			return
		}
	}
}

func (h *WebSocketHandler) closeClientGracefully(client *Client, reason string) {
	if err := client.writeFrame(WSEventSessionExpired, map[string]string{"reason": reason}); err != nil {
		logger.Log.Debug("Failed to send session expiry", zap.Error(err))
	}
	if err := client.writeControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
	); err != nil {
		logger.Log.Debug("Failed to send close frame", zap.Error(err))
	}
	// Unblocks the read loop
	client.close()
}

func (h *WebSocketHandler) removeClient(client *Client) {
	if !h.hub.remove(client) {
		return
	}
	client.close()

	logger.Log.Info("Client disconnected",
		zap.String("user_id", client.userID.String()),
		zap.Duration("session_duration", time.Since(client.connectedAt).Round(time.Second)),
	)
}

func (h *WebSocketHandler) sendError(client *Client, message string) {
	if err := client.writeFrame(WSEventError, map[string]string{"error": message}); err != nil {
		logger.Log.Debug("Failed to send error frame", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendAck(client *Client, ack WSAck) {
	if err := client.writeFrame(WSEventAck, ack); err != nil {
		logger.Log.Debug("Failed to send ack", zap.Error(err))
	}
}
