package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Constants for WebSocket configuration
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	defaultSendBuffer = 256
	inboundBufferSize = 256
)

// Hub is the per-process registry of live connections grouped by auction ID.
// Publish never blocks: a subscriber whose send buffer is full is torn down.
type Hub struct {
	mu sync.Mutex
	// outer key is the auction ID
	auctions   map[string]map[*Client]struct{}
	sendBuffer int
	// InboundMessages is listened to by module-specific handlers (e.g, auction handler)
	InboundMessages chan *ClientMessage
}

// Client represents a ws individual connection
type Client struct {
	hub *Hub
	// The websocket connection. Nil in tests that only exercise fan-out.
	Conn *websocket.Conn
	// Buffered channel of outbound messages, closed by the hub on teardown.
	Send chan []byte
	// The auction this connection watches.
	AuctionID string
	// Unique identifier for the client
	ID string

	closed bool // guarded by hub.mu
}

// ClientMessage wraps a message received from a client so module handlers
// know who sent it.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Hub{
		auctions:        make(map[string]map[*Client]struct{}),
		sendBuffer:      sendBuffer,
		InboundMessages: make(chan *ClientMessage, inboundBufferSize),
	}
}

// NewClient builds a connection handle for auctionID. It receives nothing until
// it is subscribed.
func (h *Hub) NewClient(conn *websocket.Conn, auctionID, id string) *Client {
	return &Client{
		hub:       h,
		Conn:      conn,
		Send:      make(chan []byte, h.sendBuffer),
		AuctionID: auctionID,
		ID:        id,
	}
}

// Run blocks until ctx is cancelled and then closes every live subscription.
func (h *Hub) Run(ctx context.Context) {
	log.Info("WebSocket Hub started")
	<-ctx.Done()
	log.Info("WebSocket Hub shutting down due to context cancellation")

	h.mu.Lock()
	defer h.mu.Unlock()
	for auctionID, clients := range h.auctions {
		for client := range clients {
			h.removeLocked(client)
		}
		delete(h.auctions, auctionID)
	}
}

// Subscribe registers the client for its auction. Subscribing twice is a no-op,
// a client that was already torn down is refused.
func (h *Hub) Subscribe(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.closed {
		return false
	}
	clients, ok := h.auctions[client.AuctionID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.auctions[client.AuctionID] = clients
	}
	if _, ok := clients[client]; ok {
		return true
	}
	clients[client] = struct{}{}

	log.Info("Client subscribed",
		zap.String("clientID", client.ID),
		zap.String("auctionID", client.AuctionID),
		zap.Int("auction_clients", len(clients)),
	)
	return true
}

// Unsubscribe removes the client and closes its send channel. Safe to call on a
// client that is already gone.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(client) {
		log.Info("Client unsubscribed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}

// Publish hands data to every client watching auctionID and returns how many
// got it. Calls for one auction are delivered in the order they are made.
func (h *Hub) Publish(auctionID string, data []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.auctions[auctionID]
	if !ok {
		return 0
	}

	delivered := 0
	for client := range clients {
		select {
		case client.Send <- data:
			delivered++
		default:
			// slow consumer, drop it rather than stall the bidder
			log.Warn("Failed to send message to client, unsubscribing",
				zap.String("clientID", client.ID),
				zap.String("auctionID", auctionID),
			)
			h.removeLocked(client)
		}
	}
	log.Debug("Broadcast to auction",
		zap.String("auctionID", auctionID),
		zap.Int("delivered", delivered),
	)
	return delivered
}

// SendTo queues data for one client only. It reports false when the client is
// no longer subscribed or its buffer is full.
func (h *Hub) SendTo(client *Client, data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.closed {
		return false
	}
	select {
	case client.Send <- data:
		return true
	default:
		return false
	}
}

// Subscribers returns the number of clients watching auctionID.
func (h *Hub) Subscribers(auctionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.auctions[auctionID])
}

func (h *Hub) removeLocked(client *Client) bool {
	clients, ok := h.auctions[client.AuctionID]
	if !ok {
		return false
	}
	if _, ok := clients[client]; !ok {
		return false
	}
	delete(clients, client)
	client.closed = true
	close(client.Send)

	if len(clients) == 0 {
		delete(h.auctions, client.AuctionID)
		log.Debug("Auction group removed as empty", zap.String("auctionID", client.AuctionID))
	}
	return true
}

func (c *Client) remoteAddr() string {
	if c.Conn == nil {
		return ""
	}
	return c.Conn.RemoteAddr().String()
}

// ReadPump reads client frames and forwards them to Hub.InboundMessages.
// It runs in its own goroutine per connection and tears the subscription down on exit.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unsubscribe(c)
		c.Conn.Close()
		log.Info("ReadPump stopped for client",
			zap.String("clientID", c.ID),
			zap.String("auctionID", c.AuctionID),
			zap.String("remote_addr", c.remoteAddr()),
		)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.String("remote_addr", c.remoteAddr()),
					zap.Error(err),
				)
			} else {
				log.Info("WebSocket connection closed by peer",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
			}
			return
		}

		select {
		case c.hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Hub InboundMessages channel is full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
				zap.ByteString("message", message),
			)
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// invoking WriteControl and WriteMessage from a single goroutine.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.Unsubscribe(c)
		c.Conn.Close()
		log.Info("WritePump stopped for client",
			zap.String("clientID", c.ID),
			zap.String("auctionID", c.AuctionID),
			zap.String("remote_addr", c.remoteAddr()),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			err := c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			if err != nil {
				log.Debug("Failed to send close control message", zap.String("clientID", c.ID), zap.Error(err))
			}
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The Hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one event per frame so clients can parse each message on its own
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("Failed to write message to client",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn("Failed to write ping message to client",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}
		}
	}
}
