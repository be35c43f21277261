package websocket

import (
	"context"
	"encoding/json"

	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/cristianortiz/auctionhouse/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler handles the ws inbound msgs which are specific for auction module (remember is a bounded context)
type AuctionWSHandler struct {
	auctionService application.AuctionService // application layer dependency
	hub            *websocket.Hub             // shared hub dependency to send msgs
}

// NewAuctionWSHandler creates a new instance of AuctionWSHandler
func NewAuctionWSHandler(auctionService application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
	}
}

// RegisterRoutes mounts GET /ws/auctions/:id.
func (h *AuctionWSHandler) RegisterRoutes(ctx context.Context, app fiber.Router) {
	ws := app.Group("/ws")
	ws.Use(upgradeOnly)
	ws.Get("/auctions/:id", fiberws.New(func(conn *fiberws.Conn) {
		h.serveConnection(ctx, conn)
	}))
}

func upgradeOnly(c *fiber.Ctx) error {
	if fiberws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// serveConnection subscribes one viewer and blocks until it goes away.
func (h *AuctionWSHandler) serveConnection(ctx context.Context, conn *fiberws.Conn) {
	auctionID, err := uuid.Parse(conn.Params("id"))
	if err != nil {
		h.rejectConnection(conn, application.ReasonNotFound, "invalid auction id")
		return
	}

	// viewing an auction is a read path, so expiry is checked first
	state, err := h.auctionService.GetAuctionState(ctx, auctionID)
	if err != nil {
		reason, msg := application.Classify(err)
		h.rejectConnection(conn, reason, msg)
		return
	}

	client := h.hub.NewClient(conn, auctionID.String(), uuid.NewString())
	if !h.hub.Subscribe(client) {
		conn.Close()
		return
	}
	log.Info("Live viewer connected",
		zap.String("clientID", client.ID),
		zap.String("auctionID", client.AuctionID),
	)

	if data, err := encodeInitialState(state); err == nil {
		h.hub.SendTo(client, data)
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func (h *AuctionWSHandler) rejectConnection(conn *fiberws.Conn, reason application.Reason, msg string) {
	if data, err := encodeError(reason, msg); err == nil {
		_ = conn.WriteMessage(fiberws.TextMessage, data)
	}
	conn.Close()
}

// ListenForMessages starts a go routine that listen the Hub inbound channel for messages and proccess every one of them
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

// processMessage dispatch the message by this type
func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, application.ReasonInvalid, "invalid message format")
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBidMessage(ctx, client, data)
	default:
		h.sendErrorToClient(client, application.ReasonInvalid, "unknown message type")
	}
}

// handleClientBidMessage places the bid through the ledger. Accepted bids reach
// every viewer through the ledger's publisher, rejections go to the sender only.
func (h *AuctionWSHandler) handleClientBidMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorToClient(client, application.ReasonInvalid, "invalid bid message format")
		return
	}
	auctionID, err := uuid.Parse(client.AuctionID)
	if err != nil {
		h.sendErrorToClient(client, application.ReasonNotFound, "invalid auction id")
		return
	}

	_, err = h.auctionService.PlaceBid(ctx, application.PlaceBidDTO{
		AuctionID: auctionID,
		BidderID:  bidMsg.Payload.BidderID,
		Amount:    bidMsg.Payload.Amount,
	})
	if err != nil {
		reason, msg := application.Classify(err)
		h.sendErrorToClient(client, reason, msg)
	}
}

// sendErrorToClient serializes and sends an error msg to a specific client
func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, reason application.Reason, errorMessage string) {
	data, err := encodeError(reason, errorMessage)
	if err != nil {
		log.Error("failed to marshal ServerErrorMessage", zap.Error(err))
		return
	}
	if !h.hub.SendTo(client, data) {
		log.Warn("client send channel full or closed, could not send error msg",
			zap.String("clientID", client.ID),
		)
	}
}

func encodeError(reason application.Reason, msg string) ([]byte, error) {
	errMsg := ServerErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerError},
	}
	errMsg.Payload.Code = string(reason)
	errMsg.Payload.Error = msg
	return json.Marshal(errMsg)
}

func encodeInitialState(state *application.AuctionStateDTO) ([]byte, error) {
	msg := ServerInitialStateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
	}
	msg.Payload.AuctionID = state.ID
	msg.Payload.Title = state.Title
	msg.Payload.CurrentPrice = domain.FormatMoney(state.CurrentPrice)
	msg.Payload.MinimumNextBid = domain.FormatMoney(state.MinimumNextBid)
	msg.Payload.CurrentHolder = state.CurrentHolder
	msg.Payload.Deadline = state.Deadline
	msg.Payload.State = string(state.State)
	return json.Marshal(msg)
}
