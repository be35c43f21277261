package websocket

import (
	"encoding/json"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/websocket"
	"go.uber.org/zap"
)

// HubPublisher implements domain.EventPublisher on top of the shared Hub.
type HubPublisher struct {
	hub *websocket.Hub
}

func NewHubPublisher(hub *websocket.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) PublishBidAccepted(event domain.BidAccepted) {
	data, err := encodeBidAccepted(event)
	if err != nil {
		log.Error("Failed to encode bid accepted event",
			zap.String("auctionID", event.AuctionID.String()),
			zap.Error(err),
		)
		return
	}
	delivered := p.hub.Publish(event.AuctionID.String(), data)
	log.Debug("Bid accepted event published",
		zap.String("auctionID", event.AuctionID.String()),
		zap.Int("delivered", delivered),
	)
}

func encodeBidAccepted(event domain.BidAccepted) ([]byte, error) {
	msg := ServerBidAcceptedMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerBidAccepted},
	}
	msg.Payload.NewPrice = domain.FormatMoney(event.NewPrice)
	msg.Payload.Bidder = event.Bidder
	return json.Marshal(msg)
}
