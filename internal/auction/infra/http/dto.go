package http

import (
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PlaceBidRequest struct {
	BidderID uuid.UUID       `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type AuctionResponse struct {
	ID             uuid.UUID `json:"id"`
	SellerID       uuid.UUID `json:"seller_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	BasePrice      string    `json:"base_price"`
	MinimumRaise   string    `json:"minimum_raise"`
	CurrentPrice   string    `json:"current_price"`
	MinimumNextBid string    `json:"minimum_next_bid"`
	CurrentHolder  string    `json:"current_holder,omitempty"`
	Deadline       time.Time `json:"deadline"`
	State          string    `json:"state"`
}

type BidResponse struct {
	ID        uuid.UUID `json:"id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Bidder    string    `json:"bidder"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

func toAuctionResponse(s *application.AuctionStateDTO) AuctionResponse {
	return AuctionResponse{
		ID:             s.ID,
		SellerID:       s.SellerID,
		Title:          s.Title,
		Description:    s.Description,
		BasePrice:      domain.FormatMoney(s.BasePrice),
		MinimumRaise:   domain.FormatMoney(s.MinimumRaise),
		CurrentPrice:   domain.FormatMoney(s.CurrentPrice),
		MinimumNextBid: domain.FormatMoney(s.MinimumNextBid),
		CurrentHolder:  s.CurrentHolder,
		Deadline:       s.Deadline,
		State:          string(s.State),
	}
}

func toBidResponse(b *application.BidDTO) BidResponse {
	return BidResponse{
		ID:        b.ID,
		BidderID:  b.BidderID,
		Bidder:    b.Bidder,
		Amount:    domain.FormatMoney(b.Amount),
		Timestamp: b.Timestamp,
	}
}
