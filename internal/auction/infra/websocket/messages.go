package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientBid          MessageType = "client_bid"           // client msg to make a bid
	MessageTypeServerBidAccepted  MessageType = "server_bid_accepted"  // server msg after every accepted bid
	MessageTypeServerError        MessageType = "server_error"         // server msg indicating error, sender only
	MessageTypeServerInitialState MessageType = "server_initial_state" // server msg with auction state on connect
)

// BaseMessage is base struct for all the WS messages, includes a Type field for identify the message type
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is DTO for a bid message sent by the client. The auction
// comes from the connection path.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		BidderID uuid.UUID       `json:"bidder_id"`
		Amount   decimal.Decimal `json:"amount"`
	} `json:"payload"`
}

// ServerBidAcceptedMessage is the one event schema of the live view.
type ServerBidAcceptedMessage struct {
	BaseMessage
	Payload struct {
		NewPrice string `json:"new_price"`
		Bidder   string `json:"bidder"`
	} `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	} `json:"payload"`
}

// ServerInitialStateMessage is sent to a client right after it subscribes.
type ServerInitialStateMessage struct {
	BaseMessage
	Payload struct {
		AuctionID      uuid.UUID `json:"auction_id"`
		Title          string    `json:"title"`
		CurrentPrice   string    `json:"current_price"`
		MinimumNextBid string    `json:"minimum_next_bid"`
		CurrentHolder  string    `json:"current_holder,omitempty"`
		Deadline       time.Time `json:"deadline"`
		State          string    `json:"state"`
	} `json:"payload"`
}
