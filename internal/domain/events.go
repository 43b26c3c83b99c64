package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event names delivered to realtime subscribers.
const (
	EventNewAuction          = "NewAuctionNotification"
	EventAuctionStatusUpdate = "AuctionStatusUpdate"
	EventBidUpdate           = "BidUpdate"
	EventOutbid              = "OutbidNotification"
)

type NewAuctionNotification struct {
	AuctionID string `json:"auctionId"`
	Title     string `json:"title"`
}

type AuctionStatusUpdate struct {
	AuctionID string        `json:"auctionId"`
	Status    AuctionStatus `json:"status"`
}

type BidUpdate struct {
	BidID        string          `json:"bidId"`
	AuctionID    string          `json:"auctionId"`
	UserID       string          `json:"userId"`
	UserName     string          `json:"userName"`
	Amount       decimal.Decimal `json:"amount"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	BidTime      time.Time       `json:"bidTime"`
}

type OutbidNotification struct {
	AuctionID string          `json:"auctionId"`
	Title     string          `json:"title"`
	NewAmount decimal.Decimal `json:"newAmount"`
}

// Scope selects the audience of an Envelope.
type Scope string

const (
	ScopeAll   Scope = "all"
	ScopeGroup Scope = "group"
	ScopeUser  Scope = "user"
)

// Envelope carries one notification across instances over the event bus.
type Envelope struct {
	Scope   Scope           `json:"scope"`
	Target  string          `json:"target,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Frame is what a websocket client receives.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEnvelope encodes payload for delivery to the given audience.
func NewEnvelope(scope Scope, target, event string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return &Envelope{Scope: scope, Target: target, Event: event, Payload: data}, nil
}

// Frame renders the envelope as the message written to websocket clients.
func (e *Envelope) Frame() ([]byte, error) {
	return json.Marshal(Frame{Event: e.Event, Data: e.Payload})
}
