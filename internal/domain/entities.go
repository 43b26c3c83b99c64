package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID       string
	Username string
}

type Auction struct {
	ID          string
	Title       string
	Description string
	ImageURL    *string
	Status      AuctionStatus
	OwnerID     string
	WinnerID    *string
	Price       *decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Populated on request only.
	Owner  *User
	Winner *User
	Bids   []*Bid
}

// FindBid returns the bid with the given id among the loaded bids.
func (a *Auction) FindBid(bidID string) *Bid {
	for _, b := range a.Bids {
		if b.ID == bidID {
			return b
		}
	}
	return nil
}

type Bid struct {
	ID        string
	AuctionID string
	UserID    string
	Amount    decimal.Decimal
	BidTime   time.Time

	// Populated on request only.
	User *User
}

type Page[T any] struct {
	Items      []T
	TotalCount int
	PageNumber int
	PageSize   int
}
