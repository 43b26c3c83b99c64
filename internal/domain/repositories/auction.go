package repositories

import (
	"context"

	"auction-house/internal/domain"
)

// Include selects the relations loaded alongside an auction.
type Include struct {
	Owner   bool
	Winner  bool
	Bids    bool
	Bidders bool
}

// AuctionFilter narrows ListAuctions. Zero fields are ignored.
type AuctionFilter struct {
	Status   *domain.AuctionStatus
	OwnerID  string
	BidderID string
}

type AuctionRepository interface {
	GetAuction(ctx context.Context, auctionID string, include Include) (*domain.Auction, error)
	// ListAuctions returns one page ordered by creation time, newest first, and the total match count.
	ListAuctions(ctx context.Context, filter AuctionFilter, skip, take int) ([]*domain.Auction, int, error)
	GetBids(ctx context.Context, auctionID string) ([]*domain.Bid, error)
	// InTx runs fn in a single transaction. Returning an error rolls everything back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx AuctionTx) error) error
}

// AuctionTx is the read-modify-write view of the store inside InTx.
type AuctionTx interface {
	// GetAuctionForUpdate loads the auction with its bids and locks it until the transaction ends.
	GetAuctionForUpdate(ctx context.Context, auctionID string) (*domain.Auction, error)
	CreateAuction(ctx context.Context, auction *domain.Auction) error
	SaveAuction(ctx context.Context, auction *domain.Auction) error
	AddBid(ctx context.Context, bid *domain.Bid) error
	DeleteAuction(ctx context.Context, auctionID string) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}
