package services

import (
	"fmt"

	"auction-house/internal/domain"
)

// Lifecycle owns every auction status transition and its guards.
//
//	Open    --bid-->    Open
//	Open    --close-->  Closing
//	Closing --sell-->   Sold
//	Open    --delete--> Deleted
type Lifecycle struct {
	// StrictDelete additionally requires the auction to be Open before deletion.
	StrictDelete bool
}

// PlaceBid checks the auction accepts bid, appends it and moves the price. The returned evaluation tells who was outbid.
// The owner is refused before anything else is looked at.
func (l Lifecycle) PlaceBid(auction *domain.Auction, bid *domain.Bid) (Evaluation, error) {
	if auction.OwnerID == bid.UserID {
		return Evaluation{}, fmt.Errorf("%w: owner cannot bid on own auction", domain.ErrForbidden)
	}
	if auction.Status != domain.AuctionOpen {
		return Evaluation{}, fmt.Errorf("%w: auction %s is %s, bids are closed", domain.ErrStateConflict, auction.ID, auction.Status)
	}
	if err := validateAmount(bid.Amount); err != nil {
		return Evaluation{}, err
	}

	eval := EvaluateBid(auction.Bids, bid.Amount, bid.UserID)
	price := eval.NewCurrentPrice
	auction.Price = &price
	auction.Bids = append(auction.Bids, bid)
	return eval, nil
}

func (l Lifecycle) Close(auction *domain.Auction, actorID string) error {
	if auction.OwnerID != actorID {
		return fmt.Errorf("%w: only the owner can close auction %s", domain.ErrForbidden, auction.ID)
	}
	if auction.Status != domain.AuctionOpen {
		return fmt.Errorf("%w: auction %s is %s, only open auctions close", domain.ErrStateConflict, auction.ID, auction.Status)
	}
	auction.Status = domain.AuctionClosing
	return nil
}

// Sell marks the auction sold to the bidder of winningBidID. The bid must be
// one of auction.Bids.
func (l Lifecycle) Sell(auction *domain.Auction, actorID, winningBidID string) error {
	if auction.OwnerID != actorID {
		return fmt.Errorf("%w: only the owner can sell auction %s", domain.ErrForbidden, auction.ID)
	}
	if auction.Status != domain.AuctionClosing {
		return fmt.Errorf("%w: auction %s is %s, close it before selling", domain.ErrStateConflict, auction.ID, auction.Status)
	}
	bid := auction.FindBid(winningBidID)
	if bid == nil {
		return fmt.Errorf("%w: invalid winning bid id", domain.ErrValidation)
	}

	winner := bid.UserID
	price := bid.Amount
	auction.Status = domain.AuctionSold
	auction.WinnerID = &winner
	auction.Price = &price
	return nil
}

func (l Lifecycle) Delete(auction *domain.Auction, actorID string) error {
	if auction.OwnerID != actorID {
		return fmt.Errorf("%w: only the owner can delete auction %s", domain.ErrForbidden, auction.ID)
	}
	if l.StrictDelete && auction.Status != domain.AuctionOpen {
		return fmt.Errorf("%w: auction %s is %s, only open auctions can be deleted", domain.ErrStateConflict, auction.ID, auction.Status)
	}
	auction.Status = domain.AuctionDeleted
	return nil
}
