package services

import (
	"auction-house/internal/domain"

	"github.com/shopspring/decimal"
)

// OutbidTarget is the bidder who held the highest bid before the new one.
type OutbidTarget struct {
	UserID string
	Amount decimal.Decimal
}

type Evaluation struct {
	Accepted        bool
	NewCurrentPrice decimal.Decimal
	Outbid          *OutbidTarget
}

// Leader returns the bid holding the highest amount. Ties go to the earliest bid.
func Leader(bids []*domain.Bid) *domain.Bid {
	var leader *domain.Bid
	for _, b := range bids {
		switch {
		case leader == nil:
			leader = b
		case b.Amount.GreaterThan(leader.Amount):
			leader = b
		case b.Amount.Equal(leader.Amount) && b.BidTime.Before(leader.BidTime):
			leader = b
		}
	}
	return leader
}

// EvaluateBid decides the effect of a new bid on an auction's existing bids.
// Every bid is accepted; a bid at or below the current maximum is stored
// without moving the price.
func EvaluateBid(existing []*domain.Bid, amount decimal.Decimal, bidderID string) Evaluation {
	leader := Leader(existing)
	if leader == nil {
		return Evaluation{Accepted: true, NewCurrentPrice: amount}
	}

	eval := Evaluation{Accepted: true, NewCurrentPrice: decimal.Max(leader.Amount, amount)}
	if amount.GreaterThan(leader.Amount) && leader.UserID != bidderID {
		eval.Outbid = &OutbidTarget{UserID: leader.UserID, Amount: leader.Amount}
	}
	return eval
}
