package handlers

import (
	"time"

	"auction-house/internal/domain"

	"github.com/shopspring/decimal"
)

type AuctionDto struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Status         string           `json:"status"`
	ImageURL       *string          `json:"imageUrl"`
	OwnerID        string           `json:"ownerId"`
	OwnerUsername  string           `json:"ownerUsername,omitempty"`
	WinnerID       *string          `json:"winnerId"`
	WinnerUsername *string          `json:"winnerUsername"`
	Price          *decimal.Decimal `json:"price"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	Bids           []BidDto         `json:"bids,omitempty"`
}

type BidDto struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	UserID    string          `json:"userId"`
	UserName  string          `json:"userName,omitempty"`
	BidTime   time.Time       `json:"bidTime"`
	AuctionID string          `json:"auctionId"`
}

type PagedAuctionResultDto struct {
	Auctions   []AuctionDto `json:"auctions"`
	TotalCount int          `json:"totalCount"`
	PageNumber int          `json:"pageNumber"`
	PageSize   int          `json:"pageSize"`
}

type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type SellAuctionRequest struct {
	WinningBidID string `json:"winningBidId"`
}

func toAuctionDto(a *domain.Auction) AuctionDto {
	dto := AuctionDto{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Status:      a.Status.String(),
		ImageURL:    a.ImageURL,
		OwnerID:     a.OwnerID,
		WinnerID:    a.WinnerID,
		Price:       a.Price,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.Owner != nil {
		dto.OwnerUsername = a.Owner.Username
	}
	if a.Winner != nil {
		dto.WinnerUsername = &a.Winner.Username
	}
	if len(a.Bids) > 0 {
		dto.Bids = toBidDtos(a.Bids)
	}
	return dto
}

func toBidDto(b *domain.Bid) BidDto {
	dto := BidDto{
		ID:        b.ID,
		Amount:    b.Amount,
		UserID:    b.UserID,
		BidTime:   b.BidTime,
		AuctionID: b.AuctionID,
	}
	if b.User != nil {
		dto.UserName = b.User.Username
	}
	return dto
}

func toBidDtos(bids []*domain.Bid) []BidDto {
	out := make([]BidDto, 0, len(bids))
	for _, b := range bids {
		out = append(out, toBidDto(b))
	}
	return out
}

func toPagedResult(page *domain.Page[*domain.Auction]) PagedAuctionResultDto {
	auctions := make([]AuctionDto, 0, len(page.Items))
	for _, a := range page.Items {
		auctions = append(auctions, toAuctionDto(a))
	}
	return PagedAuctionResultDto{
		Auctions:   auctions,
		TotalCount: page.TotalCount,
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
	}
}
