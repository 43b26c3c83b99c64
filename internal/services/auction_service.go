package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"auction-house/internal/domain"
	"auction-house/internal/domain/repositories"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"

	"github.com/shopspring/decimal"
)

type AuctionServiceConfig struct {
	StrictDelete bool
	MaxPageSize  int
	// SendTimeout bounds each notification sent after a commit.
	SendTimeout time.Duration
}

// AuctionService is the entry point for every auction use case. Mutations run
// in one gateway transaction; notifications go out after commit and never
// fail the request.
type AuctionService struct {
	auctions    repositories.AuctionRepository
	notifier    domain.Notifier
	images      domain.ImageStore
	lifecycle   Lifecycle
	maxPageSize int
	sendTimeout time.Duration
	log         logger.Logger
}

func NewAuctionService(
	auctions repositories.AuctionRepository,
	notifier domain.Notifier,
	images domain.ImageStore,
	cfg AuctionServiceConfig,
	log logger.Logger,
) *AuctionService {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 2 * time.Second
	}
	return &AuctionService{
		auctions:    auctions,
		notifier:    notifier,
		images:      images,
		lifecycle:   Lifecycle{StrictDelete: cfg.StrictDelete},
		maxPageSize: cfg.MaxPageSize,
		sendTimeout: cfg.SendTimeout,
		log:         log,
	}
}

func (s *AuctionService) ListOpenAuctions(ctx context.Context, pageNumber, pageSize int) (*domain.Page[*domain.Auction], error) {
	open := domain.AuctionOpen
	return s.list(ctx, repositories.AuctionFilter{Status: &open}, pageNumber, pageSize)
}

// ListByOwner pages through the auctions userID created, whatever their status.
func (s *AuctionService) ListByOwner(ctx context.Context, userID string, pageNumber, pageSize int) (*domain.Page[*domain.Auction], error) {
	return s.list(ctx, repositories.AuctionFilter{OwnerID: userID}, pageNumber, pageSize)
}

// ListParticipatedIn pages through the auctions userID has bid on.
func (s *AuctionService) ListParticipatedIn(ctx context.Context, userID string, pageNumber, pageSize int) (*domain.Page[*domain.Auction], error) {
	return s.list(ctx, repositories.AuctionFilter{BidderID: userID}, pageNumber, pageSize)
}

func (s *AuctionService) list(ctx context.Context, filter repositories.AuctionFilter, pageNumber, pageSize int) (*domain.Page[*domain.Auction], error) {
	if pageNumber < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page number and page size must be at least 1", domain.ErrValidation)
	}
	if s.maxPageSize > 0 && pageSize > s.maxPageSize {
		return nil, fmt.Errorf("%w: page size must not exceed %d", domain.ErrValidation, s.maxPageSize)
	}

	items, total, err := s.auctions.ListAuctions(ctx, filter, (pageNumber-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	return &domain.Page[*domain.Auction]{
		Items:      items,
		TotalCount: total,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, nil
}

// GetAuctionByID returns the auction with owner, winner and bids resolved.
func (s *AuctionService) GetAuctionByID(ctx context.Context, auctionID string) (*domain.Auction, error) {
	return s.auctions.GetAuction(ctx, auctionID, repositories.Include{
		Owner: true, Winner: true, Bids: true, Bidders: true,
	})
}

func (s *AuctionService) GetBidsForAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	return s.auctions.GetBids(ctx, auctionID)
}

// CreateAuction opens a new auction owned by ownerID. image may be empty.
func (s *AuctionService) CreateAuction(ctx context.Context, ownerID, title, description string, image []byte) (*domain.Auction, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, fmt.Errorf("%w: title and description are required", domain.ErrValidation)
	}

	auction := &domain.Auction{
		ID:          utils.GenerateID(),
		Title:       title,
		Description: description,
		Status:      domain.AuctionOpen,
		OwnerID:     ownerID,
	}

	if len(image) > 0 {
		if s.images == nil {
			return nil, fmt.Errorf("%w: image uploads are disabled", domain.ErrValidation)
		}
		url, err := s.images.Save(ctx, image)
		if err != nil {
			return nil, err
		}
		auction.ImageURL = &url
	}

	err := s.auctions.InTx(ctx, func(ctx context.Context, tx repositories.AuctionTx) error {
		owner, err := tx.GetUser(ctx, ownerID)
		if err != nil {
			return err
		}
		auction.Owner = owner
		return tx.CreateAuction(ctx, auction)
	})
	if err != nil {
		if auction.ImageURL != nil {
			if rmErr := s.images.Remove(context.WithoutCancel(ctx), *auction.ImageURL); rmErr != nil {
				s.log.Warn("Failed to remove orphaned image", "url", *auction.ImageURL, "error", rmErr)
			}
		}
		return nil, err
	}

	s.log.Info("Auction created", "auction_id", auction.ID, "owner_id", ownerID)
	s.notify(ctx, domain.EventNewAuction, func(ctx context.Context) error {
		return s.notifier.BroadcastAll(ctx, domain.EventNewAuction, domain.NewAuctionNotification{
			AuctionID: auction.ID,
			Title:     auction.Title,
		})
	})
	return auction, nil
}

// PlaceBid records a bid and moves the price to the running maximum. The
// previous leader hears about it only when the new amount beats theirs.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (*domain.Bid, error) {
	s.log.Info("Placing bid", "auction_id", auctionID, "user_id", bidderID, "amount", amount.String())

	bid := &domain.Bid{
		ID:        utils.GenerateID(),
		AuctionID: auctionID,
		UserID:    bidderID,
		Amount:    amount,
	}
	var (
		auction *domain.Auction
		eval    Evaluation
	)

	err := s.auctions.InTx(ctx, func(ctx context.Context, tx repositories.AuctionTx) error {
		var err error
		auction, err = tx.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if eval, err = s.lifecycle.PlaceBid(auction, bid); err != nil {
			return err
		}
		if bid.User, err = tx.GetUser(ctx, bidderID); err != nil {
			return err
		}
		if err := tx.AddBid(ctx, bid); err != nil {
			return err
		}
		return tx.SaveAuction(ctx, auction)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, domain.EventBidUpdate, func(ctx context.Context) error {
		return s.notifier.BroadcastToGroup(ctx, auctionID, domain.EventBidUpdate, domain.BidUpdate{
			BidID:        bid.ID,
			AuctionID:    auctionID,
			UserID:       bidderID,
			UserName:     bid.User.Username,
			Amount:       bid.Amount,
			CurrentPrice: eval.NewCurrentPrice,
			BidTime:      bid.BidTime,
		})
	})
	if eval.Outbid != nil {
		s.notify(ctx, domain.EventOutbid, func(ctx context.Context) error {
			return s.notifier.NotifyUser(ctx, eval.Outbid.UserID, domain.EventOutbid, domain.OutbidNotification{
				AuctionID: auctionID,
				Title:     auction.Title,
				NewAmount: bid.Amount,
			})
		})
	}
	return bid, nil
}

// CloseAuction stops bidding. Only the owner may close, and only an open auction.
func (s *AuctionService) CloseAuction(ctx context.Context, auctionID, actorID string) (*domain.Auction, error) {
	auction, err := s.transition(ctx, auctionID, func(a *domain.Auction) error {
		return s.lifecycle.Close(a, actorID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Auction closed", "auction_id", auctionID)
	s.notifyStatus(ctx, auction)
	return auction, nil
}

// SellAuction settles a closing auction on one of its bids.
func (s *AuctionService) SellAuction(ctx context.Context, auctionID, actorID, winningBidID string) (*domain.Auction, error) {
	auction, err := s.transition(ctx, auctionID, func(a *domain.Auction) error {
		return s.lifecycle.Sell(a, actorID, winningBidID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Auction sold", "auction_id", auctionID, "winner_id", *auction.WinnerID)
	s.notifyStatus(ctx, auction)
	return auction, nil
}

func (s *AuctionService) DeleteAuction(ctx context.Context, auctionID, actorID string) error {
	err := s.auctions.InTx(ctx, func(ctx context.Context, tx repositories.AuctionTx) error {
		auction, err := tx.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if err := s.lifecycle.Delete(auction, actorID); err != nil {
			return err
		}
		return tx.DeleteAuction(ctx, auctionID)
	})
	if err != nil {
		return err
	}
	s.log.Info("Auction deleted", "auction_id", auctionID)
	return nil
}

// transition loads and locks the auction, applies apply and saves the result
// with owner and winner resolved for the caller. Bids are left out; callers
// fetch them through GetAuctionByID with bidders resolved.
func (s *AuctionService) transition(ctx context.Context, auctionID string, apply func(*domain.Auction) error) (*domain.Auction, error) {
	var auction *domain.Auction
	err := s.auctions.InTx(ctx, func(ctx context.Context, tx repositories.AuctionTx) error {
		var err error
		if auction, err = tx.GetAuctionForUpdate(ctx, auctionID); err != nil {
			return err
		}
		if err := apply(auction); err != nil {
			return err
		}
		if err := tx.SaveAuction(ctx, auction); err != nil {
			return err
		}

		if auction.Owner, err = tx.GetUser(ctx, auction.OwnerID); err != nil {
			return err
		}
		if auction.WinnerID != nil {
			if auction.Winner, err = tx.GetUser(ctx, *auction.WinnerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	auction.Bids = nil
	return auction, nil
}

func (s *AuctionService) notifyStatus(ctx context.Context, auction *domain.Auction) {
	s.notify(ctx, domain.EventAuctionStatusUpdate, func(ctx context.Context) error {
		return s.notifier.BroadcastToGroup(ctx, auction.ID, domain.EventAuctionStatusUpdate, domain.AuctionStatusUpdate{
			AuctionID: auction.ID,
			Status:    auction.Status,
		})
	})
}

// notify runs send with its own deadline, detached from the request so a
// client hanging up after commit still gets the event delivered. Failures are
// logged and dropped.
func (s *AuctionService) notify(ctx context.Context, event string, send func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sendTimeout)
	defer cancel()

	if err := send(ctx); err != nil {
		s.log.Warn("Failed to deliver notification", "event", event, "error", err)
	}
}
