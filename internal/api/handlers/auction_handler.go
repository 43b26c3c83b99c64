package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"auction-house/internal/api/middleware"
	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// AuctionService is the facade the HTTP layer drives.
type AuctionService interface {
	ListOpenAuctions(ctx context.Context, pageNumber, pageSize int) (*domain.Page[*domain.Auction], error)
	ListByOwner(ctx context.Context, userID string, pageNumber, pageSize int) (*domain.Page[*domain.Auction], error)
	ListParticipatedIn(ctx context.Context, userID string, pageNumber, pageSize int) (*domain.Page[*domain.Auction], error)
	GetAuctionByID(ctx context.Context, auctionID string) (*domain.Auction, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error)
	CreateAuction(ctx context.Context, ownerID, title, description string, image []byte) (*domain.Auction, error)
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (*domain.Bid, error)
	CloseAuction(ctx context.Context, auctionID, actorID string) (*domain.Auction, error)
	SellAuction(ctx context.Context, auctionID, actorID, winningBidID string) (*domain.Auction, error)
	DeleteAuction(ctx context.Context, auctionID, actorID string) error
}

type AuctionHandlerConfig struct {
	DefaultPageSize int
	MaxImageBytes   int64
}

type AuctionHandler struct {
	auctions        AuctionService
	defaultPageSize int
	maxImageBytes   int64
	log             logger.Logger
}

func NewAuctionHandler(auctions AuctionService, cfg AuctionHandlerConfig, log logger.Logger) *AuctionHandler {
	if cfg.DefaultPageSize < 1 {
		cfg.DefaultPageSize = 10
	}
	return &AuctionHandler{
		auctions:        auctions,
		defaultPageSize: cfg.DefaultPageSize,
		maxImageBytes:   cfg.MaxImageBytes,
		log:             log,
	}
}

// Register mounts the auction routes on api. Mutations and the /users/me
// listings go through requireUser.
func (h *AuctionHandler) Register(api *echo.Group, requireUser echo.MiddlewareFunc) {
	api.GET("/auctions", h.ListOpenAuctions)
	api.GET("/auctions/:id", h.GetAuction)
	api.GET("/auctions/:id/bids", h.GetBids)

	api.POST("/auctions", h.CreateAuction, requireUser)
	api.POST("/auctions/:id/bid", h.PlaceBid, requireUser)
	api.PUT("/auctions/:id/close", h.CloseAuction, requireUser)
	api.PUT("/auctions/:id/sell", h.SellAuction, requireUser)
	api.DELETE("/auctions/:id", h.DeleteAuction, requireUser)

	api.GET("/users/me/auctions", h.ListMyAuctions, requireUser)
	api.GET("/users/me/bids", h.ListMyBids, requireUser)
}

func (h *AuctionHandler) ListOpenAuctions(c echo.Context) error {
	pageNumber, pageSize, err := h.paging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	page, err := h.auctions.ListOpenAuctions(c.Request().Context(), pageNumber, pageSize)
	if err != nil {
		return h.respondError(c, "list_open", err)
	}
	return c.JSON(http.StatusOK, toPagedResult(page))
}

func (h *AuctionHandler) ListMyAuctions(c echo.Context) error {
	pageNumber, pageSize, err := h.paging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	user := middleware.CurrentUser(c)
	page, err := h.auctions.ListByOwner(c.Request().Context(), user.ID, pageNumber, pageSize)
	if err != nil {
		return h.respondError(c, "list_owned", err)
	}
	return c.JSON(http.StatusOK, toPagedResult(page))
}

func (h *AuctionHandler) ListMyBids(c echo.Context) error {
	pageNumber, pageSize, err := h.paging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	user := middleware.CurrentUser(c)
	page, err := h.auctions.ListParticipatedIn(c.Request().Context(), user.ID, pageNumber, pageSize)
	if err != nil {
		return h.respondError(c, "list_participated", err)
	}
	return c.JSON(http.StatusOK, toPagedResult(page))
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auction, err := h.auctions.GetAuctionByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, "get_auction", err)
	}
	return c.JSON(http.StatusOK, toAuctionDto(auction))
}

func (h *AuctionHandler) GetBids(c echo.Context) error {
	bids, err := h.auctions.GetBidsForAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, "get_bids", err)
	}
	return c.JSON(http.StatusOK, toBidDtos(bids))
}

// CreateAuction takes a multipart form with title, description and an
// optional image file.
func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	image, err := h.readImage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	user := middleware.CurrentUser(c)
	auction, err := h.auctions.CreateAuction(c.Request().Context(), user.ID,
		c.FormValue("title"), c.FormValue("description"), image)
	if err != nil {
		return h.respondError(c, "create_auction", err)
	}

	c.Response().Header().Set(echo.HeaderLocation, "/api/auctions/"+auction.ID)
	return c.JSON(http.StatusCreated, toAuctionDto(auction))
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	user := middleware.CurrentUser(c)
	bid, err := h.auctions.PlaceBid(c.Request().Context(), c.Param("id"), user.ID, req.Amount)
	if err != nil {
		return h.respondError(c, "place_bid", err)
	}
	return c.JSON(http.StatusCreated, toBidDto(bid))
}

func (h *AuctionHandler) CloseAuction(c echo.Context) error {
	user := middleware.CurrentUser(c)
	auction, err := h.auctions.CloseAuction(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return h.respondError(c, "close_auction", err)
	}
	return c.JSON(http.StatusOK, toAuctionDto(auction))
}

func (h *AuctionHandler) SellAuction(c echo.Context) error {
	var req SellAuctionRequest
	if err := c.Bind(&req); err != nil || req.WinningBidID == "" {
		return badRequest(c, "winningBidId is required")
	}

	user := middleware.CurrentUser(c)
	auction, err := h.auctions.SellAuction(c.Request().Context(), c.Param("id"), user.ID, req.WinningBidID)
	if err != nil {
		return h.respondError(c, "sell_auction", err)
	}
	return c.JSON(http.StatusOK, toAuctionDto(auction))
}

func (h *AuctionHandler) DeleteAuction(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if err := h.auctions.DeleteAuction(c.Request().Context(), c.Param("id"), user.ID); err != nil {
		return h.respondError(c, "delete_auction", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuctionHandler) paging(c echo.Context) (int, int, error) {
	pageNumber, err := intParam(c, "pageNumber", 1)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := intParam(c, "pageSize", h.defaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	return pageNumber, pageSize, nil
}

func intParam(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// readImage returns the uploaded image bytes, or nil when none was sent.
func (h *AuctionHandler) readImage(c echo.Context) ([]byte, error) {
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		// Plain urlencoded forms carry no files.
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid multipart form")
	}
	if h.maxImageBytes > 0 && header.Size > h.maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", h.maxImageBytes)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("unreadable image")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("unreadable image")
	}
	return data, nil
}
