package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-house/internal/domain"
	"auction-house/internal/domain/repositories"

	"github.com/shopspring/decimal"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const auctionColumns = `a.id, a.title, a.description, a.image_url, a.status, a.owner_id,
        a.winner_id, a.price, a.created_at, a.updated_at`

const auctionWithUsers = `
        SELECT ` + auctionColumns + `, o.username, w.username
        FROM auctions a
        LEFT JOIN users o ON o.id = a.owner_id
        LEFT JOIN users w ON w.id = a.winner_id`

type Option func(*SQLAuctionRepository)

// WithClock replaces the clock used to stamp rows.
func WithClock(now func() time.Time) Option {
	return func(r *SQLAuctionRepository) {
		r.now = now
	}
}

type SQLAuctionRepository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ repositories.AuctionRepository = (*SQLAuctionRepository)(nil)

func NewSQLAuctionRepository(db *sql.DB, dialect Dialect, opts ...Option) *SQLAuctionRepository {
	r := &SQLAuctionRepository{db: db, dialect: dialect, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// stamp is the single source of row timestamps. MySQL keeps microseconds,
// so both engines store the same precision.
func (r *SQLAuctionRepository) stamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

func (r *SQLAuctionRepository) GetAuction(ctx context.Context, auctionID string, include repositories.Include) (*domain.Auction, error) {
	auction, err := scanAuctionWithUsers(r.db.QueryRowContext(ctx, auctionWithUsers+` WHERE a.id = ?`, auctionID))
	if err != nil {
		return nil, wrapLookup(err, "auction", auctionID)
	}
	if !include.Owner {
		auction.Owner = nil
	}
	if !include.Winner {
		auction.Winner = nil
	}

	if include.Bids || include.Bidders {
		bids, err := listBids(ctx, r.db, auctionID, include.Bidders)
		if err != nil {
			return nil, err
		}
		auction.Bids = bids
	}
	return auction, nil
}

func (r *SQLAuctionRepository) ListAuctions(ctx context.Context, filter repositories.AuctionFilter, skip, take int) ([]*domain.Auction, int, error) {
	where, args := filterClause(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM auctions a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: counting auctions: %w", domain.ErrPersistence, err)
	}

	query := auctionWithUsers + where + `
        ORDER BY a.created_at DESC, a.id DESC
        LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, take, skip)...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing auctions: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	auctions := make([]*domain.Auction, 0, take)
	for rows.Next() {
		auction, err := scanAuctionWithUsers(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning auction: %w", domain.ErrPersistence, err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: listing auctions: %w", domain.ErrPersistence, err)
	}

	return auctions, total, nil
}

func filterClause(filter repositories.AuctionFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.Status != nil {
		conds = append(conds, "a.status = ?")
		args = append(args, filter.Status.String())
	}
	if filter.OwnerID != "" {
		conds = append(conds, "a.owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.BidderID != "" {
		conds = append(conds, "a.id IN (SELECT b.auction_id FROM bids b WHERE b.user_id = ?)")
		args = append(args, filter.BidderID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetBids returns the auction's bids newest first with bidder names resolved.
func (r *SQLAuctionRepository) GetBids(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM auctions WHERE id = ?`, auctionID).Scan(&one); err != nil {
		return nil, wrapLookup(err, "auction", auctionID)
	}
	return listBids(ctx, r.db, auctionID, true)
}

func (r *SQLAuctionRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx repositories.AuctionTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", domain.ErrPersistence, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &auctionTx{tx: tx, repo: r}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrPersistence, err)
	}
	return nil
}

// auctionTx routes every statement through the open transaction. Touching
// repo.db from here would deadlock the single SQLite connection.
type auctionTx struct {
	tx   *sql.Tx
	repo *SQLAuctionRepository
}

func (t *auctionTx) GetAuctionForUpdate(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions a WHERE a.id = ?` + t.repo.dialect.lockSuffix
	auction, err := scanAuction(t.tx.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		return nil, wrapLookup(err, "auction", auctionID)
	}

	bids, err := listBids(ctx, t.tx, auctionID, false)
	if err != nil {
		return nil, err
	}
	auction.Bids = bids
	return auction, nil
}

func (t *auctionTx) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	now := t.repo.stamp()
	auction.CreatedAt = now
	auction.UpdatedAt = now

	query := `
        INSERT INTO auctions (id, title, description, image_url, status, owner_id, winner_id, price, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := t.tx.ExecContext(ctx, query,
		auction.ID, auction.Title, auction.Description, auction.ImageURL,
		auction.Status.String(), auction.OwnerID, auction.WinnerID, nullDecimal(auction.Price),
		auction.CreatedAt, auction.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: inserting auction %s: %w", domain.ErrPersistence, auction.ID, err)
	}
	return nil
}

func (t *auctionTx) SaveAuction(ctx context.Context, auction *domain.Auction) error {
	if auction.Status == domain.AuctionDeleted {
		return fmt.Errorf("%w: auction %s is deleted, not saved", domain.ErrPersistence, auction.ID)
	}
	auction.UpdatedAt = t.repo.stamp()

	query := `
        UPDATE auctions
        SET title = ?, description = ?, image_url = ?, status = ?, winner_id = ?, price = ?, updated_at = ?
        WHERE id = ?
    `
	_, err := t.tx.ExecContext(ctx, query,
		auction.Title, auction.Description, auction.ImageURL, auction.Status.String(),
		auction.WinnerID, nullDecimal(auction.Price), auction.UpdatedAt, auction.ID)
	if err != nil {
		return fmt.Errorf("%w: updating auction %s: %w", domain.ErrPersistence, auction.ID, err)
	}
	return nil
}

func (t *auctionTx) AddBid(ctx context.Context, bid *domain.Bid) error {
	bid.BidTime = t.repo.stamp()

	query := `
        INSERT INTO bids (id, auction_id, user_id, amount, bid_time)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := t.tx.ExecContext(ctx, query, bid.ID, bid.AuctionID, bid.UserID, bid.Amount, bid.BidTime)
	if err != nil {
		return fmt.Errorf("%w: inserting bid %s: %w", domain.ErrPersistence, bid.ID, err)
	}
	return nil
}

func (t *auctionTx) DeleteAuction(ctx context.Context, auctionID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM bids WHERE auction_id = ?`, auctionID); err != nil {
		return fmt.Errorf("%w: deleting bids of %s: %w", domain.ErrPersistence, auctionID, err)
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM auctions WHERE id = ?`, auctionID)
	if err != nil {
		return fmt.Errorf("%w: deleting auction %s: %w", domain.ErrPersistence, auctionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: auction %s", domain.ErrNotFound, auctionID)
	}
	return nil
}

func (t *auctionTx) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return getUser(ctx, t.tx, userID)
}

func listBids(ctx context.Context, q querier, auctionID string, withUsers bool) ([]*domain.Bid, error) {
	query := `
        SELECT b.id, b.auction_id, b.user_id, b.amount, b.bid_time, u.username
        FROM bids b
        LEFT JOIN users u ON u.id = b.user_id
        WHERE b.auction_id = ?
        ORDER BY b.bid_time DESC, b.id DESC
    `
	rows, err := q.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing bids of %s: %w", domain.ErrPersistence, auctionID, err)
	}
	defer rows.Close()

	bids := []*domain.Bid{}
	for rows.Next() {
		var bid domain.Bid
		var username sql.NullString
		if err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.UserID, &bid.Amount, &bid.BidTime, &username); err != nil {
			return nil, fmt.Errorf("%w: scanning bid: %w", domain.ErrPersistence, err)
		}
		if withUsers {
			bid.User = &domain.User{ID: bid.UserID, Username: username.String}
		}
		bids = append(bids, &bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing bids of %s: %w", domain.ErrPersistence, auctionID, err)
	}
	return bids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type auctionRow struct {
	auction  domain.Auction
	image    sql.NullString
	status   string
	winnerID sql.NullString
	price    decimal.NullDecimal
}

func (ar *auctionRow) dest() []any {
	a := &ar.auction
	return []any{&a.ID, &a.Title, &a.Description, &ar.image, &ar.status, &a.OwnerID,
		&ar.winnerID, &ar.price, &a.CreatedAt, &a.UpdatedAt}
}

func (ar *auctionRow) build() (*domain.Auction, error) {
	status, err := domain.ParseAuctionStatus(ar.status)
	if err != nil {
		return nil, err
	}
	a := ar.auction
	a.Status = status
	if ar.image.Valid {
		a.ImageURL = &ar.image.String
	}
	if ar.winnerID.Valid {
		a.WinnerID = &ar.winnerID.String
	}
	if ar.price.Valid {
		a.Price = &ar.price.Decimal
	}
	return &a, nil
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var ar auctionRow
	if err := row.Scan(ar.dest()...); err != nil {
		return nil, err
	}
	return ar.build()
}

func scanAuctionWithUsers(row rowScanner) (*domain.Auction, error) {
	var ar auctionRow
	var ownerName, winnerName sql.NullString
	if err := row.Scan(append(ar.dest(), &ownerName, &winnerName)...); err != nil {
		return nil, err
	}
	auction, err := ar.build()
	if err != nil {
		return nil, err
	}
	auction.Owner = &domain.User{ID: auction.OwnerID, Username: ownerName.String}
	if auction.WinnerID != nil {
		auction.Winner = &domain.User{ID: *auction.WinnerID, Username: winnerName.String}
	}
	return auction, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func wrapLookup(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	return fmt.Errorf("%w: loading %s %s: %w", domain.ErrPersistence, kind, id, err)
}
