package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"auction-house/internal/domain"
	"auction-house/internal/domain/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	auctions *SQLAuctionRepository
	users    *SQLUserRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := NewTestDB(t)
	f := &fixture{
		auctions: NewSQLAuctionRepository(db, SQLite, WithClock(SteppingClock(epoch, time.Second))),
		users:    NewSQLUserRepository(db, SQLite),
	}
	for _, u := range []*domain.User{{ID: "u1", Username: "alice"}, {ID: "u2", Username: "bob"}, {ID: "u3", Username: "carol"}} {
		require.NoError(t, f.users.UpsertUser(context.Background(), u))
	}
	return f
}

func (f *fixture) createAuction(t *testing.T, id, owner string) *domain.Auction {
	t.Helper()
	auction := &domain.Auction{
		ID:          id,
		Title:       "title " + id,
		Description: "description " + id,
		Status:      domain.AuctionOpen,
		OwnerID:     owner,
	}
	err := f.auctions.InTx(context.Background(), func(ctx context.Context, tx repositories.AuctionTx) error {
		return tx.CreateAuction(ctx, auction)
	})
	require.NoError(t, err)
	return auction
}

func (f *fixture) addBid(t *testing.T, id, auctionID, user string, amount int64) *domain.Bid {
	t.Helper()
	bid := &domain.Bid{ID: id, AuctionID: auctionID, UserID: user, Amount: decimal.NewFromInt(amount)}
	err := f.auctions.InTx(context.Background(), func(ctx context.Context, tx repositories.AuctionTx) error {
		return tx.AddBid(ctx, bid)
	})
	require.NoError(t, err)
	return bid
}

func TestCreateAndGetAuction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createAuction(t, "a1", "u1")
	require.Equal(t, epoch.Add(time.Second), created.CreatedAt)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := f.auctions.GetAuction(ctx, "a1", repositories.Include{Owner: true, Winner: true})
	require.NoError(t, err)
	require.Equal(t, "title a1", got.Title)
	require.Equal(t, domain.AuctionOpen, got.Status)
	require.Nil(t, got.Price)
	require.Nil(t, got.ImageURL)
	require.Nil(t, got.Winner)
	require.Equal(t, "alice", got.Owner.Username)
	require.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestGetAuctionWithoutIncludesLeavesRelationsEmpty(t *testing.T) {
	f := newFixture(t)
	f.createAuction(t, "a1", "u1")
	f.addBid(t, "b1", "a1", "u2", 10)

	got, err := f.auctions.GetAuction(context.Background(), "a1", repositories.Include{})
	require.NoError(t, err)
	require.Nil(t, got.Owner)
	require.Nil(t, got.Bids)
}

func TestGetMissingAuction(t *testing.T) {
	f := newFixture(t)

	_, err := f.auctions.GetAuction(context.Background(), "nope", repositories.Include{})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.auctions.GetBids(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBidsAreNewestFirstWithBidderNames(t *testing.T) {
	f := newFixture(t)
	f.createAuction(t, "a1", "u1")
	f.addBid(t, "b1", "a1", "u2", 100)
	f.addBid(t, "b2", "a1", "u3", 150)
	f.addBid(t, "b3", "a1", "u2", 120)

	bids, err := f.auctions.GetBids(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.Equal(t, []string{"b3", "b2", "b1"}, []string{bids[0].ID, bids[1].ID, bids[2].ID})
	require.Equal(t, "carol", bids[1].User.Username)
	require.True(t, decimal.NewFromInt(150).Equal(bids[1].Amount))
	require.True(t, bids[0].BidTime.After(bids[1].BidTime))
}

func TestSaveAuctionStampsUpdatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createAuction(t, "a1", "u1")
	f.addBid(t, "b1", "a1", "u2", 80)

	err := f.auctions.InTx(ctx, func(ctx context.Context, tx repositories.AuctionTx) error {
		auction, err := tx.GetAuctionForUpdate(ctx, "a1")
		if err != nil {
			return err
		}
		require.Len(t, auction.Bids, 1)
		price := auction.Bids[0].Amount
		winner := auction.Bids[0].UserID
		auction.Status = domain.AuctionSold
		auction.Price = &price
		auction.WinnerID = &winner
		return tx.SaveAuction(ctx, auction)
	})
	require.NoError(t, err)

	got, err := f.auctions.GetAuction(ctx, "a1", repositories.Include{Winner: true})
	require.NoError(t, err)
	require.Equal(t, domain.AuctionSold, got.Status)
	require.True(t, decimal.NewFromInt(80).Equal(*got.Price))
	require.Equal(t, "bob", got.Winner.Username)
	require.True(t, got.UpdatedAt.After(created.UpdatedAt))
	require.True(t, got.CreatedAt.Equal(created.CreatedAt))
}

func TestSaveDeletedAuctionIsRejected(t *testing.T) {
	f := newFixture(t)
	f.createAuction(t, "a1", "u1")

	err := f.auctions.InTx(context.Background(), func(ctx context.Context, tx repositories.AuctionTx) error {
		auction, err := tx.GetAuctionForUpdate(ctx, "a1")
		if err != nil {
			return err
		}
		auction.Status = domain.AuctionDeleted
		return tx.SaveAuction(ctx, auction)
	})
	require.ErrorIs(t, err, domain.ErrPersistence)
}

func TestInTxRollsBackOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createAuction(t, "a1", "u1")

	boom := errors.New("boom")
	err := f.auctions.InTx(ctx, func(ctx context.Context, tx repositories.AuctionTx) error {
		if err := tx.AddBid(ctx, &domain.Bid{ID: "b1", AuctionID: "a1", UserID: "u2", Amount: decimal.NewFromInt(5)}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	bids, err := f.auctions.GetBids(ctx, "a1")
	require.NoError(t, err)
	require.Empty(t, bids)
}

func TestInTxHonoursCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.auctions.InTx(ctx, func(ctx context.Context, tx repositories.AuctionTx) error {
		return nil
	})
	require.ErrorIs(t, err, domain.ErrPersistence)
}

func TestDeleteAuctionRemovesBids(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createAuction(t, "a1", "u1")
	f.addBid(t, "b1", "a1", "u2", 10)

	err := f.auctions.InTx(ctx, func(ctx context.Context, tx repositories.AuctionTx) error {
		return tx.DeleteAuction(ctx, "a1")
	})
	require.NoError(t, err)

	_, err = f.auctions.GetAuction(ctx, "a1", repositories.Include{})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, total, err := f.auctions.ListAuctions(ctx, repositories.AuctionFilter{BidderID: "u2"}, 0, 10)
	require.NoError(t, err)
	require.Zero(t, total)

	err = f.auctions.InTx(ctx, func(ctx context.Context, tx repositories.AuctionTx) error {
		return tx.DeleteAuction(ctx, "a1")
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAuctionsFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createAuction(t, "a1", "u1")
	f.createAuction(t, "a2", "u2")
	f.createAuction(t, "a3", "u1")
	f.createAuction(t, "a4", "u1")
	f.addBid(t, "b1", "a2", "u3", 10)
	f.addBid(t, "b2", "a4", "u3", 10)
	f.addBid(t, "b3", "a4", "u3", 20)

	err := f.auctions.InTx(ctx, func(ctx context.Context, tx repositories.AuctionTx) error {
		auction, err := tx.GetAuctionForUpdate(ctx, "a3")
		if err != nil {
			return err
		}
		auction.Status = domain.AuctionClosing
		return tx.SaveAuction(ctx, auction)
	})
	require.NoError(t, err)

	open := domain.AuctionOpen
	page, total, err := f.auctions.ListAuctions(ctx, repositories.AuctionFilter{Status: &open}, 0, 2)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, []string{"a4", "a2"}, ids(page))
	require.Equal(t, "alice", page[0].Owner.Username)

	page, _, err = f.auctions.ListAuctions(ctx, repositories.AuctionFilter{Status: &open}, 2, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a1"}, ids(page))

	page, total, err = f.auctions.ListAuctions(ctx, repositories.AuctionFilter{OwnerID: "u1"}, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, []string{"a4", "a3", "a1"}, ids(page))

	page, total, err = f.auctions.ListAuctions(ctx, repositories.AuctionFilter{BidderID: "u3"}, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, []string{"a4", "a2"}, ids(page))

	page, total, err = f.auctions.ListAuctions(ctx, repositories.AuctionFilter{OwnerID: "u3"}, 0, 10)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, page)
}

func TestUpsertUserRenames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.UpsertUser(ctx, &domain.User{ID: "u1", Username: "alice2"}))

	user, err := f.users.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice2", user.Username)

	_, err = f.users.GetUser(ctx, "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("mysql")
	require.NoError(t, err)
	require.Equal(t, " FOR UPDATE", d.lockSuffix)

	d, err = DialectFor("sqlite")
	require.NoError(t, err)
	require.Empty(t, d.lockSuffix)

	_, err = DialectFor("postgres")
	require.Error(t, err)
}

func ids(auctions []*domain.Auction) []string {
	out := make([]string, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, a.ID)
	}
	return out
}
