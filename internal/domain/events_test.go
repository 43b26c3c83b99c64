package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeFrame(t *testing.T) {
	env, err := NewEnvelope(ScopeUser, "u2", EventOutbid, OutbidNotification{
		AuctionID: "a1",
		Title:     "Guitar",
		NewAmount: decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	require.Equal(t, ScopeUser, env.Scope)
	require.Equal(t, "u2", env.Target)

	frame, err := env.Frame()
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"OutbidNotification","data":{"auctionId":"a1","title":"Guitar","newAmount":"150"}}`, string(frame))
}

func TestNewEnvelopeRejectsUnencodablePayload(t *testing.T) {
	_, err := NewEnvelope(ScopeAll, "", EventNewAuction, make(chan int))
	require.Error(t, err)
}

func TestAuctionStatusText(t *testing.T) {
	for _, s := range []AuctionStatus{AuctionOpen, AuctionClosing, AuctionSold} {
		parsed, err := ParseAuctionStatus(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}

	_, err := ParseAuctionStatus("Deleted")
	require.Error(t, err)
	require.Equal(t, "Unknown", AuctionStatus(42).String())
}

func TestFindBid(t *testing.T) {
	a := &Auction{Bids: []*Bid{{ID: "b1"}, {ID: "b2"}}}
	require.Equal(t, "b2", a.FindBid("b2").ID)
	require.Nil(t, a.FindBid("b3"))
}
