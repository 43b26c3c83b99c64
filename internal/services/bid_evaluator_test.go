package services

import (
	"testing"
	"time"

	"auction-house/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func bidAt(id, user string, amount int64, offset time.Duration) *domain.Bid {
	return &domain.Bid{
		ID:      id,
		UserID:  user,
		Amount:  decimal.NewFromInt(amount),
		BidTime: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Add(offset),
	}
}

func TestEvaluateBid(t *testing.T) {
	tests := []struct {
		name       string
		existing   []*domain.Bid
		amount     int64
		bidder     string
		wantPrice  int64
		wantOutbid *OutbidTarget
	}{
		{
			name:      "first bid sets the price",
			amount:    100,
			bidder:    "u2",
			wantPrice: 100,
		},
		{
			name:       "higher bid outbids the leader",
			existing:   []*domain.Bid{bidAt("b1", "u2", 100, 0)},
			amount:     150,
			bidder:     "u3",
			wantPrice:  150,
			wantOutbid: &OutbidTarget{UserID: "u2", Amount: decimal.NewFromInt(100)},
		},
		{
			name:      "lower bid keeps the price",
			existing:  []*domain.Bid{bidAt("b1", "u2", 150, 0)},
			amount:    120,
			bidder:    "u3",
			wantPrice: 150,
		},
		{
			name:      "equal bid is not an outbid",
			existing:  []*domain.Bid{bidAt("b1", "u2", 150, 0)},
			amount:    150,
			bidder:    "u3",
			wantPrice: 150,
		},
		{
			name:      "leader raising own bid is not notified",
			existing:  []*domain.Bid{bidAt("b1", "u2", 100, 0), bidAt("b2", "u3", 50, time.Second)},
			amount:    200,
			bidder:    "u2",
			wantPrice: 200,
		},
		{
			name: "tie at the max belongs to the earliest bid",
			existing: []*domain.Bid{
				bidAt("b2", "u3", 100, 2*time.Second),
				bidAt("b1", "u2", 100, time.Second),
			},
			amount:     120,
			bidder:     "u4",
			wantPrice:  120,
			wantOutbid: &OutbidTarget{UserID: "u2", Amount: decimal.NewFromInt(100)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := EvaluateBid(tt.existing, decimal.NewFromInt(tt.amount), tt.bidder)

			require.True(t, eval.Accepted)
			require.True(t, decimal.NewFromInt(tt.wantPrice).Equal(eval.NewCurrentPrice),
				"price %s", eval.NewCurrentPrice)
			if tt.wantOutbid == nil {
				require.Nil(t, eval.Outbid)
				return
			}
			require.NotNil(t, eval.Outbid)
			require.Equal(t, tt.wantOutbid.UserID, eval.Outbid.UserID)
			require.True(t, tt.wantOutbid.Amount.Equal(eval.Outbid.Amount))
		})
	}
}

func TestLeaderOfNoBids(t *testing.T) {
	require.Nil(t, Leader(nil))
}
