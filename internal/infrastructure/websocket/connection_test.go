package websocket

import (
	"context"
	"testing"
	"time"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/stretchr/testify/require"
)

func TestSendDropsWhenQueueIsFull(t *testing.T) {
	c := &Connection{id: "c1", userID: "u1", send: make(chan []byte, 1), done: make(chan struct{})}

	require.NoError(t, c.Send([]byte("first")))
	require.ErrorIs(t, c.Send([]byte("second")), ErrSendBufferFull)
	require.Equal(t, "first", string(<-c.send))

	close(c.done)
	require.ErrorIs(t, c.Send([]byte("third")), ErrConnectionClosed)
}

// stuckConn never returns from Send until released.
type stuckConn struct {
	fakeConn
	release chan struct{}
}

func (c *stuckConn) Send(message []byte) error {
	<-c.release
	return c.fakeConn.Send(message)
}

func TestNotifierGivesUpWhenContextExpires(t *testing.T) {
	stuck := &stuckConn{fakeConn: fakeConn{id: "c1", userID: "u1"}, release: make(chan struct{})}
	defer close(stuck.release)
	cm := NewConnectionManager(logger.NewNop())
	require.NoError(t, cm.RegisterConnection(stuck))
	n := NewWebSocketNotifier(cm)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := n.BroadcastAll(ctx, domain.EventNewAuction, domain.NewAuctionNotification{AuctionID: "a1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	require.ErrorIs(t, n.NotifyUser(cancelled, "u1", domain.EventOutbid, domain.OutbidNotification{}), context.Canceled)
}
