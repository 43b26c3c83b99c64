package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/stretchr/testify/require"
)

type delivery struct {
	kind   string
	target string
	frame  []byte
}

type fakeConnectionManager struct {
	mu        sync.Mutex
	delivered []delivery
	sweeps    int
}

func (m *fakeConnectionManager) add(kind, target string, frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, delivery{kind: kind, target: target, frame: frame})
	return nil
}

func (m *fakeConnectionManager) RegisterConnection(domain.WebSocketConnection) error { return nil }
func (m *fakeConnectionManager) UnregisterConnection(string) error                   { return nil }
func (m *fakeConnectionManager) JoinGroup(string, string) error                      { return nil }
func (m *fakeConnectionManager) LeaveGroup(string, string) error                     { return nil }

func (m *fakeConnectionManager) BroadcastAll(message []byte) error {
	return m.add("all", "", message)
}

func (m *fakeConnectionManager) BroadcastToGroup(auctionID string, message []byte) error {
	return m.add("group", auctionID, message)
}

func (m *fakeConnectionManager) NotifyUser(userID string, message []byte) error {
	return m.add("user", userID, message)
}

func (m *fakeConnectionManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps++
	return 1
}

func (m *fakeConnectionManager) sweepCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweeps
}

// loopbackBus hands published envelopes straight to the subscribed handler.
type loopbackBus struct {
	handler domain.EventHandler
	ready   chan struct{}
}

func (b *loopbackBus) Publish(_ context.Context, env *domain.Envelope) error {
	<-b.ready
	return b.handler(env)
}

func (b *loopbackBus) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	b.handler = handler
	close(b.ready)
	<-ctx.Done()
	return ctx.Err()
}

func TestBusNotifierRoundTripsThroughRelay(t *testing.T) {
	cm := &fakeConnectionManager{}
	relay := NewEventRelay(cm, logger.NewNop())
	bus := &loopbackBus{ready: make(chan struct{})}
	notifier := NewBusNotifier(bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Start(ctx, bus) }()

	require.NoError(t, notifier.BroadcastAll(ctx, domain.EventNewAuction, domain.NewAuctionNotification{AuctionID: "a1", Title: "Lamp"}))
	require.NoError(t, notifier.BroadcastToGroup(ctx, "a1", domain.EventAuctionStatusUpdate, domain.AuctionStatusUpdate{AuctionID: "a1", Status: domain.AuctionClosing}))
	require.NoError(t, notifier.NotifyUser(ctx, "u2", domain.EventOutbid, domain.OutbidNotification{AuctionID: "a1", Title: "Lamp"}))

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}

	require.Len(t, cm.delivered, 3)
	require.Equal(t, "all", cm.delivered[0].kind)
	require.Equal(t, "group", cm.delivered[1].kind)
	require.Equal(t, "a1", cm.delivered[1].target)
	require.Equal(t, "user", cm.delivered[2].kind)
	require.Equal(t, "u2", cm.delivered[2].target)

	var frame struct {
		Event string `json:"event"`
		Data  struct {
			AuctionID string `json:"auctionId"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(cm.delivered[1].frame, &frame))
	require.Equal(t, domain.EventAuctionStatusUpdate, frame.Event)
	require.Equal(t, "Closing", frame.Data.Status)
}

func TestRelayRejectsUnknownScope(t *testing.T) {
	relay := NewEventRelay(&fakeConnectionManager{}, logger.NewNop())
	err := relay.Deliver(&domain.Envelope{Scope: "planet", Event: "x", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *domain.Envelope) error {
	return errors.New("no broker")
}

func TestBusNotifierSurfacesPublishErrors(t *testing.T) {
	err := NewBusNotifier(failingPublisher{}).NotifyUser(context.Background(), "u1", domain.EventOutbid, nil)
	require.EqualError(t, err, "no broker")
}

func TestConnectionSweeperRunsOnSchedule(t *testing.T) {
	cm := &fakeConnectionManager{}
	sweeper := NewConnectionSweeper("@every 1s", cm, logger.NewNop())
	require.NoError(t, sweeper.Start())
	defer sweeper.Stop()

	require.Eventually(t, func() bool { return cm.sweepCount() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestConnectionSweeperRejectsBadSpec(t *testing.T) {
	sweeper := NewConnectionSweeper("every now and then", &fakeConnectionManager{}, logger.NewNop())
	require.Error(t, sweeper.Start())
}
