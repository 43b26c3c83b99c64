package websocket

import (
	"context"

	"auction-house/internal/domain"
)

// WebSocketNotifier delivers straight to this instance's connections. Used
// when a single instance serves every client.
type WebSocketNotifier struct {
	connManager domain.ConnectionManager
}

var _ domain.Notifier = (*WebSocketNotifier)(nil)

func NewWebSocketNotifier(connManager domain.ConnectionManager) *WebSocketNotifier {
	return &WebSocketNotifier{connManager: connManager}
}

func (n *WebSocketNotifier) BroadcastAll(ctx context.Context, event string, payload interface{}) error {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}
	return deliver(ctx, func() error { return n.connManager.BroadcastAll(frame) })
}

func (n *WebSocketNotifier) BroadcastToGroup(ctx context.Context, auctionID, event string, payload interface{}) error {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}
	return deliver(ctx, func() error { return n.connManager.BroadcastToGroup(auctionID, frame) })
}

func (n *WebSocketNotifier) NotifyUser(ctx context.Context, userID, event string, payload interface{}) error {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}
	return deliver(ctx, func() error { return n.connManager.NotifyUser(userID, frame) })
}

// deliver returns when send finishes or ctx is done, whichever comes first.
// A send still running after ctx expires finishes in the background.
func deliver(ctx context.Context, send func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- send() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func encodeFrame(event string, payload interface{}) ([]byte, error) {
	env, err := domain.NewEnvelope("", "", event, payload)
	if err != nil {
		return nil, err
	}
	return env.Frame()
}
