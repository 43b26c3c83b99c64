package domain

import "context"

//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks auction-house/internal/domain Notifier

// Notifier fans lifecycle and bid events out to realtime subscribers.
type Notifier interface {
	BroadcastAll(ctx context.Context, event string, payload interface{}) error
	BroadcastToGroup(ctx context.Context, auctionID, event string, payload interface{}) error
	NotifyUser(ctx context.Context, userID, event string, payload interface{}) error
}

// Event interfaces
type EventPublisher interface {
	Publish(ctx context.Context, env *Envelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

type EventHandler func(env *Envelope) error

// WebSocket interfaces
type WebSocketConnection interface {
	ID() string
	UserID() string
	Send(message []byte) error
	Ping() error
	Close() error
}

type ConnectionManager interface {
	RegisterConnection(conn WebSocketConnection) error
	UnregisterConnection(connID string) error
	JoinGroup(connID, auctionID string) error
	LeaveGroup(connID, auctionID string) error
	BroadcastAll(message []byte) error
	BroadcastToGroup(auctionID string, message []byte) error
	NotifyUser(userID string, message []byte) error
	Sweep() int
}

// ImageStore persists an uploaded auction image and returns its public URL.
type ImageStore interface {
	Save(ctx context.Context, data []byte) (string, error)
	// Remove deletes an image previously returned by Save. Unknown URLs are a no-op.
	Remove(ctx context.Context, url string) error
}
