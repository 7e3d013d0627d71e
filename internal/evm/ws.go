package evm

import "context"

// HeadSubscriber delivers new block headers over a persistent connection.
type HeadSubscriber interface {
	// SubscribeNewHeads subscribes to new block headers.
	// The returned release func unsubscribes; the channel is not closed by release.
	SubscribeNewHeads(ctx context.Context) (<-chan Head, func(), error)

	// Close closes the WebSocket connection.
	Close() error
}

// Head is a new block header notification.
type Head struct {
	Number uint64
	Hash   string
}
