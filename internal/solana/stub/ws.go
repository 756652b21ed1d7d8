package stub

import (
	"context"
	"sync"

	"solana-token-catalog/internal/solana"
)

// WSClient implements solana.WSClient for testing. Notifications pushed
// through Emit are delivered to every active subscription.
type WSClient struct {
	mu     sync.Mutex
	subs   []chan solana.LogNotification
	closed bool
}

var _ solana.WSClient = (*WSClient)(nil)

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{}
}

// SubscribeLogs returns a buffered notification channel.
func (c *WSClient) SubscribeLogs(_ context.Context, _ solana.LogsFilter) (<-chan solana.LogNotification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan solana.LogNotification, 100)
	c.subs = append(c.subs, ch)
	return ch, nil
}

// Emit delivers a notification to all subscribers.
func (c *WSClient) Emit(n solana.LogNotification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	for _, ch := range c.subs {
		ch <- n
	}
}

// Close closes all subscription channels.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	return nil
}
