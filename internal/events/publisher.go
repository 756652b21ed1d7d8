package events

import (
	"context"
	"log"
)

// Publisher delivers events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the process log. It is the default sink when
// no broker is configured.
type LogPublisher struct {
	logger *log.Logger
}

var _ Publisher = (*LogPublisher)(nil)

// NewLogPublisher creates a publisher that logs events.
func NewLogPublisher(logger *log.Logger) *LogPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	switch e.Type {
	case TypePriceAlert:
		p.logger.Printf("[events] %s mint=%s price=%.8f prev=%.8f change=%.2f%%",
			e.Type, e.Mint, e.Price, e.PrevPrice, e.ChangePct)
	case TypeStatusChanged:
		p.logger.Printf("[events] %s mint=%s %s -> %s", e.Type, e.Mint, e.FromStatus, e.ToStatus)
	default:
		p.logger.Printf("[events] %s mint=%s source=%s", e.Type, e.Mint, e.Source)
	}
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
