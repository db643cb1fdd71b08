package ports

import (
	"context"

	"github.com/bnema/classroom/internal/domain"
)

type ChannelInfo struct {
	UUID  string
	Token string
}

// Transport is the real-time channel capability. Events published by one
// sender reach every other current subscriber in the order they were sent.
type Transport interface {
	Bind(ctx context.Context, channel ChannelInfo, participant domain.ParticipantID) (Binding, error)
}

// Binding is one participant's subscription to a channel.
type Binding interface {
	Publish(ctx context.Context, event domain.Event) error
	// Events is closed once the binding is done.
	Events() <-chan domain.Event
	Done() <-chan struct{}
	// Err is nil after Close and wraps domain.ErrTransportLoss when the
	// connection dropped.
	Err() error
	Close() error
}
