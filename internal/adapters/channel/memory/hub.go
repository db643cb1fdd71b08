package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
)

var ErrBindingClosed = errors.New("binding closed")

// Hub is an in-process shared channel. Each subscriber has an unbounded
// queue, so a publisher never blocks on a slow reader and nothing is dropped.
// Events reach every subscriber except their sender, in publish order.
type Hub struct {
	logger *slog.Logger

	mu       sync.Mutex
	channels map[string]map[domain.ParticipantID]*binding
}

var _ ports.Transport = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		logger:   logger.With("component", "hub"),
		channels: map[string]map[domain.ParticipantID]*binding{},
	}
}

// Bind subscribes participant to the channel. A participant binding again
// replaces its previous subscription, which is closed.
func (h *Hub) Bind(ctx context.Context, channel ports.ChannelInfo, participant domain.ParticipantID) (ports.Binding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if channel.UUID == "" {
		return nil, fmt.Errorf("bind channel: channel uuid is required")
	}

	b := newBinding(h, channel.UUID, participant)

	h.mu.Lock()
	subscribers := h.channels[channel.UUID]
	if subscribers == nil {
		subscribers = map[domain.ParticipantID]*binding{}
		h.channels[channel.UUID] = subscribers
	}
	previous := subscribers[participant]
	subscribers[participant] = b
	h.mu.Unlock()

	if previous != nil {
		previous.shutdown(nil)
	}

	h.logger.Debug("subscribed", "channel", channel.UUID, "participant", participant)
	return b, nil
}

// Sever drops a subscription as if the connection was lost. The binding's
// Err then matches domain.ErrTransportLoss.
func (h *Hub) Sever(channelUUID string, participant domain.ParticipantID) bool {
	h.mu.Lock()
	b := h.channels[channelUUID][participant]
	h.mu.Unlock()

	if b == nil {
		return false
	}
	h.remove(b)
	b.shutdown(fmt.Errorf("%w: connection to channel %s severed", domain.ErrTransportLoss, channelUUID))
	h.logger.Warn("subscription severed", "channel", channelUUID, "participant", participant)
	return true
}

// Subscribers lists the participants bound to a channel, sorted.
func (h *Hub) Subscribers(channelUUID string) []domain.ParticipantID {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]domain.ParticipantID, 0, len(h.channels[channelUUID]))
	for id := range h.channels[channelUUID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (h *Hub) publish(sender *binding, event domain.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers := h.channels[sender.channel]
	if subscribers[sender.participant] != sender {
		return ErrBindingClosed
	}
	for id, subscriber := range subscribers {
		if id == sender.participant {
			continue
		}
		subscriber.enqueue(event)
	}
	return nil
}

func (h *Hub) remove(b *binding) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers := h.channels[b.channel]
	if subscribers[b.participant] != b {
		return
	}
	delete(subscribers, b.participant)
	if len(subscribers) == 0 {
		delete(h.channels, b.channel)
	}
}

type binding struct {
	hub         *Hub
	channel     string
	participant domain.ParticipantID
	events      chan domain.Event
	done        chan struct{}
	notify      chan struct{}
	once        sync.Once

	mu    sync.Mutex
	queue []domain.Event
	err   error
}

func newBinding(hub *Hub, channel string, participant domain.ParticipantID) *binding {
	b := &binding{
		hub:         hub,
		channel:     channel,
		participant: participant,
		events:      make(chan domain.Event),
		done:        make(chan struct{}),
		notify:      make(chan struct{}, 1),
	}
	go b.pump()
	return b
}

func (b *binding) pump() {
	defer close(b.events)

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			select {
			case <-b.notify:
				continue
			case <-b.done:
				return
			}
		}
		event := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		select {
		case b.events <- event:
		case <-b.done:
			return
		}
	}
}

func (b *binding) enqueue(event domain.Event) {
	b.mu.Lock()
	b.queue = append(b.queue, event)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *binding) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-b.done:
		if err := b.Err(); err != nil {
			return err
		}
		return ErrBindingClosed
	default:
	}

	return b.hub.publish(b, event)
}

func (b *binding) Events() <-chan domain.Event {
	return b.events
}

func (b *binding) Done() <-chan struct{} {
	return b.done
}

func (b *binding) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *binding) Close() error {
	b.hub.remove(b)
	b.shutdown(nil)
	return nil
}

func (b *binding) shutdown(err error) {
	b.once.Do(func() {
		b.mu.Lock()
		b.err = err
		b.queue = nil
		b.mu.Unlock()
		close(b.done)
	})
}
