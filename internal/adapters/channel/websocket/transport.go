package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bnema/classroom/internal/codec"
	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
	"github.com/gorilla/websocket"
)

var ErrBindingClosed = errors.New("binding closed")

// Transport dials the relay for each binding.
type Transport struct {
	base   *url.URL
	dialer *websocket.Dialer
	logger *slog.Logger
}

var _ ports.Transport = (*Transport)(nil)

// NewTransport takes the relay's base URL. http and https are mapped to ws
// and wss.
func NewTransport(baseURL string, logger *slog.Logger) (*Transport, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	switch base.Scheme {
	case "http", "ws":
		base.Scheme = "ws"
	case "https", "wss":
		base.Scheme = "wss"
	default:
		return nil, fmt.Errorf("parse relay url: unsupported scheme %q", base.Scheme)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		base: base,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
		logger: logger.With("component", "ws-transport"),
	}, nil
}

func (t *Transport) channelURL(channel ports.ChannelInfo, participant domain.ParticipantID) string {
	u := t.base.JoinPath("channels", channel.UUID, "ws")
	u.RawQuery = url.Values{
		"participant": {string(participant)},
		"token":       {channel.Token},
	}.Encode()
	return u.String()
}

func (t *Transport) Bind(ctx context.Context, channel ports.ChannelInfo, participant domain.ParticipantID) (ports.Binding, error) {
	if channel.UUID == "" {
		return nil, fmt.Errorf("bind channel: channel uuid is required")
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.channelURL(channel, participant), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("dial channel %s: %w", channel.UUID, domain.ErrInvalidToken)
		}
		return nil, fmt.Errorf("dial channel %s: %w", channel.UUID, err)
	}

	b := &binding{
		conn:    conn,
		channel: channel.UUID,
		logger:  t.logger.With("channel", channel.UUID, "participant", participant),
		events:  make(chan domain.Event),
		done:    make(chan struct{}),
	}
	go b.readLoop()
	return b, nil
}

type binding struct {
	conn    *websocket.Conn
	channel string
	logger  *slog.Logger
	events  chan domain.Event
	done    chan struct{}
	once    sync.Once
	writeMu sync.Mutex

	mu  sync.Mutex
	err error
}

func (b *binding) readLoop() {
	defer close(b.events)

	b.conn.SetReadLimit(maxFrameBytes)
	for {
		kind, data, err := b.conn.ReadMessage()
		if err != nil {
			b.shutdown(fmt.Errorf("%w: read channel %s: %w", domain.ErrTransportLoss, b.channel, err))
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		var event domain.Event
		if err := codec.Unmarshal(data, &event); err != nil {
			b.logger.Warn("dropped undecodable frame", "error", err)
			continue
		}

		select {
		case b.events <- event:
		case <-b.done:
			return
		}
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

	frame, err := codec.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTransportLoss, err)
	}
	if err := b.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		err = fmt.Errorf("%w: write channel %s: %w", domain.ErrTransportLoss, b.channel, err)
		b.shutdown(err)
		return err
	}
	return nil
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

// Close sends a normal close frame and releases the connection.
func (b *binding) Close() error {
	if !b.shutdown(nil) {
		return nil
	}

	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return b.conn.Close()
}

// shutdown records err and closes done. It reports whether this call was the
// one that shut the binding down.
func (b *binding) shutdown(err error) bool {
	first := false
	b.once.Do(func() {
		first = true
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		close(b.done)
	})
	if first && err != nil {
		b.logger.Warn("channel connection lost", "error", err)
		_ = b.conn.Close()
	}
	return first
}
