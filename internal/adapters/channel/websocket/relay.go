// Package websocket carries the shared channel over websocket connections:
// Relay is the server side, Transport the participant side. Frames are
// CBOR-encoded domain events.
package websocket

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/codec"
	"github.com/bnema/classroom/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameBytes  = 1 << 20
	peerQueueDepth = 1024
)

// Rooms is the admission state the relay checks connections against.
type Rooms interface {
	Authorize(channelUUID string, participant domain.ParticipantID, token string) (application.Admission, error)
	Depart(channelUUID string, participant domain.ParticipantID, token string) bool
	MarkTerminated(sessionID domain.SessionID) error
}

// Relay fans frames out to every other connection on the same channel.
// View mutations from followers are dropped.
type Relay struct {
	rooms    Rooms
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	channels map[string]map[domain.ParticipantID]*peer
}

func NewRelay(rooms Rooms, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}

	return &Relay{
		rooms:  rooms,
		logger: logger.With("component", "relay"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		channels: map[string]map[domain.ParticipantID]*peer{},
	}
}

// Handler serves GET /channels/{channel}/ws.
func (r *Relay) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels/{channel}/ws", func(w http.ResponseWriter, req *http.Request) {
		r.ServeChannel(w, req, req.PathValue("channel"))
	})
	return mux
}

// ServeChannel authorizes the participant and token query parameters, then
// relays frames until the connection closes.
func (r *Relay) ServeChannel(w http.ResponseWriter, req *http.Request, channelUUID string) {
	participant := domain.ParticipantID(req.URL.Query().Get("participant"))
	token := req.URL.Query().Get("token")

	admission, err := r.rooms.Authorize(channelUUID, participant, token)
	if err != nil {
		r.logger.Warn("channel connection refused", "channel", channelUUID, "participant", participant, "error", err)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "channel", channelUUID, "participant", participant, "error", err)
		return
	}

	p := newPeer(conn, channelUUID, admission)
	if previous := r.register(p); previous != nil {
		previous.close(websocket.CloseNormalClosure, "replaced by a newer connection")
	}
	r.logger.Debug("channel connected", "channel", channelUUID, "participant", participant, "authority", admission.Participant.Authority)

	go p.writeLoop()
	err = r.readLoop(p)
	p.close(websocket.CloseNormalClosure, "")

	if r.unregister(p) && r.rooms.Depart(channelUUID, participant, token) {
		r.logger.Info("participant departed with its connection", "channel", channelUUID, "participant", participant)
	}
	if err != nil && !isNormalClose(err) {
		r.logger.Warn("channel connection lost", "channel", channelUUID, "participant", participant, "error", err)
	}
}

// Peers counts the connections open on a channel.
func (r *Relay) Peers(channelUUID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels[channelUUID])
}

// Close disconnects every peer with a going-away close frame.
func (r *Relay) Close() {
	r.mu.Lock()
	var peers []*peer
	for _, channel := range r.channels {
		for _, p := range channel {
			peers = append(peers, p)
		}
	}
	r.mu.Unlock()

	for _, p := range peers {
		p.close(websocket.CloseGoingAway, "relay shutting down")
	}
}

func (r *Relay) readLoop(p *peer) error {
	p.conn.SetReadLimit(maxFrameBytes)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	sender := p.admission.Participant
	for {
		kind, data, err := p.conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		var event domain.Event
		if err := codec.Unmarshal(data, &event); err != nil {
			r.logger.Warn("dropped undecodable frame", "channel", p.channel, "participant", sender.ID, "error", err)
			continue
		}
		if event.Type.MutatesView() && sender.Authority != domain.AuthorityBroadcaster {
			r.logger.Warn("dropped follower view mutation", "channel", p.channel, "participant", sender.ID, "event", event.Type)
			continue
		}

		event.Sender = sender.ID
		frame, err := codec.Marshal(event)
		if err != nil {
			r.logger.Warn("re-encode frame failed", "channel", p.channel, "participant", sender.ID, "error", err)
			continue
		}

		if event.Type == domain.EventSessionEnded {
			if err := r.rooms.MarkTerminated(p.admission.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				r.logger.Warn("mark session terminated failed", "session", p.admission.SessionID, "error", err)
			}
		}
		r.fanOut(p, frame)
	}
}

func (r *Relay) fanOut(sender *peer, frame []byte) {
	r.mu.Lock()
	targets := make([]*peer, 0, len(r.channels[sender.channel]))
	for id, p := range r.channels[sender.channel] {
		if id != sender.admission.Participant.ID {
			targets = append(targets, p)
		}
	}
	r.mu.Unlock()

	for _, p := range targets {
		if !p.enqueue(frame) {
			r.logger.Warn("slow peer disconnected", "channel", p.channel, "participant", p.admission.Participant.ID)
			p.close(websocket.CloseTryAgainLater, "send queue full")
		}
	}
}

func (r *Relay) register(p *peer) *peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := r.channels[p.channel]
	if peers == nil {
		peers = map[domain.ParticipantID]*peer{}
		r.channels[p.channel] = peers
	}
	id := p.admission.Participant.ID
	previous := peers[id]
	peers[id] = p
	return previous
}

// unregister reports whether p was still the participant's current peer.
func (r *Relay) unregister(p *peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := r.channels[p.channel]
	id := p.admission.Participant.ID
	if peers[id] != p {
		return false
	}
	delete(peers, id)
	if len(peers) == 0 {
		delete(r.channels, p.channel)
	}
	return true
}

type closeFrame struct {
	code int
	text string
}

type peer struct {
	conn      *websocket.Conn
	channel   string
	admission application.Admission
	send      chan []byte
	done      chan struct{}
	once      sync.Once
	reason    closeFrame
}

func newPeer(conn *websocket.Conn, channel string, admission application.Admission) *peer {
	return &peer{
		conn:      conn,
		channel:   channel,
		admission: admission,
		send:      make(chan []byte, peerQueueDepth),
		done:      make(chan struct{}),
	}
}

func (p *peer) enqueue(frame []byte) bool {
	select {
	case <-p.done:
		return true
	default:
	}

	select {
	case p.send <- frame:
		return true
	default:
		return false
	}
}

func (p *peer) close(code int, text string) {
	p.once.Do(func() {
		p.reason = closeFrame{code: code, text: text}
		close(p.done)
	})
}

func (p *peer) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case frame := <-p.send:
			if err := p.write(websocket.BinaryMessage, frame); err != nil {
				p.close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := p.write(websocket.PingMessage, nil); err != nil {
				p.close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-p.done:
			p.drain()
			_ = p.write(websocket.CloseMessage, websocket.FormatCloseMessage(p.reason.code, p.reason.text))
			return
		}
	}
}

// drain flushes frames queued before the peer closed.
func (p *peer) drain() {
	for {
		select {
		case frame := <-p.send:
			if err := p.write(websocket.BinaryMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (p *peer) write(kind int, data []byte) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.conn.WriteMessage(kind, data)
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
