package application

import (
	"context"
	"sync"
	"testing"
	"time"

	channelmemory "github.com/bnema/classroom/internal/adapters/channel/memory"
	"github.com/bnema/classroom/internal/adapters/devices/static"
	surfacememory "github.com/bnema/classroom/internal/adapters/surface/memory"
	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
	"github.com/stretchr/testify/require"
)

var testViewport = domain.Size{Width: 1280, Height: 720}

// instantClock fires every timer at once and remembers the requested delays.
type instantClock struct {
	mu     sync.Mutex
	now    time.Time
	delays []time.Duration
}

func newInstantClock() *instantClock {
	return &instantClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	now := c.now
	c.mu.Unlock()

	fired := make(chan time.Time, 1)
	fired <- now.Add(d)
	return fired
}

func (c *instantClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

type testRoom struct {
	rooms     *RoomManager
	hub       *channelmemory.Hub
	transport *toggleTransport
	surfaces  *surfacememory.Factory
	scenes    ports.SceneStore
	clock     *instantClock
	policy    Policy
}

func newTestRoom(t *testing.T) *testRoom {
	t.Helper()
	return newTestRoomWithScenes(t, newMemorySceneStore())
}

func newTestRoomWithScenes(t *testing.T, scenes ports.SceneStore) *testRoom {
	t.Helper()

	clock := newInstantClock()
	hub := channelmemory.NewHub(nil)
	surfaces := surfacememory.NewFactory(testViewport)
	transport := &toggleTransport{next: hub}

	policy := DefaultPolicy()
	policy.SyncDeadline = 2 * time.Second
	policy.RebindDelay = 0
	policy.Reconnect = ReconnectPolicy{MaxRetries: 3, RetryDelay: time.Second, MaxRetryDelay: 4 * time.Second}

	return &testRoom{
		rooms:     NewRoomManager(transport, surfaces, scenes, clock, nil),
		hub:       hub,
		transport: transport,
		surfaces:  surfaces,
		scenes:    scenes,
		clock:     clock,
		policy:    policy,
	}
}

func (r *testRoom) client(t *testing.T, sessionID domain.SessionID, participantID domain.ParticipantID, role domain.Role, failing ...domain.DeviceCheck) *Client {
	t.Helper()

	client, err := NewClient(ClientConfig{
		SessionID:     sessionID,
		ParticipantID: participantID,
		Role:          role,
		Policy:        r.policy,
	}, r.rooms, static.NewDevices(failing...), r.clock, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Leave(context.Background()) })
	return client
}

func (r *testRoom) surface(t *testing.T, participantID domain.ParticipantID) *surfacememory.Surface {
	t.Helper()

	surface, ok := r.surfaces.Surface(participantID)
	require.True(t, ok, "no surface for %s", participantID)
	return surface
}

// addDeck stores a scene directory with the given number of scenes.
func (r *testRoom) addDeck(t *testing.T, name string, scenes int) {
	t.Helper()

	dir := domain.SceneDirectory{Name: name, SessionID: "math-101"}
	require.NoError(t, r.scenes.CreateDirectory(context.Background(), dir))
	for i := 0; i < scenes; i++ {
		require.NoError(t, r.scenes.AppendScene(context.Background(), name, domain.Scene{Index: i, Page: i + 1}))
	}
}

func waitForState(t *testing.T, client *Client, state domain.GateState) {
	t.Helper()

	require.Eventually(t, func() bool {
		return client.Gate().State() == state
	}, 3*time.Second, 5*time.Millisecond, "gate of %s never reached %s (now %s)", client.ParticipantID(), state, client.Gate().State())
}

func waitForCamera(t *testing.T, surface *surfacememory.Surface, camera domain.Camera) {
	t.Helper()

	require.Eventually(t, func() bool {
		return surface.Snapshot().Camera == camera
	}, 3*time.Second, 5*time.Millisecond, "surface camera never became %+v (now %+v)", camera, surface.Snapshot().Camera)
}

// failingTransport refuses every bind.
type failingTransport struct {
	err error
}

func (f failingTransport) Bind(context.Context, ports.ChannelInfo, domain.ParticipantID) (ports.Binding, error) {
	return nil, f.err
}

// toggleTransport forwards binds until a failure is switched on.
type toggleTransport struct {
	next ports.Transport

	mu    sync.Mutex
	err   error
	once  bool
	binds int
}

func (t *toggleTransport) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
	t.once = false
}

// FailOnce refuses the next bind only.
func (t *toggleTransport) FailOnce(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
	t.once = true
}

// Binds counts bind attempts, refused ones included.
func (t *toggleTransport) Binds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.binds
}

func (t *toggleTransport) Bind(ctx context.Context, channel ports.ChannelInfo, participant domain.ParticipantID) (ports.Binding, error) {
	t.mu.Lock()
	t.binds++
	err := t.err
	if t.once {
		t.err, t.once = nil, false
	}
	t.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return t.next.Bind(ctx, channel, participant)
}

// blockingTransport holds every bind until ctx ends or release is closed.
type blockingTransport struct {
	next    ports.Transport
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingTransport) Bind(ctx context.Context, channel ports.ChannelInfo, participant domain.ParticipantID) (ports.Binding, error) {
	b.once.Do(func() { close(b.started) })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
		return b.next.Bind(ctx, channel, participant)
	}
}
