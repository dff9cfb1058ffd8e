package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheerer/dmx-light-control/internal/animation"
	"github.com/scheerer/dmx-light-control/internal/color"
	"github.com/scheerer/dmx-light-control/internal/dmx"
	"github.com/scheerer/dmx-light-control/internal/fixture"
)

type recordingTransport struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
}

func (r *recordingTransport) Send(packet []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, append([]byte(nil), packet...))
	return r.err
}

func (r *recordingTransport) sent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.packets)
}

type observerFunc func(ctx context.Context, tick uint64, channels []uint8)

func (f observerFunc) ObserveFrame(ctx context.Context, tick uint64, channels []uint8) {
	f(ctx, tick, channels)
}

type constantSource int

func (c constantSource) Intn(n int) int { return int(c) % n }

func newRegistry(t *testing.T, maxFixtures int, fixtures ...*fixture.Fixture) *fixture.Registry {
	t.Helper()
	r, err := fixture.NewRegistry(maxFixtures)
	require.NoError(t, err)
	for _, f := range fixtures {
		require.NoError(t, r.Add(f))
	}
	return r
}

func newFixture(t *testing.T, address int, a animation.Animation) *fixture.Fixture {
	t.Helper()
	f, err := fixture.New(address, a)
	require.NoError(t, err)
	return f
}

func TestRunRejectsNegativeDuration(t *testing.T) {
	transport := &recordingTransport{}
	s := New(newRegistry(t, 10, newFixture(t, 0, animation.Fixed(color.New(1, 2, 3)))), transport, WithInterval(0))

	err := s.Run(context.Background(), -1)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Zero(t, transport.sent())
	assert.Equal(t, Idle, s.State())
}

func TestRunSingleTickEndToEnd(t *testing.T) {
	transport := &recordingTransport{}
	registry := newRegistry(t, 10, newFixture(t, 0, animation.Fixed(color.New(10, 20, 30))))
	s := New(registry, transport, WithInterval(0))

	require.NoError(t, s.Run(context.Background(), 1))
	assert.Equal(t, Stopped, s.State())

	want := make([]uint8, 30)
	copy(want, []uint8{10, 20, 30})
	assert.Equal(t, want, s.Channels())

	require.Equal(t, 1, transport.sent())
	frame, err := dmx.Decode(transport.packets[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30}, frame.Payload[:3])
	assert.Equal(t, make([]byte, dmx.PayloadSize-3), frame.Payload[3:])
}

func TestRunSendsOneFramePerTick(t *testing.T) {
	transport := &recordingTransport{}
	strobe, err := animation.FixedStrobe(color.New(255, 255, 255), 3, 2)
	require.NoError(t, err)
	s := New(newRegistry(t, 2, newFixture(t, 3, strobe)), transport, WithInterval(0))

	require.NoError(t, s.Run(context.Background(), 6))
	require.Equal(t, 6, transport.sent())

	var levels []uint8
	for _, p := range transport.packets {
		levels = append(levels, p[dmx.HeaderSize+3])
	}
	assert.Equal(t, []uint8{255, 255, 255, 0, 0, 255}, levels)
	assert.Equal(t, Stats{Ticks: 6, FramesSent: 6}, s.Stats())
}

func TestRunClampsAndRoundsChannels(t *testing.T) {
	fade, err := animation.CrossFade(color.New(0, 0, 0), color.New(300, -40, 101), 2)
	require.NoError(t, err)
	s := New(newRegistry(t, 1, newFixture(t, 0, fade)), &recordingTransport{}, WithInterval(0))

	require.NoError(t, s.Run(context.Background(), 2))
	// Tick 1 blends halfway: (150, -20, 50.5).
	assert.Equal(t, []uint8{150, 0, 51}, s.Channels())
}

func TestRunContinuesAfterSendFailures(t *testing.T) {
	transport := &recordingTransport{err: &dmx.NetworkError{Addr: "192.0.2.1:6038", Err: errors.New("no route to host")}}
	s := New(newRegistry(t, 1, newFixture(t, 0, animation.Fixed(color.New(1, 1, 1)))), transport, WithInterval(0))

	require.NoError(t, s.Run(context.Background(), 3))
	assert.Equal(t, 3, transport.sent())
	assert.Equal(t, Stats{Ticks: 3, SendFailures: 3}, s.Stats())
}

func TestRunStopsOnEvaluationFault(t *testing.T) {
	hold, err := animation.RandomHold(2)
	require.NoError(t, err)
	transport := &recordingTransport{}
	s := New(newRegistry(t, 1, newFixture(t, 0, hold)), transport, WithInterval(0), WithRandomSource(nil))

	err = s.Run(context.Background(), 5)
	assert.ErrorIs(t, err, animation.ErrNoRandomSource)
	assert.Zero(t, transport.sent())
	assert.Equal(t, Stopped, s.State())
}

func TestRunUsesInjectedRandomSource(t *testing.T) {
	strobe, err := animation.VariableStrobe(2, 1)
	require.NoError(t, err)
	s := New(newRegistry(t, 1, newFixture(t, 0, strobe)), &recordingTransport{},
		WithInterval(0), WithRandomSource(constantSource(42)))

	require.NoError(t, s.Run(context.Background(), 2))
	assert.Equal(t, []uint8{42, 42, 42}, s.Channels())
}

func TestRunFinishesCurrentTickOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := &recordingTransport{}
	var observed []uint64
	stopAtThree := observerFunc(func(_ context.Context, tick uint64, _ []uint8) {
		observed = append(observed, tick)
		if tick == 3 {
			cancel()
		}
	})
	s := New(newRegistry(t, 1, newFixture(t, 0, animation.Fixed(color.Black))), transport,
		WithInterval(0), WithObserver(stopAtThree))

	require.NoError(t, s.Run(ctx, 0))
	assert.Equal(t, []uint64{0, 1, 2, 3}, observed)
	assert.Equal(t, 4, transport.sent())
}

func TestRunOnlyOnce(t *testing.T) {
	s := New(newRegistry(t, 1), &recordingTransport{}, WithInterval(0))
	require.NoError(t, s.Run(context.Background(), 1))
	assert.ErrorIs(t, s.Run(context.Background(), 1), ErrNotIdle)
}

func TestUnownedChannelsStayZero(t *testing.T) {
	registry := newRegistry(t, 4,
		newFixture(t, 3, animation.Fixed(color.New(9, 8, 7))),
	)
	s := New(registry, &recordingTransport{}, WithInterval(0))

	require.NoError(t, s.Run(context.Background(), 3))
	assert.Equal(t, []uint8{0, 0, 0, 9, 8, 7, 0, 0, 0, 0, 0, 0}, s.Channels())
}
