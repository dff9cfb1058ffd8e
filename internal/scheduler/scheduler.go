// Package scheduler drives the fixed-rate tick loop: evaluate every fixture,
// fill the channel buffer, encode it and hand it to the transport.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scheerer/dmx-light-control/internal/animation"
	"github.com/scheerer/dmx-light-control/internal/color"
	"github.com/scheerer/dmx-light-control/internal/dmx"
	"github.com/scheerer/dmx-light-control/internal/fixture"
	"github.com/scheerer/dmx-light-control/internal/logging"
)

var logger = logging.New("scheduler")

// DefaultInterval is roughly one sixtieth of a second.
const DefaultInterval = 16600 * time.Microsecond

var (
	ErrInvalidDuration = errors.New("duration must be >= 0")
	ErrNotIdle         = errors.New("scheduler already started")
)

type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transport sends one encoded frame. Errors are logged and the loop continues.
type Transport interface {
	Send(packet []byte) error
}

// FrameObserver is called after each tick with the channel buffer that was
// sent. Implementations must not block and must not retain channels.
type FrameObserver interface {
	ObserveFrame(ctx context.Context, tick uint64, channels []uint8)
}

type Stats struct {
	Ticks        uint64
	FramesSent   uint64
	SendFailures uint64
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

func WithRandomSource(rng animation.RandomSource) Option {
	return func(s *Scheduler) { s.rng = rng }
}

func WithObserver(o FrameObserver) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

type Scheduler struct {
	registry  *fixture.Registry
	transport Transport
	rng       animation.RandomSource
	interval  time.Duration
	observers []FrameObserver

	// channels is written only by the goroutine inside Run; mu guards it for
	// readers elsewhere.
	channels []uint8

	mu    sync.Mutex
	state State
	stats Stats
}

// New creates an idle scheduler that owns registry for the lifetime of Run.
// Without WithRandomSource a time-seeded source is used; WithRandomSource(nil)
// leaves random animations without one, which fails their first evaluation.
func New(registry *fixture.Registry, transport Transport, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry:  registry,
		transport: transport,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		interval:  DefaultInterval,
		channels:  make([]uint8, registry.Channels()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Registry() *fixture.Registry {
	return s.registry
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Channels returns a copy of the channel buffer as last sent.
func (s *Scheduler) Channels() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint8(nil), s.channels...)
}

// Run ticks until duration ticks have been sent, or forever when duration is 0.
// Cancelling ctx stops the loop after the current tick and returns nil.
// A negative duration fails before any frame is sent.
func (s *Scheduler) Run(ctx context.Context, duration int) error {
	if duration < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, duration)
	}

	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return fmt.Errorf("%w: state is %s", ErrNotIdle, s.state)
	}
	s.state = Running
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = Stopped
		s.mu.Unlock()
	}()

	log := logger.With(zap.String("runID", uuid.NewString()))
	log.With(
		zap.Int("duration", duration),
		zap.Stringer("interval", s.interval),
		zap.Int("fixtures", s.registry.Len()),
		zap.Int("channels", len(s.channels))).
		Info("Starting tick loop")

	var lastWarning time.Time
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for t := uint64(0); duration == 0 || t < uint64(duration); t++ {
		if ctx.Err() != nil {
			break
		}

		startTime := time.Now()
		if err := s.tick(ctx, log, t); err != nil {
			log.With(zap.Uint64("tick", t), zap.Error(err)).Error("Tick loop aborted")
			return err
		}

		tickDuration := time.Since(startTime)
		if tickDuration > s.interval && time.Since(lastWarning) > 10*time.Second {
			log.With(
				zap.Uint64("tick", t),
				zap.Stringer("tickDuration", tickDuration),
				zap.Stringer("interval", s.interval)).
				Warn("Cannot keep up with TICK_INTERVAL")
			lastWarning = time.Now()
		}

		// Fixed sleep regardless of time already spent in the tick.
		timer.Reset(s.interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}

	stats := s.Stats()
	log.With(
		zap.Uint64("ticks", stats.Ticks),
		zap.Uint64("framesSent", stats.FramesSent),
		zap.Uint64("sendFailures", stats.SendFailures)).
		Info("Tick loop stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context, log *zap.SugaredLogger, t uint64) error {
	for _, f := range s.registry.All() {
		c, err := f.Evaluate(t, s.rng)
		if err != nil {
			return err
		}
		s.write(f.Address(), c)
	}

	if log.Desugar().Core().Enabled(zap.DebugLevel) {
		log.With(zap.Uint64("tick", t), zap.Uint8s("channels", s.channels)).Debug("Channel levels")
	}

	packet, err := dmx.Encode(s.channels)
	if err != nil {
		return err
	}

	sendErr := s.transport.Send(packet)

	s.mu.Lock()
	s.stats.Ticks++
	if sendErr != nil {
		s.stats.SendFailures++
	} else {
		s.stats.FramesSent++
	}
	s.mu.Unlock()

	if sendErr != nil {
		log.With(zap.Uint64("tick", t), zap.Error(sendErr)).
			Warn("Failed to send frame. Is the DMX512 power/data supply reachable?")
	}

	for _, o := range s.observers {
		o.ObserveFrame(ctx, t, s.channels)
	}
	return nil
}

func (s *Scheduler) write(address int, c color.Color) {
	r, g, b := c.Bytes()
	s.mu.Lock()
	s.channels[address] = r
	s.channels[address+1] = g
	s.channels[address+2] = b
	s.mu.Unlock()
}
