// Package lifx mirrors one DMX fixture onto a LIFX group over the LAN.
package lifx

import (
	"context"
	"sync"
	"time"

	"github.com/pdf/golifx"
	"github.com/pdf/golifx/common"
	"github.com/pdf/golifx/protocol"
	"go.uber.org/zap"

	"github.com/scheerer/dmx-light-control/internal/color"
	"github.com/scheerer/dmx-light-control/internal/logging"
)

var logger = logging.New("lifx")

type Config struct {
	GroupName string
	// Address is the first channel of the mirrored fixture.
	Address       int
	Interval      time.Duration
	MinBrightness float64
	MaxBrightness float64
}

// colorSetter is the part of common.Group the mirror drives.
type colorSetter interface {
	SetColor(color common.Color, duration time.Duration) error
}

// Mirror is a scheduler.FrameObserver. ObserveFrame never blocks: it keeps
// only the newest color and a background goroutine pushes it to the group.
type Mirror struct {
	config Config
	client *golifx.Client

	groupMu sync.RWMutex
	group   colorSetter

	pending    chan color.Color
	lastQueued time.Time
}

func newMirror(config Config) *Mirror {
	return &Mirror{
		config:  config,
		pending: make(chan color.Color, 1),
	}
}

func NewMirror(ctx context.Context, config Config) (*Mirror, error) {
	client, err := golifx.NewClient(&protocol.V2{})
	if err != nil {
		return nil, err
	}

	m := newMirror(config)
	m.client = client
	go m.Start(ctx)
	return m, nil
}

func (m *Mirror) Start(ctx context.Context) {
	discoveryInterval := 15 * time.Second
	ticker := time.NewTicker(discoveryInterval)
	defer ticker.Stop()

	if err := m.client.SetDiscoveryInterval(discoveryInterval); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to set LIFX discovery interval")
	}

	m.discover(ctx)

	for {
		select {
		case <-ticker.C:
			m.discover(ctx)
		case c := <-m.pending:
			m.apply(c)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Mirror) discover(ctx context.Context) {
	logger.With(zap.String("group", m.config.GroupName)).Debug("LIFX discovery starting...")

	type result struct {
		group common.Group
		err   error
	}
	completed := make(chan result, 1)
	go func() {
		g, err := m.client.GetGroupByLabel(m.config.GroupName)
		completed <- result{g, err}
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	select {
	case <-ctxWithTimeout.Done():
		logger.With(zap.Error(ctxWithTimeout.Err())).Warn("LIFX discovery timed out")
	case r := <-completed:
		if r.err != nil || r.group == nil {
			logger.With(zap.String("group", m.config.GroupName), zap.Error(r.err)).Warn("Couldn't discover LIFX group")
			return
		}
		m.groupMu.Lock()
		m.group = r.group
		m.groupMu.Unlock()
		logger.With(zap.String("group", r.group.GetLabel())).Debug("LIFX group found")
	}
}

func (m *Mirror) ObserveFrame(_ context.Context, _ uint64, channels []uint8) {
	if time.Since(m.lastQueued) < m.config.Interval {
		return
	}
	a := m.config.Address
	if a < 0 || a+2 >= len(channels) {
		return
	}
	m.lastQueued = time.Now()

	c := color.New(float64(channels[a]), float64(channels[a+1]), float64(channels[a+2]))
	select {
	case <-m.pending:
	default:
	}
	select {
	case m.pending <- c:
	default:
	}
}

func (m *Mirror) apply(c color.Color) {
	m.groupMu.RLock()
	group := m.group
	m.groupMu.RUnlock()
	if group == nil {
		return
	}

	lifxColor := adjustColor(newLifxColor(c), m.config)
	logger.With(zap.String("color", c.Hex()), zap.Any("lifxColor", lifxColor)).Debug("Setting LIFX group color")

	if err := group.SetColor(lifxColor, m.config.Interval); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to set color for LIFX group")
	}
}

func (m *Mirror) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}
