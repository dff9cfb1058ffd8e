// Package fixture binds DMX addresses to animations and tracks the set of
// fixtures a scheduler drives.
package fixture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/scheerer/dmx-light-control/internal/animation"
	"github.com/scheerer/dmx-light-control/internal/color"
)

// ChannelsPerFixture is the red, green and blue channel of one RGB light.
const ChannelsPerFixture = 3

var (
	ErrInvalidAddress  = errors.New("invalid fixture address")
	ErrAddressConflict = errors.New("fixture address already in use")
	ErrNotRegistered   = errors.New("fixture not registered")
	ErrInvalidCapacity = errors.New("invalid fixture capacity")
)

// Fixture is a three channel RGB light starting at Address.
type Fixture struct {
	address int

	mu        sync.Mutex
	animation animation.Animation
	last      color.Color
}

func New(address int, a animation.Animation) (*Fixture, error) {
	if address < 0 || address%ChannelsPerFixture != 0 {
		return nil, fmt.Errorf("%w: %d is not a non-negative multiple of %d", ErrInvalidAddress, address, ChannelsPerFixture)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &Fixture{address: address, animation: a}, nil
}

func (f *Fixture) Address() int {
	return f.address
}

func (f *Fixture) Animation() animation.Animation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.animation
}

// SetAnimation swaps the lighting function. The last color is kept so held
// variants continue from what is currently shown.
func (f *Fixture) SetAnimation(a animation.Animation) error {
	if err := a.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	f.animation = a
	f.mu.Unlock()
	return nil
}

func (f *Fixture) LastColor() color.Color {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Evaluate runs the animation for tick against the last computed color and
// stores the result.
func (f *Fixture) Evaluate(tick uint64, rng animation.RandomSource) (color.Color, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.animation.Evaluate(tick, f.last, rng)
	if err != nil {
		return color.Color{}, fmt.Errorf("fixture at address %d: %w", f.address, err)
	}
	f.last = c
	return c, nil
}

func (f *Fixture) String() string {
	return fmt.Sprintf("fixture@%d %s", f.address, f.Animation())
}
