// Package animation implements the lighting functions that map a tick count to a
// fixture color.
//
// An Animation is plain data: a Kind tag plus the parameters for that kind. All
// behavior lives in Evaluate, which is a pure function of the tick, the previous
// color and (for the random kinds) an injected RandomSource.
package animation

import (
	"errors"
	"fmt"

	"github.com/scheerer/dmx-light-control/internal/color"
)

var (
	ErrInvalidParameter = errors.New("invalid animation parameter")
	ErrUnknownKind      = errors.New("unknown animation kind")
	ErrNoRandomSource   = errors.New("animation requires a random source")
)

type Kind int

const (
	KindUnknown Kind = iota
	KindFixed
	KindCrossFade
	KindRandomHold
	KindFixedStrobe
	KindVariableStrobe
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindCrossFade:
		return "cross_fade"
	case KindRandomHold:
		return "random"
	case KindFixedStrobe:
		return "fixed_strobe"
	case KindVariableStrobe:
		return "variable_strobe"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindFixed; k <= KindVariableStrobe; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// RandomSource supplies the draws used by RandomHold and VariableStrobe.
type RandomSource = color.RandomSource

type Animation struct {
	Kind Kind

	// Color is used by Fixed and FixedStrobe; From and To by CrossFade.
	Color color.Color
	From  color.Color
	To    color.Color

	// Interval is the half period of CrossFade and the hold length of RandomHold.
	Interval int

	On  int
	Off int
}

func Fixed(c color.Color) Animation {
	return Animation{Kind: KindFixed, Color: c}
}

func CrossFade(from, to color.Color, interval int) (Animation, error) {
	if interval <= 0 {
		return Animation{}, fmt.Errorf("%w: cross fade interval must be positive, got %d", ErrInvalidParameter, interval)
	}
	return Animation{Kind: KindCrossFade, From: from, To: to, Interval: interval}, nil
}

func RandomHold(interval int) (Animation, error) {
	if interval <= 0 {
		return Animation{}, fmt.Errorf("%w: random hold interval must be positive, got %d", ErrInvalidParameter, interval)
	}
	return Animation{Kind: KindRandomHold, Interval: interval}, nil
}

func FixedStrobe(c color.Color, on, off int) (Animation, error) {
	if err := checkStrobe(on, off); err != nil {
		return Animation{}, err
	}
	return Animation{Kind: KindFixedStrobe, Color: c, On: on, Off: off}, nil
}

func VariableStrobe(on, off int) (Animation, error) {
	if err := checkStrobe(on, off); err != nil {
		return Animation{}, err
	}
	return Animation{Kind: KindVariableStrobe, On: on, Off: off}, nil
}

func checkStrobe(on, off int) error {
	if on <= 0 || off <= 0 {
		return fmt.Errorf("%w: strobe on/off ticks must be positive, got %d/%d", ErrInvalidParameter, on, off)
	}
	return nil
}

// Validate reports whether the parameters are consistent with the Kind. Values
// built through the constructors always validate.
func (a Animation) Validate() error {
	switch a.Kind {
	case KindFixed:
		return nil
	case KindCrossFade, KindRandomHold:
		if a.Interval <= 0 {
			return fmt.Errorf("%w: %s interval %d", ErrInvalidParameter, a.Kind, a.Interval)
		}
		return nil
	case KindFixedStrobe, KindVariableStrobe:
		return checkStrobe(a.On, a.Off)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, a.Kind)
	}
}

// Random reports whether Evaluate draws from its RandomSource.
func (a Animation) Random() bool {
	return a.Kind == KindRandomHold || a.Kind == KindVariableStrobe
}

// Evaluate returns the color for tick given the color returned for the previous
// tick. rng may be nil for kinds that never draw.
func (a Animation) Evaluate(tick uint64, previous color.Color, rng RandomSource) (color.Color, error) {
	if err := a.Validate(); err != nil {
		return color.Color{}, err
	}
	if a.Random() && rng == nil {
		return color.Color{}, fmt.Errorf("%w: %s", ErrNoRandomSource, a.Kind)
	}

	switch a.Kind {
	case KindFixed:
		return a.Color, nil

	case KindCrossFade:
		from, to := a.Weights(tick)
		return a.From.Scale(from).Add(a.To.Scale(to)), nil

	case KindRandomHold:
		if tick%uint64(a.Interval) == 0 {
			return color.Random(rng), nil
		}
		return previous, nil

	case KindFixedStrobe:
		if a.phase(tick) < uint64(a.On) {
			return a.Color, nil
		}
		return color.Black, nil

	case KindVariableStrobe:
		p := a.phase(tick)
		switch {
		case p == 0:
			return color.Random(rng), nil
		case p < uint64(a.On):
			return previous, nil
		default:
			return color.Black, nil
		}
	}

	return color.Color{}, fmt.Errorf("%w: %s", ErrUnknownKind, a.Kind)
}

// Weights returns the blend weights applied to From and To at tick. They are
// computed directly from the tick so no error accumulates, and always sum to 1.
// The fade runs From→To over [0, Interval) and back over [Interval, 2*Interval).
func (a Animation) Weights(tick uint64) (from, to float64) {
	if a.Interval <= 0 {
		return 1, 0
	}
	interval := uint64(a.Interval)
	p := tick % (2 * interval)
	if p < interval {
		to = float64(p) / float64(interval)
		return 1 - to, to
	}
	from = float64(p-interval) / float64(interval)
	return from, 1 - from
}

func (a Animation) phase(tick uint64) uint64 {
	return tick % uint64(a.On+a.Off)
}

func (a Animation) String() string {
	switch a.Kind {
	case KindFixed:
		return fmt.Sprintf("fixed(%s)", a.Color.Hex())
	case KindCrossFade:
		return fmt.Sprintf("cross_fade(%s, %s, %d)", a.From.Hex(), a.To.Hex(), a.Interval)
	case KindRandomHold:
		return fmt.Sprintf("random(%d)", a.Interval)
	case KindFixedStrobe:
		return fmt.Sprintf("fixed_strobe(%s, %d, %d)", a.Color.Hex(), a.On, a.Off)
	case KindVariableStrobe:
		return fmt.Sprintf("variable_strobe(%d, %d)", a.On, a.Off)
	default:
		return a.Kind.String()
	}
}
