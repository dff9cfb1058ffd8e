// Package show loads the fixture patch and per-fixture animations from YAML.
package show

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scheerer/dmx-light-control/internal/animation"
	"github.com/scheerer/dmx-light-control/internal/color"
	"github.com/scheerer/dmx-light-control/internal/fixture"
	"github.com/scheerer/dmx-light-control/internal/logging"
)

var logger = logging.New("show")

//go:embed default.yaml
var defaultShow []byte

// RandomColor may be used wherever a color is expected.
const RandomColor = "random"

var ErrInvalidShow = errors.New("invalid show")

type Show struct {
	Fixtures []FixtureSpec `yaml:"fixtures"`
}

type FixtureSpec struct {
	Address   int           `yaml:"address"`
	Animation AnimationSpec `yaml:"animation"`
}

// AnimationSpec is the YAML form of an animation. Colors are "#rrggbb" or
// "random". When IntervalMax is set the interval is drawn from
// [Interval, IntervalMax].
type AnimationSpec struct {
	Type        string `yaml:"type"`
	Color       string `yaml:"color,omitempty"`
	From        string `yaml:"from,omitempty"`
	To          string `yaml:"to,omitempty"`
	Interval    int    `yaml:"interval,omitempty"`
	IntervalMax int    `yaml:"interval_max,omitempty"`
	On          int    `yaml:"on,omitempty"`
	Off         int    `yaml:"off,omitempty"`
}

func Default() (*Show, error) {
	return Parse(defaultShow)
}

func Load(path string) (*Show, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func Parse(data []byte) (*Show, error) {
	var s Show
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShow, err)
	}
	if len(s.Fixtures) == 0 {
		return nil, fmt.Errorf("%w: no fixtures", ErrInvalidShow)
	}
	return &s, nil
}

// Build creates every fixture and then adds them all to registry. The first
// invalid entry fails the build and registry is left untouched. rng resolves
// "random" colors and interval ranges.
func (s *Show) Build(registry *fixture.Registry, rng color.RandomSource) ([]*fixture.Fixture, error) {
	fixtures := make([]*fixture.Fixture, 0, len(s.Fixtures))
	for i, spec := range s.Fixtures {
		a, err := spec.Animation.Build(rng)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		f, err := fixture.New(spec.Address, a)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		fixtures = append(fixtures, f)
	}

	if err := registry.AddAll(fixtures...); err != nil {
		return nil, err
	}
	for _, f := range fixtures {
		logger.Debugf("Added %s", f)
	}
	return fixtures, nil
}

func (a AnimationSpec) Build(rng color.RandomSource) (animation.Animation, error) {
	kind, err := animation.ParseKind(strings.ToLower(strings.TrimSpace(a.Type)))
	if err != nil {
		return animation.Animation{}, err
	}

	switch kind {
	case animation.KindFixed:
		c, err := resolveColor(a.Color, rng)
		if err != nil {
			return animation.Animation{}, err
		}
		return animation.Fixed(c), nil

	case animation.KindCrossFade:
		from, err := resolveColor(a.From, rng)
		if err != nil {
			return animation.Animation{}, err
		}
		to, err := resolveColor(a.To, rng)
		if err != nil {
			return animation.Animation{}, err
		}
		interval, err := a.interval(rng)
		if err != nil {
			return animation.Animation{}, err
		}
		return animation.CrossFade(from, to, interval)

	case animation.KindRandomHold:
		interval, err := a.interval(rng)
		if err != nil {
			return animation.Animation{}, err
		}
		return animation.RandomHold(interval)

	case animation.KindFixedStrobe:
		c, err := resolveColor(a.Color, rng)
		if err != nil {
			return animation.Animation{}, err
		}
		return animation.FixedStrobe(c, a.On, a.Off)

	case animation.KindVariableStrobe:
		return animation.VariableStrobe(a.On, a.Off)
	}

	return animation.Animation{}, fmt.Errorf("%w: %s", animation.ErrUnknownKind, kind)
}

func (a AnimationSpec) interval(rng color.RandomSource) (int, error) {
	if a.IntervalMax == 0 {
		return a.Interval, nil
	}
	if a.IntervalMax < a.Interval {
		return 0, fmt.Errorf("%w: interval_max %d below interval %d", animation.ErrInvalidParameter, a.IntervalMax, a.Interval)
	}
	if rng == nil {
		return 0, animation.ErrNoRandomSource
	}
	return a.Interval + rng.Intn(a.IntervalMax-a.Interval+1), nil
}

func resolveColor(s string, rng color.RandomSource) (color.Color, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return color.Color{}, fmt.Errorf("%w: missing color", ErrInvalidShow)
	case strings.EqualFold(s, RandomColor):
		if rng == nil {
			return color.Color{}, animation.ErrNoRandomSource
		}
		return color.Random(rng), nil
	default:
		return color.ParseHex(s)
	}
}
