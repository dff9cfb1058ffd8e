package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env"

	"github.com/scheerer/dmx-light-control/internal/fixture"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	SupplyHost   string        `env:"DMX_SUPPLY_HOST" envDefault:"192.168.1.10"`
	SupplyPort   int           `env:"DMX_SUPPLY_PORT" envDefault:"6038"`
	MaxFixtures  int           `env:"MAX_FIXTURES" envDefault:"10"`
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"16.6ms"`
	Duration     int           `env:"DURATION_TICKS" envDefault:"0"`
	ShowFile     string        `env:"SHOW_FILE"`
	RandomSeed   int64         `env:"RANDOM_SEED" envDefault:"0"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	LifxMirrorGroup    string        `env:"LIFX_MIRROR_GROUP"`
	LifxMirrorAddress  int           `env:"LIFX_MIRROR_ADDRESS" envDefault:"0"`
	LifxMirrorInterval time.Duration `env:"LIFX_MIRROR_INTERVAL" envDefault:"250ms"`
	LifxMinBrightness  float64       `env:"LIFX_MIN_BRIGHTNESS" envDefault:"0"`
	LifxMaxBrightness  float64       `env:"LIFX_MAX_BRIGHTNESS" envDefault:"0.65"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return c, c.Validate()
}

func (c Config) Channels() int {
	return c.MaxFixtures * fixture.ChannelsPerFixture
}

func (c Config) LifxMirrorEnabled() bool {
	return c.LifxMirrorGroup != ""
}

func (c Config) Validate() error {
	var errs []error
	if c.SupplyHost == "" {
		errs = append(errs, errors.New("DMX_SUPPLY_HOST is empty"))
	}
	if c.SupplyPort < 1 || c.SupplyPort > 65535 {
		errs = append(errs, fmt.Errorf("DMX_SUPPLY_PORT %d out of range", c.SupplyPort))
	}
	if c.MaxFixtures < 1 || c.MaxFixtures > fixture.MaxFixtures {
		errs = append(errs, fmt.Errorf("MAX_FIXTURES must be in [1,%d], got %d", fixture.MaxFixtures, c.MaxFixtures))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval))
	}
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("DURATION_TICKS must be >= 0, got %d", c.Duration))
	}
	if c.LifxMirrorEnabled() {
		if c.LifxMirrorAddress < 0 || c.LifxMirrorAddress%fixture.ChannelsPerFixture != 0 ||
			c.LifxMirrorAddress+fixture.ChannelsPerFixture > c.Channels() {
			errs = append(errs, fmt.Errorf("LIFX_MIRROR_ADDRESS %d is not a fixture address", c.LifxMirrorAddress))
		}
		if c.LifxMirrorInterval <= 0 {
			errs = append(errs, fmt.Errorf("LIFX_MIRROR_INTERVAL must be positive, got %s", c.LifxMirrorInterval))
		}
		if c.LifxMinBrightness < 0 || c.LifxMaxBrightness > 1 || c.LifxMinBrightness > c.LifxMaxBrightness {
			errs = append(errs, fmt.Errorf("LIFX brightness bounds [%g,%g] must be ordered within [0,1]",
				c.LifxMinBrightness, c.LifxMaxBrightness))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
