package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/scheerer/dmx-light-control/internal/config"
	"github.com/scheerer/dmx-light-control/internal/dmx"
	"github.com/scheerer/dmx-light-control/internal/fixture"
	"github.com/scheerer/dmx-light-control/internal/lights/lifx"
	"github.com/scheerer/dmx-light-control/internal/logging"
	"github.com/scheerer/dmx-light-control/internal/scheduler"
	"github.com/scheerer/dmx-light-control/internal/show"
)

var logger = logging.New("main")

func main() {
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to load configuration")
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		logger.With(zap.String("LOG_LEVEL", cfg.LogLevel), zap.Error(err)).Fatal("Invalid log level")
	}

	logger.With(zap.Any("config", cfg)).Info("Starting DMX light control")
	logger.Info("Adjust DMX_SUPPLY_HOST and DMX_SUPPLY_PORT to target your power/data supply.")
	logger.Info("Adjust SHOW_FILE to load fixtures from YAML. The built-in show is used when unset.")
	logger.Info("Adjust DURATION_TICKS to stop after that many ticks. 0 runs until interrupted.")
	logger.Info("Set LOG_LEVEL=debug to print the channel levels of every tick.")
	logger.Info("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
		<-shutdown
		logger.Info("Shutting down")
		cancel()
	}()

	if err := Run(ctx, cfg); err != nil {
		logger.With(zap.Error(err)).Fatal("Light control stopped with an error")
	}
}

func Run(ctx context.Context, cfg config.Config) error {
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	registry, err := fixture.NewRegistry(cfg.MaxFixtures)
	if err != nil {
		return err
	}

	var s *show.Show
	if cfg.ShowFile != "" {
		s, err = show.Load(cfg.ShowFile)
	} else {
		s, err = show.Default()
	}
	if err != nil {
		return err
	}
	fixtures, err := s.Build(registry, rng)
	if err != nil {
		return err
	}
	for _, f := range fixtures {
		logger.With(zap.Int("address", f.Address()), zap.Stringer("animation", f.Animation())).Info("Fixture ready")
	}

	sender := dmx.NewUDPSender(cfg.SupplyHost, cfg.SupplyPort)
	defer sender.Close()

	opts := []scheduler.Option{
		scheduler.WithInterval(cfg.TickInterval),
		scheduler.WithRandomSource(rng),
	}

	if cfg.LifxMirrorEnabled() {
		mirror, err := lifx.NewMirror(ctx, lifx.Config{
			GroupName:     cfg.LifxMirrorGroup,
			Address:       cfg.LifxMirrorAddress,
			Interval:      cfg.LifxMirrorInterval,
			MinBrightness: cfg.LifxMinBrightness,
			MaxBrightness: cfg.LifxMaxBrightness,
		})
		if err != nil {
			logger.With(zap.Error(err)).Warn("Failed to create LIFX mirror - continuing without it")
		} else {
			defer mirror.Close()
			opts = append(opts, scheduler.WithObserver(mirror))
		}
	}

	return scheduler.New(registry, sender, opts...).Run(ctx, cfg.Duration)
}
