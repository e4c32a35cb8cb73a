// Package sweeper parses sweeper flags and starts the timeout sweep loop.
package sweeper

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/arena/internal/platform/cmd"
	"github.com/louisbranch/arena/internal/platform/config"
	"github.com/louisbranch/arena/internal/platform/discovery"
	"github.com/louisbranch/arena/internal/platform/timeouts"
	sweeperapp "github.com/louisbranch/arena/internal/services/sweeper/app"
)

// Config holds sweeper command configuration. Variables are read with the
// ARENA_SWEEPER_ prefix.
type Config struct {
	Port int `env:"PORT"`

	// ArenaAddr defaults to the in-network arena address.
	ArenaAddr       string        `env:"ARENA_ADDR"`
	Key             string        `env:"KEY"`
	Interval        time.Duration `env:"INTERVAL" envDefault:"10s"`
	BatchSize       int           `env:"BATCH" envDefault:"50"`
	GRPCDialTimeout time.Duration `env:"DIAL_TIMEOUT"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		Port:            discovery.DefaultGRPCPort(discovery.ServiceSweeper),
		GRPCDialTimeout: timeouts.GRPCDial,
	}
	if err := entrypoint.ParseConfig(&cfg, config.WithPrefix("ARENA_SWEEPER_")); err != nil {
		return Config{}, err
	}
	cfg.ArenaAddr = discovery.OrDefaultGRPCAddr(cfg.ArenaAddr, discovery.ServiceArena)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The sweeper health port")
	fs.StringVar(&cfg.ArenaAddr, "arena-addr", cfg.ArenaAddr, "The arena server address")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Time between sweeps")
	fs.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "Stalled sessions forced per sweep")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the sweeper.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSweeper, func(ctx context.Context) error {
		return sweeperapp.Run(ctx, sweeperapp.RuntimeConfig{
			Port:            cfg.Port,
			ArenaAddr:       cfg.ArenaAddr,
			SignerKey:       cfg.Key,
			Interval:        cfg.Interval,
			BatchSize:       cfg.BatchSize,
			GRPCDialTimeout: cfg.GRPCDialTimeout,
		})
	})
}
