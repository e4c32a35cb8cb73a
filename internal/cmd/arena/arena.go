// Package arena parses arena server flags and starts the service.
package arena

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"time"

	entrypoint "github.com/louisbranch/arena/internal/platform/cmd"
	server "github.com/louisbranch/arena/internal/services/arena/app"
	"github.com/louisbranch/arena/internal/services/arena/domain/engine"
	"github.com/louisbranch/arena/internal/services/arena/storage/integrity"
)

// Config holds arena command configuration.
type Config struct {
	Port        int           `env:"ARENA_PORT" envDefault:"8090"`
	Addr        string        `env:"ARENA_ADDR"`
	DBPath      string        `env:"ARENA_DB_PATH" envDefault:"data/arena.db"`
	RoundDamage uint          `env:"ARENA_ROUND_DAMAGE" envDefault:"1"`
	TurnTimeout time.Duration `env:"ARENA_TURN_TIMEOUT" envDefault:"60s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The arena server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The arena server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The sqlite database path")
	fs.UintVar(&cfg.RoundDamage, "round-damage", cfg.RoundDamage, "Health lost per lost round")
	fs.DurationVar(&cfg.TurnTimeout, "turn-timeout", cfg.TurnTimeout, "How long a round may stall before it can be forced")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.RoundDamage == 0 || uint64(cfg.RoundDamage) > math.MaxUint32 {
		return Config{}, fmt.Errorf("round damage must be between 1 and %d", uint64(math.MaxUint32))
	}
	if cfg.TurnTimeout <= 0 {
		return Config{}, errors.New("turn timeout must be positive")
	}
	return cfg, nil
}

// ListenAddr returns Addr, or ":<Port>" when Addr is empty.
func (c Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return fmt.Sprintf(":%d", c.Port)
}

// Run starts the arena service.
func Run(ctx context.Context, cfg Config) error {
	keyring, err := integrity.KeyringFromEnv()
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceArena, func(ctx context.Context) error {
		return server.Run(ctx, server.Options{
			Addr:    cfg.ListenAddr(),
			DBPath:  cfg.DBPath,
			Keyring: keyring,
			Rules: engine.Rules{
				RoundDamage: uint32(cfg.RoundDamage),
				TurnTimeout: cfg.TurnTimeout,
			},
		})
	})
}
