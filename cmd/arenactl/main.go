package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/arena/internal/cmd/arenactl"
	"github.com/louisbranch/arena/internal/platform/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.Usage = func() { arenactl.Usage(os.Stderr) }
	cfg, args, err := arenactl.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprint(os.Stderr, arenactl.FormatError(err))
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := arenactl.Run(ctx, cfg, args, os.Stdout); err != nil {
		fmt.Fprint(os.Stderr, arenactl.FormatError(err))
		if errors.Is(err, arenactl.ErrUsage) {
			arenactl.Usage(os.Stderr)
			os.Exit(2)
		}
		os.Exit(1)
	}
}
