package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/duskfall-rp/fabricator/internal/platform/config"
	"github.com/duskfall-rp/fabricator/internal/tools/healthcheck"
)

func main() {
	cfg, err := healthcheck.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := healthcheck.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
