// Package healthcheck probes the tracker's gRPC health endpoint. It backs
// container health checks and deploy-time readiness gates.
package healthcheck

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v11"

	platformgrpc "github.com/duskfall-rp/fabricator/internal/platform/grpc"
)

// Config holds healthcheck command configuration.
type Config struct {
	Addr    string        `env:"FABRICATOR_TRACKER_ADDR" envDefault:"localhost:8090"`
	Timeout time.Duration `env:"FABRICATOR_HEALTHCHECK_TIMEOUT" envDefault:"10s"`
	Quiet   bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "tracker health endpoint address")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall probe timeout")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "suppress progress output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run dials the tracker and waits until its health check reports SERVING.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	logf := func(format string, args ...any) {
		if !cfg.Quiet {
			fmt.Fprintf(out, format+"\n", args...)
		}
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	conn, err := platformgrpc.DialAndWait(ctx, cfg.Addr, logf)
	if err != nil {
		return fmt.Errorf("probe %s: %w", cfg.Addr, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	logf("tracker at %s is serving", cfg.Addr)
	return nil
}
