// Package tracker parses tracker command flags and starts the runtime.
package tracker

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/duskfall-rp/fabricator/internal/platform/cmd"
	"github.com/duskfall-rp/fabricator/internal/services/tracker/app"
)

// Config holds tracker command configuration.
type Config struct {
	Port         int           `env:"FABRICATOR_TRACKER_PORT" envDefault:"8090"`
	DBPath       string        `env:"FABRICATOR_TRACKER_DB_PATH" envDefault:"data/fabricator.db"`
	DiscordToken string        `env:"FABRICATOR_DISCORD_TOKEN"`
	PollInterval time.Duration `env:"FABRICATOR_TRACKER_POLL_INTERVAL" envDefault:"1m"`
	DebounceTTL  time.Duration `env:"FABRICATOR_TRACKER_DEBOUNCE_TTL" envDefault:"5s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The tracker health endpoint port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the tracker sqlite database")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "How often completed jobs are swept for announcements")
	fs.DurationVar(&cfg.DebounceTTL, "debounce-ttl", cfg.DebounceTTL, "How long repeated identical job submissions are rejected")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the tracker runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTracker, func(ctx context.Context) error {
		runtime, err := app.NewRuntime(app.RuntimeConfig{
			Port:         cfg.Port,
			DBPath:       cfg.DBPath,
			DiscordToken: cfg.DiscordToken,
			PollInterval: cfg.PollInterval,
			DebounceTTL:  cfg.DebounceTTL,
		})
		if err != nil {
			return err
		}
		return runtime.Run(ctx)
	})
}
