package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/duskfall-rp/fabricator/internal/platform/debounce"
	"github.com/duskfall-rp/fabricator/internal/services/tracker/discord"
	"github.com/duskfall-rp/fabricator/internal/services/tracker/dispatch"
	"github.com/duskfall-rp/fabricator/internal/services/tracker/domain"
	"github.com/duskfall-rp/fabricator/internal/services/tracker/storage/sqlite"
)

// RuntimeConfig configures the tracker runtime.
type RuntimeConfig struct {
	// Port serves the gRPC health endpoint.
	Port int
	// DBPath is the sqlite database file. Parent directories are created.
	DBPath string
	// DiscordToken authenticates the bot session. When empty the runtime
	// starts without an outbound Discord connection; jobs with a
	// notification target stay unnotified until a session exists.
	DiscordToken string
	// PollInterval is the dispatcher sweep cadence.
	PollInterval time.Duration
	// DebounceTTL is how long a repeated identical job submission is
	// rejected as a duplicate.
	DebounceTTL time.Duration
}

// Runtime owns the tracker's long-lived pieces.
type Runtime struct {
	cfg        RuntimeConfig
	store      *sqlite.Store
	service    *domain.Service
	dispatcher *dispatch.Dispatcher
	session    *discordgo.Session
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
}

// NewRuntime opens storage, builds the lifecycle service and dispatcher,
// and binds the health listener. Call Run to start everything.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	dbPath := strings.TrimSpace(cfg.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join("data", "fabricator.db")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	adapter, err := NewStoreAdapter(store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	service := domain.NewService(adapter, nil, nil, debounce.New(cfg.DebounceTTL, 0))

	var session *discordgo.Session
	var announcer dispatch.Announcer
	if token := strings.TrimSpace(cfg.DiscordToken); token != "" {
		session, err = discordgo.New("Bot " + token)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("create discord session: %w", err)
		}
		discordAnnouncer, err := discord.NewAnnouncer(session)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		announcer = discordAnnouncer
	}

	dispatcher, err := dispatch.New(adapter, announcer, dispatch.Config{
		PollInterval: cfg.PollInterval,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on :%d: %w", cfg.Port, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Runtime{
		cfg:        cfg,
		store:      store,
		service:    service,
		dispatcher: dispatcher,
		session:    session,
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
	}, nil
}

// Service exposes the lifecycle service for command surfaces.
func (r *Runtime) Service() *domain.Service {
	if r == nil {
		return nil
	}
	return r.service
}

// Addr returns the health listener address.
func (r *Runtime) Addr() string {
	if r == nil || r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// Run starts the Discord session, dispatcher, and health endpoint, and
// blocks until ctx is canceled or one of them fails.
func (r *Runtime) Run(ctx context.Context) error {
	if r == nil {
		return errors.New("app: runtime is nil")
	}
	defer r.Close()

	if r.session != nil {
		if err := r.session.Open(); err != nil {
			return fmt.Errorf("open discord session: %w", err)
		}
		log.Printf("discord session connected")
	}

	log.Printf("health endpoint listening at %v", r.listener.Addr())

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := r.dispatcher.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		serveErr := make(chan error, 1)
		go func() {
			serveErr <- r.grpcServer.Serve(r.listener)
		}()
		select {
		case <-ctx.Done():
			r.health.Shutdown()
			r.grpcServer.GracefulStop()
			err := <-serveErr
			if err == nil || errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return err
		case err := <-serveErr:
			return err
		}
	})

	return group.Wait()
}

// Close releases runtime resources. Safe to call more than once.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.session != nil {
		if err := r.session.Close(); err != nil {
			log.Printf("close discord session: %v", err)
		}
		r.session = nil
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
		r.store = nil
	}
}
