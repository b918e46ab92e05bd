// Package grpc holds the client-side helpers the tracker tools use to
// reach the runtime's health endpoint.
package grpc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/duskfall-rp/fabricator/internal/platform/timeouts"
)

// DefaultDialOptions returns the dial options used for in-cluster clients:
// plaintext transport and OTel stats so probes show up in traces when a
// provider is registered.
func DefaultDialOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// WaitForHealth polls the standard gRPC health service until it reports
// SERVING or ctx ends. Each probe is capped at timeouts.GRPCRequest; the
// wait between probes backs off from 200ms to one second.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("grpc connection is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := grpc_health_v1.NewHealthClient(conn)
	wait := 200 * time.Millisecond
	for {
		probeCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
		response, err := client.Check(probeCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		switch {
		case err == nil && response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING:
			if logf != nil {
				logf("health endpoint is SERVING")
			}
			return nil
		case err != nil:
			if logf != nil {
				logf("health probe: %v", err)
			}
		default:
			if logf != nil {
				logf("health probe: status %s", response.GetStatus())
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for health: %w", ctx.Err())
		case <-time.After(wait):
		}
		if wait < time.Second {
			wait *= 2
			if wait > time.Second {
				wait = time.Second
			}
		}
	}
}

// DialAndWait opens a client connection to addr and blocks until its
// health check serves. The connection is closed on failure.
func DialAndWait(ctx context.Context, addr string, logf func(string, ...any), opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error) {
	if len(opts) == 0 {
		opts = DefaultDialOptions()
	}
	conn, err := gogrpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := WaitForHealth(ctx, conn, "", logf); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
