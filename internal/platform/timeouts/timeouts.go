// Package timeouts defines shared timeout constants for the tracker
// commands, kept in one place so the durations stay discoverable.
package timeouts

import "time"

// GRPCRequest caps one health probe request.
const GRPCRequest = 2 * time.Second

// Shutdown limits how long shutdown paths wait for in-flight work,
// telemetry flushes included.
const Shutdown = 5 * time.Second
