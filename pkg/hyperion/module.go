// Package hyperion contains the module runtime that assembles the beamline
// control daemon. Every subsystem (config, logging, tracing, the run engine,
// the HTTP surface, ISPyB) is a Module wired through a shared injector.
package hyperion

import (
	"context"
)

// Module is the base interface for all daemon modules.
type Module interface {
	Init(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// SyncModule extends Module with a blocking Start method for long-running
// services such as the HTTP server and the run engine worker.
type SyncModule interface {
	Module
	Start(ctx context.Context) error
}

// AsyncModule extends Module with a non-blocking StartAsync method for
// background resources such as database pools.
type AsyncModule interface {
	Module
	StartAsync(ctx context.Context) error
}
