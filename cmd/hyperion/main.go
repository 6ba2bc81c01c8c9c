// hyperion daemon
//   - Decodes and validates experiment parameter documents.
//   - Runs experiment plans one at a time on the run engine.
//   - Exposes the REST control surface GDA talks to.
//   - Deposits data collections into ISPyB when a database is configured.
package main

import (
	"os"
	"syscall"

	"github.com/beamtime/hyperion/pkg/api"
	"github.com/beamtime/hyperion/pkg/config"
	"github.com/beamtime/hyperion/pkg/health"
	"github.com/beamtime/hyperion/pkg/hyperion"
	"github.com/beamtime/hyperion/pkg/ispyb"
	"github.com/beamtime/hyperion/pkg/logging"
	"github.com/beamtime/hyperion/pkg/otel"
	"github.com/beamtime/hyperion/pkg/runner"
)

func main() {
	runtime := hyperion.NewRuntime(
		// Config module MUST be first
		config.NewModule(
			config.WithConfigDirs(".", "./config", "/etc/hyperion"),
			config.WithArgs(os.Args[1:]),
		),

		logging.NewModule(),
		otel.NewModule(),
		health.NewModule(),
		ispyb.NewModule(
			ispyb.WithHealthCheck(true),
		),
		runner.NewModule(),
		api.NewModule(
			api.WithHealthPath("/healthz"),
			api.WithRouter(api.Routes(requestShutdown)),
		),
	)

	if err := runtime.Run(); err != nil {
		os.Exit(1)
		return
	}
}

// requestShutdown winds the process down the same way an operator interrupt
// would, so the runtime's graceful shutdown path handles it.
func requestShutdown() {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return
	}
	_ = p.Signal(syscall.SIGTERM)
}
