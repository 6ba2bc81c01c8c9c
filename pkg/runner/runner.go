// Package runner owns the run engine worker: one plan at a time, pulled from
// a queue, with the Idle/Busy/Aborting/Success/Failed status machine the
// control clients poll.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Vilsol/slox"
	"github.com/beamtime/hyperion/pkg/params"
	"github.com/beamtime/hyperion/pkg/plans"
	"github.com/samber/oops"
)

// Status is the externally visible run engine state.
type Status string

const (
	StatusIdle     Status = "Idle"
	StatusBusy     Status = "Busy"
	StatusAborting Status = "Aborting"
	StatusSuccess  Status = "Success"
	StatusFailed   Status = "Failed"
)

// StatusAndMessage is the status payload returned to control clients.
type StatusAndMessage struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

type job struct {
	def plans.Definition
	cfg *params.ExperimentConfig
}

// Runner accepts plan start requests and executes them one at a time.
type Runner struct {
	registry *plans.Registry
	deps     plans.Deps

	mu            sync.Mutex
	state         StatusAndMessage
	aborting      bool
	closed        bool
	cancelCurrent context.CancelFunc

	queue    chan job
	shutdown sync.Once
}

// New creates a runner over the given plan registry.
func New(registry *plans.Registry, deps plans.Deps) *Runner {
	return &Runner{
		registry: registry,
		deps:     deps,
		state:    StatusAndMessage{Status: StatusIdle},
		queue:    make(chan job, 1),
	}
}

// Start decodes and validates the parameter document and queues the named
// plan. It returns immediately; progress is observed via Status.
func (r *Runner) Start(planName string, doc []byte) error {
	def, err := r.registry.Lookup(planName)
	if err != nil {
		return err
	}

	cfg, err := params.Decode(doc)
	if err != nil {
		return err
	}

	if string(cfg.HyperionParams.ExperimentType) != planName {
		return oops.
			With("plan", planName).
			With("experiment_type", cfg.HyperionParams.ExperimentType).
			Errorf("parameter document is for experiment type %q, not %q", cfg.HyperionParams.ExperimentType, planName)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return oops.
			With("plan", planName).
			Errorf("run engine is shut down")
	}

	if r.state.Status == StatusBusy || r.state.Status == StatusAborting {
		return oops.
			With("plan", planName).
			Errorf("run engine is busy")
	}

	select {
	case r.queue <- job{def: def, cfg: cfg}:
	default:
		return oops.Errorf("run engine queue is full")
	}

	r.state = StatusAndMessage{Status: StatusBusy, Message: planName}
	r.aborting = false

	return nil
}

// Stop aborts the plan currently running, if any.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status != StatusBusy {
		return
	}

	r.state = StatusAndMessage{Status: StatusAborting, Message: r.state.Message}
	r.aborting = true

	if r.cancelCurrent != nil {
		r.cancelCurrent()
	}
}

// Status returns the current run engine state.
func (r *Runner) Status() StatusAndMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Shutdown stops accepting work and lets the worker loop drain.
func (r *Runner) Shutdown() {
	r.shutdown.Do(func() {
		r.Stop()

		// Start checks closed under the same lock before sending, so no
		// send can race the close below.
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		close(r.queue)
	})
}

// WaitOnQueue consumes plan jobs until the queue is closed or ctx is
// cancelled. It is the only goroutine that executes plans.
func (r *Runner) WaitOnQueue(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case j, ok := <-r.queue:
			if !ok {
				return nil
			}

			r.runOne(ctx, j)
		}
	}
}

func (r *Runner) runOne(ctx context.Context, j job) {
	runCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if r.aborting {
		// stopped between being queued and being picked up
		r.state = StatusAndMessage{Status: StatusIdle}
		r.aborting = false
		r.mu.Unlock()
		cancel()
		return
	}
	r.cancelCurrent = cancel
	r.mu.Unlock()

	err := j.def.Run(runCtx, j.cfg, r.deps)
	cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelCurrent = nil

	switch {
	case r.aborting || errors.Is(err, context.Canceled):
		// an aborted plan parks the engine back at idle
		r.state = StatusAndMessage{Status: StatusIdle}
		r.aborting = false

	case err != nil:
		slox.Error(
			ctx,
			"experiment plan failed",
			slog.String("plan", string(j.def.ExperimentType)),
			slog.Any("error", err),
		)
		r.state = StatusAndMessage{Status: StatusFailed, Message: err.Error()}

	default:
		r.state = StatusAndMessage{Status: StatusSuccess, Message: string(j.def.ExperimentType)}
	}
}
