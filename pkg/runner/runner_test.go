package runner_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MarvinJWendt/testza"
	"github.com/beamtime/hyperion/pkg/params"
	"github.com/beamtime/hyperion/pkg/plans"
	"github.com/beamtime/hyperion/pkg/runner"
	"github.com/samber/oops"
)

func loadDoc(t *testing.T) []byte {
	t.Helper()

	doc, err := os.ReadFile("../params/testdata/good_test_parameters.json")
	testza.AssertNil(t, err)
	return doc
}

// newRunner builds a runner whose flyscan plan is replaced with the given
// run function, and starts the worker loop in the background.
func newRunner(t *testing.T, run plans.RunFunc) *runner.Runner {
	t.Helper()

	registry := plans.NewRegistry()
	registry.Register(plans.Definition{
		ExperimentType: params.FlyscanXrayCentre,
		Run:            run,
	})

	r := runner.New(registry, plans.Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.WaitOnQueue(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return r
}

func waitForStatus(t *testing.T, r *runner.Runner, want runner.Status) runner.StatusAndMessage {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state := r.Status()
		if state.Status == want {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("runner never reached status %q, last state %+v", want, r.Status())
	return runner.StatusAndMessage{}
}

func TestRunner_StartsIdle(t *testing.T) {
	t.Parallel()

	r := newRunner(t, func(_ context.Context, _ *params.ExperimentConfig, _ plans.Deps) error {
		return nil
	})

	testza.AssertEqual(t, runner.StatusIdle, r.Status().Status)
}

func TestRunner_SuccessfulPlanReportsSuccess(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{})
	r := newRunner(t, func(_ context.Context, cfg *params.ExperimentConfig, _ plans.Deps) error {
		close(ran)
		testza.AssertEqual(t, "BL03S", cfg.HyperionParams.Beamline)
		return nil
	})

	testza.AssertNil(t, r.Start("flyscan_xray_centre", loadDoc(t)))

	<-ran
	waitForStatus(t, r, runner.StatusSuccess)
}

func TestRunner_FailingPlanReportsFailed(t *testing.T) {
	t.Parallel()

	r := newRunner(t, func(_ context.Context, _ *params.ExperimentConfig, _ plans.Deps) error {
		return oops.Errorf("zebra disarm timed out")
	})

	testza.AssertNil(t, r.Start("flyscan_xray_centre", loadDoc(t)))

	state := waitForStatus(t, r, runner.StatusFailed)
	testza.AssertContains(t, state.Message, "zebra disarm timed out")
}

func TestRunner_StopAbortsRunningPlan(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	r := newRunner(t, func(ctx context.Context, _ *params.ExperimentConfig, _ plans.Deps) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	testza.AssertNil(t, r.Start("flyscan_xray_centre", loadDoc(t)))
	testza.AssertEqual(t, runner.StatusBusy, r.Status().Status)

	<-started
	r.Stop()

	waitForStatus(t, r, runner.StatusIdle)
}

func TestRunner_StartWhileBusyFails(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	r := newRunner(t, func(_ context.Context, _ *params.ExperimentConfig, _ plans.Deps) error {
		close(started)
		<-release
		return nil
	})

	testza.AssertNil(t, r.Start("flyscan_xray_centre", loadDoc(t)))
	<-started

	err := r.Start("flyscan_xray_centre", loadDoc(t))
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "busy")

	close(release)
	waitForStatus(t, r, runner.StatusSuccess)
}

func TestRunner_UnknownPlanFails(t *testing.T) {
	t.Parallel()

	r := newRunner(t, func(_ context.Context, _ *params.ExperimentConfig, _ plans.Deps) error {
		return nil
	})

	err := r.Start("bad_plan", loadDoc(t))
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "not found in registry")
}

func TestRunner_PlanAndDocumentMustAgree(t *testing.T) {
	t.Parallel()

	r := newRunner(t, func(_ context.Context, _ *params.ExperimentConfig, _ plans.Deps) error {
		return nil
	})

	// document says flyscan_xray_centre, endpoint says rotation_scan
	err := r.Start("rotation_scan", loadDoc(t))
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "experiment type")
}

func TestRunner_StartAfterShutdownFails(t *testing.T) {
	t.Parallel()

	r := newRunner(t, func(_ context.Context, _ *params.ExperimentConfig, _ plans.Deps) error {
		return nil
	})

	r.Shutdown()

	err := r.Start("flyscan_xray_centre", loadDoc(t))
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "shut down")
}

func TestRunner_StopBeforePickupDropsJob(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{})
	registry := plans.NewRegistry()
	registry.Register(plans.Definition{
		ExperimentType: params.FlyscanXrayCentre,
		Run: func(_ context.Context, _ *params.ExperimentConfig, _ plans.Deps) error {
			close(ran)
			return nil
		},
	})

	r := runner.New(registry, plans.Deps{})

	// queue the plan and stop it before the worker loop exists
	testza.AssertNil(t, r.Start("flyscan_xray_centre", loadDoc(t)))
	r.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.WaitOnQueue(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	waitForStatus(t, r, runner.StatusIdle)

	select {
	case <-ran:
		t.Fatal("plan ran despite being stopped before it started")
	default:
	}
}

func TestRunner_InvalidDocumentFails(t *testing.T) {
	t.Parallel()

	r := newRunner(t, func(_ context.Context, _ *params.ExperimentConfig, _ plans.Deps) error {
		return nil
	})

	err := r.Start("flyscan_xray_centre", []byte(`{"params_version": "3.0.0"}`))
	testza.AssertNotNil(t, err)
}
