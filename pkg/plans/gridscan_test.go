package plans_test

import (
	"context"
	"sync"
	"testing"

	"github.com/MarvinJWendt/testza"
	"github.com/beamtime/hyperion/pkg/params"
	"github.com/beamtime/hyperion/pkg/plans"
	"github.com/samber/oops"
)

type recordedMove struct{ x, y, z float64 }

type fakeBeamline struct {
	mu        sync.Mutex
	moves     []recordedMove
	exposures int
	omega     float64
	failMove  error
}

func (f *fakeBeamline) MoveTo(_ context.Context, x, y, z float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMove != nil {
		return f.failMove
	}
	f.moves = append(f.moves, recordedMove{x: x, y: y, z: z})
	return nil
}

func (f *fakeBeamline) SetOmega(_ context.Context, angle float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.omega = angle
	return nil
}

func (f *fakeBeamline) Expose(_ context.Context, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exposures++
	return nil
}

type fakeDepositions struct {
	begun     int
	ended     int
	runStatus string
	reason    string
	failBegin error
}

func (f *fakeDepositions) BeginDeposition(_ context.Context, _ *params.ExperimentConfig) (int64, error) {
	if f.failBegin != nil {
		return 0, f.failBegin
	}
	f.begun++
	return 42, nil
}

func (f *fakeDepositions) EndDeposition(_ context.Context, id int64, runStatus string, reason string) error {
	f.ended++
	f.runStatus = runStatus
	f.reason = reason
	return nil
}

func gridConfig() *params.ExperimentConfig {
	return &params.ExperimentConfig{
		ParamsVersion: "3.0.0",
		HyperionParams: params.HyperionParams{
			Beamline:       "BL03S",
			ExperimentType: params.FlyscanXrayCentre,
		},
		ExperimentParams: &params.GridScanParams{
			XSteps:       2,
			YSteps:       2,
			ZSteps:       1,
			XStepSize:    1,
			YStepSize:    1,
			ZStepSize:    1,
			ExposureTime: 0.1,
		},
	}
}

func TestRunGridScan_DrivesEveryPoint(t *testing.T) {
	t.Parallel()

	beamline := &fakeBeamline{}
	depositions := &fakeDepositions{}

	err := plans.RunGridScan(context.Background(), gridConfig(), plans.Deps{
		Beamline:    beamline,
		Depositions: depositions,
	})
	testza.AssertNil(t, err)

	// 2x2 grid plus 2x1 grid
	testza.AssertEqual(t, 6, len(beamline.moves))
	testza.AssertEqual(t, 6, beamline.exposures)

	testza.AssertEqual(t, 1, depositions.begun)
	testza.AssertEqual(t, 1, depositions.ended)
	testza.AssertEqual(t, "DataCollection Successful", depositions.runStatus)
}

func TestRunGridScan_AbortEndsDeposition(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	depositions := &fakeDepositions{}

	err := plans.RunGridScan(ctx, gridConfig(), plans.Deps{Depositions: depositions})
	testza.AssertNotNil(t, err)

	testza.AssertEqual(t, 1, depositions.ended)
	testza.AssertEqual(t, "DataCollection Unsuccessful", depositions.runStatus)
	testza.AssertContains(t, depositions.reason, "aborted")
}

func TestRunGridScan_MoveFailureReportsReason(t *testing.T) {
	t.Parallel()

	beamline := &fakeBeamline{failMove: oops.Errorf("smargon lost encoder position")}
	depositions := &fakeDepositions{}

	err := plans.RunGridScan(context.Background(), gridConfig(), plans.Deps{
		Beamline:    beamline,
		Depositions: depositions,
	})
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "smargon lost encoder position")
	testza.AssertEqual(t, "DataCollection Unsuccessful", depositions.runStatus)
}

func TestRunGridScan_WrongParamsType(t *testing.T) {
	t.Parallel()

	cfg := gridConfig()
	cfg.ExperimentParams = &params.RotationScanParams{}

	err := plans.RunGridScan(context.Background(), cfg, plans.Deps{})
	testza.AssertNotNil(t, err)
}

func TestRunRotationScan_ExposesPerImage(t *testing.T) {
	t.Parallel()

	beamline := &fakeBeamline{}

	cfg := &params.ExperimentConfig{
		ParamsVersion: "3.0.0",
		HyperionParams: params.HyperionParams{
			Beamline:       "BL03S",
			ExperimentType: params.RotationScan,
		},
		ExperimentParams: &params.RotationScanParams{
			OmegaStart:   0,
			ScanWidth:    10,
			ImageWidth:   1,
			ExposureTime: 0.01,
		},
	}

	err := plans.RunRotationScan(context.Background(), cfg, plans.Deps{Beamline: beamline})
	testza.AssertNil(t, err)
	testza.AssertEqual(t, 10, beamline.exposures)
	// last step parked omega one image width short of the full sweep
	testza.AssertEqual(t, 9.0, beamline.omega)
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	registry := plans.NewRegistry()

	def, err := registry.Lookup("flyscan_xray_centre")
	testza.AssertNil(t, err)
	testza.AssertEqual(t, params.FlyscanXrayCentre, def.ExperimentType)

	_, err = registry.Lookup("bad_plan")
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "not found in registry")
}
