package plans

import (
	"context"
	"log/slog"

	"github.com/Vilsol/slox"
	"github.com/beamtime/hyperion/pkg/params"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/beamtime/hyperion/pkg/plans")

// RunGridScan executes the flyscan X-ray centring plan: walk the x/y grid at
// z1, then the x/z grid at y2, exposing at each point.
func RunGridScan(ctx context.Context, cfg *params.ExperimentConfig, deps Deps) error {
	ctx, span := tracer.Start(ctx, "run_gridscan")
	defer span.End()

	grid, ok := cfg.ExperimentParams.(*params.GridScanParams)
	if !ok {
		return oops.Errorf("grid scan started with %T parameters", cfg.ExperimentParams)
	}

	span.SetAttributes(
		attribute.String("beamline", cfg.HyperionParams.Beamline),
		attribute.Int("num_images", grid.NumImages()),
	)

	slox.Info(
		ctx,
		"starting grid scan",
		slog.String("beamline", cfg.HyperionParams.Beamline),
		slog.Int("num_images", grid.NumImages()),
	)

	depositionID, err := beginDeposition(ctx, cfg, deps)
	if err != nil {
		return err
	}

	if deps.Beamline != nil {
		if err := deps.Beamline.SetOmega(ctx, grid.OmegaStart); err != nil {
			return endDeposition(ctx, deps, depositionID, oops.Wrapf(err, "failed to set omega for grid scan"))
		}
	}

	for i := range grid.NumImages() {
		if err := ctx.Err(); err != nil {
			return endDeposition(ctx, deps, depositionID, oops.Wrapf(err, "grid scan aborted"))
		}

		point := grid.PointAt(i)

		if deps.Beamline != nil {
			if err := deps.Beamline.MoveTo(ctx, point.X, point.Y, point.Z); err != nil {
				return endDeposition(ctx, deps, depositionID, oops.With("image", i).Wrapf(err, "failed to move to grid point"))
			}
			if err := deps.Beamline.Expose(ctx, grid.ExposureTime); err != nil {
				return endDeposition(ctx, deps, depositionID, oops.With("image", i).Wrapf(err, "failed to expose"))
			}
		}
	}

	slox.Info(ctx, "grid scan complete", slog.Int("num_images", grid.NumImages()))

	return endDeposition(ctx, deps, depositionID, nil)
}

// RunPinCentreThenGridScan centres on the pin tip before handing over to the
// grid scan. The centring move targets the recorded sample position.
func RunPinCentreThenGridScan(ctx context.Context, cfg *params.ExperimentConfig, deps Deps) error {
	ctx, span := tracer.Start(ctx, "pin_tip_centre")

	position := cfg.HyperionParams.IspybParams.Position

	if deps.Beamline != nil {
		if err := deps.Beamline.MoveTo(ctx, position.X(), position.Y(), position.Z()); err != nil {
			span.End()
			return oops.Wrapf(err, "failed to centre on pin tip")
		}
	}

	slox.Debug(
		ctx,
		"centred on pin tip",
		slog.Float64("x", position.X()),
		slog.Float64("y", position.Y()),
		slog.Float64("z", position.Z()),
	)
	span.End()

	return RunGridScan(ctx, cfg, deps)
}

func beginDeposition(ctx context.Context, cfg *params.ExperimentConfig, deps Deps) (int64, error) {
	if deps.Depositions == nil {
		return 0, nil
	}

	id, err := deps.Depositions.BeginDeposition(ctx, cfg)
	if err != nil {
		return 0, oops.Wrapf(err, "failed to begin ispyb deposition")
	}
	return id, nil
}

// endDeposition closes the deposition with the outcome of the run and passes
// the run error through.
func endDeposition(ctx context.Context, deps Deps, id int64, runErr error) error {
	if deps.Depositions == nil {
		return runErr
	}

	runStatus := RunStatusSuccess
	reason := ""
	if runErr != nil {
		runStatus = RunStatusFailure
		reason = runErr.Error()
	}

	// Deposition has to be closed even when the run context is gone
	if err := deps.Depositions.EndDeposition(context.WithoutCancel(ctx), id, runStatus, reason); err != nil {
		if runErr != nil {
			return runErr
		}
		return oops.Wrapf(err, "failed to end ispyb deposition")
	}

	return runErr
}
