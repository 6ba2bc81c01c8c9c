package plans

import (
	"context"
	"log/slog"

	"github.com/Vilsol/slox"
	"github.com/beamtime/hyperion/pkg/params"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
)

// RunRotationScan executes a single omega sweep, stepping the axis by the
// image width and exposing once per step.
func RunRotationScan(ctx context.Context, cfg *params.ExperimentConfig, deps Deps) error {
	ctx, span := tracer.Start(ctx, "rotation_scan")
	defer span.End()

	rot, ok := cfg.ExperimentParams.(*params.RotationScanParams)
	if !ok {
		return oops.Errorf("rotation scan started with %T parameters", cfg.ExperimentParams)
	}

	span.SetAttributes(
		attribute.Float64("omega_start", rot.OmegaStart),
		attribute.Float64("scan_width", rot.ScanWidth),
	)

	slox.Info(
		ctx,
		"starting rotation scan",
		slog.Float64("omega_start", rot.OmegaStart),
		slog.Float64("scan_width", rot.ScanWidth),
		slog.Int("num_images", rot.NumImages()),
	)

	depositionID, err := beginDeposition(ctx, cfg, deps)
	if err != nil {
		return err
	}

	for i := range rot.NumImages() {
		if err := ctx.Err(); err != nil {
			return endDeposition(ctx, deps, depositionID, oops.Wrapf(err, "rotation scan aborted"))
		}

		if deps.Beamline != nil {
			angle := rot.OmegaStart + float64(i)*rot.ImageWidth
			if err := deps.Beamline.SetOmega(ctx, angle); err != nil {
				return endDeposition(ctx, deps, depositionID, oops.With("image", i).Wrapf(err, "failed to rotate omega"))
			}
			if err := deps.Beamline.Expose(ctx, rot.ExposureTime); err != nil {
				return endDeposition(ctx, deps, depositionID, oops.With("image", i).Wrapf(err, "failed to expose"))
			}
		}
	}

	slox.Info(ctx, "rotation scan complete", slog.Int("num_images", rot.NumImages()))

	return endDeposition(ctx, deps, depositionID, nil)
}
