package params

import "github.com/samber/oops"

// GridScanParams describes the flyscan stepping geometry. The scan covers two
// grids sharing the x axis: x/y at height z1, then x/z at height y2, which is
// how the crystal is located in all three dimensions from two camera angles.
type GridScanParams struct {
	XSteps int `json:"x_steps"`
	YSteps int `json:"y_steps"`
	ZSteps int `json:"z_steps"`

	XStepSize float64 `json:"x_step_size"`
	YStepSize float64 `json:"y_step_size"`
	ZStepSize float64 `json:"z_step_size"`

	// DwellTime is the time spent on each grid point, in seconds.
	DwellTime float64 `json:"dwell_time"`

	// ExposureTime is the detector exposure per image, in seconds.
	ExposureTime float64 `json:"exposure_time"`

	XStart  float64 `json:"x_start"`
	Y1Start float64 `json:"y1_start"`
	Y2Start float64 `json:"y2_start"`
	Z1Start float64 `json:"z1_start"`
	Z2Start float64 `json:"z2_start"`

	DetectorDistance float64 `json:"detector_distance"`
	OmegaStart       float64 `json:"omega_start"`

	experimentType ExperimentType
}

// Type reports the experiment type these parameters were decoded for.
func (g *GridScanParams) Type() ExperimentType {
	if g.experimentType == "" {
		return FlyscanXrayCentre
	}
	return g.experimentType
}

// Validate applies the grid geometry rules.
func (g *GridScanParams) Validate() error {
	if g.XSteps < 0 || g.YSteps < 0 || g.ZSteps < 0 {
		return oops.
			With("x_steps", g.XSteps).
			With("y_steps", g.YSteps).
			With("z_steps", g.ZSteps).
			Errorf("step counts must not be negative")
	}

	if g.XStepSize < 0 || g.YStepSize < 0 || g.ZStepSize < 0 {
		return oops.
			With("x_step_size", g.XStepSize).
			With("y_step_size", g.YStepSize).
			With("z_step_size", g.ZStepSize).
			Errorf("step sizes must not be negative")
	}

	if g.DwellTime < 0 {
		return oops.
			With("dwell_time", g.DwellTime).
			Errorf("dwell_time must not be negative")
	}

	if g.ExposureTime < 0 {
		return oops.
			With("exposure_time", g.ExposureTime).
			Errorf("exposure_time must not be negative")
	}

	if g.DetectorDistance < 0 {
		return oops.
			With("detector_distance", g.DetectorDistance).
			Errorf("detector_distance must not be negative")
	}

	return nil
}

// NumImages is the total number of images collected: the x/y grid followed by
// the x/z grid.
func (g *GridScanParams) NumImages() int {
	return g.XSteps*g.YSteps + g.XSteps*g.ZSteps
}

// GridPoint is a single sample position within the scan.
type GridPoint struct {
	X, Y, Z float64
}

// PointAt returns the motor position for image index i, walking the x/y grid
// row by row and then the x/z grid. The index must be in [0, NumImages).
func (g *GridScanParams) PointAt(i int) GridPoint {
	firstGrid := g.XSteps * g.YSteps

	if i < firstGrid {
		row := i / g.XSteps
		col := i % g.XSteps
		return GridPoint{
			X: g.XStart + float64(col)*g.XStepSize,
			Y: g.Y1Start + float64(row)*g.YStepSize,
			Z: g.Z1Start,
		}
	}

	i -= firstGrid
	row := i / g.XSteps
	col := i % g.XSteps
	return GridPoint{
		X: g.XStart + float64(col)*g.XStepSize,
		Y: g.Y2Start,
		Z: g.Z2Start + float64(row)*g.ZStepSize,
	}
}
