package params

import (
	"math"

	"github.com/samber/oops"
)

// MinExposureTime is the shortest exposure the shutter hardware can deliver,
// in seconds. Rotation scans below this are rejected up front.
const MinExposureTime = 0.005

// RotationScanParams describes a single sweep about the omega axis.
type RotationScanParams struct {
	// OmegaStart is the angle at which the sweep begins, in degrees.
	OmegaStart float64 `json:"omega_start"`

	// ScanWidth is the total angle through which to collect, in degrees.
	ScanWidth float64 `json:"scan_width"`

	// ImageWidth is the angle covered by a single image, in degrees.
	ImageWidth float64 `json:"image_width"`

	// ExposureTime is the detector exposure per image, in seconds.
	ExposureTime float64 `json:"exposure_time"`

	DetectorDistance float64 `json:"detector_distance"`
}

// Type reports the experiment type these parameters belong to.
func (r *RotationScanParams) Type() ExperimentType {
	return RotationScan
}

// Validate applies the sweep geometry and timing rules.
func (r *RotationScanParams) Validate() error {
	if r.ScanWidth <= 0 {
		return oops.
			With("scan_width", r.ScanWidth).
			Errorf("scan_width must be positive")
	}

	if r.ImageWidth <= 0 {
		return oops.
			With("image_width", r.ImageWidth).
			Errorf("image_width must be positive")
	}

	if r.ExposureTime < MinExposureTime {
		return oops.
			With("exposure_time", r.ExposureTime).
			Errorf("exposure_time %g is less than the allowed minimum of %g", r.ExposureTime, MinExposureTime)
	}

	if r.DetectorDistance < 0 {
		return oops.
			With("detector_distance", r.DetectorDistance).
			Errorf("detector_distance must not be negative")
	}

	return nil
}

// NumImages is the number of images collected over the sweep.
func (r *RotationScanParams) NumImages() int {
	return int(math.Ceil(r.ScanWidth / r.ImageWidth))
}
