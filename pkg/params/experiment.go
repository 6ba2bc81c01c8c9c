package params

import "github.com/samber/oops"

// ExperimentType selects the scan strategy and with it the shape of
// experiment_params.
type ExperimentType string

const (
	// FlyscanXrayCentre is a continuous grid scan used to locate the crystal.
	FlyscanXrayCentre ExperimentType = "flyscan_xray_centre"

	// RotationScan is a single sweep about the omega axis.
	RotationScan ExperimentType = "rotation_scan"

	// PinCentreThenXrayCentre centres on the pin tip before running the grid scan.
	PinCentreThenXrayCentre ExperimentType = "pin_centre_then_xray_centre"
)

// ExperimentParams is implemented by the per-experiment-type parameter structs.
type ExperimentParams interface {
	// Type reports which experiment type these parameters belong to.
	Type() ExperimentType

	// Validate applies the geometry and timing rules for the scan.
	Validate() error
}

// NewExperimentParams returns an empty parameter struct for the given
// experiment type, ready to be unmarshalled into.
func NewExperimentParams(t ExperimentType) (ExperimentParams, error) { //nolint:ireturn
	switch t {
	case FlyscanXrayCentre, PinCentreThenXrayCentre:
		return &GridScanParams{experimentType: t}, nil
	case RotationScan:
		return &RotationScanParams{}, nil
	default:
		return nil, oops.
			With("experiment_type", string(t)).
			Errorf("unknown experiment type %q", string(t))
	}
}
