package params

import "github.com/samber/oops"

// DetectorParams holds the detector runtime settings: beam energy, output
// file naming, and the lookup table used for beam-distance conversion.
type DetectorParams struct {
	CurrentEnergyEV            float64 `json:"current_energy_ev"`
	Directory                  string  `json:"directory"`
	Prefix                     string  `json:"prefix"`
	RunNumber                  int     `json:"run_number"`
	UseROIMode                 bool    `json:"use_roi_mode"`
	DetDistToBeamConverterPath string  `json:"det_dist_to_beam_converter_path"`
}

// Validate checks the detector settings.
func (d *DetectorParams) Validate() error {
	if d.CurrentEnergyEV < 0 {
		return oops.
			With("current_energy_ev", d.CurrentEnergyEV).
			Errorf("current_energy_ev must not be negative")
	}

	if d.RunNumber < 0 {
		return oops.
			With("run_number", d.RunNumber).
			Errorf("run_number must not be negative")
	}

	return nil
}
