package params

import "github.com/samber/oops"

// IspybParams is the metadata deposited into the ISPyB sample-tracking
// database alongside a scan. upper_left is in pixels on the OAV image,
// position is the sample motor position. The undulator gap, synchrotron mode
// and slit gaps are read from the machine at run time and may be absent.
type IspybParams struct {
	VisitPath               string   `json:"visit_path"`
	MicronsPerPixelX        float64  `json:"microns_per_pixel_x"`
	MicronsPerPixelY        float64  `json:"microns_per_pixel_y"`
	UpperLeft               Vec3     `json:"upper_left"`
	Position                Vec3     `json:"position"`
	XtalSnapshotsOmegaStart []string `json:"xtal_snapshots_omega_start"`
	XtalSnapshotsOmegaEnd   []string `json:"xtal_snapshots_omega_end"`
	Transmission            float64  `json:"transmission"`
	Flux                    float64  `json:"flux"`
	Wavelength              float64  `json:"wavelength"`
	BeamSizeX               float64  `json:"beam_size_x"`
	BeamSizeY               float64  `json:"beam_size_y"`
	FocalSpotSizeX          float64  `json:"focal_spot_size_x"`
	FocalSpotSizeY          float64  `json:"focal_spot_size_y"`
	Comment                 string   `json:"comment"`
	Resolution              float64  `json:"resolution"`

	SampleID      *int64  `json:"sample_id"`
	SampleBarcode *string `json:"sample_barcode"`

	UndulatorGap    *float64 `json:"undulator_gap"`
	SynchrotronMode *string  `json:"synchrotron_mode"`
	SlitGapSizeX    *float64 `json:"slit_gap_size_x"`
	SlitGapSizeY    *float64 `json:"slit_gap_size_y"`
}

// Validate checks the ISPyB metadata. The two snapshot lists describe the
// same crystal at the start and end of the omega rotation, so their lengths
// must match.
func (p *IspybParams) Validate() error {
	if len(p.XtalSnapshotsOmegaStart) != len(p.XtalSnapshotsOmegaEnd) {
		return oops.
			With("omega_start", len(p.XtalSnapshotsOmegaStart)).
			With("omega_end", len(p.XtalSnapshotsOmegaEnd)).
			Errorf(
				"xtal_snapshots_omega_start and xtal_snapshots_omega_end must have matching lengths (%d != %d)",
				len(p.XtalSnapshotsOmegaStart), len(p.XtalSnapshotsOmegaEnd),
			)
	}

	if p.Transmission < 0 || p.Transmission > 1 {
		return oops.
			With("transmission", p.Transmission).
			Errorf("transmission must be a fraction between 0 and 1")
	}

	if p.Wavelength < 0 {
		return oops.
			With("wavelength", p.Wavelength).
			Errorf("wavelength must not be negative")
	}

	return nil
}
