// Package params defines the typed experiment parameter document that
// beamline clients submit to start a scan, together with its decoding and
// validation rules. The document is a versioned JSON envelope: the shape of
// experiment_params depends on hyperion_params.experiment_type, so decoding
// happens in two phases.
package params

import (
	"encoding/json"
	"os"

	"github.com/samber/oops"
)

// ExperimentConfig is the top-level parameter document.
type ExperimentConfig struct {
	ParamsVersion    string           `json:"params_version"`
	HyperionParams   HyperionParams   `json:"hyperion_params"`
	ExperimentParams ExperimentParams `json:"experiment_params"`
}

// HyperionParams carries beamline identity and the detector and ISPyB sub-configs.
type HyperionParams struct {
	ZocaloEnvironment string         `json:"zocalo_environment"`
	Beamline          string         `json:"beamline"`
	InsertionPrefix   string         `json:"insertion_prefix"`
	ExperimentType    ExperimentType `json:"experiment_type"`
	DetectorParams    DetectorParams `json:"detector_params"`
	IspybParams       IspybParams    `json:"ispyb_params"`
}

type envelope struct {
	ParamsVersion    string          `json:"params_version"`
	HyperionParams   json.RawMessage `json:"hyperion_params"`
	ExperimentParams json.RawMessage `json:"experiment_params"`
}

// Decode parses a parameter document. Type mismatches and unknown experiment
// types are reported here; range rules are left to Validate so the two
// failure modes stay distinguishable.
func Decode(data []byte) (*ExperimentConfig, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, oops.Wrapf(err, "failed to parse parameter document")
	}

	cfg := &ExperimentConfig{
		ParamsVersion: env.ParamsVersion,
	}

	if env.HyperionParams == nil {
		return nil, oops.Errorf("parameter document is missing hyperion_params")
	}
	if err := json.Unmarshal(env.HyperionParams, &cfg.HyperionParams); err != nil {
		return nil, oops.Wrapf(err, "failed to parse hyperion_params")
	}

	experiment, err := NewExperimentParams(cfg.HyperionParams.ExperimentType)
	if err != nil {
		return nil, err
	}

	if env.ExperimentParams == nil {
		return nil, oops.
			With("experiment_type", cfg.HyperionParams.ExperimentType).
			Errorf("parameter document is missing experiment_params")
	}
	if err := json.Unmarshal(env.ExperimentParams, experiment); err != nil {
		return nil, oops.
			With("experiment_type", cfg.HyperionParams.ExperimentType).
			Wrapf(err, "failed to parse experiment_params")
	}

	cfg.ExperimentParams = experiment

	return cfg, nil
}

// FromFile reads, decodes, and validates a parameter document.
func FromFile(path string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to read parameter file: %s", path)
	}

	cfg, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, oops.Wrapf(err, "invalid parameter file: %s", path)
	}

	return cfg, nil
}

// Validate applies the document-level invariants: the version gate, the
// ISPyB metadata rules, and the per-experiment geometry rules.
func (c *ExperimentConfig) Validate() error {
	if err := CheckVersion(c.ParamsVersion); err != nil {
		return err
	}

	if err := c.HyperionParams.DetectorParams.Validate(); err != nil {
		return oops.Wrapf(err, "invalid detector_params")
	}

	if err := c.HyperionParams.IspybParams.Validate(); err != nil {
		return oops.Wrapf(err, "invalid ispyb_params")
	}

	if c.ExperimentParams == nil {
		return oops.Errorf("experiment_params not decoded")
	}

	if err := c.ExperimentParams.Validate(); err != nil {
		return oops.
			With("experiment_type", c.HyperionParams.ExperimentType).
			Wrapf(err, "invalid experiment_params")
	}

	return nil
}
