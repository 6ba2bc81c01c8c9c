package params_test

import (
	"encoding/json"
	"os"
	"reflect"
	"testing"

	"github.com/MarvinJWendt/testza"
	"github.com/beamtime/hyperion/pkg/params"
)

const goodParams = "testdata/good_test_parameters.json"

func loadFixture(t *testing.T) []byte {
	t.Helper()

	data, err := os.ReadFile(goodParams)
	testza.AssertNil(t, err)
	return data
}

// mutateFixture decodes the fixture into a generic tree, applies fn, and
// re-encodes it. Used to produce documents that are broken in one spot.
func mutateFixture(t *testing.T, fn func(doc map[string]any)) []byte {
	t.Helper()

	var doc map[string]any
	testza.AssertNil(t, json.Unmarshal(loadFixture(t), &doc))
	fn(doc)

	data, err := json.Marshal(doc)
	testza.AssertNil(t, err)
	return data
}

func hyperionParams(doc map[string]any) map[string]any {
	return doc["hyperion_params"].(map[string]any)
}

func experimentParams(doc map[string]any) map[string]any {
	return doc["experiment_params"].(map[string]any)
}

func TestDecode_GoodDocument(t *testing.T) {
	t.Parallel()

	cfg, err := params.FromFile(goodParams)
	testza.AssertNil(t, err)

	testza.AssertEqual(t, "3.0.0", cfg.ParamsVersion)
	testza.AssertEqual(t, "BL03S", cfg.HyperionParams.Beamline)
	testza.AssertEqual(t, "SR03S", cfg.HyperionParams.InsertionPrefix)
	testza.AssertEqual(t, params.FlyscanXrayCentre, cfg.HyperionParams.ExperimentType)
	testza.AssertEqual(t, 100.0, cfg.HyperionParams.DetectorParams.CurrentEnergyEV)
	testza.AssertEqual(t, false, cfg.HyperionParams.DetectorParams.UseROIMode)
	testza.AssertEqual(t, params.Vec3{10, 20, 30}, cfg.HyperionParams.IspybParams.Position)

	grid, ok := cfg.ExperimentParams.(*params.GridScanParams)
	testza.AssertTrue(t, ok)
	testza.AssertEqual(t, 40, grid.XSteps)
	testza.AssertEqual(t, 0.2, grid.DwellTime)
}

func TestRoundTrip_StructurallyEquivalent(t *testing.T) {
	t.Parallel()

	original := loadFixture(t)

	cfg, err := params.Decode(original)
	testza.AssertNil(t, err)

	reencoded, err := json.Marshal(cfg)
	testza.AssertNil(t, err)

	var want, got map[string]any
	testza.AssertNil(t, json.Unmarshal(original, &want))
	testza.AssertNil(t, json.Unmarshal(reencoded, &got))

	testza.AssertTrue(t, reflect.DeepEqual(want, got))
}

func TestDecode_StepsWithWrongTypeFails(t *testing.T) {
	t.Parallel()

	data := mutateFixture(t, func(doc map[string]any) {
		experimentParams(doc)["x_steps"] = "forty"
	})

	_, err := params.Decode(data)
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "experiment_params")
}

func TestValidate_NegativeDwellTimeFails(t *testing.T) {
	t.Parallel()

	data := mutateFixture(t, func(doc map[string]any) {
		experimentParams(doc)["dwell_time"] = -0.2
	})

	cfg, err := params.Decode(data)
	testza.AssertNil(t, err)

	err = cfg.Validate()
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "dwell_time")
}

func TestDecode_NullableFieldsAcceptNull(t *testing.T) {
	t.Parallel()

	cfg, err := params.FromFile(goodParams)
	testza.AssertNil(t, err)

	ispyb := cfg.HyperionParams.IspybParams
	testza.AssertNil(t, ispyb.SampleID)
	testza.AssertNil(t, ispyb.SynchrotronMode)
	testza.AssertNotNil(t, ispyb.UndulatorGap)
	testza.AssertEqual(t, 1.0, *ispyb.UndulatorGap)
}

func TestDecode_NullableFieldsAcceptValues(t *testing.T) {
	t.Parallel()

	data := mutateFixture(t, func(doc map[string]any) {
		ispyb := hyperionParams(doc)["ispyb_params"].(map[string]any)
		ispyb["sample_id"] = 12345
		ispyb["synchrotron_mode"] = "User"
	})

	cfg, err := params.Decode(data)
	testza.AssertNil(t, err)

	ispyb := cfg.HyperionParams.IspybParams
	testza.AssertNotNil(t, ispyb.SampleID)
	testza.AssertEqual(t, int64(12345), *ispyb.SampleID)
	testza.AssertNotNil(t, ispyb.SynchrotronMode)
	testza.AssertEqual(t, "User", *ispyb.SynchrotronMode)
}

func TestDecode_ShortVectorFails(t *testing.T) {
	t.Parallel()

	data := mutateFixture(t, func(doc map[string]any) {
		hyperionParams(doc)["ispyb_params"].(map[string]any)["upper_left"] = []any{0, 0}
	})

	_, err := params.Decode(data)
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "exactly 3 components")
}

func TestValidate_SnapshotListLengthMismatchFails(t *testing.T) {
	t.Parallel()

	data := mutateFixture(t, func(doc map[string]any) {
		ispyb := hyperionParams(doc)["ispyb_params"].(map[string]any)
		ispyb["xtal_snapshots_omega_end"] = []any{"test_1_z"}
	})

	cfg, err := params.Decode(data)
	testza.AssertNil(t, err)

	err = cfg.Validate()
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "matching lengths")
}

func TestDecode_UnknownExperimentTypeFails(t *testing.T) {
	t.Parallel()

	data := mutateFixture(t, func(doc map[string]any) {
		hyperionParams(doc)["experiment_type"] = "laser_alignment"
	})

	_, err := params.Decode(data)
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "unknown experiment type")
}

func TestDecode_MalformedJSONFails(t *testing.T) {
	t.Parallel()

	_, err := params.Decode([]byte(`{"params_version": `))
	testza.AssertNotNil(t, err)
}

func TestCheckVersion(t *testing.T) {
	t.Parallel()

	testza.AssertNil(t, params.CheckVersion("3.0.0"))
	testza.AssertNil(t, params.CheckVersion("3.2.1"))

	err := params.CheckVersion("2.3.0")
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "unsupported params_version")

	err = params.CheckVersion("not-a-version")
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "not a valid semantic version")

	testza.AssertNotNil(t, params.CheckVersion(""))
}
