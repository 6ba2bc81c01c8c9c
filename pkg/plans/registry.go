// Package plans maps experiment types to the code that runs them. The
// registry is what the REST surface consults when a client asks to start a
// named plan.
package plans

import (
	"context"

	"github.com/beamtime/hyperion/pkg/params"
	"github.com/samber/oops"
)

// Beamline is the slice of beamline hardware the plans drive. A nil Beamline
// in Deps turns a run into a dry run that only walks the trajectory and
// deposits metadata.
type Beamline interface {
	// MoveTo moves the sample motors to the given position.
	MoveTo(ctx context.Context, x, y, z float64) error

	// SetOmega rotates the omega axis to the given angle in degrees.
	SetOmega(ctx context.Context, angle float64) error

	// Expose triggers a detector exposure of the given length in seconds.
	Expose(ctx context.Context, seconds float64) error
}

// Run statuses ISPyB understands for a closed data collection.
const (
	RunStatusSuccess = "DataCollection Successful"
	RunStatusFailure = "DataCollection Unsuccessful"
)

// DepositionStore records scans in ISPyB. May be nil when the daemon runs
// without a database.
type DepositionStore interface {
	BeginDeposition(ctx context.Context, cfg *params.ExperimentConfig) (int64, error)
	EndDeposition(ctx context.Context, id int64, runStatus string, reason string) error
}

// Deps carries the external collaborators a plan run may use.
type Deps struct {
	Beamline    Beamline
	Depositions DepositionStore
}

// RunFunc executes a plan with decoded, validated parameters. It must return
// promptly once ctx is cancelled; that is how aborts work.
type RunFunc func(ctx context.Context, cfg *params.ExperimentConfig, deps Deps) error

// Definition ties an experiment type to its run function.
type Definition struct {
	ExperimentType params.ExperimentType
	Run            RunFunc
}

// Registry holds the known experiment plans.
type Registry struct {
	defs map[params.ExperimentType]Definition
}

// NewRegistry returns a registry with the built-in plans registered.
func NewRegistry() *Registry {
	r := &Registry{
		defs: make(map[params.ExperimentType]Definition),
	}

	r.Register(Definition{ExperimentType: params.FlyscanXrayCentre, Run: RunGridScan})
	r.Register(Definition{ExperimentType: params.PinCentreThenXrayCentre, Run: RunPinCentreThenGridScan})
	r.Register(Definition{ExperimentType: params.RotationScan, Run: RunRotationScan})

	return r
}

// Register adds or replaces a plan definition.
func (r *Registry) Register(def Definition) {
	r.defs[def.ExperimentType] = def
}

// Lookup finds the plan for the given experiment type name.
func (r *Registry) Lookup(name string) (Definition, error) {
	def, ok := r.defs[params.ExperimentType(name)]
	if !ok {
		return Definition{}, oops.
			With("plan", name).
			Errorf("experiment plan %q not found in registry", name)
	}
	return def, nil
}

// Names returns the registered experiment type names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for t := range r.defs {
		names = append(names, string(t))
	}
	return names
}
