package runner

import (
	"context"

	"github.com/beamtime/hyperion/pkg/config"
	"github.com/beamtime/hyperion/pkg/hyperion"
	"github.com/beamtime/hyperion/pkg/params"
	"github.com/beamtime/hyperion/pkg/plans"
	"github.com/knadh/koanf/v2"
	"github.com/samber/do/v2"
)

var (
	_ hyperion.SyncModule   = (*Module)(nil)
	_ hyperion.Configurable = (*Module)(nil)
	_ hyperion.NamedModule  = (*Module)(nil)
)

// Config represents configuration for the run engine [Module].
type Config struct {
	// Instance name
	Name string `koanf:"-"`
}

// NewDefaultConfig returns default configuration.
func NewDefaultConfig() Config {
	return Config{
		Name: config.DefaultInstanceName,
	}
}

// Option configures the Module.
type Option func(m *Module)

// WithName sets the instance name for this module.
func WithName(name string) Option {
	return func(m *Module) { m.config.Name = name }
}

// WithBeamline sets the beamline hardware the plans drive (code-only).
func WithBeamline(b plans.Beamline) Option {
	return func(m *Module) { m.beamline = b }
}

// WithRegistry replaces the default plan registry (code-only).
func WithRegistry(r *plans.Registry) Option {
	return func(m *Module) { m.registry = r }
}

// Module hosts the run engine worker.
type Module struct {
	config   Config
	registry *plans.Registry
	beamline plans.Beamline
	runner   *Runner
}

// NewModule creates a new run engine module with the given options.
func NewModule(options ...Option) *Module {
	m := &Module{
		config:   NewDefaultConfig(),
		registry: plans.NewRegistry(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.config.Name
}

// ConfigPath returns the koanf path for this module's configuration.
func (m *Module) ConfigPath() string {
	return config.ModulePath(config.CategoryEngine, "runner", m.config.Name)
}

// LoadConfig loads configuration from koanf.
func (m *Module) LoadConfig(k *koanf.Koanf) error {
	path := m.ConfigPath()
	if k.Exists(path) {
		return k.Unmarshal(path, &m.config)
	}
	return nil
}

// Init builds the runner and registers it in DI. The deposition store is
// optional and provided by the db module only once it has connected, so it
// is resolved lazily on first use rather than here.
func (m *Module) Init(ctx context.Context) error {
	deps := plans.Deps{
		Beamline:    m.beamline,
		Depositions: &injectedStore{injector: hyperion.GetInjector(ctx)},
	}

	m.runner = New(m.registry, deps)

	hyperion.Provide(ctx, m.getRunner)

	return nil
}

// Start runs the worker loop until shutdown.
func (m *Module) Start(ctx context.Context) error {
	return m.runner.WaitOnQueue(ctx)
}

// Shutdown stops accepting work.
func (m *Module) Shutdown(_ context.Context) error {
	m.runner.Shutdown()
	return nil
}

func (m *Module) getRunner(_ do.Injector) (*Runner, error) {
	return m.runner, nil
}

// injectedStore defers store resolution until a plan actually deposits.
// When no db module is wired, depositions are skipped entirely.
type injectedStore struct {
	injector do.Injector
}

func (s *injectedStore) BeginDeposition(ctx context.Context, cfg *params.ExperimentConfig) (int64, error) {
	store, err := do.Invoke[plans.DepositionStore](s.injector)
	if err != nil {
		return 0, nil
	}
	return store.BeginDeposition(ctx, cfg)
}

func (s *injectedStore) EndDeposition(ctx context.Context, id int64, runStatus string, reason string) error {
	store, err := do.Invoke[plans.DepositionStore](s.injector)
	if err != nil {
		return nil
	}
	return store.EndDeposition(ctx, id, runStatus, reason)
}
