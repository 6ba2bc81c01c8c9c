// Package logging assembles the process logger: a tint console handler
// wrapped so every record carries the active trace and span ids.
package logging

import (
	"context"
	"log/slog"

	"github.com/beamtime/hyperion/pkg/config"
	"github.com/beamtime/hyperion/pkg/hyperion"
	"github.com/knadh/koanf/v2"
	slogotel "github.com/remychantenay/slog-otel"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

var (
	_ hyperion.Module       = (*Module)(nil)
	_ hyperion.Configurable = (*Module)(nil)
	_ hyperion.NamedModule  = (*Module)(nil)
)

// Module provides a *slog.Logger via DI.
type Module struct {
	config Config
	logger *slog.Logger
}

// NewModule creates a new logging module with the given options.
func NewModule(options ...Option) *Module {
	return &Module{config: NewConfig(options...)}
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.config.Name
}

// ConfigPath returns the koanf path for this module's configuration.
func (m *Module) ConfigPath() string {
	return config.ModulePath(config.CategoryLogging, "tint", m.config.Name)
}

// LoadConfig loads configuration from koanf.
func (m *Module) LoadConfig(k *koanf.Koanf) error {
	path := m.ConfigPath()
	if k.Exists(path) {
		return m.config.LoadFromKoanf(k, path)
	}
	return nil
}

// Init loads configuration, builds the logger, and registers it in DI.
func (m *Module) Init(ctx context.Context) error {
	// Load config from koanf if available
	if k, err := do.Invoke[*koanf.Koanf](hyperion.GetInjector(ctx)); err == nil {
		if err := m.LoadConfig(k); err != nil {
			return oops.Wrapf(err, "failed to load config")
		}
	}

	m.config.levelParsed = m.config.ParseLevel()

	m.logger = slog.New(slogotel.New(m.config.NewHandler()))

	if m.config.GlobalDefault {
		slog.SetDefault(m.logger)
	}

	hyperion.Provide(ctx, m.getLogger)

	return nil
}

// Shutdown is a no-op for this module.
func (m *Module) Shutdown(_ context.Context) error {
	return nil
}

func (m *Module) getLogger(_ do.Injector) (*slog.Logger, error) {
	return m.logger, nil
}
