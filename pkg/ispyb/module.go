// Package ispyb connects the daemon to the ISPyB database and deposits
// data collections for every experiment run.
package ispyb

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/Vilsol/slox"
	"github.com/beamtime/hyperion/pkg/config"
	"github.com/beamtime/hyperion/pkg/hyperion"
	"github.com/beamtime/hyperion/pkg/plans"
	"github.com/hellofresh/health-go/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/knadh/koanf/v2"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

var (
	_ hyperion.AsyncModule  = (*Module)(nil)
	_ hyperion.Configurable = (*Module)(nil)
	_ hyperion.NamedModule  = (*Module)(nil)
)

// Module manages the ISPyB connection pool lifecycle.
type Module struct {
	config      Config
	poolConfig  *pgxpool.Config
	instance    *pgxpool.Pool
	stdInstance *sql.DB
	store       *Store
}

// NewModule creates a new ISPyB database module with the given options.
func NewModule(options ...Option) *Module {
	return &Module{config: NewConfig(options...)}
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.config.Name
}

// ConfigPath returns the koanf path for this module's configuration.
func (m *Module) ConfigPath() string {
	return config.ModulePath(config.CategoryDB, "ispyb", m.config.Name)
}

// LoadConfig loads configuration from koanf.
func (m *Module) LoadConfig(k *koanf.Koanf) error {
	path := m.ConfigPath()
	if k.Exists(path) {
		return m.config.LoadFromKoanf(k, path)
	}
	return nil
}

// Init loads configuration and prepares the connection pool config.
func (m *Module) Init(ctx context.Context) error {
	// Load config from koanf if available
	if k, err := do.Invoke[*koanf.Koanf](hyperion.GetInjector(ctx)); err == nil {
		if err := m.LoadConfig(k); err != nil {
			return oops.Wrapf(err, "failed to load config")
		}
	}

	// Parse the log level string
	m.config.logLevelParsed = m.config.ParseLogLevel()

	// No DSN means the daemon runs without ISPyB deposition
	if m.config.DSN == "" {
		return nil
	}

	poolConfig, err := m.config.NewPoolConfig()
	if err != nil {
		return err
	}
	m.poolConfig = poolConfig

	return nil
}

// StartAsync connects to the database and registers the pool and the
// deposition store in the DI container.
func (m *Module) StartAsync(ctx context.Context) error {
	if m.poolConfig == nil {
		slox.Warn(ctx, "ispyb dsn not configured, depositions disabled")
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, m.poolConfig)
	if err != nil {
		return oops.With("dsn", m.config.DSN).
			Wrapf(err, "failed to connect to ispyb database")
	}

	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return oops.Wrapf(err, "failed to query database version")
	}

	slox.Info(
		ctx,
		"connected to ispyb database via pgx",
		slog.String("version", version),
		slog.String("host", m.poolConfig.ConnConfig.Host),
		slog.String("database", m.poolConfig.ConnConfig.Database),
	)

	m.instance = conn
	m.stdInstance = stdlib.OpenDBFromPool(m.instance)
	m.store = NewStore(m.instance)

	hyperion.Provide(ctx, m.getConnection)
	hyperion.Provide(ctx, m.getStdConnection)
	hyperion.Provide(ctx, m.getStore)

	if m.config.HealthCheck {
		h, err := do.Invoke[*health.Health](hyperion.GetInjector(ctx))
		if err != nil {
			return oops.Wrapf(err, "failed to get health instance")
		}
		if err := h.Register(health.Config{
			Name:    "ispyb",
			Timeout: 2 * time.Second, //nolint:mnd
			Check: func(ctx context.Context) error {
				return m.instance.Ping(ctx)
			},
		}); err != nil {
			return oops.Wrapf(err, "failed to register ispyb health check")
		}
	}

	return nil
}

// Shutdown closes the database connection.
func (m *Module) Shutdown(_ context.Context) error {
	if m.instance == nil {
		return nil
	}

	m.instance.Close()
	return nil
}

func (m *Module) getConnection(_ do.Injector) (*pgxpool.Pool, error) {
	return m.instance, nil
}

func (m *Module) getStdConnection(_ do.Injector) (*sql.DB, error) {
	return m.stdInstance, nil
}

func (m *Module) getStore(_ do.Injector) (plans.DepositionStore, error) {
	return m.store, nil
}
