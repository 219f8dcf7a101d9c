package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"spendlens/adapters/connectors"
	"spendlens/adapters/postgres"
	"spendlens/adapters/secure"
	"spendlens/internal"
	"spendlens/internal/analytics"
	"spendlens/internal/api"
	"spendlens/internal/config"
	"spendlens/internal/export"
	"spendlens/internal/notify"
	"spendlens/internal/personas"
	"spendlens/internal/pipeline"
	"spendlens/internal/registry"
	"spendlens/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config      *config.Config
	PipelineCfg *config.PipelineConfig

	// Infrastructure
	DB *sqlx.DB

	// Repositories (nil in file-only mode)
	ContractRepo ports.ContractRepository
	RunRepo      ports.RunRepository
	SnapshotRepo ports.SnapshotRepository

	// Data access
	Registry *registry.Registry
	Sources  *connectors.Manager
	Cipher   *secure.Handler

	// Persona views
	CFO *personas.CFO
	CIO *personas.CIO
	CTO *personas.CTO
	PM  *personas.PM

	// Analytics components
	Loader     *analytics.Loader
	Engine     *analytics.Engine
	Forecaster *analytics.Forecaster
	Scorecards *analytics.ScorecardBuilder
	Exporter   *export.Exporter

	// Pipeline components
	Runner    *pipeline.Runner
	Scheduler *pipeline.Scheduler
	Watcher   *pipeline.Watcher

	// Streaming
	SSEHub *api.SSEHub

	logger *internal.Logger
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		logger: internal.NewDefaultLogger().Component("Container"),
	}

	return c, nil
}

// InitWithDatabase initializes components that require database access.
// Call before Init so the registry and pipeline pick up the repositories.
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	if err := postgres.NewMigrator(db).Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.initRepositories()
	c.logger.Info("database initialized, persistence enabled")
	return nil
}

// Init wires the registry, connectors, analytics, and pipeline. Safe to
// call with or without a prior InitWithDatabase.
func (c *Container) Init(ctx context.Context) error {
	if err := c.initPipelineConfig(); err != nil {
		return fmt.Errorf("failed to load pipeline config: %w", err)
	}
	if err := c.initDataAccess(ctx); err != nil {
		return fmt.Errorf("failed to initialize data access: %w", err)
	}
	c.initAnalytics()
	c.initPipeline()

	c.logger.Info("container initialized (%d connector(s), db=%v)",
		len(c.Sources.Names()), c.DB != nil)
	return nil
}

func (c *Container) initPipelineConfig() error {
	cfg, err := config.LoadPipelineConfig(c.Config.Data.PipelineConfigPath)
	if err != nil {
		return err
	}
	c.PipelineCfg = cfg
	return nil
}

// initRepositories initializes data access repositories
func (c *Container) initRepositories() {
	c.ContractRepo = postgres.NewContractRepository(c.DB)
	c.RunRepo = postgres.NewRunRepository(c.DB)
	c.SnapshotRepo = postgres.NewSnapshotRepository(c.DB)
}

// initDataAccess initializes the metric registry, source connectors, and
// the column cipher.
func (c *Container) initDataAccess(_ context.Context) error {
	c.Sources = connectors.NewManagerFromConfig(c.PipelineCfg)

	c.Registry = registry.New(c.Config.Data.Root)
	if err := c.Registry.Discover(); err != nil {
		return err
	}
	c.Registry.RegisterLive(registry.NewContractProvider(c.ContractRepo, c.Sources))

	if c.PipelineCfg.PipelineSettings.EnableEncryption {
		handler, err := secure.NewHandler(c.Config.Crypto)
		if err != nil {
			return err
		}
		c.Cipher = handler
	}

	c.CFO = personas.NewCFO(c.Registry)
	c.CIO = personas.NewCIO(c.Registry)
	c.CTO = personas.NewCTO(c.Registry)
	c.PM = personas.NewPM(c.Registry)
	return nil
}

// initAnalytics initializes the insight, forecast, and scorecard engines
func (c *Container) initAnalytics() {
	c.Loader = analytics.NewLoader(c.Registry)
	c.Engine = analytics.NewEngine()
	c.Forecaster = analytics.NewForecaster()
	c.Scorecards = analytics.NewScorecardBuilder(0, 0)
	c.Exporter = export.NewExporter(c.Engine, c.Scorecards)
}

// initPipeline initializes the runner, scheduler, watcher, and SSE hub
func (c *Container) initPipeline() {
	c.SSEHub = api.NewSSEHub()

	notifier := notify.NewWebhook(c.PipelineCfg.Notifications).
		WithInsights(notify.InsightsFunc(c.topInsights))

	var cipher ports.TableCipher
	if c.Cipher != nil {
		cipher = c.Cipher
	}

	c.Runner = pipeline.NewRunner(c.PipelineCfg, pipeline.Deps{
		Sources:   c.Sources,
		Cipher:    cipher,
		Contracts: c.ContractRepo,
		Runs:      c.RunRepo,
		Notifier:  notifier,
		Metrics:   c.Registry,
	})
	c.Runner.OnProgress(api.NewProgressBroadcaster(c.SSEHub).OnProgress)

	c.Scheduler = pipeline.NewScheduler(c.Runner, c.PipelineCfg.PipelineSettings)

	fu := c.PipelineCfg.DataSources.FileUpload
	if fu.Enabled && fu.WatchDirectory != "" {
		c.Watcher = pipeline.NewWatcher(fu.WatchDirectory, pipeline.DefaultDebounce,
			func(ctx context.Context) {
				if _, err := c.Runner.Run(ctx, pipeline.Options{}); err != nil {
					c.logger.Warn("watch-triggered run failed: %v", err)
				}
			})
	}
}

// topInsights feeds the run notification with the current top
// recommendation headlines.
func (c *Container) topInsights() []string {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	in := c.Loader.Load(ctx)
	recs := c.Engine.Recommendations(ctx, in)

	var titles []string
	for i, r := range recs {
		if i >= 3 {
			break
		}
		titles = append(titles, r.Title)
	}
	return titles
}

// Shutdown gracefully shuts down all container resources
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("shutting down container")

	if c.DB != nil {
		done := make(chan error, 1)
		go func() { done <- c.DB.Close() }()
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("failed to close database: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.logger.Info("container shutdown complete")
	return nil
}
