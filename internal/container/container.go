package container

import (
	"context"
	"fmt"
	"log"

	"datapilot/adapters/api"
	"datapilot/adapters/db"
	"datapilot/adapters/export"
	"datapilot/adapters/simulated"
	"datapilot/ai"
	"datapilot/domain/catalog"
	"datapilot/domain/wizard"
	"datapilot/internal/config"
	"datapilot/internal/devbackend"
	"datapilot/internal/errors"
	"datapilot/internal/migration"
	"datapilot/internal/session"
	"datapilot/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Analytics
	Backend  ports.AnalyticsBackend
	Exporter ports.ArtifactExporter
	Sessions *session.Store

	// Development backend (only after InitDevBackend)
	DB         *sqlx.DB
	DevBackend *devbackend.Server
}

// New creates a new dependency injection container with the analytics
// backend selected by BACKEND_MODE
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:   cfg,
		Backend:  newBackend(cfg),
		Exporter: export.NewExporter(),
	}
	c.Sessions = session.NewStore(c.NewWizard, cfg.Session.TTL)
	return c, nil
}

func newBackend(cfg *config.Config) ports.AnalyticsBackend {
	if cfg.Backend.Mode == config.BackendHTTP {
		log.Printf("[Container] Using analytics backend at %s", cfg.Backend.BaseURL)
		return api.NewClient(cfg.Backend.BaseURL, api.WithStaticToken(cfg.Backend.Token))
	}
	log.Printf("[Container] Using simulated analytics backend")
	return simulated.NewBackend(simulated.Delays{
		Upload:  cfg.Simulation.UploadDelay,
		Clean:   cfg.Simulation.CleanDelay,
		Task:    cfg.Simulation.TaskDelay,
		Insight: cfg.Simulation.InsightDelay,
	})
}

// NewWizard builds a wizard for role on the container's backend and exporter
func (c *Container) NewWizard(role catalog.Role) *wizard.Wizard {
	return wizard.New(role, c.Backend, c.Exporter)
}

// InitDevBackend opens the development database, runs migrations and builds
// the development backend server
func (c *Container) InitDevBackend(ctx context.Context) error {
	conn, err := db.Open(ctx, c.Config.DevBackend.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "failed to open development database")
	}
	c.DB = conn

	if err := migration.NewRunner().Run(ctx, conn); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}

	var opts []devbackend.Option
	if gen := c.insightGenerator(); gen != nil {
		opts = append(opts, devbackend.WithInsightGenerator(gen))
	}
	c.DevBackend = devbackend.New(db.NewStore(conn), opts...)
	return nil
}

func (c *Container) insightGenerator() *ai.InsightGenerator {
	cfg := c.Config.DevBackend
	if cfg.OpenAIKey == "" {
		log.Printf("[Container] OPENAI_API_KEY not set, insights use the templated summary")
		return nil
	}
	return ai.NewInsightGenerator(ai.NewChatClient(ai.Config{
		APIKey:      cfg.OpenAIKey,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}))
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
