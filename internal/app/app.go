package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"veracity/internal/config"
	"veracity/internal/costtracker"
	"veracity/internal/engine"
	"veracity/internal/inputprocessor"
	"veracity/internal/store"
)

type App struct {
	Viper       *viper.Viper
	Store       *config.Store
	CostTracker costtracker.CostTracker
	Engine      *engine.Engine
	Input       inputprocessor.Processor

	// JobClient is nil when no redis address is configured.
	JobClient store.JobClient
}

// Option adjusts an App before its services are built.
type Option func(*appOptions)

type appOptions struct {
	engineOpts []engine.Option
	watch      bool
}

// WithEngineOptions passes opts through to engine.New.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *appOptions) { o.engineOpts = append(o.engineOpts, opts...) }
}

// WithConfigWatch reloads the configuration when its file changes.
func WithConfigWatch() Option {
	return func(o *appOptions) { o.watch = true }
}

// NewApp validates cfg and builds every service from it. v may be nil when
// the config did not come from a file.
func NewApp(ctx context.Context, v *viper.Viper, cfg *config.Config, opts ...Option) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &App{Viper: v, Store: config.NewStore(cfg), Input: inputprocessor.New()}
	initLogging(cfg.Log.Level, cfg.Log.Format)
	app.initCostTracker()

	if err := app.initEngine(ctx, o.engineOpts); err != nil {
		return nil, err
	}
	if err := app.initJobClient(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if o.watch && v != nil && v.ConfigFileUsed() != "" {
		config.Watch(v, app.Store)
		app.Store.Subscribe(func(c *config.Config) { initLogging(c.Log.Level, c.Log.Format) })
	}

	log.Debugf("Application initialization complete (mode=%s, providers=%v)", app.Engine.DefaultMode(), app.Engine.ProviderNames())
	return app, nil
}

// --- Private Helper Methods ---

func initLogging(levelName, format string) {
	log.SetOutput(os.Stderr)
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(levelName)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func (a *App) initCostTracker() {
	a.CostTracker = costtracker.New()
}

func (a *App) initEngine(ctx context.Context, opts []engine.Option) error {
	opts = append([]engine.Option{engine.WithCostTracker(a.CostTracker)}, opts...)
	eng, err := engine.New(ctx, a.Store, opts...)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	a.Engine = eng
	return nil
}

func (a *App) initJobClient() error {
	jc, err := store.NewAsynqJobClient(a.Store.Load())
	if errors.Is(err, store.ErrUnavailable) {
		log.Debug("redis.address not set; background jobs disabled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	a.JobClient = jc
	return nil
}

// Close releases the job client and provider clients.
func (a *App) Close() error {
	var errs []error
	if a.JobClient != nil {
		errs = append(errs, a.JobClient.Close())
	}
	if a.Engine != nil {
		errs = append(errs, a.Engine.Close())
	}
	return errors.Join(errs...)
}

func (a *App) cleanupPartialInit() {
	if err := a.Close(); err != nil {
		log.Printf("Error during partial init cleanup: %v", err)
	}
}
