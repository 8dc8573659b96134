package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/checkrig/internal/config"
	"github.com/vk/checkrig/internal/ctxlog"
	"github.com/vk/checkrig/internal/provider"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW         io.Writer
	logger       *slog.Logger
	model        *config.Model
	suite        *config.Suite
	prov         *provider.Mux
	http         *provider.HTTPQuery
	healthServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and provider stack.
// A failure to load configuration is a fatal startup error and panics.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, suite, err := loader.Load(ctx, appConfig.ConfigPath, appConfig.TestsPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.",
		"variables", len(model.Variables),
		"resources", len(model.Resources),
		"checks", len(model.Checks),
		"test_files", len(suite.Files))

	httpOpts := provider.DefaultHTTPOptions()
	if appConfig.HTTPTimeout > 0 {
		httpOpts.Timeout = appConfig.HTTPTimeout
	}
	if appConfig.HTTPRetries > 0 {
		httpOpts.Retries = appConfig.HTTPRetries
	}
	httpQuery := provider.NewHTTPQuery(httpOpts)

	// The in-memory provider backs the resource lifecycle and the "state"
	// data source; HTTP probes route through the mux.
	mux := provider.NewMux(provider.NewMemory())
	mux.Register("http", httpQuery)
	logger.Debug("Provider stack assembled.")

	return &App{
		outW:   outW,
		logger: logger,
		model:  model,
		suite:  suite,
		prov:   mux,
		http:   httpQuery,
	}
}

// Model returns the loaded configuration model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
