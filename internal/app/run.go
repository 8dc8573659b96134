package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/checkrig/internal/ctxlog"
	"github.com/vk/checkrig/internal/report"
	"github.com/vk/checkrig/internal/testrun"
)

// ErrRunsFailed reports that the suite executed but at least one run did
// not pass.
var ErrRunsFailed = errors.New("one or more runs did not pass")

// Run executes every test run sequence and renders the report.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.http.Close()

	if appConfig.HealthcheckPort > 0 {
		a.startHealthcheckServer(appConfig.HealthcheckPort)
		defer a.closeHealthcheckServer()
	}

	if len(a.suite.Files) == 0 {
		a.logger.Warn("No test files found, nothing to execute.")
		return nil
	}

	a.logger.Info("🚀 Starting run sequences...", "files", len(a.suite.Files), "workers", appConfig.Workers)
	engine := testrun.New(a.model, a.prov, testrun.Options{
		Workers: appConfig.Workers,
		Strict:  appConfig.Strict,
	})
	results := engine.Execute(ctx, a.suite)
	a.logger.Info("🏁 Run sequences finished.", "runs", len(results))

	summary := report.Render(a.outW, results)
	if summary.Errored > 0 {
		return fmt.Errorf("%w (%d errored, %d failed)", ErrRunsFailed, summary.Errored, summary.Failed)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%w (%d failed)", ErrRunsFailed, summary.Failed)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
