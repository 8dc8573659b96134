package testrun

import (
	"context"
	"strings"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"

	"github.com/vk/checkrig/internal/checks"
	"github.com/vk/checkrig/internal/config"
	"github.com/vk/checkrig/internal/ctxlog"
	"github.com/vk/checkrig/internal/eval"
	"github.com/vk/checkrig/internal/provider"
	"github.com/vk/checkrig/internal/validate"
)

// Options tunes the engine.
type Options struct {
	// Workers bounds the concurrency of the apply phase.
	Workers int

	// Strict aborts the remaining run sequence after a run ends in
	// StatusError. The default records the error and continues.
	Strict bool
}

// Engine executes test run sequences against a loaded model and an
// injected provider collaborator.
type Engine struct {
	model *config.Model
	prov  provider.Provider
	opts  Options
}

// New builds an engine. The provider carries state across runs of a
// sequence, which is what lets a plan run observe an earlier apply.
func New(model *config.Model, prov provider.Provider, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{model: model, prov: prov, opts: opts}
}

// Execute runs every file of the suite, and within each file every run,
// strictly in declaration order: later runs may reference earlier runs'
// outputs, so file order is an explicit dependency.
func (e *Engine) Execute(ctx context.Context, suite *config.Suite) []RunResult {
	logger := ctxlog.FromContext(ctx)

	var results []RunResult
	for _, file := range suite.Files {
		// Outputs table for run.<name>.* references; appended to only
		// after a run completes.
		outputs := make(map[string]cty.Value)

		for _, run := range file.Runs {
			logger.Info("Run starting.", "file", file.Name, "run", run.Name, "command", run.Command.String())
			res := e.executeRun(ctx, file, run, outputs)
			logger.Info("Run finished.", "file", file.Name, "run", run.Name, "status", res.Status.String())
			results = append(results, res)

			if res.Status == StatusError && e.opts.Strict {
				logger.Error("Aborting remaining runs (strict mode).", "run", run.Name, "error", res.Err)
				return results
			}
		}
	}
	return results
}

// executeRun performs one run end to end: variable merge, validation
// barrier, the command phases, checks, and expectation reconciliation.
func (e *Engine) executeRun(ctx context.Context, file *config.TestFile, run *config.Run, outputs map[string]cty.Value) RunResult {
	res := RunResult{File: file.Name, Name: run.Name, Command: run.Command}

	vars, err := resolveVariables(ctx, e.model, file, run, outputs)
	if err != nil {
		return fatal(res, err)
	}
	locals, err := resolveLocals(ctx, e.model, vars)
	if err != nil {
		return fatal(res, err)
	}

	base := &eval.Scope{Variables: vars, Locals: locals, Runs: outputs}
	failed := newCollector()

	e.validatePhase(ctx, base, failed)
	if failed.len() > 0 {
		// Rejected input is never applied: reconcile immediately.
		return e.reconcile(res, run, failed, nil)
	}

	var store *instanceStore
	switch run.Command {
	case config.CommandPlan:
		store, err = e.planPhase(ctx, base, failed)
	case config.CommandApply:
		store, err = e.applyPhase(ctx, base, failed)
	case config.CommandDestroy:
		err = e.destroyPhase(ctx)
	}
	if err != nil {
		return fatal(res, err)
	}

	if run.Command == config.CommandDestroy {
		// Teardown has no forward-looking state to assert on.
		return e.reconcile(res, run, failed, nil)
	}

	scoped := base.WithResources(store.snapshot())

	var outputVals map[string]cty.Value
	if run.Command == config.CommandApply {
		outputVals, err = e.outputsPhase(ctx, scoped, failed)
		if err != nil {
			return fatal(res, err)
		}
	}

	tolerated, err := e.checksPhase(ctx, scoped, failed)
	if err != nil {
		return fatal(res, err)
	}

	res = e.reconcile(res, run, failed, tolerated)

	// Expose outputs for later runs only once the run has fully completed.
	if run.Command == config.CommandApply {
		vals := outputVals
		if vals == nil {
			vals = make(map[string]cty.Value)
		}
		outputs[run.Name] = cty.ObjectVal(vals)
	}
	return res
}

// validatePhase fans out per-variable validation and joins at a barrier
// before any later phase looks at the failure set. Rule evaluation is a
// pure read over the immutable scope, so the fan-out is safe.
func (e *Engine) validatePhase(ctx context.Context, scope *eval.Scope, failed *collector) {
	failures := make([][]validate.RuleFailure, len(e.model.VariableOrder))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range e.model.VariableOrder {
		v := e.model.Variables[name]
		g.Go(func() error {
			failures[i] = validate.Variable(gctx, v, scope)
			return nil
		})
	}
	_ = g.Wait()

	// Record in declaration order so reports are deterministic.
	for _, perVar := range failures {
		for _, f := range perVar {
			failed.add(f.Variable, f.Message)
		}
	}
}

// checksPhase runs the check blocks against terminal state. Failing
// checks join the failure set; unknown checks are tolerated: they satisfy
// an expectation but never fail a run on their own.
func (e *Engine) checksPhase(ctx context.Context, scope *eval.Scope, failed *collector) ([]string, error) {
	results, err := checks.Run(ctx, e.model.Checks, scope, e.prov)
	if err != nil {
		return nil, err
	}

	var tolerated []string
	for _, cr := range results {
		id := "check." + cr.Name
		switch cr.Status {
		case checks.StatusFail:
			for _, f := range cr.Failures {
				failed.add(id, f.Message)
			}
		case checks.StatusUnknown:
			tolerated = append(tolerated, id)
		}
	}
	return tolerated, nil
}

// reconcile folds the observed failure set into the run's declared
// expectations and attaches collected detail to the diagnostics.
func (e *Engine) reconcile(res RunResult, run *config.Run, failed *collector, tolerated []string) RunResult {
	diags, pass := Reconcile(run.ExpectFailures, failed.ids(), tolerated)
	for i := range diags {
		if detail := failed.detail(diags[i].Identifier); detail != "" {
			diags[i].Detail = detail
		}
	}
	res.Diagnostics = diags
	if pass {
		res.Status = StatusPass
	} else {
		res.Status = StatusFail
	}
	return res
}

func fatal(res RunResult, err error) RunResult {
	res.Status = StatusError
	res.Err = err
	return res
}

// collector accumulates failed identifiers with their messages. It is
// safe for use from the parallel phases; order of first insertion is
// preserved for deterministic reporting.
type collector struct {
	mu      sync.Mutex
	order   []string
	details map[string][]string
}

func newCollector() *collector {
	return &collector{details: make(map[string][]string)}
}

func (c *collector) add(id string, details ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.details[id]; !seen {
		c.order = append(c.order, id)
	}
	c.details[id] = append(c.details[id], details...)
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *collector) detail(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.details[id], "; ")
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
