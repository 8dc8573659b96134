package hcl

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/checkrig/internal/config"
	"github.com/vk/checkrig/internal/ctxlog"
	"github.com/vk/checkrig/internal/fsutil"
	"github.com/vk/checkrig/internal/schema"
)

// ConfigExt is the suffix of configuration documents; files matching
// TestExt are test documents and are never part of the configuration tree.
const (
	ConfigExt = ".hcl"
	TestExt   = ".test.hcl"
)

// Loader parses HCL configuration and test documents into the agnostic
// config model. It implements config.Loader.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a ready-to-use HCL loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load reads the configuration tree rooted at configPath and, when
// testsPath is non-empty, the test files rooted there. Either path may be
// a single file or a directory.
func (l *Loader) Load(ctx context.Context, configPath, testsPath string) (*config.Model, *config.Suite, error) {
	logger := ctxlog.FromContext(ctx)

	configFiles, err := fsutil.CollectFiles(configPath, ConfigExt, TestExt)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering configuration files: %w", err)
	}
	logger.Debug("Discovered configuration files.", "count", len(configFiles))

	model, err := l.loadModel(ctx, configFiles)
	if err != nil {
		return nil, nil, err
	}

	suite := &config.Suite{}
	if testsPath != "" {
		testFiles, err := fsutil.CollectFiles(testsPath, TestExt)
		if err != nil {
			return nil, nil, fmt.Errorf("discovering test files: %w", err)
		}
		logger.Debug("Discovered test files.", "count", len(testFiles))
		for _, path := range testFiles {
			tf, err := l.loadTestFile(ctx, path)
			if err != nil {
				return nil, nil, err
			}
			suite.Files = append(suite.Files, tf)
		}
	}

	return model, suite, nil
}

// loadModel parses every configuration file and merges the results into a
// single model, rejecting duplicate declarations across files.
func (l *Loader) loadModel(ctx context.Context, paths []string) (*config.Model, error) {
	model := &config.Model{
		Variables: make(map[string]*config.Variable),
		Locals:    make(map[string]hcl.Expression),
	}
	checkNames := make(map[string]struct{})
	resourceAddrs := make(map[string]struct{})
	outputNames := make(map[string]struct{})

	for _, path := range paths {
		file, diags := l.parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", path, diags)
		}

		var cf schema.ConfigFile
		if diags := gohcl.DecodeBody(file.Body, nil, &cf); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", path, diags)
		}

		for _, v := range cf.Variables {
			if _, dup := model.Variables[v.Name]; dup {
				return nil, fmt.Errorf("%s: duplicate variable %q", path, v.Name)
			}
			tv, err := l.translateVariable(ctx, v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			model.Variables[v.Name] = tv
			model.VariableOrder = append(model.VariableOrder, v.Name)
		}

		for _, lb := range cf.Locals {
			for name, expr := range extractBodyAttributes(lb.Body) {
				if _, dup := model.Locals[name]; dup {
					return nil, fmt.Errorf("%s: duplicate local value %q", path, name)
				}
				model.Locals[name] = expr
			}
		}

		for _, r := range cf.Resources {
			tr := l.translateResource(r)
			if _, dup := resourceAddrs[tr.Addr()]; dup {
				return nil, fmt.Errorf("%s: duplicate resource %q", path, tr.Addr())
			}
			resourceAddrs[tr.Addr()] = struct{}{}
			model.Resources = append(model.Resources, tr)
		}

		for _, o := range cf.Outputs {
			if _, dup := outputNames[o.Name]; dup {
				return nil, fmt.Errorf("%s: duplicate output %q", path, o.Name)
			}
			outputNames[o.Name] = struct{}{}
			model.Outputs = append(model.Outputs, l.translateOutput(o))
		}

		for _, c := range cf.Checks {
			if _, dup := checkNames[c.Name]; dup {
				return nil, fmt.Errorf("%s: duplicate check %q", path, c.Name)
			}
			checkNames[c.Name] = struct{}{}
			tc, err := l.translateCheck(c)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			model.Checks = append(model.Checks, tc)
		}
	}

	return model, nil
}

// loadTestFile parses a single test document into an ordered run sequence.
func (l *Loader) loadTestFile(ctx context.Context, path string) (*config.TestFile, error) {
	file, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	var tf schema.TestFile
	if diags := gohcl.DecodeBody(file.Body, nil, &tf); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", path, diags)
	}

	out := &config.TestFile{Name: filepath.Base(path)}
	if tf.Variables != nil {
		out.Variables = extractBodyAttributes(tf.Variables.Body)
	}

	seen := make(map[string]struct{})
	for _, r := range tf.Runs {
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate run %q", path, r.Name)
		}
		seen[r.Name] = struct{}{}

		run, err := l.translateRun(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("%s: run %q: %w", path, r.Name, err)
		}
		out.Runs = append(out.Runs, run)
	}

	return out, nil
}

// extractBodyAttributes flattens a remain body into a name -> expression
// map. Expressions stay unevaluated so the engine can resolve them against
// the appropriate scope later.
func extractBodyAttributes(body hcl.Body) map[string]hcl.Expression {
	if body == nil {
		return nil
	}
	attrs, _ := body.JustAttributes()
	if len(attrs) == 0 {
		return nil
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap
}
