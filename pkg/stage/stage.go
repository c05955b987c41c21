package stage

import (
	"context"

	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/arthur-debert/stager/pkg/executor"
	"github.com/arthur-debert/stager/pkg/filesystem"
	"github.com/arthur-debert/stager/pkg/logging"
	"github.com/arthur-debert/stager/pkg/planner"
	"github.com/arthur-debert/stager/pkg/resolver"
	"github.com/arthur-debert/stager/pkg/types"
)

// Options configure a staging run
type Options struct {
	// FileSystem is read by the resolver and written by the executor
	// (the OS filesystem when nil)
	FileSystem types.FS

	// Jobs bounds concurrent rule walks (0 = number of CPUs)
	Jobs int

	// Strict fails planning on conflicting targets
	Strict bool

	// DryRun plans and validates every action without writing
	DryRun bool
}

// Result of a staging run
type Result struct {
	Plan *planner.Result

	// Report is nil when planning failed and nothing was attempted
	Report *types.ExecutionReport
}

// Plan resolves rules and computes the action sequence without touching
// the output tree
func Plan(ctx context.Context, rules []types.Rule, opts Options) (*planner.Result, error) {
	logger := logging.GetLogger("stage.plan")
	defer logging.LogOperationStart(logger, "plan")()

	fs := opts.FileSystem
	if fs == nil {
		fs = filesystem.NewOS()
	}

	// Step 1: Expand every rule against the source tree
	resolved, err := resolver.New(fs).ResolveAll(ctx, rules, opts.Jobs)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to resolve rules")
		return nil, err
	}

	// Step 2: Merge into one ordered plan
	plan, err := planner.Plan(rules, resolved, planner.Options{Strict: opts.Strict})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to plan")
		return nil, err
	}

	for _, o := range plan.Overrides {
		logger.Warn().
			Str("target", o.Target).
			Str("winner", o.Winner.SourcePath).
			Str("discarded", o.Loser.SourcePath).
			Msg("Target claimed by more than one rule")
	}

	logger.Info().
		Int("rules", len(rules)).
		Int("actions", len(plan.Actions)).
		Msg("Plan ready")

	return plan, nil
}

// Run plans and applies rules below outputRoot. The returned error is the
// planning error or, once execution started, the report's error.
func Run(ctx context.Context, rules []types.Rule, outputRoot string, opts Options) (*Result, error) {
	logger := logging.GetLogger("stage.run")

	if outputRoot == "" {
		return nil, errors.New(errors.ErrInvalidInput, "no output root given")
	}
	defer logging.LogOperationStart(logger, "run")()

	fs := opts.FileSystem
	if fs == nil {
		fs = filesystem.NewOS()
		opts.FileSystem = fs
	}

	plan, err := Plan(ctx, rules, opts)
	if err != nil {
		return &Result{}, err
	}

	exec := executor.New(executor.Options{FS: fs, DryRun: opts.DryRun})
	report := exec.ApplyContext(ctx, plan.Actions, outputRoot)

	logger.Info().
		Str("output", outputRoot).
		Int("applied", report.AppliedCount()).
		Bool("success", report.Succeeded()).
		Bool("dry_run", report.DryRun).
		Msg("Staging run finished")

	return &Result{Plan: plan, Report: &report}, report.Error
}
