// Package engine orchestrates solving: it picks a registered solver,
// compiles the problem down to the solver's supported kind and maps the
// returned plan back onto the original problem.
package engine

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	planning "github.com/aiplan4eu/unified-planning-sub004"
	"github.com/aiplan4eu/unified-planning-sub004/compiler"
	"github.com/aiplan4eu/unified-planning-sub004/model"
)

// Engine holds the registered solvers and the compilation machinery.
type Engine struct {
	cfg     Config
	logger  *zap.Logger
	solvers []planning.Solver
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine with no solvers registered. Without a WithLogger
// option the engine logs at the level named by cfg.LogLevel.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = newLogger(cfg.LogLevel)
	}
	return e
}

// newLogger builds the default logger at the configured level. An
// unparsable level name or a failed build disables logging.
func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.NewNop()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// Register adds a solver. Registration order breaks ties in selection.
func (e *Engine) Register(s planning.Solver) {
	e.solvers = append(e.solvers, s)
}

// selectSolver returns the configured solver, or the registered solver
// whose supported kind needs the fewest passes for the problem kind.
func (e *Engine) selectSolver(kind model.Kind) (planning.Solver, []compiler.Compiler, error) {
	if e.cfg.Solver != "" {
		for _, s := range e.solvers {
			if s.Name() != e.cfg.Solver {
				continue
			}
			passes, err := compiler.PassesFor(kind, s.SupportedKind())
			if err != nil {
				return nil, nil, fmt.Errorf("solver %s: %w", s.Name(), err)
			}
			return s, passes, nil
		}
		return nil, nil, fmt.Errorf("no registered solver named %s", e.cfg.Solver)
	}
	var best planning.Solver
	var bestPasses []compiler.Compiler
	for _, s := range e.solvers {
		passes, err := compiler.PassesFor(kind, s.SupportedKind())
		if err != nil {
			continue
		}
		if best == nil || len(passes) < len(bestPasses) {
			best, bestPasses = s, passes
		}
	}
	if best == nil {
		return nil, nil, fmt.Errorf("no registered solver supports problem kind %s", kind)
	}
	return best, bestPasses, nil
}

// Solve compiles the problem for a suitable solver, runs it and maps the
// plan back onto the input problem.
func (e *Engine) Solve(p *model.Problem) (*planning.SolveResult, error) {
	session := uuid.NewString()
	log := e.logger.With(zap.String("session", session), zap.String("problem", p.Name()))

	kind := p.Kind()
	solver, passes, err := e.selectSolver(kind)
	if err != nil {
		return nil, err
	}
	passNames := make([]string, len(passes))
	for i, pass := range passes {
		passNames[i] = pass.Name()
	}
	log.Info("solver selected",
		zap.String("solver", solver.Name()),
		zap.Stringer("kind", kind),
		zap.Strings("passes", passNames))

	pipeline := compiler.NewPipeline(e.configurePasses(passes, log), compiler.WithPipelineLogger(log))
	compiled, err := pipeline.Compile(p)
	if err != nil {
		return nil, err
	}
	result, err := solver.Solve(compiled.Problem)
	if err != nil {
		return nil, fmt.Errorf("solver %s: %w", solver.Name(), err)
	}
	if result.Plan == nil {
		log.Info("solver finished without a plan", zap.Stringer("status", result.Status))
		return result, nil
	}
	mapped, err := compiled.MapBack(result.Plan)
	if err != nil {
		return nil, fmt.Errorf("mapping plan back: %w", err)
	}
	log.Info("solver finished", zap.Stringer("status", result.Status), zap.Stringer("plan", mapped))
	return &planning.SolveResult{Status: result.Status, Plan: mapped, Solver: result.Solver}, nil
}

// Compile compiles a problem down to the given supported kind without
// solving, returning the compiled problem and the plan back-mapping.
func (e *Engine) Compile(p *model.Problem, supported model.Kind) (*compiler.Result, error) {
	passes, err := compiler.PassesFor(p.Kind(), supported)
	if err != nil {
		return nil, err
	}
	pipeline := compiler.NewPipeline(e.configurePasses(passes, e.logger), compiler.WithPipelineLogger(e.logger))
	return pipeline.Compile(p)
}

// configurePasses applies the engine config and the session logger to a
// selected pass sequence.
func (e *Engine) configurePasses(passes []compiler.Compiler, log *zap.Logger) []compiler.Compiler {
	out := append([]compiler.Compiler(nil), passes...)
	for i, pass := range out {
		switch p := pass.(type) {
		case *compiler.Grounder:
			opts := []compiler.GrounderOption{compiler.WithGrounderLogger(log)}
			if e.cfg.PruneImpossibleActions {
				opts = append(opts, compiler.WithPruneImpossible())
			}
			out[i] = compiler.NewGrounder(opts...)
		case *compiler.QuantifiersRemover:
			out[i] = p.WithLogger(log)
		case *compiler.ConditionalEffectsRemover:
			out[i] = p.WithLogger(log)
		case *compiler.DisjunctiveConditionsRemover:
			out[i] = p.WithLogger(log)
		case *compiler.NegativeConditionsRemover:
			out[i] = p.WithLogger(log)
		}
	}
	return out
}
