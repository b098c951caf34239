package compiler

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
)

// passOrder is the canonical pass sequence. Passes that can introduce
// features come before the passes that remove them: quantifier expansion
// adds disjunctions, conditional-effect and disjunctive removal add
// negated literals, and grounding runs last over the flattened actions.
func passOrder() []Compiler {
	return []Compiler{
		NewQuantifiersRemover(),
		NewConditionalEffectsRemover(),
		NewDisjunctiveConditionsRemover(),
		NewNegativeConditionsRemover(),
		NewGrounder(),
	}
}

// PassesFor selects, from the canonical order, the passes needed to bring
// a problem of the given kind into the supported kind. The selection
// simulates the kind through the sequence, so a feature introduced by an
// earlier pass still gets removed by a later one. A feature a selected
// pass requires absent is compiled away by an earlier pass even when the
// target supports it. It fails when the residual kind is not a subset of
// the supported kind or a required-absent feature cannot be removed.
func PassesFor(kind, supported model.Kind) ([]Compiler, error) {
	order := passOrder()
	// Features that must be compiled away regardless of solver support,
	// because a selected pass cannot run while they are present. A new
	// round can select passes with requirements of their own, so the
	// simulation repeats until the set is stable.
	mustRemove := model.EmptyKind
	for {
		selected, entry, final := simulatePasses(order, kind, supported&^mustRemove)
		missing := model.EmptyKind
		for i, pass := range selected {
			missing = missing.Union(entry[i] & pass.RequiresAbsent())
		}
		if !missing.IsSubsetOf(mustRemove) {
			mustRemove = mustRemove.Union(missing)
			continue
		}
		for i, pass := range selected {
			if blocked := entry[i] & pass.RequiresAbsent(); blocked != 0 {
				return nil, fmt.Errorf("pass %s requires %s absent and no earlier pass removes it", pass.Name(), blocked)
			}
		}
		if !final.IsSubsetOf(supported) {
			return nil, fmt.Errorf("no pass sequence reduces %s to %s", final&^supported, supported)
		}
		return selected, nil
	}
}

// simulatePasses walks the canonical order once, selecting every pass
// whose target overlaps the unsupported residue. It returns the selected
// passes, the simulated kind at each pass's entry and the final kind.
func simulatePasses(order []Compiler, kind, supported model.Kind) ([]Compiler, []model.Kind, model.Kind) {
	var selected []Compiler
	var entry []model.Kind
	cur := kind
	for _, pass := range order {
		excess := cur &^ supported
		if excess&pass.TargetKind() == 0 {
			continue
		}
		selected = append(selected, pass)
		entry = append(entry, cur)
		cur = (cur &^ pass.TargetKind()) | pass.AddedKind()
	}
	return selected, entry, cur
}

// Pipeline runs a pass sequence, composing the individual back-mappings
// into a single plan rewriter.
type Pipeline struct {
	passes []Compiler
	logger *zap.Logger
}

// PipelineOption configures a pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger attaches a logger.
func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(pl *Pipeline) { pl.logger = l }
}

// NewPipeline creates a pipeline over an explicit pass sequence.
func NewPipeline(passes []Compiler, opts ...PipelineOption) *Pipeline {
	pl := &Pipeline{passes: passes, logger: zap.NewNop()}
	for _, o := range opts {
		o(pl)
	}
	return pl
}

// Passes returns the configured pass sequence.
func (pl *Pipeline) Passes() []Compiler { return pl.passes }

// Compile runs the passes in order. The returned back-mapping applies the
// per-pass rewriters in reverse, translating a plan of the final problem
// all the way back to the input problem.
func (pl *Pipeline) Compile(p *model.Problem) (*Result, error) {
	run := uuid.NewString()
	cur := p
	rewriters := make([]plan.Rewriter, 0, len(pl.passes))
	for _, pass := range pl.passes {
		before := cur.Kind()
		res, err := pass.Compile(cur)
		if err != nil {
			return nil, fmt.Errorf("pass %s: %w", pass.Name(), err)
		}
		cur = res.Problem
		rewriters = append(rewriters, res.MapBack)
		pl.logger.Info("pass finished",
			zap.String("run", run),
			zap.String("pass", pass.Name()),
			zap.Stringer("kind_before", before),
			zap.Stringer("kind_after", cur.Kind()),
			zap.Int("actions", len(cur.Actions())))
	}
	return &Result{Problem: cur, MapBack: plan.ComposeRewriters(rewriters...)}, nil
}
