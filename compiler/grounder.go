package compiler

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
	"github.com/aiplan4eu/unified-planning-sub004/walker"
)

// Grounder specializes every parametrized action into one ground action
// per type-compatible object binding. Bindings are enumerated as the
// cartesian product of the per-parameter object lists in declaration
// order, so the emitted order is deterministic.
//
// Ground actions with a statically false precondition are kept by default;
// WithPruneImpossible drops them as a performance opt-in (the compiled
// problem stays equisolvable either way, an unsatisfiable action can never
// appear in a plan).
type Grounder struct {
	logger *zap.Logger
	prune  bool
}

// GrounderOption configures a Grounder.
type GrounderOption func(*Grounder)

// WithGrounderLogger attaches a logger.
func WithGrounderLogger(l *zap.Logger) GrounderOption {
	return func(g *Grounder) { g.logger = l }
}

// WithPruneImpossible drops ground actions whose precondition simplifies
// to false.
func WithPruneImpossible() GrounderOption {
	return func(g *Grounder) { g.prune = true }
}

// NewGrounder creates a grounding pass.
func NewGrounder(opts ...GrounderOption) *Grounder {
	g := &Grounder{logger: zap.NewNop()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Name implements Compiler.
func (g *Grounder) Name() string { return "grounder" }

// Kind implements Compiler.
func (g *Grounder) Kind() CompilationKind { return Grounding }

// TargetKind implements Compiler.
func (g *Grounder) TargetKind() model.Kind {
	return model.KindOf(model.FeatureActionParameters)
}

// AddedKind implements Compiler.
func (g *Grounder) AddedKind() model.Kind { return model.EmptyKind }

// RequiresAbsent implements Compiler.
func (g *Grounder) RequiresAbsent() model.Kind { return model.EmptyKind }

// groundName encodes a binding into the ground action's name, so the name
// alone identifies the original action and its arguments.
func groundName(action string, binding []*model.Object) string {
	if len(binding) == 0 {
		return action
	}
	parts := make([]string, len(binding))
	for i, o := range binding {
		parts[i] = o.Name()
	}
	return fmt.Sprintf("%s(%s)", action, strings.Join(parts, ", "))
}

// Compile implements Compiler.
func (g *Grounder) Compile(p *model.Problem) (*Result, error) {
	env := p.Env()
	out := p.CloneWithoutActions()
	original := make(map[string]*plan.ActionInstance)

	var costs map[string]*model.Expression
	metric := p.Metric()
	rewriteCosts := metric != nil && metric.Kind() == model.MinimizeActionCosts
	if rewriteCosts {
		costs = make(map[string]*model.Expression)
	}

	emitted := 0
	for _, a := range p.Actions() {
		params := a.Parameters()
		domains := make([][]*model.Object, len(params))
		for i, par := range params {
			domains[i] = p.ObjectsOfType(par.Type())
		}
		for _, binding := range model.Combinations(domains) {
			args := make([]*model.Expression, len(binding))
			for i, o := range binding {
				args[i] = env.Exprs().ObjectExp(o)
			}
			name := groundName(a.Name(), binding)
			var ground model.Action
			switch act := a.(type) {
			case *model.InstantaneousAction:
				bound, err := walker.BindParameters(act, args)
				if err != nil {
					return nil, fmt.Errorf("grounding %s: %w", name, err)
				}
				if g.prune && staticallyFalse(bound.Preconditions()) {
					continue
				}
				ground = bound.WithName(name)
			case *model.DurativeAction:
				bound, err := walker.BindDurativeParameters(act, args)
				if err != nil {
					return nil, fmt.Errorf("grounding %s: %w", name, err)
				}
				ground = bound.WithName(name)
			default:
				return nil, fmt.Errorf("grounding %s: unknown action shape %T", a.Name(), a)
			}
			if err := out.AddAction(ground); err != nil {
				return nil, err
			}
			original[name] = plan.NewActionInstance(a.Name(), args...)
			emitted++

			if rewriteCosts {
				cost, err := g.groundCost(env, metric, a, args)
				if err != nil {
					return nil, err
				}
				if cost != nil {
					costs[name] = cost
				}
			}
		}
	}
	if rewriteCosts {
		out.SetMetric(metric.WithCosts(costs))
	}
	g.logger.Debug("grounding finished",
		zap.String("problem", p.Name()),
		zap.Int("schemas", len(p.Actions())),
		zap.Int("ground_actions", emitted))

	mapBack := plan.RewriteInstances(func(ai *plan.ActionInstance) (*plan.ActionInstance, error) {
		if orig, ok := original[ai.ActionName]; ok {
			return orig, nil
		}
		return nil, fmt.Errorf("plan references unknown ground action %s", ai.ActionName)
	})
	return &Result{Problem: out, MapBack: mapBack}, nil
}

// groundCost substitutes a binding into the action's cost expression.
func (g *Grounder) groundCost(env *model.Environment, metric *model.Metric, a model.Action, args []*model.Expression) (*model.Expression, error) {
	cost := metric.ActionCost(a.Name())
	if cost == nil {
		return nil, nil
	}
	mapping := make(map[*model.Expression]*model.Expression, len(args))
	for i, par := range a.Parameters() {
		mapping[env.Exprs().ParameterExp(par)] = args[i]
	}
	sub, err := walker.Substitute(env, cost, mapping)
	if err != nil {
		return nil, err
	}
	return walker.Simplify(env, sub)
}

func staticallyFalse(conds []*model.Expression) bool {
	for _, c := range conds {
		if c.IsFalse() {
			return true
		}
	}
	return false
}
