package compiler

import (
	"go.uber.org/zap"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
	"github.com/aiplan4eu/unified-planning-sub004/walker"
)

// QuantifiersRemover expands every exists into a disjunction and every
// forall into a conjunction over the objects of the bound variables'
// types, and unrolls forall-effects into one effect per binding. The set
// of objects is fixed at compile time, so the expansion is exact.
type QuantifiersRemover struct {
	logger *zap.Logger
}

// NewQuantifiersRemover creates the pass.
func NewQuantifiersRemover() *QuantifiersRemover {
	return &QuantifiersRemover{logger: zap.NewNop()}
}

// WithLogger attaches a logger and returns the receiver.
func (q *QuantifiersRemover) WithLogger(l *zap.Logger) *QuantifiersRemover {
	q.logger = l
	return q
}

// Name implements Compiler.
func (q *QuantifiersRemover) Name() string { return "quantifiers_remover" }

// Kind implements Compiler.
func (q *QuantifiersRemover) Kind() CompilationKind { return QuantifiersRemoving }

// TargetKind implements Compiler.
func (q *QuantifiersRemover) TargetKind() model.Kind {
	return model.KindOf(
		model.FeatureExistentialConditions,
		model.FeatureUniversalConditions,
		model.FeatureForallEffects,
	)
}

// AddedKind implements Compiler.
func (q *QuantifiersRemover) AddedKind() model.Kind {
	return model.KindOf(model.FeatureDisjunctiveConditions)
}

// RequiresAbsent implements Compiler.
func (q *QuantifiersRemover) RequiresAbsent() model.Kind {
	return model.KindOf(model.FeatureDurativeActions)
}

// Compile implements Compiler.
func (q *QuantifiersRemover) Compile(p *model.Problem) (*Result, error) {
	if err := requireAbsent(q.Name(), p.Kind(), model.FeatureDurativeActions); err != nil {
		return nil, err
	}
	env := p.Env()
	out := p.CloneWithoutActions().CloneWithoutGoals()

	for _, a := range p.Actions() {
		act := a.(*model.InstantaneousAction)
		rewritten := model.NewInstantaneousAction(env, act.Name(), act.Parameters()...)
		for _, c := range act.Preconditions() {
			expanded, err := q.expand(p, c)
			if err != nil {
				return nil, err
			}
			if expanded.IsTrue() {
				continue
			}
			if err := rewritten.AddPrecondition(expanded); err != nil {
				return nil, err
			}
		}
		for _, e := range act.Effects() {
			unrolled, err := q.unrollEffect(p, e)
			if err != nil {
				return nil, err
			}
			for _, ge := range unrolled {
				rewritten.AppendEffect(ge)
			}
		}
		if err := out.AddAction(rewritten); err != nil {
			return nil, err
		}
	}
	for _, g := range p.Goals() {
		expanded, err := q.expand(p, g)
		if err != nil {
			return nil, err
		}
		// An expanded forall goal is a conjunction; keep the goal list flat.
		conjuncts := []*model.Expression{expanded}
		if expanded.Kind() == model.AndExp {
			conjuncts = expanded.Args()
		}
		for _, c := range conjuncts {
			if c.IsTrue() {
				continue
			}
			if err := out.AddGoal(c); err != nil {
				return nil, err
			}
		}
	}
	q.logger.Debug("quantifier expansion finished",
		zap.String("problem", p.Name()),
		zap.Int("actions", len(out.Actions())))
	return &Result{Problem: out, MapBack: plan.IdentityRewriter}, nil
}

// expand replaces quantifiers bottom-out: the outer quantifier is
// instantiated over every binding and each instance is expanded
// recursively, so nested quantifiers unroll from the outside in.
func (q *QuantifiersRemover) expand(p *model.Problem, e *model.Expression) (*model.Expression, error) {
	env := p.Env()
	switch e.Kind() {
	case model.ExistsExp, model.ForallExp:
		instances, err := q.instantiate(p, e)
		if err != nil {
			return nil, err
		}
		var combined *model.Expression
		if e.Kind() == model.ExistsExp {
			combined, err = env.Exprs().Or(instances...)
		} else {
			combined, err = env.Exprs().And(instances...)
		}
		if err != nil {
			return nil, err
		}
		return walker.Simplify(env, combined)
	default:
		args := e.Args()
		if len(args) == 0 {
			return e, nil
		}
		newArgs := make([]*model.Expression, len(args))
		changed := false
		for i, a := range args {
			na, err := q.expand(p, a)
			if err != nil {
				return nil, err
			}
			newArgs[i] = na
			if na != a {
				changed = true
			}
		}
		if !changed {
			return e, nil
		}
		return env.Exprs().Rebuild(e, newArgs)
	}
}

// instantiate substitutes every binding of the quantifier's variables into
// its body and expands each instance recursively.
func (q *QuantifiersRemover) instantiate(p *model.Problem, e *model.Expression) ([]*model.Expression, error) {
	env := p.Env()
	vars := e.Vars()
	domains := make([][]*model.Object, len(vars))
	for i, v := range vars {
		domains[i] = p.ObjectsOfType(v.Type())
	}
	var out []*model.Expression
	for _, binding := range model.Combinations(domains) {
		mapping := make(map[*model.Expression]*model.Expression, len(vars))
		for i, v := range vars {
			mapping[env.Exprs().VariableExp(v)] = env.Exprs().ObjectExp(binding[i])
		}
		instance, err := walker.Substitute(env, e.Arg(0), mapping)
		if err != nil {
			return nil, err
		}
		expanded, err := q.expand(p, instance)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded)
	}
	return out, nil
}

// unrollEffect turns a forall-effect into one plain effect per binding of
// its bound variables. Plain effects only get their condition expanded.
func (q *QuantifiersRemover) unrollEffect(p *model.Problem, e *model.Effect) ([]*model.Effect, error) {
	env := p.Env()
	vars := e.Forall()
	if len(vars) == 0 {
		cond, err := q.expand(p, e.Condition())
		if err != nil {
			return nil, err
		}
		if cond == e.Condition() {
			return []*model.Effect{e}, nil
		}
		eff, err := model.NewEffect(env, e.EffectKind(), e.Target(), e.Value(), cond)
		if err != nil {
			return nil, err
		}
		return []*model.Effect{eff}, nil
	}
	domains := make([][]*model.Object, len(vars))
	for i, v := range vars {
		domains[i] = p.ObjectsOfType(v.Type())
	}
	var out []*model.Effect
	for _, binding := range model.Combinations(domains) {
		mapping := make(map[*model.Expression]*model.Expression, len(vars))
		for i, v := range vars {
			mapping[env.Exprs().VariableExp(v)] = env.Exprs().ObjectExp(binding[i])
		}
		target, err := walker.Substitute(env, e.Target(), mapping)
		if err != nil {
			return nil, err
		}
		value, err := walker.Substitute(env, e.Value(), mapping)
		if err != nil {
			return nil, err
		}
		cond, err := walker.Substitute(env, e.Condition(), mapping)
		if err != nil {
			return nil, err
		}
		cond, err = q.expand(p, cond)
		if err != nil {
			return nil, err
		}
		cond, err = walker.Simplify(env, cond)
		if err != nil {
			return nil, err
		}
		if cond.IsFalse() {
			continue
		}
		eff, err := model.NewEffect(env, e.EffectKind(), target, value, cond)
		if err != nil {
			return nil, err
		}
		out = append(out, eff)
	}
	return out, nil
}
