package compiler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
)

// DisjunctiveConditionsRemover rewrites every condition into purely
// conjunctive form. Action preconditions are normalized to DNF and the
// action is split into one variant per disjunct. A disjunctive goal gets a
// fresh achievement fluent: one zero-cost action per goal disjunct sets
// it, and the goal becomes that single fluent. Plan back-mapping renames
// variants to their original action and drops achievement steps.
type DisjunctiveConditionsRemover struct {
	logger *zap.Logger
}

// NewDisjunctiveConditionsRemover creates the pass.
func NewDisjunctiveConditionsRemover() *DisjunctiveConditionsRemover {
	return &DisjunctiveConditionsRemover{logger: zap.NewNop()}
}

// WithLogger attaches a logger and returns the receiver.
func (r *DisjunctiveConditionsRemover) WithLogger(l *zap.Logger) *DisjunctiveConditionsRemover {
	r.logger = l
	return r
}

// Name implements Compiler.
func (r *DisjunctiveConditionsRemover) Name() string { return "disjunctive_conditions_remover" }

// Kind implements Compiler.
func (r *DisjunctiveConditionsRemover) Kind() CompilationKind {
	return DisjunctiveConditionsRemoving
}

// TargetKind implements Compiler.
func (r *DisjunctiveConditionsRemover) TargetKind() model.Kind {
	return model.KindOf(model.FeatureDisjunctiveConditions)
}

// AddedKind implements Compiler.
func (r *DisjunctiveConditionsRemover) AddedKind() model.Kind {
	return model.KindOf(model.FeatureNegativeConditions)
}

// RequiresAbsent implements Compiler.
func (r *DisjunctiveConditionsRemover) RequiresAbsent() model.Kind {
	return model.KindOf(
		model.FeatureDurativeActions,
		model.FeatureExistentialConditions,
		model.FeatureUniversalConditions,
		model.FeatureConditionalEffects,
		model.FeatureForallEffects,
	)
}

// Compile implements Compiler.
func (r *DisjunctiveConditionsRemover) Compile(p *model.Problem) (*Result, error) {
	if err := requireAbsent(r.Name(), p.Kind(),
		model.FeatureDurativeActions,
		model.FeatureExistentialConditions,
		model.FeatureUniversalConditions,
		model.FeatureConditionalEffects,
		model.FeatureForallEffects); err != nil {
		return nil, err
	}
	env := p.Env()
	out := p.CloneWithoutActions().CloneWithoutGoals()
	variantToOriginal := make(map[string]string)
	dropped := make(map[string]bool)

	metric := p.Metric()
	rewriteCosts := metric != nil && metric.Kind() == model.MinimizeActionCosts
	var costs map[string]*model.Expression
	if rewriteCosts {
		costs = make(map[string]*model.Expression, len(metric.Costs()))
		for name, c := range metric.Costs() {
			costs[name] = c
		}
	}

	for _, a := range p.Actions() {
		act := a.(*model.InstantaneousAction)
		conj, err := env.Exprs().And(act.Preconditions()...)
		if err != nil {
			return nil, err
		}
		disjuncts, alwaysTrue, err := toDNF(env, conj)
		if err != nil {
			return nil, err
		}
		switch {
		case alwaysTrue:
			if err := addVariant(out, act, act.Name(), nil); err != nil {
				return nil, err
			}
		case len(disjuncts) == 0:
			// Unsatisfiable precondition; kept so the action set stays
			// congruent with the input.
			if err := addVariant(out, act, act.Name(), []*model.Expression{env.Exprs().FalseExpr()}); err != nil {
				return nil, err
			}
		case len(disjuncts) == 1:
			if err := addVariant(out, act, act.Name(), disjuncts[0]); err != nil {
				return nil, err
			}
		default:
			origCost, hasCost := metricCost(metric, act.Name())
			for i, disjunct := range disjuncts {
				name := out.FreshName(fmt.Sprintf("%s__%d", act.Name(), i))
				if err := addVariant(out, act, name, disjunct); err != nil {
					return nil, err
				}
				variantToOriginal[name] = act.Name()
				if rewriteCosts && hasCost {
					costs[name] = origCost
				}
			}
		}
	}

	if err := r.rewriteGoals(p, out, dropped, costs, rewriteCosts); err != nil {
		return nil, err
	}
	if rewriteCosts {
		out.SetMetric(metric.WithCosts(costs))
	}
	r.logger.Debug("disjunctive condition removal finished",
		zap.String("problem", p.Name()),
		zap.Int("variants", len(variantToOriginal)),
		zap.Int("achievement_actions", len(dropped)))

	mapBack := plan.RewriteInstances(func(ai *plan.ActionInstance) (*plan.ActionInstance, error) {
		if dropped[ai.ActionName] {
			return nil, nil
		}
		if orig, ok := variantToOriginal[ai.ActionName]; ok {
			return plan.NewActionInstance(orig, ai.Parameters...), nil
		}
		return ai, nil
	})
	return &Result{Problem: out, MapBack: mapBack}, nil
}

// rewriteGoals normalizes the goal conjunction. A disjunctive goal is
// reduced to a fresh boolean fluent plus one achievement action per
// disjunct; instances of those actions are dropped from mapped-back plans.
func (r *DisjunctiveConditionsRemover) rewriteGoals(p, out *model.Problem, dropped map[string]bool, costs map[string]*model.Expression, rewriteCosts bool) error {
	env := p.Env()
	exprs := env.Exprs()
	conj, err := exprs.And(p.Goals()...)
	if err != nil {
		return err
	}
	disjuncts, alwaysTrue, err := toDNF(env, conj)
	if err != nil {
		return err
	}
	switch {
	case alwaysTrue:
		return nil
	case len(disjuncts) == 0:
		return out.AddGoal(exprs.FalseExpr())
	case len(disjuncts) == 1:
		for _, g := range disjuncts[0] {
			if err := out.AddGoal(g); err != nil {
				return err
			}
		}
		return nil
	}

	achieved := model.NewFluent(out.FreshName("goal_achieved"), env.Types().Bool())
	if err := out.AddFluentWithDefault(achieved, exprs.Bool(false)); err != nil {
		return err
	}
	target, err := exprs.FluentExp(achieved)
	if err != nil {
		return err
	}
	for i, disjunct := range disjuncts {
		name := out.FreshName(fmt.Sprintf("achieve_goal__%d", i))
		act := model.NewInstantaneousAction(env, name)
		for _, c := range disjunct {
			if err := act.AddPrecondition(c); err != nil {
				return err
			}
		}
		if err := act.AddEffect(target, exprs.Bool(true)); err != nil {
			return err
		}
		if err := out.AddAction(act); err != nil {
			return err
		}
		dropped[name] = true
		if rewriteCosts {
			costs[name] = exprs.Int(0)
		}
	}
	return out.AddGoal(target)
}

// addVariant emits a copy of the action under the given name with the
// given conjunctive precondition list.
func addVariant(out *model.Problem, act *model.InstantaneousAction, name string, preconditions []*model.Expression) error {
	variant := model.NewInstantaneousAction(act.Environment(), name, act.Parameters()...)
	for _, c := range preconditions {
		if err := variant.AddPrecondition(c); err != nil {
			return err
		}
	}
	for _, e := range act.Effects() {
		variant.AppendEffect(e)
	}
	return out.AddAction(variant)
}
