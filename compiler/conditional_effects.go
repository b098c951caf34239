package compiler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/walker"
)

// maxEffectConditions caps the number of distinct effect conditions per
// action, since the removal enumerates all 2^k truth assignments.
const maxEffectConditions = 20

// ConditionalEffectsRemover splits every action with conditional effects
// into one unconditional variant per truth assignment of the distinct
// effect conditions. Each variant asserts its assignment in the
// precondition and keeps exactly the effects whose condition it assigns
// true; variants whose precondition is statically contradictory are
// dropped.
type ConditionalEffectsRemover struct {
	logger *zap.Logger
}

// NewConditionalEffectsRemover creates the pass.
func NewConditionalEffectsRemover() *ConditionalEffectsRemover {
	return &ConditionalEffectsRemover{logger: zap.NewNop()}
}

// WithLogger attaches a logger and returns the receiver.
func (r *ConditionalEffectsRemover) WithLogger(l *zap.Logger) *ConditionalEffectsRemover {
	r.logger = l
	return r
}

// Name implements Compiler.
func (r *ConditionalEffectsRemover) Name() string { return "conditional_effects_remover" }

// Kind implements Compiler.
func (r *ConditionalEffectsRemover) Kind() CompilationKind { return ConditionalEffectsRemoving }

// TargetKind implements Compiler.
func (r *ConditionalEffectsRemover) TargetKind() model.Kind {
	return model.KindOf(model.FeatureConditionalEffects)
}

// AddedKind implements Compiler.
func (r *ConditionalEffectsRemover) AddedKind() model.Kind {
	return model.KindOf(model.FeatureNegativeConditions)
}

// RequiresAbsent implements Compiler.
func (r *ConditionalEffectsRemover) RequiresAbsent() model.Kind {
	return model.KindOf(model.FeatureDurativeActions, model.FeatureForallEffects)
}

// Compile implements Compiler.
func (r *ConditionalEffectsRemover) Compile(p *model.Problem) (*Result, error) {
	if err := requireAbsent(r.Name(), p.Kind(),
		model.FeatureDurativeActions, model.FeatureForallEffects); err != nil {
		return nil, err
	}
	env := p.Env()
	out := p.CloneWithoutActions()
	variantToOriginal := make(map[string]string)

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
		conds := distinctEffectConditions(act)
		if len(conds) == 0 {
			if err := out.AddAction(act); err != nil {
				return nil, err
			}
			continue
		}
		if len(conds) > maxEffectConditions {
			return nil, fmt.Errorf("action %s has %d distinct effect conditions, limit is %d", act.Name(), len(conds), maxEffectConditions)
		}
		origCost, hasCost := metricCost(metric, act.Name())
		for mask := 0; mask < 1<<len(conds); mask++ {
			variant, ok, err := r.buildVariant(env, act, conds, mask)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			name := out.FreshName(fmt.Sprintf("%s__%d", act.Name(), mask))
			named := variant.WithName(name)
			if err := out.AddAction(named); err != nil {
				return nil, err
			}
			variantToOriginal[name] = act.Name()
			if rewriteCosts && hasCost {
				costs[name] = origCost
			}
		}
	}
	if rewriteCosts {
		out.SetMetric(metric.WithCosts(costs))
	}
	r.logger.Debug("conditional effect removal finished",
		zap.String("problem", p.Name()),
		zap.Int("variants", len(variantToOriginal)))
	return &Result{Problem: out, MapBack: renameRewriter(variantToOriginal)}, nil
}

// buildVariant assembles the action variant for one truth assignment. The
// second return value is false when the variant's precondition is
// statically contradictory.
func (r *ConditionalEffectsRemover) buildVariant(env *model.Environment, act *model.InstantaneousAction, conds []*model.Expression, mask int) (*model.InstantaneousAction, bool, error) {
	exprs := env.Exprs()
	literals := make([]*model.Expression, 0, len(act.Preconditions())+len(conds))
	literals = append(literals, act.Preconditions()...)
	for i, c := range conds {
		if mask&(1<<i) != 0 {
			literals = append(literals, c)
			continue
		}
		neg, err := exprs.Not(c)
		if err != nil {
			return nil, false, err
		}
		literals = append(literals, neg)
	}
	conj, err := exprs.And(literals...)
	if err != nil {
		return nil, false, err
	}
	conj, err = walker.Simplify(env, conj)
	if err != nil {
		return nil, false, err
	}
	if conj.IsFalse() {
		return nil, false, nil
	}

	variant := model.NewInstantaneousAction(env, act.Name(), act.Parameters()...)
	if !conj.IsTrue() {
		precs := []*model.Expression{conj}
		if conj.Kind() == model.AndExp {
			precs = conj.Args()
		}
		for _, c := range precs {
			if err := variant.AddPrecondition(c); err != nil {
				return nil, false, err
			}
		}
	}
	for _, e := range act.Effects() {
		if !e.IsConditional() {
			variant.AppendEffect(e)
			continue
		}
		if !assignedTrue(conds, mask, e.Condition()) {
			continue
		}
		stripped, err := model.NewEffect(env, e.EffectKind(), e.Target(), e.Value(), nil)
		if err != nil {
			return nil, false, err
		}
		variant.AppendEffect(stripped)
	}
	return variant, true, nil
}

// distinctEffectConditions lists the distinct conditions of the action's
// conditional effects in first-occurrence order. Conditions are interned
// expressions, so identity is pointer identity.
func distinctEffectConditions(act *model.InstantaneousAction) []*model.Expression {
	var conds []*model.Expression
	seen := make(map[*model.Expression]bool)
	for _, e := range act.Effects() {
		if !e.IsConditional() || seen[e.Condition()] {
			continue
		}
		seen[e.Condition()] = true
		conds = append(conds, e.Condition())
	}
	return conds
}

func assignedTrue(conds []*model.Expression, mask int, cond *model.Expression) bool {
	for i, c := range conds {
		if c == cond {
			return mask&(1<<i) != 0
		}
	}
	return false
}

// metricCost looks up the explicit cost entry for an action name; the
// default cost is not materialized, WithCosts keeps it as the fallback.
func metricCost(m *model.Metric, name string) (*model.Expression, bool) {
	if m == nil || m.Kind() != model.MinimizeActionCosts {
		return nil, false
	}
	c, ok := m.Costs()[name]
	return c, ok
}
