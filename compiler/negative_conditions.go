package compiler

import (
	"go.uber.org/zap"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
	"github.com/aiplan4eu/unified-planning-sub004/walker"
)

// NegativeConditionsRemover eliminates negated literals. Every condition
// is first normalized so negation sits only on fluent applications; each
// fluent negated anywhere then gets a complementary shadow fluent that is
// kept in opposite phase by mirrored effects and mirrored initial values.
// Negated literals become positive literals on the shadow.
//
// Negated equalities are not expressible this way and are rejected.
type NegativeConditionsRemover struct {
	logger *zap.Logger
}

// NewNegativeConditionsRemover creates the pass.
func NewNegativeConditionsRemover() *NegativeConditionsRemover {
	return &NegativeConditionsRemover{logger: zap.NewNop()}
}

// WithLogger attaches a logger and returns the receiver.
func (r *NegativeConditionsRemover) WithLogger(l *zap.Logger) *NegativeConditionsRemover {
	r.logger = l
	return r
}

// Name implements Compiler.
func (r *NegativeConditionsRemover) Name() string { return "negative_conditions_remover" }

// Kind implements Compiler.
func (r *NegativeConditionsRemover) Kind() CompilationKind { return NegativeConditionsRemoving }

// TargetKind implements Compiler.
func (r *NegativeConditionsRemover) TargetKind() model.Kind {
	return model.KindOf(model.FeatureNegativeConditions)
}

// AddedKind implements Compiler.
func (r *NegativeConditionsRemover) AddedKind() model.Kind { return model.EmptyKind }

// RequiresAbsent implements Compiler.
func (r *NegativeConditionsRemover) RequiresAbsent() model.Kind {
	return model.KindOf(
		model.FeatureDurativeActions,
		model.FeatureExistentialConditions,
		model.FeatureUniversalConditions,
	)
}

// Compile implements Compiler.
func (r *NegativeConditionsRemover) Compile(p *model.Problem) (*Result, error) {
	if err := requireAbsent(r.Name(), p.Kind(),
		model.FeatureDurativeActions,
		model.FeatureExistentialConditions,
		model.FeatureUniversalConditions); err != nil {
		return nil, err
	}
	env := p.Env()
	negated, err := r.collectNegatedFluents(p)
	if err != nil {
		return nil, err
	}
	if len(negated) == 0 {
		return identityResult(p), nil
	}

	out := p.CloneWithoutActions().CloneWithoutGoals()
	shadows, err := r.declareShadows(p, out, negated)
	if err != nil {
		return nil, err
	}
	for _, a := range p.Actions() {
		act := a.(*model.InstantaneousAction)
		rewritten := model.NewInstantaneousAction(env, act.Name(), act.Parameters()...)
		for _, c := range act.Preconditions() {
			rc, err := r.rewrite(env, c, shadows)
			if err != nil {
				return nil, err
			}
			if rc.IsTrue() {
				continue
			}
			if err := rewritten.AddPrecondition(rc); err != nil {
				return nil, err
			}
		}
		for _, e := range act.Effects() {
			mirrored, err := r.mirrorEffect(env, e, shadows)
			if err != nil {
				return nil, err
			}
			for _, me := range mirrored {
				rewritten.AppendEffect(me)
			}
		}
		if err := out.AddAction(rewritten); err != nil {
			return nil, err
		}
	}
	for _, g := range p.Goals() {
		rg, err := r.rewrite(env, g, shadows)
		if err != nil {
			return nil, err
		}
		if rg.IsTrue() {
			continue
		}
		if err := out.AddGoal(rg); err != nil {
			return nil, err
		}
	}
	r.logger.Debug("negative condition removal finished",
		zap.String("problem", p.Name()),
		zap.Int("shadow_fluents", len(negated)))
	return &Result{Problem: out, MapBack: plan.IdentityRewriter}, nil
}

// collectNegatedFluents normalizes every condition and gathers the fluents
// that occur under negation, in first-occurrence order. Mirroring an
// effect negates its value, which can surface further negated fluents, so
// the scan runs to a fixpoint.
func (r *NegativeConditionsRemover) collectNegatedFluents(p *model.Problem) ([]*model.Fluent, error) {
	env := p.Env()
	var ordered []*model.Fluent
	seen := make(map[*model.Fluent]bool)
	add := func(e *model.Expression) error {
		n, err := nnf(env, e, false)
		if err != nil {
			return err
		}
		return scanNegated(n, seen, &ordered)
	}
	for _, a := range p.Actions() {
		act := a.(*model.InstantaneousAction)
		for _, c := range act.Preconditions() {
			if err := add(c); err != nil {
				return nil, err
			}
		}
		for _, e := range act.Effects() {
			if e.IsConditional() {
				if err := add(e.Condition()); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, g := range p.Goals() {
		if err := add(g); err != nil {
			return nil, err
		}
	}
	for changed := true; changed; {
		changed = false
		before := len(ordered)
		for _, a := range p.Actions() {
			act := a.(*model.InstantaneousAction)
			for _, e := range act.Effects() {
				if !seen[e.Target().Fluent()] {
					continue
				}
				if err := add(e.Value()); err != nil {
					return nil, err
				}
				negValue, err := env.Exprs().Not(e.Value())
				if err != nil {
					return nil, err
				}
				if err := add(negValue); err != nil {
					return nil, err
				}
			}
		}
		changed = len(ordered) > before
	}
	return ordered, nil
}

func scanNegated(e *model.Expression, seen map[*model.Fluent]bool, ordered *[]*model.Fluent) error {
	var err error
	model.Walk(e, func(n *model.Expression) bool {
		if n.Kind() != model.NotExp {
			return true
		}
		inner := n.Arg(0)
		switch inner.Kind() {
		case model.FluentExp:
			if f := inner.Fluent(); !seen[f] {
				seen[f] = true
				*ordered = append(*ordered, f)
			}
		case model.EqualsExp:
			err = &model.UnsupportedFeatureError{
				Component: "negative_conditions_remover",
				Feature:   model.FeatureEqualities,
			}
			return false
		}
		return true
	})
	return err
}

// declareShadows adds one complementary fluent per negated fluent, with
// negated default and negated explicit initial values.
func (r *NegativeConditionsRemover) declareShadows(p, out *model.Problem, negated []*model.Fluent) (map[*model.Fluent]*model.Fluent, error) {
	env := p.Env()
	exprs := env.Exprs()
	shadows := make(map[*model.Fluent]*model.Fluent, len(negated))
	for _, f := range negated {
		shadow := model.NewFluent(out.FreshName("not_"+f.Name()), env.Types().Bool(), f.Parameters()...)
		if d := p.FluentDefault(f); d != nil {
			if err := out.AddFluentWithDefault(shadow, exprs.Bool(!d.BoolValue())); err != nil {
				return nil, err
			}
		} else {
			if err := out.AddFluent(shadow); err != nil {
				return nil, err
			}
		}
		shadows[f] = shadow
	}
	for _, app := range p.ExplicitInitialValues() {
		shadow, ok := shadows[app.Fluent()]
		if !ok {
			continue
		}
		value, err := p.InitialValue(app)
		if err != nil {
			return nil, err
		}
		shadowApp, err := exprs.FluentExp(shadow, app.Args()...)
		if err != nil {
			return nil, err
		}
		if err := out.SetInitialValue(shadowApp, exprs.Bool(!value.BoolValue())); err != nil {
			return nil, err
		}
	}
	return shadows, nil
}

// rewrite normalizes a condition and replaces each negated fluent literal
// with a positive literal on its shadow.
func (r *NegativeConditionsRemover) rewrite(env *model.Environment, e *model.Expression, shadows map[*model.Fluent]*model.Fluent) (*model.Expression, error) {
	n, err := nnf(env, e, false)
	if err != nil {
		return nil, err
	}
	replaced, err := replaceNegations(env, n, shadows)
	if err != nil {
		return nil, err
	}
	return walker.Simplify(env, replaced)
}

func replaceNegations(env *model.Environment, e *model.Expression, shadows map[*model.Fluent]*model.Fluent) (*model.Expression, error) {
	if e.Kind() == model.NotExp && e.Arg(0).Kind() == model.FluentExp {
		inner := e.Arg(0)
		shadow, ok := shadows[inner.Fluent()]
		if !ok {
			// Unreachable once collection ran; kept as a guard.
			return e, nil
		}
		return env.Exprs().FluentExp(shadow, inner.Args()...)
	}
	args := e.Args()
	if len(args) == 0 {
		return e, nil
	}
	newArgs := make([]*model.Expression, len(args))
	changed := false
	for i, a := range args {
		na, err := replaceNegations(env, a, shadows)
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

// mirrorEffect rewrites an effect's condition and, when its target has a
// shadow, emits the complementary effect keeping the shadow in opposite
// phase.
func (r *NegativeConditionsRemover) mirrorEffect(env *model.Environment, e *model.Effect, shadows map[*model.Fluent]*model.Fluent) ([]*model.Effect, error) {
	cond := e.Condition()
	if e.IsConditional() {
		rc, err := r.rewrite(env, cond, shadows)
		if err != nil {
			return nil, err
		}
		cond = rc
	}
	primary, err := model.NewEffect(env, e.EffectKind(), e.Target(), e.Value(), cond, e.Forall()...)
	if err != nil {
		return nil, err
	}
	shadow, ok := shadows[e.Target().Fluent()]
	if !ok {
		return []*model.Effect{primary}, nil
	}
	shadowApp, err := env.Exprs().FluentExp(shadow, e.Target().Args()...)
	if err != nil {
		return nil, err
	}
	negValue, err := env.Exprs().Not(e.Value())
	if err != nil {
		return nil, err
	}
	mirrorValue, err := r.rewrite(env, negValue, shadows)
	if err != nil {
		return nil, err
	}
	mirror, err := model.NewEffect(env, model.AssignEffect, shadowApp, mirrorValue, cond, e.Forall()...)
	if err != nil {
		return nil, err
	}
	return []*model.Effect{primary, mirror}, nil
}
