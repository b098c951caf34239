// Package simulator executes ground actions against immutable states and
// validates sequential plans, including plans mapped back from compiled
// problems onto the original lifted problem.
package simulator

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
	"github.com/aiplan4eu/unified-planning-sub004/walker"
)

// ConflictingEffectError reports two effects of one action resolving to
// different values for the same state variable.
type ConflictingEffectError struct {
	Action string
	Target string
}

func (e *ConflictingEffectError) Error() string {
	return fmt.Sprintf("action %s: conflicting effects on %s", e.Action, e.Target)
}

// State is an immutable snapshot of all state variables. It starts from
// the problem's initial values and defaults; applying an action produces a
// new state, the receiver is never changed.
type State struct {
	problem *model.Problem
	values  map[*model.Expression]*model.Expression
}

// NewInitialState creates the state described by the problem's initial
// values.
func NewInitialState(p *model.Problem) *State {
	return &State{problem: p, values: make(map[*model.Expression]*model.Expression)}
}

// Value implements walker.StateReader: the applied overrides first, then
// the problem's explicit initial values, then the fluent defaults.
func (s *State) Value(fluentApp *model.Expression) (*model.Expression, error) {
	if v, ok := s.values[fluentApp]; ok {
		return v, nil
	}
	return s.problem.InitialValue(fluentApp)
}

// with returns a copy of the state with the given updates applied.
func (s *State) with(updates map[*model.Expression]*model.Expression) *State {
	next := &State{problem: s.problem, values: make(map[*model.Expression]*model.Expression, len(s.values)+len(updates))}
	for k, v := range s.values {
		next.values[k] = v
	}
	for k, v := range updates {
		next.values[k] = v
	}
	return next
}

// SequentialSimulator steps a problem's state through instantaneous
// actions. Durative actions have no step semantics here and are rejected
// at construction.
type SequentialSimulator struct {
	problem *model.Problem
	env     *model.Environment
	logger  *zap.Logger
}

// SimulatorOption configures a SequentialSimulator.
type SimulatorOption func(*SequentialSimulator)

// WithSimulatorLogger attaches a logger.
func WithSimulatorLogger(l *zap.Logger) SimulatorOption {
	return func(s *SequentialSimulator) { s.logger = l }
}

// NewSequentialSimulator creates a simulator for the problem.
func NewSequentialSimulator(p *model.Problem, opts ...SimulatorOption) (*SequentialSimulator, error) {
	if p.Kind().Has(model.FeatureDurativeActions) {
		return nil, &model.UnsupportedFeatureError{Component: "simulator", Feature: model.FeatureDurativeActions}
	}
	s := &SequentialSimulator{problem: p, env: p.Env(), logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// InitialState returns the problem's initial state.
func (s *SequentialSimulator) InitialState() *State {
	return NewInitialState(s.problem)
}

func (s *SequentialSimulator) evaluator(st *State) *walker.Evaluator {
	return walker.NewEvaluator(s.env, st, s.problem.ObjectsOfType)
}

// IsApplicable reports whether every precondition of the ground action
// holds in the state.
func (s *SequentialSimulator) IsApplicable(st *State, act *model.InstantaneousAction) (bool, error) {
	ev := s.evaluator(st)
	for _, c := range act.Preconditions() {
		v, err := ev.Evaluate(c)
		if err != nil {
			return false, err
		}
		if !v.IsTrue() {
			return false, nil
		}
	}
	return true, nil
}

// Apply executes the ground action's effects against the state and
// returns the successor. All conditions and values are evaluated against
// the pre-state, then applied as one batch: two assignments resolving to
// different values for the same variable conflict, as does mixing an
// assignment with an increase or decrease. Increases and decreases on the
// same variable accumulate. Apply does not check preconditions.
func (s *SequentialSimulator) Apply(st *State, act *model.InstantaneousAction) (*State, error) {
	ev := s.evaluator(st)
	assigned := make(map[*model.Expression]*model.Expression)
	deltas := make(map[*model.Expression]*model.Expression)
	order := make([]*model.Expression, 0, len(act.Effects()))

	record := func(kind model.EffectKind, target, value *model.Expression) error {
		if _, ok := assigned[target]; !ok {
			if _, ok := deltas[target]; !ok {
				order = append(order, target)
			}
		}
		switch kind {
		case model.AssignEffect:
			if _, clash := deltas[target]; clash {
				return &ConflictingEffectError{Action: act.Name(), Target: target.String()}
			}
			if prev, ok := assigned[target]; ok && prev != value {
				return &ConflictingEffectError{Action: act.Name(), Target: target.String()}
			}
			assigned[target] = value
		default:
			if _, clash := assigned[target]; clash {
				return &ConflictingEffectError{Action: act.Name(), Target: target.String()}
			}
			if kind == model.DecreaseEffect {
				neg, err := s.negate(value)
				if err != nil {
					return err
				}
				value = neg
			}
			if prev, ok := deltas[target]; ok {
				sum, err := s.addConstants(prev, value)
				if err != nil {
					return err
				}
				value = sum
			}
			deltas[target] = value
		}
		return nil
	}

	for _, e := range act.Effects() {
		grounded, err := s.expandForall(e)
		if err != nil {
			return nil, err
		}
		for _, ge := range grounded {
			if ge.IsConditional() {
				holds, err := ev.Evaluate(ge.Condition())
				if err != nil {
					return nil, err
				}
				if !holds.IsTrue() {
					continue
				}
			}
			target, err := s.groundTarget(ev, ge.Target())
			if err != nil {
				return nil, err
			}
			value, err := ev.Evaluate(ge.Value())
			if err != nil {
				return nil, err
			}
			if err := record(ge.EffectKind(), target, value); err != nil {
				return nil, err
			}
		}
	}

	updates := make(map[*model.Expression]*model.Expression, len(order))
	for _, target := range order {
		if v, ok := assigned[target]; ok {
			updates[target] = v
			continue
		}
		base, err := st.Value(target)
		if err != nil {
			return nil, err
		}
		sum, err := s.addConstants(base, deltas[target])
		if err != nil {
			return nil, err
		}
		updates[target] = sum
	}
	return st.with(updates), nil
}

// groundTarget resolves a target fluent application to its canonical
// ground form by evaluating the argument expressions. Interning makes the
// result directly usable as a state key.
func (s *SequentialSimulator) groundTarget(ev *walker.Evaluator, target *model.Expression) (*model.Expression, error) {
	args := make([]*model.Expression, len(target.Args()))
	for i, a := range target.Args() {
		v, err := ev.Evaluate(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return s.env.Exprs().FluentExp(target.Fluent(), args...)
}

// expandForall unrolls a forall-effect over the objects of its variables.
func (s *SequentialSimulator) expandForall(e *model.Effect) ([]*model.Effect, error) {
	vars := e.Forall()
	if len(vars) == 0 {
		return []*model.Effect{e}, nil
	}
	domains := make([][]*model.Object, len(vars))
	for i, v := range vars {
		domains[i] = s.problem.ObjectsOfType(v.Type())
	}
	var out []*model.Effect
	for _, binding := range model.Combinations(domains) {
		mapping := make(map[*model.Expression]*model.Expression, len(vars))
		for i, v := range vars {
			mapping[s.env.Exprs().VariableExp(v)] = s.env.Exprs().ObjectExp(binding[i])
		}
		target, err := walker.Substitute(s.env, e.Target(), mapping)
		if err != nil {
			return nil, err
		}
		value, err := walker.Substitute(s.env, e.Value(), mapping)
		if err != nil {
			return nil, err
		}
		cond, err := walker.Substitute(s.env, e.Condition(), mapping)
		if err != nil {
			return nil, err
		}
		ge, err := model.NewEffect(s.env, e.EffectKind(), target, value, cond)
		if err != nil {
			return nil, err
		}
		out = append(out, ge)
	}
	return out, nil
}

func (s *SequentialSimulator) negate(v *model.Expression) (*model.Expression, error) {
	switch v.Kind() {
	case model.IntConstant:
		return s.env.Exprs().Int(-v.IntValue()), nil
	case model.RealConstant:
		return s.env.Exprs().Real(-v.RealValue()), nil
	}
	return nil, fmt.Errorf("expected a numeric constant, got %s", v)
}

func (s *SequentialSimulator) addConstants(a, b *model.Expression) (*model.Expression, error) {
	if a.Kind() == model.IntConstant && b.Kind() == model.IntConstant {
		return s.env.Exprs().Int(a.IntValue() + b.IntValue()), nil
	}
	if !a.Type().IsNumeric() || !b.Type().IsNumeric() {
		return nil, fmt.Errorf("cannot add %s and %s", a, b)
	}
	return s.env.Exprs().Real(a.RealValue() + b.RealValue()), nil
}

// IsGoalReached reports whether every goal holds in the state.
func (s *SequentialSimulator) IsGoalReached(st *State) (bool, error) {
	ev := s.evaluator(st)
	for _, g := range s.problem.Goals() {
		v, err := ev.Evaluate(g)
		if err != nil {
			return false, err
		}
		if !v.IsTrue() {
			return false, nil
		}
	}
	return true, nil
}

// ValidationResult is the outcome of a plan validation: valid, or invalid
// with the first violation found.
type ValidationResult struct {
	Valid  bool
	Reason string
}

// ValidatePlan replays a sequential plan from the initial state. Instances
// of parametrized actions are bound on the fly, so plans mapped back from
// compiled problems validate directly against the original lifted problem.
// Model-level failures (unknown actions, arity mismatches, evaluation
// errors) are returned as errors, not as invalid results.
func (s *SequentialSimulator) ValidatePlan(sp *plan.SequentialPlan) (*ValidationResult, error) {
	st := s.InitialState()
	for i, ai := range sp.Actions {
		a, err := s.problem.Action(ai.ActionName)
		if err != nil {
			return nil, err
		}
		act, ok := a.(*model.InstantaneousAction)
		if !ok {
			return nil, &model.UnsupportedFeatureError{Component: "simulator", Feature: model.FeatureDurativeActions}
		}
		ground := act
		if len(act.Parameters()) > 0 {
			ground, err = walker.BindParameters(act, ai.Parameters)
			if err != nil {
				return nil, err
			}
		}
		applicable, err := s.IsApplicable(st, ground)
		if err != nil {
			return nil, err
		}
		if !applicable {
			return &ValidationResult{Reason: fmt.Sprintf("step %d: %s is not applicable", i, ai)}, nil
		}
		st, err = s.Apply(st, ground)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("applied plan step", zap.Int("step", i), zap.Stringer("action", ai))
	}
	reached, err := s.IsGoalReached(st)
	if err != nil {
		return nil, err
	}
	if !reached {
		return &ValidationResult{Reason: "goal not reached in final state"}, nil
	}
	return &ValidationResult{Valid: true}, nil
}
