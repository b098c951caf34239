package walker

import (
	"fmt"

	"github.com/aiplan4eu/unified-planning-sub004/model"
)

// StateReader supplies the value of a ground fluent application. The
// simulator's state implements it.
type StateReader interface {
	Value(fluentApp *model.Expression) (*model.Expression, error)
}

// Evaluator reduces ground expressions to constants against a state. When
// constructed with a non-nil objects function it also evaluates
// exists/forall by expansion over the finite domain.
type Evaluator struct {
	env     *model.Environment
	state   StateReader
	objects func(*model.Type) []*model.Object
}

// NewEvaluator creates an evaluator. objects may be nil if the evaluated
// expressions are quantifier-free.
func NewEvaluator(env *model.Environment, state StateReader, objects func(*model.Type) []*model.Object) *Evaluator {
	return &Evaluator{env: env, state: state, objects: objects}
}

// Evaluate reduces e to a constant expression.
func (ev *Evaluator) Evaluate(e *model.Expression) (*model.Expression, error) {
	switch e.Kind() {
	case model.BoolConstant, model.IntConstant, model.RealConstant, model.ObjectExp:
		return e, nil
	case model.ParamExp, model.VariableExp:
		return nil, fmt.Errorf("cannot evaluate non-ground expression %s", e)
	case model.FluentExp:
		args := make([]*model.Expression, len(e.Args()))
		for i, a := range e.Args() {
			v, err := ev.Evaluate(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		app, err := ev.env.Exprs().FluentExp(e.Fluent(), args...)
		if err != nil {
			return nil, err
		}
		return ev.state.Value(app)
	case model.AndExp:
		for _, a := range e.Args() {
			v, err := ev.evalBool(a)
			if err != nil {
				return nil, err
			}
			if !v {
				return ev.env.Exprs().FalseExpr(), nil
			}
		}
		return ev.env.Exprs().TrueExpr(), nil
	case model.OrExp:
		for _, a := range e.Args() {
			v, err := ev.evalBool(a)
			if err != nil {
				return nil, err
			}
			if v {
				return ev.env.Exprs().TrueExpr(), nil
			}
		}
		return ev.env.Exprs().FalseExpr(), nil
	case model.NotExp:
		v, err := ev.evalBool(e.Arg(0))
		if err != nil {
			return nil, err
		}
		return ev.env.Exprs().Bool(!v), nil
	case model.ImpliesExp:
		a, err := ev.evalBool(e.Arg(0))
		if err != nil {
			return nil, err
		}
		if !a {
			return ev.env.Exprs().TrueExpr(), nil
		}
		b, err := ev.evalBool(e.Arg(1))
		if err != nil {
			return nil, err
		}
		return ev.env.Exprs().Bool(b), nil
	case model.IffExp:
		a, err := ev.evalBool(e.Arg(0))
		if err != nil {
			return nil, err
		}
		b, err := ev.evalBool(e.Arg(1))
		if err != nil {
			return nil, err
		}
		return ev.env.Exprs().Bool(a == b), nil
	case model.ExistsExp, model.ForallExp:
		return ev.evalQuantifier(e)
	case model.PlusExp, model.MinusExp, model.TimesExp, model.DivExp,
		model.EqualsExp, model.LTExp, model.LEExp:
		args := make([]*model.Expression, len(e.Args()))
		for i, a := range e.Args() {
			v, err := ev.Evaluate(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		rebuilt, err := ev.env.Exprs().Rebuild(e, args)
		if err != nil {
			return nil, err
		}
		folded, err := Simplify(ev.env, rebuilt)
		if err != nil {
			return nil, err
		}
		if !folded.IsConstant() {
			return nil, fmt.Errorf("expression %s did not reduce to a constant", e)
		}
		return folded, nil
	}
	return nil, fmt.Errorf("cannot evaluate expression kind %s", e.Kind())
}

func (ev *Evaluator) evalBool(e *model.Expression) (bool, error) {
	v, err := ev.Evaluate(e)
	if err != nil {
		return false, err
	}
	if v.Kind() != model.BoolConstant {
		return false, fmt.Errorf("expected boolean value for %s, got %s", e, v)
	}
	return v.BoolValue(), nil
}

func (ev *Evaluator) evalQuantifier(e *model.Expression) (*model.Expression, error) {
	if ev.objects == nil {
		return nil, fmt.Errorf("cannot evaluate quantifier %s without an object domain", e)
	}
	vars := e.Vars()
	domains := make([][]*model.Object, len(vars))
	for i, v := range vars {
		domains[i] = ev.objects(v.Type())
	}
	forall := e.Kind() == model.ForallExp
	for _, combo := range model.Combinations(domains) {
		mapping := make(map[*model.Expression]*model.Expression, len(vars))
		for i, v := range vars {
			mapping[ev.env.Exprs().VariableExp(v)] = ev.env.Exprs().ObjectExp(combo[i])
		}
		instance, err := Substitute(ev.env, e.Arg(0), mapping)
		if err != nil {
			return nil, err
		}
		v, err := ev.evalBool(instance)
		if err != nil {
			return nil, err
		}
		if forall && !v {
			return ev.env.Exprs().FalseExpr(), nil
		}
		if !forall && v {
			return ev.env.Exprs().TrueExpr(), nil
		}
	}
	return ev.env.Exprs().Bool(forall), nil
}
