// Package walker implements the tree rewriters of the expression model:
// capture-avoiding substitution, constant-folding simplification, free
// variable extraction and state evaluation.
package walker

import (
	"fmt"

	"github.com/aiplan4eu/unified-planning-sub004/model"
)

// Substitute replaces every parameter or variable reference that occurs as
// a key of the mapping with its mapped expression and re-interns the
// result bottom-up.
//
// Substitution is capture-avoiding by shadowing: inside an exists/forall
// whose bound variable shares a name with a mapping key, that key is
// suppressed for the quantifier's scope. Callers that generate mappings
// (the compilers) always use fresh synthetic names, so a shadowed name
// never otherwise occurs free at that point.
func Substitute(env *model.Environment, e *model.Expression, mapping map[*model.Expression]*model.Expression) (*model.Expression, error) {
	for key, repl := range mapping {
		var declared *model.Type
		switch key.Kind() {
		case model.ParamExp:
			declared = key.Parameter().Type()
		case model.VariableExp:
			declared = key.Variable().Type()
		default:
			return nil, &model.TypeError{Op: "Substitute", Message: fmt.Sprintf("mapping key %s is not a parameter or variable", key)}
		}
		if !compatible(repl.Type(), declared) {
			return nil, &model.ConstantAssignmentError{
				Target:   key.String(),
				Expected: declared.String(),
				Got:      repl.Type().String(),
			}
		}
	}
	return substitute(env, e, mapping)
}

func compatible(value, target *model.Type) bool {
	return value.IsSubtypeOf(target) || value.IsNumeric() && target.IsNumeric()
}

func substitute(env *model.Environment, e *model.Expression, mapping map[*model.Expression]*model.Expression) (*model.Expression, error) {
	if len(mapping) == 0 {
		return e, nil
	}
	if repl, ok := mapping[e]; ok {
		return repl, nil
	}
	switch e.Kind() {
	case model.ExistsExp, model.ForallExp:
		scoped := mapping
		if shadowed := shadowedKeys(e.Vars(), mapping); len(shadowed) > 0 {
			scoped = make(map[*model.Expression]*model.Expression, len(mapping))
			for k, v := range mapping {
				if !shadowed[k] {
					scoped[k] = v
				}
			}
		}
		body, err := substitute(env, e.Arg(0), scoped)
		if err != nil {
			return nil, err
		}
		if body == e.Arg(0) {
			return e, nil
		}
		return env.Exprs().Rebuild(e, []*model.Expression{body})
	default:
		args := e.Args()
		if len(args) == 0 {
			return e, nil
		}
		newArgs := make([]*model.Expression, len(args))
		changed := false
		for i, a := range args {
			na, err := substitute(env, a, mapping)
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

func shadowedKeys(vars []*model.Variable, mapping map[*model.Expression]*model.Expression) map[*model.Expression]bool {
	var shadowed map[*model.Expression]bool
	for key := range mapping {
		name := ""
		switch key.Kind() {
		case model.ParamExp:
			name = key.Parameter().Name()
		case model.VariableExp:
			name = key.Variable().Name()
		}
		for _, v := range vars {
			if v.Name() == name {
				if shadowed == nil {
					shadowed = make(map[*model.Expression]bool)
				}
				shadowed[key] = true
			}
		}
	}
	return shadowed
}

// BindParameters grounds an instantaneous action schema on concrete
// arguments: every parameter reference is replaced by the corresponding
// argument and the resulting conditions are simplified. The ground action
// keeps the schema's name; callers that need binding-encoding names rename
// the result. A statically false precondition is kept, not dropped.
func BindParameters(a *model.InstantaneousAction, args []*model.Expression) (*model.InstantaneousAction, error) {
	env := a.Environment()
	params := a.Parameters()
	if len(args) != len(params) {
		return nil, &model.TypeError{Op: "BindParameters", Message: fmt.Sprintf("action %s expects %d arguments, got %d", a.Name(), len(params), len(args))}
	}
	mapping := make(map[*model.Expression]*model.Expression, len(params))
	for i, p := range params {
		mapping[env.Exprs().ParameterExp(p)] = args[i]
	}
	ground := model.NewInstantaneousAction(env, a.Name())
	for _, c := range a.Preconditions() {
		sub, err := Substitute(env, c, mapping)
		if err != nil {
			return nil, err
		}
		simplified, err := Simplify(env, sub)
		if err != nil {
			return nil, err
		}
		if simplified.IsTrue() {
			continue
		}
		if err := ground.AddPrecondition(simplified); err != nil {
			return nil, err
		}
	}
	for _, e := range a.Effects() {
		ge, err := bindEffect(env, e, mapping)
		if err != nil {
			return nil, err
		}
		ground.AppendEffect(ge)
	}
	return ground, nil
}

// BindDurativeParameters grounds a durative action schema the same way,
// substituting through the duration bounds, the timed conditions and the
// timed effects.
func BindDurativeParameters(a *model.DurativeAction, args []*model.Expression) (*model.DurativeAction, error) {
	env := a.Environment()
	params := a.Parameters()
	if len(args) != len(params) {
		return nil, &model.TypeError{Op: "BindDurativeParameters", Message: fmt.Sprintf("action %s expects %d arguments, got %d", a.Name(), len(params), len(args))}
	}
	mapping := make(map[*model.Expression]*model.Expression, len(params))
	for i, p := range params {
		mapping[env.Exprs().ParameterExp(p)] = args[i]
	}
	ground := model.NewDurativeAction(env, a.Name())
	dur := a.Duration()
	if dur.Lower != nil {
		lo, err := Substitute(env, dur.Lower, mapping)
		if err != nil {
			return nil, err
		}
		hi, err := Substitute(env, dur.Upper, mapping)
		if err != nil {
			return nil, err
		}
		if err := ground.SetDurationBounds(lo, hi); err != nil {
			return nil, err
		}
	}
	for _, tc := range a.Conditions() {
		sub, err := Substitute(env, tc.Condition, mapping)
		if err != nil {
			return nil, err
		}
		simplified, err := Simplify(env, sub)
		if err != nil {
			return nil, err
		}
		if simplified.IsTrue() {
			continue
		}
		if err := ground.AddCondition(tc.Interval, simplified); err != nil {
			return nil, err
		}
	}
	for _, te := range a.Effects() {
		ge, err := bindEffect(env, te.Effect, mapping)
		if err != nil {
			return nil, err
		}
		ground.AppendTimedEffect(te.Timing, ge)
	}
	return ground, nil
}

func bindEffect(env *model.Environment, e *model.Effect, mapping map[*model.Expression]*model.Expression) (*model.Effect, error) {
	target, err := Substitute(env, e.Target(), mapping)
	if err != nil {
		return nil, err
	}
	value, err := Substitute(env, e.Value(), mapping)
	if err != nil {
		return nil, err
	}
	cond, err := Substitute(env, e.Condition(), mapping)
	if err != nil {
		return nil, err
	}
	cond, err = Simplify(env, cond)
	if err != nil {
		return nil, err
	}
	return model.NewEffect(env, e.EffectKind(), target, value, cond, e.Forall()...)
}
