package compiler

import (
	"fmt"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/walker"
)

// nnf rewrites a quantifier-free boolean expression into negation normal
// form: negation appears only on fluent applications and equalities, and
// negated comparisons are flipped into their complements.
func nnf(env *model.Environment, e *model.Expression, negated bool) (*model.Expression, error) {
	exprs := env.Exprs()
	switch e.Kind() {
	case model.NotExp:
		return nnf(env, e.Arg(0), !negated)
	case model.AndExp, model.OrExp:
		args := make([]*model.Expression, len(e.Args()))
		for i, a := range e.Args() {
			na, err := nnf(env, a, negated)
			if err != nil {
				return nil, err
			}
			args[i] = na
		}
		isAnd := e.Kind() == model.AndExp
		if isAnd != negated {
			return exprs.And(args...)
		}
		return exprs.Or(args...)
	case model.ImpliesExp:
		// a -> b  ==  not a or b
		notA, err := exprs.Not(e.Arg(0))
		if err != nil {
			return nil, err
		}
		rewritten, err := exprs.Or(notA, e.Arg(1))
		if err != nil {
			return nil, err
		}
		return nnf(env, rewritten, negated)
	case model.IffExp:
		a, b := e.Arg(0), e.Arg(1)
		notA, err := exprs.Not(a)
		if err != nil {
			return nil, err
		}
		notB, err := exprs.Not(b)
		if err != nil {
			return nil, err
		}
		both, err := exprs.And(a, b)
		if err != nil {
			return nil, err
		}
		neither, err := exprs.And(notA, notB)
		if err != nil {
			return nil, err
		}
		rewritten, err := exprs.Or(both, neither)
		if err != nil {
			return nil, err
		}
		return nnf(env, rewritten, negated)
	case model.LTExp:
		if negated {
			// not (a < b)  ==  b <= a
			return exprs.LE(e.Arg(1), e.Arg(0))
		}
		return e, nil
	case model.LEExp:
		if negated {
			return exprs.LT(e.Arg(1), e.Arg(0))
		}
		return e, nil
	case model.BoolConstant:
		if negated {
			return exprs.Bool(!e.BoolValue()), nil
		}
		return e, nil
	case model.FluentExp, model.EqualsExp, model.ParamExp, model.VariableExp:
		if negated {
			return exprs.Not(e)
		}
		return e, nil
	case model.ExistsExp, model.ForallExp:
		return nil, fmt.Errorf("expression %s is not quantifier-free", e)
	default:
		return nil, fmt.Errorf("expression %s is not boolean", e)
	}
}

// dnf converts an NNF expression into a disjunction of conjunctions,
// returned as a list of conjunct lists.
func dnf(e *model.Expression) [][]*model.Expression {
	switch e.Kind() {
	case model.OrExp:
		var out [][]*model.Expression
		for _, a := range e.Args() {
			out = append(out, dnf(a)...)
		}
		return out
	case model.AndExp:
		out := [][]*model.Expression{{}}
		for _, a := range e.Args() {
			argDNF := dnf(a)
			next := make([][]*model.Expression, 0, len(out)*len(argDNF))
			for _, prefix := range out {
				for _, disjunct := range argDNF {
					conj := make([]*model.Expression, 0, len(prefix)+len(disjunct))
					conj = append(conj, prefix...)
					conj = append(conj, disjunct...)
					next = append(next, conj)
				}
			}
			out = next
		}
		return out
	default:
		return [][]*model.Expression{{e}}
	}
}

// toDNF normalizes a boolean expression into simplified disjuncts,
// dropping disjuncts that are statically false. The second return value is
// true when the whole expression is statically true.
func toDNF(env *model.Environment, e *model.Expression) ([][]*model.Expression, bool, error) {
	normalized, err := nnf(env, e, false)
	if err != nil {
		return nil, false, err
	}
	normalized, err = walker.Simplify(env, normalized)
	if err != nil {
		return nil, false, err
	}
	if normalized.IsTrue() {
		return nil, true, nil
	}
	if normalized.IsFalse() {
		return nil, false, nil
	}
	var out [][]*model.Expression
	for _, conj := range dnf(normalized) {
		joined, err := env.Exprs().And(conj...)
		if err != nil {
			return nil, false, err
		}
		simplified, err := walker.Simplify(env, joined)
		if err != nil {
			return nil, false, err
		}
		if simplified.IsFalse() {
			continue
		}
		if simplified.IsTrue() {
			return nil, true, nil
		}
		if simplified.Kind() == model.AndExp {
			out = append(out, simplified.Args())
		} else {
			out = append(out, []*model.Expression{simplified})
		}
	}
	return out, false, nil
}
