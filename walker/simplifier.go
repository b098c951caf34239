package walker

import (
	"github.com/aiplan4eu/unified-planning-sub004/model"
)

// Simplify folds every constant sub-expression of e: boolean operators
// with true/false operands, double negation, complementary literals inside
// one conjunction or disjunction, arithmetic over constants, and
// comparisons between constants. Expressions with no applicable reduction
// come back unchanged, and the function is idempotent.
func Simplify(env *model.Environment, e *model.Expression) (*model.Expression, error) {
	args := e.Args()
	newArgs := make([]*model.Expression, len(args))
	changed := false
	for i, a := range args {
		na, err := Simplify(env, a)
		if err != nil {
			return nil, err
		}
		newArgs[i] = na
		if na != a {
			changed = true
		}
	}
	switch e.Kind() {
	case model.AndExp:
		return simplifyAnd(env, newArgs)
	case model.OrExp:
		return simplifyOr(env, newArgs)
	case model.NotExp:
		return simplifyNot(env, newArgs[0])
	case model.ImpliesExp:
		return simplifyImplies(env, newArgs[0], newArgs[1])
	case model.IffExp:
		return simplifyIff(env, newArgs[0], newArgs[1])
	case model.PlusExp:
		return simplifyPlus(env, newArgs)
	case model.MinusExp:
		return simplifyMinus(env, newArgs[0], newArgs[1])
	case model.TimesExp:
		return simplifyTimes(env, newArgs)
	case model.DivExp:
		return simplifyDiv(env, newArgs[0], newArgs[1])
	case model.EqualsExp:
		return simplifyEquals(env, newArgs[0], newArgs[1])
	case model.LTExp, model.LEExp:
		return simplifyCompare(env, e.Kind(), newArgs[0], newArgs[1])
	case model.ExistsExp, model.ForallExp:
		if newArgs[0].Kind() == model.BoolConstant {
			return newArgs[0], nil
		}
		if !changed {
			return e, nil
		}
		return env.Exprs().Rebuild(e, newArgs)
	default:
		if !changed {
			return e, nil
		}
		return env.Exprs().Rebuild(e, newArgs)
	}
}

func simplifyAnd(env *model.Environment, args []*model.Expression) (*model.Expression, error) {
	args = flattenKind(model.AndExp, args)
	kept := make([]*model.Expression, 0, len(args))
	seen := make(map[*model.Expression]bool, len(args))
	for _, a := range args {
		if a.IsFalse() {
			return env.Exprs().FalseExpr(), nil
		}
		if a.IsTrue() || seen[a] {
			continue
		}
		seen[a] = true
		kept = append(kept, a)
	}
	// a conjunction containing both x and (not x) is unsatisfiable
	for _, a := range kept {
		if a.Kind() == model.NotExp && seen[a.Arg(0)] {
			return env.Exprs().FalseExpr(), nil
		}
	}
	return env.Exprs().And(kept...)
}

// flattenKind inlines nested operands of the same associative kind so that
// deduplication and complement detection see every literal.
func flattenKind(kind model.ExprKind, args []*model.Expression) []*model.Expression {
	flat := make([]*model.Expression, 0, len(args))
	for _, a := range args {
		if a.Kind() == kind {
			flat = append(flat, flattenKind(kind, a.Args())...)
		} else {
			flat = append(flat, a)
		}
	}
	return flat
}

func simplifyOr(env *model.Environment, args []*model.Expression) (*model.Expression, error) {
	args = flattenKind(model.OrExp, args)
	kept := make([]*model.Expression, 0, len(args))
	seen := make(map[*model.Expression]bool, len(args))
	for _, a := range args {
		if a.IsTrue() {
			return env.Exprs().TrueExpr(), nil
		}
		if a.IsFalse() || seen[a] {
			continue
		}
		seen[a] = true
		kept = append(kept, a)
	}
	for _, a := range kept {
		if a.Kind() == model.NotExp && seen[a.Arg(0)] {
			return env.Exprs().TrueExpr(), nil
		}
	}
	return env.Exprs().Or(kept...)
}

func simplifyNot(env *model.Environment, a *model.Expression) (*model.Expression, error) {
	switch {
	case a.IsTrue():
		return env.Exprs().FalseExpr(), nil
	case a.IsFalse():
		return env.Exprs().TrueExpr(), nil
	case a.Kind() == model.NotExp:
		return a.Arg(0), nil
	}
	return env.Exprs().Not(a)
}

func simplifyImplies(env *model.Environment, a, b *model.Expression) (*model.Expression, error) {
	switch {
	case a.IsFalse() || b.IsTrue():
		return env.Exprs().TrueExpr(), nil
	case a.IsTrue():
		return b, nil
	case b.IsFalse():
		return simplifyNot(env, a)
	case a == b:
		return env.Exprs().TrueExpr(), nil
	}
	return env.Exprs().Implies(a, b)
}

func simplifyIff(env *model.Environment, a, b *model.Expression) (*model.Expression, error) {
	switch {
	case a == b:
		return env.Exprs().TrueExpr(), nil
	case a.IsTrue():
		return b, nil
	case a.IsFalse():
		return simplifyNot(env, b)
	case b.IsTrue():
		return a, nil
	case b.IsFalse():
		return simplifyNot(env, a)
	}
	return env.Exprs().Iff(a, b)
}

func isNumConstant(e *model.Expression) bool {
	return e.Kind() == model.IntConstant || e.Kind() == model.RealConstant
}

func numConstant(env *model.Environment, intVal int64, realVal float64, isInt bool) *model.Expression {
	if isInt {
		return env.Exprs().Int(intVal)
	}
	return env.Exprs().Real(realVal)
}

func simplifyPlus(env *model.Environment, args []*model.Expression) (*model.Expression, error) {
	var others []*model.Expression
	var intSum int64
	var realSum float64
	allInt := true
	haveConst := false
	for _, a := range args {
		if isNumConstant(a) {
			haveConst = true
			if a.Kind() == model.IntConstant {
				intSum += a.IntValue()
			} else {
				allInt = false
			}
			realSum += a.RealValue()
			continue
		}
		others = append(others, a)
	}
	if len(others) == 0 {
		return numConstant(env, intSum, realSum, allInt), nil
	}
	if !haveConst {
		return env.Exprs().Plus(args...)
	}
	zero := allInt && intSum == 0 || !allInt && realSum == 0
	if zero {
		if len(others) == 1 {
			return others[0], nil
		}
		return env.Exprs().Plus(others...)
	}
	return env.Exprs().Plus(append(others, numConstant(env, intSum, realSum, allInt))...)
}

func simplifyMinus(env *model.Environment, a, b *model.Expression) (*model.Expression, error) {
	if isNumConstant(a) && isNumConstant(b) {
		if a.Kind() == model.IntConstant && b.Kind() == model.IntConstant {
			return env.Exprs().Int(a.IntValue() - b.IntValue()), nil
		}
		return env.Exprs().Real(a.RealValue() - b.RealValue()), nil
	}
	if isNumConstant(b) && b.RealValue() == 0 {
		return a, nil
	}
	if a == b {
		return numConstant(env, 0, 0, a.Type().IsInt() && b.Type().IsInt()), nil
	}
	return env.Exprs().Minus(a, b)
}

func simplifyTimes(env *model.Environment, args []*model.Expression) (*model.Expression, error) {
	var others []*model.Expression
	intProd := int64(1)
	realProd := 1.0
	allInt := true
	haveConst := false
	for _, a := range args {
		if isNumConstant(a) {
			haveConst = true
			if a.Kind() == model.IntConstant {
				intProd *= a.IntValue()
			} else {
				allInt = false
			}
			realProd *= a.RealValue()
			continue
		}
		others = append(others, a)
	}
	if haveConst && (allInt && intProd == 0 || !allInt && realProd == 0) {
		return numConstant(env, 0, 0, allInt), nil
	}
	if len(others) == 0 {
		return numConstant(env, intProd, realProd, allInt), nil
	}
	if !haveConst {
		return env.Exprs().Times(args...)
	}
	one := allInt && intProd == 1 || !allInt && realProd == 1
	if one {
		if len(others) == 1 {
			return others[0], nil
		}
		return env.Exprs().Times(others...)
	}
	return env.Exprs().Times(append(others, numConstant(env, intProd, realProd, allInt))...)
}

func simplifyDiv(env *model.Environment, a, b *model.Expression) (*model.Expression, error) {
	if isNumConstant(a) && isNumConstant(b) && b.RealValue() != 0 {
		if a.Kind() == model.IntConstant && b.Kind() == model.IntConstant && a.IntValue()%b.IntValue() == 0 {
			return env.Exprs().Int(a.IntValue() / b.IntValue()), nil
		}
		return env.Exprs().Real(a.RealValue() / b.RealValue()), nil
	}
	if isNumConstant(b) && b.RealValue() == 1 {
		return a, nil
	}
	return env.Exprs().Div(a, b)
}

func simplifyEquals(env *model.Environment, a, b *model.Expression) (*model.Expression, error) {
	if a == b {
		return env.Exprs().TrueExpr(), nil
	}
	if isNumConstant(a) && isNumConstant(b) {
		return env.Exprs().Bool(a.RealValue() == b.RealValue()), nil
	}
	if a.Kind() == model.ObjectExp && b.Kind() == model.ObjectExp {
		// interning makes equal object references the same node, so
		// distinct nodes are distinct objects
		return env.Exprs().FalseExpr(), nil
	}
	return env.Exprs().Equals(a, b)
}

func simplifyCompare(env *model.Environment, kind model.ExprKind, a, b *model.Expression) (*model.Expression, error) {
	if isNumConstant(a) && isNumConstant(b) {
		if kind == model.LTExp {
			return env.Exprs().Bool(a.RealValue() < b.RealValue()), nil
		}
		return env.Exprs().Bool(a.RealValue() <= b.RealValue()), nil
	}
	if a == b {
		// x < x is false, x <= x is true
		return env.Exprs().Bool(kind == model.LEExp), nil
	}
	if kind == model.LTExp {
		return env.Exprs().LT(a, b)
	}
	return env.Exprs().LE(a, b)
}
