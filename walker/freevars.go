package walker

import "github.com/aiplan4eu/unified-planning-sub004/model"

// FreeVars returns the parameter and variable references occurring free in
// e, in order of first occurrence. References whose name is bound by an
// enclosing quantifier are not free.
func FreeVars(e *model.Expression) []*model.Expression {
	var out []*model.Expression
	seen := make(map[*model.Expression]bool)
	bound := make(map[string]int)
	collectFree(e, bound, seen, &out)
	return out
}

func collectFree(e *model.Expression, bound map[string]int, seen map[*model.Expression]bool, out *[]*model.Expression) {
	switch e.Kind() {
	case model.ParamExp:
		if bound[e.Parameter().Name()] == 0 && !seen[e] {
			seen[e] = true
			*out = append(*out, e)
		}
	case model.VariableExp:
		if bound[e.Variable().Name()] == 0 && !seen[e] {
			seen[e] = true
			*out = append(*out, e)
		}
	case model.ExistsExp, model.ForallExp:
		for _, v := range e.Vars() {
			bound[v.Name()]++
		}
		collectFree(e.Arg(0), bound, seen, out)
		for _, v := range e.Vars() {
			bound[v.Name()]--
		}
	default:
		for _, a := range e.Args() {
			collectFree(a, bound, seen, out)
		}
	}
}

// IsGround reports whether e contains no free parameter or variable
// references.
func IsGround(e *model.Expression) bool {
	return len(FreeVars(e)) == 0
}
