package jsonio

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
)

// WriteProblem renders a problem as YAML in the same shape the JSON
// reader accepts.
func WriteProblem(p *model.Problem) ([]byte, error) {
	doc := map[string]any{"name": p.Name()}

	var types []map[string]any
	seen := make(map[*model.Type]bool)
	var collect func(t *model.Type)
	collect = func(t *model.Type) {
		if t == nil || !t.IsUser() || t.Name() == "object" || seen[t] {
			return
		}
		collect(t.Parent())
		seen[t] = true
		entry := map[string]any{"name": t.Name()}
		if pt := t.Parent(); pt != nil && pt.Name() != "object" {
			entry["parent"] = pt.Name()
		}
		types = append(types, entry)
	}
	for _, o := range p.Objects() {
		collect(o.Type())
	}
	for _, f := range p.Fluents() {
		for _, par := range f.Parameters() {
			collect(par.Type())
		}
	}
	if len(types) > 0 {
		doc["types"] = types
	}

	var objects []map[string]any
	for _, o := range p.Objects() {
		objects = append(objects, map[string]any{"name": o.Name(), "type": o.Type().Name()})
	}
	if len(objects) > 0 {
		doc["objects"] = objects
	}

	var fluents []map[string]any
	for _, f := range p.Fluents() {
		entry := map[string]any{"name": f.Name(), "type": typeLabel(f.ValueType())}
		if params := encodeParameters(f.Parameters()); len(params) > 0 {
			entry["parameters"] = params
		}
		if def := p.FluentDefault(f); def != nil {
			v, err := constantValue(def)
			if err != nil {
				return nil, err
			}
			entry["default"] = v
		}
		fluents = append(fluents, entry)
	}
	if len(fluents) > 0 {
		doc["fluents"] = fluents
	}

	var actions []map[string]any
	for _, a := range p.Actions() {
		act, ok := a.(*model.InstantaneousAction)
		if !ok {
			return nil, fmt.Errorf("action %s: only instantaneous actions are written", a.Name())
		}
		entry := map[string]any{"name": act.Name()}
		if params := encodeParameters(act.Parameters()); len(params) > 0 {
			entry["parameters"] = params
		}
		var precs []any
		for _, c := range act.Preconditions() {
			precs = append(precs, encodeExpr(c))
		}
		if len(precs) > 0 {
			entry["preconditions"] = precs
		}
		var effects []any
		for _, e := range act.Effects() {
			effects = append(effects, encodeEffect(e))
		}
		if len(effects) > 0 {
			entry["effects"] = effects
		}
		actions = append(actions, entry)
	}
	if len(actions) > 0 {
		doc["actions"] = actions
	}

	var init []map[string]any
	for _, app := range p.ExplicitInitialValues() {
		value, err := p.InitialValue(app)
		if err != nil {
			return nil, err
		}
		init = append(init, map[string]any{
			"fluent": encodeExpr(app),
			"value":  encodeExpr(value),
		})
	}
	if len(init) > 0 {
		doc["init"] = init
	}

	var goals []any
	for _, g := range p.Goals() {
		goals = append(goals, encodeExpr(g))
	}
	if len(goals) > 0 {
		doc["goals"] = goals
	}

	if m := p.Metric(); m != nil {
		metric, err := encodeMetric(m)
		if err != nil {
			return nil, err
		}
		doc["metric"] = metric
	}
	return yaml.Marshal(doc)
}

// WritePlan renders a sequential plan as YAML, parameters as object
// names.
func WritePlan(sp *plan.SequentialPlan) ([]byte, error) {
	var actions []map[string]any
	for _, ai := range sp.Actions {
		entry := map[string]any{"name": ai.ActionName}
		var params []string
		for _, par := range ai.Parameters {
			if par.Kind() != model.ObjectExp {
				return nil, fmt.Errorf("instance %s: parameter %s is not an object", ai, par)
			}
			params = append(params, par.Object().Name())
		}
		if len(params) > 0 {
			entry["parameters"] = params
		}
		actions = append(actions, entry)
	}
	return yaml.Marshal(map[string]any{"actions": actions})
}

func typeLabel(t *model.Type) string {
	switch {
	case t.IsBool():
		return "bool"
	case t.IsInt():
		return "integer"
	case t.IsReal():
		return "real"
	default:
		return t.Name()
	}
}

func encodeParameters(params []*model.Parameter) []map[string]any {
	var out []map[string]any
	for _, par := range params {
		out = append(out, map[string]any{"name": par.Name(), "type": typeLabel(par.Type())})
	}
	return out
}

func constantValue(e *model.Expression) (any, error) {
	switch e.Kind() {
	case model.BoolConstant:
		return e.BoolValue(), nil
	case model.IntConstant:
		return e.IntValue(), nil
	case model.RealConstant:
		return e.RealValue(), nil
	case model.ObjectExp:
		return e.Object().Name(), nil
	}
	return nil, fmt.Errorf("%s is not a constant", e)
}

func encodeEffect(e *model.Effect) map[string]any {
	entry := map[string]any{
		"target": encodeExpr(e.Target()),
		"value":  encodeExpr(e.Value()),
	}
	switch e.EffectKind() {
	case model.IncreaseEffect:
		entry["kind"] = "increase"
	case model.DecreaseEffect:
		entry["kind"] = "decrease"
	default:
		entry["kind"] = "assign"
	}
	if e.IsConditional() {
		entry["condition"] = encodeExpr(e.Condition())
	}
	if vars := e.Forall(); len(vars) > 0 {
		entry["forall"] = encodeVariables(vars)
	}
	return entry
}

func encodeVariables(vars []*model.Variable) []map[string]any {
	out := make([]map[string]any, len(vars))
	for i, v := range vars {
		out[i] = map[string]any{"name": v.Name(), "type": typeLabel(v.Type())}
	}
	return out
}

func encodeMetric(m *model.Metric) (map[string]any, error) {
	switch m.Kind() {
	case model.MinimizePlanLength:
		return map[string]any{"kind": "plan_length"}, nil
	case model.MinimizeExpression, model.MaximizeExpression:
		kind := "minimize"
		if m.Kind() == model.MaximizeExpression {
			kind = "maximize"
		}
		return map[string]any{"kind": kind, "expr": encodeExpr(m.Expr())}, nil
	case model.MinimizeActionCosts:
		costs := make(map[string]any, len(m.Costs()))
		for name, c := range m.Costs() {
			costs[name] = encodeExpr(c)
		}
		entry := map[string]any{"kind": "action_costs", "costs": costs}
		if def := m.DefaultCost(); def != nil {
			entry["default"] = encodeExpr(def)
		}
		return entry, nil
	}
	return nil, fmt.Errorf("unknown metric kind %d", m.Kind())
}

var exprKindLabels = map[model.ExprKind]string{
	model.AndExp: "and", model.OrExp: "or", model.NotExp: "not",
	model.ImpliesExp: "implies", model.IffExp: "iff",
	model.EqualsExp: "equals", model.LTExp: "lt", model.LEExp: "le",
	model.PlusExp: "plus", model.MinusExp: "minus",
	model.TimesExp: "times", model.DivExp: "div",
}

func encodeExpr(e *model.Expression) map[string]any {
	switch e.Kind() {
	case model.BoolConstant:
		return map[string]any{"kind": "bool", "value": e.BoolValue()}
	case model.IntConstant:
		return map[string]any{"kind": "int", "value": e.IntValue()}
	case model.RealConstant:
		return map[string]any{"kind": "real", "value": e.RealValue()}
	case model.ObjectExp:
		return map[string]any{"kind": "object", "name": e.Object().Name()}
	case model.ParamExp:
		return map[string]any{"kind": "param", "name": e.Parameter().Name()}
	case model.VariableExp:
		return map[string]any{"kind": "variable", "name": e.Variable().Name()}
	case model.FluentExp:
		entry := map[string]any{"kind": "fluent", "name": e.Fluent().Name()}
		if args := encodeArgs(e.Args()); len(args) > 0 {
			entry["args"] = args
		}
		return entry
	case model.ExistsExp, model.ForallExp:
		kind := "exists"
		if e.Kind() == model.ForallExp {
			kind = "forall"
		}
		return map[string]any{
			"kind": kind,
			"vars": encodeVariables(e.Vars()),
			"body": encodeExpr(e.Arg(0)),
		}
	default:
		return map[string]any{
			"kind": exprKindLabels[e.Kind()],
			"args": encodeArgs(e.Args()),
		}
	}
}

func encodeArgs(args []*model.Expression) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = encodeExpr(a)
	}
	return out
}
