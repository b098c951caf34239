// Package jsonio reads problems and plans from a JSON interchange form
// and writes them back out as YAML.
package jsonio

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
)

// ReadProblem builds a model.Problem from its JSON interchange form.
func ReadProblem(env *model.Environment, data []byte) (*model.Problem, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON document")
	}
	doc := gjson.ParseBytes(data)
	p := model.NewProblem(env, doc.Get("name").String())
	d := &decoder{env: env, problem: p}

	var err error
	doc.Get("types").ForEach(func(_, t gjson.Result) bool {
		err = d.readType(t)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	doc.Get("objects").ForEach(func(_, o gjson.Result) bool {
		err = d.readObject(o)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	doc.Get("fluents").ForEach(func(_, f gjson.Result) bool {
		err = d.readFluent(f)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	doc.Get("actions").ForEach(func(_, a gjson.Result) bool {
		err = d.readAction(a)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	doc.Get("init").ForEach(func(_, entry gjson.Result) bool {
		err = d.readInit(entry)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	doc.Get("goals").ForEach(func(_, g gjson.Result) bool {
		var goal *model.Expression
		goal, err = d.expr(nil, g)
		if err == nil {
			err = p.AddGoal(goal)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	if metric := doc.Get("metric"); metric.Exists() {
		if err := d.readMetric(metric); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ReadPlan reads a sequential plan, with parameters given as object
// names, against the objects of the problem.
func ReadPlan(p *model.Problem, data []byte) (*plan.SequentialPlan, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON document")
	}
	var err error
	var actions []*plan.ActionInstance
	gjson.ParseBytes(data).Get("actions").ForEach(func(_, a gjson.Result) bool {
		var params []*model.Expression
		a.Get("parameters").ForEach(func(_, name gjson.Result) bool {
			var o *model.Object
			o, err = p.Object(name.String())
			if err != nil {
				return false
			}
			params = append(params, p.Env().Exprs().ObjectExp(o))
			return true
		})
		if err != nil {
			return false
		}
		actions = append(actions, plan.NewActionInstance(a.Get("name").String(), params...))
		return true
	})
	if err != nil {
		return nil, err
	}
	return plan.NewSequentialPlan(actions...), nil
}

type decoder struct {
	env     *model.Environment
	problem *model.Problem
}

func (d *decoder) typeByName(name string) (*model.Type, error) {
	switch name {
	case "bool":
		return d.env.Types().Bool(), nil
	case "integer":
		return d.env.Types().Int(), nil
	case "real":
		return d.env.Types().Real(), nil
	case "object", "":
		return d.env.Types().Object(), nil
	}
	return d.env.Types().Lookup(name)
}

func (d *decoder) readType(t gjson.Result) error {
	var parent *model.Type
	if pn := t.Get("parent").String(); pn != "" && pn != "object" {
		var err error
		parent, err = d.env.Types().Lookup(pn)
		if err != nil {
			return err
		}
	}
	_, err := d.env.Types().UserType(t.Get("name").String(), parent)
	return err
}

func (d *decoder) readObject(o gjson.Result) error {
	typ, err := d.typeByName(o.Get("type").String())
	if err != nil {
		return err
	}
	_, err = d.problem.AddObject(o.Get("name").String(), typ)
	return err
}

func (d *decoder) readParameters(r gjson.Result) ([]*model.Parameter, error) {
	var params []*model.Parameter
	var err error
	r.ForEach(func(_, par gjson.Result) bool {
		var typ *model.Type
		typ, err = d.typeByName(par.Get("type").String())
		if err != nil {
			return false
		}
		params = append(params, model.NewParameter(par.Get("name").String(), typ))
		return true
	})
	return params, err
}

func (d *decoder) readFluent(f gjson.Result) error {
	typ, err := d.typeByName(f.Get("type").String())
	if err != nil {
		return err
	}
	params, err := d.readParameters(f.Get("parameters"))
	if err != nil {
		return err
	}
	fluent := model.NewFluent(f.Get("name").String(), typ, params...)
	if def := f.Get("default"); def.Exists() {
		value, err := d.constant(typ, def)
		if err != nil {
			return err
		}
		return d.problem.AddFluentWithDefault(fluent, value)
	}
	return d.problem.AddFluent(fluent)
}

func (d *decoder) constant(typ *model.Type, r gjson.Result) (*model.Expression, error) {
	exprs := d.env.Exprs()
	switch {
	case typ.IsBool():
		return exprs.Bool(r.Bool()), nil
	case typ.IsInt():
		return exprs.Int(r.Int()), nil
	case typ.IsReal():
		return exprs.Real(r.Float()), nil
	case typ.IsUser():
		o, err := d.problem.Object(r.String())
		if err != nil {
			return nil, err
		}
		return exprs.ObjectExp(o), nil
	}
	return nil, fmt.Errorf("cannot decode constant of type %s", typ)
}

func (d *decoder) readAction(a gjson.Result) error {
	params, err := d.readParameters(a.Get("parameters"))
	if err != nil {
		return err
	}
	act := model.NewInstantaneousAction(d.env, a.Get("name").String(), params...)
	sc := make(map[string]*model.Expression, len(params))
	for _, par := range params {
		sc[par.Name()] = d.env.Exprs().ParameterExp(par)
	}
	a.Get("preconditions").ForEach(func(_, c gjson.Result) bool {
		var cond *model.Expression
		cond, err = d.expr(sc, c)
		if err == nil {
			err = act.AddPrecondition(cond)
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	a.Get("effects").ForEach(func(_, e gjson.Result) bool {
		err = d.readEffect(sc, act, e)
		return err == nil
	})
	if err != nil {
		return err
	}
	return d.problem.AddAction(act)
}

func (d *decoder) readEffect(sc map[string]*model.Expression, act *model.InstantaneousAction, e gjson.Result) error {
	kind := model.AssignEffect
	switch e.Get("kind").String() {
	case "increase":
		kind = model.IncreaseEffect
	case "decrease":
		kind = model.DecreaseEffect
	case "assign", "":
	default:
		return fmt.Errorf("unknown effect kind %q", e.Get("kind").String())
	}
	scope := sc
	var vars []*model.Variable
	if forall := e.Get("forall"); forall.Exists() {
		scope = make(map[string]*model.Expression, len(sc))
		for k, v := range sc {
			scope[k] = v
		}
		var err error
		forall.ForEach(func(_, vr gjson.Result) bool {
			var typ *model.Type
			typ, err = d.typeByName(vr.Get("type").String())
			if err != nil {
				return false
			}
			v := model.NewVariable(vr.Get("name").String(), typ)
			vars = append(vars, v)
			scope[v.Name()] = d.env.Exprs().VariableExp(v)
			return true
		})
		if err != nil {
			return err
		}
	}
	target, err := d.expr(scope, e.Get("target"))
	if err != nil {
		return err
	}
	value, err := d.expr(scope, e.Get("value"))
	if err != nil {
		return err
	}
	var cond *model.Expression
	if c := e.Get("condition"); c.Exists() {
		cond, err = d.expr(scope, c)
		if err != nil {
			return err
		}
	}
	eff, err := model.NewEffect(d.env, kind, target, value, cond, vars...)
	if err != nil {
		return err
	}
	act.AppendEffect(eff)
	return nil
}

func (d *decoder) readInit(entry gjson.Result) error {
	app, err := d.expr(nil, entry.Get("fluent"))
	if err != nil {
		return err
	}
	value, err := d.expr(nil, entry.Get("value"))
	if err != nil {
		return err
	}
	return d.problem.SetInitialValue(app, value)
}

func (d *decoder) readMetric(m gjson.Result) error {
	switch kind := m.Get("kind").String(); kind {
	case "plan_length":
		d.problem.SetMetric(model.NewPlanLengthMetric())
		return nil
	case "minimize", "maximize":
		expr, err := d.expr(nil, m.Get("expr"))
		if err != nil {
			return err
		}
		mk := model.MinimizeExpression
		if kind == "maximize" {
			mk = model.MaximizeExpression
		}
		metric, err := model.NewExpressionMetric(mk, expr)
		if err != nil {
			return err
		}
		d.problem.SetMetric(metric)
		return nil
	case "action_costs":
		costs := make(map[string]*model.Expression)
		var err error
		m.Get("costs").ForEach(func(name, c gjson.Result) bool {
			var e *model.Expression
			e, err = d.expr(nil, c)
			if err != nil {
				return false
			}
			costs[name.String()] = e
			return true
		})
		if err != nil {
			return err
		}
		var def *model.Expression
		if dc := m.Get("default"); dc.Exists() {
			def, err = d.expr(nil, dc)
			if err != nil {
				return err
			}
		}
		metric, err := model.NewActionCostsMetric(costs, def)
		if err != nil {
			return err
		}
		d.problem.SetMetric(metric)
		return nil
	default:
		return fmt.Errorf("unknown metric kind %q", kind)
	}
}

// expr decodes one expression node of the interchange form.
func (d *decoder) expr(sc map[string]*model.Expression, r gjson.Result) (*model.Expression, error) {
	exprs := d.env.Exprs()
	kind := r.Get("kind").String()
	argsOf := func() ([]*model.Expression, error) {
		var args []*model.Expression
		var err error
		r.Get("args").ForEach(func(_, a gjson.Result) bool {
			var e *model.Expression
			e, err = d.expr(sc, a)
			if err != nil {
				return false
			}
			args = append(args, e)
			return true
		})
		return args, err
	}
	binary := func(build func(a, b *model.Expression) (*model.Expression, error)) (*model.Expression, error) {
		args, err := argsOf()
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("%s takes two operands, got %d", kind, len(args))
		}
		return build(args[0], args[1])
	}
	switch kind {
	case "bool":
		return exprs.Bool(r.Get("value").Bool()), nil
	case "int":
		return exprs.Int(r.Get("value").Int()), nil
	case "real":
		return exprs.Real(r.Get("value").Float()), nil
	case "object":
		o, err := d.problem.Object(r.Get("name").String())
		if err != nil {
			return nil, err
		}
		return exprs.ObjectExp(o), nil
	case "param", "variable":
		name := r.Get("name").String()
		ref, ok := sc[name]
		if !ok {
			return nil, fmt.Errorf("unbound reference %q", name)
		}
		return ref, nil
	case "fluent":
		f, err := d.problem.Fluent(r.Get("name").String())
		if err != nil {
			return nil, err
		}
		args, err := argsOf()
		if err != nil {
			return nil, err
		}
		return exprs.FluentExp(f, args...)
	case "and":
		args, err := argsOf()
		if err != nil {
			return nil, err
		}
		return exprs.And(args...)
	case "or":
		args, err := argsOf()
		if err != nil {
			return nil, err
		}
		return exprs.Or(args...)
	case "not":
		args, err := argsOf()
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("not takes one operand, got %d", len(args))
		}
		return exprs.Not(args[0])
	case "implies":
		return binary(exprs.Implies)
	case "iff":
		return binary(exprs.Iff)
	case "equals":
		return binary(exprs.Equals)
	case "lt":
		return binary(exprs.LT)
	case "le":
		return binary(exprs.LE)
	case "minus":
		return binary(exprs.Minus)
	case "div":
		return binary(exprs.Div)
	case "plus":
		args, err := argsOf()
		if err != nil {
			return nil, err
		}
		return exprs.Plus(args...)
	case "times":
		args, err := argsOf()
		if err != nil {
			return nil, err
		}
		return exprs.Times(args...)
	case "exists", "forall":
		scope := make(map[string]*model.Expression, len(sc))
		for k, v := range sc {
			scope[k] = v
		}
		var vars []*model.Variable
		var err error
		r.Get("vars").ForEach(func(_, vr gjson.Result) bool {
			var typ *model.Type
			typ, err = d.typeByName(vr.Get("type").String())
			if err != nil {
				return false
			}
			v := model.NewVariable(vr.Get("name").String(), typ)
			vars = append(vars, v)
			scope[v.Name()] = exprs.VariableExp(v)
			return true
		})
		if err != nil {
			return nil, err
		}
		body, err := d.expr(scope, r.Get("body"))
		if err != nil {
			return nil, err
		}
		if kind == "exists" {
			return exprs.Exists(body, vars...)
		}
		return exprs.Forall(body, vars...)
	default:
		return nil, fmt.Errorf("unknown expression kind %q", kind)
	}
}
