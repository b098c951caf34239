package walker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiplan4eu/unified-planning-sub004/model"
)

// mapState is a test StateReader over a literal assignment.
type mapState map[*model.Expression]*model.Expression

func (m mapState) Value(app *model.Expression) (*model.Expression, error) {
	if v, ok := m[app]; ok {
		return v, nil
	}
	return nil, &model.UndefinedFluentError{Name: app.String()}
}

func TestEvaluateConditions(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	p := model.NewFluent("p", env.Types().Bool())
	c := model.NewFluent("c", env.Types().Int())
	pe, err := exprs.FluentExp(p)
	require.NoError(t, err)
	ce, err := exprs.FluentExp(c)
	require.NoError(t, err)

	state := mapState{pe: exprs.Bool(true), ce: exprs.Int(3)}
	ev := NewEvaluator(env, state, nil)

	v, err := ev.Evaluate(pe)
	require.NoError(t, err)
	assert.True(t, v.IsTrue())

	cmp, err := exprs.LT(ce, exprs.Int(5))
	require.NoError(t, err)
	v, err = ev.Evaluate(cmp)
	require.NoError(t, err)
	assert.True(t, v.IsTrue())

	np, err := exprs.Not(pe)
	require.NoError(t, err)
	conj, err := exprs.And(pe, np)
	require.NoError(t, err)
	v, err = ev.Evaluate(conj)
	require.NoError(t, err)
	assert.True(t, v.IsFalse())
}

func TestEvaluateShortCircuits(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	p := model.NewFluent("p", env.Types().Bool())
	missing := model.NewFluent("missing", env.Types().Bool())
	pe, err := exprs.FluentExp(p)
	require.NoError(t, err)
	me, err := exprs.FluentExp(missing)
	require.NoError(t, err)

	state := mapState{pe: exprs.Bool(false)}
	ev := NewEvaluator(env, state, nil)

	// The second operand never gets read.
	conj, err := exprs.And(pe, me)
	require.NoError(t, err)
	v, err := ev.Evaluate(conj)
	require.NoError(t, err)
	assert.True(t, v.IsFalse())
}

func TestEvaluateQuantifier(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)

	prob := model.NewProblem(env, "eval")
	l1, err := prob.AddObject("l1", loc)
	require.NoError(t, err)
	l2, err := prob.AddObject("l2", loc)
	require.NoError(t, err)
	at := model.NewFluent("at", env.Types().Bool(), model.NewParameter("l", loc))

	app1, err := exprs.FluentExp(at, exprs.ObjectExp(l1))
	require.NoError(t, err)
	app2, err := exprs.FluentExp(at, exprs.ObjectExp(l2))
	require.NoError(t, err)
	state := mapState{app1: exprs.Bool(true), app2: exprs.Bool(false)}
	ev := NewEvaluator(env, state, prob.ObjectsOfType)

	v := model.NewVariable("x", loc)
	body, err := exprs.FluentExp(at, exprs.VariableExp(v))
	require.NoError(t, err)

	exists, err := exprs.Exists(body, v)
	require.NoError(t, err)
	out, err := ev.Evaluate(exists)
	require.NoError(t, err)
	assert.True(t, out.IsTrue())

	forall, err := exprs.Forall(body, v)
	require.NoError(t, err)
	out, err = ev.Evaluate(forall)
	require.NoError(t, err)
	assert.True(t, out.IsFalse())
}
