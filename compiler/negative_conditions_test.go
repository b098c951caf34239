package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
	"github.com/aiplan4eu/unified-planning-sub004/simulator"
)

// toggleProblem has an action requiring x to be false and setting it.
func toggleProblem(t *testing.T) *model.Problem {
	t.Helper()
	env := model.NewEnvironment()
	exprs := env.Exprs()

	prob := model.NewProblem(env, "toggle")
	x := model.NewFluent("x", env.Types().Bool())
	require.NoError(t, prob.AddFluentWithDefault(x, exprs.Bool(false)))
	xe, err := exprs.FluentExp(x)
	require.NoError(t, err)
	nx, err := exprs.Not(xe)
	require.NoError(t, err)

	act := model.NewInstantaneousAction(env, "set")
	require.NoError(t, act.AddPrecondition(nx))
	require.NoError(t, act.AddEffect(xe, exprs.Bool(true)))
	require.NoError(t, prob.AddAction(act))
	require.NoError(t, prob.AddGoal(xe))
	return prob
}

func TestNegativeConditionsRemoverAddsShadowFluent(t *testing.T) {
	prob := toggleProblem(t)
	res, err := NewNegativeConditionsRemover().Compile(prob)
	require.NoError(t, err)

	out := res.Problem
	assert.False(t, out.Kind().Has(model.FeatureNegativeConditions))
	require.True(t, out.HasFluentNamed("not_x"))
	shadow, err := out.Fluent("not_x")
	require.NoError(t, err)
	def := out.FluentDefault(shadow)
	require.NotNil(t, def)
	assert.True(t, def.IsTrue(), "shadow default is the negated default")

	act, err := out.Action("set")
	require.NoError(t, err)
	set := act.(*model.InstantaneousAction)
	require.Len(t, set.Preconditions(), 1)
	assert.Equal(t, model.FluentExp, set.Preconditions()[0].Kind())
	assert.Equal(t, "not_x", set.Preconditions()[0].Fluent().Name())
	require.Len(t, set.Effects(), 2, "the shadow is kept in opposite phase")
	assert.True(t, set.Effects()[1].Value().IsFalse())
}

func TestNegativeConditionsRemoverRoundTrip(t *testing.T) {
	prob := toggleProblem(t)
	res, err := NewNegativeConditionsRemover().Compile(prob)
	require.NoError(t, err)

	// The plan is valid on the compiled problem once, and the same
	// instance maps back unchanged and validates on the original.
	steps := plan.NewSequentialPlan(plan.NewActionInstance("set"))
	compiledSim, err := simulator.NewSequentialSimulator(res.Problem)
	require.NoError(t, err)
	verdict, err := compiledSim.ValidatePlan(steps)
	require.NoError(t, err)
	assert.True(t, verdict.Valid, verdict.Reason)

	mapped, err := res.MapBack(steps)
	require.NoError(t, err)
	sim, err := simulator.NewSequentialSimulator(prob)
	require.NoError(t, err)
	verdict, err = sim.ValidatePlan(mapped.(*plan.SequentialPlan))
	require.NoError(t, err)
	assert.True(t, verdict.Valid, verdict.Reason)
}

func TestNegativeConditionsRemoverBlocksReapplication(t *testing.T) {
	prob := toggleProblem(t)
	res, err := NewNegativeConditionsRemover().Compile(prob)
	require.NoError(t, err)

	twice := plan.NewSequentialPlan(
		plan.NewActionInstance("set"),
		plan.NewActionInstance("set"),
	)
	sim, err := simulator.NewSequentialSimulator(res.Problem)
	require.NoError(t, err)
	verdict, err := sim.ValidatePlan(twice)
	require.NoError(t, err)
	assert.False(t, verdict.Valid, "after the first application the shadow is false")
}

func TestNegativeConditionsRemoverNoNegationsIsIdentity(t *testing.T) {
	prob := moveProblem(t)
	res, err := NewNegativeConditionsRemover().Compile(prob)
	require.NoError(t, err)
	assert.Len(t, res.Problem.Fluents(), len(prob.Fluents()))

	p := plan.NewSequentialPlan(plan.NewActionInstance("noop"))
	mapped, err := res.MapBack(p)
	require.NoError(t, err)
	assert.Same(t, plan.Plan(p), mapped)
}

func TestNegativeConditionsRemoverRejectsNegatedEquality(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)

	prob := model.NewProblem(env, "neq")
	l1, err := prob.AddObject("l1", loc)
	require.NoError(t, err)
	pos := model.NewFluent("pos", loc)
	require.NoError(t, prob.AddFluentWithDefault(pos, exprs.ObjectExp(l1)))
	pe, err := exprs.FluentExp(pos)
	require.NoError(t, err)
	eq, err := exprs.Equals(pe, exprs.ObjectExp(l1))
	require.NoError(t, err)
	neq, err := exprs.Not(eq)
	require.NoError(t, err)
	require.NoError(t, prob.AddGoal(neq))

	_, err = NewNegativeConditionsRemover().Compile(prob)
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*model.UnsupportedFeatureError))
}
