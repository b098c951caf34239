package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
)

// counterProblem has a numeric fluent and actions that bump it in
// different ways, for exercising the batch effect semantics.
func counterProblem(t *testing.T) (*model.Problem, *model.Expression) {
	t.Helper()
	env := model.NewEnvironment()
	exprs := env.Exprs()

	prob := model.NewProblem(env, "counter")
	c := model.NewFluent("c", env.Types().Int())
	require.NoError(t, prob.AddFluentWithDefault(c, exprs.Int(0)))
	ce, err := exprs.FluentExp(c)
	require.NoError(t, err)

	bump := model.NewInstantaneousAction(env, "bump")
	require.NoError(t, bump.AddIncreaseEffect(ce, exprs.Int(2)))
	require.NoError(t, bump.AddIncreaseEffect(ce, exprs.Int(3)))
	require.NoError(t, prob.AddAction(bump))

	clash := model.NewInstantaneousAction(env, "clash")
	require.NoError(t, clash.AddEffect(ce, exprs.Int(7)))
	require.NoError(t, clash.AddEffect(ce, exprs.Int(8)))
	require.NoError(t, prob.AddAction(clash))

	mixed := model.NewInstantaneousAction(env, "mixed")
	require.NoError(t, mixed.AddEffect(ce, exprs.Int(7)))
	require.NoError(t, mixed.AddIncreaseEffect(ce, exprs.Int(1)))
	require.NoError(t, prob.AddAction(mixed))

	agree := model.NewInstantaneousAction(env, "agree")
	require.NoError(t, agree.AddEffect(ce, exprs.Int(5)))
	require.NoError(t, agree.AddEffect(ce, exprs.Int(5)))
	require.NoError(t, prob.AddAction(agree))

	drop := model.NewInstantaneousAction(env, "drop")
	require.NoError(t, drop.AddDecreaseEffect(ce, exprs.Int(1)))
	require.NoError(t, prob.AddAction(drop))

	goal, err := exprs.Equals(ce, exprs.Int(5))
	require.NoError(t, err)
	require.NoError(t, prob.AddGoal(goal))
	return prob, ce
}

func mustAction(t *testing.T, p *model.Problem, name string) *model.InstantaneousAction {
	t.Helper()
	a, err := p.Action(name)
	require.NoError(t, err)
	return a.(*model.InstantaneousAction)
}

func TestApplyAccumulatesIncreases(t *testing.T) {
	prob, ce := counterProblem(t)
	sim, err := NewSequentialSimulator(prob)
	require.NoError(t, err)

	next, err := sim.Apply(sim.InitialState(), mustAction(t, prob, "bump"))
	require.NoError(t, err)
	v, err := next.Value(ce)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.IntValue())

	// The pre-state is untouched.
	v, err = sim.InitialState().Value(ce)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.IntValue())
}

func TestApplyRejectsConflictingAssignments(t *testing.T) {
	prob, _ := counterProblem(t)
	sim, err := NewSequentialSimulator(prob)
	require.NoError(t, err)

	_, err = sim.Apply(sim.InitialState(), mustAction(t, prob, "clash"))
	require.Error(t, err)
	var conflict *ConflictingEffectError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "clash", conflict.Action)
}

func TestApplyRejectsAssignmentDeltaMix(t *testing.T) {
	prob, _ := counterProblem(t)
	sim, err := NewSequentialSimulator(prob)
	require.NoError(t, err)

	_, err = sim.Apply(sim.InitialState(), mustAction(t, prob, "mixed"))
	assert.ErrorAs(t, err, new(*ConflictingEffectError))
}

func TestApplyAllowsAgreeingAssignments(t *testing.T) {
	prob, ce := counterProblem(t)
	sim, err := NewSequentialSimulator(prob)
	require.NoError(t, err)

	next, err := sim.Apply(sim.InitialState(), mustAction(t, prob, "agree"))
	require.NoError(t, err)
	v, err := next.Value(ce)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.IntValue())
}

func TestApplyDecrease(t *testing.T) {
	prob, ce := counterProblem(t)
	sim, err := NewSequentialSimulator(prob)
	require.NoError(t, err)

	next, err := sim.Apply(sim.InitialState(), mustAction(t, prob, "drop"))
	require.NoError(t, err)
	v, err := next.Value(ce)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v.IntValue())
}

func TestGoalReached(t *testing.T) {
	prob, _ := counterProblem(t)
	sim, err := NewSequentialSimulator(prob)
	require.NoError(t, err)

	st := sim.InitialState()
	reached, err := sim.IsGoalReached(st)
	require.NoError(t, err)
	assert.False(t, reached)

	st, err = sim.Apply(st, mustAction(t, prob, "agree"))
	require.NoError(t, err)
	reached, err = sim.IsGoalReached(st)
	require.NoError(t, err)
	assert.True(t, reached)
}

func TestValidatePlanWithLiftedActions(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)

	prob := model.NewProblem(env, "travel")
	at := model.NewFluent("at", env.Types().Bool(), model.NewParameter("l", loc))
	require.NoError(t, prob.AddFluentWithDefault(at, exprs.Bool(false)))
	l1, err := prob.AddObject("l1", loc)
	require.NoError(t, err)
	l2, err := prob.AddObject("l2", loc)
	require.NoError(t, err)

	from := model.NewParameter("from", loc)
	to := model.NewParameter("to", loc)
	move := model.NewInstantaneousAction(env, "move", from, to)
	src, err := exprs.FluentExp(at, exprs.ParameterExp(from))
	require.NoError(t, err)
	dst, err := exprs.FluentExp(at, exprs.ParameterExp(to))
	require.NoError(t, err)
	require.NoError(t, move.AddPrecondition(src))
	require.NoError(t, move.AddEffect(src, exprs.Bool(false)))
	require.NoError(t, move.AddEffect(dst, exprs.Bool(true)))
	require.NoError(t, prob.AddAction(move))

	atL1, err := exprs.FluentExp(at, exprs.ObjectExp(l1))
	require.NoError(t, err)
	require.NoError(t, prob.SetInitialValue(atL1, exprs.Bool(true)))
	atL2, err := exprs.FluentExp(at, exprs.ObjectExp(l2))
	require.NoError(t, err)
	require.NoError(t, prob.AddGoal(atL2))

	sim, err := NewSequentialSimulator(prob)
	require.NoError(t, err)

	good := plan.NewSequentialPlan(
		plan.NewActionInstance("move", exprs.ObjectExp(l1), exprs.ObjectExp(l2)),
	)
	verdict, err := sim.ValidatePlan(good)
	require.NoError(t, err)
	assert.True(t, verdict.Valid, verdict.Reason)

	// Moving out of l2 first is not applicable.
	bad := plan.NewSequentialPlan(
		plan.NewActionInstance("move", exprs.ObjectExp(l2), exprs.ObjectExp(l1)),
	)
	verdict, err = sim.ValidatePlan(bad)
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Contains(t, verdict.Reason, "step 0")

	// Ending off-goal is invalid, not an error.
	roundTrip := plan.NewSequentialPlan(
		plan.NewActionInstance("move", exprs.ObjectExp(l1), exprs.ObjectExp(l2)),
		plan.NewActionInstance("move", exprs.ObjectExp(l2), exprs.ObjectExp(l1)),
	)
	verdict, err = sim.ValidatePlan(roundTrip)
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Contains(t, verdict.Reason, "goal")

	// Unknown actions are model errors.
	_, err = sim.ValidatePlan(plan.NewSequentialPlan(plan.NewActionInstance("fly")))
	assert.Error(t, err)
}

func TestConditionalEffectEvaluatedAgainstPreState(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()

	prob := model.NewProblem(env, "swap")
	p := model.NewFluent("p", env.Types().Bool())
	q := model.NewFluent("q", env.Types().Bool())
	require.NoError(t, prob.AddFluentWithDefault(p, exprs.Bool(true)))
	require.NoError(t, prob.AddFluentWithDefault(q, exprs.Bool(false)))
	pe, err := exprs.FluentExp(p)
	require.NoError(t, err)
	qe, err := exprs.FluentExp(q)
	require.NoError(t, err)

	// Both conditions read the pre-state, so the two assignments swap.
	swap := model.NewInstantaneousAction(env, "swap")
	require.NoError(t, swap.AddConditionalEffect(pe, qe, exprs.Bool(true)))
	require.NoError(t, swap.AddConditionalEffect(pe, pe, exprs.Bool(false)))
	require.NoError(t, prob.AddAction(swap))

	sim, err := NewSequentialSimulator(prob)
	require.NoError(t, err)
	next, err := sim.Apply(sim.InitialState(), mustAction(t, prob, "swap"))
	require.NoError(t, err)

	v, err := next.Value(pe)
	require.NoError(t, err)
	assert.True(t, v.IsFalse())
	v, err = next.Value(qe)
	require.NoError(t, err)
	assert.True(t, v.IsTrue())
}
