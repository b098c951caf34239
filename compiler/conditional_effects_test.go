package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
)

// branchProblem has a single action assigning x to 1 when p holds and to
// 2 when it does not.
func branchProblem(t *testing.T) *model.Problem {
	t.Helper()
	env := model.NewEnvironment()
	exprs := env.Exprs()

	prob := model.NewProblem(env, "branch")
	p := model.NewFluent("p", env.Types().Bool())
	x := model.NewFluent("x", env.Types().Int())
	require.NoError(t, prob.AddFluentWithDefault(p, exprs.Bool(true)))
	require.NoError(t, prob.AddFluentWithDefault(x, exprs.Int(0)))

	pe, err := exprs.FluentExp(p)
	require.NoError(t, err)
	np, err := exprs.Not(pe)
	require.NoError(t, err)
	xe, err := exprs.FluentExp(x)
	require.NoError(t, err)

	act := model.NewInstantaneousAction(env, "set")
	require.NoError(t, act.AddConditionalEffect(pe, xe, exprs.Int(1)))
	require.NoError(t, act.AddConditionalEffect(np, xe, exprs.Int(2)))
	require.NoError(t, prob.AddAction(act))

	one, err := exprs.Equals(xe, exprs.Int(1))
	require.NoError(t, err)
	require.NoError(t, prob.AddGoal(one))
	return prob
}

func TestConditionalEffectsRemoverBranchingScenario(t *testing.T) {
	prob := branchProblem(t)
	res, err := NewConditionalEffectsRemover().Compile(prob)
	require.NoError(t, err)

	// Two of the four truth assignments are contradictory (p and not p
	// both true, both false) and get pruned.
	actions := res.Problem.Actions()
	require.Len(t, actions, 2)
	for _, a := range actions {
		act := a.(*model.InstantaneousAction)
		require.Len(t, act.Effects(), 1)
		assert.False(t, act.Effects()[0].IsConditional())
		require.Len(t, act.Preconditions(), 1)
	}
	assert.False(t, res.Problem.Kind().Has(model.FeatureConditionalEffects))
	assert.True(t, res.Problem.Kind().Has(model.FeatureNegativeConditions),
		"asserted assignments introduce negated literals")
}

func TestConditionalEffectsRemoverMapsVariantsBack(t *testing.T) {
	prob := branchProblem(t)
	res, err := NewConditionalEffectsRemover().Compile(prob)
	require.NoError(t, err)

	variant := res.Problem.Actions()[0].Name()
	mapped, err := res.MapBack(plan.NewSequentialPlan(plan.NewActionInstance(variant)))
	require.NoError(t, err)
	seq := mapped.(*plan.SequentialPlan)
	require.Len(t, seq.Actions, 1)
	assert.Equal(t, "set", seq.Actions[0].ActionName)
}

func TestConditionalEffectsRemoverKeepsPlainActions(t *testing.T) {
	prob := moveProblem(t)
	res, err := NewConditionalEffectsRemover().Compile(prob)
	require.NoError(t, err)
	require.Len(t, res.Problem.Actions(), 1)
	assert.Equal(t, "move", res.Problem.Actions()[0].Name())

	mapped, err := res.MapBack(plan.NewSequentialPlan(plan.NewActionInstance("move")))
	require.NoError(t, err)
	assert.Equal(t, "move", mapped.(*plan.SequentialPlan).Actions[0].ActionName)
}

func TestConditionalEffectsRemoverCarriesCosts(t *testing.T) {
	prob := branchProblem(t)
	exprs := prob.Env().Exprs()
	metric, err := model.NewActionCostsMetric(
		map[string]*model.Expression{"set": exprs.Int(3)}, nil)
	require.NoError(t, err)
	prob.SetMetric(metric)

	res, err := NewConditionalEffectsRemover().Compile(prob)
	require.NoError(t, err)
	for _, a := range res.Problem.Actions() {
		cost := res.Problem.Metric().ActionCost(a.Name())
		require.NotNil(t, cost)
		assert.Equal(t, int64(3), cost.IntValue())
	}
}
