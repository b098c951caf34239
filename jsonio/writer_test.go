package jsonio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
)

func TestWriteProblemShape(t *testing.T) {
	p := readFerry(t)
	data, err := WriteProblem(p)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "ferry", doc["name"])
	assert.Len(t, doc["objects"], 2)
	assert.Len(t, doc["fluents"], 2)
	assert.Len(t, doc["actions"], 1)
	assert.Len(t, doc["init"], 1)
	assert.Len(t, doc["goals"], 1)

	metric, ok := doc["metric"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "action_costs", metric["kind"])

	action, ok := doc["actions"].([]any)[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "move", action["name"])
	assert.Len(t, action["preconditions"], 2)
	assert.Len(t, action["effects"], 3)
}

func TestWriteProblemEncodesConditionalEffects(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	p := model.NewProblem(env, "cond")
	b := model.NewFluent("b", env.Types().Bool())
	x := model.NewFluent("x", env.Types().Int())
	require.NoError(t, p.AddFluentWithDefault(b, exprs.Bool(true)))
	require.NoError(t, p.AddFluentWithDefault(x, exprs.Int(0)))
	be, err := exprs.FluentExp(b)
	require.NoError(t, err)
	xe, err := exprs.FluentExp(x)
	require.NoError(t, err)
	act := model.NewInstantaneousAction(env, "poke")
	require.NoError(t, act.AddConditionalEffect(be, xe, exprs.Int(1)))
	require.NoError(t, p.AddAction(act))

	data, err := WriteProblem(p)
	require.NoError(t, err)
	var doc struct {
		Actions []struct {
			Effects []map[string]any `yaml:"effects"`
		} `yaml:"actions"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Len(t, doc.Actions, 1)
	require.Len(t, doc.Actions[0].Effects, 1)
	eff := doc.Actions[0].Effects[0]
	assert.Equal(t, "assign", eff["kind"])
	assert.Contains(t, eff, "condition")
}

func TestWritePlan(t *testing.T) {
	p := readFerry(t)
	exprs := p.Env().Exprs()
	l1, err := p.Object("l1")
	require.NoError(t, err)
	l2, err := p.Object("l2")
	require.NoError(t, err)

	data, err := WritePlan(plan.NewSequentialPlan(
		plan.NewActionInstance("move", exprs.ObjectExp(l1), exprs.ObjectExp(l2)),
	))
	require.NoError(t, err)

	var doc struct {
		Actions []struct {
			Name       string   `yaml:"name"`
			Parameters []string `yaml:"parameters"`
		} `yaml:"actions"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Len(t, doc.Actions, 1)
	assert.Equal(t, "move", doc.Actions[0].Name)
	assert.Equal(t, []string{"l1", "l2"}, doc.Actions[0].Parameters)
}

func TestWritePlanRejectsNonObjectParameters(t *testing.T) {
	p := readFerry(t)
	exprs := p.Env().Exprs()
	_, err := WritePlan(plan.NewSequentialPlan(
		plan.NewActionInstance("move", exprs.Int(1)),
	))
	assert.Error(t, err)
}
