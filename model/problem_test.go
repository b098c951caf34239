package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLogisticsProblem(t *testing.T) (*Problem, *Environment) {
	t.Helper()
	env := NewEnvironment()
	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)

	p := NewProblem(env, "logistics")
	at := NewFluent("at", env.Types().Bool(), NewParameter("l", loc))
	require.NoError(t, p.AddFluentWithDefault(at, env.Exprs().Bool(false)))

	l1, err := p.AddObject("l1", loc)
	require.NoError(t, err)
	_, err = p.AddObject("l2", loc)
	require.NoError(t, err)

	from := NewParameter("from", loc)
	to := NewParameter("to", loc)
	move := NewInstantaneousAction(env, "move", from, to)
	pre, err := env.Exprs().FluentExp(at, env.Exprs().ParameterExp(from))
	require.NoError(t, err)
	require.NoError(t, move.AddPrecondition(pre))
	target, err := env.Exprs().FluentExp(at, env.Exprs().ParameterExp(to))
	require.NoError(t, err)
	require.NoError(t, move.AddEffect(target, env.Exprs().Bool(true)))
	require.NoError(t, move.AddEffect(pre, env.Exprs().Bool(false)))
	require.NoError(t, p.AddAction(move))

	init, err := env.Exprs().FluentExp(at, env.Exprs().ObjectExp(l1))
	require.NoError(t, err)
	require.NoError(t, p.SetInitialValue(init, env.Exprs().Bool(true)))

	goalAt, err := p.Object("l2")
	require.NoError(t, err)
	goal, err := env.Exprs().FluentExp(at, env.Exprs().ObjectExp(goalAt))
	require.NoError(t, err)
	require.NoError(t, p.AddGoal(goal))
	return p, env
}

func TestProblemKind(t *testing.T) {
	p, env := buildLogisticsProblem(t)
	kind := p.Kind()
	assert.True(t, kind.Has(FeatureActionParameters))
	assert.False(t, kind.Has(FeatureNegativeConditions))
	assert.False(t, kind.Has(FeatureDurativeActions))

	// Adding a negated goal only grows the kind.
	at, err := p.Fluent("at")
	require.NoError(t, err)
	l1, err := p.Object("l1")
	require.NoError(t, err)
	app, err := env.Exprs().FluentExp(at, env.Exprs().ObjectExp(l1))
	require.NoError(t, err)
	neg, err := env.Exprs().Not(app)
	require.NoError(t, err)
	require.NoError(t, p.AddGoal(neg))

	grown := p.Kind()
	assert.True(t, grown.Has(FeatureNegativeConditions))
	assert.True(t, kind.IsSubsetOf(grown), "kind is monotone in the problem contents")
}

func TestConditionKindTracksPolarity(t *testing.T) {
	env := NewEnvironment()
	exprs := env.Exprs()
	on := NewFluent("on", env.Types().Bool())
	ready := NewFluent("ready", env.Types().Bool())
	onE, err := exprs.FluentExp(on)
	require.NoError(t, err)
	readyE, err := exprs.FluentExp(ready)
	require.NoError(t, err)

	both, err := exprs.And(onE, readyE)
	require.NoError(t, err)
	notBoth, err := exprs.Not(both)
	require.NoError(t, err)
	either, err := exprs.Or(onE, readyE)
	require.NoError(t, err)
	notEither, err := exprs.Not(either)
	require.NoError(t, err)
	notOn, err := exprs.Not(onE)
	require.NoError(t, err)
	doubleNeg, err := exprs.Not(notOn)
	require.NoError(t, err)
	implied, err := exprs.Implies(onE, readyE)
	require.NoError(t, err)

	cases := []struct {
		name string
		expr *Expression
		want Kind
	}{
		{"negated conjunction is a hidden disjunction", notBoth,
			KindOf(FeatureNegativeConditions, FeatureDisjunctiveConditions)},
		{"negated disjunction stays conjunctive", notEither,
			KindOf(FeatureNegativeConditions)},
		{"double negation cancels", doubleNeg, EmptyKind},
		{"implication hides a disjunction and a negated antecedent", implied,
			KindOf(FeatureDisjunctiveConditions, FeatureNegativeConditions)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, conditionKind(tc.expr))
		})
	}
}

func TestCombinationsOrder(t *testing.T) {
	env := NewEnvironment()
	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)
	a := &Object{name: "a", typ: loc}
	b := &Object{name: "b", typ: loc}
	c := &Object{name: "c", typ: loc}

	combos := Combinations([][]*Object{{a, b}, {c}})
	require.Len(t, combos, 2)
	assert.Equal(t, []*Object{a, c}, combos[0])
	assert.Equal(t, []*Object{b, c}, combos[1])

	assert.Nil(t, Combinations([][]*Object{{a}, {}}), "empty domain yields no combination")
	assert.Len(t, Combinations(nil), 1, "zero domains yield the empty combination")
}

func TestInitialValueFallsBackToDefault(t *testing.T) {
	p, env := buildLogisticsProblem(t)
	at, err := p.Fluent("at")
	require.NoError(t, err)
	l2, err := p.Object("l2")
	require.NoError(t, err)

	app, err := env.Exprs().FluentExp(at, env.Exprs().ObjectExp(l2))
	require.NoError(t, err)
	v, err := p.InitialValue(app)
	require.NoError(t, err)
	assert.True(t, v.IsFalse(), "unset state variable takes the fluent default")
}

func TestValidateReportsEveryMissingValue(t *testing.T) {
	env := NewEnvironment()
	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)

	p := NewProblem(env, "incomplete")
	full := NewFluent("full", env.Types().Bool(), NewParameter("l", loc))
	require.NoError(t, p.AddFluent(full))
	_, err = p.AddObject("l1", loc)
	require.NoError(t, err)
	_, err = p.AddObject("l2", loc)
	require.NoError(t, err)

	err = p.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "full(l1)"))
	assert.True(t, strings.Contains(err.Error(), "full(l2)"), "all violations are reported together")
}

func TestAddActionRejectsUndeclaredNamesakes(t *testing.T) {
	p, env := buildLogisticsProblem(t)

	// A structurally different fluent under the declared name must not
	// slip through on name equality.
	impostor := NewFluent("at", env.Types().Bool())
	app, err := env.Exprs().FluentExp(impostor)
	require.NoError(t, err)
	rogue := NewInstantaneousAction(env, "rogue")
	require.NoError(t, rogue.AddPrecondition(app))
	err = p.AddAction(rogue)
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*UndefinedFluentError))
}

func TestDuplicateDeclarations(t *testing.T) {
	p, env := buildLogisticsProblem(t)
	at, err := p.Fluent("at")
	require.NoError(t, err)

	assert.NoError(t, p.AddFluent(at), "re-adding the identical fluent is a no-op")

	clash := NewFluent("at", env.Types().Real())
	err = p.AddFluent(clash)
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*DuplicateNameError))
}

func TestFreshName(t *testing.T) {
	p, _ := buildLogisticsProblem(t)
	assert.Equal(t, "at_0", p.FreshName("at"), "declared names are avoided")
	assert.Equal(t, "carry", p.FreshName("carry"))
}

func TestCloneIsolation(t *testing.T) {
	p, env := buildLogisticsProblem(t)
	c := p.CloneWithoutActions()
	assert.Empty(t, c.Actions())
	assert.Len(t, p.Actions(), 1, "clone does not touch the original")

	counter := NewFluent("counter", env.Types().Int())
	require.NoError(t, c.AddFluentWithDefault(counter, env.Exprs().Int(0)))
	assert.False(t, p.HasFluentNamed("counter"))
}

func TestObjectsOfTypeFollowsHierarchy(t *testing.T) {
	env := NewEnvironment()
	vehicle, err := env.Types().UserType("vehicle", nil)
	require.NoError(t, err)
	truck, err := env.Types().UserType("truck", vehicle)
	require.NoError(t, err)

	p := NewProblem(env, "fleet")
	_, err = p.AddObject("t1", truck)
	require.NoError(t, err)
	_, err = p.AddObject("v1", vehicle)
	require.NoError(t, err)

	vehicles := p.ObjectsOfType(vehicle)
	require.Len(t, vehicles, 2, "trucks are vehicles")
	assert.Equal(t, "t1", vehicles[0].Name(), "declaration order is preserved")
	assert.Len(t, p.ObjectsOfType(truck), 1)
}
