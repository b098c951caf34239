package pddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
	"github.com/aiplan4eu/unified-planning-sub004/simulator"
)

const deliveryDomain = `
(define (domain delivery)
  (:requirements :strips :typing :numeric-fluents)
  (:types location - object)
  (:predicates (at ?l - location) (connected ?a - location ?b - location))
  (:functions (fuel))
  (:action move
    :parameters (?from - location ?to - location)
    :precondition (and (at ?from) (connected ?from ?to))
    :effect (and (not (at ?from)) (at ?to) (decrease (fuel) 1))))
`

const deliveryProblem = `
(define (problem delivery-1)
  (:domain delivery)
  (:objects l1 l2 - location)
  (:init (at l1) (connected l1 l2) (= (fuel) 10))
  (:goal (at l2))
  (:metric minimize (fuel)))
`

func readDelivery(t *testing.T) *model.Problem {
	t.Helper()
	r := NewReader(model.NewEnvironment())
	p, err := r.Read("domain.pddl", deliveryDomain, "problem.pddl", deliveryProblem)
	require.NoError(t, err)
	return p
}

func TestReadDeclarations(t *testing.T) {
	p := readDelivery(t)
	assert.Equal(t, "delivery-1", p.Name())
	assert.True(t, p.Env().Types().HasUserType("location"))
	require.Len(t, p.Objects(), 2)

	require.True(t, p.HasFluentNamed("at"))
	require.True(t, p.HasFluentNamed("connected"))
	at, err := p.Fluent("at")
	require.NoError(t, err)
	assert.True(t, at.ValueType().IsBool())
	assert.Equal(t, 1, at.Arity())

	fuel, err := p.Fluent("fuel")
	require.NoError(t, err)
	assert.True(t, fuel.ValueType().IsReal())
}

func TestReadAction(t *testing.T) {
	p := readDelivery(t)
	a, err := p.Action("move")
	require.NoError(t, err)
	move := a.(*model.InstantaneousAction)
	require.Len(t, move.Parameters(), 2)
	assert.Equal(t, "from", move.Parameters()[0].Name())

	require.Len(t, move.Preconditions(), 1)
	assert.Equal(t, model.AndExp, move.Preconditions()[0].Kind())
	require.Len(t, move.Effects(), 3)
	assert.Equal(t, model.AssignEffect, move.Effects()[0].EffectKind())
	assert.True(t, move.Effects()[0].Value().IsFalse())
	assert.Equal(t, model.DecreaseEffect, move.Effects()[2].EffectKind())
}

func TestReadInitGoalMetric(t *testing.T) {
	p := readDelivery(t)
	exprs := p.Env().Exprs()
	at, err := p.Fluent("at")
	require.NoError(t, err)
	l1, err := p.Object("l1")
	require.NoError(t, err)
	atL1, err := exprs.FluentExp(at, exprs.ObjectExp(l1))
	require.NoError(t, err)
	v, err := p.InitialValue(atL1)
	require.NoError(t, err)
	assert.True(t, v.IsTrue())

	fuel, err := p.Fluent("fuel")
	require.NoError(t, err)
	fuelE, err := exprs.FluentExp(fuel)
	require.NoError(t, err)
	v, err = p.InitialValue(fuelE)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v.IntValue())

	require.Len(t, p.Goals(), 1)
	require.NotNil(t, p.Metric())
	assert.Equal(t, model.MinimizeExpression, p.Metric().Kind())
}

func TestReadProblemIsSimulatable(t *testing.T) {
	p := readDelivery(t)
	exprs := p.Env().Exprs()
	l1, err := p.Object("l1")
	require.NoError(t, err)
	l2, err := p.Object("l2")
	require.NoError(t, err)

	sim, err := simulator.NewSequentialSimulator(p)
	require.NoError(t, err)
	steps := plan.NewSequentialPlan(
		plan.NewActionInstance("move", exprs.ObjectExp(l1), exprs.ObjectExp(l2)),
	)
	verdict, err := sim.ValidatePlan(steps)
	require.NoError(t, err)
	assert.True(t, verdict.Valid, verdict.Reason)
}

func TestReadConditionalAndQuantifiedForms(t *testing.T) {
	domain := `
(define (domain gadgets)
  (:requirements :strips :typing)
  (:types gadget - object)
  (:predicates (broken ?g - gadget) (powered))
  (:action surge
    :parameters ()
    :precondition (exists (?g - gadget) (not (broken ?g)))
    :effect (forall (?g - gadget) (when (powered) (broken ?g)))))
`
	problem := `
(define (problem gadgets-1)
  (:domain gadgets)
  (:objects g1 g2 - gadget)
  (:init (powered))
  (:goal (forall (?g - gadget) (broken ?g))))
`
	r := NewReader(model.NewEnvironment())
	p, err := r.Read("d", domain, "p", problem)
	require.NoError(t, err)

	a, err := p.Action("surge")
	require.NoError(t, err)
	surge := a.(*model.InstantaneousAction)
	require.Len(t, surge.Preconditions(), 1)
	assert.Equal(t, model.ExistsExp, surge.Preconditions()[0].Kind())
	require.Len(t, surge.Effects(), 1)
	eff := surge.Effects()[0]
	assert.True(t, eff.IsConditional())
	assert.Len(t, eff.Forall(), 1)

	kind := p.Kind()
	assert.True(t, kind.Has(model.FeatureConditionalEffects))
	assert.True(t, kind.Has(model.FeatureForallEffects))
	assert.True(t, kind.Has(model.FeatureUniversalConditions))
}

func TestReadErrors(t *testing.T) {
	cases := []struct {
		name   string
		domain string
	}{
		{
			name:   "unbound variable",
			domain: `(define (domain d) (:predicates (p)) (:action a :parameters () :precondition (= ?x ?x) :effect (p)))`,
		},
		{
			name:   "unknown fluent",
			domain: `(define (domain d) (:predicates (p)) (:action a :parameters () :precondition (q) :effect (p)))`,
		},
		{
			name:   "malformed define",
			domain: `(definitely (domain d))`,
		},
	}
	problem := `(define (problem p1) (:domain d) (:init) (:goal (and)))`
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReader(model.NewEnvironment())
			_, err := r.Read("d", tc.domain, "p", problem)
			assert.Error(t, err)
		})
	}
}
