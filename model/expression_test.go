package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterningGivesPointerIdentity(t *testing.T) {
	env := NewEnvironment()
	exprs := env.Exprs()

	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)
	f := NewFluent("at", env.Types().Bool(), NewParameter("l", loc))
	p := NewParameter("x", loc)

	a1, err := exprs.FluentExp(f, exprs.ParameterExp(p))
	require.NoError(t, err)
	a2, err := exprs.FluentExp(f, exprs.ParameterExp(p))
	require.NoError(t, err)
	assert.Same(t, a1, a2, "structurally identical applications must intern to one node")

	n1, err := exprs.Not(a1)
	require.NoError(t, err)
	n2, err := exprs.Not(a2)
	require.NoError(t, err)
	assert.Same(t, n1, n2)

	assert.Same(t, exprs.Int(42), exprs.Int(42))
	assert.Same(t, exprs.Bool(true), exprs.TrueExpr())
	assert.NotSame(t, exprs.Int(42), exprs.Int(43))
}

func TestAndFlattening(t *testing.T) {
	env := NewEnvironment()
	exprs := env.Exprs()

	p := NewFluent("p", env.Types().Bool())
	q := NewFluent("q", env.Types().Bool())
	r := NewFluent("r", env.Types().Bool())
	pe, err := exprs.FluentExp(p)
	require.NoError(t, err)
	qe, err := exprs.FluentExp(q)
	require.NoError(t, err)
	re, err := exprs.FluentExp(r)
	require.NoError(t, err)

	inner, err := exprs.And(pe, qe)
	require.NoError(t, err)
	nested, err := exprs.And(inner, re)
	require.NoError(t, err)
	flat, err := exprs.And(pe, qe, re)
	require.NoError(t, err)
	assert.Same(t, flat, nested, "nested conjunctions flatten to the same node")

	empty, err := exprs.And()
	require.NoError(t, err)
	assert.True(t, empty.IsTrue())

	single, err := exprs.And(pe)
	require.NoError(t, err)
	assert.Same(t, pe, single)

	emptyOr, err := exprs.Or()
	require.NoError(t, err)
	assert.True(t, emptyOr.IsFalse())
}

func TestEqualsRejectsBooleans(t *testing.T) {
	env := NewEnvironment()
	exprs := env.Exprs()

	p := NewFluent("p", env.Types().Bool())
	pe, err := exprs.FluentExp(p)
	require.NoError(t, err)

	_, err = exprs.Equals(pe, exprs.TrueExpr())
	assert.Error(t, err, "boolean equality must go through Iff")

	iff, err := exprs.Iff(pe, exprs.TrueExpr())
	require.NoError(t, err)
	assert.Equal(t, IffExp, iff.Kind())
}

func TestFluentExpChecksArityAndTypes(t *testing.T) {
	env := NewEnvironment()
	exprs := env.Exprs()

	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)
	veh, err := env.Types().UserType("vehicle", nil)
	require.NoError(t, err)
	at := NewFluent("at", env.Types().Bool(), NewParameter("l", loc))

	_, err = exprs.FluentExp(at)
	assert.Error(t, err, "missing argument")

	wrong := NewParameter("v", veh)
	_, err = exprs.FluentExp(at, exprs.ParameterExp(wrong))
	assert.Error(t, err, "incompatible argument type")
}

func TestTypeHierarchy(t *testing.T) {
	env := NewEnvironment()
	reg := env.Types()

	vehicle, err := reg.UserType("vehicle", nil)
	require.NoError(t, err)
	truck, err := reg.UserType("truck", vehicle)
	require.NoError(t, err)

	assert.True(t, truck.IsSubtypeOf(truck))
	assert.True(t, truck.IsSubtypeOf(vehicle))
	assert.True(t, truck.IsSubtypeOf(reg.Object()))
	assert.False(t, vehicle.IsSubtypeOf(truck))
	assert.True(t, reg.Int().IsSubtypeOf(reg.Real()))
	assert.False(t, reg.Real().IsSubtypeOf(reg.Int()))
}

func TestBoundedIntTypes(t *testing.T) {
	env := NewEnvironment()
	reg := env.Types()

	b := reg.BoundedInt(0, 10)
	lo, hi := b.IntBounds()
	require.NotNil(t, lo)
	require.NotNil(t, hi)
	assert.Equal(t, int64(0), *lo)
	assert.Equal(t, int64(10), *hi)
	assert.Same(t, b, reg.BoundedInt(0, 10), "bounded types are interned")
	assert.True(t, b.IsSubtypeOf(reg.Int()))
}

func TestNumericWidening(t *testing.T) {
	env := NewEnvironment()
	exprs := env.Exprs()

	sum, err := exprs.Plus(exprs.Int(1), exprs.Int(2))
	require.NoError(t, err)
	assert.True(t, sum.Type().IsInt())

	mixed, err := exprs.Plus(exprs.Int(1), exprs.Real(2.5))
	require.NoError(t, err)
	assert.True(t, mixed.Type().IsReal())

	div, err := exprs.Div(exprs.Int(1), exprs.Int(2))
	require.NoError(t, err)
	assert.True(t, div.Type().IsReal(), "division widens to real")
}

func TestExpressionString(t *testing.T) {
	env := NewEnvironment()
	exprs := env.Exprs()

	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)
	at := NewFluent("at", env.Types().Bool(), NewParameter("l", loc))
	o := &Object{name: "l1", typ: loc}

	app, err := exprs.FluentExp(at, exprs.ObjectExp(o))
	require.NoError(t, err)
	assert.Equal(t, "at(l1)", app.String())

	neg, err := exprs.Not(app)
	require.NoError(t, err)
	assert.Equal(t, "(not at(l1))", neg.String())
}
