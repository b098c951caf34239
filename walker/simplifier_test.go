package walker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiplan4eu/unified-planning-sub004/model"
)

func boolFluent(t *testing.T, env *model.Environment, name string) *model.Expression {
	t.Helper()
	f := model.NewFluent(name, env.Types().Bool())
	e, err := env.Exprs().FluentExp(f)
	require.NoError(t, err)
	return e
}

func simplified(t *testing.T, env *model.Environment, e *model.Expression) *model.Expression {
	t.Helper()
	s, err := Simplify(env, e)
	require.NoError(t, err)
	return s
}

func TestSimplifyDoubleNegation(t *testing.T) {
	env := model.NewEnvironment()
	p := boolFluent(t, env, "p")

	n1, err := env.Exprs().Not(p)
	require.NoError(t, err)
	n2, err := env.Exprs().Not(n1)
	require.NoError(t, err)
	assert.Same(t, p, simplified(t, env, n2))
}

func TestSimplifyComplementaryLiterals(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	p := boolFluent(t, env, "p")
	q := boolFluent(t, env, "q")
	np, err := exprs.Not(p)
	require.NoError(t, err)

	contradiction, err := exprs.And(p, q, np)
	require.NoError(t, err)
	assert.True(t, simplified(t, env, contradiction).IsFalse(), "p and not p collapses the conjunction")

	tautology, err := exprs.Or(p, q, np)
	require.NoError(t, err)
	assert.True(t, simplified(t, env, tautology).IsTrue())
}

func TestSimplifyConstantAbsorption(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	p := boolFluent(t, env, "p")

	withTrue, err := exprs.And(p, exprs.TrueExpr())
	require.NoError(t, err)
	assert.Same(t, p, simplified(t, env, withTrue))

	withFalse, err := exprs.And(p, exprs.FalseExpr())
	require.NoError(t, err)
	assert.True(t, simplified(t, env, withFalse).IsFalse())

	orTrue, err := exprs.Or(p, exprs.TrueExpr())
	require.NoError(t, err)
	assert.True(t, simplified(t, env, orTrue).IsTrue())
}

func TestSimplifyArithmetic(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	c := model.NewFluent("c", env.Types().Int())
	ce, err := exprs.FluentExp(c)
	require.NoError(t, err)

	sum, err := exprs.Plus(exprs.Int(2), exprs.Int(3))
	require.NoError(t, err)
	folded := simplified(t, env, sum)
	assert.Equal(t, int64(5), folded.IntValue())

	zeroSum, err := exprs.Plus(ce, exprs.Int(0))
	require.NoError(t, err)
	assert.Same(t, ce, simplified(t, env, zeroSum))

	oneTimes, err := exprs.Times(ce, exprs.Int(1))
	require.NoError(t, err)
	assert.Same(t, ce, simplified(t, env, oneTimes))

	zeroTimes, err := exprs.Times(ce, exprs.Int(0))
	require.NoError(t, err)
	assert.Equal(t, int64(0), simplified(t, env, zeroTimes).IntValue())

	selfMinus, err := exprs.Minus(ce, ce)
	require.NoError(t, err)
	assert.Equal(t, int64(0), simplified(t, env, selfMinus).IntValue())

	exactDiv, err := exprs.Div(exprs.Int(6), exprs.Int(3))
	require.NoError(t, err)
	assert.Equal(t, int64(2), simplified(t, env, exactDiv).IntValue())
}

func TestSimplifyComparisons(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	c := model.NewFluent("c", env.Types().Int())
	ce, err := exprs.FluentExp(c)
	require.NoError(t, err)

	lt, err := exprs.LT(ce, ce)
	require.NoError(t, err)
	assert.True(t, simplified(t, env, lt).IsFalse())

	le, err := exprs.LE(ce, ce)
	require.NoError(t, err)
	assert.True(t, simplified(t, env, le).IsTrue())

	cmp, err := exprs.LT(exprs.Int(1), exprs.Int(2))
	require.NoError(t, err)
	assert.True(t, simplified(t, env, cmp).IsTrue())
}

func TestSimplifyEquals(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)

	p := model.NewProblem(env, "eq")
	l1, err := p.AddObject("l1", loc)
	require.NoError(t, err)
	l2, err := p.AddObject("l2", loc)
	require.NoError(t, err)

	same, err := exprs.Equals(exprs.ObjectExp(l1), exprs.ObjectExp(l1))
	require.NoError(t, err)
	assert.True(t, simplified(t, env, same).IsTrue())

	diff, err := exprs.Equals(exprs.ObjectExp(l1), exprs.ObjectExp(l2))
	require.NoError(t, err)
	assert.True(t, simplified(t, env, diff).IsFalse(), "distinct objects are never equal")
}

func TestSimplifyIsIdempotent(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	p := boolFluent(t, env, "p")
	q := boolFluent(t, env, "q")
	np, err := exprs.Not(p)
	require.NoError(t, err)

	imp, err := exprs.Implies(p, q)
	require.NoError(t, err)
	inner, err := exprs.Or(np, imp)
	require.NoError(t, err)
	outer, err := exprs.And(inner, q, exprs.TrueExpr())
	require.NoError(t, err)

	once := simplified(t, env, outer)
	twice := simplified(t, env, once)
	assert.Same(t, once, twice, "simplification must be a fixpoint")
}
