package pddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiplan4eu/unified-planning-sub004/model"
)

func TestWriteDomain(t *testing.T) {
	p := readDelivery(t)
	domain, err := NewWriter(p).Domain()
	require.NoError(t, err)

	assert.Contains(t, domain, "(define (domain delivery-1-domain)")
	assert.Contains(t, domain, ":typing")
	assert.Contains(t, domain, ":numeric-fluents")
	assert.Contains(t, domain, "(:types location - object)")
	assert.Contains(t, domain, "(at ?l - location)")
	assert.Contains(t, domain, "(:functions (fuel))")
	assert.Contains(t, domain, "(:action move")
	assert.Contains(t, domain, "(not (at ?from))")
	assert.Contains(t, domain, "(decrease (fuel) 1)")
}

func TestWriteProblem(t *testing.T) {
	p := readDelivery(t)
	problem, err := NewWriter(p).Problem()
	require.NoError(t, err)

	assert.Contains(t, problem, "(define (problem delivery-1)")
	assert.Contains(t, problem, "l1 - location")
	assert.Contains(t, problem, "(at l1)")
	assert.Contains(t, problem, "(= (fuel) 10)")
	assert.Contains(t, problem, "(:goal (at l2))")
	assert.Contains(t, problem, "(:metric minimize (fuel))")
}

func TestWriteRoundTrip(t *testing.T) {
	p := readDelivery(t)
	w := NewWriter(p)
	domain, err := w.Domain()
	require.NoError(t, err)
	problem, err := w.Problem()
	require.NoError(t, err)

	again, err := NewReader(model.NewEnvironment()).Read("d", domain, "p", problem)
	require.NoError(t, err)
	assert.Equal(t, p.Name(), again.Name())
	assert.Len(t, again.Fluents(), len(p.Fluents()))
	assert.Len(t, again.Actions(), len(p.Actions()))
	assert.Len(t, again.Objects(), len(p.Objects()))
	assert.Len(t, again.Goals(), len(p.Goals()))
	assert.Equal(t, p.Kind(), again.Kind())
}

func TestWriteClosedWorldInit(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	p := model.NewProblem(env, "closed")
	f := model.NewFluent("p", env.Types().Bool())
	require.NoError(t, p.AddFluentWithDefault(f, exprs.Bool(true)))
	fe, err := exprs.FluentExp(f)
	require.NoError(t, err)
	require.NoError(t, p.SetInitialValue(fe, exprs.Bool(false)))

	out, err := NewWriter(p).Problem()
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "(:init)"), "explicit false entries are omitted:\n%s", out)
}

func TestWriteRejectsObjectValuedFluents(t *testing.T) {
	env := model.NewEnvironment()
	exprs := env.Exprs()
	loc, err := env.Types().UserType("location", nil)
	require.NoError(t, err)
	p := model.NewProblem(env, "obj")
	l1, err := p.AddObject("l1", loc)
	require.NoError(t, err)
	pos := model.NewFluent("pos", loc)
	require.NoError(t, p.AddFluentWithDefault(pos, exprs.ObjectExp(l1)))

	_, err = NewWriter(p).Domain()
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"move":         "move",
		"move(l1, l2)": "move_l1_l2",
		"flip__0(a)":   "flip__0_a",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitize(in))
	}
}
