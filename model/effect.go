package model

import (
	"fmt"
	"strings"
)

// EffectKind discriminates how an effect changes its target state variable.
type EffectKind int

const (
	AssignEffect EffectKind = iota
	IncreaseEffect
	DecreaseEffect
)

func (k EffectKind) String() string {
	switch k {
	case IncreaseEffect:
		return "increase"
	case DecreaseEffect:
		return "decrease"
	default:
		return "assign"
	}
}

// Effect changes one state variable: it assigns, increases or decreases the
// target fluent application with the value expression, guarded by an
// optional condition and optionally universally bound over extra variables.
type Effect struct {
	target    *Expression // fluent application
	value     *Expression
	condition *Expression // always non-nil; true when unconditional
	kind      EffectKind
	forall    []*Variable
}

// NewEffect validates and creates an effect. A nil condition means
// unconditional. Increase and decrease require a numeric target.
func NewEffect(env *Environment, kind EffectKind, target, value, condition *Expression, forall ...*Variable) (*Effect, error) {
	if target.Kind() != FluentExp {
		return nil, &TypeError{Op: "Effect", Message: fmt.Sprintf("target must be a fluent application, got %s", target)}
	}
	if condition == nil {
		condition = env.Exprs().TrueExpr()
	}
	if !condition.Type().IsBool() {
		return nil, &TypeError{Op: "Effect", Message: fmt.Sprintf("condition must be boolean, got %s", condition.Type())}
	}
	switch kind {
	case AssignEffect:
		if !value.Type().IsSubtypeOf(target.Type()) &&
			!(value.Type().IsNumeric() && target.Type().IsNumeric()) {
			return nil, &ConstantAssignmentError{
				Target:   target.String(),
				Expected: target.Type().String(),
				Got:      value.Type().String(),
			}
		}
	case IncreaseEffect, DecreaseEffect:
		if !target.Type().IsNumeric() {
			return nil, &TypeError{Op: "Effect", Message: fmt.Sprintf("%s requires a numeric fluent, %s is %s", kind, target, target.Type())}
		}
		if !value.Type().IsNumeric() {
			return nil, &TypeError{Op: "Effect", Message: fmt.Sprintf("%s requires a numeric value, got %s", kind, value.Type())}
		}
	}
	return &Effect{target: target, value: value, condition: condition, kind: kind, forall: forall}, nil
}

// Target returns the affected fluent application.
func (e *Effect) Target() *Expression { return e.target }

// Value returns the value expression.
func (e *Effect) Value() *Expression { return e.value }

// Condition returns the guard; the constant true for unconditional effects.
func (e *Effect) Condition() *Expression { return e.condition }

// EffectKind returns how the target is changed.
func (e *Effect) EffectKind() EffectKind { return e.kind }

// Forall returns the universally bound variables, nil for plain effects.
func (e *Effect) Forall() []*Variable { return e.forall }

// IsConditional reports whether the guard is anything but the constant
// true.
func (e *Effect) IsConditional() bool { return !e.condition.IsTrue() }

func (e *Effect) String() string {
	var b strings.Builder
	if len(e.forall) > 0 {
		vars := make([]string, len(e.forall))
		for i, v := range e.forall {
			vars[i] = v.String()
		}
		fmt.Fprintf(&b, "forall (%s) ", strings.Join(vars, ", "))
	}
	if e.IsConditional() {
		fmt.Fprintf(&b, "if %s then ", e.condition)
	}
	switch e.kind {
	case IncreaseEffect:
		fmt.Fprintf(&b, "%s += %s", e.target, e.value)
	case DecreaseEffect:
		fmt.Fprintf(&b, "%s -= %s", e.target, e.value)
	default:
		fmt.Fprintf(&b, "%s := %s", e.target, e.value)
	}
	return b.String()
}
