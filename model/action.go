package model

import (
	"fmt"
	"strings"
)

// Action is implemented by the two action shapes the model supports:
// InstantaneousAction and DurativeAction.
type Action interface {
	Name() string
	Parameters() []*Parameter
	Environment() *Environment
}

// InstantaneousAction is a classical action: conjunctive preconditions and
// a batch of effects, all happening at a single instant.
type InstantaneousAction struct {
	env           *Environment
	name          string
	params        []*Parameter
	preconditions []*Expression
	effects       []*Effect
}

// NewInstantaneousAction creates an action schema with the given typed
// parameters. An action with no parameters is already ground.
func NewInstantaneousAction(env *Environment, name string, params ...*Parameter) *InstantaneousAction {
	return &InstantaneousAction{env: env, name: name, params: params}
}

// Name returns the action name.
func (a *InstantaneousAction) Name() string { return a.name }

// Parameters returns the declared parameters in order.
func (a *InstantaneousAction) Parameters() []*Parameter { return a.params }

// Environment returns the owning environment.
func (a *InstantaneousAction) Environment() *Environment { return a.env }

// Preconditions returns the conjunctive precondition list.
func (a *InstantaneousAction) Preconditions() []*Expression { return a.preconditions }

// Effects returns the effect list.
func (a *InstantaneousAction) Effects() []*Effect { return a.effects }

// AddPrecondition appends a boolean expression to the precondition
// conjunction.
func (a *InstantaneousAction) AddPrecondition(e *Expression) error {
	if !e.Type().IsBool() {
		return &TypeError{Op: "AddPrecondition", Message: fmt.Sprintf("precondition must be boolean, got %s", e.Type())}
	}
	a.preconditions = append(a.preconditions, e)
	return nil
}

// AddEffect appends an unconditional assignment effect.
func (a *InstantaneousAction) AddEffect(target, value *Expression) error {
	return a.addEffect(AssignEffect, target, value, nil)
}

// AddConditionalEffect appends an assignment guarded by a condition.
func (a *InstantaneousAction) AddConditionalEffect(condition, target, value *Expression) error {
	return a.addEffect(AssignEffect, target, value, condition)
}

// AddIncreaseEffect appends an unconditional numeric increase.
func (a *InstantaneousAction) AddIncreaseEffect(target, value *Expression) error {
	return a.addEffect(IncreaseEffect, target, value, nil)
}

// AddDecreaseEffect appends an unconditional numeric decrease.
func (a *InstantaneousAction) AddDecreaseEffect(target, value *Expression) error {
	return a.addEffect(DecreaseEffect, target, value, nil)
}

// AppendEffect appends an already validated effect.
func (a *InstantaneousAction) AppendEffect(e *Effect) {
	a.effects = append(a.effects, e)
}

// WithName returns a copy of the action under a new name, sharing the
// immutable conditions and effects. Compiler passes use it to emit renamed
// variants.
func (a *InstantaneousAction) WithName(name string) *InstantaneousAction {
	c := *a
	c.name = name
	c.preconditions = append([]*Expression(nil), a.preconditions...)
	c.effects = append([]*Effect(nil), a.effects...)
	return &c
}

func (a *InstantaneousAction) addEffect(kind EffectKind, target, value, condition *Expression) error {
	eff, err := NewEffect(a.env, kind, target, value, condition)
	if err != nil {
		return err
	}
	a.effects = append(a.effects, eff)
	return nil
}

func (a *InstantaneousAction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "action %s", a.name)
	if len(a.params) > 0 {
		parts := make([]string, len(a.params))
		for i, p := range a.params {
			parts[i] = p.String()
		}
		fmt.Fprintf(&b, "(%s)", strings.Join(parts, ", "))
	}
	return b.String()
}

// TimepointKind anchors a timing to the start or the end of an action.
type TimepointKind int

const (
	StartTimepoint TimepointKind = iota
	EndTimepoint
)

// Timing is a timepoint with an optional non-negative delay.
type Timing struct {
	Point TimepointKind
	Delay float64
}

// StartTiming is the timing at the start of the action.
func StartTiming() Timing { return Timing{Point: StartTimepoint} }

// EndTiming is the timing at the end of the action.
func EndTiming() Timing { return Timing{Point: EndTimepoint} }

func (t Timing) String() string {
	name := "start"
	if t.Point == EndTimepoint {
		name = "end"
	}
	if t.Delay != 0 {
		return fmt.Sprintf("%s+%g", name, t.Delay)
	}
	return name
}

// TimeInterval is a closed or open interval between two timings.
type TimeInterval struct {
	Lower, Upper       Timing
	LeftOpen, RightOpen bool
}

// WholeDuration is the closed interval from start to end.
func WholeDuration() TimeInterval {
	return TimeInterval{Lower: StartTiming(), Upper: EndTiming()}
}

// AtStart is the degenerate interval at the start timepoint.
func AtStart() TimeInterval {
	return TimeInterval{Lower: StartTiming(), Upper: StartTiming()}
}

// AtEnd is the degenerate interval at the end timepoint.
func AtEnd() TimeInterval {
	return TimeInterval{Lower: EndTiming(), Upper: EndTiming()}
}

// DurationInterval bounds the duration of a durative action with numeric
// expressions.
type DurationInterval struct {
	Lower, Upper        *Expression
	LeftOpen, RightOpen bool
}

// TimedCondition is a condition that must hold over an interval of the
// action's execution.
type TimedCondition struct {
	Interval  TimeInterval
	Condition *Expression
}

// TimedEffect is an effect applied at a timing of the action's execution.
type TimedEffect struct {
	Timing Timing
	Effect *Effect
}

// DurativeAction is an action with a duration, interval conditions and
// timed effects.
type DurativeAction struct {
	env        *Environment
	name       string
	params     []*Parameter
	duration   DurationInterval
	conditions []TimedCondition
	effects    []TimedEffect
}

// NewDurativeAction creates a durative action schema.
func NewDurativeAction(env *Environment, name string, params ...*Parameter) *DurativeAction {
	return &DurativeAction{env: env, name: name, params: params}
}

// Name returns the action name.
func (a *DurativeAction) Name() string { return a.name }

// Parameters returns the declared parameters in order.
func (a *DurativeAction) Parameters() []*Parameter { return a.params }

// Environment returns the owning environment.
func (a *DurativeAction) Environment() *Environment { return a.env }

// Duration returns the duration bounds.
func (a *DurativeAction) Duration() DurationInterval { return a.duration }

// Conditions returns the timed conditions.
func (a *DurativeAction) Conditions() []TimedCondition { return a.conditions }

// Effects returns the timed effects.
func (a *DurativeAction) Effects() []TimedEffect { return a.effects }

// SetFixedDuration constrains the duration to exactly d.
func (a *DurativeAction) SetFixedDuration(d *Expression) error {
	return a.SetDurationBounds(d, d)
}

// SetDurationBounds constrains the duration to the closed interval
// [lower, upper].
func (a *DurativeAction) SetDurationBounds(lower, upper *Expression) error {
	if !lower.Type().IsNumeric() || !upper.Type().IsNumeric() {
		return &TypeError{Op: "SetDurationBounds", Message: "duration bounds must be numeric"}
	}
	a.duration = DurationInterval{Lower: lower, Upper: upper}
	return nil
}

// AddCondition requires a boolean expression to hold over the interval.
func (a *DurativeAction) AddCondition(interval TimeInterval, cond *Expression) error {
	if !cond.Type().IsBool() {
		return &TypeError{Op: "AddCondition", Message: fmt.Sprintf("condition must be boolean, got %s", cond.Type())}
	}
	a.conditions = append(a.conditions, TimedCondition{Interval: interval, Condition: cond})
	return nil
}

// AddTimedEffect applies an assignment at the given timing.
func (a *DurativeAction) AddTimedEffect(timing Timing, target, value *Expression) error {
	eff, err := NewEffect(a.env, AssignEffect, target, value, nil)
	if err != nil {
		return err
	}
	a.effects = append(a.effects, TimedEffect{Timing: timing, Effect: eff})
	return nil
}

// AppendTimedEffect appends an already validated effect at a timing.
func (a *DurativeAction) AppendTimedEffect(timing Timing, eff *Effect) {
	a.effects = append(a.effects, TimedEffect{Timing: timing, Effect: eff})
}

// WithName returns a copy of the action under a new name.
func (a *DurativeAction) WithName(name string) *DurativeAction {
	c := *a
	c.name = name
	c.conditions = append([]TimedCondition(nil), a.conditions...)
	c.effects = append([]TimedEffect(nil), a.effects...)
	return &c
}
