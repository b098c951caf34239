package model

import (
	"fmt"

	"go.uber.org/multierr"
)

// Problem is the mutable container a caller assembles: fluents, objects,
// actions, initial values, goals and an optional metric. Compiler passes
// never mutate a problem they receive; they clone it and emit a new one.
type Problem struct {
	name string
	env  *Environment

	fluents      []*Fluent
	fluentByName map[string]*Fluent
	defaults     map[*Fluent]*Expression

	objects      []*Object
	objectByName map[string]*Object

	actions      []Action
	actionByName map[string]Action

	initial      map[*Expression]*Expression
	initialOrder []*Expression

	goals  []*Expression
	metric *Metric
}

// NewProblem creates an empty problem owning no actions or fluents yet.
func NewProblem(env *Environment, name string) *Problem {
	return &Problem{
		name:         name,
		env:          env,
		fluentByName: make(map[string]*Fluent),
		defaults:     make(map[*Fluent]*Expression),
		objectByName: make(map[string]*Object),
		actionByName: make(map[string]Action),
		initial:      make(map[*Expression]*Expression),
	}
}

// Name returns the problem name.
func (p *Problem) Name() string { return p.name }

// Env returns the owning environment.
func (p *Problem) Env() *Environment { return p.env }

// AddFluent declares a fluent. Re-adding a structurally identical fluent is
// a no-op; a different declaration under the same name is a
// DuplicateNameError.
func (p *Problem) AddFluent(f *Fluent) error {
	if existing, ok := p.fluentByName[f.name]; ok {
		if existing == f || existing.signatureEqual(f) {
			return nil
		}
		return &DuplicateNameError{Kind: "fluent", Name: f.name}
	}
	p.fluents = append(p.fluents, f)
	p.fluentByName[f.name] = f
	return nil
}

// AddFluentWithDefault declares a fluent together with the value every
// otherwise uninitialized state variable of that fluent takes.
func (p *Problem) AddFluentWithDefault(f *Fluent, def *Expression) error {
	if !def.IsConstant() {
		return &TypeError{Op: "AddFluentWithDefault", Message: fmt.Sprintf("default of %s must be a constant", f.name)}
	}
	if !assignable(def.Type(), f.valueType) {
		return &ConstantAssignmentError{Target: f.name, Expected: f.valueType.String(), Got: def.Type().String()}
	}
	if err := p.AddFluent(f); err != nil {
		return err
	}
	p.defaults[f] = def
	return nil
}

// Fluent retrieves a declared fluent by name.
func (p *Problem) Fluent(name string) (*Fluent, error) {
	if f, ok := p.fluentByName[name]; ok {
		return f, nil
	}
	return nil, &UndefinedFluentError{Name: name}
}

// HasFluentNamed reports whether a fluent with the name is declared.
func (p *Problem) HasFluentNamed(name string) bool {
	_, ok := p.fluentByName[name]
	return ok
}

// Fluents returns the declared fluents in declaration order.
func (p *Problem) Fluents() []*Fluent { return p.fluents }

// FluentDefault returns the registered default value of a fluent, nil if
// none.
func (p *Problem) FluentDefault(f *Fluent) *Expression { return p.defaults[f] }

// AddObject declares a concrete object of a user type.
func (p *Problem) AddObject(name string, typ *Type) (*Object, error) {
	if !typ.IsUser() {
		return nil, &TypeError{Op: "AddObject", Message: fmt.Sprintf("object %s must have a user type, got %s", name, typ)}
	}
	if existing, ok := p.objectByName[name]; ok {
		if existing.typ == typ {
			return existing, nil
		}
		return nil, &DuplicateNameError{Kind: "object", Name: name}
	}
	o := &Object{name: name, typ: typ}
	p.objects = append(p.objects, o)
	p.objectByName[name] = o
	return o, nil
}

// Object retrieves a declared object by name.
func (p *Problem) Object(name string) (*Object, error) {
	if o, ok := p.objectByName[name]; ok {
		return o, nil
	}
	return nil, &UndefinedObjectError{Name: name}
}

// Objects returns all objects in declaration order.
func (p *Problem) Objects() []*Object { return p.objects }

// ObjectsOfType returns the objects whose type is a subtype of t, in
// declaration order. Grounding relies on this order being deterministic.
func (p *Problem) ObjectsOfType(t *Type) []*Object {
	var out []*Object
	for _, o := range p.objects {
		if o.typ.IsSubtypeOf(t) {
			out = append(out, o)
		}
	}
	return out
}

// AddAction adds an action after validating that every fluent and object it
// references is declared. Re-adding the same action is a no-op; a different
// action under an existing name is a DuplicateNameError.
func (p *Problem) AddAction(a Action) error {
	if existing, ok := p.actionByName[a.Name()]; ok {
		if existing == a {
			return nil
		}
		return &DuplicateNameError{Kind: "action", Name: a.Name()}
	}
	if err := p.validateAction(a); err != nil {
		return err
	}
	p.actions = append(p.actions, a)
	p.actionByName[a.Name()] = a
	return nil
}

func (p *Problem) validateAction(a Action) error {
	switch act := a.(type) {
	case *InstantaneousAction:
		for _, c := range act.Preconditions() {
			if err := p.validateExpression(c); err != nil {
				return fmt.Errorf("action %s: %w", a.Name(), err)
			}
		}
		for _, e := range act.Effects() {
			if err := p.validateEffect(e); err != nil {
				return fmt.Errorf("action %s: %w", a.Name(), err)
			}
		}
	case *DurativeAction:
		for _, c := range act.Conditions() {
			if err := p.validateExpression(c.Condition); err != nil {
				return fmt.Errorf("action %s: %w", a.Name(), err)
			}
		}
		for _, e := range act.Effects() {
			if err := p.validateEffect(e.Effect); err != nil {
				return fmt.Errorf("action %s: %w", a.Name(), err)
			}
		}
	}
	return nil
}

func (p *Problem) validateEffect(e *Effect) error {
	if err := p.validateExpression(e.target); err != nil {
		return err
	}
	if err := p.validateExpression(e.value); err != nil {
		return err
	}
	return p.validateExpression(e.condition)
}

// validateExpression enforces the completeness invariant: every fluent and
// object a formula mentions must be the declared one, not a namesake from
// elsewhere.
func (p *Problem) validateExpression(e *Expression) error {
	var err error
	Walk(e, func(n *Expression) bool {
		switch n.Kind() {
		case FluentExp:
			if p.fluentByName[n.fluent.name] != n.fluent {
				err = &UndefinedFluentError{Name: n.fluent.name}
				return false
			}
		case ObjectExp:
			if p.objectByName[n.object.name] != n.object {
				err = &UndefinedObjectError{Name: n.object.name}
				return false
			}
		}
		return true
	})
	return err
}

// Action retrieves an action by name.
func (p *Problem) Action(name string) (Action, error) {
	if a, ok := p.actionByName[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("undefined action: %s", name)
}

// Actions returns all actions in declaration order.
func (p *Problem) Actions() []Action { return p.actions }

// SetInitialValue assigns the initial value of one ground state variable.
// Setting the same variable twice overwrites the previous value.
func (p *Problem) SetInitialValue(fluentApp, value *Expression) error {
	if fluentApp.Kind() != FluentExp {
		return &TypeError{Op: "SetInitialValue", Message: fmt.Sprintf("%s is not a fluent application", fluentApp)}
	}
	if err := p.validateExpression(fluentApp); err != nil {
		return err
	}
	for _, a := range fluentApp.Args() {
		if !a.IsConstant() {
			return &TypeError{Op: "SetInitialValue", Message: fmt.Sprintf("%s is not ground", fluentApp)}
		}
	}
	if !value.IsConstant() {
		return &TypeError{Op: "SetInitialValue", Message: fmt.Sprintf("initial value of %s must be a constant, got %s", fluentApp, value)}
	}
	if !assignable(value.Type(), fluentApp.Type()) {
		return &ConstantAssignmentError{Target: fluentApp.String(), Expected: fluentApp.Type().String(), Got: value.Type().String()}
	}
	if _, ok := p.initial[fluentApp]; !ok {
		p.initialOrder = append(p.initialOrder, fluentApp)
	}
	p.initial[fluentApp] = value
	return nil
}

func assignable(value, target *Type) bool {
	return value.IsSubtypeOf(target) || value.IsNumeric() && target.IsNumeric()
}

// InitialValue returns the initial value of a ground state variable,
// falling back to the fluent's default. A variable with neither is an
// UndefinedFluentError.
func (p *Problem) InitialValue(fluentApp *Expression) (*Expression, error) {
	if v, ok := p.initial[fluentApp]; ok {
		return v, nil
	}
	if fluentApp.Kind() == FluentExp {
		if def, ok := p.defaults[fluentApp.fluent]; ok {
			return def, nil
		}
	}
	return nil, &UndefinedFluentError{Name: fluentApp.String()}
}

// ExplicitInitialValues returns the explicitly set state variables in
// insertion order.
func (p *Problem) ExplicitInitialValues() []*Expression { return p.initialOrder }

// GroundFluentApplications enumerates every state variable of the problem:
// for each fluent, the fluent applied to every combination of
// type-compatible objects, in declaration order.
func (p *Problem) GroundFluentApplications() ([]*Expression, error) {
	var out []*Expression
	for _, f := range p.fluents {
		domains := make([][]*Object, len(f.params))
		for i, par := range f.params {
			domains[i] = p.ObjectsOfType(par.typ)
		}
		for _, combo := range Combinations(domains) {
			args := make([]*Expression, len(combo))
			for i, o := range combo {
				args[i] = p.env.Exprs().ObjectExp(o)
			}
			app, err := p.env.Exprs().FluentExp(f, args...)
			if err != nil {
				return nil, err
			}
			out = append(out, app)
		}
	}
	return out, nil
}

// Combinations returns the cartesian product of the domains, varying the
// last position fastest. An empty domain yields no combination; zero
// domains yield the single empty combination.
func Combinations(domains [][]*Object) [][]*Object {
	out := [][]*Object{{}}
	for _, domain := range domains {
		if len(domain) == 0 {
			return nil
		}
		next := make([][]*Object, 0, len(out)*len(domain))
		for _, prefix := range out {
			for _, o := range domain {
				combo := make([]*Object, len(prefix)+1)
				copy(combo, prefix)
				combo[len(prefix)] = o
				next = append(next, combo)
			}
		}
		out = next
	}
	return out
}

// AddGoal appends a boolean goal expression.
func (p *Problem) AddGoal(e *Expression) error {
	if !e.Type().IsBool() {
		return &TypeError{Op: "AddGoal", Message: fmt.Sprintf("goal must be boolean, got %s", e.Type())}
	}
	if err := p.validateExpression(e); err != nil {
		return err
	}
	p.goals = append(p.goals, e)
	return nil
}

// Goals returns the goal expressions.
func (p *Problem) Goals() []*Expression { return p.goals }

// SetMetric sets the quality metric.
func (p *Problem) SetMetric(m *Metric) { p.metric = m }

// Metric returns the quality metric, nil if none.
func (p *Problem) Metric() *Metric { return p.metric }

// Kind computes the feature set the problem exercises by one traversal of
// its fluents, actions and goals. It only accumulates features, so growing
// the problem can never shrink the kind.
func (p *Problem) Kind() Kind {
	var k Kind
	for _, f := range p.fluents {
		k = k.Union(fluentKind(f))
	}
	for _, t := range p.env.types.user {
		if t.parent != nil && t.parent != p.env.types.object {
			k = k.With(FeatureHierarchicalTyping)
		}
	}
	for _, a := range p.actions {
		if len(a.Parameters()) > 0 {
			k = k.With(FeatureActionParameters)
		}
		switch act := a.(type) {
		case *InstantaneousAction:
			for _, c := range act.Preconditions() {
				k = k.Union(conditionKind(c))
			}
			for _, e := range act.Effects() {
				k = k.Union(effectKind(e))
			}
		case *DurativeAction:
			k = k.With(FeatureDurativeActions)
			for _, c := range act.Conditions() {
				k = k.Union(conditionKind(c.Condition))
			}
			for _, e := range act.Effects() {
				k = k.Union(effectKind(e.Effect))
			}
		}
	}
	for _, g := range p.goals {
		k = k.Union(conditionKind(g))
	}
	if p.metric != nil {
		k = k.With(FeaturePlanMetrics)
	}
	return k
}

// Clone returns a copy sharing the environment and all immutable parts;
// the mutable slices and maps are copied so passes can edit the clone
// freely.
func (p *Problem) Clone() *Problem {
	c := NewProblem(p.env, p.name)
	c.fluents = append([]*Fluent(nil), p.fluents...)
	for k, v := range p.fluentByName {
		c.fluentByName[k] = v
	}
	for k, v := range p.defaults {
		c.defaults[k] = v
	}
	c.objects = append([]*Object(nil), p.objects...)
	for k, v := range p.objectByName {
		c.objectByName[k] = v
	}
	c.actions = append([]Action(nil), p.actions...)
	for k, v := range p.actionByName {
		c.actionByName[k] = v
	}
	for k, v := range p.initial {
		c.initial[k] = v
	}
	c.initialOrder = append([]*Expression(nil), p.initialOrder...)
	c.goals = append([]*Expression(nil), p.goals...)
	c.metric = p.metric
	return c
}

// CloneWithoutActions returns a clone with the action set emptied; passes
// that rewrite every action start from this.
func (p *Problem) CloneWithoutActions() *Problem {
	c := p.Clone()
	c.actions = nil
	c.actionByName = make(map[string]Action)
	return c
}

// CloneWithoutGoals returns a clone with the goal list emptied.
func (p *Problem) CloneWithoutGoals() *Problem {
	c := p.Clone()
	c.goals = nil
	return c
}

// Validate checks the completeness invariant: every state variable must
// have an initial value or a default. All violations are reported together.
func (p *Problem) Validate() error {
	apps, err := p.GroundFluentApplications()
	if err != nil {
		return err
	}
	var errs error
	for _, app := range apps {
		if _, err := p.InitialValue(app); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// FreshName returns a name with the given prefix that collides with no
// declared fluent, object or action name.
func (p *Problem) FreshName(prefix string) string {
	name := prefix
	for i := 0; ; i++ {
		_, fluentTaken := p.fluentByName[name]
		_, objectTaken := p.objectByName[name]
		_, actionTaken := p.actionByName[name]
		if !fluentTaken && !objectTaken && !actionTaken {
			return name
		}
		name = fmt.Sprintf("%s_%d", prefix, i)
	}
}
