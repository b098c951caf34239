package model

import (
	"fmt"
	"strings"
)

// Parameter is a typed formal parameter of an action or fluent. Parameters
// are compared by pointer: two actions may both declare a parameter "x"
// without their references ever being confused.
type Parameter struct {
	name string
	typ  *Type
}

// NewParameter creates a typed parameter.
func NewParameter(name string, typ *Type) *Parameter {
	return &Parameter{name: name, typ: typ}
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// Type returns the declared type.
func (p *Parameter) Type() *Type { return p.typ }

func (p *Parameter) String() string { return fmt.Sprintf("%s - %s", p.name, p.typ) }

// Variable is a typed variable bound by an exists/forall quantifier or by a
// forall-effect. Like parameters, variables are compared by pointer.
type Variable struct {
	name string
	typ  *Type
}

// NewVariable creates a typed quantifier variable.
func NewVariable(name string, typ *Type) *Variable {
	return &Variable{name: name, typ: typ}
}

// Name returns the variable name.
func (v *Variable) Name() string { return v.name }

// Type returns the declared type.
func (v *Variable) Type() *Type { return v.typ }

func (v *Variable) String() string { return fmt.Sprintf("%s - %s", v.name, v.typ) }

// Object is a concrete problem object with a user type.
type Object struct {
	name string
	typ  *Type
}

// Name returns the object name.
func (o *Object) Name() string { return o.name }

// Type returns the object's declared type.
func (o *Object) Type() *Type { return o.typ }

func (o *Object) String() string { return o.name }

// Fluent is a named state-variable template: a value type plus zero or more
// typed parameters. A fluent is immutable once created; default values are
// registered on the problem, not on the fluent.
type Fluent struct {
	name      string
	valueType *Type
	params    []*Parameter
}

// NewFluent creates a fluent with the given value type and parameters.
func NewFluent(name string, valueType *Type, params ...*Parameter) *Fluent {
	return &Fluent{name: name, valueType: valueType, params: params}
}

// Name returns the fluent name.
func (f *Fluent) Name() string { return f.name }

// ValueType returns the declared value type.
func (f *Fluent) ValueType() *Type { return f.valueType }

// Parameters returns the declared parameters.
func (f *Fluent) Parameters() []*Parameter { return f.params }

// Arity returns the number of parameters.
func (f *Fluent) Arity() int { return len(f.params) }

func (f *Fluent) String() string {
	if len(f.params) == 0 {
		return fmt.Sprintf("%s %s", f.valueType, f.name)
	}
	parts := make([]string, len(f.params))
	for i, p := range f.params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s %s(%s)", f.valueType, f.name, strings.Join(parts, ", "))
}

// signatureEqual reports whether two fluent declarations are
// interchangeable: same name, value type and parameter types.
func (f *Fluent) signatureEqual(other *Fluent) bool {
	if f.name != other.name || f.valueType != other.valueType || len(f.params) != len(other.params) {
		return false
	}
	for i := range f.params {
		if f.params[i].typ != other.params[i].typ {
			return false
		}
	}
	return true
}
