package model

import "fmt"

// TypeError reports an ill-typed expression construction: wrong operand
// arity, an operand whose type does not fit the operator signature, or a
// fluent application whose arguments do not match the fluent declaration.
type TypeError struct {
	Op      string
	Message string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error in %s: %s", e.Op, e.Message)
}

// DuplicateNameError reports a re-declaration under an already used name
// where the new definition differs from the existing one.
type DuplicateNameError struct {
	Kind string // "fluent", "object", "action", "type"
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name: %s", e.Kind, e.Name)
}

// UndefinedUserTypeError reports a reference to a type that was never
// registered with the environment.
type UndefinedUserTypeError struct {
	Name string
}

func (e *UndefinedUserTypeError) Error() string {
	return fmt.Sprintf("undefined user type: %s", e.Name)
}

// UndefinedFluentError reports a fluent application whose fluent was never
// added to the problem, or a state variable with no initial value and no
// default.
type UndefinedFluentError struct {
	Name string
}

func (e *UndefinedFluentError) Error() string {
	return fmt.Sprintf("undefined fluent: %s", e.Name)
}

// UndefinedObjectError reports a reference to an object that was never
// added to the problem.
type UndefinedObjectError struct {
	Name string
}

func (e *UndefinedObjectError) Error() string {
	return fmt.Sprintf("undefined object: %s", e.Name)
}

// ConstantAssignmentError reports a binding whose type is not a subtype of
// the parameter or fluent it is being assigned to.
type ConstantAssignmentError struct {
	Target   string
	Expected string
	Got      string
}

func (e *ConstantAssignmentError) Error() string {
	return fmt.Sprintf("cannot bind %s: expected %s, got %s", e.Target, e.Expected, e.Got)
}

// UnsupportedFeatureError reports a problem handed to a component that does
// not support one of the features the problem exercises.
type UnsupportedFeatureError struct {
	Component string
	Feature   Feature
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Component, e.Feature)
}
