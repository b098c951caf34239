package model

// Environment bundles the type registry and the expression manager that a
// problem and everything derived from it share. There is deliberately no
// package-level default: expressions from different environments never mix,
// and identity comparison is only meaningful within one environment.
type Environment struct {
	types *TypeRegistry
	exprs *ExpressionManager
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	env := &Environment{types: newTypeRegistry()}
	env.exprs = newExpressionManager(env)
	return env
}

// Types returns the environment's type registry.
func (e *Environment) Types() *TypeRegistry { return e.types }

// Exprs returns the environment's expression manager.
func (e *Environment) Exprs() *ExpressionManager { return e.exprs }
