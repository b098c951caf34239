package model

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ExprKind discriminates expression nodes. The set is closed; every
// traversal in this module switches exhaustively over it.
type ExprKind int

const (
	BoolConstant ExprKind = iota
	IntConstant
	RealConstant
	ObjectExp
	ParamExp
	VariableExp
	FluentExp
	AndExp
	OrExp
	NotExp
	ImpliesExp
	IffExp
	ExistsExp
	ForallExp
	PlusExp
	MinusExp
	TimesExp
	DivExp
	EqualsExp
	LTExp
	LEExp
)

var exprKindNames = map[ExprKind]string{
	BoolConstant: "bool", IntConstant: "int", RealConstant: "real",
	ObjectExp: "object", ParamExp: "parameter", VariableExp: "variable",
	FluentExp: "fluent", AndExp: "and", OrExp: "or", NotExp: "not",
	ImpliesExp: "implies", IffExp: "iff", ExistsExp: "exists",
	ForallExp: "forall", PlusExp: "+", MinusExp: "-", TimesExp: "*",
	DivExp: "/", EqualsExp: "=", LTExp: "<", LEExp: "<=",
}

func (k ExprKind) String() string { return exprKindNames[k] }

// Expression is one interned node of an expression tree. Nodes are
// immutable and hash-consed by the owning ExpressionManager: structurally
// identical expressions are the same pointer, so equality is pointer
// comparison and the computed type is memoized once per distinct node.
type Expression struct {
	kind ExprKind
	typ  *Type
	args []*Expression

	// payload, populated according to kind
	bval     bool
	ival     int64
	rval     float64
	object   *Object
	fluent   *Fluent
	param    *Parameter
	variable *Variable
	vars     []*Variable // exists/forall bound variables
}

// Kind returns the node kind.
func (e *Expression) Kind() ExprKind { return e.kind }

// Type returns the computed type of the expression.
func (e *Expression) Type() *Type { return e.typ }

// Args returns the operand expressions. Callers must not modify the slice.
func (e *Expression) Args() []*Expression { return e.args }

// Arg returns the i-th operand.
func (e *Expression) Arg(i int) *Expression { return e.args[i] }

// IsConstant reports whether the node is a boolean, numeric or object
// constant.
func (e *Expression) IsConstant() bool {
	switch e.kind {
	case BoolConstant, IntConstant, RealConstant, ObjectExp:
		return true
	}
	return false
}

// IsTrue reports whether the node is the constant true.
func (e *Expression) IsTrue() bool { return e.kind == BoolConstant && e.bval }

// IsFalse reports whether the node is the constant false.
func (e *Expression) IsFalse() bool { return e.kind == BoolConstant && !e.bval }

// BoolValue returns the payload of a boolean constant.
func (e *Expression) BoolValue() bool { return e.bval }

// IntValue returns the payload of an integer constant.
func (e *Expression) IntValue() int64 { return e.ival }

// RealValue returns the payload of a real constant, or the widened value of
// an integer constant.
func (e *Expression) RealValue() float64 {
	if e.kind == IntConstant {
		return float64(e.ival)
	}
	return e.rval
}

// Object returns the payload of an object reference node.
func (e *Expression) Object() *Object { return e.object }

// Fluent returns the fluent of a fluent application node.
func (e *Expression) Fluent() *Fluent { return e.fluent }

// Parameter returns the payload of a parameter reference node.
func (e *Expression) Parameter() *Parameter { return e.param }

// Variable returns the payload of a variable reference node.
func (e *Expression) Variable() *Variable { return e.variable }

// Vars returns the bound variables of an exists/forall node.
func (e *Expression) Vars() []*Variable { return e.vars }

// String renders the expression in a prefix form for diagnostics and for
// encoding bindings into ground action names.
func (e *Expression) String() string {
	switch e.kind {
	case BoolConstant:
		return strconv.FormatBool(e.bval)
	case IntConstant:
		return strconv.FormatInt(e.ival, 10)
	case RealConstant:
		return strconv.FormatFloat(e.rval, 'g', -1, 64)
	case ObjectExp:
		return e.object.name
	case ParamExp:
		return e.param.name
	case VariableExp:
		return e.variable.name
	case FluentExp:
		if len(e.args) == 0 {
			return e.fluent.name
		}
		parts := make([]string, len(e.args))
		for i, a := range e.args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", e.fluent.name, strings.Join(parts, ", "))
	case ExistsExp, ForallExp:
		vars := make([]string, len(e.vars))
		for i, v := range e.vars {
			vars[i] = v.String()
		}
		return fmt.Sprintf("(%s (%s) %s)", e.kind, strings.Join(vars, ", "), e.args[0])
	default:
		parts := make([]string, len(e.args))
		for i, a := range e.args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("(%s %s)", e.kind, strings.Join(parts, " "))
	}
}

// ExpressionManager is the arena of interned expression nodes for one
// environment. Construction goes through its typed make-methods, which
// validate arity and operand types before interning. The intern table uses
// insert-if-absent under a mutex so a concurrent caller is safe, though the
// core itself is single-threaded.
type ExpressionManager struct {
	env *Environment

	mu    sync.Mutex
	table map[string]*Expression

	trueExpr  *Expression
	falseExpr *Expression
}

func newExpressionManager(env *Environment) *ExpressionManager {
	m := &ExpressionManager{env: env, table: make(map[string]*Expression)}
	m.trueExpr = m.intern(&Expression{kind: BoolConstant, bval: true, typ: env.types.Bool()})
	m.falseExpr = m.intern(&Expression{kind: BoolConstant, bval: false, typ: env.types.Bool()})
	return m
}

// internKey builds the structural identity key of a node. Operand identity
// is pointer identity because operands are themselves interned.
func internKey(e *Expression) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", int(e.kind))
	switch e.kind {
	case BoolConstant:
		fmt.Fprintf(&b, "|%t", e.bval)
	case IntConstant:
		fmt.Fprintf(&b, "|%d", e.ival)
	case RealConstant:
		fmt.Fprintf(&b, "|%x", e.rval)
	case ObjectExp:
		fmt.Fprintf(&b, "|%p", e.object)
	case ParamExp:
		fmt.Fprintf(&b, "|%p", e.param)
	case VariableExp:
		fmt.Fprintf(&b, "|%p", e.variable)
	case FluentExp:
		fmt.Fprintf(&b, "|%p", e.fluent)
	case ExistsExp, ForallExp:
		for _, v := range e.vars {
			fmt.Fprintf(&b, "|%p", v)
		}
	}
	for _, a := range e.args {
		fmt.Fprintf(&b, "|%p", a)
	}
	return b.String()
}

func (m *ExpressionManager) intern(e *Expression) *Expression {
	key := internKey(e)
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.table[key]; ok {
		return existing
	}
	m.table[key] = e
	return e
}

// TrueExpr returns the constant true.
func (m *ExpressionManager) TrueExpr() *Expression { return m.trueExpr }

// FalseExpr returns the constant false.
func (m *ExpressionManager) FalseExpr() *Expression { return m.falseExpr }

// Bool returns a boolean constant.
func (m *ExpressionManager) Bool(v bool) *Expression {
	if v {
		return m.trueExpr
	}
	return m.falseExpr
}

// Int returns an integer constant.
func (m *ExpressionManager) Int(v int64) *Expression {
	return m.intern(&Expression{kind: IntConstant, ival: v, typ: m.env.types.Int()})
}

// Real returns a real constant.
func (m *ExpressionManager) Real(v float64) *Expression {
	return m.intern(&Expression{kind: RealConstant, rval: v, typ: m.env.types.Real()})
}

// ObjectExp returns a reference to a concrete object.
func (m *ExpressionManager) ObjectExp(o *Object) *Expression {
	return m.intern(&Expression{kind: ObjectExp, object: o, typ: o.typ})
}

// ParameterExp returns a reference to an action or fluent parameter.
func (m *ExpressionManager) ParameterExp(p *Parameter) *Expression {
	return m.intern(&Expression{kind: ParamExp, param: p, typ: p.typ})
}

// VariableExp returns a reference to a quantifier variable.
func (m *ExpressionManager) VariableExp(v *Variable) *Expression {
	return m.intern(&Expression{kind: VariableExp, variable: v, typ: v.typ})
}

// FluentExp applies a fluent to argument expressions, checking arity and
// argument types against the fluent declaration. Argument order is
// positional and never reordered.
func (m *ExpressionManager) FluentExp(f *Fluent, args ...*Expression) (*Expression, error) {
	if len(args) != f.Arity() {
		return nil, &TypeError{Op: "FluentExp", Message: fmt.Sprintf("%s expects %d arguments, got %d", f.name, f.Arity(), len(args))}
	}
	for i, a := range args {
		if !a.typ.IsSubtypeOf(f.params[i].typ) {
			return nil, &TypeError{Op: "FluentExp", Message: fmt.Sprintf("argument %d of %s: expected %s, got %s", i, f.name, f.params[i].typ, a.typ)}
		}
	}
	return m.intern(&Expression{kind: FluentExp, fluent: f, args: args, typ: f.valueType}), nil
}

func (m *ExpressionManager) checkBool(op string, args []*Expression) error {
	for i, a := range args {
		if !a.typ.IsBool() {
			return &TypeError{Op: op, Message: fmt.Sprintf("operand %d must be boolean, got %s", i, a.typ)}
		}
	}
	return nil
}

// And builds an n-ary conjunction. Nested conjunctions are flattened, so
// And(And(a, b), c) and And(a, b, c) are the same node. Zero operands yield
// the constant true, one operand yields the operand itself.
func (m *ExpressionManager) And(args ...*Expression) (*Expression, error) {
	if err := m.checkBool("And", args); err != nil {
		return nil, err
	}
	flat := flatten(AndExp, args)
	switch len(flat) {
	case 0:
		return m.trueExpr, nil
	case 1:
		return flat[0], nil
	}
	return m.intern(&Expression{kind: AndExp, args: flat, typ: m.env.types.Bool()}), nil
}

// Or builds an n-ary disjunction with the dual conventions of And.
func (m *ExpressionManager) Or(args ...*Expression) (*Expression, error) {
	if err := m.checkBool("Or", args); err != nil {
		return nil, err
	}
	flat := flatten(OrExp, args)
	switch len(flat) {
	case 0:
		return m.falseExpr, nil
	case 1:
		return flat[0], nil
	}
	return m.intern(&Expression{kind: OrExp, args: flat, typ: m.env.types.Bool()}), nil
}

func flatten(kind ExprKind, args []*Expression) []*Expression {
	flat := make([]*Expression, 0, len(args))
	for _, a := range args {
		if a.kind == kind {
			flat = append(flat, a.args...)
		} else {
			flat = append(flat, a)
		}
	}
	return flat
}

// Not builds a negation.
func (m *ExpressionManager) Not(a *Expression) (*Expression, error) {
	if err := m.checkBool("Not", []*Expression{a}); err != nil {
		return nil, err
	}
	return m.intern(&Expression{kind: NotExp, args: []*Expression{a}, typ: m.env.types.Bool()}), nil
}

// Implies builds a material implication.
func (m *ExpressionManager) Implies(a, b *Expression) (*Expression, error) {
	if err := m.checkBool("Implies", []*Expression{a, b}); err != nil {
		return nil, err
	}
	return m.intern(&Expression{kind: ImpliesExp, args: []*Expression{a, b}, typ: m.env.types.Bool()}), nil
}

// Iff builds a bi-implication.
func (m *ExpressionManager) Iff(a, b *Expression) (*Expression, error) {
	if err := m.checkBool("Iff", []*Expression{a, b}); err != nil {
		return nil, err
	}
	return m.intern(&Expression{kind: IffExp, args: []*Expression{a, b}, typ: m.env.types.Bool()}), nil
}

func (m *ExpressionManager) quantified(kind ExprKind, body *Expression, vars []*Variable) (*Expression, error) {
	op := exprKindNames[kind]
	if !body.typ.IsBool() {
		return nil, &TypeError{Op: op, Message: fmt.Sprintf("body must be boolean, got %s", body.typ)}
	}
	if len(vars) == 0 {
		return nil, &TypeError{Op: op, Message: "at least one bound variable is required"}
	}
	for _, v := range vars {
		if !v.typ.IsUser() {
			return nil, &TypeError{Op: op, Message: fmt.Sprintf("variable %s must range over a user type, got %s", v.name, v.typ)}
		}
	}
	return m.intern(&Expression{kind: kind, args: []*Expression{body}, vars: vars, typ: m.env.types.Bool()}), nil
}

// Exists builds an existentially quantified expression.
func (m *ExpressionManager) Exists(body *Expression, vars ...*Variable) (*Expression, error) {
	return m.quantified(ExistsExp, body, vars)
}

// Forall builds a universally quantified expression.
func (m *ExpressionManager) Forall(body *Expression, vars ...*Variable) (*Expression, error) {
	return m.quantified(ForallExp, body, vars)
}

func (m *ExpressionManager) numericType(op string, args []*Expression) (*Type, error) {
	allInt := true
	for i, a := range args {
		if !a.typ.IsNumeric() {
			return nil, &TypeError{Op: op, Message: fmt.Sprintf("operand %d must be numeric, got %s", i, a.typ)}
		}
		if !a.typ.IsInt() {
			allInt = false
		}
	}
	if allInt {
		return m.env.types.Int(), nil
	}
	return m.env.types.Real(), nil
}

// Plus builds an n-ary sum.
func (m *ExpressionManager) Plus(args ...*Expression) (*Expression, error) {
	if len(args) < 2 {
		return nil, &TypeError{Op: "Plus", Message: "at least two operands are required"}
	}
	typ, err := m.numericType("Plus", args)
	if err != nil {
		return nil, err
	}
	return m.intern(&Expression{kind: PlusExp, args: args, typ: typ}), nil
}

// Minus builds a binary subtraction.
func (m *ExpressionManager) Minus(a, b *Expression) (*Expression, error) {
	typ, err := m.numericType("Minus", []*Expression{a, b})
	if err != nil {
		return nil, err
	}
	return m.intern(&Expression{kind: MinusExp, args: []*Expression{a, b}, typ: typ}), nil
}

// Times builds an n-ary product.
func (m *ExpressionManager) Times(args ...*Expression) (*Expression, error) {
	if len(args) < 2 {
		return nil, &TypeError{Op: "Times", Message: "at least two operands are required"}
	}
	typ, err := m.numericType("Times", args)
	if err != nil {
		return nil, err
	}
	return m.intern(&Expression{kind: TimesExp, args: args, typ: typ}), nil
}

// Div builds a binary division. The result type is real: integer division
// is not closed over the integers.
func (m *ExpressionManager) Div(a, b *Expression) (*Expression, error) {
	if _, err := m.numericType("Div", []*Expression{a, b}); err != nil {
		return nil, err
	}
	return m.intern(&Expression{kind: DivExp, args: []*Expression{a, b}, typ: m.env.types.Real()}), nil
}

// Equals builds an equality between two numeric expressions or two
// expressions of related user types. Boolean operands must use Iff.
func (m *ExpressionManager) Equals(a, b *Expression) (*Expression, error) {
	ok := a.typ.IsNumeric() && b.typ.IsNumeric() ||
		a.typ.IsUser() && b.typ.IsUser() && (a.typ.IsSubtypeOf(b.typ) || b.typ.IsSubtypeOf(a.typ))
	if !ok {
		return nil, &TypeError{Op: "Equals", Message: fmt.Sprintf("cannot compare %s with %s", a.typ, b.typ)}
	}
	return m.intern(&Expression{kind: EqualsExp, args: []*Expression{a, b}, typ: m.env.types.Bool()}), nil
}

// LT builds a strict numeric comparison.
func (m *ExpressionManager) LT(a, b *Expression) (*Expression, error) {
	if _, err := m.numericType("LT", []*Expression{a, b}); err != nil {
		return nil, err
	}
	return m.intern(&Expression{kind: LTExp, args: []*Expression{a, b}, typ: m.env.types.Bool()}), nil
}

// LE builds a non-strict numeric comparison.
func (m *ExpressionManager) LE(a, b *Expression) (*Expression, error) {
	if _, err := m.numericType("LE", []*Expression{a, b}); err != nil {
		return nil, err
	}
	return m.intern(&Expression{kind: LEExp, args: []*Expression{a, b}, typ: m.env.types.Bool()}), nil
}

// Rebuild re-creates an expression of the given kind with new operands,
// preserving kind-specific payloads from the template node. It is the
// generic step used by tree-rewriting walkers.
func (m *ExpressionManager) Rebuild(template *Expression, args []*Expression) (*Expression, error) {
	switch template.kind {
	case BoolConstant, IntConstant, RealConstant, ObjectExp, ParamExp, VariableExp:
		return template, nil
	case FluentExp:
		return m.FluentExp(template.fluent, args...)
	case AndExp:
		return m.And(args...)
	case OrExp:
		return m.Or(args...)
	case NotExp:
		return m.Not(args[0])
	case ImpliesExp:
		return m.Implies(args[0], args[1])
	case IffExp:
		return m.Iff(args[0], args[1])
	case ExistsExp:
		return m.Exists(args[0], template.vars...)
	case ForallExp:
		return m.Forall(args[0], template.vars...)
	case PlusExp:
		return m.Plus(args...)
	case MinusExp:
		return m.Minus(args[0], args[1])
	case TimesExp:
		return m.Times(args...)
	case DivExp:
		return m.Div(args[0], args[1])
	case EqualsExp:
		return m.Equals(args[0], args[1])
	case LTExp:
		return m.LT(args[0], args[1])
	case LEExp:
		return m.LE(args[0], args[1])
	}
	return nil, &TypeError{Op: "Rebuild", Message: fmt.Sprintf("unknown expression kind %d", template.kind)}
}
