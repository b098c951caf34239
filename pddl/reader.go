package pddl

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aiplan4eu/unified-planning-sub004/model"
)

// Reader builds a model.Problem from a PDDL domain and problem pair.
type Reader struct {
	env *model.Environment
}

// NewReader creates a reader over the environment.
func NewReader(env *model.Environment) *Reader {
	return &Reader{env: env}
}

// ReadFiles reads a domain file and a problem file.
func (r *Reader) ReadFiles(domainPath, problemPath string) (*model.Problem, error) {
	domain, err := os.ReadFile(domainPath)
	if err != nil {
		return nil, fmt.Errorf("reading domain %s: %w", domainPath, err)
	}
	problem, err := os.ReadFile(problemPath)
	if err != nil {
		return nil, fmt.Errorf("reading problem %s: %w", problemPath, err)
	}
	return r.Read(domainPath, string(domain), problemPath, string(problem))
}

// Read parses domain and problem sources into one model.Problem.
func (r *Reader) Read(domainName, domainSrc, problemName, problemSrc string) (*model.Problem, error) {
	domain, err := parseOne(domainName, domainSrc)
	if err != nil {
		return nil, err
	}
	problemForm, err := parseOne(problemName, problemSrc)
	if err != nil {
		return nil, err
	}
	name, err := definedName(problemForm, "problem")
	if err != nil {
		return nil, err
	}
	if _, err := definedName(domain, "domain"); err != nil {
		return nil, err
	}

	p := model.NewProblem(r.env, name)
	ld := &loader{env: r.env, problem: p}

	// Declarations first, in dependency order: types, then constants and
	// objects, then fluents, then actions, then the initial state and
	// goals that reference all of the above.
	for _, form := range domain.items()[2:] {
		switch form.head() {
		case ":types":
			err = ld.loadTypes(form)
		case ":constants":
			err = ld.loadObjects(form)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, form := range problemForm.items()[2:] {
		if form.head() == ":objects" {
			if err := ld.loadObjects(form); err != nil {
				return nil, err
			}
		}
	}
	for _, form := range domain.items()[2:] {
		switch form.head() {
		case ":predicates":
			err = ld.loadPredicates(form)
		case ":functions":
			err = ld.loadFunctions(form)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, form := range domain.items()[2:] {
		if form.head() == ":action" {
			if err := ld.loadAction(form); err != nil {
				return nil, err
			}
		}
	}
	for _, form := range problemForm.items()[2:] {
		switch form.head() {
		case ":init":
			err = ld.loadInit(form)
		case ":goal":
			err = ld.loadGoal(form)
		case ":metric":
			err = ld.loadMetric(form)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// definedName extracts NAME from (define (domain|problem NAME) ...).
func definedName(form *sexpr, kind string) (string, error) {
	items := form.items()
	if len(items) < 2 || form.head() != "define" {
		return "", fmt.Errorf("expected (define (%s ...) ...), got %s", kind, form)
	}
	header := items[1]
	if header.head() != kind || len(header.items()) != 2 {
		return "", fmt.Errorf("expected (%s NAME), got %s", kind, header)
	}
	return header.items()[1].atom(), nil
}

type loader struct {
	env     *model.Environment
	problem *model.Problem
}

// typedName is one entry of a PDDL typed list.
type typedName struct {
	name string
	typ  *model.Type
}

// parseTypedList reads "n1 n2 - t1 n3 - t2 n4" groups. Names without an
// explicit type get the root object type.
func (l *loader) parseTypedList(items []*sexpr) ([]typedName, error) {
	var out []typedName
	pending := 0
	for i := 0; i < len(items); i++ {
		it := items[i]
		if it.Op != nil && *it.Op == "-" {
			if i+1 >= len(items) || items[i+1].isList() {
				return nil, fmt.Errorf("dangling type marker in %v", items)
			}
			typ, err := l.typeByName(items[i+1].atom())
			if err != nil {
				return nil, err
			}
			for j := len(out) - pending; j < len(out); j++ {
				out[j].typ = typ
			}
			pending = 0
			i++
			continue
		}
		if it.isList() {
			return nil, fmt.Errorf("unexpected list in typed list: %s", it)
		}
		out = append(out, typedName{name: it.atom(), typ: l.env.Types().Object()})
		pending++
	}
	return out, nil
}

func (l *loader) typeByName(name string) (*model.Type, error) {
	if strings.EqualFold(name, "object") {
		return l.env.Types().Object(), nil
	}
	return l.env.Types().Lookup(name)
}

func (l *loader) loadTypes(form *sexpr) error {
	items := form.items()[1:]
	// Groups may reference a parent declared in a later group, so parents
	// are created on demand under the root and refined in order.
	pending := 0
	for i := 0; i < len(items); i++ {
		it := items[i]
		if it.Op != nil && *it.Op == "-" {
			if i+1 >= len(items) {
				return fmt.Errorf("dangling type marker in :types")
			}
			parentName := items[i+1].atom()
			parent, err := l.ensureType(parentName)
			if err != nil {
				return err
			}
			for j := i - pending; j < i; j++ {
				if _, err := l.env.Types().UserType(items[j].atom(), parent); err != nil {
					return err
				}
			}
			pending = 0
			i++
			continue
		}
		pending++
	}
	for i := len(items) - pending; i < len(items); i++ {
		if _, err := l.ensureType(items[i].atom()); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) ensureType(name string) (*model.Type, error) {
	if strings.EqualFold(name, "object") {
		return l.env.Types().Object(), nil
	}
	if l.env.Types().HasUserType(name) {
		return l.env.Types().Lookup(name)
	}
	return l.env.Types().UserType(name, nil)
}

func (l *loader) loadObjects(form *sexpr) error {
	entries, err := l.parseTypedList(form.items()[1:])
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := l.problem.AddObject(e.name, e.typ); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) loadPredicates(form *sexpr) error {
	for _, decl := range form.items()[1:] {
		if !decl.isList() || len(decl.items()) == 0 {
			return fmt.Errorf("malformed predicate declaration %s", decl)
		}
		params, err := l.parseParameters(decl.items()[1:])
		if err != nil {
			return err
		}
		f := model.NewFluent(decl.items()[0].atom(), l.env.Types().Bool(), params...)
		if err := l.problem.AddFluentWithDefault(f, l.env.Exprs().Bool(false)); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) loadFunctions(form *sexpr) error {
	for _, decl := range form.items()[1:] {
		// The "- number" marker after a declaration is implicit here.
		if decl.Op != nil && *decl.Op == "-" {
			continue
		}
		if !decl.isList() {
			if strings.EqualFold(decl.atom(), "number") {
				continue
			}
			return fmt.Errorf("malformed function declaration %s", decl)
		}
		params, err := l.parseParameters(decl.items()[1:])
		if err != nil {
			return err
		}
		f := model.NewFluent(decl.items()[0].atom(), l.env.Types().Real(), params...)
		if err := l.problem.AddFluentWithDefault(f, l.env.Exprs().Real(0)); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) parseParameters(items []*sexpr) ([]*model.Parameter, error) {
	entries, err := l.parseTypedList(items)
	if err != nil {
		return nil, err
	}
	params := make([]*model.Parameter, len(entries))
	for i, e := range entries {
		params[i] = model.NewParameter(strings.TrimPrefix(e.name, "?"), e.typ)
	}
	return params, nil
}

// scope maps variable and parameter names (without the ? sigil) to their
// reference expressions.
type scope map[string]*model.Expression

func (s scope) extend() scope {
	child := make(scope, len(s))
	for k, v := range s {
		child[k] = v
	}
	return child
}

func (l *loader) loadAction(form *sexpr) error {
	items := form.items()
	if len(items) < 2 {
		return fmt.Errorf("malformed action %s", form)
	}
	name := items[1].atom()
	var params []*model.Parameter
	var precondition, effect *sexpr
	for i := 2; i+1 < len(items); i += 2 {
		key := strings.ToLower(items[i].atom())
		value := items[i+1]
		switch key {
		case ":parameters":
			var err error
			params, err = l.parseParameters(value.items())
			if err != nil {
				return fmt.Errorf("action %s: %w", name, err)
			}
		case ":precondition":
			precondition = value
		case ":effect":
			effect = value
		default:
			return fmt.Errorf("action %s: unsupported section %s", name, key)
		}
	}
	act := model.NewInstantaneousAction(l.env, name, params...)
	sc := make(scope, len(params))
	for _, p := range params {
		sc[p.Name()] = l.env.Exprs().ParameterExp(p)
	}
	if precondition != nil {
		pre, err := l.parseExpr(sc, precondition)
		if err != nil {
			return fmt.Errorf("action %s: %w", name, err)
		}
		if !pre.IsTrue() {
			if err := act.AddPrecondition(pre); err != nil {
				return fmt.Errorf("action %s: %w", name, err)
			}
		}
	}
	if effect != nil {
		if err := l.parseEffect(sc, act, effect, nil, nil); err != nil {
			return fmt.Errorf("action %s: %w", name, err)
		}
	}
	return l.problem.AddAction(act)
}

func (l *loader) parseExpr(sc scope, node *sexpr) (*model.Expression, error) {
	exprs := l.env.Exprs()
	if !node.isList() {
		return l.parseAtom(sc, node)
	}
	items := node.items()
	if len(items) == 0 {
		return exprs.TrueExpr(), nil
	}
	head := node.head()
	args := func() ([]*model.Expression, error) {
		out := make([]*model.Expression, len(items)-1)
		for i, it := range items[1:] {
			e, err := l.parseExpr(sc, it)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	}
	switch head {
	case "and":
		as, err := args()
		if err != nil {
			return nil, err
		}
		return exprs.And(as...)
	case "or":
		as, err := args()
		if err != nil {
			return nil, err
		}
		return exprs.Or(as...)
	case "not":
		as, err := args()
		if err != nil {
			return nil, err
		}
		if len(as) != 1 {
			return nil, fmt.Errorf("not takes one operand: %s", node)
		}
		return exprs.Not(as[0])
	case "imply":
		as, err := args()
		if err != nil {
			return nil, err
		}
		if len(as) != 2 {
			return nil, fmt.Errorf("imply takes two operands: %s", node)
		}
		return exprs.Implies(as[0], as[1])
	case "exists", "forall":
		if len(items) != 3 {
			return nil, fmt.Errorf("%s takes a variable list and a body: %s", head, node)
		}
		entries, err := l.parseTypedList(items[1].items())
		if err != nil {
			return nil, err
		}
		child := sc.extend()
		vars := make([]*model.Variable, len(entries))
		for i, e := range entries {
			v := model.NewVariable(strings.TrimPrefix(e.name, "?"), e.typ)
			vars[i] = v
			child[v.Name()] = exprs.VariableExp(v)
		}
		body, err := l.parseExpr(child, items[2])
		if err != nil {
			return nil, err
		}
		if head == "exists" {
			return exprs.Exists(body, vars...)
		}
		return exprs.Forall(body, vars...)
	case "=", "<", "<=", ">", ">=":
		as, err := args()
		if err != nil {
			return nil, err
		}
		if len(as) != 2 {
			return nil, fmt.Errorf("%s takes two operands: %s", head, node)
		}
		switch head {
		case "=":
			if as[0].Type().IsBool() && as[1].Type().IsBool() {
				return exprs.Iff(as[0], as[1])
			}
			return exprs.Equals(as[0], as[1])
		case "<":
			return exprs.LT(as[0], as[1])
		case "<=":
			return exprs.LE(as[0], as[1])
		case ">":
			return exprs.LT(as[1], as[0])
		default:
			return exprs.LE(as[1], as[0])
		}
	case "+", "-", "*", "/":
		as, err := args()
		if err != nil {
			return nil, err
		}
		if len(as) < 2 {
			return nil, fmt.Errorf("%s takes at least two operands: %s", head, node)
		}
		switch head {
		case "+":
			return exprs.Plus(as...)
		case "*":
			return exprs.Times(as...)
		case "-":
			return exprs.Minus(as[0], as[1])
		default:
			return exprs.Div(as[0], as[1])
		}
	default:
		f, err := l.problem.Fluent(items[0].atom())
		if err != nil {
			return nil, err
		}
		as, err := args()
		if err != nil {
			return nil, err
		}
		return exprs.FluentExp(f, as...)
	}
}

func (l *loader) parseAtom(sc scope, node *sexpr) (*model.Expression, error) {
	exprs := l.env.Exprs()
	switch {
	case node.Number != nil:
		text := *node.Number
		if !strings.ContainsAny(text, ".eE") {
			v, err := strconv.ParseInt(text, 10, 64)
			if err == nil {
				return exprs.Int(v), nil
			}
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed number %q", text)
		}
		return exprs.Real(v), nil
	case node.Var != nil:
		name := strings.TrimPrefix(*node.Var, "?")
		ref, ok := sc[name]
		if !ok {
			return nil, fmt.Errorf("unbound variable ?%s", name)
		}
		return ref, nil
	case node.Symbol != nil:
		name := *node.Symbol
		if l.problem.HasFluentNamed(name) {
			f, err := l.problem.Fluent(name)
			if err != nil {
				return nil, err
			}
			return exprs.FluentExp(f)
		}
		o, err := l.problem.Object(name)
		if err != nil {
			return nil, err
		}
		return exprs.ObjectExp(o), nil
	}
	return nil, fmt.Errorf("unexpected token %s", node.atom())
}

// parseEffect walks an effect formula, threading the active condition of
// enclosing when forms and the variables of enclosing forall forms.
func (l *loader) parseEffect(sc scope, act *model.InstantaneousAction, node *sexpr, cond *model.Expression, vars []*model.Variable) error {
	exprs := l.env.Exprs()
	if !node.isList() || len(node.items()) == 0 {
		return fmt.Errorf("malformed effect %s", node)
	}
	switch node.head() {
	case "and":
		for _, it := range node.items()[1:] {
			if err := l.parseEffect(sc, act, it, cond, vars); err != nil {
				return err
			}
		}
		return nil
	case "when":
		if len(node.items()) != 3 {
			return fmt.Errorf("when takes a condition and an effect: %s", node)
		}
		guard, err := l.parseExpr(sc, node.items()[1])
		if err != nil {
			return err
		}
		if cond != nil {
			guard, err = exprs.And(cond, guard)
			if err != nil {
				return err
			}
		}
		return l.parseEffect(sc, act, node.items()[2], guard, vars)
	case "forall":
		if len(node.items()) != 3 {
			return fmt.Errorf("forall takes a variable list and an effect: %s", node)
		}
		entries, err := l.parseTypedList(node.items()[1].items())
		if err != nil {
			return err
		}
		child := sc.extend()
		extended := append([]*model.Variable(nil), vars...)
		for _, e := range entries {
			v := model.NewVariable(strings.TrimPrefix(e.name, "?"), e.typ)
			extended = append(extended, v)
			child[v.Name()] = exprs.VariableExp(v)
		}
		return l.parseEffect(child, act, node.items()[2], cond, extended)
	case "not":
		if len(node.items()) != 2 {
			return fmt.Errorf("malformed effect %s", node)
		}
		target, err := l.parseExpr(sc, node.items()[1])
		if err != nil {
			return err
		}
		return l.appendEffect(act, model.AssignEffect, target, exprs.Bool(false), cond, vars)
	case "assign", "increase", "decrease":
		if len(node.items()) != 3 {
			return fmt.Errorf("%s takes a target and a value: %s", node.head(), node)
		}
		target, err := l.parseExpr(sc, node.items()[1])
		if err != nil {
			return err
		}
		value, err := l.parseExpr(sc, node.items()[2])
		if err != nil {
			return err
		}
		kind := model.AssignEffect
		switch node.head() {
		case "increase":
			kind = model.IncreaseEffect
		case "decrease":
			kind = model.DecreaseEffect
		}
		return l.appendEffect(act, kind, target, value, cond, vars)
	default:
		target, err := l.parseExpr(sc, node)
		if err != nil {
			return err
		}
		return l.appendEffect(act, model.AssignEffect, target, exprs.Bool(true), cond, vars)
	}
}

func (l *loader) appendEffect(act *model.InstantaneousAction, kind model.EffectKind, target, value, cond *model.Expression, vars []*model.Variable) error {
	eff, err := model.NewEffect(l.env, kind, target, value, cond, vars...)
	if err != nil {
		return err
	}
	act.AppendEffect(eff)
	return nil
}

func (l *loader) loadInit(form *sexpr) error {
	exprs := l.env.Exprs()
	for _, entry := range form.items()[1:] {
		switch entry.head() {
		case "=":
			if len(entry.items()) != 3 {
				return fmt.Errorf("malformed init entry %s", entry)
			}
			app, err := l.parseExpr(nil, entry.items()[1])
			if err != nil {
				return err
			}
			value, err := l.parseExpr(nil, entry.items()[2])
			if err != nil {
				return err
			}
			if err := l.problem.SetInitialValue(app, value); err != nil {
				return err
			}
		case "not":
			if len(entry.items()) != 2 {
				return fmt.Errorf("malformed init entry %s", entry)
			}
			app, err := l.parseExpr(nil, entry.items()[1])
			if err != nil {
				return err
			}
			if err := l.problem.SetInitialValue(app, exprs.Bool(false)); err != nil {
				return err
			}
		default:
			app, err := l.parseExpr(nil, entry)
			if err != nil {
				return err
			}
			if err := l.problem.SetInitialValue(app, exprs.Bool(true)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *loader) loadGoal(form *sexpr) error {
	if len(form.items()) != 2 {
		return fmt.Errorf("malformed goal %s", form)
	}
	g, err := l.parseExpr(nil, form.items()[1])
	if err != nil {
		return err
	}
	return l.problem.AddGoal(g)
}

func (l *loader) loadMetric(form *sexpr) error {
	items := form.items()
	if len(items) != 3 {
		return fmt.Errorf("malformed metric %s", form)
	}
	expr, err := l.parseExpr(nil, items[2])
	if err != nil {
		return err
	}
	kind := model.MinimizeExpression
	if strings.EqualFold(items[1].atom(), "maximize") {
		kind = model.MaximizeExpression
	}
	m, err := model.NewExpressionMetric(kind, expr)
	if err != nil {
		return err
	}
	l.problem.SetMetric(m)
	return nil
}
