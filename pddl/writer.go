package pddl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aiplan4eu/unified-planning-sub004/model"
)

// Writer renders a model.Problem as a PDDL domain and problem pair.
type Writer struct {
	problem *model.Problem
}

// NewWriter creates a writer for the problem.
func NewWriter(p *model.Problem) *Writer {
	return &Writer{problem: p}
}

// Domain renders the domain file.
func (w *Writer) Domain() (string, error) {
	p := w.problem
	var b strings.Builder
	fmt.Fprintf(&b, "(define (domain %s-domain)\n", sanitize(p.Name()))
	fmt.Fprintf(&b, "  (:requirements %s)\n", strings.Join(w.requirements(), " "))

	if types := w.userTypes(); len(types) > 0 {
		b.WriteString("  (:types")
		for _, t := range types {
			parent := "object"
			if pt := t.Parent(); pt != nil {
				parent = pt.Name()
			}
			fmt.Fprintf(&b, " %s - %s", t.Name(), parent)
		}
		b.WriteString(")\n")
	}

	var predicates, functions []string
	for _, f := range p.Fluents() {
		decl := fluentDecl(f)
		if f.ValueType().IsBool() {
			predicates = append(predicates, decl)
		} else if f.ValueType().IsNumeric() {
			functions = append(functions, decl)
		} else {
			return "", fmt.Errorf("fluent %s: PDDL cannot express %s valued fluents", f.Name(), f.ValueType())
		}
	}
	if len(predicates) > 0 {
		fmt.Fprintf(&b, "  (:predicates %s)\n", strings.Join(predicates, " "))
	}
	if len(functions) > 0 {
		fmt.Fprintf(&b, "  (:functions %s)\n", strings.Join(functions, " "))
	}

	for _, a := range p.Actions() {
		act, ok := a.(*model.InstantaneousAction)
		if !ok {
			return "", fmt.Errorf("action %s: only instantaneous actions are written", a.Name())
		}
		if err := writeAction(&b, act); err != nil {
			return "", err
		}
	}
	b.WriteString(")\n")
	return b.String(), nil
}

// Problem renders the problem file.
func (w *Writer) Problem() (string, error) {
	p := w.problem
	var b strings.Builder
	fmt.Fprintf(&b, "(define (problem %s)\n", sanitize(p.Name()))
	fmt.Fprintf(&b, "  (:domain %s-domain)\n", sanitize(p.Name()))

	if objects := p.Objects(); len(objects) > 0 {
		b.WriteString("  (:objects")
		for _, o := range objects {
			fmt.Fprintf(&b, " %s - %s", o.Name(), o.Type().Name())
		}
		b.WriteString(")\n")
	}

	b.WriteString("  (:init")
	for _, app := range p.ExplicitInitialValues() {
		value, err := p.InitialValue(app)
		if err != nil {
			return "", err
		}
		entry, err := initEntry(app, value)
		if err != nil {
			return "", err
		}
		if entry != "" {
			b.WriteString(" " + entry)
		}
	}
	b.WriteString(")\n")

	goals := make([]string, 0, len(p.Goals()))
	for _, g := range p.Goals() {
		s, err := writeExpr(g)
		if err != nil {
			return "", err
		}
		goals = append(goals, s)
	}
	switch len(goals) {
	case 0:
		b.WriteString("  (:goal (and))\n")
	case 1:
		fmt.Fprintf(&b, "  (:goal %s)\n", goals[0])
	default:
		fmt.Fprintf(&b, "  (:goal (and %s))\n", strings.Join(goals, " "))
	}

	if m := p.Metric(); m != nil {
		switch m.Kind() {
		case model.MinimizeExpression, model.MaximizeExpression:
			s, err := writeExpr(m.Expr())
			if err != nil {
				return "", err
			}
			dir := "minimize"
			if m.Kind() == model.MaximizeExpression {
				dir = "maximize"
			}
			fmt.Fprintf(&b, "  (:metric %s %s)\n", dir, s)
		}
	}
	b.WriteString(")\n")
	return b.String(), nil
}

func (w *Writer) requirements() []string {
	reqs := []string{":strips"}
	kind := w.problem.Kind()
	if len(w.userTypes()) > 0 {
		reqs = append(reqs, ":typing")
	}
	if kind.Has(model.FeatureNegativeConditions) {
		reqs = append(reqs, ":negative-preconditions")
	}
	if kind.Has(model.FeatureDisjunctiveConditions) {
		reqs = append(reqs, ":disjunctive-preconditions")
	}
	if kind.Has(model.FeatureEqualities) {
		reqs = append(reqs, ":equality")
	}
	if kind.Has(model.FeatureExistentialConditions) {
		reqs = append(reqs, ":existential-preconditions")
	}
	if kind.Has(model.FeatureUniversalConditions) || kind.Has(model.FeatureForallEffects) {
		reqs = append(reqs, ":universal-preconditions")
	}
	if kind.Has(model.FeatureConditionalEffects) {
		reqs = append(reqs, ":conditional-effects")
	}
	if kind.Has(model.FeatureNumericFluents) {
		reqs = append(reqs, ":numeric-fluents")
	}
	return reqs
}

// userTypes lists the user types referenced by the problem's objects,
// fluents and parameters, parents included, in first-occurrence order.
func (w *Writer) userTypes() []*model.Type {
	var ordered []*model.Type
	seen := make(map[*model.Type]bool)
	add := func(t *model.Type) {
		for t != nil && t.IsUser() && t.Name() != "object" && !seen[t] {
			seen[t] = true
			ordered = append(ordered, t)
			t = t.Parent()
		}
	}
	for _, o := range w.problem.Objects() {
		add(o.Type())
	}
	for _, f := range w.problem.Fluents() {
		for _, par := range f.Parameters() {
			add(par.Type())
		}
	}
	for _, a := range w.problem.Actions() {
		for _, par := range a.Parameters() {
			add(par.Type())
		}
	}
	return ordered
}

func fluentDecl(f *model.Fluent) string {
	if f.Arity() == 0 {
		return "(" + f.Name() + ")"
	}
	parts := make([]string, f.Arity())
	for i, par := range f.Parameters() {
		parts[i] = fmt.Sprintf("?%s - %s", par.Name(), typeName(par.Type()))
	}
	return fmt.Sprintf("(%s %s)", f.Name(), strings.Join(parts, " "))
}

func typeName(t *model.Type) string {
	if t.IsUser() {
		return t.Name()
	}
	return "object"
}

func writeAction(b *strings.Builder, act *model.InstantaneousAction) error {
	fmt.Fprintf(b, "  (:action %s\n", sanitize(act.Name()))
	b.WriteString("    :parameters (")
	for i, par := range act.Parameters() {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(b, "?%s - %s", par.Name(), typeName(par.Type()))
	}
	b.WriteString(")\n")

	precs := make([]string, 0, len(act.Preconditions()))
	for _, c := range act.Preconditions() {
		s, err := writeExpr(c)
		if err != nil {
			return err
		}
		precs = append(precs, s)
	}
	switch len(precs) {
	case 0:
		b.WriteString("    :precondition (and)\n")
	case 1:
		fmt.Fprintf(b, "    :precondition %s\n", precs[0])
	default:
		fmt.Fprintf(b, "    :precondition (and %s)\n", strings.Join(precs, " "))
	}

	effs := make([]string, 0, len(act.Effects()))
	for _, e := range act.Effects() {
		s, err := writeEffect(e)
		if err != nil {
			return err
		}
		effs = append(effs, s)
	}
	switch len(effs) {
	case 0:
		b.WriteString("    :effect (and)\n")
	case 1:
		fmt.Fprintf(b, "    :effect %s\n", effs[0])
	default:
		fmt.Fprintf(b, "    :effect (and %s)\n", strings.Join(effs, " "))
	}
	b.WriteString("  )\n")
	return nil
}

func writeEffect(e *model.Effect) (string, error) {
	target, err := writeExpr(e.Target())
	if err != nil {
		return "", err
	}
	var core string
	switch e.EffectKind() {
	case model.IncreaseEffect, model.DecreaseEffect:
		value, err := writeExpr(e.Value())
		if err != nil {
			return "", err
		}
		op := "increase"
		if e.EffectKind() == model.DecreaseEffect {
			op = "decrease"
		}
		core = fmt.Sprintf("(%s %s %s)", op, target, value)
	default:
		switch {
		case e.Value().IsTrue():
			core = target
		case e.Value().IsFalse():
			core = fmt.Sprintf("(not %s)", target)
		default:
			value, err := writeExpr(e.Value())
			if err != nil {
				return "", err
			}
			core = fmt.Sprintf("(assign %s %s)", target, value)
		}
	}
	if e.IsConditional() {
		cond, err := writeExpr(e.Condition())
		if err != nil {
			return "", err
		}
		core = fmt.Sprintf("(when %s %s)", cond, core)
	}
	if vars := e.Forall(); len(vars) > 0 {
		parts := make([]string, len(vars))
		for i, v := range vars {
			parts[i] = fmt.Sprintf("?%s - %s", v.Name(), typeName(v.Type()))
		}
		core = fmt.Sprintf("(forall (%s) %s)", strings.Join(parts, " "), core)
	}
	return core, nil
}

func initEntry(app, value *model.Expression) (string, error) {
	target, err := writeExpr(app)
	if err != nil {
		return "", err
	}
	switch {
	case value.IsTrue():
		return target, nil
	case value.IsFalse():
		// Closed world: false is the default.
		return "", nil
	default:
		v, err := writeExpr(value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(= %s %s)", target, v), nil
	}
}

func writeExpr(e *model.Expression) (string, error) {
	switch e.Kind() {
	case model.BoolConstant:
		if e.IsTrue() {
			return "(and)", nil
		}
		return "(or)", nil
	case model.IntConstant:
		return strconv.FormatInt(e.IntValue(), 10), nil
	case model.RealConstant:
		return strconv.FormatFloat(e.RealValue(), 'g', -1, 64), nil
	case model.ObjectExp:
		return e.Object().Name(), nil
	case model.ParamExp:
		return "?" + e.Parameter().Name(), nil
	case model.VariableExp:
		return "?" + e.Variable().Name(), nil
	case model.FluentExp:
		if len(e.Args()) == 0 {
			return "(" + e.Fluent().Name() + ")", nil
		}
		args, err := writeArgs(e.Args())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s)", e.Fluent().Name(), args), nil
	case model.AndExp, model.OrExp, model.PlusExp, model.MinusExp, model.TimesExp, model.DivExp, model.EqualsExp, model.LTExp, model.LEExp:
		op := map[model.ExprKind]string{
			model.AndExp: "and", model.OrExp: "or", model.PlusExp: "+",
			model.MinusExp: "-", model.TimesExp: "*", model.DivExp: "/",
			model.EqualsExp: "=", model.LTExp: "<", model.LEExp: "<=",
		}[e.Kind()]
		args, err := writeArgs(e.Args())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s)", op, args), nil
	case model.NotExp:
		arg, err := writeExpr(e.Arg(0))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(not %s)", arg), nil
	case model.ImpliesExp:
		args, err := writeArgs(e.Args())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(imply %s)", args), nil
	case model.IffExp:
		a, err := writeExpr(e.Arg(0))
		if err != nil {
			return "", err
		}
		b, err := writeExpr(e.Arg(1))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(and (imply %s %s) (imply %s %s))", a, b, b, a), nil
	case model.ExistsExp, model.ForallExp:
		op := "exists"
		if e.Kind() == model.ForallExp {
			op = "forall"
		}
		parts := make([]string, len(e.Vars()))
		for i, v := range e.Vars() {
			parts[i] = fmt.Sprintf("?%s - %s", v.Name(), typeName(v.Type()))
		}
		body, err := writeExpr(e.Arg(0))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s (%s) %s)", op, strings.Join(parts, " "), body), nil
	}
	return "", fmt.Errorf("cannot write expression kind %s", e.Kind())
}

func writeArgs(args []*model.Expression) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := writeExpr(a)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, " "), nil
}

// sanitize rewrites a model name into a PDDL identifier: the binding
// syntax of ground names, "a(o1, o2)", becomes "a_o1_o2".
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '(', ')', ',', ' ':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteRune('_')
			}
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
