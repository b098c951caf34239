package model

import (
	"sort"
	"strings"
)

// Feature is one expressiveness capability a problem may exercise or a
// solver may support.
type Feature int

const (
	FeatureActionParameters Feature = iota
	FeatureNegativeConditions
	FeatureDisjunctiveConditions
	FeatureEqualities
	FeatureExistentialConditions
	FeatureUniversalConditions
	FeatureConditionalEffects
	FeatureForallEffects
	FeatureIncreaseEffects
	FeatureDecreaseEffects
	FeatureNumericFluents
	FeatureObjectFluents
	FeatureDurativeActions
	FeatureHierarchicalTyping
	FeatureBoundedTypes
	FeaturePlanMetrics

	numFeatures
)

var featureNames = [...]string{
	"ACTION_PARAMETERS",
	"NEGATIVE_CONDITIONS",
	"DISJUNCTIVE_CONDITIONS",
	"EQUALITIES",
	"EXISTENTIAL_CONDITIONS",
	"UNIVERSAL_CONDITIONS",
	"CONDITIONAL_EFFECTS",
	"FORALL_EFFECTS",
	"INCREASE_EFFECTS",
	"DECREASE_EFFECTS",
	"NUMERIC_FLUENTS",
	"OBJECT_FLUENTS",
	"DURATIVE_ACTIONS",
	"HIERARCHICAL_TYPING",
	"BOUNDED_TYPES",
	"PLAN_METRICS",
}

func (f Feature) String() string {
	if f < 0 || f >= numFeatures {
		return "UNKNOWN_FEATURE"
	}
	return featureNames[f]
}

// Kind is the set of features a problem exercises or a solver supports. It
// is a value type; With and Union return new kinds.
type Kind uint32

// EmptyKind is the kind with no features.
const EmptyKind Kind = 0

// FullKind has every feature set, for solvers that support the whole model.
const FullKind Kind = 1<<numFeatures - 1

// KindOf builds a kind from a feature list.
func KindOf(features ...Feature) Kind {
	var k Kind
	for _, f := range features {
		k |= 1 << f
	}
	return k
}

// Has reports whether the feature is in the set.
func (k Kind) Has(f Feature) bool { return k&(1<<f) != 0 }

// With returns the kind extended with the feature.
func (k Kind) With(f Feature) Kind { return k | 1<<f }

// Without returns the kind with the feature removed.
func (k Kind) Without(f Feature) Kind { return k &^ (1 << f) }

// Union returns the combined feature set.
func (k Kind) Union(other Kind) Kind { return k | other }

// IsSubsetOf reports whether every feature of k is also in other.
func (k Kind) IsSubsetOf(other Kind) bool { return k&^other == 0 }

// Features lists the contained features in declaration order.
func (k Kind) Features() []Feature {
	var fs []Feature
	for f := Feature(0); f < numFeatures; f++ {
		if k.Has(f) {
			fs = append(fs, f)
		}
	}
	return fs
}

func (k Kind) String() string {
	fs := k.Features()
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	sort.Strings(names)
	return "{" + strings.Join(names, ", ") + "}"
}

// conditionKind extracts the features exercised by a condition expression.
// It only ever adds features, so the problem kind stays monotone in the
// problem contents. Connectives are classified by the polarity they end up
// with in negation normal form: not(and(p, q)) is a disjunction once
// normalized, so it counts as disjunctive, while not(or(p, q)) does not.
func conditionKind(e *Expression) Kind {
	return polarityKind(e, false)
}

func polarityKind(e *Expression, negated bool) Kind {
	var k Kind
	switch e.Kind() {
	case NotExp:
		return polarityKind(e.Arg(0), !negated)
	case AndExp, OrExp:
		isAnd := e.Kind() == AndExp
		if isAnd == negated {
			k = k.With(FeatureDisjunctiveConditions)
		}
		for _, a := range e.Args() {
			k = k.Union(polarityKind(a, negated))
		}
	case ImpliesExp:
		// a -> b normalizes to or(not a, b).
		if !negated {
			k = k.With(FeatureDisjunctiveConditions)
		}
		k = k.Union(polarityKind(e.Arg(0), !negated))
		k = k.Union(polarityKind(e.Arg(1), negated))
	case IffExp:
		// Either polarity normalizes into a disjunction whose arguments
		// occur both positively and negatively.
		k = k.With(FeatureDisjunctiveConditions)
		for _, a := range e.Args() {
			k = k.Union(polarityKind(a, false))
			k = k.Union(polarityKind(a, true))
		}
	case EqualsExp:
		k = k.With(FeatureEqualities)
		if negated {
			k = k.With(FeatureNegativeConditions)
		}
		for _, a := range e.Args() {
			k = k.Union(polarityKind(a, false))
		}
	case ExistsExp:
		if negated {
			k = k.With(FeatureUniversalConditions)
		} else {
			k = k.With(FeatureExistentialConditions)
		}
		k = k.Union(polarityKind(e.Arg(0), negated))
	case ForallExp:
		if negated {
			k = k.With(FeatureExistentialConditions)
		} else {
			k = k.With(FeatureUniversalConditions)
		}
		k = k.Union(polarityKind(e.Arg(0), negated))
	case FluentExp, ParamExp, VariableExp:
		if negated {
			k = k.With(FeatureNegativeConditions)
		}
		for _, a := range e.Args() {
			k = k.Union(polarityKind(a, false))
		}
	default:
		// Comparisons and arithmetic; a negated comparison flips into its
		// complement, so negation adds nothing here.
		for _, a := range e.Args() {
			k = k.Union(polarityKind(a, false))
		}
	}
	return k
}

func fluentKind(f *Fluent) Kind {
	var k Kind
	switch {
	case f.valueType.IsNumeric():
		k = k.With(FeatureNumericFluents)
		lo, hi := f.valueType.IntBounds()
		if lo != nil || hi != nil {
			k = k.With(FeatureBoundedTypes)
		}
	case f.valueType.IsUser():
		k = k.With(FeatureObjectFluents)
	}
	return k
}

func effectKind(e *Effect) Kind {
	var k Kind
	if e.IsConditional() {
		k = k.With(FeatureConditionalEffects)
		k = k.Union(conditionKind(e.condition))
	}
	if len(e.forall) > 0 {
		k = k.With(FeatureForallEffects)
	}
	switch e.kind {
	case IncreaseEffect:
		k = k.With(FeatureIncreaseEffects)
	case DecreaseEffect:
		k = k.With(FeatureDecreaseEffects)
	}
	return k
}
