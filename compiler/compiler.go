// Package compiler implements the problem-to-problem rewriting passes.
// Each pass removes one expressiveness feature, producing a new problem and
// a pure back-mapping that translates plans of the compiled problem into
// plans of the input problem. Passes never mutate their input.
package compiler

import (
	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
)

// CompilationKind identifies a pass.
type CompilationKind string

const (
	Grounding                     CompilationKind = "GROUNDING"
	QuantifiersRemoving           CompilationKind = "QUANTIFIERS_REMOVING"
	ConditionalEffectsRemoving    CompilationKind = "CONDITIONAL_EFFECTS_REMOVING"
	DisjunctiveConditionsRemoving CompilationKind = "DISJUNCTIVE_CONDITIONS_REMOVING"
	NegativeConditionsRemoving    CompilationKind = "NEGATIVE_CONDITIONS_REMOVING"
)

// Result is the outcome of one pass: the rewritten problem and the plan
// back-mapping. There is no partial success; a pass either returns a fully
// valid result or an error.
type Result struct {
	Problem *model.Problem
	MapBack plan.Rewriter
}

// Compiler is one semantics-preserving pass.
type Compiler interface {
	// Name identifies the pass in logs.
	Name() string

	// Kind identifies what the pass removes.
	Kind() CompilationKind

	// TargetKind is the feature set the pass eliminates; the compiled
	// problem's kind contains none of these features.
	TargetKind() model.Kind

	// AddedKind is the feature set the pass may introduce (for example,
	// conditional-effect removal introduces negated condition literals).
	AddedKind() model.Kind

	// RequiresAbsent is the feature set that must already be compiled
	// away before the pass can run; Compile rejects problems exercising
	// any of it.
	RequiresAbsent() model.Kind

	// Compile rewrites the problem. The input is never mutated.
	Compile(problem *model.Problem) (*Result, error)
}

// requireAbsent returns an UnsupportedFeatureError if the problem
// exercises any of the listed features.
func requireAbsent(component string, k model.Kind, features ...model.Feature) error {
	for _, f := range features {
		if k.Has(f) {
			return &model.UnsupportedFeatureError{Component: component, Feature: f}
		}
	}
	return nil
}

// identityResult wraps an untouched clone of the problem; used when a pass
// finds nothing to rewrite.
func identityResult(p *model.Problem) *Result {
	return &Result{Problem: p.Clone(), MapBack: plan.IdentityRewriter}
}

// renameRewriter builds a back-mapping that renames action instances
// according to the variant table, keeping their parameters. Instances whose
// name is not in the table pass through unchanged.
func renameRewriter(variantToOriginal map[string]string) plan.Rewriter {
	return plan.RewriteInstances(func(ai *plan.ActionInstance) (*plan.ActionInstance, error) {
		if orig, ok := variantToOriginal[ai.ActionName]; ok {
			return plan.NewActionInstance(orig, ai.Parameters...), nil
		}
		return ai, nil
	})
}
