// Package planning defines the contracts between the planning model, the
// compiler pipeline and external solvers. Solver engines are opaque to this
// module: they consume a problem whose kind fits their supported kind and
// return a plan or a status explaining its absence.
package planning

import (
	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/plan"
)

// Status reports the outcome of a solve call.
type Status int

const (
	// SolvedSatisficing means a valid plan was found.
	SolvedSatisficing Status = iota
	// SolvedOptimally means a valid plan, proved optimal for the metric,
	// was found.
	SolvedOptimally
	// NoSolutionFound means the solver proved or gave up without a plan.
	NoSolutionFound
	// Unsupported means the problem exercises features outside the
	// solver's supported kind.
	Unsupported
)

func (s Status) String() string {
	switch s {
	case SolvedSatisficing:
		return "solved"
	case SolvedOptimally:
		return "solved optimally"
	case NoSolutionFound:
		return "no solution found"
	default:
		return "unsupported"
	}
}

// SolveResult is what a solver returns: a status and, when solved, a plan.
type SolveResult struct {
	Status Status
	Plan   plan.Plan
	Solver string
}

// Solver is the interface external planning engines present to this
// module. SupportedKind declares the feature set the solver accepts; the
// engine compiles a problem down to that set before calling Solve.
type Solver interface {
	// Name identifies the solver in results and logs.
	Name() string

	// SupportedKind returns the feature set the solver accepts.
	SupportedKind() model.Kind

	// Solve attempts to solve a problem whose kind is a subset of
	// SupportedKind.
	Solve(problem *model.Problem) (*SolveResult, error)
}
