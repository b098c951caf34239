// Package plan defines the plan values exchanged with solvers and the
// back-mapping functions compilers attach to their results.
package plan

import (
	"fmt"
	"strings"

	"github.com/aiplan4eu/unified-planning-sub004/model"
)

// ActionInstance is one occurrence of an action in a plan: the action name
// plus the actual parameters it was applied to. Ground actions have no
// parameters.
type ActionInstance struct {
	ActionName string
	Parameters []*model.Expression
}

// NewActionInstance creates an instance.
func NewActionInstance(name string, params ...*model.Expression) *ActionInstance {
	return &ActionInstance{ActionName: name, Parameters: params}
}

func (ai *ActionInstance) String() string {
	if len(ai.Parameters) == 0 {
		return ai.ActionName
	}
	parts := make([]string, len(ai.Parameters))
	for i, p := range ai.Parameters {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", ai.ActionName, strings.Join(parts, ", "))
}

// TimedActionInstance is an action instance with a start time and duration,
// used by plans for durative problems.
type TimedActionInstance struct {
	Start    float64
	Duration float64
	Instance *ActionInstance
}

func (tai *TimedActionInstance) String() string {
	return fmt.Sprintf("%g: %s [%g]", tai.Start, tai.Instance, tai.Duration)
}

// PlanKind discriminates plan shapes.
type PlanKind int

const (
	SequentialPlanKind PlanKind = iota
	TimeTriggeredPlanKind
)

// Plan is a solver result: an ordered sequence of action instances,
// possibly timed.
type Plan interface {
	Kind() PlanKind
	String() string
}

// SequentialPlan is a totally ordered plan.
type SequentialPlan struct {
	Actions []*ActionInstance
}

// NewSequentialPlan creates a sequential plan.
func NewSequentialPlan(actions ...*ActionInstance) *SequentialPlan {
	return &SequentialPlan{Actions: actions}
}

// Kind returns SequentialPlanKind.
func (p *SequentialPlan) Kind() PlanKind { return SequentialPlanKind }

func (p *SequentialPlan) String() string {
	parts := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, "; ") + "]"
}

// TimeTriggeredPlan is a plan of timed action instances ordered by start
// time.
type TimeTriggeredPlan struct {
	Actions []*TimedActionInstance
}

// Kind returns TimeTriggeredPlanKind.
func (p *TimeTriggeredPlan) Kind() PlanKind { return TimeTriggeredPlanKind }

func (p *TimeTriggeredPlan) String() string {
	parts := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, "; ") + "]"
}

// Rewriter maps a plan for a compiled problem back into a plan for the
// problem the compiler consumed. Rewriters are pure functions and compose.
type Rewriter func(Plan) (Plan, error)

// IdentityRewriter returns its input unchanged; passes that do not rename
// actions use it.
func IdentityRewriter(p Plan) (Plan, error) { return p, nil }

// ComposeRewriters chains rewriters so that the innermost (latest pass)
// runs first: Compose(a, b)(p) == a(b(p)).
func ComposeRewriters(rewriters ...Rewriter) Rewriter {
	return func(p Plan) (Plan, error) {
		var err error
		for i := len(rewriters) - 1; i >= 0; i-- {
			p, err = rewriters[i](p)
			if err != nil {
				return nil, err
			}
		}
		return p, nil
	}
}

// RewriteInstances lifts a per-instance mapping to whole sequential plans.
func RewriteInstances(mapInstance func(*ActionInstance) (*ActionInstance, error)) Rewriter {
	return func(p Plan) (Plan, error) {
		seq, ok := p.(*SequentialPlan)
		if !ok {
			return nil, fmt.Errorf("cannot rewrite plan of kind %d", p.Kind())
		}
		out := make([]*ActionInstance, 0, len(seq.Actions))
		for _, ai := range seq.Actions {
			mapped, err := mapInstance(ai)
			if err != nil {
				return nil, err
			}
			if mapped != nil {
				out = append(out, mapped)
			}
		}
		return NewSequentialPlan(out...), nil
	}
}
