package model

import "fmt"

// MetricKind discriminates the supported quality metrics.
type MetricKind int

const (
	// MinimizeExpression minimizes the final value of a numeric expression.
	MinimizeExpression MetricKind = iota
	// MaximizeExpression maximizes the final value of a numeric expression.
	MaximizeExpression
	// MinimizeActionCosts minimizes the summed cost of the plan's actions.
	MinimizeActionCosts
	// MinimizePlanLength minimizes the number of actions in the plan.
	MinimizePlanLength
)

// Metric is a problem quality metric. For MinimizeActionCosts the costs map
// assigns a numeric cost expression per action name; actions not in the map
// take the default cost.
type Metric struct {
	kind        MetricKind
	expr        *Expression
	costs       map[string]*Expression
	defaultCost *Expression
}

// NewExpressionMetric creates a minimize/maximize metric over a numeric
// expression.
func NewExpressionMetric(kind MetricKind, expr *Expression) (*Metric, error) {
	if kind != MinimizeExpression && kind != MaximizeExpression {
		return nil, &TypeError{Op: "Metric", Message: "expression metric must minimize or maximize"}
	}
	if !expr.Type().IsNumeric() {
		return nil, &TypeError{Op: "Metric", Message: fmt.Sprintf("metric expression must be numeric, got %s", expr.Type())}
	}
	return &Metric{kind: kind, expr: expr}, nil
}

// NewActionCostsMetric creates a minimize-action-costs metric.
func NewActionCostsMetric(costs map[string]*Expression, defaultCost *Expression) (*Metric, error) {
	for name, c := range costs {
		if !c.Type().IsNumeric() {
			return nil, &TypeError{Op: "Metric", Message: fmt.Sprintf("cost of %s must be numeric, got %s", name, c.Type())}
		}
	}
	if defaultCost != nil && !defaultCost.Type().IsNumeric() {
		return nil, &TypeError{Op: "Metric", Message: "default cost must be numeric"}
	}
	return &Metric{kind: MinimizeActionCosts, costs: costs, defaultCost: defaultCost}, nil
}

// NewPlanLengthMetric creates a minimize-plan-length metric.
func NewPlanLengthMetric() *Metric {
	return &Metric{kind: MinimizePlanLength}
}

// Kind returns the metric kind.
func (m *Metric) Kind() MetricKind { return m.kind }

// Expr returns the metric expression for expression metrics.
func (m *Metric) Expr() *Expression { return m.expr }

// ActionCost returns the cost expression for an action name, falling back
// to the default cost.
func (m *Metric) ActionCost(name string) *Expression {
	if c, ok := m.costs[name]; ok {
		return c
	}
	return m.defaultCost
}

// WithCosts returns a copy of an action-costs metric with a replaced cost
// table; used by passes that rename actions.
func (m *Metric) WithCosts(costs map[string]*Expression) *Metric {
	return &Metric{kind: m.kind, expr: m.expr, costs: costs, defaultCost: m.defaultCost}
}

// Costs returns the per-action cost table of an action-costs metric.
func (m *Metric) Costs() map[string]*Expression { return m.costs }

// DefaultCost returns the fallback cost, which may be nil.
func (m *Metric) DefaultCost() *Expression { return m.defaultCost }
