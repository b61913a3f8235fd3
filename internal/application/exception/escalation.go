package exception

import (
	"fmt"
	"time"

	"github.com/Knetic/govaluate"

	"github.com/negotiation-core/negotiation-core/internal/domain/exception"
)

// EscalationRule is a configurable boolean expression evaluated against
// each open exception during the escalation sweep. Available
// parameters: ageHours, priority, status, type.
//
// Example: "ageHours > 4 && priority == 'URGENT'"
type EscalationRule struct {
	source string
	expr   *govaluate.EvaluableExpression
}

// NewEscalationRule compiles the rule expression.
func NewEscalationRule(source string) (*EscalationRule, error) {
	expr, err := govaluate.NewEvaluableExpression(source)
	if err != nil {
		return nil, fmt.Errorf("invalid escalation rule %q: %w", source, err)
	}
	return &EscalationRule{source: source, expr: expr}, nil
}

// String returns the rule source text.
func (r *EscalationRule) String() string {
	return r.source
}

// ShouldEscalate evaluates the rule against one exception.
func (r *EscalationRule) ShouldEscalate(e *exception.Exception, now time.Time) (bool, error) {
	params := map[string]interface{}{
		"ageHours": e.AgeHours(now),
		"priority": string(e.Priority),
		"status":   string(e.Status),
		"type":     e.ExceptionType,
	}
	result, err := r.expr.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate escalation rule: %w", err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("escalation rule %q did not evaluate to a boolean", r.source)
	}
	return matched, nil
}
