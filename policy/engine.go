// Package policy evaluates the payment gate for recommendation generation.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions the payment gate can return.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
	// DecisionAssumePaid authorizes the source-compatible shortcut:
	// the generation call itself is taken as evidence of payment and
	// the order is promoted to PAID. Unsafe outside trusted callers;
	// disable by overriding the policy document.
	DecisionAssumePaid = "assume_paid"
)

// Engine is the OPA payment-gate engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.payment_gate.decision"),
		rego.Module("payment_gate.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// GateInput is the evaluation input for one generate call.
type GateInput struct {
	OrderStatus  string `json:"order_status"`
	ParamsStatus string `json:"params_status"`
	UserID       string `json:"user_id"`
}

// Evaluate returns the gate decision for a generate call.
func (e *Engine) Evaluate(ctx context.Context, input GateInput) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy defines a default; an empty result means the
		// document was replaced with one that doesn't. Fail closed.
		return DecisionDeny, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionDeny, nil
}

// DefaultPolicy is the default payment-gate policy. It preserves the
// source system's behavior: a paid order is always allowed through, and
// a generate call against a still-PENDING request is assumed to be paid.
const DefaultPolicy = `
package payment_gate

default decision = "deny"

decision = "allow" {
	input.order_status == "PAID"
}

decision = "assume_paid" {
	input.order_status != "PAID"
	input.params_status == "PENDING"
}
`
