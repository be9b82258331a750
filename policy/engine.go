// Package policy decides how an inbound event is routed for the user's
// current session mode. The routing table is a rego policy so the gating
// rules stay inspectable data rather than nested conditionals.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Route decisions returned by the mode gate.
const (
	RouteClassify = "classify" // run the recording classifier chain
	RouteChat     = "chat"     // open conversational responder
	RouteAdvisor  = "advisor"  // higher-capability advisor responder
)

// Engine is the OPA mode-gate engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new mode-gate engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.mode_gate.route"),
		rego.Module("mode_gate.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input describes one inbound event for routing.
type Input struct {
	Mode           string `json:"mode"` // idle | recording | advisor
	Kind           string `json:"kind"` // text | image
	ExplicitIntent bool   `json:"explicit_intent"`
}

// Route evaluates the mode gate for one event.
func (e *Engine) Route(ctx context.Context, in Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate mode gate: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return RouteChat, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return RouteChat, nil
}

// DefaultPolicy is the session-mode routing table. In recording mode all
// free input goes to the classifier chain and never to the open responder;
// in advisor mode all input goes to the advisor and never to a classifier;
// in idle mode only explicit record phrasing (or a photo) is classified.
const DefaultPolicy = `
package mode_gate

default route = "chat"

route = "advisor" {
	input.mode == "advisor"
}

route = "classify" {
	input.mode == "recording"
}

route = "classify" {
	input.mode == "idle"
	input.kind == "image"
}

route = "classify" {
	input.mode == "idle"
	input.kind == "text"
	input.explicit_intent
}
`
