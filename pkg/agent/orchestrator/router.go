package orchestrator

import (
	"context"

	"ai-assistant-be/pkg/agent/decode"
	"ai-assistant-be/pkg/agent/rules"
	"ai-assistant-be/pkg/agent/schema"
	"ai-assistant-be/pkg/llm"
)

// route classifies the message. Deterministic short-circuits run before the
// model so plain calendar queries never pay a routing call, travel always
// takes the complex path, and a routing failure never downgrades a request.
func (o *Orchestrator) route(ctx context.Context, message string) schema.RouterDecision {
	if rules.IsTravelQuery(message) {
		return schema.RouterDecision{
			Mode:      schema.RouterComplex,
			Reasoning: "travel query, routed without a model call",
		}
	}
	if rules.IsCalendarQuery(message) && !rules.IsComplexQuery(message) {
		return schema.RouterDecision{
			Mode:      schema.RouterSimple,
			Reasoning: "plain calendar query, routed without a model call",
		}
	}

	raw, err := o.gateway.Invoke(ctx, buildRouterPrompt(message, o.clock.Now()), llm.InvokeOptions{
		Model:      o.config.RouterModel,
		Structured: true,
	})
	if err != nil {
		if o.logger != nil {
			o.logger.Printf("[ROUTER] model call failed, defaulting to complex: %v", err)
		}
		return schema.RouterDecision{Mode: schema.RouterComplex, Reasoning: "routing call failed"}
	}

	decision, outcome := o.decoder.DecodeRouter(ctx, raw)
	if o.logger != nil && outcome != decode.OutcomeClean {
		o.logger.Printf("[ROUTER] decode outcome=%s", outcome)
	}
	// A calendar question answered conversationally still needs the tool
	// path; override "answer" back to simple.
	if decision.Mode == schema.RouterAnswer && rules.IsCalendarQuery(message) {
		decision.Mode = schema.RouterSimple
		decision.Reasoning = "calendar query overrides conversational answer"
	}
	return decision
}
