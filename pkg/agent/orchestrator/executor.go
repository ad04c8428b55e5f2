package orchestrator

import (
	"context"
	"strings"

	"ai-assistant-be/pkg/agent/decode"
	"ai-assistant-be/pkg/agent/guardrail"
	"ai-assistant-be/pkg/agent/schema"
	"ai-assistant-be/pkg/agent/state"
	"ai-assistant-be/pkg/llm"
)

// execute turns a planned intent into concrete tool calls and runs the
// guardrail corrections over them. A nil decision with nil error means the
// executor could not produce usable calls and the turn should degrade to a
// summarized reply.
func (o *Orchestrator) execute(ctx context.Context, st *state.DialogueState, plan schema.PlanDecision, complex bool, priorIntents []string) (*schema.ExecuteDecision, error) {
	nameToID, primary, err := o.directory.NameToID(ctx)
	if err != nil {
		if o.logger != nil {
			o.logger.Printf("[EXECUTOR] calendar directory unavailable: %v", err)
		}
		nameToID = map[string]string{}
	}
	recents := o.recentEntities(ctx, st.SessionID)

	decision, meetingRegistration := o.deterministicDecision(st, plan)
	if decision == nil {
		raw, err := o.gateway.Invoke(ctx, buildExecutorPrompt(st, plan.IntentDescription, o.registry.List(), nameToID, recents, o.clock.Now()), llm.InvokeOptions{
			Model:      o.plannerModel(complex),
			Structured: true,
			Complex:    complex,
		})
		if err != nil {
			return nil, wrapTransient("execution call failed", err)
		}
		var outcome decode.Outcome
		decision, outcome = o.decoder.DecodeExecute(ctx, raw, st.LastUserMessage())
		if o.logger != nil && outcome != decode.OutcomeClean {
			o.logger.Printf("[EXECUTOR] decode outcome=%s", outcome)
		}
		if decision == nil {
			return nil, nil
		}
	}

	gctx := &guardrail.Context{
		Now:                  o.clock.Now(),
		UserMessage:          st.LastUserMessage(),
		Intent:               plan.IntentDescription,
		Language:             st.Language,
		WorkflowStep:         st.WorkflowStep,
		CalendarNameToID:     nameToID,
		PrimaryCalendarID:    primary,
		FallbackCalendarName: o.config.FallbackCalendarName,
		RecentEntities:       recents,
		PendingCandidates:    st.PendingCandidateEvents,
		LastToolName:         lastToolName(st),
		PriorIntents:         priorIntents,
		MeetingRegistration:  meetingRegistration,
	}
	if applied := o.guardrails.ApplyExec(decision, gctx); len(applied) > 0 && o.logger != nil {
		o.logger.Printf("[EXECUTOR] corrections: %s", strings.Join(applied, ","))
	}

	for i := range decision.Actions {
		if decision.Actions[i].Args == nil {
			decision.Actions[i].Args = map[string]interface{}{}
		}
		decision.Actions[i].Args["session_id"] = st.SessionID
	}
	return decision, nil
}

// deterministicDecision builds tool calls for the two workflow intents that
// must never depend on a model: registering confirmed candidates and
// verifying what was just written.
func (o *Orchestrator) deterministicDecision(st *state.DialogueState, plan schema.PlanDecision) (*schema.ExecuteDecision, bool) {
	switch plan.IntentDescription {
	case intentRegisterPending:
		if len(st.PendingCandidateEvents) == 0 {
			return nil, false
		}
		actions := make([]schema.ProposedAction, 0, len(st.PendingCandidateEvents))
		for _, candidate := range st.PendingCandidateEvents {
			title := candidate.SuggestedCalendarTitle
			if title == "" {
				title = candidate.Task
			}
			start := candidate.SuggestedStartTime
			if start == "" && candidate.DueDate != "" {
				start = candidate.DueDate + "T09:00:00"
			}
			if start == "" {
				continue
			}
			args := map[string]interface{}{
				"summary":    title,
				"start_time": start,
			}
			if candidate.SuggestedEndTime != "" {
				args["end_time"] = candidate.SuggestedEndTime
			}
			if candidate.Assignee != "" {
				args["description"] = "Assignee: " + candidate.Assignee
			}
			actions = append(actions, schema.ProposedAction{Tool: "create_event", Args: args})
		}
		if len(actions) == 0 {
			return nil, false
		}
		// Dispatch consumes the candidates: review ends here whatever the
		// individual creations turn out to do.
		st.PendingCandidateEvents = nil
		st.WorkflowStep = state.StepRegistrationInProgress
		st.RegistrationResults = nil
		st.VerificationResults = nil
		return &schema.ExecuteDecision{
			Actions:   actions,
			Reasoning: "registering candidates confirmed during review",
		}, true

	case intentVerifyRegistrations:
		var entries []interface{}
		for _, r := range st.RegistrationResults {
			if r.Status != "success" {
				continue
			}
			entries = append(entries, map[string]interface{}{
				"event_id":    r.EventID,
				"calendar_id": r.CalendarID,
				"summary":     r.Summary,
			})
		}
		if len(entries) == 0 {
			return nil, false
		}
		return &schema.ExecuteDecision{
			Actions: []schema.ProposedAction{{
				Tool: "verify_calendar_registrations",
				Args: map[string]interface{}{"events": entries},
			}},
			Reasoning: "verifying freshly registered events",
		}, false
	}
	return nil, false
}

func (o *Orchestrator) recentEntities(ctx context.Context, sessionID string) []state.RecentEntity {
	if o.recency == nil {
		return nil
	}
	recents, err := o.recency.Recent(ctx, sessionID, 5)
	if err != nil {
		if o.logger != nil {
			o.logger.Printf("[EXECUTOR] loading recent entities failed: %v", err)
		}
		return nil
	}
	return recents
}

func lastToolName(st *state.DialogueState) string {
	if msg := st.LastToolMessage(); msg != nil {
		return msg.ToolName
	}
	return ""
}
