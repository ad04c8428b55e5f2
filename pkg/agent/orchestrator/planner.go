package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-assistant-be/pkg/agent/decode"
	"ai-assistant-be/pkg/agent/guardrail"
	"ai-assistant-be/pkg/agent/rules"
	"ai-assistant-be/pkg/agent/schema"
	"ai-assistant-be/pkg/agent/state"
	"ai-assistant-be/pkg/llm"
	"ai-assistant-be/pkg/tools"
)

const (
	intentRegisterPending     = "Confirm and register all pending calendar events"
	intentVerifyRegistrations = "Verify the registered calendar events"
)

// plan produces the next decision. Deterministic paths cover the
// confirmation workflow and tool-result handling; only genuinely open turns
// reach the planning model.
func (o *Orchestrator) plan(ctx context.Context, st *state.DialogueState, complex bool, priorIntents []string) (schema.PlanDecision, bool, error) {
	lastUser := st.LastUserMessage()

	// An affirmation during review registers the pending events without
	// asking the model anything.
	if st.WorkflowStep == state.StepReview && len(st.PendingCandidateEvents) > 0 && rules.IsAffirmation(lastUser) {
		return schema.PlanDecision{
			Mode:              schema.ModeExecute,
			IntentDescription: intentRegisterPending,
			Language:          st.Language,
		}, false, nil
	}

	if toolMsg := st.CurrentToolResult(); toolMsg != nil {
		return o.planFromToolResult(ctx, st, toolMsg)
	}

	facts := o.userFacts(ctx, st)
	raw, err := o.gateway.Invoke(ctx, buildPlannerPrompt(st, facts, o.registry.List(), o.clock.Now()), llm.InvokeOptions{
		Model:      o.plannerModel(complex),
		Structured: true,
		Complex:    complex,
	})
	if err != nil {
		return schema.PlanDecision{}, false, wrapTransient("planning call failed", err)
	}

	decision, outcome := o.decoder.DecodePlan(ctx, raw, lastUser, st.Language)
	if o.logger != nil && outcome != decode.OutcomeClean {
		o.logger.Printf("[PLANNER] decode outcome=%s", outcome)
	}

	gctx := &guardrail.Context{
		Now:               o.clock.Now(),
		UserMessage:       lastUser,
		Intent:            decision.IntentDescription,
		Language:          st.Language,
		WorkflowStep:      st.WorkflowStep,
		PendingCandidates: st.PendingCandidateEvents,
		PriorIntents:      priorIntents,
	}
	if applied := o.guardrails.ApplyPlan(&decision, gctx); len(applied) > 0 && o.logger != nil {
		o.logger.Printf("[PLANNER] corrections: %s", strings.Join(applied, ","))
	}
	return decision, gctx.ForceSummarize, nil
}

func (o *Orchestrator) plannerModel(complex bool) string {
	if complex {
		return o.config.ComplexModel
	}
	return o.config.SimpleModel
}

// planFromToolResult reacts to the tool message at the tail of the history.
func (o *Orchestrator) planFromToolResult(ctx context.Context, st *state.DialogueState, toolMsg *state.Message) (schema.PlanDecision, bool, error) {
	switch toolMsg.ToolName {
	case "summarize_meeting_notes":
		return o.planFromMeetingSummary(st, toolMsg.Content)
	case "create_event":
		if st.WorkflowStep == state.StepRegistrationInProgress && len(st.VerificationResults) == 0 {
			if hasSuccessfulRegistration(st) {
				return schema.PlanDecision{
					Mode:              schema.ModeExecute,
					IntentDescription: intentVerifyRegistrations,
					Language:          st.Language,
				}, false, nil
			}
			// Nothing was written, so there is nothing to verify; report
			// the failed batch and close the workflow.
			st.WorkflowStep = state.StepCompleted
			return schema.PlanDecision{
				Mode:             schema.ModePlan,
				AssistantMessage: o.registrationReport(ctx, st),
				Language:         st.Language,
			}, false, nil
		}
	case "verify_calendar_registrations":
		o.absorbVerification(st, toolMsg.Content)
		st.WorkflowStep = state.StepCompleted
		return schema.PlanDecision{
			Mode:             schema.ModePlan,
			AssistantMessage: o.registrationReport(ctx, st),
			Language:         st.Language,
		}, false, nil
	}
	// Any other tool result ends the hop with a summarize-only reply.
	return schema.PlanDecision{
		Mode:             schema.ModePlan,
		AssistantMessage: o.summarizeResults(ctx, st),
		Language:         st.Language,
	}, false, nil
}

// planFromMeetingSummary turns a structured meeting summary into either a
// numbered review message awaiting confirmation or a plain summary reply.
func (o *Orchestrator) planFromMeetingSummary(st *state.DialogueState, payload string) (schema.PlanDecision, bool, error) {
	var summary schema.MeetingSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil || summary.Error != "" {
		message := "I could not extract a structured summary from those notes. Could you share them again, or paste the relevant part?"
		if st.Language == "ko" {
			message = "회의록에서 구조화된 요약을 추출하지 못했습니다. 회의록을 다시 보내주시거나 필요한 부분을 붙여넣어 주시겠어요?"
		}
		return schema.PlanDecision{Mode: schema.ModePlan, AssistantMessage: message, Language: st.Language}, false, nil
	}

	candidates := summary.CandidateEvents()
	if len(candidates) == 0 {
		message := renderSummaryOnly(summary, st.Language)
		return schema.PlanDecision{Mode: schema.ModePlan, AssistantMessage: message, Language: st.Language}, false, nil
	}

	st.PendingCandidateEvents = candidates
	st.WorkflowStep = state.StepReview
	return schema.PlanDecision{
		Mode:              schema.ModePlan,
		AssistantMessage:  renderReviewMessage(summary, candidates, st.Language),
		Language:          st.Language,
		NeedsConfirmation: true,
	}, false, nil
}

func hasSuccessfulRegistration(st *state.DialogueState) bool {
	for _, r := range st.RegistrationResults {
		if r.Status == "success" {
			return true
		}
	}
	return false
}

func (o *Orchestrator) absorbVerification(st *state.DialogueState, payload string) {
	var verified []struct {
		EventID string `json:"event_id"`
		Summary string `json:"summary"`
		Found   bool   `json:"found"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(payload), &verified); err != nil {
		if o.logger != nil {
			o.logger.Printf("[PLANNER] unreadable verification payload: %v", err)
		}
		return
	}
	st.VerificationResults = st.VerificationResults[:0]
	for _, v := range verified {
		st.VerificationResults = append(st.VerificationResults, state.VerificationResult{
			EventID: v.EventID,
			Summary: v.Summary,
			Found:   v.Found,
			Detail:  v.Detail,
		})
	}
}

// registrationReport renders the final outcome of the confirmation workflow
// deterministically so a model hiccup cannot misreport what was written.
func (o *Orchestrator) registrationReport(ctx context.Context, st *state.DialogueState) string {
	created, skipped, failed := 0, 0, 0
	var lines []string
	for _, r := range st.RegistrationResults {
		switch r.Status {
		case "success":
			created++
			lines = append(lines, fmt.Sprintf("- %s: registered", r.Summary))
		case "skipped":
			skipped++
			lines = append(lines, fmt.Sprintf("- %s: skipped (already exists)", r.Summary))
		default:
			failed++
			lines = append(lines, fmt.Sprintf("- %s: failed (%s)", r.Summary, r.Error))
		}
	}
	unverified := 0
	for _, v := range st.VerificationResults {
		if !v.Found {
			unverified++
		}
	}
	var b strings.Builder
	if st.Language == "ko" {
		fmt.Fprintf(&b, "일정 등록이 완료되었습니다. 등록 %d건, 중복 제외 %d건, 실패 %d건입니다.\n", created, skipped, failed)
		if unverified > 0 {
			fmt.Fprintf(&b, "%d건은 등록 확인에 실패했으니 캘린더를 직접 확인해 주세요.\n", unverified)
		}
	} else {
		fmt.Fprintf(&b, "Registration finished: %d created, %d skipped as duplicates, %d failed.\n", created, skipped, failed)
		if unverified > 0 {
			fmt.Fprintf(&b, "%d could not be verified; please double-check your calendar.\n", unverified)
		}
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func renderSummaryOnly(summary schema.MeetingSummary, language string) string {
	var b strings.Builder
	b.WriteString(summary.Summary)
	if len(summary.Decisions) > 0 {
		if language == "ko" {
			b.WriteString("\n\n주요 결정 사항:\n")
		} else {
			b.WriteString("\n\nKey decisions:\n")
		}
		for _, d := range summary.Decisions {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	if language == "ko" {
		b.WriteString("\n캘린더에 등록할 만한 일정은 없었습니다.")
	} else {
		b.WriteString("\nNo action items needed calendar registration.")
	}
	return b.String()
}

func renderReviewMessage(summary schema.MeetingSummary, candidates []schema.ActionItem, language string) string {
	var b strings.Builder
	b.WriteString(summary.Summary)
	if language == "ko" {
		b.WriteString("\n\n회의록에서 다음 일정 후보를 찾았습니다:\n")
	} else {
		b.WriteString("\n\nI found these calendar candidates in the notes:\n")
	}
	for i, c := range candidates {
		title := c.SuggestedCalendarTitle
		if title == "" {
			title = c.Task
		}
		when := c.SuggestedStartTime
		if when == "" {
			when = c.DueDate
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, title, when)
	}
	if language == "ko" {
		b.WriteString("\n모두 캘린더에 등록할까요? \"등록 진행해줘\"라고 답하시면 등록합니다.")
	} else {
		b.WriteString("\nShall I register all of them? Reply \"yes\" or \"confirm\" to proceed.")
	}
	return b.String()
}

func wrapTransient(msg string, err error) error {
	return tools.MarkTransient(fmt.Errorf("%s: %w", msg, err))
}
