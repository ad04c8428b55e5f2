package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-assistant-be/pkg/agent/dates"
	"ai-assistant-be/pkg/agent/schema"
	"ai-assistant-be/pkg/agent/state"
	"ai-assistant-be/pkg/tools"
)

// createOutcome mirrors the JSON payload create_event returns.
type createOutcome struct {
	Status     string `json:"status"`
	EventID    string `json:"event_id"`
	CalendarID string `json:"calendar_id"`
	Summary    string `json:"summary"`
	Start      string `json:"start"`
	Note       string `json:"note"`
}

type dispatchedCreate struct {
	summary    string
	calendarID string
	start      time.Time
}

// runTools dispatches every proposed action in order. Transient failures
// abort the turn so the caller can retry it; definitive failures become tool
// messages the planner explains to the user.
func (o *Orchestrator) runTools(ctx context.Context, st *state.DialogueState, decision *schema.ExecuteDecision) error {
	var dispatched []dispatchedCreate
	for _, action := range decision.Actions {
		if action.Tool == "create_event" {
			if prior, dup := findBatchDuplicate(dispatched, action.Args); dup {
				o.recordSkippedDuplicate(st, action.Args, prior)
				continue
			}
			if entry, ok := creationKey(action.Args); ok {
				dispatched = append(dispatched, entry)
			}
		}
		if action.Tool == "summarize_meeting_notes" {
			o.injectRawNotes(st, action.Args)
		}

		result, err := o.registry.Invoke(ctx, action.Tool, action.Args)
		if err != nil {
			if tools.IsTransient(err) {
				return err
			}
			if o.logger != nil {
				o.logger.Printf("[TOOLS] %s failed: %v", action.Tool, err)
			}
			o.recordFailure(st, action.Tool, action.Args, err)
			continue
		}
		if action.Tool == "create_event" {
			o.recordCreation(ctx, st, result)
		}
		st.AppendToolResult(action.Tool, result)
	}
	return nil
}

// findBatchDuplicate reports whether an equivalent creation was already
// dispatched in this batch: same title, same calendar, start within one
// minute.
func findBatchDuplicate(dispatched []dispatchedCreate, args map[string]interface{}) (dispatchedCreate, bool) {
	entry, ok := creationKey(args)
	if !ok {
		return dispatchedCreate{}, false
	}
	for _, prior := range dispatched {
		if prior.summary != entry.summary || prior.calendarID != entry.calendarID {
			continue
		}
		diff := prior.start.Sub(entry.start)
		if diff < 0 {
			diff = -diff
		}
		if diff <= time.Minute {
			return prior, true
		}
	}
	return dispatchedCreate{}, false
}

func creationKey(args map[string]interface{}) (dispatchedCreate, bool) {
	summary := tools.StringArg(args, "summary")
	startRaw := tools.StringArg(args, "start_time")
	if summary == "" || startRaw == "" {
		return dispatchedCreate{}, false
	}
	start, err := dates.ParseLocal(startRaw)
	if err != nil {
		return dispatchedCreate{}, false
	}
	return dispatchedCreate{
		summary:    summary,
		calendarID: tools.StringArg(args, "calendar_id"),
		start:      start,
	}, true
}

func (o *Orchestrator) recordSkippedDuplicate(st *state.DialogueState, args map[string]interface{}, prior dispatchedCreate) {
	summary := tools.StringArg(args, "summary")
	st.RegistrationResults = append(st.RegistrationResults, state.RegistrationResult{
		Summary: summary,
		Status:  "skipped",
		Error:   "duplicate of an event already being created in this batch",
	})
	st.AppendToolResult("create_event", fmt.Sprintf(
		`{"status":"skipped","summary":%q,"note":"duplicate of %q at %s in this batch, not sent"}`,
		summary, prior.summary, dates.FormatLocal(prior.start)))
	if o.logger != nil {
		o.logger.Printf("[TOOLS] skipped in-batch duplicate creation of %q", summary)
	}
}

func (o *Orchestrator) recordFailure(st *state.DialogueState, tool string, args map[string]interface{}, err error) {
	if tool == "create_event" {
		st.RegistrationResults = append(st.RegistrationResults, state.RegistrationResult{
			Summary: tools.StringArg(args, "summary"),
			Status:  "error",
			Error:   err.Error(),
		})
	}
	st.AppendToolResult(tool, fmt.Sprintf("ERROR: %v", err))
}

// recordCreation parses a create_event payload, feeding both the recency
// store and the registration accumulator.
func (o *Orchestrator) recordCreation(ctx context.Context, st *state.DialogueState, payload string) {
	var outcome createOutcome
	if err := json.Unmarshal([]byte(payload), &outcome); err != nil {
		if o.logger != nil {
			o.logger.Printf("[TOOLS] unreadable create_event payload: %v", err)
		}
		return
	}
	result := state.RegistrationResult{
		Summary:    outcome.Summary,
		Status:     outcome.Status,
		EventID:    outcome.EventID,
		CalendarID: outcome.CalendarID,
	}
	if outcome.Status == "skipped" {
		result.Error = outcome.Note
	}
	st.RegistrationResults = append(st.RegistrationResults, result)

	if outcome.Status != "success" || o.recency == nil {
		return
	}
	entity := state.RecentEntity{
		SessionID:    st.SessionID,
		ExternalID:   outcome.EventID,
		Label:        outcome.Summary,
		CollectionID: outcome.CalendarID,
		CreatedAt:    o.clock.Now(),
	}
	if err := o.recency.Add(ctx, entity); err != nil && o.logger != nil {
		o.logger.Printf("[TOOLS] recording recent event failed: %v", err)
	}
}

// injectRawNotes restores the full notes when the model truncated them while
// copying into the tool arguments.
func (o *Orchestrator) injectRawNotes(st *state.DialogueState, args map[string]interface{}) {
	if st.RawSourceText == "" {
		return
	}
	notes := tools.StringArg(args, "notes")
	if len(notes) >= len(st.RawSourceText)/2 {
		return
	}
	if args == nil {
		return
	}
	args["notes"] = st.RawSourceText
	if o.logger != nil {
		o.logger.Printf("[TOOLS] restored full meeting notes (%d chars) into summarizer arguments", len(st.RawSourceText))
	}
}
