// Package guardrail applies deterministic corrections to model decisions
// before they reach the tool layer. Corrections are pure functions over a
// snapshot Context, applied in a fixed order, and each application is named
// so the pipeline can log exactly what it overrode.
package guardrail

import (
	"log"
	"strings"
	"time"

	"ai-assistant-be/pkg/agent/rules"
	"ai-assistant-be/pkg/agent/schema"
	"ai-assistant-be/pkg/agent/state"
)

// Context is the read-only snapshot a correction may consult. Corrections
// mutate only the decision they are handed, with one exception: a plan
// correction may raise ForceSummarize to tell the pipeline to abandon the
// decision and fall back to a summarize-only reply.
type Context struct {
	Now                  time.Time
	UserMessage          string
	Intent               string
	Language             string
	WorkflowStep         string
	CalendarNameToID     map[string]string
	PrimaryCalendarID    string
	FallbackCalendarName string
	RecentEntities       []state.RecentEntity
	PendingCandidates    []schema.ActionItem
	LastToolName         string
	PriorIntents         []string
	MeetingRegistration  bool

	ForceSummarize bool
}

func (c *Context) knownCalendarIDs() map[string]bool {
	ids := make(map[string]bool, len(c.CalendarNameToID))
	for _, id := range c.CalendarNameToID {
		ids[id] = true
	}
	if c.PrimaryCalendarID != "" {
		ids[c.PrimaryCalendarID] = true
	}
	return ids
}

// PlanCorrection rewrites a planning decision in place. Apply reports
// whether the correction fired.
type PlanCorrection struct {
	Name  string
	Apply func(d *schema.PlanDecision, c *Context) bool
}

// ExecCorrection rewrites a single proposed tool call in place.
type ExecCorrection struct {
	Name  string
	Apply func(a *schema.ProposedAction, c *Context) bool
}

// Engine holds the ordered correction lists. Order matters: later
// corrections see the output of earlier ones.
type Engine struct {
	plan   []PlanCorrection
	exec   []ExecCorrection
	logger *log.Logger
}

func NewEngine(logger *log.Logger) *Engine {
	return &Engine{
		plan: []PlanCorrection{
			{Name: "force_calendar_list_execute", Apply: forceCalendarListExecute},
			{Name: "confirm_registration_intent", Apply: confirmRegistrationIntent},
			{Name: "break_self_loop", Apply: breakSelfLoop},
		},
		exec: []ExecCorrection{
			{Name: "resolve_relative_dates", Apply: resolveRelativeDates},
			{Name: "repair_truncated_calendar_id", Apply: repairTruncatedCalendarID},
			{Name: "resolve_ambiguous_event_id", Apply: resolveAmbiguousEventID},
			{Name: "resolve_calendar_name", Apply: resolveCalendarName},
			{Name: "normalize_travel_query", Apply: normalizeTravelQuery},
		},
		logger: logger,
	}
}

// ApplyPlan runs every plan correction in order and returns the names of
// those that fired.
func (e *Engine) ApplyPlan(d *schema.PlanDecision, c *Context) []string {
	var applied []string
	for _, corr := range e.plan {
		if corr.Apply(d, c) {
			applied = append(applied, corr.Name)
			if e.logger != nil {
				e.logger.Printf("[GUARDRAIL] plan correction applied: %s", corr.Name)
			}
		}
	}
	return applied
}

// ApplyExec runs every exec correction over every proposed action.
func (e *Engine) ApplyExec(d *schema.ExecuteDecision, c *Context) []string {
	var applied []string
	for i := range d.Actions {
		for _, corr := range e.exec {
			if corr.Apply(&d.Actions[i], c) {
				applied = append(applied, corr.Name)
				if e.logger != nil {
					e.logger.Printf("[GUARDRAIL] exec correction applied to %s: %s", d.Actions[i].Tool, corr.Name)
				}
			}
		}
	}
	return applied
}

// forceCalendarListExecute keeps pure calendar listing questions off the
// conversational path: the model sometimes answers "let me check" instead of
// actually checking.
func forceCalendarListExecute(d *schema.PlanDecision, c *Context) bool {
	if d.Mode != schema.ModePlan || d.NeedsConfirmation {
		return false
	}
	if c.WorkflowStep == state.StepReview || c.WorkflowStep == state.StepRegistrationInProgress {
		return false
	}
	if !rules.IsCalendarListQuery(c.UserMessage) || rules.IsComplexQuery(c.UserMessage) {
		return false
	}
	d.Mode = schema.ModeExecute
	d.IntentDescription = rules.CalendarListIntent(c.UserMessage)
	d.AssistantMessage = ""
	return true
}

// confirmRegistrationIntent is the backstop for the review workflow: an
// affirmation while candidate events are pending must become a registration,
// never another round of conversation.
func confirmRegistrationIntent(d *schema.PlanDecision, c *Context) bool {
	if c.WorkflowStep != state.StepReview || len(c.PendingCandidates) == 0 {
		return false
	}
	if !rules.IsAffirmation(c.UserMessage) {
		return false
	}
	if d.Mode == schema.ModeExecute && strings.Contains(strings.ToLower(d.IntentDescription), "register") {
		return false
	}
	d.Mode = schema.ModeExecute
	d.IntentDescription = "Confirm and register all pending calendar events"
	d.AssistantMessage = ""
	d.NeedsConfirmation = false
	return true
}

// breakSelfLoop detects a plan that re-issues an intent already executed in
// this turn and downgrades it to a summarize-only reply.
func breakSelfLoop(d *schema.PlanDecision, c *Context) bool {
	if d.Mode != schema.ModeExecute {
		return false
	}
	current := normalizeIntent(d.IntentDescription)
	if current == "" {
		return false
	}
	for _, prior := range c.PriorIntents {
		if normalizeIntent(prior) == current {
			d.Mode = schema.ModePlan
			d.AssistantMessage = ""
			d.IntentDescription = ""
			c.ForceSummarize = true
			return true
		}
	}
	return false
}

func normalizeIntent(intent string) string {
	return strings.Join(strings.Fields(strings.ToLower(intent)), " ")
}
