// Package schema defines the typed decision objects decoded from model
// output. A decision object is always fully populated: decode failure yields
// a schema-conformant default, never a nil or partial value.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Router modes.
const (
	RouterAnswer  = "answer"
	RouterSimple  = "simple"
	RouterComplex = "complex"
)

// Planner modes.
const (
	ModePlan    = "plan"
	ModeExecute = "execute"
)

// RouterDecision classifies how much work the turn will need.
type RouterDecision struct {
	Mode      string `json:"mode"`
	Reasoning string `json:"reasoning"`
}

func (d *RouterDecision) Validate() error {
	switch d.Mode {
	case RouterAnswer, RouterSimple, RouterComplex:
		return nil
	}
	return fmt.Errorf("invalid router mode %q", d.Mode)
}

// PlanDecision is the planner's reply-or-act choice.
type PlanDecision struct {
	Mode              string `json:"mode"`
	AssistantMessage  string `json:"assistant_message"`
	IntentDescription string `json:"intent_description"`
	Language          string `json:"language"`
	NeedsConfirmation bool   `json:"needs_confirmation"`
}

func (d *PlanDecision) Validate() error {
	if d.Mode != ModePlan && d.Mode != ModeExecute {
		return fmt.Errorf("invalid plan mode %q", d.Mode)
	}
	if d.Mode == ModePlan && d.AssistantMessage == "" {
		return errors.New("assistant_message must not be empty in plan mode")
	}
	if d.Mode == ModeExecute && d.IntentDescription == "" {
		return errors.New("intent_description must not be empty in execute mode")
	}
	return nil
}

// ProposedAction is one tool call proposed by the model.
type ProposedAction struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

// ExecuteDecision holds the approved tool calls for this hop. The schema
// carries exactly one shape: a non-empty action list. Models that emit the
// legacy single/batch pair are normalized on unmarshal, with the batch taking
// precedence so an action is never executed twice.
type ExecuteDecision struct {
	Actions   []ProposedAction `json:"actions"`
	Reasoning string           `json:"reasoning"`
}

type executeEnvelope struct {
	Actions         []ProposedAction `json:"actions"`
	ProposedActions []ProposedAction `json:"proposed_actions"`
	ProposedAction  *ProposedAction  `json:"proposed_action"`
	Reasoning       string           `json:"reasoning"`
}

func (d *ExecuteDecision) UnmarshalJSON(data []byte) error {
	var env executeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	d.Reasoning = env.Reasoning
	d.Actions = CollapseActions(env.Actions, env.ProposedActions, env.ProposedAction)
	return nil
}

// CollapseActions picks one action list out of the possible shapes. Explicit
// precedence: canonical list, then batch, then single.
func CollapseActions(actions, batch []ProposedAction, single *ProposedAction) []ProposedAction {
	if len(actions) > 0 {
		return actions
	}
	if len(batch) > 0 {
		return batch
	}
	if single != nil {
		return []ProposedAction{*single}
	}
	return nil
}

func (d *ExecuteDecision) Validate() error {
	if len(d.Actions) == 0 {
		return errors.New("execute decision must contain at least one action")
	}
	for i, a := range d.Actions {
		if a.Tool == "" {
			return fmt.Errorf("action %d has no tool name", i)
		}
	}
	return nil
}

// ActionItem is one commitment extracted from meeting notes. Field names
// follow the summarizer tool's output contract.
type ActionItem struct {
	Task                   string `json:"task"`
	Assignee               string `json:"assignee"`
	DueDate                string `json:"due_date"`
	IsCalendarEvent        bool   `json:"is_calendar_event"`
	SuggestedCalendarTitle string `json:"suggested_calendar_title"`
	SuggestedStartTime     string `json:"suggested_start_time"`
	SuggestedEndTime       string `json:"suggested_end_time"`
}

// MeetingSummary is the structured result of the meeting-notes summarizer.
type MeetingSummary struct {
	Summary      string       `json:"summary"`
	Participants []string     `json:"participants"`
	KeyTopics    []string     `json:"key_topics"`
	Decisions    []string     `json:"decisions"`
	ActionItems  []ActionItem `json:"action_items"`
	Error        string       `json:"error,omitempty"`
}

// CandidateEvents filters the action items down to calendar-worthy ones.
func (m *MeetingSummary) CandidateEvents() []ActionItem {
	var events []ActionItem
	for _, item := range m.ActionItems {
		if item.IsCalendarEvent {
			events = append(events, item)
		}
	}
	return events
}
