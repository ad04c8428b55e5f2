// Package state holds the per-turn dialogue scratch structure. It is
// rehydrated from the persisted message log at turn start and serialized back
// at turn end; nothing in here is shared between sessions.
package state

import (
	"time"

	"ai-assistant-be/pkg/agent/schema"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Confirmation workflow steps.
const (
	StepNone                   = "none"
	StepReview                 = "review"
	StepRegistrationInProgress = "registration_in_progress"
	StepCompleted              = "completed"
)

// Message is one role-tagged entry in the append-only dialogue log.
type Message struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ToolName string `json:"tool_name,omitempty"` // set when Role == RoleTool
}

// RecentEntity is one externally created entity recorded for reference
// resolution ("that event", "the one I just made").
type RecentEntity struct {
	SessionID    string
	ExternalID   string
	Label        string
	CollectionID string
	CreatedAt    time.Time
}

// RegistrationResult is the outcome of one create-class tool call.
type RegistrationResult struct {
	Summary    string `json:"summary"`
	Status     string `json:"status"` // "success" | "error" | "skipped"
	EventID    string `json:"event_id,omitempty"`
	CalendarID string `json:"calendar_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// VerificationResult is one entry from the registration verification tool.
type VerificationResult struct {
	EventID string `json:"event_id"`
	Summary string `json:"summary"`
	Found   bool   `json:"found"`
	Detail  string `json:"detail,omitempty"`
}

// DialogueState is the transient scratch structure for one turn sequence.
// Messages are append-only: entries are never reordered or rewritten.
type DialogueState struct {
	SessionID string
	Messages  []Message

	// Recomputed every turn, never carried forward silently.
	Mode       string // schema.ModePlan | schema.ModeExecute
	RouterMode string // schema.RouterAnswer | RouterSimple | RouterComplex

	IntentSummary     string
	NeedsConfirmation bool
	ConfirmationID    string
	Language          string // "ko" | "en"

	// Confirmation sub-workflow. PendingCandidateEvents is non-empty iff
	// WorkflowStep == StepReview.
	WorkflowStep           string
	PendingCandidateEvents []schema.ActionItem

	// Verbatim retained input (e.g. meeting notes) so re-planning never has
	// to re-ask the user.
	RawSourceText string

	// Side-effect accumulators, append-only within a turn sequence.
	RegistrationResults []RegistrationResult
	VerificationResults []VerificationResult
}

func New(sessionID string) *DialogueState {
	return &DialogueState{
		SessionID:    sessionID,
		Mode:         schema.ModePlan,
		WorkflowStep: StepNone,
		Language:     "ko",
	}
}

// Clone returns a deep copy, used to snapshot the state before a turn so a
// failed attempt can be retried from the same starting point.
func (s *DialogueState) Clone() *DialogueState {
	clone := *s
	clone.Messages = append([]Message(nil), s.Messages...)
	clone.PendingCandidateEvents = append([]schema.ActionItem(nil), s.PendingCandidateEvents...)
	clone.RegistrationResults = append([]RegistrationResult(nil), s.RegistrationResults...)
	clone.VerificationResults = append([]VerificationResult(nil), s.VerificationResults...)
	return &clone
}

func (s *DialogueState) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
}

func (s *DialogueState) AppendUser(content string) {
	s.Append(Message{Role: RoleUser, Content: content})
}

func (s *DialogueState) AppendAssistant(content string) {
	s.Append(Message{Role: RoleAssistant, Content: content})
}

func (s *DialogueState) AppendToolResult(toolName, content string) {
	s.Append(Message{Role: RoleTool, ToolName: toolName, Content: content})
}

// LastUserMessage returns the content of the most recent user entry.
func (s *DialogueState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// LastAssistantMessage returns the content of the most recent assistant entry.
func (s *DialogueState) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// LastToolMessage returns the most recent tool-result entry, or nil.
func (s *DialogueState) LastToolMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleTool {
			return &s.Messages[i]
		}
	}
	return nil
}

// CurrentToolResult returns the tail entry when it is a tool result, meaning
// the planner is being re-entered to consume a fresh tool output.
func (s *DialogueState) CurrentToolResult() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	tail := &s.Messages[len(s.Messages)-1]
	if tail.Role == RoleTool {
		return tail
	}
	return nil
}
