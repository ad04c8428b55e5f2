// Package meeting turns raw meeting notes into a structured summary with
// calendar-worthy action items.
package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-assistant-be/pkg/agent/decode"
	"ai-assistant-be/pkg/agent/schema"
	"ai-assistant-be/pkg/llm"
	"ai-assistant-be/pkg/tools"
)

// SummarizeTool is the summarize_meeting_notes agent tool. It returns the
// structured summary as a JSON tool message so the planner can walk the
// action items without re-parsing prose.
type SummarizeTool struct {
	Gateway *llm.Gateway
	Model   string
	Logger  *log.Logger
}

func (t *SummarizeTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:           "summarize_meeting_notes",
		Description:    "Summarize meeting notes or a transcript into decisions and action items, flagging items that belong on the calendar.",
		ArgumentSchema: `{"notes": "string, the full raw notes"}`,
	}
}

func (t *SummarizeTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	notes := tools.StringArg(args, "notes")
	if strings.TrimSpace(notes) == "" {
		return "", fmt.Errorf("summarize_meeting_notes requires notes")
	}
	raw, err := t.Gateway.Invoke(ctx, buildPrompt(notes), llm.InvokeOptions{
		Model:      t.Model,
		Structured: true,
		Complex:    true,
	})
	if err != nil {
		return "", tools.MarkTransient(fmt.Errorf("meeting summarization failed: %w", err))
	}

	var summary schema.MeetingSummary
	candidate := decode.ExtractJSON(raw)
	if candidate == "" || json.Unmarshal([]byte(candidate), &summary) != nil || summary.Summary == "" {
		if t.Logger != nil {
			t.Logger.Printf("[MEETING] summarizer output unreadable, returning error payload")
		}
		summary = schema.MeetingSummary{Error: "could not extract a structured summary from the notes"}
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to encode meeting summary: %w", err)
	}
	return string(payload), nil
}

func buildPrompt(notes string) string {
	var b strings.Builder
	b.WriteString("You are a meeting analyst. Read the meeting notes and produce ONLY a JSON object with this exact shape:\n")
	b.WriteString(`{
  "summary": "2-3 sentence overview",
  "participants": ["name"],
  "key_topics": ["topic"],
  "decisions": ["decision"],
  "action_items": [
    {
      "task": "what must be done",
      "assignee": "who, or empty",
      "due_date": "YYYY-MM-DD or empty",
      "is_calendar_event": true,
      "suggested_calendar_title": "short title when is_calendar_event is true",
      "suggested_start_time": "YYYY-MM-DDTHH:MM:SS or empty",
      "suggested_end_time": "YYYY-MM-DDTHH:MM:SS or empty"
    }
  ]
}` + "\n")
	b.WriteString("Rules:\n")
	b.WriteString("- is_calendar_event is true only for items with a concrete time or deadline worth scheduling.\n")
	b.WriteString("- Keep the summary in the language the notes are written in.\n")
	b.WriteString("- Never wrap the JSON in markdown fences or add commentary.\n\n")
	b.WriteString("MEETING NOTES:\n")
	b.WriteString(notes)
	return b.String()
}
