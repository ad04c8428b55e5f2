package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"ai-assistant-be/pkg/agent/dates"
	"ai-assistant-be/pkg/agent/state"
	"ai-assistant-be/pkg/tools"
)

const historyWindow = 12

func renderHistory(st *state.DialogueState) string {
	messages := st.Messages
	if len(messages) > historyWindow {
		messages = messages[len(messages)-historyWindow:]
	}
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case state.RoleTool:
			fmt.Fprintf(&b, "[tool:%s] %s\n", msg.ToolName, msg.Content)
		default:
			fmt.Fprintf(&b, "[%s] %s\n", msg.Role, msg.Content)
		}
	}
	return b.String()
}

func renderFacts(facts []string) string {
	if len(facts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[KNOWN USER FACTS]\n")
	for _, f := range facts {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return b.String()
}

func buildRouterPrompt(message string, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a request router for a personal assistant. Current time: ")
	b.WriteString(dates.CurrentTimeString(now))
	b.WriteString("\nClassify the user message into exactly one mode:\n")
	b.WriteString("- \"answer\": small talk or a question answerable from general knowledge, no tools needed\n")
	b.WriteString("- \"simple\": a single straightforward tool operation, like listing or creating one calendar event\n")
	b.WriteString("- \"complex\": multi-step work, meeting notes or transcripts to summarize, travel document lookups, anything ambiguous\n\n")
	b.WriteString("Respond with ONLY this JSON: {\"mode\": \"answer|simple|complex\", \"reasoning\": \"one sentence\"}\n\n")
	fmt.Fprintf(&b, "USER MESSAGE:\n%s", message)
	return b.String()
}

func buildPlannerPrompt(st *state.DialogueState, facts []string, catalog []tools.Descriptor, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are the planning stage of a personal assistant. Current time: ")
	b.WriteString(dates.CurrentTimeString(now))
	b.WriteString("\n")
	b.WriteString(renderFacts(facts))
	if len(catalog) > 0 {
		b.WriteString("\n[AVAILABLE TOOLS]\n")
		b.WriteString(tools.RenderCatalog(catalog))
	}
	b.WriteString("\n[CONVERSATION]\n")
	b.WriteString(renderHistory(st))
	if st.WorkflowStep != state.StepNone {
		fmt.Fprintf(&b, "\n[WORKFLOW] step=%s pending_candidates=%d\n", st.WorkflowStep, len(st.PendingCandidateEvents))
	}
	b.WriteString("\nDecide the next step. Respond with ONLY this JSON:\n")
	b.WriteString(`{"mode": "plan|execute", "assistant_message": "reply when mode is plan, else empty", "intent_description": "one concrete sentence describing the tool work when mode is execute", "language": "ko|en", "needs_confirmation": false}` + "\n")
	b.WriteString("Rules:\n")
	b.WriteString("- mode \"execute\" when the request needs calendar, travel or meeting tools.\n")
	b.WriteString("- mode \"plan\" for a direct reply; assistant_message must then be non-empty and in the user's language.\n")
	b.WriteString("- Never invent flight numbers, times or addresses; those come from tools.\n")
	return b.String()
}

func buildExecutorPrompt(st *state.DialogueState, intent string, catalog []tools.Descriptor, nameToID map[string]string, recents []state.RecentEntity, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are the execution stage of a personal assistant. Current time: ")
	b.WriteString(dates.CurrentTimeString(now))
	b.WriteString("\n\n")
	b.WriteString(dates.ReferenceTable(now))
	b.WriteString("\n[AVAILABLE TOOLS]\n")
	b.WriteString(tools.RenderCatalog(catalog))
	if len(nameToID) > 0 {
		b.WriteString("\n[CALENDARS]\n")
		for name, id := range nameToID {
			fmt.Fprintf(&b, "- %s: %s\n", name, id)
		}
	}
	if len(recents) > 0 {
		b.WriteString("\n[RECENTLY CREATED EVENTS, newest first]\n")
		for _, r := range recents {
			fmt.Fprintf(&b, "- %s (id=%s, calendar=%s)\n", r.Label, r.ExternalID, r.CollectionID)
		}
	}
	b.WriteString("\n[CONVERSATION]\n")
	b.WriteString(renderHistory(st))
	fmt.Fprintf(&b, "\n[INTENT]\n%s\n", intent)
	b.WriteString("\nProduce the tool calls for this intent. Respond with ONLY this JSON:\n")
	b.WriteString(`{"actions": [{"tool": "tool_name", "args": {}}], "reasoning": "one sentence"}` + "\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Use full calendar ids exactly as listed, never shortened.\n")
	b.WriteString("- Timestamps are local KST in YYYY-MM-DDTHH:MM:SS form.\n")
	b.WriteString("- Copy text arguments verbatim from the conversation; do not paraphrase queries.\n")
	return b.String()
}

func buildSummarizePrompt(st *state.DialogueState, toolName, toolResult string) string {
	var b strings.Builder
	b.WriteString("You are a personal assistant. Write the final reply to the user based on the tool result below.\n")
	fmt.Fprintf(&b, "Reply in %s. Mention only information present in the result; never invent details.\n\n", languageName(st.Language))
	fmt.Fprintf(&b, "[USER QUESTION]\n%s\n\n", st.LastUserMessage())
	if toolResult != "" {
		fmt.Fprintf(&b, "[TOOL RESULT from %s]\n%s\n", toolName, toolResult)
	} else {
		b.WriteString("[TOOL RESULT]\n(no tool produced a result this turn)\n")
	}
	b.WriteString("\nReply with plain text only, no JSON.")
	return b.String()
}

func buildRepairPrompt(raw string, cause error) string {
	var b strings.Builder
	b.WriteString("The following text was supposed to be a single valid JSON object but is malformed.\n")
	fmt.Fprintf(&b, "Parsing it failed with: %v\n", cause)
	b.WriteString("Rewrite it as valid JSON, preserving every field and value you can recover.\n")
	b.WriteString("Respond with ONLY the JSON object, no commentary, no markdown fences.\n\n")
	b.WriteString(raw)
	return b.String()
}

func languageName(code string) string {
	if code == "ko" {
		return "Korean"
	}
	return "English"
}
