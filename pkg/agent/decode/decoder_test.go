package decode

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-assistant-be/pkg/agent/schema"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"fenced block",
			"Here you go:\n```json\n{\"mode\": \"plan\"}\n```",
			`{"mode": "plan"}`,
		},
		{
			"bare object",
			`{"mode": "execute"}`,
			`{"mode": "execute"}`,
		},
		{
			"object with prose around it",
			`Sure! {"mode": "plan", "note": "ok"} hope that helps`,
			`{"mode": "plan", "note": "ok"}`,
		},
		{
			"braces inside strings",
			`{"message": "use {curly} braces"}`,
			`{"message": "use {curly} braces"}`,
		},
		{
			"nested objects",
			`noise {"a": {"b": 1}} noise`,
			`{"a": {"b": 1}}`,
		},
		{
			"no json",
			"I cannot answer that.",
			"",
		},
		{
			"empty",
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.raw); got != tt.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeRouterFallsBackToComplex(t *testing.T) {
	d := NewDecoder(nil, nil)
	decision, outcome := d.DecodeRouter(context.Background(), "total garbage")
	if outcome != OutcomeFallback {
		t.Fatalf("outcome = %s, want fallback", outcome)
	}
	if decision.Mode != schema.RouterComplex {
		t.Errorf("mode = %q, want complex", decision.Mode)
	}
}

func TestDecodeRouterClean(t *testing.T) {
	d := NewDecoder(nil, nil)
	decision, outcome := d.DecodeRouter(context.Background(), `{"mode": "simple", "reasoning": "one tool call"}`)
	if outcome != OutcomeClean {
		t.Fatalf("outcome = %s, want clean", outcome)
	}
	if decision.Mode != schema.RouterSimple {
		t.Errorf("mode = %q, want simple", decision.Mode)
	}
}

func TestDecodeWithRepair(t *testing.T) {
	repair := func(ctx context.Context, raw string, cause error) (string, error) {
		return `{"mode": "plan", "assistant_message": "repaired", "language": "en"}`, nil
	}
	d := NewDecoder(repair, nil)
	decision, outcome := d.DecodePlan(context.Background(), `{"mode": "plan", "assistant_message": `, "hello", "en")
	if outcome != OutcomeRepaired {
		t.Fatalf("outcome = %s, want repaired", outcome)
	}
	if decision.AssistantMessage != "repaired" {
		t.Errorf("message = %q", decision.AssistantMessage)
	}
}

func TestRepairReceivesParseError(t *testing.T) {
	var gotCause error
	repair := func(ctx context.Context, raw string, cause error) (string, error) {
		gotCause = cause
		return `{"mode": "plan", "assistant_message": "repaired", "language": "en"}`, nil
	}
	d := NewDecoder(repair, nil)

	// valid JSON that fails validation: the repair call must be told what
	// was wrong, not just handed the text again
	_, outcome := d.DecodePlan(context.Background(), `{"mode": "plan"}`, "hello", "en")
	if outcome != OutcomeRepaired {
		t.Fatalf("outcome = %s, want repaired", outcome)
	}
	if gotCause == nil {
		t.Fatal("repair was not given the validation error")
	}
	if !strings.Contains(gotCause.Error(), "assistant_message") {
		t.Errorf("cause = %q, want the failing field named", gotCause)
	}

	gotCause = nil
	if _, outcome := d.DecodePlan(context.Background(), "no json here at all", "hello", "en"); outcome != OutcomeRepaired {
		t.Fatalf("outcome = %s, want repaired", outcome)
	}
	if gotCause == nil || !strings.Contains(gotCause.Error(), "no JSON object") {
		t.Errorf("cause = %v, want the extraction failure", gotCause)
	}
}

func TestDecodePlanFallbackApology(t *testing.T) {
	repair := func(ctx context.Context, raw string, cause error) (string, error) {
		return "", errors.New("model down")
	}
	d := NewDecoder(repair, nil)
	decision, outcome := d.DecodePlan(context.Background(), "garbage", "내일 일정 알려줘", "ko")
	if outcome != OutcomeFallback {
		t.Fatalf("outcome = %s, want fallback", outcome)
	}
	if decision.Mode != schema.ModePlan {
		t.Errorf("mode = %q, want plan", decision.Mode)
	}
	if decision.AssistantMessage == "" {
		t.Error("fallback must carry a user-facing message")
	}
}

func TestDecodePlanDeleteOverride(t *testing.T) {
	d := NewDecoder(nil, nil)
	decision, outcome := d.DecodePlan(context.Background(), "garbage", "방금 일정 삭제해줘", "ko")
	if outcome != OutcomeFallback {
		t.Fatalf("outcome = %s, want fallback", outcome)
	}
	if decision.Mode != schema.ModeExecute {
		t.Errorf("deletion request must pivot to execute, got mode %q", decision.Mode)
	}
}

func TestDecodeExecuteDeleteOverride(t *testing.T) {
	d := NewDecoder(nil, nil)
	decision, outcome := d.DecodeExecute(context.Background(), "garbage", "cancel that event")
	if outcome != OutcomeFallback {
		t.Fatalf("outcome = %s, want fallback", outcome)
	}
	if decision == nil {
		t.Fatal("deletion request must produce a fallback decision")
	}
	if decision.Actions[0].Tool != "delete_event" {
		t.Errorf("tool = %q, want delete_event", decision.Actions[0].Tool)
	}
}

func TestDecodeExecuteUnrecoverableIsNil(t *testing.T) {
	d := NewDecoder(nil, nil)
	decision, outcome := d.DecodeExecute(context.Background(), "garbage", "내일 일정 알려줘")
	if outcome != OutcomeFallback {
		t.Fatalf("outcome = %s, want fallback", outcome)
	}
	if decision != nil {
		t.Error("non-deletion fallback must be nil so the turn can degrade")
	}
}
