package guardrail

import (
	"testing"
	"time"

	"ai-assistant-be/pkg/agent/dates"
	"ai-assistant-be/pkg/agent/schema"
	"ai-assistant-be/pkg/agent/state"
)

// Friday morning, so 내일 is a Saturday and 다음 주 lands in the following week.
var testNow = time.Date(2026, 1, 16, 10, 0, 0, 0, dates.KST)

func testEngine() *Engine {
	return NewEngine(nil)
}

func TestForceCreateDateReanchorsRelativeDay(t *testing.T) {
	dec := schema.ExecuteDecision{Actions: []schema.ProposedAction{{
		Tool: "create_event",
		Args: map[string]interface{}{
			"summary":    "팀 회의",
			"start_time": "2026-01-20T15:00:00",
			"end_time":   "2026-01-20T16:30:00",
		},
	}}}
	ctx := &Context{Now: testNow, UserMessage: "내일 오후 2시에 팀 회의 잡아줘"}

	applied := testEngine().ApplyExec(&dec, ctx)
	if len(applied) == 0 || applied[0] != "resolve_relative_dates" {
		t.Fatalf("expected resolve_relative_dates to fire, applied = %v", applied)
	}
	if got := dec.Actions[0].Args["start_time"]; got != "2026-01-17T14:00:00" {
		t.Errorf("start_time = %v, want 2026-01-17T14:00:00", got)
	}
	if got := dec.Actions[0].Args["end_time"]; got != "2026-01-17T15:30:00" {
		t.Errorf("end_time = %v, want 2026-01-17T15:30:00 (duration preserved)", got)
	}
}

func TestForceCreateDateKeepsModelClockWithoutUserTime(t *testing.T) {
	dec := schema.ExecuteDecision{Actions: []schema.ProposedAction{{
		Tool: "create_event",
		Args: map[string]interface{}{
			"start_time": "2025-06-01T11:30:00",
		},
	}}}
	ctx := &Context{Now: testNow, UserMessage: "내일 치과 예약 잡아줘"}

	testEngine().ApplyExec(&dec, ctx)
	if got := dec.Actions[0].Args["start_time"]; got != "2026-01-17T11:30:00" {
		t.Errorf("start_time = %v, want model clock on resolved day", got)
	}
}

func TestForceCreateDateSkipsExplicitDate(t *testing.T) {
	action := schema.ProposedAction{
		Tool: "create_event",
		Args: map[string]interface{}{"start_time": "2026-02-01T10:00:00"},
	}
	ctx := &Context{Now: testNow, UserMessage: "2026-02-01 에 내일 준비 회의 잡아줘"}
	if forceCreateDate(&action, ctx) {
		t.Error("correction fired despite explicit date in message")
	}
}

func TestForceCreateDateIdempotent(t *testing.T) {
	action := schema.ProposedAction{
		Tool: "create_event",
		Args: map[string]interface{}{
			"start_time": "2026-01-17T14:00:00",
			"end_time":   "2026-01-17T15:00:00",
		},
	}
	ctx := &Context{Now: testNow, UserMessage: "내일 오후 2시에 회의 잡아줘"}
	if forceCreateDate(&action, ctx) {
		t.Error("correction fired although the action already matches the user request")
	}
}

func TestNormalizeListRange(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantFire bool
		wantMin  string
		wantMax  string
	}{
		{"tomorrow", "내일 일정 알려줘", true, "2026-01-17T00:00:00", "2026-01-18T00:00:00"},
		{"today", "오늘 일정 뭐 있어?", true, "2026-01-16T00:00:00", "2026-01-17T00:00:00"},
		{"week phrasing left alone", "이번 주 일정 알려줘", false, "", ""},
		{"no relative day", "일정 알려줘", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := schema.ProposedAction{Tool: "list_events", Args: map[string]interface{}{}}
			ctx := &Context{Now: testNow, UserMessage: tt.message}
			fired := normalizeListRange(&action, ctx)
			if fired != tt.wantFire {
				t.Fatalf("fired = %v, want %v", fired, tt.wantFire)
			}
			if !tt.wantFire {
				return
			}
			if action.Args["time_min"] != tt.wantMin || action.Args["time_max"] != tt.wantMax {
				t.Errorf("range = [%v, %v], want [%s, %s]",
					action.Args["time_min"], action.Args["time_max"], tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestRepairTruncatedCalendarID(t *testing.T) {
	ctx := &Context{
		Now:         testNow,
		UserMessage: "내일 회의 잡아줘",
		CalendarNameToID: map[string]string{
			"[WS] Inc.": "c_ws1234567890abcdef@group.calendar.google.com",
			"Personal":  "user@gmail.com",
		},
		PrimaryCalendarID: "user@gmail.com",
	}

	t.Run("single prefix match repaired", func(t *testing.T) {
		action := schema.ProposedAction{Tool: "create_event", Args: map[string]interface{}{
			"calendar_id": "c_ws1234567890abcdef@group.calendar",
		}}
		if !repairTruncatedCalendarID(&action, ctx) {
			t.Fatal("expected repair to fire")
		}
		if got := action.Args["calendar_id"]; got != "c_ws1234567890abcdef@group.calendar.google.com" {
			t.Errorf("calendar_id = %v", got)
		}
		if repairTruncatedCalendarID(&action, ctx) {
			t.Error("repair fired again on an already complete id")
		}
	})

	t.Run("bare word not treated as truncation", func(t *testing.T) {
		action := schema.ProposedAction{Tool: "create_event", Args: map[string]interface{}{
			"calendar_id": "work",
		}}
		if repairTruncatedCalendarID(&action, ctx) {
			t.Error("repair fired on an id with no @ or dot")
		}
	})

	t.Run("ambiguous prefix left alone", func(t *testing.T) {
		ambiguous := &Context{CalendarNameToID: map[string]string{
			"A": "cal.one@example.com",
			"B": "cal.one@example.org",
		}}
		action := schema.ProposedAction{Tool: "create_event", Args: map[string]interface{}{
			"calendar_id": "cal.one@example.",
		}}
		if repairTruncatedCalendarID(&action, ambiguous) {
			t.Error("repair fired despite two candidate extensions")
		}
	})
}

func TestResolveAmbiguousEventID(t *testing.T) {
	recent := []state.RecentEntity{{
		ExternalID:   "evt_8f2a91c4d7e6b5a3f1c2d3e4",
		Label:        "팀 회의",
		CollectionID: "user@gmail.com",
	}}

	t.Run("recency reference rewritten", func(t *testing.T) {
		action := schema.ProposedAction{Tool: "delete_event", Args: map[string]interface{}{
			"event_id": "evt_8f2a91c4d7e6b5a3f1c2d3e4",
		}}
		ctx := &Context{UserMessage: "방금 만든 일정 삭제해줘", RecentEntities: recent}
		// id already matches the latest entity, nothing to rewrite
		if resolveAmbiguousEventID(&action, ctx) {
			t.Error("rewrite fired although id already points at the latest entity")
		}
	})

	t.Run("short id substituted", func(t *testing.T) {
		action := schema.ProposedAction{Tool: "delete_event", Args: map[string]interface{}{
			"event_id": "evt_1",
		}}
		ctx := &Context{UserMessage: "그 일정 삭제해줘", RecentEntities: recent}
		if !resolveAmbiguousEventID(&action, ctx) {
			t.Fatal("expected substitution to fire")
		}
		if action.Args["event_id"] != recent[0].ExternalID {
			t.Errorf("event_id = %v", action.Args["event_id"])
		}
		if action.Args["calendar_id"] != recent[0].CollectionID {
			t.Errorf("calendar_id = %v", action.Args["calendar_id"])
		}
	})

	t.Run("plausible id without recency untouched", func(t *testing.T) {
		action := schema.ProposedAction{Tool: "delete_event", Args: map[string]interface{}{
			"event_id": "evt_completely_different_id_123",
		}}
		ctx := &Context{UserMessage: "해당 ID의 일정을 삭제해 주세요", RecentEntities: recent}
		if resolveAmbiguousEventID(&action, ctx) {
			t.Error("rewrite fired on a full-length id without a recency reference")
		}
	})

	t.Run("no recents no rewrite", func(t *testing.T) {
		action := schema.ProposedAction{Tool: "delete_event", Args: map[string]interface{}{
			"event_id": "x",
		}}
		if resolveAmbiguousEventID(&action, &Context{UserMessage: "방금 일정 삭제"}) {
			t.Error("rewrite fired with no recent entities")
		}
	})
}

func TestResolveCalendarName(t *testing.T) {
	nameToID := map[string]string{
		"[Work]":    "work@group.calendar.google.com",
		"[WS] Inc.": "ws@group.calendar.google.com",
		"Personal":  "user@gmail.com",
	}
	base := Context{
		CalendarNameToID:     nameToID,
		PrimaryCalendarID:    "user@gmail.com",
		FallbackCalendarName: "[WS] Inc.",
	}

	t.Run("user named calendar wins", func(t *testing.T) {
		ctx := base
		ctx.UserMessage = "[Work] 캘린더에 내일 회의 추가해줘"
		action := schema.ProposedAction{Tool: "create_event", Args: map[string]interface{}{
			"calendar_id": "user@gmail.com",
		}}
		if !resolveCalendarName(&action, &ctx) {
			t.Fatal("expected calendar substitution")
		}
		if action.Args["calendar_id"] != "work@group.calendar.google.com" {
			t.Errorf("calendar_id = %v", action.Args["calendar_id"])
		}
	})

	t.Run("intent named calendar second", func(t *testing.T) {
		ctx := base
		ctx.UserMessage = "회의 추가해줘"
		ctx.Intent = "Create event in [Work] calendar"
		action := schema.ProposedAction{Tool: "create_event", Args: map[string]interface{}{}}
		if !resolveCalendarName(&action, &ctx) {
			t.Fatal("expected calendar substitution")
		}
		if action.Args["calendar_id"] != "work@group.calendar.google.com" {
			t.Errorf("calendar_id = %v", action.Args["calendar_id"])
		}
	})

	t.Run("known id kept", func(t *testing.T) {
		ctx := base
		ctx.UserMessage = "내일 회의 추가해줘"
		action := schema.ProposedAction{Tool: "create_event", Args: map[string]interface{}{
			"calendar_id": "work@group.calendar.google.com",
		}}
		if resolveCalendarName(&action, &ctx) {
			t.Error("substitution fired on an already valid calendar id")
		}
	})

	t.Run("meeting registration falls back to configured calendar", func(t *testing.T) {
		ctx := base
		ctx.UserMessage = "등록 진행해줘"
		ctx.MeetingRegistration = true
		action := schema.ProposedAction{Tool: "create_event", Args: map[string]interface{}{
			"calendar_id": "hallucinated@nowhere",
		}}
		if !resolveCalendarName(&action, &ctx) {
			t.Fatal("expected fallback substitution")
		}
		if action.Args["calendar_id"] != "ws@group.calendar.google.com" {
			t.Errorf("calendar_id = %v", action.Args["calendar_id"])
		}
	})

	t.Run("primary as last resort", func(t *testing.T) {
		ctx := base
		ctx.UserMessage = "회의 추가"
		action := schema.ProposedAction{Tool: "create_event", Args: map[string]interface{}{}}
		if !resolveCalendarName(&action, &ctx) {
			t.Fatal("expected primary fallback")
		}
		if action.Args["calendar_id"] != "user@gmail.com" {
			t.Errorf("calendar_id = %v", action.Args["calendar_id"])
		}
	})
}

func TestNormalizeTravelQuery(t *testing.T) {
	tests := []struct {
		name    string
		message string
		lang    string
		query   string
		want    string
	}{
		{"garbled lodging query", "오사카 호텔 주소랑 체크인 시간 알려줘", "ko", "???", "오사카 hotel address and check-in time"},
		{"garbled flight query", "What's my Osaka flight number?", "en", "@@", "Osaka flight number and time"},
		{"garbled generic travel", "오사카 여행 어떻게 가지", "ko", "!!", "오사카 travel itinerary"},
		{"clean query untouched", "오사카 호텔 알려줘", "ko", "osaka hotel address", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := schema.ProposedAction{Tool: "search_travel_info", Args: map[string]interface{}{
				"query": tt.query,
			}}
			ctx := &Context{UserMessage: tt.message, Language: tt.lang}
			fired := normalizeTravelQuery(&action, ctx)
			if tt.want == "" {
				if fired {
					t.Errorf("rewrite fired on clean query, got %v", action.Args["query"])
				}
				return
			}
			if !fired {
				t.Fatal("expected rewrite to fire")
			}
			if action.Args["query"] != tt.want {
				t.Errorf("query = %v, want %s", action.Args["query"], tt.want)
			}
		})
	}
}

func TestForceCalendarListExecute(t *testing.T) {
	t.Run("list question forced onto tool path", func(t *testing.T) {
		dec := schema.PlanDecision{Mode: schema.ModePlan, AssistantMessage: "잠시만요, 확인해볼게요."}
		ctx := &Context{Now: testNow, UserMessage: "내일 일정 알려줘", WorkflowStep: state.StepNone}
		if !forceCalendarListExecute(&dec, ctx) {
			t.Fatal("expected correction to fire")
		}
		if dec.Mode != schema.ModeExecute {
			t.Errorf("mode = %s", dec.Mode)
		}
		if dec.IntentDescription != "List events tomorrow" {
			t.Errorf("intent = %q", dec.IntentDescription)
		}
	})

	t.Run("create request not forced", func(t *testing.T) {
		dec := schema.PlanDecision{Mode: schema.ModePlan, AssistantMessage: "네"}
		ctx := &Context{Now: testNow, UserMessage: "내일 회의 추가해줘", WorkflowStep: state.StepNone}
		if forceCalendarListExecute(&dec, ctx) {
			t.Error("correction fired on a creation request")
		}
	})

	t.Run("review step left alone", func(t *testing.T) {
		dec := schema.PlanDecision{Mode: schema.ModePlan, AssistantMessage: "아래 일정을 확인해주세요"}
		ctx := &Context{Now: testNow, UserMessage: "오늘 일정 알려줘", WorkflowStep: state.StepReview}
		if forceCalendarListExecute(&dec, ctx) {
			t.Error("correction fired during the review workflow")
		}
	})
}

func TestConfirmRegistrationIntent(t *testing.T) {
	pending := []schema.ActionItem{{Task: "design review", IsCalendarEvent: true}}

	t.Run("affirmation converted to registration", func(t *testing.T) {
		dec := schema.PlanDecision{Mode: schema.ModePlan, AssistantMessage: "등록할까요?"}
		ctx := &Context{
			UserMessage:       "네, 등록 진행해줘",
			WorkflowStep:      state.StepReview,
			PendingCandidates: pending,
		}
		if !confirmRegistrationIntent(&dec, ctx) {
			t.Fatal("expected correction to fire")
		}
		if dec.Mode != schema.ModeExecute {
			t.Errorf("mode = %s", dec.Mode)
		}
		if dec.IntentDescription != "Confirm and register all pending calendar events" {
			t.Errorf("intent = %q", dec.IntentDescription)
		}
		if dec.NeedsConfirmation {
			t.Error("needs_confirmation not cleared")
		}
	})

	t.Run("already registering untouched", func(t *testing.T) {
		dec := schema.PlanDecision{
			Mode:              schema.ModeExecute,
			IntentDescription: "Register the pending events",
		}
		ctx := &Context{
			UserMessage:       "yes",
			WorkflowStep:      state.StepReview,
			PendingCandidates: pending,
		}
		if confirmRegistrationIntent(&dec, ctx) {
			t.Error("correction fired on a decision that already registers")
		}
	})

	t.Run("outside review step untouched", func(t *testing.T) {
		dec := schema.PlanDecision{Mode: schema.ModePlan, AssistantMessage: "네"}
		ctx := &Context{UserMessage: "yes", WorkflowStep: state.StepNone}
		if confirmRegistrationIntent(&dec, ctx) {
			t.Error("correction fired outside the review workflow")
		}
	})
}

func TestBreakSelfLoop(t *testing.T) {
	t.Run("repeated intent downgraded", func(t *testing.T) {
		dec := schema.PlanDecision{Mode: schema.ModeExecute, IntentDescription: "List events  Tomorrow"}
		ctx := &Context{PriorIntents: []string{"list events tomorrow"}}
		if !breakSelfLoop(&dec, ctx) {
			t.Fatal("expected loop break")
		}
		if dec.Mode != schema.ModePlan {
			t.Errorf("mode = %s", dec.Mode)
		}
		if !ctx.ForceSummarize {
			t.Error("ForceSummarize not raised")
		}
	})

	t.Run("fresh intent allowed", func(t *testing.T) {
		dec := schema.PlanDecision{Mode: schema.ModeExecute, IntentDescription: "Delete the team meeting"}
		ctx := &Context{PriorIntents: []string{"List events tomorrow"}}
		if breakSelfLoop(&dec, ctx) {
			t.Error("loop break fired on a new intent")
		}
		if ctx.ForceSummarize {
			t.Error("ForceSummarize raised without a loop")
		}
	})
}
