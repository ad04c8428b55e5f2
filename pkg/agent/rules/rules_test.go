package rules

import (
	"testing"
)

func TestIsTravelQuery(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"osaka flight korean", "오사카 비행기 몇 시야?", true},
		{"airport code", "what gate is my KIX flight?", true},
		{"eticket", "where is my e-ticket?", true},
		{"calendar only phrasing", "내일 일정 알려줘", false},
		{"calendar with travel hint", "오사카 여행 일정 캘린더에 등록해줘", true},
		{"plain chat", "안녕하세요", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTravelQuery(tt.message); got != tt.want {
				t.Errorf("IsTravelQuery(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestIsTravelFact(t *testing.T) {
	tests := []struct {
		name string
		fact string
		want bool
	}{
		{"flight fact korean", "사용자는 1월 20일 오사카행 항공편을 예약했다", true},
		{"airport code fact", "user departs from KIX on Jan 22", true},
		{"hotel fact", "숙소는 난바 근처 호텔이다", true},
		{"preference fact", "사용자는 오전 회의를 선호한다", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTravelFact(tt.fact); got != tt.want {
				t.Errorf("IsTravelFact(%q) = %v, want %v", tt.fact, got, tt.want)
			}
		})
	}
}

func TestCalendarClassifiers(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		wantQuery  bool
		wantCreate bool
		wantList   bool
	}{
		{"create korean", "내일 오후 2시에 팀 회의 잡아줘", true, true, false},
		{"list korean", "내일 일정 알려줘", true, false, true},
		{"list english", "what's on my calendar today", true, false, true},
		{"create english", "schedule a meeting tomorrow", true, true, false},
		{"unrelated", "날씨 어때?", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCalendarQuery(tt.message); got != tt.wantQuery {
				t.Errorf("IsCalendarQuery = %v, want %v", got, tt.wantQuery)
			}
			if got := IsCalendarCreateQuery(tt.message); got != tt.wantCreate {
				t.Errorf("IsCalendarCreateQuery = %v, want %v", got, tt.wantCreate)
			}
			if got := IsCalendarListQuery(tt.message); got != tt.wantList {
				t.Errorf("IsCalendarListQuery = %v, want %v", got, tt.wantList)
			}
		})
	}
}

func TestIsComplexQuery(t *testing.T) {
	if !IsComplexQuery("회의록 정리해줘") {
		t.Error("meeting notes keyword should be complex")
	}
	if !IsComplexQuery("summarize this transcript") {
		t.Error("transcript keyword should be complex")
	}
	if IsComplexQuery("내일 일정 알려줘") {
		t.Error("plain calendar query should not be complex")
	}
}

func TestIsAffirmation(t *testing.T) {
	affirmations := []string{"등록 진행해줘", "네 해주세요", "yes please", "ok", "confirm"}
	for _, msg := range affirmations {
		if !IsAffirmation(msg) {
			t.Errorf("IsAffirmation(%q) = false, want true", msg)
		}
	}
	if IsAffirmation("아니요 취소할게요") {
		t.Error("취소 without affirmation keyword matched") // 취소 hits deletion, not affirmation
	}
}

func TestIsDeletionRequest(t *testing.T) {
	for _, msg := range []string{"그 일정 삭제해줘", "cancel that meeting", "remove it", "취소해줘"} {
		if !IsDeletionRequest(msg) {
			t.Errorf("IsDeletionRequest(%q) = false, want true", msg)
		}
	}
	if IsDeletionRequest("내일 일정 알려줘") {
		t.Error("list query flagged as deletion")
	}
}

func TestHasRecencyReference(t *testing.T) {
	for _, msg := range []string{"방금 만든 일정 삭제해줘", "delete that event", "지워줘 금방 등록한 거"} {
		if !HasRecencyReference(msg) {
			t.Errorf("HasRecencyReference(%q) = false, want true", msg)
		}
	}
	if HasRecencyReference("다음 주 회의 잡아줘") {
		t.Error("future scheduling flagged as recency reference")
	}
}

func TestDetectLanguage(t *testing.T) {
	if got := DetectLanguage("내일 일정 알려줘"); got != "ko" {
		t.Errorf("DetectLanguage korean = %q", got)
	}
	if got := DetectLanguage("what's my schedule"); got != "en" {
		t.Errorf("DetectLanguage english = %q", got)
	}
}

func TestExtractCalendarName(t *testing.T) {
	if got := ExtractCalendarName("[WS] Inc. 캘린더에 등록해줘"); got != "[WS]" {
		t.Errorf("ExtractCalendarName = %q, want [WS]", got)
	}
	if got := ExtractCalendarName("no bracket here"); got != "" {
		t.Errorf("ExtractCalendarName = %q, want empty", got)
	}
}

func TestCalendarListIntent(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"내일 일정 알려줘", "List events tomorrow"},
		{"오늘 뭐 있지?", "List events today"},
		{"이번 주 일정 보여줘", "List events this week"},
		{"일정 알려줘", "List events"},
	}
	for _, tt := range tests {
		if got := CalendarListIntent(tt.message); got != tt.want {
			t.Errorf("CalendarListIntent(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestLooksGarbled(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", true},
		{"punctuation soup", "???!!!...", true},
		{"healthy korean", "오사카 비행기 시간", false},
		{"healthy english", "osaka flight number and time", false},
		{"mostly symbols", "%%%%a%%%%%%b%%%%%%%", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksGarbled(tt.text); got != tt.want {
				t.Errorf("LooksGarbled(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
