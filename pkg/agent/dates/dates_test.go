package dates

import (
	"testing"
	"time"
)

// reference is Friday 2026-01-16 10:00 KST.
var reference = time.Date(2026, 1, 16, 10, 0, 0, 0, KST)

func TestResolveRelativeDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"tomorrow korean", "내일 오후 2시에 팀 회의 잡아줘", "2026-01-17", true},
		{"tomorrow english", "schedule a sync tomorrow", "2026-01-17", true},
		{"today", "오늘 일정 알려줘", "2026-01-16", true},
		{"day after tomorrow", "모레 점심 약속", "2026-01-18", true},
		{"next monday korean", "다음 주 월요일에 회의", "2026-01-19", true},
		{"next friday korean", "다음 주 금요일 오후 3시", "2026-01-23", true},
		{"next wednesday english", "next wednesday at noon", "2026-01-21", true},
		{"no phrase", "회의 잡아줘", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveRelativeDate(tt.text, reference)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got.Format("2006-01-02") != tt.want {
				t.Errorf("date = %s, want %s", got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantHour int
		wantMin  int
		found    bool
	}{
		{"korean pm", "내일 오후 2시에 팀 회의", 14, 0, true},
		{"korean pm with minutes", "오후 3시 30분", 15, 30, true},
		{"korean am", "오전 9시", 9, 0, true},
		{"korean noon", "오후 12시", 12, 0, true},
		{"hh:mm", "meet at 14:30", 14, 30, true},
		{"meridiem", "3pm works", 15, 0, true},
		{"bare korean hour", "2시에 보자", 2, 0, true},
		{"none", "회의 잡아줘", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, found := ParseClock(tt.text)
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if found && (hour != tt.wantHour || minute != tt.wantMin) {
				t.Errorf("clock = %02d:%02d, want %02d:%02d", hour, minute, tt.wantHour, tt.wantMin)
			}
		})
	}
}

func TestResolveDateTimeTeamMeetingScenario(t *testing.T) {
	// Friday 2026-01-16 plus "내일 오후 2시" must land on Saturday 14:00.
	got, ok := ResolveDateTime("내일 오후 2시에 팀 회의 잡아줘", reference)
	if !ok {
		t.Fatal("expected a resolvable datetime")
	}
	want := "2026-01-17T14:00:00"
	if FormatLocal(got) != want {
		t.Errorf("resolved = %s, want %s", FormatLocal(got), want)
	}
}

func TestNextWeekday(t *testing.T) {
	// From Friday 2026-01-16, next week runs Mon 2026-01-19 .. Sun 2026-01-25.
	tests := []struct {
		wd   time.Weekday
		want string
	}{
		{time.Monday, "2026-01-19"},
		{time.Friday, "2026-01-23"},
		{time.Sunday, "2026-01-25"},
	}
	for _, tt := range tests {
		if got := NextWeekday(reference, tt.wd).Format("2006-01-02"); got != tt.want {
			t.Errorf("NextWeekday(%s) = %s, want %s", tt.wd, got, tt.want)
		}
	}
}

func TestDayRange(t *testing.T) {
	start, end := DayRange(time.Date(2026, 1, 17, 14, 0, 0, 0, KST))
	if FormatLocal(start) != "2026-01-17T00:00:00" {
		t.Errorf("start = %s", FormatLocal(start))
	}
	if FormatLocal(end) != "2026-01-18T00:00:00" {
		t.Errorf("end = %s", FormatLocal(end))
	}
}

func TestParseLocal(t *testing.T) {
	for _, value := range []string{"2026-01-17T14:00:00", "2026-01-17 14:00:00", "2026-01-17"} {
		if _, err := ParseLocal(value); err != nil {
			t.Errorf("ParseLocal(%q) failed: %v", value, err)
		}
	}
	if _, err := ParseLocal("not a date"); err == nil {
		t.Error("ParseLocal accepted garbage")
	}
}

func TestFixedClock(t *testing.T) {
	clock := FixedClock{At: reference}
	if !clock.Now().Equal(reference) {
		t.Error("FixedClock should return the pinned instant")
	}
}
