// Package dates resolves relative date and time phrases against a fixed
// reference clock. All resolution happens in KST so that a turn started near
// midnight never flips days mid-pipeline.
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// KST is the assistant's home timezone (UTC+9, no DST).
var KST = time.FixedZone("Asia/Seoul", 9*60*60)

// Clock abstracts time.Now so the pipeline can run against a pinned date in
// tests and in the simulator.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().In(KST) }

// SystemClock returns the wall clock in KST.
func SystemClock() Clock { return systemClock{} }

// FixedClock pins the clock to a single instant.
type FixedClock struct{ At time.Time }

func (c FixedClock) Now() time.Time { return c.At.In(KST) }

var weekdayNamesKo = map[string]time.Weekday{
	"월": time.Monday, "화": time.Tuesday, "수": time.Wednesday,
	"목": time.Thursday, "금": time.Friday, "토": time.Saturday, "일": time.Sunday,
}

var weekdayNamesEn = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday, "sunday": time.Sunday,
}

var weekdayLabelKo = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// CurrentTimeString renders the reference moment the way prompts expect it.
func CurrentTimeString(now time.Time) string {
	now = now.In(KST)
	return fmt.Sprintf("%s (%s)", now.Format("2006-01-02 15:04"), weekdayLabelKo[int(now.Weekday())])
}

// ReferenceTable renders the DATE REFERENCE block injected into executor
// prompts: today, tomorrow, and every weekday of next week as absolute dates.
func ReferenceTable(now time.Time) string {
	now = now.In(KST)
	var b strings.Builder
	b.WriteString("[DATE REFERENCE]\n")
	fmt.Fprintf(&b, "- today: %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "- tomorrow: %s\n", now.AddDate(0, 0, 1).Format("2006-01-02"))
	fmt.Fprintf(&b, "- day after tomorrow: %s\n", now.AddDate(0, 0, 2).Format("2006-01-02"))
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		fmt.Fprintf(&b, "- next %s: %s\n", strings.ToLower(wd.String()), NextWeekday(now, wd).Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "- next sunday: %s\n", NextWeekday(now, time.Sunday).Format("2006-01-02"))
	return b.String()
}

// NextWeekday returns the given weekday in the calendar week after the one
// containing now, with the week starting on Monday.
func NextWeekday(now time.Time, wd time.Weekday) time.Time {
	now = now.In(KST)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, KST)
	offset := int(now.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	nextMonday := day.AddDate(0, 0, 7-offset)
	target := int(wd) - int(time.Monday)
	if target < 0 {
		target += 7
	}
	return nextMonday.AddDate(0, 0, target)
}

var (
	nextWeekdayKoPattern = regexp.MustCompile(`다음\s*주\s*([월화수목금토일])요일`)
	nextWeekdayEnPattern = regexp.MustCompile(`(?i)next\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)`)
)

// ResolveRelativeDate maps a relative phrase in the text to an absolute date.
// The second return is false when no recognized phrase is present.
func ResolveRelativeDate(text string, now time.Time) (time.Time, bool) {
	now = now.In(KST)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, KST)
	lower := strings.ToLower(text)

	if m := nextWeekdayKoPattern.FindStringSubmatch(text); m != nil {
		return NextWeekday(now, weekdayNamesKo[m[1]]), true
	}
	if m := nextWeekdayEnPattern.FindStringSubmatch(lower); m != nil {
		return NextWeekday(now, weekdayNamesEn[strings.ToLower(m[1])]), true
	}
	switch {
	case strings.Contains(text, "모레") || strings.Contains(lower, "day after tomorrow"):
		return day.AddDate(0, 0, 2), true
	case strings.Contains(text, "내일") || strings.Contains(lower, "tomorrow"):
		return day.AddDate(0, 0, 1), true
	case strings.Contains(text, "오늘") || strings.Contains(lower, "today"):
		return day, true
	}
	return time.Time{}, false
}

var (
	koClockPattern   = regexp.MustCompile(`(오전|오후)\s*(\d{1,2})시(?:\s*(\d{1,2})분)?`)
	hhmmPattern      = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	meridiemPattern  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
	bareHourKoSuffix = regexp.MustCompile(`(\d{1,2})시`)
)

// ParseClock extracts a time of day from the text. Returns hour, minute and
// whether a clock phrase was found.
func ParseClock(text string) (int, int, bool) {
	if m := koClockPattern.FindStringSubmatch(text); m != nil {
		hour := atoi(m[2])
		minute := 0
		if m[3] != "" {
			minute = atoi(m[3])
		}
		if m[1] == "오후" && hour < 12 {
			hour += 12
		}
		if m[1] == "오전" && hour == 12 {
			hour = 0
		}
		return hour, minute, true
	}
	if m := meridiemPattern.FindStringSubmatch(text); m != nil {
		hour := atoi(m[1])
		if strings.EqualFold(m[2], "pm") && hour < 12 {
			hour += 12
		}
		if strings.EqualFold(m[2], "am") && hour == 12 {
			hour = 0
		}
		return hour, 0, true
	}
	if m := hhmmPattern.FindStringSubmatch(text); m != nil {
		return atoi(m[1]), atoi(m[2]), true
	}
	if m := bareHourKoSuffix.FindStringSubmatch(text); m != nil {
		return atoi(m[1]), 0, true
	}
	return 0, 0, false
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// ResolveDateTime combines ResolveRelativeDate and ParseClock into a full
// timestamp. When no clock phrase is present the time defaults to 09:00.
func ResolveDateTime(text string, now time.Time) (time.Time, bool) {
	day, ok := ResolveRelativeDate(text, now)
	if !ok {
		return time.Time{}, false
	}
	hour, minute := 9, 0
	if h, m, found := ParseClock(text); found {
		hour, minute = h, m
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, KST), true
}

// DayRange returns the half-open [start of day, start of next day) window
// used for single-day event listings.
func DayRange(day time.Time) (time.Time, time.Time) {
	day = day.In(KST)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, KST)
	return start, start.AddDate(0, 0, 1)
}

// FormatLocal renders a timestamp the way calendar payloads carry it.
func FormatLocal(t time.Time) string {
	return t.In(KST).Format("2006-01-02T15:04:05")
}

// ParseLocal parses timestamps produced by FormatLocal, plus RFC3339 and
// bare dates, always interpreting zone-less values as KST.
func ParseLocal(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, KST); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
