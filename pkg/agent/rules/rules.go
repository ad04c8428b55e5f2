// Package rules holds the declarative keyword tables used to classify user
// text before any model call. Each classifier is a keyword set (plus a few
// regexes) evaluated deterministically; precedence between classifiers is
// explicit and documented on the function that applies it.
package rules

import (
	"fmt"
	"regexp"
	"strings"
)

var travelHints = []string{
	"osaka", "오사카", "간사이", "일본",
	"비행", "항공", "항공편", "항공권", "항공사", "편명", "탑승", "게이트",
	"출발", "도착", "환승", "경유", "수하물", "예약번호", "pnr",
	"flight", "airline", "booking", "ticket", "boarding", "gate", "itinerary",
	"여행", "여정", "숙소", "호텔", "렌터카", "투어",
}

var travelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(kix|itm|nrt|hnd|icn|gmp)\b`),
	regexp.MustCompile(`(?i)\b(e-?ticket)\b`),
}

var calendarOnlyHints = []string{
	"캘린더", "calendar", "일정", "스케줄", "회의", "미팅", "약속",
	"오늘 일정", "내일 일정", "이번 주 일정", "주간 일정", "월간 일정",
	"today schedule", "tomorrow schedule", "weekly schedule",
}

var calendarForceHints = []string{
	"일정", "캘린더", "스케줄", "미팅", "회의", "약속",
	"schedule", "calendar", "meeting", "appointment",
}

var calendarCreateHints = []string{
	"추가", "등록", "만들", "잡아", "예약", "생성",
	"add", "create", "book", "set up", "schedule",
}

// complexHints mark requests that need reasoning or meeting summarization
// even when they look like plain calendar queries.
var complexHints = []string{
	"회의록", "녹취록", "정리", "요약", "meeting notes", "transcript", "summary", "action items",
}

var meetingNotesHints = []string{
	"회의록", "정리", "요약", "meeting", "transcript",
}

var affirmationHints = []string{
	"등록", "진행", "해줘", "해주세요", "해 줘", "해 주세요",
	"응", "그래", "좋아",
	"yes", "confirm", "ok", "okay",
}

var deletionHints = []string{
	"삭제", "취소", "delete", "cancel", "remove",
}

var recencyHints = []string{
	"방금", "just", "recent", "금방", "그 일정", "that event",
}

var flightHints = []string{
	"flight", "airline", "ticket", "boarding", "gate", "pnr",
	"비행", "항공", "항공편", "항공권", "항공사", "편명", "탑승", "게이트", "예약번호",
}

var lodgingHints = []string{
	"호텔", "숙소", "주소", "체크인", "체크아웃",
	"hotel", "lodging", "check-in", "check-out",
}

var calendarNamePattern = regexp.MustCompile(`\[[^\]]+\]`)
var explicitDatePattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
var koreanDatePattern = regexp.MustCompile(`\d{1,2}\s*월\s*\d{1,2}\s*일`)

func containsAny(text string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}

// IsTravelQuery reports whether the message is about travel. A calendar-only
// phrasing without any travel hint wins: precedence is calendar over travel
// for pure scheduling language, travel otherwise.
func IsTravelQuery(message string) bool {
	if message == "" {
		return false
	}
	text := strings.ToLower(message)
	hasTravel := containsAny(text, travelHints)
	if !hasTravel {
		for _, p := range travelPatterns {
			if p.MatchString(text) {
				hasTravel = true
				break
			}
		}
	}
	if containsAny(text, calendarOnlyHints) && !hasTravel {
		return false
	}
	return hasTravel
}

// IsTravelFact reports whether a stored user fact is travel related. Pure
// scheduling turns drop these so the planner does not drag trip context into
// a calendar answer.
func IsTravelFact(fact string) bool {
	if fact == "" {
		return false
	}
	text := strings.ToLower(fact)
	if containsAny(text, travelHints) {
		return true
	}
	for _, p := range travelPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func IsCalendarQuery(message string) bool {
	if message == "" {
		return false
	}
	text := strings.ToLower(message)
	return containsAny(text, calendarOnlyHints) || containsAny(text, calendarForceHints)
}

func IsCalendarCreateQuery(message string) bool {
	if message == "" {
		return false
	}
	return containsAny(strings.ToLower(message), calendarCreateHints)
}

func IsCalendarListQuery(message string) bool {
	return IsCalendarQuery(message) && !IsCalendarCreateQuery(message)
}

// IsComplexQuery flags requests that require summarization or multi-step
// reasoning regardless of calendar keywords.
func IsComplexQuery(message string) bool {
	return containsAny(strings.ToLower(message), complexHints)
}

// LooksLikeMeetingNotes reports whether the message likely carries raw
// meeting notes worth persisting verbatim.
func LooksLikeMeetingNotes(message string) bool {
	return len(message) > 50 && containsAny(strings.ToLower(message), meetingNotesHints)
}

// IsAffirmation matches confirmation replies ("yes", "등록 진행해줘").
func IsAffirmation(message string) bool {
	if message == "" {
		return false
	}
	return containsAny(strings.ToLower(message), affirmationHints)
}

// IsDeletionRequest matches delete/cancel vocabulary.
func IsDeletionRequest(message string) bool {
	if message == "" {
		return false
	}
	return containsAny(strings.ToLower(message), deletionHints)
}

// HasRecencyReference matches anaphoric references to a just-created entity.
func HasRecencyReference(text string) bool {
	return containsAny(strings.ToLower(text), recencyHints)
}

// WantsFlightInfo reports flight sub-intent in a travel lookup.
func WantsFlightInfo(text string) bool {
	return containsAny(strings.ToLower(text), flightHints)
}

// WantsLodgingInfo reports lodging sub-intent in a travel lookup.
func WantsLodgingInfo(text string) bool {
	return containsAny(strings.ToLower(text), lodgingHints)
}

// DetectLanguage returns "ko" when the text contains Hangul, else "en".
func DetectLanguage(text string) string {
	for _, r := range text {
		if r >= 0xAC00 && r <= 0xD7A3 {
			return "ko"
		}
	}
	return "en"
}

// HasExplicitDate reports an absolute date already written in the text.
func HasExplicitDate(text string) bool {
	return explicitDatePattern.MatchString(text) || koreanDatePattern.MatchString(text)
}

// ExtractCalendarName pulls a [Bracketed] calendar name out of the message.
func ExtractCalendarName(message string) string {
	return calendarNamePattern.FindString(message)
}

// CalendarListIntent builds the deterministic intent phrase for a calendar
// list query, without any model involvement.
func CalendarListIntent(message string) string {
	text := strings.ToLower(message)
	var intent string
	switch {
	case strings.Contains(text, "오늘") || strings.Contains(text, "today"):
		intent = "List events today"
	case strings.Contains(text, "내일") || strings.Contains(text, "tomorrow"):
		intent = "List events tomorrow"
	case strings.Contains(text, "모레") || strings.Contains(text, "day after tomorrow"):
		intent = "List events day after tomorrow"
	case strings.Contains(text, "이번 주") || strings.Contains(text, "이번주") ||
		strings.Contains(text, "this week") || strings.Contains(text, "주간") || strings.Contains(text, "weekly"):
		intent = "List events this week"
	case strings.Contains(text, "다음 주") || strings.Contains(text, "다음주") || strings.Contains(text, "next week"):
		intent = "List events next week"
	default:
		intent = "List events"
	}
	if name := ExtractCalendarName(message); name != "" {
		intent = fmt.Sprintf("%s for calendar %s", intent, name)
	}
	return intent
}

// LooksGarbled applies the character-class heuristic for vague or corrupted
// query text: too few alphanumeric/Hangul characters relative to length, or
// replacement punctuation.
func LooksGarbled(text string) bool {
	if text == "" {
		return true
	}
	hasHangul := false
	hasASCII := false
	valid := 0
	for _, r := range text {
		isHangul := r >= 0xAC00 && r <= 0xD7A3
		isASCII := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if isHangul {
			hasHangul = true
		}
		if isASCII {
			hasASCII = true
		}
		if isHangul || isASCII {
			valid++
		}
	}
	if !hasHangul && !hasASCII {
		return true
	}
	minValid := len([]rune(text)) / 5
	if minValid < 3 {
		minValid = 3
	}
	return valid < minValid || strings.Contains(text, "?")
}
