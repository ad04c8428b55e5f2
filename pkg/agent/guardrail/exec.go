package guardrail

import (
	"fmt"
	"strings"
	"time"

	"ai-assistant-be/pkg/agent/dates"
	"ai-assistant-be/pkg/agent/rules"
	"ai-assistant-be/pkg/agent/schema"
)

func stringArg(a *schema.ProposedAction, key string) string {
	if a.Args == nil {
		return ""
	}
	if v, ok := a.Args[key].(string); ok {
		return v
	}
	return ""
}

func setArg(a *schema.ProposedAction, key, value string) {
	if a.Args == nil {
		a.Args = map[string]interface{}{}
	}
	a.Args[key] = value
}

// resolveRelativeDates re-anchors model-produced timestamps on the date the
// user actually asked for. The model's clock time survives unless the user
// message names one; the original duration always survives.
func resolveRelativeDates(a *schema.ProposedAction, c *Context) bool {
	switch a.Tool {
	case "create_event":
		return forceCreateDate(a, c)
	case "list_events":
		return normalizeListRange(a, c)
	}
	return false
}

func forceCreateDate(a *schema.ProposedAction, c *Context) bool {
	if rules.HasExplicitDate(c.UserMessage) {
		return false
	}
	day, ok := dates.ResolveRelativeDate(c.UserMessage, c.Now)
	if !ok {
		return false
	}
	startRaw := stringArg(a, "start_time")
	duration := time.Hour
	hour, minute := 9, 0
	if startRaw != "" {
		if start, err := dates.ParseLocal(startRaw); err == nil {
			hour, minute = start.Hour(), start.Minute()
			if endRaw := stringArg(a, "end_time"); endRaw != "" {
				if end, err := dates.ParseLocal(endRaw); err == nil && end.After(start) {
					duration = end.Sub(start)
				}
			}
		}
	}
	if h, m, found := dates.ParseClock(c.UserMessage); found {
		hour, minute = h, m
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, dates.KST)
	if startRaw != "" {
		if prev, err := dates.ParseLocal(startRaw); err == nil && prev.Equal(start) {
			return false
		}
	}
	setArg(a, "start_time", dates.FormatLocal(start))
	setArg(a, "end_time", dates.FormatLocal(start.Add(duration)))
	return true
}

func normalizeListRange(a *schema.ProposedAction, c *Context) bool {
	day, ok := dates.ResolveRelativeDate(c.UserMessage, c.Now)
	if !ok {
		return false
	}
	lower := strings.ToLower(c.UserMessage)
	if strings.Contains(lower, "주") || strings.Contains(lower, "week") {
		return false
	}
	start, end := dates.DayRange(day)
	minRaw, maxRaw := stringArg(a, "time_min"), stringArg(a, "time_max")
	if minRaw == dates.FormatLocal(start) && maxRaw == dates.FormatLocal(end) {
		return false
	}
	setArg(a, "time_min", dates.FormatLocal(start))
	setArg(a, "time_max", dates.FormatLocal(end))
	return true
}

// repairTruncatedCalendarID restores a calendar id the model cut short. The
// repair only fires when exactly one known id extends the truncated value.
func repairTruncatedCalendarID(a *schema.ProposedAction, c *Context) bool {
	id := stringArg(a, "calendar_id")
	if id == "" {
		return false
	}
	known := c.knownCalendarIDs()
	if known[id] {
		return false
	}
	if !strings.Contains(id, "@") && !strings.Contains(id, ".") {
		return false
	}
	var match string
	for candidate := range known {
		if strings.HasPrefix(candidate, id) && candidate != id {
			if match != "" {
				return false
			}
			match = candidate
		}
	}
	if match == "" {
		return false
	}
	setArg(a, "calendar_id", match)
	return true
}

// resolveAmbiguousEventID substitutes the most recently created event when a
// deletion targets "that event" or carries an id too short to be real.
func resolveAmbiguousEventID(a *schema.ProposedAction, c *Context) bool {
	if a.Tool != "delete_event" || len(c.RecentEntities) == 0 {
		return false
	}
	id := stringArg(a, "event_id")
	ambiguous := rules.HasRecencyReference(c.UserMessage) || len(id) < 15
	if !ambiguous {
		return false
	}
	latest := c.RecentEntities[0]
	if id == latest.ExternalID {
		return false
	}
	setArg(a, "event_id", latest.ExternalID)
	if latest.CollectionID != "" {
		setArg(a, "calendar_id", latest.CollectionID)
	}
	return true
}

// resolveCalendarName picks the calendar for a creation. Precedence: a
// calendar the user named in the message, then one named in the intent, then
// the configured meeting fallback for registrations born from meeting notes,
// then the primary calendar.
func resolveCalendarName(a *schema.ProposedAction, c *Context) bool {
	if a.Tool != "create_event" {
		return false
	}
	current := stringArg(a, "calendar_id")
	if target := c.lookupCalendar(rules.ExtractCalendarName(c.UserMessage)); target != "" {
		if current == target {
			return false
		}
		setArg(a, "calendar_id", target)
		return true
	}
	if target := c.lookupCalendar(rules.ExtractCalendarName(c.Intent)); target != "" {
		if current == target {
			return false
		}
		setArg(a, "calendar_id", target)
		return true
	}
	if c.knownCalendarIDs()[current] {
		return false
	}
	if c.MeetingRegistration {
		if target := c.lookupCalendar(c.FallbackCalendarName); target != "" {
			setArg(a, "calendar_id", target)
			return true
		}
	}
	if c.PrimaryCalendarID != "" {
		setArg(a, "calendar_id", c.PrimaryCalendarID)
		return true
	}
	return false
}

func (c *Context) lookupCalendar(name string) string {
	if name == "" {
		return ""
	}
	if id, ok := c.CalendarNameToID[name]; ok {
		return id
	}
	trimmed := strings.Trim(name, "[]")
	for known, id := range c.CalendarNameToID {
		if strings.Trim(known, "[]") == trimmed {
			return id
		}
	}
	return ""
}

// normalizeTravelQuery replaces garbled or vague search text with a template
// built from the user's actual question.
func normalizeTravelQuery(a *schema.ProposedAction, c *Context) bool {
	if a.Tool != "search_travel_info" {
		return false
	}
	query := stringArg(a, "query")
	if !rules.LooksGarbled(query) {
		return false
	}
	dest := travelDestination(c.UserMessage, c.Language)
	var rebuilt string
	switch {
	case rules.WantsLodgingInfo(c.UserMessage):
		rebuilt = fmt.Sprintf("%s hotel address and check-in time", dest)
	case rules.WantsFlightInfo(c.UserMessage):
		rebuilt = fmt.Sprintf("%s flight number and time", dest)
	default:
		rebuilt = fmt.Sprintf("%s travel itinerary", dest)
	}
	if query == rebuilt {
		return false
	}
	setArg(a, "query", rebuilt)
	return true
}

func travelDestination(message, language string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "osaka") || strings.Contains(message, "오사카"):
		if language == "ko" {
			return "오사카"
		}
		return "Osaka"
	}
	if language == "ko" {
		return "여행지"
	}
	return "destination"
}
