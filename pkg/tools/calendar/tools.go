package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"ai-assistant-be/pkg/agent/dates"
	"ai-assistant-be/pkg/tools"
)

// CreateResult is the structured payload a successful create_event call
// returns as its tool message. The pipeline parses it to record recency and
// registration outcomes.
type CreateResult struct {
	Status     string `json:"status"`
	EventID    string `json:"event_id"`
	CalendarID string `json:"calendar_id"`
	Summary    string `json:"summary"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Note       string `json:"note,omitempty"`
}

// VerifiedEvent is one entry of a verify_calendar_registrations result.
type VerifiedEvent struct {
	EventID string `json:"event_id"`
	Summary string `json:"summary"`
	Found   bool   `json:"found"`
	Detail  string `json:"detail,omitempty"`
}

// ListCalendarsTool exposes the account's calendar list.
type ListCalendarsTool struct {
	API API
}

func (t *ListCalendarsTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:           "list_calendars",
		Description:    "List all calendars the user can write to, with their names and ids.",
		ArgumentSchema: `{}`,
	}
}

func (t *ListCalendarsTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	calendars, err := t.API.ListCalendars(ctx)
	if err != nil {
		return "", err
	}
	if len(calendars) == 0 {
		return "No calendars found.", nil
	}
	var b strings.Builder
	for _, cal := range calendars {
		marker := ""
		if cal.Primary {
			marker = " (primary)"
		}
		fmt.Fprintf(&b, "- %s%s: %s\n", cal.Summary, marker, cal.ID)
	}
	return b.String(), nil
}

// ListEventsTool lists events in a time window, merging all calendars when
// no calendar_id is given.
type ListEventsTool struct {
	API    API
	Logger *log.Logger
}

func (t *ListEventsTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:           "list_events",
		Description:    "List events between time_min and time_max. Omit calendar_id to search every calendar.",
		ArgumentSchema: `{"calendar_id": "optional string", "time_min": "YYYY-MM-DDTHH:MM:SS", "time_max": "YYYY-MM-DDTHH:MM:SS"}`,
	}
}

func (t *ListEventsTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	timeMin := tools.StringArg(args, "time_min")
	timeMax := tools.StringArg(args, "time_max")
	calendarID := tools.StringArg(args, "calendar_id")

	var calendarIDs []string
	labels := map[string]string{}
	if calendarID != "" {
		calendarIDs = []string{calendarID}
	} else {
		calendars, err := t.API.ListCalendars(ctx)
		if err != nil {
			return "", err
		}
		for _, cal := range calendars {
			calendarIDs = append(calendarIDs, cal.ID)
			labels[cal.ID] = cal.Summary
		}
	}

	var merged []Event
	for _, id := range calendarIDs {
		events, err := t.API.ListEvents(ctx, id, timeMin, timeMax)
		if err != nil {
			if t.Logger != nil {
				t.Logger.Printf("[CALENDAR] listing %s failed: %v", id, err)
			}
			continue
		}
		merged = append(merged, events...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })

	if len(merged) == 0 {
		return fmt.Sprintf("No events found between %s and %s.", timeMin, timeMax), nil
	}
	var b strings.Builder
	for _, ev := range merged {
		label := labels[ev.CalendarID]
		if label == "" {
			label = ev.CalendarID
		}
		fmt.Fprintf(&b, "- [%s] %s (%s ~ %s) id=%s\n", label, ev.Summary, ev.Start, ev.End, ev.ID)
	}
	return b.String(), nil
}

// CreateEventTool creates one event, skipping when an identical event
// already exists at the same time in the same calendar.
type CreateEventTool struct {
	API    API
	Logger *log.Logger
}

func (t *CreateEventTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:           "create_event",
		Description:    "Create a calendar event. end_time defaults to one hour after start_time.",
		ArgumentSchema: `{"calendar_id": "string", "summary": "string", "start_time": "YYYY-MM-DDTHH:MM:SS", "end_time": "optional", "description": "optional", "location": "optional"}`,
	}
}

func (t *CreateEventTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	summary := tools.StringArg(args, "summary")
	startRaw := tools.StringArg(args, "start_time")
	calendarID := tools.StringArg(args, "calendar_id")
	if summary == "" || startRaw == "" || calendarID == "" {
		return "", fmt.Errorf("create_event requires calendar_id, summary and start_time")
	}
	start, err := dates.ParseLocal(startRaw)
	if err != nil {
		return "", fmt.Errorf("invalid start_time: %w", err)
	}
	endRaw := tools.StringArg(args, "end_time")
	end := start.Add(time.Hour)
	if endRaw != "" {
		parsed, err := dates.ParseLocal(endRaw)
		if err != nil {
			return "", fmt.Errorf("invalid end_time: %w", err)
		}
		if parsed.After(start) {
			end = parsed
		}
	}

	if existing, found := t.findDuplicate(ctx, calendarID, summary, start); found {
		result := CreateResult{
			Status:     "skipped",
			EventID:    existing.ID,
			CalendarID: calendarID,
			Summary:    summary,
			Start:      existing.Start,
			End:        existing.End,
			Note:       "an identical event already exists at this time",
		}
		payload, _ := json.Marshal(result)
		return string(payload), nil
	}

	created, err := t.API.CreateEvent(ctx, calendarID, Event{
		Summary:     summary,
		Description: tools.StringArg(args, "description"),
		Location:    tools.StringArg(args, "location"),
		Start:       dates.FormatLocal(start),
		End:         dates.FormatLocal(end),
	})
	if err != nil {
		return "", err
	}
	result := CreateResult{
		Status:     "success",
		EventID:    created.ID,
		CalendarID: calendarID,
		Summary:    created.Summary,
		Start:      created.Start,
		End:        created.End,
	}
	payload, _ := json.Marshal(result)
	return string(payload), nil
}

func (t *CreateEventTool) findDuplicate(ctx context.Context, calendarID, summary string, start time.Time) (Event, bool) {
	dayStart, dayEnd := dates.DayRange(start)
	events, err := t.API.ListEvents(ctx, calendarID, dates.FormatLocal(dayStart), dates.FormatLocal(dayEnd))
	if err != nil {
		if t.Logger != nil {
			t.Logger.Printf("[CALENDAR] duplicate check failed, proceeding with create: %v", err)
		}
		return Event{}, false
	}
	for _, ev := range events {
		if ev.Summary != summary {
			continue
		}
		existingStart, err := dates.ParseLocal(ev.Start)
		if err != nil {
			continue
		}
		diff := existingStart.Sub(start)
		if diff < 0 {
			diff = -diff
		}
		if diff <= time.Minute {
			return ev, true
		}
	}
	return Event{}, false
}

// DeleteEventTool deletes an event by id, or by summary and date when no id
// is known.
type DeleteEventTool struct {
	API API
}

func (t *DeleteEventTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:           "delete_event",
		Description:    "Delete an event by event_id, or by summary plus date when the id is unknown.",
		ArgumentSchema: `{"calendar_id": "string", "event_id": "optional", "summary": "optional", "date": "optional YYYY-MM-DD"}`,
	}
}

func (t *DeleteEventTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	calendarID := tools.StringArg(args, "calendar_id")
	if calendarID == "" {
		return "", fmt.Errorf("delete_event requires calendar_id")
	}
	eventID := tools.StringArg(args, "event_id")
	if eventID == "" || eventID == "recent" {
		found, err := t.locateBySummary(ctx, calendarID, tools.StringArg(args, "summary"), tools.StringArg(args, "date"))
		if err != nil {
			return "", err
		}
		eventID = found
	}
	if err := t.API.DeleteEvent(ctx, calendarID, eventID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted event %s from calendar %s.", eventID, calendarID), nil
}

func (t *DeleteEventTool) locateBySummary(ctx context.Context, calendarID, summary, date string) (string, error) {
	if summary == "" || date == "" {
		return "", fmt.Errorf("delete_event needs either event_id or both summary and date")
	}
	day, err := dates.ParseLocal(date)
	if err != nil {
		return "", fmt.Errorf("invalid date: %w", err)
	}
	dayStart, dayEnd := dates.DayRange(day)
	events, err := t.API.ListEvents(ctx, calendarID, dates.FormatLocal(dayStart), dates.FormatLocal(dayEnd))
	if err != nil {
		return "", err
	}
	for _, ev := range events {
		if strings.Contains(ev.Summary, summary) {
			return ev.ID, nil
		}
	}
	return "", fmt.Errorf("no event matching %q on %s", summary, date)
}

// VerifyRegistrationsTool re-reads just-created events to confirm they
// landed.
type VerifyRegistrationsTool struct {
	API API
}

func (t *VerifyRegistrationsTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:           "verify_calendar_registrations",
		Description:    "Confirm that recently registered events exist in their calendars.",
		ArgumentSchema: `{"events": [{"event_id": "string", "calendar_id": "string", "summary": "string"}]}`,
	}
}

func (t *VerifyRegistrationsTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	rawEvents, _ := args["events"].([]interface{})
	if len(rawEvents) == 0 {
		return "", fmt.Errorf("verify_calendar_registrations requires a non-empty events list")
	}
	results := make([]VerifiedEvent, 0, len(rawEvents))
	for _, raw := range rawEvents {
		entry, _ := raw.(map[string]interface{})
		eventID := tools.StringArg(entry, "event_id")
		calendarID := tools.StringArg(entry, "calendar_id")
		summary := tools.StringArg(entry, "summary")
		verified := VerifiedEvent{EventID: eventID, Summary: summary}
		event, err := t.API.GetEvent(ctx, calendarID, eventID)
		if err != nil {
			verified.Detail = err.Error()
		} else {
			verified.Found = true
			verified.Detail = fmt.Sprintf("%s ~ %s", event.Start, event.End)
		}
		results = append(results, verified)
	}
	payload, _ := json.Marshal(results)
	return string(payload), nil
}
