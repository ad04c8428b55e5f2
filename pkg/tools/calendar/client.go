// Package calendar talks to the external calendar service and exposes its
// operations as agent tools.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"ai-assistant-be/pkg/tools"
)

// CalendarInfo is one entry of the account's calendar list.
type CalendarInfo struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary"`
}

// Event is the wire shape of a calendar event. Start and End are local
// timestamps without zone suffix, interpreted as KST by the service.
type Event struct {
	ID          string `json:"id,omitempty"`
	CalendarID  string `json:"calendar_id,omitempty"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// API is the calendar surface the tools depend on.
type API interface {
	ListCalendars(ctx context.Context) ([]CalendarInfo, error)
	ListEvents(ctx context.Context, calendarID, timeMin, timeMax string) ([]Event, error)
	CreateEvent(ctx context.Context, calendarID string, event Event) (Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	GetEvent(ctx context.Context, calendarID, eventID string) (Event, error)
}

// Client is the REST implementation of API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient builds a client authenticated with a static bearer token.
func NewClient(baseURL, token string, logger *log.Logger) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), source)
	httpClient.Timeout = 30 * time.Second
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tools.MarkTransient(fmt.Errorf("calendar request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		return tools.MarkTransient(fmt.Errorf("calendar service returned %d: %s", resp.StatusCode, string(raw)))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("calendar service returned %d: %s", resp.StatusCode, string(raw))
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode calendar response: %w", err)
		}
	}
	return nil
}

func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var result struct {
		Items []CalendarInfo `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/me/calendarList", nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (c *Client) ListEvents(ctx context.Context, calendarID, timeMin, timeMax string) ([]Event, error) {
	query := url.Values{}
	if timeMin != "" {
		query.Set("timeMin", timeMin)
	}
	if timeMax != "" {
		query.Set("timeMax", timeMax)
	}
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")
	var result struct {
		Items []Event `json:"items"`
	}
	path := fmt.Sprintf("/calendars/%s/events", url.PathEscape(calendarID))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &result); err != nil {
		return nil, err
	}
	for i := range result.Items {
		result.Items[i].CalendarID = calendarID
	}
	return result.Items, nil
}

func (c *Client) CreateEvent(ctx context.Context, calendarID string, event Event) (Event, error) {
	var created Event
	path := fmt.Sprintf("/calendars/%s/events", url.PathEscape(calendarID))
	if err := c.do(ctx, http.MethodPost, path, nil, event, &created); err != nil {
		return Event{}, err
	}
	created.CalendarID = calendarID
	return created, nil
}

func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(calendarID), url.PathEscape(eventID))
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (Event, error) {
	var event Event
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(calendarID), url.PathEscape(eventID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &event); err != nil {
		return Event{}, err
	}
	event.CalendarID = calendarID
	return event, nil
}
