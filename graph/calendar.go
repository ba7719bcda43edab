package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
)

// CalendarService fetches calendar data for one account.
type CalendarService struct {
	m *Manager
	// base is the Graph REST root, overridable in tests.
	base string
	// token acquires an access token, overridable in tests.
	token func(ctx context.Context, alias string, scopes []string, prompt func(string)) (string, error)
}

func NewCalendarService(m *Manager) *CalendarService {
	return &CalendarService{m: m, base: graphResource + "/v1.0", token: m.Token}
}

// CalendarView lists the expanded event instances between StartISO and
// EndISO, ordered by start time. Recurring series are returned as the
// individual occurrences, which is what calendarView does server-side.
func (s *CalendarService) CalendarView(ctx context.Context, in *CalendarViewInput, scopes []string, prompt func(string)) (*CalendarViewOutput, error) {
	if in.PageSize <= 0 {
		in.PageSize = 50
	}
	token, err := s.token(ctx, in.Alias, scopes, prompt)
	if err != nil {
		return nil, err
	}
	q := neturl.Values{}
	q.Set("startDateTime", in.StartISO)
	q.Set("endDateTime", in.EndISO)
	q.Set("$orderby", "start/dateTime")
	q.Set("$top", strconv.Itoa(in.PageSize))
	base := s.base + "/me/calendarView"
	if in.CalendarID != "" {
		base = s.base + "/me/calendars/" + neturl.PathEscape(in.CalendarID) + "/calendarView"
	}
	next := base + "?" + q.Encode()

	out := &CalendarViewOutput{}
	for next != "" {
		page, nextLink, err := s.fetchPage(ctx, next, token)
		if err != nil {
			return nil, err
		}
		out.Events = append(out.Events, page...)
		next = nextLink
	}
	if Debug() {
		log.Printf("[graph] calendar view %s..%s returned %d events", in.StartISO, in.EndISO, len(out.Events))
	}
	return out, nil
}

func (s *CalendarService) fetchPage(ctx context.Context, url, token string) ([]Event, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	// Graph returns event times in UTC and bodies as plain text with
	// these preferences; the converter relies on both.
	req.Header.Add("Prefer", `outlook.timezone="UTC"`)
	req.Header.Add("Prefer", `outlook.body-content-type="text"`)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("calendar view failed: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	var payload struct {
		Value    []Event `json:"value"`
		NextLink string  `json:"@odata.nextLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, "", fmt.Errorf("decode calendar view: %w", err)
	}
	return payload.Value, payload.NextLink, nil
}

// ResolveCalendar maps a calendar display name to its ID via the Graph
// SDK. An empty name selects the default calendar (empty ID).
func (s *CalendarService) ResolveCalendar(ctx context.Context, alias, name string, scopes []string, prompt func(string)) (string, error) {
	if name == "" {
		return "", nil
	}
	client, err := s.m.Client(ctx, alias, scopes, prompt)
	if err != nil {
		return "", err
	}
	calendars, err := client.Me().Calendars().Get(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("list calendars: %w", err)
	}
	var known []string
	for _, c := range calendars.GetValue() {
		calName := ptrVal(c.GetName())
		if strings.EqualFold(calName, name) {
			return ptrVal(c.GetId()), nil
		}
		known = append(known, calName)
	}
	return "", fmt.Errorf("calendar %q not found (have: %s)", name, strings.Join(known, ", "))
}

func ptrVal[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
