package eventapi

import (
	"context"
	"time"

	"github.com/oakmund/eventbook/internal/domain"
)

// EventQuery bounds an event listing. Zero times and empty strings are
// omitted from the request.
type EventQuery struct {
	From     time.Time
	To       time.Time
	Category domain.Category
	Query    string
}

func (c *Client) ListEvents(ctx context.Context, q EventQuery) ([]domain.Event, error) {
	req := c.rc.R().SetContext(ctx)
	if !q.From.IsZero() {
		req.SetQueryParam("from", q.From.Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		req.SetQueryParam("to", q.To.Format(time.RFC3339))
	}
	if q.Category != "" {
		req.SetQueryParam("category", string(q.Category))
	}
	if q.Query != "" {
		req.SetQueryParam("q", q.Query)
	}
	var raw []wireEvent
	resp, err := req.SetResult(&raw).Get("/events")
	if err := c.check(resp, err, "list events"); err != nil {
		return nil, err
	}
	return eventsToDomain(raw), nil
}

func (c *Client) CreateEvent(ctx context.Context, draft domain.EventDraft) (domain.Event, error) {
	var raw wireEvent
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(eventBody(draft)).
		SetResult(&raw).
		Post("/events")
	if err := c.check(resp, err, "create event"); err != nil {
		return domain.Event{}, err
	}
	return raw.toDomain(), nil
}

func (c *Client) UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) (domain.Event, error) {
	var raw wireEvent
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(patchBody(patch)).
		SetResult(&raw).
		Patch("/events/" + id)
	if err := c.check(resp, err, "update event"); err != nil {
		return domain.Event{}, err
	}
	return raw.toDomain(), nil
}

func (c *Client) MoveEvent(ctx context.Context, id string, start, end time.Time) (domain.Event, error) {
	var raw wireEvent
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"startTime": start.Format(time.RFC3339),
			"endTime":   end.Format(time.RFC3339),
		}).
		SetResult(&raw).
		Patch("/events/" + id + "/move")
	if err := c.check(resp, err, "move event"); err != nil {
		return domain.Event{}, err
	}
	return raw.toDomain(), nil
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	resp, err := c.rc.R().SetContext(ctx).Delete("/events/" + id)
	return c.check(resp, err, "delete event")
}

func (c *Client) EventBookings(ctx context.Context, eventID string) ([]domain.Booking, error) {
	var raw []wireBooking
	resp, err := c.rc.R().SetContext(ctx).SetResult(&raw).Get("/events/" + eventID + "/bookings")
	if err := c.check(resp, err, "list event bookings"); err != nil {
		return nil, err
	}
	return bookingsToDomain(raw), nil
}

// eventBody serializes a draft in the camelCase shape the service
// accepts on writes.
func eventBody(d domain.EventDraft) map[string]any {
	body := map[string]any{
		"title":            d.Title,
		"startTime":        d.StartTime.Format(time.RFC3339),
		"endTime":          d.EndTime.Format(time.RFC3339),
		"category":         string(d.Category),
		"isAllDay":         d.IsAllDay,
		"isPublic":         d.IsPublic,
		"requiresApproval": d.RequiresApproval,
	}
	if d.Description != "" {
		body["description"] = d.Description
	}
	if d.Location != "" {
		body["location"] = d.Location
	}
	if d.Color != "" {
		body["color"] = d.Color
	}
	if d.Capacity > 0 {
		body["capacity"] = d.Capacity
	}
	return body
}

func patchBody(p domain.EventPatch) map[string]any {
	body := map[string]any{}
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.StartTime != nil {
		body["startTime"] = p.StartTime.Format(time.RFC3339)
	}
	if p.EndTime != nil {
		body["endTime"] = p.EndTime.Format(time.RFC3339)
	}
	if p.Category != nil {
		body["category"] = string(*p.Category)
	}
	if p.Location != nil {
		body["location"] = *p.Location
	}
	if p.IsAllDay != nil {
		body["isAllDay"] = *p.IsAllDay
	}
	if p.Color != nil {
		body["color"] = *p.Color
	}
	if p.Capacity != nil {
		body["capacity"] = *p.Capacity
	}
	if p.IsPublic != nil {
		body["isPublic"] = *p.IsPublic
	}
	return body
}
