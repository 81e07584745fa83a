package eventapi

// Boundary normalization for the service's duck-typed payload shapes.
// Backends in the wild answer with camelCase, snake_case, or wrapper
// envelopes; everything is mapped to domain types here with named
// fallbacks so the rest of the codebase never sees a raw payload.

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/oakmund/eventbook/internal/domain"
)

func unmarshalBody(body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

// first returns the first non-empty candidate.
func first(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func parseWireTime(candidates ...string) time.Time {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, err := domain.ParseInstant(c); err == nil {
			return t
		}
	}
	return time.Time{}
}

type wireEvent struct {
	ID               string   `json:"id"`
	AltID            string   `json:"_id"`
	Title            string   `json:"title"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	StartTime        string   `json:"startTime"`
	StartTimeSnake   string   `json:"start_time"`
	EndTime          string   `json:"endTime"`
	EndTimeSnake     string   `json:"end_time"`
	Category         string   `json:"category"`
	Location         string   `json:"location"`
	IsAllDay         bool     `json:"isAllDay"`
	IsAllDaySnake    bool     `json:"is_all_day"`
	Color            string   `json:"color"`
	Capacity         int      `json:"capacity"`
	CreatedBy        string   `json:"createdBy"`
	CreatedBySnake   string   `json:"created_by"`
	IsPublic         bool     `json:"isPublic"`
	IsPublicSnake    bool     `json:"is_public"`
	Approval         bool     `json:"requiresApproval"`
	ApprovalSnake    bool     `json:"requires_approval"`
	Attendees        []string `json:"attendees"`
	CreatedAt        string   `json:"createdAt"`
	CreatedAtSnake   string   `json:"created_at"`
	UpdatedAt        string   `json:"updatedAt"`
	UpdatedAtSnake   string   `json:"updated_at"`
}

func (w wireEvent) toDomain() domain.Event {
	return domain.Event{
		ID:               first(w.ID, w.AltID),
		Title:            first(w.Title, w.Name),
		Description:      w.Description,
		StartTime:        parseWireTime(w.StartTime, w.StartTimeSnake),
		EndTime:          parseWireTime(w.EndTime, w.EndTimeSnake),
		Category:         domain.Category(strings.ToUpper(w.Category)),
		Location:         w.Location,
		IsAllDay:         w.IsAllDay || w.IsAllDaySnake,
		Color:            w.Color,
		Capacity:         w.Capacity,
		CreatedBy:        first(w.CreatedBy, w.CreatedBySnake),
		IsPublic:         w.IsPublic || w.IsPublicSnake,
		RequiresApproval: w.Approval || w.ApprovalSnake,
		Attendees:        w.Attendees,
		CreatedAt:        parseWireTime(w.CreatedAt, w.CreatedAtSnake),
		UpdatedAt:        parseWireTime(w.UpdatedAt, w.UpdatedAtSnake),
	}
}

func eventsToDomain(ws []wireEvent) []domain.Event {
	out := make([]domain.Event, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.toDomain())
	}
	return out
}

type wireBooking struct {
	ID             string `json:"id"`
	AltID          string `json:"_id"`
	EventID        string `json:"eventId"`
	EventIDSnake   string `json:"event_id"`
	UserID         string `json:"userId"`
	UserIDSnake    string `json:"user_id"`
	UserName       string `json:"userName"`
	UserNameSnake  string `json:"user_name"`
	UserEmail      string `json:"userEmail"`
	UserEmailSnake string `json:"user_email"`
	BookedAt       string `json:"bookedAt"`
	BookedAtSnake  string `json:"booked_at"`
	Status         string `json:"status"`
}

func (w wireBooking) toDomain() domain.Booking {
	status := domain.BookingStatus(strings.ToLower(w.Status))
	if status == "" {
		status = domain.BookingConfirmed
	}
	return domain.Booking{
		ID:        first(w.ID, w.AltID),
		EventID:   first(w.EventID, w.EventIDSnake),
		UserID:    first(w.UserID, w.UserIDSnake),
		UserName:  first(w.UserName, w.UserNameSnake),
		UserEmail: first(w.UserEmail, w.UserEmailSnake),
		BookedAt:  parseWireTime(w.BookedAt, w.BookedAtSnake),
		Status:    status,
	}
}

func bookingsToDomain(ws []wireBooking) []domain.Booking {
	out := make([]domain.Booking, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.toDomain())
	}
	return out
}

type wireUser struct {
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	UserIDSnake   string `json:"user_id"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	FullNameSnake string `json:"full_name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Avatar        string `json:"avatar"`
	CreatedAt     string `json:"createdAt"`
	CreatedSnake  string `json:"created_at"`
}

func (w wireUser) toDomain() domain.User {
	role := domain.RoleUser
	if strings.EqualFold(w.Role, string(domain.RoleAdmin)) {
		role = domain.RoleAdmin
	}
	return domain.User{
		ID:        first(w.ID, w.UserID, w.UserIDSnake),
		Name:      first(w.Name, w.FullName, w.FullNameSnake),
		Email:     w.Email,
		Role:      role,
		Avatar:    w.Avatar,
		CreatedAt: parseWireTime(w.CreatedAt, w.CreatedSnake),
	}
}

// wireLogin covers the token and user envelope variants:
// token ?? accessToken ?? access_token, user ?? data ?? top level.
type wireLogin struct {
	Token            string          `json:"token"`
	AccessToken      string          `json:"accessToken"`
	AccessTokenSnake string          `json:"access_token"`
	User             json.RawMessage `json:"user"`
	Data             json.RawMessage `json:"data"`
}

func (w wireLogin) token() string {
	return first(w.AccessTokenSnake, w.AccessToken, w.Token)
}

func (w wireLogin) user(body []byte) domain.User {
	raw := w.User
	if len(raw) == 0 {
		raw = w.Data
	}
	if len(raw) == 0 {
		raw = body
	}
	var wu wireUser
	if err := json.Unmarshal(raw, &wu); err != nil {
		return domain.User{}
	}
	return wu.toDomain()
}
