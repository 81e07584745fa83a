package domain

import "time"

// Category is the enumerated tag carried by every event.
type Category string

const (
	CategoryMeeting   Category = "MEETING"
	CategoryPersonal  Category = "PERSONAL"
	CategoryWork      Category = "WORK"
	CategorySocial    Category = "SOCIAL"
	CategoryEducation Category = "EDUCATION"
	CategoryHealth    Category = "HEALTH"
	CategoryTravel    Category = "TRAVEL"
	CategoryOther     Category = "OTHER"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMeeting, CategoryPersonal, CategoryWork, CategorySocial,
		CategoryEducation, CategoryHealth, CategoryTravel, CategoryOther:
		return true
	}
	return false
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingPending   BookingStatus = "pending"
)

// Event is a schedulable calendar item. Capacity 0 means unlimited.
// Unsynced marks records synthesized locally while the remote service
// was unreachable; server records never carry it.
type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Category         Category  `json:"category"`
	Location         string    `json:"location,omitempty"`
	IsAllDay         bool      `json:"is_all_day"`
	Color            string    `json:"color,omitempty"`
	Capacity         int       `json:"capacity,omitempty"`
	CreatedBy        string    `json:"created_by"`
	IsPublic         bool      `json:"is_public"`
	RequiresApproval bool      `json:"requires_approval"`
	Attendees        []string  `json:"attendees,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Unsynced         bool      `json:"unsynced,omitempty"`
}

// EventDraft carries the caller-supplied fields of a new event.
type EventDraft struct {
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Category         Category  `json:"category"`
	Location         string    `json:"location,omitempty"`
	IsAllDay         bool      `json:"is_all_day"`
	Color            string    `json:"color,omitempty"`
	Capacity         int       `json:"capacity,omitempty"`
	IsPublic         bool      `json:"is_public"`
	RequiresApproval bool      `json:"requires_approval"`
}

func (d EventDraft) Validate() error {
	if d.Title == "" {
		return ErrTitleRequired
	}
	if d.Category != "" && !d.Category.Valid() {
		return ErrInvalidCategory
	}
	if !d.IsAllDay && !d.EndTime.After(d.StartTime) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Synthesize builds a local stand-in event for a draft the remote
// service could not accept, flagged Unsynced.
func (d EventDraft) Synthesize(id string, createdBy string, now time.Time) Event {
	return Event{
		ID:               id,
		Title:            d.Title,
		Description:      d.Description,
		StartTime:        d.StartTime,
		EndTime:          d.EndTime,
		Category:         d.Category,
		Location:         d.Location,
		IsAllDay:         d.IsAllDay,
		Color:            d.Color,
		Capacity:         d.Capacity,
		CreatedBy:        createdBy,
		IsPublic:         d.IsPublic,
		RequiresApproval: d.RequiresApproval,
		CreatedAt:        now,
		UpdatedAt:        now,
		Unsynced:         true,
	}
}

// EventPatch is a partial update; nil fields are left untouched.
type EventPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Location    *string    `json:"location,omitempty"`
	IsAllDay    *bool      `json:"is_all_day,omitempty"`
	Color       *string    `json:"color,omitempty"`
	Capacity    *int       `json:"capacity,omitempty"`
	IsPublic    *bool      `json:"is_public,omitempty"`
}

func (p EventPatch) Validate() error {
	if p.Category != nil && !p.Category.Valid() {
		return ErrInvalidCategory
	}
	if p.StartTime != nil && p.EndTime != nil && !p.EndTime.After(*p.StartTime) {
		return ErrInvalidTimeRange
	}
	return nil
}

func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.IsAllDay != nil {
		e.IsAllDay = *p.IsAllDay
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	if p.Capacity != nil {
		e.Capacity = *p.Capacity
	}
	if p.IsPublic != nil {
		e.IsPublic = *p.IsPublic
	}
}

// Booking is a user's reservation against an event. Pending marks an
// optimistic record still awaiting server confirmation; it never leaves
// the process.
type Booking struct {
	ID        string        `json:"id"`
	EventID   string        `json:"event_id"`
	UserID    string        `json:"user_id"`
	UserName  string        `json:"user_name,omitempty"`
	UserEmail string        `json:"user_email,omitempty"`
	BookedAt  time.Time     `json:"booked_at"`
	Status    BookingStatus `json:"status"`
	Pending   bool          `json:"-"`
}

// Active reports whether the booking still binds the user to the event.
func (b Booking) Active() bool {
	return b.Status != BookingCancelled
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type ViewType string

const (
	ViewMonth ViewType = "month"
	ViewWeek  ViewType = "week"
	ViewDay   ViewType = "day"
)

// CalendarView is transient UI-navigation state, never persisted
// authoritatively.
type CalendarView struct {
	Type        ViewType  `json:"type"`
	CurrentDate time.Time `json:"current_date"`
}
