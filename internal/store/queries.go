package store

import (
	"iter"
	"time"

	"github.com/oakmund/eventbook/internal/domain"
)

// Events returns a snapshot of the current event set.
func (s *Store) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Event(nil), s.events...)
}

// Bookings returns a snapshot of the current booking set.
func (s *Store) Bookings() []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Booking(nil), s.bookings...)
}

// EventsForDate yields events whose start falls on the same calendar
// day as date, by local date components. The sequence is pure and
// restartable: it ranges over a snapshot taken at call time.
func (s *Store) EventsForDate(date time.Time) iter.Seq[domain.Event] {
	snapshot := s.Events()
	return func(yield func(domain.Event) bool) {
		for _, e := range snapshot {
			if !domain.SameDay(e.StartTime, date) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// IsEventBookedByUser reports whether the user holds an active
// (non-cancelled) booking for the event.
func (s *Store) IsEventBookedByUser(eventID, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		if b.EventID == eventID && b.UserID == userID && b.Active() {
			return true
		}
	}
	return false
}

// EventBookings returns every booking for the event, any status.
func (s *Store) EventBookings(eventID string) []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.EventID == eventID {
			out = append(out, b)
		}
	}
	return out
}

// ConfirmedCount returns the number of confirmed bookings for an event.
func (s *Store) ConfirmedCount(eventID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.bookings {
		if b.EventID == eventID && b.Status == domain.BookingConfirmed {
			n++
		}
	}
	return n
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) View() domain.CalendarView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Store) SetView(v domain.CalendarView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.Type == "" {
		v.Type = domain.ViewMonth
	}
	if v.CurrentDate.IsZero() {
		v.CurrentDate = s.clock.Now()
	}
	s.view = v
}

func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}
