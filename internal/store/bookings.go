package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/oakmund/eventbook/internal/domain"
)

// CreateBooking books the current user onto an event.
//
// The client-side preconditions are best-effort only: two racing calls
// can both pass them, and the server decides who gets the last seat.
// The flow is: precondition checks, optimistic insert of a pending
// record, remote call without holding the lock, then replace-in-place
// on success or full rollback on failure.
func (s *Store) CreateBooking(ctx context.Context, eventID string) (domain.Booking, error) {
	user, ok := s.users.CurrentUser()
	if !ok {
		return domain.Booking{}, domain.ErrNoCurrentUser
	}

	s.mu.Lock()
	for _, b := range s.bookings {
		// Cancelled bookings free the user to rebook.
		if b.EventID == eventID && b.UserID == user.ID && b.Active() {
			s.mu.Unlock()
			return domain.Booking{}, domain.ErrAlreadyBooked
		}
	}
	if event, idx := s.findEventLocked(eventID); idx >= 0 && event.Capacity > 0 {
		confirmed := 0
		for _, b := range s.bookings {
			if b.EventID == eventID && b.Status == domain.BookingConfirmed {
				confirmed++
			}
		}
		if confirmed >= event.Capacity {
			s.mu.Unlock()
			return domain.Booking{}, domain.ErrCapacityExceeded
		}
	}
	temp := domain.Booking{
		ID:        "tmp-" + uuid.NewString(),
		EventID:   eventID,
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		BookedAt:  s.clock.Now(),
		Status:    domain.BookingConfirmed,
		Pending:   true,
	}
	s.bookings = append(s.bookings, temp)
	s.mu.Unlock()

	created, err := s.remote.CreateBooking(ctx, eventID)

	s.mu.Lock()
	idx := s.findBookingLocked(temp.ID)
	if err != nil {
		if idx >= 0 {
			s.bookings = append(s.bookings[:idx], s.bookings[idx+1:]...)
		}
		s.mu.Unlock()
		return domain.Booking{}, domain.BookingRequestError{Cause: err}
	}
	fillBookingDefaults(&created, temp)
	if idx >= 0 {
		s.bookings = append(s.bookings[:idx], s.bookings[idx+1:]...)
	}
	// A reload during the optimistic window may already have brought in
	// the server's copy; settle onto that slot instead of adding a
	// second entry with the same id.
	if existing := s.findBookingLocked(created.ID); existing >= 0 {
		s.bookings[existing] = created
	} else {
		s.bookings = append(s.bookings, created)
	}
	s.mu.Unlock()
	s.persistBookings()
	return created, nil
}

// fillBookingDefaults papers over sparse server responses with the
// optimistic record's known values.
func fillBookingDefaults(b *domain.Booking, temp domain.Booking) {
	if b.ID == "" {
		b.ID = temp.ID
	}
	if b.EventID == "" {
		b.EventID = temp.EventID
	}
	if b.UserID == "" {
		b.UserID = temp.UserID
	}
	if b.Status == "" {
		b.Status = domain.BookingConfirmed
	}
	if b.BookedAt.IsZero() {
		b.BookedAt = temp.BookedAt
	}
	b.Pending = false
}

// CancelBooking removes the booking optimistically, then confirms with
// the server. On failure the prior booking set is restored verbatim and
// the error surfaced.
func (s *Store) CancelBooking(ctx context.Context, bookingID string) error {
	s.mu.Lock()
	idx := s.findBookingLocked(bookingID)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	snapshot := append([]domain.Booking(nil), s.bookings...)
	s.bookings = append(s.bookings[:idx], s.bookings[idx+1:]...)
	s.mu.Unlock()

	if _, err := s.remote.CancelBooking(ctx, bookingID); err != nil {
		s.mu.Lock()
		s.bookings = snapshot
		s.mu.Unlock()
		return domain.CancelRequestError{Cause: err}
	}
	s.persistBookings()
	return nil
}

// ApproveBooking flips a pending booking to confirmed, admin only.
// The transition is optimistic and reverted if the server rejects it.
func (s *Store) ApproveBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	user, ok := s.users.CurrentUser()
	if !ok {
		return domain.Booking{}, domain.ErrNoCurrentUser
	}
	if !user.IsAdmin() {
		return domain.Booking{}, domain.ErrNotAdmin
	}

	s.mu.Lock()
	idx := s.findBookingLocked(bookingID)
	if idx < 0 {
		s.mu.Unlock()
		return domain.Booking{}, domain.ErrNotFound
	}
	prior := s.bookings[idx].Status
	s.bookings[idx].Status = domain.BookingConfirmed
	s.mu.Unlock()

	approved, err := s.remote.ApproveBooking(ctx, bookingID)

	s.mu.Lock()
	idx = s.findBookingLocked(bookingID)
	if err != nil {
		if idx >= 0 {
			s.bookings[idx].Status = prior
		}
		s.mu.Unlock()
		return domain.Booking{}, domain.ApproveRequestError{Cause: err}
	}
	if idx >= 0 {
		fillBookingDefaults(&approved, s.bookings[idx])
		s.bookings[idx] = approved
	}
	s.mu.Unlock()
	s.persistBookings()
	return approved, nil
}
