package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/oakmund/eventbook/internal/domain"
)

// AddEvent creates the event remote-first. When the service is
// unreachable the draft is kept as a locally-synthesized, Unsynced
// record so the client stays usable offline; that degraded copy is
// returned, not an error.
func (s *Store) AddEvent(ctx context.Context, draft domain.EventDraft) (domain.Event, error) {
	if err := draft.Validate(); err != nil {
		return domain.Event{}, err
	}

	event, err := s.remote.CreateEvent(ctx, draft)
	if err != nil {
		s.log.Warn("event creation failed, keeping local copy", "err", err)
		createdBy := ""
		if user, ok := s.users.CurrentUser(); ok {
			createdBy = user.ID
		}
		event = draft.Synthesize(uuid.NewString(), createdBy, s.clock.Now())
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	s.persistEvents()
	return event, nil
}

// UpdateEvent patches the event remote-first; on remote failure the
// patch is applied locally and the record flagged Unsynced.
func (s *Store) UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) (domain.Event, error) {
	if err := patch.Validate(); err != nil {
		return domain.Event{}, err
	}

	updated, rerr := s.remote.UpdateEvent(ctx, id, patch)

	s.mu.Lock()
	current, idx := s.findEventLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.Event{}, domain.ErrNotFound
	}
	if rerr != nil {
		s.log.Warn("event update failed, applying locally", "id", id, "err", rerr)
		patch.Apply(&current)
		current.UpdatedAt = s.clock.Now()
		current.Unsynced = true
		updated = current
	}
	s.events[idx] = updated
	s.mu.Unlock()
	s.persistEvents()
	return updated, nil
}

// DeleteEvent removes the event; local state is pruned even when the
// remote call fails, matching the read-your-delete expectation of the
// views. Reconciliation resurrects it if the server still has it.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := s.remote.DeleteEvent(ctx, id); err != nil {
		s.log.Warn("event deletion failed remotely, removing locally", "id", id, "err", err)
	}
	s.mu.Lock()
	_, idx := s.findEventLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	s.events = append(s.events[:idx], s.events[idx+1:]...)
	s.mu.Unlock()
	s.persistEvents()
	return nil
}

// MoveEvent reschedules an event to raw RFC 3339 bounds. Unparseable or
// inverted bounds surface ErrInvalidTimeRange and leave stored times
// untouched.
func (s *Store) MoveEvent(ctx context.Context, id, startRaw, endRaw string) (domain.Event, error) {
	start, err := domain.ParseInstant(startRaw)
	if err != nil {
		return domain.Event{}, domain.ErrInvalidTimeRange
	}
	end, err := domain.ParseInstant(endRaw)
	if err != nil {
		return domain.Event{}, domain.ErrInvalidTimeRange
	}
	if !end.After(start) {
		return domain.Event{}, domain.ErrInvalidTimeRange
	}

	moved, rerr := s.remote.MoveEvent(ctx, id, start, end)

	s.mu.Lock()
	current, idx := s.findEventLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.Event{}, domain.ErrNotFound
	}
	if rerr != nil {
		s.log.Warn("event move failed, applying locally", "id", id, "err", rerr)
		current.StartTime = start
		current.EndTime = end
		current.UpdatedAt = s.clock.Now()
		current.Unsynced = true
		moved = current
	}
	s.events[idx] = moved
	s.mu.Unlock()
	s.persistEvents()
	return moved, nil
}
