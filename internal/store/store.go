// Package store holds the client's in-memory view of events and
// bookings. Every mutation funnels through it so optimistic updates,
// rollback, and reconciliation stay in one place; views only read
// snapshots or call its operations.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oakmund/eventbook/internal/clock"
	"github.com/oakmund/eventbook/internal/domain"
	"github.com/oakmund/eventbook/internal/eventapi"
)

// Remote is the slice of the booking-service client the store consumes.
// The server behind it is the authority; the store only approximates it
// between round-trips.
type Remote interface {
	ListEvents(ctx context.Context, q eventapi.EventQuery) ([]domain.Event, error)
	CreateEvent(ctx context.Context, draft domain.EventDraft) (domain.Event, error)
	UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) (domain.Event, error)
	MoveEvent(ctx context.Context, id string, start, end time.Time) (domain.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	EventBookings(ctx context.Context, eventID string) ([]domain.Booking, error)
	MyBookings(ctx context.Context) ([]domain.Booking, error)
	CreateBooking(ctx context.Context, eventID string) (domain.Booking, error)
	CancelBooking(ctx context.Context, id string) (domain.Booking, error)
	ApproveBooking(ctx context.Context, id string) (domain.Booking, error)
}

// Cache is the on-disk fallback consulted when the remote fails.
type Cache interface {
	SaveEvents([]domain.Event) error
	LoadEvents() ([]domain.Event, error)
	SaveBookings([]domain.Booking) error
	LoadBookings() ([]domain.Booking, error)
}

// UserSource supplies the current identity used to scope booking
// queries and capacity checks.
type UserSource interface {
	CurrentUser() (domain.User, bool)
}

// Filters bound an event load.
type Filters struct {
	From     time.Time
	To       time.Time
	Category domain.Category
	Query    string
}

func (f Filters) query() eventapi.EventQuery {
	return eventapi.EventQuery{From: f.From, To: f.To, Category: f.Category, Query: f.Query}
}

type Store struct {
	remote Remote
	cache  Cache
	users  UserSource
	clock  clock.Clock
	log    *slog.Logger

	mu       sync.RWMutex
	events   []domain.Event
	bookings []domain.Booking
	view     domain.CalendarView
	filters  Filters
	loading  bool
}

type Options struct {
	Remote Remote
	Cache  Cache
	Users  UserSource
	Clock  clock.Clock
	Logger *slog.Logger
}

func New(opts Options) *Store {
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		remote: opts.Remote,
		cache:  opts.Cache,
		users:  opts.Users,
		clock:  clk,
		log:    logger,
		view:   domain.CalendarView{Type: domain.ViewMonth, CurrentDate: clk.Now()},
	}
}

// Load fetches events and role-scoped bookings from the remote service,
// degrading to the on-disk cache when it is unreachable. It never fails
// the caller: the store ends up with the best available snapshot and the
// loading flag cleared.
func (s *Store) Load(ctx context.Context, filters Filters) {
	s.mu.Lock()
	s.loading = true
	s.filters = filters
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	events, fromRemote := s.fetchEvents(ctx, filters)
	bookings, bookingsFromRemote := s.fetchBookings(ctx, events, fromRemote)

	s.mu.Lock()
	if events != nil || fromRemote {
		s.events = events
	}
	if bookings != nil || bookingsFromRemote {
		// Pending optimistic records survive every reload; they are
		// replaced only when their own request settles.
		s.bookings = mergePending(bookings, s.bookings)
	}
	s.mu.Unlock()

	if fromRemote {
		s.persistEvents()
	}
	if bookingsFromRemote {
		s.persistBookings()
	}
}

// Refresh re-runs Load with the filters of the previous load; the
// reconciliation loop drives it.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.RLock()
	filters := s.filters
	s.mu.RUnlock()
	s.Load(ctx, filters)
}

// fetchEvents returns the event set and whether it came from the
// remote. A nil, false return means neither remote nor cache had
// anything; the in-memory snapshot is kept as-is.
func (s *Store) fetchEvents(ctx context.Context, filters Filters) ([]domain.Event, bool) {
	events, err := s.remote.ListEvents(ctx, filters.query())
	if err == nil {
		return events, true
	}
	s.log.Warn("event load failed, falling back to cache", "err", err)
	if s.cache != nil {
		if cached, cerr := s.cache.LoadEvents(); cerr == nil {
			return cached, false
		}
	}
	return nil, false
}

// fetchBookings loads bookings scoped by role: admins aggregate every
// event's bookings, users fetch their own.
func (s *Store) fetchBookings(ctx context.Context, events []domain.Event, eventsFromRemote bool) ([]domain.Booking, bool) {
	user, ok := s.users.CurrentUser()
	if !ok {
		return nil, false
	}

	var bookings []domain.Booking
	var err error
	if user.IsAdmin() {
		// An empty aggregation over a failed event load is not an
		// authoritative "no bookings"; keep what we have.
		if len(events) == 0 && !eventsFromRemote {
			return nil, false
		}
		for _, e := range events {
			var bs []domain.Booking
			bs, err = s.remote.EventBookings(ctx, e.ID)
			if err != nil {
				break
			}
			bookings = append(bookings, bs...)
		}
	} else {
		bookings, err = s.remote.MyBookings(ctx)
	}
	if err == nil {
		if bookings == nil {
			bookings = []domain.Booking{}
		}
		return bookings, true
	}

	s.log.Warn("booking load failed, falling back to cache", "err", err)
	if s.cache != nil {
		if cached, cerr := s.cache.LoadBookings(); cerr == nil {
			return cached, false
		}
	}
	return nil, false
}

// mergePending overlays incoming server state with any still-unresolved
// optimistic records from the current set. A pending record whose
// (event, user) pair already appears in the incoming set is dropped:
// the server has committed that booking, so keeping the temp copy would
// double-count it.
func mergePending(incoming, current []domain.Booking) []domain.Booking {
	out := append([]domain.Booking(nil), incoming...)
	for _, b := range current {
		if !b.Pending {
			continue
		}
		if hasBookingFor(incoming, b.EventID, b.UserID) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func hasBookingFor(bookings []domain.Booking, eventID, userID string) bool {
	for _, b := range bookings {
		if b.EventID == eventID && b.UserID == userID {
			return true
		}
	}
	return false
}

func (s *Store) persistEvents() {
	if s.cache == nil {
		return
	}
	s.mu.RLock()
	events := append([]domain.Event(nil), s.events...)
	s.mu.RUnlock()
	if err := s.cache.SaveEvents(events); err != nil {
		s.log.Warn("events not cached", "err", err)
	}
}

func (s *Store) persistBookings() {
	if s.cache == nil {
		return
	}
	s.mu.RLock()
	bookings := append([]domain.Booking(nil), s.bookings...)
	s.mu.RUnlock()
	if err := s.cache.SaveBookings(bookings); err != nil {
		s.log.Warn("bookings not cached", "err", err)
	}
}

func (s *Store) findEventLocked(id string) (domain.Event, int) {
	for i, e := range s.events {
		if e.ID == id {
			return e, i
		}
	}
	return domain.Event{}, -1
}

func (s *Store) findBookingLocked(id string) int {
	for i, b := range s.bookings {
		if b.ID == id {
			return i
		}
	}
	return -1
}
