package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oakmund/eventbook/internal/cache"
	"github.com/oakmund/eventbook/internal/clock"
	"github.com/oakmund/eventbook/internal/domain"
	"github.com/oakmund/eventbook/internal/eventapi"
)

type fakeRemote struct {
	events        []domain.Event
	listErr       error
	eventBookings map[string][]domain.Booking
	myBookings    []domain.Booking
	bookingsErr   error

	createEvent   func(domain.EventDraft) (domain.Event, error)
	updateEvent   func(string, domain.EventPatch) (domain.Event, error)
	moveEvent     func(string, time.Time, time.Time) (domain.Event, error)
	deleteErr     error
	createBooking func(string) (domain.Booking, error)
	cancelErr     error
	approve       func(string) (domain.Booking, error)

	eventBookingCalls int
	myBookingCalls    int
}

func (f *fakeRemote) ListEvents(context.Context, eventapi.EventQuery) ([]domain.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Event(nil), f.events...), nil
}

func (f *fakeRemote) CreateEvent(_ context.Context, d domain.EventDraft) (domain.Event, error) {
	if f.createEvent != nil {
		return f.createEvent(d)
	}
	return domain.Event{}, errors.New("create unavailable")
}

func (f *fakeRemote) UpdateEvent(_ context.Context, id string, p domain.EventPatch) (domain.Event, error) {
	if f.updateEvent != nil {
		return f.updateEvent(id, p)
	}
	return domain.Event{}, errors.New("update unavailable")
}

func (f *fakeRemote) MoveEvent(_ context.Context, id string, start, end time.Time) (domain.Event, error) {
	if f.moveEvent != nil {
		return f.moveEvent(id, start, end)
	}
	return domain.Event{}, errors.New("move unavailable")
}

func (f *fakeRemote) DeleteEvent(context.Context, string) error { return f.deleteErr }

func (f *fakeRemote) EventBookings(_ context.Context, eventID string) ([]domain.Booking, error) {
	f.eventBookingCalls++
	if f.bookingsErr != nil {
		return nil, f.bookingsErr
	}
	return f.eventBookings[eventID], nil
}

func (f *fakeRemote) MyBookings(context.Context) ([]domain.Booking, error) {
	f.myBookingCalls++
	if f.bookingsErr != nil {
		return nil, f.bookingsErr
	}
	return append([]domain.Booking(nil), f.myBookings...), nil
}

func (f *fakeRemote) CreateBooking(_ context.Context, eventID string) (domain.Booking, error) {
	if f.createBooking != nil {
		return f.createBooking(eventID)
	}
	return domain.Booking{
		ID:      "srv-" + eventID,
		EventID: eventID,
		Status:  domain.BookingConfirmed,
	}, nil
}

func (f *fakeRemote) CancelBooking(_ context.Context, id string) (domain.Booking, error) {
	if f.cancelErr != nil {
		return domain.Booking{}, f.cancelErr
	}
	return domain.Booking{ID: id, Status: domain.BookingCancelled}, nil
}

func (f *fakeRemote) ApproveBooking(_ context.Context, id string) (domain.Booking, error) {
	if f.approve != nil {
		return f.approve(id)
	}
	return domain.Booking{}, errors.New("approve unavailable")
}

type fakeUsers struct {
	user domain.User
	ok   bool
}

func (f *fakeUsers) CurrentUser() (domain.User, bool) { return f.user, f.ok }

func testEvent(id string, capacity int) domain.Event {
	start := time.Date(2025, 9, 15, 9, 0, 0, 0, time.Local)
	return domain.Event{
		ID:        id,
		Title:     "Team Standup",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Category:  domain.CategoryMeeting,
		Capacity:  capacity,
	}
}

func newTestStore(remote Remote, users UserSource) *Store {
	return New(Options{
		Remote: remote,
		Users:  users,
		Clock:  clock.NewFixed(time.Date(2025, 9, 1, 12, 0, 0, 0, time.Local)),
	})
}

func seedEvents(s *Store, events ...domain.Event) {
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
}

func TestCreateBookingCapacityScenario(t *testing.T) {
	users := &fakeUsers{ok: true}
	remote := &fakeRemote{}
	n := 0
	remote.createBooking = func(eventID string) (domain.Booking, error) {
		n++
		return domain.Booking{
			ID:      "srv-" + string(rune('a'+n)),
			EventID: eventID,
			UserID:  users.user.ID,
			Status:  domain.BookingConfirmed,
		}, nil
	}
	s := newTestStore(remote, users)
	seedEvents(s, testEvent("e1", 2))

	users.user = domain.User{ID: "u1", Role: domain.RoleUser}
	if _, err := s.CreateBooking(context.Background(), "e1"); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	users.user = domain.User{ID: "u2", Role: domain.RoleUser}
	if _, err := s.CreateBooking(context.Background(), "e1"); err != nil {
		t.Fatalf("second booking: %v", err)
	}
	if got := s.ConfirmedCount("e1"); got != 2 {
		t.Fatalf("confirmed count = %d, want 2", got)
	}

	users.user = domain.User{ID: "u3", Role: domain.RoleUser}
	_, err := s.CreateBooking(context.Background(), "e1")
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("third booking err = %v, want ErrCapacityExceeded", err)
	}
	if got := s.ConfirmedCount("e1"); got != 2 {
		t.Fatalf("confirmed count after rejection = %d, want 2", got)
	}
}

func TestCreateBookingAlreadyBooked(t *testing.T) {
	users := &fakeUsers{user: domain.User{ID: "u1"}, ok: true}
	s := newTestStore(&fakeRemote{}, users)
	seedEvents(s, testEvent("e1", 0))

	if _, err := s.CreateBooking(context.Background(), "e1"); err != nil {
		t.Fatalf("booking: %v", err)
	}
	before := s.Bookings()
	_, err := s.CreateBooking(context.Background(), "e1")
	if !errors.Is(err, domain.ErrAlreadyBooked) {
		t.Fatalf("duplicate booking err = %v, want ErrAlreadyBooked", err)
	}
	after := s.Bookings()
	if len(before) != len(after) {
		t.Fatalf("booking set changed: %d -> %d", len(before), len(after))
	}
}

func TestCreateBookingCancelledFreesRebooking(t *testing.T) {
	users := &fakeUsers{user: domain.User{ID: "u1"}, ok: true}
	s := newTestStore(&fakeRemote{}, users)
	seedEvents(s, testEvent("e1", 0))
	s.mu.Lock()
	s.bookings = []domain.Booking{{ID: "b0", EventID: "e1", UserID: "u1", Status: domain.BookingCancelled}}
	s.mu.Unlock()

	if _, err := s.CreateBooking(context.Background(), "e1"); err != nil {
		t.Fatalf("rebooking after cancellation: %v", err)
	}
}

func TestCreateBookingRollsBackOnRemoteFailure(t *testing.T) {
	users := &fakeUsers{user: domain.User{ID: "u1"}, ok: true}
	cause := errors.New("boom")
	remote := &fakeRemote{
		createBooking: func(string) (domain.Booking, error) { return domain.Booking{}, cause },
	}
	s := newTestStore(remote, users)
	seedEvents(s, testEvent("e1", 5))

	before := s.Bookings()
	_, err := s.CreateBooking(context.Background(), "e1")
	var reqErr domain.BookingRequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want BookingRequestError", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not wrapped: %v", err)
	}
	after := s.Bookings()
	if len(after) != len(before) {
		t.Fatalf("rollback left %d bookings, want %d", len(after), len(before))
	}
}

func TestCreateBookingOptimisticRecordVisibleInFlight(t *testing.T) {
	users := &fakeUsers{user: domain.User{ID: "u1"}, ok: true}
	remote := &fakeRemote{}
	s := newTestStore(remote, users)
	seedEvents(s, testEvent("e1", 0))

	var sawPending bool
	remote.createBooking = func(eventID string) (domain.Booking, error) {
		for _, b := range s.Bookings() {
			if b.EventID == eventID && b.Pending && b.Status == domain.BookingConfirmed {
				sawPending = true
			}
		}
		return domain.Booking{ID: "srv-b1", EventID: eventID, UserID: "u1", Status: domain.BookingConfirmed}, nil
	}

	created, err := s.CreateBooking(context.Background(), "e1")
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	if !sawPending {
		t.Fatal("optimistic record was not visible during the remote call")
	}
	bookings := s.Bookings()
	if len(bookings) != 1 {
		t.Fatalf("booking count = %d, want 1 (no duplicate after replace)", len(bookings))
	}
	if bookings[0].ID != "srv-b1" || bookings[0].Pending {
		t.Fatalf("temp record not replaced by server booking: %+v", bookings[0])
	}
	if created.ID != "srv-b1" {
		t.Fatalf("returned booking = %+v", created)
	}
}

func TestReloadPreservesPendingRecords(t *testing.T) {
	users := &fakeUsers{user: domain.User{ID: "u1"}, ok: true}
	remote := &fakeRemote{events: []domain.Event{testEvent("e1", 0)}}
	s := newTestStore(remote, users)
	seedEvents(s, testEvent("e1", 0))

	remote.createBooking = func(eventID string) (domain.Booking, error) {
		// A poll lands mid-flight; the pending record must survive it.
		s.Refresh(context.Background())
		return domain.Booking{ID: "srv-b1", EventID: eventID, UserID: "u1", Status: domain.BookingConfirmed}, nil
	}

	if _, err := s.CreateBooking(context.Background(), "e1"); err != nil {
		t.Fatalf("booking: %v", err)
	}
	bookings := s.Bookings()
	if len(bookings) != 1 {
		t.Fatalf("booking count = %d, want 1", len(bookings))
	}
	if bookings[0].ID != "srv-b1" {
		t.Fatalf("pending record clobbered by reload: %+v", bookings[0])
	}
}

func TestReloadWithCommittedBookingLeavesNoDuplicate(t *testing.T) {
	users := &fakeUsers{user: domain.User{ID: "u1"}, ok: true}
	remote := &fakeRemote{events: []domain.Event{testEvent("e1", 0)}}
	s := newTestStore(remote, users)
	seedEvents(s, testEvent("e1", 0))

	committed := domain.Booking{ID: "srv-b1", EventID: "e1", UserID: "u1", Status: domain.BookingConfirmed}
	remote.createBooking = func(string) (domain.Booking, error) {
		// The server commits, and a reload observes the committed
		// booking before the create response lands.
		remote.myBookings = []domain.Booking{committed}
		s.Refresh(context.Background())
		return committed, nil
	}

	if _, err := s.CreateBooking(context.Background(), "e1"); err != nil {
		t.Fatalf("booking: %v", err)
	}
	var matches int
	for _, b := range s.Bookings() {
		if b.ID == "srv-b1" {
			matches++
		}
	}
	if matches != 1 {
		t.Fatalf("srv-b1 appears %d times, want 1", matches)
	}
	if got := s.ConfirmedCount("e1"); got != 1 {
		t.Fatalf("confirmed count = %d, want 1", got)
	}
}

func TestCancelBookingOptimisticAndRollback(t *testing.T) {
	users := &fakeUsers{user: domain.User{ID: "u1"}, ok: true}
	remote := &fakeRemote{}
	s := newTestStore(remote, users)
	existing := domain.Booking{ID: "b1", EventID: "e1", UserID: "u1", Status: domain.BookingConfirmed}
	s.mu.Lock()
	s.bookings = []domain.Booking{existing}
	s.mu.Unlock()

	// Failure path: set is restored verbatim.
	remote.cancelErr = errors.New("cancel rejected")
	err := s.CancelBooking(context.Background(), "b1")
	var cancelErr domain.CancelRequestError
	if !errors.As(err, &cancelErr) {
		t.Fatalf("err = %v, want CancelRequestError", err)
	}
	bookings := s.Bookings()
	if len(bookings) != 1 || bookings[0] != existing {
		t.Fatalf("booking not restored verbatim: %+v", bookings)
	}

	// Success path: stays removed.
	remote.cancelErr = nil
	if err := s.CancelBooking(context.Background(), "b1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := s.Bookings(); len(got) != 0 {
		t.Fatalf("booking still present after cancel: %+v", got)
	}

	if err := s.CancelBooking(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cancel missing err = %v, want ErrNotFound", err)
	}
}

func TestCreateBookingRequiresUser(t *testing.T) {
	s := newTestStore(&fakeRemote{}, &fakeUsers{})
	if _, err := s.CreateBooking(context.Background(), "e1"); !errors.Is(err, domain.ErrNoCurrentUser) {
		t.Fatalf("err = %v, want ErrNoCurrentUser", err)
	}
}

func TestLoadFallsBackToCache(t *testing.T) {
	dir := t.TempDir()
	fallback := cache.Store{Dir: dir}
	cachedEvents := []domain.Event{testEvent("e1", 3)}
	cachedBookings := []domain.Booking{{ID: "b1", EventID: "e1", UserID: "u1", Status: domain.BookingConfirmed}}
	if err := fallback.SaveEvents(cachedEvents); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := fallback.SaveBookings(cachedBookings); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	remote := &fakeRemote{listErr: errors.New("down"), bookingsErr: errors.New("down")}
	users := &fakeUsers{user: domain.User{ID: "u1", Role: domain.RoleUser}, ok: true}
	s := New(Options{Remote: remote, Cache: fallback, Users: users})

	s.Load(context.Background(), Filters{})

	if s.Loading() {
		t.Fatal("loading flag not cleared")
	}
	if got := s.Events(); len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("events = %+v, want cached snapshot", got)
	}
	if got := s.Bookings(); len(got) != 1 || got[0].ID != "b1" {
		t.Fatalf("bookings = %+v, want cached snapshot", got)
	}
}

func TestLoadScopesBookingsByRole(t *testing.T) {
	remote := &fakeRemote{
		events: []domain.Event{testEvent("e1", 0), testEvent("e2", 0)},
		eventBookings: map[string][]domain.Booking{
			"e1": {{ID: "b1", EventID: "e1", UserID: "u1", Status: domain.BookingConfirmed}},
			"e2": {{ID: "b2", EventID: "e2", UserID: "u2", Status: domain.BookingPending}},
		},
		myBookings: []domain.Booking{{ID: "b1", EventID: "e1", UserID: "u1", Status: domain.BookingConfirmed}},
	}

	admin := &fakeUsers{user: domain.User{ID: "a1", Role: domain.RoleAdmin}, ok: true}
	s := newTestStore(remote, admin)
	s.Load(context.Background(), Filters{})
	if got := s.Bookings(); len(got) != 2 {
		t.Fatalf("admin bookings = %+v, want aggregation across events", got)
	}
	if remote.eventBookingCalls != 2 {
		t.Fatalf("event booking calls = %d, want 2", remote.eventBookingCalls)
	}

	user := &fakeUsers{user: domain.User{ID: "u1", Role: domain.RoleUser}, ok: true}
	s2 := newTestStore(remote, user)
	s2.Load(context.Background(), Filters{})
	if got := s2.Bookings(); len(got) != 1 || got[0].ID != "b1" {
		t.Fatalf("user bookings = %+v, want own bookings only", got)
	}
	if remote.myBookingCalls != 1 {
		t.Fatalf("my booking calls = %d, want 1", remote.myBookingCalls)
	}
}

func TestAddEventOfflineSynthesizesUnsynced(t *testing.T) {
	users := &fakeUsers{user: domain.User{ID: "u1"}, ok: true}
	s := newTestStore(&fakeRemote{}, users)

	draft := domain.EventDraft{
		Title:     "Tech Workshop",
		StartTime: time.Date(2025, 9, 20, 10, 0, 0, 0, time.Local),
		EndTime:   time.Date(2025, 9, 20, 12, 0, 0, 0, time.Local),
		Category:  domain.CategoryWork,
	}
	event, err := s.AddEvent(context.Background(), draft)
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	if !event.Unsynced {
		t.Fatal("offline event not flagged unsynced")
	}
	if event.ID == "" || event.CreatedBy != "u1" {
		t.Fatalf("synthesized event incomplete: %+v", event)
	}
	if got := s.Events(); len(got) != 1 {
		t.Fatalf("events = %+v", got)
	}
}

func TestAddEventRejectsInvalidDraft(t *testing.T) {
	s := newTestStore(&fakeRemote{}, &fakeUsers{ok: true})
	draft := domain.EventDraft{
		Title:     "Backwards",
		StartTime: time.Date(2025, 9, 20, 12, 0, 0, 0, time.Local),
		EndTime:   time.Date(2025, 9, 20, 10, 0, 0, 0, time.Local),
	}
	if _, err := s.AddEvent(context.Background(), draft); !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("err = %v, want ErrInvalidTimeRange", err)
	}
	if got := s.Events(); len(got) != 0 {
		t.Fatalf("invalid draft stored: %+v", got)
	}
}

func TestDeleteEventPrunesLocallyAndReloadResurrects(t *testing.T) {
	remote := &fakeRemote{
		events:    []domain.Event{testEvent("e1", 0)},
		deleteErr: errors.New("down"),
	}
	s := newTestStore(remote, &fakeUsers{user: domain.User{ID: "u1"}, ok: true})
	seedEvents(s, testEvent("e1", 0))

	if err := s.DeleteEvent(context.Background(), "e1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := s.Events(); len(got) != 0 {
		t.Fatalf("event still present after delete: %+v", got)
	}

	// No tombstone: the server still has the event, so a reload brings
	// it back.
	s.Refresh(context.Background())
	if got := s.Events(); len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("events after reload = %+v, want resurrected e1", got)
	}
}

func TestMoveEventInvalidTimestampIsRejected(t *testing.T) {
	s := newTestStore(&fakeRemote{}, &fakeUsers{ok: true})
	original := testEvent("e1", 0)
	seedEvents(s, original)

	_, err := s.MoveEvent(context.Background(), "e1", "invalid-date", "2025-09-21T10:00:00Z")
	if !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("err = %v, want ErrInvalidTimeRange", err)
	}
	got := s.Events()[0]
	if !got.StartTime.Equal(original.StartTime) || !got.EndTime.Equal(original.EndTime) {
		t.Fatalf("event times changed after rejected move: %+v", got)
	}

	if _, err := s.MoveEvent(context.Background(), "e1", "2025-09-21T12:00:00Z", "2025-09-21T10:00:00Z"); !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("inverted range err = %v, want ErrInvalidTimeRange", err)
	}
}

func TestMoveEventFallsBackLocally(t *testing.T) {
	s := newTestStore(&fakeRemote{}, &fakeUsers{ok: true})
	seedEvents(s, testEvent("e1", 0))

	moved, err := s.MoveEvent(context.Background(), "e1", "2025-09-21T10:00:00Z", "2025-09-21T11:00:00Z")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !moved.Unsynced {
		t.Fatal("local move not flagged unsynced")
	}
	want, _ := domain.ParseInstant("2025-09-21T10:00:00Z")
	if !moved.StartTime.Equal(want) {
		t.Fatalf("start = %v, want %v", moved.StartTime, want)
	}
}

func TestEventsForDateIsRestartable(t *testing.T) {
	s := newTestStore(&fakeRemote{}, &fakeUsers{ok: true})
	day := time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local)
	other := testEvent("e2", 0)
	other.StartTime = day.AddDate(0, 0, 1)
	other.EndTime = other.StartTime.Add(time.Hour)
	seedEvents(s, testEvent("e1", 0), other)

	seq := s.EventsForDate(day.Add(23 * time.Hour))
	for pass := 0; pass < 2; pass++ {
		var ids []string
		for e := range seq {
			ids = append(ids, e.ID)
		}
		if len(ids) != 1 || ids[0] != "e1" {
			t.Fatalf("events for date = %v, want [e1]", ids)
		}
	}
}

func TestIsEventBookedByUserExcludesCancelled(t *testing.T) {
	s := newTestStore(&fakeRemote{}, &fakeUsers{ok: true})
	s.mu.Lock()
	s.bookings = []domain.Booking{
		{ID: "b1", EventID: "e1", UserID: "u1", Status: domain.BookingCancelled},
		{ID: "b2", EventID: "e2", UserID: "u1", Status: domain.BookingPending},
	}
	s.mu.Unlock()

	if s.IsEventBookedByUser("e1", "u1") {
		t.Fatal("cancelled booking counted as active")
	}
	if !s.IsEventBookedByUser("e2", "u1") {
		t.Fatal("pending booking not counted as active")
	}
	if got := s.EventBookings("e1"); len(got) != 1 {
		t.Fatalf("event bookings = %+v, want cancelled record included", got)
	}
}

func TestApproveBookingAdminOnlyWithRollback(t *testing.T) {
	users := &fakeUsers{user: domain.User{ID: "u1", Role: domain.RoleUser}, ok: true}
	remote := &fakeRemote{}
	s := newTestStore(remote, users)
	s.mu.Lock()
	s.bookings = []domain.Booking{{ID: "b1", EventID: "e1", UserID: "u2", Status: domain.BookingPending}}
	s.mu.Unlock()

	if _, err := s.ApproveBooking(context.Background(), "b1"); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("err = %v, want ErrNotAdmin", err)
	}

	users.user.Role = domain.RoleAdmin
	_, err := s.ApproveBooking(context.Background(), "b1")
	var approveErr domain.ApproveRequestError
	if !errors.As(err, &approveErr) {
		t.Fatalf("err = %v, want ApproveRequestError", err)
	}
	if got := s.Bookings()[0].Status; got != domain.BookingPending {
		t.Fatalf("status after failed approval = %s, want pending", got)
	}

	remote.approve = func(id string) (domain.Booking, error) {
		return domain.Booking{ID: id, EventID: "e1", UserID: "u2", Status: domain.BookingConfirmed}, nil
	}
	approved, err := s.ApproveBooking(context.Background(), "b1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.BookingConfirmed {
		t.Fatalf("approved booking = %+v", approved)
	}
}
