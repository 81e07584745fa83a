// Package api exposes the calendar store to local view components over
// a small JSON HTTP surface. It is plumbing, not logic: every handler
// delegates to the store and maps domain errors to status codes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/oakmund/eventbook/internal/domain"
)

// Calendar is the slice of the store the server consumes.
type Calendar interface {
	Events() []domain.Event
	EventsForDate(date time.Time) iter.Seq[domain.Event]
	Bookings() []domain.Booking
	EventBookings(eventID string) []domain.Booking
	IsEventBookedByUser(eventID, userID string) bool
	AddEvent(ctx context.Context, draft domain.EventDraft) (domain.Event, error)
	UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) (domain.Event, error)
	MoveEvent(ctx context.Context, id, startRaw, endRaw string) (domain.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	CreateBooking(ctx context.Context, eventID string) (domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) error
	ApproveBooking(ctx context.Context, bookingID string) (domain.Booking, error)
	View() domain.CalendarView
	SetView(v domain.CalendarView)
	Loading() bool
}

type Server struct {
	calendar Calendar
	guard    tokenGuard
	log      *slog.Logger
	httpSrv  *http.Server
}

type Options struct {
	Calendar     Calendar
	RequireToken bool
	Token        string
	Logger       *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		calendar: opts.Calendar,
		guard:    tokenGuard{enabled: opts.RequireToken, token: opts.Token},
		log:      logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/events/create", s.handleCreateEvent)
	mux.HandleFunc("/v1/events/update", s.handleUpdateEvent)
	mux.HandleFunc("/v1/events/move", s.handleMoveEvent)
	mux.HandleFunc("/v1/events/delete", s.handleDeleteEvent)
	mux.HandleFunc("/v1/bookings", s.handleBookings)
	mux.HandleFunc("/v1/bookings/create", s.handleCreateBooking)
	mux.HandleFunc("/v1/bookings/cancel", s.handleCancelBooking)
	mux.HandleFunc("/v1/bookings/approve", s.handleApproveBooking)
	mux.HandleFunc("/v1/view", s.handleView)
	s.httpSrv = &http.Server{Handler: s.wrapAuth(mux), ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Server) ServeTCP(ctx context.Context, bind string) error {
	if bind == "" {
		return errors.New("bind required")
	}
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	go s.shutdownOnContext(ctx)
	return s.httpSrv.Serve(ln)
}

func (s *Server) shutdownOnContext(ctx context.Context) {
	<-ctx.Done()
	timeout, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.httpSrv.Shutdown(timeout)
}

func (s *Server) wrapAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && !s.guard.authorize(r) {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "loading": s.calendar.Loading()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := domain.ParseInstant(raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid date")
			return
		}
		events := slices.Collect(s.calendar.EventsForDate(date))
		if events == nil {
			events = []domain.Event{}
		}
		writeJSON(w, http.StatusOK, events)
		return
	}
	writeJSON(w, http.StatusOK, s.calendar.Events())
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if eventID := r.URL.Query().Get("event_id"); eventID != "" {
		writeJSON(w, http.StatusOK, s.calendar.EventBookings(eventID))
		return
	}
	writeJSON(w, http.StatusOK, s.calendar.Bookings())
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(ctx context.Context, payload mutationRequest) (any, error) {
		return s.calendar.AddEvent(ctx, payload.Draft)
	})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(ctx context.Context, payload mutationRequest) (any, error) {
		return s.calendar.UpdateEvent(ctx, payload.EventID, payload.Patch)
	})
}

func (s *Server) handleMoveEvent(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(ctx context.Context, payload mutationRequest) (any, error) {
		return s.calendar.MoveEvent(ctx, payload.EventID, payload.StartTime, payload.EndTime)
	})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(ctx context.Context, payload mutationRequest) (any, error) {
		return map[string]string{"event_id": payload.EventID}, s.calendar.DeleteEvent(ctx, payload.EventID)
	})
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(ctx context.Context, payload mutationRequest) (any, error) {
		return s.calendar.CreateBooking(ctx, payload.EventID)
	})
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(ctx context.Context, payload mutationRequest) (any, error) {
		return map[string]string{"booking_id": payload.BookingID}, s.calendar.CancelBooking(ctx, payload.BookingID)
	})
}

func (s *Server) handleApproveBooking(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(ctx context.Context, payload mutationRequest) (any, error) {
		return s.calendar.ApproveBooking(ctx, payload.BookingID)
	})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.calendar.View())
	case http.MethodPost:
		var v domain.CalendarView
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}
		s.calendar.SetView(v)
		writeJSON(w, http.StatusOK, s.calendar.View())
	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type mutationRequest struct {
	EventID   string            `json:"event_id"`
	BookingID string            `json:"booking_id"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Draft     domain.EventDraft `json:"draft"`
	Patch     domain.EventPatch `json:"patch"`
}

func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request, run func(context.Context, mutationRequest) (any, error)) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	out, err := run(r.Context(), payload)
	if err != nil {
		writeErr(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// statusFor maps the domain error taxonomy to HTTP statuses for the
// local surface.
func statusFor(err error) int {
	var bookErr domain.BookingRequestError
	var cancelErr domain.CancelRequestError
	var approveErr domain.ApproveRequestError
	switch {
	case errors.Is(err, domain.ErrAlreadyBooked), errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidTimeRange),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrTitleRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoCurrentUser):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotAdmin):
		return http.StatusForbidden
	case errors.As(err, &bookErr), errors.As(err, &cancelErr), errors.As(err, &approveErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
