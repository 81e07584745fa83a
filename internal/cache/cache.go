// Package cache is the on-disk fallback used when the remote booking
// service is unreachable: one JSON file per namespace, written through
// after successful loads and read back on failure.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oakmund/eventbook/internal/domain"
)

const (
	fileEvents      = "events.json"
	fileBookings    = "bookings.json"
	fileUsers       = "users.json"
	fileCurrentUser = "current-user.json"
)

// ErrMiss is returned when a namespace has never been written.
var ErrMiss = errors.New("cache miss")

type Store struct {
	Dir string
}

func (s Store) SaveEvents(events []domain.Event) error {
	return s.write(fileEvents, events)
}

func (s Store) LoadEvents() ([]domain.Event, error) {
	var events []domain.Event
	if err := s.read(fileEvents, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// SaveBookings persists the booking set minus pending optimistic
// records; an unresolved temp id must not survive a restart.
func (s Store) SaveBookings(bookings []domain.Booking) error {
	settled := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Pending {
			continue
		}
		settled = append(settled, b)
	}
	return s.write(fileBookings, settled)
}

func (s Store) LoadBookings() ([]domain.Booking, error) {
	var bookings []domain.Booking
	if err := s.read(fileBookings, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s Store) SaveUsers(users []domain.User) error {
	return s.write(fileUsers, users)
}

func (s Store) LoadUsers() ([]domain.User, error) {
	var users []domain.User
	if err := s.read(fileUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s Store) SaveCurrentUser(user domain.User) error {
	return s.write(fileCurrentUser, user)
}

func (s Store) LoadCurrentUser() (domain.User, error) {
	var user domain.User
	if err := s.read(fileCurrentUser, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s Store) ClearCurrentUser() error {
	err := os.Remove(filepath.Join(s.Dir, fileCurrentUser))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}

func (s Store) write(name string, v any) error {
	if s.Dir == "" {
		return errors.New("cache dir is required")
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	blob, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), blob, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s Store) read(name string, v any) error {
	if s.Dir == "" {
		return errors.New("cache dir is required")
	}
	blob, err := os.ReadFile(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrMiss)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(blob, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}
