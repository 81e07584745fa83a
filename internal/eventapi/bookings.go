package eventapi

import (
	"context"

	"github.com/oakmund/eventbook/internal/domain"
)

func (c *Client) CreateBooking(ctx context.Context, eventID string) (domain.Booking, error) {
	var raw wireBooking
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"eventId": eventID}).
		SetResult(&raw).
		Post("/bookings")
	if err := c.check(resp, err, "create booking"); err != nil {
		return domain.Booking{}, err
	}
	return raw.toDomain(), nil
}

func (c *Client) MyBookings(ctx context.Context) ([]domain.Booking, error) {
	var raw []wireBooking
	resp, err := c.rc.R().SetContext(ctx).SetResult(&raw).Get("/bookings/me")
	if err := c.check(resp, err, "list my bookings"); err != nil {
		return nil, err
	}
	return bookingsToDomain(raw), nil
}

func (c *Client) BookingsByEvent(ctx context.Context, eventID string) ([]domain.Booking, error) {
	var raw []wireBooking
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("eventId", eventID).
		SetResult(&raw).
		Get("/bookings")
	if err := c.check(resp, err, "list bookings by event"); err != nil {
		return nil, err
	}
	return bookingsToDomain(raw), nil
}

func (c *Client) CancelBooking(ctx context.Context, id string) (domain.Booking, error) {
	var raw wireBooking
	resp, err := c.rc.R().SetContext(ctx).SetResult(&raw).Patch("/bookings/" + id + "/cancel")
	if err := c.check(resp, err, "cancel booking"); err != nil {
		return domain.Booking{}, err
	}
	return raw.toDomain(), nil
}

func (c *Client) ApproveBooking(ctx context.Context, id string) (domain.Booking, error) {
	var raw wireBooking
	resp, err := c.rc.R().SetContext(ctx).SetResult(&raw).Patch("/bookings/" + id + "/approve")
	if err := c.check(resp, err, "approve booking"); err != nil {
		return domain.Booking{}, err
	}
	return raw.toDomain(), nil
}
