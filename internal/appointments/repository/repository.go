package repository

import (
	"context"
	"time"

	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"
)

// AppointmentRepository persists holds and bookings. The write methods that
// take now are atomic with their conflict checks: two writers racing for
// the same provider are serialized, and the loser sees ErrSlotTaken.
type AppointmentRepository interface {
	FindByID(ctx context.Context, id string) (*model.Appointment, error)

	// FindByProvider returns the provider's non-cancelled appointments whose
	// occupied interval overlaps within, ordered by start time. Expired holds
	// are included; callers apply liveness with the current time.
	FindByProvider(ctx context.Context, providerID string, within interval.Interval) ([]*model.Appointment, error)

	// InsertHold stores appt unless a busy appointment of the same provider
	// overlaps its occupied interval (ErrSlotTaken).
	InsertHold(ctx context.Context, appt *model.Appointment, now time.Time) error

	// Confirm promotes a live hold. It fails with ErrHoldExpired, leaving the
	// row untouched, when the hold is no longer live.
	Confirm(ctx context.Context, id string, patient model.Contact, now time.Time) (*model.Appointment, error)

	// UpdateStatus moves the appointment to `to` if its status is one of
	// from, else ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, from []model.AppointmentStatus, to model.AppointmentStatus, now time.Time) (*model.Appointment, error)

	// CountRoomOccupancy counts appointments holding roomID during scheduled,
	// across all providers, skipping excludeID.
	CountRoomOccupancy(ctx context.Context, roomID string, scheduled interval.Interval, excludeID string, now time.Time) (int, error)

	// Reschedule writes appt's new times and room after re-checking, under
	// the provider's lock, that the provider is free and, when roomCapacity
	// is positive, that the room has a place left.
	Reschedule(ctx context.Context, appt *model.Appointment, roomCapacity int, now time.Time) error
}

func hasStatus(s model.AppointmentStatus, set []model.AppointmentStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func providerLockKey(providerID string) string {
	return "provider:" + providerID
}

func roomLockKey(roomID string) string {
	return "room:" + roomID
}
