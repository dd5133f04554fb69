package model

import (
	"time"

	"clinicbook/pkg/interval"
)

type AppointmentStatus string

const (
	StatusPendingHold AppointmentStatus = "pending_hold"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no_show"
	StatusCompleted   AppointmentStatus = "completed"
)

// IsTerminal reports whether no further transition is possible.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusNoShow || s == StatusCompleted
}

type Contact struct {
	Name  string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Phone string `json:"phone" bson:"phone" validate:"required,e164"`
	Email string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email,max=254"`
}

// Appointment covers both holds and bookings. StartTime/EndTime is the
// service itself; OccupiedStart/OccupiedEnd adds the buffers and is what
// provider conflicts are computed on.
type Appointment struct {
	ID            string            `json:"id" bson:"_id"`
	ProviderID    string            `json:"provider_id" bson:"provider_id"`
	ServiceID     string            `json:"service_id" bson:"service_id"`
	RoomID        string            `json:"room_id,omitempty" bson:"room_id,omitempty"`
	Status        AppointmentStatus `json:"status" bson:"status"`
	StartTime     time.Time         `json:"start_time" bson:"start_time"`
	EndTime       time.Time         `json:"end_time" bson:"end_time"`
	OccupiedStart time.Time         `json:"occupied_start" bson:"occupied_start"`
	OccupiedEnd   time.Time         `json:"occupied_end" bson:"occupied_end"`
	HoldExpiresAt *time.Time        `json:"hold_expires_at,omitempty" bson:"hold_expires_at,omitempty"`
	TimeZone      string            `json:"time_zone" bson:"time_zone"`
	Customer      Contact           `json:"customer" bson:"customer"`
	Patient       *Contact          `json:"patient,omitempty" bson:"patient,omitempty"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" bson:"updated_at"`
}

func (a *Appointment) Occupied() interval.Interval {
	return interval.Interval{Start: a.OccupiedStart.UTC(), End: a.OccupiedEnd.UTC()}
}

func (a *Appointment) Scheduled() interval.Interval {
	return interval.Interval{Start: a.StartTime.UTC(), End: a.EndTime.UTC()}
}

// IsLive reports whether a pending hold still reserves its interval.
func (a *Appointment) IsLive(now time.Time) bool {
	return a.Status == StatusPendingHold && a.HoldExpiresAt != nil && a.HoldExpiresAt.After(now)
}

// IsBusy is the single liveness rule for provider conflicts: confirmed
// bookings and unexpired holds occupy their interval, nothing else does.
func (a *Appointment) IsBusy(now time.Time) bool {
	return a.Status == StatusConfirmed || a.IsLive(now)
}

// OccupiesRoom reports whether the appointment counts toward a room's
// capacity. Cancelled rows and expired holds do not.
func (a *Appointment) OccupiesRoom(now time.Time) bool {
	switch a.Status {
	case StatusCancelled:
		return false
	case StatusPendingHold:
		return a.IsLive(now)
	default:
		return true
	}
}

// Reschedule moves the appointment to start, keeping the service length and
// buffers it was booked with.
func (a *Appointment) Reschedule(start time.Time, svc *ServiceDefinition) {
	occupied := svc.Occupied(start)
	a.StartTime = start.UTC()
	a.EndTime = start.Add(svc.Duration()).UTC()
	a.OccupiedStart = occupied.Start
	a.OccupiedEnd = occupied.End
}

func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	c := *a
	if a.HoldExpiresAt != nil {
		t := *a.HoldExpiresAt
		c.HoldExpiresAt = &t
	}
	if a.Patient != nil {
		p := *a.Patient
		c.Patient = &p
	}
	return &c
}

// Confirmation is returned to the client once a hold is promoted.
type Confirmation struct {
	Appointment *Appointment `json:"appointment"`
	ManageURL   string       `json:"manage_url"`
	ManageToken string       `json:"manage_token"`
}
