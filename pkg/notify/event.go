// Package notify hands appointment lifecycle events to the outside world:
// a Kafka topic for the messaging service and delayed reminder jobs.
package notify

import (
	"context"
	"errors"
	"time"

	"clinicbook/pkg/logger"
	"clinicbook/pkg/model"
)

type EventType string

const (
	EventConfirmed   EventType = "appointment.confirmed"
	EventCancelled   EventType = "appointment.cancelled"
	EventRescheduled EventType = "appointment.rescheduled"
	EventReminder    EventType = "appointment.reminder"
)

// SchemaVersion is bumped on incompatible payload changes.
const SchemaVersion = "1"

type Event struct {
	Type          EventType      `json:"type"`
	AppointmentID string         `json:"appointment_id"`
	ProviderID    string         `json:"provider_id"`
	ServiceID     string         `json:"service_id"`
	RoomID        string         `json:"room_id,omitempty"`
	Status        string         `json:"status"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
	TimeZone      string         `json:"time_zone"`
	Customer      model.Contact  `json:"customer"`
	Patient       *model.Contact `json:"patient,omitempty"`
	ManageURL     string         `json:"manage_url,omitempty"`
	ReminderLead  string         `json:"reminder_lead,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

func NewEvent(eventType EventType, a *model.Appointment, now time.Time) Event {
	return Event{
		Type:          eventType,
		AppointmentID: a.ID,
		ProviderID:    a.ProviderID,
		ServiceID:     a.ServiceID,
		RoomID:        a.RoomID,
		Status:        string(a.Status),
		StartTime:     a.StartTime.UTC(),
		EndTime:       a.EndTime.UTC(),
		TimeZone:      a.TimeZone,
		Customer:      a.Customer,
		Patient:       a.Patient,
		OccurredAt:    now.UTC(),
	}
}

// Dispatcher delivers an event. Implementations must be safe for
// concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, e Event) error
}

// Multi fans an event out to every dispatcher and joins their errors.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, e Event) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogDispatcher only logs; it stands in when notifications are disabled.
type LogDispatcher struct {
	Log *logger.Logger
}

func (d LogDispatcher) Dispatch(_ context.Context, e Event) error {
	d.Log.Info("Appointment event",
		"event_type", e.Type,
		"appointment_id", e.AppointmentID,
		"provider_id", e.ProviderID,
		"start_time", e.StartTime,
	)
	return nil
}
