package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clinicbook/pkg/logger"
	"clinicbook/pkg/model"

	"github.com/hibiken/asynq"
)

const TypeAppointmentReminder = "appointment:reminder"

type ReminderPayload struct {
	AppointmentID string    `json:"appointment_id"`
	StartTime     time.Time `json:"start_time"`
	Lead          string    `json:"lead"`
}

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type TaskDeleter interface {
	DeleteTask(queue, id string) error
}

// ReminderScheduler keeps one delayed job per configured lead for every
// confirmed appointment. Task ids are derived from appointment and lead, so
// rescheduling or cancelling can find the jobs again.
type ReminderScheduler struct {
	client    Enqueuer
	inspector TaskDeleter
	queue     string
	offsets   []time.Duration
	now       func() time.Time
	log       *logger.Logger
}

func NewReminderScheduler(client Enqueuer, inspector TaskDeleter, queue string, offsets []time.Duration, log *logger.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		client:    client,
		inspector: inspector,
		queue:     queue,
		offsets:   offsets,
		now:       time.Now,
		log:       log,
	}
}

func ReminderTaskID(appointmentID string, lead time.Duration) string {
	return fmt.Sprintf("reminder:%s:%s", appointmentID, lead)
}

func (s *ReminderScheduler) Dispatch(ctx context.Context, e Event) error {
	switch e.Type {
	case EventConfirmed:
		return s.schedule(ctx, e)
	case EventRescheduled:
		if err := s.unschedule(e.AppointmentID); err != nil {
			return err
		}
		return s.schedule(ctx, e)
	case EventCancelled:
		return s.unschedule(e.AppointmentID)
	default:
		return nil
	}
}

func (s *ReminderScheduler) schedule(ctx context.Context, e Event) error {
	now := s.now()
	var errs []error
	for _, lead := range s.offsets {
		fireAt := e.StartTime.Add(-lead)
		if !fireAt.After(now) {
			continue
		}

		payload, err := json.Marshal(ReminderPayload{
			AppointmentID: e.AppointmentID,
			StartTime:     e.StartTime.UTC(),
			Lead:          lead.String(),
		})
		if err != nil {
			return fmt.Errorf("failed to encode reminder payload: %w", err)
		}

		task := asynq.NewTask(TypeAppointmentReminder, payload)
		_, err = s.client.EnqueueContext(ctx, task,
			asynq.TaskID(ReminderTaskID(e.AppointmentID, lead)),
			asynq.Queue(s.queue),
			asynq.ProcessAt(fireAt),
		)
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			errs = append(errs, fmt.Errorf("failed to enqueue %s reminder: %w", lead, err))
			continue
		}
		s.log.Debug("Reminder scheduled", "appointment_id", e.AppointmentID, "lead", lead, "fire_at", fireAt)
	}
	return errors.Join(errs...)
}

func (s *ReminderScheduler) unschedule(appointmentID string) error {
	var errs []error
	for _, lead := range s.offsets {
		err := s.inspector.DeleteTask(s.queue, ReminderTaskID(appointmentID, lead))
		if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
			errs = append(errs, fmt.Errorf("failed to delete %s reminder: %w", lead, err))
		}
	}
	return errors.Join(errs...)
}

type AppointmentFinder interface {
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
}

// ReminderHandler runs in the worker. A reminder whose appointment was
// cancelled or moved since it was enqueued is dropped silently.
type ReminderHandler struct {
	appointments AppointmentFinder
	isNotFound   func(error) bool
	dispatcher   Dispatcher
	log          *logger.Logger
	now          func() time.Time
}

func NewReminderHandler(appointments AppointmentFinder, isNotFound func(error) bool, dispatcher Dispatcher, log *logger.Logger) *ReminderHandler {
	return &ReminderHandler{
		appointments: appointments,
		isNotFound:   isNotFound,
		dispatcher:   dispatcher,
		log:          log,
		now:          time.Now,
	}
}

func (h *ReminderHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p ReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("invalid reminder payload: %v: %w", err, asynq.SkipRetry)
	}

	appt, err := h.appointments.FindByID(ctx, p.AppointmentID)
	if err != nil && h.isNotFound != nil && h.isNotFound(err) {
		h.log.Info("Dropping reminder for missing appointment", "appointment_id", p.AppointmentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load appointment %s: %w", p.AppointmentID, err)
	}
	if appt == nil || appt.Status != model.StatusConfirmed || !appt.StartTime.Equal(p.StartTime) {
		h.log.Info("Dropping stale reminder", "appointment_id", p.AppointmentID, "lead", p.Lead)
		return nil
	}

	e := NewEvent(EventReminder, appt, h.now())
	e.ReminderLead = p.Lead
	return h.dispatcher.Dispatch(ctx, e)
}
