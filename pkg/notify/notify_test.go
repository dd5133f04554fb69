package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"clinicbook/pkg/kafka"
	"clinicbook/pkg/logger"
	"clinicbook/pkg/model"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func appointment() *model.Appointment {
	return &model.Appointment{
		ID:         "appt-1",
		ProviderID: "prov-1",
		ServiceID:  "svc-1",
		Status:     model.StatusConfirmed,
		StartTime:  start,
		EndTime:    start.Add(40 * time.Minute),
		TimeZone:   "UTC",
		Customer:   model.Contact{Name: "Dana Levi", Phone: "+972501234567"},
	}
}

type recordingPublisher struct {
	msgs []kafka.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg kafka.Message) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestKafkaDispatcher(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewKafkaDispatcher(pub, "clinicbook")
	e := NewEvent(EventConfirmed, appointment(), start.Add(-24*time.Hour))
	e.ManageURL = "https://clinic.example/manage?token=abc"

	require.NoError(t, d.Dispatch(context.Background(), e))

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "appt-1", msg.Key)
	assert.Equal(t, string(EventConfirmed), msg.GetEventType())
	assert.Equal(t, "clinicbook", msg.Headers[kafka.HeaderSource])

	var decoded Event
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, e.ManageURL, decoded.ManageURL)
	assert.True(t, decoded.StartTime.Equal(start))
}

func TestKafkaDispatcher_WrapsPublishError(t *testing.T) {
	boom := errors.New("broker down")
	d := NewKafkaDispatcher(&recordingPublisher{err: boom}, "clinicbook")

	err := d.Dispatch(context.Background(), NewEvent(EventCancelled, appointment(), start))

	assert.ErrorIs(t, err, boom)
}

type failingDispatcher struct{ err error }

func (f failingDispatcher) Dispatch(context.Context, Event) error { return f.err }

func TestMulti_CallsAllAndJoinsErrors(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	pub := &recordingPublisher{}
	m := Multi{failingDispatcher{a}, NewKafkaDispatcher(pub, "x"), failingDispatcher{b}}

	err := m.Dispatch(context.Background(), NewEvent(EventConfirmed, appointment(), start))

	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)
	assert.Len(t, pub.msgs, 1)
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued map[string]time.Time
	deleted  []string
	conflict bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{enqueued: map[string]time.Time{}}
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conflict {
		return nil, asynq.ErrTaskIDConflict
	}
	var id string
	var at time.Time
	for _, o := range opts {
		switch o.Type() {
		case asynq.TaskIDOpt:
			id = o.Value().(string)
		case asynq.ProcessAtOpt:
			at = o.Value().(time.Time)
		}
	}
	q.enqueued[id] = at
	return &asynq.TaskInfo{ID: id, Type: task.Type()}, nil
}

func (q *fakeQueue) DeleteTask(_ string, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.enqueued[id]; !ok {
		return asynq.ErrTaskNotFound
	}
	delete(q.enqueued, id)
	q.deleted = append(q.deleted, id)
	return nil
}

func scheduler(q *fakeQueue, now time.Time) *ReminderScheduler {
	s := NewReminderScheduler(q, q, "reminders", []time.Duration{24 * time.Hour, 2 * time.Hour}, logger.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestReminderScheduler_SchedulesFutureReminders(t *testing.T) {
	q := newFakeQueue()
	s := scheduler(q, start.Add(-48*time.Hour))

	require.NoError(t, s.Dispatch(context.Background(), NewEvent(EventConfirmed, appointment(), start)))

	assert.Equal(t, start.Add(-24*time.Hour), q.enqueued[ReminderTaskID("appt-1", 24*time.Hour)])
	assert.Equal(t, start.Add(-2*time.Hour), q.enqueued[ReminderTaskID("appt-1", 2*time.Hour)])
}

func TestReminderScheduler_SkipsPastFireTimes(t *testing.T) {
	q := newFakeQueue()
	s := scheduler(q, start.Add(-3*time.Hour))

	require.NoError(t, s.Dispatch(context.Background(), NewEvent(EventConfirmed, appointment(), start)))

	assert.Len(t, q.enqueued, 1)
	assert.Contains(t, q.enqueued, ReminderTaskID("appt-1", 2*time.Hour))
}

func TestReminderScheduler_DuplicateIsNotAnError(t *testing.T) {
	q := newFakeQueue()
	q.conflict = true
	s := scheduler(q, start.Add(-48*time.Hour))

	assert.NoError(t, s.Dispatch(context.Background(), NewEvent(EventConfirmed, appointment(), start)))
}

func TestReminderScheduler_CancelAndReschedule(t *testing.T) {
	q := newFakeQueue()
	s := scheduler(q, start.Add(-48*time.Hour))
	ctx := context.Background()
	require.NoError(t, s.Dispatch(ctx, NewEvent(EventConfirmed, appointment(), start)))

	moved := appointment()
	moved.StartTime = start.Add(4 * time.Hour)
	require.NoError(t, s.Dispatch(ctx, NewEvent(EventRescheduled, moved, start)))
	assert.Equal(t, moved.StartTime.Add(-2*time.Hour), q.enqueued[ReminderTaskID("appt-1", 2*time.Hour)])

	require.NoError(t, s.Dispatch(ctx, NewEvent(EventCancelled, moved, start)))
	assert.Empty(t, q.enqueued)

	assert.NoError(t, s.Dispatch(ctx, NewEvent(EventCancelled, moved, start)), "missing tasks are ignored")
}

type finder struct {
	appt *model.Appointment
	err  error
}

func (f finder) FindByID(context.Context, string) (*model.Appointment, error) {
	return f.appt, f.err
}

type captured struct{ events []Event }

func (c *captured) Dispatch(_ context.Context, e Event) error {
	c.events = append(c.events, e)
	return nil
}

func reminderTask(t *testing.T, startTime time.Time) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(ReminderPayload{AppointmentID: "appt-1", StartTime: startTime, Lead: "2h0m0s"})
	require.NoError(t, err)
	return asynq.NewTask(TypeAppointmentReminder, b)
}

func TestReminderHandler(t *testing.T) {
	errGone := errors.New("gone")
	isGone := func(err error) bool { return errors.Is(err, errGone) }
	cancelled := appointment()
	cancelled.Status = model.StatusCancelled

	tests := []struct {
		name       string
		finder     finder
		taskStart  time.Time
		wantEvents int
		wantErr    bool
	}{
		{name: "confirmed and unchanged", finder: finder{appt: appointment()}, taskStart: start, wantEvents: 1},
		{name: "cancelled since", finder: finder{appt: cancelled}, taskStart: start},
		{name: "moved since", finder: finder{appt: appointment()}, taskStart: start.Add(-time.Hour)},
		{name: "deleted", finder: finder{err: errGone}, taskStart: start},
		{name: "storage failure", finder: finder{err: errors.New("timeout")}, taskStart: start, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &captured{}
			h := NewReminderHandler(tt.finder, isGone, sink, logger.Nop())

			err := h.ProcessTask(context.Background(), reminderTask(t, tt.taskStart))

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, sink.events, tt.wantEvents)
			if tt.wantEvents > 0 {
				assert.Equal(t, EventReminder, sink.events[0].Type)
				assert.Equal(t, "2h0m0s", sink.events[0].ReminderLead)
			}
		})
	}
}

func TestReminderHandler_BadPayloadSkipsRetry(t *testing.T) {
	h := NewReminderHandler(finder{}, nil, &captured{}, logger.Nop())

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeAppointmentReminder, []byte("{")))

	assert.ErrorIs(t, err, asynq.SkipRetry)
}
