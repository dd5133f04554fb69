package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	appointmentserrors "clinicbook/internal/appointments/errors"
	"clinicbook/pkg/availability"
	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"
)

// memoryAppointmentRepository serializes every write on one mutex, which
// gives the same guarantee the database locks give per provider.
type memoryAppointmentRepository struct {
	mu    sync.RWMutex
	appts map[string]*model.Appointment
}

func NewMemoryAppointmentRepository() AppointmentRepository {
	return &memoryAppointmentRepository{
		appts: make(map[string]*model.Appointment),
	}
}

func (r *memoryAppointmentRepository) FindByID(_ context.Context, id string) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
	}
	return a.Clone(), nil
}

func (r *memoryAppointmentRepository) FindByProvider(_ context.Context, providerID string, within interval.Interval) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byProvider(providerID, within), nil
}

func (r *memoryAppointmentRepository) byProvider(providerID string, within interval.Interval) []*model.Appointment {
	var out []*model.Appointment
	for _, a := range r.appts {
		if a.ProviderID != providerID || a.Status == model.StatusCancelled {
			continue
		}
		if interval.Overlaps(a.Occupied(), within) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (r *memoryAppointmentRepository) InsertHold(_ context.Context, appt *model.Appointment, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.appts[appt.ID]; exists {
		return fmt.Errorf("appointment %s already exists", appt.ID)
	}
	existing := r.byProvider(appt.ProviderID, appt.Occupied())
	if availability.FirstConflict(appt.ProviderID, appt.Occupied(), existing, now) != nil {
		return appointmentserrors.ErrSlotTaken
	}

	r.appts[appt.ID] = appt.Clone()
	return nil
}

func (r *memoryAppointmentRepository) Confirm(_ context.Context, id string, patient model.Contact, now time.Time) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
	}
	if !a.IsLive(now) {
		return nil, appointmentserrors.ErrHoldExpired
	}
	others := availability.Without(r.byProvider(a.ProviderID, a.Occupied()), a.ID)
	if availability.FirstConflict(a.ProviderID, a.Occupied(), others, now) != nil {
		return nil, appointmentserrors.ErrHoldExpired
	}

	p := patient
	a.Status = model.StatusConfirmed
	a.Patient = &p
	a.HoldExpiresAt = nil
	a.UpdatedAt = now
	return a.Clone(), nil
}

func (r *memoryAppointmentRepository) UpdateStatus(_ context.Context, id string, from []model.AppointmentStatus, to model.AppointmentStatus, now time.Time) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
	}
	if !hasStatus(a.Status, from) {
		return nil, fmt.Errorf("%w: %s -> %s", appointmentserrors.ErrInvalidTransition, a.Status, to)
	}

	a.Status = to
	a.UpdatedAt = now
	return a.Clone(), nil
}

func (r *memoryAppointmentRepository) CountRoomOccupancy(_ context.Context, roomID string, scheduled interval.Interval, excludeID string, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.roomOccupancy(roomID, scheduled, excludeID, now), nil
}

func (r *memoryAppointmentRepository) roomOccupancy(roomID string, scheduled interval.Interval, excludeID string, now time.Time) int {
	all := make([]*model.Appointment, 0, len(r.appts))
	for _, a := range r.appts {
		all = append(all, a)
	}
	return availability.RoomOccupancy(roomID, scheduled, all, excludeID, now)
}

func (r *memoryAppointmentRepository) Reschedule(_ context.Context, appt *model.Appointment, roomCapacity int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.appts[appt.ID]
	if !ok {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, appt.ID)
	}
	if current.Status != model.StatusConfirmed && !current.IsLive(now) {
		return fmt.Errorf("%w: cannot reschedule %s", appointmentserrors.ErrInvalidTransition, current.Status)
	}

	others := availability.Without(r.byProvider(appt.ProviderID, appt.Occupied()), appt.ID)
	if availability.FirstConflict(appt.ProviderID, appt.Occupied(), others, now) != nil {
		return appointmentserrors.ErrSlotTaken
	}
	if appt.RoomID != "" && roomCapacity > 0 &&
		r.roomOccupancy(appt.RoomID, appt.Scheduled(), appt.ID, now) >= roomCapacity {
		return appointmentserrors.ErrRoomAtCapacity
	}

	current.StartTime = appt.StartTime
	current.EndTime = appt.EndTime
	current.OccupiedStart = appt.OccupiedStart
	current.OccupiedEnd = appt.OccupiedEnd
	current.RoomID = appt.RoomID
	current.TimeZone = appt.TimeZone
	current.UpdatedAt = now
	return nil
}
