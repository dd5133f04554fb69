package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	catalogerrors "clinicbook/internal/catalog/errors"
	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"
)

type memoryCatalogRepository struct {
	mu       sync.RWMutex
	services map[string]model.ServiceDefinition
	hours    map[string]map[int]model.WorkingHours
	timeOffs map[string]model.TimeOff
	rooms    map[string]model.Room
}

// NewMemoryCatalogRepository keeps the catalog in process memory. It backs
// STORAGE_DRIVER=memory and the service tests.
func NewMemoryCatalogRepository() CatalogRepository {
	return &memoryCatalogRepository{
		services: make(map[string]model.ServiceDefinition),
		hours:    make(map[string]map[int]model.WorkingHours),
		timeOffs: make(map[string]model.TimeOff),
		rooms:    make(map[string]model.Room),
	}
}

func (r *memoryCatalogRepository) FindService(_ context.Context, id string) (*model.ServiceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrServiceNotFound, id)
	}
	return &svc, nil
}

func (r *memoryCatalogRepository) UpsertService(_ context.Context, svc *model.ServiceDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.services[svc.ID] = *svc
	return nil
}

func (r *memoryCatalogRepository) FindWorkingHours(_ context.Context, providerID string, weekday int) (*model.WorkingHours, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wh, ok := r.hours[providerID][weekday]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", catalogerrors.ErrWorkingHoursNotFound, providerID, weekday)
	}
	return &wh, nil
}

func (r *memoryCatalogRepository) ListWorkingHours(_ context.Context, providerID string) ([]*model.WorkingHours, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.WorkingHours, 0, len(r.hours[providerID]))
	for _, wh := range r.hours[providerID] {
		wh := wh
		out = append(out, &wh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weekday < out[j].Weekday })
	return out, nil
}

func (r *memoryCatalogRepository) ReplaceWorkingHours(_ context.Context, providerID string, days []*model.WorkingHours) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	week := make(map[int]model.WorkingHours, len(days))
	for _, d := range days {
		week[d.Weekday] = *d
	}
	r.hours[providerID] = week
	return nil
}

func (r *memoryCatalogRepository) FindTimeOff(_ context.Context, providerID string, within interval.Interval) ([]*model.TimeOff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.TimeOff
	for _, off := range r.timeOffs {
		if off.ProviderID != providerID || !interval.Overlaps(off.Interval(), within) {
			continue
		}
		off := off
		out = append(out, &off)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *memoryCatalogRepository) CreateTimeOff(_ context.Context, off *model.TimeOff) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.timeOffs[off.ID] = *off
	return nil
}

func (r *memoryCatalogRepository) DeleteTimeOff(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.timeOffs[id]; !ok {
		return fmt.Errorf("%w: %s", catalogerrors.ErrTimeOffNotFound, id)
	}
	delete(r.timeOffs, id)
	return nil
}

func (r *memoryCatalogRepository) FindRoom(_ context.Context, id string) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrRoomNotFound, id)
	}
	return &room, nil
}

func (r *memoryCatalogRepository) UpsertRoom(_ context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[room.ID] = *room
	return nil
}
