package repository

import (
	"context"

	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"
)

// CatalogRepository stores what the clinic administers and the booking
// engine only reads: services, weekly hours, time off and rooms.
type CatalogRepository interface {
	FindService(ctx context.Context, id string) (*model.ServiceDefinition, error)
	UpsertService(ctx context.Context, svc *model.ServiceDefinition) error

	FindWorkingHours(ctx context.Context, providerID string, weekday int) (*model.WorkingHours, error)
	ListWorkingHours(ctx context.Context, providerID string) ([]*model.WorkingHours, error)
	ReplaceWorkingHours(ctx context.Context, providerID string, days []*model.WorkingHours) error

	// FindTimeOff returns the provider's time off overlapping within.
	FindTimeOff(ctx context.Context, providerID string, within interval.Interval) ([]*model.TimeOff, error)
	CreateTimeOff(ctx context.Context, off *model.TimeOff) error
	DeleteTimeOff(ctx context.Context, id string) error

	FindRoom(ctx context.Context, id string) (*model.Room, error)
	UpsertRoom(ctx context.Context, room *model.Room) error
}
