package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinicbook/internal/availability/validator"
	catalogerrors "clinicbook/internal/catalog/errors"
	"clinicbook/pkg/availability"
	"clinicbook/pkg/config"
	apperrors "clinicbook/pkg/errors"
	"clinicbook/pkg/interval"
	"clinicbook/pkg/locale"
	"clinicbook/pkg/model"
	"clinicbook/pkg/monitoring"
	"clinicbook/pkg/validation"
)

type CatalogReader interface {
	FindService(ctx context.Context, id string) (*model.ServiceDefinition, error)
	FindWorkingHours(ctx context.Context, providerID string, weekday int) (*model.WorkingHours, error)
	FindTimeOff(ctx context.Context, providerID string, within interval.Interval) ([]*model.TimeOff, error)
}

type BookingReader interface {
	FindByProvider(ctx context.Context, providerID string, within interval.Interval) ([]*model.Appointment, error)
}

type AvailabilityService interface {
	Slots(ctx context.Context, q *model.AvailabilityQuery) (*model.AvailabilityResponse, error)
}

type availabilityService struct {
	catalog   CatalogReader
	bookings  BookingReader
	validator *validator.AvailabilityValidator
	metrics   *monitoring.Metrics
	cfg       *config.Config
	now       func() time.Time
}

func NewAvailabilityService(
	catalog CatalogReader,
	bookings BookingReader,
	validator *validator.AvailabilityValidator,
	metrics *monitoring.Metrics,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		catalog:   catalog,
		bookings:  bookings,
		validator: validator,
		metrics:   metrics,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Slots lists the bookable start times for one provider, service and day.
// A missing or inactive service and a closed day give an empty list, not an
// error.
func (s *availabilityService) Slots(ctx context.Context, q *model.AvailabilityQuery) (*model.AvailabilityResponse, error) {
	q.ProviderID = strings.TrimSpace(q.ProviderID)
	q.ServiceID = strings.TrimSpace(q.ServiceID)
	q.TimeZone = strings.TrimSpace(q.TimeZone)
	if err := s.validator.ValidateQuery(q); err != nil {
		return nil, validation.ToAppError(err)
	}

	loc, zone, err := locale.LoadLocation(q.TimeZone, s.cfg.DefaultTimeZone)
	if err != nil {
		return nil, apperrors.FieldInvalid("zone", err.Error())
	}
	date, err := time.ParseInLocation(model.DateLayout, q.Date, loc)
	if err != nil {
		return nil, apperrors.FieldInvalid("date", "must match the layout 2006-01-02")
	}
	// Holds are always checked against the default lead, so a request may
	// only push the earliest slot later.
	lead := s.cfg.DefaultLeadTime
	if q.LeadMinutes != nil {
		lead = max(lead, time.Duration(*q.LeadMinutes)*time.Minute)
	}

	started := time.Now()
	resp := &model.AvailabilityResponse{
		ProviderID: q.ProviderID,
		ServiceID:  q.ServiceID,
		Date:       q.Date,
		TimeZone:   zone,
		Slots:      []time.Time{},
	}

	svc, err := s.catalog.FindService(ctx, q.ServiceID)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrServiceNotFound) {
			return resp, nil
		}
		s.cfg.Log.Error("Failed to load service", "service_id", q.ServiceID, "error", err)
		return nil, apperrors.Internal("Failed to compute availability", err)
	}
	if !svc.IsActive {
		return resp, nil
	}

	hours, err := s.catalog.FindWorkingHours(ctx, q.ProviderID, int(date.Weekday()))
	if err != nil {
		if errors.Is(err, catalogerrors.ErrWorkingHoursNotFound) {
			return resp, nil
		}
		s.cfg.Log.Error("Failed to load working hours", "provider_id", q.ProviderID, "error", err)
		return nil, apperrors.Internal("Failed to compute availability", err)
	}
	day, ok := availability.DayWindow(date, hours, loc)
	if !ok {
		return resp, nil
	}

	window := availability.FetchWindow(day, svc)
	timeOffs, err := s.catalog.FindTimeOff(ctx, q.ProviderID, window)
	if err != nil {
		s.cfg.Log.Error("Failed to load time off", "provider_id", q.ProviderID, "error", err)
		return nil, apperrors.Internal("Failed to compute availability", err)
	}
	bookings, err := s.bookings.FindByProvider(ctx, q.ProviderID, window)
	if err != nil {
		s.cfg.Log.Error("Failed to load bookings", "provider_id", q.ProviderID, "error", err)
		return nil, apperrors.Internal("Failed to compute availability", err)
	}

	slots := availability.GenerateSlots(availability.SlotQuery{
		ProviderID: q.ProviderID,
		Service:    svc,
		Hours:      hours,
		Date:       date,
		Location:   loc,
		LeadTime:   lead,
		Now:        s.now(),
	}, bookings, timeOffs)
	if slots != nil {
		resp.Slots = slots
	}

	s.metrics.RecordAvailability(time.Since(started), len(resp.Slots))
	s.cfg.Log.Debug("Availability computed",
		"provider_id", q.ProviderID,
		"service_id", q.ServiceID,
		"date", q.Date,
		"slots", len(resp.Slots),
	)
	return resp, nil
}
