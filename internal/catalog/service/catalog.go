package service

import (
	"context"
	"errors"
	"strings"
	"time"

	catalogerrors "clinicbook/internal/catalog/errors"
	"clinicbook/internal/catalog/repository"
	"clinicbook/internal/catalog/validator"
	"clinicbook/pkg/config"
	apperrors "clinicbook/pkg/errors"
	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"
	"clinicbook/pkg/sanitizer"
	"clinicbook/pkg/validation"

	"github.com/google/uuid"
)

type CatalogService interface {
	PutService(ctx context.Context, id string, svc *model.ServiceDefinition) (*model.ServiceDefinition, error)
	GetService(ctx context.Context, id string) (*model.ServiceDefinition, error)

	SetWeek(ctx context.Context, providerID string, week *model.WeeklyHours) ([]*model.WorkingHours, error)
	GetWeek(ctx context.Context, providerID string) ([]*model.WorkingHours, error)

	AddTimeOff(ctx context.Context, providerID string, req *model.TimeOffRequest) (*model.TimeOff, error)
	ListTimeOff(ctx context.Context, providerID string, from, to time.Time) ([]*model.TimeOff, error)
	DeleteTimeOff(ctx context.Context, id string) error

	PutRoom(ctx context.Context, id string, room *model.Room) (*model.Room, error)
	GetRoom(ctx context.Context, id string) (*model.Room, error)
}

type catalogService struct {
	repo      repository.CatalogRepository
	validator *validator.CatalogValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewCatalogService(
	repo repository.CatalogRepository,
	validator *validator.CatalogValidator,
	cfg *config.Config,
) CatalogService {
	return &catalogService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *catalogService) PutService(ctx context.Context, id string, svc *model.ServiceDefinition) (*model.ServiceDefinition, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Service ID cannot be empty")
	}
	svc.ID = id
	svc.Name = sanitizer.NormalizeName(svc.Name)
	svc.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.validator.ValidateService(svc); err != nil {
		s.cfg.Log.Warn("Service validation failed", "service_id", id, "error", err)
		return nil, validation.ToAppError(err)
	}

	if err := s.repo.UpsertService(ctx, svc); err != nil {
		s.cfg.Log.Error("Failed to save service", "service_id", id, "error", err)
		return nil, apperrors.Internal("Failed to save service", err)
	}

	s.cfg.Log.Info("Service saved",
		"service_id", id,
		"duration_minutes", svc.DurationMinutes,
		"slot_step_minutes", svc.SlotStepMinutes,
		"is_active", svc.IsActive,
	)
	return svc, nil
}

func (s *catalogService) GetService(ctx context.Context, id string) (*model.ServiceDefinition, error) {
	svc, err := s.repo.FindService(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrServiceNotFound) {
			return nil, apperrors.NotFoundWithID("Service", id)
		}
		s.cfg.Log.Error("Failed to get service", "service_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve service", err)
	}
	return svc, nil
}

func (s *catalogService) SetWeek(ctx context.Context, providerID string, week *model.WeeklyHours) ([]*model.WorkingHours, error) {
	if providerID == "" {
		return nil, apperrors.InvalidInput("Provider ID cannot be empty")
	}
	for i := range week.Days {
		week.Days[i].StartLocal = strings.TrimSpace(week.Days[i].StartLocal)
		week.Days[i].EndLocal = strings.TrimSpace(week.Days[i].EndLocal)
	}
	if err := s.validator.ValidateWeek(week); err != nil {
		s.cfg.Log.Warn("Working hours validation failed", "provider_id", providerID, "error", err)
		return nil, validation.ToAppError(err)
	}

	days := make([]*model.WorkingHours, 0, len(week.Days))
	for _, d := range week.Days {
		d.ProviderID = providerID
		if !d.IsOpen {
			d.StartLocal, d.EndLocal = "", ""
		}
		days = append(days, &d)
	}

	if err := s.repo.ReplaceWorkingHours(ctx, providerID, days); err != nil {
		s.cfg.Log.Error("Failed to save working hours", "provider_id", providerID, "error", err)
		return nil, apperrors.Internal("Failed to save working hours", err)
	}

	s.cfg.Log.Info("Working hours replaced", "provider_id", providerID, "days", len(days))
	return days, nil
}

func (s *catalogService) GetWeek(ctx context.Context, providerID string) ([]*model.WorkingHours, error) {
	days, err := s.repo.ListWorkingHours(ctx, providerID)
	if err != nil {
		s.cfg.Log.Error("Failed to list working hours", "provider_id", providerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve working hours", err)
	}
	return days, nil
}

func (s *catalogService) AddTimeOff(ctx context.Context, providerID string, req *model.TimeOffRequest) (*model.TimeOff, error) {
	if providerID == "" {
		return nil, apperrors.InvalidInput("Provider ID cannot be empty")
	}
	if err := s.validator.ValidateTimeOff(req); err != nil {
		return nil, validation.ToAppError(err)
	}

	off := &model.TimeOff{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		Start:      req.Start.UTC(),
		End:        req.End.UTC(),
		Reason:     sanitizer.TrimAndNormalize(req.Reason),
		CreatedAt:  s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.repo.CreateTimeOff(ctx, off); err != nil {
		s.cfg.Log.Error("Failed to create time off", "provider_id", providerID, "error", err)
		return nil, apperrors.Internal("Failed to create time off", err)
	}

	s.cfg.Log.Info("Time off created",
		"time_off_id", off.ID,
		"provider_id", providerID,
		"start", off.Start,
		"end", off.End,
	)
	return off, nil
}

func (s *catalogService) ListTimeOff(ctx context.Context, providerID string, from, to time.Time) ([]*model.TimeOff, error) {
	within, err := interval.New(from, to)
	if err != nil {
		return nil, apperrors.FieldInvalid("to", "must be after from")
	}
	if within.Duration() > s.cfg.MaxListRange {
		return nil, apperrors.FieldInvalid("to", "range is too long")
	}

	offs, err := s.repo.FindTimeOff(ctx, providerID, within)
	if err != nil {
		s.cfg.Log.Error("Failed to list time off", "provider_id", providerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve time off", err)
	}
	return offs, nil
}

func (s *catalogService) DeleteTimeOff(ctx context.Context, id string) error {
	if err := s.repo.DeleteTimeOff(ctx, id); err != nil {
		if errors.Is(err, catalogerrors.ErrTimeOffNotFound) {
			return apperrors.NotFoundWithID("Time off", id)
		}
		s.cfg.Log.Error("Failed to delete time off", "time_off_id", id, "error", err)
		return apperrors.Internal("Failed to delete time off", err)
	}
	s.cfg.Log.Info("Time off deleted", "time_off_id", id)
	return nil
}

func (s *catalogService) PutRoom(ctx context.Context, id string, room *model.Room) (*model.Room, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}
	room.ID = id
	room.Name = sanitizer.NormalizeName(room.Name)
	room.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.validator.ValidateRoom(room); err != nil {
		return nil, validation.ToAppError(err)
	}

	if err := s.repo.UpsertRoom(ctx, room); err != nil {
		s.cfg.Log.Error("Failed to save room", "room_id", id, "error", err)
		return nil, apperrors.Internal("Failed to save room", err)
	}

	s.cfg.Log.Info("Room saved", "room_id", id, "capacity", room.Capacity, "is_gym", room.IsGym)
	return room, nil
}

func (s *catalogService) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.repo.FindRoom(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrRoomNotFound) {
			return nil, apperrors.NotFoundWithID("Room", id)
		}
		s.cfg.Log.Error("Failed to get room", "room_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}
	return room, nil
}
