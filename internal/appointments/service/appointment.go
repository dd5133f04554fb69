package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	appointmentserrors "clinicbook/internal/appointments/errors"
	"clinicbook/internal/appointments/repository"
	"clinicbook/internal/appointments/validator"
	catalogerrors "clinicbook/internal/catalog/errors"
	"clinicbook/pkg/availability"
	"clinicbook/pkg/config"
	apperrors "clinicbook/pkg/errors"
	"clinicbook/pkg/interval"
	"clinicbook/pkg/locale"
	"clinicbook/pkg/middleware"
	"clinicbook/pkg/model"
	"clinicbook/pkg/monitoring"
	"clinicbook/pkg/notify"
	"clinicbook/pkg/sanitizer"
	"clinicbook/pkg/token"
	"clinicbook/pkg/validation"

	"github.com/google/uuid"
)

// CatalogReader is the part of the catalog the booking flow reads.
type CatalogReader interface {
	FindService(ctx context.Context, id string) (*model.ServiceDefinition, error)
	FindWorkingHours(ctx context.Context, providerID string, weekday int) (*model.WorkingHours, error)
	FindTimeOff(ctx context.Context, providerID string, within interval.Interval) ([]*model.TimeOff, error)
	FindRoom(ctx context.Context, id string) (*model.Room, error)
}

type AppointmentService interface {
	CreateHold(ctx context.Context, req *model.HoldRequest) (*model.HoldResponse, error)
	Confirm(ctx context.Context, id string, req *model.ConfirmRequest) (*model.Confirmation, error)
	Cancel(ctx context.Context, id string) (*model.Appointment, error)
	CancelByToken(ctx context.Context, raw string) (*model.Appointment, error)
	Complete(ctx context.Context, id string) (*model.Appointment, error)
	MarkNoShow(ctx context.Context, id string) (*model.Appointment, error)

	ValidateEdit(ctx context.Context, id string, change *model.ScheduleChange) error
	Reschedule(ctx context.Context, id string, change *model.ScheduleChange) (*model.Appointment, error)

	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	ListByProvider(ctx context.Context, providerID string, from, to time.Time) ([]*model.Appointment, error)
}

type appointmentService struct {
	repo      repository.AppointmentRepository
	catalog   CatalogReader
	validator *validator.AppointmentValidator
	tokens    *token.Manager
	notifier  notify.Dispatcher
	metrics   *monitoring.Metrics
	cfg       *config.Config
	now       func() time.Time
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	catalog CatalogReader,
	validator *validator.AppointmentValidator,
	tokens *token.Manager,
	notifier notify.Dispatcher,
	metrics *monitoring.Metrics,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:      repo,
		catalog:   catalog,
		validator: validator,
		tokens:    tokens,
		notifier:  notifier,
		metrics:   metrics,
		cfg:       cfg,
		now:       time.Now,
	}
}

// clock returns the current time at the precision the stores keep.
func (s *appointmentService) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *appointmentService) CreateHold(ctx context.Context, req *model.HoldRequest) (*model.HoldResponse, error) {
	loc, zone, err := locale.LoadLocation(req.TimeZone, s.cfg.DefaultTimeZone)
	if err != nil {
		return nil, apperrors.FieldInvalid("time_zone", err.Error())
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.Customer = sanitizer.NormalizeContact(req.Customer, locale.DetectRegion(zone))

	if err := s.validator.ValidateHold(req); err != nil {
		s.cfg.Log.Warn("Hold validation failed", "provider_id", req.ProviderID, "error", err)
		return nil, validation.ToAppError(err)
	}

	start, err := time.ParseInLocation(model.LocalDateTimeLayout, req.StartLocal, loc)
	if err != nil {
		return nil, apperrors.FieldInvalid("start_local", "must match the layout 2006-01-02T15:04")
	}

	svc, err := s.bookableService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	appt := &model.Appointment{
		ID:         uuid.NewString(),
		ProviderID: req.ProviderID,
		ServiceID:  svc.ID,
		Status:     model.StatusPendingHold,
		TimeZone:   zone,
		Customer:   req.Customer,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	appt.Reschedule(start, svc)
	expires := now.Add(s.cfg.HoldTTL)
	appt.HoldExpiresAt = &expires

	if err := s.checkTiming(ctx, appt, loc, now); err != nil {
		return nil, err
	}

	if err := s.checkProvider(ctx, appt, now); err != nil {
		return nil, err
	}

	if err := s.repo.InsertHold(ctx, appt, now); err != nil {
		if errors.Is(err, appointmentserrors.ErrSlotTaken) {
			s.metrics.RecordConflict(monitoring.ConflictSlotTaken, monitoring.StageCommit)
			s.cfg.Log.Info("Hold lost the race for its slot",
				"provider_id", appt.ProviderID,
				"start_time", appt.StartTime,
			)
			return nil, apperrors.SlotTaken(appt.ProviderID, err)
		}
		s.cfg.Log.Error("Failed to create hold",
			"provider_id", appt.ProviderID,
			"service_id", appt.ServiceID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create hold", err)
	}

	s.metrics.RecordHold()
	s.cfg.Log.Info("Hold created",
		"appointment_id", appt.ID,
		"provider_id", appt.ProviderID,
		"service_id", appt.ServiceID,
		"start_time", appt.StartTime,
		"hold_expires_at", expires,
	)

	return &model.HoldResponse{
		AppointmentID: appt.ID,
		HoldExpiresAt: expires,
		StartTime:     appt.StartTime.In(loc),
	}, nil
}

func (s *appointmentService) Confirm(ctx context.Context, id string, req *model.ConfirmRequest) (*model.Confirmation, error) {
	raw := req.Patient
	req.Patient = sanitizer.NormalizeContact(raw, locale.DetectRegion(s.cfg.DefaultTimeZone))
	if err := s.validator.ValidateConfirm(req); err != nil {
		return nil, validation.ToAppError(err)
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// National numbers are read in the appointment's own region.
	if phone := sanitizer.NormalizePhone(raw.Phone, locale.DetectRegion(current.TimeZone)); phone != "" {
		req.Patient.Phone = phone
	}

	manageToken, err := s.tokens.Issue(id)
	if err != nil {
		s.cfg.Log.Error("Failed to issue manage token", "appointment_id", id, "error", err)
		return nil, apperrors.Internal("Failed to confirm appointment", err)
	}

	now := s.clock()
	appt, err := s.repo.Confirm(ctx, id, req.Patient, now)
	if err != nil {
		switch {
		case errors.Is(err, appointmentserrors.ErrHoldExpired):
			s.metrics.RecordConflict(monitoring.ConflictHoldExpired, monitoring.StageCommit)
			s.cfg.Log.Info("Confirm rejected, hold is not live",
				"appointment_id", id,
				"status", current.Status,
			)
			return nil, apperrors.HoldExpired(id)
		case errors.Is(err, appointmentserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Appointment", id)
		}
		s.cfg.Log.Error("Failed to confirm appointment", "appointment_id", id, "error", err)
		return nil, apperrors.Internal("Failed to confirm appointment", err)
	}

	manageURL := s.manageURL(manageToken)
	s.metrics.RecordTransition(string(model.StatusConfirmed))
	s.cfg.Log.Info("Appointment confirmed",
		"appointment_id", id,
		"provider_id", appt.ProviderID,
		"start_time", appt.StartTime,
	)
	s.dispatch(ctx, notify.EventConfirmed, appt, manageURL)

	return &model.Confirmation{
		Appointment: appt,
		ManageURL:   manageURL,
		ManageToken: manageToken,
	}, nil
}

// Cancel is idempotent: cancelling a cancelled appointment succeeds and
// changes nothing.
func (s *appointmentService) Cancel(ctx context.Context, id string) (*model.Appointment, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == model.StatusCancelled {
		return current, nil
	}

	appt, err := s.repo.UpdateStatus(ctx, id,
		[]model.AppointmentStatus{model.StatusPendingHold, model.StatusConfirmed},
		model.StatusCancelled, s.clock())
	if err != nil {
		if errors.Is(err, appointmentserrors.ErrInvalidTransition) {
			latest, findErr := s.GetByID(ctx, id)
			if findErr == nil && latest.Status == model.StatusCancelled {
				return latest, nil
			}
			return nil, apperrors.Conflict("Appointment can no longer be cancelled")
		}
		return nil, s.translate("cancel", id, err)
	}

	s.metrics.RecordTransition(string(model.StatusCancelled))
	s.cfg.Log.Info("Appointment cancelled",
		"appointment_id", id,
		"provider_id", appt.ProviderID,
		"previous_status", current.Status,
	)
	if current.Status == model.StatusConfirmed {
		s.dispatch(ctx, notify.EventCancelled, appt, "")
	}
	return appt, nil
}

func (s *appointmentService) CancelByToken(ctx context.Context, raw string) (*model.Appointment, error) {
	req := &model.ManageCancelRequest{Token: strings.TrimSpace(raw)}
	if err := s.validator.ValidateManageCancel(req); err != nil {
		return nil, validation.ToAppError(err)
	}

	id, err := s.tokens.Verify(req.Token)
	if err != nil {
		s.cfg.Log.Warn("Manage token rejected", "error", err)
		return nil, apperrors.InvalidToken(err)
	}
	return s.Cancel(ctx, id)
}

func (s *appointmentService) Complete(ctx context.Context, id string) (*model.Appointment, error) {
	return s.finish(ctx, id, model.StatusCompleted)
}

func (s *appointmentService) MarkNoShow(ctx context.Context, id string) (*model.Appointment, error) {
	return s.finish(ctx, id, model.StatusNoShow)
}

func (s *appointmentService) finish(ctx context.Context, id string, to model.AppointmentStatus) (*model.Appointment, error) {
	appt, err := s.repo.UpdateStatus(ctx, id, []model.AppointmentStatus{model.StatusConfirmed}, to, s.clock())
	if err != nil {
		if errors.Is(err, appointmentserrors.ErrInvalidTransition) {
			return nil, apperrors.Conflict("Only confirmed appointments can be marked " + string(to))
		}
		return nil, s.translate(string(to), id, err)
	}

	s.metrics.RecordTransition(string(to))
	s.cfg.Log.Info("Appointment closed", "appointment_id", id, "status", to)
	return appt, nil
}

func (s *appointmentService) ValidateEdit(ctx context.Context, id string, change *model.ScheduleChange) error {
	_, _, err := s.proposeEdit(ctx, id, change)
	return err
}

func (s *appointmentService) Reschedule(ctx context.Context, id string, change *model.ScheduleChange) (*model.Appointment, error) {
	proposed, capacity, err := s.proposeEdit(ctx, id, change)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Reschedule(ctx, proposed, capacity, s.clock()); err != nil {
		switch {
		case errors.Is(err, appointmentserrors.ErrSlotTaken):
			s.metrics.RecordConflict(monitoring.ConflictSlotTaken, monitoring.StageCommit)
			return nil, apperrors.SlotTaken(proposed.ProviderID, err)
		case errors.Is(err, appointmentserrors.ErrRoomAtCapacity):
			s.metrics.RecordConflict(monitoring.ConflictRoomCapacity, monitoring.StageCommit)
			return nil, apperrors.RoomAtCapacity(proposed.RoomID, capacity)
		case errors.Is(err, appointmentserrors.ErrInvalidTransition):
			return nil, apperrors.Conflict("Appointment can no longer be rescheduled")
		}
		return nil, s.translate("reschedule", id, err)
	}

	appt, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Appointment rescheduled",
		"appointment_id", id,
		"provider_id", appt.ProviderID,
		"start_time", appt.StartTime,
		"room_id", appt.RoomID,
	)
	if appt.Status == model.StatusConfirmed {
		s.dispatch(ctx, notify.EventRescheduled, appt, "")
	}
	return appt, nil
}

// proposeEdit builds the edited appointment and runs every check a new
// booking would face, ignoring the appointment's own current interval. It
// returns the room capacity that applied, or 0 without a room.
func (s *appointmentService) proposeEdit(ctx context.Context, id string, change *model.ScheduleChange) (*model.Appointment, int, error) {
	if err := s.validator.ValidateScheduleChange(change); err != nil {
		return nil, 0, validation.ToAppError(err)
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	now := s.clock()
	switch {
	case current.Status == model.StatusPendingHold && !current.IsLive(now):
		return nil, 0, apperrors.HoldExpired(id)
	case current.Status != model.StatusConfirmed && current.Status != model.StatusPendingHold:
		return nil, 0, apperrors.Conflict("Only upcoming appointments can be changed")
	}

	zone := change.TimeZone
	if zone == "" {
		zone = current.TimeZone
	}
	loc, zone, err := locale.LoadLocation(zone, s.cfg.DefaultTimeZone)
	if err != nil {
		return nil, 0, apperrors.FieldInvalid("time_zone", err.Error())
	}
	start, err := time.ParseInLocation(model.LocalDateTimeLayout, change.StartLocal, loc)
	if err != nil {
		return nil, 0, apperrors.FieldInvalid("start_local", "must match the layout 2006-01-02T15:04")
	}

	svc, err := s.catalog.FindService(ctx, current.ServiceID)
	if err != nil {
		return nil, 0, s.translateCatalog("Service", current.ServiceID, err)
	}

	proposed := current.Clone()
	proposed.Reschedule(start, svc)
	proposed.TimeZone = zone
	if change.RoomID != "" {
		proposed.RoomID = strings.TrimSpace(change.RoomID)
	}

	if err := s.checkTiming(ctx, proposed, loc, now); err != nil {
		return nil, 0, err
	}
	if err := s.checkProvider(ctx, proposed, now); err != nil {
		return nil, 0, err
	}
	capacity, err := s.checkRoom(ctx, proposed, now)
	if err != nil {
		return nil, 0, err
	}
	return proposed, capacity, nil
}

func (s *appointmentService) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate("get", id, err)
	}
	return appt, nil
}

// ListByProvider returns the provider's calendar: cancelled appointments
// and expired holds are left out.
func (s *appointmentService) ListByProvider(ctx context.Context, providerID string, from, to time.Time) ([]*model.Appointment, error) {
	within, err := interval.New(from, to)
	if err != nil {
		return nil, apperrors.FieldInvalid("to", "must be after from")
	}
	if within.Duration() > s.cfg.MaxListRange {
		return nil, apperrors.FieldInvalid("to", "range is too long")
	}

	appts, err := s.repo.FindByProvider(ctx, providerID, within)
	if err != nil {
		s.cfg.Log.Error("Failed to list appointments", "provider_id", providerID, "error", err)
		return nil, apperrors.Internal("Failed to list appointments", err)
	}

	now := s.clock()
	live := make([]*model.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.Status == model.StatusPendingHold && !a.IsLive(now) {
			continue
		}
		live = append(live, a)
	}
	return live, nil
}

func (s *appointmentService) bookableService(ctx context.Context, id string) (*model.ServiceDefinition, error) {
	svc, err := s.catalog.FindService(ctx, id)
	if err != nil {
		return nil, s.translateCatalog("Service", id, err)
	}
	if !svc.IsActive {
		return nil, apperrors.FieldInvalid("service_id", "service is not bookable")
	}
	return svc, nil
}

// checkTiming rejects starts inside the lead time and appointments that do
// not fit the provider's working hours for that day.
func (s *appointmentService) checkTiming(ctx context.Context, appt *model.Appointment, loc *time.Location, now time.Time) error {
	if appt.StartTime.Before(now.Add(s.cfg.DefaultLeadTime)) {
		return apperrors.FieldInvalid("start_local", "is too soon to book")
	}

	local := appt.StartTime.In(loc)
	hours, err := s.catalog.FindWorkingHours(ctx, appt.ProviderID, int(local.Weekday()))
	if err != nil && !errors.Is(err, catalogerrors.ErrWorkingHoursNotFound) {
		s.cfg.Log.Error("Failed to load working hours", "provider_id", appt.ProviderID, "error", err)
		return apperrors.Internal("Failed to load working hours", err)
	}
	day, ok := availability.DayWindow(local, hours, loc)
	if !ok || !day.Covers(appt.Scheduled()) {
		return apperrors.FieldInvalid("start_local", "is outside the provider's working hours")
	}
	return nil
}

// checkProvider is the in-process pre-check. The store repeats it
// atomically on write; this pass catches time off and gives the caller a
// fast answer.
func (s *appointmentService) checkProvider(ctx context.Context, appt *model.Appointment, now time.Time) error {
	occupied := appt.Occupied()

	timeOffs, err := s.catalog.FindTimeOff(ctx, appt.ProviderID, occupied)
	if err != nil {
		s.cfg.Log.Error("Failed to load time off", "provider_id", appt.ProviderID, "error", err)
		return apperrors.Internal("Failed to check availability", err)
	}
	bookings, err := s.repo.FindByProvider(ctx, appt.ProviderID, occupied)
	if err != nil {
		s.cfg.Log.Error("Failed to load bookings", "provider_id", appt.ProviderID, "error", err)
		return apperrors.Internal("Failed to check availability", err)
	}

	if availability.IsProviderBusy(appt.ProviderID, occupied, availability.Without(bookings, appt.ID), timeOffs, now) {
		s.metrics.RecordConflict(monitoring.ConflictSlotTaken, monitoring.StagePrecheck)
		return apperrors.SlotTaken(appt.ProviderID, appointmentserrors.ErrSlotTaken)
	}
	return nil
}

func (s *appointmentService) checkRoom(ctx context.Context, appt *model.Appointment, now time.Time) (int, error) {
	if appt.RoomID == "" {
		return 0, nil
	}

	room, err := s.catalog.FindRoom(ctx, appt.RoomID)
	if err != nil {
		return 0, s.translateCatalog("Room", appt.RoomID, err)
	}

	n, err := s.repo.CountRoomOccupancy(ctx, appt.RoomID, appt.Scheduled(), appt.ID, now)
	if err != nil {
		s.cfg.Log.Error("Failed to count room occupancy", "room_id", appt.RoomID, "error", err)
		return 0, apperrors.Internal("Failed to check room capacity", err)
	}
	if n >= room.Capacity {
		s.metrics.RecordConflict(monitoring.ConflictRoomCapacity, monitoring.StagePrecheck)
		return 0, apperrors.RoomAtCapacity(room.ID, room.Capacity)
	}
	return room.Capacity, nil
}

func (s *appointmentService) manageURL(manageToken string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/manage?token=" + url.QueryEscape(manageToken)
}

// dispatch hands the event to the notifier. Delivery failures are logged
// and never undo the booking.
func (s *appointmentService) dispatch(ctx context.Context, eventType notify.EventType, appt *model.Appointment, manageURL string) {
	if s.notifier == nil {
		return
	}

	e := notify.NewEvent(eventType, appt, s.clock())
	e.ManageURL = manageURL
	e.CorrelationID = middleware.RequestIDFrom(ctx)

	ctx = context.WithoutCancel(ctx)
	if s.cfg.NotificationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.NotificationTimeout)
		defer cancel()
	}

	if err := s.notifier.Dispatch(ctx, e); err != nil {
		s.cfg.Log.Error("Failed to dispatch appointment event",
			"event_type", eventType,
			"appointment_id", appt.ID,
			"error", err,
		)
	}
}

func (s *appointmentService) translate(op, id string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, appointmentserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Appointment", id)
	}
	s.cfg.Log.Error("Appointment operation failed", "operation", op, "appointment_id", id, "error", err)
	return apperrors.Internal("Failed to "+op+" appointment", err)
}

func (s *appointmentService) translateCatalog(resource, id string, err error) error {
	if errors.Is(err, catalogerrors.ErrServiceNotFound) || errors.Is(err, catalogerrors.ErrRoomNotFound) {
		return apperrors.NotFoundWithID(resource, id)
	}
	s.cfg.Log.Error("Failed to load catalog entry", "resource", resource, "id", id, "error", err)
	return apperrors.Internal("Failed to load "+strings.ToLower(resource), err)
}
