package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmentserrors "clinicbook/internal/appointments/errors"
	"clinicbook/pkg/availability"
	"clinicbook/pkg/config"
	"clinicbook/pkg/db/postgres"
	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresAppointmentRepository struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

// NewPostgresAppointmentRepository serializes writers per provider with
// transaction-scoped advisory locks. The appointments table also carries an
// exclusion constraint on confirmed rows; a violation is reported as
// ErrSlotTaken like any other conflict.
func NewPostgresAppointmentRepository(cfg *config.Config) AppointmentRepository {
	return &postgresAppointmentRepository{
		cfg:  cfg,
		pool: cfg.Client.Postgres,
	}
}

const appointmentCols = `id, provider_id, service_id, COALESCE(room_id, ''), status,
	start_time, end_time, occupied_start, occupied_end, hold_expires_at, time_zone,
	customer_name, customer_phone, customer_email,
	patient_name, patient_phone, patient_email,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var (
		a                                       model.Appointment
		patientName, patientPhone, patientEmail *string
	)
	err := row.Scan(
		&a.ID, &a.ProviderID, &a.ServiceID, &a.RoomID, &a.Status,
		&a.StartTime, &a.EndTime, &a.OccupiedStart, &a.OccupiedEnd, &a.HoldExpiresAt, &a.TimeZone,
		&a.Customer.Name, &a.Customer.Phone, &a.Customer.Email,
		&patientName, &patientPhone, &patientEmail,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if patientName != nil {
		a.Patient = &model.Contact{Name: *patientName}
		if patientPhone != nil {
			a.Patient.Phone = *patientPhone
		}
		if patientEmail != nil {
			a.Patient.Email = *patientEmail
		}
	}
	return &a, nil
}

func (r *postgresAppointmentRepository) findByID(ctx context.Context, q postgres.Querier, id string, forUpdate bool) (*model.Appointment, error) {
	sql := `SELECT ` + appointmentCols + ` FROM appointments WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	a, err := scanAppointment(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	return a, nil
}

func (r *postgresAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findByID(ctx, r.pool, id, false)
}

func (r *postgresAppointmentRepository) findByProvider(ctx context.Context, q postgres.Querier, providerID string, within interval.Interval) ([]*model.Appointment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE provider_id = $1 AND status <> 'cancelled'
		  AND occupied_start < $3 AND occupied_end > $2
		ORDER BY start_time`,
		providerID, within.Start, within.End,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var appts []*model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func (r *postgresAppointmentRepository) FindByProvider(ctx context.Context, providerID string, within interval.Interval) ([]*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findByProvider(ctx, r.pool, providerID, within)
}

// conflictError maps constraint violations raised at commit or statement
// time to the domain error.
func conflictError(err error) error {
	if postgres.HasCode(err, postgres.CodeExclusionViolation) {
		return fmt.Errorf("%w: %v", appointmentserrors.ErrSlotTaken, err)
	}
	return err
}

func (r *postgresAppointmentRepository) InsertHold(ctx context.Context, appt *model.Appointment, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := postgres.LockKey(ctx, tx, providerLockKey(appt.ProviderID)); err != nil {
			return err
		}

		existing, err := r.findByProvider(ctx, tx, appt.ProviderID, appt.Occupied())
		if err != nil {
			return err
		}
		if availability.FirstConflict(appt.ProviderID, appt.Occupied(), existing, now) != nil {
			return appointmentserrors.ErrSlotTaken
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO appointments (
				id, provider_id, service_id, room_id, status,
				start_time, end_time, occupied_start, occupied_end, hold_expires_at, time_zone,
				customer_name, customer_phone, customer_email,
				created_at, updated_at
			) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			appt.ID, appt.ProviderID, appt.ServiceID, appt.RoomID, appt.Status,
			appt.StartTime, appt.EndTime, appt.OccupiedStart, appt.OccupiedEnd, appt.HoldExpiresAt, appt.TimeZone,
			appt.Customer.Name, appt.Customer.Phone, appt.Customer.Email,
			appt.CreatedAt, appt.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert hold: %w", err)
		}
		return nil
	})
	return conflictError(err)
}

func (r *postgresAppointmentRepository) Confirm(ctx context.Context, id string, patient model.Contact, now time.Time) (*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	var confirmed *model.Appointment
	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := r.findByID(ctx, tx, id, false)
		if err != nil {
			return err
		}
		if err := postgres.LockKey(ctx, tx, providerLockKey(current.ProviderID)); err != nil {
			return err
		}
		current, err = r.findByID(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !current.IsLive(now) {
			return appointmentserrors.ErrHoldExpired
		}

		existing, err := r.findByProvider(ctx, tx, current.ProviderID, current.Occupied())
		if err != nil {
			return err
		}
		if availability.FirstConflict(current.ProviderID, current.Occupied(), availability.Without(existing, id), now) != nil {
			return appointmentserrors.ErrHoldExpired
		}

		confirmed, err = scanAppointment(tx.QueryRow(ctx, `
			UPDATE appointments SET
				status = 'confirmed', hold_expires_at = NULL,
				patient_name = $2, patient_phone = $3, patient_email = $4,
				updated_at = $5
			WHERE id = $1
			RETURNING `+appointmentCols,
			id, patient.Name, patient.Phone, patient.Email, now,
		))
		if err != nil {
			return fmt.Errorf("failed to confirm appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(conflictError(err), appointmentserrors.ErrSlotTaken) {
			return nil, appointmentserrors.ErrHoldExpired
		}
		return nil, err
	}
	return confirmed, nil
}

func (r *postgresAppointmentRepository) UpdateStatus(ctx context.Context, id string, from []model.AppointmentStatus, to model.AppointmentStatus, now time.Time) (*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		UPDATE appointments SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)
		RETURNING `+appointmentCols,
		id, to, now, statuses,
	))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	current, findErr := r.findByID(ctx, r.pool, id, false)
	if findErr != nil {
		return nil, findErr
	}
	return nil, fmt.Errorf("%w: %s -> %s", appointmentserrors.ErrInvalidTransition, current.Status, to)
}

func (r *postgresAppointmentRepository) countRoom(ctx context.Context, q postgres.Querier, roomID string, scheduled interval.Interval, excludeID string, now time.Time) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE room_id = $1 AND id <> $2
		  AND start_time < $4 AND end_time > $3
		  AND (status IN ('confirmed', 'completed', 'no_show')
		       OR (status = 'pending_hold' AND hold_expires_at > $5))`,
		roomID, excludeID, scheduled.Start, scheduled.End, now,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count room occupancy: %w", err)
	}
	return n, nil
}

func (r *postgresAppointmentRepository) CountRoomOccupancy(ctx context.Context, roomID string, scheduled interval.Interval, excludeID string, now time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.countRoom(ctx, r.pool, roomID, scheduled, excludeID, now)
}

func (r *postgresAppointmentRepository) Reschedule(ctx context.Context, appt *model.Appointment, roomCapacity int, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := postgres.LockKey(ctx, tx, providerLockKey(appt.ProviderID)); err != nil {
			return err
		}
		if appt.RoomID != "" {
			if err := postgres.LockKey(ctx, tx, roomLockKey(appt.RoomID)); err != nil {
				return err
			}
		}

		current, err := r.findByID(ctx, tx, appt.ID, true)
		if err != nil {
			return err
		}
		if current.Status != model.StatusConfirmed && !current.IsLive(now) {
			return fmt.Errorf("%w: cannot reschedule %s", appointmentserrors.ErrInvalidTransition, current.Status)
		}

		existing, err := r.findByProvider(ctx, tx, appt.ProviderID, appt.Occupied())
		if err != nil {
			return err
		}
		if availability.FirstConflict(appt.ProviderID, appt.Occupied(), availability.Without(existing, appt.ID), now) != nil {
			return appointmentserrors.ErrSlotTaken
		}

		if appt.RoomID != "" && roomCapacity > 0 {
			n, err := r.countRoom(ctx, tx, appt.RoomID, appt.Scheduled(), appt.ID, now)
			if err != nil {
				return err
			}
			if n >= roomCapacity {
				return appointmentserrors.ErrRoomAtCapacity
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE appointments SET
				start_time = $2, end_time = $3, occupied_start = $4, occupied_end = $5,
				room_id = NULLIF($6, ''), time_zone = $7, updated_at = $8
			WHERE id = $1`,
			appt.ID, appt.StartTime, appt.EndTime, appt.OccupiedStart, appt.OccupiedEnd,
			appt.RoomID, appt.TimeZone, now,
		)
		if err != nil {
			return fmt.Errorf("failed to reschedule appointment: %w", err)
		}
		return nil
	})
	return conflictError(err)
}
