package repository

import (
	"context"
	"errors"
	"fmt"

	catalogerrors "clinicbook/internal/catalog/errors"
	"clinicbook/pkg/config"
	"clinicbook/pkg/db/postgres"
	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresCatalogRepository struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

func NewPostgresCatalogRepository(cfg *config.Config) CatalogRepository {
	return &postgresCatalogRepository{
		cfg:  cfg,
		pool: cfg.Client.Postgres,
	}
}

const serviceCols = `id, name, duration_minutes, buffer_before_minutes, buffer_after_minutes, slot_step_minutes, is_active, updated_at`

func (r *postgresCatalogRepository) FindService(ctx context.Context, id string) (*model.ServiceDefinition, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var s model.ServiceDefinition
	err := r.pool.QueryRow(ctx, `SELECT `+serviceCols+` FROM services WHERE id = $1`, id).Scan(
		&s.ID, &s.Name, &s.DurationMinutes, &s.BufferBeforeMinutes, &s.BufferAfterMinutes,
		&s.SlotStepMinutes, &s.IsActive, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", catalogerrors.ErrServiceNotFound, id)
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return &s, nil
}

func (r *postgresCatalogRepository) UpsertService(ctx context.Context, s *model.ServiceDefinition) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (`+serviceCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			buffer_before_minutes = EXCLUDED.buffer_before_minutes,
			buffer_after_minutes = EXCLUDED.buffer_after_minutes,
			slot_step_minutes = EXCLUDED.slot_step_minutes,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		s.ID, s.Name, s.DurationMinutes, s.BufferBeforeMinutes, s.BufferAfterMinutes,
		s.SlotStepMinutes, s.IsActive, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert service: %w", err)
	}
	return nil
}

func (r *postgresCatalogRepository) FindWorkingHours(ctx context.Context, providerID string, weekday int) (*model.WorkingHours, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	wh := model.WorkingHours{ProviderID: providerID, Weekday: weekday}
	err := r.pool.QueryRow(ctx, `
		SELECT is_open, start_local, end_local
		FROM working_hours WHERE provider_id = $1 AND weekday = $2`,
		providerID, weekday,
	).Scan(&wh.IsOpen, &wh.StartLocal, &wh.EndLocal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%d", catalogerrors.ErrWorkingHoursNotFound, providerID, weekday)
		}
		return nil, fmt.Errorf("failed to find working hours: %w", err)
	}
	return &wh, nil
}

func (r *postgresCatalogRepository) ListWorkingHours(ctx context.Context, providerID string) ([]*model.WorkingHours, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT provider_id, weekday, is_open, start_local, end_local
		FROM working_hours WHERE provider_id = $1 ORDER BY weekday`, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query working hours: %w", err)
	}
	defer rows.Close()

	var days []*model.WorkingHours
	for rows.Next() {
		var wh model.WorkingHours
		if err := rows.Scan(&wh.ProviderID, &wh.Weekday, &wh.IsOpen, &wh.StartLocal, &wh.EndLocal); err != nil {
			return nil, fmt.Errorf("failed to scan working hours: %w", err)
		}
		days = append(days, &wh)
	}
	return days, rows.Err()
}

func (r *postgresCatalogRepository) ReplaceWorkingHours(ctx context.Context, providerID string, days []*model.WorkingHours) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	return postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM working_hours WHERE provider_id = $1`, providerID); err != nil {
			return fmt.Errorf("failed to clear working hours: %w", err)
		}
		batch := &pgx.Batch{}
		for _, d := range days {
			batch.Queue(`
				INSERT INTO working_hours (provider_id, weekday, is_open, start_local, end_local)
				VALUES ($1, $2, $3, $4, $5)`,
				providerID, d.Weekday, d.IsOpen, d.StartLocal, d.EndLocal,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert working hours: %w", err)
		}
		return nil
	})
}

func (r *postgresCatalogRepository) FindTimeOff(ctx context.Context, providerID string, within interval.Interval) ([]*model.TimeOff, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, starts_at, ends_at, reason, created_at
		FROM time_off
		WHERE provider_id = $1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at`,
		providerID, within.Start, within.End,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query time off: %w", err)
	}
	defer rows.Close()

	var offs []*model.TimeOff
	for rows.Next() {
		var off model.TimeOff
		if err := rows.Scan(&off.ID, &off.ProviderID, &off.Start, &off.End, &off.Reason, &off.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan time off: %w", err)
		}
		offs = append(offs, &off)
	}
	return offs, rows.Err()
}

func (r *postgresCatalogRepository) CreateTimeOff(ctx context.Context, off *model.TimeOff) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO time_off (id, provider_id, starts_at, ends_at, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		off.ID, off.ProviderID, off.Start, off.End, off.Reason, off.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create time off: %w", err)
	}
	return nil
}

func (r *postgresCatalogRepository) DeleteTimeOff(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM time_off WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete time off: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", catalogerrors.ErrTimeOffNotFound, id)
	}
	return nil
}

func (r *postgresCatalogRepository) FindRoom(ctx context.Context, id string) (*model.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var room model.Room
	err := r.pool.QueryRow(ctx, `SELECT id, name, capacity, is_gym, updated_at FROM rooms WHERE id = $1`, id).Scan(
		&room.ID, &room.Name, &room.Capacity, &room.IsGym, &room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", catalogerrors.ErrRoomNotFound, id)
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &room, nil
}

func (r *postgresCatalogRepository) UpsertRoom(ctx context.Context, room *model.Room) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO rooms (id, name, capacity, is_gym, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			capacity = EXCLUDED.capacity,
			is_gym = EXCLUDED.is_gym,
			updated_at = EXCLUDED.updated_at`,
		room.ID, room.Name, room.Capacity, room.IsGym, room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	return nil
}
