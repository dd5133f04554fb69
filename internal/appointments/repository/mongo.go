package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmentserrors "clinicbook/internal/appointments/errors"
	"clinicbook/pkg/availability"
	"clinicbook/pkg/config"
	mongotx "clinicbook/pkg/db/mongo"
	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName      = "Appointments"
	LocksCollectionName = "Provider_locks"
)

type mongoAppointmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	locks      *mongo.Collection
	txManager  mongotx.TransactionManager
}

// NewMongoAppointmentRepository stores appointments in MongoDB. Conflict
// checked writes run in a transaction that first bumps a lock document per
// provider: two transactions touching the same lock document cannot both
// commit, and the driver reruns the loser against fresh data.
func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		locks:      db.Collection(LocksCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoAppointmentRepository) lock(ctx mongo.SessionContext, key string, now time.Time) error {
	_, err := r.locks.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"version": 1}, "$set": bson.M{"updated_at": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var a model.Appointment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	return &a, nil
}

func (r *mongoAppointmentRepository) FindByProvider(ctx context.Context, providerID string, within interval.Interval) ([]*model.Appointment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"provider_id":    providerID,
		"status":         bson.M{"$ne": model.StatusCancelled},
		"occupied_start": bson.M{"$lt": within.End},
		"occupied_end":   bson.M{"$gt": within.Start},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appts []*model.Appointment
	if err = cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appts, nil
}

func (r *mongoAppointmentRepository) InsertHold(ctx context.Context, appt *model.Appointment, now time.Time) error {
	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := r.lock(sessCtx, providerLockKey(appt.ProviderID), now); err != nil {
			return err
		}

		existing, err := r.FindByProvider(sessCtx, appt.ProviderID, appt.Occupied())
		if err != nil {
			return err
		}
		if availability.FirstConflict(appt.ProviderID, appt.Occupied(), existing, now) != nil {
			return appointmentserrors.ErrSlotTaken
		}

		if _, err := r.collection.InsertOne(sessCtx, appt); err != nil {
			return fmt.Errorf("failed to insert hold: %w", err)
		}
		return nil
	})
}

func (r *mongoAppointmentRepository) Confirm(ctx context.Context, id string, patient model.Contact, now time.Time) (*model.Appointment, error) {
	var confirmed *model.Appointment
	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := r.FindByID(sessCtx, id)
		if err != nil {
			return err
		}
		if err := r.lock(sessCtx, providerLockKey(current.ProviderID), now); err != nil {
			return err
		}
		if !current.IsLive(now) {
			return appointmentserrors.ErrHoldExpired
		}

		existing, err := r.FindByProvider(sessCtx, current.ProviderID, current.Occupied())
		if err != nil {
			return err
		}
		if availability.FirstConflict(current.ProviderID, current.Occupied(), availability.Without(existing, id), now) != nil {
			return appointmentserrors.ErrHoldExpired
		}

		filter := bson.M{"_id": id, "status": model.StatusPendingHold}
		update := bson.M{
			"$set": bson.M{
				"status":     model.StatusConfirmed,
				"patient":    patient,
				"updated_at": now,
			},
			"$unset": bson.M{"hold_expires_at": ""},
		}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var a model.Appointment
		if err := r.collection.FindOneAndUpdate(sessCtx, filter, update, opts).Decode(&a); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return appointmentserrors.ErrHoldExpired
			}
			return fmt.Errorf("failed to confirm appointment: %w", err)
		}
		confirmed = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

func (r *mongoAppointmentRepository) UpdateStatus(ctx context.Context, id string, from []model.AppointmentStatus, to model.AppointmentStatus, now time.Time) (*model.Appointment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a model.Appointment
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&a)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	current, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	return nil, fmt.Errorf("%w: %s -> %s", appointmentserrors.ErrInvalidTransition, current.Status, to)
}

// roomFilter matches what counts toward a room's capacity: everything but
// cancelled rows and expired holds.
func roomFilter(roomID string, scheduled interval.Interval, excludeID string, now time.Time) bson.M {
	return bson.M{
		"room_id":    roomID,
		"_id":        bson.M{"$ne": excludeID},
		"start_time": bson.M{"$lt": scheduled.End},
		"end_time":   bson.M{"$gt": scheduled.Start},
		"$or": bson.A{
			bson.M{"status": bson.M{"$in": bson.A{model.StatusConfirmed, model.StatusCompleted, model.StatusNoShow}}},
			bson.M{"status": model.StatusPendingHold, "hold_expires_at": bson.M{"$gt": now}},
		},
	}
}

func (r *mongoAppointmentRepository) CountRoomOccupancy(ctx context.Context, roomID string, scheduled interval.Interval, excludeID string, now time.Time) (int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, roomFilter(roomID, scheduled, excludeID, now))
	if err != nil {
		return 0, fmt.Errorf("failed to count room occupancy: %w", err)
	}
	return int(n), nil
}

func (r *mongoAppointmentRepository) Reschedule(ctx context.Context, appt *model.Appointment, roomCapacity int, now time.Time) error {
	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := r.lock(sessCtx, providerLockKey(appt.ProviderID), now); err != nil {
			return err
		}
		if appt.RoomID != "" {
			if err := r.lock(sessCtx, roomLockKey(appt.RoomID), now); err != nil {
				return err
			}
		}

		current, err := r.FindByID(sessCtx, appt.ID)
		if err != nil {
			return err
		}
		if current.Status != model.StatusConfirmed && !current.IsLive(now) {
			return fmt.Errorf("%w: cannot reschedule %s", appointmentserrors.ErrInvalidTransition, current.Status)
		}

		existing, err := r.FindByProvider(sessCtx, appt.ProviderID, appt.Occupied())
		if err != nil {
			return err
		}
		if availability.FirstConflict(appt.ProviderID, appt.Occupied(), availability.Without(existing, appt.ID), now) != nil {
			return appointmentserrors.ErrSlotTaken
		}

		if appt.RoomID != "" && roomCapacity > 0 {
			n, err := r.CountRoomOccupancy(sessCtx, appt.RoomID, appt.Scheduled(), appt.ID, now)
			if err != nil {
				return err
			}
			if n >= roomCapacity {
				return appointmentserrors.ErrRoomAtCapacity
			}
		}

		set := bson.M{
			"start_time":     appt.StartTime,
			"end_time":       appt.EndTime,
			"occupied_start": appt.OccupiedStart,
			"occupied_end":   appt.OccupiedEnd,
			"time_zone":      appt.TimeZone,
			"updated_at":     now,
		}
		update := bson.M{"$set": set}
		if appt.RoomID == "" {
			update["$unset"] = bson.M{"room_id": ""}
		} else {
			set["room_id"] = appt.RoomID
		}

		if _, err := r.collection.UpdateOne(sessCtx, bson.M{"_id": appt.ID}, update); err != nil {
			return fmt.Errorf("failed to reschedule appointment: %w", err)
		}
		return nil
	})
}
