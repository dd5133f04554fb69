package repository

import (
	"context"
	"errors"
	"fmt"

	catalogerrors "clinicbook/internal/catalog/errors"
	"clinicbook/pkg/config"
	mongotx "clinicbook/pkg/db/mongo"
	"clinicbook/pkg/interval"
	"clinicbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ServicesCollection     = "Services"
	WorkingHoursCollection = "Working_hours"
	TimeOffCollection      = "Time_off"
	RoomsCollection        = "Rooms"
)

type mongoCatalogRepository struct {
	cfg       *config.Config
	services  *mongo.Collection
	hours     *mongo.Collection
	timeOffs  *mongo.Collection
	rooms     *mongo.Collection
	txManager mongotx.TransactionManager
}

func NewMongoCatalogRepository(cfg *config.Config) CatalogRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCatalogRepository{
		cfg:       cfg,
		services:  db.Collection(ServicesCollection),
		hours:     db.Collection(WorkingHoursCollection),
		timeOffs:  db.Collection(TimeOffCollection),
		rooms:     db.Collection(RoomsCollection),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoCatalogRepository) FindService(ctx context.Context, id string) (*model.ServiceDefinition, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var svc model.ServiceDefinition
	if err := r.services.FindOne(ctx, bson.M{"_id": id}).Decode(&svc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", catalogerrors.ErrServiceNotFound, id)
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return &svc, nil
}

func (r *mongoCatalogRepository) UpsertService(ctx context.Context, svc *model.ServiceDefinition) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.services.ReplaceOne(ctx, bson.M{"_id": svc.ID}, svc, opts); err != nil {
		return fmt.Errorf("failed to upsert service: %w", err)
	}
	return nil
}

func (r *mongoCatalogRepository) FindWorkingHours(ctx context.Context, providerID string, weekday int) (*model.WorkingHours, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var wh model.WorkingHours
	filter := bson.M{"provider_id": providerID, "weekday": weekday}
	if err := r.hours.FindOne(ctx, filter).Decode(&wh); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s/%d", catalogerrors.ErrWorkingHoursNotFound, providerID, weekday)
		}
		return nil, fmt.Errorf("failed to find working hours: %w", err)
	}
	return &wh, nil
}

func (r *mongoCatalogRepository) ListWorkingHours(ctx context.Context, providerID string) ([]*model.WorkingHours, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "weekday", Value: 1}})
	cursor, err := r.hours.Find(ctx, bson.M{"provider_id": providerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query working hours: %w", err)
	}
	defer cursor.Close(ctx)

	var days []*model.WorkingHours
	if err = cursor.All(ctx, &days); err != nil {
		return nil, fmt.Errorf("failed to decode working hours: %w", err)
	}
	return days, nil
}

// ReplaceWorkingHours swaps the whole week in one transaction so readers
// never see a half-written week.
func (r *mongoCatalogRepository) ReplaceWorkingHours(ctx context.Context, providerID string, days []*model.WorkingHours) error {
	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.hours.DeleteMany(sessCtx, bson.M{"provider_id": providerID}); err != nil {
			return fmt.Errorf("failed to clear working hours: %w", err)
		}
		if len(days) == 0 {
			return nil
		}
		docs := make([]any, 0, len(days))
		for _, d := range days {
			docs = append(docs, d)
		}
		if _, err := r.hours.InsertMany(sessCtx, docs); err != nil {
			return fmt.Errorf("failed to insert working hours: %w", err)
		}
		return nil
	})
}

func (r *mongoCatalogRepository) FindTimeOff(ctx context.Context, providerID string, within interval.Interval) ([]*model.TimeOff, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"provider_id": providerID,
		"start":       bson.M{"$lt": within.End},
		"end":         bson.M{"$gt": within.Start},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}})
	cursor, err := r.timeOffs.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query time off: %w", err)
	}
	defer cursor.Close(ctx)

	var offs []*model.TimeOff
	if err = cursor.All(ctx, &offs); err != nil {
		return nil, fmt.Errorf("failed to decode time off: %w", err)
	}
	return offs, nil
}

func (r *mongoCatalogRepository) CreateTimeOff(ctx context.Context, off *model.TimeOff) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.timeOffs.InsertOne(ctx, off); err != nil {
		return fmt.Errorf("failed to create time off: %w", err)
	}
	return nil
}

func (r *mongoCatalogRepository) DeleteTimeOff(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.timeOffs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete time off: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", catalogerrors.ErrTimeOffNotFound, id)
	}
	return nil
}

func (r *mongoCatalogRepository) FindRoom(ctx context.Context, id string) (*model.Room, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var room model.Room
	if err := r.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", catalogerrors.ErrRoomNotFound, id)
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &room, nil
}

func (r *mongoCatalogRepository) UpsertRoom(ctx context.Context, room *model.Room) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.rooms.ReplaceOne(ctx, bson.M{"_id": room.ID}, room, opts); err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	return nil
}
