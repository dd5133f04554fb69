package main

import (
	appointmenthandler "clinicbook/internal/appointments/handler"
	appointmentrepo "clinicbook/internal/appointments/repository"
	appointmentservice "clinicbook/internal/appointments/service"
	appointmentvalidator "clinicbook/internal/appointments/validator"
	availabilityhandler "clinicbook/internal/availability/handler"
	availabilityservice "clinicbook/internal/availability/service"
	availabilityvalidator "clinicbook/internal/availability/validator"
	cataloghandler "clinicbook/internal/catalog/handler"
	catalogrepo "clinicbook/internal/catalog/repository"
	catalogservice "clinicbook/internal/catalog/service"
	catalogvalidator "clinicbook/internal/catalog/validator"
	"clinicbook/internal/health"
	"clinicbook/pkg/app"
	"clinicbook/pkg/config"
	"clinicbook/pkg/kafka"
	kafka_config "clinicbook/pkg/kafka/config"
	kafkamiddleware "clinicbook/pkg/kafka/middleware"
	"clinicbook/pkg/monitoring"
	"clinicbook/pkg/notify"
	"clinicbook/pkg/token"

	"github.com/hibiken/asynq"
)

const ServiceName = "clinic"

type repositories struct {
	catalog      catalogrepo.CatalogRepository
	appointments appointmentrepo.AppointmentRepository
	checks       []health.Check
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStorage()
	cfg.Log.Info("Starting clinic booking service", "storage", cfg.StorageDriver)

	metrics := monitoring.New()
	serverApp := app.NewApplication(cfg, metrics)

	repos := initRepositories(cfg)
	dispatcher := initNotifications(cfg, metrics, serverApp)
	tokens := token.NewManager(cfg.ManageTokenSecret, cfg.ManageTokenTTL)

	catalogService := catalogservice.NewCatalogService(repos.catalog, catalogvalidator.NewCatalogValidator(cfg.Log), cfg)
	appointmentService := appointmentservice.NewAppointmentService(
		repos.appointments,
		repos.catalog,
		appointmentvalidator.NewAppointmentValidator(cfg.Log),
		tokens,
		dispatcher,
		metrics,
		cfg,
	)
	availabilityService := availabilityservice.NewAvailabilityService(
		repos.catalog,
		repos.appointments,
		availabilityvalidator.NewAvailabilityValidator(cfg.Log),
		metrics,
		cfg,
	)

	serverApp.SetApp(
		health.NewHealthHandler(cfg.Log, repos.checks...),
		cataloghandler.NewCatalogHandler(catalogService, cfg.Log),
		appointmenthandler.NewAppointmentHandler(appointmentService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
	)
	serverApp.Run()
}

func initRepositories(cfg *config.Config) repositories {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		cfg.Log.Info("Using Mongo storage", "database", cfg.MongoDatabaseName)
		return repositories{
			catalog:      catalogrepo.NewMongoCatalogRepository(cfg),
			appointments: appointmentrepo.NewMongoAppointmentRepository(cfg),
			checks:       []health.Check{health.MongoCheck(cfg.Client.Mongo)},
		}
	case config.StoragePostgres:
		cfg.Log.Info("Using Postgres storage")
		return repositories{
			catalog:      catalogrepo.NewPostgresCatalogRepository(cfg),
			appointments: appointmentrepo.NewPostgresAppointmentRepository(cfg),
			checks:       []health.Check{health.PostgresCheck(cfg.Client.Postgres)},
		}
	default:
		cfg.Log.Warn("Using in-memory storage, data is lost on restart")
		return repositories{
			catalog:      catalogrepo.NewMemoryCatalogRepository(),
			appointments: appointmentrepo.NewMemoryAppointmentRepository(),
		}
	}
}

// initNotifications always logs events. With notifications enabled it also
// publishes them to Kafka and keeps reminder jobs in Redis.
func initNotifications(cfg *config.Config, metrics *monitoring.Metrics, serverApp *app.Application) notify.Dispatcher {
	dispatchers := notify.Multi{notify.LogDispatcher{Log: cfg.Log}}
	if !cfg.NotificationsEnabled {
		return dispatchers
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.NotificationTopic, cfg.NotificationDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafkamiddleware.MetricsProducerMiddleware(metrics))
	}
	serverApp.OnShutdown(producer)

	redis := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := asynq.NewClient(redis)
	inspector := asynq.NewInspector(redis)
	serverApp.OnShutdown(client)
	serverApp.OnShutdown(inspector)

	return append(dispatchers,
		notify.NewKafkaDispatcher(producer, ServiceName),
		notify.NewReminderScheduler(client, inspector, cfg.ReminderQueue, cfg.ReminderOffsets, cfg.Log),
	)
}
