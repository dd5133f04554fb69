package main

import (
	"errors"

	appointmentserrors "clinicbook/internal/appointments/errors"
	appointmentrepo "clinicbook/internal/appointments/repository"
	"clinicbook/pkg/config"
	"clinicbook/pkg/kafka"
	kafka_config "clinicbook/pkg/kafka/config"
	kafkamiddleware "clinicbook/pkg/kafka/middleware"
	"clinicbook/pkg/notify"

	"github.com/hibiken/asynq"
)

const (
	ServiceName = "reminder-worker"
	concurrency = 10
)

func main() {
	cfg := config.Load(ServiceName)
	defer cfg.GracefulShutdown()
	if cfg.StorageDriver == config.StorageMemory {
		cfg.Log.Fatal("The reminder worker needs shared storage, set STORAGE_DRIVER to mongo or postgres")
	}
	cfg.SetStorage()

	var appointments appointmentrepo.AppointmentRepository
	if cfg.StorageDriver == config.StoragePostgres {
		appointments = appointmentrepo.NewPostgresAppointmentRepository(cfg)
	} else {
		appointments = appointmentrepo.NewMongoAppointmentRepository(cfg)
	}

	dispatchers := notify.Multi{notify.LogDispatcher{Log: cfg.Log}}
	if cfg.NotificationsEnabled {
		producer := newProducer(cfg)
		defer func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		}()
		dispatchers = append(dispatchers, notify.NewKafkaDispatcher(producer, ServiceName))
	}

	reminders := notify.NewReminderHandler(
		appointments,
		func(err error) bool { return errors.Is(err, appointmentserrors.ErrNotFound) },
		dispatchers,
		cfg.Log,
	)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{cfg.ReminderQueue: 1},
		},
	)
	mux := asynq.NewServeMux()
	mux.Handle(notify.TypeAppointmentReminder, reminders)

	cfg.Log.Info("Starting reminder worker", "queue", cfg.ReminderQueue, "redis", cfg.RedisAddr)
	if err := srv.Run(mux); err != nil {
		cfg.Log.Error("Reminder worker stopped", "error", err)
	}
}

func newProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.NotificationTopic, cfg.NotificationDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
	}
	return producer
}
