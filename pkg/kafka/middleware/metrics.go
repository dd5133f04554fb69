package kafka_middleware

import (
	"context"

	"clinicbook/pkg/kafka"
	"clinicbook/pkg/monitoring"
)

// MetricsProducerMiddleware counts publishes by event type and result.
func MetricsProducerMiddleware(m *monitoring.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)
		m.RecordEvent(msg.GetEventType(), err)
		return err
	}
}
