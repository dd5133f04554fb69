package notify

import (
	"context"
	"fmt"

	"clinicbook/pkg/kafka"
)

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaDispatcher publishes events keyed by appointment id.
type KafkaDispatcher struct {
	publisher Publisher
	source    string
}

func NewKafkaDispatcher(publisher Publisher, source string) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: publisher, source: source}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, e Event) error {
	msg, err := kafka.NewMessage().
		WithKey(e.AppointmentID).
		WithValue(e).
		WithEventType(string(e.Type)).
		WithCorrelationID(e.CorrelationID).
		WithSchemaVersion(SchemaVersion).
		WithSource(d.source).
		WithTimestamp(e.OccurredAt).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s message: %w", e.Type, err)
	}

	if err := d.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Type, err)
	}
	return nil
}
