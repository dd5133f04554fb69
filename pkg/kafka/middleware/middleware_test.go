package kafka_middleware

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clinicbook/pkg/kafka"
	"clinicbook/pkg/logger"
	"clinicbook/pkg/monitoring"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmedMessage() kafka.Message {
	return kafka.Message{
		Key:     "appt-1",
		Topic:   "appointment-events",
		Headers: map[string]string{kafka.HeaderEventType: "appointment.confirmed"},
	}
}

func TestMetricsProducerMiddleware_CountsByResult(t *testing.T) {
	m := monitoring.New()
	mw := MetricsProducerMiddleware(m)
	brokerDown := errors.New("broker down")

	require.NoError(t, mw(context.Background(), confirmedMessage(), func(context.Context, kafka.Message) error { return nil }))
	err := mw(context.Background(), confirmedMessage(), func(context.Context, kafka.Message) error { return brokerDown })
	require.ErrorIs(t, err, brokerDown)

	expected := `
# HELP clinicbook_events_published_total Total number of appointment events handed to a dispatcher
# TYPE clinicbook_events_published_total counter
clinicbook_events_published_total{result="error",type="appointment.confirmed"} 1
clinicbook_events_published_total{result="ok",type="appointment.confirmed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "clinicbook_events_published_total"))
}

func TestLoggingProducerMiddleware_PassesResultThrough(t *testing.T) {
	mw := LoggingProducerMiddleware(logger.Nop())
	brokerDown := errors.New("broker down")

	err := mw(context.Background(), confirmedMessage(), func(_ context.Context, msg kafka.Message) error {
		assert.Equal(t, "appt-1", msg.Key)
		return brokerDown
	})

	assert.ErrorIs(t, err, brokerDown)
}
