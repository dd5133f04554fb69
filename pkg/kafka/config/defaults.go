package kafka_config

import "time"

const (
	DefaultKafkaBrokers     = "localhost:9092"
	DefaultClientID         = "clinicbook"
	DefaultAutoCreateTopics = false

	// Appointment events are small and latency matters more than batching.
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerWriteTimeout = 5 * time.Second
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"

	DefaultEnableMiddleware = true
)
