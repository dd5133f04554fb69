package kafka

import "errors"

var (
	ErrProducerClosed = errors.New("kafka producer is closed")
	ErrNoBrokers      = errors.New("at least one kafka broker is required")
	ErrEmptyTopic     = errors.New("kafka topic cannot be empty")

	// ErrInvalidMessage wraps failures building a message, usually a payload
	// that cannot be marshalled.
	ErrInvalidMessage = errors.New("invalid message")
	ErrEmptyKey       = errors.New("message key cannot be empty")
	ErrEmptyValue     = errors.New("message value cannot be empty")
)
