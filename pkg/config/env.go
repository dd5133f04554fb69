package config

const (
	EnvStorageDriver = "STORAGE_DRIVER"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresURL      = "POSTGRES_URL"
	EnvPostgresMaxConns = "POSTGRES_MAX_CONNS"
	EnvPostgresMinConns = "POSTGRES_MIN_CONNS"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultTimeZone = "DEFAULT_TIME_ZONE"
	EnvDefaultLeadTime = "DEFAULT_LEAD_TIME"
	EnvHoldTTL         = "HOLD_TTL"
	EnvMaxListRange    = "MAX_LIST_RANGE"

	EnvManageTokenSecret = "MANAGE_TOKEN_SECRET"
	EnvManageTokenTTL    = "MANAGE_TOKEN_TTL"
	EnvPublicBaseURL     = "PUBLIC_BASE_URL"

	EnvNotificationsEnabled = "NOTIFICATIONS_ENABLED"
	EnvNotificationTopic    = "NOTIFICATION_TOPIC"
	EnvNotificationDLQTopic = "NOTIFICATION_DLQ_TOPIC"
	EnvNotificationTimeout  = "NOTIFICATION_TIMEOUT"
	EnvRedisAddr            = "REDIS_ADDR"
	EnvReminderOffsets      = "REMINDER_OFFSETS"
	EnvReminderQueue        = "REMINDER_QUEUE"
)

const EnvLogFormat = "LOG_FORMAT"
