package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"clinicbook/pkg/client"
	"clinicbook/pkg/logger"
)

type Config struct {
	StorageDriver string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	DefaultTimeZone string
	DefaultLeadTime time.Duration
	HoldTTL         time.Duration
	MaxListRange    time.Duration

	ManageTokenSecret string
	ManageTokenTTL    time.Duration
	PublicBaseURL     string

	NotificationsEnabled bool
	NotificationTopic    string
	NotificationDLQTopic string
	NotificationTimeout  time.Duration
	RedisAddr            string
	ReminderOffsets      []time.Duration
	ReminderQueue        string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		StorageDriver: strings.ToLower(getEnvStr(EnvStorageDriver, DefaultStorageDriver)),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresURL:      getEnvStr(EnvPostgresURL, DefaultPostgresURL),
		PostgresMaxConns: getEnvNum(EnvPostgresMaxConns, DefaultPostgresMaxConns),
		PostgresMinConns: getEnvNum(EnvPostgresMinConns, DefaultPostgresMinConns),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		DefaultTimeZone: getEnvStr(EnvDefaultTimeZone, DefaultTimeZone),
		DefaultLeadTime: getEnvDuration(EnvDefaultLeadTime, DefaultLeadTime),
		HoldTTL:         getEnvDuration(EnvHoldTTL, DefaultHoldTTL),
		MaxListRange:    getEnvDuration(EnvMaxListRange, DefaultMaxListRange),

		ManageTokenSecret: getEnvStr(EnvManageTokenSecret, ""),
		ManageTokenTTL:    getEnvDuration(EnvManageTokenTTL, DefaultManageTokenTTL),
		PublicBaseURL:     strings.TrimRight(getEnvStr(EnvPublicBaseURL, DefaultPublicBaseURL), "/"),

		NotificationsEnabled: getEnvBool(EnvNotificationsEnabled, DefaultNotificationsEnabled),
		NotificationTopic:    getEnvStr(EnvNotificationTopic, DefaultNotificationTopic),
		NotificationDLQTopic: getEnvStr(EnvNotificationDLQTopic, DefaultNotificationDLQTopic),
		NotificationTimeout:  getEnvDuration(EnvNotificationTimeout, DefaultNotificationTimeout),
		RedisAddr:            getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		ReminderOffsets:      getEnvDurations(EnvReminderOffsets, DefaultReminderOffsets),
		ReminderQueue:        getEnvStr(EnvReminderQueue, DefaultReminderQueue),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    getEnvStr(EnvLogFormat, logger.JSON),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// SetStorage connects the client for the configured storage driver. The
// memory driver needs no connection.
func (cfg *Config) SetStorage() {
	switch cfg.StorageDriver {
	case StorageMongo:
		cfg.SetMongo()
	case StoragePostgres:
		cfg.SetPostgres()
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresURL, int32(cfg.PostgresMaxConns), int32(cfg.PostgresMinConns), cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StorageDriver {
	case StorageMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StoragePostgres:
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresURL) {
			errors = append(errors, fmt.Sprintf("PostgresURL must start with 'postgres://' or 'postgresql://', got: %s", redactURI(cfg.PostgresURL)))
		}
		if cfg.PostgresMaxConns <= 0 {
			errors = append(errors, fmt.Sprintf("PostgresMaxConns must be positive, got: %d", cfg.PostgresMaxConns))
		}
		if cfg.PostgresMinConns < 0 || cfg.PostgresMinConns > cfg.PostgresMaxConns {
			errors = append(errors, fmt.Sprintf("PostgresMinConns must be between 0 and PostgresMaxConns (%d), got: %d", cfg.PostgresMaxConns, cfg.PostgresMinConns))
		}
	case StorageMemory:
	default:
		errors = append(errors, fmt.Sprintf("StorageDriver must be one of mongo, postgres, memory, got: %s", cfg.StorageDriver))
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if _, err := time.LoadLocation(cfg.DefaultTimeZone); err != nil || cfg.DefaultTimeZone == "" {
		errors = append(errors, fmt.Sprintf("DefaultTimeZone must be an IANA zone name, got: %s", cfg.DefaultTimeZone))
	}
	if cfg.DefaultLeadTime < 0 {
		errors = append(errors, fmt.Sprintf("DefaultLeadTime cannot be negative, got: %s", cfg.DefaultLeadTime))
	}
	if cfg.HoldTTL <= 0 {
		errors = append(errors, fmt.Sprintf("HoldTTL must be positive, got: %s", cfg.HoldTTL))
	}
	if cfg.MaxListRange <= 0 {
		errors = append(errors, fmt.Sprintf("MaxListRange must be positive, got: %s", cfg.MaxListRange))
	}

	if len(cfg.ManageTokenSecret) < 32 {
		errors = append(errors, "ManageTokenSecret must be at least 32 characters")
	}
	if cfg.ManageTokenTTL <= 0 {
		errors = append(errors, fmt.Sprintf("ManageTokenTTL must be positive, got: %s", cfg.ManageTokenTTL))
	}
	if u, err := url.Parse(cfg.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("PublicBaseURL must be an absolute URL, got: %s", cfg.PublicBaseURL))
	}

	if cfg.NotificationsEnabled {
		if cfg.NotificationTopic == "" {
			errors = append(errors, "NotificationTopic cannot be empty when notifications are enabled")
		}
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty when notifications are enabled")
		}
	}
	if cfg.NotificationTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("NotificationTimeout must be positive, got: %s", cfg.NotificationTimeout))
	}
	for _, off := range cfg.ReminderOffsets {
		if off <= 0 {
			errors = append(errors, fmt.Sprintf("ReminderOffsets must be positive, got: %s", off))
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"storage_driver", cfg.StorageDriver,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_url", redactURI(cfg.PostgresURL),
		"postgres_max_conns", cfg.PostgresMaxConns,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"default_time_zone", cfg.DefaultTimeZone,
		"default_lead_time", cfg.DefaultLeadTime,
		"hold_ttl", cfg.HoldTTL,
		"manage_token_ttl", cfg.ManageTokenTTL,
		"public_base_url", cfg.PublicBaseURL,
		"notifications_enabled", cfg.NotificationsEnabled,
		"notification_topic", cfg.NotificationTopic,
		"redis_addr", cfg.RedisAddr,
		"reminder_offsets", cfg.ReminderOffsets,
	)
}

func redactURI(uri string) string {
	credentialRegex := regexp.MustCompile(`^([a-z+]+://)[^:/@]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvDurations reads a comma separated list such as "24h,2h". An
// unparsable entry makes the whole value fall back.
func getEnvDurations(key, fallback string) []time.Duration {
	if out, ok := parseDurations(os.Getenv(key)); ok {
		return out
	}
	out, _ := parseDurations(fallback)
	return out
}

func parseDurations(value string) ([]time.Duration, bool) {
	if strings.TrimSpace(value) == "" {
		return nil, false
	}
	var out []time.Duration
	for _, part := range strings.Split(value, ",") {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return nil, false
		}
		out = append(out, d)
	}
	return out, true
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}
