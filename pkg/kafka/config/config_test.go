package kafka_config

import (
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " broker-1:9092, ,broker-2:9092 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[0] != "broker-1:9092" || cfg.Brokers[1] != "broker-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Brokers)
	}
	if cfg.ProducerCompression != DefaultProducerCompression {
		t.Errorf("expected %s compression, got %s", DefaultProducerCompression, cfg.ProducerCompression)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Setenv(EnvKafkaProducerCompression, "brotli")
	t.Setenv(EnvKafkaProducerRequireAcks, "2")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "ProducerCompression") || !strings.Contains(err.Error(), "ProducerRequireAcks") {
		t.Errorf("expected both problems reported, got %q", err.Error())
	}
}

func TestCodecs(t *testing.T) {
	cfg := &Config{ProducerCompression: "zstd", ProducerRequireAcks: 1}
	if cfg.Compression() != compress.Zstd {
		t.Errorf("expected zstd, got %v", cfg.Compression())
	}
	if cfg.RequiredAcks() != kafka.RequireOne {
		t.Errorf("expected leader acks, got %v", cfg.RequiredAcks())
	}

	cfg = &Config{ProducerCompression: "none", ProducerRequireAcks: -1}
	if cfg.Compression() != 0 || cfg.RequiredAcks() != kafka.RequireAll {
		t.Errorf("unexpected codecs %v %v", cfg.Compression(), cfg.RequiredAcks())
	}
}
