package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddress != defaultListenAddress {
		t.Errorf("expected default listen address, got %s", cfg.ListenAddress)
	}
	if cfg.HTTPReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout, got %v", cfg.HTTPReadTimeout)
	}
	if cfg.KafkaEnabled() {
		t.Errorf("expected Kafka disabled by default")
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAGNAROK_LISTEN_ADDRESS", ":9999")
	t.Setenv("RAGNAROK_HTTP_READ_TIMEOUT_MS", "2500")
	t.Setenv("RAGNAROK_KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("RAGNAROK_KAFKA_TOPIC", "match-events")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddress != ":9999" {
		t.Errorf("expected overridden listen address, got %s", cfg.ListenAddress)
	}
	if cfg.HTTPReadTimeout != 2500*time.Millisecond {
		t.Errorf("expected 2500ms read timeout, got %v", cfg.HTTPReadTimeout)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "broker1:9092" {
		t.Errorf("unexpected kafka brokers: %v", cfg.KafkaBrokers)
	}
	if !cfg.KafkaEnabled() {
		t.Errorf("expected Kafka enabled once brokers and topic are set")
	}
}

func TestParsePositiveMillisRejectsNonPositive(t *testing.T) {
	if _, err := parsePositiveMillis("0"); err == nil {
		t.Errorf("expected error for zero value")
	}
	if _, err := parsePositiveMillis("-5"); err == nil {
		t.Errorf("expected error for negative value")
	}
	if _, err := parsePositiveMillis("abc"); err == nil {
		t.Errorf("expected error for non-numeric value")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RAGNAROK_PROPERTIES_PATH", "RAGNAROK_LISTEN_ADDRESS", "RAGNAROK_LOG_PATH",
		"RAGNAROK_HTTP_READ_TIMEOUT_MS", "RAGNAROK_HTTP_WRITE_TIMEOUT_MS",
		"RAGNAROK_SHUTDOWN_TIMEOUT_MS", "RAGNAROK_SECRET_KEY", "AUTH_SERVICE_URL",
		"RAGNAROK_KAFKA_BROKERS", "RAGNAROK_KAFKA_TOPIC", "RAGNAROK_ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}
