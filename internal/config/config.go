// Package config loads runtime settings for the match engine process,
// layering defaults, an optional .properties file, and environment
// variables. Grounded on
// services/gamification/internal/config/config.go.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures every runtime setting the process needs to boot.
type Config struct {
	ListenAddress    string
	LogFilePath      string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration
	PropertiesPath   string

	SecretKey      string
	AuthServiceURL string

	KafkaBrokers []string
	KafkaTopic   string

	AllowedOrigins []string
}

const (
	defaultListenAddress = ":8080"
	defaultLogFile       = "logs/ragnarok.log"
	defaultReadTimeout   = 5 * time.Second
	defaultWriteTimeout  = 10 * time.Second
	defaultShutdown      = 5 * time.Second
	defaultPropsPath     = "ragnarok.properties"
)

// defaultAllowedOrigins mirrors original_source/ragnarok.py:ALLOWED_ROOTS.
var defaultAllowedOrigins = []string{"localhost", "127.0.0.1"}

// Load resolves configuration by layering defaults, an optional properties
// file, and finally environment variables. The properties file location
// can be overridden with RAGNAROK_PROPERTIES_PATH.
func Load() (Config, error) {
	cfg := Config{
		ListenAddress:    defaultListenAddress,
		LogFilePath:      filepath.Clean(defaultLogFile),
		HTTPReadTimeout:  defaultReadTimeout,
		HTTPWriteTimeout: defaultWriteTimeout,
		ShutdownTimeout:  defaultShutdown,
		AllowedOrigins:   append([]string(nil), defaultAllowedOrigins...),
	}

	propsPath := strings.TrimSpace(os.Getenv("RAGNAROK_PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	switch key {
	case "listen_address":
		if value == "" {
			return errors.New("listen_address cannot be empty")
		}
		cfg.ListenAddress = value
	case "log_path":
		if value == "" {
			return errors.New("log_path cannot be empty")
		}
		cfg.LogFilePath = filepath.Clean(value)
	case "http_read_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPReadTimeout = d
	case "http_write_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPWriteTimeout = d
	case "shutdown_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.ShutdownTimeout = d
	case "secret_key":
		cfg.SecretKey = value
	case "auth_service_url":
		cfg.AuthServiceURL = value
	case "kafka_brokers":
		cfg.KafkaBrokers = splitCSV(value)
	case "kafka_topic":
		cfg.KafkaTopic = value
	case "allowed_origins":
		if value != "" {
			cfg.AllowedOrigins = splitCSV(value)
		}
	default:
		// Unknown keys are ignored to keep the loader forward-compatible.
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookupEnvTrimmed("RAGNAROK_LISTEN_ADDRESS"); ok {
		if v == "" {
			return errors.New("RAGNAROK_LISTEN_ADDRESS cannot be empty")
		}
		cfg.ListenAddress = v
	}
	if v, ok := lookupEnvTrimmed("RAGNAROK_LOG_PATH"); ok {
		if v == "" {
			return errors.New("RAGNAROK_LOG_PATH cannot be empty")
		}
		cfg.LogFilePath = filepath.Clean(v)
	}
	if v, ok := lookupEnvTrimmed("RAGNAROK_HTTP_READ_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("RAGNAROK_HTTP_READ_TIMEOUT_MS: %w", err)
		}
		cfg.HTTPReadTimeout = d
	}
	if v, ok := lookupEnvTrimmed("RAGNAROK_HTTP_WRITE_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("RAGNAROK_HTTP_WRITE_TIMEOUT_MS: %w", err)
		}
		cfg.HTTPWriteTimeout = d
	}
	if v, ok := lookupEnvTrimmed("RAGNAROK_SHUTDOWN_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("RAGNAROK_SHUTDOWN_TIMEOUT_MS: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if v, ok := lookupEnvTrimmed("RAGNAROK_SECRET_KEY"); ok {
		cfg.SecretKey = v
	}
	if v, ok := lookupEnvTrimmed("AUTH_SERVICE_URL"); ok {
		cfg.AuthServiceURL = v
	}
	if v, ok := lookupEnvTrimmed("RAGNAROK_KAFKA_BROKERS"); ok && v != "" {
		cfg.KafkaBrokers = splitCSV(v)
	}
	if v, ok := lookupEnvTrimmed("RAGNAROK_KAFKA_TOPIC"); ok {
		cfg.KafkaTopic = v
	}
	if v, ok := lookupEnvTrimmed("RAGNAROK_ALLOWED_ORIGINS"); ok && v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func parsePositiveMillis(v string) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errors.New("value cannot be empty")
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if ms <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// KafkaEnabled reports whether the event outbox should use a real Kafka
// publisher rather than the no-op implementation.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}
