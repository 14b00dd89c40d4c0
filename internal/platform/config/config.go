package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	pstrings "barangay/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr             string
	LogLevel         string
	DatabaseURL      string
	ActorTokenSecret string
	ActorTokenIssuer string
	TxTimeout        time.Duration
	// TracingEndpoint is an OTLP/gRPC collector address. Empty disables export.
	TracingEndpoint string
	Redis            RedisConfig
	Kafka            KafkaConfig
	Credential       CredentialConfig
	Outbox           OutboxConfig
}

// RedisConfig configures the active-credential cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the outbox publisher. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// CredentialConfig holds the credential lifetime policy.
type CredentialConfig struct {
	ValidityWindow   time.Duration
	RefreshThreshold time.Duration
	// ChecksumKey switches checksums from plain SHA-256 to HMAC-SHA256.
	ChecksumKey string
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// Defaults applied when the environment leaves a value unset.
var (
	DefaultValidityWindow   = 24 * time.Hour
	DefaultRefreshThreshold = 2 * time.Hour
	DefaultTxTimeout        = 5 * time.Second
	DefaultPollInterval     = time.Second
)

const devActorTokenSecret = "dev-actor-token-secret"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return d
	}

	cfg := Server{
		Addr:             getenv("ADDR", ":8080"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		ActorTokenSecret: getenv("ACTOR_TOKEN_SECRET", devActorTokenSecret),
		ActorTokenIssuer: getenv("ACTOR_TOKEN_ISSUER", "barangay"),
		TxTimeout:        duration("TX_TIMEOUT", DefaultTxTimeout),
		TracingEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			CacheTTL:     duration("REDIS_CACHE_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: pstrings.SplitList(os.Getenv("KAFKA_BROKERS"), ","),
			Topic:   getenv("KAFKA_TOPIC", "barangay.verification.events"),
		},
		Credential: CredentialConfig{
			ValidityWindow:   duration("CREDENTIAL_VALIDITY_WINDOW", DefaultValidityWindow),
			RefreshThreshold: duration("CREDENTIAL_REFRESH_THRESHOLD", DefaultRefreshThreshold),
			ChecksumKey:      os.Getenv("CREDENTIAL_CHECKSUM_KEY"),
		},
		Outbox: OutboxConfig{
			PollInterval: duration("OUTBOX_POLL_INTERVAL", DefaultPollInterval),
			BatchSize:    100,
		},
	}
	if len(errs) > 0 {
		return Server{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (s Server) Validate() error {
	var errs []error
	if s.Credential.ValidityWindow <= 0 {
		errs = append(errs, errors.New("credential validity window must be positive"))
	}
	if s.Credential.RefreshThreshold < 0 {
		errs = append(errs, errors.New("credential refresh threshold cannot be negative"))
	}
	if s.Credential.RefreshThreshold >= s.Credential.ValidityWindow {
		errs = append(errs, errors.New("credential refresh threshold must be smaller than the validity window"))
	}
	if s.TxTimeout < 0 {
		errs = append(errs, errors.New("transaction timeout cannot be negative"))
	}
	if s.Outbox.PollInterval <= 0 {
		errs = append(errs, errors.New("outbox poll interval must be positive"))
	}
	if len(s.Kafka.Brokers) > 0 && s.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

// UsingDevSecret reports whether tokens are checked with the built-in dev secret.
func (s Server) UsingDevSecret() bool {
	return s.ActorTokenSecret == devActorTokenSecret
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
