package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds everything the API process needs. Optional backends
// (provider, Postgres, Redis, Temporal, Kafka) fall back to in-process
// implementations when their address is empty.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Provider ProviderConfig

	OfferTTL        time.Duration
	SearchBatchSize int
	RedisAddr       string
	RedisPassword   string
	DatabaseURL     string
	TemporalHost    string
	TemporalQueue   string
	KafkaBrokers    []string
	KafkaTopic      string
	JWTSecret       string
	CORSOrigins     []string
	DefaultContact  ContactDefaults
	PublicBaseURL   string
	LogLevel        string
	RunMigrations   bool
}

// WorkerConfig holds what the Temporal worker needs
type WorkerConfig struct {
	Provider      ProviderConfig
	DatabaseURL   string
	TemporalHost  string
	TemporalQueue string
	LogLevel      string
}

type ProviderConfig struct {
	URL         string
	Token       string
	Name        string
	Timeout     time.Duration
	MinInterval time.Duration
}

type ContactDefaults struct {
	Phone string
	Email string
}

func defaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Name:    "gds",
		Timeout: 3 * time.Minute,
	}
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    4 * time.Minute,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		Provider:        defaultProviderConfig(),
		OfferTTL:        30 * time.Minute,
		SearchBatchSize: 5,
		TemporalQueue:   "fare-booking-ticketing",
		KafkaTopic:      "booking-events",
		CORSOrigins:     []string{"*"},
		DefaultContact: ContactDefaults{
			Phone: "+70000000000",
			Email: "booking@example.com",
		},
		LogLevel: "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	loadProviderConfig(&cfg.Provider, &errs)

	setDurationFromEnv(&cfg.OfferTTL, "OFFER_TTL", &errs)
	setIntFromEnv(&cfg.SearchBatchSize, "SEARCH_BATCH_SIZE", &errs)
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.TemporalHost = strings.TrimSpace(os.Getenv("TEMPORAL_HOST"))
	setStringFromEnv(&cfg.TemporalQueue, "TEMPORAL_TASK_QUEUE")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitAndTrim(origins)
	}
	setStringFromEnv(&cfg.DefaultContact.Phone, "DEFAULT_CONTACT_PHONE")
	setStringFromEnv(&cfg.DefaultContact.Email, "DEFAULT_CONTACT_EMAIL")
	setStringFromEnv(&cfg.PublicBaseURL, "PUBLIC_BASE_URL")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	}
	if cfg.OfferTTL <= 0 {
		errs = append(errs, fmt.Errorf("OFFER_TTL must be > 0"))
	}
	if cfg.SearchBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_BATCH_SIZE must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func LoadWorkerConfig() (WorkerConfig, error) {
	cfg := WorkerConfig{
		Provider:      defaultProviderConfig(),
		TemporalHost:  "localhost:7233",
		TemporalQueue: "fare-booking-ticketing",
		LogLevel:      "info",
	}
	var errs []error

	loadProviderConfig(&cfg.Provider, &errs)
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	setStringFromEnv(&cfg.TemporalHost, "TEMPORAL_HOST")
	setStringFromEnv(&cfg.TemporalQueue, "TEMPORAL_TASK_QUEUE")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required for the worker"))
	}

	return cfg, errors.Join(errs...)
}

func loadProviderConfig(p *ProviderConfig, errs *[]error) {
	p.URL = strings.TrimRight(strings.TrimSpace(os.Getenv("PROVIDER_URL")), "/")
	p.Token = os.Getenv("PROVIDER_TOKEN")
	setStringFromEnv(&p.Name, "PROVIDER_NAME")
	setDurationFromEnv(&p.Timeout, "PROVIDER_TIMEOUT", errs)
	setDurationFromEnv(&p.MinInterval, "PROVIDER_MIN_INTERVAL", errs)
	if p.URL != "" && p.Token == "" {
		*errs = append(*errs, fmt.Errorf("PROVIDER_TOKEN is required when PROVIDER_URL is set"))
	}
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
