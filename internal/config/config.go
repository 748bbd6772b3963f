package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceName    string `yaml:"service_name"`
	Env            string `yaml:"env"`
	DatabaseURL    string `yaml:"database_url"`
	RedisURL       string `yaml:"redis_url"`
	KafkaBrokers   string `yaml:"kafka_brokers"`
	KafkaGroupID   string `yaml:"kafka_group_id"`
	NatsURL        string `yaml:"nats_url"`
	JaegerEndpoint string `yaml:"jaeger_endpoint"`
	Port           string `yaml:"port"`
	GRPCPort       string `yaml:"grpc_port"`

	PSP      PSPConfig      `yaml:"psp"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Issue    IssueConfig    `yaml:"issue"`
	Consumer ConsumerConfig `yaml:"consumer"`

	// LockExpiry is the TTL of a sync job's lock. A running pass keeps
	// extending it every half expiry, so it bounds how long a crashed
	// instance blocks the job, not how long a pass may take.
	LockExpiry time.Duration      `yaml:"lock_expiry"`
	Sync       map[string]SyncJob `yaml:"sync"`
	Translate  map[string]string  `yaml:"translate"`
}

type PSPConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RetryCount     int           `yaml:"retry_count"`
	MaxFailures    uint32        `yaml:"max_failures"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout"`
}

type LedgerConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type IssueConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ConsumerConfig tunes redelivery. Messages failing at a gateway are retried
// until they succeed; MaxAttempts is when the failure gets escalated.
type ConsumerConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// SyncJob configures one reconciliation job. Threshold is the age boundary
// for waiting records; Window and PageSize only apply to fraud detection
// polling.
type SyncJob struct {
	Schedule  string        `yaml:"schedule"`
	Threshold time.Duration `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
	PageSize  int           `yaml:"page_size"`
}

func defaults() *Config {
	return &Config{
		ServiceName:  "pix-lifecycle",
		Env:          "production",
		KafkaGroupID: "pix-lifecycle",
		Port:         "8082",
		GRPCPort:     "9092",
		PSP: PSPConfig{
			Timeout:        10 * time.Second,
			RetryCount:     2,
			MaxFailures:    5,
			BreakerTimeout: 30 * time.Second,
		},
		Ledger:     LedgerConfig{Timeout: 5 * time.Second},
		Issue:      IssueConfig{Timeout: 5 * time.Second},
		Consumer:   ConsumerConfig{MaxAttempts: 3, Backoff: time.Second, MaxBackoff: 30 * time.Second},
		LockExpiry: 5 * time.Minute,
		Sync: map[string]SyncJob{
			"waiting_recent_payment":         {Schedule: "@every 1m", Threshold: 30 * time.Minute},
			"waiting_recent_pix_devolution":  {Schedule: "@every 1m", Threshold: 30 * time.Minute},
			"waiting_pix_refund_devolution":  {Schedule: "@every 5m", Threshold: 10 * time.Minute},
			"waiting_warning_pix_devolution": {Schedule: "@every 5m", Threshold: 10 * time.Minute},
			"received_pix_fraud_detection":   {Schedule: "@every 10m", Window: 24 * time.Hour, PageSize: 100},
			"pending_pix_fraud_detection":    {Schedule: "@every 5m", Threshold: 5 * time.Minute},
		},
	}
}

// Load reads defaults, then the YAML file at path when path is not empty,
// then environment overrides. ${VAR} references in the file are expanded.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	overrides := map[string]*string{
		"DATABASE_URL":    &cfg.DatabaseURL,
		"REDIS_URL":       &cfg.RedisURL,
		"KAFKA_BROKERS":   &cfg.KafkaBrokers,
		"NATS_URL":        &cfg.NatsURL,
		"JAEGER_ENDPOINT": &cfg.JaegerEndpoint,
		"PORT":            &cfg.Port,
		"GRPC_PORT":       &cfg.GRPCPort,
		"PSP_BASE_URL":    &cfg.PSP.BaseURL,
		"LEDGER_BASE_URL": &cfg.Ledger.BaseURL,
		"ENV":             &cfg.Env,
	}
	for key, field := range overrides {
		if value := os.Getenv(key); value != "" {
			*field = value
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Brokers() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func (c *Config) Validate() error {
	var errs []error
	for name, job := range c.Sync {
		if job.Schedule == "" {
			errs = append(errs, fmt.Errorf("sync.%s.schedule is empty", name))
		}
		if job.Threshold < 0 {
			errs = append(errs, fmt.Errorf("sync.%s.threshold must not be negative", name))
		}
		if job.Threshold == 0 && job.Window <= 0 {
			errs = append(errs, fmt.Errorf("sync.%s needs a positive threshold or window", name))
		}
	}
	if c.LockExpiry <= 0 {
		errs = append(errs, errors.New("lock_expiry must be positive"))
	}
	return errors.Join(errs...)
}
