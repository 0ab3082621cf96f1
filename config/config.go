package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Routing      RoutingConfig      `yaml:"routing"`
	Verification VerificationConfig `yaml:"verification"`
	RefundPolicy RefundPolicyConfig `yaml:"refund_policy"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers          []string `yaml:"brokers"`
	FulfillmentTopic string   `yaml:"fulfillment_topic"`
	GroupID          string   `yaml:"group_id"`
}

// RoutingConfig names the channel policy explicitly instead of burying a
// literal in the engine: the default is what a booking gets when no routing
// decision was recorded during search.
type RoutingConfig struct {
	DefaultChannel      string `yaml:"default_channel"`
	DecisionTTLSeconds  int    `yaml:"decision_ttl_seconds"`
	StoreTimeoutSeconds int    `yaml:"store_timeout_seconds"`
}

func (r RoutingConfig) DecisionTTL() time.Duration {
	return time.Duration(r.DecisionTTLSeconds) * time.Second
}

func (r RoutingConfig) StoreTimeout() time.Duration {
	return time.Duration(r.StoreTimeoutSeconds) * time.Second
}

type VerificationConfig struct {
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`
	RateLimitMax           int `yaml:"rate_limit_max"`
	FailedAttemptTTLHours  int `yaml:"failed_attempt_ttl_hours"`
	SecurityAlertThreshold int `yaml:"security_alert_threshold"`
}

func (v VerificationConfig) RateLimitWindow() time.Duration {
	return time.Duration(v.RateLimitWindowSeconds) * time.Second
}

func (v VerificationConfig) FailedAttemptTTL() time.Duration {
	return time.Duration(v.FailedAttemptTTLHours) * time.Hour
}

// RefundPolicyConfig is the business-configured tier table. Tiers are
// ordered by hours before departure, largest first; refunds are pro-rated
// between adjacent tiers.
type RefundPolicyConfig struct {
	Tiers           []RefundTierConfig `yaml:"tiers"`
	LockWindowHours int                `yaml:"lock_window_hours"`
}

type RefundTierConfig struct {
	HoursBefore int     `yaml:"hours_before"`
	RefundPct   float64 `yaml:"refund_pct"`
	FeeCents    int64   `yaml:"fee_cents"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
