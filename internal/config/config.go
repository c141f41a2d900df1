// Package config loads service configuration from the environment, with an
// optional YAML overlay file for the matcher and correlator tuning knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full responderd configuration.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	LogLevel    string

	DatabaseURL string

	KafkaBrokers            []string
	KafkaTopicSignals       string
	KafkaTopicNotifications string
	ConsumerGroup           string
	IntakeMaxPerSecond      int

	Correlator CorrelatorConfig `yaml:"correlator"`
	Matcher    MatcherConfig    `yaml:"matcher"`
	Notifier   NotifierConfig   `yaml:"notifier"`
	Webhook    WebhookConfig    `yaml:"webhook"`
}

// CorrelatorConfig tunes signal-to-event correlation.
type CorrelatorConfig struct {
	WindowMinutes int `yaml:"windowMinutes"`
	MinCount      int `yaml:"minCount"`
}

// Window returns the correlation window as a duration.
func (c CorrelatorConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// MatcherConfig tunes NGO relevance ranking.
type MatcherConfig struct {
	CapabilityWeight      float64 `yaml:"capabilityWeight"`
	GeographicWeight      float64 `yaml:"geographicWeight"`
	CapacityWeight        float64 `yaml:"capacityWeight"`
	PartialCoverageCredit float64 `yaml:"partialCoverageCredit"`
	TopK                  int     `yaml:"topK"`
	MinScore              float64 `yaml:"minScore"`
}

// NotifierConfig tunes dispatch suppression and rate limiting.
type NotifierConfig struct {
	SuppressDuplicateMinutes int `yaml:"suppressDuplicateMinutes"`
	RateLimitPerMinute       int `yaml:"rateLimitPerMinute"`
}

// WebhookConfig configures the outbound webhook channel. An empty URL
// disables the channel.
type WebhookConfig struct {
	URL                string `yaml:"url"`
	TimeoutSeconds     int    `yaml:"timeoutSeconds"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	MinSeverity        string `yaml:"minSeverity"`
	AuthTokenEnv       string `yaml:"authTokenEnv"`
}

// Load reads the environment and, when CONFIG_FILE is set, overlays the YAML
// file on top of the defaults before applying environment overrides.
func Load() (Config, error) {
	cfg := Config{
		Correlator: CorrelatorConfig{WindowMinutes: 30, MinCount: 3},
		Matcher: MatcherConfig{
			CapabilityWeight:      0.5,
			GeographicWeight:      0.3,
			CapacityWeight:        0.2,
			PartialCoverageCredit: 0.5,
			TopK:                  5,
			MinScore:              0.3,
		},
		Notifier: NotifierConfig{
			SuppressDuplicateMinutes: 60,
			RateLimitPerMinute:       100,
		},
		Webhook: WebhookConfig{
			TimeoutSeconds: 10,
			MinSeverity:    "low",
		},
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.MetricsAddr = getEnv("METRICS_ADDR", ":9090")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.KafkaBrokers = splitCSV(getEnv("KAFKA_BROKERS", ""))
	cfg.KafkaTopicSignals = getEnv("KAFKA_TOPIC_SIGNALS", "signals.raw")
	cfg.KafkaTopicNotifications = getEnv("KAFKA_TOPIC_NOTIFICATIONS", "notifications.matched")
	cfg.ConsumerGroup = getEnv("CONSUMER_GROUP", "disaster-response")
	cfg.IntakeMaxPerSecond = getEnvInt("INTAKE_MAX_PER_SECOND", 100)

	if url := getEnv("WEBHOOK_URL", ""); url != "" {
		cfg.Webhook.URL = url
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if c.Correlator.WindowMinutes <= 0 {
		return fmt.Errorf("correlator window must be positive, got %d minutes", c.Correlator.WindowMinutes)
	}
	if c.Correlator.MinCount <= 0 {
		return fmt.Errorf("correlator min count must be positive, got %d", c.Correlator.MinCount)
	}
	sum := c.Matcher.CapabilityWeight + c.Matcher.GeographicWeight + c.Matcher.CapacityWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("matcher weights must sum to 1, got %g", sum)
	}
	if c.Matcher.TopK <= 0 {
		return fmt.Errorf("matcher top K must be positive, got %d", c.Matcher.TopK)
	}
	if c.Matcher.MinScore < 0 || c.Matcher.MinScore > 1 {
		return fmt.Errorf("matcher min score must be in [0, 1], got %g", c.Matcher.MinScore)
	}
	return nil
}

// WebhookAuthToken resolves the bearer token named by AuthTokenEnv, or the
// WEBHOOK_AUTH_TOKEN variable when unset.
func (c Config) WebhookAuthToken() string {
	key := c.Webhook.AuthTokenEnv
	if key == "" {
		key = "WEBHOOK_AUTH_TOKEN"
	}
	return strings.TrimSpace(os.Getenv(key))
}

func splitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}
