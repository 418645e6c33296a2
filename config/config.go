package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

const DefaultCPUQuery = "rate(container_cpu_usage_seconds_total[1m])"

type Config struct {
	Port                   string        `yaml:"port"`
	AllowedOrigin          string        `yaml:"allowed_origin"`
	RuntimeEndpoint        string        `yaml:"runtime_endpoint"`
	PrometheusURL          string        `yaml:"prometheus_url"`
	CPUQuery               string        `yaml:"cpu_query"`
	CPUFromMetrics         bool          `yaml:"cpu_from_metrics"`
	StreamInterval         time.Duration `yaml:"stream_interval"`
	StatsTimeout           time.Duration `yaml:"stats_timeout"`
	MaxConcurrentFetches   int           `yaml:"max_concurrent_fetches"`
	MetricsCollectInterval time.Duration `yaml:"metrics_collect_interval"`
	LogLevel               string        `yaml:"log_level"`
	RequestLogEnabled      bool          `yaml:"request_log_enabled"`
}

func Defaults() *Config {
	return &Config{
		Port:                 "3003",
		AllowedOrigin:        "http://localhost:3001",
		PrometheusURL:        "http://localhost:9094",
		CPUQuery:             DefaultCPUQuery,
		StreamInterval:       time.Second,
		StatsTimeout:         5 * time.Second,
		MaxConcurrentFetches: 16,
		LogLevel:             "info",
		RequestLogEnabled:    true,
	}
}

func NewConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.AllowedOrigin = getEnv("ALLOWED_ORIGIN", c.AllowedOrigin)
	c.RuntimeEndpoint = getEnv("RUNTIME_ENDPOINT", c.RuntimeEndpoint)
	c.CPUQuery = getEnv("CPU_QUERY", c.CPUQuery)
	c.CPUFromMetrics = getEnvBool("CPU_FROM_METRICS", c.CPUFromMetrics)
	c.StreamInterval = getEnvDuration("STREAM_INTERVAL", c.StreamInterval)
	c.StatsTimeout = getEnvDuration("STATS_TIMEOUT", c.StatsTimeout)
	c.MaxConcurrentFetches = getEnvInt("MAX_CONCURRENT_FETCHES", c.MaxConcurrentFetches)
	c.MetricsCollectInterval = getEnvDuration("METRICS_COLLECT_INTERVAL", c.MetricsCollectInterval)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.RequestLogEnabled = getEnvBool("REQUEST_LOG_ENABLED", c.RequestLogEnabled)

	// An explicitly empty PROMETHEUS_URL disables the metrics passthrough.
	if value, ok := os.LookupEnv("PROMETHEUS_URL"); ok {
		c.PrometheusURL = value
	}

	if c.StreamInterval <= 0 {
		c.StreamInterval = time.Second
	}
	if c.MaxConcurrentFetches <= 0 {
		c.MaxConcurrentFetches = 1
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

var Module = fx.Options(
	fx.Provide(NewConfig),
)
