package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all process configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Planhat   PlanhatConfig
	Hull      HullConfig
	Telemetry TelemetryConfig
	Profiling ProfilingConfig
}

// AppConfig holds process identity settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds the sync journal database settings. The journal is
// optional; when disabled no outcomes are persisted.
type DatabaseConfig struct {
	Enabled         bool
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// RedisConfig holds the notification deduplication store settings. When
// disabled an in-memory store is used.
type RedisConfig struct {
	Enabled        bool
	Host           string
	Port           int
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// PlanhatConfig holds Planhat API client settings
type PlanhatConfig struct {
	// BaseURLTemplate is the API root; "{api_prefix}" is replaced per connector.
	BaseURLTemplate string
	AnalyticsURL    string
	Timeout         time.Duration
	RateLimit       float64 // requests per second, 0 disables limiting
	RateBurst       int
}

// HullConfig holds platform client settings
type HullConfig struct {
	// Organization is used when a notification does not name its organization.
	Organization string
	// Secret verifies X-Hull-Token and authenticates firehose calls.
	Secret          string
	FirehoseTimeout time.Duration
	RequireToken    bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	MetricsEnabled    bool
	LogsEnabled       bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsInterval   time.Duration
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
}

// ProfilingConfig holds Pyroscope configuration
type ProfilingConfig struct {
	Enabled            bool
	ServerAddress      string
	ApplicationName    string
	BasicAuthUser      string
	BasicAuthPassword  string
	ProfileAllocations bool
	SpanProfiles       bool
}

// Load reads configuration. Priority, highest first:
// 1. environment variables with the PLANHAT_ prefix (PLANHAT_HULL_SECRET)
// 2. config.toml in ., ./config or /app
// 3. built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds the configuration from an already populated viper
// instance, enabling PLANHAT_ environment overrides on it.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("PLANHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("database.enabled"),
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Enabled:        v.GetBool("redis.enabled"),
			Host:           v.GetString("redis.host"),
			Port:           v.GetInt("redis.port"),
			Password:       v.GetString("redis.password"),
			DB:             v.GetInt("redis.db"),
			IdempotencyTTL: v.GetDuration("redis.idempotency_ttl"),
		},
		Planhat: PlanhatConfig{
			BaseURLTemplate: v.GetString("planhat.base_url_template"),
			AnalyticsURL:    v.GetString("planhat.analytics_url"),
			Timeout:         v.GetDuration("planhat.timeout"),
			RateLimit:       v.GetFloat64("planhat.rate_limit"),
			RateBurst:       v.GetInt("planhat.rate_burst"),
		},
		Hull: HullConfig{
			Organization:    v.GetString("hull.organization"),
			Secret:          v.GetString("hull.secret"),
			FirehoseTimeout: v.GetDuration("hull.firehose_timeout"),
			RequireToken:    v.GetBool("hull.require_token"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Profiling: ProfilingConfig{
			Enabled:            v.GetBool("profiling.enabled"),
			ServerAddress:      v.GetString("profiling.server_address"),
			ApplicationName:    v.GetString("profiling.application_name"),
			BasicAuthUser:      v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword:  v.GetString("profiling.basic_auth_password"),
			ProfileAllocations: v.GetBool("profiling.profile_allocations"),
			SpanProfiles:       v.GetBool("profiling.span_profiles"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hull-planhat")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.write_timeout", 5*time.Minute)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.max_header_bytes", 1<<20)
	v.SetDefault("http.max_body_size", 10<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "planhat_journal")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "planhat_journal.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.idempotency_ttl", time.Hour)

	v.SetDefault("planhat.base_url_template", "https://{api_prefix}.planhat.com")
	v.SetDefault("planhat.analytics_url", "https://analytics.planhat.com")
	v.SetDefault("planhat.timeout", 30*time.Second)
	v.SetDefault("planhat.rate_limit", 10.0)
	v.SetDefault("planhat.rate_burst", 5)

	v.SetDefault("hull.firehose_timeout", 10*time.Second)
	v.SetDefault("hull.require_token", true)

	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.service_name", "hull-planhat")
	v.SetDefault("telemetry.metrics_interval", 60*time.Second)
	v.SetDefault("telemetry.db_slow_query_threshold", 200*time.Millisecond)

	v.SetDefault("profiling.application_name", "hull-planhat")
}

func (c *Config) validate() error {
	if !strings.Contains(c.Planhat.BaseURLTemplate, "{api_prefix}") {
		if _, err := url.Parse(c.Planhat.BaseURLTemplate); err != nil || c.Planhat.BaseURLTemplate == "" {
			return fmt.Errorf("planhat.base_url_template must be a URL, got %q", c.Planhat.BaseURLTemplate)
		}
	}
	if c.Planhat.RateLimit < 0 {
		return fmt.Errorf("planhat.rate_limit cannot be negative")
	}
	if c.Planhat.RateLimit > 0 && c.Planhat.RateBurst <= 0 {
		return fmt.Errorf("planhat.rate_burst must be positive when rate limiting is enabled")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.Database.Enabled {
		switch c.Database.Driver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
		}
		if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
			return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
				c.Database.MaxIdleConns, c.Database.MaxOpenConns)
		}
	}

	if c.App.Env == "production" {
		if c.Hull.RequireToken && c.Hull.Secret == "" {
			return fmt.Errorf("hull.secret is required in production")
		}
		if c.Database.Enabled && c.Database.Driver == "postgres" && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}
	return nil
}

// DSN returns the postgres connection string with escaped credentials
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
