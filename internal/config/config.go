package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string         `mapstructure:"env" validate:"required"`
	LogLevel string         `mapstructure:"log_level"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Mail     MailConfig     `mapstructure:"mail"`
	Brand     BrandConfig     `mapstructure:"brand"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port                   string   `mapstructure:"port" validate:"required"`
	AllowedOrigins         []string `mapstructure:"allowed_origins"`
	ReadTimeoutSeconds     int      `mapstructure:"read_timeout_seconds" validate:"gte=1"`
	WriteTimeoutSeconds    int      `mapstructure:"write_timeout_seconds" validate:"gte=1"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

type DatabaseConfig struct {
	// Driver selects the submission store: "postgres" or "memory".
	Driver                 string `mapstructure:"driver" validate:"oneof=postgres memory"`
	URL                    string `mapstructure:"url" validate:"required_if=Driver postgres"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type AdminConfig struct {
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password" validate:"required_without=PasswordHash"`
	// PasswordHash is a bcrypt hash used instead of Password when set.
	PasswordHash string `mapstructure:"password_hash"`
}

type MailConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	From           string `mapstructure:"from" validate:"omitempty,email"`
	To             string `mapstructure:"to" validate:"omitempty,email"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=1"`
}

// Configured reports whether SMTP delivery is possible.
func (m MailConfig) Configured() bool {
	return m.Host != "" && m.Username != "" && m.Password != ""
}

// Timeout returns the per-send deadline.
func (m MailConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// TelemetryConfig controls metric export. An empty OTLPEndpoint disables it.
type TelemetryConfig struct {
	ServiceVersion        string `mapstructure:"service_version"`
	OTLPEndpoint          string `mapstructure:"otlp_endpoint"`
	OTLPInsecure          bool   `mapstructure:"otlp_insecure"`
	ExportIntervalSeconds int    `mapstructure:"export_interval_seconds" validate:"gte=1"`
}

// ExportInterval returns the period between metric exports.
func (t TelemetryConfig) ExportInterval() time.Duration {
	return time.Duration(t.ExportIntervalSeconds) * time.Second
}

// BrandConfig holds the company details rendered into outgoing mail.
type BrandConfig struct {
	Name         string `mapstructure:"name" validate:"required"`
	Tagline      string `mapstructure:"tagline"`
	ContactEmail string `mapstructure:"contact_email"`
	ContactPhone string `mapstructure:"contact_phone"`
}

var envBindings = map[string]string{
	"env":                                "ENV",
	"log_level":                          "LOG_LEVEL",
	"server.port":                        "PORT",
	"server.allowed_origins":             "ALLOWED_ORIGINS",
	"server.read_timeout_seconds":        "SERVER_READ_TIMEOUT_SECONDS",
	"server.write_timeout_seconds":       "SERVER_WRITE_TIMEOUT_SECONDS",
	"server.shutdown_timeout_seconds":    "SERVER_SHUTDOWN_TIMEOUT_SECONDS",
	"database.driver":                    "DATABASE_DRIVER",
	"database.url":                       "DATABASE_URL",
	"database.max_conns":                 "DATABASE_MAX_CONNS",
	"database.max_conn_lifetime_seconds": "DATABASE_MAX_CONN_LIFETIME_SECONDS",
	"database.auto_migrate":              "DATABASE_AUTO_MIGRATE",
	"admin.username":                     "ADMIN_USERNAME",
	"admin.password":                     "ADMIN_PASSWORD",
	"admin.password_hash":                "ADMIN_PASSWORD_HASH",
	"mail.host":                          "SMTP_HOST",
	"mail.port":                          "SMTP_PORT",
	"mail.username":                      "SMTP_USERNAME",
	"mail.password":                      "SMTP_PASSWORD",
	"mail.from":                          "EMAIL_FROM",
	"mail.to":                            "EMAIL_TO",
	"mail.timeout_seconds":               "SMTP_TIMEOUT_SECONDS",
	"brand.name":                         "BRAND_NAME",
	"brand.tagline":                      "BRAND_TAGLINE",
	"brand.contact_email":                "BRAND_CONTACT_EMAIL",
	"brand.contact_phone":                "BRAND_CONTACT_PHONE",
	"telemetry.service_version":          "SERVICE_VERSION",
	"telemetry.otlp_endpoint":            "OTEL_EXPORTER_OTLP_ENDPOINT",
	"telemetry.otlp_insecure":            "OTEL_EXPORTER_OTLP_INSECURE",
	"telemetry.export_interval_seconds":  "METRICS_EXPORT_INTERVAL_SECONDS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout_seconds", 10)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.max_conn_lifetime_seconds", 300)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "noreply@drilldowndynamics.com")
	v.SetDefault("mail.to", "sales@drilldowndynamics.com")
	v.SetDefault("mail.timeout_seconds", 15)
	v.SetDefault("brand.name", "Drilldown Dynamics")
	v.SetDefault("brand.tagline", "Powering Energy Solutions")
	v.SetDefault("brand.contact_email", "sales@drilldowndynamics.com")
	v.SetDefault("brand.contact_phone", "")
	v.SetDefault("telemetry.service_version", "dev")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.export_interval_seconds", 10)
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/drilldown")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitOrigins(cfg.Server.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsLocal reports whether the service runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "development"
}

// splitOrigins flattens comma-separated entries and drops blanks.
func splitOrigins(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}
