package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the appointment server
type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	RedisAddr   string   `mapstructure:"REDIS_ADDR"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	JWTSecret  string        `mapstructure:"JWT_SECRET"`
	JWTTTL     time.Duration `mapstructure:"JWT_TTL"`
	RefreshTTL time.Duration `mapstructure:"REFRESH_TTL"`

	SMTPHost    string `mapstructure:"SMTP_HOST"`
	SMTPPort    int    `mapstructure:"SMTP_PORT"`
	EmailUser   string `mapstructure:"EMAIL_USER"`
	EmailPass   string `mapstructure:"EMAIL_PASS"`
	EmailSender string `mapstructure:"EMAIL_SENDER"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	ClinicTimezone     string        `mapstructure:"CLINIC_TIMEZONE"`
	OperationTimeout   time.Duration `mapstructure:"OPERATION_TIMEOUT"`
	NotifyTimeout      time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	CancellationWindow time.Duration `mapstructure:"CANCELLATION_WINDOW"`
	CacheTTL           time.Duration `mapstructure:"CACHE_TTL"`
	ReminderSpec       string        `mapstructure:"REMINDER_SPEC"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "REDIS_ADDR", "CORS_ORIGINS",
	"JWT_SECRET", "JWT_TTL", "REFRESH_TTL",
	"SMTP_HOST", "SMTP_PORT", "EMAIL_USER", "EMAIL_PASS", "EMAIL_SENDER",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
	"CLINIC_TIMEZONE", "OPERATION_TIMEOUT", "NOTIFY_TIMEOUT", "CANCELLATION_WINDOW", "CACHE_TTL", "REMINDER_SPEC",
	"LOG_LEVEL", "LOG_FORMAT",
	"ADMIN_EMAIL", "ADMIN_PASSWORD",
}

// Load reads the .env file (if any) into the environment and binds every
// known key through viper.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file. Using environment variables directly.")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("REFRESH_TTL", "168h")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("KAFKA_TOPIC", "appointment_notifications")
	v.SetDefault("CLINIC_TIMEZONE", "UTC")
	v.SetDefault("OPERATION_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_TIMEOUT", "30s")
	v.SetDefault("CANCELLATION_WINDOW", "48h")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("REMINDER_SPEC", "* * * * *")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		log.Println("WARNING: JWT_SECRET is not set, using development secret")
		c.JWTSecret = "development_secret_key"
	}
	if _, err := time.LoadLocation(c.ClinicTimezone); err != nil {
		return fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	if c.CancellationWindow < 0 {
		return fmt.Errorf("CANCELLATION_WINDOW must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location returns the clinic time zone appointment dates are interpreted in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EmailEnabled reports whether SMTP delivery is configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.EmailUser != ""
}
