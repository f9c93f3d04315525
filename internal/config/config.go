package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field maps 1:1 to an env var of the same name.
type Config struct {
	// Server
	Port           int    `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"` // development | production
	WorkerPoolSize int    `mapstructure:"WORKER_POOL_SIZE"`

	// Database
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"` // postgres | sqlite
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	// Redis. Empty disables the analytics cache and export mail jobs.
	RedisURL string `mapstructure:"REDIS_URL"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	JWTRefreshHours    int    `mapstructure:"JWT_REFRESH_HOURS"`
	BcryptCost         int    `mapstructure:"BCRYPT_COST"`
	OTPTTLMinutes      int    `mapstructure:"OTP_TTL_MINUTES"`

	// SMTP
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	// Kafka. Empty brokers disables event publishing.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"` // comma separated
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	// Business
	AnalyticsCacheTTLSeconds int    `mapstructure:"ANALYTICS_CACHE_TTL_SECONDS"`
	EmailMaxAttempts         int    `mapstructure:"EMAIL_MAX_ATTEMPTS"`
	ReportCurrency           string `mapstructure:"REPORT_CURRENCY"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	// REDIS_URL= (set but empty) must reach the config as "".
	v.AllowEmptyEnv(true)

	setDefaults(v)

	// Optional .env file for local development, does not fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8000)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("WORKER_POOL_SIZE", 2)
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "file:sales_dashboard.db?_pragma=foreign_keys(1)")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION_HOURS", 8)
	v.SetDefault("JWT_REFRESH_HOURS", 24)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("OTP_TTL_MINUTES", 10)
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "insighthub.sales")
	v.SetDefault("ANALYTICS_CACHE_TTL_SECONDS", 600)
	v.SetDefault("EMAIL_MAX_ATTEMPTS", 3)
	v.SetDefault("REPORT_CURRENCY", "USD")
}

// Brokers splits KafkaBrokers into addresses, dropping blanks.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// MailFrom is the envelope sender; falls back to the SMTP login.
func (c *Config) MailFrom() string {
	if c.SMTPFrom != "" {
		return c.SMTPFrom
	}
	return c.SMTPUser
}
