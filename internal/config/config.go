package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32    `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir   string   `mapstructure:"MIGRATIONS_DIR"`
	RedisURL        string   `mapstructure:"REDIS_URL"`
	JWTSecret       string   `mapstructure:"JWT_SECRET"`
	JWTIssuer       string   `mapstructure:"JWT_ISSUER"`
	JWTTTLMinutes   int      `mapstructure:"JWT_TTL_MINUTES"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int      `mapstructure:"RATE_LIMIT_BURST"`
	SMSProvider     string   `mapstructure:"SMS_PROVIDER"`
	SemaphoreAPIKey string   `mapstructure:"SEMAPHORE_API_KEY"`
	SemaphoreSender string   `mapstructure:"SEMAPHORE_SENDER_NAME"`
	SemaphoreURL    string   `mapstructure:"SEMAPHORE_BASE_URL"`
	AWSRegion       string   `mapstructure:"AWS_REGION"`
	StorageBackend  string   `mapstructure:"STORAGE_BACKEND"`
	S3Bucket        string   `mapstructure:"S3_BUCKET"`
	S3Endpoint      string   `mapstructure:"S3_ENDPOINT"`
	FCMCredentials  string   `mapstructure:"FCM_CREDENTIALS_FILE"`
	ReminderPoll    string   `mapstructure:"REMINDER_POLL_INTERVAL"`
	TLSEnabled      bool     `mapstructure:"TLS_ENABLED"`
	TLSCertFile     string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile      string   `mapstructure:"TLS_KEY_FILE"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"REDIS_URL", "JWT_SECRET", "JWT_ISSUER", "JWT_TTL_MINUTES", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"SMS_PROVIDER", "SEMAPHORE_API_KEY", "SEMAPHORE_SENDER_NAME", "SEMAPHORE_BASE_URL",
	"AWS_REGION", "STORAGE_BACKEND", "S3_BUCKET", "S3_ENDPOINT", "FCM_CREDENTIALS_FILE",
	"REMINDER_POLL_INTERVAL", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("JWT_ISSUER", "seniorcare")
	v.SetDefault("JWT_TTL_MINUTES", 60*24)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("SMS_PROVIDER", "log")
	v.SetDefault("SEMAPHORE_SENDER_NAME", "SEMAPHORE")
	v.SetDefault("SEMAPHORE_BASE_URL", "https://api.semaphore.co/api/v4")
	v.SetDefault("AWS_REGION", "ap-southeast-1")
	v.SetDefault("STORAGE_BACKEND", "memory")
	v.SetDefault("REMINDER_POLL_INTERVAL", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Requests without a token are treated as an admin user.")
		log.Println("WARNING: Set ENV=production and JWT_SECRET before deploying.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// JWTTTL returns the lifetime of issued access tokens.
func (c *Config) JWTTTL() time.Duration {
	if c.JWTTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// ReminderInterval returns how often the reminder scheduler polls for due
// reminders. Unparseable or non-positive values fall back to 30 seconds.
func (c *Config) ReminderInterval() time.Duration {
	d, err := time.ParseDuration(c.ReminderPoll)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Validate checks that the configuration is safe to run. Outside development
// a signing secret of at least 32 characters is mandatory, and each selected
// provider must have its credentials.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
		}
	}

	switch c.SMSProvider {
	case "log", "sns":
	case "semaphore":
		if c.SemaphoreAPIKey == "" {
			return fmt.Errorf("SEMAPHORE_API_KEY is required when SMS_PROVIDER is \"semaphore\"")
		}
	default:
		return fmt.Errorf("SMS_PROVIDER must be \"semaphore\", \"sns\", or \"log\", got %q", c.SMSProvider)
	}

	switch c.StorageBackend {
	case "memory":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND is \"s3\"")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be \"memory\" or \"s3\", got %q", c.StorageBackend)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
