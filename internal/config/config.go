package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Auth0
	Auth0Domain   string
	Auth0Audience string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// S3 Storage for proof-of-payment images
	S3 S3Config

	// WhatsApp gateway
	WhatsApp WhatsAppConfig

	// Payments
	Payments PaymentConfig
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
}

// Enabled reports whether proof storage can be initialized
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// WhatsAppConfig holds the notification gateway configuration
type WhatsAppConfig struct {
	APIURL     string
	Token      string
	AdminPhone string
	Timeout    time.Duration
}

// Enabled reports whether notifications should be sent
func (c WhatsAppConfig) Enabled() bool {
	return c.Token != ""
}

// PaymentConfig holds submission limits
type PaymentConfig struct {
	ProofMaxBytes       int
	ProofURLExpiry      time.Duration
	SubmitRatePerMinute int
	SubmitBurst         int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		Auth0Domain:   getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:           getEnv("ENV", "development"),
		S3: S3Config{
			Region:          getEnv("S3_REGION", "ap-southeast-1"),
			Bucket:          getEnv("S3_BUCKET", "sppku-proofs"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
		},
		WhatsApp: WhatsAppConfig{
			APIURL:     getEnv("WHATSAPP_API_URL", "https://api.fonnte.com/send"),
			Token:      getEnv("WHATSAPP_TOKEN", ""),
			AdminPhone: getEnv("WHATSAPP_ADMIN_PHONE", ""),
		},
	}

	var err error
	if cfg.WhatsApp.Timeout, err = getEnvDuration("WHATSAPP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Payments.ProofMaxBytes, err = getEnvInt("PROOF_MAX_BYTES", 2*1024*1024); err != nil {
		return nil, err
	}
	if cfg.Payments.ProofURLExpiry, err = getEnvDuration("PROOF_URL_EXPIRY", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Payments.SubmitRatePerMinute, err = getEnvInt("SUBMIT_RATE_PER_MINUTE", 10); err != nil {
		return nil, err
	}
	if cfg.Payments.SubmitBurst, err = getEnvInt("SUBMIT_BURST", 3); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	if c.Payments.ProofMaxBytes <= 0 {
		return fmt.Errorf("PROOF_MAX_BYTES must be positive")
	}
	if c.Payments.SubmitRatePerMinute <= 0 || c.Payments.SubmitBurst <= 0 {
		return fmt.Errorf("SUBMIT_RATE_PER_MINUTE and SUBMIT_BURST must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
