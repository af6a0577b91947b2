package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// DevelopmentSecretKey is used to sign sessions when no SECRET_KEY is set in development
const DevelopmentSecretKey = "dev_key"

// Config holds all application configuration
type Config struct {
	DatabaseURL        string        `envconfig:"DATABASE_URL"`
	MongoURI           string        `envconfig:"MONGO_URI"`
	DatabaseName       string        `envconfig:"DATABASE_NAME" default:"digital_healthcare"`
	SecretKey          string        `envconfig:"SECRET_KEY"`
	Port               string        `envconfig:"PORT" default:"5000"`
	GoEnv              string        `envconfig:"GO_ENV" default:"development"`
	UploadDir          string        `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxUploadMB        int64         `envconfig:"MAX_UPLOAD_MB" default:"10"`
	StrictWorkflow     bool          `envconfig:"STRICT_WORKFLOW" default:"true"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
	AWSRegion          string        `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSS3Bucket        string        `envconfig:"AWS_S3_BUCKET"`
	AWSAccessKeyID     string        `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string        `envconfig:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint        string        `envconfig:"AWS_ENDPOINT"`
}

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// In deployed environments variables are set directly
		if err := godotenv.Load(); err != nil {
			log.Debug().Msg("No .env file found, using system environment variables")
		}
	} else {
		log.Info().Str("file", envFile).Msg("Loaded configuration from env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) normalize() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = c.MongoURI
	}
	if c.SecretKey == "" && c.IsDevelopment() {
		c.SecretKey = DevelopmentSecretKey
	}
	c.Port = strings.TrimPrefix(c.Port, ":")
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL (or MONGO_URI) is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required outside development")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// UsesS3 reports whether reports are stored in S3 rather than the local upload directory
func (c *Config) UsesS3() bool {
	return c.AWSS3Bucket != ""
}

// MaxUploadBytes returns the upload size limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}
