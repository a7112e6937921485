package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime settings, loaded from environment variables.
type Config struct {
	APIPort    int `envconfig:"API_PORT" default:"8080"`
	UnlockPort int `envconfig:"UNLOCK_PORT" default:"8081"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`

	// OIDC verification for the management API. Leaving the issuer empty
	// disables authentication, which is only sensible for local development.
	OIDCIssuer   string `envconfig:"OIDC_ISSUER"`
	OIDCAudience string `envconfig:"OIDC_AUDIENCE" default:"shopfront"`

	AWSBucketName string `envconfig:"AWS_BUCKET_NAME"`
	AWSRegion     string `envconfig:"AWS_REGION" default:"us-east-1"`

	// PublicBaseURL is the prefix of shareable unlock-page URLs.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8081"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
