// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the service.
type Config struct {
	// CipherSecret is the server-held secret the credential cipher derives
	// its key from. Rotating it invalidates every stored password.
	CipherSecret string `env:"BURROW_CIPHER_SECRET" envDefault:"burrow-dev-secret"`

	// StorePath is the path of the embedded SQLite store file.
	StorePath string `env:"BURROW_STORE_PATH" envDefault:"burrow.db"`

	// DemoUserID identifies the demo account that always sees the sample
	// connection.
	DemoUserID string `env:"BURROW_DEMO_USER_ID" envDefault:"demo"`

	Worker    WorkerConfig   `envPrefix:"BURROW_WORKER_"`
	Provision DatabaseConfig `envPrefix:"BURROW_PROVISION_"`
	Sample    SampleConfig   `envPrefix:"BURROW_SAMPLE_"`
}

// WorkerConfig locates the external sync worker.
type WorkerConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:5001"`

	// TimeoutSeconds bounds a trigger submission end to end.
	TimeoutSeconds int `env:"TIMEOUT_SECONDS" envDefault:"15"`
}

// DatabaseConfig holds the admin credentials used to provision sync target
// stores on the managed MySQL host.
type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"3306"`
	User     string `env:"USER" envDefault:"root"`
	Password string `env:"PASSWORD" envDefault:""`
}

// SampleConfig describes the read-only sample connection shown to users
// without connections of their own.
type SampleConfig struct {
	Name     string `env:"NAME" envDefault:"Sample Database"`
	Engine   string `env:"ENGINE" envDefault:"mysql"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"3306"`
	Database string `env:"DATABASE" envDefault:"sample"`
	Username string `env:"USERNAME" envDefault:"sample_ro"`
	Password string `env:"PASSWORD" envDefault:""`
}

// Load reads configuration from the environment. A .env file at envPath is
// loaded first when it exists; missing files are not an error.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("failed to load env file %s: %w", envPath, err)
			}
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
