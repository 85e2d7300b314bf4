// Package config loads process settings from .env files and the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration. CLI flags override it field by field.
type Config struct {
	FrameworkRoot string `envconfig:"FRAMEWORK_ROOT" default:"."`
	ProfileFile   string `envconfig:"PROFILE"`
	FlowsDir      string `envconfig:"FLOWS_DIR" default:"generated_flows"`
	PostgresDSN   string `envconfig:"PG_DSN"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"text"`
	Addr          string `envconfig:"ADDR" default:":8090"`

	Artifact ArtifactConfig `ignored:"true"`
	Gemini   GeminiConfig   `ignored:"true"`
}

// ArtifactConfig points the archive at S3-compatible storage.
type ArtifactConfig struct {
	Endpoint  string `envconfig:"ARTIFACT_S3_ENDPOINT"`
	Region    string `envconfig:"ARTIFACT_S3_REGION" default:"us-east-1"`
	AccessKey string `envconfig:"ARTIFACT_S3_ACCESS_KEY"`
	SecretKey string `envconfig:"ARTIFACT_S3_SECRET_KEY"`
	Bucket    string `envconfig:"ARTIFACT_S3_BUCKET" default:"scriptforge-artifacts"`
	UseSSL    bool   `envconfig:"ARTIFACT_S3_USE_SSL" default:"true"`
}

// Enabled reports whether object storage is configured; without it runs are
// archived in memory.
func (a ArtifactConfig) Enabled() bool {
	return strings.TrimSpace(a.Endpoint) != ""
}

// GeminiConfig configures the preview refiner.
type GeminiConfig struct {
	APIKey string `envconfig:"GEMINI_API_KEY"`
	Model  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
}

// Load reads the given .env files (".env" when none are named; missing files
// are ignored) and decodes the environment.
func Load(envFiles ...string) (Config, error) {
	_ = godotenv.Load(envFiles...)

	var c Config
	if err := envconfig.Process("scriptforge", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := envconfig.Process("", &c.Artifact); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := envconfig.Process("", &c.Gemini); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}
