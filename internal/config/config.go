// Package config defines the ambient process configuration (parsed from
// the environment) and the pipeline descriptor configuration (parsed from
// the pod's YAML file), grounded on the teacher's internal/config/config.go.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the pod process's ambient configuration: everything needed
// to stand the process up before a single pipeline record is read.
type Config struct {
	AppEnv          string        `env:"APP_ENV" envDefault:"dev"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName     string        `env:"OTEL_SERVICE_NAME" envDefault:"pod-runtime"`
	MetricsPort     int           `env:"METRICS_PORT" envDefault:"9090"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELSampleRatio float64       `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`
	PipelinePath    string        `env:"PIPELINE_CONFIG_PATH" envDefault:"/etc/pod/pipeline.yaml"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the process is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the process is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }
