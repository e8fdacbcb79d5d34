package config

import "time"

// BackoffConfig paces the Sink Writer's retry loop. It never changes
// whether a retry happens — the ErrorsHandler owns that decision — only how
// long the writer waits between attempts, adapted from the teacher's
// internal/config/retry_config.go retry pacing knobs.
type BackoffConfig struct {
	InitialInterval time.Duration `env:"SINK_BACKOFF_INITIAL_INTERVAL" envDefault:"200ms"`
	MaxInterval     time.Duration `env:"SINK_BACKOFF_MAX_INTERVAL" envDefault:"10s"`
	Multiplier      float64       `env:"SINK_BACKOFF_MULTIPLIER" envDefault:"2.0"`
}
