package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// TopicConfig is one entry of a pipeline descriptor's input/output list.
// The runtime never inspects it beyond passing it to the messaging
// substrate, so it is parsed as a free-form map.
type TopicConfig map[string]any

// AgentInstanceConfig is the agent's free-form configuration block: every
// key other than className is collected into Properties and passed through
// verbatim to the agent's Init.
type AgentInstanceConfig struct {
	ClassName  string         `yaml:"className" validate:"required"`
	Properties map[string]any `yaml:",inline"`
}

// ErrorHandlerConfig mirrors the pipeline descriptor's
// errorHandlerConfiguration block.
type ErrorHandlerConfig struct {
	OnFailure domain.OnFailureAction `yaml:"onFailure" validate:"required"`
	Retries   int                    `yaml:"retries" validate:"gte=0"`
}

// AgentConfig describes the single user agent a pod runs.
type AgentConfig struct {
	ApplicationID             string              `yaml:"applicationId" validate:"required"`
	AgentID                   string              `yaml:"agentId" validate:"required"`
	Configuration             AgentInstanceConfig `yaml:"configuration" validate:"required"`
	ErrorHandlerConfiguration ErrorHandlerConfig  `yaml:"errorHandlerConfiguration" validate:"required"`
}

// PipelineConfig is the parsed, validated pod pipeline descriptor.
type PipelineConfig struct {
	StreamingCluster map[string]any `yaml:"streamingCluster" validate:"required"`
	Input            []TopicConfig  `yaml:"input"`
	Output           []TopicConfig  `yaml:"output"`
	Agent            AgentConfig    `yaml:"agent" validate:"required"`
}

// AgentIdentity returns the stable "{applicationId}-{agentId}" agent_id
// the Runner derives from the agent configuration.
func (a AgentConfig) AgentIdentity() string {
	return a.ApplicationID + "-" + a.AgentID
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadPipeline reads and validates the pipeline descriptor at path.
func LoadPipeline(path string) (PipelineConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("read pipeline config %q: %w", path, err)
	}

	var cfg PipelineConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("parse pipeline config %q: %w", path, err)
	}

	if len(cfg.StreamingCluster) == 0 {
		return PipelineConfig{}, domain.ErrMissingStreamingCluster
	}
	if cfg.Agent.ApplicationID == "" || cfg.Agent.AgentID == "" {
		return PipelineConfig{}, domain.ErrMissingAgentIdentity
	}
	if !cfg.Agent.ErrorHandlerConfiguration.OnFailure.Valid() {
		return PipelineConfig{}, fmt.Errorf("%w: %q", domain.ErrUnknownOnFailureAction, cfg.Agent.ErrorHandlerConfiguration.OnFailure)
	}

	if err := validate.Struct(cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("validate pipeline config %q: %w", path, err)
	}
	return cfg, nil
}
