// Package config provides hierarchical configuration loading for pipelinectl.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all bootstrap configuration for the pipelinectl process.
// This is distinct from the domain configuration (execution mode, model,
// retry limits, ...) which lives in the Store and is managed with
// `pipelinectl config get/set`.
type Config struct {
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
	Runtime Runtime `yaml:"runtime"`
}

// Server holds the Read-Model Server's bootstrap settings.
type Server struct {
	ProjectRoot string `yaml:"project_root"`
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	CORSOrigin  string `yaml:"cors_origin"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Runtime holds process-wide execution limits.
type Runtime struct {
	GitMaxConcurrent int           `yaml:"git_max_concurrent"`
	AgentTimeout     time.Duration `yaml:"agent_timeout"`
	SSEPollInterval  time.Duration `yaml:"sse_poll_interval"`
}

// Defaults returns a Config with sensible default values for local use.
func Defaults() Config {
	return Config{
		Server: Server{
			ProjectRoot: ".",
			Host:        "127.0.0.1",
			Port:        "4680",
			CORSOrigin:  "*",
		},
		Logging: Logging{
			Level:   "info",
			Service: "pipelinectl",
		},
		Runtime: Runtime{
			GitMaxConcurrent: 4,
			AgentTimeout:     30 * time.Minute,
			SSEPollInterval:  2 * time.Second,
		},
	}
}
