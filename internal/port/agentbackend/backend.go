// Package agentbackend defines the agent backend port (interface) and capabilities.
// A Backend launches a coding agent subprocess against a single feature and
// role (dev, review, qa) and reports back what it did.
package agentbackend

import (
	"context"
	"time"
)

// Capabilities declares which operations an agent backend supports.
type Capabilities struct {
	Edit     bool `json:"edit"`
	Terminal bool `json:"terminal"`
	Browser  bool `json:"browser"`
	Planner  bool `json:"planner"`
	Review   bool `json:"review"`
}

// Role identifies which prompt and directive set a session runs under.
type Role string

const (
	RoleDev    Role = "dev"
	RoleReview Role = "review"
	RoleQA     Role = "qa"
)

// Session describes one agent invocation: a role acting on a single
// feature within a project working tree. The subprocess contract is
// { prompt, max_turns, model, output_format=text } with cwd=ProjectRoot;
// the subprocess is expected to mutate the Store itself, so Result never
// carries parsed state changes, only what was observed of the process.
type Session struct {
	FeatureID   string
	Role        Role
	ProjectRoot string
	Prompt      string
	MaxTurns    int
	Model       string
	Timeout     time.Duration
}

// Result reports the outcome of a completed agent session.
type Result struct {
	Output   string
	ExitCode int
}

// Backend is the port interface for interacting with a coding agent backend.
type Backend interface {
	// Name returns the unique identifier for this backend (e.g. "aider", "opencode").
	Name() string

	// Capabilities returns what this backend supports.
	Capabilities() Capabilities

	// Execute runs a session on the agent backend and returns the result.
	Execute(ctx context.Context, s *Session) (*Result, error)

	// Stop cancels a running session by feature id.
	Stop(ctx context.Context, featureID string) error
}
