// Package aider implements the agentbackend.Backend interface by spawning a
// local coding-agent CLI as a subprocess, per the Agent Runner's subprocess
// contract: { prompt, max_turns, model, output_format=text }, cwd=project
// root, stdout streamed, stderr captured. The subprocess is expected to
// mutate the Store itself; this backend never parses its output for state
// changes.
package aider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/kilnforge/pipelinectl/internal/domain"
	"github.com/kilnforge/pipelinectl/internal/port/agentbackend"
)

const backendName = "aider"

// Backend launches the configured agent binary as a subprocess for each session.
type Backend struct {
	// bin is the executable name or path invoked for every session.
	bin string
	// stdout receives streamed subprocess output; defaults to io.Discard.
	stdout io.Writer
	// execCommand is swappable for testing.
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// New creates an aider-compatible Backend that invokes bin for each session.
func New(bin string, stdout io.Writer) *Backend {
	if bin == "" {
		bin = backendName
	}
	if stdout == nil {
		stdout = io.Discard
	}
	return &Backend{
		bin:         bin,
		stdout:      stdout,
		execCommand: exec.CommandContext,
		running:     make(map[string]context.CancelFunc),
	}
}

// Register registers this backend factory under the given name.
func Register(name, bin string, stdout io.Writer) {
	agentbackend.Register(name, func(_ map[string]string) (agentbackend.Backend, error) {
		return New(bin, stdout), nil
	})
}

// Name returns the configured binary name.
func (b *Backend) Name() string { return b.bin }

// Capabilities returns what this backend supports.
func (b *Backend) Capabilities() agentbackend.Capabilities {
	return agentbackend.Capabilities{
		Edit:    true,
		Planner: true,
		Review:  true,
	}
}

// Execute spawns the agent subprocess and waits for it to exit.
func (b *Backend) Execute(ctx context.Context, s *agentbackend.Session) (*agentbackend.Result, error) {
	if _, err := exec.LookPath(b.bin); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrExternalToolMissing, b.bin)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	if s.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		sessionCtx, timeoutCancel = context.WithTimeout(sessionCtx, s.Timeout)
		defer timeoutCancel()
	}

	b.mu.Lock()
	b.running[s.FeatureID] = cancel
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.running, s.FeatureID)
		b.mu.Unlock()
		cancel()
	}()

	maxTurns := s.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 20
	}

	args := []string{
		"--prompt", s.Prompt,
		"--max-turns", strconv.Itoa(maxTurns),
		"--output-format", "text",
	}
	if s.Model != "" {
		args = append(args, "--model", s.Model)
	}

	cmd := b.execCommand(sessionCtx, b.bin, args...)
	cmd.Dir = s.ProjectRoot

	var stderr bytes.Buffer
	var stdout bytes.Buffer
	cmd.Stdout = io.MultiWriter(b.stdout, &stdout)
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := &agentbackend.Result{Output: stdout.String()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if runErr != nil && cmd.ProcessState == nil {
		return nil, fmt.Errorf("aider: run %s: %s: %w", b.bin, stderr.String(), runErr)
	}
	return result, nil
}

// Stop cancels a running session by feature id, if one is in flight.
func (b *Backend) Stop(_ context.Context, featureID string) error {
	b.mu.Lock()
	cancel, ok := b.running[featureID]
	b.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}
