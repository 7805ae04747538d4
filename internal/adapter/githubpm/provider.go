// Package githubpm implements a prprovider.Provider for GitHub pull
// requests using the gh CLI. It degrades gracefully: Available() reports
// false when gh is not on PATH so the VCS Bridge can fall back to
// instructing the operator to open the PR manually.
package githubpm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/kilnforge/pipelinectl/internal/port/prprovider"
)

const providerName = "github"

// Provider implements prprovider.Provider for GitHub via the gh CLI.
type Provider struct {
	// execCommand is swappable for testing.
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
	// lookPath is swappable for testing Available().
	lookPath func(file string) (string, error)
}

func newProvider() *Provider {
	return &Provider{execCommand: exec.CommandContext, lookPath: exec.LookPath}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Capabilities() prprovider.Capabilities {
	return prprovider.Capabilities{Create: true, Merge: true}
}

// Available reports whether the gh CLI is present on PATH.
func (p *Provider) Available(_ context.Context) bool {
	_, err := p.lookPath("gh")
	return err == nil
}

// ghPRCreateResult mirrors the JSON output of `gh pr create --json`.
type ghPRCreateResult struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

func (p *Provider) Create(ctx context.Context, repoPath, base, head, title, body string) (*prprovider.PullRequest, error) {
	cmd := p.execCommand(ctx, "gh", "pr", "create",
		"--base", base,
		"--head", head,
		"--title", title,
		"--body", body,
		"--json", "number,url",
	)
	cmd.Dir = repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("gh pr create: %s: %w", stderr.String(), err)
	}

	var res ghPRCreateResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return nil, fmt.Errorf("parse gh pr create output: %w", err)
	}

	return &prprovider.PullRequest{Number: res.Number, URL: res.URL, State: "open"}, nil
}

func (p *Provider) Merge(ctx context.Context, repoPath string, number int, deleteBranch bool) error {
	args := []string{"pr", "merge", fmt.Sprintf("%d", number), "--merge"}
	if deleteBranch {
		args = append(args, "--delete-branch")
	}

	cmd := p.execCommand(ctx, "gh", args...)
	cmd.Dir = repoPath

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("gh pr merge: %s: %w", stderr.String(), err)
	}
	return nil
}
