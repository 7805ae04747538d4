// Package prprovider defines the port interface for pull-request hosting
// CLIs (currently GitHub via `gh`). The VCS Bridge degrades gracefully when
// no provider is registered or its CLI is missing from PATH.
package prprovider

import "context"

// Capabilities declares which PR operations a provider supports.
type Capabilities struct {
	Create bool `json:"create"`
	Merge  bool `json:"merge"`
}

// PullRequest describes a created or queried pull request.
type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	State  string `json:"state"`
}

// Provider is the port interface for a pull-request hosting CLI.
type Provider interface {
	// Name returns the provider identifier (e.g. "github").
	Name() string

	// Capabilities returns what this provider supports.
	Capabilities() Capabilities

	// Available reports whether the underlying CLI is present and usable.
	Available(ctx context.Context) bool

	// Create opens a pull request from head into base in the repo at repoPath.
	Create(ctx context.Context, repoPath, base, head, title, body string) (*PullRequest, error)

	// Merge merges the given pull request, optionally deleting its branch.
	Merge(ctx context.Context, repoPath string, number int, deleteBranch bool) error
}
