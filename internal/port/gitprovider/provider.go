// Package gitprovider defines the Git provider port (interface) used by the
// VCS Bridge to drive branch, remote, and merge operations against a local
// working tree.
package gitprovider

import "context"

// Capabilities declares which operations a git provider supports.
type Capabilities struct {
	Clone       bool `json:"clone"`
	Push        bool `json:"push"`
	PullRequest bool `json:"pull_request"`
	Merge       bool `json:"merge"`
}

// Status reports the working tree state of a local repository.
type Status struct {
	Branch        string
	CommitHash    string
	CommitMessage string
	Dirty         bool
	Modified      []string
	Untracked     []string
	Ahead         int
	Behind        int
}

// Branch describes one local branch.
type Branch struct {
	Name    string
	Current bool
}

// Provider is the port interface for driving a local git working tree.
type Provider interface {
	// Name returns the unique identifier for this provider (e.g. "local").
	Name() string

	// Capabilities returns what this provider supports.
	Capabilities() Capabilities

	// Clone clones a repository to the given local path.
	Clone(ctx context.Context, url, destPath string) error

	// Pull fetches and merges updates for the given repository.
	Pull(ctx context.Context, repoPath string) error

	// Status reports the current branch, commit, and dirty state.
	Status(ctx context.Context, repoPath string) (*Status, error)

	// ListBranches returns all local branches.
	ListBranches(ctx context.Context, repoPath string) ([]Branch, error)

	// CurrentBranch returns the checked-out branch name.
	CurrentBranch(ctx context.Context, repoPath string) (string, error)

	// CreateBranch creates a new branch without checking it out.
	CreateBranch(ctx context.Context, repoPath, branch string) error

	// Checkout switches to the specified branch.
	Checkout(ctx context.Context, repoPath, branch string) error

	// HasRemote reports whether the named remote is configured.
	HasRemote(ctx context.Context, repoPath, remote string) (bool, error)

	// Push pushes branch to remote, optionally setting the upstream.
	Push(ctx context.Context, repoPath, remote, branch string, setUpstream bool) error

	// DefaultBranch resolves the remote's symbolic HEAD, falling back to "main".
	DefaultBranch(ctx context.Context, repoPath string) (string, error)

	// Merge merges branch into the currently checked-out branch.
	Merge(ctx context.Context, repoPath, branch string, noFastForward bool) error
}
