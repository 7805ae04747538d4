// Package gitlocal implements the gitprovider.Provider interface using local git CLI commands.
package gitlocal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kilnforge/pipelinectl/internal/domain"
	"github.com/kilnforge/pipelinectl/internal/git"
	"github.com/kilnforge/pipelinectl/internal/port/gitprovider"
)

const providerName = "local"

// Provider interacts with local git repositories via the git CLI.
type Provider struct {
	pool *git.Pool
}

// NewProvider creates a Provider that limits concurrent git operations via pool.
func NewProvider(pool *git.Pool) *Provider {
	return &Provider{pool: pool}
}

// Name returns "local".
func (p *Provider) Name() string { return providerName }

// Capabilities returns what the local git provider supports.
func (p *Provider) Capabilities() gitprovider.Capabilities {
	return gitprovider.Capabilities{
		Clone: true,
		Push:  true,
		Merge: true,
	}
}

// Clone clones a repository to the given local path.
func (p *Provider) Clone(ctx context.Context, url, destPath string) error {
	absPath, err := filepath.Abs(destPath)
	if err != nil {
		return fmt.Errorf("gitlocal: resolve path: %w", err)
	}

	return p.pool.Run(ctx, func() error {
		if _, execErr := runGit(ctx, "", "clone", url, absPath); execErr != nil {
			return fmt.Errorf("gitlocal: clone: %w", execErr)
		}
		return nil
	})
}

// Pull fetches and merges updates for the given repository.
func (p *Provider) Pull(ctx context.Context, repoPath string) error {
	return p.pool.Run(ctx, func() error {
		if _, err := runGit(ctx, repoPath, "pull"); err != nil {
			return fmt.Errorf("gitlocal: pull: %w", err)
		}
		return nil
	})
}

// Status returns the git status of a local repository.
func (p *Provider) Status(ctx context.Context, repoPath string) (*gitprovider.Status, error) {
	var status *gitprovider.Status
	err := p.pool.Run(ctx, func() error {
		status = &gitprovider.Status{}

		branch, err := runGit(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return fmt.Errorf("gitlocal: get branch: %w", err)
		}
		status.Branch = strings.TrimSpace(branch)

		logOut, err := runGit(ctx, repoPath, "log", "-1", "--format=%H%n%s")
		if err != nil {
			return fmt.Errorf("gitlocal: get log: %w", err)
		}
		logLines := strings.SplitN(strings.TrimSpace(logOut), "\n", 2)
		if len(logLines) >= 1 {
			status.CommitHash = logLines[0]
		}
		if len(logLines) >= 2 {
			status.CommitMessage = logLines[1]
		}

		porcelain, err := runGit(ctx, repoPath, "status", "--porcelain")
		if err != nil {
			return fmt.Errorf("gitlocal: porcelain status: %w", err)
		}
		for _, line := range strings.Split(porcelain, "\n") {
			if len(line) < 3 {
				continue
			}
			indicator := line[:2]
			file := strings.TrimSpace(line[3:])
			if indicator == "??" {
				status.Untracked = append(status.Untracked, file)
			} else {
				status.Modified = append(status.Modified, file)
			}
		}
		status.Dirty = len(status.Modified) > 0 || len(status.Untracked) > 0

		revList, _ := runGit(ctx, repoPath, "rev-list", "--left-right", "--count", "@{upstream}...HEAD")
		revList = strings.TrimSpace(revList)
		if revList != "" {
			parts := strings.Fields(revList)
			if len(parts) == 2 {
				_, _ = fmt.Sscanf(parts[0], "%d", &status.Behind)
				_, _ = fmt.Sscanf(parts[1], "%d", &status.Ahead)
			}
		}

		return nil
	})
	return status, err
}

// ListBranches returns all branches of a local repository.
func (p *Provider) ListBranches(ctx context.Context, repoPath string) ([]gitprovider.Branch, error) {
	var branches []gitprovider.Branch
	err := p.pool.Run(ctx, func() error {
		out, err := runGit(ctx, repoPath, "branch", "--list")
		if err != nil {
			return fmt.Errorf("gitlocal: list branches: %w", err)
		}

		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			current := false
			if strings.HasPrefix(line, "* ") {
				current = true
				line = strings.TrimPrefix(line, "* ")
			}
			branches = append(branches, gitprovider.Branch{
				Name:    strings.TrimSpace(line),
				Current: current,
			})
		}
		return nil
	})
	return branches, err
}

// CurrentBranch returns the checked-out branch name.
func (p *Provider) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	var branch string
	err := p.pool.Run(ctx, func() error {
		out, err := runGit(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return fmt.Errorf("gitlocal: current branch: %w", err)
		}
		branch = strings.TrimSpace(out)
		return nil
	})
	return branch, err
}

// CreateBranch creates a new branch without checking it out.
func (p *Provider) CreateBranch(ctx context.Context, repoPath, branch string) error {
	return p.pool.Run(ctx, func() error {
		if _, err := runGit(ctx, repoPath, "branch", branch); err != nil {
			return fmt.Errorf("gitlocal: create branch %s: %w", branch, err)
		}
		return nil
	})
}

// Checkout switches to the specified branch.
func (p *Provider) Checkout(ctx context.Context, repoPath, branch string) error {
	return p.pool.Run(ctx, func() error {
		if _, err := runGit(ctx, repoPath, "checkout", branch); err != nil {
			return fmt.Errorf("gitlocal: checkout %s: %w", branch, err)
		}
		return nil
	})
}

// HasRemote reports whether the named remote is configured.
func (p *Provider) HasRemote(ctx context.Context, repoPath, remote string) (bool, error) {
	var found bool
	err := p.pool.Run(ctx, func() error {
		out, err := runGit(ctx, repoPath, "remote")
		if err != nil {
			return fmt.Errorf("gitlocal: list remotes: %w", err)
		}
		for _, line := range strings.Split(out, "\n") {
			if strings.TrimSpace(line) == remote {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// Push pushes branch to remote, optionally setting the upstream.
func (p *Provider) Push(ctx context.Context, repoPath, remote, branch string, setUpstream bool) error {
	return p.pool.Run(ctx, func() error {
		args := []string{"push"}
		if setUpstream {
			args = append(args, "-u")
		}
		args = append(args, remote, branch)
		if _, err := runGit(ctx, repoPath, args...); err != nil {
			return fmt.Errorf("gitlocal: push %s %s: %w", remote, branch, err)
		}
		return nil
	})
}

// DefaultBranch resolves the remote's symbolic HEAD, falling back to "main".
func (p *Provider) DefaultBranch(ctx context.Context, repoPath string) (string, error) {
	var branch string
	err := p.pool.Run(ctx, func() error {
		out, err := runGit(ctx, repoPath, "symbolic-ref", "refs/remotes/origin/HEAD")
		if err != nil {
			branch = "main"
			return nil
		}
		branch = strings.TrimPrefix(strings.TrimSpace(out), "refs/remotes/origin/")
		if branch == "" {
			branch = "main"
		}
		return nil
	})
	return branch, err
}

// Merge merges branch into the currently checked-out branch.
func (p *Provider) Merge(ctx context.Context, repoPath, branch string, noFastForward bool) error {
	return p.pool.Run(ctx, func() error {
		args := []string{"merge"}
		if noFastForward {
			args = append(args, "--no-ff")
		}
		args = append(args, branch)
		if _, err := runGit(ctx, repoPath, args...); err != nil {
			return fmt.Errorf("gitlocal: merge %s: %w", branch, err)
		}
		return nil
	})
}

// runGit executes a git command and returns its stdout.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", fmt.Errorf("%w: git", domain.ErrExternalToolMissing)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errors.Join(fmt.Errorf("%s", strings.TrimSpace(stderr.String())), err)
	}
	return stdout.String(), nil
}
