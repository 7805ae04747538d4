// Package vcs implements the VCS Bridge: it drives a local git working
// tree via a gitprovider.Provider and, when available, a hosted PR CLI
// via a prprovider.Provider. Every operation degrades gracefully when
// the external tool it needs is missing.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kilnforge/pipelinectl/internal/domain"
	"github.com/kilnforge/pipelinectl/internal/domain/feature"
	"github.com/kilnforge/pipelinectl/internal/port/gitprovider"
	"github.com/kilnforge/pipelinectl/internal/port/prprovider"
)

const originRemote = "origin"

// Bridge composes a git provider and an optional PR provider.
type Bridge struct {
	Git       gitprovider.Provider
	PR        prprovider.Provider // nil means no hosted PR support at all
	RepoPath  string
	SafeMode  bool
	AutoMerge bool
	Log       *slog.Logger
}

func New(git gitprovider.Provider, pr prprovider.Provider, repoPath string, safeMode, autoMerge bool, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{Git: git, PR: pr, RepoPath: repoPath, SafeMode: safeMode, AutoMerge: autoMerge, Log: log}
}

func branchName(id string) string {
	return "feature/" + strings.ToLower(id)
}

// CreatePR pushes the feature's branch (creating it if needed) and opens
// a pull request if a PR CLI is available, or instructs the operator to
// open one manually otherwise. It always returns the feature's next
// status on success, plus the created PR's number (0 when no PR CLI was
// available to create one).
func (b *Bridge) CreatePR(ctx context.Context, f feature.Feature) (feature.Status, int, error) {
	branch := branchName(f.ID)

	current, err := b.Git.CurrentBranch(ctx, b.RepoPath)
	if err != nil && !errors.Is(err, domain.ErrExternalToolMissing) {
		return f.Status, 0, fmt.Errorf("current branch: %w", err)
	}

	if current != branch {
		if err := b.Git.CreateBranch(ctx, b.RepoPath, branch); err != nil {
			return f.Status, 0, fmt.Errorf("create branch %s: %w", branch, err)
		}
		if err := b.Git.Checkout(ctx, b.RepoPath, branch); err != nil {
			return f.Status, 0, fmt.Errorf("checkout %s: %w", branch, err)
		}
	}

	hasOrigin, err := b.Git.HasRemote(ctx, b.RepoPath, originRemote)
	if err != nil {
		return f.Status, 0, fmt.Errorf("check remote: %w", err)
	}
	if hasOrigin {
		if err := b.Git.Push(ctx, b.RepoPath, originRemote, branch, true); err != nil {
			return f.Status, 0, fmt.Errorf("push %s: %w", branch, err)
		}
	} else {
		b.Log.Info("no origin remote configured, staying local-only", "feature", f.ID)
	}

	title := fmt.Sprintf("%s: %s", f.ID, f.Description)
	body := prBody(f)

	if b.PR != nil && b.PR.Available(ctx) {
		defaultBranch, err := b.Git.DefaultBranch(ctx, b.RepoPath)
		if err != nil {
			return f.Status, 0, fmt.Errorf("resolve default branch: %w", err)
		}
		pr, err := b.PR.Create(ctx, b.RepoPath, defaultBranch, branch, title, body)
		if err != nil {
			return f.Status, 0, fmt.Errorf("create pull request: %w", err)
		}
		return feature.StatusPROpen, pr.Number, nil
	}

	fmt.Printf("No PR CLI available. Open a pull request manually for branch %q: %s\n", branch, title)
	return feature.StatusPROpen, 0, nil
}

func prBody(f feature.Feature) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automated PR for %s.\n\n", f.ID)
	if len(f.ArchitectureCompliance) > 0 {
		b.WriteString("Architecture compliance:\n")
		for _, item := range f.ArchitectureCompliance {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	if len(f.VerificationSteps) > 0 {
		b.WriteString("\nVerification:\n")
		for _, step := range f.VerificationSteps {
			fmt.Fprintf(&b, "- %s\n", step)
		}
	}
	return b.String()
}

// ErrMergeSkipped is returned by MergePR when safe_mode or auto_merge=false
// blocked the merge — the Autoplay Controller escalates on this, rather
// than treating it as a hard failure.
var ErrMergeSkipped = errors.New("vcs: merge skipped by safe_mode or auto_merge=false")

// MergePR merges the feature's PR (or, without a PR CLI, its branch
// directly) and transitions the feature to complete. It returns
// ErrMergeSkipped when policy forbids merging this cycle.
func (b *Bridge) MergePR(ctx context.Context, f feature.Feature, prNumber int) (feature.Status, error) {
	if b.SafeMode || !b.AutoMerge {
		return f.Status, ErrMergeSkipped
	}

	branch := branchName(f.ID)

	if b.PR != nil && b.PR.Available(ctx) && prNumber > 0 {
		if err := b.PR.Merge(ctx, b.RepoPath, prNumber, true); err != nil {
			return f.Status, fmt.Errorf("merge pull request: %w", err)
		}
		return feature.StatusComplete, nil
	}

	defaultBranch, err := b.Git.DefaultBranch(ctx, b.RepoPath)
	if err != nil {
		return f.Status, fmt.Errorf("resolve default branch: %w", err)
	}
	if err := b.Git.Checkout(ctx, b.RepoPath, defaultBranch); err != nil {
		return f.Status, fmt.Errorf("checkout %s: %w", defaultBranch, err)
	}
	if err := b.Git.Merge(ctx, b.RepoPath, branch, true); err != nil {
		return f.Status, fmt.Errorf("merge %s: %w", branch, err)
	}

	return feature.StatusComplete, nil
}
