package gitlocal_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	_ "github.com/kilnforge/pipelinectl/internal/adapter/gitlocal"
	"github.com/kilnforge/pipelinectl/internal/port/gitprovider"
)

func TestRegistration(t *testing.T) {
	p, err := gitprovider.New("local", nil)
	if err != nil {
		t.Fatalf("expected local provider to be registered: %v", err)
	}
	if p.Name() != "local" {
		t.Fatalf("expected name 'local', got %q", p.Name())
	}
	caps := p.Capabilities()
	if !caps.Clone || !caps.Push || !caps.Merge {
		t.Fatal("expected Clone, Push, and Merge capabilities")
	}
}

func TestCloneAndStatus(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in test environment")
	}

	ctx := context.Background()
	srcDir := initTestRepo(t)

	p, err := gitprovider.New("local", nil)
	if err != nil {
		t.Fatal(err)
	}

	cloneDir := filepath.Join(t.TempDir(), "cloned")
	if err := p.Clone(ctx, srcDir, cloneDir); err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	status, err := p.Status(ctx, cloneDir)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Branch != "master" && status.Branch != "main" {
		t.Fatalf("expected branch master or main, got %q", status.Branch)
	}
	if status.CommitHash == "" {
		t.Fatal("expected non-empty commit hash")
	}
	if status.CommitMessage != "initial commit" {
		t.Fatalf("expected commit message 'initial commit', got %q", status.CommitMessage)
	}
	if status.Dirty {
		t.Fatal("expected clean repo")
	}
}

func TestListBranches(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in test environment")
	}

	ctx := context.Background()
	dir := initTestRepo(t)

	p, err := gitprovider.New("local", nil)
	if err != nil {
		t.Fatal(err)
	}

	branches, err := p.ListBranches(ctx, dir)
	if err != nil {
		t.Fatalf("ListBranches failed: %v", err)
	}
	if len(branches) == 0 {
		t.Fatal("expected at least one branch")
	}

	foundCurrent := false
	for _, b := range branches {
		if b.Current {
			foundCurrent = true
		}
	}
	if !foundCurrent {
		t.Fatal("expected one branch marked as current")
	}
}

func TestCreateBranchAndCheckout(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in test environment")
	}

	ctx := context.Background()
	dir := initTestRepo(t)

	p, err := gitprovider.New("local", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := p.CreateBranch(ctx, dir, "feature-x"); err != nil {
		t.Fatalf("CreateBranch failed: %v", err)
	}
	if err := p.Checkout(ctx, dir, "feature-x"); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}

	current, err := p.CurrentBranch(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if current != "feature-x" {
		t.Fatalf("expected branch 'feature-x', got %q", current)
	}
}

func TestHasRemoteFalseByDefault(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in test environment")
	}

	ctx := context.Background()
	dir := initTestRepo(t)

	p, err := gitprovider.New("local", nil)
	if err != nil {
		t.Fatal(err)
	}

	has, err := p.HasRemote(ctx, dir, "origin")
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Fatal("expected no origin remote on a freshly initialized repo")
	}
}

func TestDefaultBranchFallsBackToMain(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in test environment")
	}

	ctx := context.Background()
	dir := initTestRepo(t)

	p, err := gitprovider.New("local", nil)
	if err != nil {
		t.Fatal(err)
	}

	branch, err := p.DefaultBranch(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if branch != "main" {
		t.Fatalf("expected fallback to 'main' with no remote, got %q", branch)
	}
}

func TestMerge(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in test environment")
	}

	ctx := context.Background()
	dir := initTestRepo(t)

	p, err := gitprovider.New("local", nil)
	if err != nil {
		t.Fatal(err)
	}

	base, err := p.CurrentBranch(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := p.CreateBranch(ctx, dir, "feature-y"); err != nil {
		t.Fatal(err)
	}
	if err := p.Checkout(ctx, dir, "feature-y"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "feature.txt"), []byte("work"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGitCmd(t, dir, "add", ".")
	runGitCmd(t, dir, "commit", "-m", "feature work")

	if err := p.Checkout(ctx, dir, base); err != nil {
		t.Fatal(err)
	}
	if err := p.Merge(ctx, dir, "feature-y", true); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "feature.txt")); err != nil {
		t.Fatalf("expected feature.txt to exist after merge: %v", err)
	}
}

func TestDirtyStatus(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in test environment")
	}

	ctx := context.Background()
	dir := initTestRepo(t)

	p, err := gitprovider.New("local", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}

	status, err := p.Status(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Dirty {
		t.Fatal("expected dirty status")
	}
	if len(status.Untracked) == 0 {
		t.Fatal("expected untracked files")
	}
}

// --- Helpers ---

func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGitCmd(t, dir, "init")
	runGitCmd(t, dir, "config", "user.email", "test@test.com")
	runGitCmd(t, dir, "config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGitCmd(t, dir, "add", ".")
	runGitCmd(t, dir, "commit", "-m", "initial commit")
	return dir
}

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}
