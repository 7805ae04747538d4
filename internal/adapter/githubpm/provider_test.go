package githubpm

import (
	"context"
	"errors"
	"os/exec"
	"testing"
)

func TestProviderName(t *testing.T) {
	p := newProvider()
	if p.Name() != "github" {
		t.Fatalf("expected name 'github', got %q", p.Name())
	}
}

func TestProviderCapabilities(t *testing.T) {
	p := newProvider()
	caps := p.Capabilities()
	if !caps.Create || !caps.Merge {
		t.Fatal("expected Create=true, Merge=true")
	}
}

func TestAvailableFalseWhenGhMissing(t *testing.T) {
	p := &Provider{lookPath: func(string) (string, error) { return "", errors.New("not found") }}
	if p.Available(context.Background()) {
		t.Fatal("expected Available()=false when gh is missing")
	}
}

func TestAvailableTrueWhenGhPresent(t *testing.T) {
	p := &Provider{lookPath: func(string) (string, error) { return "/usr/bin/gh", nil }}
	if !p.Available(context.Background()) {
		t.Fatal("expected Available()=true when gh is present")
	}
}

func TestCreate_CommandConstruction(t *testing.T) {
	var capturedArgs []string
	p := &Provider{
		execCommand: func(_ context.Context, name string, args ...string) *exec.Cmd {
			capturedArgs = append([]string{name}, args...)
			return exec.Command("echo", `{"number":7,"url":"https://github.com/o/r/pull/7"}`)
		},
	}

	pr, err := p.Create(context.Background(), t.TempDir(), "main", "feature/feat-001", "FEAT-001: add thing", "body text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.Number != 7 {
		t.Errorf("expected PR number 7, got %d", pr.Number)
	}
	if pr.State != "open" {
		t.Errorf("expected state 'open', got %q", pr.State)
	}

	expected := []string{"gh", "pr", "create", "--base", "main", "--head", "feature/feat-001", "--title", "FEAT-001: add thing", "--body", "body text", "--json", "number,url"}
	if len(capturedArgs) != len(expected) {
		t.Fatalf("expected %d args, got %d: %v", len(expected), len(capturedArgs), capturedArgs)
	}
	for i, exp := range expected {
		if capturedArgs[i] != exp {
			t.Errorf("arg[%d]: expected %q, got %q", i, exp, capturedArgs[i])
		}
	}
}

func TestMerge_CommandConstruction(t *testing.T) {
	var capturedArgs []string
	p := &Provider{
		execCommand: func(_ context.Context, name string, args ...string) *exec.Cmd {
			capturedArgs = append([]string{name}, args...)
			return exec.Command("true")
		},
	}

	if err := p.Merge(context.Background(), t.TempDir(), 7, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"gh", "pr", "merge", "7", "--merge", "--delete-branch"}
	if len(capturedArgs) != len(expected) {
		t.Fatalf("expected %d args, got %d: %v", len(expected), len(capturedArgs), capturedArgs)
	}
	for i, exp := range expected {
		if capturedArgs[i] != exp {
			t.Errorf("arg[%d]: expected %q, got %q", i, exp, capturedArgs[i])
		}
	}
}
