package openspec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/kilnforge/pipelinectl/internal/domain"
	"github.com/kilnforge/pipelinectl/internal/specimport"
)

// CLISource implements specimport.ChangeSource by shelling out to the
// openspec CLI, preferred over FSSource whenever the binary is present:
// it understands change state (draft/active/archived) that a bare
// filesystem walk cannot.
type CLISource struct {
	ProjectRoot string
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
	lookPath    func(file string) (string, error)
}

func NewCLISource(projectRoot string) *CLISource {
	return &CLISource{ProjectRoot: projectRoot, execCommand: exec.CommandContext, lookPath: exec.LookPath}
}

// Available reports whether the openspec binary is on PATH.
func (s *CLISource) Available() bool {
	_, err := s.lookPath("openspec")
	return err == nil
}

func (s *CLISource) run(ctx context.Context, args ...string) ([]byte, error) {
	if _, err := s.lookPath("openspec"); err != nil {
		return nil, fmt.Errorf("%w: openspec", domain.ErrExternalToolMissing)
	}

	cmd := s.execCommand(ctx, "openspec", args...)
	cmd.Dir = s.ProjectRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("openspec %v: %s: %w", args, stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

type cliChangeSummary struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (s *CLISource) ListChanges(ctx context.Context) ([]string, error) {
	out, err := s.run(ctx, "list", "--json")
	if err != nil {
		return nil, err
	}

	var summaries []cliChangeSummary
	if err := json.Unmarshal(out, &summaries); err != nil {
		return nil, fmt.Errorf("parse openspec list output: %w", err)
	}

	var names []string
	for _, c := range summaries {
		if c.Status == "archived" {
			continue
		}
		names = append(names, c.Name)
	}
	return names, nil
}

type cliArtifact struct {
	Content string `json:"content"`
}

func (s *CLISource) ReadArtifact(ctx context.Context, change, artifact string) ([]byte, error) {
	out, err := s.run(ctx, "show", change, "--artifact", artifact, "--json")
	if err != nil {
		return nil, err
	}

	var a cliArtifact
	if err := json.Unmarshal(out, &a); err != nil {
		return nil, fmt.Errorf("parse openspec show output: %w", err)
	}
	return []byte(a.Content), nil
}

type cliSpecFile struct {
	Content string `json:"content"`
}

func (s *CLISource) ReadSpecs(ctx context.Context, change string) ([][]byte, error) {
	out, err := s.run(ctx, "show", change, "--specs", "--json")
	if err != nil {
		return nil, err
	}

	var files []cliSpecFile
	if err := json.Unmarshal(out, &files); err != nil {
		return nil, fmt.Errorf("parse openspec specs output: %w", err)
	}

	contents := make([][]byte, 0, len(files))
	for _, f := range files {
		contents = append(contents, []byte(f.Content))
	}
	return contents, nil
}

func (s *CLISource) Archive(ctx context.Context, change string) error {
	_, err := s.run(ctx, "archive", change, "--yes")
	return err
}

var _ specimport.ChangeSource = (*CLISource)(nil)
