// Package agentrunner composes the prompt an agent backend receives and
// drives its subprocess lifecycle, without ever parsing its output for
// state changes — the agent is expected to mutate the Store itself.
package agentrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilnforge/pipelinectl/internal/domain/feature"
	"github.com/kilnforge/pipelinectl/internal/port/agentbackend"
)

const promptDelimiter = "\n---\n"

// roleDirectives holds the fixed, role-specific instruction appended to
// every prompt for that role. Wording may drift from any external
// reference; the semantics (what each role must do before handing back
// control) must not.
var roleDirectives = map[agentbackend.Role]string{
	agentbackend.RoleDev: "Implement this feature with full architecture compliance. " +
		"When the implementation is complete, transition the feature to ready-for-review.",
	agentbackend.RoleReview: "Execute every verification step for every applicable architecture principle. " +
		"Approve the feature or reject it with concrete evidence for each failing point.",
	agentbackend.RoleQA: "Execute every verification step. On success, set passes=true but do not set " +
		"status=complete — completion is decided by the VCS Bridge after a successful merge. " +
		"On failure, set status=needs-revision.",
}

const revisionDirective = "\nThis feature was previously rejected. Consult the rejection feedback recorded " +
	"in version control notes before making changes."

// Runner builds prompts and drives agent backend subprocesses.
type Runner struct {
	// PromptDir holds one file per role: dev.md, review.md, qa.md. A
	// missing file falls back to an empty base prompt — only the fixed
	// role directive and task block are then sent.
	PromptDir string
}

func New(promptDir string) *Runner {
	return &Runner{PromptDir: promptDir}
}

// BuildPrompt composes the full prompt for one agent invocation: the
// role's base prompt file, the fixed delimiter, and a task block with
// the feature id, description, a full JSON dump of the feature, the
// role directive, and — for dev picking up a rejected feature — the
// revision-feedback instruction.
func (r *Runner) BuildPrompt(f feature.Feature, role agentbackend.Role) (string, error) {
	base, err := r.rolePrompt(role)
	if err != nil {
		return "", err
	}

	featureJSON, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal feature: %w", err)
	}

	directive := roleDirectives[role]
	if role == agentbackend.RoleDev && f.Status == feature.StatusNeedsRevision {
		directive += revisionDirective
	}

	task := fmt.Sprintf("Feature: %s\nDescription: %s\n\n%s\n\n%s\n",
		f.ID, f.Description, featureJSON, directive)

	return base + promptDelimiter + task, nil
}

func (r *Runner) rolePrompt(role agentbackend.Role) (string, error) {
	if r.PromptDir == "" {
		return "", nil
	}
	path := filepath.Join(r.PromptDir, string(role)+".md")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read role prompt %s: %w", path, err)
	}
	return string(content), nil
}

// Run builds the prompt for f/role and executes it against backend. The
// caller reloads the feature from the Store afterward to observe any
// state change the agent made — this function returns only what was
// observed of the subprocess itself.
func (r *Runner) Run(ctx context.Context, backend agentbackend.Backend, f feature.Feature, role agentbackend.Role, projectRoot, model string, maxTurns int) (*agentbackend.Result, error) {
	prompt, err := r.BuildPrompt(f, role)
	if err != nil {
		return nil, err
	}

	session := &agentbackend.Session{
		FeatureID:   f.ID,
		Role:        role,
		ProjectRoot: projectRoot,
		Prompt:      prompt,
		MaxTurns:    maxTurns,
		Model:       model,
	}

	return backend.Execute(ctx, session)
}
