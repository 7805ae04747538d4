// Package autoplay implements the Autoplay Controller: the loop that
// repeatedly asks the Scheduler for the next action and drives the
// Agent Runner and VCS Bridge until the feature set is complete,
// entirely blocked, or every actionable feature has been escalated.
package autoplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kilnforge/pipelinectl/internal/agentrunner"
	"github.com/kilnforge/pipelinectl/internal/domain/feature"
	"github.com/kilnforge/pipelinectl/internal/port/agentbackend"
	"github.com/kilnforge/pipelinectl/internal/scheduler"
	"github.com/kilnforge/pipelinectl/internal/specimport"
	"github.com/kilnforge/pipelinectl/internal/vcs"
)

// ErrEscalations is returned by Run when the loop stopped with one or more
// features escalated, whether the rest were escalated too or blocked — the
// CLI surface exits non-zero on it.
var ErrEscalations = errors.New("autoplay: one or more features were escalated")

// ModeOrchestrator runs the loop with real agent subprocess spawns.
// ModeTeam skips agent spawns and instead prints textual dev/review/qa
// instructions for a human-driven multi-agent tool, batched
// FeaturesPerLeadSession at a time.
const (
	ModeOrchestrator = "orchestrator"
	ModeTeam         = "team"
)

// FeatureStore is the slice of the Store the Controller needs.
type FeatureStore interface {
	ListFeatures(ctx context.Context) ([]feature.Feature, error)
	GetFeature(ctx context.Context, id string) (*feature.Feature, error)
	Update(ctx context.Context, id string, req feature.UpdateRequest) (*feature.Feature, error)
	SetPRNumber(ctx context.Context, id string, number int) error
}

// SessionRecorder logs the run as a pipeline session for the Read-Model
// Server's activity feed. It is optional: a nil Controller.Sessions
// simply skips logging, so tests and one-off scripted runs don't need it.
type SessionRecorder interface {
	StartSession(ctx context.Context, mode string, autoMerge bool) (string, error)
	EndSession(ctx context.Context, id, outcome string) error
	RecordEvent(ctx context.Context, sessionID, featureID, action, detail string) error
}

// Controller runs the autoplay loop.
type Controller struct {
	Store       FeatureStore
	Runner      *agentrunner.Runner
	Backend     agentbackend.Backend
	Bridge      *vcs.Bridge
	ProjectRoot string
	Model       string
	MaxTurns    int
	MaxRetries  int
	Log         *slog.Logger

	// Mode selects ModeOrchestrator (default) or ModeTeam. FeaturesPerLeadSession
	// bounds how many textual instructions a ModeTeam run emits before returning.
	Mode                   string
	FeaturesPerLeadSession int

	// Source and Importer back the OpenSpec pre-loop import and post-merge
	// auto-archive check. Both are optional: a nil Importer skips the
	// pre-loop import regardless of AutoImport, and a nil Source or empty
	// OpenSpecChangeID skips the auto-archive check regardless of AutoArchive.
	Source      specimport.ChangeSource
	Importer    *specimport.Importer
	AutoImport  bool
	AutoArchive bool

	// Sessions, when set, records this run and every action taken during
	// it for the Read-Model Server's activity feed.
	Sessions SessionRecorder
}

func New(store FeatureStore, runner *agentrunner.Runner, backend agentbackend.Backend, bridge *vcs.Bridge, projectRoot, model string, maxTurns, maxRetries int, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Controller{
		Store: store, Runner: runner, Backend: backend, Bridge: bridge,
		ProjectRoot: projectRoot, Model: model, MaxTurns: maxTurns, MaxRetries: maxRetries, Log: log,
	}
}

// Run drives the loop to completion. retries/escalated are constructed
// fresh here on every call, never held across runs.
func (c *Controller) Run(ctx context.Context) error {
	sessionID := c.startSession(ctx)

	if c.AutoImport && c.Importer != nil {
		if results, err := c.Importer.ImportAll(ctx); err != nil {
			c.Log.Warn("pre-loop openspec import failed", "error", err)
		} else if len(results) > 0 {
			c.Log.Info("pre-loop openspec import complete", "features", len(results))
		}
	}

	if c.Mode == ModeTeam {
		return c.runTeamMode(ctx, sessionID)
	}

	retries := map[string]int{}
	escalated := map[string]bool{}

	for {
		if err := ctx.Err(); err != nil {
			c.endSession(ctx, sessionID, "interrupted")
			return err
		}

		features, err := c.Store.ListFeatures(ctx)
		if err != nil {
			c.endSession(ctx, sessionID, "error")
			return fmt.Errorf("list features: %w", err)
		}

		decision, outcome, err := scheduler.Next(features, escalated)
		if err != nil {
			c.endSession(ctx, sessionID, "error")
			return fmt.Errorf("scheduler: %w", err)
		}

		if outcome != scheduler.OutcomeDecided {
			result := c.finish(outcome, escalated)
			c.endSession(ctx, sessionID, outcomeLabel(outcome, result))
			return result
		}

		if err := c.step(ctx, sessionID, decision, retries, escalated); err != nil {
			c.endSession(ctx, sessionID, "error")
			return err
		}
	}
}

// runTeamMode emits textual dev/review/qa instructions for a human-driven
// multi-agent tool instead of spawning agent subprocesses, stopping once
// FeaturesPerLeadSession instructions have been printed or nothing more is
// actionable. PR and merge actions are not agent work, so they still run
// through the VCS Bridge directly.
func (c *Controller) runTeamMode(ctx context.Context, sessionID string) error {
	batch := c.FeaturesPerLeadSession
	if batch <= 0 {
		batch = 1
	}

	instructed := map[string]bool{}
	emitted := 0
	for emitted < batch {
		if err := ctx.Err(); err != nil {
			c.endSession(ctx, sessionID, "interrupted")
			return err
		}

		features, err := c.Store.ListFeatures(ctx)
		if err != nil {
			c.endSession(ctx, sessionID, "error")
			return fmt.Errorf("list features: %w", err)
		}

		decision, outcome, err := scheduler.Next(features, instructed)
		if err != nil {
			c.endSession(ctx, sessionID, "error")
			return fmt.Errorf("scheduler: %w", err)
		}
		if outcome != scheduler.OutcomeDecided {
			// The instructed set is reused as the scheduler's exclusion map,
			// so exhausting it here just means every actionable feature has
			// already been handed out this batch, not that anything actually
			// failed the way a real orchestrator-mode escalation would.
			if outcome == scheduler.OutcomeAllComplete {
				fmt.Println("All features complete.")
			}
			c.endSession(ctx, sessionID, "team-batch-emitted")
			return nil
		}

		switch decision.Action {
		case scheduler.ActionPR, scheduler.ActionMerge:
			if err := c.step(ctx, sessionID, decision, map[string]int{}, instructed); err != nil {
				c.endSession(ctx, sessionID, "error")
				return err
			}
		default:
			fmt.Println(teamInstruction(decision))
			c.recordEvent(ctx, sessionID, decision.Feature.ID, string(decision.Action), "emitted textual instruction for team mode")
			instructed[decision.Feature.ID] = true
			emitted++
		}
	}

	c.endSession(ctx, sessionID, "team-batch-emitted")
	return nil
}

// teamInstruction renders a decision as a line of text for the operator to
// hand to a human-driven multi-agent tool.
func teamInstruction(d scheduler.Decision) string {
	f := d.Feature
	switch d.Action {
	case scheduler.ActionDev:
		return fmt.Sprintf("[team] implement %s (%s) — status %s.", f.ID, f.Description, f.Status)
	case scheduler.ActionReview:
		return fmt.Sprintf("[team] review %s (%s) — currently ready-for-review.", f.ID, f.Description)
	case scheduler.ActionQA:
		return fmt.Sprintf("[team] QA-test %s (%s) — currently approved.", f.ID, f.Description)
	default:
		return fmt.Sprintf("[team] %s on %s (%s).", d.Action, f.ID, f.Description)
	}
}

// maybeArchive triggers the OpenSpec auto-archive check after any
// successful transition to complete: if every sibling feature sharing f's
// OpenSpecChangeID has also reached complete, it invokes the change
// source's Archive. Failure is logged and non-fatal.
func (c *Controller) maybeArchive(ctx context.Context, sessionID string, f feature.Feature) {
	if !c.AutoArchive || c.Source == nil || f.OpenSpecChangeID == "" {
		return
	}

	all, err := c.Store.ListFeatures(ctx)
	if err != nil {
		c.Log.Warn("auto-archive: list features failed", "error", err)
		return
	}
	for _, sibling := range all {
		if sibling.OpenSpecChangeID == f.OpenSpecChangeID && sibling.Status != feature.StatusComplete {
			return
		}
	}

	if err := c.Source.Archive(ctx, f.OpenSpecChangeID); err != nil {
		c.Log.Warn("auto-archive failed", "change", f.OpenSpecChangeID, "error", err)
		return
	}
	c.recordEvent(ctx, sessionID, f.ID, "archive", fmt.Sprintf("auto-archived change %s", f.OpenSpecChangeID))
}

func (c *Controller) startSession(ctx context.Context) string {
	if c.Sessions == nil {
		return ""
	}
	id, err := c.Sessions.StartSession(ctx, "autoplay", c.Bridge != nil && c.Bridge.AutoMerge)
	if err != nil {
		c.Log.Warn("failed to start pipeline session", "error", err)
		return ""
	}
	return id
}

func (c *Controller) endSession(ctx context.Context, sessionID, outcome string) {
	if c.Sessions == nil || sessionID == "" {
		return
	}
	if err := c.Sessions.EndSession(ctx, sessionID, outcome); err != nil {
		c.Log.Warn("failed to end pipeline session", "error", err)
	}
}

func (c *Controller) recordEvent(ctx context.Context, sessionID, featureID, action, detail string) {
	if c.Sessions == nil || sessionID == "" {
		return
	}
	if err := c.Sessions.RecordEvent(ctx, sessionID, featureID, action, detail); err != nil {
		c.Log.Warn("failed to record session event", "error", err)
	}
}

func outcomeLabel(outcome scheduler.Outcome, result error) string {
	switch outcome {
	case scheduler.OutcomeAllComplete:
		return "completed"
	case scheduler.OutcomeAllEscalated:
		return "escalated"
	default:
		if result != nil {
			return "escalated"
		}
		return "blocked"
	}
}

func (c *Controller) finish(outcome scheduler.Outcome, escalated map[string]bool) error {
	switch outcome {
	case scheduler.OutcomeAllComplete:
		fmt.Println("All features complete.")
		return nil
	case scheduler.OutcomeAllEscalated:
		fmt.Printf("All remaining features are escalated: %v\n", sortedKeys(escalated))
		return ErrEscalations
	default:
		if len(escalated) > 0 {
			fmt.Printf("Remaining features are blocked; %d escalated: %v\n", len(escalated), sortedKeys(escalated))
			return ErrEscalations
		}
		fmt.Println("Remaining features are blocked on unmet dependencies.")
		return nil
	}
}

func (c *Controller) step(ctx context.Context, sessionID string, decision scheduler.Decision, retries map[string]int, escalated map[string]bool) error {
	f := decision.Feature

	switch decision.Action {
	case scheduler.ActionPR:
		status, prNumber, err := c.Bridge.CreatePR(ctx, f)
		if err != nil {
			return fmt.Errorf("create pr for %s: %w", f.ID, err)
		}
		if prNumber > 0 {
			if err := c.Store.SetPRNumber(ctx, f.ID, prNumber); err != nil {
				return fmt.Errorf("record pr number for %s: %w", f.ID, err)
			}
		}
		_, err = c.Store.Update(ctx, f.ID, feature.UpdateRequest{Status: &status})
		c.recordEvent(ctx, sessionID, f.ID, string(decision.Action), "opened pull request")
		return err

	case scheduler.ActionMerge:
		status, err := c.Bridge.MergePR(ctx, f, f.PRNumber)
		if errors.Is(err, vcs.ErrMergeSkipped) {
			c.escalate(f.ID, escalated)
			c.recordEvent(ctx, sessionID, f.ID, string(decision.Action), "merge skipped: safe mode or auto_merge disabled")
			return nil
		}
		if err != nil {
			return fmt.Errorf("merge pr for %s: %w", f.ID, err)
		}
		if _, err := c.Store.Update(ctx, f.ID, feature.UpdateRequest{Status: &status}); err != nil {
			return err
		}
		c.recordEvent(ctx, sessionID, f.ID, string(decision.Action), "merged pull request")
		if status == feature.StatusComplete {
			c.maybeArchive(ctx, sessionID, f)
		}
		return nil

	default:
		return c.runAgent(ctx, sessionID, decision, retries, escalated)
	}
}

func (c *Controller) runAgent(ctx context.Context, sessionID string, decision scheduler.Decision, retries map[string]int, escalated map[string]bool) error {
	f := decision.Feature

	if decision.Action == scheduler.ActionDev && f.Status == feature.StatusNeedsRevision {
		retries[f.ID]++
		if retries[f.ID] > c.MaxRetries {
			c.escalate(f.ID, escalated)
			return nil
		}
	}

	role := actionToRole(decision.Action)
	statusBefore := f.Status

	if _, err := c.Runner.Run(ctx, c.Backend, f, role, c.ProjectRoot, c.Model, c.MaxTurns); err != nil {
		return fmt.Errorf("run agent for %s: %w", f.ID, err)
	}

	after, err := c.Store.GetFeature(ctx, f.ID)
	if err != nil {
		return fmt.Errorf("reload %s: %w", f.ID, err)
	}

	if after.Status == statusBefore {
		retries[f.ID]++
		c.recordEvent(ctx, sessionID, f.ID, string(decision.Action), "stalled: status unchanged")
		if retries[f.ID] > c.MaxRetries {
			c.escalate(f.ID, escalated)
		}
		return nil
	}

	c.recordEvent(ctx, sessionID, f.ID, string(decision.Action), fmt.Sprintf("%s -> %s", statusBefore, after.Status))
	return nil
}

func (c *Controller) escalate(id string, escalated map[string]bool) {
	escalated[id] = true
	c.Log.Warn("feature escalated", "feature", id)
}

func actionToRole(a scheduler.Action) agentbackend.Role {
	switch a {
	case scheduler.ActionReview:
		return agentbackend.RoleReview
	case scheduler.ActionQA:
		return agentbackend.RoleQA
	default:
		return agentbackend.RoleDev
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
