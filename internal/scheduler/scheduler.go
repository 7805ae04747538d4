// Package scheduler picks the next action against the feature set: a
// pure function over the current features and the running escalation
// set, with no side effects and no knowledge of agents, git, or storage.
package scheduler

import (
	"fmt"

	"github.com/kilnforge/pipelinectl/internal/domain/feature"
)

// Action is the unit of work the Autoplay Controller (or a guided-mode
// operator) should perform next against a feature.
type Action string

const (
	ActionDev    Action = "dev"
	ActionReview Action = "review"
	ActionQA     Action = "qa"
	ActionPR     Action = "pr"
	ActionMerge  Action = "merge"
)

// Decision pairs a feature with the action the Scheduler chose for it.
type Decision struct {
	Feature feature.Feature
	Action  Action
}

// Outcome describes the terminal state of a scheduling pass when no
// feature matched: distinguishing "done" from "stuck" lets the Autoplay
// Controller choose its exit code and summary message.
type Outcome int

const (
	OutcomeDecided Outcome = iota
	OutcomeAllComplete
	OutcomeAllBlocked
	OutcomeAllEscalated
)

// Next returns the first actionable feature in dependency order, or an
// Outcome explaining why nothing is actionable. escalated holds ids the
// Autoplay Controller has already given up on for this run.
func Next(features []feature.Feature, escalated map[string]bool) (Decision, Outcome, error) {
	order, err := feature.ResolveOrder(features)
	if err != nil {
		return Decision{}, OutcomeDecided, fmt.Errorf("resolve order: %w", err)
	}

	byID := make(map[string]feature.Feature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}

	allComplete := true
	anyBlocked := false
	anyEscalated := false

	for _, id := range order {
		f := byID[id]

		if f.Status != feature.StatusComplete {
			allComplete = false
		}
		if escalated[id] {
			anyEscalated = true
			continue
		}
		if f.Status == feature.StatusComplete {
			continue
		}
		if !feature.DepsAreMet(f, byID) {
			anyBlocked = true
			continue
		}

		return Decision{Feature: f, Action: actionFor(f)}, OutcomeDecided, nil
	}

	switch {
	case allComplete:
		return Decision{}, OutcomeAllComplete, nil
	case anyEscalated && !anyBlocked:
		return Decision{}, OutcomeAllEscalated, nil
	default:
		return Decision{}, OutcomeAllBlocked, nil
	}
}

// actionFor maps a feature's status to the action the Scheduler assigns
// it. passes=true short-circuits everything up to the point a PR exists:
// once status=pr-open, the PR has already been opened and the remaining
// step is merge, so pr-open is checked before the passes short-circuit
// to avoid re-issuing pr forever.
func actionFor(f feature.Feature) Action {
	if f.Status == feature.StatusPROpen {
		return ActionMerge
	}
	if f.Passes {
		return ActionPR
	}

	switch f.Status {
	case feature.StatusPending, feature.StatusNeedsRevision:
		return ActionDev
	case feature.StatusReadyForReview:
		return ActionReview
	case feature.StatusApproved, feature.StatusQATesting:
		return ActionQA
	default:
		return ActionDev
	}
}
