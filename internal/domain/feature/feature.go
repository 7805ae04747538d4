// Package feature defines the Feature domain entity: the central unit of
// work tracked by the pipeline.
package feature

import "time"

// Status represents the current lifecycle state of a feature.
type Status string

const (
	StatusPending          Status = "pending"
	StatusInDev            Status = "in-dev"
	StatusReadyForReview   Status = "ready-for-review"
	StatusApproved         Status = "approved"
	StatusNeedsRevision    Status = "needs-revision"
	StatusQATesting        Status = "qa-testing"
	StatusPROpen           Status = "pr-open"
	StatusComplete         Status = "complete"
)

// Valid reports whether s is one of the recognized lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInDev, StatusReadyForReview, StatusApproved,
		StatusNeedsRevision, StatusQATesting, StatusPROpen, StatusComplete:
		return true
	}
	return false
}

// Feature is the central entity tracked by the pipeline: a discrete unit
// of work moving through the dev/review/qa/pr lifecycle.
type Feature struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	Status      Status `json:"status"`

	// DependsOn holds the ids of features that must reach StatusComplete
	// before this feature is actionable.
	DependsOn              []string `json:"depends_on"`
	Requirements           []string `json:"requirements"`
	ArchitectureCompliance []string `json:"architecture_compliance"`
	VerificationSteps      []string `json:"verification_steps"`

	AssignedTo string `json:"assigned_to"`
	ReviewedBy string `json:"reviewed_by"`
	TestedBy   string `json:"tested_by"`

	// Passes is the QA verdict. Only the qa action may set it, and it does
	// not by itself make the feature terminal — see Status.
	Passes bool `json:"passes"`

	// OpenSpecChangeID and OpenSpecTaskGroup together form the natural
	// upsert key used by the Spec Importer; empty OpenSpecChangeID means
	// the feature was hand-authored.
	OpenSpecChangeID  string `json:"openspec_change_id"`
	OpenSpecTaskGroup int    `json:"openspec_task_group"`
	OpenSpecReference string `json:"openspec_reference"`

	// PRNumber is the hosted PR CLI's pull request number, set once
	// CreatePR succeeds against a PR CLI. Zero means either no PR has been
	// opened yet or it was opened manually without a PR CLI.
	PRNumber int `json:"pr_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest holds the fields accepted when creating a feature via the
// CLI or the Spec Importer.
type CreateRequest struct {
	Category               string   `json:"category"`
	Description            string   `json:"description"`
	Notes                  string   `json:"notes"`
	DependsOn              []string `json:"depends_on"`
	Requirements           []string `json:"requirements"`
	ArchitectureCompliance []string `json:"architecture_compliance"`
	VerificationSteps      []string `json:"verification_steps"`
	AssignedTo             string   `json:"assigned_to"`
	OpenSpecChangeID       string   `json:"openspec_change_id"`
	OpenSpecTaskGroup      int      `json:"openspec_task_group"`
	OpenSpecReference      string   `json:"openspec_reference"`
}

// UpdateRequest holds the partial set of fields the CLI or an agent may
// mutate on an existing feature. Nil pointers mean "leave unchanged".
type UpdateRequest struct {
	Status *Status `json:"status,omitempty"`
	Passes *bool   `json:"passes,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}
