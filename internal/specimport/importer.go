package specimport

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kilnforge/pipelinectl/internal/domain/feature"
)

// FeatureStore is the narrow slice of the Store the Spec Importer needs.
// It is defined here, rather than imported from internal/store, so this
// package has no dependency on the storage layer's concrete type.
type FeatureStore interface {
	FeatureByOpenSpecKey(ctx context.Context, changeID string, taskGroup int) (*feature.Feature, error)
	CreateFeature(ctx context.Context, req feature.CreateRequest) (*feature.Feature, error)
	UpdateFeatureFields(ctx context.Context, id, category, description, openSpecReference, notes string, requirements, verificationSteps []string) (*feature.Feature, error)
}

// Importer turns OpenSpec changes into features via a ChangeSource and
// upserts them into a FeatureStore.
type Importer struct {
	Source ChangeSource
	Store  FeatureStore
}

func New(source ChangeSource, store FeatureStore) *Importer {
	return &Importer{Source: source, Store: store}
}

// ImportResult reports what happened to a single task group during import.
type ImportResult struct {
	ChangeID  string
	TaskGroup int
	FeatureID string
	Created   bool
}

// ImportAll imports every active change reported by the source.
func (im *Importer) ImportAll(ctx context.Context) ([]ImportResult, error) {
	changes, err := im.Source.ListChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}

	var all []ImportResult
	for _, change := range changes {
		results, err := im.ImportChange(ctx, change)
		if err != nil {
			return all, fmt.Errorf("import change %s: %w", change, err)
		}
		all = append(all, results...)
	}
	return all, nil
}

// ImportChange imports a single named change. Task groups within tasks.md
// become features keyed on (change, task-group-index); group g>=2 depends
// on group g-1's feature so the scheduler works through them in order.
// Re-importing an already-imported change updates description/requirements
// but never touches status, passes, or a feature's hand-edited depends_on.
func (im *Importer) ImportChange(ctx context.Context, change string) ([]ImportResult, error) {
	tasksContent, err := im.Source.ReadArtifact(ctx, change, ArtifactTasks)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("change %s has no tasks.md", change)
		}
		return nil, fmt.Errorf("read tasks.md: %w", err)
	}

	proposal, err := im.Source.ReadArtifact(ctx, change, ArtifactProposal)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read proposal.md: %w", err)
	}

	specDocs, err := im.Source.ReadSpecs(ctx, change)
	if err != nil {
		return nil, fmt.Errorf("read specs: %w", err)
	}

	var requirements, verificationSteps []string
	for _, doc := range specDocs {
		reqs, steps := ParseSpec(doc)
		requirements = append(requirements, reqs...)
		verificationSteps = append(verificationSteps, steps...)
	}

	groups := ParseTasks(change, tasksContent)

	category := change
	if len(proposal) > 0 {
		if title := firstNonEmptyLine(proposal); title != "" {
			category = title
		}
	}

	var results []ImportResult
	var previousFeatureID string
	for i, group := range groups {
		taskGroup := i + 1

		existing, err := im.Store.FeatureByOpenSpecKey(ctx, change, taskGroup)
		if err != nil {
			return results, fmt.Errorf("lookup %s#%d: %w", change, taskGroup, err)
		}

		if existing != nil {
			reference := fmt.Sprintf("%s#%d", change, taskGroup)
			updated, err := im.Store.UpdateFeatureFields(ctx, existing.ID, category, group.Title, reference, existing.Notes, requirements, mergeSteps(verificationSteps, group.Steps))
			if err != nil {
				return results, fmt.Errorf("update %s: %w", existing.ID, err)
			}
			results = append(results, ImportResult{ChangeID: change, TaskGroup: taskGroup, FeatureID: updated.ID, Created: false})
			previousFeatureID = updated.ID
			continue
		}

		req := feature.CreateRequest{
			Category:          category,
			Description:       group.Title,
			Requirements:      requirements,
			VerificationSteps: mergeSteps(verificationSteps, group.Steps),
			OpenSpecChangeID:  change,
			OpenSpecTaskGroup: taskGroup,
			OpenSpecReference: fmt.Sprintf("%s#%d", change, taskGroup),
		}
		if taskGroup >= 2 && previousFeatureID != "" {
			req.DependsOn = []string{previousFeatureID}
		}

		created, err := im.Store.CreateFeature(ctx, req)
		if err != nil {
			return results, fmt.Errorf("create feature for %s#%d: %w", change, taskGroup, err)
		}
		results = append(results, ImportResult{ChangeID: change, TaskGroup: taskGroup, FeatureID: created.ID, Created: true})
		previousFeatureID = created.ID
	}

	return results, nil
}

func mergeSteps(fromSpec, fromTasks []string) []string {
	if len(fromSpec) == 0 {
		return fromTasks
	}
	if len(fromTasks) == 0 {
		return fromSpec
	}
	return append(append([]string{}, fromSpec...), fromTasks...)
}

func firstNonEmptyLine(content []byte) string {
	for _, b := range splitLines(content) {
		if len(b) > 0 {
			return stripHeading(b)
		}
	}
	return ""
}

func splitLines(content []byte) []string {
	var lines []string
	start := 0
	for i, c := range content {
		if c == '\n' {
			lines = append(lines, string(content[start:i]))
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, string(content[start:]))
	}
	return lines
}

func stripHeading(line string) string {
	i := 0
	for i < len(line) && (line[i] == '#' || line[i] == ' ') {
		i++
	}
	return line[i:]
}
