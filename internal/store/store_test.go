package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kilnforge/pipelinectl/internal/domain"
	"github.com/kilnforge/pipelinectl/internal/domain/feature"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(":memory:")
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateFeatureAllocatesSequentialIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f1, err := s.CreateFeature(ctx, feature.CreateRequest{Description: "first"})
	if err != nil {
		t.Fatalf("create f1: %v", err)
	}
	f2, err := s.CreateFeature(ctx, feature.CreateRequest{Description: "second"})
	if err != nil {
		t.Fatalf("create f2: %v", err)
	}

	if f1.ID != "FEAT-001" || f2.ID != "FEAT-002" {
		t.Fatalf("expected sequential ids, got %s, %s", f1.ID, f2.ID)
	}
	if f1.Status != feature.StatusPending {
		t.Errorf("expected new feature to start pending, got %s", f1.Status)
	}
}

func TestCreateFeatureRequiresDescription(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateFeature(context.Background(), feature.CreateRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGetFeatureRoundTripsLists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dep, err := s.CreateFeature(ctx, feature.CreateRequest{Description: "dependency"})
	if err != nil {
		t.Fatalf("create dep: %v", err)
	}

	created, err := s.CreateFeature(ctx, feature.CreateRequest{
		Description:  "with lists",
		DependsOn:    []string{dep.ID},
		Requirements: []string{"req a", "req b"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetFeature(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.DependsOn) != 1 || got.DependsOn[0] != dep.ID {
		t.Errorf("expected depends_on %v, got %v", []string{dep.ID}, got.DependsOn)
	}
	if len(got.Requirements) != 2 {
		t.Errorf("expected 2 requirements, got %v", got.Requirements)
	}
}

func TestUpdateChangesStatusAndPasses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateFeature(ctx, feature.CreateRequest{Description: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status := feature.StatusInDev
	passes := true
	updated, err := s.Update(ctx, created.ID, feature.UpdateRequest{Status: &status, Passes: &passes})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != feature.StatusInDev || !updated.Passes {
		t.Fatalf("expected in-dev/passes=true, got %s/%v", updated.Status, updated.Passes)
	}
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateFeature(ctx, feature.CreateRequest{Description: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bogus := feature.Status("not-a-real-status")
	if _, err := s.Update(ctx, created.ID, feature.UpdateRequest{Status: &bogus}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateFeatureFieldsRefreshesReferenceAndNotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateFeature(ctx, feature.CreateRequest{
		Description:       "old title",
		Notes:             "old notes",
		OpenSpecReference: "add-thing#1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := s.UpdateFeatureFields(ctx, created.ID, "auth", "new title", "add-thing#2", "new notes",
		[]string{"req a"}, []string{"verify a"})
	if err != nil {
		t.Fatalf("update fields: %v", err)
	}
	if updated.Description != "new title" || updated.OpenSpecReference != "add-thing#2" || updated.Notes != "new notes" {
		t.Fatalf("expected refreshed description/reference/notes, got %+v", updated)
	}
	if updated.Status != feature.StatusPending {
		t.Fatalf("expected status untouched by re-import, got %s", updated.Status)
	}
}

func TestSetPRNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateFeature(ctx, feature.CreateRequest{Description: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.PRNumber != 0 {
		t.Fatalf("expected new feature to have no pr number, got %d", created.PRNumber)
	}

	if err := s.SetPRNumber(ctx, created.ID, 42); err != nil {
		t.Fatalf("set pr number: %v", err)
	}
	got, err := s.GetFeature(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PRNumber != 42 {
		t.Fatalf("expected pr number 42, got %d", got.PRNumber)
	}

	if err := s.SetPRNumber(ctx, "FEAT-999", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown feature, got %v", err)
	}
}

func TestFeatureByOpenSpecKeyUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	none, err := s.FeatureByOpenSpecKey(ctx, "add-thing", 1)
	if err != nil {
		t.Fatalf("lookup miss: %v", err)
	}
	if none != nil {
		t.Fatal("expected nil for unmatched key")
	}

	created, err := s.CreateFeature(ctx, feature.CreateRequest{
		Description:       "group one",
		OpenSpecChangeID:  "add-thing",
		OpenSpecTaskGroup: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := s.FeatureByOpenSpecKey(ctx, "add-thing", 1)
	if err != nil {
		t.Fatalf("lookup hit: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("expected to find %s, got %+v", created.ID, found)
	}
}

func TestReplaceFeatureRoundTripsExportedFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dep, err := s.CreateFeature(ctx, feature.CreateRequest{Description: "dependency"})
	if err != nil {
		t.Fatalf("create dep: %v", err)
	}

	exported := feature.Feature{
		ID:                     "FEAT-042",
		Category:               "auth",
		Description:            "login with SSO",
		Notes:                  "blocked on IdP metadata",
		Status:                 feature.StatusPROpen,
		DependsOn:              []string{dep.ID},
		Requirements:           []string{"req a", "req b"},
		ArchitectureCompliance: []string{"pattern-1"},
		VerificationSteps:      []string{"run e2e"},
		AssignedTo:             "dev-agent",
		ReviewedBy:             "review-agent",
		TestedBy:               "qa-agent",
		Passes:                 true,
		OpenSpecChangeID:       "add-sso",
		OpenSpecTaskGroup:      2,
		OpenSpecReference:      "add-sso#2",
		PRNumber:               17,
		CreatedAt:              time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:              time.Date(2026, 1, 3, 4, 5, 6, 0, time.UTC),
	}

	if _, err := s.ReplaceFeature(ctx, exported); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.GetFeature(ctx, "FEAT-042")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Status != exported.Status || got.PRNumber != exported.PRNumber || got.Passes != exported.Passes {
		t.Fatalf("expected status/pr_number/passes to round-trip verbatim, got %+v", got)
	}
	if got.ReviewedBy != exported.ReviewedBy || got.TestedBy != exported.TestedBy {
		t.Fatalf("expected reviewed_by/tested_by to round-trip verbatim, got %+v", got)
	}
	if !got.CreatedAt.Equal(exported.CreatedAt) || !got.UpdatedAt.Equal(exported.UpdatedAt) {
		t.Fatalf("expected created_at/updated_at to round-trip verbatim, got %+v vs %+v", got.CreatedAt, got.UpdatedAt)
	}
	if len(got.DependsOn) != 1 || got.DependsOn[0] != dep.ID {
		t.Fatalf("expected depends_on to round-trip, got %v", got.DependsOn)
	}
	if len(got.Requirements) != 2 || len(got.ArchitectureCompliance) != 1 || len(got.VerificationSteps) != 1 {
		t.Fatalf("expected list fields to round-trip, got %+v", got)
	}

	// Replacing again with different list contents must not leave stale rows
	// behind: the cascade-deleting foreign keys on the child tables mean
	// INSERT OR REPLACE clears them before the new rows are written.
	exported.Requirements = []string{"req only one now"}
	if _, err := s.ReplaceFeature(ctx, exported); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	got, err = s.GetFeature(ctx, "FEAT-042")
	if err != nil {
		t.Fatalf("get after second replace: %v", err)
	}
	if len(got.Requirements) != 1 || got.Requirements[0] != "req only one now" {
		t.Fatalf("expected requirements to be replaced, not appended, got %v", got.Requirements)
	}
}

func TestReplaceFeatureRejectsMissingIDOrInvalidStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplaceFeature(ctx, feature.Feature{Description: "x", Status: feature.StatusPending}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing id, got %v", err)
	}
	if _, err := s.ReplaceFeature(ctx, feature.Feature{ID: "FEAT-001", Description: "x", Status: feature.Status("bogus")}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for invalid status, got %v", err)
	}
}

func TestConfigDefaultsAreSeeded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.GetConfig(ctx, "execution_mode")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if v != "guided" {
		t.Errorf("expected default execution_mode=guided, got %q", v)
	}

	if err := s.SetConfig(ctx, "execution_mode", "autoplay"); err != nil {
		t.Fatalf("set config: %v", err)
	}
	v, err = s.GetConfig(ctx, "execution_mode")
	if err != nil {
		t.Fatalf("get config after set: %v", err)
	}
	if v != "autoplay" {
		t.Errorf("expected updated value, got %q", v)
	}
}

func TestArchitectureRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetArchitecture(ctx, "principles"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any set, got %v", err)
	}

	if err := s.SetArchitecture(ctx, "principles", "# Architecture\n..."); err != nil {
		t.Fatalf("set: %v", err)
	}
	arch, err := s.GetArchitecture(ctx, "principles")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if arch.Kind != "principles" {
		t.Errorf("unexpected kind: %q", arch.Kind)
	}

	if err := s.SetArchitecture(ctx, "patterns", "# Patterns\n..."); err != nil {
		t.Fatalf("set patterns: %v", err)
	}
	all, err := s.AllArchitecture(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 stored blobs, got %d", len(all))
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.StartSession(ctx, "autoplay", true)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := s.RecordEvent(ctx, id, "FEAT-001", "dev", "launched agent"); err != nil {
		t.Fatalf("record event: %v", err)
	}

	events, err := s.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 1 || events[0].SessionID != id {
		t.Fatalf("unexpected events: %+v", events)
	}

	if err := s.EndSession(ctx, id, "completed"); err != nil {
		t.Fatalf("end session: %v", err)
	}
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.EndedAt == nil || sess.Outcome != "completed" {
		t.Fatalf("expected ended session with outcome, got %+v", sess)
	}
}
