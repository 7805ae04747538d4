package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilnforge/pipelinectl/internal/domain/feature"
)

// withProject points the persistent --project flag at a fresh temp
// directory for the duration of one test.
func withProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := projectRoot
	projectRoot = dir
	t.Cleanup(func() { projectRoot = old })
	return dir
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestFeatureCreateGetListRoundTrip(t *testing.T) {
	withProject(t)

	featureCreateDescription = "add login form"
	featureCreateCategory = "auth"
	t.Cleanup(func() { featureCreateDescription, featureCreateCategory = "", "" })

	var id string
	out := captureStdout(t, func() {
		if err := featureCreateCmd.RunE(featureCreateCmd, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	})
	id = strings.TrimSpace(out)
	if id == "" {
		t.Fatal("expected an allocated feature id")
	}

	out = captureStdout(t, func() {
		if err := featureGetCmd.RunE(featureGetCmd, []string{id}); err != nil {
			t.Fatalf("get: %v", err)
		}
	})
	var got feature.Feature
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Description != "add login form" {
		t.Fatalf("expected description to round-trip, got %q", got.Description)
	}

	out = captureStdout(t, func() {
		if err := featureListCmd.RunE(featureListCmd, nil); err != nil {
			t.Fatalf("list: %v", err)
		}
	})
	if !strings.Contains(out, id) {
		t.Fatalf("expected list output to contain %s, got %q", id, out)
	}
}

func TestFeatureGetUnknownIDFails(t *testing.T) {
	withProject(t)
	if err := featureGetCmd.RunE(featureGetCmd, []string{"FEAT-999"}); err == nil {
		t.Fatal("expected an error for an unknown feature id")
	}
}

func TestConfigGetSetRoundTrip(t *testing.T) {
	withProject(t)

	if err := configSetCmd.RunE(configSetCmd, []string{"model", "gpt-5"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	out := captureStdout(t, func() {
		if err := configGetCmd.RunE(configGetCmd, []string{"model"}); err != nil {
			t.Fatalf("get: %v", err)
		}
	})
	if strings.TrimSpace(out) != "gpt-5" {
		t.Fatalf("expected gpt-5, got %q", out)
	}
}

func TestGuidedPrintsInstructionForFreshProject(t *testing.T) {
	withProject(t)

	featureCreateDescription = "first feature"
	t.Cleanup(func() { featureCreateDescription = "" })
	captureStdout(t, func() {
		if err := featureCreateCmd.RunE(featureCreateCmd, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	})

	out := captureStdout(t, func() {
		if err := guidedCmd.RunE(guidedCmd, nil); err != nil {
			t.Fatalf("guided: %v", err)
		}
	})
	if !strings.Contains(out, "implement") {
		t.Fatalf("expected a dev instruction, got %q", out)
	}
}

func TestStatusReportsTotalCount(t *testing.T) {
	withProject(t)

	featureCreateDescription = "a feature"
	t.Cleanup(func() { featureCreateDescription = "" })
	captureStdout(t, func() {
		if err := featureCreateCmd.RunE(featureCreateCmd, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	})

	out := captureStdout(t, func() {
		if err := statusCmd.RunE(statusCmd, nil); err != nil {
			t.Fatalf("status: %v", err)
		}
	})
	if !strings.Contains(out, "total: 1") {
		t.Fatalf("expected total: 1, got %q", out)
	}
}

func TestFeatureExportImportRoundTrip(t *testing.T) {
	withProject(t)

	featureCreateDescription = "add login form"
	featureCreateCategory = "auth"
	t.Cleanup(func() { featureCreateDescription, featureCreateCategory = "", "" })
	var id string
	out := captureStdout(t, func() {
		if err := featureCreateCmd.RunE(featureCreateCmd, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	})
	id = strings.TrimSpace(out)

	// Move the feature away from its just-created defaults so the round
	// trip actually exercises non-default status/passes/pr_number/notes
	// instead of trivially matching zero values.
	st, err := openStore()
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if _, err := st.ReplaceFeature(context.Background(), feature.Feature{
		ID:          id,
		Category:    "auth",
		Description: "add login form",
		Notes:       "waiting on design review",
		Status:      feature.StatusPROpen,
		ReviewedBy:  "review-agent",
		TestedBy:    "qa-agent",
		Passes:      true,
		PRNumber:    99,
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	before, err := st.GetFeature(context.Background(), id)
	if err != nil {
		t.Fatalf("get before export: %v", err)
	}
	st.Close()

	exportPath := filepath.Join(projectRoot, "features.json")
	featureExportPath = exportPath
	t.Cleanup(func() { featureExportPath = "" })
	captureStdout(t, func() {
		if err := featureExportCmd.RunE(featureExportCmd, nil); err != nil {
			t.Fatalf("export: %v", err)
		}
	})

	// Re-import into a fresh store: a real disaster-recovery or
	// clone-the-project scenario, not just an overwrite of the same rows.
	withProject(t)
	featureImportPath = exportPath
	t.Cleanup(func() { featureImportPath = "" })
	captureStdout(t, func() {
		if err := featureImportCmd.RunE(featureImportCmd, nil); err != nil {
			t.Fatalf("import: %v", err)
		}
	})

	st, err = openStore()
	if err != nil {
		t.Fatalf("openStore after import: %v", err)
	}
	defer st.Close()
	after, err := st.GetFeature(context.Background(), id)
	if err != nil {
		t.Fatalf("get after import: %v", err)
	}

	if after.ID != before.ID || after.Status != before.Status || after.Passes != before.Passes ||
		after.PRNumber != before.PRNumber || after.ReviewedBy != before.ReviewedBy ||
		after.TestedBy != before.TestedBy || after.Notes != before.Notes {
		t.Fatalf("expected identical feature after import, before=%+v after=%+v", before, after)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("expected timestamps to round-trip, before=%v/%v after=%v/%v",
			before.CreatedAt, before.UpdatedAt, after.CreatedAt, after.UpdatedAt)
	}
}

func TestRoadmapImportCreatesFeaturesFromChecklist(t *testing.T) {
	dir := withProject(t)

	roadmap := "# Plan\n\n## Phase 1\n\n- [ ] add login form\n- [x] set up repo\n- plain note item\n"
	if err := os.WriteFile(filepath.Join(dir, "ROADMAP.md"), []byte(roadmap), 0o644); err != nil {
		t.Fatalf("write ROADMAP.md: %v", err)
	}

	out := captureStdout(t, func() {
		if err := roadmapImportCmd.RunE(roadmapImportCmd, nil); err != nil {
			t.Fatalf("import: %v", err)
		}
	})
	if !strings.Contains(out, "imported 3 feature(s)") {
		t.Fatalf("expected 3 imported features, got %q", out)
	}

	st, err := openStore()
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer st.Close()

	features, err := st.ListFeatures(context.Background())
	if err != nil {
		t.Fatalf("list features: %v", err)
	}
	if len(features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(features))
	}

	var doneCount int
	for _, f := range features {
		if f.Status == feature.StatusComplete {
			doneCount++
		}
	}
	if doneCount != 1 {
		t.Fatalf("expected exactly 1 completed feature (checked checkbox), got %d", doneCount)
	}

	// Re-running import must not duplicate features already seen at the
	// same roadmap line.
	captureStdout(t, func() {
		if err := roadmapImportCmd.RunE(roadmapImportCmd, nil); err != nil {
			t.Fatalf("re-import: %v", err)
		}
	})
	features, err = st.ListFeatures(context.Background())
	if err != nil {
		t.Fatalf("list features after re-import: %v", err)
	}
	if len(features) != 3 {
		t.Fatalf("expected re-import to be a no-op, got %d features", len(features))
	}
}

func TestRoadmapExportRendersCheckboxes(t *testing.T) {
	withProject(t)

	featureCreateDescription = "add login form"
	t.Cleanup(func() { featureCreateDescription = "" })
	captureStdout(t, func() {
		if err := featureCreateCmd.RunE(featureCreateCmd, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	})

	out := captureStdout(t, func() {
		if err := roadmapExportCmd.RunE(roadmapExportCmd, nil); err != nil {
			t.Fatalf("export: %v", err)
		}
	})
	if !strings.Contains(out, "[ ] add login form") {
		t.Fatalf("expected a pending checkbox line, got %q", out)
	}
}

func TestArchExportImportRoundTrip(t *testing.T) {
	withProject(t)

	st, err := openStore()
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if err := st.SetArchitecture(context.Background(), "principles", `{"rule":"no globals"}`); err != nil {
		t.Fatalf("SetArchitecture: %v", err)
	}
	st.Close()

	captureStdout(t, func() {
		if err := archExportCmd.RunE(archExportCmd, nil); err != nil {
			t.Fatalf("export: %v", err)
		}
	})

	if _, err := os.Stat(filepath.Join(projectRoot, "architecture", "principles.json")); err != nil {
		t.Fatalf("expected principles.json to be written: %v", err)
	}

	if err := os.WriteFile(filepath.Join(projectRoot, "architecture", "patterns.json"), []byte(`{"rule":"single hub"}`), 0o644); err != nil {
		t.Fatalf("write patterns.json: %v", err)
	}
	captureStdout(t, func() {
		if err := archImportCmd.RunE(archImportCmd, nil); err != nil {
			t.Fatalf("import: %v", err)
		}
	})

	st, err = openStore()
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer st.Close()
	a, err := st.GetArchitecture(context.Background(), "patterns")
	if err != nil {
		t.Fatalf("GetArchitecture: %v", err)
	}
	if a.Content != `{"rule":"single hub"}` {
		t.Fatalf("unexpected content: %q", a.Content)
	}
}
