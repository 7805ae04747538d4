package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilnforge/pipelinectl/internal/adapter/markdownspec"
	"github.com/kilnforge/pipelinectl/internal/domain/feature"
	"github.com/kilnforge/pipelinectl/internal/port/specprovider"
)

var roadmapCmd = &cobra.Command{
	Use:   "roadmap",
	Short: "Import features from ROADMAP.md and render them back",
}

var roadmapImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Create features from checkbox and list items in ROADMAP.md",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := specprovider.New("markdown", nil)
		if err != nil {
			return err
		}
		ctx := context.Background()
		detected, err := p.Detect(ctx, projectRoot)
		if err != nil {
			return fmt.Errorf("detect roadmap: %w", err)
		}
		if !detected {
			return fmt.Errorf("no ROADMAP.md or roadmap.md found under %s", projectRoot)
		}
		specs, err := p.ListSpecs(ctx, projectRoot)
		if err != nil {
			return fmt.Errorf("list specs: %w", err)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		existing, err := st.ListFeatures(ctx)
		if err != nil {
			return fmt.Errorf("list features: %w", err)
		}
		seen := make(map[string]bool, len(existing))
		for _, f := range existing {
			if f.OpenSpecReference != "" {
				seen[f.OpenSpecReference] = true
			}
		}

		created := 0
		for _, spec := range specs {
			content, err := p.ReadSpec(ctx, projectRoot, spec.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", spec.Path, err)
			}

			for _, item := range markdownspec.ParseMarkdown(content) {
				if item.Level != markdownspec.LevelCheckbox && item.Level != markdownspec.LevelListItem {
					continue
				}
				ref := fmt.Sprintf("%s:%d", spec.Path, item.SourceLine)
				if seen[ref] {
					continue
				}

				f, err := st.CreateFeature(ctx, feature.CreateRequest{
					Category:          "roadmap",
					Description:       item.Title,
					Notes:             item.Description,
					OpenSpecReference: ref,
				})
				if err != nil {
					return fmt.Errorf("create feature for %q: %w", item.Title, err)
				}
				if item.Status == markdownspec.StatusDone {
					complete := feature.StatusComplete
					if _, err := st.Update(ctx, f.ID, feature.UpdateRequest{Status: &complete}); err != nil {
						return fmt.Errorf("mark %s complete: %w", f.ID, err)
					}
				}
				created++
			}
		}
		fmt.Printf("imported %d feature(s) from roadmap\n", created)
		return nil
	},
}

var roadmapExportPath string

var roadmapExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render every tracked feature as markdown checkboxes",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		features, err := st.ListFeatures(context.Background())
		if err != nil {
			return fmt.Errorf("list features: %w", err)
		}

		items := make([]markdownspec.SpecItem, 0, len(features))
		for i, f := range features {
			items = append(items, markdownspec.SpecItem{
				Title:       f.Description,
				Description: f.Notes,
				Status:      roadmapStatus(f.Status),
				SortOrder:   i + 1,
				Level:       markdownspec.LevelCheckbox,
			})
		}

		data := markdownspec.RenderMarkdown(items)
		if roadmapExportPath == "" {
			fmt.Println(string(data))
			return nil
		}
		return os.WriteFile(roadmapExportPath, data, 0o644)
	},
}

func roadmapStatus(s feature.Status) markdownspec.ItemStatus {
	switch s {
	case feature.StatusComplete:
		return markdownspec.StatusDone
	case feature.StatusPending:
		return markdownspec.StatusTodo
	default:
		return markdownspec.StatusInProgress
	}
}

func init() {
	roadmapExportCmd.Flags().StringVarP(&roadmapExportPath, "output", "o", "", "output path (default stdout)")
	roadmapCmd.AddCommand(roadmapImportCmd, roadmapExportCmd)
}
