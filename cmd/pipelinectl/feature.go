package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilnforge/pipelinectl/internal/domain/feature"
)

var featureCmd = &cobra.Command{
	Use:   "feature",
	Short: "Inspect and mutate tracked features",
}

var (
	featureListStatus   string
	featureListAssigned string
)

var featureListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print features, one per line",
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

		for _, f := range features {
			if featureListStatus != "" && string(f.Status) != featureListStatus {
				continue
			}
			if featureListAssigned != "" && f.AssignedTo != featureListAssigned {
				continue
			}
			fmt.Println(formatFeatureLine(f))
		}
		return nil
	},
}

func formatFeatureLine(f feature.Feature) string {
	icon := statusIcon(f.Status)
	deps := "-"
	if len(f.DependsOn) > 0 {
		deps = strings.Join(f.DependsOn, ",")
	}
	return fmt.Sprintf("%s %s  %-40s  %-18s  deps:%s", icon, f.ID, f.Description, f.Status, deps)
}

func statusIcon(s feature.Status) string {
	switch s {
	case feature.StatusComplete:
		return "✔"
	case feature.StatusNeedsRevision:
		return "✖"
	case feature.StatusPending:
		return "○"
	default:
		return "●"
	}
}

var featureGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print the feature as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		f, err := st.GetFeature(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get feature %s: %w", args[0], err)
		}
		return printJSON(f)
	},
}

var (
	featureCreateDescription string
	featureCreateCategory    string
	featureCreateDepends     []string
	featureCreateOpenSpec    string
	featureCreateCompliance  []string
)

var featureCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Allocate a new feature id and create it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if featureCreateDescription == "" {
			return fmt.Errorf("-d/--description is required")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		f, err := st.CreateFeature(context.Background(), feature.CreateRequest{
			Category:               featureCreateCategory,
			Description:            featureCreateDescription,
			DependsOn:              featureCreateDepends,
			ArchitectureCompliance: featureCreateCompliance,
			OpenSpecReference:      featureCreateOpenSpec,
		})
		if err != nil {
			return fmt.Errorf("create feature: %w", err)
		}
		fmt.Println(f.ID)
		return nil
	},
}

var (
	featureUpdateStatus string
	featureUpdatePasses string
	featureUpdateNotes  string
)

var featureUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Partially update a feature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		req := feature.UpdateRequest{}
		if featureUpdateStatus != "" {
			s := feature.Status(featureUpdateStatus)
			req.Status = &s
		}
		if featureUpdatePasses != "" {
			b, err := strconv.ParseBool(featureUpdatePasses)
			if err != nil {
				return fmt.Errorf("--passes must be true or false: %w", err)
			}
			req.Passes = &b
		}
		if cmd.Flags().Changed("notes") {
			req.Notes = &featureUpdateNotes
		}

		f, err := st.Update(context.Background(), args[0], req)
		if err != nil {
			return fmt.Errorf("update feature %s: %w", args[0], err)
		}
		return printJSON(f)
	},
}

var featureExportPath string

var featureExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every feature to a JSON file",
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

		payload := struct {
			Features []feature.Feature `json:"features"`
		}{Features: features}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal features: %w", err)
		}

		if featureExportPath == "" {
			fmt.Println(string(data))
			return nil
		}
		return os.WriteFile(featureExportPath, data, 0o644)
	},
}

var featureImportPath string

var featureImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Create features from a previously exported JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if featureImportPath == "" {
			return fmt.Errorf("-i/--input is required")
		}
		data, err := os.ReadFile(featureImportPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", featureImportPath, err)
		}

		var payload struct {
			Features []feature.Feature `json:"features"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse %s: %w", featureImportPath, err)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		for _, f := range payload.Features {
			// ReplaceFeature, not CreateFeature: importing must reproduce the
			// exported feature exactly, including its original id, status,
			// and timestamps, not allocate a new pending feature.
			if _, err := st.ReplaceFeature(ctx, f); err != nil {
				return fmt.Errorf("import %s: %w", f.ID, err)
			}
		}
		fmt.Printf("imported %d feature(s)\n", len(payload.Features))
		return nil
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	featureListCmd.Flags().StringVar(&featureListStatus, "status", "", "filter by status")
	featureListCmd.Flags().StringVar(&featureListAssigned, "assigned", "", "filter by assignee")

	featureCreateCmd.Flags().StringVarP(&featureCreateDescription, "description", "d", "", "feature description (required)")
	featureCreateCmd.Flags().StringVarP(&featureCreateCategory, "category", "c", "", "feature category")
	featureCreateCmd.Flags().StringSliceVar(&featureCreateDepends, "depends", nil, "dependency feature ids")
	featureCreateCmd.Flags().StringVar(&featureCreateOpenSpec, "openspec", "", "openspec reference path")
	featureCreateCmd.Flags().StringSliceVar(&featureCreateCompliance, "compliance", nil, "architecture compliance ids")

	featureUpdateCmd.Flags().StringVar(&featureUpdateStatus, "status", "", "new status")
	featureUpdateCmd.Flags().StringVar(&featureUpdatePasses, "passes", "", "QA verdict (true/false)")
	featureUpdateCmd.Flags().StringVar(&featureUpdateNotes, "notes", "", "notes text")

	featureExportCmd.Flags().StringVarP(&featureExportPath, "output", "o", "", "output path (default stdout)")
	featureImportCmd.Flags().StringVarP(&featureImportPath, "input", "i", "", "input path (required)")

	featureCmd.AddCommand(featureListCmd, featureGetCmd, featureCreateCmd, featureUpdateCmd, featureExportCmd, featureImportCmd)
}
