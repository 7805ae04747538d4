package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnforge/pipelinectl/internal/domain/feature"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print pipeline status with per-status counts",
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

		counts := map[feature.Status]int{}
		byID := make(map[string]feature.Feature, len(features))
		for _, f := range features {
			counts[f.Status]++
			byID[f.ID] = f
		}

		fmt.Printf("total: %d\n", len(features))
		for _, s := range []feature.Status{
			feature.StatusPending, feature.StatusInDev, feature.StatusReadyForReview,
			feature.StatusApproved, feature.StatusNeedsRevision, feature.StatusQATesting,
			feature.StatusPROpen, feature.StatusComplete,
		} {
			if counts[s] > 0 {
				fmt.Printf("  %-18s %d\n", s, counts[s])
			}
		}

		// Missing or incomplete depends_on references never block the
		// scheduler forever silently; surface them here instead.
		var blocked []feature.Feature
		for _, f := range features {
			if f.Status == feature.StatusComplete {
				continue
			}
			if unmet := feature.UnmetDependencies(f, byID); len(unmet) > 0 {
				blocked = append(blocked, f)
			}
		}
		if len(blocked) > 0 {
			fmt.Printf("blocked: %d\n", len(blocked))
			for _, f := range blocked {
				fmt.Printf("  %-10s waiting on %v\n", f.ID, feature.UnmetDependencies(f, byID))
			}
		}
		return nil
	},
}
