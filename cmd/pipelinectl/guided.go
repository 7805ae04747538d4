package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnforge/pipelinectl/internal/scheduler"
)

var guidedCmd = &cobra.Command{
	Use:   "guided",
	Short: "Print the single next actionable (feature, action) pair for a human driver",
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

		decision, outcome, err := scheduler.Next(features, nil)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}

		switch outcome {
		case scheduler.OutcomeAllComplete:
			fmt.Println("All features complete. Nothing to do.")
		case scheduler.OutcomeAllBlocked, scheduler.OutcomeAllEscalated:
			fmt.Println("No feature is actionable right now: remaining work is blocked on unmet dependencies.")
		default:
			fmt.Println(guidedInstruction(decision))
		}
		return nil
	},
}

func guidedInstruction(d scheduler.Decision) string {
	f := d.Feature
	switch d.Action {
	case scheduler.ActionDev:
		return fmt.Sprintf("Next: implement %s (%s) — status %s.", f.ID, f.Description, f.Status)
	case scheduler.ActionReview:
		return fmt.Sprintf("Next: review %s (%s) — currently ready-for-review.", f.ID, f.Description)
	case scheduler.ActionQA:
		return fmt.Sprintf("Next: QA-test %s (%s) — currently approved.", f.ID, f.Description)
	case scheduler.ActionPR:
		return fmt.Sprintf("Next: open a pull request for %s (%s) — QA passed.", f.ID, f.Description)
	case scheduler.ActionMerge:
		return fmt.Sprintf("Next: merge the pull request for %s (%s).", f.ID, f.Description)
	default:
		return fmt.Sprintf("Next: %s on %s.", d.Action, f.ID)
	}
}
