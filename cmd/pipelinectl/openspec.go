package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	_ "github.com/kilnforge/pipelinectl/internal/adapter/markdownspec"
	"github.com/kilnforge/pipelinectl/internal/adapter/openspec"
	"github.com/kilnforge/pipelinectl/internal/domain/feature"
	"github.com/kilnforge/pipelinectl/internal/port/specprovider"
	"github.com/kilnforge/pipelinectl/internal/specimport"
)

var openspecCmd = &cobra.Command{
	Use:   "openspec",
	Short: "Manage the OpenSpec change source",
}

var openspecInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the openspec CLI (best-effort)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := exec.CommandContext(context.Background(), "npm", "install", "-g", "@openspec/cli")
		c.Stdout, c.Stderr = os.Stdout, os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("install openspec cli: %w", err)
		}
		fmt.Println("openspec CLI installed")
		return nil
	},
}

var openspecRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-run the openspec CLI's project update",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := exec.CommandContext(context.Background(), "openspec", "update")
		c.Dir = projectRoot
		c.Stdout, c.Stderr = os.Stdout, os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("openspec update: %w", err)
		}
		return nil
	},
}

var openspecStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the openspec CLI version and active changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		source := changeSource(projectRoot)

		if cli, ok := source.(*openspec.CLISource); ok && cli.Available() {
			out, err := exec.CommandContext(context.Background(), "openspec", "--version").Output()
			if err == nil {
				fmt.Printf("openspec CLI version: %s", out)
			}
		} else {
			fmt.Println("openspec CLI not found on PATH; using filesystem fallback")
		}

		changes, err := source.ListChanges(context.Background())
		if err != nil {
			return fmt.Errorf("list changes: %w", err)
		}
		fmt.Printf("active changes: %d\n", len(changes))
		for _, c := range changes {
			fmt.Println("  " + c)
		}

		fmt.Println("spec formats detected:")
		for _, name := range specprovider.Available() {
			p, err := specprovider.New(name, nil)
			if err != nil {
				continue
			}
			detected, err := p.Detect(context.Background(), projectRoot)
			if err != nil || !detected {
				continue
			}
			fmt.Println("  " + name)
		}
		return nil
	},
}

var openspecImportAll bool

var openspecImportCmd = &cobra.Command{
	Use:   "import [change]",
	Short: "Upsert features from one change or every active change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !openspecImportAll && len(args) == 0 {
			return fmt.Errorf("specify a change name or --all")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		im := specimport.New(changeSource(projectRoot), st)
		ctx := context.Background()

		var results []specimport.ImportResult
		if openspecImportAll {
			results, err = im.ImportAll(ctx)
		} else {
			results, err = im.ImportChange(ctx, args[0])
		}
		if err != nil {
			return err
		}

		for _, r := range results {
			verb := "updated"
			if r.Created {
				verb = "created"
			}
			fmt.Printf("%s %s (%s#%d)\n", verb, r.FeatureID, r.ChangeID, r.TaskGroup)
		}
		return nil
	},
}

var openspecArchiveCmd = &cobra.Command{
	Use:   "archive <feature-id>",
	Short: "Archive a change once every sibling feature is complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		f, err := st.GetFeature(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get feature %s: %w", args[0], err)
		}
		if f.OpenSpecChangeID == "" {
			return fmt.Errorf("feature %s was not imported from an openspec change", f.ID)
		}

		all, err := st.ListFeatures(ctx)
		if err != nil {
			return fmt.Errorf("list features: %w", err)
		}

		for _, sibling := range all {
			if sibling.OpenSpecChangeID == f.OpenSpecChangeID && sibling.Status != feature.StatusComplete {
				return fmt.Errorf("change %s is not fully complete: %s is %s", f.OpenSpecChangeID, sibling.ID, sibling.Status)
			}
		}

		if err := changeSource(projectRoot).Archive(ctx, f.OpenSpecChangeID); err != nil {
			return fmt.Errorf("archive %s: %w", f.OpenSpecChangeID, err)
		}
		fmt.Printf("archived %s\n", f.OpenSpecChangeID)
		return nil
	},
}

// changeSource prefers the openspec CLI when it is on PATH, falling back
// to reading the openspec/ directory tree directly per spec.md §7's
// external-tool-absence degradation policy.
func changeSource(root string) specimport.ChangeSource {
	cli := openspec.NewCLISource(root)
	if cli.Available() {
		return cli
	}
	return specimport.NewFSSource(root)
}

func init() {
	openspecImportCmd.Flags().BoolVar(&openspecImportAll, "all", false, "import every active change")
	openspecCmd.AddCommand(openspecInstallCmd, openspecRefreshCmd, openspecStatusCmd, openspecImportCmd, openspecArchiveCmd)
}
