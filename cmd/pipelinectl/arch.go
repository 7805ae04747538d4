package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilnforge/pipelinectl/internal/store"
)

var archKinds = []store.ArchitectureKind{store.ArchPrinciples, store.ArchPatterns, store.ArchStandards}

var archCmd = &cobra.Command{
	Use:   "arch",
	Short: "Copy architecture blobs between the Store and <root>/architecture/*.json",
}

var archImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load principles.json, patterns.json, and standards.json into the Store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		dir := filepath.Join(projectRoot, "architecture")
		for _, kind := range archKinds {
			path := filepath.Join(dir, string(kind)+".json")
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return fmt.Errorf("read %s: %w", path, err)
			}
			if err := st.SetArchitecture(ctx, string(kind), string(data)); err != nil {
				return fmt.Errorf("import %s: %w", kind, err)
			}
			fmt.Printf("imported %s\n", kind)
		}
		return nil
	},
}

var archExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the Store's architecture blobs to <root>/architecture/*.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		dir := filepath.Join(projectRoot, "architecture")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}

		blobs, err := st.AllArchitecture(ctx)
		if err != nil {
			return fmt.Errorf("list architecture: %w", err)
		}
		for _, a := range blobs {
			path := filepath.Join(dir, a.Kind+".json")
			if err := os.WriteFile(path, []byte(a.Content), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Printf("exported %s\n", a.Kind)
		}
		return nil
	},
}

func init() {
	archCmd.AddCommand(archImportCmd, archExportCmd)
}
