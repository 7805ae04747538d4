// Command pipelinectl drives the multi-agent coding pipeline: it owns the
// Store, the Autoplay Controller, the Read-Model Server, and the Spec
// Importer behind a verb/noun CLI, per the persistent -p/--project flag
// and one-file-per-noun layout below.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/kilnforge/pipelinectl/internal/adapter/gitlocal"
	_ "github.com/kilnforge/pipelinectl/internal/adapter/githubpm"

	"github.com/kilnforge/pipelinectl/internal/logger"
	"github.com/kilnforge/pipelinectl/internal/store"
)

var (
	projectRoot string
	version     = "dev"
)

func main() {
	handler := logger.NewAsyncHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}), 256, 2)
	slog.SetDefault(slog.New(handler))
	defer handler.Close()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		handler.Close()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pipelinectl",
	Short:   "Drive a multi-agent coding pipeline against a project",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectRoot, "project", "p", ".", "project root directory")

	rootCmd.AddCommand(featureCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(guidedCmd)
	rootCmd.AddCommand(autoplayCmd)
	rootCmd.AddCommand(archCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(openspecCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(roadmapCmd)
}

// openStore opens the Store rooted at the persistent --project flag. Every
// command opens its own handle and closes it before returning, since each
// invocation is a short-lived process per spec.md §5's "CLI commands are
// synchronous and short-lived."
func openStore() (*store.Store, error) {
	st, err := store.Open(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", projectRoot, err)
	}
	return st, nil
}
