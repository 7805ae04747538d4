package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilnforge/pipelinectl/internal/adapter/aider"
	"github.com/kilnforge/pipelinectl/internal/adapter/openspec"
	"github.com/kilnforge/pipelinectl/internal/agentrunner"
	"github.com/kilnforge/pipelinectl/internal/autoplay"
	"github.com/kilnforge/pipelinectl/internal/port/agentbackend"
	"github.com/kilnforge/pipelinectl/internal/port/gitprovider"
	"github.com/kilnforge/pipelinectl/internal/port/prprovider"
	"github.com/kilnforge/pipelinectl/internal/specimport"
	"github.com/kilnforge/pipelinectl/internal/vcs"
)

var (
	autoplayMode      string
	autoplayAutoMerge bool
)

var autoplayCmd = &cobra.Command{
	Use:   "autoplay",
	Short: "Run the pipeline unattended until it completes, blocks, or escalates",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		cfg, err := st.AllConfig(context.Background())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		maxRetries, _ := strconv.Atoi(cfg["max_retries"])
		maxTurns, _ := strconv.Atoi(cfg["max_agent_turns"])
		featuresPerLeadSession, _ := strconv.Atoi(cfg["features_per_lead_session"])
		safeMode := cfg["safe_mode"] == "true"
		autoMerge := autoplayAutoMerge || cfg["auto_merge"] == "true"

		mode := autoplayMode
		if !cmd.Flags().Changed("mode") {
			if cfgMode := cfg["execution_mode"]; cfgMode == autoplay.ModeTeam || cfgMode == autoplay.ModeOrchestrator {
				mode = cfgMode
			}
		}

		aider.Register(cfg["agent_backend"], cfg["agent_backend_bin"], os.Stdout)
		backend, err := agentbackend.New(cfg["agent_backend"], nil)
		if err != nil {
			return fmt.Errorf("agent backend: %w", err)
		}

		gitProvider, err := gitprovider.New("local", nil)
		if err != nil {
			return fmt.Errorf("git provider: %w", err)
		}
		prProvider, err := prprovider.New("github", nil)
		if err != nil {
			prProvider = nil
		}

		bridge := vcs.New(gitProvider, prProvider, projectRoot, safeMode, autoMerge, slog.Default())
		runner := agentrunner.New(promptDir(projectRoot))

		source := changeSource(projectRoot)
		_, cliPresent := source.(*openspec.CLISource)

		controller := autoplay.New(st, runner, backend, bridge, projectRoot, cfg["model"], maxTurns, maxRetries, slog.Default())
		controller.Sessions = st
		controller.Mode = mode
		controller.FeaturesPerLeadSession = featuresPerLeadSession
		controller.Source = source
		controller.Importer = specimport.New(source, st)
		controller.AutoImport = cliPresent && cfg["openspec_auto_import"] == "true"
		controller.AutoArchive = cfg["openspec_auto_archive"] == "true"

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Printf("autoplay: mode=%s auto-merge=%v safe-mode=%v backend=%s\n", mode, autoMerge, safeMode, cfg["agent_backend"])

		if err := controller.Run(ctx); err != nil {
			return err
		}
		return nil
	},
}

func promptDir(root string) string {
	return filepath.Join(root, ".pipelinectl", "prompts")
}

func init() {
	autoplayCmd.Flags().StringVar(&autoplayMode, "mode", "orchestrator", "team or orchestrator")
	autoplayCmd.Flags().BoolVar(&autoplayAutoMerge, "auto-merge", false, "merge pull requests automatically once opened")
}
