package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilnforge/pipelinectl/internal/config"
	"github.com/kilnforge/pipelinectl/internal/readmodel"
	"github.com/kilnforge/pipelinectl/internal/store"
)

var (
	dashboardPort string
	dashboardHost string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start the Read-Model Server",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(projectRoot)
		if err != nil {
			return fmt.Errorf("open store at %s: %w", projectRoot, err)
		}
		defer st.Close()

		cfg := config.Defaults().Server
		cfg.ProjectRoot = projectRoot
		if dashboardPort != "" {
			cfg.Port = dashboardPort
		}
		if dashboardHost != "" {
			cfg.Host = dashboardHost
		}
		if v := os.Getenv("FRAMEWORK_PORT"); v != "" && dashboardPort == "" {
			cfg.Port = v
		}
		if v := os.Getenv("FRAMEWORK_HOST"); v != "" && dashboardHost == "" {
			cfg.Host = v
		}
		if v := os.Getenv("FRAMEWORK_PROJECT_ROOT"); v != "" {
			cfg.ProjectRoot = v
		}

		srv := readmodel.NewServer(cfg, st)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			fmt.Printf("dashboard: listening on %s:%s\n", cfg.Host, cfg.Port)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardPort, "port", "", "port to listen on (default from config)")
	dashboardCmd.Flags().StringVar(&dashboardHost, "host", "", "host/interface to bind (default 127.0.0.1)")
}
