package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/notforyou23/nextgen-system/internal/config"
	"github.com/notforyou23/nextgen-system/internal/dashboard"
	"github.com/notforyou23/nextgen-system/internal/ingest"
	"github.com/notforyou23/nextgen-system/internal/registry"
	"github.com/notforyou23/nextgen-system/internal/storage"
	"github.com/notforyou23/nextgen-system/internal/tasks"
	"github.com/notforyou23/nextgen-system/internal/tui"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nextgen",
		Short: "Market prediction pipeline orchestrator",
		Long:  "Nextgen runs a registry of inter-dependent pipeline tasks and records every execution.",
	}

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newRunsCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newDashCommand())
	rootCmd.AddCommand(newServeCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore loads config, prepares the data dir, and opens the database.
func openStore() (*config.Config, *storage.Store, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, store, nil
}

// buildRegistry assembles a fresh registry with the pipeline tasks wired to
// live providers. The registry lives for one invocation; the store is the
// only state that survives.
func buildRegistry(cfg *config.Config, store *storage.Store) *registry.Registry {
	reg := registry.New(store)
	pipeline := tasks.NewPipeline(
		store, cfg,
		ingest.NewStooqProvider(cfg.Ingestion.MaxRetries),
		ingest.NewYahooRSSProvider(cfg.Ingestion.MaxRetries),
	)
	pipeline.Register(reg)
	return reg
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			reg := buildRegistry(cfg, store)
			for _, name := range reg.List() {
				def, err := reg.Get(name)
				if err != nil {
					return err
				}
				cadence := def.Cadence
				if cadence == "" {
					cadence = "-"
				}
				fmt.Printf("%-28s [%s] %s\n", name, cadence, def.Description)
			}
			return nil
		},
	}
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <task>",
		Short: "Run a task by name, dependencies first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfg, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			reg := buildRegistry(cfg, store)
			runID, err := reg.Run(name)
			if err != nil {
				var runErr *registry.RunError
				if errors.As(err, &runErr) {
					fmt.Fprintf(os.Stderr, "run %s failed: %v\n", runErr.RunID, runErr.Err)
				}
				return err
			}

			out, _ := json.Marshal(map[string]string{"task": name, "run_id": runID})
			fmt.Println(string(out))
			return nil
		},
	}
}

func newRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent run records",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			_, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs found.")
				return nil
			}
			for _, run := range runs {
				fmt.Printf("%s %-28s [%s] %s\n",
					run.RunID, run.TaskName, run.Status,
					run.TriggeredAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show one run record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(args[0])
			if err != nil {
				return fmt.Errorf("failed to get run: %w", err)
			}

			fmt.Printf("Run %s: %s\n", run.RunID, run.TaskName)
			fmt.Printf("Status: %s\n", run.Status)
			fmt.Printf("Triggered: %s\n", run.TriggeredAt.Format("2006-01-02 15:04:05"))
			if run.CompletedAt != nil {
				fmt.Printf("Completed: %s\n", run.CompletedAt.Format("2006-01-02 15:04:05"))
			}
			if run.Artifacts != nil {
				fmt.Printf("Artifacts: %s\n", *run.Artifacts)
			}
			if run.Error != nil {
				fmt.Printf("Error: %s\n", *run.Error)
			}
			return nil
		},
	}
}

func newDashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Interactive run monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			app := tui.NewApp(store)
			p := tea.NewProgram(app, tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			cfg, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if addr == "" {
				addr = cfg.HTTPAddr
			}
			fmt.Printf("Serving dashboard API on %s\n", addr)
			return dashboard.NewServer(store).Run(addr)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from config)")
	return cmd
}
