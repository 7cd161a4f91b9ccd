package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/braid/internal/cli"
	"github.com/example/braid/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "braid",
		Short:   "braid - task-graph store and sync engine",
		Version: version.String(),
		Long: `braid tracks tasks, bugs, tests, and their dependencies in an
append-only log, and streams every committed mutation to connected
observers. The dependency graph stays acyclic; the index is always
rebuildable from the log.`,
	}

	// Entity lifecycle
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.CreateCmd())
	rootCmd.AddCommand(cli.ShowCmd())
	rootCmd.AddCommand(cli.ListCmd())
	rootCmd.AddCommand(cli.UpdateCmd())
	rootCmd.AddCommand(cli.CloseCmd())
	rootCmd.AddCommand(cli.ReopenCmd())
	rootCmd.AddCommand(cli.DeleteCmd())

	// Graph
	rootCmd.AddCommand(cli.DepCmd())
	rootCmd.AddCommand(cli.ReadyCmd())
	rootCmd.AddCommand(cli.BlockedCmd())

	// Runs, notes, commits
	rootCmd.AddCommand(cli.RunsCmd())
	rootCmd.AddCommand(cli.NoteCmd())
	rootCmd.AddCommand(cli.CommitCmd())

	// Storage and sync
	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.WatchCmd())
	rootCmd.AddCommand(cli.InfoCmd())
	rootCmd.AddCommand(cli.RebuildCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
