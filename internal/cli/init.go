package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/braid/internal/config"
	"github.com/example/braid/internal/wire"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize braid for this repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, _ := cmd.Flags().GetString("backend")

		root, err := wire.Root()
		if err != nil {
			return err
		}

		cfg := config.Default()
		cfg.Backend = backend
		if err := config.Save(root, cfg); err != nil {
			return err
		}

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		info, err := store.Info(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Initialized braid (backend: %s)\n", backend)
		fmt.Printf("  Data dir: %s\n", info.DataDir)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show store counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		info, err := store.Info(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Data dir:  %s\n", info.DataDir)
		fmt.Printf("Version:   %d\n", info.Version)
		fmt.Printf("Entities:  %d\n", info.Entities)
		fmt.Printf("Edges:     %d\n", info.Edges)
		fmt.Printf("Log bytes: %d\n", info.LogBytes)
		fmt.Printf("Cold start from cache: %v\n", info.CacheUsed)
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Discard the index and replay the full log",
	Long:  "The index is a pure cache; a full rebuild is the only valid repair when it is suspect.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.RebuildIndex(); err != nil {
			return err
		}
		info, err := store.Info(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Rebuilt index at version %d (%d entities, %d edges)\n", info.Version, info.Entities, info.Edges)
		return nil
	},
}

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	initCmd.Flags().StringP("backend", "b", "file", "Backend kind (file, branch, notes)")
	return initCmd
}

// InfoCmd returns the info command
func InfoCmd() *cobra.Command { return infoCmd }

// RebuildCmd returns the rebuild command
func RebuildCmd() *cobra.Command { return rebuildCmd }
