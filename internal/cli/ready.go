package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/braid/internal/wire"
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List open entities with no open dependency",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entities, err := store.Ready(context.Background())
		if err != nil {
			return fmt.Errorf("failed to compute ready set: %w", err)
		}
		if len(entities) == 0 {
			fmt.Println("Nothing is ready")
			return nil
		}
		for _, e := range entities {
			fmt.Printf("%s  p%d  %s\n", color.New(color.FgGreen).Sprint(e.ID), e.Priority, e.Title)
		}
		return nil
	},
}

var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "List open entities waiting on open dependencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		blocked, err := store.Blocked(context.Background())
		if err != nil {
			return fmt.Errorf("failed to compute blocked set: %w", err)
		}
		if len(blocked) == 0 {
			fmt.Println("Nothing is blocked")
			return nil
		}
		for _, b := range blocked {
			fmt.Printf("%s  %s\n", color.New(color.FgRed).Sprint(b.Entity.ID), b.Entity.Title)
			fmt.Printf("    waiting on %s\n", strings.Join(b.Blockers, ", "))
		}
		return nil
	},
}

// ReadyCmd returns the ready command
func ReadyCmd() *cobra.Command { return readyCmd }

// BlockedCmd returns the blocked command
func BlockedCmd() *cobra.Command { return blockedCmd }
