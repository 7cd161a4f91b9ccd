package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/braid/internal/migrate"
	"github.com/example/braid/internal/wire"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy logical files between backends",
	Long:  "Copies every logical file from one backend to another, verifying each write byte-for-byte. Reversible; --dry-run computes the diff without writing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		src, err := wire.Backend(from)
		if err != nil {
			return err
		}
		dst, err := wire.Backend(to)
		if err != nil {
			return err
		}

		report, err := migrate.Run(context.Background(), src, dst, dryRun)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		verb := "Copied"
		if dryRun {
			verb = "Would copy"
		}
		for _, f := range report.Files {
			switch f.Action {
			case migrate.ActionCopy:
				fmt.Printf("  %s %s (%d bytes)\n", verb, f.Name, f.Bytes)
			case migrate.ActionIdentical:
				fmt.Printf("  Identical %s\n", f.Name)
			}
		}
		fmt.Printf("✓ %s -> %s: %d of %d files\n", report.Source, report.Dest, report.Copied(), len(report.Files))
		return nil
	},
}

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	migrateCmd.Flags().String("from", "file", "Source backend (file, branch, notes)")
	migrateCmd.Flags().String("to", "branch", "Destination backend (file, branch, notes)")
	migrateCmd.Flags().Bool("dry-run", false, "Compute the diff without writing")
	return migrateCmd
}
