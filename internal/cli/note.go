package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/braid/internal/models"
	"github.com/example/braid/internal/wire"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage entity notes (append-only history)",
}

var noteAddCmd = &cobra.Command{
	Use:   "add [entity-id] [body...]",
	Short: "Append a note to an entity",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		note, err := store.AddNote(context.Background(), args[0], kind, strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("failed to add note: %w", err)
		}
		fmt.Printf("✓ Added note %s to %s\n", note.ID, note.EntityID)
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list [entity-id]",
	Short: "Show an entity's note history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		notes, err := store.Notes(context.Background(), args[0])
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Printf("%s has no notes\n", args[0])
			return nil
		}
		for _, note := range notes {
			fmt.Printf("[%s] %s  %s\n", note.Kind, note.CreatedAt.Format("2006-01-02 15:04:05"), note.Body)
		}
		return nil
	},
}

var commitLinkCmd = &cobra.Command{
	Use:   "link [entity-id] [hash]",
	Short: "Record a commit hash against an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.LinkCommit(context.Background(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to link commit: %w", err)
		}
		fmt.Printf("✓ Linked %s to %s\n", args[1], args[0])
		return nil
	},
}

// NoteCmd returns the note command
func NoteCmd() *cobra.Command {
	noteAddCmd.Flags().StringP("kind", "k", models.NoteComment, "Note kind (comment, system)")
	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteListCmd)
	return noteCmd
}

// CommitCmd returns the commit command
func CommitCmd() *cobra.Command {
	commitCmd := &cobra.Command{
		Use:   "commit",
		Short: "Link commits to entities",
	}
	commitCmd.AddCommand(commitLinkCmd)
	return commitCmd
}
