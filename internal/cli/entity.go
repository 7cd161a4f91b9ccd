// Package cli contains the cobra command surface. Commands translate
// user verbs into calls against the core's operations and render the
// results; the core itself takes no string arguments and owns no output
// formatting.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/braid/internal/models"
	"github.com/example/braid/internal/ports/primary"
	"github.com/example/braid/internal/wire"
)

var createCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new entity",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		family, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetInt("priority")
		shortName, _ := cmd.Flags().GetString("short-name")
		description, _ := cmd.Flags().GetString("description")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entity, err := store.CreateEntity(context.Background(), primary.CreateEntityRequest{
			Type:        family,
			Title:       title,
			ShortName:   shortName,
			Description: description,
			Priority:    priority,
			Tags:        tags,
		})
		if err != nil {
			return fmt.Errorf("failed to create entity: %w", err)
		}

		fmt.Printf("✓ Created %s %s: %s\n", entity.Type, entity.ID, entity.Title)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		entity, err := store.GetEntity(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s %s\n", color.New(color.Bold).Sprint(entity.ID), entity.Title)
		fmt.Printf("  Type:     %s\n", entity.Type)
		fmt.Printf("  Status:   %s\n", statusColor(entity.Status).Sprint(entity.Status))
		fmt.Printf("  Priority: %d\n", entity.Priority)
		if len(entity.Tags) > 0 {
			fmt.Printf("  Tags:     %s\n", strings.Join(entity.Tags, ", "))
		}
		if entity.Description != "" {
			fmt.Printf("  Description: %s\n", entity.Description)
		}
		fmt.Printf("  Created:  %s\n", entity.CreatedAt.Format("2006-01-02 15:04:05"))
		if entity.ClosedAt != nil {
			fmt.Printf("  Closed:   %s (%s)\n", entity.ClosedAt.Format("2006-01-02 15:04:05"), entity.ClosedReason)
		}

		edges, err := store.ListEdges(ctx, entity.ID)
		if err == nil && len(edges) > 0 {
			fmt.Println("  Edges:")
			for _, e := range edges {
				fmt.Printf("    %s -%s-> %s\n", e.Source, e.Type, e.Target)
			}
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities",
	RunE: func(cmd *cobra.Command, args []string) error {
		family, _ := cmd.Flags().GetString("type")
		status, _ := cmd.Flags().GetString("status")

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entities, err := store.ListEntities(context.Background(), family, status)
		if err != nil {
			return fmt.Errorf("failed to list entities: %w", err)
		}
		if len(entities) == 0 {
			fmt.Println("No entities found")
			return nil
		}
		for _, e := range entities {
			fmt.Printf("%s  [%s] p%d  %s\n", e.ID, statusColor(e.Status).Sprint(e.Status), e.Priority, e.Title)
		}
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update entity fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := primary.UpdateEntityRequest{ID: args[0]}
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			req.Title = &v
		}
		if cmd.Flags().Changed("status") {
			v, _ := cmd.Flags().GetString("status")
			req.Status = &v
		}
		if cmd.Flags().Changed("priority") {
			v, _ := cmd.Flags().GetInt("priority")
			req.Priority = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			req.Description = &v
		}
		if cmd.Flags().Changed("tag") {
			v, _ := cmd.Flags().GetStringSlice("tag")
			req.Tags = &v
		}

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entity, err := store.UpdateEntity(context.Background(), req)
		if err != nil {
			return fmt.Errorf("failed to update entity: %w", err)
		}
		fmt.Printf("✓ Updated %s: %s [%s]\n", entity.ID, entity.Title, entity.Status)
		return nil
	},
}

var closeCmd = &cobra.Command{
	Use:   "close [id]",
	Short: "Close an entity as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entity, err := store.CloseEntity(context.Background(), args[0], reason)
		if err != nil {
			return fmt.Errorf("failed to close entity: %w", err)
		}
		fmt.Printf("✓ Closed %s: %s\n", entity.ID, entity.Title)
		return nil
	},
}

var reopenCmd = &cobra.Command{
	Use:   "reopen [id]",
	Short: "Reopen a closed entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entity, err := store.ReopenEntity(context.Background(), args[0], reason)
		if err != nil {
			return fmt.Errorf("failed to reopen entity: %w", err)
		}
		fmt.Printf("✓ Reopened %s: %s\n", entity.ID, entity.Title)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an entity (tombstone; the log keeps history)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteEntity(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entity: %w", err)
		}
		fmt.Printf("✓ Deleted %s\n", args[0])
		return nil
	},
}

func statusColor(status string) *color.Color {
	switch status {
	case models.StatusDone:
		return color.New(color.FgGreen)
	case models.StatusBlocked:
		return color.New(color.FgRed)
	case models.StatusInProgress:
		return color.New(color.FgCyan)
	case models.StatusReopened:
		return color.New(color.FgYellow)
	default:
		return color.New(color.Reset)
	}
}

// CreateCmd returns the create command
func CreateCmd() *cobra.Command {
	createCmd.Flags().StringP("type", "t", models.TypeTask, "Entity family (task, bug, idea, test, doc, milestone, queue, agent)")
	createCmd.Flags().IntP("priority", "p", 2, "Priority 0-4 (0 most urgent)")
	createCmd.Flags().String("short-name", "", "Optional short name")
	createCmd.Flags().StringP("description", "d", "", "Description")
	createCmd.Flags().StringSlice("tag", nil, "Tag (repeatable)")
	return createCmd
}

// ShowCmd returns the show command
func ShowCmd() *cobra.Command { return showCmd }

// ListCmd returns the list command
func ListCmd() *cobra.Command {
	listCmd.Flags().StringP("type", "t", "", "Filter by family")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	return listCmd
}

// UpdateCmd returns the update command
func UpdateCmd() *cobra.Command {
	updateCmd.Flags().String("title", "", "New title")
	updateCmd.Flags().StringP("status", "s", "", "New status")
	updateCmd.Flags().IntP("priority", "p", 0, "New priority")
	updateCmd.Flags().StringP("description", "d", "", "New description")
	updateCmd.Flags().StringSlice("tag", nil, "Replace tags")
	return updateCmd
}

// CloseCmd returns the close command
func CloseCmd() *cobra.Command {
	closeCmd.Flags().StringP("reason", "r", "", "Close reason")
	return closeCmd
}

// ReopenCmd returns the reopen command
func ReopenCmd() *cobra.Command {
	reopenCmd.Flags().StringP("reason", "r", "", "Reopen reason")
	return reopenCmd
}

// DeleteCmd returns the delete command
func DeleteCmd() *cobra.Command { return deleteCmd }
