package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/braid/internal/models"
	"github.com/example/braid/internal/ports/primary"
	"github.com/example/braid/internal/wire"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage edges between entities",
	Long:  "Add, remove, and inspect typed directed relations; dependency edges are kept acyclic",
}

var depAddCmd = &cobra.Command{
	Use:   "add [source] [target]",
	Short: "Add an edge from source to target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		edgeType, _ := cmd.Flags().GetString("type")
		reason, _ := cmd.Flags().GetString("reason")
		weight, _ := cmd.Flags().GetFloat64("weight")

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		edge, err := store.AddEdge(context.Background(), primary.AddEdgeRequest{
			Source: args[0],
			Target: args[1],
			Type:   edgeType,
			Reason: reason,
			Weight: weight,
		})
		if err != nil {
			return fmt.Errorf("failed to add edge: %w", err)
		}
		fmt.Printf("✓ Added %s: %s -%s-> %s\n", edge.ID, edge.Source, edge.Type, edge.Target)
		return nil
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove [source] [target]",
	Short: "Remove an edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		edgeType, _ := cmd.Flags().GetString("type")

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.RemoveEdge(context.Background(), args[0], args[1], edgeType); err != nil {
			return fmt.Errorf("failed to remove edge: %w", err)
		}
		fmt.Printf("✓ Removed %s -%s-> %s\n", args[0], edgeType, args[1])
		return nil
	},
}

var depChainCmd = &cobra.Command{
	Use:   "chain [id]",
	Short: "Show the transitive blocking chain of an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		links, err := store.BlockingChain(ctx, args[0], limit)
		if err != nil {
			return fmt.Errorf("failed to compute blocking chain: %w", err)
		}
		if len(links) == 0 {
			fmt.Printf("%s has no blockers\n", args[0])
			return nil
		}
		for _, link := range links {
			entity, err := store.GetEntity(ctx, link.ID)
			title := ""
			if err == nil {
				title = entity.Title
			}
			for i := 0; i < link.Depth; i++ {
				fmt.Print("  ")
			}
			fmt.Printf("%s %s\n", color.New(color.FgRed).Sprint(link.ID), title)
		}
		return nil
	},
}

// DepCmd returns the dep command
func DepCmd() *cobra.Command {
	depAddCmd.Flags().StringP("type", "t", models.EdgeDependsOn, "Edge type")
	depAddCmd.Flags().StringP("reason", "r", "", "Edge reason")
	depAddCmd.Flags().Float64P("weight", "w", 0, "Edge weight")
	depRemoveCmd.Flags().StringP("type", "t", models.EdgeDependsOn, "Edge type")
	depChainCmd.Flags().IntP("limit", "n", 100, "Maximum chain links")

	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	depCmd.AddCommand(depChainCmd)
	return depCmd
}
