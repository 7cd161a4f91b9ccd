package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/braid/internal/syncd"
	"github.com/example/braid/internal/wire"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow live mutations from a sync server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := wire.Config()
		if err != nil {
			return err
		}
		if addr == "" {
			addr = cfg.SyncAddr
		}
		if addr == "" {
			addr = defaultSyncAddr
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		observer := syncd.NewObserver("ws://"+addr+"/sync", logger)
		observer.OnApply = printMessage

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		observer.Connect(ctx)
		<-ctx.Done()
		observer.Disconnect()
		return nil
	},
}

func printMessage(msg *syncd.Message) {
	v := color.New(color.Faint).Sprintf("v%d", msg.Version)
	switch msg.Type {
	case syncd.MsgSnapshot:
		total := 0
		for _, group := range msg.Entities {
			total += len(group)
		}
		fmt.Printf("%s snapshot: %d entities, %d edges\n", v, total, len(msg.Edges))
	case syncd.MsgEntityAdded, syncd.MsgEntityUpdated:
		fmt.Printf("%s %s %s [%s] %s\n", v, msg.Type, msg.ID, msg.Entity.Status, msg.Entity.Title)
	case syncd.MsgEntityRemoved, syncd.MsgEdgeRemoved:
		fmt.Printf("%s %s %s\n", v, msg.Type, msg.ID)
	case syncd.MsgEdgeAdded:
		fmt.Printf("%s edge %s -%s-> %s\n", v, msg.Edge.Source, msg.Edge.Type, msg.Edge.Target)
	case syncd.MsgRunRecorded:
		fmt.Printf("%s run %s %s\n", v, msg.Run.TestID, msg.Run.Outcome)
	default:
		fmt.Printf("%s %s\n", v, msg.Type)
	}
}

// WatchCmd returns the watch command
func WatchCmd() *cobra.Command {
	watchCmd.Flags().String("addr", "", "Sync server address")
	return watchCmd
}
