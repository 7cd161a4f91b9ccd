package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/braid/internal/models"
	"github.com/example/braid/internal/ports/primary"
	"github.com/example/braid/internal/wire"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Record and inspect test runs",
	Long:  "Completed runs are appended to the log; a failing run reopens done entities linked to the test",
}

var runsRecordCmd = &cobra.Command{
	Use:   "record [test-id]",
	Short: "Record a completed run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome, _ := cmd.Flags().GetString("outcome")
		exitCode, _ := cmd.Flags().GetInt("exit-code")
		durationMS, _ := cmd.Flags().GetInt64("duration-ms")
		output, _ := cmd.Flags().GetString("output")

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.RecordRun(context.Background(), primary.RecordRunRequest{
			TestID:   args[0],
			Outcome:  outcome,
			ExitCode: exitCode,
			Duration: time.Duration(durationMS) * time.Millisecond,
			Output:   output,
		})
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		fmt.Printf("✓ Recorded %s run %s for %s\n", run.Outcome, run.ID, run.TestID)
		return nil
	},
}

var runsExecCmd = &cobra.Command{
	Use:   "exec [test-id] -- [command...]",
	Short: "Execute a test command and record the outcome",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.ExecRun(context.Background(), args[0], args[1:], timeout)
		if err != nil {
			return fmt.Errorf("failed to execute run: %w", err)
		}
		fmt.Printf("✓ %s (exit %d, %dms)\n", outcomeColor(run.Outcome).Sprint(run.Outcome), run.ExitCode, run.DurationMS)
		return nil
	},
}

var runsLatestCmd = &cobra.Command{
	Use:   "latest [test-id]",
	Short: "Show the latest run of a test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.LatestRun(context.Background(), args[0])
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Printf("%s has never run\n", args[0])
			return nil
		}
		fmt.Printf("%s  %s  exit %d  %dms  %s\n",
			run.ID, outcomeColor(run.Outcome).Sprint(run.Outcome), run.ExitCode, run.DurationMS,
			run.StartedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var runsHistoryCmd = &cobra.Command{
	Use:   "history [test-id]",
	Short: "Show the full run history of a test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := wire.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.RunHistory(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to read run history: %w", err)
		}
		if len(runs) == 0 {
			fmt.Printf("%s has never run\n", args[0])
			return nil
		}
		for _, run := range runs {
			fmt.Printf("%s  %s  exit %d  %dms  %s\n",
				run.ID, outcomeColor(run.Outcome).Sprint(run.Outcome), run.ExitCode, run.DurationMS,
				run.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func outcomeColor(outcome string) *color.Color {
	switch outcome {
	case models.OutcomePass:
		return color.New(color.FgGreen)
	case models.OutcomeTimeout:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// RunsCmd returns the runs command
func RunsCmd() *cobra.Command {
	runsRecordCmd.Flags().StringP("outcome", "o", models.OutcomeFail, "Run outcome (pass, fail, timeout)")
	runsRecordCmd.Flags().Int("exit-code", 0, "Process exit code")
	runsRecordCmd.Flags().Int64("duration-ms", 0, "Run duration in milliseconds")
	runsRecordCmd.Flags().String("output", "", "Captured output (truncated to 8 KiB)")
	runsExecCmd.Flags().Duration("timeout", 0, "Kill the command after this duration and record a timeout")

	runsCmd.AddCommand(runsRecordCmd)
	runsCmd.AddCommand(runsExecCmd)
	runsCmd.AddCommand(runsLatestCmd)
	runsCmd.AddCommand(runsHistoryCmd)
	return runsCmd
}
