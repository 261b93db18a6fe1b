package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sealmail/sealmail/internal/display"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the action queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending and failed actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		pending, err := rt.queue.Pending()
		if err != nil {
			return err
		}
		failed, err := rt.queue.Failed()
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"pending": pending, "failed": failed})
		}

		display.Header(fmt.Sprintf("Pending (%d)", len(pending)))
		for _, a := range pending {
			note := a.Data1
			if a.Data2 != "" {
				note += " -> " + a.Data2
			}
			display.QueueRow(a.Seq, string(a.Kind), a.Target, note)
		}
		if len(failed) > 0 {
			fmt.Println()
			display.Header(fmt.Sprintf("Failed (%d) — replay with 'sm queue retry-failed'", len(failed)))
			for _, a := range failed {
				display.QueueRow(a.Seq, string(a.Kind), a.Target, "failed at "+a.FailedAt)
			}
		}
		return nil
	},
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Execute pending actions now",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		n, err := rt.executor.Drain(cmd.Context())
		if err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Executed %d action(s)", n)
		}
		return nil
	},
}

var queueRetryFailedCmd = &cobra.Command{
	Use:   "retry-failed",
	Short: "Move failed actions back onto the queue and drain",
	Long:  "Failed actions are never replayed automatically; this command is the only path back onto the queue.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		n, err := rt.queue.RetryFailed()
		if err != nil {
			return err
		}
		if n == 0 {
			if !quietFlag {
				fmt.Println("No failed actions.")
			}
			return nil
		}
		done, err := rt.executor.Drain(cmd.Context())
		if err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Requeued %d, executed %d", n, done)
		}
		return nil
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard all pending actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		if err := rt.queue.Clear(); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Queue cleared")
		}
		return nil
	},
}

var queueClearFailedCmd = &cobra.Command{
	Use:   "clear-failed",
	Short: "Discard all failed actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		if err := rt.queue.ClearFailed(); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Failed queue cleared")
		}
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueDrainCmd)
	queueCmd.AddCommand(queueRetryFailedCmd)
	queueCmd.AddCommand(queueClearCmd)
	queueCmd.AddCommand(queueClearFailedCmd)
	rootCmd.AddCommand(queueCmd)
}
