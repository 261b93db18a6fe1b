package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sealmail/sealmail/internal/display"
	"github.com/sealmail/sealmail/internal/types"
)

var (
	syncFull  bool
	syncLabel string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local cache with the server",
	Long:  "Drain the action queue, then pull the event log (or run a full fetch when no cursor exists yet).",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}

		// Local intent goes out before new server state comes in, so
		// the event log already reflects our own actions.
		drained, err := rt.executor.Drain(cmd.Context())
		if err != nil {
			return err
		}

		if syncLabel != "" {
			n, err := rt.engine.FetchLabel(cmd.Context(), syncLabel)
			if err != nil {
				return err
			}
			if !quietFlag {
				display.SuccessMsg("Fetched %d messages for label %s", n, syncLabel)
			}
			return nil
		}

		var result *types.SyncResult
		if syncFull {
			result, err = rt.engine.FullSync(cmd.Context())
		} else {
			result, err = rt.engine.Sync(cmd.Context())
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		if !quietFlag {
			if drained > 0 {
				fmt.Printf("Pushed %d queued actions\n", drained)
			}
			if result.Refreshed {
				fmt.Println("Server requested a refresh; cache was rebuilt from scratch.")
			}
			display.SuccessMsg("Synced (%s): %d fetched, %d applied, %d deleted",
				result.Mode, result.Fetched, result.Applied, result.Deleted)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "force a full refetch instead of an event poll")
	syncCmd.Flags().StringVar(&syncLabel, "label", "", "fetch the complete listing of one label")
	rootCmd.AddCommand(syncCmd)
}
