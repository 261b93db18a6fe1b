package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sealmail/sealmail/internal/display"
	"github.com/sealmail/sealmail/internal/types"
)

var (
	inboxFolder string
	inboxLabel  string
	inboxLimit  int
	inboxOlder  bool
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List cached messages, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		var msgs []*types.Message
		var err error

		if inboxLabel != "" {
			msgs, err = store.MessagesByLabel(inboxLabel, inboxLimit)
		} else {
			loc, ok := types.ParseLocation(inboxFolder)
			if !ok {
				return fmt.Errorf("unknown folder %q", inboxFolder)
			}
			if inboxOlder {
				rt, rerr := newRuntime(cmd.Context())
				if rerr != nil {
					return rerr
				}
				n, ferr := rt.engine.FetchOlder(cmd.Context(), loc)
				if ferr != nil {
					return ferr
				}
				if !quietFlag {
					fmt.Printf("Fetched %d older messages\n", n)
				}
			}
			msgs, err = store.MessagesByLocation(loc, inboxLimit)
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(msgs)
		}

		if len(msgs) == 0 {
			if !quietFlag {
				fmt.Println("No messages. Run 'sm sync' first.")
			}
			return nil
		}
		for _, m := range msgs {
			display.MessageRow(m)
		}
		return nil
	},
}

func init() {
	inboxCmd.Flags().StringVar(&inboxFolder, "folder", "inbox", "Folder to list (inbox, sent, drafts, trash, spam, archive, starred, all)")
	inboxCmd.Flags().StringVar(&inboxLabel, "label", "", "List by label ID instead of folder")
	inboxCmd.Flags().IntVar(&inboxLimit, "limit", 50, "Maximum messages to show")
	inboxCmd.Flags().BoolVar(&inboxOlder, "older", false, "Fetch the next page of older messages first")
	rootCmd.AddCommand(inboxCmd)
}
