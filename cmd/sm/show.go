package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sealmail/sealmail/internal/display"
	"github.com/sealmail/sealmail/internal/types"
)

var showRaw bool

var showCmd = &cobra.Command{
	Use:   "show <message-id>",
	Short: "Display a message, fetching and decrypting its body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		msg, err := store.GetMessage(id)
		if err != nil {
			return err
		}
		if msg == nil {
			return fmt.Errorf("no such message %s", id)
		}

		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}

		if msg.Status == types.StatusHeaderOnly || msg.Body == "" {
			msg, err = rt.engine.FetchBody(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("fetch body: %w", err)
			}
		}

		body := msg.Body
		if msg.IsEncrypted && !showRaw {
			if rt.keys == nil {
				return fmt.Errorf("message is encrypted and no account key is stored — re-run 'sm login' with --key-file, or use --raw")
			}
			body, err = rt.keys.Decrypt(msg.Body)
			if err != nil {
				return err
			}
		}

		// Reading a message marks it read, like any mail client.
		if msg.Unread {
			if err := rt.service.MarkRead(id, true); err != nil {
				return err
			}
		}

		if jsonOutput {
			out := *msg
			out.Body = body
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(&out)
		}

		display.MessageBody(msg, body)

		atts, err := store.AttachmentsByMessage(id)
		if err != nil {
			return err
		}
		if len(atts) > 0 {
			fmt.Println()
			display.SubHeader(fmt.Sprintf("Attachments (%d)", len(atts)))
			for _, a := range atts {
				fmt.Printf("  %s  %s (%d bytes)\n", a.ID, a.Filename, a.Size)
			}
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the stored body without decrypting")
	rootCmd.AddCommand(showCmd)
}
