package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sealmail/sealmail/internal/display"
	"github.com/sealmail/sealmail/internal/mailbox"
)

var (
	draftID       string
	draftSubject  string
	draftTo       string
	draftCC       string
	draftBCC      string
	draftBody     string
	draftBodyFile string
	draftAttach   []string
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Create or update a draft",
	Long:  "Create a draft (or update one with --id). The body is encrypted to your account key before it is stored anywhere. Reads the body from stdin when neither --body nor --body-file is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		if rt.keys == nil {
			return fmt.Errorf("drafting needs the account key — re-run 'sm login' with --key-file")
		}

		body := draftBody
		switch {
		case draftBodyFile != "":
			raw, err := os.ReadFile(draftBodyFile)
			if err != nil {
				return fmt.Errorf("read body file: %w", err)
			}
			body = string(raw)
		case body == "":
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			body = string(raw)
		}

		sender, _ := rt.creds.Username()
		msg, err := rt.service.SaveDraft(rt.keys, mailbox.DraftInput{
			ID:      draftID,
			Subject: draftSubject,
			To:      draftTo,
			CC:      draftCC,
			BCC:     draftBCC,
			Body:    body,
			Sender:  sender,
		})
		if err != nil {
			return err
		}

		for _, path := range draftAttach {
			att, err := rt.service.AttachFile(msg.ID, path, "application/octet-stream")
			if err != nil {
				return err
			}
			if !quietFlag {
				fmt.Printf("Attached %s (%d bytes)\n", att.Filename, att.Size)
			}
		}

		if !quietFlag {
			display.SuccessMsg("Draft saved: %s", msg.ID)
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <message-id>",
	Short: "Send a draft",
	Long:  "Queue a draft for delivery. Recipients with a known public key get an end-to-end encrypted copy; the rest receive cleartext MIME.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		if err := rt.service.Send(args[0]); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Send queued for %s", args[0])
		}
		return nil
	},
}

func init() {
	draftCmd.Flags().StringVar(&draftID, "id", "", "Existing draft to update")
	draftCmd.Flags().StringVar(&draftSubject, "subject", "", "Subject line")
	draftCmd.Flags().StringVar(&draftTo, "to", "", "Recipients, comma separated")
	draftCmd.Flags().StringVar(&draftCC, "cc", "", "CC recipients, comma separated")
	draftCmd.Flags().StringVar(&draftBCC, "bcc", "", "BCC recipients, comma separated")
	draftCmd.Flags().StringVar(&draftBody, "body", "", "Body text")
	draftCmd.Flags().StringVar(&draftBodyFile, "body-file", "", "Read body from a file")
	draftCmd.Flags().StringSliceVar(&draftAttach, "attach", nil, "Files to attach")
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(sendCmd)
}
