package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/display"
)

type statusReport struct {
	Messages     int    `json:"messages"`
	Contacts     int    `json:"contacts"`
	Pending      int    `json:"pending_actions"`
	Failed       int    `json:"failed_actions"`
	EventCursor  string `json:"event_cursor,omitempty"`
	CacheVersion string `json:"cache_version,omitempty"`
	UserEmail    string `json:"user_email,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache and queue state",
	RunE: func(cmd *cobra.Command, args []string) error {
		report := statusReport{
			Messages:     store.MessageCount(),
			Contacts:     store.ContactCount(),
			Pending:      store.PendingActionCount(),
			Failed:       store.FailedActionCount(),
			EventCursor:  store.LastEventID(),
			CacheVersion: store.GetMeta(db.MetaCacheVersion),
			UserEmail:    store.GetMeta("user_email"),
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(&report)
		}

		display.Header("sealmail status")
		if report.UserEmail != "" {
			fmt.Printf("  account:  %s\n", report.UserEmail)
		}
		fmt.Printf("  messages: %d\n", report.Messages)
		fmt.Printf("  contacts: %d\n", report.Contacts)
		fmt.Printf("  queued:   %d pending, %d failed\n", report.Pending, report.Failed)
		if report.EventCursor == "" {
			fmt.Println("  cursor:   none (next sync is a full fetch)")
		} else {
			fmt.Printf("  cursor:   %s\n", report.EventCursor)
		}

		bookmarks, err := store.Bookmarks()
		if err != nil {
			return err
		}
		if len(bookmarks) > 0 {
			fmt.Println()
			display.SubHeader("Folders")
			for _, b := range bookmarks {
				fmt.Printf("  %-10s %d total, %d unread\n", b.LabelID, b.Total, b.Unread)
			}
		}
		return nil
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, err := store.Labels()
		if err != nil {
			return err
		}
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(labels)
		}
		for _, l := range labels {
			fmt.Printf("%-24s %s\n", l.ID, l.Name)
		}
		return nil
	},
}

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		contacts, err := store.Contacts()
		if err != nil {
			return err
		}
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(contacts)
		}
		for _, c := range contacts {
			key := " "
			if c.PublicKey != "" {
				key = display.LockStyle.Render("🔒")
			}
			fmt.Printf("%s %-28s %s\n", key, c.Name, c.Email)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(contactsCmd)
}
