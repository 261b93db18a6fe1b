package main

import (
	"github.com/spf13/cobra"

	"github.com/sealmail/sealmail/internal/display"
)

// markCommand builds one of the four flag commands; they differ only
// in which flag they flip.
func markCommand(use, short string, run func(rt *runtime, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <message-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := run(rt, id); err != nil {
					return err
				}
			}
			if !quietFlag {
				display.SuccessMsg("%s: %d message(s)", use, len(args))
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(
		markCommand("read", "Mark messages as read", func(rt *runtime, id string) error {
			return rt.service.MarkRead(id, true)
		}),
		markCommand("unread", "Mark messages as unread", func(rt *runtime, id string) error {
			return rt.service.MarkRead(id, false)
		}),
		markCommand("star", "Star messages", func(rt *runtime, id string) error {
			return rt.service.Star(id, true)
		}),
		markCommand("unstar", "Unstar messages", func(rt *runtime, id string) error {
			return rt.service.Star(id, false)
		}),
	)
}
