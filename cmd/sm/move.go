package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sealmail/sealmail/internal/display"
	"github.com/sealmail/sealmail/internal/types"
)

var moveCmd = &cobra.Command{
	Use:   "move <message-id> <folder>",
	Short: "Move a message to another folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		loc, ok := types.ParseLocation(args[1])
		if !ok {
			return fmt.Errorf("unknown folder %q", args[1])
		}
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		if err := rt.service.Move(id, loc); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Moved %s to %s", id, loc)
			if loc == types.LocationTrash || loc == types.LocationSpam {
				fmt.Printf("Undo within %s: sm undo %s\n", cfg.UndoWindow(), id)
			}
		}
		return nil
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <message-id>",
	Short: "Undo a recent move to trash or spam",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		ok, err := rt.service.Undo(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("nothing to undo for %s (window elapsed?)", args[0])
		}
		if !quietFlag {
			display.SuccessMsg("Restored %s", args[0])
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <message-id>...",
	Short: "Permanently delete messages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := rt.service.Delete(id); err != nil {
				return err
			}
		}
		if !quietFlag {
			display.SuccessMsg("Deleted %d message(s)", len(args))
		}
		return nil
	},
}

var emptyCmd = &cobra.Command{
	Use:   "empty <folder>",
	Short: "Permanently delete everything in a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, ok := types.ParseLocation(args[0])
		if !ok {
			return fmt.Errorf("unknown folder %q", args[0])
		}
		if loc != types.LocationTrash && loc != types.LocationSpam && loc != types.LocationDraft {
			return fmt.Errorf("only trash, spam and drafts can be emptied")
		}

		if !quietFlag {
			fmt.Fprintf(os.Stderr, "Permanently delete everything in %s? [y/N] ", loc)
			reader := bufio.NewReader(os.Stdin)
			line, _ := reader.ReadString('\n')
			if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
				return nil
			}
		}

		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		n, err := rt.service.Empty(loc)
		if err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Emptied %s: %d message(s)", loc, n)
		}
		return nil
	},
}

var labelCmd = &cobra.Command{
	Use:   "label <message-id> <label-id>",
	Short: "Attach a label to a message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		if err := rt.service.Label(args[0], args[1]); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Labeled %s", args[0])
		}
		return nil
	},
}

var unlabelCmd = &cobra.Command{
	Use:   "unlabel <message-id> <label-id>",
	Short: "Detach a label from a message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		if err := rt.service.Unlabel(args[0], args[1]); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Unlabeled %s", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(emptyCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(unlabelCmd)
}
