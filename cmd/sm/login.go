package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sealmail/sealmail/internal/auth"
	"github.com/sealmail/sealmail/internal/display"
	"github.com/sealmail/sealmail/internal/lifecycle"
	"github.com/sealmail/sealmail/internal/pgp"
)

var loginKeyFile string

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Authenticate and store credentials in the system keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		creds, err := auth.Open()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Password for %s: ", username)
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		if err := creds.Login(cmd.Context(), cfg.BaseURL, username, string(password)); err != nil {
			return err
		}

		if loginKeyFile != "" {
			armored, err := os.ReadFile(loginKeyFile)
			if err != nil {
				return fmt.Errorf("read key file: %w", err)
			}
			fmt.Fprint(os.Stderr, "Key passphrase: ")
			passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("read passphrase: %w", err)
			}
			// Verify the key unlocks before storing it.
			if _, err := pgp.NewKeys(string(armored), string(passphrase)); err != nil {
				return err
			}
			if err := creds.SavePrivateKey(strings.TrimSpace(string(armored))+"\n", string(passphrase)); err != nil {
				return err
			}
		}

		if !quietFlag {
			display.SuccessMsg("Logged in as %s", username)
			if loginKeyFile == "" {
				fmt.Println("No account key imported; bodies stay encrypted. Re-run with --key-file to import one.")
			}
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop credentials and wipe the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := auth.Open()
		if err != nil {
			return err
		}

		if !quietFlag {
			fmt.Fprint(os.Stderr, "This wipes the local cache and stored credentials. Continue? [y/N] ")
			reader := bufio.NewReader(os.Stdin)
			line, _ := reader.ReadString('\n')
			if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
				return nil
			}
		}

		if err := lifecycle.Logout(store, creds); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Logged out")
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginKeyFile, "key-file", "", "Armored private key to import for decryption")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
