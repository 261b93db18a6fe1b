package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sealmail/sealmail/internal/config"
	"github.com/sealmail/sealmail/internal/db"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	configPath string
	dbPath     string
	jsonOutput bool
	quietFlag  bool

	cfg   *config.Config
	store *db.DB
)

var rootCmd = &cobra.Command{
	Use:   "sm",
	Short: "sm - encrypted mailbox client",
	Long:  "Sealmail: an offline-first client for end-to-end encrypted mail. Reads and writes hit the local cache first; the server catches up through a durable action queue and the event log.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// Commands that run before a cache exists.
		switch cmd.Name() {
		case "init", "help", "version":
			return nil
		}

		path := dbPath
		if path == "" {
			path = cfg.DBPath
		}
		store, err = db.Open(path)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sm version %s\n", Version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file and local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.Write(path, cfg); err != nil {
			return err
		}

		s, err := db.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		s.Close()

		if !quietFlag {
			fmt.Printf("Initialized sealmail: config %s, cache %s\n", path, cfg.DBPath)
			fmt.Println("Next: sm login <username>")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/sealmail/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Cache database path (default: from config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
