package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"

	"github.com/sealmail/sealmail/internal/display"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll for changes continuously",
	Long:  "Run sync on an interval until interrupted. Transient failures back off exponentially and recover on their own.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}

		interval := watchInterval
		if interval <= 0 {
			interval = cfg.PollInterval()
		}

		newBackoff := func() *backoff.ExponentialBackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = interval
			b.MaxInterval = 10 * time.Minute
			return b
		}
		bo := newBackoff()

		if !quietFlag {
			fmt.Printf("Watching every %s (ctrl-c to stop)\n", interval)
		}

		wait := interval
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}

			if _, err := rt.executor.Drain(ctx); err != nil {
				display.ErrorMsg("drain: %v", err)
			}
			result, err := rt.engine.Sync(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				display.ErrorMsg("sync: %v", err)
				wait = bo.NextBackOff()
				continue
			}

			bo = newBackoff()
			wait = interval
			if !quietFlag && (result.Applied > 0 || result.Deleted > 0) {
				fmt.Printf("%s  %d applied, %d deleted\n",
					time.Now().Format("15:04:05"), result.Applied, result.Deleted)
			}
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (default: from config)")
	rootCmd.AddCommand(watchCmd)
}
