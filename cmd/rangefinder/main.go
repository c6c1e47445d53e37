// Rangefinder estimates the distance to objects seen by a camera.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/cmd/rangefinder/commands"
	"github.com/teslashibe/go-rangefinder/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "rangefinder",
	Short: "Monocular distance estimation for detected objects",
	Long: `rangefinder detects objects in a camera feed and estimates how far away
they are from their apparent size, with per-class calibration.

Examples:
  rangefinder init                          # write config/config.yml
  rangefinder run                           # camera window with distances
  rangefinder run --serve                   # same, plus the HTTP control surface
  rangefinder serve                         # HTTP control surface only
  rangefinder calibrate cup 40 210 --height # calibrate from one measurement
  rangefinder watch                         # print live readings from a server`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = "info"
		}
		log.Init(level)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default $RANGEFINDER_CONFIG or config/config.yml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().String("calibration", "", "Calibration file (default from config)")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.CalibrateCmd)
	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.WatchCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		cancel()
		os.Exit(1)
	}
}
