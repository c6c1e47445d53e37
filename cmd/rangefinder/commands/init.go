package commands

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/internal/config"
)

// InitCmd writes the default configuration.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.ConfigPath()
		}

		if err := config.WriteDefault(path); err != nil {
			if errors.Is(err, os.ErrExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, left unchanged\n", path)
				return nil
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}
