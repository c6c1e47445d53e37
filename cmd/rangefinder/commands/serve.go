package commands

import (
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/internal/log"
	"github.com/teslashibe/go-rangefinder/pkg/web"
)

// ServeCmd serves the HTTP control surface without a camera.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP control surface without a camera",
	Long: `Serve the estimation engine over HTTP. Clients post observations to
/api/estimate and manage calibration through /api/calibration.`,
	RunE: runServe,
}

func init() {
	ServeCmd.Flags().String("port", "", "HTTP port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	engine, store, err := openEngine(cmd, cfg)
	if err != nil {
		return err
	}
	watchCalibration(ctx, store, engine)

	return web.NewServer(webConfig(cmd, cfg), engine, log.Component("web")).Run(ctx)
}
