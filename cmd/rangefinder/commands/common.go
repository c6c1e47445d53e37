// Package commands implements the rangefinder subcommands.
package commands

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/internal/config"
	"github.com/teslashibe/go-rangefinder/internal/log"
	"github.com/teslashibe/go-rangefinder/pkg/calibration"
	"github.com/teslashibe/go-rangefinder/pkg/distance"
)

// loadConfig loads the config named by --config, writing the defaults
// first if the file does not exist yet. Without an explicit --log-level
// the configured level takes over.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.ConfigPath()
	}

	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, err
	}
	if created {
		log.Info("default config written", "path", path)
	}

	if !cmd.Flags().Changed("log-level") && cfg.Log.Level != "" {
		log.Init(cfg.Log.Level)
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, errors.WithHint(
			errors.Newf("invalid config %s", path),
			strings.Join(problems, "\n"))
	}
	return cfg, nil
}

// openEngine builds the engine backed by the calibration file.
func openEngine(cmd *cobra.Command, cfg *config.Config) (*distance.Engine, *calibration.Store, error) {
	override, _ := cmd.Flags().GetString("calibration")
	store := calibration.NewStore(config.CalibrationPath(override, cfg), log.Component("calibration"))

	engine, err := distance.NewEngine(cfg.Engine(),
		distance.WithStore(store),
		distance.WithLogger(log.Component("distance")))
	if err != nil {
		return nil, nil, err
	}
	return engine, store, nil
}

// watchCalibration applies edits to the calibration file while ctx lives.
func watchCalibration(ctx context.Context, store *calibration.Store, engine *distance.Engine) {
	if err := calibration.Watch(ctx, store, engine.ReplaceCalibration); err != nil {
		log.Warn("calibration file not watched", "path", store.Path(), "error", err)
	}
}

// serverURL resolves --server, falling back to the configured local port.
func serverURL(cmd *cobra.Command) string {
	if u, _ := cmd.Flags().GetString("server"); u != "" {
		return strings.TrimRight(u, "/")
	}
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.ConfigPath()
	}
	if cfg, err := config.Load(path); err == nil {
		return config.ServerURL(cfg.Server.Port)
	}
	return config.ServerURL("")
}
